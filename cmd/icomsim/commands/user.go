package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ddurler/icomsim/internal/cli/output"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Inspect registered notification users on a running simulator",
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered notification user",
	RunE:  runUserList,
}

func init() {
	userCmd.AddCommand(userListCmd)
}

// userList renders a slice of apiUser as a table.
type userList []apiUser

func (ul userList) Headers() []string {
	return []string{"ID", "NAME", "NOTIFICATIONS"}
}

func (ul userList) Rows() [][]string {
	rows := make([][]string, 0, len(ul))
	for _, u := range ul {
		rows = append(rows, []string{strconv.Itoa(u.ID), u.Name, boolToYesNo(u.UseNotification)})
	}
	return rows
}

func runUserList(cmd *cobra.Command, args []string) error {
	users, err := newAdminClient().ListUsers()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return err
	}
	return output.NewPrinter(os.Stdout, format, true).Print(userList(users))
}
