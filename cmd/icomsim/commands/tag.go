package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ddurler/icomsim/internal/cli/output"
	"github.com/ddurler/icomsim/internal/cli/prompt"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Inspect and set tags on a running simulator",
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered tag",
	RunE:  runTagList,
}

var tagGetCmd = &cobra.Command{
	Use:   "get <zone> <num>",
	Short: "Show one tag's current value",
	Args:  cobra.ExactArgs(2),
	RunE:  runTagGet,
}

var tagSetValue string

var tagSetCmd = &cobra.Command{
	Use:   "set <zone> <num>",
	Short: "Set one tag's value",
	Long: `Set one tag's value through the diagnostic API.

If --value is omitted, prompts interactively for the new value.

Examples:
  icomsim tag set 1 2042 --value 5
  icomsim tag set 1 2042`,
	Args: cobra.ExactArgs(2),
	RunE: runTagSet,
}

func init() {
	tagSetCmd.Flags().StringVar(&tagSetValue, "value", "", "new value to write")

	tagCmd.AddCommand(tagListCmd)
	tagCmd.AddCommand(tagGetCmd)
	tagCmd.AddCommand(tagSetCmd)
}

// tagList renders a slice of apiTag as a table.
type tagList []apiTag

func (tl tagList) Headers() []string {
	return []string{"ID_TAG", "LABEL", "FORMAT", "UNITY", "WRITE", "VALUE"}
}

func (tl tagList) Rows() [][]string {
	rows := make([][]string, 0, len(tl))
	for _, t := range tl {
		rows = append(rows, []string{t.IdTag, t.Label, t.Format, t.Unity, boolToYesNo(t.IsWrite), t.Value})
	}
	return rows
}

func boolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func runTagList(cmd *cobra.Command, args []string) error {
	tags, err := newAdminClient().ListTags()
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}

	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return err
	}
	return output.NewPrinter(os.Stdout, format, true).Print(tagList(tags))
}

func runTagGet(cmd *cobra.Command, args []string) error {
	if err := parseZoneNum(args[0], args[1]); err != nil {
		return err
	}

	tag, err := newAdminClient().GetTag(args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to get tag: %w", err)
	}

	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return err
	}
	return output.NewPrinter(os.Stdout, format, true).Print(tagList{tag})
}

func runTagSet(cmd *cobra.Command, args []string) error {
	zone, num := args[0], args[1]
	if err := parseZoneNum(zone, num); err != nil {
		return err
	}
	value := tagSetValue

	if value == "" {
		client := newAdminClient()
		current, err := client.GetTag(zone, num)
		if err != nil {
			return fmt.Errorf("failed to look up tag: %w", err)
		}
		v, err := prompt.Input(fmt.Sprintf("New value for %s (%s)", current.Label, current.IdTag), current.Value)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
		value = v
	}

	tag, err := newAdminClient().SetTagValue(zone, num, value)
	if err != nil {
		return fmt.Errorf("failed to set tag value: %w", err)
	}

	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return err
	}
	return output.NewPrinter(os.Stdout, format, true).Print(tagList{tag})
}

// parseZoneNum validates zone/num are well-formed before hitting the API,
// giving a clearer error than the server's 400 would.
func parseZoneNum(zone, num string) error {
	if _, err := strconv.ParseUint(zone, 10, 8); err != nil {
		return fmt.Errorf("invalid zone %q: %w", zone, err)
	}
	if _, err := strconv.ParseUint(strings.TrimPrefix(num, "0x"), 16, 16); err != nil {
		return fmt.Errorf("invalid tag number %q: %w", num, err)
	}
	return nil
}
