package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ddurler/icomsim/internal/cli/timeutil"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check liveness of a running simulator's diagnostic API",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	resp, err := newAdminClient().Health()
	if err != nil {
		return fmt.Errorf("failed to reach diagnostic API: %w", err)
	}
	cmd.Printf("status:     %s\n", resp.Status)
	cmd.Printf("service:    %s\n", resp.Data.Service)
	cmd.Printf("started_at: %s\n", timeutil.FormatTime(resp.Data.StartedAt))
	cmd.Printf("uptime:     %s\n", timeutil.FormatUptime(resp.Data.Uptime))
	return nil
}
