// Package commands implements the icomsim CLI: running the simulator
// (start) and talking to a running simulator's diagnostic HTTP API
// (tag, user).
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global persistent flags.
	cfgFile     string
	serverURL   string
	bearerToken string
	outputFmt   string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "icomsim",
	Short: "ICOM communications board simulator",
	Long: `icomsim simulates an ICOM communications board: an AFSEC TLV protocol
engine that serves a shared tag database over a serial line, plus a
diagnostic HTTP API for operators. It does not include a MODBUS/TCP server.

Use "icomsim [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(); it only needs to happen
// once for rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/icomsim/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8081", "diagnostic API base URL (for tag/user commands)")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "token", "", "bearer token for the diagnostic API (for tag/user commands)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "output format (table|json|yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global --config flag.
func GetConfigFile() string {
	return cfgFile
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
