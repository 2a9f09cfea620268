// Command icomsim simulates an ICOM communications board: it speaks the
// AFSEC TLV protocol over a serial link against a shared tag database, and
// exposes a diagnostic HTTP API for operators. It does not include a
// MODBUS/TCP server. See cmd/icomsim/commands for the subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/ddurler/icomsim/cmd/icomsim/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
