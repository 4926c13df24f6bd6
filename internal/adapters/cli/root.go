// Package cli exposes the mrta command tree: the allocation daemon, task
// submission, and configuration inspection.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mrta",
		Short: "MRTA CLI - auction-based multi-robot task allocation",
		Long: `MRTA runs a TeSSI-style auction that allocates transportation tasks
to a fleet of robots while keeping each robot's schedule temporally consistent.

Examples:
  mrta daemon
  mrta task submit --pickup AMK_D_L-1 --delivery AMK_B_L-1 \
      --earliest 2026-08-25T10:00:00Z --latest 2026-08-25T10:03:00Z
  mrta config show`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: search ., ./configs, /etc/mrta)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose output")

	// Add command groups
	rootCmd.AddCommand(NewDaemonCommand())
	rootCmd.AddCommand(NewTaskCommand())
	rootCmd.AddCommand(NewConfigCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
