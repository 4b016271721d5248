// Package cli wires the slate commands: extract (one subcommand per vendor),
// migrate and load. Commands read their settings from the layered config,
// log through zerolog and map failures onto the process exit codes.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command for the slate CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "slate",
		Short: "slate - LMS extract and load utilities",
		Long: `slate pulls roster, coursework and attendance data from Canvas,
Google Classroom and Schoology, writes it as dated CSV files, and merges
those files into the lms schema of a PostgreSQL or MySQL database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	cmd.AddCommand(NewExtractCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
