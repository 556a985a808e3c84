// Package cmd provides the CLI commands for codewell.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/codewell/codewell/pkg/version"
)

// Debug logging flag, shared across subcommands.
var debugMode bool

// NewRootCmd creates the root command for the codewell CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codewell",
		Short: "Local code-intelligence engine for AI coding agents",
		Long: `codewell indexes a project's source into syntax-aware chunks,
embeds them, and serves them back to AI coding agents through a JSON-RPC
tool server — entirely locally, with no code ever leaving the machine.

Run 'codewell init' once per project, then 'codewell watch' to keep the
index current, and point your agent's tool-discovery config at
'codewell mcp'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("codewell version {{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to the log file")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newBundleCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSetupMCPCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and returns the process exit code, mapping
// errors through exitCodeFor so callers that need a specific bundle/root
// failure code (spec §6) don't have to re-derive it from cobra's plain
// error return.
func Execute() int {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		cmd.PrintErrln("Error:", err)
	}
	return exitCodeFor(err)
}
