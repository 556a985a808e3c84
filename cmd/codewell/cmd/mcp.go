package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codewell/codewell/internal/logging"
	"github.com/codewell/codewell/internal/toolserver"
)

// newMCPCmd creates the mcp command: it serves the JSON-RPC 2.0 tool
// server over stdio (spec §4.L). Stdout is reserved exclusively for the
// protocol stream, so logging is redirected to file via
// logging.SetupStdioModeWithLevel before anything else runs, grounded on
// the teacher's own stdio-mode discipline (internal/logging/mcp.go).
func newMCPCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "mcp [path]",
		Short: "Serve the JSON-RPC tool server over stdio",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return runMCP(cmd, path, logLevel)
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level written to the log file")
	return cmd
}

func runMCP(cmd *cobra.Command, path, logLevel string) error {
	cleanup, err := logging.SetupStdioModeWithLevel(logLevel)
	if err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	defer cleanup()

	root, err := resolveProjectRoot(path)
	if err != nil {
		return err
	}

	proj, err := openProject(root, false)
	if err != nil {
		return err
	}
	defer proj.Close()

	srv := toolserver.New(toolserver.Config{
		RootPath:  proj.root,
		Store:     proj.store,
		Retrieval: proj.retrieval,
		Bundles:   proj.bundles,
	})

	return srv.Serve(cmd.Context())
}
