package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codewell/codewell/configs"
	"github.com/codewell/codewell/internal/config"
	"github.com/codewell/codewell/internal/style"
)

// newInitCmd creates the init command: it lays down the on-disk state a
// project needs (spec §7) and, unless --no-index is given, runs the
// initial scan and embedding fill before returning.
func newInitCmd() *cobra.Command {
	var noIndex bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Initialize codewell for a project",
		Long: `init creates the project's hidden state directory, a starter
.codewellignore, a tool-discovery manifest for AI agents, and a starter
CODEWELL.md, then runs the initial index unless --no-index is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return runInit(cmd.Context(), cmd, path, noIndex)
		},
	}

	cmd.Flags().BoolVar(&noIndex, "no-index", false, "Skip the initial scan and embedding fill")
	return cmd
}

func runInit(ctx context.Context, cmd *cobra.Command, path string, noIndex bool) error {
	root, err := resolveProjectRoot(path)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	styles := style.Detect(outFile(cmd))

	if err := config.EnsureStateDir(root); err != nil {
		return err
	}
	fmt.Fprintln(out, styles.Success.Render("created"), config.StateDir(root))

	if err := config.NewConfig().Save(root); err != nil {
		return err
	}

	if err := config.WriteDefaultIgnoreManifest(root); err != nil {
		return err
	}
	fmt.Fprintln(out, styles.Success.Render("wrote"), config.IgnoreManifestPath(root))

	if err := config.WriteToolManifest(root); err != nil {
		return err
	}
	fmt.Fprintln(out, styles.Success.Render("wrote"), config.ToolManifestPath(root))

	notesPath := filepath.Join(root, "CODEWELL.md")
	if err := writeIfAbsent(notesPath, configs.StarterNotes); err != nil {
		return err
	}

	if noIndex {
		fmt.Fprintln(out, styles.Dim.Render("skipping initial index (--no-index)"))
		return nil
	}

	proj, err := openProject(root, true)
	if err != nil {
		return err
	}
	defer proj.Close()

	if style.IsTTY(outFile(cmd)) {
		wait := style.RunProgress("indexing", func() (current, total int, done bool) {
			return progressSnapshot(ctx, proj)
		})
		err = runIndex(ctx, proj)
		wait()
	} else {
		err = runIndex(ctx, proj)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, styles.Success.Render("index ready"))
	return nil
}

func runIndex(ctx context.Context, proj *project) error {
	if err := proj.orch.InitialScan(ctx); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	if err := proj.orch.FillMissingEmbeddings(ctx); err != nil {
		return fmt.Errorf("embedding fill: %w", err)
	}
	return nil
}

// progressSnapshot reports embedded-vs-total chunk counts for the progress
// bar. Grounded on the orchestrator's own InitialScan/FillMissingEmbeddings
// contract (internal/orchestrator/orchestrator.go), which persists chunks
// before embedding them. It polls store counts directly rather than
// subscribing to the status snapshots the orchestrator publishes on its
// fanout.
func progressSnapshot(ctx context.Context, proj *project) (current, total int, done bool) {
	chunks, err := proj.store.AllChunks(ctx)
	if err != nil {
		return 0, 0, false
	}
	embedded, err := proj.store.CountEmbeddings(ctx)
	if err != nil {
		return 0, len(chunks), false
	}
	return embedded, len(chunks), len(chunks) > 0 && embedded >= len(chunks)
}
