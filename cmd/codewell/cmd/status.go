package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codewell/codewell/internal/style"
)

// newStatusCmd creates the status command: a read-only summary of what's
// indexed, styled the way the teacher's own status command is (lime
// palette when attached to a terminal, plain text otherwise).
func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a summary of the project's index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := resolveProjectRoot("")
			if err != nil {
				return err
			}
			proj, err := openProject(root, false)
			if err != nil {
				return err
			}
			defer proj.Close()
			return runStatus(cmd, proj)
		},
	}
	return cmd
}

func runStatus(cmd *cobra.Command, proj *project) error {
	ctx := cmd.Context()
	styles := style.Detect(outFile(cmd))
	out := cmd.OutOrStdout()

	chunks, err := proj.store.AllChunks(ctx)
	if err != nil {
		return err
	}
	embedded, err := proj.store.CountEmbeddings(ctx)
	if err != nil {
		return err
	}
	bundles, err := proj.bundles.List(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, styles.Header.Render(proj.root))
	fmt.Fprintf(out, "%s %d\n", styles.Label.Render("chunks:"), len(chunks))
	fmt.Fprintf(out, "%s %d/%d\n", styles.Label.Render("embedded:"), embedded, len(chunks))
	fmt.Fprintf(out, "%s %d\n", styles.Label.Render("bundles:"), len(bundles))

	for _, b := range bundles {
		line := fmt.Sprintf("  %s (%d files)", b.Name, b.FileCount)
		if b.Dirty {
			fmt.Fprintln(out, styles.Warning.Render(line+" dirty"))
		} else {
			fmt.Fprintln(out, styles.Dim.Render(line))
		}
	}
	return nil
}
