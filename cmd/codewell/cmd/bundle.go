package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newBundleCmd creates the bundle command: `bundle` alone lists every
// manual and non-empty smart bundle (spec §4.H), `bundle <name>`
// materializes one bundle's artifact to stdout.
func newBundleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle [name]",
		Short: "List or materialize bundles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveProjectRoot("")
			if err != nil {
				return err
			}
			proj, err := openProject(root, len(args) == 1)
			if err != nil {
				return err
			}
			defer proj.Close()

			if len(args) == 0 {
				return runBundleList(cmd, proj)
			}
			return runBundleMaterialize(cmd, proj, args[0])
		},
	}
	return cmd
}

func runBundleList(cmd *cobra.Command, proj *project) error {
	ctx := cmd.Context()
	summaries, err := proj.bundles.List(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, s := range summaries {
		dirty := ""
		if s.Dirty {
			dirty = " (dirty)"
		}
		fmt.Fprintf(out, "%s\t%d files%s\n", s.Name, s.FileCount, dirty)
	}
	return nil
}

// runBundleMaterialize rescans the project before materializing so a
// single-shot `bundle <name>` run reflects the latest on-disk state even
// when no `watch` process is keeping the index current.
func runBundleMaterialize(cmd *cobra.Command, proj *project, name string) error {
	ctx := cmd.Context()
	if err := proj.orch.InitialScan(ctx); err != nil {
		return fmt.Errorf("bundle: rescan: %w", err)
	}
	if err := proj.orch.FillMissingEmbeddings(ctx); err != nil {
		return fmt.Errorf("bundle: embedding fill: %w", err)
	}
	data, err := proj.bundles.Materialize(ctx, name)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
