package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// writeIfAbsent writes content to path unless a file is already there,
// mirroring the "don't clobber user edits" discipline
// config.WriteDefaultIgnoreManifest already follows for .codewellignore.
func writeIfAbsent(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// outFile returns cmd's stdout as an *os.File when it hasn't been
// redirected, so style.IsTTY can inspect it; tests that swap in a
// bytes.Buffer correctly see a non-terminal.
func outFile(cmd *cobra.Command) io.Writer {
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		return f
	}
	return nil
}
