// Package style provides terminal output styling for the codewell CLI's
// status and bundle commands. Grounded on the teacher's internal/ui
// package: the same lipgloss palette and go-isatty/NO_COLOR detection,
// trimmed to the subset a thin CLI needs (no TUI renderer, no progress
// tracker — see internal/style/progress.go for the one piece of that kept).
package style

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette mirrors the teacher's asitop-inspired lime green theme
// (internal/ui/styles.go).
const (
	colorLime    = "154"
	colorWhite   = "255"
	colorGray    = "245"
	colorDarkGray = "238"
	colorRed     = "196"
	colorYellow  = "220"
)

// Styles holds the handful of text styles the CLI's status/bundle output
// uses.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Label   lipgloss.Style
}

// Colored returns the lime green palette.
func Colored() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorWhite)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorLime)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
	}
}

// Plain returns unstyled passthrough styles, used when output isn't a
// terminal or NO_COLOR is set.
func Plain() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
	}
}

// Detect returns Colored styles when w is a terminal and NO_COLOR isn't
// set, Plain otherwise.
func Detect(w io.Writer) Styles {
	if NoColor() || !IsTTY(w) {
		return Plain()
	}
	return Colored()
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NoColor reports whether the NO_COLOR environment variable is set, per
// the teacher's ui.DetectNoColor.
func NoColor() bool {
	_, set := os.LookupEnv("NO_COLOR")
	return set
}
