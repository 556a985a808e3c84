package style

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// StatusFunc reports live progress counts. total == 0 means indeterminate
// (only the spinner advances). done signals RunProgress to exit.
type StatusFunc func() (current, total int, done bool)

// RunProgress starts a bubbletea spinner-and-bar display that polls fn
// every 150ms until it reports done, then returns a function the caller
// must invoke to block until the display has exited cleanly. Intended for
// the `init` command's indexing phase.
//
// Grounded on the teacher's TUIRenderer (internal/ui/tui.go), trimmed from
// a full indexing dashboard to a single bar that polls the store directly
// through fn rather than requiring the orchestrator to emit progress
// events of its own.
func RunProgress(label string, fn StatusFunc) func() {
	m := progressModel{
		label: label,
		fn:    fn,
		bar:   progress.New(progress.WithDefaultGradient()),
		spin:  newSpinner(),
	}
	p := tea.NewProgram(m)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Run()
	}()
	return func() { <-done }
}

func newSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return s
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type progressModel struct {
	label          string
	fn             StatusFunc
	bar            progress.Model
	spin           spinner.Model
	current, total int
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, tick())
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		current, total, done := m.fn()
		m.current, m.total = current, total
		if done {
			return m, tea.Quit
		}
		return m, tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	pct := 0.0
	if m.total > 0 {
		pct = float64(m.current) / float64(m.total)
	}
	return fmt.Sprintf("%s %s  %s  (%d/%d)\n", m.spin.View(), m.label, m.bar.ViewAs(pct), m.current, m.total)
}
