package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"strand.sh/cli/internal/core/domain"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// installDoneMsg carries the finished run back into the Bubble Tea loop.
type installDoneMsg struct {
	report domain.InstallReport
	err    error
}

// spinnerTickMsg advances the spinner animation.
type spinnerTickMsg time.Time

// spinnerModel shows run-level progress while the install is in flight. It
// deliberately knows nothing about individual plugins: the orchestrator only
// reports once everything has finished.
type spinnerModel struct {
	run    func() (domain.InstallReport, error)
	count  int
	frame  int
	done   bool
	report domain.InstallReport
	err    error
}

func newSpinnerModel(run func() (domain.InstallReport, error), count int) spinnerModel {
	return spinnerModel{run: run, count: count}
}

// Init starts the install in the background and the animation ticker.
func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.runCmd())
}

// Update implements the Bubble Tea update method.
func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case installDoneMsg:
		m.done = true
		m.report = msg.report
		m.err = msg.err
		return m, tea.Quit

	case spinnerTickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, m.tickCmd()
	}

	return m, nil
}

// View implements the Bubble Tea view method.
func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	frame := lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Render(spinnerFrames[m.frame])
	noun := "plugins"
	if m.count == 1 {
		noun = "plugin"
	}
	return fmt.Sprintf("%s Installing %d %s...\n", frame, m.count, noun)
}

func (m spinnerModel) tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}

func (m spinnerModel) runCmd() tea.Cmd {
	return func() tea.Msg {
		report, err := m.run()
		return installDoneMsg{report: report, err: err}
	}
}

// runWithSpinner runs the install behind an animated spinner. If the
// terminal cannot host the program it falls back to running plainly.
func runWithSpinner(run func() (domain.InstallReport, error), count int) (domain.InstallReport, error) {
	program := tea.NewProgram(newSpinnerModel(run, count))

	final, err := program.Run()
	if err != nil {
		return run()
	}

	model := final.(spinnerModel)
	return model.report, model.err
}
