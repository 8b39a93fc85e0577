package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"strand.sh/cli/internal/core/domain"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	reasonStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	summaryStyle = lipgloss.NewStyle().Bold(true)
)

// renderReport turns the aggregated outcomes into the human-readable run
// summary. Outcomes arrive in completion order, so they are sorted by name
// for display.
func renderReport(report domain.InstallReport) string {
	outcomes := make([]domain.InstallOutcome, len(report.Outcomes))
	copy(outcomes, report.Outcomes)
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].TargetName < outcomes[j].TargetName
	})

	var b strings.Builder
	for _, o := range outcomes {
		if o.Failed() {
			b.WriteString(fmt.Sprintf("%s %s %s\n",
				failureStyle.Render("✗"),
				o.TargetName,
				reasonStyle.Render(fmt.Sprintf("(%s)", o.Reason))))
		} else {
			b.WriteString(fmt.Sprintf("%s %s\n", successStyle.Render("✓"), o.TargetName))
		}
	}

	b.WriteString(summaryStyle.Render(fmt.Sprintf("Installed %d/%d plugins", report.Succeeded(), len(outcomes))))
	b.WriteString("\n")

	return b.String()
}
