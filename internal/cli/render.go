package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	service "github.com/okian/riskengine/internal/app"
	"github.com/okian/riskengine/internal/domain/model"
)

// Palette.
var (
	colorAccent  = lipgloss.Color("#20B9B4") //nolint:gochecknoglobals // palette
	colorSuccess = lipgloss.Color("#2CD7C7") //nolint:gochecknoglobals // palette
	colorWarning = lipgloss.Color("#F4D03F") //nolint:gochecknoglobals // palette
	colorError   = lipgloss.Color("#E74C3C") //nolint:gochecknoglobals // palette
	colorMuted   = lipgloss.Color("#5C7A84") //nolint:gochecknoglobals // palette
)

// Styles used by the renderers.
var Styles = struct { //nolint:gochecknoglobals // shared styles
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Bold     lipgloss.Style
	Muted    lipgloss.Style
	Box      lipgloss.Style
	WarnBox  lipgloss.Style

	StatusOK    lipgloss.Style
	StatusWarn  lipgloss.Style
	StatusError lipgloss.Style
}{
	Title:    lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Subtitle: lipgloss.NewStyle().Foreground(colorAccent),
	Bold:     lipgloss.NewStyle().Bold(true),
	Muted:    lipgloss.NewStyle().Foreground(colorMuted),
	Box:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent).Padding(0, 1),
	WarnBox:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorWarning).Padding(0, 1),

	StatusOK:    lipgloss.NewStyle().SetString("✓").Foreground(colorSuccess),
	StatusWarn:  lipgloss.NewStyle().SetString("⚠").Foreground(colorWarning),
	StatusError: lipgloss.NewStyle().SetString("✗").Foreground(colorError),
}

// RenderResult formats an assessment for the terminal.
func RenderResult(res model.RiskAssessmentResult) string {
	var b strings.Builder
	b.WriteString(Styles.Title.Render("Risk Assessment") + "\n")
	b.WriteString(Styles.Muted.Render(fmt.Sprintf("ID: %s  Time: %s", res.AssessmentID, res.Timestamp.Format("2006-01-02 15:04:05 MST"))) + "\n")

	for i, r := range res.Risks {
		var card strings.Builder
		card.WriteString(Styles.Bold.Render(fmt.Sprintf("%d. %s  %s", i+1, r.RiskID, r.RiskTitle)) + "\n")
		if r.RiskDescription != "" {
			card.WriteString(r.RiskDescription + "\n")
		}
		card.WriteString(Styles.Subtitle.Render("Why: ") + r.Explanation)
		if len(r.Controls) > 0 {
			card.WriteString("\n" + Styles.Subtitle.Render("Controls:"))
			for _, c := range r.Controls {
				card.WriteString(fmt.Sprintf("\n  • %s %s", c.ControlID, c.ControlTitle))
			}
		}

		box := Styles.Box
		if r.IsSentinel() {
			box = Styles.WarnBox
		}
		b.WriteString(box.Render(card.String()) + "\n")
	}

	if res.Degraded() {
		b.WriteString(Styles.StatusWarn.String() + " assessment degraded; see explanations above\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderHealth formats dependency status.
func RenderHealth(h service.Health) string {
	line := func(name string, ok bool) string {
		if ok {
			return fmt.Sprintf("%s %s: healthy", Styles.StatusOK.String(), name)
		}
		return fmt.Sprintf("%s %s: unhealthy", Styles.StatusError.String(), name)
	}
	overall := "healthy"
	if !h.Healthy() {
		overall = "degraded"
	}
	return strings.Join([]string{
		Styles.Title.Render("Service status: " + overall),
		line("database_service", h.Database),
		line("llm_service", h.LLM),
	}, "\n")
}

// RenderSummary formats the test command report.
func RenderSummary(rows []Summary) string {
	var b strings.Builder
	b.WriteString(Styles.Title.Render("TEST SUMMARY") + "\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")
	degraded := 0
	for _, r := range rows {
		mark := Styles.StatusOK.String()
		if r.Degraded {
			mark = Styles.StatusWarn.String()
			degraded++
		}
		b.WriteString(fmt.Sprintf("%s %s: %d risks - [%s]\n", mark, r.File, r.Count, strings.Join(r.RiskIDs, ", ")))
	}
	b.WriteString(fmt.Sprintf("\nTotal tests: %d", len(rows)))
	if degraded > 0 {
		b.WriteString(fmt.Sprintf(" (%d degraded)", degraded))
	}
	return b.String()
}
