package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/medtrackpro/medtrack/internal/tracker"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	cardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			MarginRight(1)
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).
			Foreground(lipgloss.Color("212")).Underline(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	goodStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	lowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("MedTrack Pro"))
	b.WriteString("  ")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch m.active {
	case tabDashboard:
		b.WriteString(m.renderDashboard())
	case tabMedications:
		b.WriteString(m.medsTable.View())
	case tabAnalytics:
		b.WriteString(m.renderAnalytics())
	case tabDrone:
		b.WriteString(m.renderDrone())
	case tabHelp:
		b.WriteString(m.helpView)
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errStyle.Render("error: " + m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("tab: switch  r: refresh  d: dispatch drone  q: quit"))
	return b.String()
}

func (m Model) renderTabs() string {
	parts := make([]string, len(tabNames))
	for i, name := range tabNames {
		if tab(i) == m.active {
			parts[i] = activeTabStyle.Render(name)
		} else {
			parts[i] = tabStyle.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderDashboard() string {
	if m.dashboard == nil {
		return m.spin.View() + " loading..."
	}
	d := m.dashboard

	next := "No scheduled doses"
	if d.NextDose != nil {
		next = fmt.Sprintf("%s %s\nin %dh %02dm",
			d.NextDose.Name, d.NextDose.Dosage, d.NextDose.Hours, d.NextDose.Minutes)
	}

	cards := []string{
		cardStyle.Render("Next dose\n" + next),
		cardStyle.Render("Adherence (7d)\n" + formatAdherence(d.Adherence7d)),
		cardStyle.Render("Adherence (30d)\n" + formatAdherence(d.Adherence30d)),
	}
	top := lipgloss.JoinHorizontal(lipgloss.Top, cards...)

	var inv strings.Builder
	inv.WriteString("Inventory\n")
	for _, card := range d.Inventory {
		inv.WriteString(fmt.Sprintf("%s %-24s %3d pills\n",
			sentimentBadge(card.Sentiment), card.Name, card.Stock))
	}

	var sched strings.Builder
	sched.WriteString("Today\n")
	if len(d.Schedule) == 0 {
		sched.WriteString(dimStyle.Render("nothing scheduled\n"))
	}
	for _, item := range d.Schedule {
		line := fmt.Sprintf("%s  %s", item.At.Format("15:04"), item.Name)
		if item.Past {
			line = dimStyle.Render(line + " (past)")
		}
		sched.WriteString(line + "\n")
	}

	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		cardStyle.Render(inv.String()),
		cardStyle.Render(sched.String()))

	return top + "\n" + bottom
}

func (m Model) renderAnalytics() string {
	if m.adherence == nil {
		return m.spin.View() + " loading..."
	}
	r := m.adherence

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Adherence over %s: %s\n\n", r.Window, formatAdherence(r.Overall)))

	// last 14 daily bars, oldest first
	daily := r.Daily
	if len(daily) > 14 {
		daily = daily[len(daily)-14:]
	}
	for _, day := range daily {
		bar := strings.Repeat("█", int(day.Rate/5))
		b.WriteString(fmt.Sprintf("%s %5.1f%% %s\n",
			day.Date.Format("Jan 02"), day.Rate, goodStyle.Render(bar)))
	}
	return b.String()
}

func (m Model) renderDrone() string {
	if m.dashboard == nil {
		return m.spin.View() + " loading..."
	}
	snap := m.dashboard.Drone

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Status: %s\n", snap.Status))
	if snap.Narrative != "" {
		b.WriteString(snap.Narrative + "\n")
	}

	filled := int(snap.Progress * 30)
	bar := goodStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", 30-filled))
	b.WriteString(fmt.Sprintf("[%s] %3.0f%%\n", bar, snap.Progress*100))
	b.WriteString(fmt.Sprintf("Position: (%.0f, %.0f)\n", snap.Position.X, snap.Position.Y))
	b.WriteString(dimStyle.Render("press d to dispatch a delivery"))
	return b.String()
}

func formatAdherence(a tracker.AdherenceResult) string {
	if !a.HasData {
		return dimStyle.Render("no data")
	}
	style := goodStyle
	if a.Rate < 80 {
		style = warnStyle
	}
	return style.Render(fmt.Sprintf("%.1f%%", a.Rate)) +
		dimStyle.Render(fmt.Sprintf(" (%d/%d)", a.Taken, a.Total))
}

func sentimentBadge(s tracker.StockSentiment) string {
	switch s {
	case tracker.StockGood:
		return goodStyle.Render("●")
	case tracker.StockWarning:
		return warnStyle.Render("●")
	default:
		return lowStyle.Render("●")
	}
}

func medicationRow(med *tracker.Medication) tableRow {
	return tableRow{
		med.Name,
		med.Dosage,
		string(med.Frequency),
		fmt.Sprintf("%d", med.Stock),
		string(tracker.Sentiment(med)),
	}
}

const helpMarkdown = `# MedTrack Pro

A terminal dashboard for the medication tracking API.

## Keys

| Key | Action |
|-----|--------|
| tab / shift+tab | switch view |
| 1-5 | jump to view |
| r | refresh now |
| d | dispatch the delivery drone |
| q | quit |

## Views

- **Dashboard** — next dose countdown, adherence, inventory, today's schedule
- **Medications** — full medication table
- **Analytics** — daily adherence trend
- **Drone** — live delivery progress
`

func renderHelp() string {
	out, err := glamour.Render(helpMarkdown, "dark")
	if err != nil {
		return helpMarkdown
	}
	return out
}
