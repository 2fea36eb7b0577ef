package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/vane/internal/state"
)

// renderDashboard renders the value cards followed by the history section.
func (m Model) renderDashboard() string {
	styles := m.theme.Styles()
	sections := []string{m.renderCards(styles)}

	if d, ok := m.snapshot.SelectedDevice(); ok && d.LastSeen != "" {
		sections = append(sections, styles.FaintText.Render("Last seen "+lastSeen(d)))
	}

	sections = append(sections, "", m.renderHistory(styles))
	return strings.Join(sections, "\n")
}

// renderCards lays the power card and channel cards out in rows that fit the
// terminal width.
func (m Model) renderCards(styles Styles) string {
	cards := make([]string, 0, len(metricCards)+1)
	cards = append(cards, m.renderPowerCard(styles))
	for _, spec := range metricCards {
		cards = append(cards, m.renderMetricCard(styles, spec))
	}

	width := maxInt(m.width, CardWidth)
	var rows []string
	var row []string
	used := 0
	for _, card := range cards {
		w := lipgloss.Width(card)
		if len(row) > 0 && used+w > width {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row, used = nil, 0
		}
		row = append(row, card)
		used += w
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderPowerCard(styles Styles) string {
	power := m.snapshot.Value(powerSpec.Channel)
	level := powerLevel(power)

	title := styles.MutedText.Render(powerSpec.Label)
	if power != nil {
		title += " " + styles.StatusStyle(level).Render(level)
	}
	value := styles.ChannelStyle(powerSpec.Channel).Bold(true).Render(formatFixed(power, 2)) +
		" " + styles.MutedText.Render(powerSpec.Unit)

	lines := []string{title, value}
	formula := powerFormula(power,
		m.snapshot.Value(metricCards[0].Channel),
		m.snapshot.Value(metricCards[1].Channel))
	if formula != "" {
		lines = append(lines, styles.FaintText.Render(formula))
	} else {
		lines = append(lines, "")
	}

	border := m.theme.Border
	if level == "high" || level == "low" {
		border = m.theme.StatusColors[level]
	}
	return styles.Card.
		BorderForeground(lipgloss.Color(border)).
		Width(PowerCardWidth - 2).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderMetricCard(styles Styles, spec channelSpec) string {
	v := m.snapshot.Value(spec.Channel)
	valueStyle := styles.ChannelStyle(spec.Channel).Bold(true)
	if v == nil {
		valueStyle = styles.FaintText
	}
	lines := []string{
		styles.MutedText.Render(spec.Label),
		valueStyle.Render(formatMetric(v)) + " " + styles.MutedText.Render(spec.Unit),
		"",
	}
	return styles.Card.Width(CardWidth - 2).Render(strings.Join(lines, "\n"))
}

// renderHistory draws one sparkline per channel, grouped like the cards.
func (m Model) renderHistory(styles Styles) string {
	snap := m.snapshot
	rng := snap.Range
	if rng == "" {
		rng = state.DefaultTimeRange
	}

	var b strings.Builder
	heading := fmt.Sprintf("History · last %s · %d/%d points", rng.Label(), len(snap.History), snap.HistoryLimit)
	b.WriteString(styles.AccentText.Bold(true).Render(heading))
	b.WriteString("\n")

	if len(snap.History) == 0 {
		msg := "No history in the selected time range."
		if snap.Loading.History {
			msg = "Loading history..."
		}
		b.WriteString(styles.MutedText.Render(msg))
		return b.String()
	}

	wide := m.width >= LayoutWideWidth
	annotation := 24
	if !wide {
		annotation = 10
	}
	sparkWidth := maxInt(m.width-SparkLabelWidth-annotation-4, SparkMinWidth)

	for gi, group := range chartGroups {
		b.WriteString(styles.Text.Bold(true).Render(group.Title))
		b.WriteString("\n")
		for _, spec := range group.Series {
			values := series(snap.History, spec.Channel)
			stats := statsOf(values)
			label := padRight(truncate(spec.Label+" ("+spec.Unit+")", SparkLabelWidth-1), SparkLabelWidth)

			b.WriteString(styles.MutedText.Render(label))
			if stats.Count == 0 {
				b.WriteString(styles.FaintText.Render("no data"))
				b.WriteString("\n")
				continue
			}
			b.WriteString(styles.ChannelStyle(spec.Channel).Render(padRight(sparkline(values, sparkWidth), sparkWidth)))
			b.WriteString("  ")
			b.WriteString(styles.Text.Render(formatCompact(stats.Last)))
			if wide {
				b.WriteString(styles.FaintText.Render(
					fmt.Sprintf("  %s–%s", formatCompact(stats.Min), formatCompact(stats.Max))))
			}
			b.WriteString("\n")
		}
		if gi < len(chartGroups)-1 {
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderEmptyState explains how to get data flowing when no device has
// reported yet.
func (m Model) renderEmptyState() string {
	styles := m.theme.Styles()

	device := m.simulateDevice
	if device == "" {
		device = "esp32-001"
	}
	action := "press s to simulate readings for " + device
	if m.simulating {
		action = "simulating readings for " + device + "..."
	}

	lines := []string{
		styles.WarningText.Bold(true).Render("No devices reporting"),
		"",
		styles.Text.Render("No turbine telemetry has been received yet."),
		styles.Text.Render("Send a reading, or " + action + "."),
		"",
		styles.FaintText.Render(ingestCommand(m.apiBase, device)),
		"",
		styles.MutedText.Render("The dashboard refreshes on its own once data arrives."),
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Border)).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))

	return lipgloss.PlaceHorizontal(maxInt(m.width, lipgloss.Width(box)), lipgloss.Center, box)
}

// ingestCommand returns a curl example that posts one reading.
func ingestCommand(apiBase, device string) string {
	if apiBase == "" {
		apiBase = "http://127.0.0.1:5000/api/v1"
	}
	return strings.Join([]string{
		`curl -X POST "` + apiBase + `/ingest" \`,
		`  -H "Content-Type: application/json" \`,
		`  -H "x-api-key: $VANE_API_KEY" \`,
		`  -d '{"device_id": "` + device + `", "voltage_v": 12.34, "current_a": 1.23,`,
		`       "rpm": 3450, "pressure_hpa": 1013.25, "temp_c": 25.6,`,
		`       "humidity_pct": 55.2, "wind_mps": 3.4}'`,
	}, "\n")
}
