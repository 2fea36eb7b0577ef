package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/vane/internal/state"
	"github.com/five82/vane/internal/telemetry"
)

// renderHeader renders the status bar: device, link state, range and
// freshness.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth
	snap := m.snapshot

	parts := []string{bg.Render("vane", styles.Logo)}

	if snap.Unreachable() {
		label := "API ERROR"
		if snap.Err != nil {
			label = "API " + classifyConnectionError(snap.Err.Message)
		}
		parts = append(parts,
			bg.Render(label, styles.DangerText),
			bg.Render("Retrying...", styles.WarningText.Bold(true)),
		)
	}

	if snap.Selected != "" {
		device := snap.Selected
		if compact {
			device = truncate(device, 16)
		}
		if n := len(snap.Devices); n > 1 {
			device += fmt.Sprintf(" (%d/%d)", deviceIndex(snap)+1, n)
		}
		parts = append(parts, bg.Pair("Device:", styles.MutedText, device, styles.Text))

		status := ternary(snap.IsOffline(), "offline", "online")
		parts = append(parts, styles.StatusStyle(status).Render(strings.ToUpper(status)))

		conn := snap.Conn.String()
		parts = append(parts, bg.Render("Live", styles.MutedText)+bg.Space()+
			styles.StatusStyle(conn).Render(conn))
	} else if snap.NoDevices() {
		parts = append(parts, bg.Render("No devices", styles.WarningText.Bold(true)))
	}

	rng := snap.Range
	if rng == "" {
		rng = state.DefaultTimeRange
	}
	rangeLabel := rng.Label()
	if compact {
		rangeLabel = string(rng)
	}
	parts = append(parts, bg.Pair("Range:", styles.MutedText, rangeLabel, styles.InfoText))

	if snap.Loading.Any() {
		parts = append(parts, bg.Render("Loading...", styles.FaintText))
	}

	if ts := formatUpdated(snap.LastUpdated, m.now()); ts != "" {
		parts = append(parts, bg.Pair("Updated", styles.MutedText, ts, styles.MutedText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// renderCommandBar renders the key hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	if len(m.snapshot.Devices) > 1 {
		commands = append(commands, cmd{"d/D", "Device"})
	}
	commands = append(commands,
		cmd{"1/2/3", "Range"},
		cmd{"r", "Reload"},
		cmd{"s", ternary(m.simulating, "Simulating...", "Simulate")},
	)
	if m.snapshot.Err != nil {
		commands = append(commands, cmd{"x", "Dismiss"})
	}
	commands = append(commands, cmd{"?", "More"})

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderErrorBanner shows the surfaced error, if any.
func (m Model) renderErrorBanner() string {
	surfaced := m.snapshot.Err
	if surfaced == nil {
		return ""
	}
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	bg := NewBgStyle(m.theme.SurfaceAlt)

	limit := maxInt(m.width-16, 20)
	text := truncate(surfaced.Text(), limit)
	content := bg.Render("!", styles.DangerText) + bg.Space() +
		bg.Render(text, styles.DangerText) + bg.Spaces(2) +
		bg.Render("x", styles.AccentText) + bg.Sep(":") + bg.Render("Dismiss", styles.MutedText)

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.SurfaceAlt)).
		Padding(0, 1).
		Width(m.width).
		Render(content)
}

// deviceIndex returns the position of the selected device in the directory.
func deviceIndex(snap state.Snapshot) int {
	for i, d := range snap.Devices {
		if d.DeviceID == snap.Selected {
			return i
		}
	}
	return 0
}

// lastSeen describes when the selected device last reported.
func lastSeen(d telemetry.Device) string {
	t := d.ParsedLastSeen()
	if t.IsZero() {
		return d.LastSeen
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
