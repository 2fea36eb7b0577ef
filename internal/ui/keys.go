package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the dashboard.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding

	// Device
	NextDevice key.Binding
	PrevDevice key.Binding

	// Time range
	Range5m  key.Binding
	Range1h  key.Binding
	Range24h key.Binding

	// Actions
	Reload   key.Binding
	Simulate key.Binding
	Dismiss  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),

		NextDevice: key.NewBinding(
			key.WithKeys("d", "tab"),
			key.WithHelp("d", "Next device"),
		),
		PrevDevice: key.NewBinding(
			key.WithKeys("D", "shift+tab"),
			key.WithHelp("D", "Previous device"),
		),

		Range5m: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Last 5 minutes"),
		),
		Range1h: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Last hour"),
		),
		Range24h: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Last 24 hours"),
		),

		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reload"),
		),
		Simulate: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Simulate data"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x", "esc"),
			key.WithHelp("x", "Dismiss error"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextDevice, k.PrevDevice},
		{k.Range5m, k.Range1h, k.Range24h},
		{k.Reload, k.Simulate, k.Dismiss},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
