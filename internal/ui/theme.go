package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/vane/internal/telemetry"
)

// Theme defines colors and styles for the UI.
type Theme struct {
	Name string

	// Base colors
	Background string // Outermost background
	Surface    string // Header and command bar
	SurfaceAlt string // Cards and banners
	FocusBg    string

	// Border colors
	Border      string
	BorderMuted string
	BorderFocus string

	// Text colors
	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// Badge colors keyed by connection state name, online/offline and power level
	StatusColors map[string]string

	// Series colors for cards and sparklines
	ChannelColors map[telemetry.Channel]string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Background: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Background)),

		Surface: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)),

		SurfaceAlt: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SurfaceAlt)).
			Foreground(lipgloss.Color(t.Text)),

		Text: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Text)),

		MutedText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Muted)),

		FaintText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Faint)),

		AccentText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)),

		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Success)).
			Bold(true),

		WarningText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)),

		DangerText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Danger)).
			Bold(true),

		InfoText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Info)),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),

		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),

		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)).
			Padding(0, 1),

		statusColors:  t.StatusColors,
		channelColors: t.ChannelColors,
		background:    t.Background,
		muted:         t.Muted,
	}
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	// Base
	Background lipgloss.Style
	Surface    lipgloss.Style
	SurfaceAlt lipgloss.Style

	// Text
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	// Components
	Header lipgloss.Style
	Logo   lipgloss.Style
	Card   lipgloss.Style

	statusColors  map[string]string
	channelColors map[telemetry.Channel]string
	background    string
	muted         string
}

// StatusStyle returns a badge style for the given status.
func (s Styles) StatusStyle(status string) lipgloss.Style {
	color := s.statusColors[status]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// ChannelStyle returns the foreground style used for a channel's values and
// sparkline.
func (s Styles) ChannelStyle(ch telemetry.Channel) lipgloss.Style {
	color := s.channelColors[ch]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// WithBackground returns a copy of Styles with all text styles having the specified background.
func (s Styles) WithBackground(bgColor string) Styles {
	bg := lipgloss.Color(bgColor)

	return Styles{
		Background: s.Background.Background(bg),
		Surface:    s.Surface.Background(bg),
		SurfaceAlt: s.SurfaceAlt.Background(bg),

		Text:        s.Text.Background(bg),
		MutedText:   s.MutedText.Background(bg),
		FaintText:   s.FaintText.Background(bg),
		AccentText:  s.AccentText.Background(bg),
		SuccessText: s.SuccessText.Background(bg),
		WarningText: s.WarningText.Background(bg),
		DangerText:  s.DangerText.Background(bg),
		InfoText:    s.InfoText.Background(bg),

		Header: s.Header.Background(bg),
		Logo:   s.Logo.Background(bg),
		Card:   s.Card,

		statusColors:  s.statusColors,
		channelColors: s.channelColors,
		background:    s.background,
		muted:         s.muted,
	}
}

var themes = map[string]Theme{
	"Nightfox": nightfoxTheme(),
	"Kanagawa": kanagawaTheme(),
	"Slate":    slateTheme(),
}

var themeOrder = []string{"Nightfox", "Kanagawa", "Slate"}

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return nightfoxTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns available theme names.
func ThemeNames() []string {
	return themeOrder
}

func nightfoxTheme() Theme {
	// Nightfox palette: https://github.com/EdenEast/nightfox.nvim
	return Theme{
		Name: "Nightfox",

		Background: "#131a24", // bg0
		Surface:    "#192330", // bg1
		SurfaceAlt: "#212e3f", // bg2
		FocusBg:    "#29394f", // bg3

		Border:      "#39506d", // bg4
		BorderMuted: "#212e3f", // bg2
		BorderFocus: "#719cd6", // blue

		Text:    "#cdcecf", // fg1
		Muted:   "#738091", // comment
		Faint:   "#71839b", // fg3
		Accent:  "#719cd6", // blue
		Success: "#81b29a", // green
		Warning: "#dbc074", // yellow
		Danger:  "#c94f6d", // red
		Info:    "#63cdcf", // cyan

		StatusColors: map[string]string{
			"idle":       "#738091",
			"connecting": "#dbc074",
			"open":       "#81b29a",
			"closed":     "#c94f6d",
			"online":     "#81b29a",
			"offline":    "#c94f6d",
			"low":        "#63cdcf",
			"normal":     "#81b29a",
			"high":       "#f4a261",
		},

		ChannelColors: map[telemetry.Channel]string{
			telemetry.ChannelPower:    "#dbc074", // yellow
			telemetry.ChannelVoltage:  "#9d79d6", // magenta
			telemetry.ChannelCurrent:  "#81b29a", // green
			telemetry.ChannelRPM:      "#f4a261", // orange
			telemetry.ChannelWind:     "#aeafb0", // fg2
			telemetry.ChannelTemp:     "#63cdcf", // cyan
			telemetry.ChannelHumidity: "#86abdc", // bright blue
			telemetry.ChannelPressure: "#d67ad2", // pink
		},
	}
}

func kanagawaTheme() Theme {
	// Kanagawa palette: https://github.com/rebelot/kanagawa.nvim
	return Theme{
		Name: "Kanagawa",

		Background: "#16161D", // sumiInk0
		Surface:    "#1F1F28", // sumiInk3
		SurfaceAlt: "#2A2A37", // sumiInk4
		FocusBg:    "#2A2A37", // sumiInk4

		Border:      "#54546D", // sumiInk6
		BorderMuted: "#2A2A37", // sumiInk4
		BorderFocus: "#7E9CD8", // crystalBlue

		Text:    "#DCD7BA", // fujiWhite
		Muted:   "#C8C093", // oldWhite
		Faint:   "#727169", // fujiGray
		Accent:  "#7E9CD8", // crystalBlue
		Success: "#98BB6C", // springGreen
		Warning: "#E6C384", // carpYellow
		Danger:  "#E46876", // waveRed
		Info:    "#7FB4CA", // springBlue

		StatusColors: map[string]string{
			"idle":       "#727169",
			"connecting": "#E6C384",
			"open":       "#98BB6C",
			"closed":     "#E46876",
			"online":     "#98BB6C",
			"offline":    "#E46876",
			"low":        "#7FB4CA",
			"normal":     "#98BB6C",
			"high":       "#FFA066",
		},

		ChannelColors: map[telemetry.Channel]string{
			telemetry.ChannelPower:    "#E6C384", // carpYellow
			telemetry.ChannelVoltage:  "#957FB8", // oniViolet
			telemetry.ChannelCurrent:  "#98BB6C", // springGreen
			telemetry.ChannelRPM:      "#FFA066", // surimiOrange
			telemetry.ChannelWind:     "#C8C093", // oldWhite
			telemetry.ChannelTemp:     "#7FB4CA", // springBlue
			telemetry.ChannelHumidity: "#7AA89F", // waveAqua2
			telemetry.ChannelPressure: "#D27E99", // sakuraPink
		},
	}
}

func slateTheme() Theme {
	// Tailwind CSS Slate/Sky palette: https://tailwindcss.com/docs/colors
	return Theme{
		Name: "Slate",

		Background: "#020617", // slate-950
		Surface:    "#0f172a", // slate-900
		SurfaceAlt: "#1e293b", // slate-800
		FocusBg:    "#283548",

		Border:      "#334155", // slate-700
		BorderMuted: "#1e293b", // slate-800
		BorderFocus: "#38bdf8", // sky-400

		Text:    "#f1f5f9", // slate-100
		Muted:   "#94a3b8", // slate-400
		Faint:   "#64748b", // slate-500
		Accent:  "#38bdf8", // sky-400
		Success: "#22c55e", // green-500
		Warning: "#f59e0b", // amber-500
		Danger:  "#ef4444", // red-500
		Info:    "#06b6d4", // cyan-500

		StatusColors: map[string]string{
			"idle":       "#64748b", // slate-500
			"connecting": "#f59e0b", // amber-500
			"open":       "#22c55e", // green-500
			"closed":     "#dc2626", // red-600
			"online":     "#16a34a", // green-600
			"offline":    "#dc2626", // red-600
			"low":        "#0ea5e9", // sky-500
			"normal":     "#22c55e", // green-500
			"high":       "#f97316", // orange-500
		},

		ChannelColors: map[telemetry.Channel]string{
			telemetry.ChannelPower:    "#facc15", // yellow-400
			telemetry.ChannelVoltage:  "#818cf8", // indigo-400
			telemetry.ChannelCurrent:  "#4ade80", // green-400
			telemetry.ChannelRPM:      "#fbbf24", // amber-400
			telemetry.ChannelWind:     "#a3e635", // lime-400
			telemetry.ChannelTemp:     "#22d3ee", // cyan-400
			telemetry.ChannelHumidity: "#2dd4bf", // teal-400
			telemetry.ChannelPressure: "#f87171", // red-400
		},
	}
}
