package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/five82/vane/internal/prefs"
	"github.com/five82/vane/internal/state"
)

// Actions are the user-triggered operations the dashboard can request.
// Calls may block on network I/O and run off the UI goroutine.
type Actions interface {
	RefreshDirectory(ctx context.Context)
	Select(ctx context.Context, deviceID string)
	SetTimeRange(ctx context.Context, rng state.TimeRange)
	Reload(ctx context.Context)
	Simulate(ctx context.Context, deviceID string, count int) error
	DismissError()
}

// SnapshotSource provides copies of the dashboard state.
type SnapshotSource interface {
	Snapshot() state.Snapshot
}

// Options configures the UI.
type Options struct {
	Context        context.Context
	Actions        Actions
	Store          SnapshotSource
	APIBase        string
	RefreshTick    time.Duration
	ThemeName      string
	PrefsPath      string
	SimulateDevice string
	SimulateCount  int
	Logger         zerolog.Logger
	Now            func() time.Time
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx            context.Context
	actions        Actions
	store          SnapshotSource
	apiBase        string
	prefsPath      string
	refreshTick    time.Duration
	simulateDevice string
	simulateCount  int
	logger         zerolog.Logger
	now            func() time.Time
	keys           keyMap

	// UI state
	theme  Theme
	width  int
	height int
	ready  bool

	// Data state
	snapshot state.Snapshot

	// simulating is set while a simulate request is in flight.
	simulating bool

	// Help overlay
	showHelp bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	refreshTick := opts.RefreshTick
	if refreshTick <= 0 {
		refreshTick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = themeOrder[0]
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	simulateCount := opts.SimulateCount
	if simulateCount <= 0 {
		simulateCount = 20
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return Model{
		ctx:            ctx,
		actions:        opts.Actions,
		store:          opts.Store,
		apiBase:        strings.TrimRight(opts.APIBase, "/"),
		prefsPath:      prefsPath,
		refreshTick:    refreshTick,
		simulateDevice: opts.SimulateDevice,
		simulateCount:  simulateCount,
		logger:         opts.Logger,
		now:            now,
		keys:           DefaultKeyMap(),
		theme:          GetTheme(themeName),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.refreshTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		return m, nil

	case actionDoneMsg:
		return m, fetchSnapshotCmd(m.store)

	case simulateDoneMsg:
		m.simulating = false
		if msg.err != nil {
			m.logger.Warn().Err(msg.err).Str("device_id", msg.deviceID).Msg("simulate failed")
		}
		return m, fetchSnapshotCmd(m.store)
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs(m.snapshot.Range)
		return m, nil

	case key.Matches(msg, m.keys.NextDevice):
		return m.cycleDevice(1)

	case key.Matches(msg, m.keys.PrevDevice):
		return m.cycleDevice(-1)

	case key.Matches(msg, m.keys.Range5m):
		return m.setRange(state.Range5m)

	case key.Matches(msg, m.keys.Range1h):
		return m.setRange(state.Range1h)

	case key.Matches(msg, m.keys.Range24h):
		return m.setRange(state.Range24h)

	case key.Matches(msg, m.keys.Reload):
		if m.snapshot.Selected == "" {
			return m, m.actionCmd(func(ctx context.Context) { m.actions.RefreshDirectory(ctx) })
		}
		return m, m.actionCmd(func(ctx context.Context) { m.actions.Reload(ctx) })

	case key.Matches(msg, m.keys.Simulate):
		return m.simulate()

	case key.Matches(msg, m.keys.Dismiss):
		if m.snapshot.Err == nil {
			return m, nil
		}
		m.snapshot.Err = nil
		return m, m.actionCmd(func(context.Context) { m.actions.DismissError() })
	}

	return m, nil
}

// cycleDevice selects the device step positions away in the directory.
func (m Model) cycleDevice(step int) (tea.Model, tea.Cmd) {
	devices := m.snapshot.Devices
	if len(devices) < 2 {
		return m, nil
	}
	idx := 0
	for i, d := range devices {
		if d.DeviceID == m.snapshot.Selected {
			idx = i
			break
		}
	}
	next := devices[(idx+step+len(devices))%len(devices)].DeviceID
	m.snapshot.Selected = next
	m.snapshot.Latest = nil
	m.snapshot.History = nil
	return m, m.actionCmd(func(ctx context.Context) { m.actions.Select(ctx, next) })
}

func (m Model) setRange(rng state.TimeRange) (tea.Model, tea.Cmd) {
	if m.snapshot.Range == rng {
		return m, nil
	}
	m.snapshot.Range = rng
	m.savePrefs(rng)
	return m, m.actionCmd(func(ctx context.Context) { m.actions.SetTimeRange(ctx, rng) })
}

func (m Model) simulate() (tea.Model, tea.Cmd) {
	if m.simulating || m.actions == nil {
		return m, nil
	}
	deviceID := m.snapshot.Selected
	if deviceID == "" {
		deviceID = m.simulateDevice
	}
	if deviceID == "" {
		return m, nil
	}
	m.simulating = true
	ctx, actions, count := m.ctx, m.actions, m.simulateCount
	return m, func() tea.Msg {
		return simulateDoneMsg{deviceID: deviceID, err: actions.Simulate(ctx, deviceID, count)}
	}
}

// savePrefs persists the theme and time range. Failures are logged only.
func (m Model) savePrefs(rng state.TimeRange) {
	if m.prefsPath == "" {
		return
	}
	if rng == "" {
		rng = state.DefaultTimeRange
	}
	p := prefs.Prefs{Theme: m.theme.Name, TimeRange: string(rng)}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.Warn().Err(err).Str("path", m.prefsPath).Msg("save preferences failed")
	}
}

// handleTick processes the refresh tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	cmds = append(cmds, tickCmd(m.refreshTick))
	return m, tea.Batch(cmds...)
}

// renderMain renders the full dashboard.
func (m Model) renderMain() string {
	lines := []string{m.renderHeader(), m.renderCommandBar()}
	if banner := m.renderErrorBanner(); banner != "" {
		lines = append(lines, banner)
	}
	lines = append(lines, m.renderContent())
	return strings.Join(lines, "\n")
}

// renderContent picks the body for the current directory state.
func (m Model) renderContent() string {
	switch {
	case m.snapshot.NoDevices():
		return m.renderEmptyState()
	case !m.snapshot.DirectoryLoaded:
		return m.theme.Styles().MutedText.Render("Loading devices...")
	default:
		return m.renderDashboard()
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type actionDoneMsg struct{}

type simulateDoneMsg struct {
	deviceID string
	err      error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store SnapshotSource) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// actionCmd runs fn off the UI goroutine and reports completion.
func (m Model) actionCmd(fn func(ctx context.Context)) tea.Cmd {
	if m.actions == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		fn(ctx)
		return actionDoneMsg{}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	teaOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		teaOpts = append(teaOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, teaOpts...)
	_, err := p.Run()
	if err != nil && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
