package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/vane/internal/history"
	"github.com/five82/vane/internal/telemetry"
)

// ErrorKind names the source of a surfaced error.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	DirectoryFetchFailed
	SnapshotFetchFailed
	HistoryFetchFailed
	StreamError
	SimulateFailed
)

func (k ErrorKind) String() string {
	switch k {
	case DirectoryFetchFailed:
		return "Failed to load devices"
	case SnapshotFetchFailed:
		return "Failed to load latest data"
	case HistoryFetchFailed:
		return "Failed to load history"
	case StreamError:
		return "Live stream disconnected, reconnecting"
	case SimulateFailed:
		return "Failed to generate data"
	default:
		return ""
	}
}

// SurfacedError is the single error shown to the user.
type SurfacedError struct {
	Kind    ErrorKind
	Message string
	At      time.Time
}

// Text renders the error for display.
func (e SurfacedError) Text() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// LoadingFlag identifies an in-flight fetch.
type LoadingFlag int

const (
	LoadingDirectory LoadingFlag = iota
	LoadingLatest
	LoadingHistory
)

// Loading reports which fetches are in flight.
type Loading struct {
	Directory bool
	Latest    bool
	History   bool
}

// Any reports whether any fetch is in flight.
func (l Loading) Any() bool {
	return l.Directory || l.Latest || l.History
}

// LatestValue is the most recent reading for the selected device.
type LatestValue struct {
	Reading telemetry.Reading
	Offline bool
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Devices         []telemetry.Device
	DirectoryLoaded bool
	Selected        string
	Range           TimeRange
	Latest          *LatestValue
	History         []telemetry.Reading
	HistoryLimit    int
	LastUpdated     time.Time
	Conn            telemetry.ConnState
	Err             *SurfacedError
	Loading         Loading

	// Number of consecutive failed directory polls.
	ConsecutiveFailures int
}

// NoDevices reports whether the backend answered with an empty directory.
func (s Snapshot) NoDevices() bool {
	return s.DirectoryLoaded && len(s.Devices) == 0
}

// SelectedDevice returns the registry entry of the selected device.
func (s Snapshot) SelectedDevice() (telemetry.Device, bool) {
	for _, d := range s.Devices {
		if d.DeviceID == s.Selected {
			return d, true
		}
	}
	return telemetry.Device{}, false
}

// IsOffline reports whether the latest value or the registry marks the
// selected device offline.
func (s Snapshot) IsOffline() bool {
	if s.Latest != nil && s.Latest.Offline {
		return true
	}
	d, ok := s.SelectedDevice()
	return ok && d.Offline
}

// Unreachable reports that the API has failed multiple directory polls in a row.
func (s Snapshot) Unreachable() bool {
	return s.ConsecutiveFailures >= 2
}

// Value returns the latest value of a channel, or nil.
func (s Snapshot) Value(ch telemetry.Channel) *float64 {
	if s.Latest == nil {
		return nil
	}
	return s.Latest.Reading.Get(ch)
}

// Options configures a Store.
type Options struct {
	// HistoryLimit caps the history window. Zero means history.DefaultLimit.
	HistoryLimit int
	// MonotonicLatest drops snapshot results older than the current value.
	MonotonicLatest bool
	// Now overrides the clock used for timestamps.
	Now func() time.Time
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu sync.RWMutex

	monotonic      bool
	now            func() time.Time
	defaultApplied bool

	devices         []telemetry.Device
	directoryLoaded bool
	failures        int
	selected        string
	rng             TimeRange
	latest          *LatestValue
	window          *history.Buffer
	lastUpdated     time.Time
	conn            telemetry.ConnState
	err             *SurfacedError
	loading         Loading
}

// NewStore returns an empty store using the default time range.
func NewStore(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		monotonic: opts.MonotonicLatest,
		now:       now,
		rng:       DefaultTimeRange,
		window:    history.New(opts.HistoryLimit),
	}
}

// ApplyDirectory records the outcome of a directory poll. On success the
// registry is replaced, and the first device is selected if nothing has been
// selected yet. It returns the selection and whether it changed.
func (s *Store) ApplyDirectory(devices []telemetry.Device, err error) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading.Directory = false
	if err != nil {
		s.failures++
		s.setErrorLocked(DirectoryFetchFailed, err)
		return s.selected, false
	}

	s.failures = 0
	s.devices = cloneDevices(devices)
	s.directoryLoaded = true
	s.clearErrorLocked(DirectoryFetchFailed)

	if !s.defaultApplied && s.selected == "" && len(s.devices) > 0 {
		s.defaultApplied = true
		s.selectLocked(s.devices[0].DeviceID)
		return s.selected, true
	}
	return s.selected, false
}

// Select changes the selected device. Re-selecting the current device is a
// no-op and returns false. Switching drops the previous device's latest value
// and history.
func (s *Store) Select(deviceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deviceID == s.selected {
		return false
	}
	s.defaultApplied = true
	s.selectLocked(deviceID)
	return true
}

func (s *Store) selectLocked(deviceID string) {
	s.selected = deviceID
	s.latest = nil
	s.window.Reset()
	s.lastUpdated = time.Time{}
	s.loading.Latest = false
	s.loading.History = false
}

// Selected returns the selected device id.
func (s *Store) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SetTimeRange changes the history preset and reports whether it changed.
func (s *Store) SetTimeRange(r TimeRange) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r = normalizeRange(r)
	if r == s.rng {
		return false
	}
	s.rng = r
	return true
}

// TimeRange returns the selected history preset.
func (s *Store) TimeRange() TimeRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rng
}

// ApplyLatest records a latest-value fetch for deviceID. Results for a device
// that is no longer selected are ignored. It reports whether the value was
// stored.
func (s *Store) ApplyLatest(deviceID string, reading telemetry.Reading, offline bool, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deviceID != s.selected || deviceID == "" {
		return false
	}
	s.loading.Latest = false
	if err != nil {
		s.setErrorLocked(SnapshotFetchFailed, err)
		return false
	}
	s.clearErrorLocked(SnapshotFetchFailed)

	if s.monotonic && s.latest != nil {
		current := s.latest.Reading.ParsedTime()
		incoming := reading.ParsedTime()
		if !current.IsZero() && !incoming.IsZero() && current.After(incoming) {
			return false
		}
	}
	s.latest = &LatestValue{Reading: reading.Clone(), Offline: offline}
	s.lastUpdated = s.now()
	return true
}

// ApplyHistory records a history fetch issued for deviceID and rng. Results
// for a stale device or range are ignored. On success the window is replaced
// wholesale; the second return value counts readings beyond the limit.
func (s *Store) ApplyHistory(deviceID string, rng TimeRange, readings []telemetry.Reading, err error) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deviceID != s.selected || deviceID == "" || normalizeRange(rng) != s.rng {
		return false, 0
	}
	s.loading.History = false
	if err != nil {
		s.setErrorLocked(HistoryFetchFailed, err)
		return false, 0
	}
	s.clearErrorLocked(HistoryFetchFailed)
	return true, s.window.Replace(readings)
}

// ApplyStream applies a decoded push message. A connection acknowledgement
// only clears a stream error. Telemetry for the selected device replaces the
// latest value and extends the window; anything else is discarded. It
// reports whether telemetry was applied and how many readings were evicted.
func (s *Store) ApplyStream(msg telemetry.StreamMessage) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Kind == telemetry.MessageConnected {
		s.clearErrorLocked(StreamError)
		return false, 0
	}
	if s.selected == "" || msg.DeviceID != s.selected {
		return false, 0
	}
	reading := msg.Reading.Clone()
	s.latest = &LatestValue{Reading: reading}
	s.lastUpdated = s.now()
	return true, s.window.Append(reading)
}

// SetConnection records the push channel state. A non-nil err surfaces a
// stream error; reaching Open clears it.
func (s *Store) SetConnection(conn telemetry.ConnState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conn = conn
	if err != nil {
		s.setErrorLocked(StreamError, err)
		return
	}
	if conn == telemetry.ConnOpen {
		s.clearErrorLocked(StreamError)
	}
}

// ApplySimulate records the outcome of a simulate request.
func (s *Store) ApplySimulate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.setErrorLocked(SimulateFailed, err)
		return
	}
	s.clearErrorLocked(SimulateFailed)
}

// SetLoading marks a fetch as in flight or finished.
func (s *Store) SetLoading(flag LoadingFlag, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch flag {
	case LoadingDirectory:
		s.loading.Directory = on
	case LoadingLatest:
		s.loading.Latest = on
	case LoadingHistory:
		s.loading.History = on
	}
}

// DismissError clears the surfaced error regardless of its source.
func (s *Store) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Devices:             cloneDevices(s.devices),
		DirectoryLoaded:     s.directoryLoaded,
		Selected:            s.selected,
		Range:               s.rng,
		History:             s.window.Points(),
		HistoryLimit:        s.window.Limit(),
		LastUpdated:         s.lastUpdated,
		Conn:                s.conn,
		Loading:             s.loading,
		ConsecutiveFailures: s.failures,
	}
	if s.latest != nil {
		latest := LatestValue{Reading: s.latest.Reading.Clone(), Offline: s.latest.Offline}
		snap.Latest = &latest
	}
	if s.err != nil {
		e := *s.err
		snap.Err = &e
	}
	return snap
}

func (s *Store) setErrorLocked(kind ErrorKind, err error) {
	s.err = &SurfacedError{
		Kind:    kind,
		Message: fmt.Sprint(err),
		At:      s.now(),
	}
}

// clearErrorLocked drops the surfaced error only if kind raised it.
func (s *Store) clearErrorLocked(kind ErrorKind) {
	if s.err != nil && s.err.Kind == kind {
		s.err = nil
	}
}

func cloneDevices(devices []telemetry.Device) []telemetry.Device {
	if len(devices) == 0 {
		return nil
	}
	dup := make([]telemetry.Device, len(devices))
	copy(dup, devices)
	return dup
}
