package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/vane/internal/state"
	"github.com/five82/vane/internal/telemetry"
)

func fval(v float64) *float64 { return &v }

type fakeFetcher struct {
	mu          sync.Mutex
	devices     []telemetry.Device
	devicesErr  error
	latest      map[string]telemetry.Reading
	latestErr   error
	history     map[string][]telemetry.Reading
	simulateErr error

	deviceCalls  int
	latestCalls  []string
	historyCalls []telemetry.HistoryQuery
	simulated    []telemetry.SimulateRequest
}

func (f *fakeFetcher) FetchDevices(ctx context.Context) ([]telemetry.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deviceCalls++
	return append([]telemetry.Device(nil), f.devices...), f.devicesErr
}

func (f *fakeFetcher) FetchLatest(ctx context.Context, deviceID string) (telemetry.Reading, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestCalls = append(f.latestCalls, deviceID)
	if f.latestErr != nil {
		return telemetry.Reading{}, false, f.latestErr
	}
	return f.latest[deviceID], false, nil
}

func (f *fakeFetcher) FetchHistory(ctx context.Context, q telemetry.HistoryQuery) ([]telemetry.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls = append(f.historyCalls, q)
	return f.history[q.DeviceID], nil
}

func (f *fakeFetcher) Simulate(ctx context.Context, req telemetry.SimulateRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulated = append(f.simulated, req)
	return f.simulateErr
}

func (f *fakeFetcher) counts() (devices, latest, history int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deviceCalls, len(f.latestCalls), len(f.historyCalls)
}

type fakeStreamer struct {
	mu     sync.Mutex
	opened []string
	closed int

	// hold, when set, runs before Open records the device.
	hold func(deviceID string)
}

func (s *fakeStreamer) Open(deviceID string) {
	if s.hold != nil {
		s.hold(deviceID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, deviceID)
}

func (s *fakeStreamer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
}

func (s *fakeStreamer) opens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.opened...)
}

var testNow = time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)

func newTestController(t *testing.T, f *fakeFetcher) (*Controller, *state.Store, *fakeStreamer) {
	t.Helper()
	store := state.NewStore(state.Options{HistoryLimit: 1000, MonotonicLatest: true})
	streamer := &fakeStreamer{}
	c := NewController(ControllerOptions{
		Fetcher:             f,
		Store:               store,
		Streamer:            streamer,
		HistoryLimit:        1000,
		PollInterval:        time.Hour,
		SimulateReloadDelay: 20 * time.Millisecond,
		Now:                 func() time.Time { return testNow },
		Logger:              zerolog.Nop(),
	})
	t.Cleanup(c.Close)
	return c, store, streamer
}

func TestController_EmptyDirectoryDoesNothingElse(t *testing.T) {
	f := &fakeFetcher{devices: []telemetry.Device{}}
	c, store, streamer := newTestController(t, f)

	c.RefreshDirectory(context.Background())

	snap := store.Snapshot()
	assert.True(t, snap.NoDevices())
	assert.Empty(t, snap.Selected)
	_, latest, history := f.counts()
	assert.Zero(t, latest)
	assert.Zero(t, history)
	assert.Empty(t, streamer.opens())

	c.Reload(context.Background())
	_, latest, _ = f.counts()
	assert.Zero(t, latest, "reload without a selection must not fetch")
}

func TestController_DefaultSelectionOpensStreamAndLoads(t *testing.T) {
	f := &fakeFetcher{
		devices: []telemetry.Device{{DeviceID: "esp32-001"}, {DeviceID: "esp32-002"}},
		latest: map[string]telemetry.Reading{
			"esp32-001": {DeviceID: "esp32-001", Timestamp: "2025-01-02T11:59:00", Channels: telemetry.Channels{PowerW: fval(14.76)}},
		},
		history: map[string][]telemetry.Reading{
			"esp32-001": {{Timestamp: "2025-01-02T11:00:00"}, {Timestamp: "2025-01-02T11:30:00"}},
		},
	}
	c, store, streamer := newTestController(t, f)

	c.RefreshDirectory(context.Background())
	c.RefreshDirectory(context.Background())

	assert.Equal(t, []string{"esp32-001"}, streamer.opens(), "later polls must not reopen")
	snap := store.Snapshot()
	assert.Equal(t, "esp32-001", snap.Selected)
	require.NotNil(t, snap.Latest)
	assert.Equal(t, 14.76, *snap.Value(telemetry.ChannelPower))
	assert.Len(t, snap.History, 2)

	f.mu.Lock()
	q := f.historyCalls[0]
	f.mu.Unlock()
	assert.Equal(t, 1000, q.Limit)
	assert.Equal(t, testNow, q.To)
	assert.Equal(t, time.Hour, q.To.Sub(q.From))
}

func TestController_HistoryThenPushGivesFourPoints(t *testing.T) {
	f := &fakeFetcher{
		devices: []telemetry.Device{{DeviceID: "esp32-001"}},
		history: map[string][]telemetry.Reading{
			"esp32-001": {
				{Timestamp: "2025-01-02T11:00:00"},
				{Timestamp: "2025-01-02T11:00:01"},
				{Timestamp: "2025-01-02T11:00:02"},
			},
		},
	}
	c, store, _ := newTestController(t, f)
	c.RefreshDirectory(context.Background())

	store.ApplyStream(telemetry.StreamMessage{
		Kind:     telemetry.MessageTelemetry,
		DeviceID: "esp32-001",
		Reading:  telemetry.Reading{DeviceID: "esp32-001", Timestamp: "2025-01-02T11:00:03"},
	})

	hist := store.Snapshot().History
	require.Len(t, hist, 4)
	assert.Equal(t, "2025-01-02T11:00:03", hist[3].Timestamp)
}

func TestController_DirectoryFailureSurfacesAndKeepsRegistry(t *testing.T) {
	f := &fakeFetcher{devices: []telemetry.Device{{DeviceID: "esp32-001"}}}
	c, store, _ := newTestController(t, f)
	c.RefreshDirectory(context.Background())

	f.mu.Lock()
	f.devicesErr = errors.New("connection refused")
	f.mu.Unlock()
	c.RefreshDirectory(context.Background())

	snap := store.Snapshot()
	require.NotNil(t, snap.Err)
	assert.Equal(t, state.DirectoryFetchFailed, snap.Err.Kind)
	assert.Len(t, snap.Devices, 1)
	assert.Equal(t, "esp32-001", snap.Selected)
}

func TestController_LatestFailureSurfaces(t *testing.T) {
	f := &fakeFetcher{
		devices:   []telemetry.Device{{DeviceID: "esp32-001"}},
		latestErr: errors.New("api /api/v1/latest returned status 404: No data found for device"),
	}
	c, store, _ := newTestController(t, f)
	c.RefreshDirectory(context.Background())

	snap := store.Snapshot()
	require.NotNil(t, snap.Err)
	assert.Equal(t, state.SnapshotFetchFailed, snap.Err.Kind)
	assert.Nil(t, snap.Latest)
}

func TestController_SelectSwitchesDevice(t *testing.T) {
	f := &fakeFetcher{devices: []telemetry.Device{{DeviceID: "esp32-001"}, {DeviceID: "esp32-002"}}}
	c, store, streamer := newTestController(t, f)
	c.RefreshDirectory(context.Background())

	c.Select(context.Background(), "esp32-001")
	assert.Equal(t, []string{"esp32-001"}, streamer.opens(), "re-selecting must not reopen")

	c.Select(context.Background(), "esp32-002")
	assert.Equal(t, []string{"esp32-001", "esp32-002"}, streamer.opens())
	assert.Equal(t, "esp32-002", store.Snapshot().Selected)

	f.mu.Lock()
	last := f.latestCalls[len(f.latestCalls)-1]
	f.mu.Unlock()
	assert.Equal(t, "esp32-002", last)
}

func TestController_ConcurrentSelectsKeepStreamOnSelectedDevice(t *testing.T) {
	f := &fakeFetcher{devices: []telemetry.Device{{DeviceID: "esp32-001"}, {DeviceID: "esp32-002"}}}
	c, store, streamer := newTestController(t, f)

	entered := make(chan struct{})
	release := make(chan struct{})
	streamer.hold = func(deviceID string) {
		if deviceID == "esp32-001" {
			close(entered)
			<-release
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.Select(context.Background(), "esp32-001")
	}()
	<-entered
	go func() {
		defer wg.Done()
		c.Select(context.Background(), "esp32-002")
	}()

	// Give the second selection time to run ahead if nothing stops it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	opens := streamer.opens()
	require.NotEmpty(t, opens)
	assert.Equal(t, "esp32-002", store.Selected())
	assert.Equal(t, store.Selected(), opens[len(opens)-1], "last opened stream must match the selection")
	assert.Equal(t, []string{"esp32-001", "esp32-002"}, opens)
}

func TestController_SetTimeRangeReloadsHistoryOnly(t *testing.T) {
	f := &fakeFetcher{devices: []telemetry.Device{{DeviceID: "esp32-001"}}}
	c, _, _ := newTestController(t, f)
	c.RefreshDirectory(context.Background())
	_, latestBefore, historyBefore := f.counts()

	c.SetTimeRange(context.Background(), state.Range5m)
	c.SetTimeRange(context.Background(), state.Range5m)

	_, latest, history := f.counts()
	assert.Equal(t, latestBefore, latest)
	assert.Equal(t, historyBefore+1, history)

	f.mu.Lock()
	q := f.historyCalls[len(f.historyCalls)-1]
	f.mu.Unlock()
	assert.Equal(t, 5*time.Minute, q.To.Sub(q.From))
}

func TestController_SimulateRefreshesThenReloads(t *testing.T) {
	f := &fakeFetcher{devices: []telemetry.Device{{DeviceID: "esp32-001"}}}
	c, store, _ := newTestController(t, f)
	c.RefreshDirectory(context.Background())
	devicesBefore, latestBefore, _ := f.counts()

	require.NoError(t, c.Simulate(context.Background(), "esp32-001", 20))

	f.mu.Lock()
	req := f.simulated[0]
	f.mu.Unlock()
	assert.Equal(t, telemetry.SimulateRequest{DeviceID: "esp32-001", Count: 20}, req)

	devices, _, _ := f.counts()
	assert.Equal(t, devicesBefore+1, devices)
	require.Eventually(t, func() bool {
		_, latest, _ := f.counts()
		return latest == latestBefore+1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Nil(t, store.Snapshot().Err)
}

func TestController_SimulateFailureSurfaces(t *testing.T) {
	f := &fakeFetcher{devices: []telemetry.Device{}, simulateErr: errors.New("api /api/v1/dev/simulate returned status 500")}
	c, store, _ := newTestController(t, f)

	err := c.Simulate(context.Background(), "esp32-001", 20)
	require.Error(t, err)
	snap := store.Snapshot()
	require.NotNil(t, snap.Err)
	assert.Equal(t, state.SimulateFailed, snap.Err.Kind)

	devices, _, _ := f.counts()
	assert.Zero(t, devices, "no refresh after a failed simulate")

	c.DismissError()
	assert.Nil(t, store.Snapshot().Err)
}

func TestController_StartPollsAndCloseStops(t *testing.T) {
	f := &fakeFetcher{devices: []telemetry.Device{}}
	store := state.NewStore(state.Options{})
	streamer := &fakeStreamer{}
	c := NewController(ControllerOptions{
		Fetcher:      f,
		Store:        store,
		Streamer:     streamer,
		PollInterval: 10 * time.Millisecond,
		Logger:       zerolog.Nop(),
	})

	c.Start(context.Background())
	require.Eventually(t, func() bool {
		devices, _, _ := f.counts()
		return devices >= 3
	}, 2*time.Second, 5*time.Millisecond)

	c.Close()
	c.Close()
	stopped, _, _ := f.counts()
	time.Sleep(50 * time.Millisecond)
	after, _, _ := f.counts()
	assert.Equal(t, stopped, after, "poller kept running after Close")

	streamer.mu.Lock()
	defer streamer.mu.Unlock()
	assert.Equal(t, 1, streamer.closed)
}
