package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/vane/internal/logging"
	"github.com/five82/vane/internal/metrics"
	"github.com/five82/vane/internal/state"
	"github.com/five82/vane/internal/telemetry"
)

const defaultSimulateReloadDelay = 500 * time.Millisecond

// Streamer keeps a push channel open for one device. *stream.Subscriber
// implements it.
type Streamer interface {
	Open(deviceID string)
	Close()
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Fetcher      telemetry.Fetcher
	Store        *state.Store
	Streamer     Streamer
	HistoryLimit int
	PollInterval time.Duration
	// SimulateReloadDelay is the wait before snapshots are reloaded after a
	// simulate request. Zero uses 500ms.
	SimulateReloadDelay time.Duration
	Now                 func() time.Time
	Logger              zerolog.Logger
	Metrics             metrics.Collector
}

// Controller ties the directory poller, snapshot loader and stream
// subscriber to the store. Its methods block on network I/O and are meant
// to be called off the UI goroutine.
type Controller struct {
	fetcher      telemetry.Fetcher
	store        *state.Store
	streamer     Streamer
	loader       *Loader
	pollInterval time.Duration
	reloadDelay  time.Duration
	logger       zerolog.Logger
	pollerLog    zerolog.Logger
	metrics      metrics.Collector

	// selectMu serializes selection changes so the store's selection and
	// the open stream always name the same device.
	selectMu sync.Mutex

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	pollerDone  <-chan struct{}
	reloadTimer *time.Timer
	closed      bool
}

// NewController wires the data sources around store.
func NewController(opts ControllerOptions) *Controller {
	collector := opts.Metrics
	if collector == nil {
		collector = metrics.Noop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	delay := opts.SimulateReloadDelay
	if delay <= 0 {
		delay = defaultSimulateReloadDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		fetcher:  opts.Fetcher,
		store:    opts.Store,
		streamer: opts.Streamer,
		loader: &Loader{
			fetcher: opts.Fetcher,
			store:   opts.Store,
			limit:   opts.HistoryLimit,
			now:     now,
			logger:  logging.Component(opts.Logger, "loader"),
			metrics: collector,
		},
		pollInterval: opts.PollInterval,
		reloadDelay:  delay,
		logger:       logging.Component(opts.Logger, "controller"),
		pollerLog:    logging.Component(opts.Logger, "poller"),
		metrics:      collector,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the directory poller. It returns immediately; the poller
// stops when ctx is cancelled or Close is called.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.pollerDone != nil {
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-c.ctx.Done():
			cancel()
		case <-pollCtx.Done():
		}
	}()
	c.pollerDone = StartPoller(pollCtx, c, c.pollInterval)
}

// RefreshDirectory fetches the device list once. If this poll applies the
// default selection, the stream and snapshots follow it.
func (c *Controller) RefreshDirectory(ctx context.Context) {
	c.store.SetLoading(state.LoadingDirectory, true)
	devices, err := c.fetcher.FetchDevices(ctx)
	if err != nil {
		c.metrics.IncFetchFailure("devices")
		c.pollerLog.Warn().Err(err).Msg("directory fetch failed")
	}
	c.selectMu.Lock()
	selected, changed := c.store.ApplyDirectory(devices, err)
	if changed {
		c.streamer.Open(selected)
	}
	c.selectMu.Unlock()

	if changed {
		c.logger.Info().Str("device_id", selected).Msg("selected default device")
		c.load(ctx, selected)
	}
}

// Select switches to deviceID. Selecting the current device does nothing.
func (c *Controller) Select(ctx context.Context, deviceID string) {
	c.selectMu.Lock()
	if !c.store.Select(deviceID) {
		c.selectMu.Unlock()
		return
	}
	c.streamer.Open(deviceID)
	c.selectMu.Unlock()

	c.logger.Info().Str("device_id", deviceID).Msg("device selected")
	c.load(ctx, deviceID)
}

// load fetches latest and history for deviceID. Results that arrive after
// another selection are dropped by the store.
func (c *Controller) load(ctx context.Context, deviceID string) {
	if deviceID == "" {
		return
	}
	c.loader.LoadAll(ctx, deviceID, c.store.TimeRange())
}

// SetTimeRange changes the history preset and reloads history only.
func (c *Controller) SetTimeRange(ctx context.Context, rng state.TimeRange) {
	if !c.store.SetTimeRange(rng) {
		return
	}
	deviceID := c.store.Selected()
	if deviceID == "" {
		return
	}
	c.loader.LoadHistory(ctx, deviceID, c.store.TimeRange())
}

// Reload re-issues the latest and history fetches for the selected device.
func (c *Controller) Reload(ctx context.Context) {
	deviceID := c.store.Selected()
	if deviceID == "" {
		return
	}
	c.loader.LoadAll(ctx, deviceID, c.store.TimeRange())
}

// Simulate asks the backend to generate count readings for deviceID, then
// refreshes the directory and reloads snapshots shortly after.
func (c *Controller) Simulate(ctx context.Context, deviceID string, count int) error {
	err := c.fetcher.Simulate(ctx, telemetry.SimulateRequest{DeviceID: deviceID, Count: count})
	c.store.ApplySimulate(err)
	if err != nil {
		c.metrics.IncFetchFailure("simulate")
		c.logger.Warn().Err(err).Str("device_id", deviceID).Msg("simulate failed")
		return err
	}
	c.logger.Info().Str("device_id", deviceID).Int("count", count).Msg("simulated readings")

	c.RefreshDirectory(ctx)
	c.scheduleReload()
	return nil
}

func (c *Controller) scheduleReload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.reloadTimer != nil {
		c.reloadTimer.Stop()
	}
	ctx := c.ctx
	c.reloadTimer = time.AfterFunc(c.reloadDelay, func() {
		c.Reload(ctx)
	})
}

// DismissError clears the surfaced error.
func (c *Controller) DismissError() {
	c.store.DismissError()
}

// Close stops the poller, any pending reload and the stream. Safe to call
// more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	if c.reloadTimer != nil {
		c.reloadTimer.Stop()
	}
	done := c.pollerDone
	c.mu.Unlock()

	if done != nil {
		<-done
	}
	c.streamer.Close()
}
