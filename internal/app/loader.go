package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/vane/internal/metrics"
	"github.com/five82/vane/internal/state"
	"github.com/five82/vane/internal/telemetry"
)

// Loader fetches the latest value and history window for a device and hands
// the results to the store, tagged with what they were requested for.
type Loader struct {
	fetcher telemetry.Fetcher
	store   *state.Store
	limit   int
	now     func() time.Time
	logger  zerolog.Logger
	metrics metrics.Collector
}

// LoadLatest fetches the most recent reading for deviceID.
func (l *Loader) LoadLatest(ctx context.Context, deviceID string) {
	l.store.SetLoading(state.LoadingLatest, true)
	reading, offline, err := l.fetcher.FetchLatest(ctx, deviceID)
	if err != nil {
		l.metrics.IncFetchFailure("latest")
		l.logger.Warn().Err(err).Str("device_id", deviceID).Msg("latest fetch failed")
	}
	if !l.store.ApplyLatest(deviceID, reading, offline, err) && err == nil {
		l.logger.Debug().Str("device_id", deviceID).Str("timestamp", reading.Timestamp).Msg("latest result dropped")
	}
}

// LoadHistory fetches the window for rng, ending now.
func (l *Loader) LoadHistory(ctx context.Context, deviceID string, rng state.TimeRange) {
	l.store.SetLoading(state.LoadingHistory, true)
	from, to := rng.Bounds(l.now())
	readings, err := l.fetcher.FetchHistory(ctx, telemetry.HistoryQuery{
		DeviceID: deviceID,
		From:     from,
		To:       to,
		Limit:    l.limit,
	})
	if err != nil {
		l.metrics.IncFetchFailure("history")
		l.logger.Warn().Err(err).Str("device_id", deviceID).Str("range", string(rng)).Msg("history fetch failed")
	}
	applied, dropped := l.store.ApplyHistory(deviceID, rng, readings, err)
	if applied {
		l.logger.Debug().
			Str("device_id", deviceID).
			Str("range", string(rng)).
			Int("points", len(readings)).
			Int("dropped", dropped).
			Msg("history loaded")
	}
}

// LoadAll issues both fetches concurrently and waits for them.
func (l *Loader) LoadAll(ctx context.Context, deviceID string, rng state.TimeRange) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		l.LoadLatest(ctx, deviceID)
	}()
	go func() {
		defer wg.Done()
		l.LoadHistory(ctx, deviceID, rng)
	}()
	wg.Wait()
}
