package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/five82/vane/internal/config"
	"github.com/five82/vane/internal/logging"
	"github.com/five82/vane/internal/metrics"
	"github.com/five82/vane/internal/prefs"
	"github.com/five82/vane/internal/state"
	"github.com/five82/vane/internal/stream"
	"github.com/five82/vane/internal/telemetry"
	"github.com/five82/vane/internal/ui"
)

// Options configure the vane application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/vane/prefs.toml
	APIBase    string // overrides api_base when set
	Transport  string // overrides stream_transport when set
	PollEvery  int    // seconds; zero uses the configured interval
}

// Run boots the dashboard until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(&cfg, opts)

	logger, closeLogs, err := logging.Setup(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLogs()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	collector, err := startMetrics(ctx, cfg.MetricsBind, logger)
	if err != nil {
		return err
	}

	client, err := telemetry.NewClient(cfg.APIBase, cfg.RequestTimeout)
	if err != nil {
		return fmt.Errorf("init telemetry client: %w", err)
	}
	dialer, err := telemetry.NewStreamDialer(cfg.StreamTransport, client)
	if err != nil {
		return fmt.Errorf("init stream dialer: %w", err)
	}

	store := state.NewStore(state.Options{
		HistoryLimit:    cfg.HistoryLimit,
		MonotonicLatest: cfg.MonotonicLatest,
	})
	if rng, err := state.ParseTimeRange(userPrefs.TimeRange); err == nil {
		store.SetTimeRange(rng)
	}

	subscriber, err := stream.New(stream.Options{
		Dialer:         dialer,
		Sink:           store,
		ReconnectDelay: cfg.ReconnectDelay,
		Logger:         logger,
		Metrics:        collector,
	})
	if err != nil {
		return fmt.Errorf("init stream: %w", err)
	}

	controller := NewController(ControllerOptions{
		Fetcher:      client,
		Store:        store,
		Streamer:     subscriber,
		HistoryLimit: cfg.HistoryLimit,
		PollInterval: cfg.PollInterval,
		Logger:       logger,
		Metrics:      collector,
	})
	defer func() {
		controller.Close()
		subscriber.Wait()
	}()

	logger.Info().
		Str("api_base", client.BaseURL().String()).
		Str("transport", cfg.StreamTransport).
		Dur("poll_interval", cfg.PollInterval).
		Msg("starting dashboard")

	controller.Start(ctx)

	return ui.Run(ui.Options{
		Context:        ctx,
		Actions:        controller,
		Store:          store,
		APIBase:        client.BaseURL().String(),
		ThemeName:      userPrefs.Theme,
		PrefsPath:      opts.PrefsPath,
		SimulateDevice: cfg.SimulateDevice,
		SimulateCount:  cfg.SimulateCount,
		Logger:         logging.Component(logger, "ui"),
	})
}

func applyOverrides(cfg *config.Config, opts Options) {
	if opts.APIBase != "" {
		cfg.APIBase = opts.APIBase
	}
	if opts.Transport != "" {
		cfg.StreamTransport = opts.Transport
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}
}

// startMetrics serves Prometheus counters when bind is set; otherwise events
// go to a no-op collector.
func startMetrics(ctx context.Context, bind string, logger zerolog.Logger) (metrics.Collector, error) {
	if bind == "" {
		return metrics.Noop(), nil
	}
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewPrometheusCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	metricsLog := logging.Component(logger, "metrics")
	go func() {
		if err := metrics.Serve(ctx, bind, reg, metricsLog); err != nil {
			metricsLog.Error().Err(err).Msg("metrics endpoint stopped")
		}
	}()
	return collector, nil
}
