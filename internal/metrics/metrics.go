// Package metrics exposes client-side counters for the telemetry dashboard.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Collector receives events from the data sources. Calls happen inline on
// the stream and fetch paths and must not block.
type Collector interface {
	IncStreamReconnect()
	IncStreamMessage(kind string)
	AddHistoryEvicted(count int)
	IncFetchFailure(source string)
}

// Message kinds reported to IncStreamMessage.
const (
	KindTelemetry = "telemetry"
	KindConnected = "connected"
	KindDiscarded = "discarded"
	KindMalformed = "malformed"
)

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncStreamReconnect()    {}
func (noopCollector) IncStreamMessage(string) {}
func (noopCollector) AddHistoryEvicted(int)   {}
func (noopCollector) IncFetchFailure(string)  {}

// PrometheusCollector exposes the counters via Prometheus.
type PrometheusCollector struct {
	reconnects    prometheus.Counter
	messages      *prometheus.CounterVec
	evicted       prometheus.Counter
	fetchFailures *prometheus.CounterVec
}

// NewPrometheusCollector registers the counters with reg, reusing counters
// that are already registered. A nil reg uses the default registerer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	reconnects, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vane_stream_reconnects_total",
		Help: "Number of push channel reconnect attempts.",
	}))
	if err != nil {
		return nil, err
	}
	messages, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vane_stream_messages_total",
		Help: "Push channel payloads received, by kind.",
	}, []string{"kind"}))
	if err != nil {
		return nil, err
	}
	evicted, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vane_history_evicted_total",
		Help: "Readings evicted from the history window.",
	}))
	if err != nil {
		return nil, err
	}
	failures, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vane_fetch_failures_total",
		Help: "Failed API requests, by source.",
	}, []string{"source"}))
	if err != nil {
		return nil, err
	}

	return &PrometheusCollector{
		reconnects:    reconnects,
		messages:      messages,
		evicted:       evicted,
		fetchFailures: failures,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

func (p *PrometheusCollector) IncStreamReconnect() {
	if p == nil {
		return
	}
	p.reconnects.Inc()
}

func (p *PrometheusCollector) IncStreamMessage(kind string) {
	if p == nil {
		return
	}
	p.messages.WithLabelValues(kind).Inc()
}

func (p *PrometheusCollector) AddHistoryEvicted(count int) {
	if p == nil || count <= 0 {
		return
	}
	p.evicted.Add(float64(count))
}

func (p *PrometheusCollector) IncFetchFailure(source string) {
	if p == nil {
		return
	}
	p.fetchFailures.WithLabelValues(source).Inc()
}

// Serve exposes gatherer on bind at /metrics until ctx is cancelled.
func Serve(ctx context.Context, bind string, gatherer prometheus.Gatherer, logger zerolog.Logger) error {
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("listen metrics: %w", err)
	}
	return serve(ctx, ln, gatherer, logger)
}

func serve(ctx context.Context, ln net.Listener, gatherer prometheus.Gatherer, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", ln.Addr().String()).Msg("metrics endpoint listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}
