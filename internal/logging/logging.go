// Package logging builds the application logger. The terminal belongs to the
// dashboard, so records go to a rotating file and optionally to Loki.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/five82/vane/internal/config"
)

// Setup creates a zerolog logger according to the provided configuration.
// The returned cleanup flushes and closes every sink.
func Setup(cfg config.LoggingConfig) (zerolog.Logger, func(), error) {
	var out io.Writer = io.Discard
	var closers []func()

	if path := strings.TrimSpace(cfg.File); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("create log dir: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		out = rotator
		closers = append(closers, func() { _ = rotator.Close() })
	}

	logger, cleanup, err := build(cfg, out)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return zerolog.Logger{}, nil, err
	}
	return logger, func() {
		cleanup()
		for _, c := range closers {
			c()
		}
	}, nil
}

func build(cfg config.LoggingConfig, out io.Writer) (zerolog.Logger, func(), error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	primary := out
	if strings.EqualFold(cfg.Format, "text") {
		primary = zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339}
	}

	writers := []io.Writer{primary}
	cleanup := func() {}

	if cfg.Loki.Enabled {
		lokiWriter, closer, err := newLokiWriter(cfg.Loki)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, lokiWriter)
		cleanup = closer
	}

	multi := zerolog.MultiLevelWriter(writers...)
	logger := zerolog.New(multi).With().Timestamp().Str("app", "vane").Logger().Level(level)
	return logger, cleanup, nil
}

// Component returns a child logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func newLokiWriter(cfg config.LokiConfig) (io.Writer, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("loki url is required")
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create loki client: %w", err)
	}

	writer := &lokiWriter{client: client, labels: labelSet(cfg.Labels)}
	cleanup := func() {
		client.Stop()
	}
	return writer, cleanup, nil
}

func labelSet(labels map[string]string) model.LabelSet {
	set := model.LabelSet{}
	for k, v := range labels {
		set[model.LabelName(k)] = model.LabelValue(v)
	}
	if len(set) == 0 {
		set["app"] = "vane"
	}
	return set
}

type lokiWriter struct {
	client *loki.Client
	labels model.LabelSet
}

func (l *lokiWriter) Write(p []byte) (int, error) {
	entry := strings.TrimSpace(string(p))
	if entry == "" {
		return len(p), nil
	}
	err := l.client.Handle(l.labels, time.Now(), entry)
	return len(p), err
}
