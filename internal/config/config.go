package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the dashboard settings.
type Config struct {
	APIBase         string
	PollInterval    time.Duration
	ReconnectDelay  time.Duration
	RequestTimeout  time.Duration
	HistoryLimit    int
	StreamTransport string
	MonotonicLatest bool
	SimulateDevice  string
	SimulateCount   int
	MetricsBind     string
	Logging         LoggingConfig
}

// LoggingConfig controls the application log.
type LoggingConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	Loki       LokiConfig
}

// LokiConfig configures the optional Loki sink.
type LokiConfig struct {
	Enabled bool
	URL     string
	Labels  map[string]string
}

const (
	defaultConfigPath      = "~/.config/vane/config.toml"
	defaultAPIBase         = "http://127.0.0.1:5000/api/v1"
	defaultPollInterval    = 30 * time.Second
	defaultReconnectDelay  = 5 * time.Second
	defaultRequestTimeout  = 5 * time.Second
	defaultHistoryLimit    = 1000
	defaultStreamTransport = "sse"
	defaultSimulateDevice  = "esp32-001"
	defaultSimulateCount   = 20
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultLogFile         = "~/.local/state/vane/vane.log"
	defaultLogMaxSizeMB    = 10
	defaultLogMaxBackups   = 3
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIBase:         defaultAPIBase,
		PollInterval:    defaultPollInterval,
		ReconnectDelay:  defaultReconnectDelay,
		RequestTimeout:  defaultRequestTimeout,
		HistoryLimit:    defaultHistoryLimit,
		StreamTransport: defaultStreamTransport,
		MonotonicLatest: true,
		SimulateDevice:  defaultSimulateDevice,
		SimulateCount:   defaultSimulateCount,
		Logging: LoggingConfig{
			Level:      defaultLogLevel,
			Format:     defaultLogFormat,
			File:       mustExpand(defaultLogFile),
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
	}
}

// DefaultPath returns the expanded default config location.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

type rawConfig struct {
	APIBase         string     `toml:"api_base"`
	PollInterval    string     `toml:"poll_interval"`
	ReconnectDelay  string     `toml:"reconnect_delay"`
	RequestTimeout  string     `toml:"request_timeout"`
	HistoryLimit    int        `toml:"history_limit"`
	StreamTransport string     `toml:"stream_transport"`
	MonotonicLatest *bool      `toml:"monotonic_latest"`
	SimulateDevice  string     `toml:"simulate_device"`
	SimulateCount   int        `toml:"simulate_count"`
	MetricsBind     string     `toml:"metrics_bind"`
	Logging         rawLogging `toml:"logging"`
}

type rawLogging struct {
	Level      string  `toml:"level"`
	Format     string  `toml:"format"`
	File       string  `toml:"file"`
	MaxSizeMB  int     `toml:"max_size_mb"`
	MaxBackups int     `toml:"max_backups"`
	Loki       rawLoki `toml:"loki"`
}

type rawLoki struct {
	Enabled bool              `toml:"enabled"`
	URL     string            `toml:"url"`
	Labels  map[string]string `toml:"labels"`
}

// Load reads the config at path (or the default location), falling back to
// defaults when the file is missing or a field is blank.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := raw.apply(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (raw rawConfig) apply(cfg *Config) error {
	if v := strings.TrimSpace(raw.APIBase); v != "" {
		cfg.APIBase = v
	}

	durations := []struct {
		key   string
		value string
		dest  *time.Duration
	}{
		{"poll_interval", raw.PollInterval, &cfg.PollInterval},
		{"reconnect_delay", raw.ReconnectDelay, &cfg.ReconnectDelay},
		{"request_timeout", raw.RequestTimeout, &cfg.RequestTimeout},
	}
	for _, d := range durations {
		if err := parseDuration(d.key, d.value, d.dest); err != nil {
			return err
		}
	}

	if raw.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must be positive, got %d", raw.HistoryLimit)
	}
	if raw.HistoryLimit > 0 {
		cfg.HistoryLimit = raw.HistoryLimit
	}

	switch transport := strings.ToLower(strings.TrimSpace(raw.StreamTransport)); transport {
	case "":
	case "sse", "websocket":
		cfg.StreamTransport = transport
	default:
		return fmt.Errorf("stream_transport must be sse or websocket, got %q", raw.StreamTransport)
	}

	if raw.MonotonicLatest != nil {
		cfg.MonotonicLatest = *raw.MonotonicLatest
	}
	if v := strings.TrimSpace(raw.SimulateDevice); v != "" {
		cfg.SimulateDevice = v
	}
	if raw.SimulateCount > 0 {
		cfg.SimulateCount = raw.SimulateCount
	}
	cfg.MetricsBind = strings.TrimSpace(raw.MetricsBind)

	return raw.Logging.apply(&cfg.Logging)
}

func (raw rawLogging) apply(cfg *LoggingConfig) error {
	if v := strings.TrimSpace(raw.Level); v != "" {
		cfg.Level = strings.ToLower(v)
	}
	switch format := strings.ToLower(strings.TrimSpace(raw.Format)); format {
	case "":
	case "json", "text":
		cfg.Format = format
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", raw.Format)
	}
	if v := strings.TrimSpace(raw.File); v != "" {
		expanded, err := expandPath(v)
		if err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
		cfg.File = expanded
	}
	if raw.MaxSizeMB > 0 {
		cfg.MaxSizeMB = raw.MaxSizeMB
	}
	if raw.MaxBackups > 0 {
		cfg.MaxBackups = raw.MaxBackups
	}

	cfg.Loki.Enabled = raw.Loki.Enabled
	cfg.Loki.URL = strings.TrimSpace(raw.Loki.URL)
	if len(raw.Loki.Labels) > 0 {
		cfg.Loki.Labels = make(map[string]string, len(raw.Loki.Labels))
		for k, v := range raw.Loki.Labels {
			cfg.Loki.Labels[k] = v
		}
	}
	if cfg.Loki.Enabled && cfg.Loki.URL == "" {
		return fmt.Errorf("logging.loki.url is required when loki is enabled")
	}
	return nil
}

func parseDuration(key, value string, dest *time.Duration) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", key, value)
	}
	*dest = d
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
