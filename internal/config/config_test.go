package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBase != defaultAPIBase {
		t.Fatalf("APIBase = %q, want %q", cfg.APIBase, defaultAPIBase)
	}
	if cfg.PollInterval != 30*time.Second || cfg.ReconnectDelay != 5*time.Second {
		t.Fatalf("intervals = %s/%s, want 30s/5s", cfg.PollInterval, cfg.ReconnectDelay)
	}
	if cfg.HistoryLimit != 1000 {
		t.Fatalf("HistoryLimit = %d, want 1000", cfg.HistoryLimit)
	}
	if cfg.StreamTransport != "sse" || !cfg.MonotonicLatest {
		t.Fatalf("transport=%q monotonic=%v, want sse/true", cfg.StreamTransport, cfg.MonotonicLatest)
	}
	if cfg.SimulateDevice != "esp32-001" || cfg.SimulateCount != 20 {
		t.Fatalf("simulate = %q x%d, want esp32-001 x20", cfg.SimulateDevice, cfg.SimulateCount)
	}
	if cfg.MetricsBind != "" {
		t.Fatalf("MetricsBind = %q, want empty", cfg.MetricsBind)
	}

	wantLog, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.Logging.File != wantLog {
		t.Fatalf("Logging.File = %q, want %q", cfg.Logging.File, wantLog)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, `
api_base = "  http://10.0.0.5:5000/api/v1  "
poll_interval = "10s"
reconnect_delay = "2s"
request_timeout = "1500ms"
history_limit = 200
stream_transport = " WebSocket "
monotonic_latest = false
simulate_device = "esp32-009"
simulate_count = 5
metrics_bind = "127.0.0.1:9464"

[logging]
level = "DEBUG"
format = "text"
file = "~/logs/vane.log"
max_size_mb = 50
max_backups = 7

[logging.loki]
enabled = true
url = "http://loki:3100/loki/api/v1/push"
labels = { app = "vane", site = "roof" }
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBase != "http://10.0.0.5:5000/api/v1" {
		t.Fatalf("APIBase = %q", cfg.APIBase)
	}
	if cfg.PollInterval != 10*time.Second || cfg.ReconnectDelay != 2*time.Second || cfg.RequestTimeout != 1500*time.Millisecond {
		t.Fatalf("durations = %s/%s/%s", cfg.PollInterval, cfg.ReconnectDelay, cfg.RequestTimeout)
	}
	if cfg.HistoryLimit != 200 || cfg.StreamTransport != "websocket" || cfg.MonotonicLatest {
		t.Fatalf("limit=%d transport=%q monotonic=%v", cfg.HistoryLimit, cfg.StreamTransport, cfg.MonotonicLatest)
	}
	if cfg.SimulateDevice != "esp32-009" || cfg.SimulateCount != 5 || cfg.MetricsBind != "127.0.0.1:9464" {
		t.Fatalf("simulate=%q x%d metrics=%q", cfg.SimulateDevice, cfg.SimulateCount, cfg.MetricsBind)
	}

	lg := cfg.Logging
	if lg.Level != "debug" || lg.Format != "text" || lg.MaxSizeMB != 50 || lg.MaxBackups != 7 {
		t.Fatalf("logging = %#v", lg)
	}
	if !strings.HasPrefix(lg.File, home) {
		t.Fatalf("Logging.File = %q, want it under HOME %q", lg.File, home)
	}
	if !lg.Loki.Enabled || lg.Loki.URL != "http://loki:3100/loki/api/v1/push" || lg.Loki.Labels["site"] != "roof" {
		t.Fatalf("loki = %#v", lg.Loki)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := writeConfig(t, `
api_base = "   "
poll_interval = ""
stream_transport = ""
simulate_device = " "
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBase != defaultAPIBase || cfg.PollInterval != defaultPollInterval {
		t.Fatalf("cfg = %#v, want defaults", cfg)
	}
	if cfg.StreamTransport != "sse" || cfg.SimulateDevice != defaultSimulateDevice {
		t.Fatalf("cfg = %#v, want defaults", cfg)
	}
	if !cfg.MonotonicLatest {
		t.Fatalf("MonotonicLatest = false, want default true when unset")
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	_, err := Load(writeConfig(t, `api_base = [`))
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cases := map[string]string{
		"bad duration":      `poll_interval = "soon"`,
		"negative duration": `reconnect_delay = "-5s"`,
		"negative limit":    `history_limit = -1`,
		"unknown transport": `stream_transport = "mqtt"`,
		"unknown format":    "[logging]\nformat = \"xml\"",
		"loki without url":  "[logging.loki]\nenabled = true",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("Load returned nil error for %q", body)
			}
		})
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestDefaultPath_UnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got := DefaultPath()
	if !strings.HasPrefix(got, home) || !strings.HasSuffix(got, filepath.FromSlash("vane/config.toml")) {
		t.Fatalf("DefaultPath = %q, want ~/.config/vane/config.toml under %q", got, home)
	}
}
