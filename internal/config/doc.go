// Package config loads the dashboard's TOML configuration.
//
// # Resolution
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/vane/config.toml
//  3. If the file doesn't exist, use built-in defaults
//  4. Blank or missing fields keep their defaults
//
// # TOML Format
//
//	api_base = "http://127.0.0.1:5000/api/v1"
//	poll_interval = "30s"
//	reconnect_delay = "5s"
//	request_timeout = "5s"
//	history_limit = 1000
//	stream_transport = "sse"      # or "websocket"
//	monotonic_latest = true
//	simulate_device = "esp32-001"
//	simulate_count = 20
//	metrics_bind = ""             # e.g. "127.0.0.1:9464" to serve /metrics
//
//	[logging]
//	level = "info"
//	format = "json"               # or "text"
//	file = "~/.local/state/vane/vane.log"
//	max_size_mb = 10
//	max_backups = 3
//
//	[logging.loki]
//	enabled = false
//	url = "http://localhost:3100/loki/api/v1/push"
//	labels = { app = "vane" }
//
// Durations use Go syntax ("1500ms", "2m"). Invalid values fail the load with
// a "parse config" error rather than silently falling back. Tilde paths are
// expanded to the home directory.
package config
