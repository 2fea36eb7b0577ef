// Package app provides the orchestration layer for the vane dashboard.
//
// # Overview
//
// This package wires configuration, logging, metrics, the telemetry client,
// the stream subscriber, the state store and the UI together. It is the
// composition root; nothing below it knows about the others.
//
// # Components
//
//   - app.go: Run, the composition root
//   - controller.go: Controller, the operations the UI triggers
//   - loader.go: Loader, latest-value and history fetches
//   - poller.go: StartPoller, the fixed-cadence directory refresh
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()            Read ~/.config/vane/config.toml
//	       ├─────> logging.Setup()          Rotating file (+ Loki)
//	       ├─────> telemetry.NewClient()    HTTP client
//	       ├─────> state.NewStore()         Shared state container
//	       ├─────> stream.New()             Push channel subscriber
//	       ├─────> controller.Start()       Launch directory poller
//	       └─────> ui.Run()                 Start TUI (blocks)
//
//	Directory poll (every poll_interval):
//	┌──────────────────────────────────────────────┐
//	│ FetchDevices() → store.ApplyDirectory()      │
//	│   └─ first non-empty list selects device 0:  │
//	│        streamer.Open(id)                     │
//	│        loader.LoadAll(id, range)             │
//	└──────────────────────────────────────────────┘
//
// # Error Handling
//
// No data-source failure stops the dashboard. Failures are logged, counted
// and surfaced through the store as a single dismissible error; the poller
// keeps its cadence and the subscriber keeps retrying.
//
// Run returns an error only for startup problems (invalid config, bad API
// base URL, unusable log path) or a UI failure.
package app
