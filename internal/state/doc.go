// Package state provides the thread-safe store shared by the data sources and
// the dashboard.
//
// # Overview
//
// Three producers feed the store: the directory poller, the snapshot loader
// and the stream subscriber. The UI reads it through Snapshot on its own
// refresh tick.
//
//	Producers:                        Consumer (UI):
//	┌──────────────────────┐         ┌──────────────────┐
//	│ ApplyDirectory()     │         │                  │
//	│ ApplyLatest()        │         │                  │
//	│ ApplyHistory()       │────────→│ store.Snapshot() │
//	│ ApplyStream()        │ (mutex) │        ↓         │
//	│ SetConnection()      │         │    render UI     │
//	└──────────────────────┘         └──────────────────┘
//
// # Selection
//
// The first successful non-empty directory poll selects the first device,
// once. Later polls never override the selection. Switching to a different
// device drops the previous device's latest value and history so readings
// are never shown under the wrong device. Re-selecting the current device
// changes nothing.
//
// # Staleness
//
// Fetch results carry the device (and, for history, the time range) they
// were issued for. Results that no longer match the selection are dropped.
// With Options.MonotonicLatest set, a latest-value fetch that is older than
// the value already held is also dropped; push messages always apply.
//
// # Errors
//
// At most one error is surfaced at a time and a new one replaces the old.
// An error is cleared by DismissError, by the next success of the source
// that raised it, or, for StreamError, by the channel reopening:
//
//	store.ApplyLatest(id, reading, false, err)   → Err{SnapshotFetchFailed}
//	store.ApplyDirectory(devices, nil)           → Err unchanged
//	store.ApplyLatest(id, reading, false, nil)   → Err cleared
//
// # History Window
//
// The window is a history.Buffer capped at Options.HistoryLimit. History
// fetches replace it; pushes append and evict the oldest reading.
//
// Snapshot returns deep copies; callers may keep or mutate them freely.
package state
