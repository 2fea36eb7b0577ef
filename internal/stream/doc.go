// Package stream keeps a push channel open for the selected device.
//
// A Subscriber is a small state machine:
//
//	Idle ──Open(id)──→ Connecting ──Opened──→ Open
//	                       ↑                    │
//	                  TimerFired             Errored
//	                       │                    ↓
//	                       └────────────── Closed (retry armed)
//
// Close, or Open with a different device, tears down from any state back to
// Idle. Open with the device that is already subscribed does nothing.
//
// Every transition is applied under one mutex by dispatch, so events from
// the channel goroutine, the reconnect timer and the caller never
// interleave. Each connection attempt carries a generation number; events
// from an earlier attempt are dropped. Reconnect timers carry a sequence
// number for the same reason, which keeps at most one retry pending.
//
// Retries are unbounded and use a fixed delay (5s by default).
package stream
