// Package ui renders the vane dashboard as a Bubble Tea terminal program.
//
// The model never talks to the network itself. A one-second tick pulls a
// state.Snapshot from the store, and key presses become Actions calls that
// run as tea.Cmd functions off the UI goroutine. When an action finishes the
// model pulls a fresh snapshot instead of waiting for the next tick.
//
// Layout, top to bottom:
//
//   - header: device, online/offline badge, live link state, range, last update
//   - command bar: key hints and the active theme
//   - error banner: the surfaced error, dismissable with x
//   - cards: power output with level and P = V × I, then seven channel cards
//   - history: one sparkline per channel in electrical, mechanical and
//     environment groups
//
// With an empty directory the body is replaced by a short explanation and a
// curl example for the ingest endpoint.
//
// Numbers are formatted with shopspring/decimal: three places, six below
// 0.01, two for power.
package ui
