// Package telemetry provides the client side of the turbine telemetry API.
//
// # Overview
//
// The backend exposes a small JSON API plus a long-lived push channel. This
// package covers both halves:
//
//   - client.go: request/response endpoints (devices, latest, history, simulate)
//   - stream.go: push channel dialer interface and the text/event-stream transport
//   - websocket.go: the same push channel carried over WebSocket
//   - types.go: wire types mirroring the API schema
//
// # Endpoints
//
// All paths are relative to the configured API root (default
// http://127.0.0.1:5000/api/v1):
//
//	GET  devices                                   → {"devices": [Device...]}
//	GET  latest?device_id=X                        → LatestResponse
//	GET  history?device_id=X&from=T1&to=T2&limit=N → {"history": [Reading...]}
//	POST dev/simulate {device_id, count}           → 201
//	GET  stream?device_id=X                        → push channel
//
// from and to are epoch milliseconds.
//
// # Latest Value Shape
//
// The latest endpoint may nest channel values under "data" or return them at
// the top level. LatestResponse.Reading resolves each channel independently:
// a non-null nested value wins, otherwise the top-level value is used. This
// is a precedence rule, not a merge of the two objects.
//
// # Push Channel
//
// Each payload is a JSON object, either an acknowledgement
//
//	{"type": "connected", "device_id": "esp32-001"}
//
// or a telemetry object carrying device_id, timestamp and channel values.
// ParseStreamMessage classifies payloads and wraps decoding failures in
// ErrMalformedMessage. A channel value that is not a JSON number decodes as
// nil, the same as an omitted channel.
//
// StreamDialer.Dial returns only after the server has confirmed the channel
// (2xx with an event-stream body, or a completed WebSocket handshake).
// Reconnect policy is not handled here; see package stream.
//
// # Error Handling
//
// Errors are wrapped with fmt.Errorf. Non-2xx responses carry the backend's
// {"error": "..."} message when present:
//
//   - "execute request: dial tcp: connection refused"
//   - "api /api/v1/latest returned status 404: No data found for device"
//   - "decode response: unexpected end of JSON input"
//
// # Thread Safety
//
// Client and both dialers are safe for concurrent use. A StreamConn is read
// by one goroutine; Close may be called from any goroutine.
package telemetry
