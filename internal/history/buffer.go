package history

import "github.com/five82/vane/internal/telemetry"

// DefaultLimit caps the window when no limit is configured.
const DefaultLimit = 1000

// Buffer keeps the most recent readings for one device in arrival order.
// Once full, each append evicts the oldest reading.
//
// Buffer is not safe for concurrent use; the state store guards it.
type Buffer struct {
	ring  []telemetry.Reading
	start int
	count int
}

// New returns an empty buffer holding at most limit readings. A non-positive
// limit uses DefaultLimit.
func New(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Buffer{ring: make([]telemetry.Reading, limit)}
}

// Limit reports the capacity.
func (b *Buffer) Limit() int {
	return len(b.ring)
}

// Len reports how many readings are held.
func (b *Buffer) Len() int {
	return b.count
}

// Replace discards the contents and loads readings, keeping only the last
// Limit entries. It returns how many input readings did not fit.
func (b *Buffer) Replace(readings []telemetry.Reading) int {
	b.Reset()
	dropped := 0
	if len(readings) > len(b.ring) {
		dropped = len(readings) - len(b.ring)
		readings = readings[dropped:]
	}
	for i, r := range readings {
		b.ring[i] = r.Clone()
	}
	b.count = len(readings)
	return dropped
}

// Append adds r as the newest reading and reports how many readings were
// evicted to make room (0 or 1).
func (b *Buffer) Append(r telemetry.Reading) int {
	limit := len(b.ring)
	if b.count < limit {
		b.ring[(b.start+b.count)%limit] = r.Clone()
		b.count++
		return 0
	}
	b.ring[b.start] = r.Clone()
	b.start = (b.start + 1) % limit
	return 1
}

// Reset empties the buffer without changing its limit.
func (b *Buffer) Reset() {
	clear(b.ring)
	b.start = 0
	b.count = 0
}

// Points returns a deep copy of the readings, oldest first.
func (b *Buffer) Points() []telemetry.Reading {
	if b.count == 0 {
		return nil
	}
	limit := len(b.ring)
	out := make([]telemetry.Reading, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.ring[(b.start+i)%limit].Clone()
	}
	return out
}

// Last returns the newest reading.
func (b *Buffer) Last() (telemetry.Reading, bool) {
	if b.count == 0 {
		return telemetry.Reading{}, false
	}
	return b.ring[(b.start+b.count-1)%len(b.ring)].Clone(), true
}
