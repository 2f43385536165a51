package mqtt

import (
	"github.com/rs/zerolog/log"

	"github.com/sweeney/binwatch/internal/eventlog"
)

// DefaultBufferSize is the number of events kept while offline.
const DefaultBufferSize = 100

// eventBuffer holds events appended while the broker is unreachable so they
// can be replayed in order on reconnect. When full, the oldest entry is
// overwritten. Not safe for concurrent use; RealPublisher guards it with its
// mutex.
type eventBuffer struct {
	entries []eventlog.Entry
	head    int // next write position
	count   int
	dropped int // overwritten since the last take
}

func newEventBuffer(capacity int) *eventBuffer {
	if capacity < 1 {
		capacity = DefaultBufferSize
	}
	return &eventBuffer{entries: make([]eventlog.Entry, capacity)}
}

func (b *eventBuffer) add(e eventlog.Entry) {
	if b.count == len(b.entries) {
		if b.dropped == 0 {
			log.Warn().Int("capacity", len(b.entries)).Msg("mqtt event buffer full, dropping oldest")
		}
		b.dropped++
	} else {
		b.count++
	}
	b.entries[b.head] = e
	b.head = (b.head + 1) % len(b.entries)
}

// take empties the buffer, returning its entries oldest first and the number
// of entries lost to overflow.
func (b *eventBuffer) take() ([]eventlog.Entry, int) {
	dropped := b.dropped
	b.dropped = 0
	if b.count == 0 {
		return nil, dropped
	}

	n := len(b.entries)
	out := make([]eventlog.Entry, 0, b.count)
	for i := (b.head - b.count + n) % n; len(out) < b.count; i = (i + 1) % n {
		out = append(out, b.entries[i])
	}
	b.head, b.count = 0, 0
	return out, dropped
}

func (b *eventBuffer) len() int {
	return b.count
}
