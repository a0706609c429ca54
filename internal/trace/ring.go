package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the most recent events in a fixed circular buffer
// instead of streaming them anywhere. A dump when the run ends shows the
// tail of the trace without the run paying for output along the way.
type RingTracer struct {
	level Level

	mu      sync.RWMutex
	buf     []Event
	next    int
	wrapped bool
}

// NewRingTracer returns a ring holding at most capacity events. Capacities
// below one fall back to 4096.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity < 1 {
		capacity = 4096
	}
	return &RingTracer{level: level, buf: make([]Event, capacity)}
}

// Emit stores the event, overwriting the oldest one once the buffer is
// full.
func (t *RingTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	t.buf[t.next] = *ev
	t.next++
	if t.next == len(t.buf) {
		t.next = 0
		t.wrapped = true
	}
	t.mu.Unlock()
}

// Snapshot copies the buffered events out in emission order.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.wrapped {
		return append([]Event(nil), t.buf[:t.next]...)
	}
	out := make([]Event, 0, len(t.buf))
	out = append(out, t.buf[t.next:]...)
	return append(out, t.buf[:t.next]...)
}

// Dump renders every buffered event to w in the given format.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

// Flush is a no-op: the buffer is the storage.
func (t *RingTracer) Flush() error { return nil }

// Close is a no-op.
func (t *RingTracer) Close() error { return nil }

// Level returns the configured level.
func (t *RingTracer) Level() Level { return t.level }

// Enabled reports whether events are recorded at all.
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
