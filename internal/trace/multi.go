package trace

import "errors"

// MultiTracer forwards every event to a set of underlying tracers, so one
// run can stream to a file and keep an in-memory ring tail at the same
// time.
type MultiTracer struct {
	level   Level
	tracers []Tracer
}

// NewMultiTracer fans out to the given tracers.
func NewMultiTracer(level Level, tracers ...Tracer) *MultiTracer {
	return &MultiTracer{level: level, tracers: tracers}
}

// Emit forwards the event. Each underlying tracer applies its own level
// gate.
func (t *MultiTracer) Emit(ev *Event) {
	for _, tr := range t.tracers {
		tr.Emit(ev)
	}
}

// Flush flushes every tracer, joining the failures.
func (t *MultiTracer) Flush() error {
	var errs []error
	for _, tr := range t.tracers {
		if err := tr.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every tracer, joining the failures.
func (t *MultiTracer) Close() error {
	var errs []error
	for _, tr := range t.tracers {
		if err := tr.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Level returns the configured level.
func (t *MultiTracer) Level() Level { return t.level }

// Enabled reports whether tracing is active.
func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }

// Rings returns the ring tracers in the fan-out; these hold the buffered
// tail a caller may want to dump when the run ends.
func (t *MultiTracer) Rings() []*RingTracer {
	var rings []*RingTracer
	for _, tr := range t.tracers {
		if r, ok := tr.(*RingTracer); ok {
			rings = append(rings, r)
		}
	}
	return rings
}
