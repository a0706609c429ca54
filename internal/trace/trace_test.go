package trace_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/AdamKing07/Mezzano/internal/trace"
)

func TestRingTracer_DumpKeepsTail(t *testing.T) {
	ring := trace.NewRingTracer(4, trace.LevelDebug)
	for i := 0; i < 6; i++ {
		trace.Point(ring, trace.ScopePass, fmt.Sprintf("ev%d", i), "", 0)
	}

	var buf bytes.Buffer
	if err := ring.Dump(&buf, trace.FormatText); err != nil {
		t.Fatalf("dump: %v", err)
	}
	out := buf.String()

	for _, dropped := range []string{"ev0", "ev1"} {
		if strings.Contains(out, dropped) {
			t.Errorf("dump should have dropped %s:\n%s", dropped, out)
		}
	}
	for _, kept := range []string{"ev2", "ev3", "ev4", "ev5"} {
		if !strings.Contains(out, kept) {
			t.Errorf("dump should contain %s:\n%s", kept, out)
		}
	}
	if strings.Index(out, "ev2") > strings.Index(out, "ev5") {
		t.Errorf("dump out of emission order:\n%s", out)
	}
}

func TestRingTracer_LevelGatesEvents(t *testing.T) {
	ring := trace.NewRingTracer(8, trace.LevelPhase)
	trace.Point(ring, trace.ScopePass, "kept", "", 0)
	trace.Point(ring, trace.ScopeCandidate, "gated", "", 0)

	events := ring.Snapshot()
	if len(events) != 1 {
		t.Fatalf("expected 1 stored event, got %d", len(events))
	}
	if events[0].Name != "kept" {
		t.Errorf("stored event = %q, want kept", events[0].Name)
	}
}

func TestNew_RingMode(t *testing.T) {
	tr, err := trace.New(trace.Config{Level: trace.LevelPhase, Mode: trace.ModeRing, RingSize: 16})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := tr.(*trace.RingTracer); !ok {
		t.Fatalf("expected a ring tracer, got %T", tr)
	}
}

func TestNew_BothModeFansOut(t *testing.T) {
	var stream bytes.Buffer
	tr, err := trace.New(trace.Config{
		Level:  trace.LevelDebug,
		Mode:   trace.ModeBoth,
		Format: trace.FormatText,
		Output: &stream,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	multi, ok := tr.(*trace.MultiTracer)
	if !ok {
		t.Fatalf("expected a multi tracer, got %T", tr)
	}

	sp := trace.Begin(tr, trace.ScopePass, "fanout", 0)
	sp.End("")
	if err := tr.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if !strings.Contains(stream.String(), "fanout") {
		t.Errorf("stream side missing the event:\n%s", stream.String())
	}
	rings := multi.Rings()
	if len(rings) != 1 {
		t.Fatalf("expected 1 ring in the fan-out, got %d", len(rings))
	}
	if events := rings[0].Snapshot(); len(events) != 2 {
		t.Errorf("ring side holds %d events, want begin+end", len(events))
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want trace.Level
		ok   bool
	}{
		{"off", trace.LevelOff, true},
		{"phase", trace.LevelPhase, true},
		{"detail", trace.LevelDetail, true},
		{"debug", trace.LevelDebug, true},
		{"error", 0, false},
		{"loud", 0, false},
	}
	for _, tc := range cases {
		got, err := trace.ParseLevel(tc.in)
		if tc.ok != (err == nil) {
			t.Errorf("ParseLevel(%q) error = %v, ok = %t", tc.in, err, tc.ok)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want trace.StorageMode
		ok   bool
	}{
		{"", trace.ModeStream, true},
		{"stream", trace.ModeStream, true},
		{"ring", trace.ModeRing, true},
		{"Both", trace.ModeBoth, true},
		{"ringbuffer", 0, false},
	}
	for _, tc := range cases {
		got, err := trace.ParseMode(tc.in)
		if tc.ok != (err == nil) {
			t.Errorf("ParseMode(%q) error = %v, ok = %t", tc.in, err, tc.ok)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
