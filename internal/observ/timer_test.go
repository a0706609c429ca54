package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimer_AddAccumulates(t *testing.T) {
	tm := NewTimer()
	tm.Add("ssa_construct", 3*time.Millisecond)
	tm.Add("ssa_construct", 2*time.Millisecond)
	tm.Add("ssa_verify", time.Millisecond)

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(r.Phases))
	}
	if r.Phases[0].Name != "ssa_construct" || r.Phases[0].DurationMS != 5 {
		t.Errorf("accumulated phase = %+v", r.Phases[0])
	}
	if r.TotalMS != 6 {
		t.Errorf("total = %v, want 6", r.TotalMS)
	}
}

func TestTimer_SummaryListsPhases(t *testing.T) {
	tm := NewTimer()
	tm.Add("parse", 10*time.Millisecond)
	s := tm.Summary()
	if !strings.Contains(s, "parse") || !strings.Contains(s, "total") {
		t.Errorf("summary missing entries:\n%s", s)
	}
}

func TestReport_SortedByDuration(t *testing.T) {
	tm := NewTimer()
	tm.Add("fast", time.Millisecond)
	tm.Add("slow", 9*time.Millisecond)
	r := tm.Report().SortedByDuration()
	if r.Phases[0].Name != "slow" {
		t.Errorf("expected slow first, got %s", r.Phases[0].Name)
	}
}
