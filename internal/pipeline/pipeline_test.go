package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AdamKing07/Mezzano/internal/diag"
	"github.com/AdamKing07/Mezzano/internal/ir"
	"github.com/AdamKing07/Mezzano/internal/irtext"
	"github.com/AdamKing07/Mezzano/internal/pipeline"
	"github.com/AdamKing07/Mezzano/internal/ssa"
)

// pairSrc has one conversion candidate and one function with no locals.
const pairSrc = `fn double
  argsetup %x
  bind $n = %x
  %ln = load $n
  %s = call add(%ln, %ln)
  store $n = %s
  %r = load $n
  return %r

fn passthrough
  argsetup %v
  return %v
`

// countdownSrc loops on a mutable local, so construction places a phi at
// .head and deconstruction must lower it back on both entering jumps.
const countdownSrc = `fn countdown
  argsetup %a0 %k
  %zero = const 0
  bind $a = %a0
  jump .head
label .head
  %la = load $a
  %c = call less(%zero, %la)
  branch %c .body .out
label .body
  %lb = load $a
  %n1 = call sub(%lb, %k)
  store $a = %n1
  jump .head
label .out
  %r = load $a
  return %r
`

// brokenSrc defines %x twice, which construction leaves alone (no locals)
// and the verifier must reject.
const brokenSrc = `fn broken
  %x = const 1
  %x = const 2
  return %x
`

func parseModule(t *testing.T, src string) *ir.Module {
	t.Helper()
	m, err := irtext.ParseModule("pipeline.mzi", src)
	if err != nil {
		t.Fatalf("parse module: %v", err)
	}
	return m
}

func countCode(bag *diag.Bag, code diag.Code) int {
	n := 0
	for _, d := range bag.Items() {
		if d.Code == code {
			n++
		}
	}
	return n
}

func TestRun_ConstructsEveryFunction(t *testing.T) {
	m := parseModule(t, pairSrc)

	res, err := pipeline.Run(context.Background(), m, pipeline.Options{Verify: true, Jobs: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Funcs) != 2 {
		t.Fatalf("expected 2 function results, got %d", len(res.Funcs))
	}
	if res.Funcs[0].Name != "double" || res.Funcs[1].Name != "passthrough" {
		t.Errorf("results out of module order: %q, %q", res.Funcs[0].Name, res.Funcs[1].Name)
	}
	if got := res.Funcs[0].Stats; got.Full != 1 || got.Simple != 0 || got.Rejected != 0 {
		t.Errorf("double stats = %+v, want one full conversion", got)
	}

	for _, f := range m.Funcs {
		if err := ir.ValidateFunc(f); err != nil {
			t.Errorf("%s: invalid stream after run: %v", f.Name, err)
		}
		if err := ssa.Check(f); err != nil {
			t.Errorf("%s: not in SSA form after run: %v", f.Name, err)
		}
	}

	if !res.Timings.Has(pipeline.StageConstruct) || !res.Timings.Has(pipeline.StageVerify) {
		t.Error("expected construct and verify timings to be recorded")
	}
	if res.Timings.Has(pipeline.StageDeconstruct) {
		t.Error("deconstruct timing recorded without the stage enabled")
	}

	if got := countCode(res.Bag, diag.SSAConverted); got != 2 {
		t.Errorf("expected 2 conversion summaries, got %d", got)
	}
	if first := res.Bag.Items()[0]; first.Primary.Func != "double" {
		t.Errorf("merged bag out of module order, first finding on %q", first.Primary.Func)
	}
}

func TestRun_DeconstructLowersLoopPhi(t *testing.T) {
	m := parseModule(t, countdownSrc)

	res, err := pipeline.Run(context.Background(), m, pipeline.Options{
		Verify:      true,
		Deconstruct: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	fr := res.Funcs[0]
	if fr.Stats.Full != 1 {
		t.Fatalf("stats = %+v, want one full conversion", fr.Stats)
	}
	if fr.Moves != 2 {
		t.Errorf("inserted %d moves, want 2 (one per entering jump)", fr.Moves)
	}

	f := m.Funcs[0]
	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		in := &f.Instrs[id]
		if in.Kind == ir.InstrLabel && len(in.Label.Phis) != 0 {
			t.Errorf("i%d: label still declares %d phis", id, len(in.Label.Phis))
		}
		if in.Kind == ir.InstrJump && len(in.Jump.Values) != 0 {
			t.Errorf("i%d: jump still carries %d values", id, len(in.Jump.Values))
		}
	}
	if err := ir.ValidateFunc(f); err != nil {
		t.Errorf("invalid stream after deconstruction: %v", err)
	}

	if !res.Timings.Has(pipeline.StageDeconstruct) {
		t.Error("expected deconstruct timing to be recorded")
	}
	if got := countCode(res.Bag, diag.SSADeconInserted); got != 1 {
		t.Errorf("expected 1 deconstruction summary, got %d", got)
	}
}

func TestRun_VerifyFailureSurfaces(t *testing.T) {
	m := parseModule(t, brokenSrc)

	res, err := pipeline.Run(context.Background(), m, pipeline.Options{Verify: true})
	if err == nil {
		t.Fatal("expected a verification error")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error does not name the function: %v", err)
	}
	if res.Funcs[0].Err == nil {
		t.Error("function result does not record the failure")
	}
	if !res.Bag.HasErrors() {
		t.Error("merged bag has no errors")
	}
	if got := countCode(res.Bag, diag.SSAVerifyFailed); got != 1 {
		t.Errorf("expected 1 verification finding, got %d", got)
	}
}

func TestRun_EmitsProgressEvents(t *testing.T) {
	m := parseModule(t, countdownSrc)

	ch := make(chan pipeline.Event, 64)
	_, err := pipeline.Run(context.Background(), m, pipeline.Options{
		Verify:      true,
		Deconstruct: true,
		Jobs:        1,
		Progress:    pipeline.ChannelSink{Ch: ch},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := make([]pipeline.Event, 0, len(ch))
	for len(ch) > 0 {
		events = append(events, <-ch)
	}
	if len(events) == 0 {
		t.Fatal("no events emitted")
	}

	first := events[0]
	if first.Stage != pipeline.StageConstruct || first.Status != pipeline.StatusQueued {
		t.Errorf("first event = %+v, want queued construct", first)
	}

	var doneStages []pipeline.Stage
	for _, evt := range events {
		if evt.Func != "countdown" {
			t.Errorf("event for unexpected function %q", evt.Func)
		}
		if evt.Status == pipeline.StatusError {
			t.Errorf("unexpected error event: %v", evt.Err)
		}
		if evt.Status == pipeline.StatusDone {
			doneStages = append(doneStages, evt.Stage)
		}
	}
	want := []pipeline.Stage{pipeline.StageConstruct, pipeline.StageVerify, pipeline.StageDeconstruct}
	if len(doneStages) != len(want) {
		t.Fatalf("done stages = %v, want %v", doneStages, want)
	}
	for i, stage := range want {
		if doneStages[i] != stage {
			t.Errorf("done stage %d = %s, want %s", i, doneStages[i], stage)
		}
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	m := parseModule(t, pairSrc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.Run(ctx, m, pipeline.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_EmptyModule(t *testing.T) {
	res, err := pipeline.Run(context.Background(), &ir.Module{}, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Funcs) != 0 {
		t.Errorf("expected no function results, got %d", len(res.Funcs))
	}
	if res.Bag == nil || res.Bag.Len() != 0 {
		t.Errorf("expected an empty bag, got %v", res.Bag)
	}
}

func TestRunFunc_StagesAreOptional(t *testing.T) {
	f, err := irtext.Parse("single.mzi", pairSrc[:strings.Index(pairSrc, "\nfn ")+1])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	fr := pipeline.RunFunc(f, pipeline.Options{})
	if fr.Err != nil {
		t.Fatalf("RunFunc: %v", fr.Err)
	}
	if fr.Timings.Has(pipeline.StageVerify) || fr.Timings.Has(pipeline.StageDeconstruct) {
		t.Error("disabled stages recorded timings")
	}
	if fr.Bag.Len() != 1 || fr.Bag.Items()[0].Code != diag.SSAConverted {
		t.Errorf("expected exactly the conversion summary, got %d findings", fr.Bag.Len())
	}
}

func TestTimings_AddAccumulates(t *testing.T) {
	var tm pipeline.Timings
	tm.Add(pipeline.StageConstruct, 2*time.Millisecond)
	tm.Add(pipeline.StageConstruct, 3*time.Millisecond)
	tm.Set(pipeline.StageVerify, time.Millisecond)

	if got := tm.Duration(pipeline.StageConstruct); got != 5*time.Millisecond {
		t.Errorf("construct duration = %v, want 5ms", got)
	}
	if got := tm.Sum(pipeline.StageConstruct, pipeline.StageVerify); got != 6*time.Millisecond {
		t.Errorf("sum = %v, want 6ms", got)
	}
	if tm.Has(pipeline.StageDeconstruct) {
		t.Error("deconstruct stage should be unset")
	}
}
