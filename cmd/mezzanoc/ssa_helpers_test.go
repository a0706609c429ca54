package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AdamKing07/Mezzano/internal/diag"
	"github.com/AdamKing07/Mezzano/internal/pipeline"
	"github.com/AdamKing07/Mezzano/internal/ssa"
)

func TestReadUIMode(t *testing.T) {
	cases := []struct {
		input string
		want  uiMode
	}{
		{"auto", uiModeAuto},
		{"", uiModeAuto},
		{"on", uiModeOn},
		{"OFF", uiModeOff},
	}
	for _, tc := range cases {
		got, err := readUIMode(tc.input)
		if err != nil {
			t.Fatalf("readUIMode(%q) error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("readUIMode(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatalf("expected error for invalid ui mode")
	}
}

func TestLoadModule(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "pair.mzi")
	data := `fn id
  argsetup %x
  return %x
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write pair.mzi: %v", err)
	}
	m, err := loadModule(path)
	if err != nil {
		t.Fatalf("loadModule: %v", err)
	}
	if len(m.Funcs) != 1 || m.Funcs[0].Name != "id" {
		t.Fatalf("expected a single function id, got %d functions", len(m.Funcs))
	}

	_, err = loadModule(filepath.Join(root, "pair.txt"))
	if err == nil || !strings.Contains(err.Error(), "unsupported input") {
		t.Fatalf("expected unsupported input error, got %v", err)
	}
}

func TestPrintRunSummary(t *testing.T) {
	res := pipeline.Result{
		Funcs: []pipeline.FuncResult{
			{Name: "a", Stats: ssa.Stats{Simple: 1, Full: 2}, Moves: 3},
			{Name: "b", Stats: ssa.Stats{Rejected: 1}},
		},
		Bag: diag.NewBag(8),
	}
	res.Timings.Set(pipeline.StageConstruct, time.Millisecond)

	var buf bytes.Buffer
	printRunSummary(&buf, res, false)
	want := "ok: 2 functions, 3 candidates converted, 1 rejected\n"
	if got := buf.String(); got != want {
		t.Fatalf("summary = %q, want %q", got, want)
	}

	res.Timings.Set(pipeline.StageDeconstruct, time.Millisecond)
	buf.Reset()
	printRunSummary(&buf, res, false)
	if !strings.Contains(buf.String(), ", 3 moves inserted") {
		t.Fatalf("expected move count in summary, got %q", buf.String())
	}
}
