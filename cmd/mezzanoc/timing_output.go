package main

import (
	"fmt"
	"io"

	"github.com/AdamKing07/Mezzano/internal/observ"
	"github.com/AdamKing07/Mezzano/internal/pipeline"
)

var timedStages = []pipeline.Stage{
	pipeline.StageConstruct,
	pipeline.StageVerify,
	pipeline.StageDeconstruct,
}

// printStageTimings folds the per-stage totals into an observ timer and
// writes its summary.
func printStageTimings(out io.Writer, timings pipeline.Timings) {
	if out == nil {
		return
	}
	t := observ.NewTimer()
	for _, stage := range timedStages {
		if timings.Has(stage) {
			t.Add(string(stage), timings.Duration(stage))
		}
	}
	if _, err := fmt.Fprintln(out, t.Summary()); err != nil {
		panic(err)
	}
}
