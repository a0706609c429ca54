package ssa

import (
	"github.com/AdamKing07/Mezzano/internal/diag"
	"github.com/AdamKing07/Mezzano/internal/trace"
)

// Options carries the observability hooks of one pass invocation. The zero
// value is valid: a nil Tracer emits nothing and a nil Reporter discards
// findings. Neither field affects the functional result.
type Options struct {
	Tracer   trace.Tracer
	Reporter diag.Reporter
}
