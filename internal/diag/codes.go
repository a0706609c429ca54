package diag

import (
	"fmt"
)

type Code uint16

const (
	// UnknownCode is the catch-all for unclassified findings.
	UnknownCode Code = 0

	// Structural findings in the instruction stream.
	IRInfo          Code = 1000
	IRInvalidStream Code = 1001

	// Textual reader findings.
	TxtInfo        Code = 2000
	TxtParseFailed Code = 2001

	// SSA pass findings.
	SSAInfo          Code = 3000
	SSARejectShape   Code = 3001
	SSARejectNLX     Code = 3002
	SSAVerifyFailed  Code = 3003
	SSAConverted     Code = 3004
	SSADeconInserted Code = 3005

	// Observability.
	ObsInfo    Code = 4000
	ObsTimings Code = 4001
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown finding",

	IRInfo:          "Instruction stream information",
	IRInvalidStream: "Instruction stream fails structural validation",

	TxtInfo:        "Textual reader information",
	TxtParseFailed: "Textual function failed to parse",

	SSAInfo:          "SSA pass information",
	SSARejectShape:   "Candidate rejected: phi site violates the predecessor shape rule",
	SSARejectNLX:     "Candidate rejected: live range crosses a non-local-exit region",
	SSAVerifyFailed:  "SSA verification failed",
	SSAConverted:     "Candidates converted to SSA form",
	SSADeconInserted: "Moves inserted during SSA deconstruction",

	ObsInfo:    "Observability information",
	ObsTimings: "Pipeline timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("TXT%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SSA%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
