package ir

// InstrID is a stable index into a function's instruction arena. IDs are
// never reused or compacted, so references held across inserts and removals
// stay valid.
type InstrID int32

// RegID identifies a virtual register within one function.
type RegID int32

// LocalID identifies a mutable local slot within one function.
type LocalID int32

const (
	NoInstrID InstrID = -1
	NoRegID   RegID   = -1
	NoLocalID LocalID = -1
)

// Reg is the bookkeeping entry for a virtual register. A register is a pure
// value identity with no storage of its own; Name is a debug label only and
// need not be unique.
type Reg struct {
	Name string
}

// Local is a mutable storage slot. It is bound exactly once (by one bind
// instruction) and may be stored into any number of times afterwards, which
// is what distinguishes it from a virtual register.
type Local struct {
	Name string
}
