package executor

import "fmt"

// FaultKind classifies the conditions that stop the executor.
type FaultKind int

// Set of fatal fault kinds.
const (
	FaultHeaderStream FaultKind = iota + 1
	FaultCommitmentMismatch
	FaultNamespaceProof
	FaultProofOrder
	FaultUnavailable
)

// String implements the fmt.Stringer interface.
func (k FaultKind) String() string {
	switch k {
	case FaultHeaderStream:
		return "header stream"
	case FaultCommitmentMismatch:
		return "commitment mismatch"
	case FaultNamespaceProof:
		return "namespace proof"
	case FaultProofOrder:
		return "proof order"
	case FaultUnavailable:
		return "unavailable"
	}
	return fmt.Sprintf("fault(%d)", int(k))
}

// FatalFault means the chain linking the sequencer, the rollup state and the
// settlement contract is broken. The executor stops and must be restarted
// from a trusted state.
type FatalFault struct {
	Kind  FaultKind
	Block uint64
	Err   error
}

// Error implements the error interface.
func (ff *FatalFault) Error() string {
	return fmt.Sprintf("fatal %s fault at block %d: %s", ff.Kind, ff.Block, ff.Err)
}

// Unwrap returns the underlying error.
func (ff *FatalFault) Unwrap() error {
	return ff.Err
}

func fatal(kind FaultKind, block uint64, err error) *FatalFault {
	return &FatalFault{Kind: kind, Block: block, Err: err}
}
