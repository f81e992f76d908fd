// Package proof produces the per-block proofs of state transition and
// aggregates them into the batch proof submitted to the settlement contract.
// No real validity proof system backs these values, they carry the
// commitments a verifier would check.
package proof

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/adamwoolhether/rollup/foundation/rollup/commit"
	"github.com/adamwoolhether/rollup/foundation/rollup/nmt"
)

// ErrEmptyBatch is returned when a batch is requested over zero proofs.
var ErrEmptyBatch = errors.New("batch requires at least one proof")

// VerificationError means the namespace proof handed to the generator does
// not match the block root it was produced for.
type VerificationError struct {
	Block commit.Commitment
	Err   error
}

// Error implements the error interface.
func (ve *VerificationError) Error() string {
	return fmt.Sprintf("block %s: %s", ve.Block, ve.Err)
}

// Unwrap returns the underlying verification failure.
func (ve *VerificationError) Unwrap() error {
	return ve.Err
}

// OutOfOrderError reports the first pair of adjacent proofs that don't chain.
type OutOfOrderError struct {
	Position int               // Index of the first proof in the broken pair.
	NewState commit.Commitment // New state of proofs[Position].
	OldState commit.Commitment // Old state of proofs[Position+1].
}

// Error implements the error interface.
func (oe *OutOfOrderError) Error() string {
	return fmt.Sprintf("proof %d ends in state %s but proof %d starts from %s", oe.Position, oe.NewState, oe.Position+1, oe.OldState)
}

// =============================================================================

// Proof attests that executing a block moved the ledger from OldState to
// NewState.
type Proof struct {
	Block    commit.Commitment `json:"block"`
	OldState commit.Commitment `json:"old_state"`
	NewState commit.Commitment `json:"new_state"`
}

// Generate verifies the namespace proof against the block root and binds the
// block to the state transition.
func Generate(root nmt.Root, newState commit.Commitment, oldState commit.Commitment, nsProof nmt.NamespaceProof, ns nmt.NamespaceID) (Proof, error) {
	block := root.Commit()

	if err := nsProof.Verify(root, ns); err != nil {
		return Proof{}, &VerificationError{Block: block, Err: err}
	}

	p := Proof{
		Block:    block,
		OldState: oldState,
		NewState: newState,
	}

	return p, nil
}

// =============================================================================

// BatchProof attests to the state transition over a contiguous run of blocks.
type BatchProof struct {
	FirstBlock commit.Commitment `json:"first_block"`
	LastBlock  commit.Commitment `json:"last_block"`
	OldState   commit.Commitment `json:"old_state"`
	NewState   commit.Commitment `json:"new_state"`
}

// GenerateBatch chains the block proofs. Each proof must start from the state
// the previous one ended in.
func GenerateBatch(proofs []Proof) (BatchProof, error) {
	if len(proofs) == 0 {
		return BatchProof{}, ErrEmptyBatch
	}

	for i := 0; i < len(proofs)-1; i++ {
		if proofs[i].NewState != proofs[i+1].OldState {
			return BatchProof{}, &OutOfOrderError{
				Position: i,
				NewState: proofs[i].NewState,
				OldState: proofs[i+1].OldState,
			}
		}
	}

	first := proofs[0]
	last := proofs[len(proofs)-1]

	bp := BatchProof{
		FirstBlock: first.Block,
		LastBlock:  last.Block,
		OldState:   first.OldState,
		NewState:   last.NewState,
	}

	return bp, nil
}

// ContractProof is the uint256 tuple the rollup contract takes. Field names
// match the ABI components.
type ContractProof struct {
	FirstBlock *big.Int
	LastBlock  *big.Int
	OldState   *big.Int
	NewState   *big.Int
}

// Contract converts the batch proof into its contract representation.
func (bp BatchProof) Contract() ContractProof {
	return ContractProof{
		FirstBlock: bp.FirstBlock.Big(),
		LastBlock:  bp.LastBlock.Big(),
		OldState:   bp.OldState.Big(),
		NewState:   bp.NewState.Big(),
	}
}
