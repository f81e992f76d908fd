package proof_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/rollup/foundation/rollup/commit"
	"github.com/adamwoolhether/rollup/foundation/rollup/nmt"
	"github.com/adamwoolhether/rollup/foundation/rollup/proof"
)

func state(v uint64) commit.Commitment {
	return commit.NewBuilder("TEST").U64("v", v).Finalize()
}

func chain(n int) []proof.Proof {
	proofs := make([]proof.Proof, n)
	for i := range proofs {
		proofs[i] = proof.Proof{
			Block:    commit.NewBuilder("BLOCK").U64("i", uint64(i)).Finalize(),
			OldState: state(uint64(i)),
			NewState: state(uint64(i + 1)),
		}
	}
	return proofs
}

func TestGenerate(t *testing.T) {
	tree := nmt.NewTree([]nmt.Leaf{
		{Namespace: 1, Payload: []byte("a")},
		{Namespace: 2, Payload: []byte("b")},
		{Namespace: 3, Payload: []byte("c")},
	})

	p, err := proof.Generate(tree.Root, state(2), state(1), tree.Prove(2), 2)
	require.NoError(t, err)
	require.Equal(t, tree.Root.Commit(), p.Block)
	require.Equal(t, state(1), p.OldState)
	require.Equal(t, state(2), p.NewState)

	other := nmt.NewTree([]nmt.Leaf{{Namespace: 2, Payload: []byte("x")}})
	_, err = proof.Generate(other.Root, state(2), state(1), tree.Prove(2), 2)

	var ve *proof.VerificationError
	require.True(t, errors.As(err, &ve))
	require.ErrorIs(t, err, nmt.ErrVerification)
	require.Equal(t, other.Root.Commit(), ve.Block)
}

func TestGenerateBatch(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		proofs := chain(n)

		bp, err := proof.GenerateBatch(proofs)
		require.NoError(t, err)
		require.Equal(t, proofs[0].Block, bp.FirstBlock)
		require.Equal(t, proofs[n-1].Block, bp.LastBlock)
		require.Equal(t, proofs[0].OldState, bp.OldState)
		require.Equal(t, proofs[n-1].NewState, bp.NewState)
	}
}

func TestGenerateBatchEmpty(t *testing.T) {
	_, err := proof.GenerateBatch(nil)
	require.ErrorIs(t, err, proof.ErrEmptyBatch)
}

func TestGenerateBatchOutOfOrder(t *testing.T) {
	proofs := chain(4)
	proofs[2].OldState = state(99)
	proofs[3].OldState = state(98)

	_, err := proof.GenerateBatch(proofs)

	var oe *proof.OutOfOrderError
	require.True(t, errors.As(err, &oe))
	require.Equal(t, 1, oe.Position)
	require.Equal(t, state(2), oe.NewState)
	require.Equal(t, state(99), oe.OldState)
}

func TestContract(t *testing.T) {
	bp, err := proof.GenerateBatch(chain(3))
	require.NoError(t, err)

	cp := bp.Contract()

	first, err := commit.FromBig(cp.FirstBlock)
	require.NoError(t, err)
	require.Equal(t, bp.FirstBlock, first)

	last, err := commit.FromBig(cp.LastBlock)
	require.NoError(t, err)
	require.Equal(t, bp.LastBlock, last)

	oldState, err := commit.FromBig(cp.OldState)
	require.NoError(t, err)
	require.Equal(t, bp.OldState, oldState)

	newState, err := commit.FromBig(cp.NewState)
	require.NoError(t, err)
	require.Equal(t, bp.NewState, newState)
}
