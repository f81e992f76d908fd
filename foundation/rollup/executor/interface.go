package executor

import (
	"context"

	"github.com/adamwoolhether/rollup/foundation/rollup/commit"
	"github.com/adamwoolhether/rollup/foundation/rollup/consensus"
	"github.com/adamwoolhether/rollup/foundation/rollup/nmt"
	"github.com/adamwoolhether/rollup/foundation/rollup/proof"
	"github.com/adamwoolhether/rollup/foundation/rollup/settlement"
)

//go:generate mockgen -typed -package=executor -destination=./mocks.go -source=./interface.go

// Consensus is the sequencer feed the executor follows.
type Consensus interface {
	SubscribeHeaders(ctx context.Context, from uint64) (<-chan consensus.HeaderResult, error)
	NamespaceProof(ctx context.Context, height uint64, ns nmt.NamespaceID) (nmt.NamespaceProof, error)
}

// Settlement is the layer one the executor reads ranges from and submits
// batches to.
type Settlement interface {
	SubscribeRanges(ctx context.Context) (<-chan settlement.EventResult, error)
	Commitment(ctx context.Context, block uint64) (commit.Commitment, error)
	VerifyBlocks(ctx context.Context, numBlocks uint64, state commit.Commitment, bp proof.BatchProof) error
}
