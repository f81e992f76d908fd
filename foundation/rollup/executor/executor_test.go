package executor_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/adamwoolhether/rollup/foundation/retry"
	"github.com/adamwoolhether/rollup/foundation/rollup/commit"
	"github.com/adamwoolhether/rollup/foundation/rollup/consensus"
	"github.com/adamwoolhether/rollup/foundation/rollup/executor"
	"github.com/adamwoolhether/rollup/foundation/rollup/ledger"
	"github.com/adamwoolhether/rollup/foundation/rollup/nmt"
	"github.com/adamwoolhether/rollup/foundation/rollup/proof"
	"github.com/adamwoolhether/rollup/foundation/rollup/settlement"
	"github.com/adamwoolhether/rollup/foundation/rollup/transaction"
)

const ns = nmt.NamespaceID(7)

type fixture struct {
	alice      *ecdsa.PrivateKey
	bob        common.Address
	ledger     *ledger.Ledger
	consensus  *executor.MockConsensus
	settlement *executor.MockSettlement
	clock      clockwork.FakeClock
	metrics    *executor.Metrics
	exec       *executor.Executor
	ranges     chan settlement.EventResult
	headers    chan consensus.HeaderResult
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	alice, err := crypto.GenerateKey()
	require.NoError(t, err)
	bob := common.HexToAddress("0x00000000000000000000000000000000000000b0")

	ctrl := gomock.NewController(t)

	f := fixture{
		alice:      alice,
		bob:        bob,
		ledger:     ledger.New(ledger.NewState(ns, map[common.Address]uint64{crypto.PubkeyToAddress(alice.PublicKey): 1000})),
		consensus:  executor.NewMockConsensus(ctrl),
		settlement: executor.NewMockSettlement(ctrl),
		clock:      clockwork.NewFakeClock(),
		metrics:    executor.NewMetrics(prometheus.NewRegistry()),
		ranges:     make(chan settlement.EventResult, 10),
		headers:    make(chan consensus.HeaderResult, 10),
	}

	f.exec, err = executor.New(executor.Config{
		Namespace:  ns,
		Ledger:     f.ledger,
		Consensus:  f.consensus,
		Settlement: f.settlement,
		Retry:      retry.Default(),
		Clock:      f.clock,
		Log:        zap.NewNop().Sugar(),
		Metrics:    f.metrics,
	})
	require.NoError(t, err)

	f.settlement.EXPECT().SubscribeRanges(gomock.Any()).Return(f.ranges, nil)

	return &f
}

// block builds the block at the height holding a transfer from alice with the
// specified nonce, plus another rollup's transaction.
func (f *fixture) block(t *testing.T, height uint64, nonce uint64) (consensus.Header, *nmt.Tree) {
	t.Helper()

	stx, err := transaction.Transaction{Amount: 10, Destination: f.bob, Nonce: nonce}.Sign(f.alice)
	require.NoError(t, err)

	tree := nmt.NewTree([]nmt.Leaf{
		{Namespace: ns, Payload: stx.Encode()},
		{Namespace: ns + 1, Payload: []byte("other rollup")},
	})

	header := consensus.Header{Height: height, TransactionsRoot: tree.Root}
	return header, tree
}

// expectBlock registers the reads the executor does for a healthy block.
func (f *fixture) expectBlock(header consensus.Header, tree *nmt.Tree) {
	f.settlement.EXPECT().Commitment(gomock.Any(), header.Height).Return(header.Commit(), nil)
	f.consensus.EXPECT().NamespaceProof(gomock.Any(), header.Height, ns).Return(tree.Prove(ns), nil)
}

func (f *fixture) run() <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- f.exec.Run(context.Background())
	}()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("executor didn't stop")
	}
	return nil
}

// =============================================================================

func TestRangeSettledOnce(t *testing.T) {
	f := newFixture(t)
	genesis := f.ledger.Commit()

	var trees []*nmt.Tree
	for i := uint64(0); i < 3; i++ {
		header, tree := f.block(t, 10+i, i+1)
		f.headers <- consensus.HeaderResult{Header: header}
		f.expectBlock(header, tree)
		trees = append(trees, tree)
	}

	f.consensus.EXPECT().SubscribeHeaders(gomock.Any(), uint64(10)).Return(f.headers, nil)

	errGas := errors.New("out of gas")
	var counts []uint64
	var submitted []proof.BatchProof
	var states []commit.Commitment
	record := func(ret error) func(context.Context, uint64, commit.Commitment, proof.BatchProof) error {
		return func(ctx context.Context, numBlocks uint64, state commit.Commitment, bp proof.BatchProof) error {
			counts = append(counts, numBlocks)
			submitted = append(submitted, bp)
			states = append(states, state)
			return ret
		}
	}
	gomock.InOrder(
		f.settlement.EXPECT().VerifyBlocks(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(record(errGas)),
		f.settlement.EXPECT().VerifyBlocks(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(record(nil)),
	)

	_, updates := f.exec.Subscribe(3)

	f.ranges <- settlement.EventResult{Event: settlement.RangeEvent{FirstBlock: 10, NumBlocks: 3}}
	close(f.ranges)

	done := f.run()

	f.clock.BlockUntil(1)
	f.clock.Advance(time.Second)

	require.NoError(t, wait(t, done))

	require.Equal(t, []uint64{3, 3}, counts)
	require.Len(t, submitted, 2)
	require.Equal(t, submitted[0], submitted[1])
	require.Equal(t, states[0], states[1])

	bp := submitted[1]
	require.Equal(t, trees[0].Root.Commit(), bp.FirstBlock)
	require.Equal(t, trees[2].Root.Commit(), bp.LastBlock)
	require.Equal(t, genesis, bp.OldState)
	require.Equal(t, f.ledger.Commit(), bp.NewState)
	require.Equal(t, bp.NewState, states[1])

	require.Equal(t, uint64(30), f.ledger.Balance(f.bob))
	require.Equal(t, uint64(3), f.ledger.Nonce(crypto.PubkeyToAddress(f.alice.PublicKey)))

	var blocks []uint64
	for update := range updates {
		blocks = append(blocks, update.Block)
		require.NotNil(t, update.State)
	}
	require.Equal(t, []uint64{10, 11, 12}, blocks)

	require.Equal(t, float64(3), testutil.ToFloat64(f.metrics.BlocksExecuted))
	require.Equal(t, float64(3), testutil.ToFloat64(f.metrics.TxsApplied))
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.BatchesSubmitted))
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SubmitRetries))
	require.Equal(t, float64(12), testutil.ToFloat64(f.metrics.CurrentBlock))
}

func TestCommitmentMismatchIsFatal(t *testing.T) {
	f := newFixture(t)
	before := f.ledger.Commit()

	header, _ := f.block(t, 0, 1)
	f.headers <- consensus.HeaderResult{Header: header}
	f.consensus.EXPECT().SubscribeHeaders(gomock.Any(), uint64(0)).Return(f.headers, nil)

	other, _ := f.block(t, 0, 2)
	f.settlement.EXPECT().Commitment(gomock.Any(), uint64(0)).Return(other.Commit(), nil)

	f.ranges <- settlement.EventResult{Event: settlement.RangeEvent{FirstBlock: 0, NumBlocks: 1}}

	err := wait(t, f.run())

	var ff *executor.FatalFault
	require.True(t, errors.As(err, &ff))
	require.Equal(t, executor.FaultCommitmentMismatch, ff.Kind)
	require.Equal(t, uint64(0), ff.Block)
	require.Equal(t, before, f.ledger.Commit())
}

func TestNamespaceProofFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	before := f.ledger.Commit()

	header, _ := f.block(t, 4, 1)
	_, otherTree := f.block(t, 4, 2)

	f.headers <- consensus.HeaderResult{Header: header}
	f.consensus.EXPECT().SubscribeHeaders(gomock.Any(), uint64(4)).Return(f.headers, nil)
	f.settlement.EXPECT().Commitment(gomock.Any(), uint64(4)).Return(header.Commit(), nil)
	f.consensus.EXPECT().NamespaceProof(gomock.Any(), uint64(4), ns).Return(otherTree.Prove(ns), nil)

	f.ranges <- settlement.EventResult{Event: settlement.RangeEvent{FirstBlock: 4, NumBlocks: 1}}

	err := wait(t, f.run())

	var ff *executor.FatalFault
	require.True(t, errors.As(err, &ff))
	require.Equal(t, executor.FaultNamespaceProof, ff.Kind)
	require.Equal(t, uint64(4), ff.Block)

	var ve *proof.VerificationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, before, f.ledger.Commit())
}

func TestMalformedEventsSkipped(t *testing.T) {
	f := newFixture(t)

	f.ranges <- settlement.EventResult{Err: errors.New("garbled log")}
	f.ranges <- settlement.EventResult{Event: settlement.RangeEvent{FirstBlock: 0, NumBlocks: 0}}
	close(f.ranges)

	require.NoError(t, wait(t, f.run()))
	require.Equal(t, float64(2), testutil.ToFloat64(f.metrics.EventsSkipped))
}

func TestHeaderStreamFaults(t *testing.T) {
	tests := map[string]func(f *fixture, t *testing.T){
		"closed": func(f *fixture, t *testing.T) {
			header, _ := f.block(t, 0, 1)
			f.headers <- consensus.HeaderResult{Header: header}
			close(f.headers)
		},
		"error": func(f *fixture, t *testing.T) {
			header, _ := f.block(t, 0, 1)
			f.headers <- consensus.HeaderResult{Header: header}
			f.headers <- consensus.HeaderResult{Err: errors.New("connection reset")}
		},
		"height": func(f *fixture, t *testing.T) {
			header, _ := f.block(t, 0, 1)
			skipped, _ := f.block(t, 2, 1)
			f.headers <- consensus.HeaderResult{Header: header}
			f.headers <- consensus.HeaderResult{Header: skipped}
		},
	}

	for name, setup := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			before := f.ledger.Commit()

			setup(f, t)
			f.consensus.EXPECT().SubscribeHeaders(gomock.Any(), uint64(0)).Return(f.headers, nil)
			f.ranges <- settlement.EventResult{Event: settlement.RangeEvent{FirstBlock: 0, NumBlocks: 2}}

			err := wait(t, f.run())

			var ff *executor.FatalFault
			require.True(t, errors.As(err, &ff))
			require.Equal(t, executor.FaultHeaderStream, ff.Kind)
			require.Equal(t, uint64(1), ff.Block)
			require.Equal(t, before, f.ledger.Commit())
		})
	}
}

func TestRangeGapIsFatal(t *testing.T) {
	f := newFixture(t)

	header, tree := f.block(t, 0, 1)
	f.headers <- consensus.HeaderResult{Header: header}
	f.consensus.EXPECT().SubscribeHeaders(gomock.Any(), uint64(0)).Return(f.headers, nil)
	f.expectBlock(header, tree)
	f.settlement.EXPECT().VerifyBlocks(gomock.Any(), uint64(1), gomock.Any(), gomock.Any()).Return(nil)

	f.ranges <- settlement.EventResult{Event: settlement.RangeEvent{FirstBlock: 0, NumBlocks: 1}}
	f.ranges <- settlement.EventResult{Event: settlement.RangeEvent{FirstBlock: 5, NumBlocks: 1}}

	err := wait(t, f.run())

	var ff *executor.FatalFault
	require.True(t, errors.As(err, &ff))
	require.Equal(t, executor.FaultHeaderStream, ff.Kind)
	require.Equal(t, uint64(5), ff.Block)
}

func TestCommitmentReadRetried(t *testing.T) {
	f := newFixture(t)

	header, tree := f.block(t, 0, 1)
	f.headers <- consensus.HeaderResult{Header: header}
	f.consensus.EXPECT().SubscribeHeaders(gomock.Any(), uint64(0)).Return(f.headers, nil)

	gomock.InOrder(
		f.settlement.EXPECT().Commitment(gomock.Any(), uint64(0)).Return(commit.Commitment{}, settlement.ErrNotFound),
		f.settlement.EXPECT().Commitment(gomock.Any(), uint64(0)).Return(header.Commit(), nil),
	)
	f.consensus.EXPECT().NamespaceProof(gomock.Any(), uint64(0), ns).Return(tree.Prove(ns), nil)
	f.settlement.EXPECT().VerifyBlocks(gomock.Any(), uint64(1), gomock.Any(), gomock.Any()).Return(nil)

	f.ranges <- settlement.EventResult{Event: settlement.RangeEvent{FirstBlock: 0, NumBlocks: 1}}
	close(f.ranges)

	done := f.run()

	f.clock.BlockUntil(1)
	f.clock.Advance(time.Second)

	require.NoError(t, wait(t, done))
	require.Equal(t, uint64(10), f.ledger.Balance(f.bob))
}

func TestInvalidCommitmentNotRetried(t *testing.T) {
	f := newFixture(t)
	before := f.ledger.Commit()

	header, _ := f.block(t, 0, 1)
	f.headers <- consensus.HeaderResult{Header: header}
	f.consensus.EXPECT().SubscribeHeaders(gomock.Any(), uint64(0)).Return(f.headers, nil)

	// A single read: the executor fails without waiting on the clock.
	f.settlement.EXPECT().Commitment(gomock.Any(), uint64(0)).Return(commit.Commitment{}, fmt.Errorf("decoding: %w", commit.ErrInvalidCommitment))

	f.ranges <- settlement.EventResult{Event: settlement.RangeEvent{FirstBlock: 0, NumBlocks: 1}}

	err := wait(t, f.run())

	var ff *executor.FatalFault
	require.True(t, errors.As(err, &ff))
	require.Equal(t, executor.FaultCommitmentMismatch, ff.Kind)
	require.ErrorIs(t, err, commit.ErrInvalidCommitment)
	require.Equal(t, before, f.ledger.Commit())
}

func TestShutdownDuringSubmission(t *testing.T) {
	f := newFixture(t)

	header, tree := f.block(t, 0, 1)
	f.headers <- consensus.HeaderResult{Header: header}
	f.consensus.EXPECT().SubscribeHeaders(gomock.Any(), uint64(0)).Return(f.headers, nil)
	f.expectBlock(header, tree)
	f.settlement.EXPECT().VerifyBlocks(gomock.Any(), uint64(1), gomock.Any(), gomock.Any()).Return(errors.New("rpc down")).AnyTimes()

	f.ranges <- settlement.EventResult{Event: settlement.RangeEvent{FirstBlock: 0, NumBlocks: 1}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.exec.Run(ctx)
	}()

	for i := 0; i < 3; i++ {
		f.clock.BlockUntil(1)
		f.clock.Advance(time.Second)
	}
	f.clock.BlockUntil(1)
	cancel()

	require.ErrorIs(t, wait(t, done), context.Canceled)
	require.GreaterOrEqual(t, testutil.ToFloat64(f.metrics.SubmitRetries), float64(3))
}

func TestSlowSubscriberDoesNotStall(t *testing.T) {
	f := newFixture(t)

	for i := uint64(0); i < 3; i++ {
		header, tree := f.block(t, i, i+1)
		f.headers <- consensus.HeaderResult{Header: header}
		f.expectBlock(header, tree)
	}
	f.consensus.EXPECT().SubscribeHeaders(gomock.Any(), uint64(0)).Return(f.headers, nil)
	f.settlement.EXPECT().VerifyBlocks(gomock.Any(), uint64(3), gomock.Any(), gomock.Any()).Return(nil)

	// Never read.
	f.exec.Subscribe(0)

	f.ranges <- settlement.EventResult{Event: settlement.RangeEvent{FirstBlock: 0, NumBlocks: 3}}
	close(f.ranges)

	require.NoError(t, wait(t, f.run()))
	require.Equal(t, float64(3), testutil.ToFloat64(f.metrics.UpdatesDropped))
}

func TestNewRequiresSystems(t *testing.T) {
	_, err := executor.New(executor.Config{})
	require.Error(t, err)
}

func TestFatalFault(t *testing.T) {
	inner := errors.New("boom")
	var err error = &executor.FatalFault{Kind: executor.FaultProofOrder, Block: 3, Err: inner}

	require.ErrorIs(t, err, inner)
	require.Equal(t, "fatal proof order fault at block 3: boom", err.Error())
}
