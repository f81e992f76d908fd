// Package executor runs the rollup: it follows the ranges of blocks the
// settlement contract accepts, applies this rollup's transactions from each
// block to the ledger and submits the proof of the batch back to settlement.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/adamwoolhether/rollup/foundation/events"
	"github.com/adamwoolhether/rollup/foundation/retry"
	"github.com/adamwoolhether/rollup/foundation/rollup/commit"
	"github.com/adamwoolhether/rollup/foundation/rollup/consensus"
	"github.com/adamwoolhether/rollup/foundation/rollup/ledger"
	"github.com/adamwoolhether/rollup/foundation/rollup/nmt"
	"github.com/adamwoolhether/rollup/foundation/rollup/proof"
	"github.com/adamwoolhether/rollup/foundation/rollup/settlement"
)

// Config represents the systems the executor needs.
type Config struct {
	Namespace  nmt.NamespaceID
	Ledger     *ledger.Ledger
	Consensus  Consensus
	Settlement Settlement
	Retry      retry.Policy    // Reads from the external systems, zero value is retry.Default.
	Clock      clockwork.Clock // Nil is the real clock.
	Log        *zap.SugaredLogger
	Metrics    *Metrics // Nil keeps unregistered collectors.
}

// Update is published after every block applied to the ledger.
type Update struct {
	Block uint64        `json:"block"`
	Proof proof.Proof   `json:"proof"`
	State *ledger.State `json:"-"`
}

// Executor manages the single writer of a rollup's ledger.
type Executor struct {
	ns         nmt.NamespaceID
	ledger     *ledger.Ledger
	consensus  Consensus
	settlement Settlement
	retry      retry.Policy
	clock      clockwork.Clock
	log        *zap.SugaredLogger
	metrics    *Metrics
	evts       *events.Events[Update]

	headers    <-chan consensus.HeaderResult
	nextHeight uint64
}

// New constructs an executor ready to run.
func New(cfg Config) (*Executor, error) {
	switch {
	case cfg.Ledger == nil:
		return nil, errors.New("ledger is required")
	case cfg.Consensus == nil:
		return nil, errors.New("consensus is required")
	case cfg.Settlement == nil:
		return nil, errors.New("settlement is required")
	case cfg.Log == nil:
		return nil, errors.New("logger is required")
	}

	if cfg.Retry.Interval <= 0 {
		cfg.Retry = retry.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}

	e := Executor{
		ns:         cfg.Namespace,
		ledger:     cfg.Ledger,
		consensus:  cfg.Consensus,
		settlement: cfg.Settlement,
		retry:      cfg.Retry,
		clock:      cfg.Clock,
		log:        cfg.Log,
		metrics:    cfg.Metrics,
		evts:       events.New[Update](),
	}

	return &e, nil
}

// Subscribe registers for the updates published after every block. Updates
// are dropped when the channel is full.
func (e *Executor) Subscribe(buffer int) (string, <-chan Update) {
	return e.evts.Acquire(buffer)
}

// Unsubscribe releases the channel returned by Subscribe.
func (e *Executor) Unsubscribe(id string) error {
	return e.evts.Release(id)
}

// Run processes range events until the settlement stream closes, which
// returns nil, the context is cancelled or a *FatalFault stops it. Run must
// only be called once.
func (e *Executor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer e.evts.Shutdown()

	ranges, err := e.settlement.SubscribeRanges(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to range events: %w", err)
	}

	e.log.Infow("executor", "status", "started", "namespace", e.ns, "state", e.ledger.Commit())

	for {
		var er settlement.EventResult
		var open bool

		select {
		case er, open = <-ranges:
		case <-ctx.Done():
			return ctx.Err()
		}

		if !open {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.log.Infow("executor", "status", "range event stream closed")
			return nil
		}

		if er.Err != nil {
			e.log.Errorw("executor", "status", "skipping malformed range event", "ERROR", er.Err)
			e.metrics.EventsSkipped.Inc()
			continue
		}

		if er.Event.NumBlocks == 0 {
			e.log.Infow("executor", "status", "skipping empty range", "first_block", er.Event.FirstBlock)
			e.metrics.EventsSkipped.Inc()
			continue
		}

		if err := e.processRange(ctx, er.Event); err != nil {
			return err
		}
	}
}

// processRange moves the ledger across the range and settles the batch.
func (e *Executor) processRange(ctx context.Context, ev settlement.RangeEvent) error {
	e.log.Infow("process range", "status", "started", "first_block", ev.FirstBlock, "num_blocks", ev.NumBlocks)

	headers, err := e.collectHeaders(ctx, ev)
	if err != nil {
		return err
	}

	proofs := make([]proof.Proof, 0, len(headers))
	for _, header := range headers {
		p, err := e.applyBlock(ctx, header)
		if err != nil {
			return err
		}
		proofs = append(proofs, p)
	}

	return e.submit(ctx, ev, proofs)
}

// collectHeaders pulls the range's headers from the stream, which is opened
// at the first range's first block and then read in lockstep.
func (e *Executor) collectHeaders(ctx context.Context, ev settlement.RangeEvent) ([]consensus.Header, error) {
	if e.headers == nil {
		headers, err := e.consensus.SubscribeHeaders(ctx, ev.FirstBlock)
		if err != nil {
			return nil, fatal(FaultHeaderStream, ev.FirstBlock, fmt.Errorf("subscribing to headers: %w", err))
		}
		e.headers = headers
		e.nextHeight = ev.FirstBlock
	}

	if ev.FirstBlock != e.nextHeight {
		return nil, fatal(FaultHeaderStream, ev.FirstBlock, fmt.Errorf("range starts at %d, header stream is at %d", ev.FirstBlock, e.nextHeight))
	}

	headers := make([]consensus.Header, 0, ev.NumBlocks)
	for i := uint64(0); i < ev.NumBlocks; i++ {
		height := ev.FirstBlock + i

		var hr consensus.HeaderResult
		var open bool

		select {
		case hr, open = <-e.headers:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		switch {
		case !open:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fatal(FaultHeaderStream, height, errors.New("header stream closed"))

		case hr.Err != nil:
			return nil, fatal(FaultHeaderStream, height, hr.Err)

		case hr.Header.Height != height:
			return nil, fatal(FaultHeaderStream, height, fmt.Errorf("got header for height %d", hr.Header.Height))
		}

		headers = append(headers, hr.Header)
		e.nextHeight++
	}

	return headers, nil
}

// applyBlock checks the header against the settlement record and applies the
// block under the ledger's write lock.
func (e *Executor) applyBlock(ctx context.Context, header consensus.Header) (proof.Proof, error) {
	height := header.Height

	var recorded commit.Commitment
	read := func(ctx context.Context) error {
		c, err := e.settlement.Commitment(ctx, height)
		if err != nil {
			// A recorded value that isn't a commitment won't change on a reread.
			if errors.Is(err, commit.ErrInvalidCommitment) {
				return retry.Permanent(err)
			}
			return err
		}
		recorded = c
		return nil
	}

	if err := retry.Do(ctx, e.clock, e.retry, read, e.notify("read commitment", height)); err != nil {
		if ctx.Err() != nil {
			return proof.Proof{}, ctx.Err()
		}
		if errors.Is(err, commit.ErrInvalidCommitment) {
			return proof.Proof{}, fatal(FaultCommitmentMismatch, height, fmt.Errorf("reading block commitment: %w", err))
		}
		return proof.Proof{}, fatal(FaultUnavailable, height, fmt.Errorf("reading block commitment: %w", err))
	}

	if recorded != header.Commit() {
		return proof.Proof{}, fatal(FaultCommitmentMismatch, height, fmt.Errorf("header commits to %s, settlement recorded %s", header.Commit(), recorded))
	}

	var nsProof nmt.NamespaceProof
	fetch := func(ctx context.Context) error {
		p, err := e.consensus.NamespaceProof(ctx, height, e.ns)
		if err != nil {
			return err
		}
		nsProof = p
		return nil
	}

	if err := retry.Do(ctx, e.clock, e.retry, fetch, e.notify("fetch namespace proof", height)); err != nil {
		if ctx.Err() != nil {
			return proof.Proof{}, ctx.Err()
		}
		return proof.Proof{}, fatal(FaultUnavailable, height, fmt.Errorf("fetching namespace proof: %w", err))
	}

	exec, err := e.ledger.ExecuteBlock(header.TransactionsRoot, nsProof, e.log)
	if err != nil {
		return proof.Proof{}, fatal(FaultNamespaceProof, height, err)
	}

	e.metrics.BlocksExecuted.Inc()
	e.metrics.TxsApplied.Add(float64(exec.Applied))
	e.metrics.TxsRejected.Add(float64(exec.Rejected))
	e.metrics.CurrentBlock.Set(float64(height))

	e.log.Infow("apply block", "status", "applied", "height", height, "applied", exec.Applied, "rejected", exec.Rejected, "state", exec.Proof.NewState)

	e.publish(height, exec.Proof)

	return exec.Proof, nil
}

// submit settles the batch, retrying until the contract accepts it.
func (e *Executor) submit(ctx context.Context, ev settlement.RangeEvent, proofs []proof.Proof) error {
	bp, err := proof.GenerateBatch(proofs)
	if err != nil {
		return fatal(FaultProofOrder, ev.FirstBlock, err)
	}

	state := e.ledger.Commit()

	verify := func(ctx context.Context) error {
		return e.settlement.VerifyBlocks(ctx, ev.NumBlocks, state, bp)
	}

	notify := func(err error, attempt int, wait time.Duration) {
		e.metrics.SubmitRetries.Inc()
		e.log.Warnw("submit batch", "status", "retrying", "first_block", ev.FirstBlock, "attempt", attempt, "wait", wait, "ERROR", err)
	}

	// Submission never gives up, the executor waits here for a slow chain.
	forever := retry.Policy{Interval: e.retry.Interval}
	if err := retry.Do(ctx, e.clock, forever, verify, notify); err != nil {
		return err
	}

	e.metrics.BatchesSubmitted.Inc()
	e.log.Infow("submit batch", "status", "verified", "first_block", ev.FirstBlock, "num_blocks", ev.NumBlocks, "state", state)

	return nil
}

// publish hands the update to subscribers without waiting on them.
func (e *Executor) publish(height uint64, p proof.Proof) {
	if e.evts.Len() == 0 {
		return
	}

	update := Update{
		Block: height,
		Proof: p,
		State: e.ledger.Snapshot(),
	}

	if dropped := e.evts.Send(update); dropped > 0 {
		e.metrics.UpdatesDropped.Add(float64(dropped))
	}
}

func (e *Executor) notify(op string, height uint64) retry.Notify {
	return func(err error, attempt int, wait time.Duration) {
		e.log.Warnw(op, "status", "retrying", "height", height, "attempt", attempt, "wait", wait, "ERROR", err)
	}
}
