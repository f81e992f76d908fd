package settlement

import (
	"context"
	"fmt"
	"sync"

	"github.com/adamwoolhether/rollup/foundation/rollup/commit"
	"github.com/adamwoolhether/rollup/foundation/rollup/proof"
)

// Memory is an in-process layer one. It records block commitments the way
// the shared sequencer contract does. Each rollup settling against it holds
// its own verifier state, see NewRollup.
type Memory struct {
	mu          sync.Mutex
	commitments []commit.Commitment
	events      []EventResult
	appended    chan struct{}
	closed      bool
}

// NewMemory constructs a layer one with no recorded blocks.
func NewMemory() *Memory {
	return &Memory{
		appended: make(chan struct{}),
	}
}

// RecordBlocks stores the block commitments at the next heights and emits
// the range event.
func (m *Memory) RecordBlocks(cs []commit.Commitment) (RangeEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return RangeEvent{}, ErrClosed
	}

	event := RangeEvent{
		FirstBlock: uint64(len(m.commitments)),
		NumBlocks:  uint64(len(cs)),
	}
	m.commitments = append(m.commitments, cs...)
	m.emit(EventResult{Event: event})

	return event, nil
}

// EmitError puts a malformed event on the stream.
func (m *Memory) EmitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.emit(EventResult{Err: err})
}

// Commitment returns the commitment recorded for the block.
func (m *Memory) Commitment(ctx context.Context, block uint64) (commit.Commitment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if block >= uint64(len(m.commitments)) {
		return commit.Commitment{}, fmt.Errorf("block %d: %w", block, ErrNotFound)
	}

	return m.commitments[block], nil
}

// span returns the commitments of the first and last blocks of a range.
func (m *Memory) span(first uint64, numBlocks uint64) (commit.Commitment, commit.Commitment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return commit.Commitment{}, commit.Commitment{}, ErrClosed
	}

	if numBlocks == 0 || first+numBlocks > uint64(len(m.commitments)) {
		return commit.Commitment{}, commit.Commitment{}, fmt.Errorf("verifying %d blocks after %d of %d: %w", numBlocks, first, len(m.commitments), ErrNoBlocks)
	}

	return m.commitments[first], m.commitments[first+numBlocks-1], nil
}

// SubscribeRanges streams every range event emitted so far and then the new
// ones as they happen. The channel closes when the context is cancelled or
// the layer one is closed.
func (m *Memory) SubscribeRanges(ctx context.Context) (<-chan EventResult, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}

	ch := make(chan EventResult)

	go func() {
		defer close(ch)

		var next int
		for {
			m.mu.Lock()
			if next < len(m.events) {
				er := m.events[next]
				m.mu.Unlock()

				select {
				case ch <- er:
					next++
				case <-ctx.Done():
					return
				}
				continue
			}

			if m.closed {
				m.mu.Unlock()
				return
			}

			wait := m.appended
			m.mu.Unlock()

			select {
			case <-wait:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// Close ends the event streams once they delivered every event already
// emitted.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.closed = true
	close(m.appended)
}

// emit must be called with the lock held.
func (m *Memory) emit(er EventResult) {
	if m.closed {
		return
	}

	m.events = append(m.events, er)

	close(m.appended)
	m.appended = make(chan struct{})
}

// =============================================================================

// Rollup is the verifier contract of one rollup. Every rollup on a layer one
// reads the same block commitments and range events but keeps its own
// verified count and state.
type Rollup struct {
	l1       *Memory
	mu       sync.Mutex
	verified uint64
	state    commit.Commitment
	failures []error
	calls    int
}

// NewRollup deploys a verifier contract starting at the specified genesis
// state.
func (m *Memory) NewRollup(genesis commit.Commitment) *Rollup {
	return &Rollup{
		l1:    m,
		state: genesis,
	}
}

// FailVerify makes the next calls to VerifyBlocks fail with the specified
// errors in order, without side effects.
func (r *Rollup) FailVerify(errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failures = append(r.failures, errs...)
}

// VerifyCalls returns the number of VerifyBlocks calls so far.
func (r *Rollup) VerifyCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls
}

// Verified returns the number of blocks whose batches were verified.
func (r *Rollup) Verified() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.verified
}

// Commitment returns the commitment recorded for the block.
func (r *Rollup) Commitment(ctx context.Context, block uint64) (commit.Commitment, error) {
	return r.l1.Commitment(ctx, block)
}

// SubscribeRanges streams the range events of the layer one.
func (r *Rollup) SubscribeRanges(ctx context.Context) (<-chan EventResult, error) {
	return r.l1.SubscribeRanges(ctx)
}

// StateCommitment returns the last verified rollup state.
func (r *Rollup) StateCommitment(ctx context.Context) (commit.Commitment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state, nil
}

// VerifyBlocks accepts the batch covering the next numBlocks unverified blocks
// and moves the contract to the new state.
func (r *Rollup) VerifyBlocks(ctx context.Context, numBlocks uint64, state commit.Commitment, bp proof.BatchProof) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++

	if len(r.failures) > 0 {
		err := r.failures[0]
		r.failures = r.failures[1:]
		return err
	}

	first, last, err := r.l1.span(r.verified, numBlocks)
	if err != nil {
		return err
	}

	if bp.OldState != r.state {
		return fmt.Errorf("got %s, exp %s: %w", bp.OldState, r.state, ErrStateMismatch)
	}

	if bp.NewState != state {
		return fmt.Errorf("proof ends in %s, next state %s: %w", bp.NewState, state, ErrStateMismatch)
	}

	if bp.FirstBlock != first || bp.LastBlock != last {
		return fmt.Errorf("range %d..%d: %w", r.verified, r.verified+numBlocks-1, ErrBlockMismatch)
	}

	r.verified += numBlocks
	r.state = state

	return nil
}
