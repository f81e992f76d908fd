package consensus

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/adamwoolhether/rollup/foundation/rollup/nmt"
)

type sealedBlock struct {
	header Header
	tree   *nmt.Tree
}

// Memory is an in-process sequencer. Submitted transactions wait in a pool
// until Produce seals them into the next block in submission order.
type Memory struct {
	clock clockwork.Clock

	mu      sync.Mutex
	pending []Transaction
	blocks  []sealedBlock
	sealed  chan struct{}
	closed  bool
}

// NewMemory constructs a sequencer with no blocks. Block timestamps are read
// from the clock.
func NewMemory(clock clockwork.Clock) *Memory {
	return &Memory{
		clock:  clock,
		sealed: make(chan struct{}),
	}
}

// Submit adds the transaction to the pending pool.
func (m *Memory) Submit(ctx context.Context, tx Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.pending = append(m.pending, tx)
	return nil
}

// Pending returns the number of transactions waiting for a block.
func (m *Memory) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.pending)
}

// Produce seals every pending transaction into the next block and wakes the
// header streams. Blocks may be empty.
func (m *Memory) Produce() (Header, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Header{}, ErrClosed
	}

	leaves := make([]nmt.Leaf, len(m.pending))
	for i, tx := range m.pending {
		leaves[i] = nmt.Leaf{Namespace: tx.Namespace, Payload: tx.Payload}
	}
	m.pending = nil

	tree := nmt.NewTree(leaves)
	header := Header{
		Height:           uint64(len(m.blocks)),
		TransactionsRoot: tree.Root,
		Timestamp:        m.clock.Now().UTC(),
	}
	m.blocks = append(m.blocks, sealedBlock{header: header, tree: tree})

	close(m.sealed)
	m.sealed = make(chan struct{})

	return header, nil
}

// Height returns the number of sealed blocks.
func (m *Memory) Height() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return uint64(len(m.blocks))
}

// Header returns the header of the block at the specified height.
func (m *Memory) Header(ctx context.Context, height uint64) (Header, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if height >= uint64(len(m.blocks)) {
		return Header{}, fmt.Errorf("height %d: %w", height, ErrNotFound)
	}

	return m.blocks[height].header, nil
}

// NamespaceProof returns the namespace's transactions in the block at the
// specified height along with the proof they are all of them.
func (m *Memory) NamespaceProof(ctx context.Context, height uint64, ns nmt.NamespaceID) (nmt.NamespaceProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if height >= uint64(len(m.blocks)) {
		return nmt.NamespaceProof{}, fmt.Errorf("height %d: %w", height, ErrNotFound)
	}

	return m.blocks[height].tree.Prove(ns), nil
}

// SubscribeHeaders streams every header starting at the specified height,
// waiting for blocks not yet sealed. The channel closes when the context is
// cancelled or the sequencer is closed.
func (m *Memory) SubscribeHeaders(ctx context.Context, from uint64) (<-chan HeaderResult, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}

	ch := make(chan HeaderResult)

	go func() {
		defer close(ch)

		next := from
		for {
			m.mu.Lock()
			if m.closed {
				m.mu.Unlock()
				return
			}

			if next < uint64(len(m.blocks)) {
				header := m.blocks[next].header
				m.mu.Unlock()

				select {
				case ch <- HeaderResult{Header: header}:
					next++
				case <-ctx.Done():
					return
				}
				continue
			}

			wait := m.sealed
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

// Close ends every header stream and rejects further use.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.closed = true
	close(m.sealed)
}
