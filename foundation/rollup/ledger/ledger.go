package ledger

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/adamwoolhether/rollup/foundation/rollup/commit"
	"github.com/adamwoolhether/rollup/foundation/rollup/nmt"
)

// Reader is the read only view of the ledger served to clients. Separate
// calls may observe different blocks, Snapshot gives a consistent view.
type Reader interface {
	Namespace() nmt.NamespaceID
	Balance(addr common.Address) uint64
	Nonce(addr common.Address) uint64
	Commit() commit.Commitment
	Snapshot() *State
}

// Ledger guards a State for one writer and any number of readers. Readers
// only wait on a block being applied.
type Ledger struct {
	mu    sync.RWMutex
	state *State
}

// New constructs a ledger starting from the specified state.
func New(state *State) *Ledger {
	return &Ledger{
		state: state,
	}
}

// Namespace returns the namespace the rollup executes.
func (l *Ledger) Namespace() nmt.NamespaceID {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.state.namespace
}

// Balance returns the balance of the account.
func (l *Ledger) Balance(addr common.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.state.Balance(addr)
}

// Nonce returns the last nonce used by the account.
func (l *Ledger) Nonce(addr common.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.state.Nonce(addr)
}

// Commit returns the commitment to the current state.
func (l *Ledger) Commit() commit.Commitment {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.state.Commit()
}

// Snapshot returns a copy of the current state.
func (l *Ledger) Snapshot() *State {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.state.Copy()
}

// ExecuteBlock applies the block under the write lock. The block runs
// against a copy that replaces the state only on success, so a failed block
// leaves the ledger at the last good state.
func (l *Ledger) ExecuteBlock(root nmt.Root, nsProof nmt.NamespaceProof, log *zap.SugaredLogger) (Execution, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state.Copy()

	exec, err := next.ExecuteBlock(root, nsProof, log)
	if err != nil {
		return Execution{}, err
	}
	l.state = next

	return exec, nil
}
