// Package ledger maintains the account balances and nonces of the rollup
// and the commitment chaining each state to the block that produced it.
package ledger

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"go.uber.org/zap"

	"github.com/adamwoolhether/rollup/foundation/rollup/commit"
	"github.com/adamwoolhether/rollup/foundation/rollup/nmt"
	"github.com/adamwoolhether/rollup/foundation/rollup/proof"
	"github.com/adamwoolhether/rollup/foundation/rollup/transaction"
)

// Account represents the information stored for an individual account.
type Account struct {
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// AccountInfo pairs an account with its address for listings.
type AccountInfo struct {
	Address common.Address `json:"address"`
	Balance uint64         `json:"balance"`
	Nonce   uint64         `json:"nonce"`
}

// Execution is the outcome of applying one block.
type Execution struct {
	Proof    proof.Proof
	Applied  int
	Rejected int
}

// State is the account table plus the pointers chaining it to the block
// that produced it. It is not safe for concurrent use, see Ledger.
type State struct {
	accounts  map[common.Address]Account
	lastBlock *commit.Commitment
	prevState *commit.Commitment
	namespace nmt.NamespaceID
}

// NewState constructs the genesis state for the rollup reading namespace ns.
func NewState(ns nmt.NamespaceID, balances map[common.Address]uint64) *State {
	accounts := make(map[common.Address]Account, len(balances))
	for addr, balance := range balances {
		accounts[addr] = Account{Balance: balance}
	}

	return &State{
		accounts:  accounts,
		namespace: ns,
	}
}

// Namespace returns the namespace the rollup executes.
func (s *State) Namespace() nmt.NamespaceID {
	return s.namespace
}

// Balance returns the balance of the account, zero if it doesn't exist.
func (s *State) Balance(addr common.Address) uint64 {
	return s.accounts[addr].Balance
}

// Nonce returns the nonce of the last transaction the account sent, zero if
// it doesn't exist.
func (s *State) Nonce(addr common.Address) uint64 {
	return s.accounts[addr].Nonce
}

// Accounts returns every account sorted by address.
func (s *State) Accounts() []AccountInfo {
	infos := make([]AccountInfo, 0, len(s.accounts))
	for addr, acct := range s.accounts {
		infos = append(infos, AccountInfo{Address: addr, Balance: acct.Balance, Nonce: acct.Nonce})
	}

	sort.Slice(infos, func(i, j int) bool {
		return bytes.Compare(infos[i].Address[:], infos[j].Address[:]) < 0
	})

	return infos
}

// Commit returns the commitment to the full state.
func (s *State) Commit() commit.Commitment {

	// Encoding fixed size fields can't fail.
	accounts, _ := rlp.EncodeToBytes(s.Accounts())

	return commit.NewBuilder("Rollup State").
		Array("block_hash", commit.Optional(s.lastBlock)).
		Array("prev_state_commitment", commit.Optional(s.prevState)).
		Var("accounts", accounts).
		U64("namespace id", uint64(s.namespace)).
		Finalize()
}

// Copy returns a deep copy of the state.
func (s *State) Copy() *State {
	accounts := make(map[common.Address]Account, len(s.accounts))
	for addr, acct := range s.accounts {
		accounts[addr] = acct
	}

	cpy := State{
		accounts:  accounts,
		namespace: s.namespace,
	}
	if s.lastBlock != nil {
		lb := *s.lastBlock
		cpy.lastBlock = &lb
	}
	if s.prevState != nil {
		ps := *s.prevState
		cpy.prevState = &ps
	}

	return &cpy
}

// ApplyTransaction moves the amount from the sender to the destination and
// bumps the sender's nonce. On error the state is unchanged.
func (s *State) ApplyTransaction(stx transaction.SignedTransaction) error {
	from, err := stx.Recover()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBadSignature, err)
	}

	tx := stx.Transaction

	fromAcct, exists := s.accounts[from]
	if !exists {
		return &InsufficientBalanceError{Address: from}
	}

	if tx.Nonce != fromAcct.Nonce+1 {
		return &InvalidNonceError{Address: from, Expected: fromAcct.Nonce + 1, Actual: tx.Nonce}
	}

	if tx.Amount > fromAcct.Balance {
		return &InsufficientBalanceError{Address: from}
	}

	if tx.Destination != from && s.accounts[tx.Destination].Balance > math.MaxUint64-tx.Amount {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, tx.Destination)
	}

	fromAcct.Balance -= tx.Amount
	fromAcct.Nonce = tx.Nonce
	s.accounts[from] = fromAcct

	// Read the destination after the sender is stored so a transfer to self
	// only moves the nonce.
	toAcct := s.accounts[tx.Destination]
	toAcct.Balance += tx.Amount
	s.accounts[tx.Destination] = toAcct

	return nil
}

// ExecuteBlock applies this namespace's transactions from the block in order.
// Transactions that fail to decode or apply are logged and skipped. A
// namespace proof that doesn't verify against the root fails the block with a
// *proof.VerificationError, in which case the state must be discarded.
func (s *State) ExecuteBlock(root nmt.Root, nsProof nmt.NamespaceProof, log *zap.SugaredLogger) (Execution, error) {
	oldState := s.Commit()

	var exec Execution
	for i, payload := range nsProof.Payloads() {
		stx, err := transaction.DecodeSigned(payload)
		if err != nil {
			log.Infow("execute block", "status", "malformed transaction", "root", root, "index", i, "ERROR", err)
			exec.Rejected++
			continue
		}

		if err := s.ApplyTransaction(stx); err != nil {
			log.Infow("execute block", "status", "transaction rejected", "root", root, "index", i, "ERROR", err)
			exec.Rejected++
			continue
		}

		exec.Applied++
	}

	lastBlock := root.Commit()
	s.lastBlock = &lastBlock
	s.prevState = &oldState

	p, err := proof.Generate(root, s.Commit(), oldState, nsProof, s.namespace)
	if err != nil {
		return Execution{}, err
	}
	exec.Proof = p

	return exec, nil
}
