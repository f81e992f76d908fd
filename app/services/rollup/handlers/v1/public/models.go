package public

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/adamwoolhether/rollup/foundation/rollup/commit"
	"github.com/adamwoolhether/rollup/foundation/rollup/ledger"
	"github.com/adamwoolhether/rollup/foundation/rollup/nmt"
	"github.com/adamwoolhether/rollup/foundation/rollup/transaction"
)

// NewTx is what a wallet submits: the transaction and the signature over
// its canonical encoding.
type NewTx struct {
	Transaction transaction.Transaction `json:"transaction"`
	Signature   hexutil.Bytes           `json:"signature" validate:"required,len=65"`
}

func (nt NewTx) toSignedTransaction() transaction.SignedTransaction {
	return transaction.SignedTransaction{
		Transaction: nt.Transaction,
		Signature:   nt.Signature,
	}
}

type submitted struct {
	Status    string          `json:"status"`
	Namespace nmt.NamespaceID `json:"namespace"`
}

type amount struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

type stateInfo struct {
	Namespace nmt.NamespaceID   `json:"namespace"`
	State     commit.Commitment `json:"state"`
}

type accountList struct {
	State    commit.Commitment    `json:"state"`
	Accounts []ledger.AccountInfo `json:"accounts"`
}
