// Package consensus provides access to the sequencer that orders the
// transactions of every rollup sharing it into namespaced blocks.
package consensus

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/adamwoolhether/rollup/foundation/rollup/commit"
	"github.com/adamwoolhether/rollup/foundation/rollup/nmt"
)

// Set of errors returned by sequencer implementations.
var (
	ErrNotFound = errors.New("block not found")
	ErrClosed   = errors.New("sequencer closed")
)

// Header is the part of a sequenced block the rollup follows.
type Header struct {
	Height           uint64    `json:"height"`
	TransactionsRoot nmt.Root  `json:"transactions_root"`
	Timestamp        time.Time `json:"timestamp"`
}

// Commit returns the commitment to the block's transactions root, the value
// the settlement contract records for the block.
func (h Header) Commit() commit.Commitment {
	return h.TransactionsRoot.Commit()
}

// HeaderResult is an item of a header stream. A result carrying an error is
// the last item of its stream.
type HeaderResult struct {
	Header Header
	Err    error
}

// Transaction is the unit submitted to the sequencer. The payload is opaque
// to the sequencer.
type Transaction struct {
	Namespace nmt.NamespaceID `json:"namespace"`
	Payload   hexutil.Bytes   `json:"payload"`
}
