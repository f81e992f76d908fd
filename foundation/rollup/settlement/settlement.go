// Package settlement provides access to the layer one contracts that record
// the sequenced block commitments and verify the rollup's batch proofs.
package settlement

import (
	"errors"
)

// Set of errors returned by settlement implementations.
var (
	ErrNotFound      = errors.New("block commitment not recorded")
	ErrStateMismatch = errors.New("old state doesn't match the contract state")
	ErrBlockMismatch = errors.New("batch blocks don't match the recorded commitments")
	ErrNoBlocks      = errors.New("not enough recorded blocks")
	ErrClosed        = errors.New("settlement closed")
)

// RangeEvent announces that the sequencer contract accepted a range of new
// block commitments.
type RangeEvent struct {
	FirstBlock uint64 `json:"first_block"`
	NumBlocks  uint64 `json:"num_blocks"`
}

// EventResult is an item of the range event stream. An item carrying an
// error is a malformed event, the stream goes on after it.
type EventResult struct {
	Event RangeEvent
	Err   error
}
