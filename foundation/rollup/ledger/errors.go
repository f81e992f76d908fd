package ledger

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Set of errors a transaction can be rejected with. Rejections never
// change the state.
var (
	ErrBadSignature    = errors.New("bad signature")
	ErrBalanceOverflow = errors.New("destination balance overflow")
)

// InsufficientBalanceError means the sender can't cover the amount, or
// has no account at all.
type InsufficientBalanceError struct {
	Address common.Address
}

// Error implements the error interface.
func (ie *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s", ie.Address)
}

// InvalidNonceError means the transaction nonce isn't the sender's next one.
type InvalidNonceError struct {
	Address  common.Address
	Expected uint64
	Actual   uint64
}

// Error implements the error interface.
func (ie *InvalidNonceError) Error() string {
	return fmt.Sprintf("invalid nonce for %s, got %d, exp %d", ie.Address, ie.Actual, ie.Expected)
}
