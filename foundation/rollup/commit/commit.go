// Package commit provides the fixed size commitments that chain the rollup
// state, the block roots and the proofs together.
package commit

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// ErrInvalidCommitment is returned when a value can't be represented
// as a commitment.
var ErrInvalidCommitment = errors.New("invalid commitment")

// Commitment is a keccak256 digest binding some structured value.
type Commitment [32]byte

// String returns the 0x prefixed hex form of the commitment.
func (c Commitment) String() string {
	return hexutil.Encode(c[:])
}

// IsZero reports whether no value has been committed.
func (c Commitment) IsZero() bool {
	return c == Commitment{}
}

// MarshalText implements encoding.TextMarshaler.
func (c Commitment) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Commitment) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCommitment, err)
	}
	if len(b) != len(c) {
		return fmt.Errorf("%w: length %d", ErrInvalidCommitment, len(b))
	}

	copy(c[:], b)
	return nil
}

// U256 returns the commitment as the unsigned 256 bit integer the
// settlement contract stores.
func (c Commitment) U256() *uint256.Int {
	return new(uint256.Int).SetBytes32(c[:])
}

// Big returns the commitment as a big.Int for contract calls.
func (c Commitment) Big() *big.Int {
	return c.U256().ToBig()
}

// FromBig converts a uint256 value read from the settlement contract
// back into a commitment.
func FromBig(b *big.Int) (Commitment, error) {
	if b == nil || b.Sign() < 0 {
		return Commitment{}, fmt.Errorf("%w: negative or nil value", ErrInvalidCommitment)
	}

	v, overflow := uint256.FromBig(b)
	if overflow {
		return Commitment{}, fmt.Errorf("%w: value exceeds 256 bits", ErrInvalidCommitment)
	}

	return Commitment(v.Bytes32()), nil
}

// =============================================================================

// Builder accumulates named fields into a commitment. Every field is
// length prefixed so distinct field sequences can't collide.
type Builder struct {
	state crypto.KeccakState
}

// NewBuilder starts a commitment in the domain named by tag.
func NewBuilder(tag string) *Builder {
	b := Builder{
		state: crypto.NewKeccakState(),
	}
	b.bytes([]byte(tag))

	return &b
}

// U64 adds an integer field.
func (b *Builder) U64(name string, v uint64) *Builder {
	b.bytes([]byte(name))
	b.u64(v)

	return b
}

// Fixed adds a commitment field.
func (b *Builder) Fixed(name string, c Commitment) *Builder {
	b.bytes([]byte(name))
	b.state.Write(c[:])

	return b
}

// Var adds a variable length byte field.
func (b *Builder) Var(name string, data []byte) *Builder {
	b.bytes([]byte(name))
	b.bytes(data)

	return b
}

// Array adds a list of commitments. An optional commitment is
// expressed as an array of zero or one entries.
func (b *Builder) Array(name string, cs []Commitment) *Builder {
	b.bytes([]byte(name))
	b.u64(uint64(len(cs)))
	for _, c := range cs {
		b.state.Write(c[:])
	}

	return b
}

// Finalize returns the commitment over all the fields added so far.
func (b *Builder) Finalize() Commitment {
	var c Commitment
	b.state.Read(c[:])

	return c
}

func (b *Builder) u64(v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	b.state.Write(buf[:])
}

func (b *Builder) bytes(data []byte) {
	b.u64(uint64(len(data)))
	b.state.Write(data)
}

// Optional returns the array form of an optional commitment.
func Optional(c *Commitment) []Commitment {
	if c == nil {
		return nil
	}

	return []Commitment{*c}
}
