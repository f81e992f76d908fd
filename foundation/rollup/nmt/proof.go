package nmt

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrVerification is returned when a namespace proof doesn't match the
// root and namespace it is checked against.
var ErrVerification = errors.New("namespace proof verification failed")

// Neighbor is a leaf bordering the namespace range. Its namespace proves
// the range can't be extended on that side.
type Neighbor struct {
	Namespace   NamespaceID   `json:"namespace"`
	PayloadHash common.Hash   `json:"payload_hash"`
	Path        []common.Hash `json:"path"`
}

// NamespaceProof shows that Leaves are exactly the leaves of a namespace
// within a block.
type NamespaceProof struct {
	Namespace NamespaceID     `json:"namespace"`
	Size      uint64          `json:"size"`
	Start     uint64          `json:"start"`
	Leaves    []hexutil.Bytes `json:"leaves"`
	Paths     [][]common.Hash `json:"paths"`
	Left      *Neighbor       `json:"left,omitempty"`
	Right     *Neighbor       `json:"right,omitempty"`
}

// Payloads returns the transactions of the namespace in block order.
func (p NamespaceProof) Payloads() [][]byte {
	out := make([][]byte, len(p.Leaves))
	for i, l := range p.Leaves {
		out[i] = l
	}

	return out
}

// Verify checks the proof against the block root for the namespace.
func (p NamespaceProof) Verify(root Root, ns NamespaceID) error {
	if p.Namespace != ns {
		return fmt.Errorf("%w: proof for namespace %d, want %d", ErrVerification, p.Namespace, ns)
	}
	if len(p.Leaves) != len(p.Paths) {
		return fmt.Errorf("%w: %d leaves with %d paths", ErrVerification, len(p.Leaves), len(p.Paths))
	}

	end := p.Start + uint64(len(p.Leaves))
	if end > p.Size || end < p.Start {
		return fmt.Errorf("%w: range [%d,%d) outside block of %d leaves", ErrVerification, p.Start, end, p.Size)
	}

	if p.Size == 0 {
		if p.Left != nil || p.Right != nil {
			return fmt.Errorf("%w: neighbors in an empty block", ErrVerification)
		}
		if rootHash(0, common.Hash{}) != root {
			return fmt.Errorf("%w: root mismatch", ErrVerification)
		}
		return nil
	}

	d := depth(p.Size)
	var tree *common.Hash

	check := func(index uint64, leaf common.Hash, path []common.Hash) error {
		if len(path) != d {
			return fmt.Errorf("%w: path length %d for leaf %d, want %d", ErrVerification, len(path), index, d)
		}

		h := fold(index, leaf, path)
		switch {
		case tree == nil:
			tree = &h
		case *tree != h:
			return fmt.Errorf("%w: leaf %d not in tree", ErrVerification, index)
		}
		return nil
	}

	for i, payload := range p.Leaves {
		index := p.Start + uint64(i)
		if err := check(index, leafHash(ns, crypto.Keccak256Hash(payload)), p.Paths[i]); err != nil {
			return err
		}
	}

	switch {
	case p.Start == 0 && p.Left != nil:
		return fmt.Errorf("%w: left neighbor at start of block", ErrVerification)
	case p.Start > 0 && p.Left == nil:
		return fmt.Errorf("%w: missing left neighbor", ErrVerification)
	case p.Left != nil:
		if p.Left.Namespace >= ns {
			return fmt.Errorf("%w: left neighbor namespace %d", ErrVerification, p.Left.Namespace)
		}
		if err := check(p.Start-1, leafHash(p.Left.Namespace, p.Left.PayloadHash), p.Left.Path); err != nil {
			return err
		}
	}

	switch {
	case end == p.Size && p.Right != nil:
		return fmt.Errorf("%w: right neighbor at end of block", ErrVerification)
	case end < p.Size && p.Right == nil:
		return fmt.Errorf("%w: missing right neighbor", ErrVerification)
	case p.Right != nil:
		if p.Right.Namespace <= ns {
			return fmt.Errorf("%w: right neighbor namespace %d", ErrVerification, p.Right.Namespace)
		}
		if err := check(end, leafHash(p.Right.Namespace, p.Right.PayloadHash), p.Right.Path); err != nil {
			return err
		}
	}

	if tree == nil {
		return fmt.Errorf("%w: nothing to anchor the proof", ErrVerification)
	}

	if rootHash(p.Size, *tree) != root {
		return fmt.Errorf("%w: root mismatch", ErrVerification)
	}

	return nil
}

// fold walks a merkle path from a leaf to the tree root.
func fold(index uint64, h common.Hash, path []common.Hash) common.Hash {
	for _, sibling := range path {
		if index%2 == 0 {
			h = nodeHash(h, sibling)
		} else {
			h = nodeHash(sibling, h)
		}
		index /= 2
	}

	return h
}
