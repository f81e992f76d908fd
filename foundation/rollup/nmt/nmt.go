// Package nmt implements a namespaced merkle tree. A block carries the
// transactions of every rollup sharing the sequencer; leaves are kept in
// namespace order so a rollup can be handed exactly its own transactions
// together with a proof that nothing was left out.
package nmt

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/adamwoolhether/rollup/foundation/rollup/commit"
)

// Hash prefixes keep leaves, inner nodes and roots in separate domains.
const (
	leafPrefix = 0x00
	nodePrefix = 0x01
	rootPrefix = 0x02
)

// NamespaceID identifies the rollup a transaction belongs to.
type NamespaceID uint64

// Leaf is a single transaction payload tagged with its namespace.
type Leaf struct {
	Namespace NamespaceID
	Payload   []byte
}

// Hash returns the leaf hash.
func (l Leaf) Hash() common.Hash {
	return leafHash(l.Namespace, crypto.Keccak256Hash(l.Payload))
}

// =============================================================================

// Root is the commitment to the full set of leaves of a block.
type Root [32]byte

// String returns the 0x prefixed hex form of the root.
func (r Root) String() string {
	return hexutil.Encode(r[:])
}

// MarshalText implements encoding.TextMarshaler.
func (r Root) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Root) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return err
	}
	if len(b) != len(r) {
		return fmt.Errorf("invalid root length %d", len(b))
	}

	copy(r[:], b)
	return nil
}

// Commit returns the block commitment recorded by the settlement
// ledger for a block with this root.
func (r Root) Commit() commit.Commitment {
	return commit.NewBuilder("NMT Root").
		Fixed("root", commit.Commitment(r)).
		Finalize()
}

// =============================================================================

// Tree is the container for the tree. It holds a pointer to the root of
// the tree, the leaf nodes in namespace order and the tree root.
type Tree struct {
	Root   Root
	Leaves []*Node
	root   *Node
	data   []Leaf
}

// Node represents a node, root, or leaf in the tree.
type Node struct {
	Parent *Node
	Left   *Node
	Right  *Node
	Hash   common.Hash
	leaf   *Leaf
}

// NewTree builds a tree over the leaves. Leaves are reordered by namespace,
// preserving the submission order within a namespace. An empty set of
// leaves is a valid, empty block.
func NewTree(leaves []Leaf) *Tree {
	data := make([]Leaf, len(leaves))
	copy(data, leaves)
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Namespace < data[j].Namespace
	})

	t := Tree{
		data: data,
	}

	if len(data) == 0 {
		t.Root = rootHash(0, common.Hash{})
		return &t
	}

	nodes := make([]*Node, len(data))
	for i := range data {
		nodes[i] = &Node{
			Hash: data[i].Hash(),
			leaf: &data[i],
		}
	}

	t.Leaves = nodes
	t.root = buildIntermediate(nodes)
	t.Root = rootHash(uint64(len(nodes)), t.root.Hash)

	return &t
}

// Size returns the number of leaves in the tree.
func (t *Tree) Size() int {
	return len(t.data)
}

// Namespace returns the payloads that belong to the namespace, in order.
func (t *Tree) Namespace(ns NamespaceID) [][]byte {
	start, end := t.span(ns)

	var out [][]byte
	for _, l := range t.data[start:end] {
		out = append(out, l.Payload)
	}

	return out
}

// MerklePath returns the sibling hashes from the leaf at index up to
// the root of the tree.
func (t *Tree) MerklePath(index int) []common.Hash {
	if index < 0 || index >= len(t.Leaves) {
		return nil
	}

	var path []common.Hash
	node := t.Leaves[index]
	for parent := node.Parent; parent != nil; parent = parent.Parent {
		switch {
		case parent.Left == node:
			path = append(path, parent.Right.Hash)
		default:
			path = append(path, parent.Left.Hash)
		}
		node = parent
	}

	return path
}

// Prove constructs the namespace proof for the specified namespace.
func (t *Tree) Prove(ns NamespaceID) NamespaceProof {
	start, end := t.span(ns)

	proof := NamespaceProof{
		Namespace: ns,
		Size:      uint64(len(t.data)),
		Start:     uint64(start),
	}

	for i := start; i < end; i++ {
		proof.Leaves = append(proof.Leaves, t.data[i].Payload)
		proof.Paths = append(proof.Paths, t.MerklePath(i))
	}

	if start > 0 {
		proof.Left = t.neighbor(start - 1)
	}
	if end < len(t.data) {
		proof.Right = t.neighbor(end)
	}

	return proof
}

// Verify recalculates every hash in the tree and compares the result
// against the stored root.
func (t *Tree) Verify() bool {
	if t.root == nil {
		return t.Root == rootHash(0, common.Hash{})
	}

	return rootHash(uint64(len(t.Leaves)), t.root.verifyNode()) == t.Root
}

// span returns the half open range of leaf indexes holding the namespace.
func (t *Tree) span(ns NamespaceID) (int, int) {
	start := sort.Search(len(t.data), func(i int) bool {
		return t.data[i].Namespace >= ns
	})
	end := sort.Search(len(t.data), func(i int) bool {
		return t.data[i].Namespace > ns
	})

	return start, end
}

func (t *Tree) neighbor(index int) *Neighbor {
	return &Neighbor{
		Namespace:   t.data[index].Namespace,
		PayloadHash: crypto.Keccak256Hash(t.data[index].Payload),
		Path:        t.MerklePath(index),
	}
}

// verifyNode walks down the tree until hitting a leaf, calculating the
// hash at each level and returning the resulting hash of the node.
func (n *Node) verifyNode() common.Hash {
	if n.leaf != nil {
		return n.leaf.Hash()
	}

	return nodeHash(n.Left.verifyNode(), n.Right.verifyNode())
}

// buildIntermediate constructs the levels above the given nodes and returns
// the root node. An odd node at the end of a level is paired with itself.
func buildIntermediate(nl []*Node) *Node {
	var nodes []*Node

	for i := 0; i < len(nl); i += 2 {
		left, right := nl[i], nl[i]
		if i+1 < len(nl) {
			right = nl[i+1]
		}

		n := Node{
			Left:  left,
			Right: right,
			Hash:  nodeHash(left.Hash, right.Hash),
		}
		left.Parent = &n
		right.Parent = &n

		nodes = append(nodes, &n)
	}

	if len(nodes) == 1 {
		return nodes[0]
	}

	return buildIntermediate(nodes)
}

// =============================================================================

func leafHash(ns NamespaceID, payloadHash common.Hash) common.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(ns))

	return crypto.Keccak256Hash([]byte{leafPrefix}, buf[:], payloadHash[:])
}

func nodeHash(left, right common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte{nodePrefix}, left[:], right[:])
}

func rootHash(size uint64, tree common.Hash) Root {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], size)

	return Root(crypto.Keccak256Hash([]byte{rootPrefix}, buf[:], tree[:]))
}

// depth returns the length of every merkle path in a tree of size leaves.
func depth(size uint64) int {
	d := 0
	for m := size; m > 1; m = (m + 1) / 2 {
		d++
	}
	if d == 0 {
		return 1
	}

	return d
}
