package public

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/adamwoolhether/rollup/foundation/rollup/executor"
	"github.com/adamwoolhether/rollup/foundation/rollup/proof"
)

// Proofs keeps the proofs of the most recently executed blocks.
type Proofs struct {
	cache *lru.Cache[uint64, proof.Proof]
}

// NewProofs constructs a cache holding up to size proofs.
func NewProofs(size int) (*Proofs, error) {
	cache, err := lru.New[uint64, proof.Proof](size)
	if err != nil {
		return nil, fmt.Errorf("constructing proof cache: %w", err)
	}

	return &Proofs{cache: cache}, nil
}

// Feed adds the proof of every update until the channel is closed.
func (p *Proofs) Feed(updates <-chan executor.Update) {
	for update := range updates {
		p.cache.Add(update.Block, update.Proof)
	}
}

// Get returns the proof of the block at height.
func (p *Proofs) Get(height uint64) (proof.Proof, bool) {
	return p.cache.Get(height)
}
