// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/adamwoolhether/rollup/foundation/rollup/nmt"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date      time.Time         `json:"date"`
	Namespace nmt.NamespaceID   `json:"namespace"` // Namespace the rollup reads from the sequencer.
	Balances  map[string]uint64 `json:"balances"`
}

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("unmarshal genesis: %w", err)
	}

	if _, err := genesis.Accounts(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Accounts returns the initial balances keyed by address.
func (g Genesis) Accounts() (map[common.Address]uint64, error) {
	accounts := make(map[common.Address]uint64, len(g.Balances))
	for addrStr, balance := range g.Balances {
		if !common.IsHexAddress(addrStr) {
			return nil, fmt.Errorf("genesis balance for %q: invalid address", addrStr)
		}

		addr := common.HexToAddress(addrStr)
		if _, exists := accounts[addr]; exists {
			return nil, fmt.Errorf("genesis balance for %s: duplicate address", addr)
		}
		accounts[addr] = balance
	}

	return accounts, nil
}
