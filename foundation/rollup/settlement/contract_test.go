package settlement

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/rollup/foundation/rollup/commit"
	"github.com/adamwoolhether/rollup/foundation/rollup/proof"
)

func sequencer(t *testing.T) (abi.ABI, *bind.BoundContract) {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader(SequencerABI))
	require.NoError(t, err)

	return parsed, bind.NewBoundContract(common.Address{}, parsed, nil, nil, nil)
}

func newBlocks(t *testing.T, parsed abi.ABI, first *big.Int, num *big.Int) types.Log {
	t.Helper()

	ev := parsed.Events["NewBlocks"]
	data, err := ev.Inputs.Pack(first, num)
	require.NoError(t, err)

	return types.Log{Topics: []common.Hash{ev.ID}, Data: data}
}

func TestParseRange(t *testing.T) {
	parsed, contract := sequencer(t)

	er := parseRange(parsed, contract, newBlocks(t, parsed, big.NewInt(10), big.NewInt(3)))
	require.NoError(t, er.Err)
	require.Equal(t, RangeEvent{FirstBlock: 10, NumBlocks: 3}, er.Event)
}

func TestParseRangeMalformed(t *testing.T) {
	parsed, contract := sequencer(t)

	huge := new(big.Int).Lsh(big.NewInt(1), 70)

	removed := newBlocks(t, parsed, big.NewInt(1), big.NewInt(1))
	removed.Removed = true

	truncated := newBlocks(t, parsed, big.NewInt(1), big.NewInt(1))
	truncated.Data = truncated.Data[:40]

	tests := map[string]types.Log{
		"removed":     removed,
		"no topics":   {Data: removed.Data},
		"wrong topic": {Topics: []common.Hash{{1}}, Data: removed.Data},
		"truncated":   truncated,
		"overflow":    newBlocks(t, parsed, huge, big.NewInt(1)),
	}

	for name, lg := range tests {
		t.Run(name, func(t *testing.T) {
			er := parseRange(parsed, contract, lg)
			require.Error(t, er.Err)
		})
	}
}

func TestVerifyBlocksPacking(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(RollupABI))
	require.NoError(t, err)

	c := func(v uint64) commit.Commitment {
		return commit.NewBuilder("TEST").U64("v", v).Finalize()
	}
	bp := proof.BatchProof{FirstBlock: c(1), LastBlock: c(2), OldState: c(3), NewState: c(4)}

	data, err := parsed.Pack("verifyBlocks", uint64(2), bp.NewState.Big(), bp.Contract())
	require.NoError(t, err)

	// Selector, count, next state and the four static tuple words.
	require.Len(t, data, 4+32*6)

	args, err := parsed.Methods["verifyBlocks"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Equal(t, uint64(2), args[0].(uint64))
	require.Equal(t, 0, bp.NewState.Big().Cmp(args[1].(*big.Int)))
}

func TestWatchOptsReplayFromGenesis(t *testing.T) {
	ctx := context.Background()

	// A restarted node replays every range since layer one genesis by default.
	opts := (&Contract{}).watchOpts(ctx)
	require.NotNil(t, opts.Start)
	require.Equal(t, uint64(0), *opts.Start)
	require.Equal(t, ctx, opts.Context)

	opts = (&Contract{startBlock: 42}).watchOpts(ctx)
	require.NotNil(t, opts.Start)
	require.Equal(t, uint64(42), *opts.Start)

	opts = (&Contract{startBlock: 42, fromHead: true}).watchOpts(ctx)
	require.Nil(t, opts.Start)
}
