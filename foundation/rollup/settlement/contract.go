package settlement

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/adamwoolhether/rollup/foundation/rollup/commit"
	"github.com/adamwoolhether/rollup/foundation/rollup/proof"
)

// SequencerABI is the part of the sequencer contract the rollup uses.
const SequencerABI = `[
	{"type":"function","name":"commitments","stateMutability":"view",
	 "inputs":[{"name":"blockNumber","type":"uint256"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"NewBlocks","anonymous":false,
	 "inputs":[{"name":"firstBlockNumber","type":"uint256","indexed":false},
	           {"name":"numBlocks","type":"uint256","indexed":false}]}
]`

// RollupABI is the part of the rollup contract the rollup uses.
const RollupABI = `[
	{"type":"function","name":"stateCommitment","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"numVerifiedBlocks","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"verifyBlocks","stateMutability":"nonpayable",
	 "inputs":[{"name":"count","type":"uint64"},
	           {"name":"nextStateCommitment","type":"uint256"},
	           {"name":"proof","type":"tuple","components":[
	               {"name":"firstBlock","type":"uint256"},
	               {"name":"lastBlock","type":"uint256"},
	               {"name":"oldState","type":"uint256"},
	               {"name":"newState","type":"uint256"}]}],
	 "outputs":[]}
]`

// newBlocksLog is the unpacked NewBlocks event.
type newBlocksLog struct {
	FirstBlockNumber *big.Int
	NumBlocks        *big.Int
}

// ContractConfig locates the layer one and the two contracts.
type ContractConfig struct {
	URL              string // Websocket endpoint, event subscriptions need it.
	SequencerAddress common.Address
	RollupAddress    common.Address
	PrivateKey       *ecdsa.PrivateKey // Pays for verifyBlocks.
	StartBlock       uint64            // First layer one block scanned for events.
	FromHead         bool              // Only follow new events, past ranges are not replayed.
}

// Contract talks to the contracts deployed on the layer one.
type Contract struct {
	client       *ethclient.Client
	sequencerABI abi.ABI
	sequencer    *bind.BoundContract
	rollup       *bind.BoundContract
	auth         *bind.TransactOpts
	startBlock   uint64
	fromHead     bool
	log          *zap.SugaredLogger
}

// Dial connects to the layer one node.
func Dial(ctx context.Context, cfg ContractConfig, log *zap.SugaredLogger) (*Contract, error) {
	sequencerABI, err := abi.JSON(strings.NewReader(SequencerABI))
	if err != nil {
		return nil, fmt.Errorf("parsing sequencer abi: %w", err)
	}

	rollupABI, err := abi.JSON(strings.NewReader(RollupABI))
	if err != nil {
		return nil, fmt.Errorf("parsing rollup abi: %w", err)
	}

	client, err := ethclient.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", cfg.URL, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("reading chain id: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(cfg.PrivateKey, chainID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("creating transactor: %w", err)
	}

	c := Contract{
		client:       client,
		sequencerABI: sequencerABI,
		sequencer:    bind.NewBoundContract(cfg.SequencerAddress, sequencerABI, client, client, client),
		rollup:       bind.NewBoundContract(cfg.RollupAddress, rollupABI, client, client, client),
		auth:         auth,
		startBlock:   cfg.StartBlock,
		fromHead:     cfg.FromHead,
		log:          log,
	}

	return &c, nil
}

// Close disconnects from the layer one node.
func (c *Contract) Close() {
	c.client.Close()
}

// Commitment reads the commitment the sequencer contract recorded for the block.
func (c *Contract) Commitment(ctx context.Context, block uint64) (commit.Commitment, error) {
	var out []any
	if err := c.sequencer.Call(&bind.CallOpts{Context: ctx}, &out, "commitments", new(big.Int).SetUint64(block)); err != nil {
		return commit.Commitment{}, fmt.Errorf("reading commitment %d: %w", block, err)
	}

	value := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if value.Sign() == 0 {
		return commit.Commitment{}, fmt.Errorf("block %d: %w", block, ErrNotFound)
	}

	return commit.FromBig(value)
}

// StateCommitment reads the last state the rollup contract verified.
func (c *Contract) StateCommitment(ctx context.Context) (commit.Commitment, error) {
	var out []any
	if err := c.rollup.Call(&bind.CallOpts{Context: ctx}, &out, "stateCommitment"); err != nil {
		return commit.Commitment{}, fmt.Errorf("reading state commitment: %w", err)
	}

	return commit.FromBig(*abi.ConvertType(out[0], new(*big.Int)).(**big.Int))
}

// Verified reads the number of blocks the rollup contract verified.
func (c *Contract) Verified(ctx context.Context) (uint64, error) {
	var out []any
	if err := c.rollup.Call(&bind.CallOpts{Context: ctx}, &out, "numVerifiedBlocks"); err != nil {
		return 0, fmt.Errorf("reading verified blocks: %w", err)
	}

	return *abi.ConvertType(out[0], new(uint64)).(*uint64), nil
}

// VerifyBlocks sends the batch to the rollup contract and waits for the
// transaction to be mined. A reverted transaction is an error.
func (c *Contract) VerifyBlocks(ctx context.Context, numBlocks uint64, state commit.Commitment, bp proof.BatchProof) error {
	opts := *c.auth
	opts.Context = ctx

	tx, err := c.rollup.Transact(&opts, "verifyBlocks", numBlocks, state.Big(), bp.Contract())
	if err != nil {
		return fmt.Errorf("sending verifyBlocks: %w", err)
	}

	c.log.Infow("verify blocks", "status", "sent", "tx", tx.Hash(), "num_blocks", numBlocks, "state", state)

	receipt, err := bind.WaitMined(ctx, c.client, tx)
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", tx.Hash(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("verifyBlocks %s reverted in block %d", tx.Hash(), receipt.BlockNumber)
	}

	return nil
}

// SubscribeRanges watches the NewBlocks events of the sequencer contract.
// The channel closes when the context is cancelled or the subscription fails.
func (c *Contract) SubscribeRanges(ctx context.Context) (<-chan EventResult, error) {
	logs, sub, err := c.sequencer.WatchLogs(c.watchOpts(ctx), "NewBlocks")
	if err != nil {
		return nil, fmt.Errorf("watching NewBlocks: %w", err)
	}

	ch := make(chan EventResult)

	go func() {
		defer close(ch)
		defer sub.Unsubscribe()

		for {
			var er EventResult
			select {
			case lg := <-logs:
				er = parseRange(c.sequencerABI, c.sequencer, lg)

			case err := <-sub.Err():
				if err != nil {
					c.log.Errorw("subscribe ranges", "status", "subscription ended", "ERROR", err)
				}
				return

			case <-ctx.Done():
				return
			}

			select {
			case ch <- er:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// watchOpts scans from the start block so a restarted node replays every
// range since genesis. A nil Start makes go-ethereum follow the head only.
func (c *Contract) watchOpts(ctx context.Context) *bind.WatchOpts {
	opts := bind.WatchOpts{Context: ctx}
	if !c.fromHead {
		start := c.startBlock
		opts.Start = &start
	}

	return &opts
}

// parseRange unpacks a NewBlocks log. Problems are reported through the
// result so the stream can go on.
func parseRange(sequencerABI abi.ABI, contract *bind.BoundContract, lg types.Log) EventResult {
	if lg.Removed {
		return EventResult{Err: fmt.Errorf("log %s/%d removed by reorg", lg.TxHash, lg.Index)}
	}

	if len(lg.Topics) == 0 || lg.Topics[0] != sequencerABI.Events["NewBlocks"].ID {
		return EventResult{Err: fmt.Errorf("log %s/%d is not a NewBlocks event", lg.TxHash, lg.Index)}
	}

	var nb newBlocksLog
	if err := contract.UnpackLog(&nb, "NewBlocks", lg); err != nil {
		return EventResult{Err: fmt.Errorf("unpacking NewBlocks: %w", err)}
	}

	if !nb.FirstBlockNumber.IsUint64() || !nb.NumBlocks.IsUint64() {
		return EventResult{Err: fmt.Errorf("NewBlocks range %s+%s out of range", nb.FirstBlockNumber, nb.NumBlocks)}
	}

	event := RangeEvent{
		FirstBlock: nb.FirstBlockNumber.Uint64(),
		NumBlocks:  nb.NumBlocks.Uint64(),
	}

	return EventResult{Event: event}
}
