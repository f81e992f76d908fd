// Package devnet runs an in-process sequencer and layer one so a rollup node
// can operate without external systems.
package devnet

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/adamwoolhether/rollup/foundation/rollup/commit"
	"github.com/adamwoolhether/rollup/foundation/rollup/consensus"
	"github.com/adamwoolhether/rollup/foundation/rollup/settlement"
)

// EventHandler defines a function that is called when events
// occur in the processing of the devnet.
type EventHandler func(v string, args ...any)

// Config represents the systems the worker drives.
type Config struct {
	Sequencer     *consensus.Memory
	L1            *settlement.Memory
	Clock         clockwork.Clock
	BlockInterval time.Duration // Zero only produces blocks on SignalProduce.
	RangeSize     int           // Blocks recorded on the layer one per range event.
	EvHandler     EventHandler
}

// Worker manages the block production of the devnet. Sealed blocks are
// recorded on the layer one once RangeSize of them are pending.
type Worker struct {
	sequencer *consensus.Memory
	l1        *settlement.Memory
	rangeSize int
	wg        sync.WaitGroup
	ticker    clockwork.Ticker
	shut      chan struct{}
	produce   chan bool
	evHandler EventHandler

	mu      sync.Mutex
	pending []commit.Commitment
}

// Run creates a Worker and starts up all the background processes.
func Run(cfg Config) (*Worker, error) {
	switch {
	case cfg.Sequencer == nil:
		return nil, errors.New("sequencer is required")
	case cfg.L1 == nil:
		return nil, errors.New("layer one is required")
	}

	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.RangeSize <= 0 {
		cfg.RangeSize = 1
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	w := Worker{
		sequencer: cfg.Sequencer,
		l1:        cfg.L1,
		rangeSize: cfg.RangeSize,
		shut:      make(chan struct{}),
		produce:   make(chan bool, 1),
		evHandler: ev,
	}

	// Load the set of operations needed to run.
	operations := []func(){
		w.produceOperations,
	}

	if cfg.BlockInterval > 0 {
		w.ticker = cfg.Clock.NewTicker(cfg.BlockInterval)
		operations = append(operations, w.tickerOperations)
	}

	// Set waitgroup to match the number of G's needed
	// for the set of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// Don't return until all G's are up and running.
	hasStarted := make(chan bool)

	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w, nil
}

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("devnet: Shutdown: started")
	defer w.evHandler("devnet: Shutdown: completed")

	if w.ticker != nil {
		w.evHandler("devnet: Shutdown: stop ticker")
		w.ticker.Stop()
	}

	w.evHandler("devnet: Shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalProduce starts a block production. If there is already a signal
// pending in the channel, just return since a production will start.
func (w *Worker) SignalProduce() {
	select {
	case w.produce <- true:
	default:
	}
	w.evHandler("devnet: SignalProduce: production signaled")
}

// Pending returns the number of sealed blocks not yet recorded on the
// layer one.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.pending)
}

// =============================================================================

// tickerOperations signals a block production on every tick.
func (w *Worker) tickerOperations() {
	w.evHandler("devnet: tickerOperations: G started")
	defer w.evHandler("devnet: tickerOperations: G completed")

	for {
		select {
		case <-w.ticker.Chan():
			if !w.isShutdown() {
				w.SignalProduce()
			}
		case <-w.shut:
			w.evHandler("devnet: tickerOperations: received shut signal")
			return
		}
	}
}

// produceOperations handles block production.
func (w *Worker) produceOperations() {
	w.evHandler("devnet: produceOperations: G started")
	defer w.evHandler("devnet: produceOperations: G completed")

	for {
		select {
		case <-w.produce:
			if !w.isShutdown() {
				w.runProduceOperation()
			}
		case <-w.shut:
			w.evHandler("devnet: produceOperations: received shut signal")
			return
		}
	}
}

// runProduceOperation seals the sequencer's pending transactions into a
// block and records a range once enough blocks are pending.
func (w *Worker) runProduceOperation() {
	header, err := w.sequencer.Produce()
	if err != nil {
		w.evHandler("devnet: runProduceOperation: ERROR: %s", err)
		return
	}
	w.evHandler("devnet: runProduceOperation: sealed block[%d] root[%s]", header.Height, header.TransactionsRoot)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, header.Commit())
	if len(w.pending) < w.rangeSize {
		return
	}

	ev, err := w.l1.RecordBlocks(w.pending)
	if err != nil {
		w.evHandler("devnet: runProduceOperation: ERROR: recording range: %s", err)
		return
	}
	w.pending = nil

	w.evHandler("devnet: runProduceOperation: recorded range first[%d] num[%d]", ev.FirstBlock, ev.NumBlocks)
}

// isShutdown is used to test if a Shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
