// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/adamwoolhether/rollup/business/sys/validate"
	v1 "github.com/adamwoolhether/rollup/business/web/v1"
	"github.com/adamwoolhether/rollup/foundation/rollup/consensus"
	"github.com/adamwoolhether/rollup/foundation/rollup/executor"
	"github.com/adamwoolhether/rollup/foundation/rollup/ledger"
	"github.com/adamwoolhether/rollup/foundation/web"
)

// Sequencer accepts the transactions forwarded to the consensus layer.
type Sequencer interface {
	Submit(ctx context.Context, tx consensus.Transaction) error
}

// Observer hands out the updates the executor publishes after every block.
type Observer interface {
	Subscribe(buffer int) (string, <-chan executor.Update)
	Unsubscribe(id string) error
}

// Handlers manages the set of rollup endpoints.
type Handlers struct {
	Log       *zap.SugaredLogger
	Ledger    ledger.Reader
	Sequencer Sequencer
	Proofs    *Proofs
	Observer  Observer
	WS        websocket.Upgrader
}

// Submit forwards a signed transaction to the sequencer under the rollup's
// namespace. The ledger decides later whether it applies.
func (h Handlers) Submit(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var nt NewTx
	if err := web.Decode(r, &nt); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	if err := validate.Check(nt); err != nil {
		return err
	}

	tx := consensus.Transaction{
		Namespace: h.Ledger.Namespace(),
		Payload:   nt.toSignedTransaction().Encode(),
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "nonce", nt.Transaction.Nonce, "to", nt.Transaction.Destination, "amount", nt.Transaction.Amount)

	if err := h.Sequencer.Submit(ctx, tx); err != nil {
		return v1.NewRequestError(fmt.Errorf("forwarding to sequencer: %w", err), http.StatusBadGateway)
	}

	resp := submitted{
		Status:    "accepted",
		Namespace: tx.Namespace,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Balance returns the balance of an account, zero when it is unknown.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	addr, err := address(r)
	if err != nil {
		return err
	}

	resp := amount{
		Address: addr.Hex(),
		Amount:  h.Ledger.Balance(addr),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Nonce returns the nonce of an account, zero when it is unknown.
func (h Handlers) Nonce(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	addr, err := address(r)
	if err != nil {
		return err
	}

	resp := amount{
		Address: addr.Hex(),
		Amount:  h.Ledger.Nonce(addr),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// State returns the current state commitment of the rollup.
func (h Handlers) State(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := stateInfo{
		Namespace: h.Ledger.Namespace(),
		State:     h.Ledger.Commit(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Accounts returns every account of a consistent snapshot of the ledger.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	snap := h.Ledger.Snapshot()

	resp := accountList{
		State:    snap.Commit(),
		Accounts: snap.Accounts(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Proof returns the proof generated for the block at the given height.
func (h Handlers) Proof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := strconv.ParseUint(web.Param(r, "height"), 10, 64)
	if err != nil {
		return v1.NewRequestError(fmt.Errorf("invalid height: %w", err), http.StatusBadRequest)
	}

	prf, ok := h.Proofs.Get(height)
	if !ok {
		return v1.NewRequestError(fmt.Errorf("no proof for block %d", height), http.StatusNotFound)
	}

	return web.Respond(ctx, w, prf, http.StatusOK)
}

// Events streams the executor's block updates over a websocket.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// The upgrader has already replied to the client when this fails.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Infow("events", "traceid", v.TraceID, "status", "upgrade failed", "ERROR", err)
		return nil
	}
	defer c.Close()

	id, ch := h.Observer.Subscribe(100)
	defer h.Observer.Unsubscribe(id)

	// Reading detects the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case update, open := <-ch:
			if !open {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "executor stopped")
				c.WriteMessage(websocket.CloseMessage, msg)
				return nil
			}
			if err := c.WriteJSON(update); err != nil {
				h.Log.Infow("events", "traceid", v.TraceID, "status", "write failed", "ERROR", err)
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}

		case <-gone:
			return nil

		case <-ctx.Done():
			return nil
		}
	}
}

func address(r *http.Request) (common.Address, error) {
	s := web.Param(r, "address")
	if !common.IsHexAddress(s) {
		return common.Address{}, v1.NewRequestError(errors.New("invalid account address"), http.StatusBadRequest)
	}

	return common.HexToAddress(s), nil
}
