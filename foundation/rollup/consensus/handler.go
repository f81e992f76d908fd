package consensus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dimfeld/httptreemux/v5"
	"github.com/gorilla/websocket"

	"github.com/adamwoolhether/rollup/foundation/rollup/nmt"
)

// Routes served by a sequencer and used by Client.
const (
	routeNamespace = "/availability/block/:height/namespace/:namespace"
	routeHeader    = "/availability/header/:height"
	routeStream    = "/availability/stream/headers/:from"
	routeSubmit    = "/submit/submit"
)

// Handler serves the sequencer over the same HTTP and websocket API a remote
// sequencer exposes, so Client can run against it.
func (m *Memory) Handler() http.Handler {
	mux := httptreemux.NewContextMux()

	mux.Handle(http.MethodGet, routeNamespace, m.handleNamespace)
	mux.Handle(http.MethodGet, routeHeader, m.handleHeader)
	mux.Handle(http.MethodGet, routeStream, m.handleStream)
	mux.Handle(http.MethodPost, routeSubmit, m.handleSubmit)

	return mux
}

func (m *Memory) handleNamespace(w http.ResponseWriter, r *http.Request) {
	params := httptreemux.ContextParams(r.Context())

	height, err := strconv.ParseUint(params["height"], 10, 64)
	if err != nil {
		http.Error(w, "invalid height", http.StatusBadRequest)
		return
	}
	ns, err := strconv.ParseUint(params["namespace"], 10, 64)
	if err != nil {
		http.Error(w, "invalid namespace", http.StatusBadRequest)
		return
	}

	proof, err := m.NamespaceProof(r.Context(), height, nmt.NamespaceID(ns))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, proof, http.StatusOK)
}

func (m *Memory) handleHeader(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(httptreemux.ContextParams(r.Context())["height"], 10, 64)
	if err != nil {
		http.Error(w, "invalid height", http.StatusBadRequest)
		return
	}

	header, err := m.Header(r.Context(), height)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, header, http.StatusOK)
}

func (m *Memory) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var tx Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		http.Error(w, "invalid transaction", http.StatusBadRequest)
		return
	}

	if err := m.Submit(r.Context(), tx); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (m *Memory) handleStream(w http.ResponseWriter, r *http.Request) {
	from, err := strconv.ParseUint(httptreemux.ContextParams(r.Context())["from"], 10, 64)
	if err != nil {
		http.Error(w, "invalid height", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client never writes, a read failure means it went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	headers, err := m.SubscribeHeaders(ctx, from)
	if err != nil {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
		return
	}

	for hr := range headers {
		if err := conn.WriteJSON(hr.Header); err != nil {
			return
		}
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrClosed):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
