// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/adamwoolhether/rollup/app/services/rollup/handlers/v1/public"
	"github.com/adamwoolhether/rollup/foundation/rollup/ledger"
	"github.com/adamwoolhether/rollup/foundation/web"
)

const version = "v1"

// Config contains all mandatory systems required by handlers.
type Config struct {
	Log       *zap.SugaredLogger
	Ledger    ledger.Reader
	Sequencer public.Sequencer
	Proofs    *public.Proofs
	Observer  public.Observer
}

// PublicRoutes binds all version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:       cfg.Log,
		Ledger:    cfg.Ledger,
		Sequencer: cfg.Sequencer,
		Proofs:    cfg.Proofs,
		Observer:  cfg.Observer,
	}

	const group = version + "/rollup"

	app.Handle(http.MethodPost, group, "/submit", pbl.Submit)
	app.Handle(http.MethodGet, group, "/balance/:address", pbl.Balance)
	app.Handle(http.MethodGet, group, "/nonce/:address", pbl.Nonce)
	app.Handle(http.MethodGet, group, "/state", pbl.State)
	app.Handle(http.MethodGet, group, "/accounts", pbl.Accounts)
	app.Handle(http.MethodGet, group, "/proof/:height", pbl.Proof)
	app.Handle(http.MethodGet, group, "/events", pbl.Events)
}
