// Package handlers manages the different versions of the API.
package handlers

import (
	"context"
	"encoding/json"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	v1 "github.com/adamwoolhether/rollup/app/services/rollup/handlers/v1"
	"github.com/adamwoolhether/rollup/app/services/rollup/handlers/v1/public"
	"github.com/adamwoolhether/rollup/business/web/v1/mid"
	"github.com/adamwoolhether/rollup/foundation/rollup/ledger"
	"github.com/adamwoolhether/rollup/foundation/web"
)

// MuxConfig contains all mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown  chan os.Signal
	Log       *zap.SugaredLogger
	Metrics   *mid.HTTPMetrics
	Ledger    ledger.Reader
	Sequencer public.Sequencer
	Proofs    *public.Proofs
	Observer  public.Observer
}

// PublicMux constructs a http.Handler with all application routes defined.
func PublicMux(cfg MuxConfig) http.Handler {

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(cfg.Metrics),
		mid.Cors("*"),
		mid.Panics(),
	)

	// Accept CORS 'OPTIONS' preflight requests.
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", h, mid.Cors("*"))

	// Load the v1 routes.
	v1.PublicRoutes(app, v1.Config{
		Log:       cfg.Log,
		Ledger:    cfg.Ledger,
		Sequencer: cfg.Sequencer,
		Proofs:    cfg.Proofs,
		Observer:  cfg.Observer,
	})

	return app
}

// Readiness reports whether the node can serve requests.
type Readiness func() error

// DebugMux registers the metrics, profiling and readiness endpoints.
func DebugMux(build string, log *zap.SugaredLogger, gatherer prometheus.Gatherer, ready Readiness) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/debug/readiness", func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if err := ready(); err != nil {
			log.Infow("readiness failure", "ERROR", err)
			status, code = "not ready", http.StatusServiceUnavailable
		}

		data := struct {
			Status string `json:"status"`
			Build  string `json:"build"`
		}{
			Status: status,
			Build:  build,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Errorw("readiness", "ERROR", err)
		}
	})

	return mux
}
