package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/adamwoolhether/rollup/business/sys/validate"
	v1 "github.com/adamwoolhether/rollup/business/web/v1"
	"github.com/adamwoolhether/rollup/business/web/v1/mid"
	"github.com/adamwoolhether/rollup/foundation/web"
)

func newApp(t *testing.T) (*web.App, *mid.HTTPMetrics, chan os.Signal) {
	t.Helper()

	log := zaptest.NewLogger(t).Sugar()
	metrics := mid.NewHTTPMetrics(prometheus.NewRegistry())
	shutdown := make(chan os.Signal, 1)

	app := web.NewApp(shutdown,
		mid.Logger(log),
		mid.Errors(log),
		mid.Metrics(metrics),
		mid.Panics(),
	)

	return app, metrics, shutdown
}

func serve(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, v1.ErrorResponse) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var er v1.ErrorResponse
	if rec.Code >= 400 {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&er))
	}
	return rec, er
}

func TestErrorsMapping(t *testing.T) {
	app, metrics, shutdown := newApp(t)

	app.Handle(http.MethodGet, "", "/ok", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, "ok", http.StatusOK)
	})
	app.Handle(http.MethodGet, "", "/request", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return v1.NewRequestError(errors.New("unknown account"), http.StatusNotFound)
	})
	app.Handle(http.MethodGet, "", "/fields", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return validate.FieldErrors{{Field: "signature", Error: "signature is required"}}
	})
	app.Handle(http.MethodGet, "", "/panic", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("boom")
	})

	rec, _ := serve(t, app, "/ok")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, er := serve(t, app, "/request")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "unknown account", er.Error)

	rec, er = serve(t, app, "/fields")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "data validation error", er.Error)
	require.Equal(t, "signature is required", er.Fields["signature"])

	rec, er = serve(t, app, "/panic")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, http.StatusText(http.StatusInternalServerError), er.Error)

	require.Equal(t, 3.0, testutil.ToFloat64(metrics.Errors))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.WithLabelValues(http.MethodGet, "200")))
	require.Len(t, shutdown, 0)
}

func TestErrorsShutdown(t *testing.T) {
	app, _, shutdown := newApp(t)

	app.Handle(http.MethodGet, "", "/integrity", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.NewShutdownError("ledger corrupted")
	})

	rec, _ := serve(t, app, "/integrity")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Len(t, shutdown, 1)
}

func TestCors(t *testing.T) {
	app, _, _ := newApp(t)

	app.Handle(http.MethodOptions, "", "/*", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}, mid.Cors("*"))

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/anything", nil))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
