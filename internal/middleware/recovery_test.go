package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bughunt/internal/metrics"
	"github.com/mcoot/bughunt/internal/testutil"
)

func teapot(w http.ResponseWriter, _ *http.Request, _ any) {
	w.WriteHeader(http.StatusTeapot)
}

func TestRecovery_LogsRouteAndCountsPanic(t *testing.T) {
	logger, logs := testutil.CaptureLogger()

	r := mux.NewRouter()
	r.Use(Recovery(logger, teapot))
	r.HandleFunc("/api/games/{id}", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	before := promtest.ToFloat64(metrics.HTTPPanicsTotal.WithLabelValues("/api/games/{id}"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/games/g1", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.True(t, logs.Contains(`"route":"/api/games/{id}"`))
	assert.True(t, logs.Contains(`"path":"/api/games/g1"`))
	assert.True(t, logs.Contains(`"error":"boom"`))
	assert.Equal(t, before+1, promtest.ToFloat64(metrics.HTTPPanicsTotal.WithLabelValues("/api/games/{id}")))
}

func TestRecovery_PassesThroughWithoutPanic(t *testing.T) {
	logger, logs := testutil.CaptureLogger()

	handler := Recovery(logger, teapot)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, logs.Lines())
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	handler := Recovery(testutil.NopLogger(), teapot)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/lobby/events", nil))
	})
}
