package obs_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-finance/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("toko_finance", []float64{10, 1}, registry)

	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/api/v1/pricing/products/{productID}/volume-tiers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/pricing/products/abc/volume-tiers", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/pricing/products/{productID}/volume-tiers", "204"))
	require.Equal(t, 1.0, total)
	require.Positive(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Zero(t, testutil.ToFloat64(metrics.InFlight))
}

func TestHTTPMetricsReuseRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("dup", nil, registry)
	second := obs.NewHTTPMetrics("dup", nil, registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
}

func TestParseBucketsCSV(t *testing.T) {
	require.Equal(t, []float64{5, 10, 2.5}, obs.ParseBucketsCSV(" 5, 10,x,-1,0,2.5"))
	require.Empty(t, obs.ParseBucketsCSV(""))
}

func TestRequestLoggerAttachesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var sawLogger bool
	handler := obs.RequestLogger{Logger: logger}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = zerolog.Ctx(r.Context()).GetLevel() != zerolog.Disabled
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/lines", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, sawLogger)
	require.Contains(t, buf.String(), `"status":202`)
	require.Contains(t, buf.String(), `"client_ip":"203.0.113.7"`)
	require.Contains(t, buf.String(), `"message":"http_request"`)
}

func TestRoutePatternFromContext(t *testing.T) {
	var seen string
	r := chi.NewRouter()
	r.Route("/api/v1/admin/finance", func(a chi.Router) {
		a.Put("/settings", func(w http.ResponseWriter, r *http.Request) {
			seen = obs.RoutePatternFromContext(r.Context())
		})
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/api/v1/admin/finance/settings", nil))
	require.Equal(t, "/api/v1/admin/finance/settings", seen)

	pinned := obs.WithRoutePattern(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "/custom")
	require.Equal(t, "/custom", obs.RoutePatternFromContext(pinned))
}
