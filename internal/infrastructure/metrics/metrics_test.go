package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubchantier/internal/domain/quote/dpgf"
	"hubchantier/internal/domain/quote/pricing"
)

func TestObserveImport(t *testing.T) {
	m := New()
	m.ObserveImport(&dpgf.Result{LinesCreated: 12, LinesSkipped: 2, Warnings: []string{"Ligne 3", "Ligne 9"}})
	m.ObserveImport(&dpgf.Result{LinesCreated: 3})

	assert.Equal(t, float64(2), testutil.ToFloat64(m.imports))
	assert.Equal(t, float64(15), testutil.ToFloat64(m.importLines.WithLabelValues("created")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.importLines.WithLabelValues("skipped")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.importWarnings))
}

func TestObserveReport(t *testing.T) {
	m := New()
	m.ObserveReport(&pricing.Report{Lines: make([]pricing.LineMargin, 3)})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.marginComputations))
}

func TestObserveHTTP(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, "/api/v1/quotes/:id", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTP(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/quotes/:id", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveImport(&dpgf.Result{LinesCreated: 1})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hubchantier_dpgf_imports_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestTrackPool(t *testing.T) {
	m := New()
	m.TrackPool(func() PoolStats { return PoolStats{Total: 4, Acquired: 1, Idle: 3, Max: 10} })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Contains(t, rec.Body.String(), "hubchantier_db_pool_connections_total 4")
	assert.Contains(t, rec.Body.String(), "hubchantier_db_pool_connections_idle 3")
}
