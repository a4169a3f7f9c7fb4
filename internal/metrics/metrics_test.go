package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSaleIngested(t *testing.T) {
	before := testutil.ToFloat64(salesIngestedTotal.WithLabelValues("api"))
	RecordSaleIngested("api")
	assert.Equal(t, before+1, testutil.ToFloat64(salesIngestedTotal.WithLabelValues("api")))
}

func TestRecordRecompute(t *testing.T) {
	okBefore := testutil.ToFloat64(recomputeTotal.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(recomputeTotal.WithLabelValues("error"))

	RecordRecompute(time.Millisecond, nil)
	RecordRecompute(time.Millisecond, errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(recomputeTotal.WithLabelValues("ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(recomputeTotal.WithLabelValues("error")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordHTTPRequest(http.MethodGet, "/api/stats/dashboard", http.StatusOK, time.Millisecond)
	RecordCacheLookup(true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "campstats_http_requests_total")
	assert.Contains(t, rec.Body.String(), "campstats_cache_lookups_total")
}
