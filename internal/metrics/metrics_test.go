package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transstats/internal/reports"
)

func TestFetchOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{fmt.Errorf("fetch: %w", reports.ErrNotFound), OutcomeNotFound},
		{fmt.Errorf("decode: %w", reports.ErrInvalidReport), OutcomeInvalid},
		{errors.New("connection reset"), OutcomeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FetchOutcome(tt.err))
	}
}

func TestCounters(t *testing.T) {
	m := New()

	m.FetchCompleted(nil)
	m.FetchCompleted(nil)
	m.FetchCompleted(reports.ErrNotFound)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetches.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues(OutcomeNotFound)))

	m.LoadCompleted(time.Second, 3, 5, nil)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.monthsLoaded))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.channels))

	m.LoadCompleted(time.Second, 0, 0, errors.New("boom"))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.monthsLoaded), "failed loads keep the last gauge values")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("error")))

	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.viewCache.WithLabelValues("miss")))

	m.CacheEvicted("pruned")
	m.CacheEvicted("pruned")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.evictions.WithLabelValues("pruned")))

	m.HTTPRequest(http.MethodGet, http.StatusOK, 10*time.Millisecond)
	m.HTTPRequest(http.MethodPut, http.StatusUnprocessableEntity, time.Millisecond)
	m.RateLimited()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("PUT", "422")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))

	m.SecurityEvent("suspicious")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.security.WithLabelValues("suspicious")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.FetchCompleted(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `transstats_report_fetches_total{outcome="ok"} 1`)
}
