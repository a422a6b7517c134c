package gcs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"

	"transstats/internal/reports"
)

// fakeGCS answers the JSON API media download route for one object.
func fakeGCS(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("alt") != "media" {
			http.Error(w, "metadata not supported", http.StatusBadRequest)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/o/stats%2Fstats.json") || strings.HasSuffix(r.URL.Path, "/o/stats/stats.json") {
			_, _ = w.Write([]byte(`{"perChannel": [{"channel": "A", "toJP": 1, "toEN": 1}], "Month": {"toJP": 1, "toEN": 1}, "Total": {"toJP": 4, "toEN": 4}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"code": 404, "message": "No such object"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientFetch(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	srv := fakeGCS(t)
	ctx := context.Background()
	c, err := New(ctx, Config{Bucket: "reports", Prefix: "stats", Endpoint: srv.URL + "/storage/v1/"},
		goption.WithoutAuthentication(), goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	r, err := c.Fetch(ctx, "stats.json")
	require.NoError(t, err)
	assert.Equal(t, int64(4), r.Total.ToJP)

	_, err = c.Fetch(ctx, "2021-09-stats.json")
	require.ErrorIs(t, err, reports.ErrNotFound)
}

func TestObjectName(t *testing.T) {
	c := &Client{bucket: "b"}
	assert.Equal(t, "stats.json", c.ObjectName("stats.json"))
	c.prefix = "monthly/"
	assert.Equal(t, "monthly/2021-09-stats.json", c.ObjectName("2021-09-stats.json"))
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{}, goption.WithoutAuthentication())
	require.Error(t, err)
}
