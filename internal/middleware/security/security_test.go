package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog []string

func (l *eventLog) record(event string) { *l = append(*l, event) }

func TestExtractClientIP(t *testing.T) {
	var events eventLog
	d, err := NewDetector(nil, WithReporter(events.record))
	require.NoError(t, err)

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct public peer", "203.0.113.7:5000", "", "", "203.0.113.7"},
		{"untrusted peer cannot spoof", "203.0.113.7:5000", "1.2.3.4", "", "203.0.113.7"},
		{"trusted proxy forwards", "10.1.2.3:443", "198.51.100.1, 10.1.2.3", "", "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:80", "", "198.51.100.2", "198.51.100.2"},
		{"trusted proxy garbage header", "192.168.1.1:80", "not-an-ip", "", "192.168.1.1"},
		{"ipv6 loopback proxy", "[::1]:8080", "2001:db8::1", "", "2001:db8::1"},
		{"no port", "203.0.113.9", "", "", "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, d.ExtractClientIP(r))
		})
	}
	assert.Equal(t, eventLog{EventInvalidClientIP}, events)
}

func TestNewDetectorRejectsBadCIDR(t *testing.T) {
	_, err := NewDetector([]string{"10.0.0.0/8", "nope"})
	require.Error(t, err)
}

func TestSuspicious(t *testing.T) {
	var events eventLog
	d, err := NewDetector(nil, WithReporter(events.record))
	require.NoError(t, err)

	normal := httptest.NewRequest(http.MethodGet, "/api/views?channels=A,B", nil)
	normal.Header.Set("User-Agent", "curl/8.0")
	assert.False(t, d.Suspicious(normal))

	for _, target := range []string{"/.env", "/api/views?from=../../etc/passwd", "/wp-admin/"} {
		assert.True(t, d.Suspicious(httptest.NewRequest(http.MethodGet, target, nil)), target)
	}

	scanner := httptest.NewRequest(http.MethodGet, "/", nil)
	scanner.Header.Set("User-Agent", "sqlmap/1.7")
	assert.True(t, d.Suspicious(scanner))

	assert.True(t, d.Suspicious(httptest.NewRequest("TRACE", "/", nil)))
	assert.True(t, d.Suspicious(httptest.NewRequest(http.MethodGet, "/?q="+strings.Repeat("a", maxURLLength), nil)))
	assert.Len(t, events, 6)
	assert.NotContains(t, events, EventInvalidClientIP)
}

func TestDetectorMiddlewarePassesThrough(t *testing.T) {
	d, err := NewDetector(nil)
	require.NoError(t, err)

	called := false
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/.git/config", nil))
	assert.True(t, called)
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/views", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'; base-uri 'none'", rec.Header().Get("Content-Security-Policy"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/charts/stacked", nil))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), ChartAssetsHost)

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestHeadersMiddlewareSkipsEmptyValues(t *testing.T) {
	cfg := DefaultHeadersConfig()
	cfg.XFrameOptions = ""
	h := NewHeadersMiddleware(cfg).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, present := rec.Header()["X-Frame-Options"]
	assert.False(t, present)
}

func TestNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	NoStore(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
