package security

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	applog "transstats/internal/log"
)

// DefaultTrustedProxies are the networks allowed to set forwarding headers
// when no explicit list is given.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

const maxURLLength = 2048

var (
	suspiciousPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
	}
	unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}
)

// Detection events passed to a Reporter.
const (
	EventSuspicious      = "suspicious"
	EventInvalidClientIP = "invalid_client_ip"
)

// Reporter is notified once per detection event.
type Reporter func(event string)

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithReporter sends detection events to r.
func WithReporter(r Reporter) DetectorOption {
	return func(d *Detector) { d.report = r }
}

// Detector resolves client addresses behind trusted proxies and flags
// requests that look like probes. It never blocks on its own.
type Detector struct {
	trustedProxies []netip.Prefix
	report         Reporter
}

// NewDetector creates a detector trusting the given CIDRs, or
// DefaultTrustedProxies when none are given.
func NewDetector(trusted []string, opts ...DetectorOption) (*Detector, error) {
	if len(trusted) == 0 {
		trusted = DefaultTrustedProxies
	}
	d := &Detector{report: func(string) {}}
	for _, opt := range opts {
		opt(d)
	}
	for _, cidr := range trusted {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy CIDR %q: %w", cidr, err)
		}
		d.trustedProxies = append(d.trustedProxies, prefix.Masked())
	}
	return d, nil
}

// Suspicious reports whether r matches a known probe pattern.
func (d *Detector) Suspicious(r *http.Request) bool {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	agent := strings.ToLower(r.Header.Get("User-Agent"))

	suspicious := containsAny(path, suspiciousPatterns) ||
		containsAny(query, suspiciousPatterns) ||
		containsAny(agent, scannerAgents) ||
		len(r.URL.String()) > maxURLLength ||
		strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5
	for _, m := range unusualMethods {
		if r.Method == m {
			suspicious = true
		}
	}

	if suspicious {
		d.report(EventSuspicious)
	}
	return suspicious
}

// ExtractClientIP returns the client address. Forwarding headers are only
// honored when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	direct, err := netip.ParseAddrPort(r.RemoteAddr)
	var addr netip.Addr
	if err == nil {
		addr = direct.Addr()
	} else if a, perr := netip.ParseAddr(r.RemoteAddr); perr == nil {
		addr = a
	} else {
		d.report(EventInvalidClientIP)
		return r.RemoteAddr
	}
	addr = addr.Unmap()

	if !d.isTrustedProxy(addr) {
		return addr.String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if fwd, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return fwd.Unmap().String()
		}
		d.report(EventInvalidClientIP)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if fwd, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
			return fwd.Unmap().String()
		}
		d.report(EventInvalidClientIP)
	}
	return addr.String()
}

// Middleware logs suspicious requests under the security component and
// lets them through; handlers still validate their own input.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.Suspicious(r) {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(),
				"Suspicious request detected",
				applog.FieldClientIP, d.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

func (d *Detector) isTrustedProxy(ip netip.Addr) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
