package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"transstats/internal/cache"
	"transstats/internal/core"
	applog "transstats/internal/log"
	"transstats/internal/metrics"
	"transstats/internal/middleware/ratelimit"
	"transstats/internal/middleware/security"
	"transstats/internal/middleware/trace"
	"transstats/internal/services"
)

const (
	defaultViewCacheSize = 256
	defaultViewCacheTTL  = 5 * time.Minute
	cacheCleanupInterval = 10 * time.Minute
)

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger         *applog.Logger
	metrics        *metrics.Metrics
	cacheSize      int
	cacheTTL       time.Duration
	rateLimit      int
	trustedProxies []string
}

// WithLogger sets the base logger for request logging.
func WithLogger(l *applog.Logger) Option {
	return func(o *serverOptions) { o.logger = l }
}

// WithMetrics records request, cache and rate limit metrics and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *serverOptions) { o.metrics = m }
}

// WithViewCache sizes the computed view cache.
func WithViewCache(size int, ttl time.Duration) Option {
	return func(o *serverOptions) {
		o.cacheSize = size
		o.cacheTTL = ttl
	}
}

// WithRateLimit limits /api requests per client per minute. Zero disables it.
func WithRateLimit(perMinute int) Option {
	return func(o *serverOptions) { o.rateLimit = perMinute }
}

// WithTrustedProxies sets the networks allowed to set forwarding headers.
func WithTrustedProxies(cidrs []string) Option {
	return func(o *serverOptions) { o.trustedProxies = cidrs }
}

// Server exposes the stats engine over HTTP.
type Server struct {
	http.Server
	stats    *services.StatsService
	metrics  *metrics.Metrics
	logger   *applog.Logger
	views    *cache.LoadingCache[core.Views]
	caches   *cache.Manager
	lastGen  atomic.Uint64
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, stats *services.StatsService, opts ...Option) (*Server, error) {
	o := serverOptions{
		cacheSize: defaultViewCacheSize,
		cacheTTL:  defaultViewCacheTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = applog.New(applog.DefaultConfig())
	}

	var detectorOpts []security.DetectorOption
	if o.metrics != nil {
		detectorOpts = append(detectorOpts, security.WithReporter(o.metrics.SecurityEvent))
	}
	detector, err := security.NewDetector(o.trustedProxies, detectorOpts...)
	if err != nil {
		return nil, fmt.Errorf("create request detector: %w", err)
	}

	s := &Server{
		stats:    stats,
		metrics:  o.metrics,
		logger:   o.logger.WithComponent(applog.ComponentHTTP),
		detector: detector,
		caches:   cache.NewManager(o.logger.WithComponent(applog.ComponentCache).Logger),
	}

	var onCheck func(bool)
	var lruOpts []cache.LRUOption
	if s.metrics != nil {
		onCheck = s.metrics.CacheLookup
		lruOpts = append(lruOpts, cache.WithEvictHandler(s.metrics.CacheEvicted))
	}
	store := cache.NewLRUCache[core.Views](o.cacheSize, o.cacheTTL, lruOpts...)
	s.views = cache.NewLoadingCache(store, onCheck)
	s.caches.Register(store)
	s.caches.StartCleanup(cacheCleanupInterval)

	if o.rateLimit > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerWindow: o.rateLimit, Window: time.Minute})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("POST /api/load", s.api(s.handleLoad))
	mux.Handle("GET /api/state", s.api(s.handleState))
	mux.Handle("GET /api/filters", s.api(s.handleGetFilters))
	mux.Handle("PUT /api/filters", s.api(s.handleUpdateFilters))
	mux.Handle("PATCH /api/filters", s.api(s.handleUpdateFilters))
	mux.Handle("GET /api/views", s.api(s.handleViews))
	mux.Handle("GET /api/views/{view}", s.api(s.handleView))

	mux.HandleFunc("GET /charts/{kind}", s.handleChart)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var observe trace.Observer
	if s.metrics != nil {
		observe = s.metrics.HTTPRequest
	}
	tracer := trace.NewMiddleware(o.logger, detector.ExtractClientIP, observe)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Middleware(detector.Middleware(headers.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// api wraps JSON API handlers with rate limiting and no-store caching.
func (s *Server) api(h http.HandlerFunc) http.Handler {
	var handler http.Handler = security.NoStore(h)
	if s.limiter != nil {
		var onLimit func(*http.Request)
		if s.metrics != nil {
			onLimit = func(*http.Request) { s.metrics.RateLimited() }
		}
		handler = s.limiter.Middleware(s.detector.ExtractClientIP, onLimit)(handler)
	}
	return handler
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// viewsFor computes the views for the stored filters with the request's
// query overrides applied. Months, filters and generation come from one
// snapshot, so a cached entry never mixes two loads.
func (s *Server) viewsFor(r *http.Request) (core.Views, error) {
	patch, err := ParseFilterQuery(r.URL.Query())
	if err != nil {
		return core.Views{}, err
	}

	months, filters, generation := s.stats.Snapshot()
	s.dropStaleViews(generation)

	f := patch.Apply(filters)
	if err := f.Validate(); err != nil {
		return core.Views{}, fmt.Errorf("%w: %w", errInvalidFilter, err)
	}

	return s.views.GetOrLoad(viewCacheKey(generation, f), func() (core.Views, error) {
		return core.BuildViews(months, f), nil
	})
}

// dropStaleViews evicts views of earlier generations the first time a newer
// generation is served.
func (s *Server) dropStaleViews(generation uint64) {
	if s.lastGen.Swap(generation) == generation {
		return
	}
	prefix := generationPrefix(generation)
	s.views.Store().Prune(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}
