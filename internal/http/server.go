// Package http exposes the engine and the document store as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"sismobi/internal/cache"
	"sismobi/internal/clock"
	applog "sismobi/internal/log"
	"sismobi/internal/middleware/ratelimit"
	"sismobi/internal/middleware/security"
	"sismobi/internal/services"
	"sismobi/internal/storage"
)

// maxBodyBytes bounds request bodies on create and update.
const maxBodyBytes = 1 << 20

// Options configures the optional parts of the server.
type Options struct {
	// APIToken enables bearer authorization on /api/ when non-empty.
	APIToken string
	// Cache, when set, is cleared by POST /api/v1/cache/clear instead of the aggregator's memos alone.
	Cache     *cache.Manager
	RateLimit ratelimit.Config
	Logger    *applog.Logger
	Clock     clock.Clock
}

type Server struct {
	http.Server
	store        storage.Store
	agg          *services.Aggregator
	cacheManager *cache.Manager
	logger       *applog.Logger
	clock        clock.Clock

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	decoders    map[string]decodeFunc
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, store storage.Store, agg *services.Aggregator, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.RateLimit.Clock == nil {
		opts.RateLimit.Clock = opts.Clock
	}

	s := &Server{
		store:        store,
		agg:          agg,
		cacheManager: opts.Cache,
		logger:       opts.Logger.WithComponent(applog.ComponentHTTP),
		clock:        opts.Clock,
		rateLimiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector:     security.NewDetector(),
		started:      opts.Clock.Now(),
	}
	s.decoders = s.newDecoders()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/v1/dashboard/summary", s.handleSummary)
	api.HandleFunc("GET /api/v1/alerts/generated", s.handleGeneratedAlerts)
	api.HandleFunc("PUT /api/v1/alerts/{id}/resolve", s.handleResolveAlert)
	api.HandleFunc("GET /api/v1/cache/stats", s.handleCacheStats)
	api.HandleFunc("POST /api/v1/cache/clear", s.handleCacheClear)
	api.HandleFunc("GET /api/v1/{collection}", s.handleList)
	api.HandleFunc("POST /api/v1/{collection}", s.handleCreate)
	api.HandleFunc("GET /api/v1/{collection}/{id}", s.handleGet)
	api.HandleFunc("PUT /api/v1/{collection}/{id}", s.handleUpdate)
	api.HandleFunc("GET /api/v1/{collection}/groups/{groupId}/summary", s.handleBillGroupSummary)
	api.HandleFunc("DELETE /api/v1/{collection}/{id}", s.handleDelete)

	protected := s.detector.BearerAuth(opts.APIToken, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
	})(s.rateLimiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})(api))
	mux.Handle("/api/", protected)

	var handler http.Handler = mux
	handler = s.rejectSuspicious(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = applog.AccessLog(s.detector.ClientIP)(handler)
	handler = applog.RequestIDMiddleware(handler)
	handler = applog.Middleware(opts.Logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// rejectSuspicious answers scanner requests with 404 before they reach a handler.
func (s *Server) rejectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.Suspicious(r) {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(), "Suspicious request rejected",
				applog.NewFields().
					WithClientIP(s.detector.ClientIP(r)).
					WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), "").
					ToSlice()...)
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and its cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
