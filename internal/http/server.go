// Package http hosts the JSON API over the emissions engine. Handlers
// translate requests into service calls; identity arrives via trusted
// proxy headers and is authorized per action before any work happens.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/cache"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/middleware/trace"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/services"
)

// Ports over the service layer, one per handler group.
type (
	EmissionAPI interface {
		SubmitEmission(ctx context.Context, userID int64, activityType string, amount core.Amount, date core.Date) (services.SubmitResult, error)
		RecordForUser(ctx context.Context, userID int64, activityType string, amount core.Amount) (int64, error)
		UpdateCarbonLimit(ctx context.Context, userID int64, limit *core.Amount) error
	}

	ImportAPI interface {
		ImportBatch(ctx context.Context, rows []core.ImportRow) (int, error)
	}

	SummaryAPI interface {
		MonthlyReport(ctx context.Context, userID int64, limit *core.Amount, refDate core.Date) (services.Report, error)
		AdminOverview(ctx context.Context) (services.Overview, error)
	}
)

type Server struct {
	http.Server
	emissions   EmissionAPI
	imports     ImportAPI
	summaries   SummaryAPI
	rateLimiter *rateLimiter
	tracer      *trace.Middleware

	// LRU cache for dashboard reports with eviction policy
	reportCache    *cache.LRUCache[dashboardResponse]
	reportVersions *userVersions
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, em EmissionAPI, im ImportAPI, sm SummaryAPI) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		emissions:      em,
		imports:        im,
		summaries:      sm,
		rateLimiter:    newRateLimiter(),
		tracer:         trace.NewMiddleware(extractClientIP),
		reportCache:    cache.NewLRUCache[dashboardResponse](200, 5*time.Minute), // Max 200 entries, 5min TTL
		reportVersions: newUserVersions(),
		cacheManager:   cache.NewManager(),
	}

	// Start periodic cache cleanup
	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/emissions", s.protect(s.handleSubmitEmission))
	mux.HandleFunc("/api/dashboard", s.protect(s.handleDashboard))
	mux.HandleFunc("/api/limit", s.protect(s.handleUpdateLimit))
	mux.HandleFunc("/api/admin/import", s.protect(s.handleAdminImport))
	mux.HandleFunc("/api/admin/emissions", s.protect(s.handleAdminRecord))
	mux.HandleFunc("/api/admin/overview", s.protect(s.handleAdminOverview))

	return s
}

// protect wraps a handler with tracing, security headers, and rate
// limiting on mutating methods.
func (s *Server) protect(next http.HandlerFunc) http.HandlerFunc {
	traced := s.tracer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", clientIP,
				"method", r.Method,
				"url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		next(w, r)
	}))
	return traced.ServeHTTP
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// userVersions invalidates cached reports per user without enumerating
// cache keys: the version is part of the key, so bumping it orphans the
// user's old entries and the LRU evicts them.
type userVersions struct {
	mu       sync.Mutex
	versions map[int64]uint64
}

func newUserVersions() *userVersions {
	return &userVersions{versions: make(map[int64]uint64)}
}

func (v *userVersions) current(userID int64) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.versions[userID]
}

func (v *userVersions) bump(userID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.versions[userID]++
}

// reportCacheKey scopes cached dashboards to one user, month, effective
// limit, and write version, so neither a new submission nor a limit
// change in the identity headers is served a stale verdict.
func (s *Server) reportCacheKey(userID int64, firstOfMonth core.Date, limit *core.Amount) string {
	key := strconv.FormatInt(userID, 10) +
		"|" + strconv.FormatUint(s.reportVersions.current(userID), 10) +
		"|" + firstOfMonth.ISO() + "|"
	if limit != nil {
		key += strconv.FormatInt(limit.Milligrams, 10)
	}
	return key
}

// invalidateReports drops every cached dashboard for the user.
func (s *Server) invalidateReports(userID int64) {
	s.reportVersions.bump(userID)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
