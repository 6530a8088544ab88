// Package http provides the HTTP server and handlers for the charging
// ledger UI. Pages are server-rendered templates; dashboard panels are
// HTMX partials refreshed from /ui/* endpoints.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"ricarica/internal/backend"
	"ricarica/internal/cache"
	"ricarica/internal/core"
	"ricarica/internal/services"
	"ricarica/web"
)

const (
	requestsPerMinute = 60
	dashboardCacheTTL = 5 * time.Minute
)

// dashboardData bundles the derived views computed from one session list
// so a single cache entry serves every panel.
type dashboardData struct {
	Sessions []core.ChargeSession
	Settings core.Settings
	Stats    *core.Stats
	Analysis *core.Analysis
	Forecast *core.Forecast
}

// Server wraps http.Server with the application services and the caches
// backing the dashboard partials.
type Server struct {
	http.Server

	store     backend.Backend
	sessions  *services.SessionService
	vehicles  *services.VehicleService
	suppliers *services.SupplierService
	settings  *services.SettingsService

	templates *template.Template
	limiter   *rateLimiter

	dashCache    *cache.LRUCache[dashboardData]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes, templates and static assets. A template parse
// failure is logged and leaves s.templates nil; page handlers then answer
// 500 instead of panicking at startup.
func NewServer(addr string, store backend.Backend, sessions *services.SessionService, vehicles *services.VehicleService, suppliers *services.SupplierService, settings *services.SettingsService) *Server {
	s := &Server{
		store:     store,
		sessions:  sessions,
		vehicles:  vehicles,
		suppliers: suppliers,
		settings:  settings,
		limiter:   newRateLimiter(requestsPerMinute, time.Minute),
		dashCache: cache.NewLRUCache[dashboardData](50, dashboardCacheTTL),
	}

	s.cacheManager = cache.NewManager()
	s.cacheManager.Register(s.dashCache)
	s.cacheManager.StartCleanup(time.Minute)

	tmpl, err := template.ParseFS(web.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Error("Template parsing failed", "error", err)
	} else {
		s.templates = tmpl
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/", s.handleIndex)

	mux.HandleFunc("/sessions/start", s.handleStartSession)
	mux.HandleFunc("/sessions/stop", s.handleStopSession)
	mux.HandleFunc("/sessions", s.handleManualSession)
	mux.HandleFunc("/sessions/delete", s.handleDeleteSession)

	mux.HandleFunc("/vehicles", s.handleCreateVehicle)
	mux.HandleFunc("/vehicles/delete", s.handleDeleteVehicle)

	mux.HandleFunc("/suppliers", s.handleCreateSupplier)
	mux.HandleFunc("/suppliers/update", s.handleUpdateSupplier)
	mux.HandleFunc("/suppliers/delete", s.handleDeleteSupplier)

	mux.HandleFunc("/settings", s.handleSaveSettings)

	mux.HandleFunc("/ui/stats", s.handleStatsPartial)
	mux.HandleFunc("/ui/analysis", s.handleAnalysisPartial)
	mux.HandleFunc("/ui/forecast", s.handleForecastPartial)
	mux.HandleFunc("/ui/sessions", s.handleSessionsPartial)

	if staticFS, err := fs.Sub(web.StaticFS, "static"); err == nil {
		fileServer := http.FileServer(http.FS(staticFS))
		mux.Handle("/static/", http.StripPrefix("/static/", withCacheControl(fileServer)))
	} else {
		slog.Error("Static assets unavailable", "error", err)
	}

	s.Addr = addr
	s.Handler = s.withSecurityHeaders(mux)
	return s
}

// Shutdown stops the background loops before draining connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		s.cacheManager.Stop()
	})
	return s.Server.Shutdown(ctx)
}

// invalidateDashboard drops cached derived views after any write.
func (s *Server) invalidateDashboard() {
	s.dashCache.Clear()
}

func withCacheControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}

// withSecurityHeaders assigns a request ID, logs the request, applies the
// per-IP rate limit to mutating methods and sets baseline security headers.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := clientAddr(r)
		requestID := generateRequestID()

		slog.InfoContext(r.Context(), "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
		)

		if r.Method == http.MethodPost || r.Method == http.MethodDelete || r.Method == http.MethodPut {
			if !s.limiter.allow(clientIP) {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"request_id", requestID,
					"client_ip", clientIP,
				)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		slog.InfoContext(r.Context(), "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// clientAddr prefers proxy headers over the socket peer address.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
