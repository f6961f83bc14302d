// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"coloc/internal/cache"
	"coloc/internal/core"
	"coloc/internal/export"
	"coloc/internal/services"
)

type Server struct {
	http.Server
	months      *services.MonthService
	members     *services.MemberService
	exporter    export.Exporter
	rateLimiter *rateLimiter

	// Read-side caches, cleared whole on every write.
	summaryCache *cache.TTLCache[core.MonthSummary]
	creditsCache *cache.TTLCache[[]core.MemberCredit]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// exporter may be nil when no spreadsheet export is configured.
func NewServer(addr string, months *services.MonthService, members *services.MemberService, exporter export.Exporter) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		months:           months,
		members:          members,
		exporter:         exporter,
		rateLimiter:      newRateLimiter(),
		summaryCache:     cache.New[core.MonthSummary](100, 5*time.Minute),
		creditsCache:     cache.New[[]core.MemberCredit](20, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /api/months", s.withMiddleware(s.handleListMonths))
	mux.HandleFunc("POST /api/months", s.withMiddleware(s.handleCreateMonth))
	mux.HandleFunc("GET /api/months/{key}", s.withMiddleware(s.handleGetMonth))
	mux.HandleFunc("GET /api/months/{key}/summary", s.withMiddleware(s.handleMonthSummary))
	mux.HandleFunc("POST /api/months/{key}/transactions", s.withMiddleware(s.handleAddTransaction))
	mux.HandleFunc("PUT /api/months/{key}/transactions/{id}", s.withMiddleware(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/months/{key}/transactions/{id}", s.withMiddleware(s.handleDeleteTransaction))
	mux.HandleFunc("POST /api/months/{key}/contributions", s.withMiddleware(s.handlePostContributions))
	mux.HandleFunc("PUT /api/months/{key}/remarks", s.withMiddleware(s.handleSetRemarks))
	mux.HandleFunc("POST /api/months/{key}/closure/prepare", s.withMiddleware(s.handlePrepareClosure))
	mux.HandleFunc("POST /api/months/{key}/closure/confirm", s.withMiddleware(s.handleConfirmClosure))
	mux.HandleFunc("POST /api/months/{key}/reopen", s.withMiddleware(s.handleReopen))
	mux.HandleFunc("POST /api/months/{key}/export", s.withMiddleware(s.handleExportMonth))
	mux.HandleFunc("GET /api/credits", s.withMiddleware(s.handleCredits))

	mux.HandleFunc("GET /api/members", s.withMiddleware(s.handleListMembers))
	mux.HandleFunc("POST /api/members", s.withMiddleware(s.handleAddMember))
	mux.HandleFunc("PUT /api/members/{id}", s.withMiddleware(s.handleUpdateMember))
	mux.HandleFunc("DELETE /api/members/{id}", s.withMiddleware(s.handleDeleteMember))
	mux.HandleFunc("GET /api/settings", s.withMiddleware(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", s.withMiddleware(s.handleSaveSettings))

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			summaryCleaned := s.summaryCache.CleanExpired()
			creditsCleaned := s.creditsCache.CleanExpired()
			if summaryCleaned > 0 || creditsCleaned > 0 {
				slog.Debug("Cache cleanup completed",
					"summary_entries_removed", summaryCleaned,
					"credits_entries_removed", creditsCleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// invalidateReadCaches drops every cached read after a successful mutation.
func (s *Server) invalidateReadCaches() {
	s.summaryCache.Clear()
	s.creditsCache.Clear()
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds security headers, rate limiting and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
