package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"feedesk/internal/cache"
	"feedesk/internal/core"
	applog "feedesk/internal/log"
	"feedesk/internal/notify"
	"feedesk/internal/services"
)

// JournalReader lists recent mutation transitions.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]core.Transition, error)
}

// Deps are the collaborators the facade reads from and submits to.
// Journal and Notices are optional.
type Deps struct {
	Coordinator *services.Coordinator
	Refresher   *services.Refresher
	History     *services.History
	Cache       *cache.Ledger
	Journal     JournalReader
	Notices     *notify.Recorder
	Logger      *applog.Logger
}

type Server struct {
	http.Server
	coord     *services.Coordinator
	refresher *services.Refresher
	history   *services.History
	cache     *cache.Ledger
	journal   JournalReader
	notices   *notify.Recorder

	logger      *applog.Logger
	structured  *applog.StructuredLogger
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		coord:       d.Coordinator,
		refresher:   d.Refresher,
		history:     d.History,
		cache:       d.Cache,
		journal:     d.Journal,
		notices:     d.Notices,
		logger:      logger,
		structured:  applog.NewStructuredLogger(logger),
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/students", s.handleListStudents)
	mux.HandleFunc("GET /api/students/{roll}", s.handleGetStudent)
	mux.HandleFunc("GET /api/students/{roll}/transactions", s.handleTransactions)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/journal", s.handleJournal)
	mux.HandleFunc("GET /api/notifications", s.handleNotifications)

	mux.HandleFunc("POST /api/students", s.handleSaveStudent)
	mux.HandleFunc("POST /api/fees", s.handleCollectFee)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	s.Handler = applog.Middleware(logger)(
		applog.RequestIDMiddleware(requestID)(
			s.withSecurityHeaders(mux)))
	return s
}

// Shutdown stops the rate limiter and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		hits, suspicious := s.metrics.snapshot()
		s.logger.InfoContext(ctx, "HTTP server stopping",
			"rate_limit_hits", hits,
			"suspicious_requests", suspicious)
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		clientIP := extractClientIP(r)
		logger := applog.FromContext(ctx).WithComponent(applog.ComponentHTTP)
		sl := applog.NewStructuredLogger(logger)

		sl.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			logger.WarnContext(ctx, "Suspicious request rejected", applog.FieldClientIP, clientIP, applog.FieldPath, r.URL.Path)
			BadRequestError("Request rejected").Write(w)
			return
		}

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded", applog.FieldClientIP, clientIP, applog.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").
				Header("Retry-After", "60").
				Write(w)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		sl.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestID reuses an incoming X-Request-ID or generates one.
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" && len(id) <= 64 {
		return sanitizeInput(id)
	}
	return generateRequestID()
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
