package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"acorn/internal/cache"
	"acorn/internal/core"
	"acorn/internal/feed"
	"acorn/internal/services"
	"acorn/internal/storage"
)

type Server struct {
	http.Server
	storage     *storage.SQLiteRepository
	overview    *services.OverviewService
	deposits    *services.DepositService
	hub         *feed.Hub
	rateLimiter *rateLimiter

	overviewCache *cache.Store[services.Overview]

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// Overview responses are cached per owner and invalidated through the feed
// hub whenever a mutating operation publishes a change.
func NewServer(addr string, repo *storage.SQLiteRepository, overview *services.OverviewService, deposits *services.DepositService, hub *feed.Hub, overviewTTL time.Duration) *Server {
	mux := http.NewServeMux()

	if overviewTTL <= 0 {
		overviewTTL = time.Minute
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		storage:       repo,
		overview:      overview,
		deposits:      deposits,
		hub:           hub,
		rateLimiter:   newRateLimiter(),
		overviewCache: cache.New[services.Overview](100, overviewTTL, 10*time.Minute),
	}

	if hub != nil {
		// Any owner-scoped change drops that owner's cached overview.
		hub.SubscribeAll(func(ev feed.Event) {
			s.overviewCache.Delete(ev.OwnerID)
		})
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("POST /incomes", s.withMiddleware(s.handleCreateIncome))
	mux.HandleFunc("GET /incomes", s.withMiddleware(s.handleListIncomes))
	mux.HandleFunc("PUT /incomes/{id}", s.withMiddleware(s.handleUpdateIncome))
	mux.HandleFunc("DELETE /incomes/{id}", s.withMiddleware(s.handleDeleteIncome))

	mux.HandleFunc("POST /expenses", s.withMiddleware(s.handleCreateExpense))
	mux.HandleFunc("GET /expenses", s.withMiddleware(s.handleListExpenses))
	mux.HandleFunc("PUT /expenses/{id}", s.withMiddleware(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /expenses/{id}", s.withMiddleware(s.handleDeleteExpense))

	mux.HandleFunc("POST /goals", s.withMiddleware(s.handleCreateGoal))
	mux.HandleFunc("GET /goals", s.withMiddleware(s.handleListGoals))
	mux.HandleFunc("GET /goals/{id}", s.withMiddleware(s.handleGetGoal))
	mux.HandleFunc("PUT /goals/{id}", s.withMiddleware(s.handleUpdateGoal))
	mux.HandleFunc("DELETE /goals/{id}", s.withMiddleware(s.handleDeleteGoal))
	mux.HandleFunc("POST /goals/{id}/deposits", s.withMiddleware(s.handleCreateDeposit))
	mux.HandleFunc("GET /goals/{id}/deposits", s.withMiddleware(s.handleListDeposits))

	mux.HandleFunc("GET /overview", s.withMiddleware(s.handleOverview))

	return s
}

// withMiddleware adds security headers, rate limiting, request ids, and
// request logging.
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

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// Shutdown stops the cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.overviewCache.Close()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.storage.ListOwners(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, core.ErrUnavailable.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
