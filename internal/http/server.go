package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"budget/internal/services"
	"budget/internal/storage"
)

// Server is the JSON API over the budget ledgers. It embeds http.Server so
// callers run it with ListenAndServe and stop it with Shutdown.
type Server struct {
	http.Server

	storage     *storage.Repository
	ledger      *services.LedgerService
	balances    *services.BalanceService
	resolver    *services.Resolver
	expImports  *services.ExpenseImporter
	blImports   *services.BorrowLendImporter
	backups     *services.BackupService
	rateLimiter *rateLimiter
	metrics     *serverMetrics

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter, keyed by client IP.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	// Reset the counter after a minute of quiet.
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= 120
}

// Deps bundles everything NewServer wires into routes.
type Deps struct {
	Storage    *storage.Repository
	Ledger     *services.LedgerService
	Balances   *services.BalanceService
	Resolver   *services.Resolver
	ExpImports *services.ExpenseImporter
	BLImports  *services.BorrowLendImporter
	Backups    *services.BackupService
}

// NewServer configures all routes and returns a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		storage:     deps.Storage,
		ledger:      deps.Ledger,
		balances:    deps.Balances,
		resolver:    deps.Resolver,
		expImports:  deps.ExpImports,
		blImports:   deps.BLImports,
		backups:     deps.Backups,
		rateLimiter: newRateLimiter(),
		metrics:     newServerMetrics(),
	}

	s.metrics.registerRecomputeCounter(deps.Balances.RecomputeCount)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/api/categories", s.withRequestContext(s.handleCategories))
	mux.HandleFunc("/api/categories/", s.withRequestContext(s.handleCategoryByID))
	mux.HandleFunc("/api/persons", s.withRequestContext(s.handlePersons))
	mux.HandleFunc("/api/persons/merge", s.withRequestContext(s.handleMergePersons))
	mux.HandleFunc("/api/persons/", s.withRequestContext(s.handlePersonByID))
	mux.HandleFunc("/api/expenses", s.withRequestContext(s.handleExpenses))
	mux.HandleFunc("/api/expenses/", s.withRequestContext(s.handleExpenseByID))
	mux.HandleFunc("/api/borrow-lend", s.withRequestContext(s.handleBorrowLend))
	mux.HandleFunc("/api/borrow-lend/", s.withRequestContext(s.handleBorrowLendByID))
	mux.HandleFunc("/api/settlements", s.withRequestContext(s.handleSettlements))
	mux.HandleFunc("/api/settlements/", s.withRequestContext(s.handleSettlementByID))

	mux.HandleFunc("/api/balances", s.withRequestContext(s.handleBalances))
	mux.HandleFunc("/api/balances/totals", s.withRequestContext(s.handleTotals))
	mux.HandleFunc("/api/summary/month", s.withRequestContext(s.handleMonthSummary))

	mux.HandleFunc("/api/import/expenses", s.withRequestContext(s.handleExpenseImport))
	mux.HandleFunc("/api/import/expenses/confirm", s.withRequestContext(s.handleExpenseImportConfirm))
	mux.HandleFunc("/api/import/expenses/cancel", s.withRequestContext(s.handleExpenseImportCancel))
	mux.HandleFunc("/api/import/borrow-lend", s.withRequestContext(s.handleBorrowLendImport))
	mux.HandleFunc("/api/import/borrow-lend/confirm", s.withRequestContext(s.handleBorrowLendImportConfirm))
	mux.HandleFunc("/api/import/borrow-lend/cancel", s.withRequestContext(s.handleBorrowLendImportCancel))

	mux.HandleFunc("/api/export/expenses.csv", s.withRequestContext(s.handleExportExpensesCSV))
	mux.HandleFunc("/api/export/borrow-lend.csv", s.withRequestContext(s.handleExportBorrowLendCSV))
	mux.HandleFunc("/api/backup", s.withRequestContext(s.handleBackupExport))
	mux.HandleFunc("/api/restore", s.withRequestContext(s.handleBackupRestore))

	return s
}

// Shutdown stops the server and its background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withRequestContext adds request IDs, rate limiting, security headers,
// request logging and metrics to a handler.
func (s *Server) withRequestContext(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)

		requestID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", ip)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(ip) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", ip, "method", r.Method, "url", r.URL.Path)
			s.metrics.rateLimited.Inc()
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.metrics.requestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode)).Inc()
		s.metrics.requestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration.Seconds())
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", ip)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
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

// handleReady reports ready once the database answers a trivial query.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.storage.ListActiveCategories(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
