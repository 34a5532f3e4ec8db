// Package http is the JSON API adapter over the ledger engine and the
// storage layer. Handlers stay thin: parse, call, map errors to status codes.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"budgeteer/internal/cache"
	"budgeteer/internal/core"
	"budgeteer/internal/middleware/ratelimit"
	"budgeteer/internal/middleware/trace"
	"budgeteer/internal/services"
	"budgeteer/internal/storage"
)

type Server struct {
	http.Server

	storage *storage.SQLiteRepository
	txns    *services.TransactionService

	limiter *ratelimit.Limiter
	janitor *cache.Janitor

	// Monthly summaries and yearly series are cached until a write lands.
	summaryCache *cache.LRUCache[core.Summary]
	seriesCache  *cache.LRUCache[[]core.MonthTotal]

	shutdownOnce sync.Once
	startedAt    time.Time
}

type Config struct {
	Addr               string
	RateLimitPerMinute int
	SummaryCacheTTL    time.Duration
}

// NewServer wires routes and middleware and returns a ready-to-run server.
func NewServer(cfg Config, store *storage.SQLiteRepository, txns *services.TransactionService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		storage: store,
		txns:    txns,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
		}),
		janitor:      cache.NewJanitor(),
		summaryCache: cache.NewLRUCache[core.Summary](100, cfg.SummaryCacheTTL),
		seriesCache:  cache.NewLRUCache[[]core.MonthTotal](20, cfg.SummaryCacheTTL),
		startedAt:    time.Now(),
	}
	s.janitor.Register(s.summaryCache)
	s.janitor.Register(s.seriesCache)
	s.janitor.Start(10 * time.Minute)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("PUT /api/budgets", s.handleUpsertBudget)

	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals", s.handleCreateGoal)
	mux.HandleFunc("GET /api/goals/{id}", s.handleGetGoal)
	mux.HandleFunc("PATCH /api/goals/{id}", s.handleUpdateGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", s.handleDeleteGoal)
	mux.HandleFunc("GET /api/goals/{id}/contributions", s.handleListContributions)
	mux.HandleFunc("POST /api/goals/{id}/contributions", s.handleAddContribution)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/summary/yearly", s.handleYearlySeries)

	tracer := trace.NewMiddleware(extractClientIP)
	handler := tracer.Middleware(s.withSecurityHeaders(s.withWriteRateLimit(mux)))

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// withSecurityHeaders sets response headers appropriate for a JSON API.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// withWriteRateLimit limits mutating requests only; reads stay unmetered.
func (s *Server) withWriteRateLimit(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(extractClientIP)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			limited.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// invalidateReadCaches drops every cached aggregate. Any committed write can
// change any month's summary, so handlers call this after each mutation.
func (s *Server) invalidateReadCaches() {
	s.summaryCache.Purge()
	s.seriesCache.Purge()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.storage.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"checks": map[string]string{"database": err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": map[string]string{"database": "ok"},
	})
}

// Shutdown stops the background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.janitor.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
