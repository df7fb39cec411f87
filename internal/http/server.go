// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dividi/internal/core"
	"dividi/internal/ledger"
	"dividi/internal/log"
)

// Ledger is the slice of the orchestrator the handlers need.
type Ledger interface {
	CreateGroup(ctx context.Context, name, ownerID string, participantNames []string) (*core.Group, []core.Participant, error)
	Group(ctx context.Context, id string) (*core.Group, []core.Participant, error)
	Groups(ctx context.Context, ownerID string) ([]core.Group, error)
	RenameGroup(ctx context.Context, id, name string) error
	DeleteGroup(ctx context.Context, id string) error

	AddParticipant(ctx context.Context, groupID, name string) (*core.Participant, error)
	RenameParticipant(ctx context.Context, id, name string) error
	RemoveParticipant(ctx context.Context, id string) error

	CreateExpense(ctx context.Context, in ledger.ExpenseInput) (*core.Expense, error)
	UpdateExpense(ctx context.Context, id string, in ledger.ExpenseInput) (*core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	Expense(ctx context.Context, id string) (*core.Expense, error)
	Expenses(ctx context.Context, groupID string, f core.ExpenseFilter) ([]core.Expense, error)

	Balances(ctx context.Context, groupID string) ([]core.Balance, error)
	Settlements(ctx context.Context, groupID string) ([]core.Settlement, error)
	Summary(ctx context.Context, groupID string) (*core.GroupSummary, error)
}

type Server struct {
	http.Server
	ledger       Ledger
	logger       *log.Logger
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, lgr Ledger, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ledger:      lgr,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	mux.HandleFunc("GET /api/groups", s.handleListGroups)
	mux.HandleFunc("GET /api/groups/{id}", s.handleGetGroup)
	mux.HandleFunc("PATCH /api/groups/{id}", s.handleRenameGroup)
	mux.HandleFunc("DELETE /api/groups/{id}", s.handleDeleteGroup)
	mux.HandleFunc("GET /api/groups/{id}/summary", s.handleGroupSummary)
	mux.HandleFunc("POST /api/groups/{id}/participants", s.handleAddParticipant)

	mux.HandleFunc("PATCH /api/participants/{id}", s.handleRenameParticipant)
	mux.HandleFunc("DELETE /api/participants/{id}", s.handleRemoveParticipant)

	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/balances/{groupID}/net", s.handleNetBalances)
	mux.HandleFunc("GET /api/balances/{groupID}/settlements", s.handleSettlements)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.Handler = s.withMiddleware(mux)
	return s
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.allow(clientIP(r)) {
			writeError(w, r, http.StatusTooManyRequests, "too many requests")
			return
		}

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		observeRequest(r.Method, sw.status, time.Since(start))
		s.logger.InfoContext(r.Context(), "request",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, sw.status,
			log.FieldDuration, time.Since(start).Milliseconds())
	})
	h = log.RequestIDMiddleware(requestID)(h)
	h = log.Middleware(s.logger)(h)
	return h
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Shutdown stops the listener and the rate limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
