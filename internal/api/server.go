// Package api implements the HTTP layer of the event admin back office.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only imports the dependencies it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nyashahama/event-admin-backend/internal/bulk"
	"github.com/nyashahama/event-admin-backend/internal/db"
	"github.com/nyashahama/event-admin-backend/internal/email"
	"github.com/nyashahama/event-admin-backend/internal/invoice"
	"github.com/nyashahama/event-admin-backend/internal/mailtemplate"
	"github.com/nyashahama/event-admin-backend/internal/metrics"
	"github.com/nyashahama/event-admin-backend/internal/store"
	"github.com/nyashahama/event-admin-backend/internal/verification"
	"github.com/nyashahama/event-admin-backend/internal/worker"
)

// ─── DEPENDENCIES ─────────────────────────────────────────────────────────────

// TeamStore is the subset of *store.Store the handlers use.
type TeamStore interface {
	TeamWithMembers(ctx context.Context, teamID uuid.UUID) (db.Team, []db.Member, error)
	CreateTeamWithMembers(ctx context.Context, p store.CreateTeamParams) (db.Team, []db.Member, error)
	AddMember(ctx context.Context, teamID uuid.UUID, m store.MemberInput) (db.Member, error)
	RecordEmailRun(ctx context.Context, run store.EmailRun) (db.EmailLog, error)
}

// Verifier runs the payment verification workflow.
type Verifier interface {
	Verify(ctx context.Context, teamID uuid.UUID) (verification.Outcome, error)
}

// Dispatcher sends personalised email to one or many teams.
type Dispatcher interface {
	Send(ctx context.Context, recipients []bulk.Recipient, c bulk.Content) (bulk.Report, error)
	SendOne(ctx context.Context, r bulk.Recipient, c bulk.Content) (string, error)
}

// Config holds values read from environment variables at startup.
type Config struct {
	// JWTSecret verifies the HS256 admin bearer tokens.
	JWTSecret string

	// FrontendURL is the allowed CORS origin in production.
	FrontendURL string

	// InvoiceDir receives ad-hoc invoice PDFs before they are streamed.
	InvoiceDir string

	// EventName is used in the test email.
	EventName string

	// Env is "production", "staging", or "development".
	Env string
}

// Deps groups the collaborators NewServer wires into the router.
type Deps struct {
	// Q handles all single-query reads. Injected directly, no repo wrapper.
	Q db.Querier

	// Store handles multi-step atomic writes.
	Store TeamStore

	Verifier   Verifier
	Dispatcher Dispatcher
	Templates  mailtemplate.Store

	// Mailer sends the configuration test email.
	Mailer email.Sender

	Invoices invoice.Renderer
	Cleaner  worker.Cleaner

	// Metrics may be nil, in which case /metrics is not mounted.
	Metrics *metrics.Recorder
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	q          db.Querier
	store      TeamStore
	verifier   Verifier
	dispatcher Dispatcher
	templates  mailtemplate.Store
	mailer     email.Sender
	invoices   invoice.Renderer
	cleaner    worker.Cleaner
	metrics    *metrics.Recorder

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(d Deps, cfg Config, logger *slog.Logger) http.Handler {
	if cfg.InvoiceDir == "" {
		cfg.InvoiceDir = "uploads"
	}
	s := &Server{
		q:          d.Q,
		store:      d.Store,
		verifier:   d.Verifier,
		dispatcher: d.Dispatcher,
		templates:  d.Templates,
		mailer:     d.Mailer,
		invoices:   d.Invoices,
		cleaner:    d.Cleaner,
		metrics:    d.Metrics,
		cfg:        cfg,
		logger:     logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	// ── Health & metrics ──────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// ── API ───────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)

			// Quick CRUD routes share a request timeout.
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))

				r.Get("/teams", s.handleListTeams)
				r.Get("/teams/stats/overview", s.handleTeamStats)
				r.Post("/teams/add-manual", s.handleAddTeam)
				r.Get("/teams/{teamID}", s.handleGetTeam)
				r.Put("/teams/{teamID}", s.handleUpdateTeam)
				r.Post("/teams/{teamID}/member", s.handleAddMember)
				r.Put("/teams/member/{memberID}", s.handleUpdateMember)
				r.Delete("/teams/member/{memberID}", s.handleDeleteMember)

				r.Get("/templates", s.handleListTemplates)
				r.Post("/templates", s.handleCreateTemplate)
				r.Get("/templates/{templateID}", s.handleGetTemplate)
				r.Put("/templates/{templateID}", s.handleUpdateTemplate)
				r.Delete("/templates/{templateID}", s.handleDeleteTemplate)

				r.Post("/invoices/generate-pdf", s.handleGenerateInvoice)
			})

			// Mail-sending routes run to completion: a bulk send is paced
			// and each SMTP attempt may take up to the dial timeout.
			r.Post("/teams/{teamID}/verify", s.handleVerifyTeam)
			r.Post("/email/bulk-send", s.handleBulkSend)
			r.Post("/email/send-to-team", s.handleSendToTeam)
			r.Post("/email/test", s.handleTestEmail)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
