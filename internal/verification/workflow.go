// Package verification runs the payment verification of one team: mark the
// team verified, render its invoice, email the invoice to the team leader,
// then dispose of the file.
//
// Marking is the commit point. It is a single conditional update, so of any
// number of concurrent calls for one team exactly one proceeds. Nothing after
// it is rolled back: a failed invoice or email leaves the team verified and
// is reported in the Outcome so an operator can resend by hand.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/event-admin-backend/internal/db"
	"github.com/nyashahama/event-admin-backend/internal/email"
	"github.com/nyashahama/event-admin-backend/internal/invoice"
	"github.com/nyashahama/event-admin-backend/internal/metrics"
	"github.com/nyashahama/event-admin-backend/internal/store"
	"github.com/nyashahama/event-admin-backend/internal/worker"
)

// ─── DEPENDENCIES ─────────────────────────────────────────────────────────────

// TeamMarker performs the atomic false→true flip. *store.Store satisfies it
// and must return store.ErrTeamNotFound or store.ErrTeamAlreadyVerified when
// no row was updated.
type TeamMarker interface {
	MarkVerified(ctx context.Context, teamID uuid.UUID) (db.Team, error)
}

// MemberLister loads the members printed on the invoice. db.Querier
// satisfies it.
type MemberLister interface {
	ListMembersByTeam(ctx context.Context, teamID uuid.UUID) ([]db.Member, error)
}

// ─── OUTCOME ──────────────────────────────────────────────────────────────────

// Status is the terminal state of one Verify call.
type Status string

const (
	StatusEmailSent       Status = "email_sent"
	StatusEmailFailed     Status = "email_failed"
	StatusAlreadyVerified Status = "already_verified"
	StatusTeamNotFound    Status = "team_not_found"
	StatusInvoiceFailed   Status = "invoice_failed"
)

// Outcome is the composite result of Verify.
type Outcome struct {
	Status    Status
	Team      db.Team
	MessageID string // set on StatusEmailSent
	Reason    string // set on StatusEmailFailed and StatusInvoiceFailed
}

// Verified reports whether the team's flag is set after this call.
func (o Outcome) Verified() bool {
	return o.Status != StatusTeamNotFound && o.Status != ""
}

// EmailSent reports whether the confirmation email went out on this call.
func (o Outcome) EmailSent() bool { return o.Status == StatusEmailSent }

// ─── WORKFLOW ─────────────────────────────────────────────────────────────────

// Config holds the workflow settings.
type Config struct {
	// InvoiceDir receives the transient invoice files.
	InvoiceDir string

	// CleanupDelay is how long a sent invoice is kept before removal, to
	// tolerate transports that read the attachment lazily. Default: 10s.
	CleanupDelay time.Duration

	// AttachmentName is the filename the recipient sees.
	AttachmentName string

	Branding invoice.Branding
}

// Workflow verifies team payments.
type Workflow struct {
	teams    TeamMarker
	members  MemberLister
	renderer invoice.Renderer
	sender   email.Sender
	cleaner  worker.Cleaner
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Recorder
	now      func() time.Time
}

// New constructs a Workflow. m may be nil.
func New(
	teams TeamMarker,
	members MemberLister,
	renderer invoice.Renderer,
	sender email.Sender,
	cleaner worker.Cleaner,
	cfg Config,
	logger *slog.Logger,
	m *metrics.Recorder,
) *Workflow {
	if cfg.InvoiceDir == "" {
		cfg.InvoiceDir = "uploads"
	}
	if cfg.CleanupDelay <= 0 {
		cfg.CleanupDelay = 10 * time.Second
	}
	if cfg.AttachmentName == "" {
		cfg.AttachmentName = "Invoice.pdf"
	}
	return &Workflow{
		teams:    teams,
		members:  members,
		renderer: renderer,
		sender:   sender,
		cleaner:  cleaner,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Verify runs the workflow for one team.
//
// An error is returned only before the commit point: email.ErrNotConfigured
// when the mail transport cannot send, or a store failure. In both cases the
// team is untouched. Every other result, including partial failures after
// the team was marked, is an Outcome with a nil error.
func (w *Workflow) Verify(ctx context.Context, teamID uuid.UUID) (Outcome, error) {
	log := w.logger.With("team_id", teamID)

	// ── 1. Pre-flight: refuse to commit if the email cannot go out ────────────
	if err := w.sender.Validate(); err != nil {
		log.Error("verify: mail transport not configured", "error", err)
		return Outcome{}, err
	}

	// ── 2. Commit point ───────────────────────────────────────────────────────
	team, err := w.teams.MarkVerified(ctx, teamID)
	switch {
	case errors.Is(err, store.ErrTeamNotFound):
		return w.finish(log, Outcome{Status: StatusTeamNotFound}), nil
	case errors.Is(err, store.ErrTeamAlreadyVerified):
		return w.finish(log, Outcome{Status: StatusAlreadyVerified, Team: team}), nil
	case err != nil:
		return Outcome{}, fmt.Errorf("verify: mark team: %w", err)
	}
	log = log.With("team", team.TeamName)
	log.Info("verify: team marked verified")

	// ── 3. Invoice ────────────────────────────────────────────────────────────
	members, err := w.members.ListMembersByTeam(ctx, teamID)
	if err != nil {
		return w.finish(log, Outcome{
			Status: StatusInvoiceFailed,
			Team:   team,
			Reason: fmt.Sprintf("load members: %v", err),
		}), nil
	}

	path := invoice.TempPath(w.cfg.InvoiceDir, team.ID.String(), w.now())
	inv := invoice.FromTeam(team, members, w.cfg.Branding, w.now())
	if err := w.renderer.Render(ctx, inv, path); err != nil {
		w.removeNow(log, path)
		return w.finish(log, Outcome{
			Status: StatusInvoiceFailed,
			Team:   team,
			Reason: err.Error(),
		}), nil
	}

	// ── 4. Email ──────────────────────────────────────────────────────────────
	msgID, err := w.sender.Send(ctx, email.Message{
		To:      team.LeaderEmail,
		Subject: "Payment Confirmed - " + team.TeamName,
		HTML: email.PaymentConfirmedHTML(email.PaymentConfirmedParams{
			EventName:     w.cfg.Branding.EventName,
			OrganizerName: w.cfg.Branding.OrganizerName,
			LeaderName:    team.LeaderName,
			TeamName:      team.TeamName,
			TicketType:    team.TicketType,
			AmountPaid:    formatAmount(inv.Currency, amountPaid(team)),
		}),
		Attachments: []email.Attachment{{
			Filename:    w.cfg.AttachmentName,
			Path:        path,
			ContentType: "application/pdf",
		}},
	})
	if err != nil {
		w.removeNow(log, path)
		return w.finish(log, Outcome{
			Status: StatusEmailFailed,
			Team:   team,
			Reason: err.Error(),
		}), nil
	}

	// ── 5. Deferred cleanup ───────────────────────────────────────────────────
	w.cleaner.RemoveAfter(path, w.cfg.CleanupDelay)

	return w.finish(log, Outcome{Status: StatusEmailSent, Team: team, MessageID: msgID}), nil
}

func (w *Workflow) finish(log *slog.Logger, o Outcome) Outcome {
	w.metrics.Verification(string(o.Status))
	switch o.Status {
	case StatusEmailSent:
		log.Info("verify: complete", "message_id", o.MessageID)
	case StatusAlreadyVerified, StatusTeamNotFound:
		log.Info("verify: rejected", "status", o.Status)
	default:
		log.Error("verify: team verified but not notified", "status", o.Status, "reason", o.Reason)
	}
	return o
}

func (w *Workflow) removeNow(log *slog.Logger, path string) {
	if err := w.cleaner.RemoveNow(path); err != nil {
		log.Warn("verify: remove invoice", "path", path, "error", err)
	}
}

// amountPaid is the collected amount when recorded, otherwise the ticket
// amount.
func amountPaid(t db.Team) float64 {
	if t.MoneyCollected.Valid {
		return t.MoneyCollected.Float64
	}
	return t.Amount
}

func formatAmount(currency string, v float64) string {
	return currency + " " + strconv.FormatFloat(v, 'f', -1, 64)
}
