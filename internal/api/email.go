package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nyashahama/event-admin-backend/internal/bulk"
	"github.com/nyashahama/event-admin-backend/internal/email"
	"github.com/nyashahama/event-admin-backend/internal/store"
)

// respondSendErr maps a whole-call failure from the dispatcher or the mail
// transport to an HTTP status. It returns false when err is not one of the
// known failures so the caller can treat it as internal.
func respondSendErr(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, email.ErrNotConfigured):
		respondErr(w, http.StatusServiceUnavailable, "Email service not configured")
	case errors.Is(err, bulk.ErrNoRecipients):
		respondErr(w, http.StatusBadRequest, "No teams found")
	case errors.Is(err, bulk.ErrTemplateNotFound):
		respondErr(w, http.StatusNotFound, "Template not found")
	case errors.Is(err, bulk.ErrMissingContent):
		respondErr(w, http.StatusBadRequest, "Subject and body are required")
	default:
		var de *email.DeliveryError
		if !errors.As(err, &de) {
			return false
		}
		respondErr(w, http.StatusBadGateway, "Failed to send email: "+de.Error())
	}
	return true
}

// ─── POST /api/email/bulk-send ────────────────────────────────────────────────

type bulkSendRequest struct {
	TemplateID    string `json:"templateId"`
	CustomSubject string `json:"customSubject"`
	CustomBody    string `json:"customBody"`
	// VerifiedOnly defaults to true when omitted.
	VerifiedOnly *bool `json:"verifiedOnly"`
}

type bulkSendResponse struct {
	Message string `json:"message"`
	bulk.Report
}

// handleBulkSend sends the selected content to every matching team leader,
// one at a time. Per-recipient failures are reported in the body with a 200;
// only whole-call failures change the status.
func (s *Server) handleBulkSend(w http.ResponseWriter, r *http.Request) {
	var req bulkSendRequest
	if !decode(w, r, &req) {
		return
	}
	verifiedOnly := req.VerifiedOnly == nil || *req.VerifiedOnly

	teams, err := s.q.ListRecipients(r.Context(), verifiedOnly)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("bulk send: list recipients: %w", err))
		return
	}

	content := bulk.Content{
		TemplateID: strings.TrimSpace(req.TemplateID),
		Subject:    req.CustomSubject,
		Body:       req.CustomBody,
	}
	ctx := detach(r)
	rep, err := s.dispatcher.Send(ctx, bulk.RecipientsFromTeams(teams), content)
	if err != nil {
		if !respondSendErr(w, err) {
			s.respondInternalErr(w, r, err)
		}
		return
	}

	subject := content.Subject
	if content.TemplateID != "" {
		subject = "template:" + content.TemplateID
	}
	if _, err := s.store.RecordEmailRun(ctx, store.EmailRun{
		TemplateID: content.TemplateID,
		Subject:    subject,
		Recipients: len(teams),
		Successful: rep.Successful,
		Failed:     rep.Failed,
		Failures:   rep.Errors,
	}); err != nil {
		s.logger.Warn("bulk send: record run", "error", err, logField(r))
	}

	respond(w, http.StatusOK, bulkSendResponse{
		Message: "Bulk email process completed",
		Report:  rep,
	})
}

// ─── POST /api/email/send-to-team ─────────────────────────────────────────────

type sendToTeamRequest struct {
	TeamID        string `json:"teamId"`
	TemplateID    string `json:"templateId"`
	CustomSubject string `json:"customSubject"`
	CustomBody    string `json:"customBody"`
}

// handleSendToTeam sends one personalised email to a team leader. Custom
// content is rendered with the same placeholders as templates.
func (s *Server) handleSendToTeam(w http.ResponseWriter, r *http.Request) {
	var req sendToTeamRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := uuid.Parse(req.TeamID)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid teamId")
		return
	}

	team, err := s.q.GetTeamByID(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, http.StatusNotFound, "Team not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("send to team: load team: %w", err))
		return
	}

	msgID, err := s.dispatcher.SendOne(detach(r), bulk.RecipientFromTeam(team), bulk.Content{
		TemplateID: strings.TrimSpace(req.TemplateID),
		Subject:    req.CustomSubject,
		Body:       req.CustomBody,
	})
	if err != nil {
		if !respondSendErr(w, err) {
			s.respondInternalErr(w, r, err)
		}
		return
	}

	respond(w, http.StatusOK, map[string]string{
		"message":   "Email sent successfully",
		"messageId": msgID,
	})
}

// ─── POST /api/email/test ─────────────────────────────────────────────────────

type testEmailRequest struct {
	Email string `json:"email"`
}

// handleTestEmail sends a fixed message to check the SMTP configuration.
func (s *Server) handleTestEmail(w http.ResponseWriter, r *http.Request) {
	var req testEmailRequest
	if !decode(w, r, &req) {
		return
	}
	to := strings.TrimSpace(req.Email)
	if to == "" {
		respondErr(w, http.StatusBadRequest, "email is required")
		return
	}

	msgID, err := s.mailer.Send(detach(r), email.Message{
		To:      to,
		Subject: fmt.Sprintf("Test Email - %s Admin", s.cfg.EventName),
		HTML:    email.TestHTML(s.cfg.EventName),
	})
	if err != nil {
		if !respondSendErr(w, err) {
			s.respondInternalErr(w, r, err)
		}
		return
	}

	respond(w, http.StatusOK, map[string]string{
		"message":   "Test email sent successfully",
		"messageId": msgID,
	})
}
