package api

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/event-admin-backend/internal/db"
	"github.com/nyashahama/event-admin-backend/internal/email"
	"github.com/nyashahama/event-admin-backend/internal/store"
	"github.com/nyashahama/event-admin-backend/internal/verification"
)

// validTicketTypes are the ticket tiers a team can register under.
var validTicketTypes = []string{"Early Bird", "Proper Price", "Late Lateef"}

func validTicketType(t string) bool {
	for _, v := range validTicketTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ─── RESPONSE SHAPES ──────────────────────────────────────────────────────────

type teamResponse struct {
	ID             string   `json:"id"`
	TeamName       string   `json:"team_name"`
	LeaderName     string   `json:"leader_name"`
	LeaderEmail    string   `json:"leader_email"`
	LeaderPhone    string   `json:"leader_phone,omitempty"`
	TicketType     string   `json:"ticket_type"`
	Amount         float64  `json:"amount"`
	MoneyCollected *float64 `json:"money_collected"`
	IsVerified     bool     `json:"is_verified"`
	VerifiedAt     string   `json:"verified_at,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

func toTeamResponse(t db.Team) teamResponse {
	resp := teamResponse{
		ID:          t.ID.String(),
		TeamName:    t.TeamName,
		LeaderName:  t.LeaderName,
		LeaderEmail: t.LeaderEmail,
		LeaderPhone: t.LeaderPhone,
		TicketType:  t.TicketType,
		Amount:      t.Amount,
		IsVerified:  t.IsVerified,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.MoneyCollected.Valid {
		v := t.MoneyCollected.Float64
		resp.MoneyCollected = &v
	}
	if t.VerifiedAt.Valid {
		resp.VerifiedAt = t.VerifiedAt.Time.UTC().Format(time.RFC3339)
	}
	return resp
}

type memberResponse struct {
	ID          string `json:"id"`
	TeamID      string `json:"team_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Prn         string `json:"prn"`
	YearOfStudy string `json:"year_of_study"`
	Department  string `json:"department"`
}

func toMemberResponse(m db.Member) memberResponse {
	return memberResponse{
		ID:          m.ID.String(),
		TeamID:      m.TeamID.String(),
		Name:        m.Name,
		Email:       m.Email,
		Phone:       m.Phone.String,
		Prn:         m.Prn.String,
		YearOfStudy: m.YearOfStudy.String,
		Department:  m.Department.String,
	}
}

func toMemberResponses(ms []db.Member) []memberResponse {
	out := make([]memberResponse, len(ms))
	for i, m := range ms {
		out[i] = toMemberResponse(m)
	}
	return out
}

// ─── GET /api/teams ───────────────────────────────────────────────────────────

type listTeamsResponse struct {
	Teams      []teamResponse `json:"teams"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
}

// handleListTeams pages through teams, newest first. Query parameters:
// page (1-based, default 1), limit (default 20, max 100), search (matched
// against team name, leader name and leader email) and verified
// ("true"|"false"; anything else means no filter).
func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt(q.Get("page"), 1, 1, math.MaxInt32)
	limit := queryInt(q.Get("limit"), 20, 1, 100)
	search := strings.TrimSpace(q.Get("search"))

	var verified sql.NullBool
	if v, err := strconv.ParseBool(q.Get("verified")); err == nil {
		verified = sql.NullBool{Bool: v, Valid: true}
	}

	teams, err := s.q.ListTeams(r.Context(), db.ListTeamsParams{
		Search:   search,
		Verified: verified,
		Limit:    int32(limit),
		Offset:   int32((page - 1) * limit),
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list teams: %w", err))
		return
	}
	total, err := s.q.CountTeams(r.Context(), db.CountTeamsParams{Search: search, Verified: verified})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("count teams: %w", err))
		return
	}

	out := make([]teamResponse, len(teams))
	for i, t := range teams {
		out[i] = toTeamResponse(t)
	}
	respond(w, http.StatusOK, listTeamsResponse{
		Teams:      out,
		Total:      total,
		Page:       page,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	})
}

func queryInt(raw string, def, lo, hi int) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return max(lo, min(v, hi))
}

// ─── GET /api/teams/stats/overview ────────────────────────────────────────────

type statsResponse struct {
	TotalTeams    int64   `json:"totalTeams"`
	VerifiedTeams int64   `json:"verifiedTeams"`
	PendingTeams  int64   `json:"pendingTeams"`
	TotalRevenue  float64 `json:"totalRevenue"`
	TotalMembers  int64   `json:"totalMembers"`
}

func (s *Server) handleTeamStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.q.GetTeamStats(r.Context())
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("team stats: %w", err))
		return
	}
	respond(w, http.StatusOK, statsResponse{
		TotalTeams:    st.TotalTeams,
		VerifiedTeams: st.VerifiedTeams,
		PendingTeams:  st.PendingTeams,
		TotalRevenue:  st.TotalRevenue,
		TotalMembers:  st.TotalMembers,
	})
}

// ─── GET /api/teams/:teamID ───────────────────────────────────────────────────

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := teamIDParam(w, r)
	if !ok {
		return
	}
	team, members, err := s.store.TeamWithMembers(r.Context(), id)
	if errors.Is(err, store.ErrTeamNotFound) {
		respondErr(w, http.StatusNotFound, "Team not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"team":    toTeamResponse(team),
		"members": toMemberResponses(members),
	})
}

// ─── POST /api/teams/add-manual ───────────────────────────────────────────────

type teamInput struct {
	TeamName       string   `json:"team_name"`
	LeaderName     string   `json:"leader_name"`
	LeaderEmail    string   `json:"leader_email"`
	LeaderPhone    string   `json:"leader_phone"`
	TicketType     string   `json:"ticket_type"`
	Amount         float64  `json:"amount"`
	MoneyCollected *float64 `json:"money_collected"`
}

type memberInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Prn         string `json:"prn"`
	YearOfStudy string `json:"year_of_study"`
	Department  string `json:"department"`
}

func (m memberInput) complete() bool {
	return m.Name != "" && m.Email != "" && m.Phone != "" && m.Prn != ""
}

func (m memberInput) toStore() store.MemberInput {
	return store.MemberInput(m)
}

type addTeamRequest struct {
	Team    *teamInput    `json:"team"`
	Members []memberInput `json:"members"`
}

// handleAddTeam registers a team and its members in one transaction. When
// money_collected is omitted it defaults to the ticket amount.
func (s *Server) handleAddTeam(w http.ResponseWriter, r *http.Request) {
	var req addTeamRequest
	if !decode(w, r, &req) {
		return
	}

	t := req.Team
	if t == nil || t.TeamName == "" || t.LeaderName == "" || t.LeaderEmail == "" || t.TicketType == "" || t.Amount <= 0 {
		respondErr(w, http.StatusBadRequest, "Missing required team fields")
		return
	}
	if !validTicketType(t.TicketType) {
		respondErr(w, http.StatusBadRequest, "Invalid ticket_type. Must be one of: "+strings.Join(validTicketTypes, ", "))
		return
	}
	if len(req.Members) == 0 {
		respondErr(w, http.StatusBadRequest, "At least one team member is required")
		return
	}
	if len(req.Members) > store.MaxMembers {
		respondErr(w, http.StatusBadRequest, fmt.Sprintf("Team cannot have more than %d members", store.MaxMembers))
		return
	}

	members := make([]store.MemberInput, len(req.Members))
	for i, m := range req.Members {
		if !m.complete() {
			respondErr(w, http.StatusBadRequest, fmt.Sprintf("Member %d missing required fields (name, email, phone, prn)", i+1))
			return
		}
		members[i] = m.toStore()
	}

	collected := t.Amount
	if t.MoneyCollected != nil {
		collected = *t.MoneyCollected
	}

	team, created, err := s.store.CreateTeamWithMembers(r.Context(), store.CreateTeamParams{
		Team: db.CreateTeamParams{
			TeamName:       t.TeamName,
			LeaderName:     t.LeaderName,
			LeaderEmail:    t.LeaderEmail,
			LeaderPhone:    t.LeaderPhone,
			TicketType:     t.TicketType,
			Amount:         t.Amount,
			MoneyCollected: sql.NullFloat64{Float64: collected, Valid: true},
		},
		Members: members,
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("add team: %w", err))
		return
	}

	s.logger.Info("team added", "team_id", team.ID, "members", len(created), "admin", adminFrom(r.Context()), logField(r))
	respond(w, http.StatusCreated, map[string]any{
		"message": "Team added successfully",
		"team":    toTeamResponse(team),
		"members": toMemberResponses(created),
	})
}

// ─── POST /api/teams/:teamID/member ───────────────────────────────────────────

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := teamIDParam(w, r)
	if !ok {
		return
	}
	var req memberInput
	if !decode(w, r, &req) {
		return
	}
	if !req.complete() {
		respondErr(w, http.StatusBadRequest, "Missing required member fields (name, email, phone, prn)")
		return
	}

	member, err := s.store.AddMember(r.Context(), id, req.toStore())
	switch {
	case errors.Is(err, store.ErrTeamNotFound):
		respondErr(w, http.StatusNotFound, "Team not found")
		return
	case errors.Is(err, store.ErrTeamFull):
		respondErr(w, http.StatusBadRequest, fmt.Sprintf("Team already has %d members (maximum limit)", store.MaxMembers))
		return
	case err != nil:
		s.respondInternalErr(w, r, err)
		return
	}

	respond(w, http.StatusCreated, map[string]any{
		"message": "Member added successfully",
		"member":  toMemberResponse(member),
	})
}

// ─── PUT /api/teams/:teamID ────────────────────────────────────────────────────

// updateTeamRequest holds the editable team fields. Omitted fields are left
// unchanged. The verified flag is not among them, so an unknown-field error
// rejects any attempt to set it here.
type updateTeamRequest struct {
	TeamName       *string  `json:"team_name"`
	LeaderName     *string  `json:"leader_name"`
	LeaderEmail    *string  `json:"leader_email"`
	LeaderPhone    *string  `json:"leader_phone"`
	TicketType     *string  `json:"ticket_type"`
	Amount         *float64 `json:"amount"`
	MoneyCollected *float64 `json:"money_collected"`
}

// validate returns a client-facing message, or "" when the request is usable.
func (req updateTeamRequest) validate() string {
	if req == (updateTeamRequest{}) {
		return "At least one field is required"
	}
	for _, f := range []struct {
		name string
		v    *string
	}{
		{"team_name", req.TeamName},
		{"leader_name", req.LeaderName},
		{"leader_email", req.LeaderEmail},
	} {
		if f.v != nil && strings.TrimSpace(*f.v) == "" {
			return f.name + " cannot be empty"
		}
	}
	if req.TicketType != nil && !validTicketType(*req.TicketType) {
		return "Invalid ticket_type. Must be one of: " + strings.Join(validTicketTypes, ", ")
	}
	if req.Amount != nil && *req.Amount < 0 {
		return "amount cannot be negative"
	}
	if req.MoneyCollected != nil && *req.MoneyCollected < 0 {
		return "money_collected cannot be negative"
	}
	return ""
}

func (req updateTeamRequest) params(id uuid.UUID) db.UpdateTeamParams {
	return db.UpdateTeamParams{
		ID:             id,
		TeamName:       optString(req.TeamName),
		LeaderName:     optString(req.LeaderName),
		LeaderEmail:    optString(req.LeaderEmail),
		LeaderPhone:    optString(req.LeaderPhone),
		TicketType:     optString(req.TicketType),
		Amount:         optFloat(req.Amount),
		MoneyCollected: optFloat(req.MoneyCollected),
	}
}

// handleUpdateTeam corrects a team's details, typically money_collected after
// a partial or adjusted payment. It is allowed on verified teams.
func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := teamIDParam(w, r)
	if !ok {
		return
	}
	var req updateTeamRequest
	if !decode(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		respondErr(w, http.StatusBadRequest, msg)
		return
	}

	team, err := s.q.UpdateTeam(r.Context(), req.params(id))
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, http.StatusNotFound, "Team not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("update team: %w", err))
		return
	}

	s.logger.Info("team updated", "team_id", team.ID, "admin", adminFrom(r.Context()), logField(r))
	respond(w, http.StatusOK, map[string]any{
		"message": "Team updated successfully",
		"team":    toTeamResponse(team),
	})
}

// ─── PUT /api/teams/member/:memberID ──────────────────────────────────────────

type updateMemberRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Prn         *string `json:"prn"`
	YearOfStudy *string `json:"year_of_study"`
	Department  *string `json:"department"`
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := memberIDParam(w, r)
	if !ok {
		return
	}
	var req updateMemberRequest
	if !decode(w, r, &req) {
		return
	}
	switch {
	case req == (updateMemberRequest{}):
		respondErr(w, http.StatusBadRequest, "At least one field is required")
		return
	case req.Name != nil && strings.TrimSpace(*req.Name) == "":
		respondErr(w, http.StatusBadRequest, "name cannot be empty")
		return
	case req.Email != nil && strings.TrimSpace(*req.Email) == "":
		respondErr(w, http.StatusBadRequest, "email cannot be empty")
		return
	}

	member, err := s.q.UpdateMember(r.Context(), db.UpdateMemberParams{
		ID:          id,
		Name:        optString(req.Name),
		Email:       optString(req.Email),
		Phone:       optString(req.Phone),
		Prn:         optString(req.Prn),
		YearOfStudy: optString(req.YearOfStudy),
		Department:  optString(req.Department),
	})
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, http.StatusNotFound, "Member not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("update member: %w", err))
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"message": "Member updated successfully",
		"member":  toMemberResponse(member),
	})
}

// ─── DELETE /api/teams/member/:memberID ───────────────────────────────────────

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := memberIDParam(w, r)
	if !ok {
		return
	}
	n, err := s.q.DeleteMember(r.Context(), id)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("delete member: %w", err))
		return
	}
	if n == 0 {
		respondErr(w, http.StatusNotFound, "Member not found")
		return
	}

	s.logger.Info("member deleted", "member_id", id, "admin", adminFrom(r.Context()), logField(r))
	respond(w, http.StatusOK, map[string]string{"message": "Member deleted successfully"})
}

func optString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.TrimSpace(*p), Valid: true}
}

func optFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

// ─── POST /api/teams/:teamID/verify ───────────────────────────────────────────

// handleVerifyTeam runs the verification workflow and maps its outcome:
//
//	email_sent       → 200
//	already_verified → 409
//	team_not_found   → 404
//	invoice_failed   → 500 (team stays verified)
//	email_failed     → 502 (team stays verified)
//
// An unconfigured mail transport is refused with 503 before anything is
// written.
func (s *Server) handleVerifyTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := teamIDParam(w, r)
	if !ok {
		return
	}

	out, err := s.verifier.Verify(detach(r), id)
	if errors.Is(err, email.ErrNotConfigured) {
		respondErr(w, http.StatusServiceUnavailable, "Email service not configured. Please set the SMTP credentials.")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}

	switch out.Status {
	case verification.StatusEmailSent:
		respond(w, http.StatusOK, map[string]any{
			"message":   "Payment verified and invoice sent successfully",
			"messageId": out.MessageID,
		})
	case verification.StatusAlreadyVerified:
		body := map[string]any{
			"error":    "Team already verified",
			"status":   string(out.Status),
			"verified": true,
		}
		if out.Team.VerifiedAt.Valid {
			body["verifiedAt"] = out.Team.VerifiedAt.Time.UTC().Format(time.RFC3339)
		}
		respond(w, http.StatusConflict, body)
	case verification.StatusTeamNotFound:
		respondErr(w, http.StatusNotFound, "Team not found")
	case verification.StatusInvoiceFailed:
		respond(w, http.StatusInternalServerError, map[string]any{
			"error":        "Team verified but invoice generation failed: " + out.Reason,
			"verified":     true,
			"emailSent":    false,
			"pdfGenerated": false,
		})
	case verification.StatusEmailFailed:
		respond(w, http.StatusBadGateway, map[string]any{
			"error":     "Team verified but email failed: " + out.Reason,
			"verified":  true,
			"emailSent": false,
		})
	default:
		s.respondInternalErr(w, r, fmt.Errorf("verify: unexpected status %q", out.Status))
	}
}
