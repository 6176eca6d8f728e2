package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/event-admin-backend/internal/db"
)

// MaxMembers is the team size cap, leader included in the member rows.
const MaxMembers = 4

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// MemberInput is one member row without the team id, which the store fills in.
type MemberInput struct {
	Name        string
	Email       string
	Phone       string
	Prn         string
	YearOfStudy string
	Department  string
}

func (m MemberInput) params(teamID uuid.UUID) db.CreateMemberParams {
	return db.CreateMemberParams{
		TeamID:      teamID,
		Name:        m.Name,
		Email:       m.Email,
		Phone:       nullString(m.Phone),
		Prn:         nullString(m.Prn),
		YearOfStudy: nullString(m.YearOfStudy),
		Department:  nullString(m.Department),
	}
}

// CreateTeamParams is a manual registration: the team row and its members.
type CreateTeamParams struct {
	Team    db.CreateTeamParams
	Members []MemberInput
}

// EmailRun summarises one bulk dispatch for the email_log table. Failures is
// serialised as JSON as-is.
type EmailRun struct {
	TemplateID string
	Subject    string
	Recipients int
	Successful int
	Failed     int
	Failures   any
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

var (
	ErrTeamNotFound = errors.New("store: team not found")

	// ErrTeamAlreadyVerified is returned by MarkVerified when the conditional
	// update matched no row but the team exists. The returned team is the
	// current row, so callers can report when it was verified.
	ErrTeamAlreadyVerified = errors.New("store: team already verified")

	ErrTeamFull = errors.New("store: team already has the maximum number of members")
)

// ─── METHODS ─────────────────────────────────────────────────────────────────

// MarkVerified flips is_verified false→true with a single conditional UPDATE.
// Of any number of concurrent callers for the same team exactly one gets a nil
// error; the rest get ErrTeamAlreadyVerified.
func (s *Store) MarkVerified(ctx context.Context, teamID uuid.UUID) (db.Team, error) {
	team, err := s.q.MarkTeamVerified(ctx, teamID)
	if err == nil {
		return team, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return db.Team{}, fmt.Errorf("MarkVerified: %w", err)
	}

	// Zero rows: either the team does not exist or the flag was already set.
	existing, err := s.q.GetTeamByID(ctx, teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Team{}, ErrTeamNotFound
	}
	if err != nil {
		return db.Team{}, fmt.Errorf("MarkVerified: load team: %w", err)
	}
	return existing, ErrTeamAlreadyVerified
}

// TeamWithMembers loads a team and its members.
func (s *Store) TeamWithMembers(ctx context.Context, teamID uuid.UUID) (db.Team, []db.Member, error) {
	team, err := s.q.GetTeamByID(ctx, teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Team{}, nil, ErrTeamNotFound
	}
	if err != nil {
		return db.Team{}, nil, fmt.Errorf("TeamWithMembers: load team: %w", err)
	}
	members, err := s.q.ListMembersByTeam(ctx, teamID)
	if err != nil {
		return db.Team{}, nil, fmt.Errorf("TeamWithMembers: list members: %w", err)
	}
	return team, members, nil
}

// CreateTeamWithMembers inserts the team and every member in one transaction.
// Either all rows are written or none are.
func (s *Store) CreateTeamWithMembers(ctx context.Context, p CreateTeamParams) (db.Team, []db.Member, error) {
	if len(p.Members) > MaxMembers {
		return db.Team{}, nil, ErrTeamFull
	}

	var (
		team    db.Team
		members []db.Member
	)
	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		created, err := q.CreateTeam(ctx, p.Team)
		if err != nil {
			return fmt.Errorf("CreateTeamWithMembers: create team: %w", err)
		}
		team = created

		members = make([]db.Member, 0, len(p.Members))
		for i, m := range p.Members {
			row, err := q.CreateMember(ctx, m.params(created.ID))
			if err != nil {
				return fmt.Errorf("CreateTeamWithMembers: create member %d: %w", i, err)
			}
			members = append(members, row)
		}
		return nil
	})
	if err != nil {
		return db.Team{}, nil, err
	}
	return team, members, nil
}

// AddMember appends one member, enforcing MaxMembers. The team row is locked
// for the duration so two concurrent adds cannot both pass the count check.
func (s *Store) AddMember(ctx context.Context, teamID uuid.UUID, m MemberInput) (db.Member, error) {
	var member db.Member

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		if _, err := q.GetTeamForUpdate(ctx, teamID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrTeamNotFound
			}
			return fmt.Errorf("AddMember: lock team: %w", err)
		}

		count, err := q.CountMembersByTeam(ctx, teamID)
		if err != nil {
			return fmt.Errorf("AddMember: count members: %w", err)
		}
		if count >= MaxMembers {
			return ErrTeamFull
		}

		created, err := q.CreateMember(ctx, m.params(teamID))
		if err != nil {
			return fmt.Errorf("AddMember: create member: %w", err)
		}
		member = created
		return nil
	})
	if err != nil {
		return db.Member{}, err
	}
	return member, nil
}

// RecordEmailRun writes one email_log row. The failure list is stored as
// JSONB; a nil or empty list stores NULL.
func (s *Store) RecordEmailRun(ctx context.Context, run EmailRun) (db.EmailLog, error) {
	failures := pqtype.NullRawMessage{}
	if run.Failed > 0 && run.Failures != nil {
		raw, err := json.Marshal(run.Failures)
		if err != nil {
			return db.EmailLog{}, fmt.Errorf("RecordEmailRun: marshal failures: %w", err)
		}
		failures = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}

	row, err := s.q.InsertEmailLog(ctx, db.InsertEmailLogParams{
		TemplateID: nullString(run.TemplateID),
		Subject:    run.Subject,
		Recipients: int32(run.Recipients),
		Successful: int32(run.Successful),
		Failed:     int32(run.Failed),
		Failures:   failures,
	})
	if err != nil {
		return db.EmailLog{}, fmt.Errorf("RecordEmailRun: %w", err)
	}
	return row, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
