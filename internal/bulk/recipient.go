package bulk

import (
	"github.com/google/uuid"

	"github.com/nyashahama/event-admin-backend/internal/db"
)

// Recipient is the projection of a team that personalisation reads.
type Recipient struct {
	TeamID         uuid.UUID
	TeamName       string
	LeaderName     string
	LeaderEmail    string
	TicketType     string
	Amount         float64
	MoneyCollected *float64
}

// RecipientFromTeam projects a team row.
func RecipientFromTeam(t db.Team) Recipient {
	r := Recipient{
		TeamID:      t.ID,
		TeamName:    t.TeamName,
		LeaderName:  t.LeaderName,
		LeaderEmail: t.LeaderEmail,
		TicketType:  t.TicketType,
		Amount:      t.Amount,
	}
	if t.MoneyCollected.Valid {
		v := t.MoneyCollected.Float64
		r.MoneyCollected = &v
	}
	return r
}

// RecipientsFromTeams projects every row in order.
func RecipientsFromTeams(teams []db.Team) []Recipient {
	out := make([]Recipient, len(teams))
	for i, t := range teams {
		out[i] = RecipientFromTeam(t)
	}
	return out
}

// Label names the recipient in reports.
func (r Recipient) Label() string { return r.TeamName }

// Fields is the placeholder data map. money_collected is nil, and renders
// empty, when nothing was recorded.
func (r Recipient) Fields() map[string]any {
	var collected any
	if r.MoneyCollected != nil {
		collected = *r.MoneyCollected
	}
	return map[string]any{
		"team_name":       r.TeamName,
		"leader_name":     r.LeaderName,
		"leader_email":    r.LeaderEmail,
		"ticket_type":     r.TicketType,
		"amount":          r.Amount,
		"money_collected": collected,
	}
}
