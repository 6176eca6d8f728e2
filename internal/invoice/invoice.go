// Package invoice builds invoice documents and renders them to PDF files.
//
// An Invoice is a plain value: FromTeam derives the payment invoice for a
// verified team, and the ad-hoc invoice endpoint fills one from a form and
// calls Finalize to compute the totals it left out.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nyashahama/event-admin-backend/internal/db"
)

// Renderer writes inv as a document at path. Implementations must not leave
// a partial file behind on error.
type Renderer interface {
	Render(ctx context.Context, inv Invoice, path string) error
}

// Party is an issuer or a customer.
type Party struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Item is one invoice line. A zero Amount is computed as Quantity × Rate.
type Item struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

// Adjustment is a labelled amount shown under the totals, e.g. an amount
// collected that differs from the list price.
type Adjustment struct {
	Label  string
	Amount float64
}

// Invoice is everything the renderer draws.
type Invoice struct {
	Number    string
	Issuer    Party
	Customer  Party
	IssueDate time.Time
	DueDate   time.Time

	Items      []Item
	Subtotal   float64
	TaxPercent float64
	TaxAmount  float64
	Discount   float64
	Total      float64
	Adjustment *Adjustment

	Currency     string
	Status       string // paid | pending | overdue | cancelled
	PaymentTerms string
	Notes        string

	// Attendees is printed as a list under the items.
	Attendees []string
}

const (
	StatusPaid    = "paid"
	StatusPending = "pending"

	DefaultCurrency = "INR"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invoice: missing required fields")

// Validate checks the fields an ad-hoc invoice must carry.
func (inv Invoice) Validate() error {
	var missing []string
	if inv.Number == "" {
		missing = append(missing, "invoice_number")
	}
	if inv.Customer.Name == "" {
		missing = append(missing, "customer_name")
	}
	if inv.Customer.Email == "" {
		missing = append(missing, "customer_email")
	}
	if inv.IssueDate.IsZero() {
		missing = append(missing, "invoice_date")
	}
	if inv.DueDate.IsZero() {
		missing = append(missing, "due_date")
	}
	if len(inv.Items) == 0 {
		missing = append(missing, "items")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(missing, ", "))
	}
	return nil
}

// Finalize fills whatever was left zero: line amounts, subtotal, tax amount
// from TaxPercent, total as subtotal + tax - discount, currency and status.
func (inv Invoice) Finalize() Invoice {
	items := make([]Item, len(inv.Items))
	for i, it := range inv.Items {
		if it.Amount == 0 && it.Quantity != 0 {
			it.Amount = it.Quantity * it.Rate
		}
		items[i] = it
	}
	inv.Items = items

	if inv.Subtotal == 0 {
		for _, it := range inv.Items {
			inv.Subtotal += it.Amount
		}
	}
	if inv.TaxAmount == 0 && inv.TaxPercent != 0 {
		inv.TaxAmount = inv.Subtotal * inv.TaxPercent / 100
	}
	if inv.Total == 0 {
		inv.Total = inv.Subtotal + inv.TaxAmount - inv.Discount
	}
	if inv.Currency == "" {
		inv.Currency = DefaultCurrency
	}
	if inv.Status == "" {
		inv.Status = StatusPending
	}
	return inv
}

// Branding identifies the issuer on payment invoices.
type Branding struct {
	EventName     string
	OrganizerName string
	ContactEmail  string
	Currency      string
}

// FromTeam builds the payment invoice for a verified team. The total is the
// amount actually collected when recorded, otherwise the ticket amount.
func FromTeam(team db.Team, members []db.Member, b Branding, now time.Time) Invoice {
	currency := b.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	paid := team.Amount
	var adj *Adjustment
	if team.MoneyCollected.Valid {
		paid = team.MoneyCollected.Float64
		if paid != team.Amount {
			adj = &Adjustment{Label: "Amount Collected (Adjusted)", Amount: paid}
		}
	}

	attendees := make([]string, 0, len(members))
	for _, m := range members {
		attendees = append(attendees, fmt.Sprintf("%s (%s)", m.Name, m.Email))
	}

	return Invoice{
		Number: strings.ToUpper(team.ID.String()[:8]),
		Issuer: Party{
			Name:  b.OrganizerName,
			Email: b.ContactEmail,
		},
		Customer: Party{
			Name:  team.TeamName,
			Email: team.LeaderEmail,
			Phone: team.LeaderPhone,
		},
		IssueDate: now,
		DueDate:   now,
		Items: []Item{{
			Description: team.TicketType + " Registration Fee",
			Quantity:    1,
			Rate:        team.Amount,
			Amount:      team.Amount,
		}},
		Subtotal:   team.Amount,
		Total:      paid,
		Adjustment: adj,
		Currency:   currency,
		Status:     StatusPaid,
		Notes:      fmt.Sprintf("Team leader: %s. Thank you for registering for %s.", team.LeaderName, b.EventName),
		Attendees:  attendees,
	}
}

// TempPath returns a path for a transient invoice file that is unique per
// key and call: dir/invoice_<key>_<unixnano>.pdf.
func TempPath(dir, key string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("invoice_%s_%d.pdf", key, now.UnixNano()))
}

// TempPattern matches the files TempPath creates, for sweeping.
const TempPattern = "invoice_*.pdf"
