package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nyashahama/event-admin-backend/internal/invoice"
)

// ─── POST /api/invoices/generate-pdf ──────────────────────────────────────────

type generateInvoiceRequest struct {
	InvoiceNumber   string         `json:"invoice_number"`
	CustomerName    string         `json:"customer_name"`
	CustomerEmail   string         `json:"customer_email"`
	CustomerPhone   string         `json:"customer_phone"`
	CustomerAddress string         `json:"customer_address"`
	InvoiceDate     string         `json:"invoice_date"`
	DueDate         string         `json:"due_date"`
	Items           []invoice.Item `json:"items"`
	Subtotal        float64        `json:"subtotal"`
	TaxPercentage   float64        `json:"tax_percentage"`
	TaxAmount       float64        `json:"tax_amount"`
	DiscountAmount  float64        `json:"discount_amount"`
	TotalAmount     float64        `json:"total_amount"`
	Currency        string         `json:"currency"`
	Status          string         `json:"status"`
	PaymentTerms    string         `json:"payment_terms"`
	Notes           string         `json:"notes"`
	CompanyName     string         `json:"company_name"`
	CompanyAddress  string         `json:"company_address"`
	CompanyEmail    string         `json:"company_email"`
	CompanyPhone    string         `json:"company_phone"`
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp. An empty
// string yields the zero time, which Validate reports as missing.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (req generateInvoiceRequest) toInvoice() (invoice.Invoice, error) {
	issued, err := parseDate(req.InvoiceDate)
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("invalid invoice_date: %w", err)
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("invalid due_date: %w", err)
	}
	return invoice.Invoice{
		Number: req.InvoiceNumber,
		Issuer: invoice.Party{
			Name:    req.CompanyName,
			Email:   req.CompanyEmail,
			Phone:   req.CompanyPhone,
			Address: req.CompanyAddress,
		},
		Customer: invoice.Party{
			Name:    req.CustomerName,
			Email:   req.CustomerEmail,
			Phone:   req.CustomerPhone,
			Address: req.CustomerAddress,
		},
		IssueDate:    issued,
		DueDate:      due,
		Items:        req.Items,
		Subtotal:     req.Subtotal,
		TaxPercent:   req.TaxPercentage,
		TaxAmount:    req.TaxAmount,
		Discount:     req.DiscountAmount,
		Total:        req.TotalAmount,
		Currency:     req.Currency,
		Status:       req.Status,
		PaymentTerms: req.PaymentTerms,
		Notes:        req.Notes,
	}, nil
}

// handleGenerateInvoice renders an ad-hoc invoice from form data and streams
// it back as a download. Missing totals are computed. The file is removed as
// soon as it has been streamed.
func (s *Server) handleGenerateInvoice(w http.ResponseWriter, r *http.Request) {
	var req generateInvoiceRequest
	if !decode(w, r, &req) {
		return
	}

	inv, err := req.toInvoice()
	if err != nil {
		respondErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := inv.Validate(); err != nil {
		if errors.Is(err, invoice.ErrInvalid) {
			respondErr(w, http.StatusBadRequest, "Missing required fields")
			return
		}
		s.respondInternalErr(w, r, err)
		return
	}
	inv = inv.Finalize()

	path := invoice.TempPath(s.cfg.InvoiceDir, fileSafe(inv.Number), time.Now())
	if err := s.invoices.Render(r.Context(), inv, path); err != nil {
		s.logger.Error("generate invoice: render", "error", err, logField(r))
		respondErr(w, http.StatusInternalServerError, "Failed to create invoice")
		return
	}
	defer func() {
		if err := s.cleaner.RemoveNow(path); err != nil {
			s.logger.Warn("generate invoice: remove file", "path", path, "error", err, logField(r))
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("generate invoice: open: %w", err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, fileSafe(inv.Number)))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		s.logger.Warn("generate invoice: stream", "error", err, logField(r))
	}
}

// fileSafe keeps letters, digits, '-' and '_' so an invoice number can be
// used in a path and a header.
func fileSafe(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
