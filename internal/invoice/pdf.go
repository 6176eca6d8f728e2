package invoice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
)

// PDFRenderer draws an A4 invoice with the core Helvetica font.
type PDFRenderer struct{}

// NewPDFRenderer returns a Renderer producing PDF files.
func NewPDFRenderer() *PDFRenderer { return &PDFRenderer{} }

const (
	pageMargin = 15.0
	lineHeight = 6.0
)

// Render writes inv to path, creating the parent directory if needed. On any
// error the partially written file is removed.
func (r *PDFRenderer) Render(ctx context.Context, inv Invoice, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("invoice: create dir: %w", err)
	}

	pdf := r.draw(inv)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("invoice: layout: %w", err)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("invoice: write %s: %w (cleanup: %v)", path, err, rmErr)
		}
		return fmt.Errorf("invoice: write %s: %w", path, err)
	}
	return nil
}

func (r *PDFRenderer) draw(inv Invoice) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle("Invoice "+inv.Number, true)
	pdf.SetAuthor(inv.Issuer.Name, true)
	pdf.SetCreationDate(inv.IssueDate)
	pdf.AddPage()

	// Core fonts are cp1252; translate so names with accents survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*pageMargin

	// ─── Header ───────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(102, 126, 234)
	pdf.CellFormat(contentW/2, 10, tr(inv.Issuer.Name), "", 0, "L", false, 0, "")
	pdf.SetTextColor(33, 33, 33)
	pdf.CellFormat(contentW/2, 10, "INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range nonEmpty(inv.Issuer.Address, inv.Issuer.Email, inv.Issuer.Phone) {
		pdf.CellFormat(contentW, 5, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// ─── Meta + bill to ───────────────────────────────────────────────────
	top := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW/2, lineHeight, "Bill To", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range nonEmpty(inv.Customer.Name, inv.Customer.Email, inv.Customer.Phone, inv.Customer.Address) {
		pdf.CellFormat(contentW/2, 5, tr(line), "", 1, "L", false, 0, "")
	}
	bottomLeft := pdf.GetY()

	pdf.SetXY(pageMargin+contentW/2, top)
	meta := [][2]string{
		{"Invoice #", inv.Number},
		{"Date", inv.IssueDate.Format("02 Jan 2006")},
	}
	if !inv.DueDate.IsZero() && !inv.DueDate.Equal(inv.IssueDate) {
		meta = append(meta, [2]string{"Due", inv.DueDate.Format("02 Jan 2006")})
	}
	meta = append(meta, [2]string{"Status", strings.ToUpper(inv.Status)})
	for _, kv := range meta {
		pdf.SetX(pageMargin + contentW/2)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentW/4, 5, kv[0], "", 0, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(contentW/4, 5, tr(kv[1]), "", 1, "R", false, 0, "")
	}
	if y := pdf.GetY(); y < bottomLeft {
		pdf.SetY(bottomLeft)
	}
	pdf.Ln(6)

	// ─── Items ────────────────────────────────────────────────────────────
	cols := []float64{contentW * 0.52, contentW * 0.12, contentW * 0.18, contentW * 0.18}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(102, 126, 234)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range []string{"Description", "Qty", "Rate", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(cols[i], 8, h, "", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(33, 33, 33)
	pdf.SetFillColor(245, 245, 245)
	for n, it := range inv.Items {
		fill := n%2 == 1
		pdf.CellFormat(cols[0], 7, tr(it.Description), "", 0, "L", fill, 0, "")
		pdf.CellFormat(cols[1], 7, formatQty(it.Quantity), "", 0, "R", fill, 0, "")
		pdf.CellFormat(cols[2], 7, formatMoney(inv.Currency, it.Rate), "", 0, "R", fill, 0, "")
		pdf.CellFormat(cols[3], 7, formatMoney(inv.Currency, it.Amount), "", 1, "R", fill, 0, "")
	}
	pdf.Ln(3)

	// ─── Totals ───────────────────────────────────────────────────────────
	labelW := cols[0] + cols[1] + cols[2]
	total := func(label string, v float64, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelW, lineHeight, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], lineHeight, formatMoney(inv.Currency, v), "", 1, "R", false, 0, "")
	}
	total("Subtotal", inv.Subtotal, false)
	if inv.TaxAmount != 0 {
		label := "Tax"
		if inv.TaxPercent != 0 {
			label = fmt.Sprintf("Tax (%s%%)", strconv.FormatFloat(inv.TaxPercent, 'f', -1, 64))
		}
		total(label, inv.TaxAmount, false)
	}
	if inv.Discount != 0 {
		total("Discount", -inv.Discount, false)
	}
	if inv.Adjustment != nil {
		total(tr(inv.Adjustment.Label), inv.Adjustment.Amount, false)
	}
	pdf.SetDrawColor(102, 126, 234)
	pdf.Line(pageMargin+labelW-30, pdf.GetY()+1, pageMargin+contentW, pdf.GetY()+1)
	pdf.Ln(2)
	totalLabel := "TOTAL"
	if inv.Status == StatusPaid {
		totalLabel = "TOTAL AMOUNT PAID"
	}
	total(totalLabel, inv.Total, true)
	pdf.Ln(6)

	// ─── Attendees, terms, notes ──────────────────────────────────────────
	if len(inv.Attendees) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(contentW, lineHeight, "Team Members", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for i, a := range inv.Attendees {
			pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("%d. %s", i+1, a)), "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}
	if inv.PaymentTerms != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentW, lineHeight, "Payment Terms", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(contentW, 5, tr(inv.PaymentTerms), "", "L", false)
		pdf.Ln(2)
	}
	if inv.Notes != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentW, lineHeight, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(contentW, 5, tr(inv.Notes), "", "L", false)
	}

	pdf.SetY(-25)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(contentW, 5, "This is a computer generated invoice and does not require a signature.", "", 1, "C", false, 0, "")

	return pdf
}

func nonEmpty(ss ...string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func formatQty(q float64) string {
	if q == 0 {
		return ""
	}
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// formatMoney renders "INR 1,234.50". Negative values keep the sign in front.
func formatMoney(currency string, v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return fmt.Sprintf("%s %s%s%s", currency, sign, b.String(), frac)
}
