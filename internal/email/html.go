package email

import (
	"fmt"
	"html"
)

// PaymentConfirmedParams fills the payment confirmation body.
type PaymentConfirmedParams struct {
	EventName     string // e.g. "Singularity Hackathon 2026"
	OrganizerName string // footer signature
	LeaderName    string
	TeamName      string
	TicketType    string
	AmountPaid    string // already formatted, e.g. "₹1500"
}

// PaymentConfirmedHTML renders the email sent with the invoice after a
// payment is verified.
func PaymentConfirmedHTML(p PaymentConfirmedParams) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin: 0; padding: 0;">
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); padding: 40px 20px; border-radius: 10px;">
  <div style="background: white; padding: 30px; border-radius: 8px; box-shadow: 0 4px 6px rgba(0,0,0,0.1);">
    <h2 style="color: #667eea; margin-bottom: 20px;">Payment Verified!</h2>
    <p style="color: #333; line-height: 1.6;">Dear %s,</p>
    <p style="color: #333; line-height: 1.6;">Congratulations! Your payment for <strong>%s</strong> has been verified.</p>
    <div style="background: #f5f5f5; padding: 20px; border-radius: 6px; margin: 20px 0;">
      <p style="margin: 5px 0; color: #333;"><strong>Ticket Type:</strong> %s</p>
      <p style="margin: 5px 0; color: #333;"><strong>Amount Paid:</strong> %s</p>
    </div>
    <p style="color: #333; line-height: 1.6;">Please find your invoice attached to this email.</p>
    <p style="color: #333; line-height: 1.6;">See you at %s!</p>
    <hr style="border: none; border-top: 1px solid #e0e0e0; margin: 20px 0;">
    <p style="color: #666; font-size: 12px;">%s</p>
  </div>
</div>
</body>
</html>`,
		html.EscapeString(p.LeaderName),
		html.EscapeString(p.TeamName),
		html.EscapeString(p.TicketType),
		html.EscapeString(p.AmountPaid),
		html.EscapeString(p.EventName),
		html.EscapeString(p.OrganizerName),
	)
}

// TestHTML renders the SMTP configuration test email.
func TestHTML(eventName string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin: 0; padding: 0;">
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); padding: 40px 20px; border-radius: 10px;">
  <div style="background: white; padding: 30px; border-radius: 8px;">
    <h2 style="color: #667eea;">Email Configuration Test</h2>
    <p style="color: #333;">This is a test email from the %s admin suite.</p>
    <p style="color: #333;">If you received this, your email configuration is working correctly!</p>
  </div>
</div>
</body>
</html>`, html.EscapeString(eventName))
}
