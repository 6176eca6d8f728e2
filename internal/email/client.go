// Package email defines the interface for outbound email delivery and
// provides an SMTP-backed implementation with bounded retry.
package email

import (
	"context"
	"errors"
	"fmt"
)

// Attachment is a file streamed from disk into the outgoing message.
type Attachment struct {
	Filename    string // name shown to the recipient, e.g. "Singularity_Invoice.pdf"
	Path        string // local path read at send time
	ContentType string // e.g. "application/pdf"
}

// Message is one outgoing email.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Sender is the interface the bulk dispatcher, the verification workflow and
// the API use to send email. Tests inject a stub that records calls without
// touching the network.
type Sender interface {
	// Validate reports ErrNotConfigured when credentials are missing. It never
	// performs network I/O, so callers use it as a pre-flight check.
	Validate() error

	// Send delivers m and returns the generated Message-ID. Every call opens
	// its own connection; there is no deduplication, so two calls send twice.
	Send(ctx context.Context, m Message) (string, error)
}

// ─── ERRORS ───────────────────────────────────────────────────────────────────

var (
	// ErrNotConfigured means the transport is missing credentials. Nothing was
	// sent and retrying will not help.
	ErrNotConfigured = errors.New("email: service not configured")

	ErrTransient        = errors.New("email: transient delivery failure")
	ErrAuthentication   = errors.New("email: authentication rejected")
	ErrInvalidRecipient = errors.New("email: invalid recipient")
	ErrRejected         = errors.New("email: message rejected")
)

// DeliveryError is returned by Send after the final attempt fails. Err is the
// last underlying error; errors.Is matches the sentinel for Kind. Attempts is
// zero when the message was refused before dialing.
type DeliveryError struct {
	Kind     Kind
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("email: %s failure: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("email: %s failure after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func (e *DeliveryError) Is(target error) bool {
	return target == e.Kind.sentinel()
}
