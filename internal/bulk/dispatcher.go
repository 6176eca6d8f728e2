// Package bulk personalises one piece of content per recipient and sends it
// through an email.Sender, strictly one recipient at a time with a fixed pause
// between sends. A failing recipient is recorded and the loop moves on.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nyashahama/event-admin-backend/internal/email"
	"github.com/nyashahama/event-admin-backend/internal/mailtemplate"
	"github.com/nyashahama/event-admin-backend/internal/metrics"
	"github.com/nyashahama/event-admin-backend/internal/placeholder"
	"github.com/nyashahama/event-admin-backend/internal/retry"
)

// DefaultDelay is the pause between consecutive sends.
const DefaultDelay = 100 * time.Millisecond

// ─── ERRORS ───────────────────────────────────────────────────────────────────

// Whole-call failures. Each is returned before any message is sent.
var (
	ErrNoRecipients     = errors.New("bulk: no recipients")
	ErrTemplateNotFound = errors.New("bulk: template not found")
	ErrMissingContent   = errors.New("bulk: subject and body are required")
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Content selects what to send: a stored template when TemplateID is set,
// otherwise the literal Subject and Body. Both forms may contain {{key}}
// placeholders.
type Content struct {
	TemplateID string
	Subject    string
	Body       string
}

// Result is the outcome of one recipient's send.
type Result struct {
	Recipient Recipient
	MessageID string
	Err       error
}

// Failure is one failed recipient in a Report.
type Failure struct {
	Team  string `json:"team"`
	Email string `json:"email"`
	Error string `json:"error"`
}

// Report aggregates a bulk run.
type Report struct {
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Errors     []Failure `json:"errors"`
}

// Fold reduces per-recipient results into a Report.
func Fold(results []Result) Report {
	rep := Report{Errors: []Failure{}}
	for _, r := range results {
		if r.Err == nil {
			rep.Successful++
			continue
		}
		rep.Failed++
		rep.Errors = append(rep.Errors, Failure{
			Team:  r.Recipient.Label(),
			Email: r.Recipient.LeaderEmail,
			Error: r.Err.Error(),
		})
	}
	return rep
}

// resolved is Content after the template lookup.
type resolved struct {
	subject string
	body    string
}

// ─── DISPATCHER ───────────────────────────────────────────────────────────────

// Dispatcher sends personalised content to a list of recipients.
type Dispatcher struct {
	sender    email.Sender
	templates mailtemplate.Reader
	delay     time.Duration
	sleep     retry.SleepFunc
	logger    *slog.Logger
	metrics   *metrics.Recorder
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithDelay sets the pause between sends. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(x *Dispatcher) { x.delay = d }
}

// WithSleep replaces the pause implementation.
func WithSleep(s retry.SleepFunc) Option {
	return func(x *Dispatcher) { x.sleep = s }
}

// WithMetrics counts per-recipient outcomes on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(x *Dispatcher) { x.metrics = r }
}

// NewDispatcher returns a Dispatcher with a DefaultDelay pause.
func NewDispatcher(sender email.Sender, templates mailtemplate.Reader, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:    sender,
		templates: templates,
		delay:     DefaultDelay,
		sleep:     retry.Sleep,
		logger:    logger,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Send delivers c to every recipient in order and reports per-recipient
// outcomes. It only returns an error for whole-call failures: no recipients,
// unresolvable content, or an unconfigured sender. In those cases nothing is
// sent.
//
// The pause runs after every attempt except the last, so N recipients take
// at least (N-1)×delay.
func (d *Dispatcher) Send(ctx context.Context, recipients []Recipient, c Content) (Report, error) {
	if len(recipients) == 0 {
		return Report{}, ErrNoRecipients
	}
	content, err := d.resolve(ctx, c)
	if err != nil {
		return Report{}, err
	}
	if err := d.sender.Validate(); err != nil {
		return Report{}, err
	}

	log := d.logger.With("recipients", len(recipients), "template_id", c.TemplateID)
	log.Info("bulk: starting")

	results := make([]Result, 0, len(recipients))
	for i, r := range recipients {
		res := d.deliver(ctx, r, content)
		results = append(results, res)

		if res.Err != nil {
			log.Warn("bulk: recipient failed", "team", r.Label(), "email", r.LeaderEmail, "error", res.Err)
		} else {
			log.Debug("bulk: recipient sent", "team", r.Label(), "message_id", res.MessageID)
		}

		if i < len(recipients)-1 && d.delay > 0 {
			if err := d.sleep(ctx, d.delay); err != nil {
				log.Debug("bulk: pause interrupted", "error", err)
			}
		}
	}

	rep := Fold(results)
	log.Info("bulk: completed", "successful", rep.Successful, "failed", rep.Failed)
	return rep, nil
}

// SendOne delivers c to a single recipient with the same resolution and
// rendering rules as Send. It returns the Message-ID on success.
func (d *Dispatcher) SendOne(ctx context.Context, r Recipient, c Content) (string, error) {
	content, err := d.resolve(ctx, c)
	if err != nil {
		return "", err
	}
	res := d.deliver(ctx, r, content)
	return res.MessageID, res.Err
}

func (d *Dispatcher) deliver(ctx context.Context, r Recipient, c resolved) Result {
	data := r.Fields()
	id, err := d.sender.Send(ctx, email.Message{
		To:      r.LeaderEmail,
		Subject: placeholder.Render(c.subject, data),
		HTML:    placeholder.Render(c.body, data),
	})
	d.metrics.BulkRecipient(err == nil)
	return Result{Recipient: r, MessageID: id, Err: err}
}

func (d *Dispatcher) resolve(ctx context.Context, c Content) (resolved, error) {
	if c.TemplateID != "" {
		if d.templates == nil {
			return resolved{}, ErrTemplateNotFound
		}
		t, err := d.templates.Get(ctx, c.TemplateID)
		if errors.Is(err, mailtemplate.ErrNotFound) {
			return resolved{}, ErrTemplateNotFound
		}
		if err != nil {
			return resolved{}, fmt.Errorf("bulk: load template %s: %w", c.TemplateID, err)
		}
		return resolved{subject: t.Subject, body: t.HTMLBody}, nil
	}

	if c.Subject == "" || c.Body == "" {
		return resolved{}, ErrMissingContent
	}
	return resolved{subject: c.Subject, body: c.Body}, nil
}
