package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"strings"
	"time"

	mail "github.com/go-mail/mail"
	"github.com/google/uuid"

	"github.com/nyashahama/event-admin-backend/internal/metrics"
	"github.com/nyashahama/event-admin-backend/internal/retry"
)

// SMTPConfig holds the relay settings. FromAddr defaults to Username.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string // e.g. "Singularity Hackathon"
	FromAddr string

	// InsecureSkipVerify accepts self-signed relay certificates. Dev only.
	InsecureSkipVerify bool

	// Timeout bounds each attempt's dial and I/O.
	Timeout time.Duration
}

// dialFunc opens one SMTP session. Tests replace it to avoid the network.
type dialFunc func(d *mail.Dialer) (mail.SendCloser, error)

// SMTPTransport is the concrete Sender backed by an SMTP relay.
type SMTPTransport struct {
	cfg     SMTPConfig
	policy  retry.Policy
	sleep   retry.SleepFunc
	logger  *slog.Logger
	metrics *metrics.Recorder
	dial    dialFunc
}

// SMTPOption customises an SMTPTransport.
type SMTPOption func(*SMTPTransport)

// WithRetryPolicy overrides the default 3-attempt policy.
func WithRetryPolicy(p retry.Policy) SMTPOption {
	return func(t *SMTPTransport) { t.policy = p }
}

// WithSleep replaces the back-off sleep.
func WithSleep(s retry.SleepFunc) SMTPOption {
	return func(t *SMTPTransport) { t.sleep = s }
}

// WithMetrics records attempts and outcomes on r.
func WithMetrics(r *metrics.Recorder) SMTPOption {
	return func(t *SMTPTransport) { t.metrics = r }
}

// NewSMTPTransport returns a Sender that delivers through cfg's relay.
func NewSMTPTransport(cfg SMTPConfig, logger *slog.Logger, opts ...SMTPOption) *SMTPTransport {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.FromAddr == "" {
		cfg.FromAddr = cfg.Username
	}
	if logger == nil {
		logger = slog.Default()
	}

	t := &SMTPTransport{
		cfg:    cfg,
		policy: retry.DefaultPolicy(),
		sleep:  retry.Sleep,
		logger: logger,
		dial:   func(d *mail.Dialer) (mail.SendCloser, error) { return d.Dial() },
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Validate reports ErrNotConfigured when host or credentials are missing or
// the password is still a "YOUR_..." placeholder.
func (t *SMTPTransport) Validate() error {
	var missing []string
	if t.cfg.Host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if t.cfg.Username == "" {
		missing = append(missing, "SMTP_USER")
	}
	if t.cfg.Password == "" || strings.Contains(t.cfg.Password, "YOUR_") {
		missing = append(missing, "SMTP_PASS")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}

// Send delivers m, retrying transient failures with exponential back-off.
// Each attempt dials, sends and closes its own connection. A recipient that
// does not parse as an address fails with KindInvalidRecipient without
// dialing.
func (t *SMTPTransport) Send(ctx context.Context, m Message) (string, error) {
	if err := t.Validate(); err != nil {
		t.metrics.MailOutcome("not_configured")
		return "", err
	}
	if _, err := netmail.ParseAddress(m.To); err != nil {
		t.metrics.MailOutcome(KindInvalidRecipient.String())
		t.logger.Warn("smtp: invalid recipient address", "to", m.To, "error", err)
		return "", &DeliveryError{
			Kind: KindInvalidRecipient,
			Err:  fmt.Errorf("invalid address %q: %w", m.To, err),
		}
	}

	msgID := t.messageID()
	msg := t.build(m, msgID)

	log := t.logger.With("to", m.To, "message_id", msgID)

	attempts, err := t.policy.Do(ctx, t.sleep, func(_ context.Context, attempt int) error {
		log.Debug("smtp: sending", "attempt", attempt, "max_attempts", t.policy.Attempts())
		err := t.attempt(msg)
		t.metrics.MailAttempt(err == nil)
		if err != nil {
			log.Warn("smtp: attempt failed",
				"attempt", attempt,
				"kind", Classify(err).String(),
				"error", err,
			)
		}
		return err
	}, func(err error) bool {
		return Classify(err).Retryable()
	})

	if err != nil {
		kind := Classify(err)
		t.metrics.MailOutcome(kind.String())
		log.Error("smtp: delivery failed", "attempts", attempts, "kind", kind.String(), "error", err)
		return "", &DeliveryError{Kind: kind, Attempts: attempts, Err: err}
	}

	t.metrics.MailOutcome("sent")
	log.Info("smtp: sent", "attempts", attempts)
	return msgID, nil
}

// attempt runs one dial → send → close cycle. Close runs on every path.
func (t *SMTPTransport) attempt(msg *mail.Message) (err error) {
	sc, err := t.dial(t.dialer())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sc.Close(); cerr != nil && err == nil {
			t.logger.Debug("smtp: close after send", "error", cerr)
		}
	}()
	return mail.Send(sc, msg)
}

// dialer picks the TLS mode from the port: 465 is implicit TLS, 587 requires
// STARTTLS, anything else upgrades when the server offers it.
func (t *SMTPTransport) dialer() *mail.Dialer {
	d := mail.NewDialer(t.cfg.Host, t.cfg.Port, t.cfg.Username, t.cfg.Password)
	d.Timeout = t.cfg.Timeout
	d.TLSConfig = &tls.Config{
		ServerName:         t.cfg.Host,
		InsecureSkipVerify: t.cfg.InsecureSkipVerify,
	}

	switch t.cfg.Port {
	case 465:
		d.SSL = true
	case 587:
		d.SSL = false
		d.StartTLSPolicy = mail.MandatoryStartTLS
	default:
		d.SSL = false
		d.StartTLSPolicy = mail.OpportunisticStartTLS
	}
	return d
}

func (t *SMTPTransport) build(m Message, msgID string) *mail.Message {
	msg := mail.NewMessage()
	msg.SetAddressHeader("From", t.cfg.FromAddr, t.cfg.FromName)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetHeader("Message-ID", msgID)
	msg.SetDateHeader("Date", time.Now())
	msg.SetBody("text/html", m.HTML)

	for _, a := range m.Attachments {
		settings := []mail.FileSetting{}
		if a.Filename != "" {
			settings = append(settings, mail.Rename(a.Filename))
		}
		if a.ContentType != "" {
			settings = append(settings, mail.SetHeader(map[string][]string{
				"Content-Type": {a.ContentType},
			}))
		}
		msg.Attach(a.Path, settings...)
	}
	return msg
}

func (t *SMTPTransport) messageID() string {
	domain := t.cfg.Host
	if at := strings.LastIndex(t.cfg.FromAddr, "@"); at >= 0 && at < len(t.cfg.FromAddr)-1 {
		domain = t.cfg.FromAddr[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
