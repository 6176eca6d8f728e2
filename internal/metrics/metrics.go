// Package metrics defines the Prometheus collectors for outbound mail,
// bulk dispatch and payment verification.
//
// Collectors live on a *Recorder built by New rather than in package-level
// vars so tests can use a throwaway registry. Every method is nil-safe: a nil
// *Recorder records nothing.
package metrics

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder groups all application collectors.
type Recorder struct {
	mailAttempts  *prometheus.CounterVec
	mailMessages  *prometheus.CounterVec
	bulkResults   *prometheus.CounterVec
	verifications *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New builds the collectors and registers them on reg. A nil reg uses a fresh
// registry, which is also what Handler will serve.
func New(reg *prometheus.Registry) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := &Recorder{
		mailAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_send_attempts_total",
			Help: "SMTP delivery attempts by result (ok|error)",
		}, []string{"result"}),

		mailMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_messages_total",
			Help: "Messages by terminal outcome (sent|transient|auth|invalid_recipient|rejected|not_configured)",
		}, []string{"kind"}),

		bulkResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bulk_recipients_total",
			Help: "Bulk dispatch recipients by result (sent|failed)",
		}, []string{"result"}),

		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verifications_total",
			Help: "Payment verification outcomes by status",
		}, []string{"status"}),

		gatherer: reg,
	}

	for _, c := range []**prometheus.CounterVec{&r.mailAttempts, &r.mailMessages, &r.bulkResults, &r.verifications} {
		existing, err := register(reg, *c)
		if err != nil {
			return nil, err
		}
		*c = existing
	}
	return r, nil
}

// register adds c to reg. When an identical collector is already registered,
// that one is returned so increments land in the registry being served.
func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return nil, err
	}
	existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
	if !ok {
		return nil, fmt.Errorf("metrics: collector registered with a different type: %w", err)
	}
	return existing, nil
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// MailAttempt counts one SMTP attempt.
func (r *Recorder) MailAttempt(ok bool) {
	if r == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	r.mailAttempts.WithLabelValues(result).Inc()
}

// MailOutcome counts one message's terminal outcome.
func (r *Recorder) MailOutcome(kind string) {
	if r == nil {
		return
	}
	r.mailMessages.WithLabelValues(kind).Inc()
}

// BulkRecipient counts one bulk recipient.
func (r *Recorder) BulkRecipient(sent bool) {
	if r == nil {
		return
	}
	result := "failed"
	if sent {
		result = "sent"
	}
	r.bulkResults.WithLabelValues(result).Inc()
}

// Verification counts one verification outcome.
func (r *Recorder) Verification(status string) {
	if r == nil {
		return
	}
	r.verifications.WithLabelValues(status).Inc()
}
