package bulk_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/event-admin-backend/internal/bulk"
	"github.com/nyashahama/event-admin-backend/internal/email"
	"github.com/nyashahama/event-admin-backend/internal/mailtemplate"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

type stubSender struct {
	mu          sync.Mutex
	validateErr error
	failFor     map[string]error
	sent        []email.Message
	at          []time.Time
}

func (s *stubSender) Validate() error { return s.validateErr }

func (s *stubSender) Send(_ context.Context, m email.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, m)
	s.at = append(s.at, time.Now())
	if err := s.failFor[m.To]; err != nil {
		return "", err
	}
	return fmt.Sprintf("<%d@test>", len(s.sent)), nil
}

type stubTemplates map[string]mailtemplate.Template

func (s stubTemplates) Get(_ context.Context, id string) (mailtemplate.Template, error) {
	t, ok := s[id]
	if !ok {
		return mailtemplate.Template{}, mailtemplate.ErrNotFound
	}
	return t, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func recipients(n int) []bulk.Recipient {
	out := make([]bulk.Recipient, n)
	for i := range out {
		out[i] = bulk.Recipient{
			TeamName:    fmt.Sprintf("Team %d", i+1),
			LeaderName:  fmt.Sprintf("Leader %d", i+1),
			LeaderEmail: fmt.Sprintf("leader%d@example.com", i+1),
			TicketType:  "Early Bird",
			Amount:      1200,
		}
	}
	return out
}

func noSleep(context.Context, time.Duration) error { return nil }

// ─── TESTS ────────────────────────────────────────────────────────────────────

func TestSend_OneFailureDoesNotAbortTheLoop(t *testing.T) {
	sender := &stubSender{failFor: map[string]error{
		"leader2@example.com": &email.DeliveryError{Kind: email.KindInvalidRecipient, Attempts: 1, Err: errors.New("550 user unknown")},
	}}
	d := bulk.NewDispatcher(sender, nil, discard(), bulk.WithSleep(noSleep))

	rep, err := d.Send(context.Background(), recipients(3), bulk.Content{Subject: "Hi {{team_name}}", Body: "<p>{{leader_name}}</p>"})
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Successful)
	assert.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, "Team 2", rep.Errors[0].Team)
	assert.Equal(t, "leader2@example.com", rep.Errors[0].Email)
	assert.Contains(t, rep.Errors[0].Error, "550 user unknown")
	require.Len(t, sender.sent, 3, "recipient #3 still attempted")
	assert.Equal(t, "leader3@example.com", sender.sent[2].To)
}

func TestSend_PersonalisesPerRecipient(t *testing.T) {
	sender := &stubSender{}
	collected := 999.5
	rs := recipients(2)
	rs[1].MoneyCollected = &collected
	d := bulk.NewDispatcher(sender, nil, discard(), bulk.WithSleep(noSleep))

	_, err := d.Send(context.Background(), rs, bulk.Content{
		Subject: "{{team_name}} / {{ticket_type}}",
		Body:    "Paid {{money_collected}} of {{amount}}; {{unknown}}",
	})
	require.NoError(t, err)

	assert.Equal(t, "Team 1 / Early Bird", sender.sent[0].Subject)
	assert.Equal(t, "Paid  of 1200; {{unknown}}", sender.sent[0].HTML)
	assert.Equal(t, "Paid 999.5 of 1200; {{unknown}}", sender.sent[1].HTML)
}

func TestSend_DelayBetweenConsecutiveSends(t *testing.T) {
	const n = 4
	delay := 30 * time.Millisecond
	sender := &stubSender{failFor: map[string]error{"leader2@example.com": errors.New("boom")}}
	d := bulk.NewDispatcher(sender, nil, discard(), bulk.WithDelay(delay))

	start := time.Now()
	_, err := d.Send(context.Background(), recipients(n), bulk.Content{Subject: "s", Body: "b"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), time.Duration(n-1)*delay)
	for i := 1; i < len(sender.at); i++ {
		assert.GreaterOrEqual(t, sender.at[i].Sub(sender.at[i-1]), delay, "gap before send %d", i+1)
	}
}

func TestSend_NoPauseAfterLastRecipient(t *testing.T) {
	var pauses int
	sleep := func(context.Context, time.Duration) error { pauses++; return nil }
	d := bulk.NewDispatcher(&stubSender{}, nil, discard(), bulk.WithSleep(sleep))

	_, err := d.Send(context.Background(), recipients(3), bulk.Content{Subject: "s", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, pauses)
}

func TestSend_WholeCallFailuresSendNothing(t *testing.T) {
	tests := []struct {
		name    string
		sender  *stubSender
		rs      []bulk.Recipient
		content bulk.Content
		want    error
	}{
		{"no recipients", &stubSender{}, nil, bulk.Content{Subject: "s", Body: "b"}, bulk.ErrNoRecipients},
		{"neither template nor literal", &stubSender{}, recipients(2), bulk.Content{}, bulk.ErrMissingContent},
		{"subject without body", &stubSender{}, recipients(2), bulk.Content{Subject: "s"}, bulk.ErrMissingContent},
		{"unknown template", &stubSender{}, recipients(2), bulk.Content{TemplateID: "missing"}, bulk.ErrTemplateNotFound},
		{"unconfigured sender", &stubSender{validateErr: email.ErrNotConfigured}, recipients(2), bulk.Content{Subject: "s", Body: "b"}, email.ErrNotConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := bulk.NewDispatcher(tt.sender, stubTemplates{}, discard(), bulk.WithSleep(noSleep))
			_, err := d.Send(context.Background(), tt.rs, tt.content)
			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, tt.sender.sent)
		})
	}
}

func TestSend_TemplateTakesPrecedenceOverLiteral(t *testing.T) {
	sender := &stubSender{}
	templates := stubTemplates{"t1": {Subject: "Welcome {{team_name}}", HTMLBody: "<b>{{leader_name}}</b>"}}
	d := bulk.NewDispatcher(sender, templates, discard(), bulk.WithSleep(noSleep))

	_, err := d.Send(context.Background(), recipients(1), bulk.Content{TemplateID: "t1", Subject: "ignored", Body: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome Team 1", sender.sent[0].Subject)
	assert.Equal(t, "<b>Leader 1</b>", sender.sent[0].HTML)
}

func TestSendOne(t *testing.T) {
	sender := &stubSender{}
	d := bulk.NewDispatcher(sender, nil, discard())

	id, err := d.SendOne(context.Background(), recipients(1)[0], bulk.Content{Subject: "Hi {{leader_name}}", Body: "b"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, "Hi Leader 1", sender.sent[0].Subject)

	_, err = d.SendOne(context.Background(), recipients(1)[0], bulk.Content{})
	assert.ErrorIs(t, err, bulk.ErrMissingContent)
}

func TestFold(t *testing.T) {
	rs := recipients(3)
	rep := bulk.Fold([]bulk.Result{
		{Recipient: rs[0]},
		{Recipient: rs[1], Err: errors.New("timeout")},
		{Recipient: rs[2]},
	})
	assert.Equal(t, bulk.Report{
		Successful: 2,
		Failed:     1,
		Errors:     []bulk.Failure{{Team: "Team 2", Email: "leader2@example.com", Error: "timeout"}},
	}, rep)

	assert.NotNil(t, bulk.Fold(nil).Errors, "errors list is never nil so it encodes as []")
}
