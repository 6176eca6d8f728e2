package verification_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/event-admin-backend/internal/db"
	"github.com/nyashahama/event-admin-backend/internal/email"
	"github.com/nyashahama/event-admin-backend/internal/invoice"
	"github.com/nyashahama/event-admin-backend/internal/store"
	"github.com/nyashahama/event-admin-backend/internal/verification"
)

// ─── FAKES ────────────────────────────────────────────────────────────────────

// memTeams mimics the conditional UPDATE: the flip happens under one lock.
type memTeams struct {
	mu      sync.Mutex
	teams   map[uuid.UUID]db.Team
	members map[uuid.UUID][]db.Member
	listErr error
	markErr error
}

func newMemTeams(teams ...db.Team) *memTeams {
	m := &memTeams{teams: map[uuid.UUID]db.Team{}, members: map[uuid.UUID][]db.Member{}}
	for _, t := range teams {
		m.teams[t.ID] = t
	}
	return m
}

func (m *memTeams) MarkVerified(_ context.Context, id uuid.UUID) (db.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return db.Team{}, m.markErr
	}
	t, ok := m.teams[id]
	if !ok {
		return db.Team{}, store.ErrTeamNotFound
	}
	if t.IsVerified {
		return t, store.ErrTeamAlreadyVerified
	}
	t.IsVerified = true
	t.VerifiedAt = sql.NullTime{Time: time.Now(), Valid: true}
	m.teams[id] = t
	return t, nil
}

func (m *memTeams) ListMembersByTeam(_ context.Context, id uuid.UUID) ([]db.Member, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.members[id], nil
}

func (m *memTeams) verified(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.teams[id].IsVerified
}

// fileRenderer writes a small file, or fails after writing a partial one.
type fileRenderer struct {
	err   error
	paths []string
	last  invoice.Invoice
}

func (r *fileRenderer) Render(_ context.Context, inv invoice.Invoice, path string) error {
	r.paths = append(r.paths, path)
	r.last = inv
	if err := os.WriteFile(path, []byte("%PDF-partial"), 0o600); err != nil {
		return err
	}
	return r.err
}

type recSender struct {
	mu          sync.Mutex
	validateErr error
	sendErr     error
	sent        []email.Message
}

func (s *recSender) Validate() error { return s.validateErr }

func (s *recSender) Send(_ context.Context, m email.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, m)
	if s.sendErr != nil {
		return "", s.sendErr
	}
	return "<id@test>", nil
}

type recCleaner struct {
	mu      sync.Mutex
	now     []string
	delayed map[string]time.Duration
}

func (c *recCleaner) RemoveNow(path string) error {
	c.mu.Lock()
	c.now = append(c.now, path)
	c.mu.Unlock()
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (c *recCleaner) RemoveAfter(path string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.delayed == nil {
		c.delayed = map[string]time.Duration{}
	}
	c.delayed[path] = d
}

type harness struct {
	teams    *memTeams
	renderer *fileRenderer
	sender   *recSender
	cleaner  *recCleaner
	wf       *verification.Workflow
	team     db.Team
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	team := db.Team{
		ID:          uuid.New(),
		TeamName:    "Null Pointers",
		LeaderName:  "Ana",
		LeaderEmail: "ana@example.com",
		TicketType:  "Early Bird",
		Amount:      1200,
	}
	h := &harness{
		teams:    newMemTeams(team),
		renderer: &fileRenderer{},
		sender:   &recSender{},
		cleaner:  &recCleaner{},
		team:     team,
	}
	h.wf = verification.New(h.teams, h.teams, h.renderer, h.sender, h.cleaner, verification.Config{
		InvoiceDir:     t.TempDir(),
		CleanupDelay:   10 * time.Second,
		AttachmentName: "Singularity_Invoice.pdf",
		Branding:       invoice.Branding{EventName: "Singularity Hackathon", OrganizerName: "Developer Club"},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	return h
}

// ─── TESTS ────────────────────────────────────────────────────────────────────

func TestVerify_Success(t *testing.T) {
	h := newHarness(t)

	out, err := h.wf.Verify(context.Background(), h.team.ID)
	require.NoError(t, err)

	assert.Equal(t, verification.StatusEmailSent, out.Status)
	assert.True(t, out.Verified())
	assert.True(t, out.EmailSent())
	assert.Equal(t, "<id@test>", out.MessageID)
	assert.True(t, h.teams.verified(h.team.ID))

	require.Len(t, h.sender.sent, 1)
	msg := h.sender.sent[0]
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Equal(t, "Payment Confirmed - Null Pointers", msg.Subject)
	assert.Contains(t, msg.HTML, "INR 1200")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "Singularity_Invoice.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)

	path := msg.Attachments[0].Path
	assert.Equal(t, h.renderer.paths[0], path)
	assert.Contains(t, filepath.Base(path), h.team.ID.String())
	assert.Equal(t, 10*time.Second, h.cleaner.delayed[path], "removed after the grace delay")
	assert.Empty(t, h.cleaner.now)
}

func TestVerify_SecondCallIsAlreadyVerified(t *testing.T) {
	h := newHarness(t)

	_, err := h.wf.Verify(context.Background(), h.team.ID)
	require.NoError(t, err)

	out, err := h.wf.Verify(context.Background(), h.team.ID)
	require.NoError(t, err)
	assert.Equal(t, verification.StatusAlreadyVerified, out.Status)
	assert.True(t, out.Verified())
	assert.False(t, out.EmailSent())
	assert.Len(t, h.sender.sent, 1, "no second email")
	assert.Len(t, h.renderer.paths, 1, "no second invoice")
}

func TestVerify_ConcurrentCallsSendOnce(t *testing.T) {
	h := newHarness(t)

	const callers = 10
	var wg sync.WaitGroup
	outcomes := make([]verification.Outcome, callers)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := h.wf.Verify(context.Background(), h.team.ID)
			assert.NoError(t, err)
			outcomes[i] = out
		}(i)
	}
	wg.Wait()

	sent := 0
	for _, o := range outcomes {
		if o.Status == verification.StatusEmailSent {
			sent++
		} else {
			assert.Equal(t, verification.StatusAlreadyVerified, o.Status)
		}
	}
	assert.Equal(t, 1, sent)
	assert.Len(t, h.sender.sent, 1)
}

func TestVerify_UnknownTeam(t *testing.T) {
	h := newHarness(t)

	out, err := h.wf.Verify(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, verification.StatusTeamNotFound, out.Status)
	assert.False(t, out.Verified())
	assert.Empty(t, h.sender.sent)
}

func TestVerify_NotConfiguredMutatesNothing(t *testing.T) {
	h := newHarness(t)
	h.sender.validateErr = email.ErrNotConfigured

	_, err := h.wf.Verify(context.Background(), h.team.ID)
	require.ErrorIs(t, err, email.ErrNotConfigured)
	assert.False(t, h.teams.verified(h.team.ID))
	assert.Empty(t, h.renderer.paths)
}

func TestVerify_StoreFailureIsAnError(t *testing.T) {
	h := newHarness(t)
	h.teams.markErr = errors.New("connection refused")

	_, err := h.wf.Verify(context.Background(), h.team.ID)
	require.Error(t, err)
	assert.Empty(t, h.sender.sent)
}

func TestVerify_InvoiceFailureLeavesTeamVerified(t *testing.T) {
	h := newHarness(t)
	h.renderer.err = errors.New("font missing")

	out, err := h.wf.Verify(context.Background(), h.team.ID)
	require.NoError(t, err)
	assert.Equal(t, verification.StatusInvoiceFailed, out.Status)
	assert.True(t, out.Verified())
	assert.Contains(t, out.Reason, "font missing")
	assert.Empty(t, h.sender.sent)

	// Partial file removed.
	require.Len(t, h.renderer.paths, 1)
	_, statErr := os.Stat(h.renderer.paths[0])
	assert.True(t, os.IsNotExist(statErr))

	// No rollback: retrying does not resend.
	again, err := h.wf.Verify(context.Background(), h.team.ID)
	require.NoError(t, err)
	assert.Equal(t, verification.StatusAlreadyVerified, again.Status)
	assert.Empty(t, h.sender.sent)
}

func TestVerify_MemberLoadFailureIsInvoiceFailure(t *testing.T) {
	h := newHarness(t)
	h.teams.listErr = errors.New("members table locked")

	out, err := h.wf.Verify(context.Background(), h.team.ID)
	require.NoError(t, err)
	assert.Equal(t, verification.StatusInvoiceFailed, out.Status)
	assert.True(t, h.teams.verified(h.team.ID))
}

func TestVerify_EmailFailureRemovesInvoiceImmediately(t *testing.T) {
	h := newHarness(t)
	h.sender.sendErr = &email.DeliveryError{Kind: email.KindTransient, Attempts: 3, Err: errors.New("i/o timeout")}

	out, err := h.wf.Verify(context.Background(), h.team.ID)
	require.NoError(t, err)
	assert.Equal(t, verification.StatusEmailFailed, out.Status)
	assert.True(t, out.Verified())
	assert.False(t, out.EmailSent())
	assert.Contains(t, out.Reason, "i/o timeout")

	require.Len(t, h.renderer.paths, 1)
	assert.Equal(t, []string{h.renderer.paths[0]}, h.cleaner.now)
	assert.Empty(t, h.cleaner.delayed)
	_, statErr := os.Stat(h.renderer.paths[0])
	assert.True(t, os.IsNotExist(statErr))
}

func TestVerify_EmailUsesCollectedAmount(t *testing.T) {
	h := newHarness(t)
	team := h.team
	team.MoneyCollected = sql.NullFloat64{Float64: 999.5, Valid: true}
	h.teams.teams[team.ID] = team

	_, err := h.wf.Verify(context.Background(), team.ID)
	require.NoError(t, err)

	require.Len(t, h.sender.sent, 1)
	assert.Contains(t, h.sender.sent[0].HTML, "INR 999.5")
	assert.Equal(t, 999.5, h.renderer.last.Total)
}
