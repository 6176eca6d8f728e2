package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/event-admin-backend/internal/retry"
)

// recordingSleep captures requested waits without blocking.
type recordingSleep struct {
	waits []time.Duration
	err   error
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return r.err
}

func TestBackoff_DoublesUpToCap(t *testing.T) {
	p := retry.Policy{MaxAttempts: 6, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, p.Backoff(i+1), "attempt %d", i+1)
	}
}

func TestDo_AlwaysFailing_ExhaustsBudgetWithIncreasingWaits(t *testing.T) {
	rec := &recordingSleep{}
	boom := errors.New("connection reset")
	calls := 0

	attempts, err := retry.DefaultPolicy().Do(context.Background(), rec.sleep,
		func(_ context.Context, attempt int) error {
			calls++
			assert.Equal(t, calls, attempt)
			return boom
		}, nil)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
	require.Len(t, rec.waits, 2, "no wait after the final attempt")
	for i := 1; i < len(rec.waits); i++ {
		assert.Greater(t, rec.waits[i], rec.waits[i-1])
	}
}

func TestDo_SucceedsOnSecondAttempt(t *testing.T) {
	rec := &recordingSleep{}
	calls := 0

	attempts, err := retry.DefaultPolicy().Do(context.Background(), rec.sleep,
		func(context.Context, int) error {
			calls++
			if calls == 1 {
				return errors.New("timeout")
			}
			return nil
		}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []time.Duration{time.Second}, rec.waits)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	rec := &recordingSleep{}
	auth := errors.New("535 authentication failed")

	attempts, err := retry.DefaultPolicy().Do(context.Background(), rec.sleep,
		func(context.Context, int) error { return auth },
		func(err error) bool { return !errors.Is(err, auth) })

	require.ErrorIs(t, err, auth)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.waits)
}

func TestDo_CancelledDuringWaitReturnsLastError(t *testing.T) {
	rec := &recordingSleep{err: context.Canceled}
	boom := errors.New("dial tcp: i/o timeout")

	attempts, err := retry.DefaultPolicy().Do(context.Background(), rec.sleep,
		func(context.Context, int) error { return boom }, nil)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestDo_ContextAlreadyDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts, err := retry.DefaultPolicy().Do(ctx, nil,
		func(context.Context, int) error {
			t.Fatal("fn must not run on a cancelled context")
			return nil
		}, nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, attempts)
}

func TestSleep_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := retry.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
