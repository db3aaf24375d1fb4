package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errReset = errors.New("read: connection reset by peer")

func isReset(err error) bool { return errors.Is(err, errReset) }

func fastTransient() Config {
	cfg := Transient(isReset)
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	return cfg
}

func TestTransient_Defaults(t *testing.T) {
	cfg := Transient(isReset)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 1.0, cfg.BackoffFactor)
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastTransient(), func() error {
		calls++
		if calls < 3 {
			return errReset
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonTransientError(t *testing.T) {
	business := errors.New("slot unavailable")
	calls := 0
	err := Do(context.Background(), fastTransient(), func() error {
		calls++
		return business
	})

	assert.Same(t, business, err)
	assert.Equal(t, 1, calls)
}

func TestDo_BoundedAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastTransient(), func() error {
		calls++
		return errReset
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errReset)
	assert.Equal(t, 3, calls)
}

func TestDoWithLog_ReportsAttempts(t *testing.T) {
	var attempts []int
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2}

	err := DoWithLog(context.Background(), cfg, "PostgreSQL", func() error {
		return errReset
	}, func(attempt int, err error, nextDelay time.Duration) {
		attempts = append(attempts, attempt)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PostgreSQL: max retry attempts (3) exceeded")
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastTransient(), func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
