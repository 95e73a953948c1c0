package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	notified := 0

	err := Do(context.Background(), fastPolicy(5), "flaky", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, func(err error, wait time.Duration) {
		notified++
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, notified)
}

func TestDoExhausted(t *testing.T) {
	calls := 0
	cause := errors.New("still missing")

	err := Do(context.Background(), fastPolicy(4), "wait-profile", func(ctx context.Context) error {
		calls++
		return cause
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, cause)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "wait-profile", exhausted.Op)
	assert.Equal(t, 4, exhausted.Attempts)
}

func TestDoStopReturnsImmediately(t *testing.T) {
	calls := 0
	cause := errors.New("access denied")

	err := Do(context.Background(), fastPolicy(10), "op", func(ctx context.Context) error {
		calls++
		return Stop(cause)
	}, nil)

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrExhausted)
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Do(ctx, Policy{MaxAttempts: 100, InitialInterval: time.Millisecond}, "op", func(ctx context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("again")
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, calls, 3)
}

func TestStopNil(t *testing.T) {
	assert.NoError(t, Stop(nil))
}

func TestWithDefaults(t *testing.T) {
	p := Policy{}.withDefaults()
	assert.Equal(t, DefaultPolicy().MaxAttempts, p.MaxAttempts)
	assert.Equal(t, DefaultPolicy().InitialInterval, p.InitialInterval)

	p = Policy{InitialInterval: time.Minute, MaxInterval: time.Second}.withDefaults()
	assert.Equal(t, time.Minute, p.MaxInterval)
}
