// Package retry runs operations against an eventually consistent control
// plane with a bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is matched by errors returned when a policy runs out of
// attempts or elapsed time.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy bounds how long and how often an operation is retried
type Policy struct {
	MaxAttempts     int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval" mapstructure:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval" mapstructure:"max_interval"`
	MaxElapsed      time.Duration `yaml:"max_elapsed" mapstructure:"max_elapsed"`
}

// DefaultPolicy is used where no policy is configured
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     10,
		InitialInterval: 2 * time.Second,
		MaxInterval:     20 * time.Second,
		MaxElapsed:      3 * time.Minute,
	}
}

// ExhaustedError reports the last failure of an operation that never succeeded
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}

// Stop marks err as permanent so Do returns it without retrying
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Notify is called before every sleep with the error that caused it
type Notify func(err error, wait time.Duration)

// Do calls op until it succeeds, returns an error wrapped with Stop, the
// context is done or the policy is exhausted.
func Do(ctx context.Context, p Policy, name string, op func(ctx context.Context) error, notify Notify) error {
	p = p.withDefaults()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = p.MaxElapsed

	var b backoff.BackOff = eb
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	b = backoff.WithContext(b, ctx)

	attempts := 0
	var last error
	var permanent bool

	err := backoff.RetryNotify(func() error {
		attempts++
		err := op(ctx)
		last = err
		var perm *backoff.PermanentError
		permanent = errors.As(err, &perm)
		return err
	}, b, func(err error, wait time.Duration) {
		if notify != nil {
			notify(err, wait)
		}
	})
	if err == nil {
		return nil
	}

	if permanent {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", name, ctxErr)
	}
	return &ExhaustedError{Op: name, Attempts: attempts, Last: last}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = d.MaxInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	if p.MaxAttempts <= 0 && p.MaxElapsed <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	return p
}
