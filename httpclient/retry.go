package httpclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// retry runs the request under the configured exponential backoff. A
// Retry-After delay sent by the server replaces the computed delay, capped
// at MaxBackoff.
func (c *Adapter) retry(ctx context.Context, req Request) (*Response, error) {
	cfg := c.config.Retry

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	b.MaxInterval = cfg.MaxBackoff
	b.Multiplier = cfg.BackoffFactor
	b.RandomizationFactor = cfg.Jitter

	op := func() (*Response, error) {
		resp, err := c.doOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !cfg.RetryIf(err) {
			return resp, backoff.Permanent(err)
		}
		var he *Error
		if errors.As(err, &he) && he.RetryAfter > 0 {
			wait := min(he.RetryAfter, cfg.MaxBackoff)
			return resp, fmt.Errorf("%w%w", err, &backoff.RetryAfterError{Duration: wait})
		}
		return resp, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(cfg.MaxAttempts)),
	}
	if cfg.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, next time.Duration) {
			cfg.OnRetry(unwrapRetry(err), next)
		}))
	}

	resp, err := backoff.Retry(ctx, op, opts...)
	return resp, unwrapRetry(err)
}

// unwrapRetry strips the backoff markers so callers see the classified error.
func unwrapRetry(err error) error {
	if err == nil {
		return nil
	}
	var he *Error
	if errors.As(err, &he) {
		return he
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Unwrap()
	}
	return err
}
