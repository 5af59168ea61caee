// Package resilience wraps calls to downstream services so that a slow or
// failing dependency produces an Unavailable outcome instead of an error.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker/v2"

	"github.com/eaglebank/digibank/shared/logger"
	"github.com/eaglebank/digibank/shared/tracing"
)

// ErrNotFound is returned by a Fetcher when the downstream service answered
// but holds no record for the key.
var ErrNotFound = errors.New("record not found")

// errCallerGone marks an attempt abandoned because the caller's context ended.
// It says nothing about the downstream service, so the breaker ignores it.
var errCallerGone = errors.New("caller gave up")

// Status is the kind of outcome a call produced.
type Status int

const (
	StatusUnavailable Status = iota
	StatusFound
	StatusAbsent
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusAbsent:
		return "absent"
	default:
		return "unavailable"
	}
}

// Available reports whether the downstream service gave an answer, even an
// empty one.
func (s Status) Available() bool {
	return s != StatusUnavailable
}

// Outcome is the single result of a Call. Record is only meaningful when
// Status is StatusFound. Cause is kept for logging and is never returned as an
// error.
type Outcome[T any] struct {
	Record T
	Status Status
	Cause  error
}

// Fetcher performs one call to a downstream service.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, key string, tc tracing.Context) (T, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc[T any] func(ctx context.Context, key string, tc tracing.Context) (T, error)

func (f FetcherFunc[T]) Fetch(ctx context.Context, key string, tc tracing.Context) (T, error) {
	return f(ctx, key, tc)
}

// BreakerOptions configure the per-client circuit breaker.
type BreakerOptions struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
	HalfOpenRequests uint32        `mapstructure:"half_open_requests"`
}

// Options bound one downstream call. Retries is the number of extra attempts
// after the first one; zero disables retrying.
type Options struct {
	Timeout      time.Duration  `mapstructure:"timeout"`
	Retries      uint64         `mapstructure:"retries"`
	RetryBackoff time.Duration  `mapstructure:"retry_backoff"`
	Breaker      BreakerOptions `mapstructure:"breaker"`
}

// DefaultOptions returns a 2s timeout, no retries and a breaker that opens
// after 5 consecutive failures for 30s.
func DefaultOptions() Options {
	return Options{
		Timeout:      2 * time.Second,
		RetryBackoff: 100 * time.Millisecond,
		Breaker: BreakerOptions{
			Enabled:          true,
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
			HalfOpenRequests: 1,
		},
	}
}

// Client calls one downstream service through a Fetcher. It is safe for
// concurrent use.
type Client[T any] struct {
	name    string
	fetcher Fetcher[T]
	opts    Options
	breaker *gobreaker.CircuitBreaker[T]
	log     *logger.Logger
}

func NewClient[T any](name string, fetcher Fetcher[T], opts Options, log *logger.Logger) *Client[T] {
	defaults := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaults.RetryBackoff
	}

	c := &Client[T]{
		name:    name,
		fetcher: fetcher,
		opts:    opts,
		log:     log.With("component", "ResilientClient", "client", name),
	}
	if opts.Breaker.Enabled {
		c.breaker = newBreaker[T](name, opts.Breaker, c.log)
	}
	return c
}

func newBreaker[T any](name string, opts BreakerOptions, log *logger.Logger) *gobreaker.CircuitBreaker[T] {
	threshold := opts.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	halfOpen := opts.HalfOpenRequests
	if halfOpen == 0 {
		halfOpen = 1
	}
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: halfOpen,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A downstream "not found" is a healthy answer.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, errCallerGone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	})
}

// Name identifies the downstream service this client calls.
func (c *Client[T]) Name() string {
	return c.name
}

// Call fetches the record for key. It always returns exactly one outcome:
// found, absent (the service has no such record) or unavailable (timeout,
// transport failure, non-success response, open breaker or cancelled caller).
func (c *Client[T]) Call(ctx context.Context, key string, tc tracing.Context) Outcome[T] {
	var record T
	var err error
	if c.opts.Retries == 0 {
		record, err = c.execute(ctx, key, tc)
	} else {
		backoff := retry.WithMaxRetries(c.opts.Retries, retry.NewConstant(c.opts.RetryBackoff))
		err = retry.Do(ctx, backoff, func(ctx context.Context) error {
			rec, err := c.execute(ctx, key, tc)
			if err == nil {
				record = rec
				return nil
			}
			if retryable(ctx, err) {
				return retry.RetryableError(err)
			}
			return err
		})
	}

	var out Outcome[T]
	switch {
	case err == nil:
		out = Outcome[T]{Record: record, Status: StatusFound}
	case errors.Is(err, ErrNotFound):
		out = Outcome[T]{Status: StatusAbsent}
	default:
		out = Outcome[T]{Status: StatusUnavailable, Cause: err}
		c.log.Warn("downstream call failed, using fallback",
			"correlationId", tc.CorrelationID, "key", key, "error", err)
	}
	metricOutcomes.WithLabelValues(c.name, out.Status.String()).Inc()
	return out
}

func (c *Client[T]) execute(ctx context.Context, key string, tc tracing.Context) (T, error) {
	call := func() (T, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()

		type result struct {
			rec T
			err error
		}
		done := make(chan result, 1)
		go func() {
			rec, err := c.fetcher.Fetch(attemptCtx, key, tc)
			done <- result{rec: rec, err: err}
		}()

		select {
		case r := <-done:
			if r.err != nil && ctx.Err() != nil {
				return r.rec, fmt.Errorf("%w: %w", errCallerGone, ctx.Err())
			}
			return r.rec, r.err
		case <-attemptCtx.Done():
			var zero T
			if ctx.Err() != nil {
				return zero, fmt.Errorf("%w: %w", errCallerGone, ctx.Err())
			}
			return zero, fmt.Errorf("%s timed out after %s: %w", c.name, c.opts.Timeout, attemptCtx.Err())
		}
	}
	if c.breaker == nil {
		return call()
	}
	return c.breaker.Execute(call)
}

// retryable reports whether another attempt could change the answer.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, ErrNotFound) &&
		!errors.Is(err, gobreaker.ErrOpenState) &&
		!errors.Is(err, gobreaker.ErrTooManyRequests)
}
