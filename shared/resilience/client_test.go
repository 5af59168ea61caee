package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eaglebank/digibank/shared/logger"
	"github.com/eaglebank/digibank/shared/tracing"
)

type mockFetcher struct {
	calls   atomic.Int32
	fetchFn func(ctx context.Context, key string, tc tracing.Context) (string, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, key string, tc tracing.Context) (string, error) {
	m.calls.Add(1)
	return m.fetchFn(ctx, key, tc)
}

func noBreaker(timeout time.Duration) Options {
	opts := DefaultOptions()
	opts.Timeout = timeout
	opts.Breaker.Enabled = false
	return opts
}

func TestClientCall(t *testing.T) {
	tests := []struct {
		name       string
		fetchFn    func(ctx context.Context, key string, tc tracing.Context) (string, error)
		wantStatus Status
		wantRecord string
	}{
		{
			name: "found",
			fetchFn: func(ctx context.Context, key string, tc tracing.Context) (string, error) {
				return "loan-for-" + key, nil
			},
			wantStatus: StatusFound,
			wantRecord: "loan-for-555-0100",
		},
		{
			name: "absent",
			fetchFn: func(ctx context.Context, key string, tc tracing.Context) (string, error) {
				return "", ErrNotFound
			},
			wantStatus: StatusAbsent,
		},
		{
			name: "wrapped absent",
			fetchFn: func(ctx context.Context, key string, tc tracing.Context) (string, error) {
				return "", errors.Join(errors.New("status 404"), ErrNotFound)
			},
			wantStatus: StatusAbsent,
		},
		{
			name: "transport failure",
			fetchFn: func(ctx context.Context, key string, tc tracing.Context) (string, error) {
				return "", errors.New("connection refused")
			},
			wantStatus: StatusUnavailable,
		},
		{
			name: "timeout",
			fetchFn: func(ctx context.Context, key string, tc tracing.Context) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
			wantStatus: StatusUnavailable,
		},
		{
			name: "fetcher ignoring its context",
			fetchFn: func(ctx context.Context, key string, tc tracing.Context) (string, error) {
				time.Sleep(200 * time.Millisecond)
				return "late", nil
			},
			wantStatus: StatusUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &mockFetcher{fetchFn: tt.fetchFn}
			c := NewClient[string]("loans", f, noBreaker(20*time.Millisecond), logger.NewNop())

			out := c.Call(context.Background(), "555-0100", tracing.Context{CorrelationID: "corr-1"})

			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, tt.wantRecord, out.Record)
			assert.Equal(t, tt.wantStatus != StatusUnavailable, out.Status.Available())
			if tt.wantStatus == StatusUnavailable {
				assert.Error(t, out.Cause)
			}
			assert.Equal(t, int32(1), f.calls.Load(), "no retries by default")
		})
	}
}

func TestClientPassesTraceContext(t *testing.T) {
	var got tracing.Context
	f := &mockFetcher{fetchFn: func(ctx context.Context, key string, tc tracing.Context) (string, error) {
		got = tc
		return "ok", nil
	}}
	c := NewClient[string]("cards", f, noBreaker(time.Second), logger.NewNop())

	c.Call(context.Background(), "555-0100", tracing.Context{CorrelationID: "corr-42"})
	assert.Equal(t, "corr-42", got.CorrelationID)
}

func TestClientRetries(t *testing.T) {
	f := &mockFetcher{}
	f.fetchFn = func(ctx context.Context, key string, tc tracing.Context) (string, error) {
		if f.calls.Load() < 3 {
			return "", errors.New("503 from cards")
		}
		return "card", nil
	}
	opts := noBreaker(time.Second)
	opts.Retries = 2
	opts.RetryBackoff = time.Millisecond
	c := NewClient[string]("cards", f, opts, logger.NewNop())

	out := c.Call(context.Background(), "555-0100", tracing.Context{})
	assert.Equal(t, StatusFound, out.Status)
	assert.Equal(t, "card", out.Record)
	assert.Equal(t, int32(3), f.calls.Load())
}

func TestClientDoesNotRetryNotFound(t *testing.T) {
	f := &mockFetcher{fetchFn: func(ctx context.Context, key string, tc tracing.Context) (string, error) {
		return "", ErrNotFound
	}}
	opts := noBreaker(time.Second)
	opts.Retries = 3
	opts.RetryBackoff = time.Millisecond
	c := NewClient[string]("cards", f, opts, logger.NewNop())

	out := c.Call(context.Background(), "555-0100", tracing.Context{})
	assert.Equal(t, StatusAbsent, out.Status)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestClientRetriesExhausted(t *testing.T) {
	f := &mockFetcher{fetchFn: func(ctx context.Context, key string, tc tracing.Context) (string, error) {
		return "", errors.New("boom")
	}}
	opts := noBreaker(time.Second)
	opts.Retries = 1
	opts.RetryBackoff = time.Millisecond
	c := NewClient[string]("loans", f, opts, logger.NewNop())

	out := c.Call(context.Background(), "555-0100", tracing.Context{})
	assert.Equal(t, StatusUnavailable, out.Status)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestClientBreakerOpens(t *testing.T) {
	f := &mockFetcher{fetchFn: func(ctx context.Context, key string, tc tracing.Context) (string, error) {
		return "", errors.New("boom")
	}}
	opts := DefaultOptions()
	opts.Breaker = BreakerOptions{Enabled: true, FailureThreshold: 2, OpenTimeout: time.Minute}
	c := NewClient[string]("cards", f, opts, logger.NewNop())

	for i := 0; i < 2; i++ {
		assert.Equal(t, StatusUnavailable, c.Call(context.Background(), "k", tracing.Context{}).Status)
	}
	out := c.Call(context.Background(), "k", tracing.Context{})
	assert.Equal(t, StatusUnavailable, out.Status)
	assert.Equal(t, int32(2), f.calls.Load(), "open breaker short-circuits the call")
}

func TestClientBreakerIgnoresNotFound(t *testing.T) {
	f := &mockFetcher{fetchFn: func(ctx context.Context, key string, tc tracing.Context) (string, error) {
		return "", ErrNotFound
	}}
	opts := DefaultOptions()
	opts.Breaker = BreakerOptions{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Minute}
	c := NewClient[string]("cards", f, opts, logger.NewNop())

	for i := 0; i < 3; i++ {
		assert.Equal(t, StatusAbsent, c.Call(context.Background(), "k", tracing.Context{}).Status)
	}
	assert.Equal(t, int32(3), f.calls.Load())
}

func TestClientCancelledCaller(t *testing.T) {
	f := &mockFetcher{fetchFn: func(ctx context.Context, key string, tc tracing.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	c := NewClient[string]("loans", f, noBreaker(time.Minute), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	out := c.Call(ctx, "k", tracing.Context{})
	assert.Equal(t, StatusUnavailable, out.Status)
	assert.ErrorIs(t, out.Cause, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClientBreakerIgnoresCancelledCallers(t *testing.T) {
	f := &mockFetcher{fetchFn: func(ctx context.Context, key string, tc tracing.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "card", nil
	}}
	c := NewClient[string]("cards", f, DefaultOptions(), logger.NewNop())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		out := c.Call(cancelled, "k", tracing.Context{})
		assert.Equal(t, StatusUnavailable, out.Status)
		assert.ErrorIs(t, out.Cause, context.Canceled)
	}

	out := c.Call(context.Background(), "k", tracing.Context{})
	assert.Equal(t, StatusFound, out.Status, "cause: %v", out.Cause)
	assert.Equal(t, "card", out.Record)
}

func TestClientBreakerCountsAttemptTimeouts(t *testing.T) {
	f := &mockFetcher{fetchFn: func(ctx context.Context, key string, tc tracing.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	opts := DefaultOptions()
	opts.Timeout = 5 * time.Millisecond
	opts.Breaker = BreakerOptions{Enabled: true, FailureThreshold: 2, OpenTimeout: time.Minute}
	c := NewClient[string]("cards", f, opts, logger.NewNop())

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, c.Call(context.Background(), "k", tracing.Context{}).Cause, context.DeadlineExceeded)
	}
	assert.Equal(t, StatusUnavailable, c.Call(context.Background(), "k", tracing.Context{}).Status)
	assert.Equal(t, int32(2), f.calls.Load())
}
