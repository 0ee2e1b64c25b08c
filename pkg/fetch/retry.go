package fetch

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"net"
	"strings"
	"syscall"
	"time"
)

const (
	DefaultMaxRetries    = 3
	DefaultBaseDelay     = 500 * time.Millisecond
	DefaultMaxDelay      = 30 * time.Second
	DefaultJitterFactor  = 0.5
	DefaultBackoffFactor = 2.0
)

// RetryConfig controls how failed fetches are retried.
type RetryConfig struct {
	MaxRetries    int           // attempts after the first; 0 disables retries
	BaseDelay     time.Duration // delay before the first retry
	MaxDelay      time.Duration // cap on any single delay
	JitterFactor  float64       // random jitter in [0,1]
	BackoffFactor float64       // exponential multiplier
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    DefaultMaxRetries,
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
		JitterFactor:  DefaultJitterFactor,
		BackoffFactor: DefaultBackoffFactor,
	}
}

// RetryState tracks one fetch's attempts.
type RetryState struct {
	Attempts     int
	LastError    error
	TotalDelayed time.Duration
}

// ErrorCategory classifies errors for retry decisions.
type ErrorCategory int

const (
	ErrCategoryFatal     ErrorCategory = iota // not retried
	ErrCategoryRetryable                      // connection drops, timeouts
	ErrCategoryThrottled                      // 429, 503: retried with a longer delay
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryRetryable:
		return "retryable"
	case ErrCategoryThrottled:
		return "throttled"
	default:
		return "fatal"
	}
}

// ClassifyError decides how err should be retried. A *FetchError's own
// transient flag wins over the generic heuristics.
func ClassifyError(err error) ErrorCategory {
	if err == nil || errors.Is(err, context.Canceled) {
		return ErrCategoryFatal
	}

	errStr := strings.ToLower(err.Error())
	throttled := false
	for _, pattern := range []string{"429", "503", "too many requests", "service unavailable", "rate limit", "throttl"} {
		if strings.Contains(errStr, pattern) {
			throttled = true
			break
		}
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		switch {
		case !fe.IsTransient():
			return ErrCategoryFatal
		case throttled:
			return ErrCategoryThrottled
		default:
			return ErrCategoryRetryable
		}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrCategoryRetryable
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrCategoryRetryable
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && isRetryableErrno(errno) {
		return ErrCategoryRetryable
	}
	for _, pattern := range []string{
		"connection reset",
		"connection refused",
		"broken pipe",
		"timeout",
		"temporary failure",
		"no such host",
		"network is unreachable",
	} {
		if strings.Contains(errStr, pattern) {
			return ErrCategoryRetryable
		}
	}
	if throttled {
		return ErrCategoryThrottled
	}
	return ErrCategoryFatal
}

func isRetryableErrno(errno syscall.Errno) bool {
	switch errno {
	case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.EPIPE, syscall.ETIMEDOUT, syscall.ECONNABORTED:
		return true
	}
	return false
}

// CalculateBackoff returns the delay before retry number attempt (1-based).
func (c *RetryConfig) CalculateBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(c.BaseDelay) * math.Pow(c.BackoffFactor, float64(attempt-1))
	if c.JitterFactor > 0 {
		delay *= 1 + c.JitterFactor*(2*rand.Float64()-1)
	}
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	if delay < 0 {
		delay = float64(c.BaseDelay)
	}
	return time.Duration(delay)
}

// ShouldRetry reports whether another attempt is allowed after err.
func (c *RetryConfig) ShouldRetry(state *RetryState, err error) bool {
	state.LastError = err
	if ClassifyError(err) == ErrCategoryFatal {
		return false
	}
	return state.Attempts <= c.MaxRetries
}

// WaitForRetry sleeps for the backoff delay or until ctx is done.
// Throttled errors wait twice as long.
func (c *RetryConfig) WaitForRetry(ctx context.Context, state *RetryState, category ErrorCategory) error {
	delay := c.CalculateBackoff(state.Attempts)
	if category == ErrCategoryThrottled {
		delay *= 2
		if delay > c.MaxDelay {
			delay = c.MaxDelay
		}
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		state.TotalDelayed += delay
		return nil
	}
}
