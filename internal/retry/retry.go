// Package retry wraps upstream model calls with bounded retries and
// exponential backoff, classifying terminal failures by provider symptom.
package retry

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind classifies a terminal upstream failure.
type Kind int

const (
	Other Kind = iota
	Timeout
	RateLimited
)

func (k Kind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case RateLimited:
		return "rate_limited"
	default:
		return "other"
	}
}

var (
	timeoutKeywords   = []string{"timeout", "deadline", "timed out", "504", "503"}
	rateLimitKeywords = []string{"rate limit", "429", "quota"}
)

// Classify inspects an error message for provider throttling or timeout
// symptoms.
func Classify(err error) Kind {
	msg := strings.ToLower(err.Error())
	for _, kw := range timeoutKeywords {
		if strings.Contains(msg, kw) {
			return Timeout
		}
	}
	for _, kw := range rateLimitKeywords {
		if strings.Contains(msg, kw) {
			return RateLimited
		}
	}
	return Other
}

// Error is returned when every attempt failed. It carries the classification
// of the last underlying error and the number of attempts made.
type Error struct {
	Kind     Kind
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream call failed (%s) after %d attempts: %v", e.Kind, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Caller retries an operation with exponential backoff. The zero value is
// not usable; construct with New or NewWithSleep.
type Caller struct {
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// New returns a Caller with the given attempt budget and base delay.
func New(maxAttempts int, baseDelay time.Duration) *Caller {
	return NewWithSleep(maxAttempts, baseDelay, sleepCtx)
}

// NewWithSleep allows tests to substitute the sleep function.
func NewWithSleep(maxAttempts int, baseDelay time.Duration, sleep func(context.Context, time.Duration) error) *Caller {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Caller{maxAttempts: maxAttempts, baseDelay: baseDelay, sleep: sleep}
}

// Do invokes op until it succeeds or the attempt budget is exhausted,
// sleeping baseDelay * 2^attempt between attempts. Context cancellation
// during a backoff sleep aborts immediately with the context error.
func (c *Caller) Do(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	for attempt := range c.maxAttempts {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < c.maxAttempts-1 {
			delay := time.Duration(float64(c.baseDelay) * math.Pow(2, float64(attempt)))
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return &Error{Kind: Classify(lastErr), Attempts: c.maxAttempts, Err: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
