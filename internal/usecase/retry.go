package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"shorts-studio/internal/domain"
)

// Clock abstracts time so backoff and pacing can be driven by tests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryPolicy bounds retries of a rate-limited external call.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration
	// Jitter returns a value in [0, max). Nil uses math/rand.
	Jitter func(max time.Duration) time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxJitter: 250 * time.Millisecond}
}

type retryState int

const (
	stateAttempting retryState = iota
	stateBackingOff
	stateSucceeded
	stateExhausted
)

func (s retryState) String() string {
	switch s {
	case stateAttempting:
		return "attempting"
	case stateBackingOff:
		return "backing_off"
	case stateSucceeded:
		return "succeeded"
	default:
		return "exhausted"
	}
}

// RetryOutcome reports how a retried call ended.
type RetryOutcome struct {
	Attempts int
	Delays   []time.Duration
	Err      error
}

// Delay returns the wait after the failed attempt (0-based). A retry-after
// hint carried by err wins over exponential backoff.
func (p RetryPolicy) Delay(attempt int, err error) time.Duration {
	if d, ok := domain.RetryAfterOf(err); ok {
		return d
	}
	d := p.BaseDelay * time.Duration(1<<attempt)
	if p.MaxJitter > 0 {
		if p.Jitter != nil {
			d += p.Jitter(p.MaxJitter)
		} else {
			d += rand.N(p.MaxJitter)
		}
	}
	return d
}

// Run drives op through the retry state machine. Only rate-limit errors are
// retried; any other error exhausts immediately as ErrGenerationFailed.
func (p RetryPolicy) Run(ctx context.Context, clock Clock, op func(ctx context.Context, attempt int) error) RetryOutcome {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var (
		state   = stateAttempting
		attempt int
		lastErr error
		delays  []time.Duration
	)
	for {
		switch state {
		case stateAttempting:
			lastErr = op(ctx, attempt)
			attempt++
			switch {
			case lastErr == nil:
				state = stateSucceeded
			case !errors.Is(lastErr, domain.ErrRateLimited), attempt >= maxAttempts:
				state = stateExhausted
			default:
				state = stateBackingOff
			}
		case stateBackingOff:
			d := p.Delay(attempt-1, lastErr)
			delays = append(delays, d)
			if err := clock.Sleep(ctx, d); err != nil {
				lastErr = err
				state = stateExhausted
				continue
			}
			state = stateAttempting
		case stateSucceeded:
			return RetryOutcome{Attempts: attempt, Delays: delays}
		case stateExhausted:
			return RetryOutcome{Attempts: attempt, Delays: delays, Err: exhaustedErr(attempt, lastErr)}
		}
	}
}

func exhaustedErr(attempts int, err error) error {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return fmt.Errorf("gave up after %d attempts: %w", attempts, err)
	case errors.Is(err, domain.ErrGenerationFailed):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
}
