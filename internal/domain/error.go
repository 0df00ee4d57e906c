package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid exec context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotConfigured      = errors.New("capability not configured")

	// Pipeline errors
	ErrParseEmpty             = errors.New("script produced no scenes")
	ErrRateLimited            = errors.New("upstream rate limited")
	ErrGenerationFailed       = errors.New("generation failed")
	ErrInvalidInput           = errors.New("invalid input")
	ErrNoValidScenes          = errors.New("no valid scenes to assemble")
	ErrRegenerationInProgress = errors.New("regeneration already in progress")
	ErrInvalidTransition      = errors.New("invalid status transition")
)

// RateLimitError is returned by generators when the upstream throttles the
// caller. RetryAfter is zero when the upstream gave no hint.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	msg := ErrRateLimited.Error()
	if e.RetryAfter > 0 {
		msg = fmt.Sprintf("%s (retry after %s)", msg, e.RetryAfter)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RateLimitError) Unwrap() error { return e.Err }

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// RetryAfterOf extracts the retry hint carried by a RateLimitError, if any.
func RetryAfterOf(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter, true
	}
	return 0, false
}
