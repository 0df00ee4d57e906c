package ai

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"shorts-studio/internal/domain"
)

// parseRetryAfter understands both forms of the Retry-After header:
// delta-seconds and an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// rateLimitFromResponse returns a RateLimitError for a 429, nil otherwise.
func rateLimitFromResponse(status int, header http.Header, cause error) error {
	if status != http.StatusTooManyRequests {
		return nil
	}
	var after time.Duration
	if header != nil {
		after = parseRetryAfter(header.Get("Retry-After"), time.Now())
	}
	return &domain.RateLimitError{RetryAfter: after, Err: cause}
}
