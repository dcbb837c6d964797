package ingest

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/apperr"
)

// RetryPolicy controls the exponential backoff used between stage
// attempts.
type RetryPolicy struct {
	MaxAttempts int
	InitialWait time.Duration
	Factor      float64
	MaxWait     time.Duration
}

// DefaultRetryPolicy matches spec §4.4: initial 1s, factor 2, capped
// at 60s, 5 attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, InitialWait: time.Second, Factor: 2, MaxWait: 60 * time.Second}
}

var clientErrorStatus = regexp.MustCompile(`unexpected status 4\d\d`)

// isPermanent reports whether err should fail the job fast rather than
// be retried: a 4xx fetch response or unparseable content never
// succeeds on retry (spec §4.4).
func isPermanent(err error) bool {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Kind {
	case apperr.ExtractionError, apperr.ValidationError:
		return true
	case apperr.FetchError:
		return clientErrorStatus.MatchString(appErr.Message)
	default:
		return false
	}
}

// withRetry runs fn, retrying on transient failures per policy with
// exponential backoff. A permanent failure (per isPermanent) or
// context cancellation returns immediately without consuming the
// remaining attempt budget.
func withRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	wait := policy.InitialWait
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if isPermanent(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = time.Duration(float64(wait) * policy.Factor)
		if wait > policy.MaxWait {
			wait = policy.MaxWait
		}
	}
	return lastErr
}
