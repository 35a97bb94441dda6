package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors used for classification with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrQuotaExceeded = errors.New("token quota exceeded")
	ErrTimeout       = errors.New("provider call timed out")
	ErrDecode        = errors.New("provider contract mismatch")
	ErrPartialResult = errors.New("partial result")
	ErrNotFound      = errors.New("not found")
)

// ValidationError reports a request that failed normalization. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// QuotaExceededError is returned once the token budget stayed insufficient
// through every permitted wait cycle.
type QuotaExceededError struct {
	Budget   TokenBudget
	Required int
	Waits    int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("token quota exceeded: need %d, have %d after %d waits (refill in %s)",
		e.Required, e.Budget.TokensLeft, e.Waits, e.Budget.RefillIn.Round(time.Millisecond))
}

func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

// TimeoutError reports a single provider call exceeding its deadline.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// DecodeError reports provider data that does not match the documented shape.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Field, e.Reason)
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// NotFoundError reports identifiers the provider returned nothing for.
type NotFoundError struct {
	Kind string
	IDs  []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, strings.Join(e.IDs, ","))
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IsRetryable reports whether err is transient at chunk granularity:
// timeouts, and errors that classify themselves as retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var r interface{ IsRetryable() bool }
	return errors.As(err, &r) && r.IsRetryable()
}
