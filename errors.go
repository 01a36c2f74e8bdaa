package vaultflow

import (
	"errors"
	"fmt"
)

// Kind classifies a transfer rejection so callers can render a specific
// user-facing message and decide whether a retry is safe.
type Kind string

const (
	// KindInvalidRequest marks a malformed request (self-transfer,
	// non-positive amount, excessive decimal scale). Caller's fault; not
	// retryable as-is.
	KindInvalidRequest Kind = "invalid_request"
	// KindAccountNotFound marks a missing participant account. Fatal for
	// this request.
	KindAccountNotFound Kind = "account_not_found"
	// KindInsufficientFunds marks a business rejection due to sender
	// balance; not retryable without more funds.
	KindInsufficientFunds Kind = "insufficient_funds"
	// KindGuardViolation marks a policy rejection; the violated rule is
	// carried alongside so the caller knows which guardrail blocked it.
	KindGuardViolation Kind = "guard_violation"
	// KindIdempotencyConflict marks a reused idempotency key with a
	// different payload. Client bug; surfaced clearly.
	KindIdempotencyConflict Kind = "idempotency_conflict"
	// KindRateLimited tells the caller to back off and retry later.
	KindRateLimited Kind = "rate_limited"
	// KindLockTimeout marks a transient contention failure. Safe to retry:
	// idempotency protects against double-application.
	KindLockTimeout Kind = "lock_timeout"
	// KindInternal hides storage and infrastructure failures behind a
	// generic transient error. Details stay in the logs.
	KindInternal Kind = "internal"
)

// Rule identifies the guardrail that rejected a transfer.
type Rule string

const (
	// RuleDailyLimit is the trailing-24h outgoing sum ceiling.
	RuleDailyLimit Rule = "daily-limit"
	// RuleWeeklyLimit is the trailing-7d outgoing sum ceiling.
	RuleWeeklyLimit Rule = "weekly-limit"
	// RuleVelocity is the trailing-window outgoing count ceiling.
	RuleVelocity Rule = "velocity"
	// RuleCoolOff is the mandatory waiting period after first contact with
	// a new recipient.
	RuleCoolOff Rule = "cool-off"
)

// Error is the tagged rejection type returned across the engine boundary.
// Business rejections carry enough structure for an actionable message;
// internal failures wrap the cause for logging but expose only the kind.
type Error struct {
	Kind    Kind
	Rule    Rule
	Field   string
	Message string
	Err     error
}

// Error returns the formatted rejection string.
func (e *Error) Error() string {
	switch {
	case e.Rule != "":
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Rule, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Field)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Unwrap exposes the wrapped cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a tagged error for the given kind.
func NewError(kind Kind, field, message string) error {
	return &Error{Kind: kind, Field: field, Message: message}
}

// GuardError creates a guard-violation error for the given rule.
func GuardError(rule Rule, message string) error {
	return &Error{Kind: KindGuardViolation, Rule: rule, Message: message}
}

// Internal wraps an infrastructure failure as a generic transient error.
// The cause is preserved for logging but never shown to the caller.
func Internal(err error) error {
	return &Error{Kind: KindInternal, Message: "transient internal failure, retry later", Err: err}
}

// KindOf extracts the rejection kind, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}

// RuleOf extracts the violated guard rule, or the empty string when the
// error is not a guard violation.
func RuleOf(err error) Rule {
	var e *Error
	if errors.As(err, &e) {
		return e.Rule
	}

	return ""
}

// IsRetryable reports whether the caller may safely resubmit the same
// request. Idempotency reservation makes retries of transient failures safe.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindLockTimeout, KindRateLimited, KindInternal:
		return true
	default:
		return false
	}
}
