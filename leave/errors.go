/*
errors.go - Centralized error taxonomy for the leave core

PURPOSE:
  Every failure the core reports falls into one of four terminal kinds:
  NotFound, Forbidden, BadRequest, Conflict. The HTTP boundary maps these
  to transport status codes; nothing in the core retries them. The one
  retryable error is the optimistic-concurrency conflict, which the
  lifecycle retries internally before surfacing it.

USAGE:
  if leave.IsForbidden(err) { ... }
  if leave.IsRetryable(err) { retry }

SEE ALSO:
  - lifecycle.go: produces these errors in a fixed check order
  - api/handlers.go: maps them to HTTP status
*/
package leave

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUserNotFound is returned when a referenced user is absent.
	ErrUserNotFound = errors.New("user not found")

	// ErrRequestNotFound is returned when a referenced request is absent.
	ErrRequestNotFound = errors.New("request not found")

	// ErrForbidden is returned when the assignment relation check fails.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidDecision is returned when a decision value is neither
	// APPROVED nor REJECTED.
	ErrInvalidDecision = errors.New("status must be APPROVED or REJECTED")

	// ErrAlreadyDecided is returned when deciding a non-pending request.
	// A request may be decided exactly once.
	ErrAlreadyDecided = errors.New("request already decided")

	// ErrAlreadyCancelled is returned when cancelling a request that is
	// already cancelled. Kept distinct from ErrNotPending to preserve the
	// two-branch check; both report as a conflict.
	ErrAlreadyCancelled = errors.New("request already cancelled")

	// ErrNotPending is returned when cancelling a request that has left
	// the pending state.
	ErrNotPending = errors.New("request is not pending")

	// ErrVersionConflict is returned by stores when a save loses an
	// optimistic concurrency race. Retryable.
	ErrVersionConflict = errors.New("concurrent modification detected")

	// ErrEmailTaken is returned when creating a user with an email that
	// already exists.
	ErrEmailTaken = errors.New("email already in use")

	// ErrInvalidInput is returned for malformed fields (comment too long,
	// unknown leave type, bad patch values).
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing user or request.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrRequestNotFound)
}

// IsForbidden reports whether err is an authorization failure.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsBadRequest reports whether err is invalid client input, including a
// decision attempted on a non-pending request.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrInvalidDecision) ||
		errors.Is(err, ErrAlreadyDecided) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmailTaken)
}

// IsConflict reports whether err is a state conflict: a cancel on a
// non-pending request, or a lost concurrency race that exhausted retries.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyCancelled) ||
		errors.Is(err, ErrNotPending) ||
		errors.Is(err, ErrVersionConflict)
}

// IsRetryable reports whether the operation might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
