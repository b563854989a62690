/*
lifecycle.go - The request state machine

PURPOSE:
  Drives a request through PENDING -> {APPROVED, REJECTED, CANCELLED} and
  keeps the balance ledger consistent with it. Days are reserved only upon
  approval, never at creation, so rejecting or cancelling touches no
  balance.

CHECK ORDER (decide):
  1. Load actor            -> NotFound
  2. Load request          -> NotFound
  3. CanDecide             -> Forbidden
  4. Decision value        -> BadRequest
  5. Request still pending -> BadRequest (decided exactly once)
  6. APPROVED only: load owner, deduct unconditionally, save with version
     retry
  7. Stamp decision fields, persist request

  The deduction has NO sufficiency pre-check; an approval may push the
  owner's balance negative. Covers() in ledger.go is the opt-in predicate
  for anyone who wants stricter behavior.

CONCURRENCY:
  Two concurrent decisions sharing an owner serialize on the user's
  Version token: the loser's save returns ErrVersionConflict and the
  read-modify-write is retried. Nothing is cached between attempts.

SEE ALSO:
  - authz.go: permission predicates consulted here
  - ledger.go: Deduct
  - errors.go: the error kinds produced here
*/
package leave

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// deductRetries bounds the optimistic-concurrency retry loop on the
// owner's balance. Past this, the conflict surfaces to the caller.
const deductRetries = 3

// Lifecycle owns the request-driven operations. All methods reload fresh
// state from the stores; none hold entities across calls.
type Lifecycle struct {
	Users    UserStore
	Requests RequestStore

	// Now is the clock; overridable in tests. Defaults to time.Now.
	Now func() time.Time
}

func NewLifecycle(users UserStore, requests RequestStore) *Lifecycle {
	return &Lifecycle{Users: users, Requests: requests, Now: time.Now}
}

// =============================================================================
// CREATE
// =============================================================================

// CreateInput carries the validated fields of a create command.
// WorkdaysCount is pre-computed by the caller, not derived here.
type CreateInput struct {
	StartDate     time.Time
	EndDate       time.Time
	WorkdaysCount int
	Type          LeaveType
	Comment       string
}

// Create records a new request in PENDING for the owner. No balance
// effect: days are reserved upon approval, not upon request.
func (l *Lifecycle) Create(ctx context.Context, ownerID string, in CreateInput) (*Request, error) {
	if _, err := l.Users.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, ErrInvalidInput
	}
	if len(in.Comment) > MaxCommentLength {
		return nil, ErrInvalidInput
	}

	r := &Request{
		ID:            uuid.NewString(),
		UserID:        ownerID,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		WorkdaysCount: in.WorkdaysCount,
		Type:          in.Type,
		Comment:       in.Comment,
		Status:        StatusPending,
		CreatedAt:     l.Now(),
	}
	return l.Requests.SaveRequest(ctx, r)
}

// =============================================================================
// DECIDE
// =============================================================================

// Decide applies an approver's terminal verdict to a pending request.
// newStatus must be APPROVED or REJECTED. Approval deducts the request's
// workdays from the owner's balance unconditionally.
func (l *Lifecycle) Decide(ctx context.Context, actorID, requestID string, newStatus Status) (*Request, error) {
	actor, err := l.Users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	r, err := l.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !CanDecide(actor, r.UserID) {
		return nil, ErrForbidden
	}

	if newStatus != StatusApproved && newStatus != StatusRejected {
		return nil, ErrInvalidDecision
	}

	if r.Status != StatusPending {
		return nil, ErrAlreadyDecided
	}

	if newStatus == StatusApproved {
		if err := l.deductFromOwner(ctx, r.UserID, r.WorkdaysCount); err != nil {
			return nil, err
		}
	}

	r.Status = newStatus
	r.DecisionSeen = false
	r.DecidedByUserID = actorID
	r.DecidedAt = l.Now()
	return l.Requests.SaveRequest(ctx, r)
}

// deductFromOwner performs the read-modify-write on the owner's balance,
// retrying when a concurrent save wins the version race.
func (l *Lifecycle) deductFromOwner(ctx context.Context, ownerID string, days int) error {
	var err error
	for attempt := 0; attempt < deductRetries; attempt++ {
		var owner *User
		owner, err = l.Users.GetUser(ctx, ownerID)
		if err != nil {
			return err
		}
		owner.AvailableLeaveDays = Deduct(owner.AvailableLeaveDays, days)
		if _, err = l.Users.SaveUser(ctx, owner); err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
	}
	return err
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel moves the owner's pending request to CANCELLED. The cancellation
// instant is recorded in DecidedAt; no decider is set and no balance
// changes (days were never deducted for a pending request).
func (l *Lifecycle) Cancel(ctx context.Context, actorID, requestID string) (*Request, error) {
	actor, err := l.Users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	r, err := l.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !CanActOnOwnRequest(actor, r) {
		return nil, ErrForbidden
	}

	// Two branches on purpose: an already-cancelled request reports its
	// own conflict, any other non-pending state the generic one.
	if r.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if r.Status != StatusPending {
		return nil, ErrNotPending
	}

	r.Status = StatusCancelled
	r.DecidedAt = l.Now()
	return l.Requests.SaveRequest(ctx, r)
}

// =============================================================================
// ACKNOWLEDGE
// =============================================================================

// AcknowledgeDecision marks the decision as seen by the owner. It sets
// DecisionSeen unconditionally, regardless of status, and is idempotent.
func (l *Lifecycle) AcknowledgeDecision(ctx context.Context, actorID, requestID string) (*Request, error) {
	actor, err := l.Users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	r, err := l.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !CanActOnOwnRequest(actor, r) {
		return nil, ErrForbidden
	}

	r.DecisionSeen = true
	return l.Requests.SaveRequest(ctx, r)
}

// =============================================================================
// LISTS
// =============================================================================

// ListForOwner returns the requests owned by ownerID.
func (l *Lifecycle) ListForOwner(ctx context.Context, ownerID string) ([]*Request, error) {
	if _, err := l.Users.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}
	return l.Requests.ListRequestsByUser(ctx, ownerID)
}

// ListForAssignees returns the requests the actor may review: every
// request for an admin, the assignees' requests for an approver.
func (l *Lifecycle) ListForAssignees(ctx context.Context, actorID string) ([]*Request, error) {
	actor, err := l.Users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case RoleAdmin:
		return l.Requests.ListRequests(ctx)
	case RoleApprover:
		if len(actor.AssigneeIDs) == 0 {
			return []*Request{}, nil
		}
		return l.Requests.ListRequestsByUsers(ctx, actor.AssigneeIDs)
	default:
		return nil, ErrForbidden
	}
}

// ListForSpecificAssignee returns one assignee's requests, gated by
// CanViewAssignee.
func (l *Lifecycle) ListForSpecificAssignee(ctx context.Context, actorID, targetUserID string) ([]*Request, error) {
	actor, err := l.Users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !CanViewAssignee(actor, targetUserID) {
		return nil, ErrForbidden
	}
	return l.Requests.ListRequestsByUser(ctx, targetUserID)
}

// ListAssignees resolves the actor's assignee list against the user store.
// The list is never assumed cached on the approver record.
func (l *Lifecycle) ListAssignees(ctx context.Context, actorID string) ([]*User, error) {
	actor, err := l.Users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != RoleApprover && actor.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	if len(actor.AssigneeIDs) == 0 {
		return []*User{}, nil
	}
	return l.Users.ListUsersByIDs(ctx, actor.AssigneeIDs)
}
