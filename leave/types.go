/*
Package leave contains the core leave-tracking domain.

PURPOSE:
  This package holds the pieces that must stay consistent under concurrent
  access: the request lifecycle state machine, the balance ledger it
  mutates, and the assignment-based authorization that gates who may drive
  the state machine. The yearly/daily accrual batch shares the same balance
  rules.

KEY CONCEPTS IN THIS FILE (types.go):
  - User: an employee with a spendable leave-day balance and, for
    approvers, the list of users they supervise
  - Request: a leave request moving through PENDING -> terminal states
  - Role: flat three-way enumeration (USER, APPROVER, ADMIN)
  - Status / LeaveType: request enumerations

DESIGN PRINCIPLES:
  1. Balances are whole days. Integers, never fractions.
  2. Roles are data plus a pure decision function (authz.go), not a type
     hierarchy.
  3. User carries a Version token; stores compare it on save so two
     concurrent deductions cannot silently overwrite each other.

SEE ALSO:
  - ledger.go: balance arithmetic and service-year policies
  - lifecycle.go: the request state machine
  - accrual.go: the scheduled balance replenishment batch
*/
package leave

import "time"

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// MaxBalance is the ceiling every accrual credit is capped at.
	MaxBalance = 60

	// DefaultLeaveDays is the balance granted to auto-provisioned users.
	DefaultLeaveDays = 20

	// MaxCommentLength bounds the free-text comment on a request.
	MaxCommentLength = 500
)

// =============================================================================
// ROLE - Flat enumeration, no hierarchy
// =============================================================================

type Role string

const (
	RoleUser     Role = "USER"
	RoleApprover Role = "APPROVER"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleApprover, RoleAdmin:
		return true
	}
	return false
}

// =============================================================================
// USER
// =============================================================================

// User is an employee record. AssigneeIDs is meaningful only for approvers
// and admins, though an admin's authority does not depend on it.
type User struct {
	ID                 string
	Email              string
	FullName           string
	Role               Role
	AvailableLeaveDays int
	ContractLeaveDays  int
	WorkingSince       time.Time // date-granularity anchor for anniversaries
	AssigneeIDs        []string

	// Version is the optimistic concurrency token. Stores increment it on
	// every save and reject saves whose token is stale.
	Version int64
}

// Supervises reports whether userID appears in the user's assignee list.
func (u *User) Supervises(userID string) bool {
	for _, id := range u.AssigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Stores hand out clones so callers never share
// a mutable AssigneeIDs slice.
func (u *User) Clone() *User {
	c := *u
	c.AssigneeIDs = append([]string(nil), u.AssigneeIDs...)
	return &c
}

// =============================================================================
// REQUEST - One state machine: PENDING -> APPROVED | REJECTED | CANCELLED
// =============================================================================

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transition may leave this status.
func (s Status) Terminal() bool { return s != StatusPending }

type LeaveType string

const (
	LeaveAnnualPaid     LeaveType = "ANNUAL_PAID_LEAVE"
	LeaveAnnualUnpaid   LeaveType = "ANNUAL_UNPAID_LEAVE"
	LeaveSick           LeaveType = "SICK_LEAVE"
	LeaveMaternity      LeaveType = "MATERNITY_LEAVE"
	LeavePaternity      LeaveType = "PATERNITY_LEAVE"
	LeaveAdditionalPaid LeaveType = "ADDITIONAL_PAID_LEAVE"
)

func (t LeaveType) Valid() bool {
	switch t {
	case LeaveAnnualPaid, LeaveAnnualUnpaid, LeaveSick,
		LeaveMaternity, LeavePaternity, LeaveAdditionalPaid:
		return true
	}
	return false
}

// Request is a leave request. WorkdaysCount arrives pre-computed from the
// caller; the core never derives it from the date range.
//
// Invariant: DecidedByUserID and DecidedAt are both set iff the status is
// APPROVED or REJECTED. A CANCELLED request carries DecidedAt (the
// cancellation instant) but no decider.
type Request struct {
	ID            string
	UserID        string // owner; non-owning reference into the user store
	StartDate     time.Time
	EndDate       time.Time
	WorkdaysCount int
	Type          LeaveType
	Comment       string
	Status        Status

	DecisionSeen    bool
	DecidedByUserID string
	DecidedAt       time.Time

	CreatedAt time.Time
}

func (r *Request) Clone() *Request {
	c := *r
	return &c
}
