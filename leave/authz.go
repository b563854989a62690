/*
authz.go - Assignment-based authorization

PURPOSE:
  Answers "can actor A act on subject S / S's requests?". Roles are a flat
  set; the only derived rule is that ADMIN has every APPROVER capability
  over every user, while an APPROVER's reach is exactly its assignee list.

  These are pure predicates over already-loaded users. Resolving the actor
  from the store (and returning NotFound when absent) is the lifecycle's
  job; a false answer here becomes Forbidden, which is terminal and never
  retried.
*/
package leave

// CanViewAssignee reports whether actor may view targetUserID and their
// requests. ADMIN: always. APPROVER: only own assignees. USER: never.
func CanViewAssignee(actor *User, targetUserID string) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleApprover:
		return actor.Supervises(targetUserID)
	default:
		return false
	}
}

// CanDecide reports whether actor may decide a request owned by
// ownerUserID. Same relation as CanViewAssignee, applied to the request's
// owner.
func CanDecide(actor *User, ownerUserID string) bool {
	return CanViewAssignee(actor, ownerUserID)
}

// CanActOnOwnRequest reports whether actor owns the request. Cancel and
// acknowledge-decision are owner-only operations regardless of role.
func CanActOnOwnRequest(actor *User, r *Request) bool {
	return actor.ID == r.UserID
}
