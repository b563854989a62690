/*
handlers.go - HTTP handlers for the leave service

PURPOSE:
  Transport mapping only: parse and validate the body, read the caller
  identity from the context, call the lifecycle, serialize the result.
  All business rules (assignment checks, state machine, balances) live in
  the leave package.

ENDPOINTS:
  Auth:
    POST  /auth/post-login                         Provision caller on first login

  Account:
    GET   /account                                 Caller's user record

  Requests (owner):
    GET   /requests                                Own requests
    POST  /requests                                Create request
    PATCH /requests/{id}/cancel                    Cancel pending request
    PATCH /requests/{id}/seen                      Acknowledge decision

  Approver (APPROVER or ADMIN):
    GET   /approver/assignees                      Resolved assignee list
    GET   /approver/requests                       All reviewable requests
    GET   /approver/assignee/{userId}/requests     One assignee's requests
    PATCH /approver/request/{id}                   Decide (APPROVED/REJECTED)

  Admin (ADMIN):
    GET    /admin/users                            List users
    PATCH  /admin/users/{id}                       Patch user
    DELETE /admin/users/{id}                       Delete user
    POST   /admin/accrual/annual                   Force annual accrual

ERROR HANDLING:
  Core errors map to status via their kind:
  NotFound->404, Forbidden->403, BadRequest->400, Conflict->409.

SEE ALSO:
  - dto.go: request/response shapes
  - auth.go: identity extraction
  - server.go: routing
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/amiltenov/DigiLeave/leave"
)

// Handler holds the dependencies of all HTTP handlers.
type Handler struct {
	Lifecycle *leave.Lifecycle
	Accrual   *leave.Accrual
}

// NewHandler creates a handler around the lifecycle and accrual services.
func NewHandler(lifecycle *leave.Lifecycle, accrual *leave.Accrual) *Handler {
	return &Handler{Lifecycle: lifecycle, Accrual: accrual}
}

// =============================================================================
// AUTH / ACCOUNT
// =============================================================================

// PostLogin provisions the caller on first login: looked up by the email
// claim, created as USER with the default balance when absent.
func (h *Handler) PostLogin(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	if id.Email == "" {
		writeError(w, http.StatusBadRequest, "no authenticated email", nil)
		return
	}

	u, err := h.Lifecycle.EnsureUser(r.Context(), id.Email)
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// GetAccount returns the caller's own user record.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	u, err := h.Lifecycle.GetUser(r.Context(), id.UserID)
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// =============================================================================
// OWNER REQUEST OPERATIONS
// =============================================================================

// ListOwnRequests returns the caller's requests.
func (h *Handler) ListOwnRequests(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	rs, err := h.Lifecycle.ListForOwner(r.Context(), id.UserID)
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(rs))
}

// CreateRequest records a new pending request for the caller.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	var body CreateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err)
		return
	}

	start, _ := time.Parse(dateLayout, body.StartDate)
	end, _ := time.Parse(dateLayout, body.EndDate)

	req, err := h.Lifecycle.Create(r.Context(), id.UserID, leave.CreateInput{
		StartDate:     start,
		EndDate:       end,
		WorkdaysCount: body.WorkdaysCount,
		Type:          leave.LeaveType(body.Type),
		Comment:       body.Comment,
	})
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(req))
}

// CancelRequest cancels the caller's pending request.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	req, err := h.Lifecycle.Cancel(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// AcknowledgeDecision marks a decision as seen by the caller.
func (h *Handler) AcknowledgeDecision(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	req, err := h.Lifecycle.AcknowledgeDecision(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// =============================================================================
// APPROVER OPERATIONS
// =============================================================================

// ListAssignees returns the caller's assignees resolved against the user
// store.
func (h *Handler) ListAssignees(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	us, err := h.Lifecycle.ListAssignees(r.Context(), id.UserID)
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTOs(us))
}

// ListAssigneeRequests returns every request the caller may review.
func (h *Handler) ListAssigneeRequests(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	rs, err := h.Lifecycle.ListForAssignees(r.Context(), id.UserID)
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(rs))
}

// ListSpecificAssigneeRequests returns one assignee's requests.
func (h *Handler) ListSpecificAssigneeRequests(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	rs, err := h.Lifecycle.ListForSpecificAssignee(r.Context(), id.UserID, chi.URLParam(r, "userId"))
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(rs))
}

// DecideRequest applies the caller's APPROVED/REJECTED verdict.
func (h *Handler) DecideRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	var body DecideRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err)
		return
	}

	req, err := h.Lifecycle.Decide(r.Context(), id.UserID, chi.URLParam(r, "id"), leave.Status(body.Status))
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// =============================================================================
// ADMIN OPERATIONS
// =============================================================================

// ListUsers returns every user.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	us, err := h.Lifecycle.ListUsers(r.Context())
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTOs(us))
}

// PatchUser applies a partial update to a user.
func (h *Handler) PatchUser(w http.ResponseWriter, r *http.Request) {
	var body PatchUserRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err)
		return
	}

	patch := leave.UserPatch{
		Email:              body.Email,
		FullName:           body.FullName,
		AvailableLeaveDays: body.AvailableLeaveDays,
		ContractLeaveDays:  body.ContractLeaveDays,
		AssigneeIDs:        body.AssigneeIDs,
	}
	if body.Role != nil {
		role := leave.Role(*body.Role)
		patch.Role = &role
	}
	if body.WorkingSince != nil {
		since, _ := time.Parse(dateLayout, *body.WorkingSince)
		patch.WorkingSince = &since
	}

	u, err := h.Lifecycle.PatchUser(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// DeleteUser removes a user.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Lifecycle.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeLeaveError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TriggerAnnualAccrual forces the yearly contract credit, the operator
// recovery path for a missed scheduled run. Not idempotent: safe to run
// at most once per year.
func (h *Handler) TriggerAnnualAccrual(w http.ResponseWriter, r *http.Request) {
	if err := h.Accrual.RunAnnual(r.Context()); err != nil {
		log.Printf("[Admin] forced annual accrual finished with errors: %v", err)
		writeError(w, http.StatusInternalServerError, "annual accrual failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLeaveError maps a core error kind to its HTTP status.
func writeLeaveError(w http.ResponseWriter, err error) {
	switch {
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case leave.IsForbidden(err):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case leave.IsBadRequest(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case leave.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
