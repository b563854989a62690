/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model from
  the external contract. Inbound types carry validator tags and are
  checked with go-playground/validator before reaching the core.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients
*/
package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/amiltenov/DigiLeave/leave"
)

var validate = validator.New()

const dateLayout = "2006-01-02"

// =============================================================================
// USER
// =============================================================================

// UserDTO is the user projection returned to clients.
type UserDTO struct {
	ID                 string   `json:"id"`
	Email              string   `json:"email"`
	FullName           string   `json:"fullName"`
	Role               string   `json:"role"`
	AvailableLeaveDays int      `json:"availableLeaveDays"`
	ContractLeaveDays  int      `json:"contractLeaveDays"`
	WorkingSince       string   `json:"workingSince,omitempty"`
	AssigneeIDs        []string `json:"assigneeIds"`
}

func toUserDTO(u *leave.User) UserDTO {
	dto := UserDTO{
		ID:                 u.ID,
		Email:              u.Email,
		FullName:           u.FullName,
		Role:               string(u.Role),
		AvailableLeaveDays: u.AvailableLeaveDays,
		ContractLeaveDays:  u.ContractLeaveDays,
		AssigneeIDs:        u.AssigneeIDs,
	}
	if dto.AssigneeIDs == nil {
		dto.AssigneeIDs = []string{}
	}
	if !u.WorkingSince.IsZero() {
		dto.WorkingSince = u.WorkingSince.Format(dateLayout)
	}
	return dto
}

func toUserDTOs(us []*leave.User) []UserDTO {
	out := make([]UserDTO, 0, len(us))
	for _, u := range us {
		out = append(out, toUserDTO(u))
	}
	return out
}

// PatchUserRequest is the admin partial-update body. Absent fields are
// left untouched.
type PatchUserRequest struct {
	Email              *string  `json:"email" validate:"omitempty,email"`
	FullName           *string  `json:"fullName" validate:"omitempty,min=2,max=100"`
	Role               *string  `json:"role" validate:"omitempty,oneof=USER APPROVER ADMIN"`
	AvailableLeaveDays *int     `json:"availableLeaveDays" validate:"omitempty,min=0,max=60"`
	ContractLeaveDays  *int     `json:"contractLeaveDays" validate:"omitempty,min=0"`
	WorkingSince       *string  `json:"workingSince" validate:"omitempty,datetime=2006-01-02"`
	AssigneeIDs        []string `json:"assigneeIds"`
}

// =============================================================================
// REQUEST
// =============================================================================

// RequestDTO is the leave-request projection returned to clients.
type RequestDTO struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	StartDate       string     `json:"startDate"`
	EndDate         string     `json:"endDate"`
	WorkdaysCount   int        `json:"workdaysCount"`
	Type            string     `json:"type"`
	Comment         string     `json:"comment,omitempty"`
	Status          string     `json:"status"`
	DecisionSeen    bool       `json:"decisionSeen"`
	DecidedByUserID string     `json:"decidedByUserId,omitempty"`
	DecidedAt       *time.Time `json:"decidedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func toRequestDTO(r *leave.Request) RequestDTO {
	dto := RequestDTO{
		ID:            r.ID,
		UserID:        r.UserID,
		StartDate:     r.StartDate.Format(dateLayout),
		EndDate:       r.EndDate.Format(dateLayout),
		WorkdaysCount: r.WorkdaysCount,
		Type:          string(r.Type),
		Comment:       r.Comment,
		Status:        string(r.Status),
		DecisionSeen:  r.DecisionSeen,
		CreatedAt:     r.CreatedAt,
	}
	if r.DecidedByUserID != "" {
		dto.DecidedByUserID = r.DecidedByUserID
	}
	if !r.DecidedAt.IsZero() {
		t := r.DecidedAt
		dto.DecidedAt = &t
	}
	return dto
}

func toRequestDTOs(rs []*leave.Request) []RequestDTO {
	out := make([]RequestDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRequestDTO(r))
	}
	return out
}

// CreateRequestBody is the body of POST /requests. WorkdaysCount is
// computed by the caller, date-to-date, and passed through.
type CreateRequestBody struct {
	StartDate     string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate       string `json:"endDate" validate:"required,datetime=2006-01-02"`
	WorkdaysCount int    `json:"workdaysCount" validate:"required,min=1"`
	Type          string `json:"type" validate:"required"`
	Comment       string `json:"comment" validate:"max=500"`
}

// DecideRequestBody is the body of PATCH /approver/request/{id}.
type DecideRequestBody struct {
	Status string `json:"status" validate:"required"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
