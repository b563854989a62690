/*
admin.go - User administration and auto-provisioning

PURPOSE:
  The operations behind the admin surface (list, patch, delete) plus the
  first-login auto-provisioning path. Role checks happen at the HTTP
  boundary (the middleware knows the caller's role); these methods apply
  the mutation against the store with the same version discipline as the
  approval path.
*/
package leave

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserPatch is a partial update; nil fields are left untouched.
type UserPatch struct {
	Email              *string
	FullName           *string
	Role               *Role
	AvailableLeaveDays *int
	ContractLeaveDays  *int
	WorkingSince       *time.Time
	AssigneeIDs        []string // nil = untouched, empty = cleared
}

func (p UserPatch) validate() error {
	if p.FullName != nil && (len(*p.FullName) < 2 || len(*p.FullName) > 100) {
		return ErrInvalidInput
	}
	if p.Role != nil && !p.Role.Valid() {
		return ErrInvalidInput
	}
	if p.AvailableLeaveDays != nil && (*p.AvailableLeaveDays < 0 || *p.AvailableLeaveDays > MaxBalance) {
		return ErrInvalidInput
	}
	if p.ContractLeaveDays != nil && *p.ContractLeaveDays < 0 {
		return ErrInvalidInput
	}
	return nil
}

// PatchUser applies a partial update to a user, retrying the save on a
// lost version race.
func (l *Lifecycle) PatchUser(ctx context.Context, id string, patch UserPatch) (*User, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}

	var err error
	for attempt := 0; attempt < deductRetries; attempt++ {
		var u *User
		u, err = l.Users.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}

		if patch.Email != nil {
			u.Email = *patch.Email
		}
		if patch.FullName != nil {
			u.FullName = *patch.FullName
		}
		if patch.Role != nil {
			u.Role = *patch.Role
		}
		if patch.AvailableLeaveDays != nil {
			u.AvailableLeaveDays = *patch.AvailableLeaveDays
		}
		if patch.ContractLeaveDays != nil {
			u.ContractLeaveDays = *patch.ContractLeaveDays
		}
		if patch.WorkingSince != nil {
			u.WorkingSince = *patch.WorkingSince
		}
		if patch.AssigneeIDs != nil {
			u.AssigneeIDs = append([]string(nil), patch.AssigneeIDs...)
		}

		var saved *User
		if saved, err = l.Users.SaveUser(ctx, u); err == nil {
			return saved, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
	}
	return nil, err
}

// DeleteUser removes a user. Explicit admin delete is the only way a user
// leaves the system.
func (l *Lifecycle) DeleteUser(ctx context.Context, id string) error {
	return l.Users.DeleteUser(ctx, id)
}

// ListUsers returns every user.
func (l *Lifecycle) ListUsers(ctx context.Context) ([]*User, error) {
	return l.Users.ListUsers(ctx)
}

// GetUser returns one user.
func (l *Lifecycle) GetUser(ctx context.Context, id string) (*User, error) {
	return l.Users.GetUser(ctx, id)
}

// EnsureUser returns the user with the given email, provisioning a fresh
// USER with the default balance on first login.
func (l *Lifecycle) EnsureUser(ctx context.Context, email string) (*User, error) {
	u, err := l.Users.GetUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	return l.Users.SaveUser(ctx, &User{
		ID:                 uuid.NewString(),
		Email:              email,
		Role:               RoleUser,
		AvailableLeaveDays: DefaultLeaveDays,
	})
}
