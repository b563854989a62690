/*
store.go - Persistence interfaces consumed by the leave core

PURPOSE:
  The user and request collections are the only shared mutable resources;
  every mutation goes through these interfaces. The core never caches
  entities across operations - each operation reloads fresh state.

OPTIMISTIC CONCURRENCY:
  SaveUser compares the record's Version against the stored one and
  returns ErrVersionConflict on mismatch, incrementing it on success.
  This is what keeps two concurrent balance deductions from silently
  overwriting each other.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - store/memory: in-memory store for tests and dev
*/
package leave

import "context"

// UserStore persists users.
type UserStore interface {
	// GetUser returns the user or ErrUserNotFound.
	GetUser(ctx context.Context, id string) (*User, error)

	// GetUserByEmail returns the user or ErrUserNotFound.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// ListUsers returns every user.
	ListUsers(ctx context.Context) ([]*User, error)

	// ListUsersByIDs returns the users whose IDs are present; missing IDs
	// are skipped, not errors.
	ListUsersByIDs(ctx context.Context, ids []string) ([]*User, error)

	// SaveUser inserts or updates. On update the Version must match the
	// stored record or ErrVersionConflict is returned; on success the
	// returned user carries the incremented Version.
	SaveUser(ctx context.Context, u *User) (*User, error)

	// SaveUsers saves a batch best-effort: a failure on one record does
	// not block the others. The first error encountered is returned after
	// the whole batch has been attempted.
	SaveUsers(ctx context.Context, us []*User) error

	// DeleteUser removes the user or returns ErrUserNotFound.
	DeleteUser(ctx context.Context, id string) error
}

// RequestStore persists leave requests.
type RequestStore interface {
	// GetRequest returns the request or ErrRequestNotFound.
	GetRequest(ctx context.Context, id string) (*Request, error)

	// ListRequestsByUser returns all requests owned by userID.
	ListRequestsByUser(ctx context.Context, userID string) ([]*Request, error)

	// ListRequestsByUsers returns all requests owned by any of userIDs.
	ListRequestsByUsers(ctx context.Context, userIDs []string) ([]*Request, error)

	// ListRequests returns every request.
	ListRequests(ctx context.Context) ([]*Request, error)

	// SaveRequest inserts or updates a request.
	SaveRequest(ctx context.Context, r *Request) (*Request, error)
}
