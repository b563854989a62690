/*
Package memory provides in-memory UserStore/RequestStore implementations.

PURPOSE:
  Backs tests and local development without a database file. Implements
  the same version-checked save semantics as the SQLite store so
  concurrency tests exercise the real conflict path.
*/
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/amiltenov/DigiLeave/leave"
)

// Store holds users and requests in maps guarded by one mutex.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*leave.User
	requests map[string]*leave.Request
}

func New() *Store {
	return &Store{
		users:    make(map[string]*leave.User),
		requests: make(map[string]*leave.Request),
	}
}

// =============================================================================
// USER STORE
// =============================================================================

func (s *Store) GetUser(_ context.Context, id string) (*leave.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, leave.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*leave.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, leave.ErrUserNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]*leave.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*leave.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListUsersByIDs(_ context.Context, ids []string) ([]*leave.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*leave.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

func (s *Store) SaveUser(_ context.Context, u *leave.User) (*leave.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveUserLocked(u)
}

func (s *Store) saveUserLocked(u *leave.User) (*leave.User, error) {
	if existing, ok := s.users[u.ID]; ok {
		if existing.Version != u.Version {
			return nil, leave.ErrVersionConflict
		}
	} else {
		for _, other := range s.users {
			if other.Email == u.Email {
				return nil, leave.ErrEmailTaken
			}
		}
	}

	c := u.Clone()
	c.Version++
	s.users[c.ID] = c
	return c.Clone(), nil
}

// SaveUsers is best effort: it attempts every record and returns the
// first error after the whole batch.
func (s *Store) SaveUsers(_ context.Context, us []*leave.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var first error
	for _, u := range us {
		if _, err := s.saveUserLocked(u); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return leave.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

// =============================================================================
// REQUEST STORE
// =============================================================================

func (s *Store) GetRequest(_ context.Context, id string) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, leave.ErrRequestNotFound
	}
	return r.Clone(), nil
}

func (s *Store) ListRequestsByUser(_ context.Context, userID string) ([]*leave.Request, error) {
	return s.listRequests(func(r *leave.Request) bool { return r.UserID == userID })
}

func (s *Store) ListRequestsByUsers(_ context.Context, userIDs []string) ([]*leave.Request, error) {
	owners := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		owners[id] = true
	}
	return s.listRequests(func(r *leave.Request) bool { return owners[r.UserID] })
}

func (s *Store) ListRequests(_ context.Context) ([]*leave.Request, error) {
	return s.listRequests(func(*leave.Request) bool { return true })
}

func (s *Store) listRequests(match func(*leave.Request) bool) ([]*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*leave.Request{}
	for _, r := range s.requests {
		if match(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SaveRequest(_ context.Context, r *leave.Request) (*leave.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := r.Clone()
	s.requests[c.ID] = c
	return c.Clone(), nil
}
