package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/keygate/keygate/pkg/users"
)

// UserStore is an in-memory users.Store.
type UserStore struct {
	mu     sync.RWMutex
	byID   map[int64]*users.User
	nextID int64
}

// NewUserStore creates an empty user store.
func NewUserStore() *UserStore {
	return &UserStore{byID: make(map[int64]*users.User), nextID: 1}
}

func copyUser(u *users.User) *users.User {
	cp := *u
	if u.EmailCodeExpiresAt != nil {
		t := *u.EmailCodeExpiresAt
		cp.EmailCodeExpiresAt = &t
	}
	return &cp
}

// Save inserts or updates a user, assigning an id on first save.
func (s *UserStore) Save(_ context.Context, user *users.User) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == 0 {
		user.ID = s.nextID
		s.nextID++
	}
	s.byID[user.ID] = copyUser(user)
	return copyUser(user), nil
}

// GetByID returns the user or (nil, nil) when absent.
func (s *UserStore) GetByID(_ context.Context, id int64) (*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

// GetByEmail returns the user with the given email or (nil, nil).
func (s *UserStore) GetByEmail(_ context.Context, email string) (*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byID {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

// ExistsByEmail reports whether any user has the given email.
func (s *UserStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byID {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// List returns a page of users ordered by id.
func (s *UserStore) List(_ context.Context, skip, limit int) ([]*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.page(s.all(), skip, limit), nil
}

// GetByTenantID returns a page of the tenant's users ordered by id.
func (s *UserStore) GetByTenantID(_ context.Context, tenantID int64, skip, limit int) ([]*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*users.User
	for _, u := range s.all() {
		if u.TenantID == tenantID {
			matched = append(matched, u)
		}
	}
	return s.page(matched, skip, limit), nil
}

// GetAdminUsers returns a page of admin users ordered by id.
func (s *UserStore) GetAdminUsers(_ context.Context, skip, limit int) ([]*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*users.User
	for _, u := range s.all() {
		if u.IsAdmin {
			matched = append(matched, u)
		}
	}
	return s.page(matched, skip, limit), nil
}

// Delete removes a user, reporting whether it existed.
func (s *UserStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return false, nil
	}
	delete(s.byID, id)
	return true, nil
}

// DeleteByTenantID removes all users of a tenant and returns the count.
func (s *UserStore) DeleteByTenantID(_ context.Context, tenantID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, u := range s.byID {
		if u.TenantID == tenantID {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

// ClearExpiredCodes clears every verification code slot that expired before now.
func (s *UserStore) ClearExpiredCodes(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, u := range s.byID {
		if u.EmailCode != "" && u.EmailCodeExpiresAt != nil && now.After(*u.EmailCodeExpiresAt) {
			u.EmailCode = ""
			u.EmailCodeExpiresAt = nil
			u.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// all returns copies of every user sorted by id. Callers hold the lock.
func (s *UserStore) all() []*users.User {
	out := make([]*users.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *UserStore) page(list []*users.User, skip, limit int) []*users.User {
	lo, hi := paginate(len(list), skip, limit)
	return list[lo:hi]
}
