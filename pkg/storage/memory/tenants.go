package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/keygate/keygate/pkg/tenants"
)

// TenantStore is an in-memory tenants.Store. When cascade stores are attached
// via NewTenantStore, Delete removes the tenant's users and projects too.
type TenantStore struct {
	mu     sync.RWMutex
	byID   map[int64]*tenants.Tenant
	nextID int64

	users    *UserStore
	projects *ProjectStore
}

// NewTenantStore creates a tenant store. users and projects may be nil, in
// which case deletes do not cascade.
func NewTenantStore(users *UserStore, projects *ProjectStore) *TenantStore {
	return &TenantStore{
		byID:     make(map[int64]*tenants.Tenant),
		nextID:   1,
		users:    users,
		projects: projects,
	}
}

// Save inserts or updates a tenant, assigning an id on first save.
func (s *TenantStore) Save(_ context.Context, tenant *tenants.Tenant) (*tenants.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tenant.ID == 0 {
		tenant.ID = s.nextID
		s.nextID++
	}
	cp := *tenant
	s.byID[tenant.ID] = &cp
	out := cp
	return &out, nil
}

// GetByID returns the tenant or (nil, nil) when absent.
func (s *TenantStore) GetByID(_ context.Context, id int64) (*tenants.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// GetByName returns the tenant with the given name or (nil, nil).
func (s *TenantStore) GetByName(_ context.Context, name string) (*tenants.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.byID {
		if t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

// ExistsByName reports whether any tenant has the given name.
func (s *TenantStore) ExistsByName(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.byID {
		if t.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// List returns a page of tenants ordered by id.
func (s *TenantStore) List(_ context.Context, skip, limit int) ([]*tenants.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*tenants.Tenant, 0, len(s.byID))
	for _, t := range s.byID {
		cp := *t
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	lo, hi := paginate(len(all), skip, limit)
	return all[lo:hi], nil
}

// Delete removes a tenant and cascades to its users and projects.
func (s *TenantStore) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.byID, id)
	s.mu.Unlock()

	if s.users != nil {
		if _, err := s.users.DeleteByTenantID(ctx, id); err != nil {
			return true, err
		}
	}
	if s.projects != nil {
		if _, err := s.projects.DeleteByTenantID(ctx, id); err != nil {
			return true, err
		}
	}
	return true, nil
}
