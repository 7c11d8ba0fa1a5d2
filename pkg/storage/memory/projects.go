package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/keygate/keygate/pkg/projects"
	"github.com/keygate/keygate/pkg/rbac"
)

// ProjectStore is an in-memory projects.Store. Deleting a project cascades
// to its members through the attached member store.
type ProjectStore struct {
	mu     sync.RWMutex
	byID   map[int64]*projects.Project
	nextID int64

	members *MemberStore
}

// NewProjectStore creates a project store. members may be nil, in which case
// deletes do not cascade.
func NewProjectStore(members *MemberStore) *ProjectStore {
	return &ProjectStore{
		byID:    make(map[int64]*projects.Project),
		nextID:  1,
		members: members,
	}
}

func copyProject(p *projects.Project) *projects.Project {
	cp := *p
	cp.Members = nil
	return &cp
}

// Save inserts or updates a project, assigning an id on first save. The
// Members slice is not persisted here; members live in the member store.
func (s *ProjectStore) Save(_ context.Context, project *projects.Project) (*projects.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if project.ID == 0 {
		project.ID = s.nextID
		s.nextID++
	}
	s.byID[project.ID] = copyProject(project)
	return copyProject(project), nil
}

// GetByID returns the project or (nil, nil) when absent.
func (s *ProjectStore) GetByID(_ context.Context, id int64) (*projects.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return copyProject(p), nil
}

// GetByName returns the project with the given name or (nil, nil).
func (s *ProjectStore) GetByName(_ context.Context, name string) (*projects.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.byID {
		if p.Name == name {
			return copyProject(p), nil
		}
	}
	return nil, nil
}

// GetByTenantID returns the tenant's projects ordered by id.
func (s *ProjectStore) GetByTenantID(_ context.Context, tenantID int64) ([]*projects.Project, error) {
	return s.filter(func(p *projects.Project) bool { return p.TenantID == tenantID }), nil
}

// GetByOwnerID returns the owner's projects ordered by id.
func (s *ProjectStore) GetByOwnerID(_ context.Context, ownerID int64) ([]*projects.Project, error) {
	return s.filter(func(p *projects.Project) bool { return p.OwnerID == ownerID }), nil
}

// GetByUserID returns projects the user is a member of, ordered by id.
func (s *ProjectStore) GetByUserID(ctx context.Context, userID int64) ([]*projects.Project, error) {
	if s.members == nil {
		return nil, nil
	}

	memberships, err := s.members.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make(map[int64]bool, len(memberships))
	for _, m := range memberships {
		ids[m.ProjectID] = true
	}
	return s.filter(func(p *projects.Project) bool { return ids[p.ID] }), nil
}

// Exists reports whether the project is present.
func (s *ProjectStore) Exists(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byID[id]
	return ok, nil
}

// Delete removes a project and cascades to its members.
func (s *ProjectStore) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.byID, id)
	s.mu.Unlock()

	if s.members != nil {
		if _, err := s.members.DeleteByProjectID(ctx, id); err != nil {
			return true, err
		}
	}
	return true, nil
}

// DeleteByTenantID removes all of a tenant's projects, cascading to members.
func (s *ProjectStore) DeleteByTenantID(ctx context.Context, tenantID int64) (int64, error) {
	s.mu.Lock()
	var ids []int64
	for id, p := range s.byID {
		if p.TenantID == tenantID {
			ids = append(ids, id)
			delete(s.byID, id)
		}
	}
	s.mu.Unlock()

	if s.members != nil {
		for _, id := range ids {
			if _, err := s.members.DeleteByProjectID(ctx, id); err != nil {
				return int64(len(ids)), err
			}
		}
	}
	return int64(len(ids)), nil
}

func (s *ProjectStore) filter(keep func(*projects.Project) bool) []*projects.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*projects.Project
	for _, p := range s.byID {
		if keep(p) {
			out = append(out, copyProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MemberStore is an in-memory projects.MemberStore.
type MemberStore struct {
	mu     sync.RWMutex
	byID   map[int64]*projects.ProjectMember
	nextID int64
}

// NewMemberStore creates an empty member store.
func NewMemberStore() *MemberStore {
	return &MemberStore{byID: make(map[int64]*projects.ProjectMember), nextID: 1}
}

// Save inserts or updates a member, assigning an id on first save.
func (s *MemberStore) Save(_ context.Context, member *projects.ProjectMember) (*projects.ProjectMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if member.ID == 0 {
		member.ID = s.nextID
		s.nextID++
	}
	cp := *member
	s.byID[member.ID] = &cp
	out := cp
	return &out, nil
}

// GetByID returns the member or (nil, nil) when absent.
func (s *MemberStore) GetByID(_ context.Context, id int64) (*projects.ProjectMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

// GetByProjectID returns the project's members in invitation order.
func (s *MemberStore) GetByProjectID(_ context.Context, projectID int64) ([]*projects.ProjectMember, error) {
	return s.filter(func(m *projects.ProjectMember) bool { return m.ProjectID == projectID }), nil
}

// GetByUserID returns the user's memberships across all projects.
func (s *MemberStore) GetByUserID(_ context.Context, userID int64) ([]*projects.ProjectMember, error) {
	return s.filter(func(m *projects.ProjectMember) bool { return m.UserID == userID }), nil
}

// GetByRole returns all members holding the given role.
func (s *MemberStore) GetByRole(_ context.Context, role rbac.Role) ([]*projects.ProjectMember, error) {
	return s.filter(func(m *projects.ProjectMember) bool { return m.Role == role }), nil
}

// Delete removes a member, reporting whether it existed.
func (s *MemberStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return false, nil
	}
	delete(s.byID, id)
	return true, nil
}

// DeleteByProjectID removes all members of a project and returns the count.
func (s *MemberStore) DeleteByProjectID(_ context.Context, projectID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, m := range s.byID {
		if m.ProjectID == projectID {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

func (s *MemberStore) filter(keep func(*projects.ProjectMember) bool) []*projects.ProjectMember {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*projects.ProjectMember
	for _, m := range s.byID {
		if keep(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
