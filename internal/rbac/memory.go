package rbac

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store implementation used by tests and the
// dev server mode. A single RWMutex serializes writes, so ReplacePermissions
// is trivially atomic with respect to concurrent reads.
type MemoryStore struct {
	mu          sync.RWMutex
	roles       map[string]*Role            // by id
	assignments map[string]map[string]bool  // subject id -> role id set
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		roles:       make(map[string]*Role),
		assignments: make(map[string]map[string]bool),
	}
}

// NewSeededMemoryStore creates an in-memory store pre-populated with the
// system role catalog.
func NewSeededMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	for _, r := range SystemRoles() {
		s.roles[r.ID] = r
	}
	return s
}

func (s *MemoryStore) GetRole(ctx context.Context, id string) (*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[id]
	if !ok {
		return nil, ErrRoleNotFound
	}
	return role.Clone(), nil
}

func (s *MemoryStore) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.Name == name {
			return r.Clone(), nil
		}
	}
	return nil, ErrRoleNotFound
}

func (s *MemoryStore) GetRolesByName(ctx context.Context, names []string) ([]*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byName := make(map[string]*Role, len(s.roles))
	for _, r := range s.roles {
		byName[r.Name] = r
	}
	var out []*Role
	for _, name := range names {
		if r, ok := byName[name]; ok {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) GetRolesForSubject(ctx context.Context, subjectID string) ([]*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Role
	for roleID := range s.assignments[subjectID] {
		if r, ok := s.roles[roleID]; ok {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) ListRoles(ctx context.Context) ([]*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *MemoryStore) CreateRole(ctx context.Context, role *Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[role.ID]; ok {
		return ErrRoleAlreadyExists
	}
	for _, r := range s.roles {
		if r.Name == role.Name {
			return ErrRoleAlreadyExists
		}
	}
	s.roles[role.ID] = role.Clone()
	return nil
}

func (s *MemoryStore) UpdateRole(ctx context.Context, role *Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[role.ID]; !ok {
		return ErrRoleNotFound
	}
	s.roles[role.ID] = role.Clone()
	return nil
}

func (s *MemoryStore) DeleteRole(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[id]; !ok {
		return ErrRoleNotFound
	}
	delete(s.roles, id)
	for _, roleSet := range s.assignments {
		delete(roleSet, id)
	}
	return nil
}

func (s *MemoryStore) ReplacePermissions(ctx context.Context, roleID string, perms []Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[roleID]
	if !ok {
		return ErrRoleNotFound
	}
	next := role.Clone()
	next.Permissions = make([]Permission, len(perms))
	copy(next.Permissions, perms)
	s.roles[roleID] = next
	return nil
}

func (s *MemoryStore) AssignRole(ctx context.Context, subjectID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID]; !ok {
		return ErrRoleNotFound
	}
	if s.assignments[subjectID] == nil {
		s.assignments[subjectID] = make(map[string]bool)
	}
	s.assignments[subjectID][roleID] = true
	return nil
}

func (s *MemoryStore) RevokeRole(ctx context.Context, subjectID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assignments[subjectID], roleID)
	return nil
}
