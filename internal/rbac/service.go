package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service provides role resolution and the guarded mutation path over a Store.
type Service struct {
	store Store
}

// NewService creates a new RBAC service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// RoleIDsByName translates a token's human-readable role names into stable
// ids. Names that no longer resolve (renamed or deleted roles) are dropped
// silently: an issued token must not become poisonous because an admin
// renamed a role.
func (s *Service) RoleIDsByName(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	roles, err := s.store.GetRolesByName(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve role names: %w", err)
	}
	ids := make([]string, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// RoleNamesForSubject returns the names of the roles currently assigned to
// a subject. The refresh flow uses this instead of token-embedded roles.
func (s *Service) RoleNamesForSubject(ctx context.Context, subjectID string) ([]string, error) {
	roles, err := s.store.GetRolesForSubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subject roles: %w", err)
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

// ResolveEffectiveRoles expands each role through its full parent chain.
// Inheritance is transitive: a grandchild inherits the grandparent's
// permissions. A visited set bounds the walk, so a cycle that slipped past
// the write-time check cannot loop forever.
func (s *Service) ResolveEffectiveRoles(ctx context.Context, roleIDs []string) ([]*Role, error) {
	visited := make(map[string]bool, len(roleIDs))
	var effective []*Role

	for _, id := range roleIDs {
		cur := id
		for cur != "" && !visited[cur] {
			role, err := s.store.GetRole(ctx, cur)
			if errors.Is(err, ErrRoleNotFound) {
				// Dangling id or parent reference. Skip the remainder of
				// this chain; grants from it simply do not apply.
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to resolve role %s: %w", cur, err)
			}
			visited[cur] = true
			effective = append(effective, role)
			if role.ParentID == nil {
				break
			}
			cur = *role.ParentID
		}
	}
	return effective, nil
}

// EffectivePermissions returns the union of permissions across the
// effective role set, after inheritance expansion.
func (s *Service) EffectivePermissions(ctx context.Context, roleIDs []string) ([]Permission, error) {
	roles, err := s.ResolveEffectiveRoles(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	var perms []Permission
	for _, r := range roles {
		perms = append(perms, r.Permissions...)
	}
	return perms, nil
}

// IsSuperAdmin reports whether the effective role set contains the
// distinguished super-admin system role. Callers must test this before
// Check: the bypass also covers tenant scoping, which Check cannot express.
func (s *Service) IsSuperAdmin(ctx context.Context, roleIDs []string) (bool, error) {
	roles, err := s.ResolveEffectiveRoles(ctx, roleIDs)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r.Name == RoleSuperAdmin {
			return true, nil
		}
	}
	return false, nil
}

// GetRole retrieves a single role by id.
func (s *Service) GetRole(ctx context.Context, id string) (*Role, error) {
	return s.store.GetRole(ctx, id)
}

// ListRoles returns the full role catalog.
func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	return s.store.ListRoles(ctx)
}

// CreateRole creates a custom role. System roles exist only through the
// seed migration; requesting one here is rejected.
func (s *Service) CreateRole(ctx context.Context, role *Role) (*Role, error) {
	if role.Name == "" {
		return nil, fmt.Errorf("role name is required")
	}
	if role.IsSystem {
		return nil, ErrSystemRole
	}
	if _, err := s.store.GetRoleByName(ctx, role.Name); err == nil {
		return nil, ErrRoleAlreadyExists
	} else if !errors.Is(err, ErrRoleNotFound) {
		return nil, fmt.Errorf("failed to check role name: %w", err)
	}
	for i := range role.Permissions {
		if err := role.Permissions[i].Validate(); err != nil {
			return nil, err
		}
		if role.Permissions[i].ID == "" {
			role.Permissions[i].ID = uuid.NewString()
		}
	}
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	if err := s.validateParent(ctx, role.ID, role.ParentID); err != nil {
		return nil, err
	}

	now := time.Now()
	role.CreatedAt = now
	role.UpdatedAt = now
	if err := s.store.CreateRole(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return role, nil
}

// UpdateRole updates a custom role's metadata and parent assignment.
func (s *Service) UpdateRole(ctx context.Context, role *Role) (*Role, error) {
	existing, err := s.store.GetRole(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	if existing.IsSystem {
		return nil, ErrSystemRole
	}
	if err := s.validateParent(ctx, role.ID, role.ParentID); err != nil {
		return nil, err
	}

	existing.DisplayName = role.DisplayName
	existing.Description = role.Description
	existing.ParentID = role.ParentID
	existing.UpdatedAt = time.Now()
	if err := s.store.UpdateRole(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return existing, nil
}

// DeleteRole deletes a custom role. System roles are undeletable.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	existing, err := s.store.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return ErrSystemRole
	}
	if err := s.store.DeleteRole(ctx, id); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return nil
}

// ReplacePermissions atomically swaps a custom role's permission set.
// Either the entire new set takes effect or none of it does.
func (s *Service) ReplacePermissions(ctx context.Context, roleID string, perms []Permission) error {
	existing, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return ErrSystemRole
	}
	for i := range perms {
		if err := perms[i].Validate(); err != nil {
			return err
		}
		if perms[i].ID == "" {
			perms[i].ID = uuid.NewString()
		}
	}
	if err := s.store.ReplacePermissions(ctx, roleID, perms); err != nil {
		return fmt.Errorf("failed to replace permissions: %w", err)
	}
	return nil
}

// AssignRole grants a role to a subject.
func (s *Service) AssignRole(ctx context.Context, subjectID, roleID string) error {
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	return s.store.AssignRole(ctx, subjectID, roleID)
}

// RevokeRole removes a role grant from a subject.
func (s *Service) RevokeRole(ctx context.Context, subjectID, roleID string) error {
	return s.store.RevokeRole(ctx, subjectID, roleID)
}

// validateParent rejects unknown parents and parent chains that would loop
// back to the role being written. Cycles are enforced here, at assignment
// time, so request-time resolution never has to repair one.
func (s *Service) validateParent(ctx context.Context, roleID string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	seen := map[string]bool{roleID: true}
	cur := *parentID
	for cur != "" {
		if seen[cur] {
			return ErrRoleCycle
		}
		seen[cur] = true
		parent, err := s.store.GetRole(ctx, cur)
		if err != nil {
			return err
		}
		if parent.ParentID == nil {
			return nil
		}
		cur = *parent.ParentID
	}
	return nil
}
