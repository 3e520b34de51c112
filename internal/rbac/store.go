package rbac

import "context"

// Store defines the persistence contract the engine evaluates against.
// Any backing store (relational, in-memory, cached) can implement it.
//
// Reads may be called concurrently. ReplacePermissions must be atomic: a
// concurrent reader observes either the old set or the new set, never a
// mixture.
type Store interface {
	// GetRole retrieves a role by id. Returns ErrRoleNotFound if absent.
	GetRole(ctx context.Context, id string) (*Role, error)

	// GetRoleByName retrieves a role by its unique name.
	GetRoleByName(ctx context.Context, name string) (*Role, error)

	// GetRolesByName resolves role names to roles. Names that no longer
	// exist are skipped, not errors: tokens may carry stale role names.
	GetRolesByName(ctx context.Context, names []string) ([]*Role, error)

	// GetRolesForSubject returns the roles currently assigned to a subject.
	// Used by the refresh flow, which must never trust token-embedded roles.
	GetRolesForSubject(ctx context.Context, subjectID string) ([]*Role, error)

	// ListRoles returns all roles.
	ListRoles(ctx context.Context) ([]*Role, error)

	// CreateRole persists a new role.
	CreateRole(ctx context.Context, role *Role) error

	// UpdateRole persists changes to an existing role's metadata and parent.
	UpdateRole(ctx context.Context, role *Role) error

	// DeleteRole removes a role and its permissions.
	DeleteRole(ctx context.Context, id string) error

	// ReplacePermissions atomically swaps a role's entire permission set.
	ReplacePermissions(ctx context.Context, roleID string, perms []Permission) error

	// AssignRole grants a role to a subject.
	AssignRole(ctx context.Context, subjectID, roleID string) error

	// RevokeRole removes a role grant from a subject.
	RevokeRole(ctx context.Context, subjectID, roleID string) error
}
