package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nodewarden/nodewarden/internal/rbac"
)

// RoleRepository implements rbac.Store on PostgreSQL.
//
// ReplacePermissions takes a row lock on the role, serializing writers per
// role; readers run under snapshot isolation and observe either the old
// permission set or the new one, never a mixture.
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository.
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

const roleColumns = `id, name, display_name, description, is_system, parent_id, created_at, updated_at`

func scanRole(row pgx.Row) (*rbac.Role, error) {
	var role rbac.Role
	var parentID sql.NullString
	err := row.Scan(&role.ID, &role.Name, &role.DisplayName, &role.Description,
		&role.IsSystem, &parentID, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rbac.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to scan role: %w", err)
	}
	if parentID.Valid {
		role.ParentID = &parentID.String
	}
	return &role, nil
}

func (r *RoleRepository) loadPermissions(ctx context.Context, roles []*rbac.Role) error {
	if len(roles) == 0 {
		return nil
	}
	ids := make([]string, len(roles))
	byID := make(map[string]*rbac.Role, len(roles))
	for i, role := range roles {
		ids[i] = role.ID
		byID[role.ID] = role
	}

	rows, err := r.db.pool.Query(ctx, `
		SELECT id, role_id, resource, action, scope, scope_value, constraint_expr
		FROM permissions
		WHERE role_id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p rbac.Permission
		var roleID string
		if err := rows.Scan(&p.ID, &roleID, &p.Resource, &p.Action, &p.Scope, &p.ScopeValue, &p.Constraint); err != nil {
			return fmt.Errorf("failed to scan permission: %w", err)
		}
		if role, ok := byID[roleID]; ok {
			role.Permissions = append(role.Permissions, p)
		}
	}
	return rows.Err()
}

// GetRole retrieves a role and its permissions by id.
func (r *RoleRepository) GetRole(ctx context.Context, id string) (*rbac.Role, error) {
	row := r.db.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadPermissions(ctx, []*rbac.Role{role}); err != nil {
		return nil, err
	}
	return role, nil
}

// GetRoleByName retrieves a role and its permissions by unique name.
func (r *RoleRepository) GetRoleByName(ctx context.Context, name string) (*rbac.Role, error) {
	row := r.db.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name)
	role, err := scanRole(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadPermissions(ctx, []*rbac.Role{role}); err != nil {
		return nil, err
	}
	return role, nil
}

// GetRolesByName resolves role names to roles, skipping names that no
// longer exist.
func (r *RoleRepository) GetRolesByName(ctx context.Context, names []string) ([]*rbac.Role, error) {
	rows, err := r.db.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles by name: %w", err)
	}
	roles, err := collectRoles(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadPermissions(ctx, roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRolesForSubject returns the roles currently assigned to a subject.
func (r *RoleRepository) GetRolesForSubject(ctx context.Context, subjectID string) ([]*rbac.Role, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT r.id, r.name, r.display_name, r.description, r.is_system, r.parent_id, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subject roles: %w", err)
	}
	roles, err := collectRoles(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadPermissions(ctx, roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// ListRoles returns all roles with their permissions.
func (r *RoleRepository) ListRoles(ctx context.Context) ([]*rbac.Role, error) {
	rows, err := r.db.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	roles, err := collectRoles(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadPermissions(ctx, roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func collectRoles(rows pgx.Rows) ([]*rbac.Role, error) {
	defer rows.Close()
	var roles []*rbac.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// CreateRole persists a role and its initial permission set in one
// transaction.
func (r *RoleRepository) CreateRole(ctx context.Context, role *rbac.Role) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO roles (id, name, display_name, description, is_system, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, role.ID, role.Name, role.DisplayName, role.Description, role.IsSystem, role.ParentID, role.CreatedAt, role.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	if err := insertPermissions(ctx, tx, role.ID, role.Permissions); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdateRole persists role metadata and parent changes.
func (r *RoleRepository) UpdateRole(ctx context.Context, role *rbac.Role) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE roles
		SET display_name = $2, description = $3, parent_id = $4, updated_at = $5
		WHERE id = $1
	`, role.ID, role.DisplayName, role.Description, role.ParentID, role.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return rbac.ErrRoleNotFound
	}
	return nil
}

// DeleteRole removes a role; permissions and assignments cascade.
func (r *RoleRepository) DeleteRole(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return rbac.ErrRoleNotFound
	}
	return nil
}

// ReplacePermissions atomically swaps a role's permission set.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, perms []rbac.Permission) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the role row so concurrent replaces serialize.
	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM roles WHERE id = $1 FOR UPDATE`, roleID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.ErrRoleNotFound
		}
		return fmt.Errorf("failed to lock role: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM permissions WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to clear permissions: %w", err)
	}
	if err := insertPermissions(ctx, tx, roleID, perms); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE roles SET updated_at = now() WHERE id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to touch role: %w", err)
	}
	return tx.Commit(ctx)
}

func insertPermissions(ctx context.Context, tx pgx.Tx, roleID string, perms []rbac.Permission) error {
	for _, p := range perms {
		_, err := tx.Exec(ctx, `
			INSERT INTO permissions (id, role_id, resource, action, scope, scope_value, constraint_expr)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, p.ID, roleID, p.Resource, p.Action, p.Scope, p.ScopeValue, p.Constraint)
		if err != nil {
			return fmt.Errorf("failed to insert permission: %w", err)
		}
	}
	return nil
}

// AssignRole grants a role to a subject. Granting twice is a no-op.
func (r *RoleRepository) AssignRole(ctx context.Context, subjectID, roleID string) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, subjectID, roleID)
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// RevokeRole removes a role grant from a subject.
func (r *RoleRepository) RevokeRole(ctx context.Context, subjectID, roleID string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2
	`, subjectID, roleID)
	if err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	return nil
}
