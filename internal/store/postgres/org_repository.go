package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nodewarden/nodewarden/internal/org"
)

// OrgRepository implements org.Repository on PostgreSQL.
type OrgRepository struct {
	db *DB
}

// NewOrgRepository creates a new organization repository.
func NewOrgRepository(db *DB) *OrgRepository {
	return &OrgRepository{db: db}
}

func (r *OrgRepository) Create(ctx context.Context, o *org.Organization) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO organizations (id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, o.ID, o.Name, o.Slug, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (r *OrgRepository) GetByID(ctx context.Context, id string) (*org.Organization, error) {
	return r.get(ctx, `SELECT id, name, slug, created_at, updated_at FROM organizations WHERE id = $1`, id)
}

func (r *OrgRepository) GetBySlug(ctx context.Context, slug string) (*org.Organization, error) {
	return r.get(ctx, `SELECT id, name, slug, created_at, updated_at FROM organizations WHERE slug = $1`, slug)
}

func (r *OrgRepository) get(ctx context.Context, query, arg string) (*org.Organization, error) {
	var o org.Organization
	err := r.db.pool.QueryRow(ctx, query, arg).Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, org.ErrOrgNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &o, nil
}

func (r *OrgRepository) List(ctx context.Context, limit, offset int) ([]*org.Organization, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, slug, created_at, updated_at
		FROM organizations
		ORDER BY slug
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*org.Organization
	for rows.Next() {
		var o org.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, &o)
	}
	return orgs, rows.Err()
}

func (r *OrgRepository) Update(ctx context.Context, o *org.Organization) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE organizations SET name = $2, slug = $3, updated_at = $4 WHERE id = $1
	`, o.ID, o.Name, o.Slug, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if result.RowsAffected() == 0 {
		return org.ErrOrgNotFound
	}
	return nil
}

func (r *OrgRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if result.RowsAffected() == 0 {
		return org.ErrOrgNotFound
	}
	return nil
}
