package org

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrOrgNotFound      = errors.New("organization not found")
	ErrOrgAlreadyExists = errors.New("organization already exists")
	ErrDefaultOrg       = errors.New("the default organization cannot be deleted")
	ErrInvalidSlug      = errors.New("invalid organization slug")
	ErrTenantMismatch   = errors.New("caller may not operate on another organization")
)

// DefaultOrgID is the well-known default organization seeded by the
// initial schema migration. It always exists and can never be deleted.
const DefaultOrgID = "10000000-0000-0000-0000-000000000000"

// DefaultOrgSlug is the default organization's slug.
const DefaultOrgSlug = "default"

// Organization is the unit of data isolation. Every resource owned by a
// non-super-admin caller carries an organization id equal to the caller's
// own, enforced at every read and write boundary.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
