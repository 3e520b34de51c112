package org

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/nodewarden/nodewarden/internal/audit"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Service provides organization management business logic.
type Service struct {
	repo        Repository
	auditLogger audit.Logger
}

// NewService creates a new organization service.
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{repo: repo, auditLogger: auditLogger}
}

// CreateOrganization creates a new organization with a unique slug.
func (s *Service) CreateOrganization(ctx context.Context, name, slug string) (*Organization, error) {
	if name == "" {
		return nil, fmt.Errorf("organization name is required")
	}
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}

	if _, err := s.repo.GetBySlug(ctx, slug); err == nil {
		return nil, ErrOrgAlreadyExists
	} else if !errors.Is(err, ErrOrgNotFound) {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}

	now := time.Now()
	o := &Organization{
		ID:        uuid.NewString(),
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeOrgCreated,
		OrgID:    o.ID,
		Resource: slug,
	})
	return o, nil
}

// GetOrganization retrieves an organization by id.
func (s *Service) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	return s.repo.GetByID(ctx, id)
}

// ListOrganizations lists organizations with pagination.
func (s *Service) ListOrganizations(ctx context.Context, limit, offset int) ([]*Organization, error) {
	return s.repo.List(ctx, limit, offset)
}

// DeleteOrganization deletes an organization. The default organization is
// undeletable.
func (s *Service) DeleteOrganization(ctx context.Context, id string) error {
	if id == DefaultOrgID {
		return ErrDefaultOrg
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.auditLogger.Log(ctx, audit.Event{Type: audit.TypeOrgDeleted, OrgID: id})
	return nil
}
