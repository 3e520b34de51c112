package org

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository for tests and the dev server
// mode, pre-seeded with the default organization.
type MemoryRepository struct {
	mu   sync.RWMutex
	orgs map[string]*Organization
}

// NewMemoryRepository creates an in-memory repository containing the
// default organization.
func NewMemoryRepository() *MemoryRepository {
	now := time.Now()
	return &MemoryRepository{
		orgs: map[string]*Organization{
			DefaultOrgID: {
				ID:        DefaultOrgID,
				Name:      "Default",
				Slug:      DefaultOrgSlug,
				CreatedAt: now,
				UpdatedAt: now,
			},
		},
	}
}

func (r *MemoryRepository) Create(ctx context.Context, o *Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orgs[o.ID]; ok {
		return ErrOrgAlreadyExists
	}
	for _, existing := range r.orgs {
		if existing.Slug == o.Slug {
			return ErrOrgAlreadyExists
		}
	}
	cp := *o
	r.orgs[o.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orgs[id]
	if !ok {
		return nil, ErrOrgNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryRepository) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orgs {
		if o.Slug == slug {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrOrgNotFound
}

func (r *MemoryRepository) List(ctx context.Context, limit, offset int) ([]*Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Organization, 0, len(r.orgs))
	for _, o := range r.orgs {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, o *Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orgs[o.ID]; !ok {
		return ErrOrgNotFound
	}
	cp := *o
	r.orgs[o.ID] = &cp
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orgs[id]; !ok {
		return ErrOrgNotFound
	}
	delete(r.orgs, id)
	return nil
}
