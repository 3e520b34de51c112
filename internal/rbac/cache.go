package rbac

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore is an LRU read-through decorator over a Store. Role reads by
// id and by name are cached; subject assignments are always read through,
// so role changes take effect at the next token refresh as required.
// Any mutation purges the whole cache rather than invalidating entries
// one by one, since a parent change can affect arbitrary descendants.
type CachedStore struct {
	inner  Store
	byID   *lru.Cache[string, *Role]
	byName *lru.Cache[string, string] // name -> id
}

// NewCachedStore wraps a store with an LRU cache of the given size.
func NewCachedStore(inner Store, size int) (*CachedStore, error) {
	byID, err := lru.New[string, *Role](size)
	if err != nil {
		return nil, err
	}
	byName, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{inner: inner, byID: byID, byName: byName}, nil
}

func (c *CachedStore) GetRole(ctx context.Context, id string) (*Role, error) {
	if role, ok := c.byID.Get(id); ok {
		return role.Clone(), nil
	}
	role, err := c.inner.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	c.byID.Add(role.ID, role.Clone())
	c.byName.Add(role.Name, role.ID)
	return role, nil
}

func (c *CachedStore) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	if id, ok := c.byName.Get(name); ok {
		if role, ok := c.byID.Get(id); ok {
			return role.Clone(), nil
		}
	}
	role, err := c.inner.GetRoleByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.byID.Add(role.ID, role.Clone())
	c.byName.Add(role.Name, role.ID)
	return role, nil
}

func (c *CachedStore) GetRolesByName(ctx context.Context, names []string) ([]*Role, error) {
	out := make([]*Role, 0, len(names))
	for _, name := range names {
		role, err := c.GetRoleByName(ctx, name)
		if errors.Is(err, ErrRoleNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, nil
}

func (c *CachedStore) GetRolesForSubject(ctx context.Context, subjectID string) ([]*Role, error) {
	return c.inner.GetRolesForSubject(ctx, subjectID)
}

func (c *CachedStore) ListRoles(ctx context.Context) ([]*Role, error) {
	return c.inner.ListRoles(ctx)
}

func (c *CachedStore) CreateRole(ctx context.Context, role *Role) error {
	if err := c.inner.CreateRole(ctx, role); err != nil {
		return err
	}
	c.purge()
	return nil
}

func (c *CachedStore) UpdateRole(ctx context.Context, role *Role) error {
	if err := c.inner.UpdateRole(ctx, role); err != nil {
		return err
	}
	c.purge()
	return nil
}

func (c *CachedStore) DeleteRole(ctx context.Context, id string) error {
	if err := c.inner.DeleteRole(ctx, id); err != nil {
		return err
	}
	c.purge()
	return nil
}

func (c *CachedStore) ReplacePermissions(ctx context.Context, roleID string, perms []Permission) error {
	if err := c.inner.ReplacePermissions(ctx, roleID, perms); err != nil {
		return err
	}
	c.purge()
	return nil
}

func (c *CachedStore) AssignRole(ctx context.Context, subjectID, roleID string) error {
	return c.inner.AssignRole(ctx, subjectID, roleID)
}

func (c *CachedStore) RevokeRole(ctx context.Context, subjectID, roleID string) error {
	return c.inner.RevokeRole(ctx, subjectID, roleID)
}

func (c *CachedStore) purge() {
	c.byID.Purge()
	c.byName.Purge()
}
