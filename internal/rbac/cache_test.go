// Copyright 2026 The Nodewarden Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rbac_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/nodewarden/nodewarden/internal/rbac"
)

// countingStore wraps a Store and counts GetRole hits to observe caching.
type countingStore struct {
	rbac.Store
	getRoleCalls atomic.Int64
}

func (c *countingStore) GetRole(ctx context.Context, id string) (*rbac.Role, error) {
	c.getRoleCalls.Add(1)
	return c.Store.GetRole(ctx, id)
}

func TestCache_ReadThrough(t *testing.T) {
	inner := &countingStore{Store: rbac.NewSeededMemoryStore()}
	cached, err := rbac.NewCachedStore(inner, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := cached.GetRole(ctx, rbac.RoleIDViewer); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := inner.getRoleCalls.Load(); got != 1 {
		t.Errorf("expected 1 backing store hit, got %d", got)
	}

	if _, err := cached.GetRole(ctx, "role-missing"); !errors.Is(err, rbac.ErrRoleNotFound) {
		t.Errorf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestCache_MutationsInvalidate(t *testing.T) {
	inner := rbac.NewMemoryStore()
	cached, err := rbac.NewCachedStore(inner, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc := rbac.NewService(cached)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, &rbac.Role{Name: "cached-role"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Warm the cache, then mutate through the same path.
	if _, err := cached.GetRole(ctx, role.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = svc.ReplacePermissions(ctx, role.ID, []rbac.Permission{
		{Resource: rbac.ResourceNodes, Action: rbac.ActionRead, Scope: rbac.ScopeAll},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := cached.GetRole(ctx, role.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Permissions) != 1 {
		t.Errorf("cache served a stale role after mutation: %+v", got)
	}

	if err := svc.DeleteRole(ctx, role.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cached.GetRole(ctx, role.ID); !errors.Is(err, rbac.ErrRoleNotFound) {
		t.Errorf("expected ErrRoleNotFound after deletion, got %v", err)
	}
}
