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

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	storeredis "github.com/nodewarden/nodewarden/internal/store/redis"
)

func newTestDenylist(t *testing.T) (*storeredis.Denylist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return storeredis.NewDenylistWithClient(client), mr
}

func TestDenylist_RevokeAndCheck(t *testing.T) {
	denylist, _ := newTestDenylist(t)
	ctx := context.Background()

	revoked, err := denylist.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked {
		t.Error("unknown jti should not be revoked")
	}

	if err := denylist.Revoke(ctx, "jti-1", time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	revoked, err = denylist.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !revoked {
		t.Error("revoked jti should be reported as revoked")
	}

	// Other jtis are unaffected.
	revoked, err = denylist.IsRevoked(ctx, "jti-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked {
		t.Error("unrelated jti must not be revoked")
	}
}

func TestDenylist_EntryExpiresWithToken(t *testing.T) {
	denylist, mr := newTestDenylist(t)
	ctx := context.Background()

	if err := denylist.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Past the token's natural expiry the entry is garbage-collected.
	mr.FastForward(2 * time.Minute)

	revoked, err := denylist.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked {
		t.Error("denylist entry should expire with the token")
	}
}

func TestDenylist_BackendDownReturnsError(t *testing.T) {
	denylist, mr := newTestDenylist(t)
	ctx := context.Background()

	mr.Close()

	if _, err := denylist.IsRevoked(ctx, "jti-1"); err == nil {
		t.Error("expected an error when the backend is unreachable")
	}
	if err := denylist.Revoke(ctx, "jti-1", time.Minute); err == nil {
		t.Error("expected an error when the backend is unreachable")
	}
}
