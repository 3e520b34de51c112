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

package identity_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nodewarden/nodewarden/internal/audit"
	"github.com/nodewarden/nodewarden/internal/identity"
)

// fastHasher keeps the Argon2 cost low so the suite stays quick.
func fastHasher() *identity.PasswordHasher {
	return identity.NewPasswordHasher(8*1024, 1, 1, 16, 32)
}

func newIdentityService() *identity.Service {
	return identity.NewService(identity.NewMemoryUserRepository(), fastHasher(), audit.NewSlogLogger())
}

func TestIdentity_CreateAndAuthenticate(t *testing.T) {
	svc := newIdentityService()
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "org-a", "alice", "alice@example.com", "correct horse battery staple")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.PasswordHash == "" || strings.Contains(user.PasswordHash, "correct horse") {
		t.Error("password must be stored hashed")
	}
	if !strings.HasPrefix(user.PasswordHash, "$argon2id$") {
		t.Errorf("unexpected hash format: %q", user.PasswordHash)
	}

	got, err := svc.Authenticate(ctx, "alice", "correct horse battery staple")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated wrong user: %s", got.ID)
	}
}

func TestIdentity_AuthenticateFailuresAreUniform(t *testing.T) {
	svc := newIdentityService()
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "org-a", "alice", "alice@example.com", "hunter22hunter22"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Wrong password and unknown username yield the same error: the
	// response must not reveal which usernames exist.
	_, wrongPassword := svc.Authenticate(ctx, "alice", "not-the-password")
	_, unknownUser := svc.Authenticate(ctx, "nobody", "whatever")

	if !errors.Is(wrongPassword, identity.ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", wrongPassword)
	}
	if !errors.Is(unknownUser, identity.ErrInvalidCredentials) {
		t.Errorf("unknown user: expected ErrInvalidCredentials, got %v", unknownUser)
	}
}

func TestIdentity_DuplicateUsernameRejected(t *testing.T) {
	svc := newIdentityService()
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "org-a", "alice", "alice@example.com", "hunter22hunter22"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CreateUser(ctx, "org-b", "alice", "other@example.com", "hunter22hunter22"); !errors.Is(err, identity.ErrUserAlreadyExists) {
		t.Errorf("expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestIdentity_HasherRoundTrip(t *testing.T) {
	hasher := fastHasher()

	hash, err := hasher.Hash("s3cret-passphrase")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ok, err := hasher.Verify("s3cret-passphrase", hash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("correct password should verify")
	}

	ok, err = hasher.Verify("wrong-passphrase", hash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("wrong password must not verify")
	}

	// Same password, new hash: salts differ, hashes differ.
	second, err := hasher.Hash("s3cret-passphrase")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second == hash {
		t.Error("two hashes of the same password should not be identical")
	}

	if _, err := hasher.Verify("anything", "$not$a$valid$hash"); err == nil {
		t.Error("malformed hash should return an error")
	}
}
