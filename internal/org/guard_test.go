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

package org_test

import (
	"errors"
	"testing"

	"github.com/nodewarden/nodewarden/internal/identity"
	"github.com/nodewarden/nodewarden/internal/org"
)

func member() *identity.Identity {
	return &identity.Identity{SubjectID: "user-1", OrgID: "org-a"}
}

func superAdmin() *identity.Identity {
	return &identity.Identity{SubjectID: "user-root", OrgID: "org-a", SuperAdmin: true}
}

func TestGuard_ResolveTargetOrg(t *testing.T) {
	tests := []struct {
		name      string
		caller    *identity.Identity
		requested string
		want      string
		wantErr   bool
	}{
		{"member with no explicit org gets their own", member(), "", "org-a", false},
		{"member naming their own org is allowed", member(), "org-a", "org-a", false},
		{"member naming another org is rejected", member(), "org-b", "", true},
		{"super admin with no explicit org gets their own", superAdmin(), "", "org-a", false},
		{"super admin may name any org", superAdmin(), "org-b", "org-b", false},
		{"anonymous caller is rejected", &identity.Identity{}, "", "", true},
		{"nil caller is rejected", nil, "org-a", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := org.ResolveTargetOrg(tt.caller, tt.requested)
			if tt.wantErr {
				if !errors.Is(err, org.ErrTenantMismatch) {
					t.Errorf("expected ErrTenantMismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// The list filter is deliberately asymmetric with the single-entity
// resolver: an absent org id means "all organizations" for a super-admin
// and "my organization" for everyone else.
func TestGuard_ResolveListFilter(t *testing.T) {
	tests := []struct {
		name      string
		caller    *identity.Identity
		requested string
		want      string
		wantErr   bool
	}{
		{"member with no explicit org is filtered to their own", member(), "", "org-a", false},
		{"member naming their own org is allowed", member(), "org-a", "org-a", false},
		{"member naming another org is rejected", member(), "org-b", "", true},
		{"super admin with no explicit org sees everything", superAdmin(), "", "", false},
		{"super admin may filter to any org", superAdmin(), "org-b", "org-b", false},
		{"anonymous caller is rejected", &identity.Identity{}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := org.ResolveListFilter(tt.caller, tt.requested)
			if tt.wantErr {
				if !errors.Is(err, org.ErrTenantMismatch) {
					t.Errorf("expected ErrTenantMismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
