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

package org

import (
	"github.com/nodewarden/nodewarden/internal/identity"
)

// ResolveTargetOrg decides which organization a single-entity operation may
// touch. A non-super-admin caller only ever operates on their own
// organization: an explicit requested id that differs is rejected, never
// silently coerced. A super-admin may name any organization; with no
// explicit id the caller's own organization is used.
func ResolveTargetOrg(caller *identity.Identity, requestedOrgID string) (string, error) {
	if caller.Anonymous() {
		return "", ErrTenantMismatch
	}
	if caller.SuperAdmin {
		if requestedOrgID != "" {
			return requestedOrgID, nil
		}
		return caller.OrgID, nil
	}
	if requestedOrgID != "" && requestedOrgID != caller.OrgID {
		return "", ErrTenantMismatch
	}
	return caller.OrgID, nil
}

// ResolveListFilter decides the organization filter for list queries. The
// asymmetry with ResolveTargetOrg is deliberate and relied upon by every
// consumer handler: for a super-admin an absent id means "no filter" (all
// organizations), while for single-entity lookups it means the caller's
// own. The empty return value means unfiltered.
func ResolveListFilter(caller *identity.Identity, requestedOrgID string) (string, error) {
	if caller.Anonymous() {
		return "", ErrTenantMismatch
	}
	if caller.SuperAdmin {
		return requestedOrgID, nil
	}
	if requestedOrgID != "" && requestedOrgID != caller.OrgID {
		return "", ErrTenantMismatch
	}
	return caller.OrgID, nil
}
