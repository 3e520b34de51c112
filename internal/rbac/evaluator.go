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

package rbac

import (
	"context"
	"fmt"
)

// CheckRequest describes a single authorization question: may these roles
// perform Action on Resource, optionally narrowed to a specific resource
// instance, environment, or organization.
type CheckRequest struct {
	RoleIDs     []string
	Resource    Resource
	Action      Action
	ResourceID  string // optional: the specific instance being touched
	Environment string // optional: the environment the request targets
	OrgID       string // caller's organization, for organization-scoped grants
}

// Decision is the evaluator's answer. Reason is set only on deny and
// describes the shape of what is missing, never the caller's role names.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Check evaluates a request against the union of permissions across the
// effective role set. Evaluation is a pure OR: there is no explicit-deny
// permission type, so absence of an allow is the only deny mechanism.
//
// A store failure is returned as an error, never as an allow: a missing
// permission set must not be read as an unrestricted one.
//
// The super-admin bypass is NOT applied here. Callers check IsSuperAdmin
// first, because the bypass also covers tenant scoping.
func (s *Service) Check(ctx context.Context, req CheckRequest) (Decision, error) {
	if !req.Resource.Valid() {
		return Decision{}, ErrInvalidResource
	}
	if !req.Action.Valid() {
		return Decision{}, ErrInvalidAction
	}

	perms, err := s.EffectivePermissions(ctx, req.RoleIDs)
	if err != nil {
		return Decision{}, err
	}

	for _, p := range perms {
		if permissionMatches(p, req) {
			return Decision{Allowed: true}, nil
		}
	}
	return Decision{
		Allowed: false,
		Reason:  fmt.Sprintf("missing %s permission on %s", req.Action, req.Resource),
	}, nil
}

// permissionMatches reports whether a single permission satisfies the
// request. The free-form Constraint field is carried but not evaluated;
// it is treated as always satisfied.
func permissionMatches(p Permission, req CheckRequest) bool {
	if p.Resource != req.Resource {
		return false
	}
	// Admin implies every action on the resource within the same scope.
	if p.Action != req.Action && p.Action != ActionAdmin {
		return false
	}
	switch p.Scope {
	case ScopeAll:
		return true
	case ScopeEnvironment:
		return req.Environment != "" && req.Environment == p.ScopeValue
	case ScopeResource:
		return req.ResourceID != "" && req.ResourceID == p.ScopeValue
	case ScopeOrganization:
		// The tenant guard normally settles the organization before the
		// evaluator runs; the match is still enforced here so a grant
		// scoped to one org can never leak into another.
		return req.OrgID != "" && req.OrgID == p.ScopeValue
	}
	return false
}
