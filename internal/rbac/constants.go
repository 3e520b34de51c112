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

// Canonical names of the system roles seeded by the initial schema
// migration (001_initial_schema.up.sql).
const (
	// RoleSuperAdmin bypasses permission evaluation and tenant scoping
	// entirely. The bypass is decided from role membership before the
	// evaluator runs; it is never encoded as a permission row.
	RoleSuperAdmin = "super_admin"

	// RoleOrgAdmin administers a single organization.
	RoleOrgAdmin = "org_admin"

	// RoleOperator operates nodes and groups day to day.
	RoleOperator = "operator"

	// RoleViewer has read-only access to nodes, groups, reports and facts.
	RoleViewer = "viewer"
)

// System role IDs seeded during database initialization. These UUIDs must
// remain stable; changing them requires a data migration.
const (
	RoleIDSuperAdmin = "20000000-0000-0000-0000-000000000001"
	RoleIDOrgAdmin   = "20000000-0000-0000-0000-000000000002"
	RoleIDOperator   = "20000000-0000-0000-0000-000000000003"
	RoleIDViewer     = "20000000-0000-0000-0000-000000000004"
)

// SystemRoles returns fresh copies of the seeded system role catalog.
// The viewer role is the operator's parent so that the read grants are
// maintained in exactly one place; operator inherits them.
func SystemRoles() []*Role {
	viewer := &Role{
		ID:          RoleIDViewer,
		Name:        RoleViewer,
		DisplayName: "Viewer",
		Description: "Read-only access to nodes, groups, reports and facts",
		IsSystem:    true,
		Permissions: []Permission{
			{ID: "30000000-0000-0000-0000-000000000001", Resource: ResourceNodes, Action: ActionRead, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-000000000002", Resource: ResourceGroups, Action: ActionRead, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-000000000003", Resource: ResourceReports, Action: ActionRead, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-000000000004", Resource: ResourceFacts, Action: ActionRead, Scope: ScopeAll},
		},
	}

	viewerID := viewer.ID
	operator := &Role{
		ID:          RoleIDOperator,
		Name:        RoleOperator,
		DisplayName: "Operator",
		Description: "Manages nodes and groups, inherits viewer reads",
		IsSystem:    true,
		ParentID:    &viewerID,
		Permissions: []Permission{
			{ID: "30000000-0000-0000-0000-000000000011", Resource: ResourceNodes, Action: ActionCreate, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-000000000012", Resource: ResourceNodes, Action: ActionUpdate, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-000000000013", Resource: ResourceGroups, Action: ActionUpdate, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-000000000014", Resource: ResourceGroups, Action: ActionClassify, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-000000000015", Resource: ResourceReports, Action: ActionExport, Scope: ScopeAll},
		},
	}

	orgAdmin := &Role{
		ID:          RoleIDOrgAdmin,
		Name:        RoleOrgAdmin,
		DisplayName: "Organization Admin",
		Description: "Full control over every resource in the caller's organization",
		IsSystem:    true,
		Permissions: []Permission{
			{ID: "30000000-0000-0000-0000-000000000021", Resource: ResourceNodes, Action: ActionAdmin, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-000000000022", Resource: ResourceGroups, Action: ActionAdmin, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-000000000023", Resource: ResourceReports, Action: ActionAdmin, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-000000000024", Resource: ResourceFacts, Action: ActionAdmin, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-000000000025", Resource: ResourceUsers, Action: ActionAdmin, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-000000000026", Resource: ResourceRoles, Action: ActionAdmin, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-000000000027", Resource: ResourceSettings, Action: ActionAdmin, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-000000000028", Resource: ResourceAuditLogs, Action: ActionRead, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-000000000029", Resource: ResourceFacterTemplates, Action: ActionAdmin, Scope: ScopeAll},
			{ID: "30000000-0000-0000-0000-00000000002a", Resource: ResourceAPIKeys, Action: ActionAdmin, Scope: ScopeAll},
		},
	}

	// Super admin carries no permission rows: the bypass is membership-based.
	superAdmin := &Role{
		ID:          RoleIDSuperAdmin,
		Name:        RoleSuperAdmin,
		DisplayName: "Super Admin",
		Description: "Bypasses permission evaluation and organization scoping",
		IsSystem:    true,
	}

	return []*Role{viewer, operator, orgAdmin, superAdmin}
}
