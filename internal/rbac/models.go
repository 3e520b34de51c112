package rbac

import (
	"encoding/json"
	"errors"
	"time"
)

// Domain errors
var (
	ErrRoleNotFound      = errors.New("role not found")
	ErrRoleAlreadyExists = errors.New("role already exists")
	ErrSystemRole        = errors.New("system roles cannot be modified or deleted")
	ErrRoleCycle         = errors.New("role parent chain would form a cycle")
	ErrInvalidResource   = errors.New("invalid resource type")
	ErrInvalidAction     = errors.New("invalid action")
	ErrInvalidScope      = errors.New("invalid permission scope")
)

// Resource identifies a protected resource type. The enumeration is closed:
// the evaluator rejects anything outside it.
type Resource string

const (
	ResourceNodes           Resource = "nodes"
	ResourceGroups          Resource = "groups"
	ResourceReports         Resource = "reports"
	ResourceFacts           Resource = "facts"
	ResourceUsers           Resource = "users"
	ResourceRoles           Resource = "roles"
	ResourceSettings        Resource = "settings"
	ResourceAuditLogs       Resource = "audit_logs"
	ResourceFacterTemplates Resource = "facter_templates"
	ResourceAPIKeys         Resource = "api_keys"
)

// Valid reports whether r is a member of the closed resource enumeration.
func (r Resource) Valid() bool {
	switch r {
	case ResourceNodes, ResourceGroups, ResourceReports, ResourceFacts,
		ResourceUsers, ResourceRoles, ResourceSettings, ResourceAuditLogs,
		ResourceFacterTemplates, ResourceAPIKeys:
		return true
	}
	return false
}

// Action identifies an operation on a resource type.
type Action string

const (
	ActionRead     Action = "read"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionAdmin    Action = "admin"
	ActionExport   Action = "export"
	ActionClassify Action = "classify"
	ActionGenerate Action = "generate"
)

// Valid reports whether a is a member of the closed action enumeration.
func (a Action) Valid() bool {
	switch a {
	case ActionRead, ActionCreate, ActionUpdate, ActionDelete,
		ActionAdmin, ActionExport, ActionClassify, ActionGenerate:
		return true
	}
	return false
}

// ScopeKind defines the dimension a permission is constrained to.
type ScopeKind string

const (
	// ScopeAll grants the permission everywhere.
	ScopeAll ScopeKind = "all"

	// ScopeEnvironment bounds the permission to one named environment.
	ScopeEnvironment ScopeKind = "environment"

	// ScopeResource bounds the permission to one specific resource instance.
	ScopeResource ScopeKind = "resource"

	// ScopeOrganization bounds the permission to one organization.
	ScopeOrganization ScopeKind = "organization"
)

// Valid reports whether k is a member of the closed scope enumeration.
func (k ScopeKind) Valid() bool {
	switch k {
	case ScopeAll, ScopeEnvironment, ScopeResource, ScopeOrganization:
		return true
	}
	return false
}

// Permission grants a single (resource, action) pair within a scope.
type Permission struct {
	ID         string          `json:"id"`
	Resource   Resource        `json:"resource"`
	Action     Action          `json:"action"`
	Scope      ScopeKind       `json:"scope"`
	ScopeValue string          `json:"scope_value,omitempty"` // environment name, resource id or org id depending on Scope
	Constraint json.RawMessage `json:"constraint,omitempty"`  // opaque predicate, stored but never evaluated
}

// Validate checks the permission's enumerated fields and scope shape.
func (p *Permission) Validate() error {
	if !p.Resource.Valid() {
		return ErrInvalidResource
	}
	if !p.Action.Valid() {
		return ErrInvalidAction
	}
	if !p.Scope.Valid() {
		return ErrInvalidScope
	}
	if p.Scope != ScopeAll && p.ScopeValue == "" {
		return ErrInvalidScope
	}
	if p.Scope == ScopeAll && p.ScopeValue != "" {
		return ErrInvalidScope
	}
	return nil
}

// Role is a named bundle of permissions, optionally inheriting from a
// single parent role. System roles are seeded at install time and are
// immutable through the API.
type Role struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	DisplayName string       `json:"display_name"`
	Description string       `json:"description,omitempty"`
	IsSystem    bool         `json:"is_system"`
	ParentID    *string      `json:"parent_id,omitempty"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Clone returns a deep copy so stores can hand out roles without aliasing
// their internal state.
func (r *Role) Clone() *Role {
	out := *r
	if r.ParentID != nil {
		pid := *r.ParentID
		out.ParentID = &pid
	}
	out.Permissions = make([]Permission, len(r.Permissions))
	copy(out.Permissions, r.Permissions)
	for i, p := range r.Permissions {
		if p.Constraint != nil {
			out.Permissions[i].Constraint = append(json.RawMessage(nil), p.Constraint...)
		}
	}
	return &out
}
