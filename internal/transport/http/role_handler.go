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

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nodewarden/nodewarden/internal/audit"
	"github.com/nodewarden/nodewarden/internal/observability/logger"
	"github.com/nodewarden/nodewarden/internal/rbac"
)

type roleRequest struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Description string            `json:"description"`
	ParentID    *string           `json:"parent_id,omitempty"`
	Permissions []rbac.Permission `json:"permissions"`
}

type assignRoleRequest struct {
	RoleID string `json:"role_id"`
}

// ListRoles handles GET /api/v1/roles
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorizeList(w, r, authzRequest{
		Resource:       rbac.ResourceRoles,
		Action:         rbac.ActionRead,
		RequestedOrgID: r.URL.Query().Get("org_id"),
	}); !ok {
		return
	}

	roles, err := h.rbacService.ListRoles(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "role listing failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// GetRole handles GET /api/v1/roles/{id}
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, authzRequest{
		Resource: rbac.ResourceRoles,
		Action:   rbac.ActionRead,
	}); !ok {
		return
	}

	role, err := h.rbacService.GetRole(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondRoleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, role)
}

// CreateRole handles POST /api/v1/roles
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := h.authorize(w, r, authzRequest{
		Resource: rbac.ResourceRoles,
		Action:   rbac.ActionCreate,
	}); !ok {
		return
	}

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	role, err := h.rbacService.CreateRole(ctx, &rbac.Role{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		ParentID:    req.ParentID,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.respondRoleError(w, r, err)
		return
	}

	h.auditRoleEvent(r, audit.TypeRoleCreated, role.ID)
	respondJSON(w, http.StatusCreated, role)
}

// UpdateRole handles PUT /api/v1/roles/{id}
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := h.authorize(w, r, authzRequest{
		Resource: rbac.ResourceRoles,
		Action:   rbac.ActionUpdate,
	}); !ok {
		return
	}

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.rbacService.UpdateRole(ctx, &rbac.Role{
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		h.respondRoleError(w, r, err)
		return
	}

	h.auditRoleEvent(r, audit.TypeRoleUpdated, role.ID)
	respondJSON(w, http.StatusOK, role)
}

// DeleteRole handles DELETE /api/v1/roles/{id}
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := h.authorize(w, r, authzRequest{
		Resource: rbac.ResourceRoles,
		Action:   rbac.ActionDelete,
	}); !ok {
		return
	}

	roleID := chi.URLParam(r, "id")
	if err := h.rbacService.DeleteRole(ctx, roleID); err != nil {
		h.respondRoleError(w, r, err)
		return
	}

	h.auditRoleEvent(r, audit.TypeRoleDeleted, roleID)
	w.WriteHeader(http.StatusNoContent)
}

// ReplacePermissions handles PUT /api/v1/roles/{id}/permissions. The whole
// permission set is swapped in one shot; concurrent evaluations see either
// the old set or the new one.
func (h *Handler) ReplacePermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := h.authorize(w, r, authzRequest{
		Resource: rbac.ResourceRoles,
		Action:   rbac.ActionUpdate,
	}); !ok {
		return
	}

	var req struct {
		Permissions []rbac.Permission `json:"permissions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	roleID := chi.URLParam(r, "id")
	if err := h.rbacService.ReplacePermissions(ctx, roleID, req.Permissions); err != nil {
		h.respondRoleError(w, r, err)
		return
	}

	h.auditRoleEvent(r, audit.TypeRoleUpdated, roleID)

	role, err := h.rbacService.GetRole(ctx, roleID)
	if err != nil {
		h.respondRoleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, role)
}

// AssignRole handles POST /api/v1/users/{id}/roles
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := h.authorize(w, r, authzRequest{
		Resource: rbac.ResourceUsers,
		Action:   rbac.ActionUpdate,
	}); !ok {
		return
	}

	var req assignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RoleID == "" {
		respondError(w, http.StatusBadRequest, "role_id is required")
		return
	}

	subjectID := chi.URLParam(r, "id")
	if err := h.rbacService.AssignRole(ctx, subjectID, req.RoleID); err != nil {
		h.respondRoleError(w, r, err)
		return
	}

	h.auditRoleEvent(r, audit.TypeRoleAssigned, req.RoleID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

// RevokeRole handles DELETE /api/v1/users/{id}/roles/{roleID}
func (h *Handler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := h.authorize(w, r, authzRequest{
		Resource: rbac.ResourceUsers,
		Action:   rbac.ActionUpdate,
	}); !ok {
		return
	}

	subjectID := chi.URLParam(r, "id")
	roleID := chi.URLParam(r, "roleID")
	if err := h.rbacService.RevokeRole(ctx, subjectID, roleID); err != nil {
		h.respondRoleError(w, r, err)
		return
	}

	h.auditRoleEvent(r, audit.TypeRoleRevoked, roleID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondRoleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, rbac.ErrRoleNotFound):
		respondError(w, http.StatusNotFound, "role not found")
	case errors.Is(err, rbac.ErrRoleAlreadyExists):
		respondError(w, http.StatusConflict, "role already exists")
	case errors.Is(err, rbac.ErrSystemRole):
		respondError(w, http.StatusConflict, "system roles cannot be modified")
	case errors.Is(err, rbac.ErrRoleCycle):
		respondError(w, http.StatusBadRequest, "role inheritance cycle")
	case errors.Is(err, rbac.ErrInvalidResource),
		errors.Is(err, rbac.ErrInvalidAction),
		errors.Is(err, rbac.ErrInvalidScope):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "role operation failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) auditRoleEvent(r *http.Request, eventType string, roleID string) {
	id := IdentityFrom(r.Context())
	event := audit.Event{
		Type:      eventType,
		Resource:  string(rbac.ResourceRoles),
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
		Metadata:  map[string]any{"role_id": roleID},
	}
	if id != nil {
		event.OrgID = id.OrgID
		event.ActorID = id.SubjectID
	}
	h.auditLogger.Log(r.Context(), event)
}
