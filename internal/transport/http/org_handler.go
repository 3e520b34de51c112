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
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nodewarden/nodewarden/internal/observability/logger"
	"github.com/nodewarden/nodewarden/internal/org"
	"github.com/nodewarden/nodewarden/internal/rbac"
)

type createOrgRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CreateOrganization handles POST /api/v1/orgs
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.requireSuperAdmin(w, r, authzRequest{
		Resource: rbac.ResourceSettings,
		Action:   rbac.ActionAdmin,
	}) {
		return
	}

	var req createOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	organization, err := h.orgService.CreateOrganization(ctx, req.Name, req.Slug)
	if err != nil {
		h.respondOrgError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, organization)
}

// ListOrganizations handles GET /api/v1/orgs
func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	if !h.requireSuperAdmin(w, r, authzRequest{
		Resource: rbac.ResourceSettings,
		Action:   rbac.ActionAdmin,
	}) {
		return
	}

	limit := parseQueryInt(r, "limit", 50)
	offset := parseQueryInt(r, "offset", 0)

	orgs, err := h.orgService.ListOrganizations(r.Context(), limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "organization listing failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
}

// GetOrganization handles GET /api/v1/orgs/{id}
func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "id")

	if _, ok := h.authorize(w, r, authzRequest{
		Resource:       rbac.ResourceSettings,
		Action:         rbac.ActionRead,
		RequestedOrgID: orgID,
	}); !ok {
		return
	}

	organization, err := h.orgService.GetOrganization(r.Context(), orgID)
	if err != nil {
		h.respondOrgError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, organization)
}

// DeleteOrganization handles DELETE /api/v1/orgs/{id}
func (h *Handler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	if !h.requireSuperAdmin(w, r, authzRequest{
		Resource: rbac.ResourceSettings,
		Action:   rbac.ActionAdmin,
	}) {
		return
	}

	if err := h.orgService.DeleteOrganization(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondOrgError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondOrgError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, org.ErrOrgNotFound):
		respondError(w, http.StatusNotFound, "organization not found")
	case errors.Is(err, org.ErrOrgAlreadyExists):
		respondError(w, http.StatusConflict, "organization already exists")
	case errors.Is(err, org.ErrDefaultOrg):
		respondError(w, http.StatusConflict, "default organization cannot be deleted")
	case errors.Is(err, org.ErrInvalidSlug):
		respondError(w, http.StatusBadRequest, "invalid slug")
	default:
		slog.ErrorContext(r.Context(), "organization operation failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseQueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
