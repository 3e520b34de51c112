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
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nodewarden/nodewarden/internal/rbac"
)

// Node is a managed machine in the inventory.
type Node struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	Name        string    `json:"name"`
	Environment string    `json:"environment"`
	LastSeen    time.Time `json:"last_seen"`
}

// Group is a classification bucket nodes are assigned to.
type Group struct {
	ID          string   `json:"id"`
	OrgID       string   `json:"org_id"`
	Name        string   `json:"name"`
	Environment string   `json:"environment"`
	NodeIDs     []string `json:"node_ids"`
}

// Inventory is an in-memory node and group store. It exists to give the
// authorization chain concrete resources to protect; a real deployment
// replaces it with the inventory backend.
type Inventory struct {
	mu     sync.RWMutex
	nodes  map[string]*Node
	groups map[string]*Group
}

func NewInventory() *Inventory {
	return &Inventory{
		nodes:  make(map[string]*Node),
		groups: make(map[string]*Group),
	}
}

// ListNodes handles GET /api/v1/nodes
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	environment := r.URL.Query().Get("environment")
	filter, ok := h.authorizeList(w, r, authzRequest{
		Resource:       rbac.ResourceNodes,
		Action:         rbac.ActionRead,
		RequestedOrgID: r.URL.Query().Get("org_id"),
		Environment:    environment,
	})
	if !ok {
		return
	}

	h.inventory.mu.RLock()
	defer h.inventory.mu.RUnlock()

	nodes := make([]*Node, 0, len(h.inventory.nodes))
	for _, n := range h.inventory.nodes {
		if filter != "" && n.OrgID != filter {
			continue
		}
		if environment != "" && n.Environment != environment {
			continue
		}
		nodes = append(nodes, n)
	}
	respondJSON(w, http.StatusOK, map[string]any{"nodes": nodes})
}

// GetNode handles GET /api/v1/nodes/{name}
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	h.inventory.mu.RLock()
	var found *Node
	for _, n := range h.inventory.nodes {
		if n.Name == name {
			found = n
			break
		}
	}
	h.inventory.mu.RUnlock()

	if found == nil {
		respondError(w, http.StatusNotFound, "node not found")
		return
	}

	// A foreign node is reported as absent, the same as a nonexistent
	// one, so the response does not reveal which names exist in other
	// organizations.
	id := IdentityFrom(r.Context())
	if id.Anonymous() {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !id.SuperAdmin && found.OrgID != id.OrgID {
		respondError(w, http.StatusNotFound, "node not found")
		return
	}

	if _, ok := h.authorize(w, r, authzRequest{
		Resource:       rbac.ResourceNodes,
		Action:         rbac.ActionRead,
		ResourceID:     found.ID,
		Environment:    found.Environment,
		RequestedOrgID: found.OrgID,
	}); !ok {
		return
	}

	respondJSON(w, http.StatusOK, found)
}

// CreateNode handles POST /api/v1/nodes
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Environment string `json:"environment"`
		OrgID       string `json:"org_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	orgID, ok := h.authorize(w, r, authzRequest{
		Resource:       rbac.ResourceNodes,
		Action:         rbac.ActionCreate,
		Environment:    req.Environment,
		RequestedOrgID: req.OrgID,
	})
	if !ok {
		return
	}

	node := &Node{
		ID:          uuid.NewString(),
		OrgID:       orgID,
		Name:        req.Name,
		Environment: req.Environment,
		LastSeen:    time.Now(),
	}

	h.inventory.mu.Lock()
	h.inventory.nodes[node.ID] = node
	h.inventory.mu.Unlock()

	respondJSON(w, http.StatusCreated, node)
}

// ListGroups handles GET /api/v1/groups
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.authorizeList(w, r, authzRequest{
		Resource:       rbac.ResourceGroups,
		Action:         rbac.ActionRead,
		RequestedOrgID: r.URL.Query().Get("org_id"),
	})
	if !ok {
		return
	}

	h.inventory.mu.RLock()
	defer h.inventory.mu.RUnlock()

	groups := make([]*Group, 0, len(h.inventory.groups))
	for _, g := range h.inventory.groups {
		if filter != "" && g.OrgID != filter {
			continue
		}
		groups = append(groups, g)
	}
	respondJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

// CreateGroup handles POST /api/v1/groups
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string   `json:"name"`
		Environment string   `json:"environment"`
		OrgID       string   `json:"org_id"`
		NodeIDs     []string `json:"node_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	orgID, ok := h.authorize(w, r, authzRequest{
		Resource:       rbac.ResourceGroups,
		Action:         rbac.ActionCreate,
		Environment:    req.Environment,
		RequestedOrgID: req.OrgID,
	})
	if !ok {
		return
	}

	group := &Group{
		ID:          uuid.NewString(),
		OrgID:       orgID,
		Name:        req.Name,
		Environment: req.Environment,
		NodeIDs:     req.NodeIDs,
	}

	h.inventory.mu.Lock()
	h.inventory.groups[group.ID] = group
	h.inventory.mu.Unlock()

	respondJSON(w, http.StatusCreated, group)
}
