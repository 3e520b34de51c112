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
	"log/slog"
	"net/http"
	"time"

	"github.com/nodewarden/nodewarden/internal/audit"
	"github.com/nodewarden/nodewarden/internal/identity"
	"github.com/nodewarden/nodewarden/internal/observability/logger"
	"github.com/nodewarden/nodewarden/internal/org"
	"github.com/nodewarden/nodewarden/internal/rbac"
)

// authzRequest describes one guarded operation: what the caller wants to
// do, on which resource, within which organization.
type authzRequest struct {
	Resource       rbac.Resource
	Action         rbac.Action
	ResourceID     string
	Environment    string
	RequestedOrgID string
}

// authorize runs the tenant guard and the permission evaluator for a
// single-target operation. It returns the effective organization id and
// true when the caller may proceed; on rejection it has already written
// the response.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, req authzRequest) (string, bool) {
	ctx := r.Context()

	id := IdentityFrom(ctx)
	if id.Anonymous() {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}

	orgID, err := org.ResolveTargetOrg(id, req.RequestedOrgID)
	if err != nil {
		h.rejectCrossOrg(w, r, id, req)
		return "", false
	}

	if id.SuperAdmin {
		return orgID, true
	}

	start := time.Now()
	decision, err := h.rbacService.Check(ctx, rbac.CheckRequest{
		RoleIDs:     id.RoleIDs,
		Resource:    req.Resource,
		Action:      req.Action,
		ResourceID:  req.ResourceID,
		Environment: req.Environment,
		OrgID:       orgID,
	})
	if h.metrics != nil {
		h.metrics.EvaluationLatency.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		slog.ErrorContext(ctx, "permission check failed",
			logger.Subject(id.SubjectID),
			logger.Resource(string(req.Resource)),
			logger.Action(string(req.Action)),
			logger.Error(err),
		)
		respondError(w, http.StatusServiceUnavailable, "authorization temporarily unavailable")
		return "", false
	}

	if !decision.Allowed {
		h.rejectForbidden(w, r, id, req, decision.Reason)
		return "", false
	}

	return orgID, true
}

// authorizeList is the list-scoped variant. The returned filter is the
// organization id to constrain results to; empty means unfiltered, which
// only a super-admin can obtain.
func (h *Handler) authorizeList(w http.ResponseWriter, r *http.Request, req authzRequest) (string, bool) {
	ctx := r.Context()

	id := IdentityFrom(ctx)
	if id.Anonymous() {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}

	filter, err := org.ResolveListFilter(id, req.RequestedOrgID)
	if err != nil {
		h.rejectCrossOrg(w, r, id, req)
		return "", false
	}

	if id.SuperAdmin {
		return filter, true
	}

	start := time.Now()
	decision, err := h.rbacService.Check(ctx, rbac.CheckRequest{
		RoleIDs:     id.RoleIDs,
		Resource:    req.Resource,
		Action:      req.Action,
		ResourceID:  req.ResourceID,
		Environment: req.Environment,
		OrgID:       filter,
	})
	if h.metrics != nil {
		h.metrics.EvaluationLatency.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		slog.ErrorContext(ctx, "permission check failed",
			logger.Subject(id.SubjectID),
			logger.Resource(string(req.Resource)),
			logger.Action(string(req.Action)),
			logger.Error(err),
		)
		respondError(w, http.StatusServiceUnavailable, "authorization temporarily unavailable")
		return "", false
	}

	if !decision.Allowed {
		h.rejectForbidden(w, r, id, req, decision.Reason)
		return "", false
	}

	return filter, true
}

// requireSuperAdmin gates operations that are cross-tenant by nature, such
// as creating or deleting organizations. Permission grants cannot express
// these: a role's grants are always read within one organization, so the
// membership bypass is the only path through.
func (h *Handler) requireSuperAdmin(w http.ResponseWriter, r *http.Request, req authzRequest) bool {
	id := IdentityFrom(r.Context())
	if id.Anonymous() {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return false
	}
	if !id.SuperAdmin {
		h.rejectForbidden(w, r, id, req, "cross-organization administration")
		return false
	}
	return true
}

func (h *Handler) rejectCrossOrg(w http.ResponseWriter, r *http.Request, id *identity.Identity, req authzRequest) {
	ctx := r.Context()
	if h.metrics != nil {
		h.metrics.CrossOrgRejections.Add(ctx, 1)
	}
	h.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeCrossOrgDenied,
		OrgID:     id.OrgID,
		ActorID:   id.SubjectID,
		Resource:  string(req.Resource),
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
		Metadata: map[string]any{
			"requested_org_id": req.RequestedOrgID,
			"action":           string(req.Action),
		},
	})
	// A cross-org attempt is a permission failure, not a routing error.
	respondForbidden(w, permissionDeniedMessage(req.Action, req.Resource, "organization mismatch"))
}

func (h *Handler) rejectForbidden(w http.ResponseWriter, r *http.Request, id *identity.Identity, req authzRequest, reason string) {
	ctx := r.Context()
	if h.metrics != nil {
		h.metrics.PermissionDenials.Add(ctx, 1)
	}
	h.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypePermissionDenied,
		OrgID:     id.OrgID,
		ActorID:   id.SubjectID,
		Resource:  string(req.Resource),
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
		Metadata: map[string]any{
			"action": string(req.Action),
			"reason": reason,
		},
	})
	slog.WarnContext(ctx, "permission denied",
		logger.Subject(id.SubjectID),
		logger.OrgID(id.OrgID),
		logger.Resource(string(req.Resource)),
		logger.Action(string(req.Action)),
		logger.Reason(reason),
	)
	respondForbidden(w, permissionDeniedMessage(req.Action, req.Resource, reason))
}
