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
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nodewarden/nodewarden/internal/audit"
	"github.com/nodewarden/nodewarden/internal/identity"
	"github.com/nodewarden/nodewarden/internal/observability/metrics"
	"github.com/nodewarden/nodewarden/internal/org"
	"github.com/nodewarden/nodewarden/internal/rbac"
	"github.com/nodewarden/nodewarden/internal/token"
)

// Handler carries the services the HTTP layer dispatches into.
type Handler struct {
	tokenService    *token.Service
	rbacService     *rbac.Service
	orgService      *org.Service
	identityService *identity.Service
	auditLogger     audit.Logger
	metrics         *metrics.AuthMetrics
	inventory       *Inventory
}

// NewHandler creates a new HTTP handler
func NewHandler(
	tokenService *token.Service,
	rbacService *rbac.Service,
	orgService *org.Service,
	identityService *identity.Service,
	auditLogger audit.Logger,
	authMetrics *metrics.AuthMetrics,
) *Handler {
	return &Handler{
		tokenService:    tokenService,
		rbacService:     rbacService,
		orgService:      orgService,
		identityService: identityService,
		auditLogger:     auditLogger,
		metrics:         authMetrics,
		inventory:       NewInventory(),
	}
}

// NewRouter creates and configures the HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if rateLimiter != nil {
		r.Use(RateLimitMiddleware(rateLimiter))
	}
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "http.server")
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticator)

			r.Post("/auth/logout", h.Logout)
			r.Get("/auth/me", h.Me)

			r.Route("/roles", func(r chi.Router) {
				r.Get("/", h.ListRoles)
				r.Post("/", h.CreateRole)
				r.Get("/{id}", h.GetRole)
				r.Put("/{id}", h.UpdateRole)
				r.Delete("/{id}", h.DeleteRole)
				r.Put("/{id}/permissions", h.ReplacePermissions)
			})

			r.Route("/users/{id}/roles", func(r chi.Router) {
				r.Post("/", h.AssignRole)
				r.Delete("/{roleID}", h.RevokeRole)
			})

			r.Route("/orgs", func(r chi.Router) {
				r.Get("/", h.ListOrganizations)
				r.Post("/", h.CreateOrganization)
				r.Get("/{id}", h.GetOrganization)
				r.Delete("/{id}", h.DeleteOrganization)
			})

			r.Route("/nodes", func(r chi.Router) {
				r.Get("/", h.ListNodes)
				r.Post("/", h.CreateNode)
				r.Get("/{name}", h.GetNode)
			})

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", h.ListGroups)
				r.Post("/", h.CreateGroup)
			})
		})
	})

	return r
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "nodewarden",
	})
}
