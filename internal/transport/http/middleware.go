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
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/nodewarden/nodewarden/internal/identity"
	"github.com/nodewarden/nodewarden/internal/observability/logger"
	"github.com/nodewarden/nodewarden/internal/token"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// extractBearer pulls the token out of the Authorization header. An absent
// header returns ErrMissingToken; a malformed scheme returns
// ErrInvalidToken.
func extractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", token.ErrMissingToken
	}
	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || value == "" {
		return "", token.ErrInvalidToken
	}
	return value, nil
}

// Authenticator is the mandatory authentication middleware. Per request it
// walks extract → validate → resolve roles → attach: the bearer token is
// validated, its role names are resolved to role ids via the role store
// (never trusted from the token), super-admin status is derived from role
// membership, and the resulting identity is attached to the context.
//
// Signature validation is never skipped. Any failure before attachment
// short-circuits with 401; a role store outage is a 503 deny, never an
// empty-but-allowed identity.
func (h *Handler) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, status, msg := h.authenticate(r)
		if id == nil {
			if h.metrics != nil {
				h.metrics.TokenFailures.Add(r.Context(), 1)
			}
			respondError(w, status, msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// OptionalAuthenticator attaches an identity when a valid token is
// presented and an anonymous identity otherwise. Missing, malformed, or
// invalid tokens all degrade to anonymous rather than failing the
// request; only an unreachable revocation backend is surfaced, since an
// anonymous fallback there would mask an operational fault.
func (h *Handler) OptionalAuthenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, status, msg := h.authenticate(r)
		if id == nil {
			if status == http.StatusServiceUnavailable {
				respondError(w, status, msg)
				return
			}
			id = &identity.Identity{}
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (h *Handler) authenticate(r *http.Request) (*identity.Identity, int, string) {
	ctx := r.Context()

	bearer, err := extractBearer(r)
	if err != nil {
		return nil, http.StatusUnauthorized, authFailureMessage(err)
	}

	claims, err := h.tokenService.ValidateAccess(ctx, bearer)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrTokenExpired),
			errors.Is(err, token.ErrInvalidTokenType),
			errors.Is(err, token.ErrInvalidToken),
			errors.Is(err, token.ErrMissingToken),
			errors.Is(err, token.ErrTokenRevoked):
			return nil, http.StatusUnauthorized, authFailureMessage(err)
		default:
			// Denylist backend failure: fail closed.
			slog.ErrorContext(ctx, "token validation failed", logger.Error(err))
			return nil, http.StatusServiceUnavailable, "authentication temporarily unavailable"
		}
	}

	roleIDs, err := h.rbacService.RoleIDsByName(ctx, claims.Roles)
	if err != nil {
		// A missing permission set must never be read as unrestricted.
		slog.ErrorContext(ctx, "role resolution failed", logger.Subject(claims.Subject), logger.Error(err))
		return nil, http.StatusServiceUnavailable, "authorization temporarily unavailable"
	}

	superAdmin, err := h.rbacService.IsSuperAdmin(ctx, roleIDs)
	if err != nil {
		slog.ErrorContext(ctx, "role resolution failed", logger.Subject(claims.Subject), logger.Error(err))
		return nil, http.StatusServiceUnavailable, "authorization temporarily unavailable"
	}

	return &identity.Identity{
		SubjectID:  claims.Subject,
		OrgID:      claims.OrgID,
		Username:   claims.Username,
		Email:      claims.Email,
		RoleNames:  claims.Roles,
		RoleIDs:    roleIDs,
		SuperAdmin: superAdmin,
	}, 0, ""
}

func authFailureMessage(err error) string {
	switch {
	case errors.Is(err, token.ErrMissingToken):
		return "missing bearer token"
	case errors.Is(err, token.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, token.ErrInvalidTokenType):
		return "invalid token type"
	case errors.Is(err, token.ErrTokenRevoked):
		return "token revoked"
	default:
		return "invalid token"
	}
}
