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

	"github.com/nodewarden/nodewarden/internal/audit"
	"github.com/nodewarden/nodewarden/internal/identity"
	"github.com/nodewarden/nodewarden/internal/observability/logger"
	"github.com/nodewarden/nodewarden/internal/token"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in_seconds"`
	User         *userInfo `json:"user"`
}

type userInfo struct {
	ID       string   `json:"id"`
	OrgID    string   `json:"org_id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in_seconds"`
}

// Login exchanges credentials for an access/refresh token pair. Role
// names are read from the role store at issue time, so a token always
// reflects the assignments that existed when it was minted.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.identityService.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		slog.ErrorContext(ctx, "authentication failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	roles, err := h.rbacService.RoleNamesForSubject(ctx, user.ID)
	if err != nil {
		slog.ErrorContext(ctx, "role resolution failed", logger.Subject(user.ID), logger.Error(err))
		respondError(w, http.StatusServiceUnavailable, "authorization temporarily unavailable")
		return
	}

	accessToken, err := h.tokenService.IssueAccessToken(user.ID, user.OrgID, user.Username, user.Email, roles)
	if err != nil {
		slog.ErrorContext(ctx, "token issuance failed", logger.Subject(user.ID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	refreshToken, err := h.tokenService.IssueRefreshToken(user.ID, user.OrgID, user.Username, user.Email)
	if err != nil {
		slog.ErrorContext(ctx, "token issuance failed", logger.Subject(user.ID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.metrics != nil {
		h.metrics.TokensIssued.Add(ctx, 1)
	}
	h.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeTokenIssued,
		OrgID:     user.OrgID,
		ActorID:   user.ID,
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	})

	respondJSON(w, http.StatusOK, loginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.tokenService.AccessTTL().Seconds()),
		User: &userInfo{
			ID:       user.ID,
			OrgID:    user.OrgID,
			Username: user.Username,
			Email:    user.Email,
			Roles:    roles,
		},
	})
}

// Refresh mints a new access token from a refresh token. The new token's
// roles come from the role store, not from the old token, so revoked
// assignments stop propagating at the next refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	accessToken, err := h.tokenService.Refresh(ctx, req.RefreshToken, h.rbacService)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrTokenExpired),
			errors.Is(err, token.ErrInvalidTokenType),
			errors.Is(err, token.ErrInvalidToken),
			errors.Is(err, token.ErrTokenRevoked):
			if h.metrics != nil {
				h.metrics.TokenFailures.Add(ctx, 1)
			}
			respondError(w, http.StatusUnauthorized, authFailureMessage(err))
		default:
			slog.ErrorContext(ctx, "token refresh failed", logger.Error(err))
			respondError(w, http.StatusServiceUnavailable, "authentication temporarily unavailable")
		}
		return
	}

	if h.metrics != nil {
		h.metrics.TokensIssued.Add(ctx, 1)
	}
	h.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeTokenRefreshed,
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	})

	respondJSON(w, http.StatusOK, refreshResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokenService.AccessTTL().Seconds()),
	})
}

// Logout revokes the presented access token for its remaining lifetime.
// A no-op when no denylist backend is configured.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := IdentityFrom(ctx)

	bearer, err := extractBearer(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, authFailureMessage(err))
		return
	}

	if err := h.tokenService.Revoke(ctx, bearer); err != nil {
		slog.ErrorContext(ctx, "token revocation failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	event := audit.Event{
		Type:      audit.TypeTokenRevoked,
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	}
	if id != nil {
		event.OrgID = id.OrgID
		event.ActorID = id.SubjectID
	}
	h.auditLogger.Log(ctx, event)

	respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me returns the authenticated caller's identity.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	if id.Anonymous() {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	respondJSON(w, http.StatusOK, userInfo{
		ID:       id.SubjectID,
		OrgID:    id.OrgID,
		Username: id.Username,
		Email:    id.Email,
		Roles:    id.RoleNames,
	})
}
