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

package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodewarden/nodewarden/internal/audit"
	"github.com/nodewarden/nodewarden/internal/identity"
	"github.com/nodewarden/nodewarden/internal/org"
	"github.com/nodewarden/nodewarden/internal/rbac"
	"github.com/nodewarden/nodewarden/internal/token"
	transportHTTP "github.com/nodewarden/nodewarden/internal/transport/http"
)

// mapDenylist implements token.Denylist for testing
type mapDenylist struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (d *mapDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.revoked == nil {
		d.revoked = make(map[string]bool)
	}
	d.revoked[jti] = true
	return nil
}

func (d *mapDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.revoked[jti], nil
}

type testEnv struct {
	server      *httptest.Server
	rbacService *rbac.Service
	identitySvc *identity.Service
	orgService  *org.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	auditLogger := audit.NewSlogLogger()
	rbacService := rbac.NewService(rbac.NewSeededMemoryStore())
	orgService := org.NewService(org.NewMemoryRepository(), auditLogger)
	hasher := identity.NewPasswordHasher(8*1024, 1, 1, 16, 32)
	identitySvc := identity.NewService(identity.NewMemoryUserRepository(), hasher, auditLogger)

	tokenService, err := token.NewService(token.Config{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}, &mapDenylist{})
	require.NoError(t, err)

	handler := transportHTTP.NewHandler(
		tokenService,
		rbacService,
		orgService,
		identitySvc,
		auditLogger,
		nil,
	)
	server := httptest.NewServer(transportHTTP.NewRouter(handler, nil))
	t.Cleanup(server.Close)

	return &testEnv{
		server:      server,
		rbacService: rbacService,
		identitySvc: identitySvc,
		orgService:  orgService,
	}
}

// newUser provisions an account with the given role ids and returns its id.
func (e *testEnv) newUser(t *testing.T, orgID, username string, roleIDs ...string) string {
	t.Helper()
	user, err := e.identitySvc.CreateUser(context.Background(), orgID, username, username+"@example.com", "hunter22hunter22")
	require.NoError(t, err)
	for _, roleID := range roleIDs {
		require.NoError(t, e.rbacService.AssignRole(context.Background(), user.ID, roleID))
	}
	return user.ID
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// login runs the credential flow and returns access and refresh tokens.
func (e *testEnv) login(t *testing.T, username string) (string, string) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "hunter22hunter22",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	access, _ := body["access_token"].(string)
	refresh, _ := body["refresh_token"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	return access, refresh
}

func TestHTTP_HealthIsPublic(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestHTTP_LoginFlow(t *testing.T) {
	env := newTestEnv(t)
	env.newUser(t, org.DefaultOrgID, "alice", rbac.RoleIDViewer)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "hunter22hunter22",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)

	assert.Equal(t, "Bearer", body["token_type"])
	assert.NotEmpty(t, body["access_token"])
	assert.NotEmpty(t, body["refresh_token"])
	expires, ok := body["expires_in_seconds"].(float64)
	require.True(t, ok, "expires_in_seconds missing from login response")
	assert.Greater(t, expires, float64(0))
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, org.DefaultOrgID, user["org_id"])

	// Wrong password is a uniform 401.
	resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Unknown username looks exactly the same.
	resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "mallory",
		"password": "whatever",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestHTTP_MissingAndInvalidTokens(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/v1/nodes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "missing bearer token", body["error"])

	resp = env.do(t, http.MethodGet, "/api/v1/nodes", "not-a-real-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, "invalid token", body["error"])
}

func TestHTTP_ViewerReadsButCannotWrite(t *testing.T) {
	env := newTestEnv(t)
	env.newUser(t, org.DefaultOrgID, "viewer-user", rbac.RoleIDViewer)
	access, _ := env.login(t, "viewer-user")

	resp := env.do(t, http.MethodGet, "/api/v1/nodes", access, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/v1/groups", access, map[string]string{"name": "web-servers"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "forbidden", body["error"])
	assert.Equal(t, "Permission denied: create groups on missing create permission on groups", body["message"])
}

func TestHTTP_OperatorManagesNodes(t *testing.T) {
	env := newTestEnv(t)
	env.newUser(t, org.DefaultOrgID, "operator-user", rbac.RoleIDOperator)
	access, _ := env.login(t, "operator-user")

	resp := env.do(t, http.MethodPost, "/api/v1/nodes", access, map[string]string{
		"name":        "web-01.example.com",
		"environment": "production",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	node := decodeBody(t, resp)
	assert.Equal(t, org.DefaultOrgID, node["org_id"])

	resp = env.do(t, http.MethodGet, "/api/v1/nodes/web-01.example.com", access, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Operator inherits viewer reads but has no role admin rights.
	resp = env.do(t, http.MethodPost, "/api/v1/roles", access, map[string]string{"name": "rogue"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestHTTP_TenantIsolation(t *testing.T) {
	env := newTestEnv(t)

	orgB, err := env.orgService.CreateOrganization(context.Background(), "Org B", "org-b")
	require.NoError(t, err)

	env.newUser(t, org.DefaultOrgID, "op-a", rbac.RoleIDOperator)
	env.newUser(t, orgB.ID, "op-b", rbac.RoleIDOperator)
	env.newUser(t, org.DefaultOrgID, "root", rbac.RoleIDSuperAdmin)

	accessA, _ := env.login(t, "op-a")
	accessB, _ := env.login(t, "op-b")
	accessRoot, _ := env.login(t, "root")

	// Each operator creates a node in their own org.
	resp := env.do(t, http.MethodPost, "/api/v1/nodes", accessA, map[string]string{"name": "node-a"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = env.do(t, http.MethodPost, "/api/v1/nodes", accessB, map[string]string{"name": "node-b"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Writing into another organization is rejected, not coerced.
	resp = env.do(t, http.MethodPost, "/api/v1/nodes", accessA, map[string]string{
		"name":   "smuggled",
		"org_id": orgB.ID,
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Contains(t, body["message"], "organization mismatch")

	// Listing with an explicit foreign org filter is rejected the same way.
	resp = env.do(t, http.MethodGet, "/api/v1/nodes?org_id="+orgB.ID, accessA, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Each operator's unfiltered list shows only their own org.
	resp = env.do(t, http.MethodGet, "/api/v1/nodes", accessA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listA := decodeBody(t, resp)
	nodesA, _ := listA["nodes"].([]any)
	require.Len(t, nodesA, 1)
	first, _ := nodesA[0].(map[string]any)
	assert.Equal(t, "node-a", first["name"])

	// The super admin's unfiltered list spans organizations.
	resp = env.do(t, http.MethodGet, "/api/v1/nodes", accessRoot, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listRoot := decodeBody(t, resp)
	nodesRoot, _ := listRoot["nodes"].([]any)
	assert.Len(t, nodesRoot, 2)

	// And the super admin may write into any organization.
	resp = env.do(t, http.MethodPost, "/api/v1/nodes", accessRoot, map[string]string{
		"name":   "node-root",
		"org_id": orgB.ID,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestHTTP_ForeignNodeLookupReadsAsAbsent(t *testing.T) {
	env := newTestEnv(t)

	orgB, err := env.orgService.CreateOrganization(context.Background(), "Org B", "org-b")
	require.NoError(t, err)

	env.newUser(t, org.DefaultOrgID, "owner", rbac.RoleIDOperator)
	env.newUser(t, orgB.ID, "outsider", rbac.RoleIDOperator)
	env.newUser(t, org.DefaultOrgID, "root", rbac.RoleIDSuperAdmin)

	accessOwner, _ := env.login(t, "owner")
	accessOutsider, _ := env.login(t, "outsider")
	accessRoot, _ := env.login(t, "root")

	resp := env.do(t, http.MethodPost, "/api/v1/nodes", accessOwner, map[string]string{"name": "db-01"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// A node in another organization answers exactly like one that does
	// not exist, so names cannot be probed across tenants.
	resp = env.do(t, http.MethodGet, "/api/v1/nodes/db-01", accessOutsider, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	foreign := decodeBody(t, resp)

	resp = env.do(t, http.MethodGet, "/api/v1/nodes/no-such-node", accessOutsider, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	missing := decodeBody(t, resp)
	assert.Equal(t, missing, foreign)

	resp = env.do(t, http.MethodGet, "/api/v1/nodes/db-01", accessRoot, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestHTTP_EnvironmentScopedListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	prodReader, err := env.rbacService.CreateRole(ctx, &rbac.Role{
		Name: "prod-reader",
		Permissions: []rbac.Permission{{
			Resource:   rbac.ResourceNodes,
			Action:     rbac.ActionRead,
			Scope:      rbac.ScopeEnvironment,
			ScopeValue: "production",
		}},
	})
	require.NoError(t, err)

	env.newUser(t, org.DefaultOrgID, "seeder", rbac.RoleIDOperator)
	env.newUser(t, org.DefaultOrgID, "prod-only", prodReader.ID)

	accessSeeder, _ := env.login(t, "seeder")
	access, _ := env.login(t, "prod-only")

	for _, n := range []map[string]string{
		{"name": "web-prod", "environment": "production"},
		{"name": "web-staging", "environment": "staging"},
	} {
		resp := env.do(t, http.MethodPost, "/api/v1/nodes", accessSeeder, n)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	// The environment filter participates in the permission check, so a
	// grant bound to production does not cover other environments.
	resp := env.do(t, http.MethodGet, "/api/v1/nodes?environment=staging", access, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/v1/nodes?environment=production", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	nodes, _ := body["nodes"].([]any)
	require.Len(t, nodes, 1)
	first, _ := nodes[0].(map[string]any)
	assert.Equal(t, "web-prod", first["name"])
}

func TestHTTP_RefreshReflectsRoleChanges(t *testing.T) {
	env := newTestEnv(t)
	userID := env.newUser(t, org.DefaultOrgID, "promoted", rbac.RoleIDViewer)
	access, refresh := env.login(t, "promoted")

	// As a viewer, node creation is denied.
	resp := env.do(t, http.MethodPost, "/api/v1/nodes", access, map[string]string{"name": "n1"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Promote to operator, then refresh.
	require.NoError(t, env.rbacService.AssignRole(context.Background(), userID, rbac.RoleIDOperator))

	resp = env.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	newAccess, _ := body["access_token"].(string)
	require.NotEmpty(t, newAccess)
	assert.Equal(t, "Bearer", body["token_type"])
	assert.Contains(t, body, "expires_in_seconds")

	resp = env.do(t, http.MethodPost, "/api/v1/nodes", newAccess, map[string]string{"name": "n1"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// A refresh token is not accepted where an access token is expected.
	resp = env.do(t, http.MethodGet, "/api/v1/nodes", refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Garbage refresh tokens are a 401, not a 500.
	resp = env.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestHTTP_LogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	env.newUser(t, org.DefaultOrgID, "leaver", rbac.RoleIDViewer)
	access, _ := env.login(t, "leaver")

	resp := env.do(t, http.MethodGet, "/api/v1/auth/me", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decodeBody(t, resp)
	assert.Equal(t, "leaver", me["username"])

	resp = env.do(t, http.MethodPost, "/api/v1/auth/logout", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/v1/auth/me", access, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "token revoked", body["error"])
}

func TestHTTP_RoleAdministration(t *testing.T) {
	env := newTestEnv(t)
	env.newUser(t, org.DefaultOrgID, "admin", rbac.RoleIDOrgAdmin)
	access, _ := env.login(t, "admin")

	// Create a custom role.
	resp := env.do(t, http.MethodPost, "/api/v1/roles", access, map[string]any{
		"name":         "auditors",
		"display_name": "Auditors",
		"permissions": []map[string]string{
			{"resource": "reports", "action": "read", "scope": "all"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)
	roleID, _ := created["id"].(string)
	require.NotEmpty(t, roleID)

	// Duplicate name conflicts.
	resp = env.do(t, http.MethodPost, "/api/v1/roles", access, map[string]string{"name": "auditors"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Replace its permission set atomically.
	resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/roles/%s/permissions", roleID), access, map[string]any{
		"permissions": []map[string]string{
			{"resource": "reports", "action": "export", "scope": "all"},
			{"resource": "audit_logs", "action": "read", "scope": "all"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	replaced := decodeBody(t, resp)
	perms, _ := replaced["permissions"].([]any)
	assert.Len(t, perms, 2)

	// Invalid permission shapes are a 400.
	resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/roles/%s/permissions", roleID), access, map[string]any{
		"permissions": []map[string]string{
			{"resource": "reports", "action": "read", "scope": "environment"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// System roles reject mutation with a conflict.
	resp = env.do(t, http.MethodDelete, "/api/v1/roles/"+rbac.RoleIDViewer, access, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Unknown roles are a 404.
	resp = env.do(t, http.MethodGet, "/api/v1/roles/does-not-exist", access, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Custom roles delete cleanly.
	resp = env.do(t, http.MethodDelete, "/api/v1/roles/"+roleID, access, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
}

func TestHTTP_OrgAdministrationRequiresSuperAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.newUser(t, org.DefaultOrgID, "admin", rbac.RoleIDOrgAdmin)
	env.newUser(t, org.DefaultOrgID, "root", rbac.RoleIDSuperAdmin)

	adminAccess, _ := env.login(t, "admin")
	rootAccess, _ := env.login(t, "root")

	// Org admin's grants are org-scoped; creating organizations is a
	// cross-tenant operation and passes only for the super admin.
	resp := env.do(t, http.MethodPost, "/api/v1/orgs", adminAccess, map[string]string{
		"name": "Not Allowed",
		"slug": "not-allowed",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/v1/orgs", rootAccess, map[string]string{
		"name": "New Tenant",
		"slug": "new-tenant",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)
	orgID, _ := created["id"].(string)
	require.NotEmpty(t, orgID)

	// The default organization is undeletable even for the super admin.
	resp = env.do(t, http.MethodDelete, "/api/v1/orgs/"+org.DefaultOrgID, rootAccess, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodDelete, "/api/v1/orgs/"+orgID, rootAccess, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
}
