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

package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the iss claim stamped on every token this service signs.
const Issuer = "nodewarden"

// Kind distinguishes short-lived access tokens from long-lived refresh
// tokens. Validation enforces the expected kind: a refresh token presented
// where an access token is expected is rejected, and vice versa.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the signed session payload. Refresh tokens never carry role
// names; roles are re-resolved from the role store at refresh time so that
// privilege changes take effect within one refresh cycle.
type Claims struct {
	OrgID    string   `json:"org_id,omitempty"`
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Kind     Kind     `json:"kind"`
	jwt.RegisteredClaims
}

// Encode signs the claims with HMAC-SHA256 and returns the compact
// three-part token string.
func Encode(claims *Claims, secret []byte) (string, error) {
	if len(secret) < 32 {
		return "", ErrSecretTooShort
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Decode verifies the signature and standard time claims, classifying
// failures: structural and signature problems map to ErrInvalidToken,
// expiry separately to ErrTokenExpired. Time claims are evaluated with the
// library's default behavior; no extra skew leeway is configured.
func Decode(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != Issuer || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
