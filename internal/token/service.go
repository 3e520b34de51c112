package token

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config holds token service configuration. The secret and TTLs are
// threaded through explicitly; there is no process-wide signing state.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if len(c.Secret) < 32 {
		return ErrSecretTooShort
	}
	if c.AccessTTL <= 0 {
		return fmt.Errorf("access token TTL must be positive")
	}
	if c.RefreshTTL <= 0 {
		return fmt.Errorf("refresh token TTL must be positive")
	}
	return nil
}

// RoleSource provides a subject's current role names. The refresh flow
// consults it instead of trusting anything embedded in the refresh token.
type RoleSource interface {
	RoleNamesForSubject(ctx context.Context, subjectID string) ([]string, error)
}

// Service issues and validates session tokens. It is stateless; the only
// optional state is the revocation denylist.
type Service struct {
	cfg      Config
	denylist Denylist
}

// NewService creates a token service. A nil denylist keeps the stateless
// base behavior.
func NewService(cfg Config, denylist Denylist) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if denylist == nil {
		denylist = NoopDenylist{}
	}
	return &Service{cfg: cfg, denylist: denylist}, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration {
	return s.cfg.AccessTTL
}

// IssueAccessToken signs a fresh access token for a verified identity.
func (s *Service) IssueAccessToken(subjectID, orgID, username, email string, roles []string) (string, error) {
	return s.issue(KindAccess, subjectID, orgID, username, email, roles, s.cfg.AccessTTL)
}

// IssueRefreshToken signs a fresh refresh token. Refresh tokens never
// carry roles; they are re-resolved when the token is redeemed.
func (s *Service) IssueRefreshToken(subjectID, orgID, username, email string) (string, error) {
	return s.issue(KindRefresh, subjectID, orgID, username, email, nil, s.cfg.RefreshTTL)
}

func (s *Service) issue(kind Kind, subjectID, orgID, username, email string, roles []string, ttl time.Duration) (string, error) {
	if subjectID == "" {
		return "", fmt.Errorf("subject id is required")
	}
	now := time.Now()
	claims := &Claims{
		OrgID:    orgID,
		Username: username,
		Email:    email,
		Roles:    roles,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subjectID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return Encode(claims, s.cfg.Secret)
}

// ValidateAccess validates a token expected to be an access token.
func (s *Service) ValidateAccess(ctx context.Context, tokenString string) (*Claims, error) {
	return s.validate(ctx, tokenString, KindAccess)
}

// ValidateRefresh validates a token expected to be a refresh token.
func (s *Service) ValidateRefresh(ctx context.Context, tokenString string) (*Claims, error) {
	return s.validate(ctx, tokenString, KindRefresh)
}

// validate decodes the token and enforces the expected kind. Without the
// kind check a long-lived refresh token could be replayed wherever a
// short-lived access token is expected.
func (s *Service) validate(ctx context.Context, tokenString string, expected Kind) (*Claims, error) {
	claims, err := Decode(tokenString, s.cfg.Secret)
	if err != nil {
		return nil, err
	}
	if claims.Kind != expected {
		return nil, ErrInvalidTokenType
	}
	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		// Fail closed: an unreachable denylist must not admit a token
		// that may have been revoked.
		return nil, fmt.Errorf("denylist lookup failed: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Refresh redeems a refresh token for a brand-new access token. The
// subject's roles are fetched fresh from the role source; role changes take
// effect within one refresh cycle instead of persisting until the old
// access token's natural expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string, roles RoleSource) (string, error) {
	claims, err := s.ValidateRefresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	current, err := roles.RoleNamesForSubject(ctx, claims.Subject)
	if err != nil {
		return "", fmt.Errorf("failed to fetch current roles: %w", err)
	}
	return s.IssueAccessToken(claims.Subject, claims.OrgID, claims.Username, claims.Email, current)
}

// Revoke places a still-valid token's jti on the denylist for the
// remainder of its lifetime. With the no-op denylist this does nothing.
func (s *Service) Revoke(ctx context.Context, tokenString string) error {
	claims, err := Decode(tokenString, s.cfg.Secret)
	if err != nil {
		return err
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.denylist.Revoke(ctx, claims.ID, ttl)
}
