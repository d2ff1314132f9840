// Package token issues and verifies the two JWT kinds the API uses: a
// short-lived access token presented on every request and a long-lived
// refresh token stored only in a cookie.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"registra/internal/identity"
)

// Kind selects which signing secret and lifetime apply.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const (
	// AccessTTL is the access token lifetime.
	AccessTTL = 15 * time.Minute
	// RefreshTTL is the refresh token lifetime.
	RefreshTTL = 30 * 24 * time.Hour
)

var (
	// ErrTokenInvalid covers bad signatures, malformed tokens, and tokens
	// signed for the other kind.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned for structurally valid tokens past expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the identity snapshot embedded in both token kinds. Refresh
// claims are captured at login and are not re-validated against the live
// identity on refresh; a blocked user keeps refreshing until the refresh
// token itself expires.
type Claims struct {
	SubjectID    string          `json:"sub_id"`
	ExternalID   string          `json:"ext_id"`
	Role         identity.Role   `json:"role"`
	FirstName    string          `json:"firstName"`
	LastName     string          `json:"lastName"`
	Email        string          `json:"email"`
	Status       identity.Status `json:"status"`
	NeedToChange bool            `json:"needToChange"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens. It holds no mutable state; secrets are
// read-only configuration, so a single instance is safe for concurrent use.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	now           func() time.Time
}

func NewService(accessSecret, refreshSecret string) *Service {
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		now:           time.Now,
	}
}

// WithClock overrides the time source. Test helper.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SnapshotClaims builds the claim set minted at login from a live identity.
func SnapshotClaims(ident *identity.Identity) Claims {
	return Claims{
		SubjectID:    ident.ID.String(),
		ExternalID:   ident.ExternalID,
		Role:         ident.Role,
		FirstName:    ident.FirstName,
		LastName:     ident.LastName,
		Email:        ident.Email,
		Status:       ident.Status,
		NeedToChange: ident.NeedToChange,
	}
}

// IssueAccess signs claims as an access token expiring in AccessTTL.
func (s *Service) IssueAccess(claims Claims) (string, error) {
	return s.issue(claims, s.accessSecret, AccessTTL)
}

// IssueRefresh signs claims as a refresh token expiring in RefreshTTL.
func (s *Service) IssueRefresh(claims Claims) (string, error) {
	return s.issue(claims, s.refreshSecret, RefreshTTL)
}

func (s *Service) issue(claims Claims, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify decodes a token and checks its signature and expiry against the
// secret matching kind. A token signed for the other kind fails with
// ErrTokenInvalid because its signature never verifies under this secret.
func (s *Service) Verify(tokenString string, kind Kind) (*Claims, error) {
	secret := s.accessSecret
	if kind == KindRefresh {
		secret = s.refreshSecret
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Refresh verifies a refresh token and re-issues an access token from the
// claims embedded in it, without re-reading the identity store. Stateless by
// design: low latency at the cost of up to 30 days of claim staleness.
func (s *Service) Refresh(refreshToken string) (string, error) {
	claims, err := s.Verify(refreshToken, KindRefresh)
	if err != nil {
		return "", err
	}
	return s.IssueAccess(*claims)
}
