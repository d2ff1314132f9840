// Package auth implements login, token refresh, and logout on top of the
// token service and the identity store.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"registra/internal/activity"
	"registra/internal/auth/lockout"
	"registra/internal/identity"
	"registra/internal/platform/metrics"
	"registra/internal/token"
	"registra/pkg/domainerrors"
	"registra/pkg/platform/sentinel"
)

// ActivityRecorder is the slice of the recorder the service needs; the call
// must never block or fail the login path.
type ActivityRecorder interface {
	Record(ctx context.Context, event activity.Event)
}

// LoginResult carries both minted tokens. The handler decides what goes in
// the body (access) and what goes in the cookie (refresh).
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	NeedToChange bool
}

// Service implements the auth flows.
type Service struct {
	identities identity.Store
	tokens     *token.Service
	recorder   ActivityRecorder
	lockouts   *lockout.Service
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewService(
	identities identity.Store,
	tokens *token.Service,
	recorder ActivityRecorder,
	lockouts *lockout.Service,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		identities: identities,
		tokens:     tokens,
		recorder:   recorder,
		lockouts:   lockouts,
		logger:     logger,
		metrics:    m,
	}
}

var errBadCredentials = domainerrors.New(domainerrors.CodeUnauthorized, "incorrect document or password")

// Login authenticates by external id and password. Unknown ids and wrong
// passwords share one generic 401. The credential check depends on account
// state: while NeedToChange is true the stored credential is still the
// issued default in the clear, so a plain comparison applies; after the
// member has set a password it is a bcrypt hash.
func (s *Service) Login(ctx context.Context, externalID, password string) (*LoginResult, error) {
	if externalID == "" || password == "" {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "id and password are required")
	}

	if s.lockouts != nil && s.lockouts.Locked(ctx, externalID) {
		return nil, domainerrors.New(domainerrors.CodeTooMany, "too many failed attempts, try again later")
	}

	ident, err := s.identities.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.noteFailure(ctx, externalID, nil)
			return nil, errBadCredentials
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "internal server error")
	}

	if ident.Status == identity.StatusBlocked {
		return nil, domainerrors.New(domainerrors.CodeForbidden, "your account is currently blocked")
	}

	if !credentialMatches(ident, password) {
		s.noteFailure(ctx, externalID, ident)
		return nil, errBadCredentials
	}

	claims := token.SnapshotClaims(ident)
	accessToken, err := s.tokens.IssueAccess(claims)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "internal server error")
	}
	refreshToken, err := s.tokens.IssueRefresh(claims)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "internal server error")
	}

	if s.lockouts != nil {
		s.lockouts.Clear(ctx, externalID)
	}
	if s.metrics != nil {
		s.metrics.LoginsTotal.Inc()
	}

	actorID := ident.ID
	s.recorder.Record(ctx, activity.Event{
		ActorID:        &actorID,
		ActorRole:      ident.Role,
		ActorFirstName: ident.FirstName,
		Action:         activity.ActionLoginSuccess,
		Message:        "logged in successfully.",
		Entity:         "Users",
	})

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		NeedToChange: ident.NeedToChange,
	}, nil
}

// Refresh verifies the refresh token and mints a new access token from the
// claims embedded in it; the identity store is not consulted.
func (s *Service) Refresh(_ context.Context, refreshToken string) (string, error) {
	accessToken, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		return "", domainerrors.New(domainerrors.CodeUnauthorized, "invalid or expired refresh token")
	}
	if s.metrics != nil {
		s.metrics.TokensRefreshed.Inc()
	}
	return accessToken, nil
}

func credentialMatches(ident *identity.Identity, password string) bool {
	if ident.NeedToChange {
		return password == ident.CredentialHash
	}
	return bcrypt.CompareHashAndPassword([]byte(ident.CredentialHash), []byte(password)) == nil
}

// noteFailure bumps the lockout counter and records the failed attempt.
// ident is nil for unknown external ids; those still count against the
// throttle but produce no audit record (there is no actor to reference).
func (s *Service) noteFailure(ctx context.Context, externalID string, ident *identity.Identity) {
	if s.metrics != nil {
		s.metrics.LoginFailures.Inc()
	}
	if s.lockouts != nil && s.lockouts.NoteFailure(ctx, externalID) {
		if s.metrics != nil {
			s.metrics.LockoutsTriggered.Inc()
		}
		s.logger.WarnContext(ctx, "login lockout triggered", "external_id", externalID)
	}

	if ident == nil {
		return
	}
	actorID := ident.ID
	s.recorder.Record(ctx, activity.Event{
		ActorID:        &actorID,
		ActorRole:      ident.Role,
		ActorFirstName: ident.FirstName,
		Action:         activity.ActionLoginFailure,
		Message:        "failed to log in.",
		Entity:         "Users",
	})
}
