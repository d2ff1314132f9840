package auth

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"registra/internal/activity"
	"registra/internal/identity"
	"registra/internal/token"
	"registra/pkg/testutil"
)

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, activity.Event) {}

type AuthHandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)

	identities := identity.NewMemoryStore()
	identities.Seed(identity.Identity{
		ID:             uuid.New(),
		ExternalID:     "T001",
		FirstName:      "Yoav",
		Role:           identity.RoleTeacher,
		Status:         identity.StatusActive,
		CredentialHash: "T001",
		NeedToChange:   true,
	})

	tokens := token.NewService("hdl-access-secret", "hdl-refresh-secret")
	service := NewService(identities, tokens, nopRecorder{}, nil, logger, nil)

	s.router = chi.NewRouter()
	NewHandler(service, logger, false).Register(s.router)
}

func (s *AuthHandlerSuite) login() *http.Cookie {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
		"id": "T001", "password": "T001",
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	cookie := testutil.FindCookie(rr, "refreshToken")
	s.Require().NotNil(cookie)
	return cookie
}

func (s *AuthHandlerSuite) TestLogin() {
	s.Run("returns the access token and sets the refresh cookie", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"id": "T001", "password": "T001",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		body := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
		s.NotEmpty((*body)["accessToken"])
		s.Equal(true, (*body)["needToChange"])

		cookie := testutil.FindCookie(rr, "refreshToken")
		s.Require().NotNil(cookie)
		s.NotEmpty(cookie.Value)
		s.True(cookie.HttpOnly)
		s.False(cookie.Secure, "secure is off outside production")
		s.Equal("/", cookie.Path)
		s.Equal(http.SameSiteLaxMode, cookie.SameSite)
		s.Equal(int(token.RefreshTTL.Seconds()), cookie.MaxAge)
	})

	s.Run("bad credentials yield 401 with the error envelope", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"id": "T001", "password": "nope",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
		testutil.AssertErrorMessage(s.T(), rr, "incorrect document or password")
		s.Nil(testutil.FindCookie(rr, "refreshToken"))
	})

	s.Run("malformed body is a 400", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/auth/login")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *AuthHandlerSuite) TestSecureCookieInProduction() {
	logger := slog.New(slog.DiscardHandler)
	identities := identity.NewMemoryStore()
	identities.Seed(identity.Identity{
		ID:             uuid.New(),
		ExternalID:     "T001",
		Role:           identity.RoleTeacher,
		Status:         identity.StatusActive,
		CredentialHash: "T001",
		NeedToChange:   true,
	})
	tokens := token.NewService("prod-access-secret", "prod-refresh-secret")
	service := NewService(identities, tokens, nopRecorder{}, nil, logger, nil)

	router := chi.NewRouter()
	NewHandler(service, logger, true).Register(router)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
		"id": "T001", "password": "T001",
	})
	rr := testutil.DoRequest(router, req)
	cookie := testutil.FindCookie(rr, "refreshToken")
	s.Require().NotNil(cookie)
	s.True(cookie.Secure)
}

func (s *AuthHandlerSuite) TestRefresh() {
	s.Run("reads the refresh token from the cookie", func() {
		cookie := s.login()

		req := testutil.NewRequest(s.T(), http.MethodPost, "/auth/refresh")
		req.AddCookie(cookie)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		body := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
		s.NotEmpty((*body)["accessToken"])
	})

	s.Run("missing cookie is a 401", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/auth/refresh")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
		testutil.AssertErrorMessage(s.T(), rr, "missing refresh token")
	})

	s.Run("tampered cookie is a 401", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/auth/refresh")
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "tampered"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
		testutil.AssertErrorMessage(s.T(), rr, "invalid or expired refresh token")
	})
}

func (s *AuthHandlerSuite) TestLogout() {
	req := testutil.NewRequest(s.T(), http.MethodPost, "/auth/logout")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	cookie := testutil.FindCookie(rr, "refreshToken")
	s.Require().NotNil(cookie)
	s.Empty(cookie.Value)
	s.Negative(cookie.MaxAge, "clearing cookie must expire immediately")
}
