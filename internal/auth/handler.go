package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"registra/internal/token"
	"registra/pkg/domainerrors"
	"registra/pkg/platform/httputil"
	"registra/pkg/requestcontext"
)

const refreshCookieName = "refreshToken"

// Handler exposes the auth endpoints. None of them sit behind the auth gate;
// login and refresh are how a client gets a token in the first place.
type Handler struct {
	service    *Service
	logger     *slog.Logger
	production bool
}

func NewHandler(service *Service, logger *slog.Logger, production bool) *Handler {
	return &Handler{service: service, logger: logger, production: production}
}

// Register mounts the auth routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/refresh", h.handleRefresh)
	r.Post("/auth/logout", h.handleLogout)
}

type loginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	NeedToChange bool   `json:"needToChange"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.service.Login(r.Context(), req.ID, req.Password)
	if err != nil {
		h.logger.WarnContext(r.Context(), "login rejected",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, err)
		return
	}

	http.SetCookie(w, h.refreshCookie(result.RefreshToken, token.RefreshTTL))
	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken:  result.AccessToken,
		NeedToChange: result.NeedToChange,
	})
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeUnauthorized, "missing refresh token"))
		return
	}

	accessToken, err := h.service.Refresh(r.Context(), cookie.Value)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, refreshResponse{AccessToken: accessToken})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Stateless logout: there is no server-side session to tear down, only
	// the cookie to clear.
	http.SetCookie(w, h.refreshCookie("", -time.Second))
	w.WriteHeader(http.StatusNoContent)
}

// refreshCookie builds the refresh cookie with the fixed contract: httpOnly,
// lax, path=/, secure only in production. A non-positive maxAge clears it.
func (h *Handler) refreshCookie(value string, maxAge time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.production,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		cookie.MaxAge = int(maxAge.Seconds())
	} else {
		cookie.MaxAge = -1
	}
	return cookie
}
