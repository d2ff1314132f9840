package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"registra/internal/identity"
	"registra/internal/platform/metrics"
	"registra/internal/token"
	"registra/pkg/domainerrors"
	"registra/pkg/platform/httputil"
	"registra/pkg/requestcontext"
)

// TokenVerifier is the slice of the token service the gate needs.
type TokenVerifier interface {
	Verify(tokenString string, kind token.Kind) (*token.Claims, error)
}

type claimsKey struct{}

// ClaimsFromContext retrieves the authenticated claims attached by
// RequireRoles. Nil when the request did not pass through the gate.
func ClaimsFromContext(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*token.Claims)
	return claims
}

// WithClaims injects claims into a context. Test helper.
func WithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// RequireRoles gates a route on a valid access token carrying one of the
// allowed roles. The check order is fixed: token presence, signature and
// expiry, blocked status, role presence, role membership. Blocked accounts
// are rejected regardless of role. The gate reads only the incoming token;
// it has no other side effects.
func RequireRoles(verifier TokenVerifier, logger *slog.Logger, m *metrics.Metrics, allowed ...identity.Role) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[strings.ToLower(strings.TrimSpace(string(role)))] = struct{}{}
	}

	deny := func(w http.ResponseWriter, r *http.Request, reason string, code domainerrors.Code, message string) {
		if m != nil {
			m.AuthDenied.WithLabelValues(reason).Inc()
		}
		logger.WarnContext(r.Context(), "request denied",
			"reason", reason,
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, domainerrors.New(code, message))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			raw = strings.TrimSpace(raw)
			if !ok || raw == "" {
				deny(w, r, "missing_token", domainerrors.CodeUnauthorized, "authorization token is required")
				return
			}

			claims, err := verifier.Verify(raw, token.KindAccess)
			if err != nil {
				deny(w, r, "invalid_token", domainerrors.CodeUnauthorized, "invalid or expired token")
				return
			}

			if claims.Status == identity.StatusBlocked {
				deny(w, r, "blocked", domainerrors.CodeForbidden, "your account is currently blocked")
				return
			}

			role := strings.ToLower(strings.TrimSpace(string(claims.Role)))
			if role == "" {
				deny(w, r, "missing_role", domainerrors.CodeUnauthorized, "invalid token payload")
				return
			}
			if _, ok := allowedSet[role]; !ok {
				deny(w, r, "forbidden_role", domainerrors.CodeForbidden, "this action is forbidden with the current credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
