package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"planwise/internal/auth"
	"planwise/internal/domain"
	planningSvc "planwise/internal/domain/services/planning"
	"planwise/internal/httputil"
)

// publicPaths skip authentication
var publicPaths = map[string]bool{
	"/health": true,
}

// Auth verifies the bearer token, resolves the caller into an Actor and
// stores it in the request context. EventSource cannot set headers, so GET
// requests may carry the token in the access_token query parameter instead.
func Auth(verifier auth.JWTVerifier, users planningSvc.UserService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				httputil.RespondDomainError(w, &domain.UnauthorizedError{Message: "missing bearer token"})
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondDomainError(w, &domain.UnauthorizedError{Message: "invalid or expired token"})
				return
			}

			actor, err := users.ResolveActor(r.Context(), claims.GetUserID(), claims.DisplayName())
			if err != nil {
				logger.Error("failed to resolve actor",
					"user_id", claims.GetUserID(),
					"error", err,
				)
				httputil.RespondDomainError(w, err)
				return
			}

			next.ServeHTTP(w, httputil.WithActor(r, actor))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("access_token")
	}
	return ""
}
