package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/drawsync/internal/server/handlers"
)

// ModeratorAuth пропускает запрос только с валидным токеном модератора.
// Claims кладутся в контекст, откуда их берет ModeratorHandler.
func ModeratorAuth(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header", "path", r.URL.Path)
				writeError(w, "missing token", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				// сам заголовок не логируем: в нем может быть токен
				logger.Warn("Invalid Authorization header format", "path", r.URL.Path)
				writeError(w, "invalid token format", http.StatusUnauthorized)
				return
			}

			claims, err := handlers.ValidateAccessToken(jwtConfig, tokenString)
			if err != nil {
				logger.Warn("Invalid moderator token", "error", err)
				writeError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			logger.Debug("Moderator authenticated", "client_id", claims.ClientID)

			next.ServeHTTP(w, r.WithContext(handlers.WithModerator(r.Context(), claims)))
		})
	}
}
