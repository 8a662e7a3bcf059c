// auth.go — JWT middleware для аутентификации запросов.
// HS256 с симметричным секретом из конфигурации; токены выпускает
// TokenService этого же gateway.
// Публичные endpoints (login, refresh, health, status, metrics) — без аутентификации.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/cyberseed/soul-gateway/internal/api/errors"
	"github.com/cyberseed/soul-gateway/internal/auth"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// contextKeyClaims — ключ для claims из JWT в контексте запроса.
const contextKeyClaims contextKey = "jwt_claims"

// JWTAuth — middleware для JWT-аутентификации access токенов.
type JWTAuth struct {
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewJWTAuth создаёт JWT middleware поверх TokenService.
func NewJWTAuth(tokens *auth.TokenService, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		tokens: tokens,
		logger: logger.With(slog.String("component", "jwt_auth")),
	}
}

// Middleware возвращает HTTP middleware для JWT-аутентификации.
// Извлекает Bearer token из заголовка Authorization, проверяет подпись,
// kind и expiry, помещает claims в контекст запроса.
//
// Все отказы наружу неразличимы (единое generic-сообщение 401);
// точная причина — подпись, kind, expiry — только в debug-логе.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				AuthFailuresTotal.WithLabelValues("token").Inc()
				apierrors.Unauthorized(w)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				AuthFailuresTotal.WithLabelValues("token").Inc()
				apierrors.Unauthorized(w)
				return
			}

			claims, err := j.tokens.Authenticate(parts[1])
			if err != nil {
				j.logger.Debug("JWT аутентификация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				AuthFailuresTotal.WithLabelValues("token").Inc()
				apierrors.Unauthorized(w)
				return
			}

			// Refresh токен не подменяет access при обращении к API
			if claims.Kind != auth.KindAccess {
				j.logger.Debug("Попытка использовать не-access токен",
					slog.String("kind", claims.Kind),
					slog.String("remote_addr", r.RemoteAddr),
				)
				AuthFailuresTotal.WithLabelValues("token").Inc()
				apierrors.Unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext извлекает claims из контекста запроса.
// Возвращает nil, если запрос не прошёл через JWTAuth.Middleware.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(contextKeyClaims).(*auth.Claims)
	return claims
}
