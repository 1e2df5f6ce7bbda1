// auth.go — middleware аутентификации по Bearer-токену.
// Извлекает токен из Authorization, валидирует через auth.Validator
// (удалённая проверка с локальным HS256 fallback) и помещает Identity
// в контекст запроса.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/tutoria-chat/tutoria-files/internal/api/errors"
	"github.com/tutoria-chat/tutoria-files/internal/domain/model"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyIdentity — аутентифицированный пользователь в контексте запроса.
const ContextKeyIdentity contextKey = "identity"

// TokenValidator — проверка токена на валидность.
// Реализуется auth.Validator.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*model.Identity, bool)
}

// Auth — middleware аутентификации.
type Auth struct {
	validator TokenValidator
	logger    *slog.Logger
}

// NewAuth создаёт middleware аутентификации.
func NewAuth(validator TokenValidator, logger *slog.Logger) *Auth {
	return &Auth{
		validator: validator,
		logger:    logger.With(slog.String("component", "auth_middleware")),
	}
}

// Middleware возвращает HTTP middleware аутентификации.
// Любой исход невалидного токена — единый ответ 401 без деталей причины.
func (a *Auth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				apierrors.Unauthorized(w, "Отсутствует или некорректен заголовок Authorization: ожидается Bearer <token>")
				return
			}

			identity, ok := a.validator.Validate(r.Context(), token)
			if !ok {
				a.logger.Debug("Токен отклонён",
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("path", r.URL.Path),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyIdentity, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken извлекает Bearer-токен из заголовка Authorization.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// IdentityFromContext извлекает Identity из контекста запроса.
// Возвращает nil, если аутентификация не выполнялась.
func IdentityFromContext(ctx context.Context) *model.Identity {
	identity, _ := ctx.Value(ContextKeyIdentity).(*model.Identity)
	return identity
}
