// local.go — локальная стратегия валидации токена (fallback).
// Криптографическая проверка подписи HS256 по общему секрету,
// опциональная проверка issuer/audience, claims извлекаются из тела токена.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tutoria-chat/tutoria-files/internal/domain/model"
)

// ErrInvalidToken — подпись не сошлась, токен просрочен или claims некорректны.
var ErrInvalidToken = errors.New("невалидный токен")

// LocalValidator — локальная проверка JWT по общему секрету.
type LocalValidator struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

// NewLocalValidator создаёт локальную стратегию валидации.
// issuer/audience пустые — соответствующая проверка отключена.
func NewLocalValidator(secret, issuer, audience string, leeway time.Duration) *LocalValidator {
	return &LocalValidator{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		leeway:   leeway,
	}
}

// Validate проверяет подпись и claims токена локально.
// Контекст не используется: проверка не выходит в сеть.
func (v *LocalValidator) Validate(_ context.Context, token string) (*model.Identity, error) {
	claims := jwt.MapClaims{}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, v.keyFunc, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	identity, err := MapIdentity(claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return identity, nil
}

// keyFunc возвращает общий секрет для проверки подписи HS256.
func (v *LocalValidator) keyFunc(_ *jwt.Token) (any, error) {
	return v.secret, nil
}
