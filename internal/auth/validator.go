// Пакет auth — валидация bearer-токенов с композицией стратегий.
// Основная стратегия — интроспекция токена в Tutoria Auth; при недоступности
// сервиса выполняется ровно одна попытка локальной HS256-валидации (если
// настроен общий секрет). Явный отказ сервиса (401) терминален: fallback
// в этом случае не выполняется, иначе отозванный токен прошёл бы по подписи.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tutoria-chat/tutoria-files/internal/domain/model"
)

// Prometheus-метрики валидации токенов.
var tokenValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tf_token_validations_total",
	Help: "Общее количество валидаций токенов (по исходу).",
}, []string{"result"})

// Strategy — одна стратегия валидации токена.
type Strategy interface {
	// Validate превращает токен в Identity или возвращает ошибку.
	Validate(ctx context.Context, token string) (*model.Identity, error)
}

// Validator — компоновка удалённой и локальной стратегий с fallback.
// Единственный компонент системы, который проглатывает внутренние ошибки:
// вызывающий код всегда получает либо Identity, либо ok=false — никогда
// ошибку. Каждая проглоченная ошибка логируется.
type Validator struct {
	remote Strategy
	local  Strategy // nil — локальная валидация не настроена
	logger *slog.Logger
}

// NewValidator создаёт валидатор токенов.
// local может быть nil — тогда при недоступности удалённого сервиса
// валидация завершается неуспехом.
func NewValidator(remote, local Strategy, logger *slog.Logger) *Validator {
	return &Validator{
		remote: remote,
		local:  local,
		logger: logger.With(slog.String("component", "token_validator")),
	}
}

// Validate превращает bearer-токен в проверенную Identity.
//
// Порядок:
//  1. Удалённая интроспекция. Успех → Identity.
//  2. 401 от сервиса → невалиден, fallback НЕ выполняется.
//  3. Сервис недоступен → одна попытка локальной валидации (если настроена).
//  4. Ни одна стратегия не дала Identity → невалиден.
func (v *Validator) Validate(ctx context.Context, token string) (*model.Identity, bool) {
	if token == "" {
		tokenValidationsTotal.WithLabelValues("empty").Inc()
		return nil, false
	}

	identity, err := v.remote.Validate(ctx, token)
	if err == nil {
		tokenValidationsTotal.WithLabelValues("remote_ok").Inc()
		return identity, true
	}

	if errors.Is(err, ErrTokenRejected) {
		tokenValidationsTotal.WithLabelValues("rejected").Inc()
		v.logger.Debug("Токен отвергнут сервисом аутентификации")
		return nil, false
	}

	// Сервис недоступен — логируем и откатываемся на локальную проверку
	v.logger.Warn("Сервис аутентификации недоступен, попытка локальной валидации",
		slog.String("error", err.Error()),
	)

	if v.local == nil {
		tokenValidationsTotal.WithLabelValues("no_fallback").Inc()
		v.logger.Error("Локальная валидация не настроена — токен не проверен")
		return nil, false
	}

	identity, err = v.local.Validate(ctx, token)
	if err != nil {
		tokenValidationsTotal.WithLabelValues("invalid").Inc()
		v.logger.Debug("Локальная валидация не пройдена",
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	tokenValidationsTotal.WithLabelValues("fallback_ok").Inc()
	return identity, true
}
