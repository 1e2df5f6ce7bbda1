// remote.go — удалённая стратегия валидации токена через Tutoria Auth.
// GET {baseURL}/api/auth/validate-token с bearer-токеном; успешный ответ —
// плоский key-value набор claims, 401 — токен отвергнут (терминально).
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tutoria-chat/tutoria-files/internal/domain/model"
)

// Ошибки удалённой стратегии.
var (
	// ErrTokenRejected — удалённый сервис явно отверг токен (401).
	// Терминальная ошибка: fallback на локальную валидацию не выполняется.
	ErrTokenRejected = errors.New("токен отвергнут сервисом аутентификации")
	// ErrRemoteUnavailable — сервис аутентификации недоступен
	// (сеть, таймаут, не-401 ошибка). Допускает fallback.
	ErrRemoteUnavailable = errors.New("сервис аутентификации недоступен")
)

// validateTokenPath — путь endpoint'а интроспекции токена.
const validateTokenPath = "/api/auth/validate-token"

// RemoteValidator — клиент интроспекции токенов Tutoria Auth.
type RemoteValidator struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRemoteValidator создаёт удалённую стратегию валидации.
// baseURL — базовый URL сервиса аутентификации.
// timeout — таймаут запроса интроспекции (односложные секунды, TF_AUTH_TIMEOUT).
func NewRemoteValidator(baseURL string, timeout time.Duration, logger *slog.Logger) *RemoteValidator {
	return &RemoteValidator{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With(slog.String("component", "remote_validator")),
	}
}

// Validate выполняет интроспекцию токена.
//
// Семантика ошибок:
//   - 200 → claims маппятся в Identity;
//   - 401 → ErrTokenRejected (терминально, без fallback);
//   - любой другой статус, сетевая ошибка, таймаут → ErrRemoteUnavailable.
func (v *RemoteValidator) Validate(ctx context.Context, token string) (*model.Identity, error) {
	reqURL := v.baseURL + validateTokenPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: создание запроса: %v", ErrRemoteUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// продолжаем ниже
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrTokenRejected
	default:
		return nil, fmt.Errorf("%w: статус %d", ErrRemoteUnavailable, resp.StatusCode)
	}

	var claims map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("%w: декодирование claims: %v", ErrRemoteUnavailable, err)
	}

	identity, err := MapIdentity(claims)
	if err != nil {
		// Сервис подтвердил токен, но claims неполны — считаем токен невалидным
		v.logger.Warn("Интроспекция вернула неполные claims",
			slog.String("error", err.Error()),
		)
		return nil, ErrTokenRejected
	}

	return identity, nil
}

// CheckReady проверяет доступность сервиса аутентификации.
// Недоступность — degraded, а не fail: локальная валидация токенов
// позволяет шлюзу продолжать работу без него.
func (v *RemoteValidator) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/health/ready", http.NoBody)
	if err != nil {
		return "degraded", "ошибка создания запроса: " + err.Error()
	}

	resp, err := v.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return "degraded", fmt.Sprintf("сервис аутентификации недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "degraded", fmt.Sprintf("сервис аутентификации вернул статус %d", resp.StatusCode)
	}

	return "ok", "сервис аутентификации доступен"
}
