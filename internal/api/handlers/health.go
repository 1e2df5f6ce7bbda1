// health.go — обработчики health endpoints файлового шлюза.
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (PostgreSQL и сервис аутентификации)
// /metrics — Prometheus метрики
// /api/files/health — алиас liveness для внешних потребителей API
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tutoria-chat/tutoria-files/internal/config"
)

// serviceName — имя сервиса в ответах health endpoints.
const serviceName = "tutoria-files"

// Константы статусов health check.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// ReadinessChecker — интерфейс проверки готовности зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
	CheckReady() (status, message string)
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	pgChecker   ReadinessChecker
	authChecker ReadinessChecker
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
// pgChecker — проверка PostgreSQL (nil — readiness вернёт "fail").
// authChecker — проверка сервиса аутентификации (nil — проверка пропускается).
func NewHealthHandler(pgChecker, authChecker ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		pgChecker:   pgChecker,
		authChecker: authChecker,
		promHandler: promhttp.Handler(),
	}
}

// healthCheckResult — результат проверки одной зависимости.
type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthLiveResponse — ответ liveness probe.
type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

// healthReadyResponse — ответ readiness probe.
type healthReadyResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
	Checks    struct {
		PostgreSQL healthCheckResult `json:"postgresql"`
		Auth       healthCheckResult `json:"auth"`
	} `json:"checks"`
}

// HealthLive — liveness probe. Возвращает 200 если процесс жив.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	resp := healthLiveResponse{
		Status:    statusOK,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// HealthReady — readiness probe. Проверяет PostgreSQL и сервис аутентификации.
// Возвращает 200 (ok/degraded) или 503 (fail).
// Недоступность auth-сервиса — degraded: работает локальная валидация токенов.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	resp := healthReadyResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	}

	// PostgreSQL — критичная зависимость
	if h.pgChecker != nil {
		pgStatus, pgMsg := h.pgChecker.CheckReady()
		resp.Checks.PostgreSQL = healthCheckResult{Status: pgStatus, Message: pgMsg}
	} else {
		resp.Checks.PostgreSQL = healthCheckResult{Status: statusFail, Message: "не инициализирован"}
	}

	// Auth-сервис — деградация, не отказ
	if h.authChecker != nil {
		authStatus, authMsg := h.authChecker.CheckReady()
		resp.Checks.Auth = healthCheckResult{Status: authStatus, Message: authMsg}
	} else {
		resp.Checks.Auth = healthCheckResult{Status: statusDegraded, Message: "не инициализирован"}
	}

	resp.Status = overallStatus(resp.Checks.PostgreSQL.Status, resp.Checks.Auth.Status)

	w.Header().Set("Content-Type", "application/json")
	if resp.Status == statusFail {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

// overallStatus определяет итоговый статус из статусов зависимостей.
// Если хотя бы одна зависимость fail — итог fail.
// Если хотя бы одна degraded — итог degraded.
// Иначе — ok.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		if s == statusFail {
			return statusFail
		}
		if s == statusDegraded {
			hasDegraded = true
		}
	}
	if hasDegraded {
		return statusDegraded
	}
	return statusOK
}
