// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Файловый шлюз мониторит три зависимости:
//   - PostgreSQL — SQL checker через существующий pgxpool (connection pool mode, critical)
//   - Auth-сервис — HTTP checker к /health/ready (critical: без него работает
//     только локальная проверка токенов)
//   - S3 — HTTP checker к health endpoint хранилища (critical, только при
//     кастомном endpoint'е: у AWS health endpoint'а нет)
//
// Connection pool mode предпочтителен, т.к. отражает реальную способность сервиса
// работать с зависимостью и может обнаружить исчерпание пула соединений.
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker для auth-сервиса и S3
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"     // PostgreSQL checker (pool mode)
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// DephealthParams — параметры мониторинга зависимостей.
type DephealthParams struct {
	// ServiceID — имя вершины графа текущего приложения ("tutoria-files")
	ServiceID string
	// Group — имя группы в метриках (TF_DEPHEALTH_GROUP)
	Group string
	// DB — *sql.DB, полученный из pgxpool через stdlib.OpenDBFromPool()
	DB *sql.DB
	// PGConnURL — URL подключения к PostgreSQL (для лейблов, не для подключения)
	PGConnURL string
	// AuthURL — базовый URL auth-сервиса (TF_AUTH_URL)
	AuthURL string
	// S3Endpoint — кастомный endpoint S3; пустой означает AWS, проверка пропускается
	S3Endpoint string
	// CheckInterval — интервал проверки зависимостей (TF_DEPHEALTH_CHECK_INTERVAL)
	CheckInterval time.Duration
	// IsEntry — при true добавляет лейбл isentry=yes ко всем зависимостям (TF_DEPHEALTH_ISENTRY)
	IsEntry bool
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(p DephealthParams, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(p, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	p DephealthParams,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(p, logger, dephealth.WithRegisterer(registerer))
}

// newDephealthService — внутренний конструктор.
func newDephealthService(
	p DephealthParams,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	depOpts := func(rawURL, healthPath string) []dephealth.DependencyOption {
		opts := []dephealth.DependencyOption{
			dephealth.FromURL(rawURL),
			dephealth.CheckInterval(p.CheckInterval),
			dephealth.Critical(true),
		}
		if healthPath != "" {
			opts = append(opts, dephealth.WithHTTPHealthPath(healthPath))
		}
		if p.IsEntry {
			opts = append(opts, dephealth.WithLabel("isentry", "yes"))
		}
		return opts
	}

	pgOpts := []dephealth.DependencyOption{
		dephealth.FromURL(p.PGConnURL),
		dephealth.CheckInterval(p.CheckInterval),
		dephealth.Critical(true),
	}
	if p.IsEntry {
		pgOpts = append(pgOpts, dephealth.WithLabel("isentry", "yes"))
	}

	authOpts := depOpts(p.AuthURL, "/health/ready")
	if parsed, err := url.Parse(p.AuthURL); err == nil && parsed.Scheme == "https" {
		authOpts = append(authOpts, dephealth.WithHTTPTLSSkipVerify(false))
	}

	opts := make([]dephealth.Option, 0, 4+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		// PostgreSQL — connection pool mode через существующий pgxpool.
		// Проверка идёт через *sql.DB (адаптер pgxpool), что отражает реальное
		// состояние пула соединений и может обнаружить его исчерпание.
		// Используем pgcheck.New + dephealth.AddDependency напрямую,
		// чтобы не тянуть contrib/sqldb с транзитивной зависимостью на MySQL.
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(p.DB)), pgOpts...),
		// Auth-сервис — HTTP checker к /health/ready
		dephealth.HTTP("auth-service", authOpts...),
	)

	// S3 проверяется только при кастомном endpoint'е (MinIO и совместимые).
	// Health endpoint в стиле MinIO: /minio/health/live.
	if p.S3Endpoint != "" {
		opts = append(opts, dephealth.HTTP("s3",
			depOpts(p.S3Endpoint, "/minio/health/live")...))
	}

	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(p.ServiceID, p.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен (PostgreSQL + Auth + S3)")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
