// Пакет database — слой доступа к PostgreSQL файлового шлюза:
// пул подключений pgxpool, накат схемы через golang-migrate
// (миграции вшиты в бинарь) и ping-проверка для readiness.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutoria-chat/tutoria-files/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// pingTimeout ограничивает проверку доступности при старте и в readiness.
const pingTimeout = 3 * time.Second

// Connect открывает пул подключений и убеждается, что база отвечает.
// Пул закрывается вызывающим кодом через pool.Close().
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("разбор DSN PostgreSQL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("создание пула подключений: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("PostgreSQL не отвечает: %w", err)
	}

	logger.Info("пул подключений к PostgreSQL готов",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
	)
	return pool, nil
}

// Migrate накатывает вшитые SQL-миграции до актуальной версии схемы.
// Повторный запуск на актуальной схеме — не ошибка.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("чтение вшитых миграций: %w", err)
	}

	// Учётные данные экранируются: пароль может содержать
	// зарезервированные в URL символы
	dbURL := fmt.Sprintf("pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.DBUser), url.QueryEscape(cfg.DBPassword),
		cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode,
	)

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("инициализация golang-migrate: %w", err)
	}
	defer m.Close()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("схема БД актуальна, новых миграций нет")
	case err != nil:
		return fmt.Errorf("накат миграций: %w", err)
	default:
		version, dirty, _ := m.Version()
		logger.Info("миграции накачены",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	}
	return nil
}

// ReadinessChecker отвечает на readiness-опрос health endpoint'а
// ping'ом пула. Реализует handlers.ReadinessChecker.
type ReadinessChecker struct {
	pool *pgxpool.Pool
}

func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{pool: pool}
}

// CheckReady возвращает "ok" либо "fail" с диагностическим сообщением.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}
	return "ok", "подключение активно"
}
