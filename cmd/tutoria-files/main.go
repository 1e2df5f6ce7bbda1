// Точка входа Tutoria Files — файловый шлюз платформы Tutoria.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL
// и S3-совместимому хранилищу, собирает сервисный слой (доступ, кэш,
// файловые операции), валидацию токенов (удалённая + локальный fallback),
// мониторинг зависимостей через topologymetrics и HTTP-сервер
// с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/tutoria-chat/tutoria-files/internal/api/handlers"
	"github.com/tutoria-chat/tutoria-files/internal/api/middleware"
	"github.com/tutoria-chat/tutoria-files/internal/auth"
	"github.com/tutoria-chat/tutoria-files/internal/config"
	"github.com/tutoria-chat/tutoria-files/internal/database"
	"github.com/tutoria-chat/tutoria-files/internal/objstore"
	"github.com/tutoria-chat/tutoria-files/internal/repository"
	"github.com/tutoria-chat/tutoria-files/internal/server"
	"github.com/tutoria-chat/tutoria-files/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Tutoria Files запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("TF_DEPHEALTH_GROUP") == "" {
		logger.Warn("TF_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL будет идти через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Объектное хранилище (S3-совместимое)
	store := objstore.New(cfg, logger)
	logger.Info("S3-клиент создан",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("endpoint", cfg.S3Endpoint),
		slog.Bool("presign", cfg.S3PresignEnabled),
	)

	// 6. Repositories
	fileRepo := repository.NewFileRepository(pool)
	moduleRepo := repository.NewModuleRepository(pool)
	professorRepo := repository.NewProfessorRepository(pool)

	// 7. Валидация токенов: удалённая стратегия + локальный HS256 fallback
	remoteValidator := auth.NewRemoteValidator(cfg.AuthURL, cfg.AuthTimeout, logger)

	var localValidator auth.Strategy
	if cfg.LocalValidationEnabled() {
		localValidator = auth.NewLocalValidator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTLeeway)
		logger.Info("Локальная fallback-валидация токенов включена")
	} else {
		logger.Warn("TF_JWT_SECRET не задан: при недоступности сервиса аутентификации токены будут отклоняться")
	}

	validator := auth.NewValidator(remoteValidator, localValidator, logger)

	// 8. Services
	accessSvc := service.NewAccessService(moduleRepo, fileRepo, professorRepo, cfg.MaxProfessorCourses, logger)
	cacheSvc := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	filesSvc := service.NewFileService(
		fileRepo, moduleRepo, accessSvc, store, cacheSvc,
		cfg.MaxFileSize, cfg.SignedURLTTL,
		logger,
	)

	// 9. Readiness checkers (PostgreSQL + auth-сервис)
	pgChecker := database.NewReadinessChecker(pool)
	healthHandler := handlers.NewHealthHandler(pgChecker, remoteValidator)

	// 10. API handlers и middleware
	filesHandler := handlers.NewFilesHandler(filesSvc, cfg.MaxFileSize, cfg.SignedURLTTL, logger)
	authMiddleware := middleware.NewAuth(validator, logger)

	// 11. topologymetrics — мониторинг зависимостей (PostgreSQL + Auth + S3)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthParams{
		ServiceID:     "tutoria-files",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PGConnURL:     cfg.DatabaseURL(),
		AuthURL:       cfg.AuthURL,
		S3Endpoint:    cfg.S3Endpoint,
		CheckInterval: cfg.DephealthCheckInterval,
		IsEntry:       cfg.DephealthIsEntry,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 12. HTTP-сервер (блокирующий вызов с graceful shutdown)
	srv := server.New(cfg, logger, filesHandler, healthHandler, authMiddleware)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Tutoria Files остановлен")
}
