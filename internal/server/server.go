// Пакет server — HTTP-сервер Tutoria Files с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tutoria-chat/tutoria-files/internal/api/handlers"
	"github.com/tutoria-chat/tutoria-files/internal/api/middleware"
	"github.com/tutoria-chat/tutoria-files/internal/config"
)

// Server — HTTP-сервер Tutoria Files.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
//
// Маршруты:
//   - без аутентификации: /health/live, /health/ready, /metrics, /api/files/health
//   - с аутентификацией: все файловые операции под /api/files
//
// Тело запроса загрузки ограничено MaxBytesReader: лимит файла плюс запас
// на multipart-заголовки и поля формы.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	filesHandler *handlers.FilesHandler,
	healthHandler *handlers.HealthHandler,
	auth *middleware.Auth,
) *Server {
	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Служебные endpoints — без аутентификации
	router.Get("/health/live", healthHandler.HealthLive)
	router.Get("/health/ready", healthHandler.HealthReady)
	router.Get("/metrics", healthHandler.GetMetrics)
	router.Get("/api/files/health", healthHandler.HealthLive)

	// Файловые операции — только с валидным токеном
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware())

		r.Post("/api/files/upload", maxBody(cfg.MaxFileSize+1<<20, filesHandler.UploadFile))
		r.Get("/api/files/{file_id}", filesHandler.GetFile)
		r.Get("/api/files/{file_id}/download", filesHandler.DownloadFile)
		r.Delete("/api/files/{file_id}", filesHandler.DeleteFile)
		r.Put("/api/files/{file_id}/touch", filesHandler.TouchFile)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// maxBody оборачивает handler ограничением размера тела запроса.
func maxBody(limit int64, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next(w, r)
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
