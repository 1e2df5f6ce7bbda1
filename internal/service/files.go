// files.go — оркестратор файловых операций: загрузка, скачивание, удаление.
// Композиция санитайзера, проверки доступа, объектного хранилища и БД
// метаданных. Шаги каждой операции строго последовательны: проверка
// доступа предшествует записи blob'а, запись blob'а — вставке метаданных.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tutoria-chat/tutoria-files/internal/domain/filename"
	"github.com/tutoria-chat/tutoria-files/internal/domain/model"
	"github.com/tutoria-chat/tutoria-files/internal/objstore"
	"github.com/tutoria-chat/tutoria-files/internal/repository"
)

// Prometheus-метрики файловых операций.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tf_uploads_total",
		Help: "Общее количество загрузок файлов (по исходу).",
	}, []string{"status"})

	uploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tf_upload_duration_seconds",
		Help:    "Длительность загрузки файла (включая запись в хранилище).",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tf_upload_bytes_total",
		Help: "Общее количество принятых байт при загрузке.",
	})

	downloadURLsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tf_download_urls_total",
		Help: "Общее количество выданных ссылок на скачивание (по исходу).",
	}, []string{"status"})

	deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tf_deletes_total",
		Help: "Общее количество удалений файлов (по исходу).",
	}, []string{"status"})

	orphanedBlobsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tf_orphaned_blobs_total",
		Help: "Blob'ы-сироты: запись в хранилище прошла, вставка метаданных — нет.",
	})
)

// ObjectStore — возможности объектного хранилища, нужные оркестратору.
// Реализуется objstore.Store.
type ObjectStore interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) (existed bool, err error)
	SignedReadURL(ctx context.Context, path string, ttl time.Duration) (string, error)
	ObjectURL(path string) string
}

// UploadParams — параметры загрузки файла.
type UploadParams struct {
	// ModuleID — модуль, к которому привязывается файл
	ModuleID int64
	// Reader — поток содержимого файла
	Reader io.Reader
	// OriginalName — имя файла от клиента (недоверенное)
	OriginalName string
	// ContentType — MIME-тип из multipart part
	ContentType string
	// Size — размер файла в байтах
	Size int64
	// CustomName — переопределение отображаемого имени (опционально)
	CustomName string
	// ExternalID — идентификатор во внешней системе (опционально)
	ExternalID *string
	// ExternalModuleID — идентификатор модуля во внешней системе (опционально)
	ExternalModuleID *string
}

// FileService — оркестратор файловых операций.
type FileService struct {
	fileRepo     repository.FileRepository
	moduleRepo   repository.ModuleRepository
	access       *AccessService
	store        ObjectStore
	cache        *CacheService
	maxFileSize  int64
	signedURLTTL time.Duration
	logger       *slog.Logger
}

// NewFileService создаёт оркестратор файловых операций.
func NewFileService(
	fileRepo repository.FileRepository,
	moduleRepo repository.ModuleRepository,
	access *AccessService,
	store ObjectStore,
	cache *CacheService,
	maxFileSize int64,
	signedURLTTL time.Duration,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		fileRepo:     fileRepo,
		moduleRepo:   moduleRepo,
		access:       access,
		store:        store,
		cache:        cache,
		maxFileSize:  maxFileSize,
		signedURLTTL: signedURLTTL,
		logger:       logger.With(slog.String("component", "file_service")),
	}
}

// Upload выполняет полный pipeline загрузки файла.
//
// Шаги строго последовательны:
//  1. Разрешение модуля с цепочкой владения (не найден → ErrNotFound).
//  2. Проверка доступа (отказ → ErrForbidden).
//  3. Проверка размера (превышение → ErrInvalidInput, до любого I/O).
//  4. Санитизация имени (пустой результат → ErrInvalidInput).
//  5. Запись blob'а в хранилище (ошибка → ErrStorage, метаданные не создаются).
//  6. Вставка метаданных (ошибка → ErrStorage, blob остаётся сиротой).
func (s *FileService) Upload(ctx context.Context, p UploadParams, caller *model.Identity) (*model.FileRecord, error) {
	start := time.Now()

	// 1. Модуль и цепочка владения
	mc, err := s.moduleRepo.GetWithCourse(ctx, p.ModuleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			uploadsTotal.WithLabelValues("not_found").Inc()
			return nil, fmt.Errorf("%w: модуль %d", ErrNotFound, p.ModuleID)
		}
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	// 2. Проверка доступа — до генерации пути и любого I/O.
	// Модуль уже разрешён, второй запрос к БД не нужен.
	if caller == nil {
		uploadsTotal.WithLabelValues("forbidden").Inc()
		return nil, fmt.Errorf("%w: модуль %d", ErrForbidden, p.ModuleID)
	}
	if !caller.IsSuperAdmin() {
		allowed, err := s.access.canAccessResolved(ctx, caller, mc)
		if err != nil {
			uploadsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if !allowed {
			uploadsTotal.WithLabelValues("forbidden").Inc()
			return nil, fmt.Errorf("%w: модуль %d", ErrForbidden, p.ModuleID)
		}
	}

	// 3. Размер — до любого обращения к хранилищу
	if p.Size > s.maxFileSize {
		uploadsTotal.WithLabelValues("too_large").Inc()
		return nil, fmt.Errorf("%w: размер %d превышает лимит %d байт", ErrInvalidInput, p.Size, s.maxFileSize)
	}

	// 4. Санитизация имён
	safeName := filename.Sanitize(p.OriginalName)
	if safeName == "" {
		uploadsTotal.WithLabelValues("bad_name").Inc()
		return nil, fmt.Errorf("%w: пустое имя файла после санитизации", ErrInvalidInput)
	}

	displayName := safeName
	if custom := filename.Sanitize(p.CustomName); strings.TrimSpace(p.CustomName) != "" && custom != "" {
		displayName = custom
	}

	// Путь хранения: оригинальное имя никогда не попадает в путь,
	// уникальный суффикс исключает коллизии
	fileID := uuid.NewString()
	ext := filename.Ext(safeName)
	storagePath := fmt.Sprintf("universities/%d/courses/%d/modules/%d/%s%s",
		mc.UniversityID, mc.CourseID, mc.ID, fileID, ext)

	// 5. Запись blob'а
	storageURL, err := s.store.Put(ctx, storagePath, p.Reader, p.Size, p.ContentType)
	if err != nil {
		uploadsTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("%w: запись blob'а: %v", ErrStorage, err)
	}

	// 6. Вставка метаданных — только после успешной записи blob'а
	record := &model.FileRecord{
		FileID:           fileID,
		ModuleID:         mc.ID,
		Name:             displayName,
		FileType:         strings.TrimPrefix(ext, "."),
		OriginalFilename: p.OriginalName,
		StoragePath:      storagePath,
		StorageURL:       storageURL,
		ContentType:      p.ContentType,
		Size:             p.Size,
		IsActive:         true,
		ExternalID:       p.ExternalID,
		ExternalModuleID: p.ExternalModuleID,
	}

	if err := s.fileRepo.Create(ctx, record); err != nil {
		// Blob записан, метаданных нет — сирота. Автоматически не убираем
		// (см. счётчик tf_orphaned_blobs_total), только фиксируем.
		orphanedBlobsTotal.Inc()
		s.logger.Error("Вставка метаданных не удалась, blob остался сиротой",
			slog.String("storage_path", storagePath),
			slog.String("error", err.Error()),
		)
		uploadsTotal.WithLabelValues("metadata_error").Inc()
		return nil, fmt.Errorf("%w: вставка метаданных: %v", ErrStorage, err)
	}

	s.cache.Set(fileID, record)

	uploadsTotal.WithLabelValues("success").Inc()
	uploadBytesTotal.Add(float64(p.Size))
	uploadDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("Файл загружен",
		slog.String("file_id", fileID),
		slog.Int64("module_id", mc.ID),
		slog.String("name", displayName),
		slog.Int64("size", p.Size),
		slog.Int64("user_id", caller.UserID),
	)

	return record, nil
}

// Get возвращает метаданные файла с проверкой доступа.
func (s *FileService) Get(ctx context.Context, fileID string, caller *model.Identity) (*model.FileRecord, error) {
	record, err := s.getFileRecord(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, caller, record); err != nil {
		return nil, err
	}

	return record, nil
}

// GetDownloadURL возвращает подписанный URL на скачивание файла.
// Если хранилище не может подписать URL (credential mode без подписи),
// возвращается обычный object URL — degraded, но не фатально.
func (s *FileService) GetDownloadURL(ctx context.Context, fileID string, caller *model.Identity) (string, error) {
	record, err := s.getFileRecord(ctx, fileID)
	if err != nil {
		downloadURLsTotal.WithLabelValues("not_found").Inc()
		return "", err
	}

	if err := s.authorize(ctx, caller, record); err != nil {
		downloadURLsTotal.WithLabelValues("forbidden").Inc()
		return "", err
	}

	signed, err := s.store.SignedReadURL(ctx, record.StoragePath, s.signedURLTTL)
	if err != nil {
		if errors.Is(err, objstore.ErrPresignUnavailable) {
			s.logger.Warn("Подпись URL недоступна, возвращается прямой URL",
				slog.String("file_id", fileID),
			)
			downloadURLsTotal.WithLabelValues("degraded").Inc()
			return s.store.ObjectURL(record.StoragePath), nil
		}
		downloadURLsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: подпись URL: %v", ErrStorage, err)
	}

	downloadURLsTotal.WithLabelValues("success").Inc()
	return signed, nil
}

// Delete удаляет файл: сначала blob, затем метаданные.
//
// Инвариант порядка: при жёсткой ошибке удаления blob'а запись метаданных
// сохраняется — иначе потерялось бы единственное свидетельство того,
// что живой blob ещё существует. Отсутствие blob'а ("уже удалён") —
// не ошибка, метаданные удаляются, операция успешна.
func (s *FileService) Delete(ctx context.Context, fileID string, caller *model.Identity) error {
	record, err := s.getFileRecord(ctx, fileID)
	if err != nil {
		deletesTotal.WithLabelValues("not_found").Inc()
		return err
	}

	if err := s.authorize(ctx, caller, record); err != nil {
		deletesTotal.WithLabelValues("forbidden").Inc()
		return err
	}

	// Blob удаляется до метаданных
	existed, err := s.store.Delete(ctx, record.StoragePath)
	if err != nil {
		deletesTotal.WithLabelValues("storage_error").Inc()
		return fmt.Errorf("%w: удаление blob'а: %v", ErrStorage, err)
	}
	if !existed {
		s.logger.Warn("Blob уже отсутствовал при удалении",
			slog.String("file_id", fileID),
			slog.String("storage_path", record.StoragePath),
		)
	}

	if err := s.fileRepo.Delete(ctx, fileID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		deletesTotal.WithLabelValues("metadata_error").Inc()
		return fmt.Errorf("%w: удаление метаданных: %v", ErrStorage, err)
	}

	s.cache.Delete(fileID)

	deletesTotal.WithLabelValues("success").Inc()
	s.logger.Info("Файл удалён",
		slog.String("file_id", fileID),
		slog.Bool("blob_existed", existed),
		slog.Int64("user_id", caller.UserID),
	)

	return nil
}

// Touch обновляет updated_at файла (единственная разрешённая мутация записи).
func (s *FileService) Touch(ctx context.Context, fileID string, caller *model.Identity) error {
	record, err := s.getFileRecord(ctx, fileID)
	if err != nil {
		return err
	}

	if err := s.authorize(ctx, caller, record); err != nil {
		return err
	}

	if err := s.fileRepo.Touch(ctx, fileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: файл %s", ErrNotFound, fileID)
		}
		return fmt.Errorf("%w: обновление updated_at: %v", ErrStorage, err)
	}

	// Кэшированная копия содержит устаревший updated_at
	s.cache.Delete(fileID)

	return nil
}

// getFileRecord получает FileRecord из кэша или БД.
func (s *FileService) getFileRecord(ctx context.Context, fileID string) (*model.FileRecord, error) {
	if record, ok := s.cache.Get(fileID); ok {
		return record, nil
	}

	record, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: файл %s", ErrNotFound, fileID)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.cache.Set(fileID, record)
	return record, nil
}

// authorize проверяет доступ вызывающего к модулю файла.
// Эквивалентно CanAccessFile: запись уже загружена, проверяется её модуль.
func (s *FileService) authorize(ctx context.Context, caller *model.Identity, record *model.FileRecord) error {
	allowed, err := s.access.CanAccessModule(ctx, caller, record.ModuleID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !allowed {
		return fmt.Errorf("%w: файл %s", ErrForbidden, record.FileID)
	}
	return nil
}
