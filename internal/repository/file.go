package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tutoria-chat/tutoria-files/internal/domain/model"
)

// fileColumns — список столбцов таблицы files для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const fileColumns = `file_id, module_id, name, file_type, original_filename,
	storage_path, storage_url, content_type, size, is_active,
	external_id, external_module_id, created_at, updated_at`

// FileRepository — интерфейс доступа к таблице files.
type FileRepository interface {
	// Create вставляет запись файла. Времена created_at/updated_at ставит БД.
	Create(ctx context.Context, f *model.FileRecord) error
	// GetByID возвращает файл по UUID или ErrNotFound.
	GetByID(ctx context.Context, fileID string) (*model.FileRecord, error)
	// Delete удаляет запись файла. Отсутствующая запись — ErrNotFound.
	Delete(ctx context.Context, fileID string) error
	// Touch обновляет updated_at (единственная разрешённая мутация записи).
	Touch(ctx context.Context, fileID string) error
}

// fileRepo — реализация FileRepository через pgx.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

// Create вставляет запись файла и возвращает серверные timestamps в f.
func (r *fileRepo) Create(ctx context.Context, f *model.FileRecord) error {
	query := `INSERT INTO files
		(file_id, module_id, name, file_type, original_filename,
		 storage_path, storage_url, content_type, size, is_active,
		 external_id, external_module_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		f.FileID, f.ModuleID, f.Name, f.FileType, f.OriginalFilename,
		f.StoragePath, f.StorageURL, f.ContentType, f.Size, f.IsActive,
		f.ExternalID, f.ExternalModuleID,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка вставки записи файла: %w", err)
	}
	return nil
}

// GetByID возвращает файл по UUID или ErrNotFound.
func (r *fileRepo) GetByID(ctx context.Context, fileID string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE file_id = $1`, fileColumns)

	f := &model.FileRecord{}
	err := r.db.QueryRow(ctx, query, fileID).Scan(
		&f.FileID, &f.ModuleID, &f.Name, &f.FileType, &f.OriginalFilename,
		&f.StoragePath, &f.StorageURL, &f.ContentType, &f.Size, &f.IsActive,
		&f.ExternalID, &f.ExternalModuleID, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

// Delete удаляет запись файла.
func (r *fileRepo) Delete(ctx context.Context, fileID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE file_id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Touch обновляет updated_at записи файла.
func (r *fileRepo) Touch(ctx context.Context, fileID string) error {
	tag, err := r.db.Exec(ctx, `UPDATE files SET updated_at = now() WHERE file_id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("ошибка обновления updated_at: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
