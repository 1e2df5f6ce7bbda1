// file.go — модель записи файла в таблице files.
package model

import "time"

// FileRecord — метаданные файла, привязанного к модулю курса.
// Blob хранится в объектном хранилище по пути StoragePath,
// запись в БД создаётся только после успешной записи blob'а.
type FileRecord struct {
	// FileID — UUID файла
	FileID string
	// ModuleID — модуль, к которому привязан файл
	ModuleID int64
	// Name — отображаемое имя (санитизированное)
	Name string
	// FileType — тип файла (расширение без точки)
	FileType string
	// OriginalFilename — оригинальное имя от клиента (никогда не используется в пути)
	OriginalFilename string
	// StoragePath — уникальный путь в объектном хранилище:
	// universities/{u}/courses/{c}/modules/{m}/{uuid}{ext}
	StoragePath string
	// StorageURL — прямой URL объекта (без подписи)
	StorageURL string
	// ContentType — MIME-тип файла
	ContentType string
	// Size — размер файла в байтах
	Size int64
	// IsActive — флаг активности записи
	IsActive bool
	// ExternalID — идентификатор во внешней системе (опционально)
	ExternalID *string
	// ExternalModuleID — идентификатор модуля во внешней системе (опционально)
	ExternalModuleID *string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// Extension возвращает расширение файла с точкой ("" если его нет).
func (f *FileRecord) Extension() string {
	if f.FileType == "" {
		return ""
	}
	return "." + f.FileType
}
