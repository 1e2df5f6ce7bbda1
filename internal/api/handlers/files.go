// files.go — HTTP handlers файловых операций шлюза.
// Upload, Get metadata, Download URL, Delete, Touch.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/tutoria-chat/tutoria-files/internal/api/errors"
	"github.com/tutoria-chat/tutoria-files/internal/api/middleware"
	"github.com/tutoria-chat/tutoria-files/internal/domain/model"
	"github.com/tutoria-chat/tutoria-files/internal/service"
)

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	files        *service.FileService
	maxFileSize  int64
	signedURLTTL time.Duration
	logger       *slog.Logger
}

// NewFilesHandler создаёт обработчик файловых endpoints.
func NewFilesHandler(files *service.FileService, maxFileSize int64, signedURLTTL time.Duration, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		files:        files,
		maxFileSize:  maxFileSize,
		signedURLTTL: signedURLTTL,
		logger:       logger.With(slog.String("component", "files_handler")),
	}
}

// fileResponse — представление файла в API.
// Имена полей — camelCase, в формате остального Tutoria API.
type fileResponse struct {
	FileID           string  `json:"fileId"`
	ModuleID         int64   `json:"moduleId"`
	Name             string  `json:"name"`
	FileType         string  `json:"fileType"`
	OriginalFilename string  `json:"originalFilename"`
	URL              string  `json:"url"`
	ContentType      string  `json:"contentType"`
	Size             int64   `json:"size"`
	IsActive         bool    `json:"isActive"`
	ExternalID       *string `json:"externalId,omitempty"`
	ExternalModuleID *string `json:"externalModuleId,omitempty"`
	CreatedAt        string  `json:"createdAt"`
	UpdatedAt        string  `json:"updatedAt"`
}

// downloadResponse — ответ с временной ссылкой на скачивание.
type downloadResponse struct {
	FileID      string `json:"fileId"`
	DownloadURL string `json:"downloadUrl"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// toFileResponse конвертирует доменную модель в API-представление.
func toFileResponse(f *model.FileRecord) fileResponse {
	return fileResponse{
		FileID:           f.FileID,
		ModuleID:         f.ModuleID,
		Name:             f.Name,
		FileType:         f.FileType,
		OriginalFilename: f.OriginalFilename,
		URL:              f.StorageURL,
		ContentType:      f.ContentType,
		Size:             f.Size,
		IsActive:         f.IsActive,
		ExternalID:       f.ExternalID,
		ExternalModuleID: f.ExternalModuleID,
		CreatedAt:        f.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        f.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// UploadFile обрабатывает POST /api/files/upload.
// Multipart form: file (обязательно), moduleId (обязательно),
// customName, externalId, externalModuleId (опционально).
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	// ParseMultipartForm с буфером в памяти; хвост уходит во временные файлы.
	// Общий объём тела уже ограничен MaxBytesReader на уровне роутера.
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			apierrors.FileTooLarge(w, fmt.Sprintf("Файл превышает лимит %d байт", h.maxFileSize))
			return
		}
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	moduleIDRaw := r.FormValue("moduleId")
	if moduleIDRaw == "" {
		apierrors.ValidationError(w, "Поле 'moduleId' обязательно")
		return
	}
	moduleID, err := strconv.ParseInt(moduleIDRaw, 10, 64)
	if err != nil || moduleID <= 0 {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный moduleId: %q", moduleIDRaw))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	params := service.UploadParams{
		ModuleID:     moduleID,
		Reader:       file,
		OriginalName: header.Filename,
		ContentType:  contentType,
		Size:         header.Size,
		CustomName:   r.FormValue("customName"),
	}
	if v := r.FormValue("externalId"); v != "" {
		params.ExternalID = &v
	}
	if v := r.FormValue("externalModuleId"); v != "" {
		params.ExternalModuleID = &v
	}

	record, err := h.files.Upload(r.Context(), params, identity)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFileResponse(record))
}

// GetFile обрабатывает GET /api/files/{file_id}.
func (h *FilesHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := h.fileID(w, r)
	if !ok {
		return
	}

	record, err := h.files.Get(r.Context(), fileID, middleware.IdentityFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFileResponse(record))
}

// DownloadFile обрабатывает GET /api/files/{file_id}/download.
// Возвращает временную подписанную ссылку на скачивание.
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := h.fileID(w, r)
	if !ok {
		return
	}

	url, err := h.files.GetDownloadURL(r.Context(), fileID, middleware.IdentityFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, downloadResponse{
		FileID:      fileID,
		DownloadURL: url,
		ExpiresIn:   int64(h.signedURLTTL.Seconds()),
	})
}

// DeleteFile обрабатывает DELETE /api/files/{file_id}.
// Сначала удаляется blob, затем метаданные.
func (h *FilesHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := h.fileID(w, r)
	if !ok {
		return
	}

	if err := h.files.Delete(r.Context(), fileID, middleware.IdentityFromContext(r.Context())); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Файл %s удалён", fileID),
	})
}

// TouchFile обрабатывает PUT /api/files/{file_id}/touch.
// Обновляет updated_at файла.
func (h *FilesHandler) TouchFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := h.fileID(w, r)
	if !ok {
		return
	}

	if err := h.files.Touch(r.Context(), fileID, middleware.IdentityFromContext(r.Context())); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// fileID извлекает и валидирует UUID файла из пути.
func (h *FilesHandler) fileID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "file_id")
	if _, err := uuid.Parse(raw); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный идентификатор файла: %q", raw))
		return "", false
	}
	return raw, true
}

// writeServiceError маппит ошибки сервисного слоя в HTTP-ответы.
func (h *FilesHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		apierrors.ValidationError(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка файловой операции",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервиса")
	}
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
