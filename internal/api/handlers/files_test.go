package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tutoria-chat/tutoria-files/internal/api/middleware"
	"github.com/tutoria-chat/tutoria-files/internal/domain/model"
	"github.com/tutoria-chat/tutoria-files/internal/repository"
	"github.com/tutoria-chat/tutoria-files/internal/service"
)

// --- стабы зависимостей сервисного слоя ---

type stubModuleRepo struct {
	module *model.ModuleWithCourse
}

func (s *stubModuleRepo) GetWithCourse(_ context.Context, _ int64) (*model.ModuleWithCourse, error) {
	if s.module == nil {
		return nil, repository.ErrNotFound
	}
	return s.module, nil
}

type stubFileRepo struct {
	record *model.FileRecord
}

func (s *stubFileRepo) Create(_ context.Context, f *model.FileRecord) error {
	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now
	return nil
}

func (s *stubFileRepo) GetByID(_ context.Context, _ string) (*model.FileRecord, error) {
	if s.record == nil {
		return nil, repository.ErrNotFound
	}
	return s.record, nil
}

func (s *stubFileRepo) Delete(_ context.Context, _ string) error { return nil }
func (s *stubFileRepo) Touch(_ context.Context, _ string) error  { return nil }

type stubProfessorRepo struct{}

func (s *stubProfessorRepo) CourseIDs(_ context.Context, _ int64, _ int) ([]int64, error) {
	return nil, nil
}

type stubStore struct{}

func (s *stubStore) Put(_ context.Context, path string, _ io.Reader, _ int64, _ string) (string, error) {
	return "https://s3.example.com/bucket/" + path, nil
}

func (s *stubStore) Get(_ context.Context, _ string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (s *stubStore) Delete(_ context.Context, _ string) (bool, error) { return true, nil }

func (s *stubStore) SignedReadURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://signed.example.com/" + path, nil
}

func (s *stubStore) ObjectURL(path string) string {
	return "https://s3.example.com/bucket/" + path
}

// --- сборка тестового окружения ---

const testFileID = "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"

func testIdentity() *model.Identity {
	return &model.Identity{UserID: 1, UserType: model.UserTypeSuperAdmin}
}

// newTestRouter собирает chi-роутер с FilesHandler поверх стабов.
// Identity кладётся в контекст напрямую, без auth middleware.
func newTestRouter(fileRepo *stubFileRepo, moduleRepo *stubModuleRepo, identity *model.Identity) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	access := service.NewAccessService(moduleRepo, fileRepo, &stubProfessorRepo{}, 1000, logger)
	cache := service.NewCacheService(16, time.Minute)
	files := service.NewFileService(fileRepo, moduleRepo, access, &stubStore{}, cache,
		15*1024*1024, 15*time.Minute, logger)
	handler := NewFilesHandler(files, 15*1024*1024, 15*time.Minute, logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.ContextKeyIdentity, identity)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/api/files/upload", handler.UploadFile)
	r.Get("/api/files/{file_id}", handler.GetFile)
	r.Get("/api/files/{file_id}/download", handler.DownloadFile)
	r.Delete("/api/files/{file_id}", handler.DeleteFile)
	r.Put("/api/files/{file_id}/touch", handler.TouchFile)
	return r
}

func testModuleWithCourse() *model.ModuleWithCourse {
	return &model.ModuleWithCourse{
		Module:       model.Module{ID: 30, CourseID: 20, Name: "Введение"},
		UniversityID: 10,
	}
}

// multipartBody собирает multipart-тело с файлом и полями формы.
func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("запись содержимого: %v", err)
		}
	}

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%s): %v", k, err)
		}
	}

	if err := mw.Close(); err != nil {
		t.Fatalf("закрытие multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// errorCode извлекает машиночитаемый код из тела ответа ошибки.
func errorCode(t *testing.T, body *bytes.Buffer) string {
	t.Helper()

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body.Bytes(), &resp); err != nil {
		t.Fatalf("декодирование тела ошибки: %v", err)
	}
	return resp.Error.Code
}

// --- тесты загрузки ---

func TestUploadFile_Success(t *testing.T) {
	router := newTestRouter(&stubFileRepo{}, &stubModuleRepo{module: testModuleWithCourse()}, testIdentity())

	body, contentType := multipartBody(t, "lecture notes.pdf", []byte("содержимое"),
		map[string]string{"moduleId": "30"})
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("статус = %d, ожидался 201; тело: %s", rec.Code, rec.Body.String())
	}

	var resp fileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("декодирование ответа: %v", err)
	}
	if resp.Name != "lecture_notes.pdf" {
		t.Errorf("name = %q, ожидалось %q", resp.Name, "lecture_notes.pdf")
	}
	if resp.ModuleID != 30 {
		t.Errorf("moduleId = %d, ожидалось 30", resp.ModuleID)
	}
	if resp.FileID == "" {
		t.Error("fileId пуст")
	}
}

func TestUploadFile_MissingFile(t *testing.T) {
	router := newTestRouter(&stubFileRepo{}, &stubModuleRepo{module: testModuleWithCourse()}, testIdentity())

	body, contentType := multipartBody(t, "", nil, map[string]string{"moduleId": "30"})
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус = %d, ожидался 400", rec.Code)
	}
	if code := errorCode(t, rec.Body); code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, ожидался VALIDATION_ERROR", code)
	}
}

func TestUploadFile_BadModuleID(t *testing.T) {
	tests := []struct {
		name     string
		moduleID string
	}{
		{"пустой", ""},
		{"не число", "abc"},
		{"отрицательный", "-5"},
		{"ноль", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubFileRepo{}, &stubModuleRepo{module: testModuleWithCourse()}, testIdentity())

			fields := map[string]string{}
			if tt.moduleID != "" {
				fields["moduleId"] = tt.moduleID
			}
			body, contentType := multipartBody(t, "a.pdf", []byte("x"), fields)
			req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("статус = %d, ожидался 400", rec.Code)
			}
		})
	}
}

func TestUploadFile_ModuleNotFound(t *testing.T) {
	router := newTestRouter(&stubFileRepo{}, &stubModuleRepo{}, testIdentity())

	body, contentType := multipartBody(t, "a.pdf", []byte("x"), map[string]string{"moduleId": "999"})
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус = %d, ожидался 404", rec.Code)
	}
}

func TestUploadFile_Forbidden(t *testing.T) {
	student := &model.Identity{UserID: 4, UserType: model.UserTypeStudent}
	router := newTestRouter(&stubFileRepo{}, &stubModuleRepo{module: testModuleWithCourse()}, student)

	body, contentType := multipartBody(t, "a.pdf", []byte("x"), map[string]string{"moduleId": "30"})
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("статус = %d, ожидался 403", rec.Code)
	}
	if code := errorCode(t, rec.Body); code != "FORBIDDEN" {
		t.Errorf("code = %q, ожидался FORBIDDEN", code)
	}
}

// --- тесты получения и скачивания ---

func TestGetFile_Success(t *testing.T) {
	record := &model.FileRecord{
		FileID:   testFileID,
		ModuleID: 30,
		Name:     "a.pdf",
		IsActive: true,
	}
	router := newTestRouter(&stubFileRepo{record: record}, &stubModuleRepo{module: testModuleWithCourse()}, testIdentity())

	req := httptest.NewRequest(http.MethodGet, "/api/files/"+testFileID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200; тело: %s", rec.Code, rec.Body.String())
	}

	var resp fileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("декодирование ответа: %v", err)
	}
	if resp.FileID != testFileID {
		t.Errorf("fileId = %q, ожидался %q", resp.FileID, testFileID)
	}
}

func TestGetFile_InvalidID(t *testing.T) {
	router := newTestRouter(&stubFileRepo{}, &stubModuleRepo{}, testIdentity())

	req := httptest.NewRequest(http.MethodGet, "/api/files/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус = %d, ожидался 400", rec.Code)
	}
}

func TestGetFile_NotFound(t *testing.T) {
	router := newTestRouter(&stubFileRepo{}, &stubModuleRepo{}, testIdentity())

	req := httptest.NewRequest(http.MethodGet, "/api/files/"+testFileID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус = %d, ожидался 404", rec.Code)
	}
}

func TestDownloadFile_SignedURL(t *testing.T) {
	record := &model.FileRecord{
		FileID:      testFileID,
		ModuleID:    30,
		StoragePath: "universities/10/courses/20/modules/30/" + testFileID + ".pdf",
	}
	router := newTestRouter(&stubFileRepo{record: record}, &stubModuleRepo{module: testModuleWithCourse()}, testIdentity())

	req := httptest.NewRequest(http.MethodGet, "/api/files/"+testFileID+"/download", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200; тело: %s", rec.Code, rec.Body.String())
	}

	var resp downloadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("декодирование ответа: %v", err)
	}
	if !strings.HasPrefix(resp.DownloadURL, "https://signed.example.com/") {
		t.Errorf("downloadUrl = %q, ожидался подписанный URL", resp.DownloadURL)
	}
	if resp.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("expiresIn = %d, ожидалось %d", resp.ExpiresIn, int64((15*time.Minute).Seconds()))
	}
}

// --- тесты удаления и touch ---

func TestDeleteFile_Success(t *testing.T) {
	record := &model.FileRecord{
		FileID:      testFileID,
		ModuleID:    30,
		StoragePath: "universities/10/courses/20/modules/30/" + testFileID + ".pdf",
	}
	router := newTestRouter(&stubFileRepo{record: record}, &stubModuleRepo{module: testModuleWithCourse()}, testIdentity())

	req := httptest.NewRequest(http.MethodDelete, "/api/files/"+testFileID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200; тело: %s", rec.Code, rec.Body.String())
	}
}

func TestTouchFile_Success(t *testing.T) {
	record := &model.FileRecord{FileID: testFileID, ModuleID: 30}
	router := newTestRouter(&stubFileRepo{record: record}, &stubModuleRepo{module: testModuleWithCourse()}, testIdentity())

	req := httptest.NewRequest(http.MethodPut, "/api/files/"+testFileID+"/touch", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("статус = %d, ожидался 204; тело: %s", rec.Code, rec.Body.String())
	}
}
