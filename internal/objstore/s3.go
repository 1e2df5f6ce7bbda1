// Пакет objstore — клиент S3-совместимого объектного хранилища.
// Поддерживает иерархические ключи, подписанные (presigned) URL для
// скачивания и path-style адресацию для MinIO-совместимых хранилищ.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tutoria-chat/tutoria-files/internal/config"
)

// Ошибки объектного хранилища.
var (
	// ErrNotFound — объект отсутствует в хранилище.
	ErrNotFound = errors.New("объект не найден в хранилище")
	// ErrPresignUnavailable — текущий credential mode не поддерживает подпись URL.
	ErrPresignUnavailable = errors.New("подпись URL недоступна")
)

// Store — клиент объектного хранилища.
type Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	endpoint  string
	region    string
	pathStyle bool
	presign   bool
	logger    *slog.Logger
}

// New создаёт клиент S3-совместимого хранилища из конфигурации.
// Endpoint пустой — AWS S3; иначе кастомный endpoint (MinIO и совместимые).
func New(cfg *config.Config, logger *slog.Logger) *Store {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.S3Region
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.S3AccessKey,
				cfg.S3SecretKey,
				"",
			)
		},
	}

	if cfg.S3Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = cfg.S3PathStyle
		})
	}

	client := s3.New(s3.Options{}, opts...)

	return &Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.S3Bucket,
		endpoint:  strings.TrimRight(cfg.S3Endpoint, "/"),
		region:    cfg.S3Region,
		pathStyle: cfg.S3PathStyle,
		presign:   cfg.S3PresignEnabled,
		logger:    logger.With(slog.String("component", "objstore")),
	}
}

// Put записывает поток в хранилище по указанному пути.
// Возвращает прямой (неподписанный) URL объекта.
func (s *Store) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(path),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPrivate,
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("запись объекта %s: %w", path, err)
	}

	s.logger.Debug("Объект записан",
		slog.String("path", path),
		slog.Int64("size", size),
		slog.String("content_type", contentType),
	)

	return s.ObjectURL(path), nil
}

// Get возвращает содержимое объекта. Отсутствующий объект — ErrNotFound.
// Вызывающий код ОБЯЗАН закрыть возвращённый ReadCloser.
func (s *Store) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("чтение объекта %s: %w", path, err)
	}
	return out.Body, nil
}

// Delete удаляет объект по пути.
// Возвращает existed=false, если объект уже отсутствовал (не ошибка:
// удаление идемпотентно, но отличие логируется вызывающим кодом).
func (s *Store) Delete(ctx context.Context, path string) (existed bool, err error) {
	// S3 DeleteObject не сообщает, существовал ли объект — проверяем явно
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("проверка объекта %s: %w", path, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return true, fmt.Errorf("удаление объекта %s: %w", path, err)
	}

	s.logger.Debug("Объект удалён", slog.String("path", path))
	return true, nil
}

// SignedReadURL возвращает подписанный URL на чтение объекта с ограниченным TTL.
// Если подпись недоступна (S3PresignEnabled=false) — ErrPresignUnavailable,
// вызывающий код откатывается на ObjectURL (degraded режим).
func (s *Store) SignedReadURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	if !s.presign {
		return "", ErrPresignUnavailable
	}

	result, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	}, func(po *s3.PresignOptions) {
		po.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("подпись URL для %s: %w", path, err)
	}

	return result.URL, nil
}

// ObjectURL возвращает прямой (неподписанный) URL объекта.
func (s *Store) ObjectURL(path string) string {
	if s.endpoint != "" {
		if s.pathStyle {
			return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, path)
		}
		return fmt.Sprintf("%s/%s", s.endpoint, path)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, path)
}

// isNotFound определяет, означает ли ошибка S3 отсутствие объекта.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
