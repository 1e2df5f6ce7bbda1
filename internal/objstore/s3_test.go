package objstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
)

// TestObjectURL проверяет формирование прямого URL объекта.
func TestObjectURL(t *testing.T) {
	tests := []struct {
		name  string
		store *Store
		path  string
		want  string
	}{
		{
			name:  "path-style с кастомным endpoint",
			store: &Store{endpoint: "http://minio:9000", bucket: "tutoria-files", pathStyle: true},
			path:  "universities/1/courses/2/modules/3/abc.pdf",
			want:  "http://minio:9000/tutoria-files/universities/1/courses/2/modules/3/abc.pdf",
		},
		{
			name:  "virtual-host с кастомным endpoint",
			store: &Store{endpoint: "https://files.tutoria.chat", bucket: "tutoria-files", pathStyle: false},
			path:  "universities/1/courses/2/modules/3/abc.pdf",
			want:  "https://files.tutoria.chat/universities/1/courses/2/modules/3/abc.pdf",
		},
		{
			name:  "AWS S3 без endpoint",
			store: &Store{bucket: "tutoria-files", region: "eu-central-1"},
			path:  "universities/1/courses/2/modules/3/abc.pdf",
			want:  "https://tutoria-files.s3.eu-central-1.amazonaws.com/universities/1/courses/2/modules/3/abc.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.store.ObjectURL(tt.path); got != tt.want {
				t.Errorf("ObjectURL(%q) = %q, хотели %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestSignedReadURL_PresignDisabled проверяет ErrPresignUnavailable при выключенной подписи.
func TestSignedReadURL_PresignDisabled(t *testing.T) {
	s := &Store{presign: false}

	_, err := s.SignedReadURL(context.Background(), "some/path.pdf", 0)
	if !errors.Is(err, ErrPresignUnavailable) {
		t.Fatalf("ожидалась ErrPresignUnavailable, получена %v", err)
	}
}

// TestIsNotFound проверяет распознавание ошибок отсутствия объекта.
func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "NoSuchKey", err: &smithy.GenericAPIError{Code: "NoSuchKey"}, want: true},
		{name: "NotFound", err: &smithy.GenericAPIError{Code: "NotFound"}, want: true},
		{name: "AccessDenied", err: &smithy.GenericAPIError{Code: "AccessDenied"}, want: false},
		{name: "обёрнутая NoSuchKey", err: fmt.Errorf("запрос: %w", &smithy.GenericAPIError{Code: "NoSuchKey"}), want: true},
		{name: "прочая ошибка", err: errors.New("timeout"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFound(tt.err); got != tt.want {
				t.Errorf("isNotFound(%v) = %v, хотели %v", tt.err, got, tt.want)
			}
		})
	}
}
