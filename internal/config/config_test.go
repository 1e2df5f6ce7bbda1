package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

// setEnvVars устанавливает переменные окружения для теста и возвращает
// функцию очистки. Всегда вызывать defer cleanup().
func setEnvVars(t *testing.T, vars map[string]string) func() {
	t.Helper()

	// Сохраняем оригинальные значения
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for k := range vars {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
	}

	// Устанавливаем новые
	for k, v := range vars {
		os.Setenv(k, v)
	}

	return func() {
		for k := range vars {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// clearAllTFEnvVars очищает все переменные окружения TF_* для чистого теста.
func clearAllTFEnvVars(t *testing.T) func() {
	t.Helper()
	keys := []string{
		"TF_PORT", "TF_LOG_LEVEL", "TF_LOG_FORMAT",
		"TF_HTTP_READ_TIMEOUT", "TF_HTTP_WRITE_TIMEOUT", "TF_HTTP_IDLE_TIMEOUT",
		"TF_SHUTDOWN_TIMEOUT",
		"TF_DB_HOST", "TF_DB_PORT", "TF_DB_NAME", "TF_DB_USER", "TF_DB_PASSWORD", "TF_DB_SSL_MODE",
		"TF_S3_ENDPOINT", "TF_S3_REGION", "TF_S3_BUCKET", "TF_S3_ACCESS_KEY", "TF_S3_SECRET_KEY",
		"TF_S3_PATH_STYLE", "TF_S3_PRESIGN_ENABLED", "TF_SIGNED_URL_TTL",
		"TF_AUTH_URL", "TF_AUTH_TIMEOUT",
		"TF_JWT_SECRET", "TF_JWT_ISSUER", "TF_JWT_AUDIENCE", "TF_JWT_LEEWAY",
		"TF_MAX_FILE_SIZE", "TF_MAX_PROFESSOR_COURSES",
		"TF_CACHE_SIZE", "TF_CACHE_TTL",
		"TF_DEPHEALTH_GROUP", "TF_DEPHEALTH_CHECK_INTERVAL", "TF_DEPHEALTH_ISENTRY",
	}
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
		os.Unsetenv(k)
	}
	return func() {
		for _, k := range keys {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// requiredEnvVars возвращает минимальный набор обязательных переменных.
func requiredEnvVars() map[string]string {
	return map[string]string{
		"TF_DB_HOST":       "localhost",
		"TF_DB_NAME":       "tutoria_files",
		"TF_DB_USER":       "tutoria",
		"TF_DB_PASSWORD":   "secret",
		"TF_S3_BUCKET":     "tutoria-files",
		"TF_S3_ACCESS_KEY": "minioadmin",
		"TF_S3_SECRET_KEY": "minioadmin",
		"TF_AUTH_URL":      "http://auth:8000",
	}
}

// TestLoad_Defaults проверяет значения по умолчанию при минимальной конфигурации.
func TestLoad_Defaults(t *testing.T) {
	defer clearAllTFEnvVars(t)()
	defer setEnvVars(t, requiredEnvVars())()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Port != 8040 {
		t.Errorf("ожидался Port=8040, получен %d", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("ожидался LogLevel=info, получен %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("ожидался LogFormat=json, получен %s", cfg.LogFormat)
	}
	if cfg.MaxFileSize != MaxFileSizeDefault {
		t.Errorf("ожидался MaxFileSize=%d, получен %d", int64(MaxFileSizeDefault), cfg.MaxFileSize)
	}
	if cfg.MaxProfessorCourses != 1000 {
		t.Errorf("ожидался MaxProfessorCourses=1000, получен %d", cfg.MaxProfessorCourses)
	}
	if cfg.SignedURLTTL != time.Hour {
		t.Errorf("ожидался SignedURLTTL=1h, получен %v", cfg.SignedURLTTL)
	}
	if cfg.AuthTimeout != 5*time.Second {
		t.Errorf("ожидался AuthTimeout=5s, получен %v", cfg.AuthTimeout)
	}
	if !cfg.S3PathStyle {
		t.Error("ожидался S3PathStyle=true по умолчанию")
	}
	if !cfg.S3PresignEnabled {
		t.Error("ожидался S3PresignEnabled=true по умолчанию")
	}
	if cfg.LocalValidationEnabled() {
		t.Error("локальная валидация должна быть отключена без TF_JWT_SECRET")
	}
}

// TestLoad_MissingRequired проверяет ошибку при отсутствии обязательной переменной.
func TestLoad_MissingRequired(t *testing.T) {
	defer clearAllTFEnvVars(t)()

	vars := requiredEnvVars()
	delete(vars, "TF_AUTH_URL")
	defer setEnvVars(t, vars)()

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка при отсутствии TF_AUTH_URL")
	}
}

// TestLoad_InvalidValues проверяет ошибки валидации значений.
func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "некорректный порт", key: "TF_PORT", val: "abc"},
		{name: "некорректный уровень логов", key: "TF_LOG_LEVEL", val: "trace"},
		{name: "некорректный формат логов", key: "TF_LOG_FORMAT", val: "xml"},
		{name: "некорректный таймаут", key: "TF_AUTH_TIMEOUT", val: "пять секунд"},
		{name: "отрицательный размер файла", key: "TF_MAX_FILE_SIZE", val: "-1"},
		{name: "нулевой лимит курсов", key: "TF_MAX_PROFESSOR_COURSES", val: "0"},
		{name: "некорректный bool", key: "TF_S3_PATH_STYLE", val: "да"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer clearAllTFEnvVars(t)()
			vars := requiredEnvVars()
			vars[tt.key] = tt.val
			defer setEnvVars(t, vars)()

			if _, err := Load(); err == nil {
				t.Fatalf("ожидалась ошибка для %s=%q", tt.key, tt.val)
			}
		})
	}
}

// TestLoad_Overrides проверяет переопределение значений из окружения.
func TestLoad_Overrides(t *testing.T) {
	defer clearAllTFEnvVars(t)()

	vars := requiredEnvVars()
	vars["TF_PORT"] = "9090"
	vars["TF_LOG_LEVEL"] = "debug"
	vars["TF_MAX_FILE_SIZE"] = "1048576"
	vars["TF_SIGNED_URL_TTL"] = "15m"
	vars["TF_JWT_SECRET"] = "shared-secret"
	defer setEnvVars(t, vars)()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("ожидался Port=9090, получен %d", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("ожидался LogLevel=debug, получен %v", cfg.LogLevel)
	}
	if cfg.MaxFileSize != 1048576 {
		t.Errorf("ожидался MaxFileSize=1048576, получен %d", cfg.MaxFileSize)
	}
	if cfg.SignedURLTTL != 15*time.Minute {
		t.Errorf("ожидался SignedURLTTL=15m, получен %v", cfg.SignedURLTTL)
	}
	if !cfg.LocalValidationEnabled() {
		t.Error("локальная валидация должна быть включена при заданном TF_JWT_SECRET")
	}
}

// TestDatabaseDSN проверяет формирование строки подключения.
func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "db.local",
		DBPort:     5433,
		DBName:     "files",
		DBUser:     "svc",
		DBPassword: "pw",
		DBSSLMode:  "require",
	}

	want := "host=db.local port=5433 dbname=files user=svc password=pw sslmode=require"
	if got := cfg.DatabaseDSN(); got != want {
		t.Errorf("DatabaseDSN() = %q, хотели %q", got, want)
	}
}
