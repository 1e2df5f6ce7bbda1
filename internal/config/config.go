// Пакет config — загрузка и валидация конфигурации Tutoria Files
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// MaxFileSizeDefault — максимальный размер загружаемого файла по умолчанию (15 MiB).
const MaxFileSizeDefault = 15 * 1024 * 1024

// Config содержит все параметры конфигурации Tutoria Files.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (с запасом на загрузку 15 MiB по медленному каналу)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- Object Storage (S3-совместимое) ---

	// Endpoint S3-совместимого хранилища (пустая строка — AWS S3)
	S3Endpoint string
	// Регион S3
	S3Region string
	// Имя bucket'а
	S3Bucket string
	// Access key
	S3AccessKey string
	// Secret key
	S3SecretKey string
	// Path-style адресация (true для MinIO и большинства совместимых хранилищ)
	S3PathStyle bool
	// Поддерживает ли credential mode выдачу подписанных URL.
	// При false GetDownloadURL возвращает обычный object URL (degraded режим).
	S3PresignEnabled bool
	// TTL подписанного URL для скачивания
	SignedURLTTL time.Duration

	// --- Аутентификация ---

	// Базовый URL удалённого сервиса валидации токенов (Tutoria Auth)
	AuthURL string
	// Таймаут запроса к сервису валидации токенов
	AuthTimeout time.Duration
	// Общий секрет для локальной HS256-валидации (fallback).
	// Пустая строка — локальная валидация отключена.
	JWTSecret string
	// Ожидаемый issuer JWT (пустая строка — не проверяется)
	JWTIssuer string
	// Ожидаемый audience JWT (пустая строка — не проверяется)
	JWTAudience string
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- Лимиты ---

	// Максимальный размер загружаемого файла (байт)
	MaxFileSize int64
	// Максимальное количество курсов преподавателя при выборке назначений.
	// Мягкий лимит против неограниченного fan-out, при достижении — warning в лог.
	MaxProfessorCourses int

	// --- Кэш метаданных ---

	// Максимальное количество записей в LRU-кэше
	CacheSize int
	// TTL записи кэша
	CacheTTL time.Duration

	// --- Dephealth ---

	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Лейбл isentry=yes для всех зависимостей
	DephealthIsEntry bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
//
//nolint:cyclop,funlen // линейная последовательность чтения переменных
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// TF_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("TF_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("TF_PORT: %w", err)
	}

	// TF_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("TF_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("TF_LOG_LEVEL: %w", err)
	}

	// TF_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("TF_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("TF_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	// TF_HTTP_READ_TIMEOUT — таймаут чтения (по умолчанию 120s: 15 MiB по медленному каналу)
	cfg.HTTPReadTimeout, err = getEnvDuration("TF_HTTP_READ_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TF_HTTP_READ_TIMEOUT: %w", err)
	}

	// TF_HTTP_WRITE_TIMEOUT — таймаут записи (по умолчанию 60s)
	cfg.HTTPWriteTimeout, err = getEnvDuration("TF_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TF_HTTP_WRITE_TIMEOUT: %w", err)
	}

	// TF_HTTP_IDLE_TIMEOUT — таймаут простоя (по умолчанию 120s)
	cfg.HTTPIdleTimeout, err = getEnvDuration("TF_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TF_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// TF_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("TF_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TF_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost, err = getEnvRequired("TF_DB_HOST")
	if err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("TF_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("TF_DB_PORT: %w", err)
	}
	cfg.DBName, err = getEnvRequired("TF_DB_NAME")
	if err != nil {
		return nil, err
	}
	cfg.DBUser, err = getEnvRequired("TF_DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.DBPassword, err = getEnvRequired("TF_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("TF_DB_SSL_MODE", "disable")

	// --- Object Storage ---

	cfg.S3Endpoint = getEnvDefault("TF_S3_ENDPOINT", "")
	cfg.S3Region = getEnvDefault("TF_S3_REGION", "us-east-1")
	cfg.S3Bucket, err = getEnvRequired("TF_S3_BUCKET")
	if err != nil {
		return nil, err
	}
	cfg.S3AccessKey, err = getEnvRequired("TF_S3_ACCESS_KEY")
	if err != nil {
		return nil, err
	}
	cfg.S3SecretKey, err = getEnvRequired("TF_S3_SECRET_KEY")
	if err != nil {
		return nil, err
	}
	cfg.S3PathStyle, err = getEnvBool("TF_S3_PATH_STYLE", true)
	if err != nil {
		return nil, fmt.Errorf("TF_S3_PATH_STYLE: %w", err)
	}
	cfg.S3PresignEnabled, err = getEnvBool("TF_S3_PRESIGN_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("TF_S3_PRESIGN_ENABLED: %w", err)
	}

	// TF_SIGNED_URL_TTL — время жизни подписанного URL (по умолчанию 1h)
	cfg.SignedURLTTL, err = getEnvDuration("TF_SIGNED_URL_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("TF_SIGNED_URL_TTL: %w", err)
	}

	// --- Аутентификация ---

	cfg.AuthURL, err = getEnvRequired("TF_AUTH_URL")
	if err != nil {
		return nil, err
	}

	// TF_AUTH_TIMEOUT — таймаут интроспекции токена (по умолчанию 5s)
	cfg.AuthTimeout, err = getEnvDuration("TF_AUTH_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TF_AUTH_TIMEOUT: %w", err)
	}

	cfg.JWTSecret = getEnvDefault("TF_JWT_SECRET", "")
	cfg.JWTIssuer = getEnvDefault("TF_JWT_ISSUER", "")
	cfg.JWTAudience = getEnvDefault("TF_JWT_AUDIENCE", "")

	// TF_JWT_LEEWAY — допустимое отклонение времени (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("TF_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TF_JWT_LEEWAY: %w", err)
	}

	// --- Лимиты ---

	// TF_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 15 MiB)
	cfg.MaxFileSize, err = getEnvInt64("TF_MAX_FILE_SIZE", MaxFileSizeDefault)
	if err != nil {
		return nil, fmt.Errorf("TF_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("TF_MAX_FILE_SIZE: значение должно быть > 0")
	}

	// TF_MAX_PROFESSOR_COURSES — мягкий лимит выборки курсов преподавателя (по умолчанию 1000)
	cfg.MaxProfessorCourses, err = getEnvInt("TF_MAX_PROFESSOR_COURSES", 1000)
	if err != nil {
		return nil, fmt.Errorf("TF_MAX_PROFESSOR_COURSES: %w", err)
	}
	if cfg.MaxProfessorCourses <= 0 {
		return nil, fmt.Errorf("TF_MAX_PROFESSOR_COURSES: значение должно быть > 0")
	}

	// --- Кэш метаданных ---

	cfg.CacheSize, err = getEnvInt("TF_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("TF_CACHE_SIZE: %w", err)
	}
	cfg.CacheTTL, err = getEnvDuration("TF_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("TF_CACHE_TTL: %w", err)
	}

	// --- Dephealth ---

	cfg.DephealthGroup = getEnvDefault("TF_DEPHEALTH_GROUP", "tutoria")
	cfg.DephealthCheckInterval, err = getEnvDuration("TF_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TF_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthIsEntry, err = getEnvBool("TF_DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("TF_DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL (для dephealth-лейблов).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%d/%s?sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// LocalValidationEnabled сообщает, настроена ли локальная fallback-валидация токенов.
func (c *Config) LocalValidationEnabled() bool {
	return c.JWTSecret != ""
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64-значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
