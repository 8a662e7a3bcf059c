// Пакет config — загрузка и валидация конфигурации Soul Gateway
// из переменных окружения.
//
// Конфигурация строится один раз на старте и далее неизменяема:
// операционная логика никогда не читает окружение напрямую, все значения
// передаются в конструкторы компонентов, чтобы тесты могли инъецировать
// свои конфигурации.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Режимы окружения.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// defaultJWTSecret — секрет по умолчанию, допустим только в development.
const defaultJWTSecret = "dev-secret-key-change-in-production"

// Config содержит все параметры конфигурации Soul Gateway.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Корневая директория дерева хранения
	DataDir string
	// Секрет подписи JWT (HS256)
	JWTSecret string
	// Срок действия access токена
	AccessTokenTTL time.Duration
	// Срок действия refresh токена
	RefreshTokenTTL time.Duration
	// Максимальный размер загружаемого файла в байтах
	MaxUploadSize int64
	// Лимит запросов в минуту на клиента
	RateLimitPerMinute int
	// Окружение: development или production
	Environment string
	// Статическая таблица пользователей: username → bcrypt-хэш
	// (формат SG_USERS: "user1:hash1,user2:hash2")
	Users map[string]string
	// URL Ollama endpoint для LLM-коллаборатора
	OllamaURL string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Имя вершины графа текущего приложения в topologymetrics
	DephealthName string
}

// IsDevelopment сообщает, работает ли gateway в development-режиме.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// SG_PORT — порт HTTP-сервера (по умолчанию 8000)
	port, err := getEnvInt("SG_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("SG_PORT: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SG_PORT: значение %d вне допустимого диапазона", port)
	}
	cfg.Port = port

	// SG_DATA_DIR — корень дерева хранения (по умолчанию ./data)
	cfg.DataDir = getEnvDefault("SG_DATA_DIR", "./data")

	// SG_JWT_SECRET — секрет подписи токенов
	cfg.JWTSecret = getEnvDefault("SG_JWT_SECRET", defaultJWTSecret)

	// SG_ACCESS_TOKEN_EXPIRE_MINUTES — срок access токена (по умолчанию 60 минут)
	accessMinutes, err := getEnvInt("SG_ACCESS_TOKEN_EXPIRE_MINUTES", 60)
	if err != nil {
		return nil, fmt.Errorf("SG_ACCESS_TOKEN_EXPIRE_MINUTES: %w", err)
	}
	if accessMinutes <= 0 {
		return nil, fmt.Errorf("SG_ACCESS_TOKEN_EXPIRE_MINUTES: значение должно быть положительным")
	}
	cfg.AccessTokenTTL = time.Duration(accessMinutes) * time.Minute

	// SG_REFRESH_TOKEN_EXPIRE_DAYS — срок refresh токена (по умолчанию 30 дней)
	refreshDays, err := getEnvInt("SG_REFRESH_TOKEN_EXPIRE_DAYS", 30)
	if err != nil {
		return nil, fmt.Errorf("SG_REFRESH_TOKEN_EXPIRE_DAYS: %w", err)
	}
	if refreshDays <= 0 {
		return nil, fmt.Errorf("SG_REFRESH_TOKEN_EXPIRE_DAYS: значение должно быть положительным")
	}
	cfg.RefreshTokenTTL = time.Duration(refreshDays) * 24 * time.Hour

	// SG_MAX_UPLOAD_SIZE_MB — максимальный размер файла (по умолчанию 100 MB)
	maxUploadMB, err := getEnvInt64("SG_MAX_UPLOAD_SIZE_MB", 100)
	if err != nil {
		return nil, fmt.Errorf("SG_MAX_UPLOAD_SIZE_MB: %w", err)
	}
	if maxUploadMB <= 0 {
		return nil, fmt.Errorf("SG_MAX_UPLOAD_SIZE_MB: значение должно быть положительным")
	}
	cfg.MaxUploadSize = maxUploadMB * 1024 * 1024

	// SG_RATE_LIMIT_PER_MINUTE — лимит запросов (по умолчанию 120)
	cfg.RateLimitPerMinute, err = getEnvInt("SG_RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return nil, fmt.Errorf("SG_RATE_LIMIT_PER_MINUTE: %w", err)
	}
	if cfg.RateLimitPerMinute <= 0 {
		return nil, fmt.Errorf("SG_RATE_LIMIT_PER_MINUTE: значение должно быть положительным")
	}

	// SG_ENVIRONMENT — режим окружения (по умолчанию development)
	cfg.Environment = getEnvDefault("SG_ENVIRONMENT", EnvDevelopment)
	if cfg.Environment != EnvDevelopment && cfg.Environment != EnvProduction {
		return nil, fmt.Errorf("SG_ENVIRONMENT: недопустимое значение %q, допустимые: development, production", cfg.Environment)
	}

	// SG_USERS — статическая таблица пользователей (опционально)
	cfg.Users, err = parseUsers(getEnvDefault("SG_USERS", ""))
	if err != nil {
		return nil, fmt.Errorf("SG_USERS: %w", err)
	}

	// SG_OLLAMA_URL — endpoint LLM-коллаборатора (по умолчанию локальный Ollama)
	cfg.OllamaURL = getEnvDefault("SG_OLLAMA_URL", "http://localhost:11434")

	// SG_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SG_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SG_LOG_LEVEL: %w", err)
	}

	// SG_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SG_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SG_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// SG_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("SG_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SG_SHUTDOWN_TIMEOUT: %w", err)
	}

	// SG_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("SG_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SG_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// SG_DEPHEALTH_GROUP — имя группы в метриках (по умолчанию "soul-gateway")
	cfg.DephealthGroup = getEnvDefault("SG_DEPHEALTH_GROUP", "soul-gateway")

	// SG_DEPHEALTH_NAME — имя вершины графа (по умолчанию "soul-gateway")
	cfg.DephealthName = getEnvDefault("SG_DEPHEALTH_NAME", "soul-gateway")

	// В production секрет по умолчанию запрещён
	if cfg.Environment == EnvProduction && cfg.JWTSecret == defaultJWTSecret {
		return nil, fmt.Errorf("SG_JWT_SECRET: в production-режиме секрет по умолчанию недопустим")
	}

	return cfg, nil
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

// parseUsers разбирает таблицу пользователей из строки
// "user1:hash1,user2:hash2". Пустая строка — пустая таблица.
func parseUsers(raw string) (map[string]string, error) {
	users := make(map[string]string)
	if raw == "" {
		return users, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		name, hash, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || name == "" || hash == "" {
			return nil, fmt.Errorf("некорректная запись %q, ожидается формат user:bcrypt-hash", pair)
		}
		users[name] = hash
	}
	return users, nil
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

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
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
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
