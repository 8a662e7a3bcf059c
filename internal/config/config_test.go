package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

// clearAllSGEnvVars очищает все переменные окружения SG_* для чистого теста
// и возвращает функцию восстановления. Всегда вызывать defer cleanup().
func clearAllSGEnvVars(t *testing.T) func() {
	t.Helper()
	keys := []string{
		"SG_PORT", "SG_DATA_DIR", "SG_JWT_SECRET",
		"SG_ACCESS_TOKEN_EXPIRE_MINUTES", "SG_REFRESH_TOKEN_EXPIRE_DAYS",
		"SG_MAX_UPLOAD_SIZE_MB", "SG_RATE_LIMIT_PER_MINUTE",
		"SG_ENVIRONMENT", "SG_USERS", "SG_OLLAMA_URL",
		"SG_LOG_LEVEL", "SG_LOG_FORMAT", "SG_SHUTDOWN_TIMEOUT",
		"SG_DEPHEALTH_CHECK_INTERVAL", "SG_DEPHEALTH_GROUP", "SG_DEPHEALTH_NAME",
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

// TestLoad_DefaultValues проверяет значения по умолчанию.
func TestLoad_DefaultValues(t *testing.T) {
	cleanup := clearAllSGEnvVars(t)
	defer cleanup()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Port != 8000 {
		t.Errorf("Port: ожидалось 8000, получено %d", cfg.Port)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("DataDir: получено %q", cfg.DataDir)
	}
	if cfg.AccessTokenTTL != time.Hour {
		t.Errorf("AccessTokenTTL: ожидался 1h, получено %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 30*24*time.Hour {
		t.Errorf("RefreshTokenTTL: ожидалось 30 дней, получено %v", cfg.RefreshTokenTTL)
	}
	if cfg.MaxUploadSize != 100*1024*1024 {
		t.Errorf("MaxUploadSize: ожидалось 100 MB, получено %d", cfg.MaxUploadSize)
	}
	if cfg.Environment != EnvDevelopment || !cfg.IsDevelopment() {
		t.Errorf("Environment: ожидался development, получено %q", cfg.Environment)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: ожидался info, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: получено %q", cfg.LogFormat)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Errorf("RateLimitPerMinute: ожидалось 120, получено %d", cfg.RateLimitPerMinute)
	}
}

// TestLoad_CustomValues проверяет переопределение через окружение.
func TestLoad_CustomValues(t *testing.T) {
	cleanup := clearAllSGEnvVars(t)
	defer cleanup()

	os.Setenv("SG_PORT", "9000")
	os.Setenv("SG_ACCESS_TOKEN_EXPIRE_MINUTES", "15")
	os.Setenv("SG_REFRESH_TOKEN_EXPIRE_DAYS", "7")
	os.Setenv("SG_MAX_UPLOAD_SIZE_MB", "10")
	os.Setenv("SG_ENVIRONMENT", "production")
	os.Setenv("SG_JWT_SECRET", "реальный-секрет")
	os.Setenv("SG_LOG_FORMAT", "text")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port: получено %d", cfg.Port)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("AccessTokenTTL: получено %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("RefreshTokenTTL: получено %v", cfg.RefreshTokenTTL)
	}
	if cfg.MaxUploadSize != 10*1024*1024 {
		t.Errorf("MaxUploadSize: получено %d", cfg.MaxUploadSize)
	}
	if cfg.IsDevelopment() {
		t.Error("production не должен быть development")
	}
}

// TestLoad_ProductionRequiresSecret проверяет запрет секрета по умолчанию
// в production-режиме.
func TestLoad_ProductionRequiresSecret(t *testing.T) {
	cleanup := clearAllSGEnvVars(t)
	defer cleanup()

	os.Setenv("SG_ENVIRONMENT", "production")

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка: секрет по умолчанию в production")
	}
}

// TestLoad_InvalidValues проверяет отказ для некорректных значений.
func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"нечисловой порт", "SG_PORT", "abc"},
		{"отрицательный срок access", "SG_ACCESS_TOKEN_EXPIRE_MINUTES", "-5"},
		{"нулевой размер загрузки", "SG_MAX_UPLOAD_SIZE_MB", "0"},
		{"неизвестное окружение", "SG_ENVIRONMENT", "staging"},
		{"неизвестный уровень логов", "SG_LOG_LEVEL", "verbose"},
		{"неизвестный формат логов", "SG_LOG_FORMAT", "xml"},
		{"некорректная длительность", "SG_SHUTDOWN_TIMEOUT", "пять секунд"},
		{"некорректная таблица пользователей", "SG_USERS", "без-двоеточия"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cleanup := clearAllSGEnvVars(t)
			defer cleanup()

			os.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%s: ожидалась ошибка", tc.key, tc.value)
			}
		})
	}
}

// TestLoad_Users проверяет разбор статической таблицы пользователей.
func TestLoad_Users(t *testing.T) {
	cleanup := clearAllSGEnvVars(t)
	defer cleanup()

	os.Setenv("SG_USERS", "alice:$2a$10$hashA, bob:$2a$10$hashB")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if len(cfg.Users) != 2 {
		t.Fatalf("ожидалось 2 пользователя, получено %d", len(cfg.Users))
	}
	if cfg.Users["alice"] != "$2a$10$hashA" || cfg.Users["bob"] != "$2a$10$hashB" {
		t.Errorf("неожиданная таблица: %v", cfg.Users)
	}
}
