// Точка входа Soul Gateway — multi-tenant шлюза scoped-хранилища
// с JWT-авторизацией и core-операциями (транскрипция, RAG, chat).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cyberseed/soul-gateway/internal/api/handlers"
	"github.com/cyberseed/soul-gateway/internal/api/middleware"
	"github.com/cyberseed/soul-gateway/internal/auth"
	"github.com/cyberseed/soul-gateway/internal/config"
	"github.com/cyberseed/soul-gateway/internal/core/llm"
	"github.com/cyberseed/soul-gateway/internal/core/rag"
	"github.com/cyberseed/soul-gateway/internal/core/transcribe"
	"github.com/cyberseed/soul-gateway/internal/server"
	"github.com/cyberseed/soul-gateway/internal/service"
	"github.com/cyberseed/soul-gateway/internal/storage/soulstore"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Soul Gateway запускается",
		slog.String("version", config.Version),
		slog.String("environment", cfg.Environment),
		slog.String("data_dir", cfg.DataDir),
		slog.Int("port", cfg.Port),
	)

	// --- Инициализация компонентов ---

	// 1. Scoped-хранилище
	store, err := soulstore.New(cfg.DataDir, logger)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Токены и учётные данные
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// В development допускается вход dev/dev; статическая таблица
	// пользователей (SG_USERS) имеет приоритет, если задана
	var verifier auth.Verifier
	if len(cfg.Users) > 0 {
		verifier = auth.NewStaticVerifier(cfg.Users)
		logger.Info("Аутентификация по статической таблице пользователей",
			slog.Int("users", len(cfg.Users)),
		)
	} else {
		verifier = auth.NewDevVerifier(cfg.IsDevelopment())
		if cfg.IsDevelopment() {
			logger.Warn("Development-режим: разрешён вход dev/dev")
		}
	}

	// 3. Внешние коллабораторы
	generator := llm.NewOllamaClient(cfg.OllamaURL, logger)
	transcriber := transcribe.NewPlaceholder(logger)
	index := rag.New(cfg.DataDir, logger)

	// 4. Сервисы
	uploadSvc := service.NewUploadService(store, cfg.MaxUploadSize, logger)
	coreSvc := service.NewCoreService(store, transcriber, index, generator, logger)

	// 5. topologymetrics — мониторинг зависимостей (Ollama)
	ctx := context.Background()
	dephealthSvc, dephealthErr := service.NewDephealthService(
		cfg.DephealthName,
		cfg.DephealthGroup,
		cfg.OllamaURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("ollama_url", cfg.OllamaURL),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 6. Handlers
	h := server.Handlers{
		Auth:   handlers.NewAuthHandler(tokens, verifier, logger),
		Files:  handlers.NewFilesHandler(uploadSvc, store, logger),
		Souls:  handlers.NewSoulsHandler(coreSvc, logger),
		System: handlers.NewSystemHandler(store, generator, transcriber, index, logger),
	}

	// 7. JWT middleware
	jwtAuth := middleware.NewJWTAuth(tokens, logger)

	// 8. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, h, jwtAuth)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Soul Gateway остановлен")
}
