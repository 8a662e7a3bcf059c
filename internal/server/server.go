// Пакет server — HTTP-сервер Soul Gateway с graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cyberseed/soul-gateway/internal/api/handlers"
	"github.com/cyberseed/soul-gateway/internal/api/middleware"
	"github.com/cyberseed/soul-gateway/internal/config"
)

// Handlers — набор обработчиков, монтируемых в роутер.
type Handlers struct {
	Auth   *handlers.AuthHandler
	Files  *handlers.FilesHandler
	Souls  *handlers.SoulsHandler
	System *handlers.SystemHandler
}

// Server — HTTP-сервер Soul Gateway.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
//
// Порядок middleware: request logger → метрики → rate limiter.
// JWT-аутентификация накладывается только на tenant-scoped группы;
// login, refresh, health, status и metrics остаются публичными.
func New(cfg *config.Config, logger *slog.Logger, h Handlers, jwtAuth *middleware.JWTAuth) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.NewRateLimiter(cfg.RateLimitPerMinute).Middleware())

	// Публичные endpoints
	router.Post("/auth/login", h.Auth.Login)
	router.Post("/auth/refresh", h.Auth.Refresh)
	router.Get("/health", h.System.Health)
	router.Get("/status", h.System.SystemStatus)
	router.Get("/status/llm", h.System.LLMStatus)
	router.Handle("/metrics", promhttp.Handler())

	// Tenant-scoped endpoints — только с access токеном
	router.Group(func(r chi.Router) {
		r.Use(jwtAuth.Middleware())

		r.Route("/souls/{owner_id}/{soul_id}", func(r chi.Router) {
			r.Post("/upload", h.Files.Upload)
			r.Get("/files", h.Files.List)
			r.Delete("/files/{filename}", h.Files.DeleteFile)
			r.Delete("/data", h.Files.DeleteSoulData)
			r.Post("/transcribe", h.Souls.Transcribe)
			r.Post("/train", h.Souls.Train)
			r.Post("/chat", h.Souls.Chat)
		})

		r.Delete("/owners/{owner_id}/data", h.Files.DeleteOwnerData)
		r.Get("/status/soul/{owner_id}/{soul_id}", h.System.SoulStatus)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Handler возвращает корневой http.Handler сервера.
// Используется в тестах с httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown с таймаутом
// из конфигурации.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен", slog.String("addr", s.httpServer.Addr))

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
