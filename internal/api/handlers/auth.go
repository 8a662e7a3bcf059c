// auth.go — HTTP handlers аутентификации: login и refresh.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apierrors "github.com/cyberseed/soul-gateway/internal/api/errors"
	"github.com/cyberseed/soul-gateway/internal/api/middleware"
	"github.com/cyberseed/soul-gateway/internal/auth"
)

// loginRequest — тело POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// refreshRequest — тело POST /auth/refresh.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthHandler — обработчик endpoints аутентификации.
type AuthHandler struct {
	tokens   *auth.TokenService
	verifier auth.Verifier
	logger   *slog.Logger
}

// NewAuthHandler создаёт обработчик аутентификации.
func NewAuthHandler(tokens *auth.TokenService, verifier auth.Verifier, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		tokens:   tokens,
		verifier: verifier,
		logger:   logger.With(slog.String("component", "auth_handler")),
	}
}

// Login обрабатывает POST /auth/login.
// Проверяет учётные данные и выпускает пару токенов.
// owner_id совпадает с username: каждый пользователь — владелец
// собственного поддерева.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}
	if req.Username == "" || req.Password == "" {
		apierrors.ValidationError(w, "Поля username и password обязательны")
		return
	}

	if !h.verifier.Verify(req.Username, req.Password) {
		h.logger.Debug("Отказ по учётным данным", slog.String("username", req.Username))
		middleware.AuthFailuresTotal.WithLabelValues("credentials").Inc()
		apierrors.Unauthorized(w)
		return
	}

	pair, err := h.tokens.IssuePair(req.Username, req.Username, auth.RoleOwner)
	if err != nil {
		h.logger.Error("Ошибка выпуска токенов", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка выпуска токенов")
		return
	}

	h.logger.Info("Пользователь вошёл в систему", slog.String("username", req.Username))

	writeJSON(w, http.StatusOK, pair)
}

// Refresh обрабатывает POST /auth/refresh.
// Выпускает новую пару токенов по refresh токену. Любой отказ —
// одинаковый 401, причина только в логе.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}
	if req.RefreshToken == "" {
		apierrors.ValidationError(w, "Поле refresh_token обязательно")
		return
	}

	pair, err := h.tokens.Refresh(req.RefreshToken)
	if err != nil {
		h.logger.Debug("Отказ обновления токена", slog.String("error", err.Error()))
		middleware.AuthFailuresTotal.WithLabelValues("refresh").Inc()
		apierrors.Unauthorized(w)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// writeJSON записывает JSON-ответ с указанным статус-кодом.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
