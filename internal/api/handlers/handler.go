// Пакет handlers — HTTP handlers Soul Gateway.
// handler.go — общие типы ответов и проверка прав доступа к владельцу.
package handlers

import (
	"net/http"
	"time"

	apierrors "github.com/cyberseed/soul-gateway/internal/api/errors"
	"github.com/cyberseed/soul-gateway/internal/api/middleware"
	"github.com/cyberseed/soul-gateway/internal/auth"
	"github.com/cyberseed/soul-gateway/internal/domain/model"
)

// fileInfoResponse — представление файла в API-ответах.
type fileInfoResponse struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"created_at"`
	Category  string `json:"category"`
}

// deleteResponse — стандартный ответ операций удаления.
type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// toFileInfo преобразует доменную модель в API-представление.
func toFileInfo(f model.StoredFile) fileInfoResponse {
	return fileInfoResponse{
		Filename:  f.Filename,
		Size:      f.Size,
		CreatedAt: f.CreatedAt.UTC().Format(time.RFC3339),
		Category:  string(f.Category),
	}
}

// authorizeOwner извлекает claims из контекста и проверяет право доступа
// к поддереву владельца. При отказе пишет ответ (401/403) и возвращает nil.
//
// Проверка выполняется до любого обращения к хранилищу: запрет по
// владельцу всегда 403 и никогда не деградирует в 404.
func authorizeOwner(w http.ResponseWriter, r *http.Request, ownerID string) *auth.Claims {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w)
		return nil
	}

	if err := auth.Authorize(claims, ownerID); err != nil {
		middleware.AuthFailuresTotal.WithLabelValues("forbidden").Inc()
		apierrors.Forbidden(w, "Доступ к данным этого владельца запрещён")
		return nil
	}

	return claims
}
