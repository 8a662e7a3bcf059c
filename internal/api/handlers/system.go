// system.go — системные endpoints: health, статус gateway, статус LLM,
// статус soul. Health и статусы системы публичные, статус soul — только
// для владельца или администратора.
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/cyberseed/soul-gateway/internal/api/errors"
	"github.com/cyberseed/soul-gateway/internal/config"
	"github.com/cyberseed/soul-gateway/internal/core/llm"
	"github.com/cyberseed/soul-gateway/internal/core/rag"
	"github.com/cyberseed/soul-gateway/internal/core/transcribe"
	"github.com/cyberseed/soul-gateway/internal/domain/model"
	"github.com/cyberseed/soul-gateway/internal/storage/scope"
	"github.com/cyberseed/soul-gateway/internal/storage/soulstore"
)

// diskInfo — ёмкость диска под деревом хранения.
type diskInfo struct {
	TotalBytes     int64 `json:"total_bytes"`
	UsedBytes      int64 `json:"used_bytes"`
	AvailableBytes int64 `json:"available_bytes"`
}

// storageStatus — состояние хранилища в ответе /status.
type storageStatus struct {
	Available bool      `json:"available"`
	DataDir   string    `json:"data_dir"`
	Writable  bool      `json:"writable"`
	Disk      *diskInfo `json:"disk,omitempty"`
}

// systemStatusResponse — ответ GET /status.
type systemStatusResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Storage       storageStatus     `json:"storage"`
	LLM           llm.Status        `json:"llm"`
	Transcription transcribe.Status `json:"transcription"`
}

// soulStatusResponse — ответ GET /status/soul/{owner_id}/{soul_id}.
type soulStatusResponse struct {
	OwnerID string             `json:"owner_id"`
	SoulID  string             `json:"soul_id"`
	Storage model.StorageStats `json:"storage"`
	RAG     *rag.IndexStatus   `json:"rag"`
}

// SystemHandler — обработчик системных endpoints.
type SystemHandler struct {
	store       *soulstore.Store
	generator   llm.Generator
	transcriber transcribe.Transcriber
	index       *rag.Index
	logger      *slog.Logger
}

// NewSystemHandler создаёт обработчик системных endpoints.
func NewSystemHandler(
	store *soulstore.Store,
	generator llm.Generator,
	transcriber transcribe.Transcriber,
	index *rag.Index,
	logger *slog.Logger,
) *SystemHandler {
	return &SystemHandler{
		store:       store,
		generator:   generator,
		transcriber: transcriber,
		index:       index,
		logger:      logger.With(slog.String("component", "system_handler")),
	}
}

// Health обрабатывает GET /health.
// Возвращает 200, если процесс gateway жив. Не проверяет зависимости.
func (h *SystemHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   config.Version,
		"service":   "soul-gateway",
	})
}

// SystemStatus обрабатывает GET /status.
// Сводное состояние gateway: хранилище (включая ёмкость диска),
// LLM и транскрипция.
func (h *SystemHandler) SystemStatus(w http.ResponseWriter, _ *http.Request) {
	dataDir := h.store.DataDir()

	storage := storageStatus{
		DataDir: dataDir,
	}
	if info, err := os.Stat(dataDir); err == nil && info.IsDir() {
		storage.Available = true
		storage.Writable = isWritable(dataDir)
	}
	if total, used, available, err := getDiskUsage(dataDir); err == nil {
		storage.Disk = &diskInfo{
			TotalBytes:     total,
			UsedBytes:      used,
			AvailableBytes: available,
		}
	}

	status := "operational"
	if !storage.Available || !storage.Writable {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, systemStatusResponse{
		Status:        status,
		Version:       config.Version,
		Storage:       storage,
		LLM:           h.generator.CheckStatus(),
		Transcription: h.transcriber.CheckStatus(),
	})
}

// LLMStatus обрабатывает GET /status/llm.
func (h *SystemHandler) LLMStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.generator.CheckStatus())
}

// SoulStatus обрабатывает GET /status/soul/{owner_id}/{soul_id}.
// Статистика хранилища по категориям плюс состояние RAG-индекса.
func (h *SystemHandler) SoulStatus(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")
	soulID := chi.URLParam(r, "soul_id")
	if authorizeOwner(w, r, ownerID) == nil {
		return
	}

	stats, err := h.store.Stats(ownerID, soulID)
	if err != nil {
		if scope.IsInvalidInput(err) {
			apierrors.ValidationError(w, fmt.Sprintf("Недопустимые параметры запроса: %s", err.Error()))
			return
		}
		h.logger.Error("Ошибка чтения статистики", slog.String("error", err.Error()))
		apierrors.StorageError(w, "Ошибка чтения статистики хранилища")
		return
	}

	ragStatus, err := h.index.Status(ownerID, soulID)
	if err != nil {
		h.logger.Error("Ошибка чтения состояния индекса", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка чтения состояния индекса")
		return
	}

	writeJSON(w, http.StatusOK, soulStatusResponse{
		OwnerID: ownerID,
		SoulID:  soulID,
		Storage: stats,
		RAG:     ragStatus,
	})
}

// isWritable проверяет возможность записи в директорию пробным файлом.
func isWritable(dir string) bool {
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return true
}
