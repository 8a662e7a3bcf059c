// files.go — HTTP handlers файловых операций scoped-хранилища:
// upload, list, delete файла / данных soul / данных владельца.
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/cyberseed/soul-gateway/internal/api/errors"
	"github.com/cyberseed/soul-gateway/internal/api/middleware"
	"github.com/cyberseed/soul-gateway/internal/service"
	"github.com/cyberseed/soul-gateway/internal/storage/scope"
	"github.com/cyberseed/soul-gateway/internal/storage/soulstore"
)

// uploadResponse — ответ POST /souls/{owner_id}/{soul_id}/upload.
type uploadResponse struct {
	Files     []fileInfoResponse `json:"files"`
	Count     int                `json:"count"`
	TotalSize int64              `json:"total_size"`
}

// fileListResponse — ответ GET /souls/{owner_id}/{soul_id}/files.
type fileListResponse struct {
	Files     []fileInfoResponse `json:"files"`
	Count     int                `json:"count"`
	TotalSize int64              `json:"total_size"`
}

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	uploadSvc *service.UploadService
	store     *soulstore.Store
	logger    *slog.Logger
}

// NewFilesHandler создаёт обработчик файловых endpoints.
func NewFilesHandler(uploadSvc *service.UploadService, store *soulstore.Store, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		uploadSvc: uploadSvc,
		store:     store,
		logger:    logger.With(slog.String("component", "files_handler")),
	}
}

// Upload обрабатывает POST /souls/{owner_id}/{soul_id}/upload.
// Multipart form, поле files — один или несколько файлов.
// Все файлы сохраняются в категорию uploads.
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")
	soulID := chi.URLParam(r, "soul_id")
	if authorizeOwner(w, r, ownerID) == nil {
		return
	}

	// 32 MB — буфер в памяти, остальное уходит во временные файлы
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		apierrors.ValidationError(w, "Поле 'files' обязательно")
		return
	}

	parts := make([]service.UploadPart, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		f, err := header.Open()
		if err != nil {
			apierrors.ValidationError(w, fmt.Sprintf("Ошибка чтения файла %q", header.Filename))
			return
		}
		defer f.Close()
		parts = append(parts, service.UploadPart{Reader: f, Filename: header.Filename})
	}

	result, opErr := h.uploadSvc.Upload(ownerID, soulID, parts)
	if opErr != nil {
		apierrors.WriteError(w, opErr.StatusCode, opErr.Code, opErr.Message)
		return
	}

	resp := uploadResponse{
		Files:     make([]fileInfoResponse, 0, len(result.Files)),
		Count:     len(result.Files),
		TotalSize: result.TotalSize,
	}
	for _, f := range result.Files {
		resp.Files = append(resp.Files, toFileInfo(f))
	}

	writeJSON(w, http.StatusOK, resp)
}

// List обрабатывает GET /souls/{owner_id}/{soul_id}/files.
// Query-параметр category (опционально) фильтрует по одной категории;
// без него возвращаются все три.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")
	soulID := chi.URLParam(r, "soul_id")
	if authorizeOwner(w, r, ownerID) == nil {
		return
	}

	var categoryFilter *scope.Category
	if raw := r.URL.Query().Get("category"); raw != "" {
		category, err := scope.ParseCategory(raw)
		if err != nil {
			apierrors.ValidationError(w, fmt.Sprintf("Недопустимая категория %q (допустимые: uploads, transcripts, index)", raw))
			return
		}
		categoryFilter = &category
	}

	files, err := h.store.ListFiles(ownerID, soulID, categoryFilter)
	if err != nil {
		if scope.IsInvalidInput(err) {
			apierrors.ValidationError(w, fmt.Sprintf("Недопустимые параметры запроса: %s", err.Error()))
			return
		}
		middleware.StorageOperationsTotal.WithLabelValues("list", "error").Inc()
		h.logger.Error("Ошибка чтения списка файлов", slog.String("error", err.Error()))
		apierrors.StorageError(w, "Ошибка чтения списка файлов")
		return
	}
	middleware.StorageOperationsTotal.WithLabelValues("list", "success").Inc()

	resp := fileListResponse{Files: make([]fileInfoResponse, 0, len(files))}
	for _, f := range files {
		resp.Files = append(resp.Files, toFileInfo(f))
		resp.TotalSize += f.Size
	}
	resp.Count = len(files)

	writeJSON(w, http.StatusOK, resp)
}

// DeleteFile обрабатывает DELETE /souls/{owner_id}/{soul_id}/files/{filename}.
// Query-параметр category обязателен. Отсутствующий файл — 404.
func (h *FilesHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")
	soulID := chi.URLParam(r, "soul_id")
	filename := chi.URLParam(r, "filename")
	if authorizeOwner(w, r, ownerID) == nil {
		return
	}

	raw := r.URL.Query().Get("category")
	if raw == "" {
		apierrors.ValidationError(w, "Query-параметр category обязателен")
		return
	}
	category, err := scope.ParseCategory(raw)
	if err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Недопустимая категория %q", raw))
		return
	}

	deleted, err := h.store.DeleteFile(ownerID, soulID, filename, category)
	if err != nil {
		if scope.IsInvalidInput(err) {
			apierrors.ValidationError(w, fmt.Sprintf("Недопустимые параметры запроса: %s", err.Error()))
			return
		}
		middleware.StorageOperationsTotal.WithLabelValues("delete", "error").Inc()
		h.logger.Error("Ошибка удаления файла", slog.String("error", err.Error()))
		apierrors.StorageError(w, "Ошибка удаления файла")
		return
	}
	if !deleted {
		middleware.StorageOperationsTotal.WithLabelValues("delete", "not_found").Inc()
		apierrors.NotFound(w, "Файл не найден")
		return
	}
	middleware.StorageOperationsTotal.WithLabelValues("delete", "success").Inc()

	writeJSON(w, http.StatusOK, deleteResponse{
		Success: true,
		Message: fmt.Sprintf("Файл %s удалён", filename),
	})
}

// DeleteSoulData обрабатывает DELETE /souls/{owner_id}/{soul_id}/data.
// Удаляет всё поддерево soul со всеми категориями.
func (h *FilesHandler) DeleteSoulData(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")
	soulID := chi.URLParam(r, "soul_id")
	if authorizeOwner(w, r, ownerID) == nil {
		return
	}

	deleted, err := h.store.DeleteSoul(ownerID, soulID)
	if err != nil {
		if scope.IsInvalidInput(err) {
			apierrors.ValidationError(w, fmt.Sprintf("Недопустимые параметры запроса: %s", err.Error()))
			return
		}
		middleware.StorageOperationsTotal.WithLabelValues("delete_soul", "error").Inc()
		h.logger.Error("Ошибка удаления данных soul", slog.String("error", err.Error()))
		apierrors.StorageError(w, "Ошибка удаления данных soul")
		return
	}
	if !deleted {
		apierrors.NotFound(w, "Данные soul не найдены")
		return
	}
	middleware.StorageOperationsTotal.WithLabelValues("delete_soul", "success").Inc()

	writeJSON(w, http.StatusOK, deleteResponse{
		Success: true,
		Message: fmt.Sprintf("Все данные soul %s удалены", soulID),
	})
}

// DeleteOwnerData обрабатывает DELETE /owners/{owner_id}/data.
// Удаляет всё поддерево владельца со всеми souls.
func (h *FilesHandler) DeleteOwnerData(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")
	if authorizeOwner(w, r, ownerID) == nil {
		return
	}

	deleted, err := h.store.DeleteOwner(ownerID)
	if err != nil {
		if scope.IsInvalidInput(err) {
			apierrors.ValidationError(w, fmt.Sprintf("Недопустимые параметры запроса: %s", err.Error()))
			return
		}
		middleware.StorageOperationsTotal.WithLabelValues("delete_owner", "error").Inc()
		h.logger.Error("Ошибка удаления данных владельца", slog.String("error", err.Error()))
		apierrors.StorageError(w, "Ошибка удаления данных владельца")
		return
	}
	if !deleted {
		apierrors.NotFound(w, "Данные владельца не найдены")
		return
	}
	middleware.StorageOperationsTotal.WithLabelValues("delete_owner", "success").Inc()

	writeJSON(w, http.StatusOK, deleteResponse{
		Success: true,
		Message: fmt.Sprintf("Все данные владельца %s удалены", ownerID),
	})
}
