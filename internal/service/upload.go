// upload.go — сервис загрузки файлов в scoped-хранилище.
package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	apierrors "github.com/cyberseed/soul-gateway/internal/api/errors"
	"github.com/cyberseed/soul-gateway/internal/api/middleware"
	"github.com/cyberseed/soul-gateway/internal/domain/model"
	"github.com/cyberseed/soul-gateway/internal/storage/scope"
	"github.com/cyberseed/soul-gateway/internal/storage/soulstore"
)

// UploadPart — один файл из multipart-запроса.
type UploadPart struct {
	// Reader — поток данных файла
	Reader io.Reader
	// Filename — имя файла из multipart part
	Filename string
}

// UploadResult — результат загрузки пачки файлов.
type UploadResult struct {
	Files     []model.StoredFile
	TotalSize int64
}

// UploadService — загрузка файлов в категорию uploads своего soul.
// Проверку прав доступа выполняет handler до вызова сервиса.
type UploadService struct {
	store         *soulstore.Store
	maxUploadSize int64
	logger        *slog.Logger
}

// NewUploadService создаёт сервис загрузки файлов.
func NewUploadService(store *soulstore.Store, maxUploadSize int64, logger *slog.Logger) *UploadService {
	return &UploadService{
		store:         store,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "upload_service")),
	}
}

// Upload сохраняет файлы в категорию uploads указанного soul.
//
// Поток на каждый файл:
//  1. Валидация имени файла
//  2. Проверка лимита размера (io.LimitReader — поток не буферизуется)
//  3. SaveFile (temp + fsync + rename, перезапись целиком)
//
// Ошибка на N-м файле прерывает пачку: уже сохранённые файлы остаются
// (перезапись идемпотентна, частичная пачка не откатывается).
func (s *UploadService) Upload(ownerID, soulID string, parts []UploadPart) (*UploadResult, *OpError) {
	if len(parts) == 0 {
		return nil, &OpError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    "Не передано ни одного файла",
		}
	}

	result := &UploadResult{}
	for _, part := range parts {
		if err := scope.ValidateFilename(part.Filename); err != nil {
			middleware.StorageOperationsTotal.WithLabelValues("save", "error").Inc()
			return nil, &OpError{
				StatusCode: 400,
				Code:       apierrors.CodeValidationError,
				Message:    fmt.Sprintf("Недопустимое имя файла %q", part.Filename),
			}
		}

		// Лимит проверяется на лету: читаем на один байт больше лимита,
		// превышение обнаруживается без загрузки всего потока в память.
		// Хранилище отклоняет превышение до rename: ранее сохранённый
		// файл с тем же именем остаётся нетронутым.
		limited := io.LimitReader(part.Reader, s.maxUploadSize+1)
		stored, err := s.store.SaveFile(ownerID, soulID, limited, part.Filename, scope.CategoryUploads, s.maxUploadSize)
		if err != nil {
			if errors.Is(err, soulstore.ErrFileTooLarge) {
				middleware.StorageOperationsTotal.WithLabelValues("save", "too_large").Inc()
				return nil, &OpError{
					StatusCode: 413,
					Code:       apierrors.CodeFileTooLarge,
					Message:    fmt.Sprintf("Файл %s превышает максимальный размер %d байт", part.Filename, s.maxUploadSize),
				}
			}
			if scope.IsInvalidInput(err) {
				middleware.StorageOperationsTotal.WithLabelValues("save", "error").Inc()
				return nil, &OpError{
					StatusCode: 400,
					Code:       apierrors.CodeValidationError,
					Message:    fmt.Sprintf("Недопустимые параметры запроса: %s", err.Error()),
				}
			}
			middleware.StorageOperationsTotal.WithLabelValues("save", "error").Inc()
			s.logger.Error("Ошибка сохранения файла",
				slog.String("owner_id", ownerID),
				slog.String("soul_id", soulID),
				slog.String("filename", part.Filename),
				slog.String("error", err.Error()),
			)
			return nil, &OpError{
				StatusCode: 500,
				Code:       apierrors.CodeStorageError,
				Message:    "Ошибка сохранения файла на диск",
			}
		}

		middleware.StorageOperationsTotal.WithLabelValues("save", "success").Inc()
		result.Files = append(result.Files, *stored)
		result.TotalSize += stored.Size
	}

	s.logger.Info("Файлы загружены",
		slog.String("owner_id", ownerID),
		slog.String("soul_id", soulID),
		slog.Int("count", len(result.Files)),
		slog.Int64("total_size", result.TotalSize),
	)

	return result, nil
}
