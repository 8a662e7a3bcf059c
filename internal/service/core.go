// core.go — оркестрация core-операций: транскрипция, построение
// RAG-индекса и chat (RAG + LLM).
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apierrors "github.com/cyberseed/soul-gateway/internal/api/errors"
	"github.com/cyberseed/soul-gateway/internal/core/llm"
	"github.com/cyberseed/soul-gateway/internal/core/rag"
	"github.com/cyberseed/soul-gateway/internal/core/transcribe"
	"github.com/cyberseed/soul-gateway/internal/storage/scope"
	"github.com/cyberseed/soul-gateway/internal/storage/soulstore"
)

// TranscribeParams — параметры транскрипции.
type TranscribeParams struct {
	// Filename — имя аудиофайла в категории uploads
	Filename string
	// Model — модель транскрипции (опционально)
	Model string
	// Language — язык аудио (опционально)
	Language string
}

// TranscribeResult — результат транскрипции с путём к сохранённому транскрипту.
type TranscribeResult struct {
	Text               string
	Segments           []transcribe.Segment
	TranscriptFilename string
}

// ChatParams — параметры chat-запроса.
type ChatParams struct {
	Query          string
	TopK           int
	MaxTokens      int
	Temperature    float64
	IncludeSources bool
}

// ChatResult — результат chat-запроса.
type ChatResult struct {
	ResponseText          string
	UsedDocs              []rag.Document
	HasKnowledgeBase      bool
	TotalIndexedDocuments int
}

// CoreService — оркестрация core-операций поверх хранилища
// и внешних коллабораторов. Проверку прав выполняет handler.
type CoreService struct {
	store       *soulstore.Store
	transcriber transcribe.Transcriber
	index       *rag.Index
	generator   llm.Generator
	logger      *slog.Logger
}

// NewCoreService создаёт сервис core-операций.
func NewCoreService(
	store *soulstore.Store,
	transcriber transcribe.Transcriber,
	index *rag.Index,
	generator llm.Generator,
	logger *slog.Logger,
) *CoreService {
	return &CoreService{
		store:       store,
		transcriber: transcriber,
		index:       index,
		generator:   generator,
		logger:      logger.With(slog.String("component", "core_service")),
	}
}

// Transcribe транскрибирует аудиофайл из категории uploads и сохраняет
// текст транскрипта в категорию transcripts того же soul.
// Имя транскрипта: {имя без расширения}_transcript.txt.
func (s *CoreService) Transcribe(ctx context.Context, ownerID, soulID string, params TranscribeParams) (*TranscribeResult, *OpError) {
	audioPath, err := s.store.Paths().FilePath(ownerID, soulID, scope.CategoryUploads, params.Filename)
	if err != nil {
		// FilePath валидирует и идентификаторы, и имя файла
		return nil, &OpError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    fmt.Sprintf("Недопустимые параметры транскрипции: %s", err.Error()),
		}
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, &OpError{
			StatusCode: 404,
			Code:       apierrors.CodeNotFound,
			Message:    fmt.Sprintf("Файл %s не найден в категории uploads", params.Filename),
		}
	}

	result, err := s.transcriber.Transcribe(ctx, audioPath, transcribe.Options{
		Model:    params.Model,
		Language: params.Language,
	})
	if err != nil {
		s.logger.Error("Ошибка транскрипции",
			slog.String("owner_id", ownerID),
			slog.String("soul_id", soulID),
			slog.String("filename", params.Filename),
			slog.String("error", err.Error()),
		)
		return nil, &OpError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка транскрипции",
		}
	}

	stem := strings.TrimSuffix(params.Filename, filepath.Ext(params.Filename))
	transcriptName := stem + "_transcript.txt"
	if _, err := s.store.SaveFile(ownerID, soulID, strings.NewReader(result.Text), transcriptName, scope.CategoryTranscripts, 0); err != nil {
		s.logger.Error("Ошибка сохранения транскрипта",
			slog.String("owner_id", ownerID),
			slog.String("soul_id", soulID),
			slog.String("filename", transcriptName),
			slog.String("error", err.Error()),
		)
		return nil, &OpError{
			StatusCode: 500,
			Code:       apierrors.CodeStorageError,
			Message:    "Ошибка сохранения транскрипта",
		}
	}

	s.logger.Info("Аудио транскрибировано",
		slog.String("owner_id", ownerID),
		slog.String("soul_id", soulID),
		slog.String("audio", params.Filename),
		slog.String("transcript", transcriptName),
	)

	return &TranscribeResult{
		Text:               result.Text,
		Segments:           result.Segments,
		TranscriptFilename: transcriptName,
	}, nil
}

// Train строит или обновляет RAG-индекс soul.
func (s *CoreService) Train(ctx context.Context, ownerID, soulID string) (*rag.BuildResult, *OpError) {
	result, err := s.index.BuildIndex(ctx, ownerID, soulID)
	if err != nil {
		if scope.IsInvalidInput(err) {
			return nil, &OpError{
				StatusCode: 400,
				Code:       apierrors.CodeValidationError,
				Message:    fmt.Sprintf("Недопустимые параметры запроса: %s", err.Error()),
			}
		}
		s.logger.Error("Ошибка построения индекса",
			slog.String("owner_id", ownerID),
			slog.String("soul_id", soulID),
			slog.String("error", err.Error()),
		)
		return nil, &OpError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка построения индекса",
		}
	}
	return result, nil
}

// Chat выполняет chat-запрос: состояние индекса → выборка документов →
// генерация ответа LLM с контекстом из найденных документов.
func (s *CoreService) Chat(ctx context.Context, ownerID, soulID string, params ChatParams) (*ChatResult, *OpError) {
	if params.Query == "" {
		return nil, &OpError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    "Пустой запрос",
		}
	}

	status, err := s.index.Status(ownerID, soulID)
	if err != nil {
		if scope.IsInvalidInput(err) {
			return nil, &OpError{
				StatusCode: 400,
				Code:       apierrors.CodeValidationError,
				Message:    fmt.Sprintf("Недопустимые параметры запроса: %s", err.Error()),
			}
		}
		return nil, &OpError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка проверки индекса",
		}
	}

	var docs []rag.Document
	if status.HasIndex && params.IncludeSources {
		docs, err = s.index.Query(ctx, ownerID, soulID, params.Query, params.TopK)
		if err != nil {
			return nil, &OpError{
				StatusCode: 500,
				Code:       apierrors.CodeInternalError,
				Message:    "Ошибка запроса к индексу",
			}
		}
	}

	ragContext := make([]string, 0, len(docs))
	for _, doc := range docs {
		ragContext = append(ragContext, doc.Content)
	}

	responseText, err := s.generator.Generate(ctx, params.Query, llm.GenerateOptions{
		Context:     ragContext,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	})
	if err != nil {
		s.logger.Error("Ошибка генерации ответа",
			slog.String("owner_id", ownerID),
			slog.String("soul_id", soulID),
			slog.String("error", err.Error()),
		)
		return nil, &OpError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка генерации ответа",
		}
	}

	s.logger.Info("Chat-ответ сгенерирован",
		slog.String("owner_id", ownerID),
		slog.String("soul_id", soulID),
		slog.Bool("has_knowledge_base", status.HasIndex),
	)

	usedDocs := docs
	if usedDocs == nil {
		usedDocs = []rag.Document{}
	}

	return &ChatResult{
		ResponseText:          responseText,
		UsedDocs:              usedDocs,
		HasKnowledgeBase:      status.HasIndex,
		TotalIndexedDocuments: status.IndexedDocuments,
	}, nil
}
