// souls.go — HTTP handlers core-операций soul: transcribe, train, chat.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/cyberseed/soul-gateway/internal/api/errors"
	"github.com/cyberseed/soul-gateway/internal/core/rag"
	"github.com/cyberseed/soul-gateway/internal/core/transcribe"
	"github.com/cyberseed/soul-gateway/internal/service"
)

// transcribeRequest — тело POST /souls/{owner_id}/{soul_id}/transcribe.
type transcribeRequest struct {
	Filename string `json:"filename"`
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
}

// transcribeResponse — ответ транскрипции.
type transcribeResponse struct {
	Text               string               `json:"text"`
	Segments           []transcribe.Segment `json:"segments"`
	TranscriptFilename string               `json:"transcript_filename"`
}

// trainResponse — ответ построения индекса.
type trainResponse struct {
	Success          bool   `json:"success"`
	IndexedDocuments int    `json:"indexed_documents"`
	Message          string `json:"message"`
}

// chatRequest — тело POST /souls/{owner_id}/{soul_id}/chat.
type chatRequest struct {
	Query          string  `json:"query"`
	TopK           int     `json:"top_k,omitempty"`
	MaxTokens      int     `json:"max_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	IncludeSources bool    `json:"include_sources,omitempty"`
}

// chatResponse — ответ chat-запроса.
type chatResponse struct {
	ResponseText          string         `json:"response_text"`
	UsedDocs              []rag.Document `json:"used_docs"`
	HasKnowledgeBase      bool           `json:"has_knowledge_base"`
	TotalIndexedDocuments int            `json:"total_indexed_documents"`
}

// SoulsHandler — обработчик core-операций soul.
type SoulsHandler struct {
	coreSvc *service.CoreService
	logger  *slog.Logger
}

// NewSoulsHandler создаёт обработчик core-операций.
func NewSoulsHandler(coreSvc *service.CoreService, logger *slog.Logger) *SoulsHandler {
	return &SoulsHandler{
		coreSvc: coreSvc,
		logger:  logger.With(slog.String("component", "souls_handler")),
	}
}

// Transcribe обрабатывает POST /souls/{owner_id}/{soul_id}/transcribe.
// Транскрибирует аудиофайл из категории uploads, текст сохраняется
// в категорию transcripts.
func (h *SoulsHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")
	soulID := chi.URLParam(r, "soul_id")
	if authorizeOwner(w, r, ownerID) == nil {
		return
	}

	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}
	if req.Filename == "" {
		apierrors.ValidationError(w, "Поле filename обязательно")
		return
	}

	result, opErr := h.coreSvc.Transcribe(r.Context(), ownerID, soulID, service.TranscribeParams{
		Filename: req.Filename,
		Model:    req.Model,
		Language: req.Language,
	})
	if opErr != nil {
		apierrors.WriteError(w, opErr.StatusCode, opErr.Code, opErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, transcribeResponse{
		Text:               result.Text,
		Segments:           result.Segments,
		TranscriptFilename: result.TranscriptFilename,
	})
}

// Train обрабатывает POST /souls/{owner_id}/{soul_id}/train.
// Строит или обновляет RAG-индекс soul.
func (h *SoulsHandler) Train(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")
	soulID := chi.URLParam(r, "soul_id")
	if authorizeOwner(w, r, ownerID) == nil {
		return
	}

	result, opErr := h.coreSvc.Train(r.Context(), ownerID, soulID)
	if opErr != nil {
		apierrors.WriteError(w, opErr.StatusCode, opErr.Code, opErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, trainResponse{
		Success:          true,
		IndexedDocuments: result.IndexedDocuments,
		Message:          result.Message,
	})
}

// Chat обрабатывает POST /souls/{owner_id}/{soul_id}/chat.
// Выборка из RAG-индекса + генерация ответа LLM.
func (h *SoulsHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")
	soulID := chi.URLParam(r, "soul_id")
	if authorizeOwner(w, r, ownerID) == nil {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	result, opErr := h.coreSvc.Chat(r.Context(), ownerID, soulID, service.ChatParams{
		Query:          req.Query,
		TopK:           req.TopK,
		MaxTokens:      req.MaxTokens,
		Temperature:    req.Temperature,
		IncludeSources: req.IncludeSources,
	})
	if opErr != nil {
		apierrors.WriteError(w, opErr.StatusCode, opErr.Code, opErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ResponseText:          result.ResponseText,
		UsedDocs:              result.UsedDocs,
		HasKnowledgeBase:      result.HasKnowledgeBase,
		TotalIndexedDocuments: result.TotalIndexedDocuments,
	})
}
