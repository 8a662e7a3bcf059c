// Пакет llm — интерфейс генерации текста для chat-операций.
// Ядро gateway знает о LLM только контракт Generator: вызов и проброс
// ошибок; внутренние алгоритмы генерации — внешний коллаборатор.
package llm

import (
	"context"
	"errors"
)

// ErrGeneration — ошибка генерации ответа внешним LLM-сервисом.
var ErrGeneration = errors.New("ошибка генерации LLM")

// Message — одна реплика истории диалога.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateOptions — параметры генерации.
type GenerateOptions struct {
	// History — история диалога (опционально)
	History []Message
	// Context — фрагменты документов из RAG-индекса (опционально)
	Context []string
	// MaxTokens — ограничение длины ответа
	MaxTokens int
	// Temperature — температура сэмплирования
	Temperature float64
	// Model — имя модели (пустое — модель по умолчанию провайдера)
	Model string
}

// Status — состояние LLM-сервиса.
type Status struct {
	Available bool   `json:"available"`
	Provider  string `json:"provider"`
	Message   string `json:"message,omitempty"`
}

// Generator — контракт внешнего LLM-коллаборатора.
type Generator interface {
	// Generate генерирует ответ на prompt с учётом опций.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	// CheckStatus возвращает текущее состояние сервиса.
	CheckStatus() Status
}
