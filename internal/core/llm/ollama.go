// ollama.go — Generator поверх локального Ollama (/api/chat).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// defaultModel — модель Ollama по умолчанию.
const defaultModel = "llama3:8b"

// OllamaClient — Generator поверх HTTP API Ollama.
type OllamaClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewOllamaClient создаёт клиент Ollama.
// Таймаут щедрый: генерация на локальной модели может занимать минуты.
func NewOllamaClient(baseURL string, logger *slog.Logger) *OllamaClient {
	return &OllamaClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  logger.With(slog.String("component", "ollama")),
	}
}

// chatRequest — тело запроса /api/chat.
type chatRequest struct {
	Model    string      `json:"model"`
	Messages []Message   `json:"messages"`
	Stream   bool        `json:"stream"`
	Options  chatOptions `json:"options"`
}

// chatOptions — параметры генерации Ollama.
type chatOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

// chatResponse — тело ответа /api/chat.
type chatResponse struct {
	Message Message `json:"message"`
}

// Generate отправляет prompt c историей и RAG-контекстом в /api/chat.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = defaultModel
	}

	var messages []Message
	// RAG-контекст передаётся системной репликой перед историей
	if len(opts.Context) > 0 {
		systemContent := "Используй следующие фрагменты документов как контекст:\n"
		for _, fragment := range opts.Context {
			systemContent += "\n---\n" + fragment
		}
		messages = append(messages, Message{Role: "system", Content: systemContent})
	}
	messages = append(messages, opts.History...)
	messages = append(messages, Message{Role: "user", Content: prompt})

	payload := chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options: chatOptions{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: сериализация запроса: %v", ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: статус %d от %s", ErrGeneration, resp.StatusCode, c.baseURL)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: разбор ответа: %v", ErrGeneration, err)
	}

	return parsed.Message.Content, nil
}

// CheckStatus проверяет доступность Ollama коротким GET-запросом.
func (c *OllamaClient) CheckStatus() Status {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return Status{Available: false, Provider: "ollama", Message: err.Error()}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Status{Available: false, Provider: "ollama", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{Available: false, Provider: "ollama", Message: fmt.Sprintf("статус %d", resp.StatusCode)}
	}

	return Status{Available: true, Provider: "ollama"}
}

// Проверка соответствия интерфейсу на этапе компиляции.
var _ Generator = (*OllamaClient)(nil)
