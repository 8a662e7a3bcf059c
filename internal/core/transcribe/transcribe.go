// Пакет transcribe — интерфейс транскрипции аудио.
// В фазе 1 реальной транскрипции нет: контракт ядра с коллаборатором —
// только вызов и проброс ошибок, поэтому пакет содержит интерфейс
// и явную заглушку.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
)

// ErrTranscription — ошибка транскрипции.
var ErrTranscription = errors.New("ошибка транскрипции")

// Segment — фрагмент транскрипта с таймкодами.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Options — параметры транскрипции.
type Options struct {
	// Model — имя модели транскрипции (пустое — модель по умолчанию)
	Model string
	// Language — язык аудио (пустое — автоопределение)
	Language string
}

// Result — результат транскрипции.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Status — состояние сервиса транскрипции.
type Status struct {
	Available bool   `json:"available"`
	Provider  string `json:"provider"`
	Message   string `json:"message,omitempty"`
}

// Transcriber — контракт внешнего коллаборатора транскрипции.
type Transcriber interface {
	// Transcribe транскрибирует аудиофайл по указанному пути.
	Transcribe(ctx context.Context, path string, opts Options) (*Result, error)
	// CheckStatus возвращает текущее состояние сервиса.
	CheckStatus() Status
}

// Placeholder — заглушка фазы 1: возвращает фиктивный транскрипт
// без обращения к какому-либо движку распознавания речи.
type Placeholder struct {
	logger *slog.Logger
}

// NewPlaceholder создаёт заглушку транскрипции.
func NewPlaceholder(logger *slog.Logger) *Placeholder {
	return &Placeholder{logger: logger.With(slog.String("component", "transcribe"))}
}

// Transcribe возвращает заглушечный транскрипт для указанного файла.
func (p *Placeholder) Transcribe(_ context.Context, path string, _ Options) (*Result, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: пустой путь к файлу", ErrTranscription)
	}

	p.logger.Info("Транскрипция (заглушка фазы 1)", slog.String("path", path))

	text := fmt.Sprintf("Транскрипция файла %s будет реализована в фазе 2.", filepath.Base(path))
	return &Result{
		Text:     text,
		Segments: []Segment{{Start: 0, End: 0, Text: text}},
	}, nil
}

// CheckStatus сообщает, что реальный движок транскрипции не подключён.
func (p *Placeholder) CheckStatus() Status {
	return Status{
		Available: false,
		Provider:  "placeholder",
		Message:   "транскрипция — заглушка фазы 1",
	}
}

// Проверка соответствия интерфейсу на этапе компиляции.
var _ Transcriber = (*Placeholder)(nil)
