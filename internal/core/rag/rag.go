// Пакет rag — управление поисковым индексом (RAG) в пределах soul.
// Фаза 1: построение индекса — заглушка, которая создаёт директорию
// категории index и поддерживает маркерный файл index_status.json.
// Реальная векторизация и поиск появятся в фазе 2.
package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cyberseed/soul-gateway/internal/storage/scope"
)

// statusFilename — имя маркерного файла в директории категории index.
const statusFilename = "index_status.json"

// ErrIndex — ошибка операции с индексом.
var ErrIndex = errors.New("ошибка индекса")

// Document — документ, найденный при запросе к индексу.
type Document struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// BuildResult — результат построения индекса.
type BuildResult struct {
	IndexedDocuments int    `json:"indexed_documents"`
	IndexPath        string `json:"index_path"`
	Message          string `json:"message"`
}

// IndexStatus — состояние индекса soul.
type IndexStatus struct {
	HasIndex         bool       `json:"has_index"`
	IndexedDocuments int        `json:"indexed_documents"`
	BuiltAt          *time.Time `json:"built_at,omitempty"`
	Message          string     `json:"message,omitempty"`
}

// statusMarker — содержимое index_status.json.
type statusMarker struct {
	BuiltAt          time.Time `json:"built_at"`
	IndexedDocuments int       `json:"indexed_documents"`
}

// Index — менеджер поисковых индексов в дереве хранения.
// Работает только внутри категории index своего soul, пути строятся
// через общий PathBuilder.
type Index struct {
	paths  *scope.PathBuilder
	logger *slog.Logger
	now    func() time.Time
}

// New создаёт менеджер индексов с корнем dataDir.
func New(dataDir string, logger *slog.Logger) *Index {
	return &Index{
		paths:  scope.NewPathBuilder(dataDir),
		logger: logger.With(slog.String("component", "rag")),
		now:    time.Now,
	}
}

// BuildIndex строит или обновляет индекс soul.
// Фаза 1: создаёт директорию категории index и записывает маркер
// index_status.json; документы не векторизуются.
func (ix *Index) BuildIndex(_ context.Context, ownerID, soulID string) (*BuildResult, error) {
	indexPath, err := ix.paths.CategoryPath(ownerID, soulID, scope.CategoryIndex)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(indexPath, 0o750); err != nil {
		return nil, fmt.Errorf("%w: создание директории индекса %s: %v", ErrIndex, indexPath, err)
	}

	marker := statusMarker{BuiltAt: ix.now().UTC(), IndexedDocuments: 0}
	data, err := json.Marshal(marker)
	if err != nil {
		return nil, fmt.Errorf("%w: сериализация маркера: %v", ErrIndex, err)
	}
	markerPath := filepath.Join(indexPath, statusFilename)
	if err := os.WriteFile(markerPath, data, 0o640); err != nil {
		return nil, fmt.Errorf("%w: запись маркера %s: %v", ErrIndex, markerPath, err)
	}

	ix.logger.Info("Индекс построен (заглушка фазы 1)",
		slog.String("owner_id", ownerID),
		slog.String("soul_id", soulID),
		slog.String("index_path", indexPath))

	return &BuildResult{
		IndexedDocuments: 0,
		IndexPath:        indexPath,
		Message:          "индексация RAG — заглушка фазы 1",
	}, nil
}

// Query ищет релевантные документы в индексе soul.
// Фаза 1: всегда возвращает пустой список.
func (ix *Index) Query(_ context.Context, ownerID, soulID, query string, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = 5
	}
	_ = topK

	ix.logger.Debug("Запрос к индексу (заглушка фазы 1)",
		slog.String("owner_id", ownerID),
		slog.String("soul_id", soulID),
		slog.Int("query_len", len(query)))

	return []Document{}, nil
}

// Status возвращает состояние индекса soul. Индекс считается
// существующим, если директория категории index есть на диске;
// маркер уточняет время построения.
func (ix *Index) Status(ownerID, soulID string) (*IndexStatus, error) {
	indexPath, err := ix.paths.CategoryPath(ownerID, soulID, scope.CategoryIndex)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(indexPath)
	if os.IsNotExist(err) {
		return &IndexStatus{HasIndex: false, Message: "индекс не построен"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: чтение состояния %s: %v", ErrIndex, indexPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s не является директорией", ErrIndex, indexPath)
	}

	status := &IndexStatus{HasIndex: true, Message: "проверка индекса — заглушка фазы 1"}

	entries, err := os.ReadDir(indexPath)
	if err != nil {
		return nil, fmt.Errorf("%w: чтение директории %s: %v", ErrIndex, indexPath, err)
	}
	// Маркер не считается проиндексированным документом.
	for _, entry := range entries {
		if entry.Name() != statusFilename {
			status.IndexedDocuments++
		}
	}

	markerData, err := os.ReadFile(filepath.Join(indexPath, statusFilename))
	if err == nil {
		var marker statusMarker
		if json.Unmarshal(markerData, &marker) == nil {
			builtAt := marker.BuiltAt
			status.BuiltAt = &builtAt
		}
	}

	return status, nil
}

// DeleteIndex удаляет индекс soul целиком.
// Возвращает false, если индекса не было. Повторный вызов безопасен.
func (ix *Index) DeleteIndex(ownerID, soulID string) (bool, error) {
	indexPath, err := ix.paths.CategoryPath(ownerID, soulID, scope.CategoryIndex)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("%w: чтение состояния %s: %v", ErrIndex, indexPath, err)
	}

	if err := os.RemoveAll(indexPath); err != nil {
		return false, fmt.Errorf("%w: удаление %s: %v", ErrIndex, indexPath, err)
	}

	ix.logger.Info("Индекс удалён",
		slog.String("owner_id", ownerID),
		slog.String("soul_id", soulID))

	return true, nil
}
