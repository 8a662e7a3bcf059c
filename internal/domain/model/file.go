// Пакет model — доменные модели Soul Gateway.
// StoredFile — представление файла в scoped-хранилище. Отдельного
// хранилища метаданных нет: все поля выводятся из файловой системы
// в момент чтения (stat), файловая система и есть база данных.
package model

import (
	"time"

	"github.com/cyberseed/soul-gateway/internal/storage/scope"
)

// StoredFile — файл в хранилище soul. Каноническое расположение
// полностью определяется четвёркой (owner_id, soul_id, category, filename).
type StoredFile struct {
	// Filename — имя файла внутри директории категории
	Filename string `json:"filename"`

	// Size — размер файла в байтах (из stat в момент чтения)
	Size int64 `json:"size"`

	// CreatedAt — время создания файла (из stat в момент чтения)
	CreatedAt time.Time `json:"created_at"`

	// Category — категория файла (uploads, transcripts, index)
	Category scope.Category `json:"category"`

	// OwnerID — идентификатор владельца
	OwnerID string `json:"owner_id"`

	// SoulID — идентификатор soul внутри владельца
	SoulID string `json:"soul_id"`

	// Path — абсолютный путь файла на диске.
	// Не возвращается в API, используется только внутри gateway.
	Path string `json:"-"`
}

// CategoryStats — агрегированная статистика по одной категории.
type CategoryStats struct {
	// Count — количество файлов в категории
	Count int `json:"count"`
	// TotalSize — суммарный размер файлов в байтах
	TotalSize int64 `json:"total_size"`
}

// StorageStats — статистика хранилища soul по категориям.
// Всегда содержит все три категории, пустые — с нулевыми значениями.
type StorageStats map[scope.Category]CategoryStats
