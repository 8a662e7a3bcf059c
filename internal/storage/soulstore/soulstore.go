// Пакет soulstore — операции с файлами в scoped-хранилище.
// Дерево хранения: {data_dir}/{owner_id}/{soul_id}/{category}/{filename}.
// Пакет не содержит логики идентичности: owner_id и soul_id валидируются
// только как сегменты пути (scope.ValidateID), проверка прав доступа —
// обязанность вызывающего кода (auth.Authorize перед каждой
// tenant-scoped операцией).
package soulstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/cyberseed/soul-gateway/internal/domain/model"
	"github.com/cyberseed/soul-gateway/internal/storage/scope"
)

// ErrFileTooLarge — входной поток превысил переданный лимит размера.
// Существующий файл при этом не затрагивается: превышение обнаруживается
// на temp файле до rename.
var ErrFileTooLarge = errors.New("файл превышает допустимый размер")

// StorageError — ошибка файловой операции с контекстом для логирования.
// Оборачивает исходную I/O ошибку (disk full, permission denied и т.д.).
// Повторных попыток нет: transient/permanent на этом уровне неразличимы,
// решение о retry принимает вызывающий сервис.
type StorageError struct {
	// Op — операция, при которой произошла ошибка (save, list, delete...)
	Op string
	// Path — целевой путь операции
	Path string
	// Err — исходная ошибка
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store — scoped-хранилище файлов на диске.
type Store struct {
	paths  *scope.PathBuilder
	logger *slog.Logger
}

// New создаёт Store над указанным корнем хранения.
// Создаёт корневую директорию, если она не существует.
func New(dataDir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, &StorageError{Op: "init", Path: dataDir, Err: err}
	}

	return &Store{
		paths:  scope.NewPathBuilder(dataDir),
		logger: logger.With(slog.String("component", "soulstore")),
	}, nil
}

// Paths возвращает PathBuilder хранилища.
func (s *Store) Paths() *scope.PathBuilder {
	return s.paths
}

// DataDir возвращает корень дерева хранения.
func (s *Store) DataDir() string {
	return s.paths.DataDir()
}

// ensureSoulDirs создаёт все три директории категорий soul.
// Идемпотентно: существующие директории не являются ошибкой.
func (s *Store) ensureSoulDirs(ownerID, soulID string) error {
	for _, cat := range scope.Categories() {
		path, err := s.paths.CategoryPath(ownerID, soulID, cat)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(path, 0o750); err != nil {
			return &StorageError{Op: "mkdir", Path: path, Err: err}
		}
	}
	return nil
}

// SaveFile записывает поток в {category}/{filename} внутри soul.
// Существующий файл перезаписывается целиком — версионирования нет.
//
// Паттерн записи: temp файл → io.Copy → fsync → атомарный rename.
// Temp файл создаётся через os.CreateTemp со случайным суффиксом:
// имена файлов выбирает пользователь, фиксированный суффикс ".tmp"
// конфликтовал бы с легитимно сохранённым файлом "<имя>.tmp".
// Метаданные (размер, время создания) снимаются stat-ом записанного
// файла, а не кешируются.
//
// maxSize > 0 ограничивает размер записываемого потока. Превышение
// обнаруживается на temp файле до rename и возвращает ErrFileTooLarge —
// ранее сохранённый файл с тем же именем остаётся нетронутым.
func (s *Store) SaveFile(ownerID, soulID string, r io.Reader, filename string, category scope.Category, maxSize int64) (*model.StoredFile, error) {
	if err := s.ensureSoulDirs(ownerID, soulID); err != nil {
		return nil, err
	}

	fullPath, err := s.paths.FilePath(ownerID, soulID, category, filename)
	if err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(filepath.Dir(fullPath), ".save-*")
	if err != nil {
		return nil, &StorageError{Op: "save", Path: fullPath, Err: err}
	}
	tmpPath := f.Name()

	written, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, &StorageError{Op: "save", Path: fullPath, Err: err}
	}

	if maxSize > 0 && written > maxSize {
		f.Close()
		os.Remove(tmpPath)
		return nil, &StorageError{Op: "save", Path: fullPath, Err: ErrFileTooLarge}
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, &StorageError{Op: "save", Path: fullPath, Err: err}
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, &StorageError{Op: "save", Path: fullPath, Err: err}
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, &StorageError{Op: "save", Path: fullPath, Err: err}
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, &StorageError{Op: "stat", Path: fullPath, Err: err}
	}

	s.logger.Info("Файл сохранён",
		slog.String("owner_id", ownerID),
		slog.String("soul_id", soulID),
		slog.String("category", string(category)),
		slog.String("filename", filename),
		slog.Int64("size", info.Size()),
	)

	return &model.StoredFile{
		Filename:  filename,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
		Category:  category,
		OwnerID:   ownerID,
		SoulID:    soulID,
		Path:      fullPath,
	}, nil
}

// ListFiles возвращает файлы soul. При category == nil объединяются
// все три категории. Отсутствующие директории трактуются как пустые,
// а не как ошибка. Результат отсортирован по (категория, имя) для
// детерминированности.
func (s *Store) ListFiles(ownerID, soulID string, category *scope.Category) ([]model.StoredFile, error) {
	var categories []scope.Category
	if category != nil {
		if _, err := scope.ParseCategory(string(*category)); err != nil {
			return nil, err
		}
		categories = []scope.Category{*category}
	} else {
		categories = scope.Categories()
	}

	var files []model.StoredFile
	for _, cat := range categories {
		categoryPath, err := s.paths.CategoryPath(ownerID, soulID, cat)
		if err != nil {
			return nil, err
		}

		entries, err := os.ReadDir(categoryPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, &StorageError{Op: "list", Path: categoryPath, Err: err}
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				return nil, &StorageError{Op: "list", Path: filepath.Join(categoryPath, entry.Name()), Err: err}
			}
			files = append(files, model.StoredFile{
				Filename:  entry.Name(),
				Size:      info.Size(),
				CreatedAt: info.ModTime(),
				Category:  cat,
				OwnerID:   ownerID,
				SoulID:    soulID,
				Path:      filepath.Join(categoryPath, entry.Name()),
			})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Category != files[j].Category {
			return files[i].Category < files[j].Category
		}
		return files[i].Filename < files[j].Filename
	})

	return files, nil
}

// DeleteFile удаляет файл из категории soul.
// Возвращает false без ошибки, если файла нет (идемпотентное удаление).
// Никаких директорий при этом не создаётся.
func (s *Store) DeleteFile(ownerID, soulID, filename string, category scope.Category) (bool, error) {
	fullPath, err := s.paths.FilePath(ownerID, soulID, category, filename)
	if err != nil {
		return false, err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &StorageError{Op: "delete", Path: fullPath, Err: err}
	}

	s.logger.Info("Файл удалён",
		slog.String("owner_id", ownerID),
		slog.String("soul_id", soulID),
		slog.String("category", string(category)),
		slog.String("filename", filename),
	)
	return true, nil
}

// DeleteSoul рекурсивно удаляет всё поддерево soul со всеми категориями.
// Возвращает false без ошибки, если поддерева нет.
func (s *Store) DeleteSoul(ownerID, soulID string) (bool, error) {
	soulPath, err := s.paths.SoulPath(ownerID, soulID)
	if err != nil {
		return false, err
	}
	return s.removeTree("delete_soul", soulPath)
}

// DeleteOwner рекурсивно удаляет всё поддерево владельца со всеми souls.
// Возвращает false без ошибки, если поддерева нет.
func (s *Store) DeleteOwner(ownerID string) (bool, error) {
	ownerPath, err := s.paths.OwnerPath(ownerID)
	if err != nil {
		return false, err
	}
	return s.removeTree("delete_owner", ownerPath)
}

// removeTree удаляет поддерево целиком. Существование проверяется
// до удаления, чтобы отличить "удалено" от "не существовало".
func (s *Store) removeTree(op, path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &StorageError{Op: op, Path: path, Err: err}
	}

	if err := os.RemoveAll(path); err != nil {
		return false, &StorageError{Op: op, Path: path, Err: err}
	}

	s.logger.Info("Поддерево удалено", slog.String("path", path))
	return true, nil
}

// Stats возвращает статистику soul по категориям.
// Все три категории присутствуют всегда, пустые — с нулями.
func (s *Store) Stats(ownerID, soulID string) (model.StorageStats, error) {
	stats := model.StorageStats{}
	for _, cat := range scope.Categories() {
		c := cat
		files, err := s.ListFiles(ownerID, soulID, &c)
		if err != nil {
			return nil, err
		}

		var total int64
		for _, f := range files {
			total += f.Size
		}
		stats[cat] = model.CategoryStats{Count: len(files), TotalSize: total}
	}
	return stats, nil
}
