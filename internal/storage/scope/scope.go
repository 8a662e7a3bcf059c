// Пакет scope — построение изолированных путей хранения по схеме
// {data_dir}/{owner_id}/{soul_id}/{category}/{filename}.
// Чистые функции без побочных эффектов: пакет никогда не создаёт
// и не удаляет директории, только вычисляет пути и валидирует входные данные.
package scope

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Category — категория файлов внутри soul. Закрытое множество,
// не расширяется во время работы.
type Category string

const (
	// CategoryUploads — загруженные пользователем файлы
	CategoryUploads Category = "uploads"
	// CategoryTranscripts — результаты транскрипции аудио
	CategoryTranscripts Category = "transcripts"
	// CategoryIndex — данные поискового индекса (RAG)
	CategoryIndex Category = "index"
)

// Ошибки валидации входных данных.
var (
	// ErrInvalidCategory — категория не входит в фиксированное множество.
	ErrInvalidCategory = errors.New("недопустимая категория")
	// ErrInvalidFilename — имя файла пустое или содержит path traversal.
	ErrInvalidFilename = errors.New("недопустимое имя файла")
	// ErrInvalidID — owner_id или soul_id пустой или содержит path traversal.
	ErrInvalidID = errors.New("недопустимый идентификатор")
)

// IsInvalidInput сообщает, вызвана ли ошибка недопустимым пользовательским
// вводом: идентификатором, именем файла или категорией.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidFilename) ||
		errors.Is(err, ErrInvalidCategory)
}

// Categories возвращает все допустимые категории в фиксированном порядке.
func Categories() []Category {
	return []Category{CategoryUploads, CategoryTranscripts, CategoryIndex}
}

// ParseCategory преобразует строку в Category.
// Возвращает ErrInvalidCategory для любого значения вне множества
// uploads/transcripts/index.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryUploads, CategoryTranscripts, CategoryIndex:
		return Category(s), nil
	default:
		return "", fmt.Errorf("%w: %q (допустимые: uploads, transcripts, index)", ErrInvalidCategory, s)
	}
}

// PathBuilder — вычисление путей внутри дерева хранения.
// Все пути детерминированно строятся от единого корня dataDir.
type PathBuilder struct {
	dataDir string
}

// NewPathBuilder создаёт PathBuilder с указанным корнем хранения.
func NewPathBuilder(dataDir string) *PathBuilder {
	return &PathBuilder{dataDir: dataDir}
}

// DataDir возвращает корень дерева хранения.
func (pb *PathBuilder) DataDir() string {
	return pb.dataDir
}

// OwnerPath возвращает путь к поддереву владельца.
// Возвращает ErrInvalidID, если owner_id не проходит валидацию.
func (pb *PathBuilder) OwnerPath(ownerID string) (string, error) {
	if err := ValidateID(ownerID); err != nil {
		return "", err
	}
	return filepath.Join(pb.dataDir, ownerID), nil
}

// SoulPath возвращает путь к поддереву soul внутри владельца.
// Оба идентификатора валидируются: "../" в любом из них не должен
// выводить путь за пределы своего уровня дерева.
func (pb *PathBuilder) SoulPath(ownerID, soulID string) (string, error) {
	if err := ValidateID(ownerID); err != nil {
		return "", err
	}
	if err := ValidateID(soulID); err != nil {
		return "", err
	}
	return filepath.Join(pb.dataDir, ownerID, soulID), nil
}

// CategoryPath возвращает путь к директории категории внутри soul.
// Возвращает ErrInvalidCategory, если категория вне фиксированного множества.
func (pb *PathBuilder) CategoryPath(ownerID, soulID string, category Category) (string, error) {
	if _, err := ParseCategory(string(category)); err != nil {
		return "", err
	}
	soulPath, err := pb.SoulPath(ownerID, soulID)
	if err != nil {
		return "", err
	}
	return filepath.Join(soulPath, string(category)), nil
}

// FilePath возвращает путь к файлу внутри категории.
// Имя файла предварительно валидируется: это единственное место,
// где пользовательский ввод мог бы выйти за пределы категории.
func (pb *PathBuilder) FilePath(ownerID, soulID string, category Category, filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	categoryPath, err := pb.CategoryPath(ownerID, soulID, category)
	if err != nil {
		return "", err
	}
	return filepath.Join(categoryPath, filename), nil
}

// ValidateID проверяет owner_id или soul_id. Идентификаторы становятся
// именами директорий, поэтому правила те же, что и для имён файлов:
// идентификатор не может вывести путь за пределы своего уровня дерева.
// Роутер пропускает ".." как обычный сегмент URL, так что эта проверка —
// единственный барьер между пользовательским вводом и файловой системой.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: пустой идентификатор", ErrInvalidID)
	}
	if strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q содержит разделитель пути", ErrInvalidID, id)
	}
	if id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if filepath.Base(id) != id {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// ValidateFilename проверяет, что имя файла не может вывести путь
// за пределы своей категории. Отклоняются: пустые имена, разделители
// путей, сегменты "." и "..".
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("%w: пустое имя", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("%w: %q содержит разделитель пути", ErrInvalidFilename, filename)
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	// filepath.Base — последняя линия обороны: после предыдущих проверок
	// имя обязано совпадать со своей базовой частью.
	if filepath.Base(filename) != filename {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return nil
}
