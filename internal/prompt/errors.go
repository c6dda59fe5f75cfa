package prompt

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Ошибки жизненного цикла prompt.
var (
	// ErrPromptNotFound — prompt не найден.
	ErrPromptNotFound = errors.New("prompt not found")

	// ErrDuplicateName — prompt с таким именем уже существует.
	ErrDuplicateName = errors.New("prompt name already exists")

	// ErrVersionNotFound — запрошенная версия отсутствует в истории.
	ErrVersionNotFound = errors.New("version not found")

	// ErrInvalidVersion — строка версии не заканчивается числовым сегментом.
	ErrInvalidVersion = errors.New("invalid version string")

	// ErrInvalidPrompt — некорректные поля запроса.
	ErrInvalidPrompt = errors.New("invalid prompt")
)

// VersionError — ошибка, относящаяся к конкретной версии prompt.
type VersionError struct {
	PromptID uuid.UUID
	Version  string
	Err      error
}

// Error реализует интерфейс error.
func (e *VersionError) Error() string {
	return fmt.Sprintf("prompt %s: version %q: %v", e.PromptID, e.Version, e.Err)
}

// Unwrap возвращает базовую ошибку.
func (e *VersionError) Unwrap() error {
	return e.Err
}
