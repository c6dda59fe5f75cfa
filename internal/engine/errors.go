package engine

import (
	"errors"
	"fmt"
)

// Ошибки шаблонов.
var (
	// ErrTemplateSyntax — шаблон синтаксически некорректен.
	ErrTemplateSyntax = errors.New("template syntax error")

	// ErrRender — ошибка выполнения шаблона, не попавшая в другие категории.
	ErrRender = errors.New("template render failed")
)

// Ошибки переменных.
var (
	// ErrMissingVariable — переменная нужна шаблону, но не передана и не имеет default.
	ErrMissingVariable = errors.New("missing variable")

	// ErrInvalidVariableType — значение не приводится к объявленному типу.
	ErrInvalidVariableType = errors.New("invalid variable type")

	// ErrPatternMismatch — значение не соответствует validation_regex.
	ErrPatternMismatch = errors.New("variable does not match pattern")

	// ErrInvalidDefinition — некорректное описание переменной.
	ErrInvalidDefinition = errors.New("invalid variable definition")
)

// VariableError — ошибка, относящаяся к конкретной переменной.
type VariableError struct {
	Name   string // имя переменной
	Reason string // подробности (может быть пустым)
	Err    error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *VariableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("variable %q: %v: %s", e.Name, e.Err, e.Reason)
	}
	return fmt.Sprintf("variable %q: %v", e.Name, e.Err)
}

// Unwrap возвращает базовую ошибку.
func (e *VariableError) Unwrap() error {
	return e.Err
}

func newVariableError(name string, err error, reason string) *VariableError {
	return &VariableError{Name: name, Reason: reason, Err: err}
}
