package workflow

import (
	"errors"
	"fmt"
)

// Ошибки валидации workflow.
var (
	// ErrEmptySteps — workflow не содержит шагов.
	ErrEmptySteps = errors.New("workflow has no steps")

	// ErrEmptyStepID — шаг не имеет ID.
	ErrEmptyStepID = errors.New("step has empty ID")

	// ErrDuplicateStepID — ID шага не совпадает с ключом или повторяется.
	ErrDuplicateStepID = errors.New("duplicate step ID")

	// ErrMissingStartStep — start_step не задан или не существует.
	ErrMissingStartStep = errors.New("start step not found")

	// ErrStepConfiguration — шаг ссылается и на prompt, и на agent,
	// ни на что без условия, или смешивает условие с выполнением.
	ErrStepConfiguration = errors.New("invalid step configuration")

	// ErrStepNotFound — переход указывает на несуществующий шаг.
	ErrStepNotFound = errors.New("step not found")
)

// Ошибки выполнения.
var (
	// ErrWorkflowCycle — шаг посещён повторно в рамках одного run.
	ErrWorkflowCycle = errors.New("workflow cycle detected")

	// ErrMissingContextKey — input_mapping ссылается на отсутствующий ключ контекста.
	ErrMissingContextKey = errors.New("missing context key")

	// ErrAgentOutput — агент не вернул ни "output", ни "optimized".
	ErrAgentOutput = errors.New("agent returned no primary result")

	// ErrWorkflowNotFound — workflow не найден.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrInvalidWorkflow — некорректные поля workflow (пустое имя).
	ErrInvalidWorkflow = errors.New("invalid workflow")

	// ErrDuplicateName — workflow с таким именем уже существует.
	ErrDuplicateName = errors.New("workflow name already exists")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	StepID  string // ID шага, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.StepID != "" {
		return "step " + e.StepID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(stepID, field, message string, err error) *ValidationError {
	return &ValidationError{
		StepID:  stepID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// StepError — ошибка, прервавшая run на конкретном шаге.
type StepError struct {
	StepID string
	Err    error
}

// Error реализует интерфейс error.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.StepID, e.Err)
}

// Unwrap возвращает исходную ошибку.
func (e *StepError) Unwrap() error {
	return e.Err
}
