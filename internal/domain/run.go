package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowRun — результат одного выполнения workflow.
//
// Оркестратор не сохраняет run: сохранение — забота вызывающего кода.
type WorkflowRun struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на выполняемый workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Inputs — начальный контекст, переданный при запуске.
	Inputs map[string]any `json:"inputs,omitempty"`

	// Context — итоговый контекст (без фильтрации ключей).
	Context map[string]any `json:"context"`

	// Path — ID шагов в порядке посещения.
	Path []string `json:"path"`

	// FailedStep — ID шага, на котором run упал.
	FailedStep string `json:"failed_step,omitempty"`

	// Error — текст ошибки, если run завершился с FAILED.
	Error string `json:"error,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewWorkflowRun создаёт run в статусе PENDING.
func NewWorkflowRun(workflowID uuid.UUID, inputs map[string]any) *WorkflowRun {
	return &WorkflowRun{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		Status:     RunStatusPending,
		Inputs:     inputs,
		Path:       []string{},
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *WorkflowRun) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// MarkRunning переводит run в статус RUNNING.
func (r *WorkflowRun) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит run в статус SUCCEEDED.
func (r *WorkflowRun) MarkSucceeded() {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
}

// MarkFailed переводит run в статус FAILED с ошибкой.
func (r *WorkflowRun) MarkFailed(stepID string, err error) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.FailedStep = stepID
	if err != nil {
		r.Error = err.Error()
	}
}
