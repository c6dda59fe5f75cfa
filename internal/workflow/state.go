package workflow

import (
	"github.com/shaiso/promptlib/internal/domain"
)

// RunState — состояние выполнения одного run в памяти.
//
// Содержит контекст выполнения и множество посещённых шагов.
// Не потокобезопасен: run выполняется последовательно.
type RunState struct {
	// Run — запись о выполнении (статус, путь, ошибка).
	Run *domain.WorkflowRun

	// Context — контекст, который читают и пишут шаги.
	Context map[string]any

	// visited — посещённые шаги (stepID → true).
	visited map[string]bool
}

// NewRunState создаёт RunState с копией начального контекста.
func NewRunState(run *domain.WorkflowRun, initial map[string]any) *RunState {
	ctx := make(map[string]any, len(initial))
	for k, v := range initial {
		ctx[k] = v
	}

	return &RunState{
		Run:     run,
		Context: ctx,
		visited: make(map[string]bool),
	}
}

// Visit отмечает шаг посещённым.
// Повторное посещение даёт ErrWorkflowCycle.
func (s *RunState) Visit(stepID string) error {
	if s.visited[stepID] {
		return ErrWorkflowCycle
	}
	s.visited[stepID] = true
	s.Run.Path = append(s.Run.Path, stepID)
	return nil
}

// Visited возвращает true, если шаг уже посещён.
func (s *RunState) Visited(stepID string) bool {
	return s.visited[stepID]
}

// Merge переносит значения из out в контекст.
func (s *RunState) Merge(out map[string]any) {
	for k, v := range out {
		s.Context[k] = v
	}
}
