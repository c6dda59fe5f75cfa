package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workflow — направленный граф шагов с явными переходами.
//
// Порядок шагов в Steps не важен: структура графа задаётся
// указателями Next / OnTrue / OnFalse.
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id" yaml:"-"`

	// Name — уникальное имя workflow.
	Name string `json:"name" yaml:"name"`

	// Description — описание назначения.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// StartStep — ID шага, с которого начинается выполнение.
	StartStep string `json:"start_step" yaml:"start_step"`

	// Steps — шаги по ID.
	Steps map[string]*WorkflowStep `json:"steps" yaml:"steps"`

	// Metadata — произвольные данные.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// StepKind — активный вариант полезной нагрузки шага.
type StepKind string

const (
	// StepKindPrompt — рендеринг prompt.
	StepKindPrompt StepKind = "prompt"

	// StepKindAgent — вызов агента.
	StepKindAgent StepKind = "agent"

	// StepKindCondition — ветвление без выполнения.
	StepKindCondition StepKind = "condition"

	// StepKindInvalid — смешанная или пустая конфигурация.
	StepKindInvalid StepKind = ""
)

// WorkflowStep — один шаг workflow.
//
// Шаг ссылается ровно на одно из {Prompt, Agent}, либо объявляет Condition
// и не ссылается ни на что. Для шагов с условием используются OnTrue/OnFalse,
// для остальных — Next. Пустой successor завершает выполнение.
type WorkflowStep struct {
	// ID — уникальный в рамках workflow идентификатор шага.
	ID string `json:"id" yaml:"id,omitempty"`

	// Prompt — ссылка на prompt: UUID или имя.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`

	// Agent — ID агента в реестре.
	Agent string `json:"agent,omitempty" yaml:"agent,omitempty"`

	// Condition — условие ветвления.
	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`

	// InputMapping — переменная шага → ключ контекста, из которого она читается.
	InputMapping map[string]string `json:"input_mapping,omitempty" yaml:"input_mapping,omitempty"`

	// OutputKey — ключ контекста для результата. По умолчанию "<id>_result".
	OutputKey string `json:"output_key,omitempty" yaml:"output_key,omitempty"`

	Next    string `json:"next,omitempty" yaml:"next,omitempty"`
	OnTrue  string `json:"on_true,omitempty" yaml:"on_true,omitempty"`
	OnFalse string `json:"on_false,omitempty" yaml:"on_false,omitempty"`
}

// Kind определяет вариант шага.
func (s *WorkflowStep) Kind() StepKind {
	hasPrompt := s.Prompt != ""
	hasAgent := s.Agent != ""

	switch {
	case s.Condition != nil && !hasPrompt && !hasAgent:
		return StepKindCondition
	case s.Condition != nil:
		return StepKindInvalid
	case hasPrompt && !hasAgent:
		return StepKindPrompt
	case hasAgent && !hasPrompt:
		return StepKindAgent
	default:
		return StepKindInvalid
	}
}

// ResultKey возвращает ключ контекста для результата шага.
func (s *WorkflowStep) ResultKey() string {
	if s.OutputKey != "" {
		return s.OutputKey
	}
	return s.ID + "_result"
}

// Successors возвращает все объявленные переходы шага.
func (s *WorkflowStep) Successors() map[string]string {
	out := make(map[string]string, 3)
	if s.Next != "" {
		out["next"] = s.Next
	}
	if s.OnTrue != "" {
		out["on_true"] = s.OnTrue
	}
	if s.OnFalse != "" {
		out["on_false"] = s.OnFalse
	}
	return out
}

// Operator — оператор сравнения в условии.
type Operator string

const (
	OperatorEq       Operator = "eq"
	OperatorNeq      Operator = "neq"
	OperatorContains Operator = "contains"
)

// Condition — условие вида context[Variable] Operator Value.
type Condition struct {
	Variable string   `json:"variable" yaml:"variable"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value" yaml:"value"`
}

// Clone возвращает глубокую копию workflow.
func (w *Workflow) Clone() *Workflow {
	c := *w
	if w.Steps != nil {
		c.Steps = make(map[string]*WorkflowStep, len(w.Steps))
		for id, step := range w.Steps {
			c.Steps[id] = step.Clone()
		}
	}
	if w.Metadata != nil {
		c.Metadata = make(map[string]any, len(w.Metadata))
		for k, v := range w.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// Clone возвращает глубокую копию шага.
func (s *WorkflowStep) Clone() *WorkflowStep {
	if s == nil {
		return nil
	}
	c := *s
	if s.Condition != nil {
		cond := *s.Condition
		c.Condition = &cond
	}
	if s.InputMapping != nil {
		c.InputMapping = make(map[string]string, len(s.InputMapping))
		for k, v := range s.InputMapping {
			c.InputMapping[k] = v
		}
	}
	return &c
}
