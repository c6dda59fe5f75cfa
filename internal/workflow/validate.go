package workflow

import (
	"fmt"
	"sort"

	"github.com/shaiso/promptlib/internal/domain"
)

// Normalize заполняет пустые ID шагов ключами из Steps.
func Normalize(wf *domain.Workflow) {
	for id, step := range wf.Steps {
		if step != nil && step.ID == "" {
			step.ID = id
		}
	}
}

// Validate выполняет полную валидацию workflow.
//
// Проверяет:
//   - Наличие шагов и start_step
//   - Совпадение ID шага с ключом
//   - Вариант шага: ровно одно из prompt/agent, либо только condition
//   - Существование всех шагов, на которые указывают переходы
//
// Циклы здесь не ищутся: повторное посещение обнаруживается при выполнении.
func Validate(wf *domain.Workflow) error {
	if wf == nil || len(wf.Steps) == 0 {
		return NewValidationError("", "steps", "workflow has no steps", ErrEmptySteps)
	}

	ids := make([]string, 0, len(wf.Steps))
	for id := range wf.Steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := ValidateStep(id, wf.Steps[id]); err != nil {
			return err
		}
	}

	if wf.StartStep == "" {
		return NewValidationError("", "start_step", "start_step is required", ErrMissingStartStep)
	}
	if _, ok := wf.Steps[wf.StartStep]; !ok {
		return NewValidationError("", "start_step",
			fmt.Sprintf("start step %q not found", wf.StartStep), ErrMissingStartStep)
	}

	for _, id := range ids {
		successors := wf.Steps[id].Successors()
		fields := make([]string, 0, len(successors))
		for field := range successors {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			target := successors[field]
			if _, ok := wf.Steps[target]; !ok {
				return NewValidationError(id, field,
					fmt.Sprintf("%s points to unknown step %q", field, target), ErrStepNotFound)
			}
		}
	}

	return nil
}

// ValidateStep проверяет один шаг. key — ключ шага в Workflow.Steps.
func ValidateStep(key string, step *domain.WorkflowStep) error {
	if key == "" {
		return NewValidationError("", "id", "step has empty ID", ErrEmptyStepID)
	}
	if step == nil {
		return NewValidationError(key, "", "step definition is empty", ErrStepConfiguration)
	}
	if step.ID == "" {
		return NewValidationError(key, "id", "step has empty ID", ErrEmptyStepID)
	}
	if step.ID != key {
		return NewValidationError(key, "id",
			fmt.Sprintf("step ID %q does not match key %q", step.ID, key), ErrDuplicateStepID)
	}

	switch step.Kind() {
	case domain.StepKindCondition:
		return validateCondition(step)

	case domain.StepKindPrompt, domain.StepKindAgent:
		if step.OnTrue != "" || step.OnFalse != "" {
			return NewValidationError(step.ID, "on_true",
				"on_true/on_false require a condition", ErrStepConfiguration)
		}
		for target, source := range step.InputMapping {
			if target == "" || source == "" {
				return NewValidationError(step.ID, "input_mapping",
					"input_mapping entries must have both target and source", ErrStepConfiguration)
			}
		}
		return nil

	default:
		return NewValidationError(step.ID, kindField(step), invalidKindMessage(step), ErrStepConfiguration)
	}
}

func validateCondition(step *domain.WorkflowStep) error {
	if step.Next != "" {
		return NewValidationError(step.ID, "next",
			"condition step routes with on_true/on_false, not next", ErrStepConfiguration)
	}
	if step.Condition.Variable == "" {
		return NewValidationError(step.ID, "condition.variable",
			"condition has empty variable", ErrStepConfiguration)
	}
	if step.Condition.Operator == "" {
		return NewValidationError(step.ID, "condition.operator",
			"condition has empty operator", ErrStepConfiguration)
	}
	return nil
}

func kindField(step *domain.WorkflowStep) string {
	if step.Condition != nil {
		return "condition"
	}
	return "prompt"
}

func invalidKindMessage(step *domain.WorkflowStep) string {
	switch {
	case step.Condition != nil:
		return "condition step must not reference a prompt or an agent"
	case step.Prompt != "" && step.Agent != "":
		return "step references both a prompt and an agent"
	default:
		return "step must reference a prompt or an agent, or declare a condition"
	}
}
