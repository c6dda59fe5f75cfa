package agents

import (
	"context"
	"fmt"
)

// PromptRenderer рендерит prompt по UUID или имени.
type PromptRenderer interface {
	RenderRef(ctx context.Context, ref string, vars map[string]any) (string, error)
}

// PromptAgent — агент, рендерящий prompt.
//
// Inputs:
//   - prompt_id (string): UUID или имя prompt (обязательно)
//   - variables (map): переменные шаблона
//
// Outputs:
//   - output (string): отрендеренный текст
type PromptAgent struct {
	Prompts PromptRenderer
}

// Run рендерит prompt.
func (a *PromptAgent) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	ref, _ := inputs["prompt_id"].(string)
	if ref == "" {
		return nil, fmt.Errorf("%w: prompt_id is required", ErrInvalidInput)
	}

	var vars map[string]any
	switch v := inputs["variables"].(type) {
	case nil:
		vars = map[string]any{}
	case map[string]any:
		vars = v
	default:
		return nil, fmt.Errorf("%w: variables must be an object, got %T", ErrInvalidInput, v)
	}

	out, err := a.Prompts.RenderRef(ctx, ref, vars)
	if err != nil {
		return nil, err
	}
	return map[string]any{"output": out}, nil
}
