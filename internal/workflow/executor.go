package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shaiso/promptlib/internal/domain"
	"github.com/shaiso/promptlib/internal/telemetry"
)

// Поля результата агента: основное и запасное.
const (
	agentOutputField    = "output"
	agentOptimizedField = "optimized"
)

// PromptRenderer рендерит prompt по ссылке (UUID или имя)
// и учитывает использование.
type PromptRenderer interface {
	RenderRef(ctx context.Context, ref string, vars map[string]any) (string, error)
}

// AgentRunner вызывает агента по ID.
type AgentRunner interface {
	Run(ctx context.Context, agentID string, inputs map[string]any) (map[string]any, error)
}

// Executor выполняет один шаг workflow.
type Executor struct {
	prompts PromptRenderer
	agents  AgentRunner
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// ExecutorConfig — конфигурация Executor.
type ExecutorConfig struct {
	Prompts PromptRenderer
	Agents  AgentRunner
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// NewExecutor создаёт новый Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		prompts: cfg.Prompts,
		agents:  cfg.Agents,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// Execute выполняет шаг и записывает результат в wctx[step.ResultKey()].
//
// Входы шага читаются из контекста по input_mapping; отсутствующий
// ключ даёт ErrMissingContextKey. Возвращает тот же контекст.
func (e *Executor) Execute(ctx context.Context, step *domain.WorkflowStep, wctx map[string]any) (map[string]any, error) {
	start := time.Now()
	kind := step.Kind()

	result, err := e.execute(ctx, step, kind, wctx)
	e.metrics.StepExecuted(string(kind), time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}

	wctx[step.ResultKey()] = result

	e.logger.Debug("step executed",
		"step_id", step.ID,
		"kind", kind,
		"output_key", step.ResultKey(),
		"duration", time.Since(start),
	)
	return wctx, nil
}

func (e *Executor) execute(ctx context.Context, step *domain.WorkflowStep, kind domain.StepKind, wctx map[string]any) (any, error) {
	inputs, err := mapInputs(step, wctx)
	if err != nil {
		return nil, err
	}

	switch kind {
	case domain.StepKindPrompt:
		if e.prompts == nil {
			return nil, fmt.Errorf("%w: no prompt renderer configured", ErrStepConfiguration)
		}
		return e.prompts.RenderRef(ctx, step.Prompt, inputs)

	case domain.StepKindAgent:
		if e.agents == nil {
			return nil, fmt.Errorf("%w: no agent runner configured", ErrStepConfiguration)
		}
		out, err := e.agents.Run(ctx, step.Agent, inputs)
		if err != nil {
			return nil, err
		}
		return primaryResult(step.Agent, out)

	default:
		return nil, fmt.Errorf("%w: step kind %q is not executable", ErrStepConfiguration, kind)
	}
}

// mapInputs строит входы шага: target ← context[source].
func mapInputs(step *domain.WorkflowStep, wctx map[string]any) (map[string]any, error) {
	targets := make([]string, 0, len(step.InputMapping))
	for target := range step.InputMapping {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	inputs := make(map[string]any, len(targets))
	for _, target := range targets {
		source := step.InputMapping[target]
		value, ok := wctx[source]
		if !ok {
			return nil, fmt.Errorf("%w: %q (mapped to %q)", ErrMissingContextKey, source, target)
		}
		inputs[target] = value
	}
	return inputs, nil
}

func primaryResult(agentID string, out map[string]any) (any, error) {
	if v, ok := out[agentOutputField]; ok {
		return v, nil
	}
	if v, ok := out[agentOptimizedField]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: agent %s", ErrAgentOutput, agentID)
}
