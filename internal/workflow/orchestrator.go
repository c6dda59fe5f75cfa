package workflow

import (
	"context"
	"log/slog"

	"github.com/shaiso/promptlib/internal/domain"
	"github.com/shaiso/promptlib/internal/telemetry"
)

// StepExecutor выполняет шаг и возвращает обновлённый контекст.
type StepExecutor interface {
	Execute(ctx context.Context, step *domain.WorkflowStep, wctx map[string]any) (map[string]any, error)
}

// Orchestrator обходит граф шагов workflow.
//
// Состояние — текущий шаг. Начальное состояние — start_step.
// Шаг с условием только выбирает on_true / on_false. Остальные шаги
// выполняются через StepExecutor, после чего переход идёт по next.
// Пустой successor завершает run.
type Orchestrator struct {
	executor StepExecutor
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	Executor StepExecutor
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger
}

// NewOrchestrator создаёт новый Orchestrator.
func NewOrchestrator(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		executor: cfg.Executor,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// Run выполняет workflow с начальным контекстом initial.
//
// Возвращает run с итоговым контекстом. При ошибке run тоже возвращается
// (статус FAILED, контекст на момент падения), а ошибка обёрнута в StepError.
// Ошибка валидации возвращается до начала выполнения, run при этом nil.
func (o *Orchestrator) Run(ctx context.Context, wf *domain.Workflow, initial map[string]any) (*domain.WorkflowRun, error) {
	if err := Validate(wf); err != nil {
		return nil, err
	}

	run := domain.NewWorkflowRun(wf.ID, initial)
	state := NewRunState(run, initial)
	logger := telemetry.WithRunID(telemetry.WithWorkflowID(o.logger, wf.ID.String()), run.ID.String())

	run.MarkRunning()
	logger.Info("workflow run started", "workflow", wf.Name, "start_step", wf.StartStep)

	current := wf.StartStep
	for current != "" {
		if err := ctx.Err(); err != nil {
			return o.fail(logger, state, current, err)
		}
		if err := state.Visit(current); err != nil {
			return o.fail(logger, state, current, err)
		}

		step, ok := wf.Steps[current]
		if !ok {
			return o.fail(logger, state, current, ErrStepNotFound)
		}

		next, err := o.advance(ctx, step, state)
		if err != nil {
			return o.fail(logger, state, current, err)
		}
		current = next
	}

	run.Context = state.Context
	run.MarkSucceeded()
	o.metrics.WorkflowRunFinished(run.Status.String(), run.Duration())

	logger.Info("workflow run succeeded",
		"steps", len(run.Path),
		"duration", run.Duration(),
	)
	return run, nil
}

// advance обрабатывает текущий шаг и возвращает ID следующего.
func (o *Orchestrator) advance(ctx context.Context, step *domain.WorkflowStep, state *RunState) (string, error) {
	if step.Kind() == domain.StepKindCondition {
		holds := Evaluate(step.Condition, state.Context)

		next := step.OnFalse
		if holds {
			next = step.OnTrue
		}

		o.logger.Debug("condition evaluated",
			"step_id", step.ID,
			"variable", step.Condition.Variable,
			"operator", step.Condition.Operator,
			"result", holds,
			"next", next,
		)
		return next, nil
	}

	out, err := o.executor.Execute(ctx, step, state.Context)
	if err != nil {
		return "", err
	}
	state.Merge(out)

	return step.Next, nil
}

func (o *Orchestrator) fail(logger *slog.Logger, state *RunState, stepID string, err error) (*domain.WorkflowRun, error) {
	stepErr := &StepError{StepID: stepID, Err: err}

	run := state.Run
	run.Context = state.Context
	run.MarkFailed(stepID, stepErr)
	o.metrics.WorkflowRunFinished(run.Status.String(), run.Duration())

	telemetry.WithStepID(logger, stepID).Warn("workflow run failed", "error", err)
	return run, stepErr
}
