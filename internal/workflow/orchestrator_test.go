package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/promptlib/internal/domain"
	"github.com/shaiso/promptlib/internal/engine"
	"github.com/shaiso/promptlib/internal/prompt"
	"github.com/shaiso/promptlib/internal/repo"
)

// recordingExecutor записывает выполненные шаги и кладёт в контекст
// "<id>_result" = "<id> done".
type recordingExecutor struct {
	executed []string
	failOn   string
	err      error
}

func (e *recordingExecutor) Execute(_ context.Context, step *domain.WorkflowStep, wctx map[string]any) (map[string]any, error) {
	e.executed = append(e.executed, step.ID)
	if step.ID == e.failOn {
		return nil, e.err
	}
	wctx[step.ResultKey()] = step.ID + " done"
	return wctx, nil
}

func branchingWorkflow() *domain.Workflow {
	return &domain.Workflow{
		Name:      "branching",
		StartStep: "s1",
		Steps: map[string]*domain.WorkflowStep{
			"s1": {
				ID:        "s1",
				Condition: &domain.Condition{Variable: "input", Operator: domain.OperatorEq, Value: "A"},
				OnTrue:    "stepA",
				OnFalse:   "stepB",
			},
			"stepA": {ID: "stepA", Prompt: "a"},
			"stepB": {ID: "stepB", Prompt: "b"},
		},
	}
}

func TestOrchestrator_Branching(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		skipped  string
	}{
		{input: "A", expected: "stepA", skipped: "stepB"},
		{input: "B", expected: "stepB", skipped: "stepA"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			exec := &recordingExecutor{}
			orch := NewOrchestrator(Config{Executor: exec})

			run, err := orch.Run(context.Background(), branchingWorkflow(), map[string]any{"input": tt.input})
			require.NoError(t, err)

			assert.Equal(t, domain.RunStatusSucceeded, run.Status)
			assert.Equal(t, []string{tt.expected}, exec.executed)
			assert.Equal(t, []string{"s1", tt.expected}, run.Path)
			assert.Contains(t, run.Context, tt.expected+"_result")
			assert.NotContains(t, run.Context, tt.skipped+"_result")
			assert.NotContains(t, run.Context, "s1_result")
		})
	}
}

func TestOrchestrator_LinearChain(t *testing.T) {
	wf := &domain.Workflow{
		StartStep: "s1",
		Steps: map[string]*domain.WorkflowStep{
			"s1": {ID: "s1", Prompt: "p", Next: "s2"},
			"s2": {ID: "s2", Agent: "x", Next: "s3"},
			"s3": {ID: "s3", Prompt: "p"},
		},
	}
	exec := &recordingExecutor{}
	orch := NewOrchestrator(Config{Executor: exec})

	run, err := orch.Run(context.Background(), wf, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2", "s3"}, exec.executed)
	assert.Equal(t, []string{"s1", "s2", "s3"}, run.Path)
	assert.NotNil(t, run.StartedAt)
	assert.NotNil(t, run.FinishedAt)
}

func TestOrchestrator_CycleDetected(t *testing.T) {
	wf := &domain.Workflow{
		StartStep: "s1",
		Steps: map[string]*domain.WorkflowStep{
			"s1": {ID: "s1", Prompt: "p", Next: "s1"},
		},
	}
	exec := &recordingExecutor{}
	orch := NewOrchestrator(Config{Executor: exec})

	run, err := orch.Run(context.Background(), wf, nil)
	require.ErrorIs(t, err, ErrWorkflowCycle)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "s1", stepErr.StepID)

	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Equal(t, "s1", run.FailedStep)
	assert.Equal(t, []string{"s1"}, exec.executed)
	assert.Equal(t, []string{"s1"}, run.Path)
}

func TestOrchestrator_ConditionCycle(t *testing.T) {
	wf := &domain.Workflow{
		StartStep: "work",
		Steps: map[string]*domain.WorkflowStep{
			"work": {ID: "work", Prompt: "p", Next: "check"},
			"check": {
				ID:        "check",
				Condition: &domain.Condition{Variable: "approved", Operator: domain.OperatorEq, Value: true},
				OnTrue:    "done",
				OnFalse:   "work",
			},
			"done": {ID: "done", Prompt: "p"},
		},
	}
	orch := NewOrchestrator(Config{Executor: &recordingExecutor{}})

	_, err := orch.Run(context.Background(), wf, nil)
	require.ErrorIs(t, err, ErrWorkflowCycle)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "work", stepErr.StepID)
}

func TestOrchestrator_StepFailure(t *testing.T) {
	boom := errors.New("boom")
	wf := &domain.Workflow{
		StartStep: "s1",
		Steps: map[string]*domain.WorkflowStep{
			"s1": {ID: "s1", Prompt: "p", Next: "s2"},
			"s2": {ID: "s2", Prompt: "p", Next: "s3"},
			"s3": {ID: "s3", Prompt: "p"},
		},
	}
	exec := &recordingExecutor{failOn: "s2", err: boom}
	orch := NewOrchestrator(Config{Executor: exec})

	run, err := orch.Run(context.Background(), wf, nil)
	require.ErrorIs(t, err, boom)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "s2", stepErr.StepID)

	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Equal(t, "s1 done", run.Context["s1_result"])
	assert.Equal(t, []string{"s1", "s2"}, exec.executed)
	assert.Contains(t, run.Error, "boom")
}

func TestOrchestrator_InvalidWorkflow(t *testing.T) {
	wf := &domain.Workflow{
		StartStep: "s1",
		Steps: map[string]*domain.WorkflowStep{
			"s1": {ID: "s1", Prompt: "p", Agent: "a"},
		},
	}
	exec := &recordingExecutor{}
	orch := NewOrchestrator(Config{Executor: exec})

	run, err := orch.Run(context.Background(), wf, nil)
	require.ErrorIs(t, err, ErrStepConfiguration)
	assert.Nil(t, run)
	assert.Empty(t, exec.executed)
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &recordingExecutor{}
	orch := NewOrchestrator(Config{Executor: exec})

	run, err := orch.Run(ctx, branchingWorkflow(), map[string]any{"input": "A"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Empty(t, exec.executed)
}

func TestOrchestrator_DoesNotMutateInitialContext(t *testing.T) {
	initial := map[string]any{"input": "A"}
	orch := NewOrchestrator(Config{Executor: &recordingExecutor{}})

	_, err := orch.Run(context.Background(), branchingWorkflow(), initial)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"input": "A"}, initial)
}

func TestOrchestrator_PromptChainEndToEnd(t *testing.T) {
	ctx := context.Background()
	prompts := prompt.NewService(prompt.Config{
		Store:  repo.NewMemoryStore(),
		Engine: engine.New(),
	})

	first, err := prompts.Create(ctx, prompt.CreateRequest{Name: "first", Content: "Input is {{val}}"})
	require.NoError(t, err)
	_, err = prompts.Create(ctx, prompt.CreateRequest{Name: "second", Content: "Step1 result was: {{prev}}"})
	require.NoError(t, err)

	wf := &domain.Workflow{
		Name:      "chain",
		StartStep: "s1",
		Steps: map[string]*domain.WorkflowStep{
			"s1": {
				ID:           "s1",
				Prompt:       first.ID.String(),
				InputMapping: map[string]string{"val": "input"},
				OutputKey:    "res1",
				Next:         "s2",
			},
			"s2": {
				ID:           "s2",
				Prompt:       "second",
				InputMapping: map[string]string{"prev": "res1"},
			},
		},
	}

	orch := NewOrchestrator(Config{
		Executor: NewExecutor(ExecutorConfig{Prompts: prompts}),
	})

	run, err := orch.Run(ctx, wf, map[string]any{"input": "HELLO"})
	require.NoError(t, err)

	assert.Equal(t, "Input is HELLO", run.Context["res1"])
	assert.Equal(t, "Step1 result was: Input is HELLO", run.Context["s2_result"])
	assert.Equal(t, "HELLO", run.Context["input"])

	used, err := prompts.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, used.UsageCount)
}
