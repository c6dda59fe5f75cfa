package workflow

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/promptlib/internal/domain"
	"github.com/shaiso/promptlib/internal/repo"
)

var (
	_ Store = (*repo.MemoryStore)(nil)
	_ Store = (*repo.PostgresStore)(nil)
)

type fakePublisher struct {
	mu     sync.Mutex
	events []string
	last   any
}

func (f *fakePublisher) PublishEvent(_ context.Context, eventType string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	f.last = payload
	return nil
}

func newTestService(exec StepExecutor) (*Service, *fakePublisher) {
	pub := &fakePublisher{}
	svc := NewService(ServiceConfig{
		Store:        repo.NewMemoryStore(),
		Orchestrator: NewOrchestrator(Config{Executor: exec}),
		Events:       pub,
	})
	return svc, pub
}

func TestService_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(&recordingExecutor{})

	created, err := svc.Create(ctx, branchingWorkflow())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := svc.Lookup(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "branching", byID.Name)

	byName, err := svc.Lookup(ctx, "branching")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	assert.Equal(t, []string{domain.EventWorkflowCreated}, pub.events)
}

func TestService_CreateErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(&recordingExecutor{})

	unnamed := branchingWorkflow()
	unnamed.Name = "  "
	_, err := svc.Create(ctx, unnamed)
	assert.ErrorIs(t, err, ErrInvalidWorkflow)

	invalid := branchingWorkflow()
	invalid.Steps["stepA"].Next = "ghost"
	_, err = svc.Create(ctx, invalid)
	assert.ErrorIs(t, err, ErrStepNotFound)

	_, err = svc.Create(ctx, branchingWorkflow())
	require.NoError(t, err)
	_, err = svc.Create(ctx, branchingWorkflow())
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestService_ImportReplacesByName(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(&recordingExecutor{})

	first, err := svc.Import(ctx, branchingWorkflow())
	require.NoError(t, err)

	updated := branchingWorkflow()
	updated.Description = "v2"
	second, err := svc.Import(ctx, updated)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "v2", all[0].Description)

	assert.Equal(t, []string{domain.EventWorkflowCreated, domain.EventWorkflowUpdated}, pub.events)
	event, ok := pub.last.(domain.WorkflowEvent)
	require.True(t, ok)
	assert.Equal(t, first.ID.String(), event.WorkflowID)
	assert.Equal(t, len(updated.Steps), event.Steps)
}

func TestService_ImportDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.yaml"),
		[]byte("start_step: s1\nsteps:\n  s1: {prompt: hello}\n"), 0o644))

	svc, _ := newTestService(&recordingExecutor{})
	imported, err := svc.ImportDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, imported, 1)

	wf, err := svc.Lookup(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, imported[0].ID, wf.ID)
}

func TestService_Run(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(&recordingExecutor{})

	_, err := svc.Create(ctx, branchingWorkflow())
	require.NoError(t, err)

	run, err := svc.Run(ctx, "branching", map[string]any{"input": "A"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSucceeded, run.Status)
	assert.Equal(t, "stepA done", run.Context["stepA_result"])

	require.Len(t, pub.events, 2)
	assert.Equal(t, domain.EventWorkflowRunCompleted, pub.events[1])

	event, ok := pub.last.(domain.WorkflowRunEvent)
	require.True(t, ok)
	assert.Equal(t, run.ID.String(), event.RunID)
	assert.Equal(t, []string{"s1", "stepA"}, event.Path)
}

func TestService_RunFailurePublishesEvent(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(&recordingExecutor{})

	wf := &domain.Workflow{
		Name:      "loop",
		StartStep: "s1",
		Steps:     map[string]*domain.WorkflowStep{"s1": {Prompt: "p", Next: "s1"}},
	}
	_, err := svc.Create(ctx, wf)
	require.NoError(t, err)

	run, err := svc.Run(ctx, "loop", nil)
	require.ErrorIs(t, err, ErrWorkflowCycle)
	assert.Equal(t, domain.RunStatusFailed, run.Status)

	assert.Equal(t, domain.EventWorkflowRunFailed, pub.events[len(pub.events)-1])
	event := pub.last.(domain.WorkflowRunEvent)
	assert.Equal(t, "s1", event.FailedStep)
}

func TestService_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(&recordingExecutor{})

	_, err := svc.Run(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrWorkflowNotFound)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrWorkflowNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, uuid.New()), ErrWorkflowNotFound)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(&recordingExecutor{})

	created, err := svc.Create(ctx, branchingWorkflow())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
}
