package prompt

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/promptlib/internal/domain"
	"github.com/shaiso/promptlib/internal/engine"
	"github.com/shaiso/promptlib/internal/repo"
	"github.com/shaiso/promptlib/internal/telemetry"
)

var (
	_ Store = (*repo.MemoryStore)(nil)
	_ Store = (*repo.PostgresStore)(nil)
)

type recordedEvent struct {
	Type    string
	Payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakePublisher) PublishEvent(_ context.Context, eventType string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Type: eventType, Payload: payload})
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

func newTestService(t *testing.T) (*Service, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	svc := NewService(Config{
		Store:   repo.NewMemoryStore(),
		Events:  pub,
		Metrics: telemetry.NewMetrics(prometheus.NewRegistry()),
	})
	return svc, pub
}

func strPtr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{
		Name:     "code-review",
		Content:  "Review {{ code }} in {{ lang }}",
		Category: "dev",
		Tags:     []string{"review"},
	})
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", p.Version)
	assert.Equal(t, Checksum(p.Content), p.Checksum)
	assert.Equal(t, []string{"code", "lang"}, p.Variables)
	assert.NotEqual(t, uuid.Nil, p.ID)

	versions, err := svc.Versions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "1.0.0", versions[0].Version)
	assert.Equal(t, "Initial version", versions[0].ChangeNote)
	assert.Equal(t, p.Checksum, versions[0].Checksum)

	assert.Equal(t, []string{domain.EventPromptCreated}, pub.types())
}

func TestCreate_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{Name: " ", Content: "x"})
	assert.ErrorIs(t, err, ErrInvalidPrompt)

	_, err = svc.Create(ctx, CreateRequest{Name: "bad", Content: "{{ broken"})
	assert.ErrorIs(t, err, engine.ErrTemplateSyntax)

	_, err = svc.Create(ctx, CreateRequest{
		Name:                "bad-def",
		Content:             "{{ x }}",
		VariableDefinitions: []domain.VariableDefinition{{Name: "x", Type: "date"}},
	})
	assert.ErrorIs(t, err, engine.ErrInvalidDefinition)

	_, err = svc.Create(ctx, CreateRequest{Name: "dup", Content: "a"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{Name: "dup", Content: "b"})
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestUpdate_SameContentKeepsVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Name: "p", Content: "Hello {{ name }}"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, p.ID, UpdateRequest{
		Content:     strPtr("Hello {{ name }}"),
		Description: strPtr("greeting"),
		Tags:        []string{"a", "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", updated.Version)
	assert.Equal(t, p.Checksum, updated.Checksum)
	assert.Equal(t, "greeting", updated.Description)
	assert.Equal(t, []string{"a", "b"}, updated.Tags)

	versions, err := svc.Versions(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestUpdate_NewContentBumpsVersion(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Name: "p", Content: "Hello {{ name }}"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, p.ID, UpdateRequest{Content: strPtr("Hi {{ name }}, {{ mood }}")})
	require.NoError(t, err)

	assert.Equal(t, "1.0.1", updated.Version)
	assert.Equal(t, Checksum("Hi {{ name }}, {{ mood }}"), updated.Checksum)
	assert.Equal(t, []string{"mood", "name"}, updated.Variables)

	versions, err := svc.Versions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "1.0.1", versions[1].Version)
	assert.Equal(t, "Content update", versions[1].ChangeNote)

	updated, err = svc.Update(ctx, p.ID, UpdateRequest{Content: strPtr("v3"), ChangeNote: "shorter"})
	require.NoError(t, err)
	assert.Equal(t, "1.0.2", updated.Version)

	versions, err = svc.Versions(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "shorter", versions[2].ChangeNote)

	assert.Contains(t, pub.types(), domain.EventPromptVersionCreated)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), uuid.New(), UpdateRequest{Description: strPtr("x")})
	assert.ErrorIs(t, err, ErrPromptNotFound)
}

func TestUpdate_InvalidContentLeavesPromptUntouched(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Name: "p", Content: "ok"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, p.ID, UpdateRequest{Content: strPtr("{{ if }}")})
	require.ErrorIs(t, err, engine.ErrTemplateSyntax)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Content)
	assert.Equal(t, "1.0.0", got.Version)
}

func TestRollback(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Name: "p", Content: "first"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, p.ID, UpdateRequest{Content: strPtr("second")})
	require.NoError(t, err)

	before, err := svc.Versions(ctx, p.ID)
	require.NoError(t, err)

	rolled, err := svc.Rollback(ctx, p.ID, "1.0.0")
	require.NoError(t, err)

	assert.Equal(t, "first", rolled.Content)
	assert.Equal(t, "1.0.2", rolled.Version)
	assert.Equal(t, 1, CompareVersions(rolled.Version, "1.0.1"))

	after, err := svc.Versions(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)
	assert.Equal(t, "Rollback to 1.0.0", after[len(after)-1].ChangeNote)

	// Откат на текущее содержимое тоже создаёт версию.
	rolled, err = svc.Rollback(ctx, p.ID, "1.0.2")
	require.NoError(t, err)
	assert.Equal(t, "1.0.3", rolled.Version)
}

func TestRollback_VersionNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Name: "p", Content: "first"})
	require.NoError(t, err)

	_, err = svc.Rollback(ctx, p.ID, "9.9.9")
	require.ErrorIs(t, err, ErrVersionNotFound)

	var verr *VersionError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "9.9.9", verr.Version)
	assert.Equal(t, p.ID, verr.PromptID)
}

func TestDiff(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Name: "p", Content: "line one\nold line\nline three\n"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, p.ID, UpdateRequest{Content: strPtr("line one\nnew line\nline three\n")})
	require.NoError(t, err)

	diff, err := svc.Diff(ctx, p.ID, "1.0.0", "1.0.1")
	require.NoError(t, err)

	assert.Contains(t, diff, "--- v1.0.0")
	assert.Contains(t, diff, "+++ v1.0.1")
	assert.Contains(t, diff, "-old line")
	assert.Contains(t, diff, "+new line")
	assert.Contains(t, diff, " line one")

	same, err := svc.Diff(ctx, p.ID, "1.0.0", "1.0.0")
	require.NoError(t, err)
	assert.Empty(t, same)

	_, err = svc.Diff(ctx, p.ID, "1.0.0", "2.0.0")
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestRender(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{
		Name:    "review",
		Content: "Review this {{ lang }} code:\n{{ code }}",
		VariableDefinitions: []domain.VariableDefinition{
			{Name: "lang", Default: "Python"},
		},
	})
	require.NoError(t, err)

	out, err := svc.Render(ctx, p.ID, map[string]any{"code": "x = 1"})
	require.NoError(t, err)
	assert.Equal(t, "Review this Python code:\nx = 1", out)

	out, err = svc.RenderRef(ctx, "review", map[string]any{"code": "fn main() {}", "lang": "Rust"})
	require.NoError(t, err)
	assert.Equal(t, "Review this Rust code:\nfn main() {}", out)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsageCount)
	assert.NotNil(t, got.LastUsedAt)

	assert.Equal(t, []string{
		domain.EventPromptCreated,
		domain.EventPromptRendered,
		domain.EventPromptRendered,
	}, pub.types())
	event, ok := pub.events[1].Payload.(domain.PromptEvent)
	require.True(t, ok)
	assert.Equal(t, p.ID.String(), event.PromptID)
	assert.Equal(t, "1.0.0", event.Version)
}

func TestRender_MissingVariableDoesNotCountUsage(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Name: "p", Content: "{{ code }}"})
	require.NoError(t, err)

	_, err = svc.Render(ctx, p.ID, nil)
	require.ErrorIs(t, err, engine.ErrMissingVariable)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UsageCount)
	assert.NotContains(t, pub.types(), domain.EventPromptRendered)
}

func TestListSearchStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateRequest{Name: "alpha", Content: "summarize {{ text }}", Category: "writing", Tags: []string{"a", "b"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{Name: "beta", Content: "translate {{ text }}", Category: "writing", Tags: []string{"a"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{Name: "gamma", Content: "plain"})
	require.NoError(t, err)

	list, err := svc.List(ctx, domain.PromptFilter{Category: "writing", Tags: []string{"a", "b"}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alpha", list[0].Name)

	list, err = svc.List(ctx, domain.PromptFilter{Tags: []string{"a"}})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.Render(ctx, a.ID, map[string]any{"text": "t"})
	require.NoError(t, err)

	found, err := svc.Search(ctx, "TEXT")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "alpha", found[0].Name)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalPrompts)
	assert.Equal(t, 1, stats.TotalUsage)
	assert.Equal(t, map[string]int{"writing": 2, "Uncategorized": 1}, stats.Categories)
}

func TestDelete(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Name: "p", Content: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID))

	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPromptNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, p.ID), ErrPromptNotFound)
	assert.Contains(t, pub.types(), domain.EventPromptDeleted)
}

func TestUpdate_ConcurrentContentChanges(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Name: "p", Content: "v0"})
	require.NoError(t, err)

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			content := "v" + string(rune('a'+i))
			_, err := svc.Update(ctx, p.ID, UpdateRequest{Content: &content})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.0.10", got.Version)

	versions, err := svc.Versions(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, versions, writers+1)
}
