package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/promptlib/internal/domain"
)

func newPrompt(name, content string) (*domain.Prompt, *domain.PromptVersion) {
	p := &domain.Prompt{
		ID:      uuid.New(),
		Name:    name,
		Content: content,
		Version: domain.InitialVersion,
		Tags:    []string{"test"},
	}
	v := &domain.PromptVersion{
		ID:       uuid.New(),
		PromptID: p.ID,
		Version:  p.Version,
		Content:  content,
	}
	return p, v
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p, v := newPrompt("greeting", "Hello {{name}}")
	require.NoError(t, s.CreatePrompt(ctx, p, v))

	got, err := s.GetPrompt(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "greeting", got.Name)

	byName, err := s.GetPromptByName(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byName.ID)

	versions, err := s.ListVersions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, domain.InitialVersion, versions[0].Version)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p, v := newPrompt("greeting", "Hello")
	require.NoError(t, s.CreatePrompt(ctx, p, v))

	p.Content = "changed by caller"
	got, err := s.GetPrompt(ctx, p.ID)
	require.NoError(t, err)
	got.Tags[0] = "mutated"

	again, err := s.GetPrompt(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", again.Content)
	assert.Equal(t, []string{"test"}, again.Tags)
}

func TestMemoryStore_DuplicateName(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p1, v1 := newPrompt("same", "a")
	p2, v2 := newPrompt("same", "b")
	require.NoError(t, s.CreatePrompt(ctx, p1, v1))
	assert.ErrorIs(t, s.CreatePrompt(ctx, p2, v2), ErrAlreadyExists)
}

func TestMemoryStore_UpdatePrompt(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p, v := newPrompt("greeting", "Hello")
	require.NoError(t, s.CreatePrompt(ctx, p, v))

	updated, err := s.UpdatePrompt(ctx, p.ID, func(cur *domain.Prompt) (*domain.PromptVersion, error) {
		cur.Content = "Hi"
		cur.Version = "1.0.1"
		return &domain.PromptVersion{ID: uuid.New(), PromptID: cur.ID, Version: cur.Version, Content: cur.Content}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi", updated.Content)

	versions, err := s.ListVersions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "1.0.1", versions[1].Version)
}

func TestMemoryStore_UpdatePromptAborted(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p, v := newPrompt("greeting", "Hello")
	require.NoError(t, s.CreatePrompt(ctx, p, v))

	abort := errors.New("abort")
	_, err := s.UpdatePrompt(ctx, p.ID, func(cur *domain.Prompt) (*domain.PromptVersion, error) {
		cur.Content = "never stored"
		return nil, abort
	})
	require.ErrorIs(t, err, abort)

	got, err := s.GetPrompt(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Content)

	_, err = s.UpdatePrompt(ctx, uuid.New(), func(*domain.Prompt) (*domain.PromptVersion, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeleteKeepsHistory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p, v := newPrompt("greeting", "Hello")
	require.NoError(t, s.CreatePrompt(ctx, p, v))
	require.NoError(t, s.DeletePrompt(ctx, p.ID))

	_, err := s.GetPrompt(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeletePrompt(ctx, p.ID), ErrNotFound)

	versions, err := s.ListVersions(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestMemoryStore_ListAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, item := range []struct{ name, content, category string }{
		{"zeta", "Summarize the text", "writing"},
		{"alpha", "Translate the TEXT", "language"},
		{"beta", "Write a poem", "writing"},
	} {
		p, v := newPrompt(item.name, item.content)
		p.Category = item.category
		require.NoError(t, s.CreatePrompt(ctx, p, v))
	}

	all, err := s.ListPrompts(ctx, domain.PromptFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Name)

	writing, err := s.ListPrompts(ctx, domain.PromptFilter{Category: "writing"})
	require.NoError(t, err)
	require.Len(t, writing, 2)
	assert.Equal(t, "beta", writing[0].Name)

	zeta, err := s.GetPromptByName(ctx, "zeta")
	require.NoError(t, err)
	require.NoError(t, s.IncrementUsage(ctx, zeta.ID))

	found, err := s.SearchPrompts(ctx, "text")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "zeta", found[0].Name)
	assert.Equal(t, 1, found[0].UsageCount)
	assert.NotNil(t, found[0].LastUsedAt)
	assert.Equal(t, "alpha", found[1].Name)
}

func TestMemoryStore_Workflows(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	wf := &domain.Workflow{
		ID:        uuid.New(),
		Name:      "review",
		StartStep: "s1",
		Steps:     map[string]*domain.WorkflowStep{"s1": {ID: "s1", Prompt: "p"}},
	}
	require.NoError(t, s.SaveWorkflow(ctx, wf))

	wf.Description = "replaced"
	require.NoError(t, s.SaveWorkflow(ctx, wf))

	got, err := s.GetWorkflowByName(ctx, "review")
	require.NoError(t, err)
	assert.Equal(t, "replaced", got.Description)

	clash := &domain.Workflow{ID: uuid.New(), Name: "review"}
	assert.ErrorIs(t, s.SaveWorkflow(ctx, clash), ErrAlreadyExists)

	list, err := s.ListWorkflows(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteWorkflow(ctx, wf.ID))
	_, err = s.GetWorkflow(ctx, wf.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
