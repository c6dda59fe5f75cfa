package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/promptlib/internal/domain"
)

// MemoryStore — хранилище в памяти процесса.
//
// Используется для локального запуска и тестов. Все записи защищены одним
// мьютексом, поэтому UpdatePrompt атомарен. Наружу отдаются только копии.
type MemoryStore struct {
	mu        sync.RWMutex
	prompts   map[uuid.UUID]*domain.Prompt
	versions  map[uuid.UUID][]*domain.PromptVersion
	workflows map[uuid.UUID]*domain.Workflow
	now       func() time.Time
}

// NewMemoryStore создаёт пустой MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prompts:   make(map[uuid.UUID]*domain.Prompt),
		versions:  make(map[uuid.UUID][]*domain.PromptVersion),
		workflows: make(map[uuid.UUID]*domain.Workflow),
		now:       time.Now,
	}
}

// --- Prompts ---

// CreatePrompt сохраняет prompt вместе с начальной версией.
func (s *MemoryStore) CreatePrompt(_ context.Context, p *domain.Prompt, v *domain.PromptVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prompts[p.ID]; ok {
		return ErrAlreadyExists
	}
	if s.promptByNameLocked(p.Name) != nil {
		return ErrAlreadyExists
	}

	s.prompts[p.ID] = p.Clone()
	if v != nil {
		s.versions[p.ID] = append(s.versions[p.ID], cloneVersion(v))
	}
	return nil
}

// UpdatePrompt выполняет mutate над копией prompt под блокировкой.
func (s *MemoryStore) UpdatePrompt(_ context.Context, id uuid.UUID, mutate func(p *domain.Prompt) (*domain.PromptVersion, error)) (*domain.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.prompts[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := current.Clone()
	v, err := mutate(next)
	if err != nil {
		return nil, err
	}
	next.ID = current.ID

	if next.Name != current.Name {
		if other := s.promptByNameLocked(next.Name); other != nil && other.ID != id {
			return nil, ErrAlreadyExists
		}
	}

	s.prompts[id] = next
	if v != nil {
		s.versions[id] = append(s.versions[id], cloneVersion(v))
	}
	return next.Clone(), nil
}

// GetPrompt возвращает prompt по ID.
func (s *MemoryStore) GetPrompt(_ context.Context, id uuid.UUID) (*domain.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prompts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// GetPromptByName возвращает prompt по имени.
func (s *MemoryStore) GetPromptByName(_ context.Context, name string) (*domain.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.promptByNameLocked(name)
	if p == nil {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// DeletePrompt удаляет prompt. История версий остаётся.
func (s *MemoryStore) DeletePrompt(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prompts[id]; !ok {
		return ErrNotFound
	}
	delete(s.prompts, id)
	return nil
}

// ListPrompts возвращает prompts по фильтру, отсортированные по имени.
func (s *MemoryStore) ListPrompts(_ context.Context, filter domain.PromptFilter) ([]*domain.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Prompt, 0, len(s.prompts))
	for _, p := range s.prompts {
		if filter.Matches(p) {
			result = append(result, p.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// SearchPrompts ищет подстроку (без учёта регистра) в имени, описании
// и содержимом. Сортировка — по usage_count убыванию.
func (s *MemoryStore) SearchPrompts(_ context.Context, query string) ([]*domain.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	result := make([]*domain.Prompt, 0)
	for _, p := range s.prompts {
		if q == "" ||
			strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Content), q) {
			result = append(result, p.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UsageCount != result[j].UsageCount {
			return result[i].UsageCount > result[j].UsageCount
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// ListVersions возвращает историю prompt в порядке создания.
func (s *MemoryStore) ListVersions(_ context.Context, promptID uuid.UUID) ([]*domain.PromptVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.versions[promptID]
	result := make([]*domain.PromptVersion, len(versions))
	for i, v := range versions {
		result[i] = cloneVersion(v)
	}
	return result, nil
}

// IncrementUsage увеличивает usage_count и обновляет last_used_at.
func (s *MemoryStore) IncrementUsage(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prompts[id]
	if !ok {
		return ErrNotFound
	}
	p.MarkUsed(s.now().UTC())
	return nil
}

func (s *MemoryStore) promptByNameLocked(name string) *domain.Prompt {
	for _, p := range s.prompts {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func cloneVersion(v *domain.PromptVersion) *domain.PromptVersion {
	c := *v
	return &c
}

// --- Workflows ---

// SaveWorkflow создаёт или заменяет workflow по ID.
// Имя должно быть уникальным среди workflows.
func (s *MemoryStore) SaveWorkflow(_ context.Context, wf *domain.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, other := range s.workflows {
		if other.Name == wf.Name && id != wf.ID {
			return ErrAlreadyExists
		}
	}
	s.workflows[wf.ID] = wf.Clone()
	return nil
}

// GetWorkflow возвращает workflow по ID.
func (s *MemoryStore) GetWorkflow(_ context.Context, id uuid.UUID) (*domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wf, ok := s.workflows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return wf.Clone(), nil
}

// GetWorkflowByName возвращает workflow по имени.
func (s *MemoryStore) GetWorkflowByName(_ context.Context, name string) (*domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, wf := range s.workflows {
		if wf.Name == name {
			return wf.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// ListWorkflows возвращает все workflows, отсортированные по имени.
func (s *MemoryStore) ListWorkflows(_ context.Context) ([]*domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		result = append(result, wf.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// DeleteWorkflow удаляет workflow.
func (s *MemoryStore) DeleteWorkflow(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workflows[id]; !ok {
		return ErrNotFound
	}
	delete(s.workflows, id)
	return nil
}
