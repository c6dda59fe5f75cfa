package agents

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Agent — исполнитель agent-шага.
//
// Результат — map, основное значение в поле "output".
type Agent interface {
	Run(ctx context.Context, inputs map[string]any) (map[string]any, error)
}

// AgentFunc позволяет использовать функцию как Agent.
type AgentFunc func(ctx context.Context, inputs map[string]any) (map[string]any, error)

// Run вызывает f.
func (f AgentFunc) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	return f(ctx, inputs)
}

// Registry — реестр агентов по ID.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// NewDefaultRegistry создаёт реестр со встроенными агентами prompt и transform.
func NewDefaultRegistry(prompts PromptRenderer) *Registry {
	r := NewRegistry()
	r.Register("prompt", &PromptAgent{Prompts: prompts})
	r.Register("transform", &TransformAgent{})
	return r
}

// Register добавляет агента. Повторная регистрация заменяет предыдущего.
func (r *Registry) Register(id string, agent Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[id] = agent
}

// Get возвращает агента по ID.
func (r *Registry) Get(id string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}
	return agent, nil
}

// Run вызывает агента по ID.
func (r *Registry) Run(ctx context.Context, id string, inputs map[string]any) (map[string]any, error) {
	agent, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	out, err := agent.Run(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", id, err)
	}
	return out, nil
}

// IDs возвращает отсортированный список зарегистрированных агентов.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
