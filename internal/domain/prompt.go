package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// InitialVersion — версия, которую получает новый prompt.
const InitialVersion = "1.0.0"

// Prompt — именованный версионируемый текстовый шаблон.
//
// Content — тело шаблона. Checksum всегда равен sha256(Content),
// Version меняется только при изменении Content.
type Prompt struct {
	// ID — уникальный идентификатор prompt.
	ID uuid.UUID `json:"id"`

	// Name — уникальное имя (например, "code-review").
	Name string `json:"name"`

	// Description — описание назначения prompt.
	Description string `json:"description,omitempty"`

	// Content — тело шаблона.
	Content string `json:"content"`

	// Variables — имена переменных, найденные в шаблоне.
	// Вычисляются из Content и носят справочный характер.
	Variables []string `json:"variables"`

	// VariableDefinitions — необязательные описания переменных
	// (default, required, type, pattern).
	VariableDefinitions []VariableDefinition `json:"variable_definitions,omitempty"`

	// Tags — метки для фильтрации.
	Tags []string `json:"tags,omitempty"`

	// Category — категория (пустая строка означает "без категории").
	Category string `json:"category,omitempty"`

	// Author — автор последнего изменения.
	Author string `json:"author,omitempty"`

	// Version — точечная числовая версия ("1.0.3").
	Version string `json:"version"`

	// Checksum — sha256 от Content в hex.
	Checksum string `json:"checksum"`

	// UsageCount — сколько раз prompt был отрендерен.
	UsageCount int `json:"usage_count"`

	// LastUsedAt — время последнего рендеринга.
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`

	// Metadata — произвольные данные.
	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTags возвращает true, если prompt содержит все перечисленные теги.
func (p *Prompt) HasTags(tags []string) bool {
	for _, tag := range tags {
		if !slices.Contains(p.Tags, tag) {
			return false
		}
	}
	return true
}

// Definitions возвращает описания переменных по имени.
func (p *Prompt) Definitions() map[string]VariableDefinition {
	defs := make(map[string]VariableDefinition, len(p.VariableDefinitions))
	for _, d := range p.VariableDefinitions {
		defs[d.Name] = d
	}
	return defs
}

// MarkUsed увеличивает счётчик использования.
func (p *Prompt) MarkUsed(at time.Time) {
	p.UsageCount++
	p.LastUsedAt = &at
}

// Clone возвращает глубокую копию prompt.
// Хранилища отдают копии, чтобы вызывающий код не менял их состояние.
func (p *Prompt) Clone() *Prompt {
	c := *p
	c.Variables = slices.Clone(p.Variables)
	c.VariableDefinitions = slices.Clone(p.VariableDefinitions)
	c.Tags = slices.Clone(p.Tags)
	if p.LastUsedAt != nil {
		t := *p.LastUsedAt
		c.LastUsedAt = &t
	}
	if p.Metadata != nil {
		c.Metadata = make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// PromptFilter — фильтр для списка prompts.
type PromptFilter struct {
	// Category — точное совпадение категории (пусто — любая).
	Category string

	// Tags — prompt должен содержать все теги.
	Tags []string
}

// Matches проверяет prompt на соответствие фильтру.
func (f PromptFilter) Matches(p *Prompt) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	return p.HasTags(f.Tags)
}

// PromptVersion — неизменяемый снимок содержимого prompt.
//
// Создаётся один раз на каждое изменение Content. Не изменяется и не удаляется.
type PromptVersion struct {
	ID       uuid.UUID `json:"id"`
	PromptID uuid.UUID `json:"prompt_id"`

	// Version — версия prompt на момент снимка.
	Version string `json:"version"`

	Content  string `json:"content"`
	Checksum string `json:"checksum"`
	Author   string `json:"author,omitempty"`

	// ChangeNote — описание изменения ("Initial version", "Rollback to 1.0.0", ...).
	ChangeNote string `json:"change_note"`

	CreatedAt time.Time `json:"created_at"`
}

// PromptStats — сводная статистика по библиотеке prompts.
type PromptStats struct {
	TotalPrompts int            `json:"total_prompts"`
	TotalUsage   int            `json:"total_usage"`
	Categories   map[string]int `json:"categories"`
}
