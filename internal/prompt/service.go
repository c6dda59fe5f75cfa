package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/promptlib/internal/domain"
	"github.com/shaiso/promptlib/internal/engine"
	"github.com/shaiso/promptlib/internal/repo"
	"github.com/shaiso/promptlib/internal/telemetry"
)

// Заметки к версиям по умолчанию.
const (
	noteInitial  = "Initial version"
	noteUpdate   = "Content update"
	noteRollback = "Rollback to "
)

// Store — хранилище prompts и их истории.
//
// UpdatePrompt выполняет read-modify-write атомарно: загружает prompt под
// блокировкой, передаёт копию в mutate, сохраняет результат и, если mutate
// вернул PromptVersion, добавляет её в историю. Ошибка mutate отменяет запись.
type Store interface {
	CreatePrompt(ctx context.Context, p *domain.Prompt, v *domain.PromptVersion) error
	UpdatePrompt(ctx context.Context, id uuid.UUID, mutate func(p *domain.Prompt) (*domain.PromptVersion, error)) (*domain.Prompt, error)
	GetPrompt(ctx context.Context, id uuid.UUID) (*domain.Prompt, error)
	GetPromptByName(ctx context.Context, name string) (*domain.Prompt, error)
	DeletePrompt(ctx context.Context, id uuid.UUID) error
	ListPrompts(ctx context.Context, filter domain.PromptFilter) ([]*domain.Prompt, error)
	SearchPrompts(ctx context.Context, query string) ([]*domain.Prompt, error)
	ListVersions(ctx context.Context, promptID uuid.UUID) ([]*domain.PromptVersion, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) error
}

// EventPublisher публикует события жизненного цикла.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, payload any) error
}

// CreateRequest — данные для создания prompt.
type CreateRequest struct {
	Name                string                      `json:"name"`
	Description         string                      `json:"description,omitempty"`
	Content             string                      `json:"content"`
	VariableDefinitions []domain.VariableDefinition `json:"variable_definitions,omitempty"`
	Tags                []string                    `json:"tags,omitempty"`
	Category            string                      `json:"category,omitempty"`
	Author              string                      `json:"author,omitempty"`
	Metadata            map[string]any              `json:"metadata,omitempty"`
}

// UpdateRequest — изменяемые поля prompt.
//
// Nil означает "без изменений". ID, Version и Checksum не задаются напрямую:
// они выводятся из Content.
type UpdateRequest struct {
	Content             *string                     `json:"content,omitempty"`
	Description         *string                     `json:"description,omitempty"`
	Category            *string                     `json:"category,omitempty"`
	Author              *string                     `json:"author,omitempty"`
	Tags                []string                    `json:"tags,omitempty"`
	Metadata            map[string]any              `json:"metadata,omitempty"`
	VariableDefinitions []domain.VariableDefinition `json:"variable_definitions,omitempty"`

	// ChangeNote — заметка к новой версии (по умолчанию "Content update").
	ChangeNote string `json:"change_note,omitempty"`
}

// Service — менеджер жизненного цикла prompt.
type Service struct {
	store   Store
	engine  *engine.Engine
	events  EventPublisher
	metrics *telemetry.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Config — конфигурация Service.
type Config struct {
	Store  Store
	Engine *engine.Engine

	// Events — публикация событий (опционально).
	Events EventPublisher

	// Metrics — prometheus метрики (опционально).
	Metrics *telemetry.Metrics

	Logger *slog.Logger
}

// NewService создаёт новый Service.
func NewService(cfg Config) *Service {
	eng := cfg.Engine
	if eng == nil {
		eng = engine.New()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:   cfg.Store,
		engine:  eng,
		events:  cfg.Events,
		metrics: cfg.Metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Create создаёт prompt с версией 1.0.0 и начальным снимком.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Prompt, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidPrompt)
	}

	vars, err := s.engine.ExtractVariables(req.Content)
	if err != nil {
		return nil, err
	}
	if err := engine.ValidateDefinitions(req.VariableDefinitions); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &domain.Prompt{
		ID:                  uuid.New(),
		Name:                name,
		Description:         req.Description,
		Content:             req.Content,
		Variables:           vars,
		VariableDefinitions: req.VariableDefinitions,
		Tags:                req.Tags,
		Category:            req.Category,
		Author:              req.Author,
		Version:             domain.InitialVersion,
		Checksum:            Checksum(req.Content),
		Metadata:            req.Metadata,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	v := s.snapshot(p, noteInitial)

	if err := s.store.CreatePrompt(ctx, p, v); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		return nil, fmt.Errorf("create prompt: %w", err)
	}

	s.logger.Info("prompt created",
		"prompt_id", p.ID,
		"name", p.Name,
		"variables", len(p.Variables),
	)
	s.metrics.VersionCreated()
	s.publish(ctx, domain.EventPromptCreated, promptEvent(p, noteInitial))

	return p, nil
}

// Update применяет изменения к prompt.
//
// Новая версия создаётся тогда и только тогда, когда Content отличается
// от сохранённого.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*domain.Prompt, error) {
	return s.update(ctx, id, req, false)
}

// Rollback создаёт новую версию с содержимым targetVersion.
//
// Версия всегда строго больше текущей, история только растёт.
func (s *Service) Rollback(ctx context.Context, id uuid.UUID, targetVersion string) (*domain.Prompt, error) {
	target, err := s.findVersion(ctx, id, targetVersion)
	if err != nil {
		return nil, err
	}

	content := target.Content
	return s.update(ctx, id, UpdateRequest{
		Content:    &content,
		ChangeNote: noteRollback + targetVersion,
	}, true)
}

// update — общая логика Update и Rollback.
// force создаёт версию даже при совпадающем содержимом.
func (s *Service) update(ctx context.Context, id uuid.UUID, req UpdateRequest, force bool) (*domain.Prompt, error) {
	var vars []string
	if req.Content != nil {
		var err error
		if vars, err = s.engine.ExtractVariables(*req.Content); err != nil {
			return nil, err
		}
	}
	if req.VariableDefinitions != nil {
		if err := engine.ValidateDefinitions(req.VariableDefinitions); err != nil {
			return nil, err
		}
	}

	note := req.ChangeNote
	if note == "" {
		note = noteUpdate
	}

	var created *domain.PromptVersion
	updated, err := s.store.UpdatePrompt(ctx, id, func(p *domain.Prompt) (*domain.PromptVersion, error) {
		applyFields(p, req)
		p.UpdatedAt = s.now().UTC()

		if req.Content == nil || (*req.Content == p.Content && !force) {
			return nil, nil
		}

		next, err := NextVersion(p.Version)
		if err != nil {
			return nil, &VersionError{PromptID: p.ID, Version: p.Version, Err: err}
		}

		p.Content = *req.Content
		p.Checksum = Checksum(p.Content)
		p.Variables = vars
		p.Version = next

		created = s.snapshot(p, note)
		return created, nil
	})
	if err != nil {
		return nil, s.mapNotFound(err, id.String())
	}

	if created != nil {
		s.logger.Info("prompt version created",
			"prompt_id", updated.ID,
			"version", created.Version,
			"change_note", created.ChangeNote,
		)
		s.metrics.VersionCreated()
		s.publish(ctx, domain.EventPromptVersionCreated, promptEvent(updated, created.ChangeNote))
	} else {
		s.publish(ctx, domain.EventPromptUpdated, promptEvent(updated, ""))
	}

	return updated, nil
}

// applyFields переносит нестрогие поля из запроса.
func applyFields(p *domain.Prompt, req UpdateRequest) {
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Author != nil {
		p.Author = *req.Author
	}
	if req.Tags != nil {
		p.Tags = req.Tags
	}
	if req.Metadata != nil {
		p.Metadata = req.Metadata
	}
	if req.VariableDefinitions != nil {
		p.VariableDefinitions = req.VariableDefinitions
	}
}

// Diff возвращает unified diff между двумя версиями prompt.
func (s *Service) Diff(ctx context.Context, id uuid.UUID, fromVersion, toVersion string) (string, error) {
	from, err := s.findVersion(ctx, id, fromVersion)
	if err != nil {
		return "", err
	}
	to, err := s.findVersion(ctx, id, toVersion)
	if err != nil {
		return "", err
	}

	return unifiedDiff(from.Version, from.Content, to.Version, to.Content)
}

// Render разрешает переменные и рендерит prompt по ID.
// Успешный рендеринг увеличивает счётчик использования.
func (s *Service) Render(ctx context.Context, id uuid.UUID, vars map[string]any) (string, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.RenderPrompt(ctx, p, vars)
}

// RenderRef рендерит prompt по ссылке: UUID или имя.
func (s *Service) RenderRef(ctx context.Context, ref string, vars map[string]any) (string, error) {
	p, err := s.Lookup(ctx, ref)
	if err != nil {
		return "", err
	}
	return s.RenderPrompt(ctx, p, vars)
}

// RenderPrompt рендерит загруженный prompt.
//
// Ошибки разрешения и рендеринга возвращаются без обёртки.
func (s *Service) RenderPrompt(ctx context.Context, p *domain.Prompt, vars map[string]any) (string, error) {
	out, err := s.render(p, vars)
	if err != nil {
		s.metrics.PromptRendered(false)
		s.logger.Debug("prompt render failed", "prompt_id", p.ID, "error", err)
		return "", err
	}
	s.metrics.PromptRendered(true)

	if err := s.store.IncrementUsage(ctx, p.ID); err != nil {
		return "", s.mapNotFound(err, p.ID.String())
	}
	s.publish(ctx, domain.EventPromptRendered, promptEvent(p, ""))

	return out, nil
}

func (s *Service) render(p *domain.Prompt, vars map[string]any) (string, error) {
	names, err := s.engine.ExtractVariables(p.Content)
	if err != nil {
		return "", err
	}

	resolved, err := engine.Resolve(names, vars, p.Definitions())
	if err != nil {
		return "", err
	}

	return s.engine.Render(p.Content, resolved)
}

// Get возвращает prompt по ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Prompt, error) {
	p, err := s.store.GetPrompt(ctx, id)
	if err != nil {
		return nil, s.mapNotFound(err, id.String())
	}
	return p, nil
}

// GetByName возвращает prompt по имени.
func (s *Service) GetByName(ctx context.Context, name string) (*domain.Prompt, error) {
	p, err := s.store.GetPromptByName(ctx, name)
	if err != nil {
		return nil, s.mapNotFound(err, name)
	}
	return p, nil
}

// Lookup ищет prompt по UUID, а если ref не UUID — по имени.
func (s *Service) Lookup(ctx context.Context, ref string) (*domain.Prompt, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.Get(ctx, id)
	}
	return s.GetByName(ctx, ref)
}

// List возвращает prompts, подходящие под фильтр (все теги обязательны).
func (s *Service) List(ctx context.Context, filter domain.PromptFilter) ([]*domain.Prompt, error) {
	return s.store.ListPrompts(ctx, filter)
}

// Search ищет prompts по тексту, сортировка — по usage_count убыванию.
func (s *Service) Search(ctx context.Context, query string) ([]*domain.Prompt, error) {
	return s.store.SearchPrompts(ctx, strings.TrimSpace(query))
}

// Delete удаляет prompt. История версий сохраняется.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePrompt(ctx, id); err != nil {
		return s.mapNotFound(err, id.String())
	}

	s.logger.Info("prompt deleted", "prompt_id", id, "name", p.Name)
	s.publish(ctx, domain.EventPromptDeleted, promptEvent(p, ""))
	return nil
}

// Versions возвращает историю версий в порядке создания.
func (s *Service) Versions(ctx context.Context, id uuid.UUID) ([]*domain.PromptVersion, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, id)
}

// Stats возвращает сводную статистику.
func (s *Service) Stats(ctx context.Context) (*domain.PromptStats, error) {
	prompts, err := s.store.ListPrompts(ctx, domain.PromptFilter{})
	if err != nil {
		return nil, err
	}

	stats := &domain.PromptStats{
		TotalPrompts: len(prompts),
		Categories:   make(map[string]int),
	}
	for _, p := range prompts {
		stats.TotalUsage += p.UsageCount

		category := p.Category
		if category == "" {
			category = "Uncategorized"
		}
		stats.Categories[category]++
	}
	return stats, nil
}

func (s *Service) findVersion(ctx context.Context, id uuid.UUID, version string) (*domain.PromptVersion, error) {
	versions, err := s.Versions(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		if v.Version == version {
			return v, nil
		}
	}
	return nil, &VersionError{PromptID: id, Version: version, Err: ErrVersionNotFound}
}

func (s *Service) snapshot(p *domain.Prompt, note string) *domain.PromptVersion {
	return &domain.PromptVersion{
		ID:         uuid.New(),
		PromptID:   p.ID,
		Version:    p.Version,
		Content:    p.Content,
		Checksum:   p.Checksum,
		Author:     p.Author,
		ChangeNote: note,
		CreatedAt:  s.now().UTC(),
	}
}

func (s *Service) mapNotFound(err error, ref string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrPromptNotFound, ref)
	}
	return err
}

// publish отправляет событие. Ошибка публикации не прерывает операцию.
func (s *Service) publish(ctx context.Context, eventType string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, eventType, payload); err != nil {
		s.logger.Warn("failed to publish event",
			"event", eventType,
			"error", err,
		)
	}
}

func promptEvent(p *domain.Prompt, note string) domain.PromptEvent {
	return domain.PromptEvent{
		PromptID:   p.ID.String(),
		Name:       p.Name,
		Version:    p.Version,
		ChangeNote: note,
	}
}
