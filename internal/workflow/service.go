package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/promptlib/internal/domain"
	"github.com/shaiso/promptlib/internal/repo"
)

// Store — хранилище определений workflow.
type Store interface {
	SaveWorkflow(ctx context.Context, wf *domain.Workflow) error
	GetWorkflow(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
	GetWorkflowByName(ctx context.Context, name string) (*domain.Workflow, error)
	ListWorkflows(ctx context.Context) ([]*domain.Workflow, error)
	DeleteWorkflow(ctx context.Context, id uuid.UUID) error
}

// EventPublisher публикует события выполнения.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, payload any) error
}

// Service хранит и запускает workflows.
type Service struct {
	store        Store
	orchestrator *Orchestrator
	events       EventPublisher
	logger       *slog.Logger
}

// ServiceConfig — конфигурация Service.
type ServiceConfig struct {
	Store        Store
	Orchestrator *Orchestrator
	Events       EventPublisher
	Logger       *slog.Logger
}

// NewService создаёт новый Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:        cfg.Store,
		orchestrator: cfg.Orchestrator,
		events:       cfg.Events,
		logger:       logger,
	}
}

// Create валидирует и сохраняет новый workflow.
func (s *Service) Create(ctx context.Context, wf *domain.Workflow) (*domain.Workflow, error) {
	if err := prepare(wf); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	wf.ID = uuid.New()
	wf.CreatedAt = now
	wf.UpdatedAt = now

	if err := s.save(ctx, wf); err != nil {
		return nil, err
	}

	s.logger.Info("workflow created", "workflow_id", wf.ID, "name", wf.Name, "steps", len(wf.Steps))
	s.publish(ctx, domain.EventWorkflowCreated, workflowEvent(wf))
	return wf, nil
}

// Import сохраняет workflow, заменяя существующий с тем же именем.
func (s *Service) Import(ctx context.Context, wf *domain.Workflow) (*domain.Workflow, error) {
	if err := prepare(wf); err != nil {
		return nil, err
	}

	existing, err := s.store.GetWorkflowByName(ctx, wf.Name)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return s.Create(ctx, wf)
	case err != nil:
		return nil, fmt.Errorf("get workflow by name: %w", err)
	}

	wf.ID = existing.ID
	wf.CreatedAt = existing.CreatedAt
	wf.UpdatedAt = time.Now().UTC()

	if err := s.save(ctx, wf); err != nil {
		return nil, err
	}

	s.logger.Info("workflow replaced", "workflow_id", wf.ID, "name", wf.Name, "steps", len(wf.Steps))
	s.publish(ctx, domain.EventWorkflowUpdated, workflowEvent(wf))
	return wf, nil
}

// ImportDir импортирует все определения из каталога.
func (s *Service) ImportDir(ctx context.Context, dir string) ([]*domain.Workflow, error) {
	loaded, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}

	imported := make([]*domain.Workflow, 0, len(loaded))
	for _, wf := range loaded {
		saved, err := s.Import(ctx, wf)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", wf.Name, err)
		}
		imported = append(imported, saved)
	}
	return imported, nil
}

// Get возвращает workflow по ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	wf, err := s.store.GetWorkflow(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, id.String())
	}
	return wf, nil
}

// Lookup ищет workflow по UUID, а если ref не UUID — по имени.
func (s *Service) Lookup(ctx context.Context, ref string) (*domain.Workflow, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.Get(ctx, id)
	}

	wf, err := s.store.GetWorkflowByName(ctx, ref)
	if err != nil {
		return nil, mapNotFound(err, ref)
	}
	return wf, nil
}

// List возвращает все workflows.
func (s *Service) List(ctx context.Context) ([]*domain.Workflow, error) {
	return s.store.ListWorkflows(ctx)
}

// Delete удаляет workflow.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteWorkflow(ctx, id); err != nil {
		return mapNotFound(err, id.String())
	}
	s.logger.Info("workflow deleted", "workflow_id", id)
	return nil
}

// Run загружает workflow и выполняет его.
//
// Run не сохраняется. Результат публикуется событием
// workflow.run_completed или workflow.run_failed.
func (s *Service) Run(ctx context.Context, ref string, inputs map[string]any) (*domain.WorkflowRun, error) {
	wf, err := s.Lookup(ctx, ref)
	if err != nil {
		return nil, err
	}

	run, err := s.orchestrator.Run(ctx, wf, inputs)
	if run != nil {
		eventType := domain.EventWorkflowRunCompleted
		if run.Status == domain.RunStatusFailed {
			eventType = domain.EventWorkflowRunFailed
		}
		s.publish(ctx, eventType, domain.WorkflowRunEvent{
			RunID:      run.ID.String(),
			WorkflowID: wf.ID.String(),
			Status:     run.Status,
			Path:       run.Path,
			FailedStep: run.FailedStep,
			Error:      run.Error,
		})
	}
	return run, err
}

func (s *Service) save(ctx context.Context, wf *domain.Workflow) error {
	if err := s.store.SaveWorkflow(ctx, wf); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return fmt.Errorf("%w: %s", ErrDuplicateName, wf.Name)
		}
		return fmt.Errorf("save workflow: %w", err)
	}
	return nil
}

// publish отправляет событие. Ошибка публикации не прерывает операцию.
func (s *Service) publish(ctx context.Context, eventType string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, eventType, payload); err != nil {
		s.logger.Warn("failed to publish event", "event", eventType, "error", err)
	}
}

func workflowEvent(wf *domain.Workflow) domain.WorkflowEvent {
	return domain.WorkflowEvent{
		WorkflowID: wf.ID.String(),
		Name:       wf.Name,
		Steps:      len(wf.Steps),
	}
}

func prepare(wf *domain.Workflow) error {
	if wf == nil {
		return NewValidationError("", "", "workflow is empty", ErrEmptySteps)
	}
	wf.Name = strings.TrimSpace(wf.Name)
	if wf.Name == "" {
		return NewValidationError("", "name", "workflow name is required", ErrInvalidWorkflow)
	}
	Normalize(wf)
	return Validate(wf)
}

func mapNotFound(err error, ref string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, ref)
	}
	return err
}
