package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/promptlib/internal/domain"
	"github.com/shaiso/promptlib/internal/prompt"
)

// Prompt DTOs

// CreatePromptRequest — запрос на создание prompt.
type CreatePromptRequest = prompt.CreateRequest

// UpdatePromptRequest — запрос на обновление prompt.
type UpdatePromptRequest = prompt.UpdateRequest

// PromptResponse — ответ с prompt.
type PromptResponse struct {
	ID                  uuid.UUID                   `json:"id"`
	Name                string                      `json:"name"`
	Description         string                      `json:"description,omitempty"`
	Content             string                      `json:"content"`
	Variables           []string                    `json:"variables"`
	VariableDefinitions []domain.VariableDefinition `json:"variable_definitions,omitempty"`
	Tags                []string                    `json:"tags"`
	Category            string                      `json:"category,omitempty"`
	Author              string                      `json:"author,omitempty"`
	Version             string                      `json:"version"`
	Checksum            string                      `json:"checksum"`
	UsageCount          int                         `json:"usage_count"`
	LastUsedAt          *time.Time                  `json:"last_used_at,omitempty"`
	Metadata            map[string]any              `json:"metadata,omitempty"`
	CreatedAt           time.Time                   `json:"created_at"`
	UpdatedAt           time.Time                   `json:"updated_at"`
}

// PromptFromDomain конвертирует domain.Prompt в PromptResponse.
func PromptFromDomain(p *domain.Prompt) PromptResponse {
	vars := p.Variables
	if vars == nil {
		vars = []string{}
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	return PromptResponse{
		ID:                  p.ID,
		Name:                p.Name,
		Description:         p.Description,
		Content:             p.Content,
		Variables:           vars,
		VariableDefinitions: p.VariableDefinitions,
		Tags:                tags,
		Category:            p.Category,
		Author:              p.Author,
		Version:             p.Version,
		Checksum:            p.Checksum,
		UsageCount:          p.UsageCount,
		LastUsedAt:          p.LastUsedAt,
		Metadata:            p.Metadata,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

// PromptsFromDomain конвертирует список prompts.
func PromptsFromDomain(prompts []*domain.Prompt) []PromptResponse {
	result := make([]PromptResponse, len(prompts))
	for i, p := range prompts {
		result[i] = PromptFromDomain(p)
	}
	return result
}

// VersionResponse — ответ с версией prompt.
type VersionResponse struct {
	ID         uuid.UUID `json:"id"`
	PromptID   uuid.UUID `json:"prompt_id"`
	Version    string    `json:"version"`
	Content    string    `json:"content"`
	Checksum   string    `json:"checksum"`
	Author     string    `json:"author,omitempty"`
	ChangeNote string    `json:"change_note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// VersionFromDomain конвертирует domain.PromptVersion в VersionResponse.
func VersionFromDomain(v *domain.PromptVersion) VersionResponse {
	return VersionResponse{
		ID:         v.ID,
		PromptID:   v.PromptID,
		Version:    v.Version,
		Content:    v.Content,
		Checksum:   v.Checksum,
		Author:     v.Author,
		ChangeNote: v.ChangeNote,
		CreatedAt:  v.CreatedAt,
	}
}

// RenderRequest — запрос на рендеринг.
type RenderRequest struct {
	Variables map[string]any `json:"variables"`
}

// RenderResponse — результат рендеринга.
type RenderResponse struct {
	PromptID uuid.UUID `json:"prompt_id"`
	Version  string    `json:"version"`
	Output   string    `json:"output"`
}

// RollbackRequest — запрос на откат к версии.
type RollbackRequest struct {
	Version string `json:"version"`
}

// DiffResponse — unified diff между версиями.
type DiffResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
	Diff string `json:"diff"`
}

// Workflow DTOs

// WorkflowResponse — ответ с workflow.
type WorkflowResponse struct {
	ID          uuid.UUID                       `json:"id"`
	Name        string                          `json:"name"`
	Description string                          `json:"description,omitempty"`
	StartStep   string                          `json:"start_step"`
	Steps       map[string]*domain.WorkflowStep `json:"steps"`
	Metadata    map[string]any                  `json:"metadata,omitempty"`
	CreatedAt   time.Time                       `json:"created_at"`
	UpdatedAt   time.Time                       `json:"updated_at"`
}

// WorkflowFromDomain конвертирует domain.Workflow в WorkflowResponse.
func WorkflowFromDomain(wf *domain.Workflow) WorkflowResponse {
	return WorkflowResponse{
		ID:          wf.ID,
		Name:        wf.Name,
		Description: wf.Description,
		StartStep:   wf.StartStep,
		Steps:       wf.Steps,
		Metadata:    wf.Metadata,
		CreatedAt:   wf.CreatedAt,
		UpdatedAt:   wf.UpdatedAt,
	}
}

// RunWorkflowRequest — запрос на запуск workflow.
type RunWorkflowRequest struct {
	Inputs map[string]any `json:"inputs"`
}

// RunResponse — результат выполнения workflow.
type RunResponse struct {
	ID         uuid.UUID        `json:"id"`
	WorkflowID uuid.UUID        `json:"workflow_id"`
	Status     domain.RunStatus `json:"status"`
	Context    map[string]any   `json:"context"`
	Path       []string         `json:"path"`
	FailedStep string           `json:"failed_step,omitempty"`
	Error      string           `json:"error,omitempty"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	DurationMs int64            `json:"duration_ms"`
}

// RunFromDomain конвертирует domain.WorkflowRun в RunResponse.
func RunFromDomain(run *domain.WorkflowRun) RunResponse {
	return RunResponse{
		ID:         run.ID,
		WorkflowID: run.WorkflowID,
		Status:     run.Status,
		Context:    run.Context,
		Path:       run.Path,
		FailedStep: run.FailedStep,
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		DurationMs: run.Duration().Milliseconds(),
	}
}
