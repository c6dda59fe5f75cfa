package domain

// Типы событий жизненного цикла (routing keys в exchange событий).
const (
	EventPromptCreated        = "prompt.created"
	EventPromptUpdated        = "prompt.updated"
	EventPromptDeleted        = "prompt.deleted"
	EventPromptVersionCreated = "prompt.version_created"
	EventPromptRendered       = "prompt.rendered"
	EventWorkflowCreated      = "workflow.created"
	EventWorkflowUpdated      = "workflow.updated"
	EventWorkflowRunCompleted = "workflow.run_completed"
	EventWorkflowRunFailed    = "workflow.run_failed"
)

// PromptEvent — payload событий prompt.*.
type PromptEvent struct {
	PromptID   string `json:"prompt_id"`
	Name       string `json:"name"`
	Version    string `json:"version,omitempty"`
	ChangeNote string `json:"change_note,omitempty"`
}

// WorkflowEvent — payload событий workflow.created / workflow.updated.
type WorkflowEvent struct {
	WorkflowID string `json:"workflow_id"`
	Name       string `json:"name"`
	Steps      int    `json:"steps"`
}

// WorkflowRunEvent — payload событий workflow.run_*.
type WorkflowRunEvent struct {
	RunID      string    `json:"run_id"`
	WorkflowID string    `json:"workflow_id"`
	Status     RunStatus `json:"status"`
	Path       []string  `json:"path"`
	FailedStep string    `json:"failed_step,omitempty"`
	Error      string    `json:"error,omitempty"`
}
