package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Metrics(h.metrics),
		Logging(h.logger),
	)

	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, chain(fn))
	}

	// Prompts
	handle("GET /api/v1/prompts", h.ListPrompts)
	handle("POST /api/v1/prompts", h.CreatePrompt)
	handle("GET /api/v1/prompts/{ref}", h.GetPrompt)
	handle("PUT /api/v1/prompts/{ref}", h.UpdatePrompt)
	handle("DELETE /api/v1/prompts/{ref}", h.DeletePrompt)
	handle("POST /api/v1/prompts/{ref}/render", h.RenderPrompt)

	// Prompt versions
	handle("GET /api/v1/prompts/{ref}/versions", h.ListPromptVersions)
	handle("POST /api/v1/prompts/{ref}/rollback", h.RollbackPrompt)
	handle("GET /api/v1/prompts/{ref}/diff", h.DiffPrompt)

	handle("GET /api/v1/search", h.SearchPrompts)
	handle("GET /api/v1/stats", h.Stats)

	// Workflows
	handle("GET /api/v1/workflows", h.ListWorkflows)
	handle("POST /api/v1/workflows", h.CreateWorkflow)
	handle("GET /api/v1/workflows/{ref}", h.GetWorkflow)
	handle("DELETE /api/v1/workflows/{ref}", h.DeleteWorkflow)
	handle("POST /api/v1/workflows/{ref}/runs", h.RunWorkflow)
}
