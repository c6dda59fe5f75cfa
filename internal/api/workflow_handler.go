package api

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/shaiso/promptlib/internal/domain"
	"github.com/shaiso/promptlib/internal/workflow"
)

// ListWorkflows возвращает все workflows.
// GET /api/v1/workflows
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.workflows.List(r.Context())
	if HandleError(w, h.logger, err) {
		return
	}

	result := make([]WorkflowResponse, len(workflows))
	for i, wf := range workflows {
		result[i] = WorkflowFromDomain(wf)
	}

	List(w, result, len(result))
}

// CreateWorkflow создаёт workflow из JSON или YAML тела.
// С ?replace=true существующий workflow с тем же именем заменяется.
// POST /api/v1/workflows
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.decodeWorkflow(w, r)
	if !ok {
		return
	}

	var (
		saved *domain.Workflow
		err   error
	)
	if r.URL.Query().Get("replace") == "true" {
		saved, err = h.workflows.Import(r.Context(), wf)
	} else {
		saved, err = h.workflows.Create(r.Context(), wf)
	}
	if HandleError(w, h.logger, err) {
		return
	}

	Created(w, WorkflowFromDomain(saved))
}

// decodeWorkflow читает определение. application/yaml и application/x-yaml
// разбираются YAML парсером, остальное — как JSON.
func (h *Handler) decodeWorkflow(w http.ResponseWriter, r *http.Request) (*domain.Workflow, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml":
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			BadRequest(w, "invalid request body: "+err.Error())
			return nil, false
		}
		wf, err := workflow.Parse(data)
		if err != nil {
			var verr *workflow.ValidationError
			if errors.As(err, &verr) {
				HandleError(w, h.logger, err)
			} else {
				BadRequest(w, err.Error())
			}
			return nil, false
		}
		return wf, true

	default:
		var wf domain.Workflow
		if !decodeJSON(w, r, &wf) {
			return nil, false
		}
		return &wf, true
	}
}

// GetWorkflow возвращает workflow по UUID или имени.
// GET /api/v1/workflows/{ref}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.workflows.Lookup(r.Context(), r.PathValue("ref"))
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, WorkflowFromDomain(wf))
}

// DeleteWorkflow удаляет workflow.
// DELETE /api/v1/workflows/{ref}
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.workflows.Lookup(r.Context(), r.PathValue("ref"))
	if HandleError(w, h.logger, err) {
		return
	}

	if HandleError(w, h.logger, h.workflows.Delete(r.Context(), wf.ID)) {
		return
	}

	NoContent(w)
}

// RunWorkflow выполняет workflow синхронно.
//
// Завершённый run (в том числе FAILED) возвращается с кодом 200:
// статус и шаг ошибки видны в теле. Ошибки до начала выполнения
// (workflow не найден, не проходит валидацию) — обычные ошибки API.
// POST /api/v1/workflows/{ref}/runs
func (h *Handler) RunWorkflow(w http.ResponseWriter, r *http.Request) {
	var req RunWorkflowRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	run, err := h.workflows.Run(r.Context(), r.PathValue("ref"), req.Inputs)
	if run == nil {
		HandleError(w, h.logger, err)
		return
	}

	Success(w, RunFromDomain(run))
}
