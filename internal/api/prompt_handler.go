package api

import (
	"net/http"
	"strings"

	"github.com/shaiso/promptlib/internal/domain"
)

// ListPrompts возвращает prompts с фильтром по категории и тегам.
// GET /api/v1/prompts?category=writing&tag=a&tag=b
func (h *Handler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.PromptFilter{Category: q.Get("category")}
	for _, raw := range q["tag"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		}
	}

	prompts, err := h.prompts.List(r.Context(), filter)
	if HandleError(w, h.logger, err) {
		return
	}

	List(w, PromptsFromDomain(prompts), len(prompts))
}

// CreatePrompt создаёт новый prompt.
// POST /api/v1/prompts
func (h *Handler) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	var req CreatePromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.prompts.Create(r.Context(), req)
	if HandleError(w, h.logger, err) {
		return
	}

	Created(w, PromptFromDomain(p))
}

// GetPrompt возвращает prompt по UUID или имени.
// GET /api/v1/prompts/{ref}
func (h *Handler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	p, err := h.prompts.Lookup(r.Context(), r.PathValue("ref"))
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, PromptFromDomain(p))
}

// UpdatePrompt обновляет prompt. Новая версия создаётся только
// при изменении content.
// PUT /api/v1/prompts/{ref}
func (h *Handler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var req UpdatePromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.prompts.Lookup(r.Context(), r.PathValue("ref"))
	if HandleError(w, h.logger, err) {
		return
	}

	updated, err := h.prompts.Update(r.Context(), p.ID, req)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, PromptFromDomain(updated))
}

// DeletePrompt удаляет prompt.
// DELETE /api/v1/prompts/{ref}
func (h *Handler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	p, err := h.prompts.Lookup(r.Context(), r.PathValue("ref"))
	if HandleError(w, h.logger, err) {
		return
	}

	if HandleError(w, h.logger, h.prompts.Delete(r.Context(), p.ID)) {
		return
	}

	NoContent(w)
}

// RenderPrompt рендерит prompt с переданными переменными.
// POST /api/v1/prompts/{ref}/render
func (h *Handler) RenderPrompt(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.prompts.Lookup(r.Context(), r.PathValue("ref"))
	if HandleError(w, h.logger, err) {
		return
	}

	out, err := h.prompts.RenderPrompt(r.Context(), p, req.Variables)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, RenderResponse{PromptID: p.ID, Version: p.Version, Output: out})
}

// ListPromptVersions возвращает историю версий prompt.
// GET /api/v1/prompts/{ref}/versions
func (h *Handler) ListPromptVersions(w http.ResponseWriter, r *http.Request) {
	p, err := h.prompts.Lookup(r.Context(), r.PathValue("ref"))
	if HandleError(w, h.logger, err) {
		return
	}

	versions, err := h.prompts.Versions(r.Context(), p.ID)
	if HandleError(w, h.logger, err) {
		return
	}

	result := make([]VersionResponse, len(versions))
	for i, v := range versions {
		result[i] = VersionFromDomain(v)
	}

	List(w, result, len(result))
}

// RollbackPrompt создаёт новую версию с содержимым указанной.
// POST /api/v1/prompts/{ref}/rollback
func (h *Handler) RollbackPrompt(w http.ResponseWriter, r *http.Request) {
	var req RollbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Version == "" {
		BadRequest(w, "version is required")
		return
	}

	p, err := h.prompts.Lookup(r.Context(), r.PathValue("ref"))
	if HandleError(w, h.logger, err) {
		return
	}

	updated, err := h.prompts.Rollback(r.Context(), p.ID, req.Version)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, PromptFromDomain(updated))
}

// DiffPrompt возвращает unified diff между версиями.
// Без to сравнивает с текущей версией.
// GET /api/v1/prompts/{ref}/diff?from=1.0.0&to=1.0.2
func (h *Handler) DiffPrompt(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	if from == "" {
		BadRequest(w, "from is required")
		return
	}

	p, err := h.prompts.Lookup(r.Context(), r.PathValue("ref"))
	if HandleError(w, h.logger, err) {
		return
	}

	to := r.URL.Query().Get("to")
	if to == "" {
		to = p.Version
	}

	diff, err := h.prompts.Diff(r.Context(), p.ID, from, to)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, DiffResponse{From: from, To: to, Diff: diff})
}

// SearchPrompts ищет prompts по подстроке.
// GET /api/v1/search?q=review
func (h *Handler) SearchPrompts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		BadRequest(w, "q is required")
		return
	}

	prompts, err := h.prompts.Search(r.Context(), query)
	if HandleError(w, h.logger, err) {
		return
	}

	List(w, PromptsFromDomain(prompts), len(prompts))
}

// Stats возвращает статистику библиотеки.
// GET /api/v1/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.prompts.Stats(r.Context())
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, stats)
}
