package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/promptlib/internal/engine"
	"github.com/shaiso/promptlib/internal/prompt"
	"github.com/shaiso/promptlib/internal/repo"
	"github.com/shaiso/promptlib/internal/workflow"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeRenderFailed    ErrorCode = "RENDER_FAILED"
	ErrCodeInvalidWorkflow ErrorCode = "INVALID_WORKFLOW"
	ErrCodeInternalError   ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`

	// StepID — шаг workflow, к которому относится ошибка.
	StepID string `json:"step_id,omitempty"`

	// Field — поле, вызвавшее ошибку валидации.
	Field string `json:"field,omitempty"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет ответ о создании ресурса.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// NoContent отправляет ответ без тела (204).
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// HandleError отображает ошибку сервиса в HTTP ответ.
// Возвращает false, если err == nil.
func HandleError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}

	var verr *workflow.ValidationError
	if errors.As(err, &verr) {
		JSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
			Code:    ErrCodeInvalidWorkflow,
			Message: err.Error(),
			StepID:  verr.StepID,
			Field:   verr.Field,
		}})
		return true
	}

	status, code := classify(err)
	if status == http.StatusInternalServerError {
		InternalError(w, logger, err)
		return true
	}

	Error(w, status, code, err.Error())
	return true
}

func classify(err error) (int, ErrorCode) {
	switch {
	case errors.Is(err, prompt.ErrPromptNotFound),
		errors.Is(err, prompt.ErrVersionNotFound),
		errors.Is(err, workflow.ErrWorkflowNotFound),
		errors.Is(err, repo.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound

	case errors.Is(err, prompt.ErrDuplicateName),
		errors.Is(err, workflow.ErrDuplicateName),
		errors.Is(err, repo.ErrAlreadyExists):
		return http.StatusConflict, ErrCodeConflict

	case errors.Is(err, prompt.ErrInvalidPrompt),
		errors.Is(err, prompt.ErrInvalidVersion),
		errors.Is(err, engine.ErrTemplateSyntax),
		errors.Is(err, engine.ErrInvalidDefinition):
		return http.StatusBadRequest, ErrCodeBadRequest

	case errors.Is(err, workflow.ErrInvalidWorkflow),
		errors.Is(err, workflow.ErrEmptySteps):
		return http.StatusBadRequest, ErrCodeInvalidWorkflow

	case errors.Is(err, engine.ErrMissingVariable),
		errors.Is(err, engine.ErrInvalidVariableType),
		errors.Is(err, engine.ErrPatternMismatch),
		errors.Is(err, engine.ErrRender):
		return http.StatusUnprocessableEntity, ErrCodeRenderFailed

	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// decodeJSON читает тело запроса в v. Неизвестные поля — ошибка.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}
