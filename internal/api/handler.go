package api

import (
	"log/slog"

	"github.com/shaiso/promptlib/internal/prompt"
	"github.com/shaiso/promptlib/internal/telemetry"
	"github.com/shaiso/promptlib/internal/workflow"
)

// maxBodySize — предел размера тела запроса.
const maxBodySize = 1 << 20

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	prompts   *prompt.Service
	workflows *workflow.Service
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Prompts   *prompt.Service
	Workflows *workflow.Service
	Metrics   *telemetry.Metrics
	Logger    *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		prompts:   cfg.Prompts,
		workflows: cfg.Workflows,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}
