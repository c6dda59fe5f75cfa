// promptlib-api — HTTP сервер библиотеки prompts и workflows.
//
// Использование:
//
//	promptlib-api [--config promptlib.yaml]
//
// Конфигурация читается из файла и переменных окружения PROMPTLIB_*.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/promptlib/internal/agents"
	"github.com/shaiso/promptlib/internal/api"
	"github.com/shaiso/promptlib/internal/config"
	"github.com/shaiso/promptlib/internal/mq"
	"github.com/shaiso/promptlib/internal/prompt"
	"github.com/shaiso/promptlib/internal/repo"
	"github.com/shaiso/promptlib/internal/telemetry"
	"github.com/shaiso/promptlib/internal/workflow"
)

var startTime = time.Now()

// store — хранилище prompts и workflows.
type store interface {
	prompt.Store
	workflow.Store
}

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "promptlib-api",
		Short:         "promptlib HTTP API server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting promptlib-api", "storage", cfg.Storage, "events", cfg.EventsEnabled)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// События жизненного цикла (опционально)
	var events prompt.EventPublisher
	if cfg.EventsEnabled {
		conn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
		if err != nil {
			return fmt.Errorf("connect to rabbitmq: %w", err)
		}
		defer conn.Close()

		if err := mq.SetupTopology(ctx, conn); err != nil {
			return fmt.Errorf("setup topology: %w", err)
		}
		events = mq.NewPublisher(conn, logger)
		logger.Info("connected to rabbitmq")
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	prompts := prompt.NewService(prompt.Config{
		Store:   st,
		Events:  events,
		Metrics: metrics,
		Logger:  logger,
	})

	registry := agents.NewDefaultRegistry(prompts)
	for _, a := range cfg.Agents {
		registry.Register(a.ID, &agents.HTTPAgent{
			ID:      a.ID,
			URL:     a.URL,
			Timeout: a.Timeout,
			Headers: a.Headers,
		})
		logger.Info("registered http agent", "agent_id", a.ID, "url", a.URL)
	}

	executor := workflow.NewExecutor(workflow.ExecutorConfig{
		Prompts: prompts,
		Agents:  registry,
		Metrics: metrics,
		Logger:  logger,
	})
	workflows := workflow.NewService(workflow.ServiceConfig{
		Store: st,
		Orchestrator: workflow.NewOrchestrator(workflow.Config{
			Executor: executor,
			Metrics:  metrics,
			Logger:   logger,
		}),
		Events: events,
		Logger: logger,
	})

	if cfg.WorkflowsDir != "" {
		imported, err := workflows.ImportDir(ctx, cfg.WorkflowsDir)
		if err != nil {
			return fmt.Errorf("import workflows: %w", err)
		}
		logger.Info("workflows imported", "dir", cfg.WorkflowsDir, "count", len(imported))
	}

	handler := api.NewHandler(api.Config{
		Prompts:   prompts,
		Workflows: workflows,
		Metrics:   metrics,
		Logger:    logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.APIAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
	return nil
}

// openStore открывает хранилище по cfg.Storage.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, func(), error) {
	if cfg.Storage != config.StoragePostgres {
		logger.Info("using in-memory storage")
		return repo.NewMemoryStore(), func() {}, nil
	}

	pool, err := repo.NewPool(ctx, repo.PoolConfig{DSN: cfg.DBURL, MaxConns: cfg.DBMaxConns})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := repo.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("connected to database")

	return repo.NewPostgresStore(pool), pool.Close, nil
}
