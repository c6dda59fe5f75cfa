package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "promptlib"

// Metrics — prometheus метрики prompt library.
//
// Все методы допускают nil-получателя: сервисы без метрик просто не пишут их.
type Metrics struct {
	renders         *prometheus.CounterVec
	versionsCreated prometheus.Counter
	workflowRuns    *prometheus.CounterVec
	runDuration     prometheus.Histogram
	stepDuration    *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewMetrics регистрирует метрики в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		renders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompt_renders_total",
			Help:      "Prompt renders by result.",
		}, []string{"result"}),

		versionsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompt_versions_created_total",
			Help:      "Prompt versions appended to history.",
		}),

		workflowRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_runs_total",
			Help:      "Finished workflow runs by status.",
		}, []string{"status"}),

		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_run_duration_seconds",
			Help:      "Workflow run duration.",
			Buckets:   prometheus.DefBuckets,
		}),

		stepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_step_duration_seconds",
			Help:      "Workflow step duration by kind and result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "result"}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),

		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// PromptRendered учитывает рендеринг prompt.
func (m *Metrics) PromptRendered(ok bool) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(result(ok)).Inc()
}

// VersionCreated учитывает новую версию prompt.
func (m *Metrics) VersionCreated() {
	if m == nil {
		return
	}
	m.versionsCreated.Inc()
}

// WorkflowRunFinished учитывает завершённый run.
func (m *Metrics) WorkflowRunFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.workflowRuns.WithLabelValues(status).Inc()
	m.runDuration.Observe(d.Seconds())
}

// StepExecuted учитывает выполнение шага workflow.
func (m *Metrics) StepExecuted(kind string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(kind, result(ok)).Observe(d.Seconds())
}

// HTTPRequest учитывает обработанный HTTP запрос.
func (m *Metrics) HTTPRequest(method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(d.Seconds())
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
