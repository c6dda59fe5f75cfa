package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPAgent — агент, вызывающий внешний сервис по HTTP.
//
// Запрос: POST URL с JSON телом {"agent_id": ..., "inputs": {...}}.
// Ответ: JSON объект, который становится результатом агента.
// Ответ с кодом >= 400 — ошибка ErrAgentRequest.
type HTTPAgent struct {
	ID      string
	URL     string
	Timeout time.Duration
	Headers map[string]string

	// Client — HTTP клиент (по умолчанию http.DefaultClient).
	Client *http.Client
}

// agentRequest — тело запроса к HTTP агенту.
type agentRequest struct {
	AgentID string         `json:"agent_id"`
	Inputs  map[string]any `json:"inputs"`
}

// Run выполняет HTTP-запрос.
func (a *HTTPAgent) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	if a.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrAgentRequest)
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(agentRequest{AgentID: a.ID, Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal body: %v", ErrAgentRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrAgentRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, val := range a.Headers {
		req.Header.Set(key, val)
	}

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAgentRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrAgentRequest, err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrAgentRequest, resp.StatusCode, truncate(string(respBody), 200))
	}

	var outputs map[string]any
	if err := json.Unmarshal(respBody, &outputs); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON object: %v", ErrAgentRequest, err)
	}
	return outputs, nil
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
