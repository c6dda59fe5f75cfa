package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI работает только через HTTP) ---

// VariableDefinition — описание переменной prompt.
type VariableDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
	Required    *bool  `json:"required,omitempty"`
	Type        string `json:"type,omitempty"`
	Pattern     string `json:"validation_regex,omitempty"`
}

// PromptResponse — prompt из API.
type PromptResponse struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Description         string               `json:"description,omitempty"`
	Content             string               `json:"content"`
	Variables           []string             `json:"variables"`
	VariableDefinitions []VariableDefinition `json:"variable_definitions,omitempty"`
	Tags                []string             `json:"tags"`
	Category            string               `json:"category,omitempty"`
	Author              string               `json:"author,omitempty"`
	Version             string               `json:"version"`
	Checksum            string               `json:"checksum"`
	UsageCount          int                  `json:"usage_count"`
	LastUsedAt          string               `json:"last_used_at,omitempty"`
	CreatedAt           string               `json:"created_at"`
	UpdatedAt           string               `json:"updated_at"`
}

// VersionResponse — версия prompt из API.
type VersionResponse struct {
	ID         string `json:"id"`
	PromptID   string `json:"prompt_id"`
	Version    string `json:"version"`
	Content    string `json:"content"`
	Checksum   string `json:"checksum"`
	Author     string `json:"author,omitempty"`
	ChangeNote string `json:"change_note,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// RenderResponse — результат рендеринга.
type RenderResponse struct {
	PromptID string `json:"prompt_id"`
	Version  string `json:"version"`
	Output   string `json:"output"`
}

// DiffResponse — diff между версиями.
type DiffResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
	Diff string `json:"diff"`
}

// StatsResponse — статистика библиотеки.
type StatsResponse struct {
	TotalPrompts int            `json:"total_prompts"`
	TotalUsage   int            `json:"total_usage"`
	Categories   map[string]int `json:"categories"`
}

// WorkflowResponse — workflow из API.
type WorkflowResponse struct {
	ID          string                    `json:"id"`
	Name        string                    `json:"name"`
	Description string                    `json:"description,omitempty"`
	StartStep   string                    `json:"start_step"`
	Steps       map[string]map[string]any `json:"steps"`
	CreatedAt   string                    `json:"created_at"`
	UpdatedAt   string                    `json:"updated_at"`
}

// RunResponse — результат выполнения workflow.
type RunResponse struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	Status     string         `json:"status"`
	Context    map[string]any `json:"context"`
	Path       []string       `json:"path"`
	FailedStep string         `json:"failed_step,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// --- Request types ---

// CreatePromptRequest — создание prompt.
type CreatePromptRequest struct {
	Name                string               `json:"name"`
	Description         string               `json:"description,omitempty"`
	Content             string               `json:"content"`
	VariableDefinitions []VariableDefinition `json:"variable_definitions,omitempty"`
	Tags                []string             `json:"tags,omitempty"`
	Category            string               `json:"category,omitempty"`
	Author              string               `json:"author,omitempty"`
}

// UpdatePromptRequest — обновление prompt. nil поля не меняются.
type UpdatePromptRequest struct {
	Content     *string  `json:"content,omitempty"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Author      *string  `json:"author,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ChangeNote  string   `json:"change_note,omitempty"`
}

// ListPromptsOpts — фильтр списка prompts.
type ListPromptsOpts struct {
	Category string
	Tags     []string
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		StepID  string `json:"step_id,omitempty"`
	} `json:"error"`
}

// APIError — ошибка, которую вернул сервер.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для promptlib API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// --- Prompts ---

// ListPrompts возвращает prompts по фильтру.
func (c *Client) ListPrompts(opts ListPromptsOpts) ([]PromptResponse, error) {
	params := url.Values{}
	if opts.Category != "" {
		params.Set("category", opts.Category)
	}
	for _, tag := range opts.Tags {
		params.Add("tag", tag)
	}

	var prompts []PromptResponse
	err := c.list("/api/v1/prompts", params, &prompts)
	return prompts, err
}

// SearchPrompts ищет prompts.
func (c *Client) SearchPrompts(query string) ([]PromptResponse, error) {
	var prompts []PromptResponse
	err := c.list("/api/v1/search", url.Values{"q": {query}}, &prompts)
	return prompts, err
}

// CreatePrompt создаёт prompt.
func (c *Client) CreatePrompt(req CreatePromptRequest) (*PromptResponse, error) {
	var p PromptResponse
	err := c.post("/api/v1/prompts", req, &p)
	return &p, err
}

// GetPrompt возвращает prompt по UUID или имени.
func (c *Client) GetPrompt(ref string) (*PromptResponse, error) {
	var p PromptResponse
	err := c.get(promptPath(ref), &p)
	return &p, err
}

// UpdatePrompt обновляет prompt.
func (c *Client) UpdatePrompt(ref string, req UpdatePromptRequest) (*PromptResponse, error) {
	var p PromptResponse
	err := c.put(promptPath(ref), req, &p)
	return &p, err
}

// DeletePrompt удаляет prompt.
func (c *Client) DeletePrompt(ref string) error {
	return c.delete(promptPath(ref))
}

// RenderPrompt рендерит prompt.
func (c *Client) RenderPrompt(ref string, vars map[string]any) (*RenderResponse, error) {
	var out RenderResponse
	err := c.post(promptPath(ref)+"/render", map[string]any{"variables": vars}, &out)
	return &out, err
}

// ListVersions возвращает историю версий.
func (c *Client) ListVersions(ref string) ([]VersionResponse, error) {
	var versions []VersionResponse
	err := c.list(promptPath(ref)+"/versions", nil, &versions)
	return versions, err
}

// Rollback откатывает prompt к версии.
func (c *Client) Rollback(ref, version string) (*PromptResponse, error) {
	var p PromptResponse
	err := c.post(promptPath(ref)+"/rollback", map[string]string{"version": version}, &p)
	return &p, err
}

// Diff возвращает diff между версиями. Пустой to — текущая версия.
func (c *Client) Diff(ref, from, to string) (*DiffResponse, error) {
	params := url.Values{"from": {from}}
	if to != "" {
		params.Set("to", to)
	}

	var d DiffResponse
	err := c.get(promptPath(ref)+"/diff?"+params.Encode(), &d)
	return &d, err
}

// Stats возвращает статистику библиотеки.
func (c *Client) Stats() (*StatsResponse, error) {
	var s StatsResponse
	err := c.get("/api/v1/stats", &s)
	return &s, err
}

// --- Workflows ---

// ListWorkflows возвращает все workflows.
func (c *Client) ListWorkflows() ([]WorkflowResponse, error) {
	var workflows []WorkflowResponse
	err := c.list("/api/v1/workflows", nil, &workflows)
	return workflows, err
}

// ImportWorkflow отправляет YAML определение.
// replace=true заменяет workflow с тем же именем.
func (c *Client) ImportWorkflow(data []byte, replace bool) (*WorkflowResponse, error) {
	path := "/api/v1/workflows"
	if replace {
		path += "?replace=true"
	}

	resp, err := c.doRaw(http.MethodPost, path, "application/yaml", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wf WorkflowResponse
	if err := c.decodeData(resp, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// GetWorkflow возвращает workflow по UUID или имени.
func (c *Client) GetWorkflow(ref string) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.get(workflowPath(ref), &wf)
	return &wf, err
}

// DeleteWorkflow удаляет workflow.
func (c *Client) DeleteWorkflow(ref string) error {
	return c.delete(workflowPath(ref))
}

// RunWorkflow запускает workflow и ждёт результата.
func (c *Client) RunWorkflow(ref string, inputs map[string]any) (*RunResponse, error) {
	var run RunResponse
	err := c.post(workflowPath(ref)+"/runs", map[string]any{"inputs": inputs}, &run)
	return &run, err
}

func promptPath(ref string) string {
	return "/api/v1/prompts/" + url.PathEscape(ref)
}

func workflowPath(ref string) string {
	return "/api/v1/workflows/" + url.PathEscape(ref)
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.decodeData(resp, result)
}

func (c *Client) decodeData(resp *http.Response, result any) error {
	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	if body == nil {
		return c.doRaw(method, path, "", nil)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.doRaw(method, path, "application/json", bytes.NewReader(data))
}

func (c *Client) doRaw(method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return &APIError{StatusCode: resp.StatusCode}
	}

	msg := er.Error.Message
	if er.Error.StepID != "" && !strings.Contains(msg, er.Error.StepID) {
		msg = "step " + er.Error.StepID + ": " + msg
	}
	return &APIError{StatusCode: resp.StatusCode, Code: er.Error.Code, Message: msg}
}
