package agents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	ref  string
	vars map[string]any
	err  error
}

func (f *fakeRenderer) RenderRef(_ context.Context, ref string, vars map[string]any) (string, error) {
	f.ref = ref
	f.vars = vars
	if f.err != nil {
		return "", f.err
	}
	return "rendered:" + ref, nil
}

func TestRegistry(t *testing.T) {
	r := NewDefaultRegistry(&fakeRenderer{})

	assert.Equal(t, []string{"prompt", "transform"}, r.IDs())

	_, err := r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownAgent)

	_, err = r.Run(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrUnknownAgent)

	r.Register("echo", AgentFunc(func(_ context.Context, in map[string]any) (map[string]any, error) {
		return map[string]any{"output": in["text"]}, nil
	}))
	out, err := r.Run(context.Background(), "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out["output"])
}

func TestRegistry_WrapsAgentError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	r.Register("bad", AgentFunc(func(context.Context, map[string]any) (map[string]any, error) {
		return nil, boom
	}))

	_, err := r.Run(context.Background(), "bad", nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "agent bad")
}

func TestPromptAgent(t *testing.T) {
	renderer := &fakeRenderer{}
	agent := &PromptAgent{Prompts: renderer}

	out, err := agent.Run(context.Background(), map[string]any{
		"prompt_id": "greeting",
		"variables": map[string]any{"name": "Ann"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"output": "rendered:greeting"}, out)
	assert.Equal(t, "greeting", renderer.ref)
	assert.Equal(t, map[string]any{"name": "Ann"}, renderer.vars)
}

func TestPromptAgent_InvalidInput(t *testing.T) {
	agent := &PromptAgent{Prompts: &fakeRenderer{}}

	_, err := agent.Run(context.Background(), map[string]any{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = agent.Run(context.Background(), map[string]any{"prompt_id": "x", "variables": "oops"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTransformAgent(t *testing.T) {
	agent := &TransformAgent{}

	out, err := agent.Run(context.Background(), map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, out["a"])
	assert.Equal(t, map[string]any{"a": 1}, out["output"])

	out, err = agent.Run(context.Background(), map[string]any{"output": "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", out["output"])
}

func TestHTTPAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-Token"))

		var req agentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "summarizer", req.AgentID)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"output": "summary of " + req.Inputs["text"].(string)})
	}))
	defer srv.Close()

	agent := &HTTPAgent{
		ID:      "summarizer",
		URL:     srv.URL,
		Timeout: time.Second,
		Headers: map[string]string{"X-Token": "secret"},
	}

	out, err := agent.Run(context.Background(), map[string]any{"text": "doc"})
	require.NoError(t, err)
	assert.Equal(t, "summary of doc", out["output"])
}

func TestHTTPAgent_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad-json" {
			_, _ = w.Write([]byte("not json"))
			return
		}
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := (&HTTPAgent{URL: srv.URL}).Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrAgentRequest)
	assert.Contains(t, err.Error(), "HTTP 503")

	_, err = (&HTTPAgent{URL: srv.URL + "/bad-json"}).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrAgentRequest)

	_, err = (&HTTPAgent{}).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrAgentRequest)
}
