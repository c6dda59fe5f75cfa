package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "promptlib.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, ":8080", cfg.APIAddr)
	assert.False(t, cfg.EventsEnabled)
	assert.Empty(t, cfg.Agents)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
log_format: text
storage: postgres
db_url: postgres://u:p@db:5432/prompts
db_max_conns: 4
events_enabled: true
workflows_dir: ./workflows
agents:
  - id: optimizer
    url: http://optimizer:9000/run
    timeout: 5s
    headers:
      Authorization: Bearer token
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, int32(4), cfg.DBMaxConns)
	assert.True(t, cfg.EventsEnabled)
	assert.Equal(t, "./workflows", cfg.WorkflowsDir)

	require.Len(t, cfg.Agents, 1)
	assert.Equal(t, "optimizer", cfg.Agents[0].ID)
	assert.Equal(t, 5*time.Second, cfg.Agents[0].Timeout)
	assert.Len(t, cfg.Agents[0].Headers, 1)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "log_level: debug\napi_addr: \":9000\"\n")
	t.Setenv("PROMPTLIB_API_ADDR", ":7000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.APIAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValue(t *testing.T) {
	path := writeConfig(t, "storage: sqlite\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, false},
		{"postgres without url", func(c *Config) { c.Storage = StoragePostgres; c.DBURL = "" }, false},
		{"postgres without conns", func(c *Config) { c.Storage = StoragePostgres; c.DBMaxConns = 0 }, false},
		{"events without broker", func(c *Config) { c.EventsEnabled = true; c.RabbitMQURL = "" }, false},
		{"agent without url", func(c *Config) { c.Agents = []AgentConfig{{ID: "a"}} }, false},
		{"agent without id", func(c *Config) { c.Agents = []AgentConfig{{URL: "http://x"}} }, false},
		{"duplicate agents", func(c *Config) {
			c.Agents = []AgentConfig{{ID: "a", URL: "http://x"}, {ID: "a", URL: "http://y"}}
		}, false},
		{"valid agent", func(c *Config) { c.Agents = []AgentConfig{{ID: "a", URL: "http://x"}} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}
