package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("FETCH_STRATEGY", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("LLM_MODEL", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, StrategyStandard, cfg.FetchStrategy)
	assert.Equal(t, 2*time.Second, cfg.Throttle.Interval)
	assert.Equal(t, "CF-Connecting-IP", cfg.Throttle.ClientIPHeader)
	assert.Equal(t, 12000, cfg.Truncate.MaxChars)
	assert.Equal(t, 6000, cfg.Truncate.HalfChars)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
http_port: "9090"
fetch_strategy: standard
llm:
  model: yaml-model
  api_key: from-yaml
throttle:
  interval: 5s
truncate:
  max_chars: 2000
  half_chars: 900
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("DEEPSEEK_API_KEY", "from-env")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("HTTP_PORT", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "yaml-model", cfg.LLM.Model)
	assert.Equal(t, "from-env", cfg.LLM.APIKey, "environment overrides the file")
	assert.Equal(t, 5*time.Second, cfg.Throttle.Interval)
	assert.Equal(t, 2000, cfg.Truncate.MaxChars)
	assert.Equal(t, 900, cfg.Truncate.HalfChars)
}

func TestLoad_EnvMillis(t *testing.T) {
	t.Setenv("THROTTLE_INTERVAL_MS", "250")
	t.Setenv("REQUEST_TIMEOUT_MS", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Throttle.Interval)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout, "invalid values fall back to the default")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		t.Setenv("FETCH_STRATEGY", "browserless")
		_, err := Load("")
		require.ErrorContains(t, err, "unknown fetch strategy")
	})
}
