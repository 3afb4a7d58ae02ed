package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default(t.TempDir())
	require.NoError(t, cfg.validate())
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.Generator.MaxAttempts)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	ws := t.TempDir()
	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws, WorkspaceDir, "faustpilot.db"), cfg.Store.DatabasePath)
}

func TestLoadParsesYAML(t *testing.T) {
	ws := t.TempDir()
	dir := filepath.Join(ws, WorkspaceDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	yaml := `
llm:
  provider: ollama
  ollama_model: codellama:13b
  timeout: 90s
generator:
  max_attempts: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "codellama:13b", cfg.LLM.OllamaModel)
	assert.Equal(t, 90*time.Second, cfg.LLM.TimeoutDuration())
	assert.Equal(t, 5, cfg.Generator.MaxAttempts)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FAUSTPILOT_OLLAMA_MODEL", "deepseek-coder:6.7b")
	t.Setenv("FAUSTPILOT_MAX_ATTEMPTS", "7")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "deepseek-coder:6.7b", cfg.LLM.OllamaModel)
	assert.Equal(t, 7, cfg.Generator.MaxAttempts)
}

func TestTimeoutDurationFallback(t *testing.T) {
	c := LLMConfig{Timeout: "not-a-duration"}
	assert.Equal(t, 2*time.Minute, c.TimeoutDuration())

	c.Timeout = "-5s"
	assert.Equal(t, 2*time.Minute, c.TimeoutDuration())
}

func TestValidateRejectsBadProvider(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.LLM.Provider = "openai"
	assert.Error(t, cfg.validate())
}

func TestValidateGeminiRequiresKey(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.LLM.Provider = "gemini"
	cfg.LLM.GeminiAPIKey = ""
	assert.Error(t, cfg.validate())

	cfg.LLM.GeminiAPIKey = "k"
	assert.NoError(t, cfg.validate())
}

func TestSaveRoundTrip(t *testing.T) {
	ws := t.TempDir()
	cfg := Default(ws)
	cfg.LLM.OllamaModel = "qwen2.5-coder:14b"
	require.NoError(t, cfg.Save(ws))

	loaded, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5-coder:14b", loaded.LLM.OllamaModel)
}
