// Package config loads faustpilot configuration from the workspace
// .faustpilot/config.yaml with FAUSTPILOT_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// WorkspaceDir is the per-project directory holding config, the bible, the
// sqlite store and logs.
const WorkspaceDir = ".faustpilot"

// Config holds all faustpilot configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Validate  ValidateConfig  `yaml:"validate"`
	Generator GeneratorConfig `yaml:"generator"`
	Store     StoreConfig     `yaml:"store"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	Provider       string  `yaml:"provider"` // ollama, gemini
	OllamaEndpoint string  `yaml:"ollama_endpoint"`
	OllamaModel    string  `yaml:"ollama_model"`
	GeminiModel    string  `yaml:"gemini_model"`
	GeminiAPIKey   string  `yaml:"gemini_api_key"`
	Timeout        string  `yaml:"timeout"` // Go duration string, e.g. "120s"
	Temperature    float64 `yaml:"temperature"`
}

// TimeoutDuration parses the configured timeout, falling back to two
// minutes when unset or malformed.
func (c LLMConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// EmbeddingConfig configures the embedding engine used for doc retrieval.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // ollama, genai, none
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIModel     string `yaml:"genai_model"`
	GenAIAPIKey    string `yaml:"genai_api_key"`
}

// ValidateConfig configures the pre-compile checker.
type ValidateConfig struct {
	// DisabledRules lists diagnostic codes that should not be reported.
	DisabledRules []string `yaml:"disabled_rules"`

	// MaxSuggestions caps "did you mean" candidates per diagnostic.
	MaxSuggestions int `yaml:"max_suggestions"`
}

// GeneratorConfig configures the generate/validate/retry loop.
type GeneratorConfig struct {
	// MaxAttempts is the total number of LLM calls before escalating.
	MaxAttempts int `yaml:"max_attempts"`

	// ContextChunks is how many retrieved doc sections go into the prompt.
	ContextChunks int `yaml:"context_chunks"`
}

// StoreConfig configures sqlite persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	BiblePath    string `yaml:"bible_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`
	File       string          `yaml:"file"`
	Console    bool            `yaml:"console"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the built-in configuration for a workspace rooted at ws.
func Default(ws string) *Config {
	dir := filepath.Join(ws, WorkspaceDir)
	return &Config{
		LLM: LLMConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "qwen2.5-coder:7b",
			GeminiModel:    "gemini-2.5-flash",
			Timeout:        "120s",
			Temperature:    0.2,
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
		},
		Validate: ValidateConfig{
			MaxSuggestions: 3,
		},
		Generator: GeneratorConfig{
			MaxAttempts:   3,
			ContextChunks: 6,
		},
		Store: StoreConfig{
			DatabasePath: filepath.Join(dir, "faustpilot.db"),
			BiblePath:    filepath.Join(dir, "faust_bible.json"),
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads config.yaml from the workspace, falling back to defaults when
// the file does not exist. Environment overrides apply last.
func Load(ws string) (*Config, error) {
	cfg := Default(ws)

	path := filepath.Join(ws, WorkspaceDir, "config.yaml")
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file is fine; defaults + env.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers FAUSTPILOT_* variables over the loaded config.
func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("FAUSTPILOT_LLM_PROVIDER", &c.LLM.Provider)
	setString("FAUSTPILOT_OLLAMA_ENDPOINT", &c.LLM.OllamaEndpoint)
	setString("FAUSTPILOT_OLLAMA_MODEL", &c.LLM.OllamaModel)
	setString("FAUSTPILOT_GEMINI_MODEL", &c.LLM.GeminiModel)
	setString("FAUSTPILOT_GEMINI_API_KEY", &c.LLM.GeminiAPIKey)
	setString("GEMINI_API_KEY", &c.LLM.GeminiAPIKey)
	setString("FAUSTPILOT_LOG_LEVEL", &c.Logging.Level)
	setString("FAUSTPILOT_DB_PATH", &c.Store.DatabasePath)
	setString("FAUSTPILOT_BIBLE_PATH", &c.Store.BiblePath)

	if v := os.Getenv("FAUSTPILOT_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Generator.MaxAttempts = n
		}
	}

	// Embedding endpoint tracks the LLM endpoint unless set explicitly.
	setString("FAUSTPILOT_OLLAMA_ENDPOINT", &c.Embedding.OllamaEndpoint)
	setString("FAUSTPILOT_EMBED_MODEL", &c.Embedding.OllamaModel)
	setString("FAUSTPILOT_EMBED_PROVIDER", &c.Embedding.Provider)
}

// validate rejects configurations the rest of the system cannot run with.
func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "ollama", "gemini":
	default:
		return fmt.Errorf("llm.provider must be ollama or gemini, got %q", c.LLM.Provider)
	}
	switch c.Embedding.Provider {
	case "ollama", "genai", "none":
	default:
		return fmt.Errorf("embedding.provider must be ollama, genai or none, got %q", c.Embedding.Provider)
	}
	if c.Generator.MaxAttempts < 1 {
		return fmt.Errorf("generator.max_attempts must be >= 1, got %d", c.Generator.MaxAttempts)
	}
	if c.LLM.Provider == "gemini" && c.LLM.GeminiAPIKey == "" {
		return fmt.Errorf("llm.provider is gemini but no API key configured (set GEMINI_API_KEY)")
	}
	return nil
}

// Save writes the config back to the workspace, creating the directory.
func (c *Config) Save(ws string) error {
	dir := filepath.Join(ws, WorkspaceDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create workspace dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o644)
}
