// Package config holds prosperdash tool configuration and the runtime
// environment consumed by the dashboard (the operator-edited .env file).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the tool config file looked up in the working
// directory when --config is not given.
const DefaultFileName = "prosperdash.yaml"

// Config holds all prosperdash configuration.
type Config struct {
	// Python environment managed by setup/run
	Python PythonConfig `yaml:"python"`

	// Web application started by run
	App AppConfig `yaml:"app"`

	// Question catalog
	Catalog CatalogConfig `yaml:"catalog"`

	// Saved analysis states
	StatesDir string `yaml:"states_dir"`

	// API response cache
	Cache CacheConfig `yaml:"cache"`

	// LLM insight generation
	LLM LLMConfig `yaml:"llm"`

	// Built-in dashboard server
	Server ServerConfig `yaml:"server"`
}

// PythonConfig describes the isolated Python environment the bootstrapper
// maintains for the dashboard.
type PythonConfig struct {
	Interpreter  string `yaml:"interpreter"`
	VenvDir      string `yaml:"venv_dir"`
	Requirements string `yaml:"requirements"`
	EnvFile      string `yaml:"env_file"`
}

// AppConfig names the web application the launcher starts inside the
// virtual environment.
type AppConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// CatalogConfig configures the question catalog.
type CatalogConfig struct {
	// QuestionsFile is a fallback used when the QUESTIONS_FILE runtime
	// variable is not set.
	QuestionsFile string `yaml:"questions_file"`
}

// CacheConfig configures the SQLite response cache.
type CacheConfig struct {
	Path     string `yaml:"path"`
	TTL      string `yaml:"ttl"`
	Disabled bool   `yaml:"disabled"`
}

// LLMConfig configures the insight generator.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, gemini
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Timeout     string  `yaml:"timeout"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	SessionKey string `yaml:"session_key"`
	Secure     bool   `yaml:"secure"`
}

// DefaultConfig returns the default configuration. The python and app
// blocks mirror the original operator scripts exactly.
func DefaultConfig() *Config {
	return &Config{
		Python: PythonConfig{
			Interpreter:  "python3.11",
			VenvDir:      "venv",
			Requirements: "requirements.txt",
			EnvFile:      ".env",
		},

		App: AppConfig{
			Command: "streamlit",
			Args:    []string{"run", "app.py"},
		},

		Catalog: CatalogConfig{
			QuestionsFile: "questions.json",
		},

		StatesDir: "saved_states",

		Cache: CacheConfig{
			Path: filepath.Join(".prosperdash", "cache.db"),
			TTL:  "6h",
		},

		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o",
			MaxTokens:   2000,
			Temperature: 0.7,
			Timeout:     "120s",
		},

		Server: ServerConfig{
			Addr: "127.0.0.1:8650",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults so first runs work from a clean checkout.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides. Later checks
// win so an OpenAI key takes precedence when several providers are
// configured.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}

	if addr := os.Getenv("PROSPERDASH_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if key := os.Getenv("PROSPERDASH_SESSION_KEY"); key != "" {
		c.Server.SessionKey = key
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetCacheTTL returns the cache TTL as a duration.
func (c *Config) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 6 * time.Hour
	}
	return d
}

// Resolve joins a config-relative path onto the working directory unless
// it is already absolute.
func Resolve(workdir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workdir, path)
}
