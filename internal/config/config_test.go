package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Python.Interpreter != "python3.11" {
		t.Errorf("expected default interpreter python3.11, got %q", cfg.Python.Interpreter)
	}
	if cfg.Python.VenvDir != "venv" {
		t.Errorf("expected default venv dir, got %q", cfg.Python.VenvDir)
	}
	if cfg.App.Command != "streamlit" {
		t.Errorf("expected default app command streamlit, got %q", cfg.App.Command)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected default model gpt-4o, got %q", cfg.LLM.Model)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "prosperdash.yaml")
	content := "python:\n  interpreter: python3.12\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Python.Interpreter != "python3.12" {
		t.Errorf("expected overridden interpreter, got %q", cfg.Python.Interpreter)
	}
	if cfg.Python.Requirements != "requirements.txt" {
		t.Errorf("expected untouched default requirements, got %q", cfg.Python.Requirements)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prosperdash.yaml")
	if err := os.WriteFile(path, []byte("python: [unclosed"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error for malformed yaml")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "prosperdash.yaml")

	cfg := DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:9999"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Server.Addr != "127.0.0.1:9999" {
		t.Errorf("expected saved addr to round-trip, got %q", loaded.Server.Addr)
	}
}

func TestEnvOverridesSelectProvider(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.APIKey != "gm-key" {
		t.Errorf("expected gemini provider from env, got %q/%q", cfg.LLM.Provider, cfg.LLM.APIKey)
	}

	// OpenAI wins when both are present.
	t.Setenv("OPENAI_API_KEY", "oa-key")
	cfg, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.APIKey != "oa-key" {
		t.Errorf("expected openai to take precedence, got %q/%q", cfg.LLM.Provider, cfg.LLM.APIKey)
	}
}

func TestGetDurations(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetLLMTimeout().String(); got != "2m0s" {
		t.Errorf("unexpected default llm timeout: %s", got)
	}

	cfg.LLM.Timeout = "bogus"
	if got := cfg.GetLLMTimeout().String(); got != "2m0s" {
		t.Errorf("expected fallback timeout for bogus value, got %s", got)
	}

	cfg.Cache.TTL = "30m"
	if got := cfg.GetCacheTTL().String(); got != "30m0s" {
		t.Errorf("unexpected cache ttl: %s", got)
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve("/work", "venv"); got != filepath.Join("/work", "venv") {
		t.Errorf("unexpected resolved path: %s", got)
	}
	abs := filepath.Join(string(filepath.Separator), "abs", "venv")
	if got := Resolve("/work", abs); got != abs {
		t.Errorf("absolute path should be untouched, got %s", got)
	}
	if got := Resolve("/work", ""); got != "" {
		t.Errorf("empty path should stay empty, got %s", got)
	}
}
