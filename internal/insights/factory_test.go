package insights

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"prosperdash/internal/config"
)

func runtimeEnvWith(t *testing.T, content string) *config.RuntimeEnv {
	t.Helper()
	// Neutralize any keys inherited from the host.
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	env, err := config.LoadRuntimeEnv(path)
	if err != nil {
		t.Fatal(err)
	}
	return env
}

func TestNewClientExplicitOpenAI(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = "sk-test"

	client, err := NewClient(context.Background(), cfg, runtimeEnvWith(t, ""), nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.Name() != "openai:gpt-4o" {
		t.Errorf("Name = %q", client.Name())
	}
}

func TestNewClientExplicitProviderWithoutKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = ""

	_, err := NewClient(context.Background(), cfg, runtimeEnvWith(t, ""), nil)
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("error = %v, want missing key guidance", err)
	}
}

func TestNewClientAutoPrefersOpenAI(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = "auto"
	cfg.LLM.APIKey = ""

	env := runtimeEnvWith(t, "OPENAI_API_KEY=sk-file\nGEMINI_API_KEY=gm-file\n")
	client, err := NewClient(context.Background(), cfg, env, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if !strings.HasPrefix(client.Name(), "openai:") {
		t.Errorf("auto picked %q, want openai", client.Name())
	}
}

func TestNewClientAutoFallsBackToGemini(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = "auto"
	cfg.LLM.APIKey = ""
	cfg.LLM.Model = "gpt-4o" // gemini client must not inherit an OpenAI model name

	env := runtimeEnvWith(t, "GEMINI_API_KEY=gm-file\n")
	client, err := NewClient(context.Background(), cfg, env, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.Name() != "gemini:"+defaultGeminiModel {
		t.Errorf("Name = %q", client.Name())
	}
}

func TestNewClientNoCredentials(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = ""
	cfg.LLM.APIKey = ""

	_, err := NewClient(context.Background(), cfg, runtimeEnvWith(t, ""), nil)
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY or GEMINI_API_KEY") {
		t.Errorf("error = %v, want credentials guidance", err)
	}
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = "mainframe"

	_, err := NewClient(context.Background(), cfg, runtimeEnvWith(t, ""), nil)
	if err == nil || !strings.Contains(err.Error(), "mainframe") {
		t.Errorf("error = %v, want unknown provider error", err)
	}
}
