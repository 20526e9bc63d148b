package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteScaffold(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := WriteScaffold(path); err != nil {
		t.Fatalf("WriteScaffold failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read scaffold: %v", err)
	}

	want := "API_URL=\nAPI_KEY=\nSTUDY_NAME=\nQUESTIONS_FILE=\n"
	if string(data) != want {
		t.Errorf("scaffold mismatch:\ngot:  %q\nwant: %q", string(data), want)
	}
}

func TestWriteScaffoldRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	original := "API_URL=https://api.example.com\nAPI_KEY=secret\n"
	if err := os.WriteFile(path, []byte(original), 0644); err != nil {
		t.Fatalf("seed env file: %v", err)
	}

	if err := WriteScaffold(path); err == nil {
		t.Fatal("expected error when scaffolding over an existing file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read env file: %v", err)
	}
	if string(data) != original {
		t.Error("existing file was modified")
	}
}

func TestLoadRuntimeEnvMergesFileAndProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "API_URL=https://file.example.com\nSTUDY_NAME=file-study\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("seed env file: %v", err)
	}

	t.Setenv("API_URL", "")
	t.Setenv("STUDY_NAME", "process-study")
	t.Setenv("API_KEY", "process-key")

	env, err := LoadRuntimeEnv(path)
	if err != nil {
		t.Fatalf("LoadRuntimeEnv failed: %v", err)
	}

	if got := env.APIURL(); got != "https://file.example.com" {
		t.Errorf("expected file value for API_URL, got %q", got)
	}
	if got := env.StudyName(); got != "process-study" {
		t.Errorf("expected process env to win, got %q", got)
	}
	if got := env.APIKey(); got != "process-key" {
		t.Errorf("expected process API_KEY, got %q", got)
	}
}

func TestLoadRuntimeEnvMissingFile(t *testing.T) {
	t.Setenv("API_URL", "https://proc.example.com")

	env, err := LoadRuntimeEnv(filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("LoadRuntimeEnv failed: %v", err)
	}
	if got := env.APIURL(); got != "https://proc.example.com" {
		t.Errorf("expected process value, got %q", got)
	}
}

func TestRuntimeEnvAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "PROSPER_API_URL=https://alias.example.com\nPROSPER_API_KEY=alias-key\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("seed env file: %v", err)
	}
	t.Setenv("API_URL", "")
	t.Setenv("API_KEY", "")

	env, err := LoadRuntimeEnv(path)
	if err != nil {
		t.Fatalf("LoadRuntimeEnv failed: %v", err)
	}
	if got := env.APIURL(); got != "https://alias.example.com" {
		t.Errorf("PROSPER_API_URL alias not honored, got %q", got)
	}
	if got := env.APIKey(); got != "alias-key" {
		t.Errorf("PROSPER_API_KEY alias not honored, got %q", got)
	}
}

func TestRequireReportsAllMissing(t *testing.T) {
	t.Setenv("API_URL", "")
	t.Setenv("PROSPER_API_URL", "")
	t.Setenv("API_KEY", "")
	t.Setenv("PROSPER_API_KEY", "")
	t.Setenv("STUDY_NAME", "")

	env, err := LoadRuntimeEnv("")
	if err != nil {
		t.Fatalf("LoadRuntimeEnv failed: %v", err)
	}

	err = env.RequireProsper()
	if err == nil {
		t.Fatal("expected missing-variable error")
	}
	for _, want := range []string{"API_URL", "API_KEY", "STUDY_NAME"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should name %s: %v", want, err)
		}
	}

	t.Setenv("PROSPER_API_URL", "https://x")
	t.Setenv("API_KEY", "k")
	t.Setenv("STUDY_NAME", "s")
	env, err = LoadRuntimeEnv("")
	if err != nil {
		t.Fatalf("LoadRuntimeEnv failed: %v", err)
	}
	if err := env.RequireProsper(); err != nil {
		t.Errorf("expected aliases to satisfy requirement, got %v", err)
	}
}
