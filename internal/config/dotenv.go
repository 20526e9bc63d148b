package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ScaffoldKeys are the keys the bootstrapper writes into a fresh .env
// file, in this exact order. The operator fills in the values by hand.
var ScaffoldKeys = []string{"API_URL", "API_KEY", "STUDY_NAME", "QUESTIONS_FILE"}

// DocumentedKeys is the full set of variables the dashboard reads,
// including the ones the scaffold has historically omitted. doctor
// reports on all of them.
var DocumentedKeys = []string{
	"API_URL", "API_KEY", "STUDY_NAME", "QUESTIONS_FILE",
	"OPENAI_API_KEY", "APP_USERNAME", "APP_PASSWORD",
}

// WriteScaffold creates the .env scaffold at path. It refuses to touch an
// existing file: operator-supplied values are never overwritten.
func WriteScaffold(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("config file %s already exists", path)
		}
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, key := range ScaffoldKeys {
		b.WriteString(key)
		b.WriteString("=\n")
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// RuntimeEnv is the merged runtime environment for the dashboard: the
// .env file overlaid with the process environment. Process variables win,
// matching how the dashboard itself loads its configuration.
type RuntimeEnv struct {
	vars map[string]string
}

// LoadRuntimeEnv reads the .env file at path and overlays the process
// environment. A missing file is not an error; the process environment
// alone is returned.
func LoadRuntimeEnv(path string) (*RuntimeEnv, error) {
	vars := map[string]string{}

	if path != "" {
		fromFile, err := godotenv.Read(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
		} else {
			for k, v := range fromFile {
				vars[k] = v
			}
		}
	}

	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			if val := kv[i+1:]; val != "" {
				vars[kv[:i]] = val
			}
		}
	}

	return &RuntimeEnv{vars: vars}, nil
}

// Get returns the value for key, or "".
func (e *RuntimeEnv) Get(key string) string {
	return e.vars[key]
}

// First returns the first non-empty value among the given keys.
func (e *RuntimeEnv) First(keys ...string) string {
	for _, k := range keys {
		if v := e.vars[k]; v != "" {
			return v
		}
	}
	return ""
}

// Require returns an error naming every key (or alias group) that has no
// value. Alias groups are passed as "A|B" and satisfied by either name.
func (e *RuntimeEnv) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		aliases := strings.Split(k, "|")
		if e.First(aliases...) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Accessors for the variables the dashboard documents. The PROSPER_*
// aliases are accepted everywhere the short names are.

func (e *RuntimeEnv) APIURL() string        { return e.First("API_URL", "PROSPER_API_URL") }
func (e *RuntimeEnv) APIKey() string        { return e.First("API_KEY", "PROSPER_API_KEY") }
func (e *RuntimeEnv) StudyName() string     { return e.Get("STUDY_NAME") }
func (e *RuntimeEnv) QuestionsFile() string { return e.Get("QUESTIONS_FILE") }
func (e *RuntimeEnv) OpenAIKey() string     { return e.Get("OPENAI_API_KEY") }
func (e *RuntimeEnv) GeminiKey() string     { return e.Get("GEMINI_API_KEY") }
func (e *RuntimeEnv) AppUsername() string   { return e.Get("APP_USERNAME") }
func (e *RuntimeEnv) AppPassword() string   { return e.Get("APP_PASSWORD") }

// RequireProsper validates the variables the survey-data API client needs.
func (e *RuntimeEnv) RequireProsper() error {
	return e.Require("API_URL|PROSPER_API_URL", "API_KEY|PROSPER_API_KEY", "STUDY_NAME")
}
