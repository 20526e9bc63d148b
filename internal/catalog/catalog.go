// Package catalog holds the study's question list, loaded from the
// QUESTIONS_FILE JSON document. Two historical file shapes are in
// circulation and both are supported: an object keyed by question ID
// and a flat list of question records.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Question is one entry of the study catalog.
type Question struct {
	ID   string `json:"question_id"`
	Text string `json:"question_text"`
}

// Catalog is a reloadable view of the questions file. Reads are served
// from an immutable snapshot; Reload swaps the snapshot atomically.
type Catalog struct {
	path string

	mu        sync.RWMutex
	questions []Question
	byID      map[string]Question
	loadedAt  time.Time
}

// Load reads the questions file and builds the catalog.
func Load(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Path returns the file backing this catalog.
func (c *Catalog) Path() string { return c.path }

// Reload re-reads the backing file. On error the previous snapshot
// stays in place.
func (c *Catalog) Reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("reading questions file: %w", err)
	}
	questions, err := decodeQuestions(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", c.path, err)
	}

	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	c.mu.Lock()
	c.questions = questions
	c.byID = byID
	c.loadedAt = time.Now()
	c.mu.Unlock()
	return nil
}

// Len returns the number of questions in the current snapshot.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.questions)
}

// LoadedAt returns when the current snapshot was read.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// All returns the questions in catalog order.
func (c *Catalog) All() []Question {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// Lookup finds a question by ID.
func (c *Catalog) Lookup(id string) (Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.byID[id]
	return q, ok
}

// Filter returns the questions whose text contains every term,
// case-insensitively, in catalog order. No relevance scoring is done.
// An ID given as a term matches that question directly.
func (c *Catalog) Filter(terms ...string) []Question {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cleaned := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, strings.ToLower(t))
		}
	}
	if len(cleaned) == 0 {
		out := make([]Question, len(c.questions))
		copy(out, c.questions)
		return out
	}

	var out []Question
	for _, q := range c.questions {
		text := strings.ToLower(q.Text)
		match := true
		for _, term := range cleaned {
			if !strings.Contains(text, term) && q.ID != term {
				match = false
				break
			}
		}
		if match {
			out = append(out, q)
		}
	}
	return out
}

// decodeQuestions parses either file shape, preserving document order.
func decodeQuestions(data []byte) ([]Question, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	switch trimmed[0] {
	case '{':
		return decodeQuestionMap(data)
	case '[':
		return decodeQuestionList(data)
	default:
		return nil, fmt.Errorf("document is neither a JSON object nor a list")
	}
}

// decodeQuestionMap walks the object token by token so the file's key
// order survives; a plain map decode would randomize it.
func decodeQuestionMap(data []byte) ([]Question, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var out []Question
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("question %s: %w", key, err)
		}
		text, ok := questionText(raw)
		if !ok {
			continue
		}
		out = append(out, Question{ID: key, Text: text})
	}
	return out, nil
}

func decodeQuestionList(data []byte) ([]Question, error) {
	var entries []struct {
		QuestionID   json.RawMessage `json:"question_id"`
		QuestionText string          `json:"question_text"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	var out []Question
	for i, e := range entries {
		if e.QuestionText == "" {
			continue
		}
		out = append(out, Question{ID: idOrIndex(e.QuestionID, i), Text: e.QuestionText})
	}
	return out, nil
}

// questionText extracts the text from a map entry, which is either an
// object carrying question_text or a bare string.
func questionText(raw json.RawMessage) (string, bool) {
	var obj struct {
		QuestionText string `json:"question_text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.QuestionText != "" {
		return obj.QuestionText, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, true
	}
	return "", false
}

// idOrIndex decodes a question_id that may be a string or a number,
// falling back to the list position.
func idOrIndex(raw json.RawMessage, idx int) string {
	if len(raw) == 0 {
		return strconv.Itoa(idx)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil && n.String() != "" {
		return n.String()
	}
	return strconv.Itoa(idx)
}
