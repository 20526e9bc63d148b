// Package state persists named collections of saved survey questions
// under a states directory, one JSON document per state. The on-disk
// format matches what the dashboard has historically written, so
// existing saved_states directories keep working.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prosperdash/internal/prosper"
)

var (
	// ErrStateNotFound is returned when a named state has no file.
	ErrStateNotFound = errors.New("state not found")

	// ErrDuplicateQuestion is returned by State.Add when the same
	// question, segment and timeframe is already in the state.
	ErrDuplicateQuestion = errors.New("question already saved")
)

// SavedQuestion is one fetched question snapshot inside a state.
// Metadata and Data keep the API payloads verbatim so nothing is lost
// across a save/load round trip.
type SavedQuestion struct {
	ID           string          `json:"id"`
	QuestionID   string          `json:"question_id"`
	QuestionText string          `json:"question_text,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Segment      string          `json:"segment"`
	SegmentLabel string          `json:"segment_label,omitempty"`
	Months       int             `json:"months"`
	EndDate      string          `json:"end_date,omitempty"`
	SavedAt      string          `json:"saved_at"`
}

// DecodeMetadata parses the stored metadata payload.
func (q *SavedQuestion) DecodeMetadata() (*prosper.QuestionMetadata, error) {
	if len(q.Metadata) == 0 {
		return nil, fmt.Errorf("question %s has no metadata", q.QuestionID)
	}
	var meta prosper.QuestionMetadata
	if err := json.Unmarshal(q.Metadata, &meta); err != nil {
		return nil, fmt.Errorf("decoding metadata for question %s: %w", q.QuestionID, err)
	}
	return &meta, nil
}

// DecodePoints parses the stored data payload, which is a single wave
// for point-in-time saves and a list for trends.
func (q *SavedQuestion) DecodePoints() ([]prosper.DataPoint, error) {
	if len(q.Data) == 0 {
		return nil, nil
	}
	trimmed := strings.TrimSpace(string(q.Data))
	if strings.HasPrefix(trimmed, "[") {
		var points []prosper.DataPoint
		if err := json.Unmarshal(q.Data, &points); err != nil {
			return nil, fmt.Errorf("decoding trend data for question %s: %w", q.QuestionID, err)
		}
		return points, nil
	}
	var point prosper.DataPoint
	if err := json.Unmarshal(q.Data, &point); err != nil {
		return nil, fmt.Errorf("decoding data for question %s: %w", q.QuestionID, err)
	}
	return []prosper.DataPoint{point}, nil
}

// State is a named collection of saved questions.
type State struct {
	Name           string          `json:"-"`
	SavedQuestions []SavedQuestion `json:"saved_questions"`
	Timestamp      string          `json:"timestamp"`
}

// Add appends a question to the state, assigning an ID and save time
// when absent. The same question+segment+timeframe tuple can only be
// added once.
func (s *State) Add(q SavedQuestion) error {
	for _, existing := range s.SavedQuestions {
		if existing.QuestionID == q.QuestionID &&
			existing.Segment == q.Segment &&
			existing.Months == q.Months &&
			existing.EndDate == q.EndDate {
			return fmt.Errorf("%w: question %s segment %s over %d months", ErrDuplicateQuestion, q.QuestionID, q.Segment, q.Months)
		}
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.SavedAt == "" {
		q.SavedAt = time.Now().Format(time.RFC3339)
	}
	s.SavedQuestions = append(s.SavedQuestions, q)
	return nil
}

// StateInfo is a directory listing entry.
type StateInfo struct {
	Name      string
	Timestamp string
	Questions int
}

// Store reads and writes states under one directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore returns a store rooted at dir. The directory is created
// lazily on first save.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}
}

// Dir returns the states directory.
func (st *Store) Dir() string { return st.dir }

// Save writes the state atomically, stamping it with the save time.
func (st *Store) Save(state *State) error {
	if err := validateName(state.Name); err != nil {
		return err
	}
	if err := os.MkdirAll(st.dir, 0o755); err != nil {
		return fmt.Errorf("creating states directory: %w", err)
	}

	state.Timestamp = time.Now().Format(time.RFC3339)
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state %s: %w", state.Name, err)
	}

	tmp, err := os.CreateTemp(st.dir, ".state_*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing state %s: %w", state.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing state %s: %w", state.Name, err)
	}
	if err := os.Rename(tmpName, st.path(state.Name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state %s: %w", state.Name, err)
	}

	st.logger.Debug("state saved",
		zap.String("name", state.Name),
		zap.Int("questions", len(state.SavedQuestions)))
	return nil
}

// Load reads a named state.
func (st *Store) Load(name string) (*State, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(st.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrStateNotFound, name)
		}
		return nil, fmt.Errorf("reading state %s: %w", name, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing state %s: %w", name, err)
	}
	state.Name = name
	return &state, nil
}

// Delete removes a named state.
func (st *Store) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.Remove(st.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrStateNotFound, name)
		}
		return fmt.Errorf("deleting state %s: %w", name, err)
	}
	return nil
}

// List returns all states, newest first. Unreadable files are skipped
// so one corrupt state does not hide the rest.
func (st *Store) List() ([]StateInfo, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading states directory: %w", err)
	}

	var infos []StateInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		stateName := strings.TrimSuffix(name, ".json")
		state, err := st.Load(stateName)
		if err != nil {
			st.logger.Warn("skipping unreadable state", zap.String("file", name), zap.Error(err))
			continue
		}
		infos = append(infos, StateInfo{
			Name:      stateName,
			Timestamp: state.Timestamp,
			Questions: len(state.SavedQuestions),
		})
	}

	// RFC3339 sorts lexicographically, newest first after reversal.
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Timestamp != infos[j].Timestamp {
			return infos[i].Timestamp > infos[j].Timestamp
		}
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

func (st *Store) path(name string) string {
	return filepath.Join(st.dir, name+".json")
}

// validateName keeps state names inside the states directory.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("state name is empty")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid state name %q", name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid state name %q", name)
	}
	return nil
}
