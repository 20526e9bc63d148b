package prosper

import (
	"encoding/json"
	"fmt"
)

// FlexID is a question or answer identifier. The API returns these as
// numbers in some studies and strings in others, so it decodes from
// either form.
type FlexID string

func (id *FlexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("identifier is neither string nor number: %s", b)
	}
	*id = FlexID(n.String())
	return nil
}

func (id FlexID) String() string { return string(id) }

// Answer is one option of a survey question.
type Answer struct {
	ID   FlexID `json:"ID"`
	Text string `json:"Text"`
}

// QuestionMetadata describes a survey question and its answer options.
type QuestionMetadata struct {
	ID         FlexID   `json:"ID"`
	Text       string   `json:"Text"`
	Type       string   `json:"Type"`
	FirstAsked string   `json:"FirstAsked"`
	LastAsked  string   `json:"LastAsked"`
	Answers    []Answer `json:"Answers"`
}

// AnswerText resolves an answer ID to its display text.
func (m *QuestionMetadata) AnswerText(id FlexID) string {
	for _, a := range m.Answers {
		if a.ID == id {
			return a.Text
		}
	}
	return "Unknown"
}

// AnswerResult is the share of respondents that picked one answer.
// Result is a fraction in [0,1]; nil means the value was suppressed
// for that wave.
type AnswerResult struct {
	ID     FlexID   `json:"ID"`
	Result *float64 `json:"Result"`
}

// Percent returns the result as a percentage, or false when suppressed.
func (r AnswerResult) Percent() (float64, bool) {
	if r.Result == nil {
		return 0, false
	}
	return *r.Result * 100, true
}

// DataPoint is one study wave's results for a question.
type DataPoint struct {
	StudyDate     string         `json:"StudyDate"`
	N             int            `json:"N"`
	AnswerResults []AnswerResult `json:"AnswerResults"`
}

// Valid reports whether the wave carries usable data: a positive sample
// size and at least one answer with a non-suppressed result.
func (p *DataPoint) Valid() bool {
	if p.N <= 0 || len(p.AnswerResults) == 0 {
		return false
	}
	for _, r := range p.AnswerResults {
		if r.Result != nil {
			return true
		}
	}
	return false
}

// ValidPoints filters a series down to usable waves, preserving order.
func ValidPoints(points []DataPoint) []DataPoint {
	out := make([]DataPoint, 0, len(points))
	for _, p := range points {
		if p.Valid() {
			out = append(out, p)
		}
	}
	return out
}

// LatestValid returns the last usable wave of a series.
func LatestValid(points []DataPoint) (DataPoint, bool) {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Valid() {
			return points[i], true
		}
	}
	return DataPoint{}, false
}
