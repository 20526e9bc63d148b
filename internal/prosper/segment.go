package prosper

import (
	"fmt"
	"strings"
)

// SegmentNational is the segment token for all respondents. The API also
// accepts "0" with the same meaning.
const SegmentNational = "all"

// SegmentClause qualifies respondents by one question: any of the listed
// answers matches. Clauses are ANDed together in a segment expression.
type SegmentClause struct {
	QuestionID string
	AnswerIDs  []string
}

// BuildSegment renders clauses into the API's segment expression:
// answers joined with "^" within a clause, clauses joined with "|".
// No clauses means the national segment.
//
//	[{1 [1]} {3 [2 3]}] -> "1~1|3~2^3"
func BuildSegment(clauses []SegmentClause) string {
	if len(clauses) == 0 {
		return SegmentNational
	}
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		parts = append(parts, c.QuestionID+"~"+strings.Join(c.AnswerIDs, "^"))
	}
	return strings.Join(parts, "|")
}

// IsNational reports whether a segment expression means all respondents.
func IsNational(segment string) bool {
	switch strings.TrimSpace(segment) {
	case "", SegmentNational, "0":
		return true
	}
	return false
}

// ParseSegment decodes a segment expression back into clauses. National
// tokens yield no clauses.
func ParseSegment(segment string) ([]SegmentClause, error) {
	if IsNational(segment) {
		return nil, nil
	}
	var clauses []SegmentClause
	for _, part := range strings.Split(segment, "|") {
		qid, answers, ok := strings.Cut(part, "~")
		if !ok || qid == "" || answers == "" {
			return nil, fmt.Errorf("malformed segment clause %q", part)
		}
		ids := strings.Split(answers, "^")
		for _, id := range ids {
			if id == "" {
				return nil, fmt.Errorf("empty answer id in clause %q", part)
			}
		}
		clauses = append(clauses, SegmentClause{QuestionID: qid, AnswerIDs: ids})
	}
	return clauses, nil
}

// DescribeSegment renders a segment expression for display. Answer IDs
// stay numeric; callers with metadata can do better, this is the
// fallback used in logs and listings.
func DescribeSegment(segment string) string {
	clauses, err := ParseSegment(segment)
	if err != nil {
		return segment
	}
	if len(clauses) == 0 {
		return "national (all respondents)"
	}
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		noun := "answers"
		if len(c.AnswerIDs) == 1 {
			noun = "answer"
		}
		parts = append(parts, fmt.Sprintf("question %s %s %s", c.QuestionID, noun, strings.Join(c.AnswerIDs, ", ")))
	}
	return strings.Join(parts, " and ")
}
