package insights

import (
	"fmt"
	"strings"

	"prosperdash/internal/prosper"
	"prosperdash/internal/state"
)

const systemAnalyst = "You are a data analyst specializing in survey data analysis. " +
	"Provide clear, actionable insights based on the data. " +
	"Use markdown formatting for headers and sections."

const systemReporter = "You are a data analyst creating a formal report. " +
	"Use clear, professional language and structure the content appropriately. " +
	"Use markdown formatting for headers and sections."

// maxQuestionBlock caps how much of one question's data enters the
// prompt; long trend histories get cut rather than blowing the context.
const maxQuestionBlock = 6000

const comprehensivePrompt = `Analyze the following survey question data and provide comprehensive insights.
Structure your response using clear sections and subsections with headers.

Include the following sections:

# Executive Summary
# Key Trends and Patterns
## Overall Trends
## Seasonal Patterns
## Long-term Changes
# Segment Analysis
## Segment Differences
## Segment-specific Trends
# Implications
## Business Impact
## Strategic Considerations
# Recommendations
## Short-term Actions
## Long-term Strategy

Data:
`

const summaryPrompt = `Provide a concise summary of the key findings from the following survey data.
Structure your response using clear sections with headers.

Include the following sections:

# Key Findings
(the 3-5 most important findings)
# Supporting Evidence
# Implications

Data:
`

const trendsPrompt = `Analyze the temporal trends in the following survey data.
Structure your response using clear sections with headers.

Include the following sections:

# Trend Overview
# Time-based Analysis
## Short-term Changes
## Medium-term Trends
## Long-term Patterns
# Seasonal Analysis
## Seasonal Patterns
## Year-over-Year Changes
# Significant Shifts
## Major Changes
## Potential Causes

Data:
`

const segmentsPrompt = `Analyze the segment differences in the following survey data.
Structure your response using clear sections with headers.

Include the following sections:

# Segment Overview
# Detailed Analysis
## Key Differences
## Segment-specific Patterns
# Trend Analysis
## Segment Trends
## Convergence/Divergence
# Implications
## Business Impact
## Strategic Recommendations

Data:
`

const executivePrompt = `Create an executive summary report based on the following survey data.
Structure your response using clear sections with headers.

Include the following sections:

# Executive Summary
# Key Findings
## Primary Insights
## Supporting Data
# Business Implications
## Market Impact
## Strategic Considerations
# Recommendations
## Immediate Actions
## Strategic Initiatives
# Next Steps

Data:
`

func analysisPrompt(typ AnalysisType) string {
	switch typ {
	case AnalysisSummary:
		return summaryPrompt
	case AnalysisTrends:
		return trendsPrompt
	case AnalysisSegments:
		return segmentsPrompt
	default:
		return comprehensivePrompt
	}
}

// FormatQuestions renders saved questions into the prompt's data block.
func FormatQuestions(questions []state.SavedQuestion) string {
	blocks := make([]string, 0, len(questions))
	for _, q := range questions {
		blocks = append(blocks, formatQuestion(q))
	}
	return strings.Join(blocks, "\n\n")
}

func formatQuestion(q state.SavedQuestion) string {
	var b strings.Builder

	meta, err := q.DecodeMetadata()
	if err != nil {
		meta = &prosper.QuestionMetadata{Text: q.QuestionText}
	}
	text := meta.Text
	if text == "" {
		text = q.QuestionText
	}

	fmt.Fprintf(&b, "Question: %s\n", orUnknown(text))
	if meta.Type != "" {
		fmt.Fprintf(&b, "Type: %s\n", meta.Type)
	}
	segment := q.SegmentLabel
	if segment == "" {
		segment = prosper.DescribeSegment(q.Segment)
	}
	fmt.Fprintf(&b, "Segment: %s\n", segment)
	if q.Months > 0 {
		end := q.EndDate
		if end == "" {
			end = "the most recent wave"
		}
		fmt.Fprintf(&b, "Time Period: %d months ending %s\n", q.Months, end)
	} else {
		b.WriteString("Time Period: most recent wave\n")
	}

	if len(meta.Answers) > 0 {
		b.WriteString("\nAnswer Options:\n")
		for _, a := range meta.Answers {
			fmt.Fprintf(&b, "- %s (ID: %s)\n", orUnknown(a.Text), a.ID)
		}
	}

	points, err := q.DecodePoints()
	if err != nil || len(points) == 0 {
		b.WriteString("\nNo result data available.\n")
		return b.String()
	}
	points = prosper.ValidPoints(points)
	if len(points) == 0 {
		b.WriteString("\nNo usable waves (all suppressed or empty samples).\n")
		return b.String()
	}

	if len(points) > 1 {
		b.WriteString("\nTrend Data:\n")
	} else {
		b.WriteString("\nSingle Point Data:\n")
	}
	for _, p := range points {
		if p.StudyDate != "" {
			fmt.Fprintf(&b, "\nDate: %s\n", p.StudyDate)
		}
		fmt.Fprintf(&b, "Sample Size (N): %d\n", p.N)
		b.WriteString("Results:\n")
		for _, r := range p.AnswerResults {
			pct, ok := r.Percent()
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "- %s: %.1f%%\n", meta.AnswerText(r.ID), pct)
		}
		if b.Len() > maxQuestionBlock {
			b.WriteString("\n(remaining waves truncated)\n")
			break
		}
	}

	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
