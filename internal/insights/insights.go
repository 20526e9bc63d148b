// Package insights turns saved survey questions into narrative analysis
// through an LLM provider. The provider is behind a small interface so
// commands and tests can run against doubles.
package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"prosperdash/internal/state"
)

// AnalysisType selects the analytical lens of an insights run.
type AnalysisType string

const (
	AnalysisComprehensive AnalysisType = "comprehensive"
	AnalysisSummary       AnalysisType = "summary"
	AnalysisTrends        AnalysisType = "trends"
	AnalysisSegments      AnalysisType = "segments"
)

// AnalysisTypes lists the supported types in display order.
var AnalysisTypes = []AnalysisType{
	AnalysisComprehensive,
	AnalysisSummary,
	AnalysisTrends,
	AnalysisSegments,
}

// ParseAnalysisType validates a user-supplied analysis type.
func ParseAnalysisType(s string) (AnalysisType, error) {
	t := AnalysisType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AnalysisTypes {
		if t == known {
			return t, nil
		}
	}
	names := make([]string, len(AnalysisTypes))
	for i, at := range AnalysisTypes {
		names[i] = string(at)
	}
	return "", fmt.Errorf("unknown analysis type %q (one of: %s)", s, strings.Join(names, ", "))
}

// Request is one generation call to a provider.
type Request struct {
	System string
	Prompt string
}

// Client generates text from a prompt. Implementations wrap one
// provider SDK each.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// ErrNoQuestions is returned when a generation is attempted over an
// empty state.
var ErrNoQuestions = errors.New("no saved questions to analyze")

// Generator binds prompt construction to a provider.
type Generator struct {
	client Client
	logger *zap.Logger
}

// NewGenerator wraps a provider client.
func NewGenerator(client Client, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, logger: logger}
}

// Insights analyzes the saved questions under the requested lens and
// returns the provider's markdown.
func (g *Generator) Insights(ctx context.Context, questions []state.SavedQuestion, typ AnalysisType) (string, error) {
	if len(questions) == 0 {
		return "", ErrNoQuestions
	}

	prompt := analysisPrompt(typ) + FormatQuestions(questions)
	g.logger.Info("generating insights",
		zap.String("provider", g.client.Name()),
		zap.String("analysis", string(typ)),
		zap.Int("questions", len(questions)))

	out, err := g.client.Generate(ctx, Request{System: systemAnalyst, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("generating insights: %w", err)
	}
	return out, nil
}

// Report produces the stakeholder-ready executive summary.
func (g *Generator) Report(ctx context.Context, questions []state.SavedQuestion) (string, error) {
	if len(questions) == 0 {
		return "", ErrNoQuestions
	}

	prompt := executivePrompt + FormatQuestions(questions)
	g.logger.Info("generating report",
		zap.String("provider", g.client.Name()),
		zap.Int("questions", len(questions)))

	out, err := g.client.Generate(ctx, Request{System: systemReporter, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("generating report: %w", err)
	}
	return out, nil
}
