package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIClient generates insights through the OpenAI chat API.
type OpenAIClient struct {
	cli         oa.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewOpenAIClient builds a client with the study's generation settings.
func NewOpenAIClient(apiKey, model string, maxTokens int, temperature float64) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &OpenAIClient{
		cli:         oa.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: temperature,
	}, nil
}

func (c *OpenAIClient) Name() string { return "openai:" + c.model }

// Generate runs one chat completion and returns the message text.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: oa.ChatModel(c.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(req.System),
			oa.UserMessage(req.Prompt),
		},
		Temperature: oa.Float(c.temperature),
		MaxTokens:   oa.Int(c.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
