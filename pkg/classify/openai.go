package classify

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// OpenAIClassifier implements the Classifier interface for OpenAI models.
type OpenAIClassifier struct {
	client openai.Client
	model  string
}

// NewOpenAIClassifier creates a new OpenAI classifier.
func NewOpenAIClassifier(apiKey, model string) (*OpenAIClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if model == "" {
		model = "gpt-5.2-instant"
	}

	client := openai.NewClient()
	return &OpenAIClassifier{client: client, model: model}, nil
}

// Name returns the classifier identifier.
func (c *OpenAIClassifier) Name() string {
	return "openai"
}

// Classify sends a classification prompt to OpenAI and returns the response text.
func (c *OpenAIClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(1024),
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
