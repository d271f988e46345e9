package classify

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleClassifier implements the Classifier interface for Gemini models.
type GoogleClassifier struct {
	client *genai.Client
	model  string
}

// NewGoogleClassifier creates a new Google Gemini classifier.
func NewGoogleClassifier(apiKey, model string) (*GoogleClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}
	if model == "" {
		model = "gemini-2.0-pro"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleClassifier{client: client, model: model}, nil
}

// Name returns the classifier identifier.
func (c *GoogleClassifier) Name() string {
	return "google"
}

// Classify sends a classification prompt to Gemini and returns the response text.
func (c *GoogleClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("google API error: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("google returned no candidates")
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}

	return content, nil
}
