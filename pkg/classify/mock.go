package classify

import (
	"context"
	"fmt"
)

// MockClassifier returns deterministic responses for local runs and tests.
type MockClassifier struct {
	responses       map[string]string
	defaultResponse string

	// Err, when set, is returned by every Classify call.
	Err error
	// Calls counts Classify invocations.
	Calls int
}

// NewMockClassifier creates a mock classifier with a default response.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{
		responses:       make(map[string]string),
		defaultResponse: "{}",
	}
}

// NewMockClassifierWithResponse creates a mock classifier that always returns
// the given response.
func NewMockClassifierWithResponse(response string) *MockClassifier {
	return &MockClassifier{
		responses:       make(map[string]string),
		defaultResponse: response,
	}
}

// Name returns the classifier identifier.
func (c *MockClassifier) Name() string {
	return "mock"
}

// SetResponse registers a canned response for an exact prompt.
func (c *MockClassifier) SetResponse(prompt, response string) {
	c.responses[prompt] = response
}

// Classify returns the canned response for the prompt, or the default.
func (c *MockClassifier) Classify(_ context.Context, prompt string) (string, error) {
	c.Calls++
	if c.Err != nil {
		return "", fmt.Errorf("mock classifier: %w", c.Err)
	}
	if response, ok := c.responses[prompt]; ok {
		return response, nil
	}
	return c.defaultResponse, nil
}
