// Package classify provides the external classifier capability the detector
// uses for LLM-assisted scenario classification. The engine consumes a single
// prompt-in, text-out call; provider specifics stay behind the interface.
package classify

import "context"

// Classifier sends a classification prompt to an external model and returns
// the raw text response. The detector expects a JSON object
// {"scenario_type": ..., "confidence": ..., "reason": ...} but tolerates any
// deviation by treating it as no additional signal.
type Classifier interface {
	// Classify sends a prompt and returns the model's text response.
	Classify(ctx context.Context, prompt string) (string, error)

	// Name returns the classifier's identifier.
	Name() string
}
