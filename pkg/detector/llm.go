package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zen-systems/scenroute/pkg/scenario"
)

// classifierPick is the JSON shape the external classifier is asked to return.
type classifierPick struct {
	ScenarioType string  `json:"scenario_type"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
}

// needsLLM reports whether the merged result is weak enough to consult the
// external classifier.
func (d *Detector) needsLLM(merged []scenario.Scenario) bool {
	if len(merged) == 0 {
		return true
	}
	best := merged[0].Confidence
	for _, sc := range merged[1:] {
		if sc.Confidence > best {
			best = sc.Confidence
		}
	}
	return best < d.llmThreshold
}

// enhanceWithLLM asks the classifier for a scenario type and folds the answer
// into the merged list. Any malformed response is dropped silently; the
// rule-based result stands.
func (d *Detector) enhanceWithLLM(ctx context.Context, in Input, merged []scenario.Scenario) []scenario.Scenario {
	prompt := buildClassifierPrompt(in, merged)
	resp, err := d.classifier.Classify(ctx, prompt)
	if err != nil {
		if d.debug {
			d.logf("[detector] classifier error: %v", err)
		}
		return merged
	}

	pick, err := parseClassifierResponse(resp)
	if err != nil {
		if d.debug {
			d.logf("[detector] classifier response invalid: %v", err)
		}
		return merged
	}

	t, ok := scenario.ParseType(pick.ScenarioType)
	if !ok {
		if d.debug {
			d.logf("[detector] classifier returned unknown type %q", pick.ScenarioType)
		}
		return merged
	}
	llmConfidence := scenario.Clamp(pick.Confidence)

	topIdx := -1
	for i, sc := range merged {
		if topIdx < 0 || sc.Confidence > merged[topIdx].Confidence {
			topIdx = i
		}
	}

	if topIdx >= 0 && merged[topIdx].Type == t {
		boosted := merged[topIdx]
		boosted.Confidence = minFloat(0.95, boosted.Confidence+0.3*llmConfidence)
		boosted.Indicators = append(boosted.Indicators, scenario.Indicator{
			Name:   "llm_confidence",
			Value:  llmConfidence,
			Weight: 0.3,
			Source: d.classifier.Name(),
		})
		merged[topIdx] = boosted
		return merged
	}

	sc := scenario.New(t, llmConfidence, scenario.MatchLLM, pick.Reason)
	sc.Indicators = []scenario.Indicator{{
		Name:   "llm_confidence",
		Value:  llmConfidence,
		Weight: 1.0,
		Source: d.classifier.Name(),
	}}
	return append(merged, sc)
}

// parseClassifierResponse tolerates markdown-fenced JSON.
func parseClassifierResponse(content string) (*classifierPick, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var pick classifierPick
	if err := json.Unmarshal([]byte(content), &pick); err != nil {
		return nil, err
	}
	if pick.ScenarioType == "" {
		return nil, fmt.Errorf("missing scenario_type")
	}
	return &pick, nil
}

func buildClassifierPrompt(in Input, merged []scenario.Scenario) string {
	var sb strings.Builder
	sb.WriteString("You are a scenario classifier for log analysis. Choose the best scenario_type.\n")
	sb.WriteString("Return ONLY JSON: {\"scenario_type\":\"...\",\"confidence\":0-1,\"reason\":\"...\"}.\n\n")
	sb.WriteString("Valid scenario types:\n")
	for _, t := range scenario.AllTypes() {
		sb.WriteString(fmt.Sprintf("- %s\n", t))
	}

	if in.Hint != "" {
		sb.WriteString("\nUser hint:\n")
		sb.WriteString(in.Hint)
		sb.WriteString("\n")
	}
	if in.Content != "" {
		sb.WriteString("\nLog content (truncated):\n")
		sb.WriteString(truncate(in.Content, 2000))
		sb.WriteString("\n")
	}
	if len(in.Requests) > 0 {
		sb.WriteString(fmt.Sprintf("\nRequest batch size: %d\n", len(in.Requests)))
	}
	if len(in.Metrics) > 0 {
		sb.WriteString("\nMetrics:\n")
		for name, v := range in.Metrics {
			sb.WriteString(fmt.Sprintf("- %s=%v\n", name, v))
		}
	}

	if len(merged) > 0 {
		sb.WriteString("\nCurrent candidates:\n")
		for _, sc := range merged {
			sb.WriteString(fmt.Sprintf("- %s (confidence=%.2f, method=%s)\n", sc.Type, sc.Confidence, sc.Method))
		}
	}

	return sb.String()
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}
