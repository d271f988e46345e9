package detector

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/zen-systems/scenroute/pkg/classify"
	"github.com/zen-systems/scenroute/pkg/scenario"
)

func TestClassifierSkippedWhenConfident(t *testing.T) {
	mock := classify.NewMockClassifierWithResponse(
		`{"scenario_type":"security_analysis","confidence":0.9,"reason":"nope"}`)
	d := New(WithClassifier(mock))

	// Hint plus matching threshold merges well above the 0.7 gate.
	d.Detect(context.Background(), Input{
		Hint:    "analyze this error",
		Metrics: map[string]float64{"error_rate": 0.5},
	})

	if mock.Calls != 0 {
		t.Fatalf("classifier should not be consulted at high confidence, got %d calls", mock.Calls)
	}
}

func TestClassifierBoostsMatchingType(t *testing.T) {
	mock := classify.NewMockClassifierWithResponse(
		`{"scenario_type":"error_analysis","confidence":1.0,"reason":"clearly errors"}`)

	// A lone hint hit sits at 0.7; gate at 0.71 to force the classifier call.
	d := New(WithClassifier(mock), WithLLMThreshold(0.71))
	scenarios := d.Detect(context.Background(), Input{Hint: "look at the error"})

	if mock.Calls != 1 {
		t.Fatalf("expected one classifier call, got %d", mock.Calls)
	}
	if len(scenarios) != 1 {
		t.Fatalf("expected one scenario, got %+v", scenarios)
	}
	sc := scenarios[0]
	if sc.Type != scenario.TypeError {
		t.Fatalf("expected error_analysis, got %s", sc.Type)
	}
	// 0.7 + 0.3*1.0 caps at 0.95.
	if math.Abs(sc.Confidence-0.95) > 1e-9 {
		t.Fatalf("boosted confidence: got %v want 0.95", sc.Confidence)
	}

	found := false
	for _, ind := range sc.Indicators {
		if ind.Name == "llm_confidence" && ind.Source == "mock" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an llm_confidence indicator, got %+v", sc.Indicators)
	}
}

func TestClassifierAppendsNewType(t *testing.T) {
	mock := classify.NewMockClassifierWithResponse(
		`{"scenario_type":"security_analysis","confidence":0.8,"reason":"auth probing"}`)
	d := New(WithClassifier(mock), WithLLMThreshold(0.71))

	scenarios := d.Detect(context.Background(), Input{Hint: "look at the error"})

	var secSc *scenario.Scenario
	for i := range scenarios {
		if scenarios[i].Type == scenario.TypeSecurity {
			secSc = &scenarios[i]
		}
	}
	if secSc == nil {
		t.Fatalf("expected an appended security scenario, got %+v", scenarios)
	}
	if secSc.Method != scenario.MatchLLM {
		t.Fatalf("expected llm method, got %s", secSc.Method)
	}
	if math.Abs(secSc.Confidence-0.8) > 1e-9 {
		t.Fatalf("llm confidence: got %v want 0.8", secSc.Confidence)
	}
	if secSc.Description != "auth probing" {
		t.Fatalf("expected classifier reason as description, got %q", secSc.Description)
	}
}

func TestClassifierRunsOnEmptyRuleResult(t *testing.T) {
	mock := classify.NewMockClassifierWithResponse(
		`{"scenario_type":"business_analysis","confidence":0.6,"reason":"order flow"}`)
	d := New(WithClassifier(mock))

	// Content that trips no rule still counts as non-empty input.
	scenarios := d.Detect(context.Background(), Input{Content: "the numbers look off since this morning"})

	if mock.Calls != 1 {
		t.Fatalf("expected the classifier to run on an empty rule result, got %d calls", mock.Calls)
	}
	if len(scenarios) != 1 {
		t.Fatalf("expected one llm scenario, got %+v", scenarios)
	}
	sc := scenarios[0]
	if sc.Type != scenario.TypeBusiness || sc.Method != scenario.MatchLLM {
		t.Fatalf("expected an llm business scenario, got %+v", sc)
	}
}

func TestClassifierErrorsAreSwallowed(t *testing.T) {
	mock := classify.NewMockClassifier()
	mock.Err = errors.New("rate limited")
	d := New(WithClassifier(mock), WithLLMThreshold(0.71))

	scenarios := d.Detect(context.Background(), Input{Hint: "look at the error"})
	if len(scenarios) != 1 || scenarios[0].Type != scenario.TypeError {
		t.Fatalf("rule result should survive a classifier error, got %+v", scenarios)
	}
}

func TestClassifierMalformedResponsesDropped(t *testing.T) {
	for _, resp := range []string{
		"not json at all",
		`{"confidence":0.8}`,
		`{"scenario_type":"made_up_type","confidence":0.8}`,
	} {
		mock := classify.NewMockClassifierWithResponse(resp)
		d := New(WithClassifier(mock), WithLLMThreshold(0.71))

		scenarios := d.Detect(context.Background(), Input{Hint: "look at the error"})
		if len(scenarios) != 1 || scenarios[0].Type != scenario.TypeError {
			t.Fatalf("response %q: rule result should stand, got %+v", resp, scenarios)
		}
		if math.Abs(scenarios[0].Confidence-0.7) > 1e-9 {
			t.Fatalf("response %q: confidence should be untouched, got %v", resp, scenarios[0].Confidence)
		}
	}
}

func TestParseClassifierResponseFenced(t *testing.T) {
	pick, err := parseClassifierResponse("```json\n{\"scenario_type\":\"error_analysis\",\"confidence\":0.8,\"reason\":\"r\"}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pick.ScenarioType != "error_analysis" || pick.Confidence != 0.8 {
		t.Fatalf("unexpected pick: %+v", pick)
	}

	pick, err = parseClassifierResponse("```\n{\"scenario_type\":\"traffic_analysis\",\"confidence\":0.5}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pick.ScenarioType != "traffic_analysis" {
		t.Fatalf("unexpected pick: %+v", pick)
	}
}

func TestBuildClassifierPromptListsCandidates(t *testing.T) {
	in := Input{Hint: "slow checkout", Metrics: map[string]float64{"qps": 50}}
	merged := []scenario.Scenario{
		scenario.New(scenario.TypePerformance, 0.5, scenario.MatchKeyword, ""),
	}

	prompt := buildClassifierPrompt(in, merged)
	for _, want := range []string{"slow checkout", "qps", "performance_analysis", "scenario_type"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
