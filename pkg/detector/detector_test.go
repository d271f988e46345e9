package detector

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/zen-systems/scenroute/pkg/scenario"
)

func TestDetectEmptyInput(t *testing.T) {
	d := New()
	scenarios := d.Detect(context.Background(), Input{})
	if len(scenarios) != 0 {
		t.Fatalf("expected no scenarios for empty input, got %d", len(scenarios))
	}
}

func TestDetectFromHintChinese(t *testing.T) {
	d := New()
	scenarios := d.Detect(context.Background(), Input{Hint: "分析错误"})

	if len(scenarios) != 1 {
		t.Fatalf("expected one scenario, got %d: %+v", len(scenarios), scenarios)
	}
	sc := scenarios[0]
	if sc.Type != scenario.TypeError {
		t.Fatalf("expected error_analysis, got %s", sc.Type)
	}
	if sc.Confidence < 0.6 {
		t.Fatalf("hint-driven confidence too low: %v", sc.Confidence)
	}
	if sc.Method != scenario.MatchHint {
		t.Fatalf("expected hint method, got %s", sc.Method)
	}
}

func TestDetectFromHintConfidenceFormula(t *testing.T) {
	d := New()

	// One keyword hit: 0.6 + 0.1*1 = 0.7
	scenarios := d.Detect(context.Background(), Input{Hint: "check the error please"})
	if len(scenarios) == 0 {
		t.Fatalf("expected a scenario")
	}
	if math.Abs(scenarios[0].Confidence-0.7) > 1e-9 {
		t.Fatalf("expected 0.7, got %v", scenarios[0].Confidence)
	}

	// Many hits cap at 0.9.
	scenarios = d.Detect(context.Background(), Input{
		Hint: "error exception failed failure fatal panic",
	})
	if scenarios[0].Confidence > 0.9 {
		t.Fatalf("hint confidence exceeded cap: %v", scenarios[0].Confidence)
	}
}

func TestDetectFromContent(t *testing.T) {
	d := New()
	content := strings.Repeat("ERROR: connection refused\njava.lang.Exception: boom\n", 10)
	scenarios := d.Detect(context.Background(), Input{Content: content})

	if len(scenarios) == 0 {
		t.Fatalf("expected scenarios from error-heavy content")
	}
	if scenarios[0].Type != scenario.TypeError {
		t.Fatalf("expected error_analysis first, got %s", scenarios[0].Type)
	}
	for _, sc := range scenarios {
		if sc.Confidence < 0 || sc.Confidence > 1 {
			t.Fatalf("confidence out of bounds: %v", sc.Confidence)
		}
	}
}

func TestDetectFromMetrics(t *testing.T) {
	d := New()
	scenarios := d.Detect(context.Background(), Input{
		Metrics: map[string]float64{
			"avg_latency_ms": 2500,
			"p99_latency_ms": 9000,
		},
	})

	if len(scenarios) != 1 {
		t.Fatalf("expected one scenario, got %d", len(scenarios))
	}
	sc := scenarios[0]
	if sc.Type != scenario.TypePerformance {
		t.Fatalf("expected performance_analysis, got %s", sc.Type)
	}
	// Both performance thresholds matched: (2/2) * 0.9.
	if math.Abs(sc.Confidence-0.9) > 1e-9 {
		t.Fatalf("expected 0.9, got %v", sc.Confidence)
	}
	if sc.Method != scenario.MatchThreshold {
		t.Fatalf("expected threshold method, got %s", sc.Method)
	}
}

func TestDetectPartialThresholdMatch(t *testing.T) {
	d := New()
	scenarios := d.Detect(context.Background(), Input{
		Metrics: map[string]float64{"avg_latency_ms": 2500},
	})

	if len(scenarios) != 1 {
		t.Fatalf("expected one scenario, got %d", len(scenarios))
	}
	// One of two performance thresholds: (1/2) * 0.9.
	if math.Abs(scenarios[0].Confidence-0.45) > 1e-9 {
		t.Fatalf("expected 0.45, got %v", scenarios[0].Confidence)
	}
}

func TestDetectMergesAcrossPasses(t *testing.T) {
	d := New()
	scenarios := d.Detect(context.Background(), Input{
		Hint:    "look into this error",
		Metrics: map[string]float64{"error_rate": 0.5},
	})

	if len(scenarios) != 1 {
		t.Fatalf("expected a single merged scenario, got %d", len(scenarios))
	}
	sc := scenarios[0]
	if sc.Method != scenario.MatchMerged {
		t.Fatalf("expected merged method, got %s", sc.Method)
	}
	// Hint 0.7 + threshold 1.0, merged: min(1, 1.7*0.6).
	want := math.Min(1.0, (0.7+1.0)*0.6)
	if math.Abs(sc.Confidence-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, sc.Confidence)
	}
	if len(sc.Indicators) < 2 {
		t.Fatalf("expected indicators from both passes, got %+v", sc.Indicators)
	}
}

func TestDetectFiltersBelowMinConfidence(t *testing.T) {
	d := New(WithMinConfidence(0.95))
	scenarios := d.Detect(context.Background(), Input{Hint: "check the error please"})
	if len(scenarios) != 0 {
		t.Fatalf("expected 0.7-confidence scenario to be filtered, got %d", len(scenarios))
	}
}

func TestDetectSortsByConfidenceDescending(t *testing.T) {
	d := New()
	scenarios := d.Detect(context.Background(), Input{
		Hint: "error and slow performance",
		Metrics: map[string]float64{
			"avg_latency_ms": 2500,
			"p99_latency_ms": 9000,
		},
	})

	for i := 1; i < len(scenarios); i++ {
		if scenarios[i].Confidence > scenarios[i-1].Confidence {
			t.Fatalf("scenarios not sorted descending: %+v", scenarios)
		}
	}
}

func TestCustomRuleSpecCompile(t *testing.T) {
	spec := RuleSpec{
		Name:     "checkout",
		Type:     "business_analysis",
		Keywords: []string{"cart", "checkout"},
		Patterns: []string{`(?i)cart\s+abandoned`},
	}
	rule, err := spec.Compile()
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if rule.Weight != 1.0 {
		t.Fatalf("expected default weight 1.0, got %v", rule.Weight)
	}

	bad := RuleSpec{Name: "bad", Type: "business_analysis", Patterns: []string{`(unclosed`}}
	if _, err := bad.Compile(); err == nil {
		t.Fatalf("expected compile error for invalid regex")
	}

	unknown := RuleSpec{Name: "x", Type: "nope"}
	if _, err := unknown.Compile(); err == nil {
		t.Fatalf("expected compile error for unknown scenario type")
	}
}

func TestConditionEval(t *testing.T) {
	cases := []struct {
		cond Condition
		v    float64
		want bool
	}{
		{Condition{Op: "gt", Value: 1}, 2, true},
		{Condition{Op: "gt", Value: 1}, 1, false},
		{Condition{Op: "gte", Value: 1}, 1, true},
		{Condition{Op: "lt", Value: 1}, 0.5, true},
		{Condition{Op: "lte", Value: 1}, 1, true},
		{Condition{Op: "eq", Value: 1}, 1, true},
		{Condition{Op: "??", Value: 1}, 1, false},
	}
	for _, tc := range cases {
		if got := tc.cond.Eval(tc.v); got != tc.want {
			t.Fatalf("cond %+v eval(%v): got %v want %v", tc.cond, tc.v, got, tc.want)
		}
	}
}
