package router

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/zen-systems/scenroute/pkg/detector"
	"github.com/zen-systems/scenroute/pkg/scenario"
	"github.com/zen-systems/scenroute/pkg/strategy"
)

// countingHandler returns a handler that counts its invocations.
func countingHandler(calls *int32) strategy.Handler {
	return func(_ context.Context, _ *strategy.Invocation) (any, error) {
		atomic.AddInt32(calls, 1)
		return map[string]any{"ok": true}, nil
	}
}

func newStrategy(id string, priority scenario.Priority, handler strategy.Handler, types ...scenario.Type) *strategy.Strategy {
	if handler == nil {
		handler = func(_ context.Context, _ *strategy.Invocation) (any, error) {
			return nil, nil
		}
	}
	return &strategy.Strategy{
		ID:            id,
		Name:          id,
		ScenarioTypes: types,
		Handler:       handler,
		Priority:      priority,
		MinConfidence: 0.4,
		Mode:          strategy.ModeSequential,
	}
}

func mustRegister(t *testing.T, reg *strategy.Registry, strategies ...*strategy.Strategy) {
	t.Helper()
	for _, s := range strategies {
		if err := reg.Register(s); err != nil {
			t.Fatalf("register %s: %v", s.ID, err)
		}
	}
}

func TestRouteEmptyInput(t *testing.T) {
	r := New(nil, strategy.NewRegistry())
	decision := r.Route(context.Background(), detector.Input{})

	if decision.HasValidRoute() {
		t.Fatalf("expected no route for empty input")
	}
	if len(decision.Reasoning) != 1 || decision.Reasoning[0] != "no scenario identified" {
		t.Fatalf("unexpected reasoning: %v", decision.Reasoning)
	}
}

func TestRouteEmptyRegistry(t *testing.T) {
	r := New(nil, strategy.NewRegistry())
	decision := r.Route(context.Background(), detector.Input{Hint: "check the error"})

	if decision.HasValidRoute() {
		t.Fatalf("expected no route with an empty registry")
	}
	joined := strings.Join(decision.Reasoning, "\n")
	if !strings.Contains(joined, "fallback: no strategy registered") {
		t.Fatalf("expected fallback reasoning, got %v", decision.Reasoning)
	}
}

func TestRouteSelectsHighestPriority(t *testing.T) {
	reg := strategy.NewRegistry()
	var highCalls, lowCalls int32
	mustRegister(t, reg,
		newStrategy("perf-low", scenario.PriorityLow, countingHandler(&lowCalls), scenario.TypePerformance),
		newStrategy("perf-high", scenario.PriorityHigh, countingHandler(&highCalls), scenario.TypePerformance),
	)

	r := New(nil, reg)
	in := detector.Input{Metrics: map[string]float64{
		"avg_latency_ms": 2500,
		"p99_latency_ms": 9000,
	}}
	decision := r.Route(context.Background(), in)

	if len(decision.Selected) != 1 {
		t.Fatalf("expected exactly one selection, got %v", decision.StrategyIDs())
	}
	if got, _ := decision.PrimaryStrategy(); got.ID != "perf-high" {
		t.Fatalf("expected the high-priority strategy, got %s", got.ID)
	}
	if decision.Fallback != nil {
		t.Fatalf("fallback should not fire when a strategy matches")
	}

	joined := strings.Join(decision.Reasoning, "\n")
	if !strings.Contains(joined, "scenario[performance_analysis]") ||
		!strings.Contains(joined, "strategy[perf-high]") {
		t.Fatalf("unexpected reasoning: %v", decision.Reasoning)
	}
}

func TestRouteDedupAcrossScenarios(t *testing.T) {
	reg := strategy.NewRegistry()
	var calls int32
	mustRegister(t, reg,
		newStrategy("broad", scenario.PriorityHigh, countingHandler(&calls),
			scenario.TypeError, scenario.TypePerformance),
	)

	r := New(nil, reg)
	// Two scenarios, one strategy covering both.
	in := detector.Input{
		Hint:    "check the error",
		Metrics: map[string]float64{"avg_latency_ms": 2500},
	}
	decision := r.Route(context.Background(), in)

	if len(decision.Scenarios) != 2 {
		t.Fatalf("expected two scenarios, got %+v", decision.Scenarios)
	}
	if len(decision.Selected) != 1 {
		t.Fatalf("expected the strategy to be selected once, got %v", decision.StrategyIDs())
	}
}

func TestRouteMaxStrategiesBound(t *testing.T) {
	reg := strategy.NewRegistry()
	mustRegister(t, reg,
		newStrategy("err", scenario.PriorityHigh, nil, scenario.TypeError),
		newStrategy("perf", scenario.PriorityHigh, nil, scenario.TypePerformance),
	)

	r := New(nil, reg, WithMaxStrategies(1))
	in := detector.Input{
		Hint:    "check the error",
		Metrics: map[string]float64{"avg_latency_ms": 2500},
	}
	decision := r.Route(context.Background(), in)

	if len(decision.Selected) != 1 {
		t.Fatalf("expected max strategies to cap selection, got %v", decision.StrategyIDs())
	}
	// The error scenario ranks first, so its strategy gets the single slot.
	if decision.Selected[0].Strategy.ID != "err" {
		t.Fatalf("expected the top scenario's strategy, got %s", decision.Selected[0].Strategy.ID)
	}
}

func TestRouteFallbackPicksLowestPriority(t *testing.T) {
	reg := strategy.NewRegistry()
	specialist := newStrategy("specialist", scenario.PriorityCritical, nil, scenario.TypeError)
	specialist.MinConfidence = 0.99
	generic := newStrategy("generic", scenario.PriorityBackground, nil, scenario.TypeError)
	generic.MinConfidence = 0.99
	mustRegister(t, reg, specialist, generic)

	r := New(nil, reg)
	decision := r.Route(context.Background(), detector.Input{Hint: "check the error"})

	if decision.Fallback == nil || decision.Fallback.ID != "generic" {
		t.Fatalf("expected the lowest-priority fallback, got %+v", decision.Fallback)
	}
	if len(decision.Selected) != 1 || decision.Selected[0].Strategy.ID != "generic" {
		t.Fatalf("fallback should be selected, got %v", decision.StrategyIDs())
	}
	// The fallback runs against the primary scenario.
	if decision.Selected[0].Scenario.Type != scenario.TypeError {
		t.Fatalf("fallback paired with wrong scenario: %+v", decision.Selected[0].Scenario)
	}
	if !strings.Contains(strings.Join(decision.Reasoning, "\n"), "fallback -> strategy[generic]") {
		t.Fatalf("unexpected reasoning: %v", decision.Reasoning)
	}
}

func TestRouteFallbackDisabled(t *testing.T) {
	reg := strategy.NewRegistry()
	s := newStrategy("picky", scenario.PriorityHigh, nil, scenario.TypeError)
	s.MinConfidence = 0.99
	mustRegister(t, reg, s)

	r := New(nil, reg, WithFallback(false))
	decision := r.Route(context.Background(), detector.Input{Hint: "check the error"})

	if decision.HasValidRoute() {
		t.Fatalf("expected no route with fallback disabled, got %v", decision.StrategyIDs())
	}

	execCtx := NewContext("", nil, decision, nil)
	results := r.Execute(context.Background(), decision, execCtx)
	if len(results) != 1 || results[0].Success {
		t.Fatalf("expected a single failed result, got %+v", results)
	}
	if results[0].Error != "no valid strategy for this input" {
		t.Fatalf("unexpected error: %q", results[0].Error)
	}
}

func TestRouteAndExecute(t *testing.T) {
	reg := strategy.NewRegistry()
	var calls int32
	mustRegister(t, reg,
		newStrategy("err", scenario.PriorityHigh, countingHandler(&calls), scenario.TypeError))

	r := New(nil, reg)
	decision, results := r.RouteAndExecute(context.Background(), detector.Input{Hint: "check the error"}, nil)

	if !decision.HasValidRoute() {
		t.Fatalf("expected a route, reasoning: %v", decision.Reasoning)
	}
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("expected one successful result, got %+v", results)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("handler should run once, got %d", calls)
	}
	if results[0].StrategyID != "err" || results[0].ScenarioType != scenario.TypeError {
		t.Fatalf("result not attributed: %+v", results[0])
	}
	if results[0].Data["ok"] != true {
		t.Fatalf("handler data lost: %+v", results[0].Data)
	}
}

func TestRouterStatistics(t *testing.T) {
	reg := strategy.NewRegistry()
	var calls int32
	mustRegister(t, reg,
		newStrategy("err", scenario.PriorityHigh, countingHandler(&calls), scenario.TypeError))

	r := New(nil, reg)
	r.RouteAndExecute(context.Background(), detector.Input{Hint: "check the error"}, nil)
	r.Route(context.Background(), detector.Input{})

	stats := r.Statistics()
	if stats.Routes != 2 {
		t.Fatalf("routes: got %d want 2", stats.Routes)
	}
	if stats.Executions != 1 || stats.Successes != 1 {
		t.Fatalf("execution counters wrong: %+v", stats)
	}
	if stats.SuccessRate != 1.0 {
		t.Fatalf("success rate: got %v", stats.SuccessRate)
	}
	if stats.Registry.StrategyCount != 1 {
		t.Fatalf("registry snapshot missing: %+v", stats.Registry)
	}
}

func TestNewContextGeneratesTaskID(t *testing.T) {
	decision := &Decision{Scenarios: []scenario.Scenario{
		scenario.New(scenario.TypeError, 0.8, scenario.MatchKeyword, ""),
	}}
	c := NewContext("content", nil, decision, nil)

	if c.TaskID == "" {
		t.Fatalf("expected a generated task ID")
	}
	if c.Shared == nil {
		t.Fatalf("expected shared data to be initialized")
	}
	if c.Primary.Type != scenario.TypeError {
		t.Fatalf("primary scenario not captured: %+v", c.Primary)
	}

	other := NewContext("content", nil, decision, nil)
	if other.TaskID == c.TaskID {
		t.Fatalf("task IDs should be unique")
	}
}
