// Package router orchestrates the scenario detector and the strategy
// registry: it turns raw analysis input into a routing decision, then
// executes the selected strategies sequentially or concurrently with
// per-strategy timeouts and isolated failures.
package router

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zen-systems/scenroute/pkg/detector"
	"github.com/zen-systems/scenroute/pkg/strategy"
)

const (
	// DefaultMaxStrategies bounds how many top scenarios get a strategy slot.
	DefaultMaxStrategies = 3
	// DefaultTimeout applies to strategies that declare none.
	DefaultTimeout = 30 * time.Second
)

// Router converts raw input into a Decision and executes it.
type Router struct {
	detector       *detector.Detector
	registry       *strategy.Registry
	maxStrategies  int
	enableFallback bool
	defaultTimeout time.Duration
	debug          bool
	logf           func(format string, args ...any)

	mu         sync.Mutex
	routes     int64
	executions int64
	successes  int64
	fallbacks  int64
}

// Option configures a Router.
type Option func(*Router)

// WithMaxStrategies sets how many top scenarios are given a strategy slot.
func WithMaxStrategies(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxStrategies = n
		}
	}
}

// WithFallback enables or disables fallback strategy selection.
func WithFallback(enabled bool) Option {
	return func(r *Router) {
		r.enableFallback = enabled
	}
}

// WithDefaultTimeout sets the timeout applied to strategies that declare none.
func WithDefaultTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.defaultTimeout = d
		}
	}
}

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(r *Router) {
		r.debug = debug
	}
}

// New creates a router. A nil registry means the shared default registry.
func New(det *detector.Detector, reg *strategy.Registry, opts ...Option) *Router {
	if det == nil {
		det = detector.New()
	}
	if reg == nil {
		reg = strategy.Default()
	}
	r := &Router{
		detector:       det,
		registry:       reg,
		maxStrategies:  DefaultMaxStrategies,
		enableFallback: true,
		defaultTimeout: DefaultTimeout,
		logf:           log.Printf,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the registry this router consults.
func (r *Router) Registry() *strategy.Registry {
	return r.registry
}

// Route runs detection and strategy selection, producing a decision with a
// reasoning trace. It has no side effects beyond internal counters.
func (r *Router) Route(ctx context.Context, in detector.Input) *Decision {
	r.mu.Lock()
	r.routes++
	r.mu.Unlock()

	scenarios := r.detector.Detect(ctx, in)
	decision := &Decision{Scenarios: scenarios}

	if len(scenarios) == 0 {
		decision.Reasoning = append(decision.Reasoning, "no scenario identified")
		return decision
	}

	limit := r.maxStrategies
	if limit > len(scenarios) {
		limit = len(scenarios)
	}

	selected := make(map[string]bool)
	for _, sc := range scenarios[:limit] {
		matches := r.registry.FindByScenario(sc)
		if len(matches) == 0 {
			decision.Reasoning = append(decision.Reasoning,
				fmt.Sprintf("scenario[%s](%.0f%%): no matching strategy", sc.Type, sc.Confidence*100))
			continue
		}

		best := matches[0]
		if selected[best.ID] {
			continue
		}
		selected[best.ID] = true
		decision.Selected = append(decision.Selected, Selected{Strategy: best, Scenario: sc})
		decision.Reasoning = append(decision.Reasoning,
			fmt.Sprintf("scenario[%s](%.0f%%) -> strategy[%s]", sc.Type, sc.Confidence*100, best.ID))
	}

	if r.enableFallback && len(decision.Selected) == 0 {
		r.applyFallback(decision)
	}

	if r.debug {
		r.logf("[router] route: %d scenarios, %d strategies selected", len(scenarios), len(decision.Selected))
	}

	return decision
}

// applyFallback picks a safety-default strategy when nothing matched. It
// deliberately takes the lowest-priority candidate: a generic catch-all is
// preferred over a high-priority specialist when confidence signals are weak.
func (r *Router) applyFallback(decision *Decision) {
	var fallback *strategy.Strategy
	for _, sc := range decision.Scenarios {
		if s := r.registry.LowestPriorityForType(sc.Type); s != nil {
			fallback = s
			break
		}
	}
	if fallback == nil {
		fallback = r.registry.LowestPriority()
	}
	if fallback == nil {
		decision.Reasoning = append(decision.Reasoning, "fallback: no strategy registered")
		return
	}

	decision.Fallback = fallback
	primary, _ := decision.PrimaryScenario()
	decision.Selected = append(decision.Selected, Selected{Strategy: fallback, Scenario: primary})
	decision.Reasoning = append(decision.Reasoning,
		fmt.Sprintf("fallback -> strategy[%s]", fallback.ID))

	r.mu.Lock()
	r.fallbacks++
	r.mu.Unlock()
}

// RouteAndExecute routes the input and executes the decision sequentially.
func (r *Router) RouteAndExecute(ctx context.Context, in detector.Input, options map[string]any) (*Decision, []Result) {
	decision := r.Route(ctx, in)
	execCtx := NewContext(in.Content, in.Requests, decision, options)
	return decision, r.Execute(ctx, decision, execCtx)
}

// RouteAndExecuteAsync routes the input and executes the decision with
// concurrent fan-out.
func (r *Router) RouteAndExecuteAsync(ctx context.Context, in detector.Input, options map[string]any) (*Decision, []Result) {
	decision := r.Route(ctx, in)
	execCtx := NewContext(in.Content, in.Requests, decision, options)
	return decision, r.ExecuteAsync(ctx, decision, execCtx)
}

// Statistics reports router counters alongside the registry's snapshot.
type Statistics struct {
	Routes      int64               `json:"routes"`
	Executions  int64               `json:"executions"`
	Successes   int64               `json:"successes"`
	Fallbacks   int64               `json:"fallbacks"`
	SuccessRate float64             `json:"success_rate"`
	Registry    strategy.Statistics `json:"registry"`
}

// Statistics returns a snapshot of routing and execution counters.
func (r *Router) Statistics() Statistics {
	r.mu.Lock()
	stats := Statistics{
		Routes:     r.routes,
		Executions: r.executions,
		Successes:  r.successes,
		Fallbacks:  r.fallbacks,
	}
	r.mu.Unlock()

	if stats.Executions > 0 {
		stats.SuccessRate = float64(stats.Successes) / float64(stats.Executions)
	}
	stats.Registry = r.registry.Statistics()
	return stats
}
