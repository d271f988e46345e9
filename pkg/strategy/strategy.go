// Package strategy defines analysis strategy descriptors and the registry
// that answers "which strategies can handle this scenario". Strategies are
// registered once at process start by independent handler modules and live
// for the process lifetime.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/zen-systems/scenroute/pkg/scenario"
)

// Mode declares a strategy's execution discipline. The dispatcher switches on
// this tag instead of introspecting the handler.
type Mode string

const (
	// ModeSequential strategies run one at a time, in selection order.
	ModeSequential Mode = "sequential"
	// ModeConcurrent strategies may run simultaneously with each other.
	ModeConcurrent Mode = "concurrent"
)

// Invocation is the structured payload handed to a strategy handler.
type Invocation struct {
	TaskID   string
	Scenario scenario.Scenario
	Content  string
	Requests []scenario.Request
	Options  map[string]any
	Shared   *SharedData
}

// Handler is the business logic behind a strategy. It returns a structured
// payload (a map, or any value the engine wraps under a "result" key) or an
// error. Errors never propagate past the execution boundary; the router turns
// them into failed results.
type Handler func(ctx context.Context, inv *Invocation) (any, error)

// Strategy describes a registered handler capable of acting on one or more
// scenario types.
type Strategy struct {
	ID                 string
	Name               string
	ScenarioTypes      []scenario.Type
	Handler            Handler
	Priority           scenario.Priority
	MinConfidence      float64
	Mode               Mode
	RequiresClassifier bool
	Timeout            time.Duration
	Tags               []string
}

// Matches reports whether the strategy can handle the scenario: the type must
// be declared and the scenario's confidence must reach MinConfidence.
func (s *Strategy) Matches(sc scenario.Scenario) bool {
	return s.handlesType(sc.Type) && sc.Confidence >= s.MinConfidence
}

func (s *Strategy) handlesType(t scenario.Type) bool {
	for _, st := range s.ScenarioTypes {
		if st == t {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether the strategy carries at least one of the tags.
func (s *Strategy) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range s.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// validate catches programmer errors at registration time.
func (s *Strategy) validate() error {
	if s == nil {
		return fmt.Errorf("strategy is nil")
	}
	if s.ID == "" {
		return fmt.Errorf("strategy ID is required")
	}
	if s.Handler == nil {
		return fmt.Errorf("strategy %s: handler is required", s.ID)
	}
	if len(s.ScenarioTypes) == 0 {
		return fmt.Errorf("strategy %s: at least one scenario type is required", s.ID)
	}
	for _, t := range s.ScenarioTypes {
		if _, ok := scenario.ParseType(string(t)); !ok {
			return fmt.Errorf("strategy %s: unknown scenario type %q", s.ID, t)
		}
	}
	if s.MinConfidence < 0 || s.MinConfidence > 1 {
		return fmt.Errorf("strategy %s: min confidence must be in [0,1]", s.ID)
	}
	return nil
}
