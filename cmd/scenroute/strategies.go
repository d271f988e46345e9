package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/zen-systems/scenroute/pkg/scenario"
	"github.com/zen-systems/scenroute/pkg/strategy"
)

// registerBuiltinStrategies installs the CLI's demo strategies: lightweight
// report handlers that summarize what was detected. Real deployments register
// their own analysis handlers at bootstrap instead.
func registerBuiltinStrategies(reg *strategy.Registry) error {
	strategies := []*strategy.Strategy{
		{
			ID:            "error-report",
			Name:          "Error Report",
			ScenarioTypes: []scenario.Type{scenario.TypeError, scenario.TypeRootCause},
			Handler:       reportHandler,
			Priority:      scenario.PriorityHigh,
			MinConfidence: 0.4,
			Mode:          strategy.ModeSequential,
			Tags:          []string{"report", "errors"},
		},
		{
			ID:            "performance-report",
			Name:          "Performance Report",
			ScenarioTypes: []scenario.Type{scenario.TypePerformance, scenario.TypeTraffic},
			Handler:       reportHandler,
			Priority:      scenario.PriorityMedium,
			MinConfidence: 0.4,
			Mode:          strategy.ModeConcurrent,
			Tags:          []string{"report", "performance"},
		},
		{
			ID:            "security-report",
			Name:          "Security Report",
			ScenarioTypes: []scenario.Type{scenario.TypeSecurity},
			Handler:       reportHandler,
			Priority:      scenario.PriorityHigh,
			MinConfidence: 0.4,
			Mode:          strategy.ModeConcurrent,
			Tags:          []string{"report", "security"},
		},
		{
			ID:            "generic-report",
			Name:          "Generic Report",
			ScenarioTypes: scenario.AllTypes(),
			Handler:       reportHandler,
			Priority:      scenario.PriorityBackground,
			MinConfidence: 0,
			Mode:          strategy.ModeSequential,
			Tags:          []string{"report", "catch-all"},
		},
	}

	for _, s := range strategies {
		if err := reg.Register(s); err != nil {
			return fmt.Errorf("failed to register strategy %s: %w", s.ID, err)
		}
	}
	return nil
}

// reportHandler produces a plain-text summary of the detected scenario and
// the signals behind it.
func reportHandler(_ context.Context, inv *strategy.Invocation) (any, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("detected %s with %.0f%% confidence via %s\n",
		inv.Scenario.Type, inv.Scenario.Confidence*100, inv.Scenario.Method))
	for _, ind := range inv.Scenario.Indicators {
		sb.WriteString(fmt.Sprintf("- %s=%.3f (weight %.1f, source %s)\n",
			ind.Name, ind.Value, ind.Weight, ind.Source))
	}

	return map[string]any{
		"summary":       sb.String(),
		"scenario_type": string(inv.Scenario.Type),
		"confidence":    inv.Scenario.Confidence,
	}, nil
}
