package router

import (
	"github.com/zen-systems/scenroute/pkg/scenario"
	"github.com/zen-systems/scenroute/pkg/strategy"
)

// Selected pairs a chosen strategy with the scenario that selected it.
type Selected struct {
	Strategy *strategy.Strategy
	Scenario scenario.Scenario
}

// Decision captures the outcome of one routing pass: the ranked scenarios,
// the ordered (deduplicated) strategy selections, the fallback strategy if
// one was needed, and a human-readable reasoning trace.
type Decision struct {
	Scenarios []scenario.Scenario `json:"scenarios"`
	Selected  []Selected          `json:"-"`
	Fallback  *strategy.Strategy  `json:"-"`
	Reasoning []string            `json:"reasoning"`
}

// HasValidRoute reports whether at least one strategy was selected.
func (d *Decision) HasValidRoute() bool {
	return len(d.Selected) > 0
}

// PrimaryScenario returns the top-ranked scenario.
func (d *Decision) PrimaryScenario() (scenario.Scenario, bool) {
	if len(d.Scenarios) == 0 {
		return scenario.Scenario{}, false
	}
	return d.Scenarios[0], true
}

// PrimaryStrategy returns the first selected strategy.
func (d *Decision) PrimaryStrategy() (*strategy.Strategy, bool) {
	if len(d.Selected) == 0 {
		return nil, false
	}
	return d.Selected[0].Strategy, true
}

// StrategyIDs returns the selected strategy IDs in order.
func (d *Decision) StrategyIDs() []string {
	ids := make([]string, 0, len(d.Selected))
	for _, sel := range d.Selected {
		ids = append(ids, sel.Strategy.ID)
	}
	return ids
}
