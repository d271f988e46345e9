package router

import (
	"time"

	"github.com/google/uuid"
	"github.com/zen-systems/scenroute/pkg/scenario"
	"github.com/zen-systems/scenroute/pkg/strategy"
)

// OptionExecuteAll, when set true in Context.Options, makes Execute run every
// selected strategy instead of stopping after the first success.
const OptionExecuteAll = "execute_all"

// Context is the execution-time payload handed to strategies. The scenario
// views are immutable for the duration of the run; Shared is the only mutable
// piece and is safe for concurrent writers. It lives for one execution of a
// decision and is never persisted.
type Context struct {
	Content   string
	Requests  []scenario.Request
	Primary   scenario.Scenario
	Scenarios []scenario.Scenario
	Options   map[string]any
	Shared    *strategy.SharedData
	TaskID    string
}

// NewContext builds an execution context from the inputs that produced the
// decision. A task ID is generated when the caller supplies none.
func NewContext(content string, requests []scenario.Request, decision *Decision, options map[string]any) *Context {
	c := &Context{
		Content:  content,
		Requests: requests,
		Options:  options,
		Shared:   strategy.NewSharedData(),
		TaskID:   uuid.NewString(),
	}
	if decision != nil {
		c.Scenarios = decision.Scenarios
		if primary, ok := decision.PrimaryScenario(); ok {
			c.Primary = primary
		}
	}
	return c
}

func (c *Context) executeAll() bool {
	if c == nil || c.Options == nil {
		return false
	}
	v, _ := c.Options[OptionExecuteAll].(bool)
	return v
}

// Result is the outcome of running one strategy. Failures are represented,
// never thrown across the execution boundary.
type Result struct {
	Success      bool           `json:"success"`
	StrategyID   string         `json:"strategy_id"`
	ScenarioType scenario.Type  `json:"scenario_type"`
	Data         map[string]any `json:"data,omitempty"`
	Error        string         `json:"error,omitempty"`
	Duration     time.Duration  `json:"duration"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
