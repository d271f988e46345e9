package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zen-systems/scenroute/pkg/strategy"
	"golang.org/x/sync/errgroup"
)

// Execute runs the selected strategies in order. By default it stops after
// the first successful result; the execute_all option runs every strategy
// regardless of prior outcomes. A decision with no valid route yields a
// single failed result.
func (r *Router) Execute(ctx context.Context, decision *Decision, execCtx *Context) []Result {
	if decision == nil || !decision.HasValidRoute() {
		r.recordExecution(false)
		return []Result{{
			Success: false,
			Error:   "no valid strategy for this input",
		}}
	}

	var results []Result
	for _, sel := range decision.Selected {
		res := r.runStrategy(ctx, sel, execCtx)
		results = append(results, res)
		if res.Success && !execCtx.executeAll() {
			break
		}
	}

	r.recordExecution(anySucceeded(results))
	return results
}

// ExecuteAsync runs the selected strategies with concurrent fan-out.
// Concurrent-capable strategies run simultaneously; sequential-capable ones
// are serialized among themselves but offloaded to the pool so a blocking
// handler never stalls concurrent siblings. Every strategy carries its own
// timeout, and one strategy's failure or timeout never aborts the others.
// Results are written by index, so output order matches selection order.
func (r *Router) ExecuteAsync(ctx context.Context, decision *Decision, execCtx *Context) []Result {
	if decision == nil || !decision.HasValidRoute() {
		r.recordExecution(false)
		return []Result{{
			Success: false,
			Error:   "no valid strategy for this input",
		}}
	}

	results := make([]Result, len(decision.Selected))

	var sequential []int
	g := new(errgroup.Group)
	for i, sel := range decision.Selected {
		if sel.Strategy.Mode != strategy.ModeConcurrent {
			sequential = append(sequential, i)
			continue
		}
		i, sel := i, sel
		g.Go(func() error {
			results[i] = r.runStrategy(ctx, sel, execCtx)
			return nil
		})
	}

	if len(sequential) > 0 {
		g.Go(func() error {
			for _, i := range sequential {
				results[i] = r.runStrategy(ctx, decision.Selected[i], execCtx)
			}
			return nil
		})
	}

	_ = g.Wait()

	r.recordExecution(anySucceeded(results))
	return results
}

type handlerOutcome struct {
	out any
	err error
}

// runStrategy invokes one strategy with its timeout and converts the outcome
// into a Result. Handler panics and errors are captured here; nothing crosses
// the execution boundary.
func (r *Router) runStrategy(ctx context.Context, sel Selected, execCtx *Context) Result {
	s := sel.Strategy
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	inv := &strategy.Invocation{
		TaskID:   execCtx.TaskID,
		Scenario: sel.Scenario,
		Content:  execCtx.Content,
		Requests: execCtx.Requests,
		Options:  execCtx.Options,
		Shared:   execCtx.Shared,
	}

	result := Result{
		StrategyID:   s.ID,
		ScenarioType: sel.Scenario.Type,
		Metadata: map[string]any{
			"mode":     string(s.Mode),
			"priority": s.Priority.String(),
		},
	}

	start := time.Now()
	outcome := make(chan handlerOutcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				outcome <- handlerOutcome{err: fmt.Errorf("handler panic: %v", p)}
			}
		}()
		out, err := s.Handler(runCtx, inv)
		outcome <- handlerOutcome{out: out, err: err}
	}()

	select {
	case o := <-outcome:
		result.Duration = time.Since(start)
		if o.err != nil {
			result.Error = o.err.Error()
			if r.debug {
				r.logf("[router] strategy %s failed: %v", s.ID, o.err)
			}
			return result
		}
		result.Success = true
		result.Data = wrapResultData(o.out)
		return result

	case <-runCtx.Done():
		result.Duration = time.Since(start)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			result.Error = fmt.Sprintf("strategy %s timed out after %s", s.ID, timeout)
		} else {
			result.Error = fmt.Sprintf("strategy %s canceled: %v", s.ID, runCtx.Err())
		}
		if r.debug {
			r.logf("[router] %s", result.Error)
		}
		return result
	}
}

// wrapResultData normalizes a handler's return value. Maps pass through;
// anything else is wrapped under a single "result" key.
func wrapResultData(out any) map[string]any {
	if out == nil {
		return nil
	}
	if m, ok := out.(map[string]any); ok {
		return m
	}
	return map[string]any{"result": out}
}

func anySucceeded(results []Result) bool {
	for _, res := range results {
		if res.Success {
			return true
		}
	}
	return false
}

func (r *Router) recordExecution(succeeded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executions++
	if succeeded {
		r.successes++
	}
}
