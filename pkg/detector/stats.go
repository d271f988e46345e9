package detector

import (
	"fmt"

	"github.com/zen-systems/scenroute/pkg/scenario"
)

// slowRequestMs is the latency above which a request counts as slow.
const slowRequestMs = 1000

// requestStats holds the rates computed from one request batch.
type requestStats struct {
	total        int
	errorRate    float64
	rate5xx      float64
	rate4xx      float64
	avgLatencyMs float64
	slowRate     float64
}

func computeRequestStats(requests []scenario.Request) requestStats {
	stats := requestStats{total: len(requests)}
	if stats.total == 0 {
		return stats
	}

	var errs, c5xx, c4xx, slow int
	var latencySum float64
	for _, r := range requests {
		if r.HasError || r.Status >= 500 {
			errs++
		}
		if r.Status >= 500 {
			c5xx++
		}
		if r.Status >= 400 && r.Status < 500 {
			c4xx++
		}
		if r.ResponseTimeMs > slowRequestMs {
			slow++
		}
		latencySum += r.ResponseTimeMs
	}

	n := float64(stats.total)
	stats.errorRate = float64(errs) / n
	stats.rate5xx = float64(c5xx) / n
	stats.rate4xx = float64(c4xx) / n
	stats.slowRate = float64(slow) / n
	stats.avgLatencyMs = latencySum / n
	return stats
}

// detectFromRequests emits scenarios from fixed thresholds over an
// already-parsed request batch.
func (d *Detector) detectFromRequests(requests []scenario.Request) []scenario.Scenario {
	if len(requests) == 0 {
		return nil
	}
	stats := computeRequestStats(requests)

	var scenarios []scenario.Scenario

	if stats.errorRate > 0.05 || stats.rate5xx > 0.02 {
		sc := scenario.New(scenario.TypeError,
			minFloat(1.0, stats.errorRate+2*stats.rate5xx),
			scenario.MatchStatistics,
			fmt.Sprintf("error rate %.1f%%, 5xx rate %.1f%%", stats.errorRate*100, stats.rate5xx*100))
		sc.Indicators = []scenario.Indicator{
			{Name: "error_rate", Value: stats.errorRate, Weight: 1.0, Source: "requests"},
			{Name: "rate_5xx", Value: stats.rate5xx, Weight: 2.0, Source: "requests"},
		}
		scenarios = append(scenarios, sc)
	}

	if stats.avgLatencyMs > 1000 || stats.slowRate > 0.1 {
		sc := scenario.New(scenario.TypePerformance,
			minFloat(0.9, 0.5+stats.slowRate),
			scenario.MatchStatistics,
			fmt.Sprintf("avg latency %.0fms, slow rate %.1f%%", stats.avgLatencyMs, stats.slowRate*100))
		sc.Indicators = []scenario.Indicator{
			{Name: "avg_latency_ms", Value: stats.avgLatencyMs, Weight: 1.0, Source: "requests"},
			{Name: "slow_rate", Value: stats.slowRate, Weight: 1.0, Source: "requests"},
		}
		scenarios = append(scenarios, sc)
	}

	if stats.rate4xx > 0.15 {
		sc := scenario.New(scenario.TypeSecurity,
			minFloat(0.8, stats.rate4xx*2),
			scenario.MatchStatistics,
			fmt.Sprintf("4xx rate %.1f%%", stats.rate4xx*100))
		sc.Indicators = []scenario.Indicator{
			{Name: "rate_4xx", Value: stats.rate4xx, Weight: 1.0, Source: "requests"},
		}
		scenarios = append(scenarios, sc)
	}

	if stats.total >= 100 {
		sc := scenario.New(scenario.TypeTraffic,
			minFloat(0.9, 0.3+float64(stats.total)/1000.0),
			scenario.MatchStatistics,
			fmt.Sprintf("%d requests in batch", stats.total))
		sc.Indicators = []scenario.Indicator{
			{Name: "request_count", Value: float64(stats.total), Weight: 1.0, Source: "requests"},
		}
		scenarios = append(scenarios, sc)
	}

	return scenarios
}
