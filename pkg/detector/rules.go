package detector

import (
	"fmt"
	"regexp"

	"github.com/zen-systems/scenroute/pkg/scenario"
)

// Condition is a single numeric threshold: metric <op> value.
type Condition struct {
	Op    string  `json:"op"`
	Value float64 `json:"value"`
}

// Eval applies the condition to a metric value.
func (c Condition) Eval(v float64) bool {
	switch c.Op {
	case "gt":
		return v > c.Value
	case "gte":
		return v >= c.Value
	case "lt":
		return v < c.Value
	case "lte":
		return v <= c.Value
	case "eq":
		return v == c.Value
	default:
		return false
	}
}

// Rule bundles the signals that point at one scenario type: keywords for
// hint/content matching, regex patterns for content matching, and numeric
// threshold conditions for the metrics pass.
type Rule struct {
	Name       string
	Type       scenario.Type
	Keywords   []string
	Patterns   []*regexp.Regexp
	Thresholds map[string]Condition
	Weight     float64
}

// RuleSpec is the uncompiled form of a Rule, used for custom rules loaded
// from configuration.
type RuleSpec struct {
	Name       string               `json:"name" yaml:"name"`
	Type       string               `json:"scenario_type" yaml:"scenario_type"`
	Keywords   []string             `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Patterns   []string             `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Thresholds map[string]Condition `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Weight     float64              `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// Compile validates the spec and compiles its patterns. Invalid regexps are
// reported here, at load time; detection itself never fails on a rule.
func (s RuleSpec) Compile() (Rule, error) {
	t, ok := scenario.ParseType(s.Type)
	if !ok {
		return Rule{}, fmt.Errorf("rule %s: unknown scenario type %q", s.Name, s.Type)
	}

	rule := Rule{
		Name:       s.Name,
		Type:       t,
		Keywords:   s.Keywords,
		Thresholds: s.Thresholds,
		Weight:     s.Weight,
	}
	if rule.Weight <= 0 {
		rule.Weight = 1.0
	}

	for _, expr := range s.Patterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %s: pattern %q: %w", s.Name, expr, err)
		}
		rule.Patterns = append(rule.Patterns, re)
	}

	return rule, nil
}

func mustPatterns(exprs ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		patterns = append(patterns, regexp.MustCompile(expr))
	}
	return patterns
}

// BuiltinRules returns the default rule set covering every scenario category.
// Keywords carry both English and Chinese terms because hints and log content
// arrive in either language.
func BuiltinRules() []Rule {
	return []Rule{
		{
			Name:     "errors",
			Type:     scenario.TypeError,
			Keywords: []string{"error", "exception", "failed", "failure", "fatal", "panic", "错误", "异常", "失败", "报错"},
			Patterns: mustPatterns(
				`(?i)\berror\b`,
				`(?i)exception`,
				`(?i)panic:`,
				`(?i)stack\s?trace`,
				`\bHTTP/\d\.\d"\s+5\d{2}\b`,
			),
			Thresholds: map[string]Condition{
				"error_rate": {Op: "gt", Value: 0.05},
			},
			Weight: 1.0,
		},
		{
			Name:     "performance",
			Type:     scenario.TypePerformance,
			Keywords: []string{"slow", "latency", "timeout", "performance", "lag", "慢", "超时", "性能", "延迟", "卡顿"},
			Patterns: mustPatterns(
				`(?i)time[d\s-]?out`,
				`(?i)slow\s+query`,
				`(?i)took\s+\d{4,}\s*ms`,
				`(?i)deadline\s+exceeded`,
			),
			Thresholds: map[string]Condition{
				"avg_latency_ms": {Op: "gt", Value: 1000},
				"p99_latency_ms": {Op: "gt", Value: 3000},
			},
			Weight: 0.9,
		},
		{
			Name:     "security",
			Type:     scenario.TypeSecurity,
			Keywords: []string{"unauthorized", "forbidden", "attack", "injection", "breach", "安全", "攻击", "未授权", "注入"},
			Patterns: mustPatterns(
				`(?i)sql\s+injection`,
				`(?i)unauthorized`,
				`(?i)forbidden`,
				`(?i)\bxss\b`,
				`(?i)brute[\s-]?force`,
			),
			Thresholds: map[string]Condition{
				"rate_4xx":      {Op: "gt", Value: 0.15},
				"auth_failures": {Op: "gt", Value: 10},
			},
			Weight: 0.9,
		},
		{
			Name:     "business",
			Type:     scenario.TypeBusiness,
			Keywords: []string{"order", "payment", "transaction", "checkout", "业务", "订单", "支付", "交易"},
			Patterns: mustPatterns(
				`(?i)order\s+\S+\s+failed`,
				`(?i)payment\s+(failed|declined|rejected)`,
				`(?i)transaction\s+rolled\s+back`,
			),
			Thresholds: map[string]Condition{
				"order_failure_rate": {Op: "gt", Value: 0.01},
			},
			Weight: 0.8,
		},
		{
			Name:     "anomaly",
			Type:     scenario.TypeAnomaly,
			Keywords: []string{"anomaly", "unusual", "spike", "outlier", "abnormal", "异常波动", "突增", "突降"},
			Patterns: mustPatterns(
				`(?i)anomal(y|ies|ous)`,
				`(?i)spike`,
				`(?i)unexpected\s+(drop|surge)`,
			),
			Thresholds: map[string]Condition{
				"deviation_sigma": {Op: "gt", Value: 3},
			},
			Weight: 0.8,
		},
		{
			Name:     "coverage",
			Type:     scenario.TypeAPICoverage,
			Keywords: []string{"coverage", "uncovered", "endpoint", "接口覆盖", "覆盖率"},
			Patterns: mustPatterns(
				`(?i)not\s+covered`,
				`(?i)missing\s+endpoint`,
			),
			Thresholds: map[string]Condition{
				"coverage_ratio": {Op: "lt", Value: 0.8},
			},
			Weight: 0.6,
		},
		{
			Name:     "traffic",
			Type:     scenario.TypeTraffic,
			Keywords: []string{"traffic", "qps", "throughput", "concurrency", "流量", "并发", "吞吐"},
			Patterns: mustPatterns(
				`(?i)rate\s*limit`,
				`(?i)too\s+many\s+requests`,
				`\b429\b`,
			),
			Thresholds: map[string]Condition{
				"qps":           {Op: "gt", Value: 1000},
				"request_count": {Op: "gte", Value: 100},
			},
			Weight: 0.7,
		},
		{
			Name:     "root-cause",
			Type:     scenario.TypeRootCause,
			Keywords: []string{"root cause", "caused by", "why", "根因", "原因分析"},
			Patterns: mustPatterns(
				`(?i)caused\s+by`,
				`(?i)root\s+cause`,
			),
			Weight: 0.8,
		},
		{
			Name:     "health",
			Type:     scenario.TypeHealthCheck,
			Keywords: []string{"health", "liveness", "readiness", "heartbeat", "健康检查", "存活", "心跳"},
			Patterns: mustPatterns(
				`(?i)health\s*check\s*fail`,
				`(?i)(liveness|readiness)\s+probe`,
				`(?i)heartbeat\s+(lost|missed)`,
			),
			Thresholds: map[string]Condition{
				"health_score": {Op: "lt", Value: 0.6},
			},
			Weight: 0.7,
		},
	}
}
