// Package detector turns heterogeneous raw input (log content, parsed request
// statistics, numeric metrics, an optional human hint) into a ranked list of
// analysis scenarios. Detection runs independent passes, merges same-type
// findings, optionally consults an external classifier when confidence is
// weak, then filters and sorts.
package detector

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/zen-systems/scenroute/pkg/classify"
	"github.com/zen-systems/scenroute/pkg/scenario"
)

const (
	// DefaultMinConfidence filters scenarios the caller is unlikely to act on.
	DefaultMinConfidence = 0.3
	// DefaultLLMThreshold gates the classifier call: it only runs when the
	// best merged confidence falls below this value.
	DefaultLLMThreshold = 0.7
)

// Input carries the raw signals for one detection call. All fields are
// optional; an entirely empty input yields no scenarios.
type Input struct {
	Content  string
	Requests []scenario.Request
	Metrics  map[string]float64
	Hint     string
}

// IsEmpty reports whether the input carries no signal at all.
func (in Input) IsEmpty() bool {
	return in.Content == "" && len(in.Requests) == 0 && len(in.Metrics) == 0 && in.Hint == ""
}

// Detector applies a rule set plus optional LLM classification to raw input.
type Detector struct {
	rules         []Rule
	minConfidence float64
	llmThreshold  float64
	classifier    classify.Classifier
	debug         bool
	logf          func(format string, args ...any)
}

// Option configures a Detector.
type Option func(*Detector)

// WithRules replaces the builtin rule set.
func WithRules(rules []Rule) Option {
	return func(d *Detector) {
		d.rules = rules
	}
}

// WithExtraRules appends caller-supplied rules to the builtin set.
func WithExtraRules(rules ...Rule) Option {
	return func(d *Detector) {
		d.rules = append(d.rules, rules...)
	}
}

// WithMinConfidence sets the confidence floor for returned scenarios.
func WithMinConfidence(min float64) Option {
	return func(d *Detector) {
		d.minConfidence = min
	}
}

// WithClassifier enables LLM-assisted classification.
func WithClassifier(c classify.Classifier) Option {
	return func(d *Detector) {
		d.classifier = c
	}
}

// WithLLMThreshold sets the confidence below which the classifier is consulted.
func WithLLMThreshold(threshold float64) Option {
	return func(d *Detector) {
		d.llmThreshold = threshold
	}
}

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(d *Detector) {
		d.debug = debug
	}
}

// New creates a detector with the builtin rules and default thresholds.
func New(opts ...Option) *Detector {
	d := &Detector{
		rules:         BuiltinRules(),
		minConfidence: DefaultMinConfidence,
		llmThreshold:  DefaultLLMThreshold,
		logf:          log.Printf,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect runs every detection pass over the input and returns scenarios
// sorted by confidence descending. Ties keep discovery order. Classification
// faults recover locally; Detect never returns an error.
func (d *Detector) Detect(ctx context.Context, in Input) []scenario.Scenario {
	if in.IsEmpty() {
		return nil
	}

	var found []scenario.Scenario
	found = append(found, d.detectFromHint(in.Hint)...)
	found = append(found, d.detectFromContent(in.Content)...)
	found = append(found, d.detectFromRequests(in.Requests)...)
	found = append(found, d.detectFromMetrics(in.Metrics)...)

	merged := mergeByType(found)

	if d.classifier != nil && d.needsLLM(merged) {
		merged = d.enhanceWithLLM(ctx, in, merged)
	}

	result := merged[:0:0]
	for _, sc := range merged {
		if sc.Confidence >= d.minConfidence {
			result = append(result, sc)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Confidence > result[j].Confidence
	})

	if d.debug {
		d.logf("[detector] %d scenarios after merge/filter", len(result))
	}

	return result
}

// detectFromHint scores rules against an explicit user hint. A hint is the
// strongest signal, so matches start at 0.6 confidence.
func (d *Detector) detectFromHint(hint string) []scenario.Scenario {
	if hint == "" {
		return nil
	}
	hintLower := strings.ToLower(hint)

	var scenarios []scenario.Scenario
	for _, rule := range d.rules {
		hits := 0
		var matched []string
		for _, kw := range rule.Keywords {
			if strings.Contains(hintLower, strings.ToLower(kw)) {
				hits++
				matched = append(matched, kw)
			}
		}
		if hits == 0 {
			continue
		}

		sc := scenario.New(rule.Type, minFloat(0.9, 0.6+0.1*float64(hits)), scenario.MatchHint,
			"matched user hint: "+strings.Join(matched, ", "))
		sc.Indicators = []scenario.Indicator{{
			Name:   "hint_keyword_hits",
			Value:  float64(hits),
			Weight: 1.0,
			Source: "hint",
		}}
		scenarios = append(scenarios, sc)
	}

	return scenarios
}

// detectFromContent scores rules against raw log content using keyword
// occurrence counts (weight 0.4) and regex pattern hits (weight 0.6).
func (d *Detector) detectFromContent(content string) []scenario.Scenario {
	if content == "" {
		return nil
	}
	contentLower := strings.ToLower(content)

	var scenarios []scenario.Scenario
	for _, rule := range d.rules {
		kwHits := 0
		for _, kw := range rule.Keywords {
			kwHits += strings.Count(contentLower, strings.ToLower(kw))
		}
		var kwScore float64
		if len(rule.Keywords) > 0 {
			kwScore = minFloat(1.0, float64(kwHits)/float64(len(rule.Keywords)*3))
		}

		patHits := 0
		for _, re := range rule.Patterns {
			patHits += len(re.FindAllStringIndex(content, -1))
		}
		patScore := minFloat(1.0, float64(patHits)/10.0)

		confidence := scenario.Clamp((0.4*kwScore + 0.6*patScore) * rule.Weight)
		if confidence == 0 {
			continue
		}

		method := scenario.MatchKeyword
		if patHits > 0 {
			method = scenario.MatchPattern
		}

		sc := scenario.New(rule.Type, confidence, method, "matched log content signals")
		sc.Indicators = []scenario.Indicator{
			{Name: "keyword_score", Value: kwScore, Weight: 0.4, Source: "content"},
			{Name: "pattern_score", Value: patScore, Weight: 0.6, Source: "content"},
		}
		scenarios = append(scenarios, sc)
	}

	return scenarios
}

// detectFromMetrics evaluates every rule's threshold conditions against the
// supplied metrics map. Confidence is the matched fraction times the rule
// weight.
func (d *Detector) detectFromMetrics(metrics map[string]float64) []scenario.Scenario {
	if len(metrics) == 0 {
		return nil
	}

	var scenarios []scenario.Scenario
	for _, rule := range d.rules {
		if len(rule.Thresholds) == 0 {
			continue
		}

		matched := 0
		var indicators []scenario.Indicator
		for name, cond := range rule.Thresholds {
			v, ok := metrics[name]
			if !ok || !cond.Eval(v) {
				continue
			}
			matched++
			indicators = append(indicators, scenario.Indicator{
				Name:   name,
				Value:  v,
				Weight: rule.Weight,
				Source: "metrics",
			})
		}
		if matched == 0 {
			continue
		}

		confidence := float64(matched) / float64(len(rule.Thresholds)) * rule.Weight
		sc := scenario.New(rule.Type, confidence, scenario.MatchThreshold, "metric thresholds crossed")
		sc.Indicators = indicators
		scenarios = append(scenarios, sc)
	}

	return scenarios
}

// mergeByType combines scenarios of the same type found by different passes,
// preserving first-discovery order.
func mergeByType(scenarios []scenario.Scenario) []scenario.Scenario {
	byType := make(map[scenario.Type]int, len(scenarios))
	var merged []scenario.Scenario

	for _, sc := range scenarios {
		idx, seen := byType[sc.Type]
		if !seen {
			byType[sc.Type] = len(merged)
			merged = append(merged, sc)
			continue
		}
		merged[idx] = merged[idx].Merge(sc)
	}

	return merged
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
