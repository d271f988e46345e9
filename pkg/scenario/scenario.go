package scenario

// Indicator captures one signal that contributed to a scenario's confidence.
// It is diagnostic only; detection never reads it back.
type Indicator struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
	Source string  `json:"source,omitempty"`
}

// WeightedValue returns the indicator's contribution.
func (i Indicator) WeightedValue() float64 {
	return i.Value * i.Weight
}

// Scenario is a detected situation with a confidence score in [0,1].
type Scenario struct {
	Type        Type           `json:"scenario_type"`
	Confidence  float64        `json:"confidence"`
	Indicators  []Indicator    `json:"indicators,omitempty"`
	Method      MatchMethod    `json:"match_method"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// New creates a scenario with confidence clamped to [0,1].
func New(t Type, confidence float64, method MatchMethod, description string) Scenario {
	return Scenario{
		Type:        t,
		Confidence:  Clamp(confidence),
		Method:      method,
		Description: description,
	}
}

// Merge combines two scenarios of the same type discovered by different
// passes. The merged confidence is min(1, (a+b)*0.6), indicator lists are
// concatenated, and metadata is shallow-merged with the receiver winning on
// key collisions.
func (s Scenario) Merge(other Scenario) Scenario {
	merged := Scenario{
		Type:        s.Type,
		Confidence:  Clamp((s.Confidence + other.Confidence) * 0.6),
		Method:      MatchMerged,
		Description: s.Description,
	}
	if merged.Description == "" {
		merged.Description = other.Description
	}

	merged.Indicators = make([]Indicator, 0, len(s.Indicators)+len(other.Indicators))
	merged.Indicators = append(merged.Indicators, s.Indicators...)
	merged.Indicators = append(merged.Indicators, other.Indicators...)

	if len(s.Metadata) > 0 || len(other.Metadata) > 0 {
		merged.Metadata = make(map[string]any, len(s.Metadata)+len(other.Metadata))
		for k, v := range other.Metadata {
			merged.Metadata[k] = v
		}
		for k, v := range s.Metadata {
			merged.Metadata[k] = v
		}
	}

	return merged
}

// Clamp bounds a confidence value to [0,1].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
