package scenario

// Type identifies a category of analysis need. The set is closed; adding a
// category requires a code change.
type Type string

const (
	TypeError       Type = "error_analysis"
	TypePerformance Type = "performance_analysis"
	TypeBusiness    Type = "business_analysis"
	TypeSecurity    Type = "security_analysis"
	TypeAnomaly     Type = "anomaly_detection"
	TypeAPICoverage Type = "api_coverage"
	TypeTraffic     Type = "traffic_analysis"
	TypeRootCause   Type = "root_cause"
	TypeHealthCheck Type = "health_check"
	TypeCustom      Type = "custom"
)

// AllTypes lists every valid scenario type in declaration order.
func AllTypes() []Type {
	return []Type{
		TypeError,
		TypePerformance,
		TypeBusiness,
		TypeSecurity,
		TypeAnomaly,
		TypeAPICoverage,
		TypeTraffic,
		TypeRootCause,
		TypeHealthCheck,
		TypeCustom,
	}
}

// ParseType validates a string against the closed type set.
func ParseType(s string) (Type, bool) {
	for _, t := range AllTypes() {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Priority is a scheduling tier. Higher values are scheduled first.
type Priority int

const (
	PriorityCritical   Priority = 100
	PriorityHigh       Priority = 80
	PriorityMedium     Priority = 50
	PriorityLow        Priority = 30
	PriorityBackground Priority = 10
)

// String returns the tier name for a priority value.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	case PriorityBackground:
		return "background"
	default:
		return "custom"
	}
}

// MatchMethod records which detection pass produced a scenario.
type MatchMethod string

const (
	MatchHint       MatchMethod = "hint"
	MatchKeyword    MatchMethod = "keyword"
	MatchPattern    MatchMethod = "pattern"
	MatchThreshold  MatchMethod = "threshold"
	MatchStatistics MatchMethod = "statistics"
	MatchLLM        MatchMethod = "llm"
	MatchMerged     MatchMethod = "merged"
)
