package scenario

// Request is a pre-parsed request record. The engine consumes these as
// already-computed input; it never parses logs itself.
type Request struct {
	Method         string  `json:"method"`
	URL            string  `json:"url"`
	Status         int     `json:"http_status"`
	ResponseTimeMs float64 `json:"response_time_ms"`
	HasError       bool    `json:"has_error"`
	HasWarning     bool    `json:"has_warning"`
}
