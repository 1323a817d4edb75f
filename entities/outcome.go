package entities

// Status is the terminal state of a lookup.
type Status int

// Lookup terminal states
const (
	StatusResolved Status = iota
	StatusNotFound
	StatusLookupFailed
)

// String returns the wire name, also used as the metric label.
func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusNotFound:
		return "not_found"
	case StatusLookupFailed:
		return "lookup_failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the value handed to the presentation layer once a lookup finishes.
type Outcome struct {
	Status  Status       `json:"status"`
	Message string       `json:"message"`
	Reason  string       `json:"reason,omitempty"`
	Query   string       `json:"query"`
	Result  LookupResult `json:"result"`
}

// Clone returns a deep copy of the outcome.
func (o Outcome) Clone() Outcome {
	o.Result = o.Result.Clone()
	return o
}
