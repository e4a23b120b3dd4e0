package triage

// Result is the structured judgment the model is asked to return.
type Result struct {
	MajorIncident              bool    `json:"major_incident"`
	RecommendedPriority        string  `json:"recommended_priority"`
	RecommendedCategory        string  `json:"recommended_category"`
	RecommendedAssignmentGroup string  `json:"recommended_assignment_group"`
	Confidence                 float64 `json:"confidence"`
	Reasoning                  string  `json:"reasoning"`
}

// FallbackResult is returned when no completion provider is configured.
func FallbackResult() *Result {
	return &Result{
		MajorIncident:              true,
		RecommendedPriority:        "P1",
		RecommendedCategory:        "Application",
		RecommendedAssignmentGroup: "Payments Support",
		Confidence:                 0.5,
		Reasoning:                  "Fallback response because Azure OpenAI configuration is missing",
	}
}

// OutcomeKind records how a triage response was produced.
type OutcomeKind string

const (
	// OutcomeAI means the model returned valid JSON
	OutcomeAI OutcomeKind = "ai"
	// OutcomeFallback means no provider was configured
	OutcomeFallback OutcomeKind = "fallback"
	// OutcomeRaw means the model returned text that is not JSON
	OutcomeRaw OutcomeKind = "raw"
)

// Outcome is the result of a triage run.
type Outcome struct {
	ID   string
	Kind OutcomeKind
	// Body is indented JSON for OutcomeAI and OutcomeFallback, and the
	// untouched model text for OutcomeRaw.
	Body []byte
	// Result is set when Body decodes into the expected fields. It is nil for
	// OutcomeRaw and for JSON that does not match the field types.
	Result *Result
}
