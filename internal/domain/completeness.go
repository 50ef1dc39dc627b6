package domain

// CompletenessThreshold is the minimum completeness for an answer to pass.
const CompletenessThreshold = 0.85

// MaxSuggestedQueries caps enrichment search terms per verdict.
const MaxSuggestedQueries = 3

// CompletenessVerdict is the self-assessment of one answer.
type CompletenessVerdict struct {
	Confidence             float64  `json:"confidence"`
	Completeness           float64  `json:"completeness"`
	IsComplete             bool     `json:"is_complete"`
	MissingInformation     string   `json:"missing_information,omitempty"`
	SuggestedDocuments     []string `json:"suggested_documents"`
	SuggestedActions       []string `json:"suggested_actions"`
	SuggestedSearchQueries []string `json:"search_queries"`
}

// IsCompleteAt applies the fixed completeness threshold.
func IsCompleteAt(completeness float64) bool {
	return completeness >= CompletenessThreshold
}

// EvaluationKind tells a judged verdict apart from a fallback one.
type EvaluationKind int

const (
	EvaluationVerdict EvaluationKind = iota
	EvaluationDegraded
)

func (k EvaluationKind) String() string {
	if k == EvaluationDegraded {
		return "degraded"
	}
	return "verdict"
}

// Evaluation always carries a verdict. Degraded evaluations also carry the
// cause that prevented the generator from judging the answer.
type Evaluation struct {
	Kind    EvaluationKind
	Verdict CompletenessVerdict
	Cause   error
}

// Degraded reports whether the verdict is the conservative fallback.
func (e Evaluation) Degraded() bool {
	return e.Kind == EvaluationDegraded
}
