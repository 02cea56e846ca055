package domain

// ComparisonFinding is one difference identified between two documents.
type ComparisonFinding struct {
	// Section locates the difference (page or section label).
	Section string `json:"section"`

	// Change describes what differs between the documents.
	Change string `json:"change"`
}

// ComparisonReport is the result of comparing two documents.
// Produced by a single-shot analysis; no state is persisted.
type ComparisonReport struct {
	// NameA and NameB are the compared document names.
	NameA string `json:"name_a"`
	NameB string `json:"name_b"`

	// Identical is set when both documents have the same fingerprint.
	// When set, Findings is empty and no model call was made.
	Identical bool `json:"identical"`

	// Findings lists the differences in document order.
	Findings []ComparisonFinding `json:"findings"`

	// Summary is a short model-written overview of the differences.
	Summary string `json:"summary,omitempty"`
}
