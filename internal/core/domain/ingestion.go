package domain

// IngestedDocument records one successfully indexed document.
type IngestedDocument struct {
	// Name is the source document name.
	Name string

	// Fingerprint is the content hash recorded for dedup.
	Fingerprint string

	// Stats summarises the extracted text and produced chunks.
	Stats DocumentStats
}

// SkippedDocument records a document rejected as a duplicate.
type SkippedDocument struct {
	// Name is the source document name.
	Name string

	// Fingerprint is the hash that matched an earlier ingestion.
	Fingerprint string
}

// FailedDocument records a document that could not be ingested.
type FailedDocument struct {
	// Name is the source document name.
	Name string

	// Reason is the failure cause, suitable for user display.
	Reason string
}

// IngestionReport is the sole success/failure surface of an ingestion
// batch. Individual document failures never abort the batch; they are
// captured here instead.
type IngestionReport struct {
	// SessionID is the session the batch was ingested into.
	SessionID string

	// Ingested lists documents whose chunks reached the index.
	Ingested []IngestedDocument

	// SkippedDuplicate lists documents already present in the session.
	// Not an error: an informational outcome.
	SkippedDuplicate []SkippedDocument

	// Failed lists documents that could not be extracted or embedded.
	Failed []FailedDocument
}

// Total returns the number of documents accounted for in the report.
func (r *IngestionReport) Total() int {
	return len(r.Ingested) + len(r.SkippedDuplicate) + len(r.Failed)
}
