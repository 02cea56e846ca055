package domain

import "time"

// DocumentKind identifies a supported upload format.
// The set is closed: adding a format means adding a kind here plus an
// extractor implementation, never probing bytes at runtime.
type DocumentKind int

const (
	// KindUnknown is the zero value for unrecognised media types.
	KindUnknown DocumentKind = iota

	// KindPlainText covers text/plain and similar textual types.
	KindPlainText

	// KindMarkdown covers text/markdown.
	KindMarkdown

	// KindPDF covers application/pdf.
	KindPDF

	// KindDOCX covers Office Open XML word processing documents.
	KindDOCX
)

// String returns a human-readable name for the kind.
func (k DocumentKind) String() string {
	switch k {
	case KindPlainText:
		return "plaintext"
	case KindMarkdown:
		return "markdown"
	case KindPDF:
		return "pdf"
	case KindDOCX:
		return "docx"
	default:
		return "unknown"
	}
}

// KindForMediaType maps a declared media type to a DocumentKind.
// Unrecognised types map to KindUnknown; callers decide whether that is
// an error (ingestion) or a reason to skip (listing).
func KindForMediaType(mediaType string) DocumentKind {
	switch mediaType {
	case "text/plain", "text/csv", "application/json", "text/x-log":
		return KindPlainText
	case "text/markdown", "text/x-markdown":
		return KindMarkdown
	case "application/pdf":
		return KindPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return KindDOCX
	default:
		return KindUnknown
	}
}

// Document is an uploaded document before any processing.
// It is consumed by the ingestion pipeline and never persisted as-is.
type Document struct {
	// Name is the source name (usually the uploaded file name).
	Name string

	// MediaType is the declared content type (e.g. "application/pdf").
	MediaType string

	// Content is the raw bytes as uploaded.
	Content []byte
}

// Kind returns the DocumentKind derived from the declared media type.
func (d Document) Kind() DocumentKind {
	return KindForMediaType(d.MediaType)
}

// Chunk is a bounded slice of normalised document text.
// It is the unit of embedding, retrieval and citation.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// Source is the name of the document the chunk came from.
	Source string

	// Sequence is the ordinal position within the source document.
	Sequence int

	// Text is the normalised text content of this chunk.
	Text string
}

// ScoredChunk pairs a chunk with its similarity score for a query.
type ScoredChunk struct {
	Chunk Chunk

	// Score is the cosine similarity against the query embedding
	// (0-1 for normalised vectors), higher is more relevant.
	Score float64
}

// DocumentStats summarises an ingested document for reporting.
type DocumentStats struct {
	// Words is the whitespace-separated word count of the extracted text.
	Words int

	// Characters is the length of the extracted text.
	Characters int

	// Chunks is the number of chunks produced.
	Chunks int

	// IngestedAt is when the document entered the index.
	IngestedAt time.Time
}
