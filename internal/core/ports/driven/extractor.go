package driven

import (
	"context"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
)

// Extractor turns uploaded document bytes into normalised text.
// Each extractor handles exactly one DocumentKind; the set of kinds is
// closed (see domain.DocumentKind).
type Extractor interface {
	// Kind returns the document kind this extractor handles.
	Kind() domain.DocumentKind

	// Extract returns the normalised text for the document.
	// Returns domain.ErrCorruptFile when the bytes cannot be parsed.
	Extract(ctx context.Context, doc domain.Document) (string, error)
}

// ExtractorRegistry selects the extractor for a document kind.
type ExtractorRegistry interface {
	// ForKind returns the extractor for the kind.
	// Returns domain.ErrUnsupportedFormat for kinds with no extractor.
	ForKind(kind domain.DocumentKind) (Extractor, error)

	// Kinds returns the registered kinds.
	Kinds() []domain.DocumentKind
}
