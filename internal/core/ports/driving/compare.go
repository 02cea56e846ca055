package driving

import (
	"context"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
)

// CompareService produces a structured diff of two documents.
// Stateless: no session, no persistence, a bounded number of model calls.
type CompareService interface {
	// Compare extracts both documents and analyses their differences.
	// Fails with an extraction error before any model call is made when
	// either document cannot be parsed.
	Compare(ctx context.Context, a, b domain.Document) (*domain.ComparisonReport, error)
}
