package driving

import (
	"context"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
)

// IngestService turns uploaded documents into a persisted session index.
type IngestService interface {
	// Ingest processes documents into the session's index. Individual
	// document failures are captured in the report and never abort the
	// batch. If sessionID is empty a new session id is minted.
	Ingest(ctx context.Context, sessionID string, docs []domain.Document) (*domain.IngestionReport, error)
}
