package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docport-cli/internal/chunker"
	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docport-cli/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService turns uploaded documents into a persisted session index.
type IngestService struct {
	registry   *Registry
	extractors driven.ExtractorRegistry
	embedder   driven.EmbeddingService
	config     driven.ConfigStore
}

// NewIngestService creates a new ingestion service.
// The config store is optional (can be nil); chunking then uses defaults.
func NewIngestService(
	registry *Registry,
	extractors driven.ExtractorRegistry,
	embedder driven.EmbeddingService,
	config driven.ConfigStore,
) *IngestService {
	return &IngestService{
		registry:   registry,
		extractors: extractors,
		embedder:   embedder,
		config:     config,
	}
}

// Ingest processes documents into the session's index. Individual
// document failures are captured in the report and never abort the
// batch. If sessionID is empty a new session id is minted.
func (s *IngestService) Ingest(
	ctx context.Context, sessionID string, docs []domain.Document,
) (*domain.IngestionReport, error) {
	if sessionID == "" {
		sessionID = domain.NewSessionID()
		logger.Info("Minted session id %s", sessionID)
	}
	if !domain.ValidSessionID(sessionID) {
		return nil, fmt.Errorf("%w: invalid session id %q", domain.ErrInvalidInput, sessionID)
	}

	logger.Section("Ingestion")
	logger.Debug("Session: %s, documents: %d", sessionID, len(docs))

	// Serialise ingest-and-persist per session.
	lock := s.registry.Lock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	handle, state, err := s.registry.Handle(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("opening session index: %w", err)
	}
	logger.Debug("Index state: %s, existing chunks: %d", state, handle.Len())

	split, err := s.newChunker()
	if err != nil {
		return nil, err
	}

	report := &domain.IngestionReport{SessionID: sessionID}
	for _, doc := range docs {
		// Stop between documents when the caller gives up. Adds that
		// never reached disk must not survive in the cached handle, or
		// a retry would be misreported as a duplicate.
		if err := ctx.Err(); err != nil {
			s.discardUnpersisted(sessionID, report)
			return nil, err
		}

		s.ingestOne(ctx, handle, split, doc, report)
	}

	if len(report.Ingested) > 0 {
		if err := handle.Persist(ctx); err != nil {
			s.discardUnpersisted(sessionID, report)
			return nil, fmt.Errorf("persisting session index: %w", err)
		}
		logger.Info("Persisted session %s: %d chunks total", sessionID, handle.Len())
	}

	return report, nil
}

// discardUnpersisted drops the cached handle when the batch mutated it
// but the result never reached disk. The next open reloads the last
// persisted state, keeping memory and disk in agreement.
func (s *IngestService) discardUnpersisted(sessionID string, report *domain.IngestionReport) {
	if len(report.Ingested) == 0 {
		return
	}
	logger.Warn("Discarding unpersisted adds for session %s", sessionID)
	s.registry.Forget(sessionID)
}

// ingestOne processes a single document end to end and records its
// outcome in the report. A failure at any stage means nothing from
// this document reached the index.
func (s *IngestService) ingestOne(
	ctx context.Context,
	handle driven.IndexHandle,
	split *chunker.Chunker,
	doc domain.Document,
	report *domain.IngestionReport,
) {
	fp := domain.Fingerprint(doc.Content)

	if handle.HasFingerprint(fp) {
		logger.Debug("Skipping duplicate %q (fingerprint %.12s)", doc.Name, fp)
		report.SkippedDuplicate = append(report.SkippedDuplicate,
			domain.SkippedDocument{Name: doc.Name, Fingerprint: fp})
		return
	}

	extractor, err := s.extractors.ForKind(doc.Kind())
	if err != nil {
		report.Failed = append(report.Failed, failed(doc, err))
		return
	}

	text, err := extractor.Extract(ctx, doc)
	if err != nil {
		report.Failed = append(report.Failed, failed(doc, err))
		return
	}
	if strings.TrimSpace(text) == "" {
		report.Failed = append(report.Failed, failed(doc,
			fmt.Errorf("%w: document has no extractable text", domain.ErrInvalidInput)))
		return
	}

	chunks := split.Split(doc.Name, text)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	// One batched call per document keeps embedding atomic: either the
	// whole document embeds or none of it does.
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		report.Failed = append(report.Failed, failed(doc, err))
		return
	}
	if len(vectors) != len(chunks) {
		report.Failed = append(report.Failed, failed(doc,
			fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbedding, len(vectors), len(chunks))))
		return
	}

	entries := make([]driven.IndexEntry, len(chunks))
	for i := range chunks {
		entries[i] = driven.IndexEntry{Embedding: vectors[i], Chunk: chunks[i]}
	}

	if err := handle.Add(ctx, entries); err != nil {
		report.Failed = append(report.Failed, failed(doc, err))
		return
	}
	handle.RecordFingerprint(fp)

	stats := domain.DocumentStats{
		Words:      len(strings.Fields(text)),
		Characters: len(text),
		Chunks:     len(chunks),
		IngestedAt: time.Now().UTC(),
	}
	logger.Debug("Ingested %q: %d chunks, %d words", doc.Name, stats.Chunks, stats.Words)

	report.Ingested = append(report.Ingested,
		domain.IngestedDocument{Name: doc.Name, Fingerprint: fp, Stats: stats})
}

// newChunker builds a chunker from configuration, falling back to the
// package defaults when no config store is wired.
func (s *IngestService) newChunker() (*chunker.Chunker, error) {
	size, overlap := chunker.DefaultChunkSize, chunker.DefaultOverlap
	if s.config != nil {
		if v := s.config.GetInt(driven.ConfigChunkSize); v > 0 {
			size = v
		}
		if v := s.config.GetInt(driven.ConfigChunkOverlap); v > 0 {
			overlap = v
		}
	}
	return chunker.New(chunker.WithChunkSize(size), chunker.WithOverlap(overlap))
}

// failed records a per-document failure with its reason.
func failed(doc domain.Document, err error) domain.FailedDocument {
	logger.Warn("Failed to ingest %q: %v", doc.Name, err)
	return domain.FailedDocument{Name: doc.Name, Reason: err.Error()}
}
