// Package chunker splits normalised document text into fixed-size
// chunks with a configurable overlap window.
package chunker

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultOverlap is the default number of overlapping characters
// between adjacent chunks.
const DefaultOverlap = 200

// Chunker splits text into fixed-size chunks. Adjacent chunks overlap
// by the configured window so information at a boundary appears in both.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// New creates a chunker with the given options.
// Returns domain.ErrConfiguration for a non-positive chunk size or an
// overlap that is negative or not smaller than the chunk size.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", domain.ErrConfiguration, c.chunkSize)
	}
	if c.overlap < 0 || c.overlap >= c.chunkSize {
		return nil, fmt.Errorf("%w: overlap %d with chunk size %d",
			domain.ErrConfiguration, c.overlap, c.chunkSize)
	}
	return c, nil
}

// Split chunks text from the named source document. Chunks cover the
// full text in order; each gets a fresh id and a sequence index.
func (c *Chunker) Split(source, text string) []domain.Chunk {
	if text == "" {
		return nil
	}

	step := c.chunkSize - c.overlap
	estimated := len(text)/step + 1
	chunks := make([]domain.Chunk, 0, estimated)

	sequence := 0
	for start := 0; start < len(text); start += step {
		end := start + c.chunkSize
		if end > len(text) {
			end = len(text)
		}

		chunks = append(chunks, domain.Chunk{
			ID:       uuid.New().String(),
			Source:   source,
			Sequence: sequence,
			Text:     text[start:end],
		})
		sequence++

		if end == len(text) {
			break
		}
	}
	return chunks
}
