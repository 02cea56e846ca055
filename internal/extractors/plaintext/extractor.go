// Package plaintext extracts text from plain text documents.
package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Kind returns the document kind this extractor handles.
func (e *Extractor) Kind() domain.DocumentKind {
	return domain.KindPlainText
}

// Extract returns the document bytes as normalised text.
// Rejects content that is not valid UTF-8.
func (e *Extractor) Extract(_ context.Context, doc domain.Document) (string, error) {
	if !utf8.Valid(doc.Content) {
		return "", domain.ErrCorruptFile
	}
	text := strings.ReplaceAll(string(doc.Content), "\r\n", "\n")
	return strings.TrimSpace(text), nil
}
