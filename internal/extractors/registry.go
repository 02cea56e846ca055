// Package extractors maps each supported document kind to an
// implementation that turns uploaded bytes into normalised text.
package extractors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry holds one extractor per document kind.
// The kind set is closed; registration happens once at startup.
type Registry struct {
	byKind map[domain.DocumentKind]driven.Extractor
}

// NewRegistry creates a registry with the given extractors.
// A later extractor for the same kind replaces an earlier one.
func NewRegistry(extractors ...driven.Extractor) *Registry {
	r := &Registry{byKind: make(map[domain.DocumentKind]driven.Extractor, len(extractors))}
	for _, e := range extractors {
		r.byKind[e.Kind()] = e
	}
	return r
}

// ForKind returns the extractor for the kind.
func (r *Registry) ForKind(kind domain.DocumentKind) (driven.Extractor, error) {
	e, ok := r.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, kind)
	}
	return e, nil
}

// Kinds returns the registered kinds in stable order.
func (r *Registry) Kinds() []domain.DocumentKind {
	kinds := make([]domain.DocumentKind, 0, len(r.byKind))
	for k := range r.byKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
