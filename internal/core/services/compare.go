package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docport-cli/internal/logger"
)

// Ensure CompareService implements the interface.
var _ driving.CompareService = (*CompareService)(nil)

// maxSingleCallChars is the combined text size above which the
// comparison is split into section-paired model calls.
const maxSingleCallChars = 24000

// maxSectionCalls caps the number of model calls one comparison may make.
const maxSectionCalls = 8

// minSectionChars is the smallest section worth a model call. Texts at
// or below this stay whole rather than being diced into fragments too
// small to compare.
const minSectionChars = 256

// CompareService produces a structured diff of two documents.
// Stateless: nothing is persisted between calls.
type CompareService struct {
	extractors driven.ExtractorRegistry
	llm        driven.LLMService
	prompts    driven.PromptStore
}

// NewCompareService creates a new comparison service.
func NewCompareService(
	extractors driven.ExtractorRegistry,
	llm driven.LLMService,
	prompts driven.PromptStore,
) *CompareService {
	return &CompareService{
		extractors: extractors,
		llm:        llm,
		prompts:    prompts,
	}
}

// Compare extracts both documents and analyses their differences.
// Byte-identical documents short-circuit to an Identical report without
// a model call; extraction failures surface before any model call.
func (s *CompareService) Compare(ctx context.Context, a, b domain.Document) (*domain.ComparisonReport, error) {
	logger.Section("Document Comparison")
	logger.Debug("Comparing %q against %q", a.Name, b.Name)

	if domain.Fingerprint(a.Content) == domain.Fingerprint(b.Content) {
		logger.Info("Documents are byte-identical; skipping analysis")
		return &domain.ComparisonReport{
			NameA:     a.Name,
			NameB:     b.Name,
			Identical: true,
			Summary:   "The documents are identical.",
		}, nil
	}

	textA, err := s.extract(ctx, a)
	if err != nil {
		return nil, err
	}
	textB, err := s.extract(ctx, b)
	if err != nil {
		return nil, err
	}

	template, err := s.prompts.Load(driven.PromptDocumentComparison)
	if err != nil {
		return nil, fmt.Errorf("loading comparison prompt: %w", err)
	}

	var findings []domain.ComparisonFinding
	if len(textA)+len(textB) <= maxSingleCallChars {
		findings, err = s.compareTexts(ctx, template, a.Name, textA, b.Name, textB, "")
	} else {
		findings, err = s.compareSectioned(ctx, template, a.Name, textA, b.Name, textB)
	}
	if err != nil {
		return nil, err
	}

	changed := 0
	for _, f := range findings {
		if !strings.EqualFold(strings.TrimSpace(f.Change), "NO CHANGE") {
			changed++
		}
	}

	return &domain.ComparisonReport{
		NameA:    a.Name,
		NameB:    b.Name,
		Findings: findings,
		Summary:  fmt.Sprintf("%d difference(s) found across %d reported section(s).", changed, len(findings)),
	}, nil
}

// extract resolves the extractor for the document and runs it.
func (s *CompareService) extract(ctx context.Context, doc domain.Document) (string, error) {
	extractor, err := s.extractors.ForKind(doc.Kind())
	if err != nil {
		return "", fmt.Errorf("extracting %q: %w", doc.Name, err)
	}
	text, err := extractor.Extract(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("extracting %q: %w", doc.Name, err)
	}
	return text, nil
}

// compareTexts makes a single model call over a pair of texts.
// sectionLabel prefixes the returned finding sections when non-empty.
func (s *CompareService) compareTexts(
	ctx context.Context,
	template, nameA, textA, nameB, textB, sectionLabel string,
) ([]domain.ComparisonFinding, error) {
	combined := fmt.Sprintf("=== Document A: %s ===\n%s\n\n=== Document B: %s ===\n%s",
		nameA, textA, nameB, textB)

	raw, err := s.llm.Generate(ctx, fmt.Sprintf(template, combined), driven.GenerateOptions{
		MaxTokens:   2048,
		Temperature: 0,
	})
	if err != nil {
		return nil, err
	}

	findings, err := parseFindings(raw)
	if err != nil {
		return nil, err
	}

	if sectionLabel != "" {
		for i := range findings {
			if findings[i].Section == "" {
				findings[i].Section = sectionLabel
			} else {
				findings[i].Section = sectionLabel + ": " + findings[i].Section
			}
		}
	}
	return findings, nil
}

// compareSectioned splits both texts into aligned sections and compares
// them pairwise, keeping the number of model calls bounded.
func (s *CompareService) compareSectioned(
	ctx context.Context,
	template, nameA, textA, nameB, textB string,
) ([]domain.ComparisonFinding, error) {
	sectionsA := splitSections(textA, maxSectionCalls)
	sectionsB := splitSections(textB, maxSectionCalls)

	n := len(sectionsA)
	if len(sectionsB) > n {
		n = len(sectionsB)
	}
	logger.Debug("Large comparison: %d section pair(s)", n)

	var all []domain.ComparisonFinding
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var partA, partB string
		if i < len(sectionsA) {
			partA = sectionsA[i]
		}
		if i < len(sectionsB) {
			partB = sectionsB[i]
		}

		label := fmt.Sprintf("part %d/%d", i+1, n)
		findings, err := s.compareTexts(ctx, template, nameA, partA, nameB, partB, label)
		if err != nil {
			return nil, fmt.Errorf("comparing %s: %w", label, err)
		}
		all = append(all, findings...)
	}
	return all, nil
}

// parseFindings decodes the model's JSON array, tolerating markdown fences.
func parseFindings(raw string) ([]domain.ComparisonFinding, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var findings []domain.ComparisonFinding
	if err := json.Unmarshal([]byte(cleaned), &findings); err != nil {
		return nil, fmt.Errorf("%w: comparison output is not a JSON findings array: %v",
			domain.ErrGeneration, err)
	}
	return findings, nil
}

// splitSections cuts text into at most maxParts near-equal parts,
// breaking on line boundaries where possible.
func splitSections(text string, maxParts int) []string {
	if text == "" {
		return nil
	}
	target := (len(text) + maxParts - 1) / maxParts
	if target < minSectionChars {
		target = minSectionChars
	}

	var sections []string
	for len(text) > 0 {
		if len(text) <= target || len(sections) == maxParts-1 {
			sections = append(sections, text)
			break
		}
		cut := target
		if idx := strings.LastIndexByte(text[:cut], '\n'); idx > 0 {
			cut = idx + 1
		}
		sections = append(sections, text[:cut])
		text = text[cut:]
	}
	return sections
}
