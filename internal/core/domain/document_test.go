package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindForMediaType(t *testing.T) {
	tests := []struct {
		mediaType string
		want      DocumentKind
	}{
		{"text/plain", KindPlainText},
		{"text/csv", KindPlainText},
		{"text/markdown", KindMarkdown},
		{"application/pdf", KindPDF},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", KindDOCX},
		{"image/png", KindUnknown},
		{"", KindUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindForMediaType(tt.mediaType), "media type %q", tt.mediaType)
	}
}

func TestDocument_Kind(t *testing.T) {
	doc := Document{Name: "a.pdf", MediaType: "application/pdf"}
	assert.Equal(t, KindPDF, doc.Kind())
}

func TestDocumentKind_String(t *testing.T) {
	assert.Equal(t, "pdf", KindPDF.String())
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.Equal(t, "unknown", DocumentKind(99).String())
}
