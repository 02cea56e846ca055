package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_RequiresSessionFlag(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "travel budget"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "session")
}

func TestSearchCmd_NotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	retriever = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "--session", "session-a", "travel budget"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestSearchCmd_PrintsPassages(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	retriever = &stubRetriever{chunks: []domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: "c1", Source: "budget.txt", Sequence: 0, Text: "The travel budget is $500."}, Score: 0.91},
		{Chunk: domain.Chunk{ID: "c2", Source: "agenda.txt", Sequence: 2, Text: "Travel arrangements are due Friday."}, Score: 0.54},
	}}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "--session", "session-a", "travel budget"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Passages:")
	assert.Contains(t, output, "budget.txt #0 (0.91)")
	assert.Contains(t, output, "The travel budget is $500.")
	assert.Contains(t, output, "agenda.txt #2 (0.54)")
}

func TestSearchCmd_NoResults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "--session", "session-a", "travel budget"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "No relevant passages found.")
}

func TestSearchCmd_RetrieveError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	retriever = &stubRetriever{err: errors.New("index unavailable")}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "--session", "session-a", "travel budget"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "search failed")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	retriever = &stubRetriever{chunks: []domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: "c1", Source: "budget.txt", Text: "The travel budget is $500."}, Score: 0.91},
	}}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "--session", "session-a", "--json", "travel budget"})
	defer func() {
		rootCmd.SetArgs(nil)
		searchJSON = false
	}()

	err := rootCmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, `"Source": "budget.txt"`)
	assert.Contains(t, output, `"Score": 0.91`)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 120))
	assert.Equal(t, "abc...", snippet("abcdef", 3))
}
