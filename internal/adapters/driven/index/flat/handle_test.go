package flat

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
)

func entry(id string, seq int, vec ...float32) driven.IndexEntry {
	return driven.IndexEntry{
		Embedding: vec,
		Chunk:     domain.Chunk{ID: id, Source: "doc.txt", Sequence: seq, Text: "text " + id},
	}
}

func TestOpenOrCreate_NewSession(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	h, state, err := store.OpenOrCreate(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, driven.StateCreatedEmpty, state)
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, 0, h.Dimensions())
}

func TestOpenOrCreate_InvalidSessionID(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"", "..", "a/b", `a\b`} {
		_, _, err := store.OpenOrCreate(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrConfiguration, "id %q", id)
	}
}

func TestAdd_FixesDimension(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	h, _, err := store.OpenOrCreate(context.Background(), "s")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, h.Add(ctx, []driven.IndexEntry{entry("c1", 0, 1, 0, 0)}))
	assert.Equal(t, 3, h.Dimensions())

	// Wrong dimension fails and leaves the index untouched.
	err = h.Add(ctx, []driven.IndexEntry{entry("c2", 1, 1, 0)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 1, h.Len())

	// A batch with one bad vector adds nothing.
	err = h.Add(ctx, []driven.IndexEntry{
		entry("c3", 2, 0, 1, 0),
		entry("c4", 3, 0, 1),
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 1, h.Len())
}

func TestSearch_OrderAndTies(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	h, _, err := store.OpenOrCreate(context.Background(), "s")
	require.NoError(t, err)
	ctx := context.Background()

	// c1 and c2 tie exactly; c3 is closer to the query, c4 orthogonal.
	require.NoError(t, h.Add(ctx, []driven.IndexEntry{
		entry("c1", 0, 1, 1, 0),
		entry("c2", 1, 1, 1, 0),
		entry("c3", 2, 1, 0, 0),
		entry("c4", 3, 0, 0, 1),
	}))

	results, err := h.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "c3", results[0].Chunk.ID)
	// Tie broken by insertion order: earlier-added wins.
	assert.Equal(t, "c1", results[1].Chunk.ID)
	assert.Equal(t, "c2", results[2].Chunk.ID)
	assert.Equal(t, "c4", results[3].Chunk.ID)

	// Scores are non-increasing.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}

	// At most k results.
	results, err = h.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	h, _, err := store.OpenOrCreate(context.Background(), "s")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, h.Add(ctx, []driven.IndexEntry{entry("c1", 0, 1, 0, 0)}))

	_, err = h.Search(ctx, []float32{1, 0}, 5)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestPersist_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	h, _, err := store.OpenOrCreate(ctx, "s")
	require.NoError(t, err)
	require.NoError(t, h.Add(ctx, []driven.IndexEntry{
		entry("c1", 0, 1, 1, 0),
		entry("c2", 1, 1, 0, 0),
		entry("c3", 2, 0, 0, 1),
	}))
	h.RecordFingerprint("fp-1")

	before, err := h.Search(ctx, []float32{1, 0.5, 0}, 3)
	require.NoError(t, err)

	require.NoError(t, h.Persist(ctx))
	require.NoError(t, h.Close())

	h2, state, err := store.OpenOrCreate(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, driven.StateLoaded, state)
	assert.Equal(t, 3, h2.Len())
	assert.True(t, h2.HasFingerprint("fp-1"))
	assert.False(t, h2.HasFingerprint("fp-2"))

	after, err := h2.Search(ctx, []float32{1, 0.5, 0}, 3)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Chunk, after[i].Chunk)
		assert.InDelta(t, before[i].Score, after[i].Score, 1e-6)
	}
}

func TestOpenOrCreate_CorruptVectors(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	h, _, err := store.OpenOrCreate(ctx, "s")
	require.NoError(t, err)
	require.NoError(t, h.Add(ctx, []driven.IndexEntry{entry("c1", 0, 1, 0)}))
	require.NoError(t, h.Persist(ctx))
	require.NoError(t, h.Close())

	// Truncate the blob mid-write style.
	vecPath := filepath.Join(dir, "s", vectorsFile)
	require.NoError(t, os.WriteFile(vecPath, []byte("DPVX"), 0600))

	h2, state, err := store.OpenOrCreate(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, driven.StateCreatedEmpty, state)
	assert.Equal(t, 0, h2.Len())
}

func TestOpenOrCreate_ZeroDimensionHeader(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	h, _, err := store.OpenOrCreate(ctx, "s")
	require.NoError(t, err)
	require.NoError(t, h.Add(ctx, []driven.IndexEntry{entry("c1", 0, 1, 0)}))
	require.NoError(t, h.Persist(ctx))
	require.NoError(t, h.Close())

	// Valid magic and version, but dim=0 with a huge count. The size
	// check alone would accept this header for any count value.
	blob := make([]byte, headerSize)
	copy(blob, blobMagic)
	binary.LittleEndian.PutUint32(blob[4:], blobVersion)
	binary.LittleEndian.PutUint32(blob[8:], 0)
	binary.LittleEndian.PutUint32(blob[12:], 0xFFFFFFFF)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s", vectorsFile), blob, 0600))

	h2, state, err := store.OpenOrCreate(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, driven.StateCreatedEmpty, state)
	assert.Equal(t, 0, h2.Len())
}

func TestOpenOrCreate_MissingSidecar(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	h, _, err := store.OpenOrCreate(ctx, "s")
	require.NoError(t, err)
	require.NoError(t, h.Add(ctx, []driven.IndexEntry{entry("c1", 0, 1, 0)}))
	require.NoError(t, h.Persist(ctx))
	require.NoError(t, h.Close())

	require.NoError(t, os.Remove(filepath.Join(dir, "s", sidecarFile)))

	// Vectors without their sidecar are unusable: treat as absent.
	_, state, err := store.OpenOrCreate(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, driven.StateCreatedEmpty, state)
}

func TestClose_Idempotent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	h, _, err := store.OpenOrCreate(context.Background(), "s")
	require.NoError(t, err)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	err = h.Add(context.Background(), []driven.IndexEntry{entry("c1", 0, 1)})
	assert.Error(t, err)
	_, err = h.Search(context.Background(), []float32{1}, 1)
	assert.Error(t, err)
}

func TestList_And_Evict(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	h, _, err := store.OpenOrCreate(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, h.Add(ctx, []driven.IndexEntry{entry("c1", 0, 1, 0), entry("c2", 1, 0, 1)}))
	h.RecordFingerprint("fp-1")
	require.NoError(t, h.Persist(ctx))
	require.NoError(t, h.Close())

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "s1", infos[0].ID)
	assert.Equal(t, 1, infos[0].Documents)
	assert.Equal(t, 2, infos[0].Chunks)
	assert.Equal(t, 2, infos[0].Dimension)
	assert.Equal(t, domain.FingerprintSet([]string{"fp-1"}), infos[0].ContentFingerprint)

	require.NoError(t, store.Evict(ctx, "s1"))
	infos, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)

	err = store.Evict(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPersist_EmptyIndex(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	h, _, err := store.OpenOrCreate(ctx, "s")
	require.NoError(t, err)
	require.NoError(t, h.Persist(ctx))
	require.NoError(t, h.Close())

	_, state, err := store.OpenOrCreate(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, driven.StateLoaded, state)
}
