package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})

	return store
}

func TestNewStoreCreatesSchema(t *testing.T) {
	store := setupTestStore(t)
	assert.FileExists(t, store.Path())

	// Reopening the same directory must not re-run migrations.
	again, err := NewStore(store.Path()[:len(store.Path())-len("/metadata.db")])
	require.NoError(t, err)
	assert.NoError(t, again.Close())
}

func TestConversationSaveAndGet(t *testing.T) {
	store := setupTestStore(t)
	convStore := store.ConversationStore()
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Second)
	conv := &domain.Conversation{
		ID:        "conv-1",
		SessionID: "session-a",
		State:     domain.StateAwaitingQuestion,
		StartedAt: started,
	}
	require.NoError(t, convStore.Save(ctx, conv))

	got, err := convStore.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", got.ID)
	assert.Equal(t, "session-a", got.SessionID)
	assert.Equal(t, domain.StateAwaitingQuestion, got.State)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Empty(t, got.Turns)
}

func TestConversationSaveUpdatesState(t *testing.T) {
	store := setupTestStore(t)
	convStore := store.ConversationStore()
	ctx := context.Background()

	conv := &domain.Conversation{ID: "conv-1", SessionID: "session-a"}
	require.NoError(t, convStore.Save(ctx, conv))

	conv.State = domain.StateEnded
	require.NoError(t, convStore.Save(ctx, conv))

	got, err := convStore.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateEnded, got.State)
}

func TestConversationSaveRejectsMissingIDs(t *testing.T) {
	store := setupTestStore(t)
	convStore := store.ConversationStore()
	ctx := context.Background()

	err := convStore.Save(ctx, &domain.Conversation{SessionID: "session-a"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = convStore.Save(ctx, &domain.Conversation{ID: "conv-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConversationGetNotFound(t *testing.T) {
	store := setupTestStore(t)
	convStore := store.ConversationStore()

	_, err := convStore.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAppendTurnPreservesOrder(t *testing.T) {
	store := setupTestStore(t)
	convStore := store.ConversationStore()
	ctx := context.Background()

	conv := &domain.Conversation{ID: "conv-1", SessionID: "session-a"}
	require.NoError(t, convStore.Save(ctx, conv))

	asked := time.Now().UTC().Truncate(time.Second)
	for i, q := range []string{"first?", "second?", "third?"} {
		turn := domain.Turn{
			Question: q,
			Answer:   "answer",
			ChunkIDs: []string{"chunk-1", "chunk-2"},
			Sources:  []string{"report.pdf"},
			AskedAt:  asked.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, convStore.AppendTurn(ctx, "conv-1", turn))
	}

	got, err := convStore.Get(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, got.Turns, 3)
	assert.Equal(t, "first?", got.Turns[0].Question)
	assert.Equal(t, "second?", got.Turns[1].Question)
	assert.Equal(t, "third?", got.Turns[2].Question)
	assert.Equal(t, []string{"chunk-1", "chunk-2"}, got.Turns[0].ChunkIDs)
	assert.Equal(t, []string{"report.pdf"}, got.Turns[0].Sources)
}

func TestAppendTurnUnknownConversation(t *testing.T) {
	store := setupTestStore(t)
	convStore := store.ConversationStore()

	err := convStore.AppendTurn(context.Background(), "missing", domain.Turn{
		Question: "anyone?",
		AskedAt:  time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAppendTurnRecordsUnsupportedFlag(t *testing.T) {
	store := setupTestStore(t)
	convStore := store.ConversationStore()
	ctx := context.Background()

	require.NoError(t, convStore.Save(ctx, &domain.Conversation{ID: "conv-1", SessionID: "session-a"}))
	require.NoError(t, convStore.AppendTurn(ctx, "conv-1", domain.Turn{
		Question:             "off topic?",
		Answer:               "best effort",
		UnsupportedByContext: true,
		AskedAt:              time.Now().UTC(),
	}))

	got, err := convStore.Get(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, got.Turns, 1)
	assert.True(t, got.Turns[0].UnsupportedByContext)
	assert.Empty(t, got.Turns[0].ChunkIDs)
}

func TestListBySessionMostRecentFirst(t *testing.T) {
	store := setupTestStore(t)
	convStore := store.ConversationStore()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, convStore.Save(ctx, &domain.Conversation{
		ID: "conv-old", SessionID: "session-a", StartedAt: base.Add(-time.Hour),
	}))
	require.NoError(t, convStore.Save(ctx, &domain.Conversation{
		ID: "conv-new", SessionID: "session-a", StartedAt: base,
	}))
	require.NoError(t, convStore.Save(ctx, &domain.Conversation{
		ID: "conv-other", SessionID: "session-b", StartedAt: base,
	}))

	convs, err := convStore.ListBySession(ctx, "session-a")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "conv-new", convs[0].ID)
	assert.Equal(t, "conv-old", convs[1].ID)
}

func TestDeleteBySessionCascadesTurns(t *testing.T) {
	store := setupTestStore(t)
	convStore := store.ConversationStore()
	ctx := context.Background()

	require.NoError(t, convStore.Save(ctx, &domain.Conversation{ID: "conv-1", SessionID: "session-a"}))
	require.NoError(t, convStore.AppendTurn(ctx, "conv-1", domain.Turn{
		Question: "q", Answer: "a", AskedAt: time.Now().UTC(),
	}))
	require.NoError(t, convStore.Save(ctx, &domain.Conversation{ID: "conv-2", SessionID: "session-b"}))

	require.NoError(t, convStore.DeleteBySession(ctx, "session-a"))

	_, err := convStore.Get(ctx, "conv-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Other sessions are untouched.
	_, err = convStore.Get(ctx, "conv-2")
	assert.NoError(t, err)

	// No orphan rows left behind.
	var count int
	require.NoError(t, store.db.QueryRow(
		"SELECT COUNT(*) FROM turns WHERE conversation_id = ?", "conv-1").Scan(&count))
	assert.Zero(t, count)
}

func TestParseStateRoundTrip(t *testing.T) {
	states := []domain.ConversationState{
		domain.StateAwaitingQuestion,
		domain.StateRetrieving,
		domain.StateGenerating,
		domain.StateEnded,
	}
	for _, state := range states {
		assert.Equal(t, state, parseState(state.String()))
	}
	assert.Equal(t, domain.StateAwaitingQuestion, parseState("bogus"))
}
