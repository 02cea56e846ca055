package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docport-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
)

// Store is a SQLite-backed metadata store. Conversation history lives
// here; vectors live in the per-session index files.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.docport/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docport", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ConversationStore returns a ConversationStore interface backed by this store.
func (s *Store) ConversationStore() driven.ConversationStore {
	return &conversationStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Conversation Store ====================

// conversationStore implements driven.ConversationStore.
type conversationStore struct {
	store *Store
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// Save creates or updates conversation metadata. Existing turns are left
// untouched; history is append-only through AppendTurn.
func (s *conversationStore) Save(ctx context.Context, conv *domain.Conversation) error {
	if conv.ID == "" || conv.SessionID == "" {
		return domain.ErrInvalidInput
	}

	startedAt := conv.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO conversations (id, session_id, state, started_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state
	`, conv.ID, conv.SessionID, conv.State.String(), startedAt)

	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}

// Get returns the conversation with its turns in order.
func (s *conversationStore) Get(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, session_id, state, started_at
		FROM conversations WHERE id = ?
	`, conversationID)

	conv, err := scanConversation(row)
	if err != nil {
		return nil, err
	}

	turns, err := s.turnsFor(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	conv.Turns = turns

	return conv, nil
}

// ListBySession returns all conversations for a session, most recent
// first, with their turns loaded.
func (s *conversationStore) ListBySession(ctx context.Context, sessionID string) ([]domain.Conversation, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, session_id, state, started_at
		FROM conversations WHERE session_id = ?
		ORDER BY started_at DESC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.Conversation //nolint:prealloc // size unknown from query
	for rows.Next() {
		var conv domain.Conversation
		var state string
		var startedAt sql.NullTime
		if err := rows.Scan(&conv.ID, &conv.SessionID, &state, &startedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		conv.State = parseState(state)
		if startedAt.Valid {
			conv.StartedAt = startedAt.Time
		}
		convs = append(convs, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}

	for i := range convs {
		turns, err := s.turnsFor(ctx, convs[i].ID)
		if err != nil {
			return nil, err
		}
		convs[i].Turns = turns
	}

	return convs, nil
}

// AppendTurn appends a completed turn to the conversation.
func (s *conversationStore) AppendTurn(ctx context.Context, conversationID string, turn domain.Turn) error {
	chunkIDs, err := json.Marshal(turn.ChunkIDs)
	if err != nil {
		return fmt.Errorf("marshalling chunk ids: %w", err)
	}
	sources, err := json.Marshal(turn.Sources)
	if err != nil {
		return fmt.Errorf("marshalling sources: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Verify the conversation exists before appending.
	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM conversations WHERE id = ?", conversationID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking conversation: %w", err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}

	var position int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position), -1) + 1 FROM turns WHERE conversation_id = ?",
		conversationID).Scan(&position)
	if err != nil {
		return fmt.Errorf("getting next turn position: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turns
			(conversation_id, position, question, answer, chunk_ids, sources, unsupported, asked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, conversationID, position, turn.Question, turn.Answer,
		string(chunkIDs), string(sources), turn.UnsupportedByContext, turn.AskedAt)
	if err != nil {
		return fmt.Errorf("appending turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteBySession removes all conversations for a session.
func (s *conversationStore) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM conversations WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("deleting conversations: %w", err)
	}
	return nil
}

// Close is a no-op; the owning Store closes the database.
func (s *conversationStore) Close() error {
	return nil
}

// turnsFor loads all turns for a conversation in position order.
func (s *conversationStore) turnsFor(ctx context.Context, conversationID string) ([]domain.Turn, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT question, answer, chunk_ids, sources, unsupported, asked_at
		FROM turns WHERE conversation_id = ?
		ORDER BY position
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.Turn //nolint:prealloc // size unknown from query
	for rows.Next() {
		var turn domain.Turn
		var chunkIDs, sources string
		var askedAt sql.NullTime
		if err := rows.Scan(&turn.Question, &turn.Answer, &chunkIDs,
			&sources, &turn.UnsupportedByContext, &askedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		if err := json.Unmarshal([]byte(chunkIDs), &turn.ChunkIDs); err != nil {
			return nil, fmt.Errorf("unmarshalling chunk ids: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &turn.Sources); err != nil {
			return nil, fmt.Errorf("unmarshalling sources: %w", err)
		}
		if askedAt.Valid {
			turn.AskedAt = askedAt.Time
		}
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}

	return turns, nil
}

// scanConversation scans a single conversation row.
func scanConversation(row *sql.Row) (*domain.Conversation, error) {
	var conv domain.Conversation
	var state string
	var startedAt sql.NullTime

	if err := row.Scan(&conv.ID, &conv.SessionID, &state, &startedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	conv.State = parseState(state)
	if startedAt.Valid {
		conv.StartedAt = startedAt.Time
	}

	return &conv, nil
}

// parseState maps a stored state name back to its enum value.
// Unknown names fall back to awaiting_question so stale rows stay usable.
func parseState(name string) domain.ConversationState {
	switch name {
	case domain.StateRetrieving.String():
		return domain.StateRetrieving
	case domain.StateGenerating.String():
		return domain.StateGenerating
	case domain.StateEnded.String():
		return domain.StateEnded
	default:
		return domain.StateAwaitingQuestion
	}
}
