package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"partforge/internal/draft"
	"partforge/internal/logging"
)

// Mirror maintains a queryable SQLite copy of conversation transcripts and
// the project index. It is an auxiliary view: the JSON documents are the
// source of truth, and every sync here is best-effort.
type Mirror struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// NewMirror opens (or creates) the mirror database at path. Use ":memory:"
// for tests.
func NewMirror(path string) (*Mirror, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create mirror directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror database: %w", err)
	}

	m := &Mirror{db: db, dbPath: path}
	if err := m.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("mirror database ready at %s", path)
	return m, nil
}

func (m *Mirror) ensureSchema() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS session_history (
			project_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (project_id, turn)
		);
		CREATE TABLE IF NOT EXISTS project_index (
			project_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			share_slug TEXT,
			last_modified TIMESTAMP NOT NULL,
			preview TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create mirror schema: %w", err)
	}
	return nil
}

// SyncTranscript appends any messages not yet mirrored for the project.
// Turns are append-only, so INSERT OR IGNORE keyed on (project, turn) makes
// repeated syncs of the same transcript idempotent.
func (m *Mirror) SyncTranscript(projectID string, messages []draft.ChatMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, msg := range messages {
		_, err := m.db.Exec(
			`INSERT OR IGNORE INTO session_history (project_id, turn, role, content, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			projectID, i, msg.Role, msg.Content, msg.Time,
		)
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("mirror transcript sync failed for %s turn %d: %v", projectID, i, err)
			return
		}
	}
}

// SyncIndex replaces the mirrored copy of the project index.
func (m *Mirror) SyncIndex(index []ProjectIndexEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range index {
		_, err := m.db.Exec(
			`INSERT OR REPLACE INTO project_index (project_id, name, share_slug, last_modified, preview)
			 VALUES (?, ?, ?, ?, ?)`,
			entry.ID, entry.Name, entry.ShareSlug, entry.LastModified, entry.Preview,
		)
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("mirror index sync failed for %s: %v", entry.ID, err)
			return
		}
	}
}

// DeleteProject drops a project's mirrored rows.
func (m *Mirror) DeleteProject(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.db.Exec(`DELETE FROM session_history WHERE project_id = ?`, projectID); err != nil {
		logging.Get(logging.CategoryStore).Warn("mirror history delete failed for %s: %v", projectID, err)
	}
	if _, err := m.db.Exec(`DELETE FROM project_index WHERE project_id = ?`, projectID); err != nil {
		logging.Get(logging.CategoryStore).Warn("mirror index delete failed for %s: %v", projectID, err)
	}
}

// Transcript reads back the mirrored messages for a project in turn order.
func (m *Mirror) Transcript(projectID string) ([]draft.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.db.Query(
		`SELECT role, content, created_at FROM session_history
		 WHERE project_id = ? ORDER BY turn ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mirror transcript: %w", err)
	}
	defer rows.Close()

	var messages []draft.ChatMessage
	for rows.Next() {
		var msg draft.ChatMessage
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Time); err != nil {
			return nil, fmt.Errorf("failed to scan mirror row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// IndexedProjects reads back the mirrored project index, most recent first.
func (m *Mirror) IndexedProjects() ([]ProjectIndexEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.db.Query(
		`SELECT project_id, name, COALESCE(share_slug, ''), last_modified, COALESCE(preview, '')
		 FROM project_index ORDER BY last_modified DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mirror index: %w", err)
	}
	defer rows.Close()

	var index []ProjectIndexEntry
	for rows.Next() {
		var e ProjectIndexEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.ShareSlug, &e.LastModified, &e.Preview); err != nil {
			return nil, fmt.Errorf("failed to scan mirror row: %w", err)
		}
		index = append(index, e)
	}
	return index, rows.Err()
}

// Close closes the underlying database.
func (m *Mirror) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}
