package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

// SQLiteStore keeps one row per session with the session encoded as JSON.
type SQLiteStore struct {
	conn *sqlx.DB
}

type sessionRow struct {
	ID       string `db:"id"`
	Document string `db:"document"`
}

// OpenSQLiteStore opens or creates the database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", story.ErrStorage, err)
	}
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: migrate: %v", story.ErrStorage, err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		story_name TEXT NOT NULL,
		document TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

func (s *SQLiteStore) LoadAll(ctx context.Context) (map[string]story.Session, error) {
	var rows []sessionRow
	if err := s.conn.SelectContext(ctx, &rows, `SELECT id, document FROM sessions`); err != nil {
		return nil, fmt.Errorf("%w: query sessions: %v", story.ErrStorage, err)
	}

	sessions := make(map[string]story.Session, len(rows))
	for _, row := range rows {
		var sess story.Session
		if err := json.Unmarshal([]byte(row.Document), &sess); err != nil {
			return nil, fmt.Errorf("%w: decode session %s: %v", story.ErrStorage, row.ID, err)
		}
		sessions[row.ID] = sess
	}
	return sessions, nil
}

// SaveAll replaces every row in a single transaction.
func (s *SQLiteStore) SaveAll(ctx context.Context, sessions map[string]story.Session) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", story.ErrStorage, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions"); err != nil {
		return fmt.Errorf("%w: clear sessions: %v", story.ErrStorage, err)
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO sessions (id, story_name, document, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %v", story.ErrStorage, err)
	}
	defer stmt.Close()

	for id, sess := range sessions {
		doc, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("%w: encode session %s: %v", story.ErrStorage, id, err)
		}
		if _, err := stmt.ExecContext(ctx, id, sess.StoryName, string(doc), sess.UpdatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("%w: insert session %s: %v", story.ErrStorage, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", story.ErrStorage, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
