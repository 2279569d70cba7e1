// Package store persists webclip artifacts and capture history in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/webclip/capture"
	"github.com/hazyhaar/webclip/dbopen"
	"github.com/hazyhaar/webclip/sink"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a clip does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the webclip database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the database at path and applies Schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	all := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, all...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// SaveClip inserts or replaces an artifact. It satisfies sink.Saver.
func (s *Store) SaveClip(ctx context.Context, a sink.Artifact) error {
	if a.ID == "" {
		return fmt.Errorf("store: save clip: empty id")
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT OR REPLACE INTO clips
		    (id, session_id, url, title, excerpt, document_path, width, height, slice_count, size_bytes, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, a.URL, a.Title, a.Excerpt, a.DocumentPath,
		a.Width, a.Height, a.SliceCount, len(a.Container), a.Container, created.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: save clip %s: %w", a.ID, err)
	}
	return nil
}

const clipColumns = `id, session_id, url, title, excerpt, document_path, width, height, slice_count, created_at`

func scanClip(row interface{ Scan(...any) error }, a *sink.Artifact, extra ...any) error {
	var created int64
	dest := append([]any{
		&a.ID, &a.SessionID, &a.URL, &a.Title, &a.Excerpt, &a.DocumentPath,
		&a.Width, &a.Height, &a.SliceCount, &created,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	a.CreatedAt = time.UnixMilli(created).UTC()
	return nil
}

// GetClip returns a clip with its container bytes.
func (s *Store) GetClip(ctx context.Context, id string) (*sink.Artifact, error) {
	var a sink.Artifact
	row := s.DB.QueryRowContext(ctx, `SELECT `+clipColumns+`, data FROM clips WHERE id = ?`, id)
	if err := scanClip(row, &a, &a.Container); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store: clip %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("store: get clip %s: %w", id, err)
	}
	return &a, nil
}

// ListClips returns the most recent clips, newest first, without their
// container bytes.
func (s *Store) ListClips(ctx context.Context, limit int) ([]sink.Artifact, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+clipColumns+` FROM clips ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list clips: %w", err)
	}
	defer rows.Close()

	var out []sink.Artifact
	for rows.Next() {
		var a sink.Artifact
		if err := scanClip(rows, &a); err != nil {
			return nil, fmt.Errorf("store: scan clip: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SessionRecord is one row of capture history.
type SessionRecord struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	State      string    `json:"state"`
	Slices     int       `json:"slices"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// RecordSession stores the outcome of a finished capture session.
func (s *Store) RecordSession(ctx context.Context, sess capture.Session) error {
	var msg string
	if sess.Err != nil {
		msg = sess.Err.Error()
	}
	finished := sess.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT OR REPLACE INTO capture_sessions (id, url, state, slices, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Page.URL, sess.State.String(), len(sess.Slices), msg,
		sess.StartedAt.UnixMilli(), finished.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: record session %s: %w", sess.ID, err)
	}
	return nil
}

// ListSessions returns recent capture sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, url, state, slices, error, started_at, finished_at
		FROM capture_sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var started, finished int64
		if err := rows.Scan(&r.ID, &r.URL, &r.State, &r.Slices, &r.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
