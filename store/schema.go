package store

// Schema is applied on every Open; statements are idempotent.
const Schema = `
-- One row per stored artifact. data holds the encoded .inkclip container.
CREATE TABLE IF NOT EXISTS clips (
    id            TEXT PRIMARY KEY,
    session_id    TEXT NOT NULL DEFAULT '',
    url           TEXT NOT NULL,
    title         TEXT NOT NULL DEFAULT '',
    excerpt       TEXT NOT NULL DEFAULT '',
    document_path TEXT NOT NULL,
    width         INTEGER NOT NULL,
    height        INTEGER NOT NULL,
    slice_count   INTEGER NOT NULL,
    size_bytes    INTEGER NOT NULL,
    data          BLOB NOT NULL,
    created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clips_created ON clips(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_clips_path ON clips(document_path);

-- Capture history, successful or not. Slices are not kept here.
CREATE TABLE IF NOT EXISTS capture_sessions (
    id          TEXT PRIMARY KEY,
    url         TEXT NOT NULL DEFAULT '',
    state       TEXT NOT NULL,
    slices      INTEGER NOT NULL DEFAULT 0,
    error       TEXT NOT NULL DEFAULT '',
    started_at  INTEGER NOT NULL,
    finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON capture_sessions(started_at DESC);
`
