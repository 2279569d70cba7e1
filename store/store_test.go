package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/webclip/capture"
	"github.com/hazyhaar/webclip/dbopen"
	"github.com/hazyhaar/webclip/sink"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return &Store{DB: dbopen.OpenMemory(t, dbopen.WithSchema(Schema))}
}

func clip(id string, created time.Time) sink.Artifact {
	return sink.Artifact{
		ID:           id,
		SessionID:    "cap_" + id,
		URL:          "https://example.org/" + id,
		Title:        "Title " + id,
		Excerpt:      "excerpt",
		DocumentPath: "clips/" + id,
		Width:        800,
		Height:       1200,
		SliceCount:   2,
		Container:    []byte{0, 0, 3, 32, 0, 0, 4, 176, 0, 0, 0, 0},
		CreatedAt:    created,
	}
}

func TestSaveAndGetClip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveClip(ctx, clip("a", created)))

	got, err := s.GetClip(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/a", got.URL)
	assert.Equal(t, uint32(800), got.Width)
	assert.Equal(t, uint32(1200), got.Height)
	assert.Equal(t, 2, got.SliceCount)
	assert.Equal(t, clip("a", created).Container, got.Container)
	assert.True(t, created.Equal(got.CreatedAt))

	_, err = s.GetClip(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Error(t, s.SaveClip(ctx, sink.Artifact{}))
}

func TestListClips_NewestFirstWithoutData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, s.SaveClip(ctx, clip(id, base.Add(time.Duration(i)*time.Hour))))
	}

	list, err := s.ListClips(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "mid", list[1].ID)
	assert.Nil(t, list[0].Container)
}

func TestSaveClip_Replaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := clip("a", time.Now())
	require.NoError(t, s.SaveClip(ctx, a))
	a.Title = "Renamed"
	require.NoError(t, s.SaveClip(ctx, a))

	list, err := s.ListClips(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Renamed", list[0].Title)
}

func TestRecordSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordSession(ctx, capture.Session{
		ID:         "cap_1",
		State:      capture.Done,
		Page:       capture.PageMeta{URL: "https://example.org"},
		Slices:     make([]capture.Slice, 3),
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
	}))
	require.NoError(t, s.RecordSession(ctx, capture.Session{
		ID:        "cap_2",
		State:     capture.Failed,
		Err:       capture.ErrAborted,
		StartedAt: started.Add(time.Minute),
	}))

	recs, err := s.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "cap_2", recs[0].ID)
	assert.Equal(t, "failed", recs[0].State)
	assert.Contains(t, recs[0].Error, "aborted")
	assert.Equal(t, "done", recs[1].State)
	assert.Equal(t, 3, recs[1].Slices)
	assert.Equal(t, 2*time.Second, recs[1].FinishedAt.Sub(recs[1].StartedAt))
}

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "webclip.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveClip(context.Background(), clip("a", time.Now())))
}

var _ sink.Saver = (*Store)(nil)
