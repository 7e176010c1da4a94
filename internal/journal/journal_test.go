package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/testutil"
)

func newJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(testutil.NewTestDB(t))
	require.NoError(t, err)
	return j
}

func TestJournal_RecordAndLastRevision(t *testing.T) {
	j := newJournal(t)
	ctx := context.Background()

	rev, err := j.LastRevision(ctx, "a.md")
	require.NoError(t, err)
	require.Zero(t, rev)

	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, j.RecordSave(ctx, "p1", "a.md", 1, at))
	require.NoError(t, j.RecordSave(ctx, "p2", "a.md", 3, at.Add(time.Second)))
	require.NoError(t, j.RecordSave(ctx, "p1", "b.md", 9, at))

	rev, err = j.LastRevision(ctx, "a.md")
	require.NoError(t, err)
	require.Equal(t, int64(3), rev)

	history, err := j.History(ctx, "a.md", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, host.PaneID("p2"), history[0].Pane)
	require.Equal(t, at.Add(time.Second), history[0].SavedAt)
	require.Equal(t, int64(1), history[1].Revision)
}

func TestJournal_RenameAndForget(t *testing.T) {
	j := newJournal(t)
	ctx := context.Background()
	require.NoError(t, j.RecordSave(ctx, "p1", "old.md", 2, time.Now()))

	require.NoError(t, j.Rename(ctx, "old.md", "new.md"))
	rev, err := j.LastRevision(ctx, "new.md")
	require.NoError(t, err)
	require.Equal(t, int64(2), rev)

	require.NoError(t, j.Forget(ctx, "new.md"))
	rev, err = j.LastRevision(ctx, "new.md")
	require.NoError(t, err)
	require.Zero(t, rev)
}

func TestJournal_MigrationsAreIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	_, err := New(db)
	require.NoError(t, err)
	_, err = New(db)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='saves'`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".panesync", "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordSave(context.Background(), "p1", "a.md", 5, time.Now()))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = j.Close() }()
	rev, err := j.LastRevision(context.Background(), "a.md")
	require.NoError(t, err)
	require.Equal(t, int64(5), rev)
}
