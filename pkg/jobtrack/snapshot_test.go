package jobtrack

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileSnapshotStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	store, err := NewFileSnapshotStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	// Missing file reads as empty, not as an error.
	jobs, err := store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, jobs)

	saved := []ClientJob{
		{ID: "j1", Type: "chat", BusinessID: "biz-1", Status: StatusPolling, CreatedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		{ID: "j2", Type: "listing", BusinessID: "biz-1", Status: StatusPolling, AttachTo: "msg-3", CreatedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, store.Save(ctx, saved))

	jobs, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, saved, jobs)

	require.NoError(t, store.Clear(ctx))
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	// Clearing twice is fine.
	require.NoError(t, store.Clear(ctx))
}

func TestFileSnapshotStoreCorruptBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	store, err := NewFileSnapshotStore(path)
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	require.Error(t, err)
}

func TestFileSnapshotStoreRequiresPath(t *testing.T) {
	_, err := NewFileSnapshotStore("")
	require.Error(t, err)
}
