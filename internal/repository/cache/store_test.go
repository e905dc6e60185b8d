package cache

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/code-airgap/internal/domain/artifact"
)

func newTestStore(fs afero.Fs) *FileStore {
	return NewFileStore(fs, "/cache", map[artifact.Kind]string{
		artifact.KindServer: "server.tar.gz",
		artifact.KindCLI:    "cli.tar.gz",
	})
}

// TestFileStore_CommitLifecycle walks a record through Absent, Downloading and Present.
func TestFileStore_CommitLifecycle(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	store := newTestStore(fs)

	require.Equal(t, filepath.Join("/cache", "v2", "server.tar.gz"), store.Path("v2", artifact.KindServer))
	require.Equal(t, artifact.Absent, store.Presence("v2", artifact.KindServer))

	pending, err := store.Create("v2", artifact.KindServer)
	require.NoError(t, err)
	require.Equal(t, artifact.Downloading, store.Presence("v2", artifact.KindServer))

	_, err = pending.Write([]byte("archive-bytes"))
	require.NoError(t, err)
	require.EqualValues(t, len("archive-bytes"), pending.Written())

	// Final path stays empty until commit.
	exists, err := afero.Exists(fs, store.Path("v2", artifact.KindServer))
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, pending.Commit())
	require.Equal(t, artifact.Present, store.Presence("v2", artifact.KindServer))

	data, err := afero.ReadFile(fs, store.Path("v2", artifact.KindServer))
	require.NoError(t, err)
	require.Equal(t, "archive-bytes", string(data))

	exists, err = afero.Exists(fs, store.Path("v2", artifact.KindServer)+partSuffix)
	require.NoError(t, err)
	require.False(t, exists)

	require.ErrorIs(t, pending.Commit(), errFinished)
}

// TestFileStore_AbortRemovesPartial checks that an aborted write leaves nothing behind.
func TestFileStore_AbortRemovesPartial(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	store := newTestStore(fs)

	pending, err := store.Create("v3", artifact.KindCLI)
	require.NoError(t, err)

	_, err = pending.Write([]byte("half"))
	require.NoError(t, err)
	require.NoError(t, pending.Abort())

	require.Equal(t, artifact.Absent, store.Presence("v3", artifact.KindCLI))

	for _, p := range []string{store.Path("v3", artifact.KindCLI), store.Path("v3", artifact.KindCLI) + partSuffix} {
		exists, err := afero.Exists(fs, p)
		require.NoError(t, err)
		require.False(t, exists, p)
	}

	// Abort is idempotent and the record can be retried.
	require.NoError(t, pending.Abort())

	retry, err := store.Create("v3", artifact.KindCLI)
	require.NoError(t, err)
	require.NoError(t, retry.Abort())
}

// TestFileStore_CreateRejections covers busy records, unknown kinds and bad versions.
func TestFileStore_CreateRejections(t *testing.T) {
	t.Parallel()

	store := newTestStore(afero.NewMemMapFs())

	pending, err := store.Create("v1", artifact.KindServer)
	require.NoError(t, err)

	_, err = store.Create("v1", artifact.KindServer)
	require.ErrorIs(t, err, ErrBusy)

	require.NoError(t, pending.Abort())

	_, err = store.Create("v1", artifact.Kind(42))
	require.ErrorIs(t, err, ErrUnknownKind)

	_, err = store.Create("../escape", artifact.KindCLI)
	require.ErrorIs(t, err, artifact.ErrInvalidVersion)

	require.ErrorIs(t, store.EnsureVersion("a b"), artifact.ErrInvalidVersion)
}

// TestFileStore_Versions lists only versions with every archive present.
func TestFileStore_Versions(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	store := newTestStore(fs)

	versions, err := store.Versions()
	require.NoError(t, err)
	require.Empty(t, versions)

	for _, v := range []string{"v3", "v2"} {
		require.NoError(t, store.EnsureVersion(v))

		for _, kind := range artifact.Kinds() {
			require.NoError(t, afero.WriteFile(fs, store.Path(v, kind), []byte("x"), filePermissions))
		}
	}

	require.NoError(t, store.EnsureVersion("v4"))
	require.NoError(t, afero.WriteFile(fs, store.Path("v4", artifact.KindServer), []byte("x"), filePermissions))

	versions, err = store.Versions()
	require.NoError(t, err)
	require.Equal(t, []string{"v2", "v3"}, versions)

	record := store.Record("v4", artifact.KindCLI)
	require.Equal(t, artifact.Absent, record.Presence)
	require.Equal(t, store.Path("v4", artifact.KindCLI), record.Path)
}
