package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/code-airgap/internal/domain/artifact"
	"github.com/oshokin/code-airgap/internal/repository/cache"
)

// fakeFetcher writes a fixed payload per URL and records concurrency.
type fakeFetcher struct {
	delay time.Duration
	fail  map[string]error

	mu    sync.Mutex
	calls map[string]int

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, dst io.Writer) (int64, error) {
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	for {
		seen := f.maxInFlight.Load()
		if current <= seen || f.maxInFlight.CompareAndSwap(seen, current) {
			break
		}
	}

	f.mu.Lock()
	f.calls[url]++
	f.mu.Unlock()

	time.Sleep(f.delay)

	n, err := dst.Write([]byte("payload:" + url))
	if err != nil {
		return int64(n), err
	}

	return int64(n), f.fail[url]
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for _, c := range f.calls {
		total += c
	}

	return total
}

func newMemStore() (afero.Fs, *cache.FileStore) {
	fs := afero.NewMemMapFs()

	return fs, cache.NewFileStore(fs, "/usb", map[artifact.Kind]string{
		artifact.KindServer: "server.tar.gz",
		artifact.KindCLI:    "cli.tar.gz",
	})
}

func tasksFor(store *cache.FileStore, versions ...string) []artifact.Task {
	var tasks []artifact.Task

	for _, v := range versions {
		for _, kind := range artifact.Kinds() {
			tasks = append(tasks, artifact.Task{
				Version:     v,
				Kind:        kind,
				URL:         fmt.Sprintf("https://updates.test/%s/%s", v, kind),
				Destination: store.Path(v, kind),
			})
		}
	}

	return tasks
}

// TestScheduler_SecondRunIsIdempotent checks that cached archives cause no fetches.
func TestScheduler_SecondRunIsIdempotent(t *testing.T) {
	t.Parallel()

	_, store := newMemStore()
	fetcher := newFakeFetcher()
	scheduler := NewScheduler(store, fetcher, 4)
	tasks := tasksFor(store, "v2", "v3")

	first := scheduler.Run(context.Background(), tasks)
	require.Equal(t, 4, first.Count(StatusDownloaded))
	require.NoError(t, first.Err())
	require.Equal(t, 4, fetcher.totalCalls())

	second := scheduler.Run(context.Background(), tasks)
	require.Equal(t, 4, second.Count(StatusSkipped))
	require.Equal(t, 4, fetcher.totalCalls())
}

// TestScheduler_FailureIsIsolated checks that one broken task neither stops the
// others nor leaves a file behind.
func TestScheduler_FailureIsIsolated(t *testing.T) {
	t.Parallel()

	fs, store := newMemStore()
	fetcher := newFakeFetcher()
	tasks := tasksFor(store, "v1", "v2", "v3")

	broken := tasks[3]
	fetcher.fail[broken.URL] = errors.New("connection reset by peer")

	report := NewScheduler(store, fetcher, 2).Run(context.Background(), tasks)

	require.Equal(t, 5, report.Count(StatusDownloaded))
	require.Equal(t, 1, report.Count(StatusFailed))
	require.Len(t, report.Outcomes, len(tasks))
	require.Equal(t, broken, report.Failed()[0].Task)
	require.ErrorContains(t, report.Err(), "connection reset by peer")

	for _, task := range tasks {
		want := artifact.Present
		if task == broken {
			want = artifact.Absent
		}

		require.Equal(t, want, store.Presence(task.Version, task.Kind), task.String())
	}

	for _, p := range []string{broken.Destination, broken.Destination + ".part"} {
		exists, err := afero.Exists(fs, p)
		require.NoError(t, err)
		require.False(t, exists, p)
	}
}

// TestScheduler_RespectsPoolWidth never runs more than the configured number of tasks at once.
func TestScheduler_RespectsPoolWidth(t *testing.T) {
	t.Parallel()

	_, store := newMemStore()
	fetcher := newFakeFetcher()
	fetcher.delay = 20 * time.Millisecond

	report := NewScheduler(store, fetcher, 3).Run(
		context.Background(),
		tasksFor(store, "v1", "v2", "v3", "v4", "v5", "v6"),
	)

	require.Equal(t, 12, report.Count(StatusDownloaded))
	require.LessOrEqual(t, fetcher.maxInFlight.Load(), int64(3))
	require.GreaterOrEqual(t, fetcher.maxInFlight.Load(), int64(1))
}

// TestScheduler_BusyRecordFails reports a record that is already being written.
func TestScheduler_BusyRecordFails(t *testing.T) {
	t.Parallel()

	_, store := newMemStore()
	tasks := tasksFor(store, "v1")[:1]

	pending, err := store.Create(tasks[0].Version, tasks[0].Kind)
	require.NoError(t, err)

	defer func() {
		_ = pending.Abort()
	}()

	fetcher := newFakeFetcher()
	report := NewScheduler(store, fetcher, 1).Run(context.Background(), tasks)

	require.Equal(t, 1, report.Count(StatusFailed))
	require.ErrorIs(t, report.Outcomes[0].Err, cache.ErrBusy)
	require.Zero(t, fetcher.totalCalls())
}

// TestStatusString keeps log output stable.
func TestStatusString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "skipped", StatusSkipped.String())
	require.Equal(t, "downloaded", StatusDownloaded.String())
	require.Equal(t, "failed", StatusFailed.String())
	require.NoError(t, (&Report{}).Err())
}
