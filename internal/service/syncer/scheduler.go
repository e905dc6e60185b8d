package syncer

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/oshokin/code-airgap/internal/domain/artifact"
	"github.com/oshokin/code-airgap/internal/logger"
	"github.com/oshokin/code-airgap/internal/repository/cache"
)

// Scheduler runs download tasks on a bounded pool.
type Scheduler struct {
	store   cache.Repository
	fetcher Fetcher
	workers int
}

// NewScheduler creates a scheduler running at most workers tasks at once.
func NewScheduler(store cache.Repository, fetcher Fetcher, workers int) *Scheduler {
	if workers <= 0 {
		workers = 1
	}

	return &Scheduler{
		store:   store,
		fetcher: fetcher,
		workers: workers,
	}
}

// Run executes every task and returns their outcomes. It never fails as a
// whole: each task succeeds or fails on its own.
func (s *Scheduler) Run(ctx context.Context, tasks []artifact.Task) *Report {
	outcomes := make([]Outcome, len(tasks))

	var group errgroup.Group

	group.SetLimit(s.workers)

	for i, task := range tasks {
		i, task := i, task

		group.Go(func() error {
			outcomes[i] = s.execute(ctx, task)

			return nil
		})
	}

	_ = group.Wait()

	return &Report{Outcomes: outcomes}
}

// execute downloads one archive unless it is already present.
func (s *Scheduler) execute(ctx context.Context, task artifact.Task) Outcome {
	ctx = logger.WithKV(ctx, "version", task.Version, "kind", task.Kind.String())

	if s.store.Presence(task.Version, task.Kind) == artifact.Present {
		logger.Debug(ctx, "Archive already cached")

		return Outcome{Task: task, Status: StatusSkipped}
	}

	fail := func(err error) Outcome {
		logger.WarnKV(ctx, "Download failed", "error", err)

		return Outcome{Task: task, Status: StatusFailed, Err: err}
	}

	pending, err := s.store.Create(task.Version, task.Kind)
	if err != nil {
		return fail(err)
	}

	logger.Info(ctx, "Starting download")

	written, err := s.fetcher.Fetch(ctx, task.URL, pending)
	if err != nil {
		if abortErr := pending.Abort(); abortErr != nil {
			err = multierror.Append(err, fmt.Errorf("discard partial archive: %w", abortErr))
		}

		return fail(err)
	}

	if err = pending.Commit(); err != nil {
		return fail(err)
	}

	logger.InfoKV(ctx, "Finished download", "bytes", written)

	return Outcome{Task: task, Status: StatusDownloaded, Bytes: written}
}
