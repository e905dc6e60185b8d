package syncer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/oshokin/code-airgap/internal/catalog"
	"github.com/oshokin/code-airgap/internal/config"
	"github.com/oshokin/code-airgap/internal/domain/artifact"
	"github.com/oshokin/code-airgap/internal/lock"
	"github.com/oshokin/code-airgap/internal/logger"
	"github.com/oshokin/code-airgap/internal/repository/cache"
	"github.com/oshokin/code-airgap/internal/service/common"
)

// Options are inputs accepted by the sync entry point. Non-zero values override the configuration.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// CacheRoot overrides cache_root.
	CacheRoot string
	// Workers overrides the download pool width.
	Workers int
	// Limit keeps only the first Limit reconciled versions when positive.
	Limit int
}

const cacheRootPermissions = 0o755

// Run loads the configuration and mirrors every matched release.
// Individual download failures are logged and do not make Run fail.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "airgap-sync")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.CacheRoot != "" {
		cfg.CacheRoot = opts.CacheRoot
	}

	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}

	report, err := Sync(ctx, afero.NewOsFs(), cfg, opts.Limit)
	if err != nil {
		logger.ErrorKV(ctx, "Sync aborted", "error", err)

		return err
	}

	if err = report.Err(); err != nil {
		logger.WarnKV(ctx, "Some archives could not be downloaded, run the sync again to retry", "error", err)
	}

	logger.Info(ctx, "Sync complete, matched server/CLI pairs are ready in ", cfg.CacheRoot)

	return nil
}

// Sync runs one mirror pass with cfg, storing archives on fs. It fails only
// when the run cannot start: cache root unusable, another run active, or a
// feed unavailable.
func Sync(ctx context.Context, fs afero.Fs, cfg *config.Config, limit int) (*Report, error) {
	if err := fs.MkdirAll(cfg.CacheRoot, cacheRootPermissions); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}

	runLock, err := lock.Acquire(ctx, fs, filepath.Join(cfg.CacheRoot, lock.DefaultFilename))
	if err != nil {
		return nil, err
	}

	defer func() {
		if releaseErr := runLock.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Could not remove run marker", "error", releaseErr)
		}
	}()

	httpClient := common.NewHTTPClient(cfg.Timeout, cfg.Workers)

	versions, err := matchedVersions(ctx, catalog.NewClient(httpClient, cfg.Timeout), cfg.Feeds)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(versions) > limit {
		versions = versions[:limit]
	}

	logger.InfoKV(ctx, "Syncing matching versions", "count", len(versions), "cache_root", cfg.CacheRoot)

	store := cache.NewFileStore(fs, cfg.CacheRoot, cfg.Artifacts.Filenames())

	tasks, err := buildTasks(ctx, store, cfg.Artifacts, versions)
	if err != nil {
		return nil, err
	}

	fetcher := NewHTTPFetcher(httpClient, cfg.ChunkSize, cfg.Timeout)
	report := NewScheduler(store, fetcher, cfg.Workers).Run(ctx, tasks)

	logger.InfoKV(ctx, "Download pass finished",
		"downloaded", report.Count(StatusDownloaded),
		"skipped", report.Count(StatusSkipped),
		"failed", report.Count(StatusFailed))

	return report, nil
}

// matchedVersions fetches both feeds and reconciles them in CLI feed order.
// Any feed failure is fatal: reconciliation never runs on partial data.
func matchedVersions(ctx context.Context, client *catalog.Client, feeds config.Feeds) ([]string, error) {
	cliVersions, err := client.Fetch(ctx, feeds.CLI)
	if err != nil {
		return nil, fmt.Errorf("fetch cli catalog: %w", err)
	}

	serverVersions, err := client.Fetch(ctx, feeds.Server)
	if err != nil {
		return nil, fmt.Errorf("fetch server catalog: %w", err)
	}

	logger.InfoKV(ctx, "Fetched catalogs", "server", len(serverVersions), "cli", len(cliVersions))

	return catalog.Reconcile(cliVersions, serverVersions), nil
}

// buildTasks creates the version directories and one task per archive.
// Versions that are not usable as directory names are skipped.
func buildTasks(ctx context.Context, store *cache.FileStore, artifacts config.Artifacts, versions []string) ([]artifact.Task, error) {
	tasks := make([]artifact.Task, 0, len(versions)*len(artifact.Kinds()))

	for _, version := range versions {
		if err := artifact.ValidateVersion(version); err != nil {
			logger.WarnKV(ctx, "Skipping version", "error", err)

			continue
		}

		if err := store.EnsureVersion(version); err != nil {
			return nil, err
		}

		for _, kind := range artifact.Kinds() {
			tasks = append(tasks, artifact.Task{
				Version:     version,
				Kind:        kind,
				URL:         artifacts.Source(kind).URLFor(version),
				Destination: store.Path(version, kind),
			})
		}
	}

	return tasks, nil
}
