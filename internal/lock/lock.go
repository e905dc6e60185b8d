package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/go-ps"
	"github.com/spf13/afero"

	"github.com/oshokin/code-airgap/internal/logger"
)

// DefaultFilename is the marker created inside the cache root.
const DefaultFilename = ".airgap-sync.lock"

const markerPermissions = 0o644

// ErrLocked is returned while another live process holds the marker.
var ErrLocked = errors.New("another run is in progress")

// Lock is a held marker.
type Lock struct {
	fs   afero.Fs
	path string
}

// Acquire creates the marker at path on fs, reclaiming it when its owner is no longer running.
func Acquire(ctx context.Context, fs afero.Fs, path string) (*Lock, error) {
	for attempt := 0; attempt < 2; attempt++ {
		file, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, markerPermissions)
		if err == nil {
			var result *multierror.Error

			if _, err = file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
				result = multierror.Append(result, err)
			}

			if err = file.Close(); err != nil {
				result = multierror.Append(result, err)
			}

			if err = result.ErrorOrNil(); err != nil {
				_ = fs.Remove(path)

				return nil, fmt.Errorf("write marker: %w", err)
			}

			return &Lock{fs: fs, path: path}, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create marker: %w", err)
		}

		owner, alive := ownerOf(fs, path)
		if alive {
			return nil, fmt.Errorf("%s held by pid %d: %w", path, owner, ErrLocked)
		}

		logger.InfoKV(ctx, "Reclaiming stale run marker", "path", path, "pid", owner)

		if err = fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale marker: %w", err)
		}
	}

	return nil, fmt.Errorf("%s: %w", path, ErrLocked)
}

// Release removes the marker.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}

	if err := l.fs.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove marker: %w", err)
	}

	return nil
}

// ownerOf reads the PID stored in the marker and reports whether that process still runs.
func ownerOf(fs afero.Fs, path string) (int, bool) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return pid, false
	}

	process, err := ps.FindProcess(pid)

	return pid, err == nil && process != nil
}
