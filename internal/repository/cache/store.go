package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"github.com/oshokin/code-airgap/internal/domain/artifact"
)

// Repository is the cache contract used by sync and injection.
type Repository interface {
	Path(version string, kind artifact.Kind) string
	Presence(version string, kind artifact.Kind) artifact.Presence
	Record(version string, kind artifact.Kind) artifact.Record
	EnsureVersion(version string) error
	Create(version string, kind artifact.Kind) (*Pending, error)
	Versions() ([]string, error)
}

var (
	// ErrBusy is returned when a record already has a pending write.
	ErrBusy = errors.New("archive is already being written")
	// ErrUnknownKind is returned for kinds without a configured filename.
	ErrUnknownKind = errors.New("unknown artifact kind")
	// errFinished is returned when a pending write is used after Commit or Abort.
	errFinished = errors.New("pending write already finished")
)

const (
	partSuffix      = ".part"
	dirPermissions  = 0o755
	filePermissions = 0o644
)

type recordKey struct {
	version string
	kind    artifact.Kind
}

// FileStore is a Repository on top of an afero filesystem.
type FileStore struct {
	fs        afero.Fs
	root      string
	filenames map[artifact.Kind]string

	// mu protects downloading.
	mu          sync.Mutex
	downloading map[recordKey]struct{}
}

// NewFileStore creates a store rooted at root. filenames maps each kind to its archive name.
func NewFileStore(fs afero.Fs, root string, filenames map[artifact.Kind]string) *FileStore {
	names := make(map[artifact.Kind]string, len(filenames))
	for k, v := range filenames {
		names[k] = v
	}

	return &FileStore{
		fs:          fs,
		root:        filepath.Clean(root),
		filenames:   names,
		downloading: make(map[recordKey]struct{}),
	}
}

// Root returns the cache root directory.
func (s *FileStore) Root() string {
	return s.root
}

// Path returns the final location of an archive.
func (s *FileStore) Path(version string, kind artifact.Kind) string {
	return filepath.Join(s.root, version, s.filenames[kind])
}

// Presence reports the state of an archive.
func (s *FileStore) Presence(version string, kind artifact.Kind) artifact.Presence {
	s.mu.Lock()
	_, busy := s.downloading[recordKey{version, kind}]
	s.mu.Unlock()

	if busy {
		return artifact.Downloading
	}

	if _, ok := s.filenames[kind]; !ok {
		return artifact.Absent
	}

	info, err := s.fs.Stat(s.Path(version, kind))
	if err == nil && info.Mode().IsRegular() {
		return artifact.Present
	}

	return artifact.Absent
}

// Record returns a snapshot of the archive record.
func (s *FileStore) Record(version string, kind artifact.Kind) artifact.Record {
	return artifact.Record{
		Version:  version,
		Kind:     kind,
		Path:     s.Path(version, kind),
		Presence: s.Presence(version, kind),
	}
}

// EnsureVersion creates the version directory.
func (s *FileStore) EnsureVersion(version string) error {
	if err := artifact.ValidateVersion(version); err != nil {
		return err
	}

	dir := filepath.Join(s.root, version)
	if err := s.fs.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("create version dir %s: %w", dir, err)
	}

	return nil
}

// Create starts a pending write for the archive. The record is Downloading
// until the returned handle is committed or aborted.
func (s *FileStore) Create(version string, kind artifact.Kind) (*Pending, error) {
	if err := artifact.ValidateVersion(version); err != nil {
		return nil, err
	}

	if _, ok := s.filenames[kind]; !ok {
		return nil, fmt.Errorf("%s: %w", kind, ErrUnknownKind)
	}

	key := recordKey{version, kind}

	s.mu.Lock()
	if _, busy := s.downloading[key]; busy {
		s.mu.Unlock()

		return nil, fmt.Errorf("%s/%s: %w", version, kind, ErrBusy)
	}

	s.downloading[key] = struct{}{}
	s.mu.Unlock()

	path := s.Path(version, kind)

	if err := s.fs.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		s.release(key)

		return nil, fmt.Errorf("create version dir: %w", err)
	}

	file, err := s.fs.OpenFile(path+partSuffix, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePermissions)
	if err != nil {
		s.release(key)

		return nil, fmt.Errorf("open %s: %w", path+partSuffix, err)
	}

	return &Pending{
		store: s,
		key:   key,
		file:  file,
		path:  path,
	}, nil
}

// Versions lists versions whose archives of every kind are present, sorted by name.
func (s *FileStore) Versions() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read cache root: %w", err)
	}

	versions := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() || artifact.ValidateVersion(entry.Name()) != nil {
			continue
		}

		if s.complete(entry.Name()) {
			versions = append(versions, entry.Name())
		}
	}

	sort.Strings(versions)

	return versions, nil
}

func (s *FileStore) complete(version string) bool {
	for kind := range s.filenames {
		if s.Presence(version, kind) != artifact.Present {
			return false
		}
	}

	return true
}

func (s *FileStore) release(key recordKey) {
	s.mu.Lock()
	delete(s.downloading, key)
	s.mu.Unlock()
}
