package cache

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// Pending is an in-progress archive write. It implements io.Writer.
// Exactly one of Commit or Abort must be called.
type Pending struct {
	store   *FileStore
	key     recordKey
	file    afero.File
	path    string
	written int64
	done    bool
}

// Write appends b to the partial file.
func (p *Pending) Write(b []byte) (int, error) {
	if p.done {
		return 0, errFinished
	}

	n, err := p.file.Write(b)
	p.written += int64(n)

	return n, err
}

// Written returns the number of bytes written so far.
func (p *Pending) Written() int64 {
	return p.written
}

// Commit moves the partial file to its final path, making the record Present.
// On failure the partial file is removed and the record stays Absent.
func (p *Pending) Commit() error {
	if p.done {
		return errFinished
	}

	p.done = true
	defer p.store.release(p.key)

	fs := p.store.fs
	partial := p.path + partSuffix

	if err := p.file.Close(); err != nil {
		_ = fs.Remove(partial)

		return fmt.Errorf("close %s: %w", partial, err)
	}

	if err := fs.Rename(partial, p.path); err != nil {
		_ = fs.Remove(partial)

		return fmt.Errorf("rename %s: %w", partial, err)
	}

	return nil
}

// Abort discards the partial file, leaving the record Absent.
func (p *Pending) Abort() error {
	if p.done {
		return nil
	}

	p.done = true
	defer p.store.release(p.key)

	partial := p.path + partSuffix

	_ = p.file.Close()

	if err := p.store.fs.Remove(partial); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", partial, err)
	}

	return nil
}
