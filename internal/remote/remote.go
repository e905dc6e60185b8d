package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Executor runs a shell script on the target and returns its combined output.
type Executor interface {
	Run(ctx context.Context, script string) (string, error)
}

// Transferer copies local files into a directory on the target.
type Transferer interface {
	Copy(ctx context.Context, localPaths []string, remoteDir string) error
}

// Conn is an open channel to the target.
type Conn interface {
	Executor
	Transferer
	io.Closer
}

// ExitError reports a script that ran and exited with a non-zero status.
type ExitError struct {
	Status int
	Output string
}

// Error implements error.
func (e *ExitError) Error() string {
	output := strings.TrimSpace(e.Output)
	if output == "" {
		return fmt.Sprintf("remote script exited with status %d", e.Status)
	}

	return fmt.Sprintf("remote script exited with status %d: %s", e.Status, output)
}

// ExitStatus extracts the exit status from an error returned by Run.
func ExitStatus(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Status, true
	}

	return 0, false
}

// QuoteDir renders a directory for a double-quoted shell context, leaving
// variables such as $HOME to the target shell.
func QuoteDir(dir string) string {
	return `"` + strings.TrimRight(dir, "/") + `"`
}

// receiveScript reads standard input into dir/name through a .part file.
func receiveScript(dir, name string) string {
	quotedDir := QuoteDir(dir)
	part := quotedDir + "/" + shellquote.Join(name+".part")
	final := quotedDir + "/" + shellquote.Join(name)

	return fmt.Sprintf("mkdir -p %s && cat > %s && mv -f %s %s", quotedDir, part, part, final)
}

func baseName(localPath string) (string, error) {
	name := filepath.Base(localPath)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("%q: %w", localPath, errNotAFile)
	}

	return name, nil
}

var errNotAFile = errors.New("not a file path")
