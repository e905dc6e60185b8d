package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/oshokin/code-airgap/internal/logger"
)

// Local is a Conn for the local machine.
type Local struct {
	shell string
}

// NewLocal returns a Conn executing scripts with sh.
func NewLocal() *Local {
	return &Local{shell: "sh"}
}

// Run implements Executor.
func (l *Local) Run(ctx context.Context, script string) (string, error) {
	return l.run(ctx, script, nil)
}

// Copy implements Transferer.
func (l *Local) Copy(ctx context.Context, localPaths []string, remoteDir string) error {
	for _, localPath := range localPaths {
		name, err := baseName(localPath)
		if err != nil {
			return err
		}

		file, err := os.Open(filepath.Clean(localPath))
		if err != nil {
			return fmt.Errorf("open %s: %w", localPath, err)
		}

		_, err = l.run(ctx, receiveScript(remoteDir, name), file)
		_ = file.Close()

		if err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}

		logger.DebugKV(ctx, "Copied file", "file", name, "dir", remoteDir)
	}

	return nil
}

// Close implements io.Closer.
func (l *Local) Close() error {
	return nil
}

func (l *Local) run(ctx context.Context, script string, stdin *os.File) (string, error) {
	var output bytes.Buffer

	cmd := exec.CommandContext(ctx, l.shell, "-c", script) //nolint:gosec // Scripts are rendered by this program.
	cmd.Stdout = &output
	cmd.Stderr = &output

	if stdin != nil {
		cmd.Stdin = stdin
	}

	err := cmd.Run()
	if err == nil {
		return output.String(), nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return output.String(), ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return output.String(), &ExitError{Status: exitErr.ExitCode(), Output: output.String()}
	}

	return output.String(), fmt.Errorf("run %s: %w", l.shell, err)
}
