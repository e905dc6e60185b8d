package detector

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/oshokin/code-airgap/internal/config"
	"github.com/oshokin/code-airgap/internal/logger"
)

// probeTimeout bounds a single `--version` call.
const probeTimeout = 10 * time.Second

// CommandRunner runs a local command and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Detector probes installed client binaries for their commit identifier.
type Detector struct {
	binaries []string
	line     int
	run      CommandRunner
}

// New creates a Detector from the detect settings. A nil run uses ExecRunner.
func New(settings config.Detect, run CommandRunner) *Detector {
	if run == nil {
		run = ExecRunner
	}

	return &Detector{
		binaries: append([]string(nil), settings.Binaries...),
		line:     settings.Line,
		run:      run,
	}
}

// Provide implements Provider. Binaries are tried in configuration order.
func (d *Detector) Provide(ctx context.Context) (string, error) {
	for _, binary := range d.binaries {
		id, err := d.probe(ctx, binary)
		if err != nil {
			logger.DebugKV(ctx, "Version probe failed", "binary", binary, "error", err)

			continue
		}

		return id, nil
	}

	return "", ErrNotDetected
}

func (d *Detector) probe(ctx context.Context, binary string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	output, err := d.run(ctx, binary, "--version")
	if err != nil {
		return "", fmt.Errorf("run %s --version: %w", binary, err)
	}

	return ParseVersionOutput(string(output), d.line)
}

// ParseVersionOutput returns the trimmed line at index line of output.
func ParseVersionOutput(output string, line int) (string, error) {
	lines := strings.Split(strings.ReplaceAll(strings.TrimSpace(output), "\r\n", "\n"), "\n")
	if line < 0 || line >= len(lines) {
		return "", fmt.Errorf("%d lines of output, want line %d: %w", len(lines), line, ErrNotDetected)
	}

	id := strings.TrimSpace(lines[line])
	if id == "" {
		return "", fmt.Errorf("line %d is empty: %w", line, ErrNotDetected)
	}

	return id, nil
}
