package injector

import (
	"fmt"
	"path"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/oshokin/code-airgap/internal/config"
	"github.com/oshokin/code-airgap/internal/domain/artifact"
	"github.com/oshokin/code-airgap/internal/remote"
)

// Step names in execution order.
const (
	StepCreateDir     = "create-dir"
	StepExtractServer = "extract-server"
	StepExtractCLI    = "extract-cli"
	StepValidate      = "validate"
	StepFinalize      = "finalize"
)

// SentinelName is the marker file written into the server directory once the probe passed.
const SentinelName = "0"

// Layout is the remote filesystem layout. Directories may reference remote
// shell variables such as $HOME.
type Layout struct {
	InstallRoot   string
	StagingDir    string
	ServerArchive string
	CLIArchive    string
}

// LayoutFromConfig builds a Layout from the remote settings and artifact names.
func LayoutFromConfig(remoteCfg config.Remote, artifacts config.Artifacts) Layout {
	return Layout{
		InstallRoot:   remoteCfg.InstallRoot,
		StagingDir:    remoteCfg.StagingDir,
		ServerArchive: artifacts.Server.Filename,
		CLIArchive:    artifacts.CLI.Filename,
	}
}

// ServerDir returns the directory the server archive is unpacked into.
func (l Layout) ServerDir(version string) string {
	return path.Join(l.InstallRoot, "cli", "servers", "Stable-"+version, "server")
}

// CLIPath returns the location of the CLI executable.
func (l Layout) CLIPath(version string) string {
	return path.Join(l.InstallRoot, "code-"+version)
}

// Step is one provisioning action.
type Step struct {
	Name string
	// Status is the exit status of the step on failure.
	Status int
	// Requires is a shell path expression checked before any step runs.
	Requires string
	// MissingStatus is the exit status when Requires is absent.
	MissingStatus int
	// Commands run in order until one fails.
	Commands []string

	class error
}

// Plan is the ordered provisioning of one version.
type Plan struct {
	Version string
	Layout  Layout
	Steps   []Step
}

// NewPlan builds the provisioning plan of version.
func NewPlan(version string, layout Layout, probe Probe) (*Plan, error) {
	if err := artifact.ValidateVersion(version); err != nil {
		return nil, err
	}

	serverArchive := `"$staging_dir"/` + shellquote.Join(layout.ServerArchive)
	cliArchive := `"$staging_dir"/` + shellquote.Join(layout.CLIArchive)
	sentinel := `"$server_dir"/` + SentinelName

	steps := []Step{
		{
			Name:   StepCreateDir,
			Status: 10,
			Commands: []string{
				`mkdir -p "$server_dir"`,
				`rm -f ` + sentinel,
			},
			class: ErrStepFailed,
		},
		{
			Name:          StepExtractServer,
			Status:        20,
			Requires:      serverArchive,
			MissingStatus: 21,
			Commands: []string{
				`tar -xzf ` + serverArchive + ` -C "$server_dir" --strip-components=1`,
			},
			class: ErrStepFailed,
		},
		{
			Name:          StepExtractCLI,
			Status:        30,
			Requires:      cliArchive,
			MissingStatus: 31,
			Commands: []string{
				`rm -rf "$cli_scratch"`,
				`mkdir -p "$cli_scratch"`,
				`tar -xzf ` + cliArchive + ` -C "$cli_scratch"`,
				`mv -f "$cli_scratch"/code "$cli_path"`,
				`chmod +x "$cli_path"`,
				`rm -rf "$cli_scratch"`,
			},
			class: ErrStepFailed,
		},
		{
			Name:     StepValidate,
			Status:   40,
			Commands: []string{probe.command("server_dir")},
			class:    ErrEnvironmentMismatch,
		},
		{
			Name:   StepFinalize,
			Status: 50,
			Commands: []string{
				`: > ` + sentinel,
				`rm -f ` + serverArchive + ` ` + cliArchive,
			},
			class: ErrStepFailed,
		},
	}

	return &Plan{Version: version, Layout: layout, Steps: steps}, nil
}

// StepNames returns the step names in execution order.
func (p *Plan) StepNames() []string {
	names := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		names = append(names, s.Name)
	}

	return names
}

// Installation returns the installation described by the plan in state.
func (p *Plan) Installation(state artifact.InstallState) *artifact.Installation {
	return &artifact.Installation{
		Version:   p.Version,
		CLIPath:   p.Layout.CLIPath(p.Version),
		ServerDir: p.Layout.ServerDir(p.Version),
		State:     state,
	}
}

// Script renders the plan as a single POSIX shell script. Every step exits
// the script with its own status on failure. All required archives are
// checked before the first step, so a run without staged archives leaves an
// existing installation untouched.
func (p *Plan) Script() string {
	var b strings.Builder

	quotedVersion := shellquote.Join(p.Version)

	b.WriteString("set -u\n")
	fmt.Fprintf(&b, "install_root=%s\n", remote.QuoteDir(p.Layout.InstallRoot))
	fmt.Fprintf(&b, "staging_dir=%s\n", remote.QuoteDir(p.Layout.StagingDir))
	fmt.Fprintf(&b, "server_dir=\"$install_root\"/cli/servers/Stable-%s/server\n", quotedVersion)
	fmt.Fprintf(&b, "cli_path=\"$install_root\"/code-%s\n", quotedVersion)
	fmt.Fprintf(&b, "cli_scratch=\"$staging_dir\"/.code-cli-%s\n", quotedVersion)

	for _, s := range p.Steps {
		if s.Requires != "" {
			fmt.Fprintf(&b, "[ -f %s ] || { echo 'missing: '%s >&2; exit %d; }\n", s.Requires, s.Requires, s.MissingStatus)
		}
	}

	for _, s := range p.Steps {
		fmt.Fprintf(&b, "\necho '==> %s'\n", s.Name)
		fmt.Fprintf(&b, "{ %s; } || exit %d\n", strings.Join(s.Commands, " &&\n  "), s.Status)
	}

	return b.String()
}

// classify maps an exit status of Script back to the failed step.
func (p *Plan) classify(status int, output string) error {
	for _, s := range p.Steps {
		switch {
		case status == s.Status:
			return &StepError{Step: s.Name, Status: status, Output: output, class: s.class}
		case s.Requires != "" && status == s.MissingStatus:
			return &StepError{Step: s.Name, Status: status, Output: output, class: ErrArchiveMissing}
		}
	}

	return &StepError{Step: "unknown", Status: status, Output: output, class: ErrStepFailed}
}
