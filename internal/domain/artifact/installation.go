package artifact

// InstallState is the validation state of a remote installation.
type InstallState int

const (
	// InstallPending is the state before provisioning finished.
	InstallPending InstallState = iota
	// InstallValidated means the runtime probe passed and the sentinel was written.
	InstallValidated
	// InstallFailed means a provisioning step failed; no sentinel exists.
	InstallFailed
)

// String implements fmt.Stringer.
func (s InstallState) String() string {
	switch s {
	case InstallPending:
		return "pending"
	case InstallValidated:
		return "validated"
	case InstallFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Installation describes a provisioned release on the remote host.
type Installation struct {
	// Version is the installed release.
	Version string
	// CLIPath is the remote path of the CLI executable.
	CLIPath string
	// ServerDir is the remote directory holding the server runtime.
	ServerDir string
	// State is the validation outcome.
	State InstallState
}
