package version

import "fmt"

var (
	// Version is the release of the build. Overridden via -ldflags "-X".
	Version = "0.1.0-dev"
	// Commit is the short git SHA embedded at build time.
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the release string.
func Short() string {
	return Version
}

// Full returns the release together with commit and build time.
func Full() string {
	return fmt.Sprintf("code-airgap %s (commit %s, built %s)", Version, Commit, BuildTime)
}
