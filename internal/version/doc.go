// Package version exposes build metadata injected through ldflags and a cobra
// `version` subcommand shared by airgap-sync and airgap-inject.
package version
