// Package config defines the settings shared by airgap-sync and airgap-inject
// and provides helpers to load, validate and save them in YAML format.
//
// Every knob has a default matching the public VS Code update service, so a
// missing default settings file is not an error. Values can be overridden from
// AIRGAP_* environment variables, optionally read from a .env file.
package config
