// Package common holds helpers shared by several services.
//
// It builds the HTTP client used against the update service and detects the
// local operator, whose name is the default remote user.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
