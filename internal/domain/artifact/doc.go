// Package artifact contains the core domain types shared by sync and injection.
//
// A release is identified by an opaque version string assigned by the upstream
// feeds. Every version has exactly one archive per Kind. Record tracks the
// local cache state of one archive, Task is one unit of download work and
// Installation describes what provisioning produced on the remote host.
package artifact
