// Package lock guards a directory against concurrent runs with a PID marker file.
//
// A marker whose process is gone is considered stale and reclaimed.
package lock
