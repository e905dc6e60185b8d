// Package catalog reads the upstream version feeds and reconciles them.
//
// A feed is an HTTP endpoint returning a JSON array of version identifiers,
// newest first. Only versions published by both feeds can be mirrored, so
// Reconcile computes their ordered intersection.
package catalog
