// Package cache implements the local artifact cache.
//
// Archives live at <root>/<version>/<filename>. A download writes to a sibling
// "<filename>.part" through a Pending handle and only Commit renames it into
// place, so the final path never holds a partial archive. Presence is derived
// from the final path, with an in-memory overlay marking records that are
// currently being written.
package cache
