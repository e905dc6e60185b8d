package artifact

import "fmt"

// Presence is the local cache state of an archive.
type Presence int

const (
	// Absent means no usable file exists at the destination.
	Absent Presence = iota
	// Downloading means a write is in progress; the destination is not usable yet.
	Downloading
	// Present means the destination holds a complete archive.
	Present
)

// String implements fmt.Stringer.
func (p Presence) String() string {
	switch p {
	case Absent:
		return "absent"
	case Downloading:
		return "downloading"
	case Present:
		return "present"
	default:
		return fmt.Sprintf("presence(%d)", int(p))
	}
}

// Record describes one cached archive.
type Record struct {
	// Version is the release identifier.
	Version string
	// Kind selects the archive within the release.
	Kind Kind
	// Path is the final location of the archive in the cache.
	Path string
	// Presence is the state observed when the record was built.
	Presence Presence
}

// Task is an immutable unit of download work.
type Task struct {
	// Version is the release identifier.
	Version string
	// Kind selects the archive within the release.
	Kind Kind
	// URL is the source of the archive.
	URL string
	// Destination is the final cache path, for logging.
	Destination string
}

// String renders the task for logs.
func (t Task) String() string {
	return t.Version + "/" + t.Kind.String()
}
