package artifact

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind enumerates the archive types published for each version.
type Kind int

const (
	// KindServer is the server runtime archive.
	KindServer Kind = iota
	// KindCLI is the standalone CLI archive.
	KindCLI
)

// Kinds returns every kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindServer, KindCLI}
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindServer:
		return "server"
	case KindCLI:
		return "cli"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrInvalidVersion is returned for identifiers that cannot be used as path or shell tokens.
var ErrInvalidVersion = errors.New("invalid version identifier")

var versionPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateVersion checks that v is safe to use as a directory name and inside a remote script.
func ValidateVersion(v string) error {
	if v == "." || v == ".." || !versionPattern.MatchString(v) {
		return fmt.Errorf("%q: %w", v, ErrInvalidVersion)
	}

	return nil
}
