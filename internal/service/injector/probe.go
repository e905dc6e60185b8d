package injector

import (
	"github.com/kballard/go-shellquote"
)

// Probe is the runtime check executed against the unpacked server.
type Probe struct {
	// Binary is resolved inside the server directory.
	Binary string
	// Args are passed to Binary.
	Args []string
}

// DefaultProbe runs the bundled node runtime. It fails on hosts missing the
// glibc or libstdc++ versions the server was built against.
func DefaultProbe() Probe {
	return Probe{Binary: "node", Args: []string{"-v"}}
}

// command renders the probe for a directory held in the shell variable dirVar.
func (p Probe) command(dirVar string) string {
	cmd := `"$` + dirVar + `"/` + shellquote.Join(p.Binary)
	if len(p.Args) > 0 {
		cmd += " " + shellquote.Join(p.Args...)
	}

	return cmd
}
