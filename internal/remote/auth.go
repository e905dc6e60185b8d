package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/oshokin/code-airgap/internal/logger"
)

// EnvAuthSock names the SSH agent socket variable.
const EnvAuthSock = "SSH_AUTH_SOCK"

// ErrNoAuthMethods is returned when neither an agent, a key nor a password source is available.
var ErrNoAuthMethods = errors.New("no ssh authentication method available")

// authMethods collects the agent, the identity file and the password
// callback, in this order. The returned closer releases the agent socket.
func authMethods(ctx context.Context, opts *SSHOptions) ([]ssh.AuthMethod, func(), error) {
	var (
		methods []ssh.AuthMethod
		closers []func()
	)

	release := func() {
		for _, c := range closers {
			c()
		}
	}

	if sock := os.Getenv(EnvAuthSock); sock != "" && !opts.SkipAgent {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			logger.DebugKV(ctx, "SSH agent unavailable", "socket", sock, "error", err)
		} else {
			closers = append(closers, func() { _ = conn.Close() })
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if opts.IdentityFile != "" {
		signer, err := loadSigner(opts.IdentityFile)
		if err != nil {
			release()

			return nil, nil, err
		}

		methods = append(methods, ssh.PublicKeys(signer))
	}

	if opts.Password != nil {
		methods = append(methods, ssh.PasswordCallback(opts.Password))
	}

	if len(methods) == 0 {
		return nil, nil, ErrNoAuthMethods
	}

	return methods, release, nil
}

func loadSigner(path string) (ssh.Signer, error) {
	pem, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("parse identity file %s: %w", path, err)
	}

	return signer, nil
}

// hostKeyCallback verifies the target against a known_hosts file unless
// verification is disabled.
func hostKeyCallback(opts *SSHOptions) (ssh.HostKeyCallback, error) {
	if opts.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // Explicitly requested by the operator.
	}

	if opts.KnownHostsFile == "" {
		return nil, errKnownHostsRequired
	}

	callback, err := knownhosts.New(filepath.Clean(opts.KnownHostsFile))
	if err != nil {
		return nil, fmt.Errorf("load known hosts: %w", err)
	}

	return callback, nil
}

var errKnownHostsRequired = errors.New("known_hosts_file is required unless insecure_ignore_host_key is set")
