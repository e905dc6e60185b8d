package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/oshokin/code-airgap/internal/logger"
)

// DefaultDialTimeout bounds the TCP connect and SSH handshake.
const DefaultDialTimeout = 15 * time.Second

// SSHOptions describe how to reach the target.
type SSHOptions struct {
	User    string
	Address string
	// IdentityFile is an optional private key.
	IdentityFile string
	// KnownHostsFile verifies the host key.
	KnownHostsFile string
	// InsecureIgnoreHostKey disables host key verification.
	InsecureIgnoreHostKey bool
	// SkipAgent ignores SSH_AUTH_SOCK.
	SkipAgent bool
	// Password is asked for when key authentication is not accepted.
	Password func() (string, error)
	// Timeout bounds connecting. Zero means DefaultDialTimeout.
	Timeout time.Duration
}

// SSHConn is a Conn over one SSH client connection.
type SSHConn struct {
	client  *ssh.Client
	release func()
}

// DialSSH connects and authenticates to the target.
func DialSSH(ctx context.Context, opts *SSHOptions) (*SSHConn, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	hostKeys, err := hostKeyCallback(opts)
	if err != nil {
		return nil, err
	}

	auth, release, err := authMethods(ctx, opts)
	if err != nil {
		return nil, err
	}

	clientConfig := &ssh.ClientConfig{
		User:            opts.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := net.Dialer{}

	netConn, err := dialer.DialContext(dialCtx, "tcp", opts.Address)
	if err != nil {
		release()

		return nil, fmt.Errorf("dial %s: %w", opts.Address, err)
	}

	if deadline, ok := dialCtx.Deadline(); ok {
		_ = netConn.SetDeadline(deadline)
	}

	clientConn, channels, requests, err := ssh.NewClientConn(netConn, opts.Address, clientConfig)
	if err != nil {
		_ = netConn.Close()

		release()

		return nil, fmt.Errorf("ssh handshake with %s: %w", opts.Address, err)
	}

	_ = netConn.SetDeadline(time.Time{})

	logger.InfoKV(ctx, "Connected", "address", opts.Address, "user", opts.User)

	return &SSHConn{client: ssh.NewClient(clientConn, channels, requests), release: release}, nil
}

// Run implements Executor.
func (c *SSHConn) Run(ctx context.Context, script string) (string, error) {
	return c.run(ctx, script, nil)
}

// Copy implements Transferer. Every file is streamed over its own session.
func (c *SSHConn) Copy(ctx context.Context, localPaths []string, remoteDir string) error {
	for _, localPath := range localPaths {
		name, err := baseName(localPath)
		if err != nil {
			return err
		}

		file, err := os.Open(filepath.Clean(localPath))
		if err != nil {
			return fmt.Errorf("open %s: %w", localPath, err)
		}

		_, err = c.run(ctx, receiveScript(remoteDir, name), file)
		_ = file.Close()

		if err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}

		logger.DebugKV(ctx, "Copied file", "file", name, "dir", remoteDir)
	}

	return nil
}

// Close implements io.Closer.
func (c *SSHConn) Close() error {
	defer c.release()

	return c.client.Close()
}

func (c *SSHConn) run(ctx context.Context, script string, stdin *os.File) (string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("new session: %w", err)
	}
	defer session.Close()

	if stdin != nil {
		session.Stdin = stdin
	}

	stop := context.AfterFunc(ctx, func() {
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
	})
	defer stop()

	output, err := session.CombinedOutput(script)
	if err == nil {
		return string(output), nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return string(output), ctxErr
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return string(output), &ExitError{Status: exitErr.ExitStatus(), Output: string(output)}
	}

	return string(output), fmt.Errorf("run remote script: %w", err)
}
