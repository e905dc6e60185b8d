// Package remote runs shell scripts on the injection target and copies files to it.
//
// SSHConn talks to a real host over golang.org/x/crypto/ssh. Local runs the
// same scripts with the local sh and is used for loopback installs and tests.
// Both receive files through the same shell pipeline, so a staged archive
// only appears under its final name once it has been copied completely.
package remote
