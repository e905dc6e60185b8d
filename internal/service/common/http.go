//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// NewHTTPClient returns a pooled client whose connect, TLS handshake and
// response-header waits are bounded by timeout. The client has no overall
// deadline: large bodies are guarded per read by the caller instead.
func NewHTTPClient(timeout time.Duration, maxConnsPerHost int) *http.Client {
	transport := cleanhttp.DefaultPooledTransport()
	transport.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout

	if maxConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = maxConnsPerHost
	}

	return &http.Client{Transport: transport}
}
