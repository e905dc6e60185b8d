package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher streams the resource at url into dst.
type Fetcher interface {
	Fetch(ctx context.Context, url string, dst io.Writer) (int64, error)
}

var (
	// ErrBadStatus is returned for non-200 artifact responses.
	ErrBadStatus = errors.New("unexpected http status")
	// ErrIdleTimeout is returned when the body stalls longer than the read deadline.
	ErrIdleTimeout = errors.New("no data received within read deadline")
)

// HTTPFetcher downloads over HTTP in fixed-size chunks.
type HTTPFetcher struct {
	client      *http.Client
	chunkSize   int
	idleTimeout time.Duration
}

// NewHTTPFetcher creates a fetcher. idleTimeout bounds the wait for every
// chunk read; time spent writing a chunk to dst does not count.
func NewHTTPFetcher(client *http.Client, chunkSize int, idleTimeout time.Duration) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}

	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}

	return &HTTPFetcher{
		client:      client,
		chunkSize:   chunkSize,
		idleTimeout: idleTimeout,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, dst io.Writer) (int64, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", url, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s, %s: %w", url, resp.Status, ErrBadStatus)
	}

	var watchdog *time.Timer
	if f.idleTimeout > 0 {
		watchdog = time.AfterFunc(f.idleTimeout, func() { cancel(ErrIdleTimeout) })
		defer watchdog.Stop()
	}

	var (
		buf     = make([]byte, f.chunkSize)
		written int64
	)

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			// The deadline covers reads only.
			if watchdog != nil {
				watchdog.Stop()
			}

			w, writeErr := dst.Write(buf[:n])
			written += int64(w)

			if writeErr == nil && w != n {
				writeErr = io.ErrShortWrite
			}

			if writeErr != nil {
				return written, fmt.Errorf("write chunk: %w", writeErr)
			}

			if watchdog != nil {
				watchdog.Reset(f.idleTimeout)
			}
		}

		if errors.Is(readErr, io.EOF) {
			return written, nil
		}

		if readErr != nil {
			if cause := context.Cause(ctx); errors.Is(cause, ErrIdleTimeout) {
				return written, fmt.Errorf("read %s: %w", url, ErrIdleTimeout)
			}

			return written, fmt.Errorf("read %s: %w", url, readErr)
		}
	}
}
