// Package transport implements the cancellable, progress-reporting HTTP
// GET used to fetch manifests, scripts, and content files from a mirror.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
)

// ProgressFunc is called as bytes arrive. percent is -1 when the response
// has no Content-Length and a fraction cannot be computed.
type ProgressFunc func(percent float64, bytesRead int64)

// Transport performs one download at a time against a shared http.Client.
// A second concurrent Download call blocks on mu until the first returns,
// matching the "callers serialize" requirement rather than racing.
type Transport struct {
	client    *http.Client
	userAgent string
	mu        sync.Mutex
}

// New builds a Transport that disables client- and proxy-side caching and
// stamps every request with userAgent.
func New(userAgent string) *Transport {
	return &Transport{
		client:    &http.Client{},
		userAgent: userAgent,
	}
}

// UserAgent builds the update engine's User-Agent string, omitting
// " Updater/..." when updaterVersion is "N/A".
func UserAgent(localGame, updaterVersion, gameVersion, hostVersion string) string {
	ua := localGame
	if updaterVersion != "N/A" {
		ua += " Updater/" + updaterVersion
	}
	ua += " Game/" + gameVersion + " Client/" + hostVersion
	return ua
}

// Download fetches url into destPath, invoking progress as bytes arrive.
// Cancelling ctx tears down the in-flight request and deletes destPath.
func (t *Transport) Download(ctx context.Context, url, destPath string, progress ProgressFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("transport: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transport: get %s: status %s", url, resp.Status)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("transport: create %s: %w", destPath, err)
	}

	total := resp.ContentLength
	counter := &countingReader{r: resp.Body}
	if progress != nil {
		counter.onRead = func(n int64) {
			if total > 0 {
				progress(float64(counter.total)/float64(total)*100, counter.total)
			} else {
				progress(-1, counter.total)
			}
		}
	}

	_, copyErr := io.Copy(out, counter)
	closeErr := out.Close()

	if ctx.Err() != nil {
		os.Remove(destPath)
		return fmt.Errorf("transport: %w", context.Canceled)
	}
	if copyErr != nil {
		os.Remove(destPath)
		return fmt.Errorf("transport: read body: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(destPath)
		return fmt.Errorf("transport: write %s: %w", destPath, closeErr)
	}
	return nil
}

// Get fetches url and returns its body in memory, for small files like the
// hash-only version check.
func (t *Transport) Get(ctx context.Context, url string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transport: get %s: status %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

type countingReader struct {
	r      io.Reader
	total  int64
	onRead func(int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.total += int64(n)
	if c.onRead != nil && n > 0 {
		c.onRead(c.total)
	}
	return n, err
}
