package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotFound marks a 404 response. Callers distinguish a vanished asset
// (which feeds the failure monitor) from transient transport errors.
var ErrNotFound = errors.New("asset not found (404)")

// Result is the outcome of one successful fetch: raw bytes plus the derived
// content hash and size.
type Result struct {
	Content []byte
	Hash    string
	Size    int64
}

type Fetcher interface {
	Fetch(ctx context.Context, locator string) (*Result, error)
}

var _ Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher downloads asset content over HTTP with a bounded timeout.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

func NewHTTPFetcher(client *http.Client, userAgent string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) (*Result, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", locator, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Result{
		Content: content,
		Hash:    HashBytes(content),
		Size:    int64(len(content)),
	}, nil
}

// HashBytes returns the hex-encoded SHA-256 digest of content.
func HashBytes(content []byte) string {
	digest := sha256.Sum256(content)
	return hex.EncodeToString(digest[:])
}
