package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/notomaps/tilengine/tile"
)

// HTTPFetcher fetches GeoJSON overlay tiles over HTTP.
// Upstream 404s surface as ErrNotFound, every other non-2xx status and
// transport error as ErrFetchFailed.
type HTTPFetcher struct {
	client *http.Client
	logger *slog.Logger
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: slog.With("fetcher", "http"),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, urlTemplate string, key tile.Key) (tile.Content, error) {
	raw, err := f.FetchRaw(ctx, urlTemplate, key)
	if err != nil {
		return nil, err
	}
	return DecodeContent(raw)
}

func (f *HTTPFetcher) FetchRaw(ctx context.Context, urlTemplate string, key tile.Key) ([]byte, error) {
	url := TileURL(urlTemplate, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: status %d", ErrFetchFailed, key, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, key, err)
	}
	f.logger.Debug("Fetched tile", "key", key.String(), "bytes", len(body))
	return body, nil
}
