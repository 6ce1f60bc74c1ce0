package fetch

import (
	"context"
	"log/slog"

	"github.com/notomaps/tilengine/tile"
)

// Fallback tries Primary first and falls back to Secondary on any
// primary failure, including ErrNotFound. The intended pairing is a
// local prefetch store in front of the live HTTP source: a store miss
// is not authoritative, a remote 404 is.
type Fallback struct {
	Primary   Fetcher
	Secondary Fetcher
}

func (f Fallback) Fetch(ctx context.Context, urlTemplate string, key tile.Key) (tile.Content, error) {
	content, err := f.Primary.Fetch(ctx, urlTemplate, key)
	if err == nil {
		return content, nil
	}
	if f.Secondary == nil {
		return nil, err
	}
	slog.Debug("Primary fetcher missed, falling back", "key", key.String(), "error", err)
	return f.Secondary.Fetch(ctx, urlTemplate, key)
}
