// Package fetch retrieves overlay tiles from upstream sources and
// orchestrates bounded-concurrency, deduplicated tile fetching.
package fetch

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/notomaps/tilengine/tile"
)

// ErrNotFound reports a tile the upstream source does not publish.
// Not an error condition for callers: sources legitimately omit tiles
// with no overlay features, and the scheduler maps this to an empty tile.
var ErrNotFound = errors.New("tile not found")

// ErrFetchFailed wraps transport and decode failures. Per-tile failures
// are isolated: logged, counted, never fatal to sibling tiles.
var ErrFetchFailed = errors.New("tile fetch failed")

// Fetcher retrieves and decodes one tile. Implementations own their own
// timeouts; the engine has no timeout layer of its own.
type Fetcher interface {
	Fetch(ctx context.Context, urlTemplate string, key tile.Key) (tile.Content, error)
}

// RawFetcher retrieves one tile's payload without decoding it.
// The prefetch store persists raw payloads.
type RawFetcher interface {
	FetchRaw(ctx context.Context, urlTemplate string, key tile.Key) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, urlTemplate string, key tile.Key) (tile.Content, error)

func (f FetcherFunc) Fetch(ctx context.Context, urlTemplate string, key tile.Key) (tile.Content, error) {
	return f(ctx, urlTemplate, key)
}

// TileURL expands a {z}/{x}/{y} URL template for the key.
func TileURL(urlTemplate string, k tile.Key) string {
	r := strings.NewReplacer(
		"{z}", strconv.FormatUint(uint64(k.Z), 10),
		"{x}", strconv.FormatUint(uint64(k.X), 10),
		"{y}", strconv.FormatUint(uint64(k.Y), 10),
	)
	return r.Replace(urlTemplate)
}
