package store

import (
	"context"

	"github.com/notomaps/tilengine/fetch"
	"github.com/notomaps/tilengine/tile"
)

// Fetcher adapts a Store to the engine's fetch.Fetcher contract.
// A key absent from the store surfaces as fetch.ErrNotFound; wrap in a
// fetch.Fallback with an HTTP fetcher to treat store misses as
// non-authoritative.
type Fetcher struct {
	store *Store
}

func NewFetcher(s *Store) *Fetcher {
	return &Fetcher{store: s}
}

func (f *Fetcher) Fetch(_ context.Context, _ string, key tile.Key) (tile.Content, error) {
	data, ok, err := f.store.GetTile(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fetch.ErrNotFound
	}
	return fetch.DecodeContent(data)
}
