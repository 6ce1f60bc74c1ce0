package params

import (
	"path/filepath"
	"time"
)

// StoreConfig configures the local prefetch tile store.
type StoreConfig struct {
	// Path is the bbolt database file.
	Path string

	// RequestDelay is the pause between prefetch requests, out of
	// politeness to the upstream tile server.
	RequestDelay time.Duration
}

func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Path:         filepath.Join(DatadirRoot, "tiles.db"),
		RequestDelay: 1 * time.Second,
	}
}
