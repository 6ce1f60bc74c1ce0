// Package store persists raw overlay tile payloads in a local bbolt
// database, so a field deployment (the upstream publisher rate-limits,
// and coastal survey sites have no connectivity) can prefetch a region
// once and serve the engine offline afterwards.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/notomaps/tilengine/tile"
)

var (
	bucketTiles = []byte("tiles")
	bucketMeta  = []byte("meta")

	keyMeta = []byte("region")
)

// emptyPayload is what a prefetched not-found tile is stored as: a
// legitimate empty FeatureCollection, decodable like any other payload.
var emptyPayload = []byte(`{"type":"FeatureCollection","features":[]}`)

// Meta describes the prefetched region.
type Meta struct {
	West      float64   `json:"west"`
	South     float64   `json:"south"`
	East      float64   `json:"east"`
	North     float64   `json:"north"`
	Zoom      uint32    `json:"zoom"`
	TileCount int       `json:"tileCount"`
	FetchedAt time.Time `json:"fetchedAt"`
}

type Store struct {
	db     *bbolt.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the tile store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0660, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketTiles); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{
		db:     db,
		logger: slog.With("d", "store", "path", path),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// PutTile stores one raw tile payload. An empty payload is stored as the
// canonical empty FeatureCollection so absence stays distinguishable
// from emptiness.
func (s *Store) PutTile(k tile.Key, data []byte) error {
	if len(data) == 0 {
		data = emptyPayload
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTiles).Put([]byte(k.String()), data)
	})
}

// GetTile returns the stored payload for k, or ok=false if the key was
// never prefetched.
func (s *Store) GetTile(k tile.Key) (data []byte, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketTiles).Get([]byte(k.String()))
		if v == nil {
			return nil
		}
		data = append([]byte(nil), v...)
		ok = true
		return nil
	})
	return data, ok, err
}

// TileCount returns the number of stored tiles.
func (s *Store) TileCount() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketTiles).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *Store) PutMeta(m Meta) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyMeta, b)
	})
}

func (s *Store) GetMeta() (Meta, bool, error) {
	var m Meta
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketMeta).Get(keyMeta)
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &m); err != nil {
			return fmt.Errorf("corrupt store meta: %w", err)
		}
		ok = true
		return nil
	})
	return m, ok, err
}
