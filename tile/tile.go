// Package tile defines slippy-map tile keys and the per-tile feature
// content the engine caches and merges.
//
// Tile numbering follows the standard XYZ scheme: X grows east from the
// anti-meridian, Y grows south from the north pole. The upstream overlay
// source publishes exactly one zoom level of the pyramid, so a Key's Z is
// in practice always params.DefaultTileZoom; the type keeps Z anyway so
// keys remain self-describing in logs and in the prefetch store.
package tile

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// Key identifies one tile of the pyramid. It is comparable and used
// directly as a cache and in-flight map key.
type Key struct {
	Z uint32 `json:"z"`
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
}

func KeyOf(t maptile.Tile) Key {
	return Key{Z: uint32(t.Z), X: t.X, Y: t.Y}
}

func (k Key) Tile() maptile.Tile {
	return maptile.New(k.X, k.Y, maptile.Zoom(k.Z))
}

// Bound returns the geographic bounds of the tile.
func (k Key) Bound() orb.Bound {
	return k.Tile().Bound()
}

// String returns the conventional z/x/y form, eg. "14/14423/6433".
func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Z, k.X, k.Y)
}

// Less orders keys by Z, then Y, then X. Row-major within a zoom level,
// which keeps merged output stable across runs.
func (k Key) Less(other Key) bool {
	if k.Z != other.Z {
		return k.Z < other.Z
	}
	if k.Y != other.Y {
		return k.Y < other.Y
	}
	return k.X < other.X
}

// CoverBound enumerates the tile keys covering the bound at the given zoom,
// row-major from the northwest corner. The result is rectangular and
// duplicate-free: (xMax-xMin+1)*(yMax-yMin+1) keys.
//
// Bounds crossing the anti-meridian are not supported; the deployment
// region does not cross it and callers must not rely on the result there.
func CoverBound(b orb.Bound, zoom uint32) []Key {
	z := maptile.Zoom(zoom)
	nw := maptile.At(orb.Point{b.Min[0], b.Max[1]}, z)
	se := maptile.At(orb.Point{b.Max[0], b.Min[1]}, z)

	keys := make([]Key, 0, int(se.X-nw.X+1)*int(se.Y-nw.Y+1))
	for y := nw.Y; y <= se.Y; y++ {
		for x := nw.X; x <= se.X; x++ {
			keys = append(keys, Key{Z: zoom, X: x, Y: y})
		}
	}
	return keys
}

// CountCovering returns the number of tiles CoverBound would enumerate,
// without allocating them. Used for the area-too-large feasibility check.
func CountCovering(b orb.Bound, zoom uint32) int {
	z := maptile.Zoom(zoom)
	nw := maptile.At(orb.Point{b.Min[0], b.Max[1]}, z)
	se := maptile.At(orb.Point{b.Max[0], b.Min[1]}, z)
	return int(se.X-nw.X+1) * int(se.Y-nw.Y+1)
}
