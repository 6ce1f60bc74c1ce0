package tile

import (
	"math"
	"sort"
	"testing"

	"github.com/paulmach/orb"
)

// refTileAt is the slippy-map formula, straight from the reference
// implementation, used to cross-check the maptile-backed indexer.
func refTileAt(lon, lat float64, zoom uint32) (x, y uint32) {
	n := math.Exp2(float64(zoom))
	xf := math.Floor((lon + 180.0) / 360.0 * n)
	latRad := lat * math.Pi / 180.0
	yf := math.Floor((1.0 - math.Asinh(math.Tan(latRad))/math.Pi) / 2.0 * n)
	return uint32(xf), uint32(yf)
}

func TestCoverBoundMatchesReferenceFormula(t *testing.T) {
	// Wajima harbor area, the deployment region.
	b := orb.Bound{Min: orb.Point{136.87, 37.39}, Max: orb.Point{136.90, 37.42}}
	const zoom = 14

	xMin, yMin := refTileAt(b.Min[0], b.Max[1], zoom) // NW corner
	xMax, yMax := refTileAt(b.Max[0], b.Min[1], zoom) // SE corner

	keys := CoverBound(b, zoom)
	want := int(xMax-xMin+1) * int(yMax-yMin+1)
	if len(keys) != want {
		t.Fatalf("CoverBound returned %d keys, want %d", len(keys), want)
	}
	if k0 := keys[0]; k0.X != xMin || k0.Y != yMin {
		t.Errorf("first key %v, want %d/%d/%d", k0, zoom, xMin, yMin)
	}
	if kn := keys[len(keys)-1]; kn.X != xMax || kn.Y != yMax {
		t.Errorf("last key %v, want %d/%d/%d", kn, zoom, xMax, yMax)
	}
}

func TestCoverBoundRectangular(t *testing.T) {
	cases := []struct {
		name string
		b    orb.Bound
		zoom uint32
	}{
		{"quadrants at z1", orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{10, 10}}, 1},
		{"single point", orb.Bound{Min: orb.Point{136.9, 37.4}, Max: orb.Point{136.9, 37.4}}, 14},
		{"city at z12", orb.Bound{Min: orb.Point{136.5, 37.0}, Max: orb.Point{137.5, 37.8}}, 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keys := CoverBound(tc.b, tc.zoom)
			if len(keys) == 0 {
				t.Fatal("no keys")
			}
			seen := make(map[Key]bool, len(keys))
			xMin, xMax := keys[0].X, keys[0].X
			yMin, yMax := keys[0].Y, keys[0].Y
			for _, k := range keys {
				if seen[k] {
					t.Fatalf("duplicate key %v", k)
				}
				seen[k] = true
				xMin, xMax = min(xMin, k.X), max(xMax, k.X)
				yMin, yMax = min(yMin, k.Y), max(yMax, k.Y)
			}
			if want := int(xMax-xMin+1) * int(yMax-yMin+1); len(keys) != want {
				t.Errorf("got %d keys for a %dx%d rectangle", len(keys), xMax-xMin+1, yMax-yMin+1)
			}
			if got := CountCovering(tc.b, tc.zoom); got != len(keys) {
				t.Errorf("CountCovering = %d, CoverBound = %d", got, len(keys))
			}
		})
	}
}

func TestCoverBoundQuadrants(t *testing.T) {
	// A bound straddling (0,0) at z1 touches all four world quadrants.
	b := orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{10, 10}}
	keys := CoverBound(b, 1)
	want := []Key{{1, 0, 0}, {1, 1, 0}, {1, 0, 1}, {1, 1, 1}}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want 4: %v", len(keys), keys)
	}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("keys[%d] = %v, want %v", i, keys[i], k)
		}
	}
}

func TestKeyString(t *testing.T) {
	k := Key{Z: 8, X: 113, Y: 51}
	if s := k.String(); s != "8/113/51" {
		t.Errorf("String() = %q", s)
	}
}

func TestKeyLessIsRowMajor(t *testing.T) {
	keys := []Key{{14, 5, 3}, {14, 4, 3}, {14, 9, 2}, {13, 99, 99}}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	want := []Key{{13, 99, 99}, {14, 9, 2}, {14, 4, 3}, {14, 5, 3}}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("sorted[%d] = %v, want %v", i, keys[i], want[i])
		}
	}
}
