package tile

import (
	"github.com/paulmach/orb/geojson"
)

// Feature is one overlay polygon (or line/point) from an upstream tile.
// It's an alias of geojson.Feature with surface-classification annotations
// stored in properties, so it marshals as plain GeoJSON for collaborators.
type Feature geojson.Feature

// Property keys written by classification. The rendering collaborator
// styles and groups by these, never by raw upstream attributes.
const (
	PropSurface      = "tilengine:surface"
	PropSurfaceLabel = "tilengine:surfaceLabel"
)

// SetSurface annotates the feature with its classified category and label.
// Properties are cloned before mutation; upstream decoders may share maps.
func (f *Feature) SetSurface(class, label string) {
	p := f.Properties.Clone()
	p[PropSurface] = class
	p[PropSurfaceLabel] = label
	f.Properties = p
}

func (f *Feature) Surface() string {
	return f.Properties.MustString(PropSurface, "")
}

func (f *Feature) SurfaceLabel() string {
	return f.Properties.MustString(PropSurfaceLabel, "")
}

// MarshalJSON implements the json.Marshaler interface.
func (f Feature) MarshalJSON() ([]byte, error) {
	g := geojson.Feature(f)
	return g.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *Feature) UnmarshalJSON(data []byte) error {
	g, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return err
	}
	*f = *(*Feature)(g)
	return nil
}

// Content is the ordered feature list of one fetched tile.
// A tile with no overlay features is legitimately empty, and an empty
// Content (not nil) is the canonical representation of an upstream 404.
type Content []*Feature

// Empty returns the canonical empty tile content.
func Empty() Content {
	return Content{}
}
