package fetch

import (
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/notomaps/tilengine/surface"
	"github.com/notomaps/tilengine/tile"
)

// DecodeContent decodes a raw GeoJSON tile payload into classified tile
// content. An empty payload is an empty tile. Feature order is preserved
// as published.
func DecodeContent(data []byte) (tile.Content, error) {
	if len(data) == 0 {
		return tile.Empty(), nil
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrFetchFailed, err)
	}
	content := make(tile.Content, 0, len(fc.Features))
	for _, feat := range fc.Features {
		f := (*tile.Feature)(feat)
		class, label := surface.Classify(feat.Properties)
		f.SetSurface(string(class), label)
		content = append(content, f)
	}
	return content, nil
}
