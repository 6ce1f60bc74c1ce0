package params

import "time"

// EngineConfig tunes the viewport tile engine.
type EngineConfig struct {
	// TileZoom is the single pyramid level the upstream source publishes.
	// All tile keys are minted at this zoom regardless of viewport zoom.
	TileZoom uint32

	// MinViewportZoom is the coarsest viewport zoom at which per-tile
	// detail is still meaningful. Below it the engine degrades to the
	// overview layer without fetching.
	MinViewportZoom float64

	// MaxTileCount caps how many tiles one viewport may require.
	// Above it the engine degrades rather than fan out fetches.
	// This is also the only bound on cache size.
	MaxTileCount int

	// FetchWorkers is the fetch pool size: the hard cap on concurrently
	// outstanding upstream requests.
	FetchWorkers int

	// FrameInterval paces commits: at most one merge-and-commit per
	// interval, no matter how many tiles land in between.
	FrameInterval time.Duration

	// NoticeCooldown rate-limits degraded-mode user notices, per reason.
	NoticeCooldown time.Duration

	// URLTemplate is the upstream tile URL with {z}/{x}/{y} placeholders.
	// Enable() may override it.
	URLTemplate string
}

func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		TileZoom:        14,
		MinViewportZoom: 8,
		MaxTileCount:    256,
		FetchWorkers:    8,
		FrameInterval:   16 * time.Millisecond,
		NoticeCooldown:  10 * time.Second,
		URLTemplate:     DefaultTileURLTemplate,
	}
}

// DefaultTileURLTemplate is the GSI-style overlay tile endpoint.
var DefaultTileURLTemplate = "https://cyberjapandata.gsi.go.jp/xyz/landuse/{z}/{x}/{y}.geojson"
