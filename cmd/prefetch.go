/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/notomaps/tilengine/fetch"
	"github.com/notomaps/tilengine/params"
	"github.com/notomaps/tilengine/store"
	"github.com/notomaps/tilengine/tile"
)

var (
	optPrefetchBBox  string
	optPrefetchZoom  uint32
	optPrefetchStore string
	optPrefetchURL   string
	optPrefetchDelay time.Duration
)

var prefetchCmd = &cobra.Command{
	Use:   "prefetch",
	Short: "Download a region's overlay tiles into the local store",
	Long: `Download every overlay tile covering a bounding box into the
local tile store, for offline use with 'tilengine serve --store'.

Requests are spaced out (--delay) to be polite to the upstream server.
Tiles the source does not publish are recorded as empty; individual
failures are logged and skipped. Interrupt at any time; already-stored
tiles are kept.

Example (Wajima harbor area):

  tilengine prefetch --bbox 136.87,37.39,136.90,37.42 --zoom 14`,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := parseBBox(optPrefetchBBox)
		if err != nil {
			return err
		}
		cfg := params.DefaultEngineConfig()
		urlTemplate := cfg.URLTemplate
		if optPrefetchURL != "" {
			urlTemplate = optPrefetchURL
		}

		if n := tile.CountCovering(b, optPrefetchZoom); n > 10_000 {
			return fmt.Errorf("bbox covers %d tiles at zoom %d; refusing (is the bbox west,south,east,north?)", n, optPrefetchZoom)
		}

		st, err := store.Open(optPrefetchStore)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		stats, err := st.Prefetch(ctx, fetch.NewHTTPFetcher(), urlTemplate, b, optPrefetchZoom, optPrefetchDelay)
		if err != nil {
			return err
		}
		fmt.Printf("fetched %d, empty %d, failed %d\n", stats.Fetched, stats.Empty, stats.Failed)
		return nil
	},
}

// parseBBox parses "west,south,east,north".
func parseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox must be west,south,east,north, got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox component %q: %w", p, err)
		}
		vals[i] = v
	}
	if vals[0] > vals[2] || vals[1] > vals[3] {
		return orb.Bound{}, fmt.Errorf("malformed bbox %q: min corner exceeds max", s)
	}
	return orb.Bound{Min: orb.Point{vals[0], vals[1]}, Max: orb.Point{vals[2], vals[3]}}, nil
}

func init() {
	rootCmd.AddCommand(prefetchCmd)
	prefetchCmd.Flags().StringVar(&optPrefetchBBox, "bbox", "", "region to prefetch as west,south,east,north (required)")
	prefetchCmd.Flags().Uint32Var(&optPrefetchZoom, "zoom", 14, "tile zoom level to prefetch")
	prefetchCmd.Flags().StringVar(&optPrefetchStore, "store", params.DefaultStoreConfig().Path, "tile store database file")
	prefetchCmd.Flags().StringVar(&optPrefetchURL, "url", "", "tile URL template with {z}/{x}/{y} placeholders")
	prefetchCmd.Flags().DurationVar(&optPrefetchDelay, "delay", params.DefaultStoreConfig().RequestDelay, "pause between upstream requests")
	_ = prefetchCmd.MarkFlagRequired("bbox")
}
