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
	"bufio"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/notomaps/tilengine/daemon/overlayd"
	"github.com/notomaps/tilengine/engine"
	"github.com/notomaps/tilengine/fetch"
	"github.com/notomaps/tilengine/params"
	"github.com/notomaps/tilengine/store"
)

var (
	optServeListen   string
	optServeURL      string
	optServeWorkers  int
	optServeMaxTiles int
	optServeMinZoom  float64
	optServeStore    string
	optServeReplay   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the overlay daemon",
	Long: `Run the overlay HTTP daemon.

The daemon exposes the engine lifecycle (enable/disable/viewport) over
HTTP and pushes overlay commits and notices to connected websocket
viewers. The engine starts enabled.

With --store, tiles are served from the local prefetch store first and
only missing tiles go upstream (see 'tilengine prefetch').

With --replay, viewport events are additionally read from stdin as JSON
lines of the form

  {"bbox":[136.87,37.39,136.90,37.42],"zoom":12.5}

which is handy for exercising the engine against a recorded pan/zoom
session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := params.DefaultOverlayDaemonConfig()
		cfg.Address = optServeListen
		cfg.Engine.FetchWorkers = optServeWorkers
		cfg.Engine.MaxTileCount = optServeMaxTiles
		cfg.Engine.MinViewportZoom = optServeMinZoom
		if optServeURL != "" {
			cfg.Engine.URLTemplate = optServeURL
		}

		var fetcher fetch.Fetcher = fetch.NewHTTPFetcher()
		if optServeStore != "" {
			st, err := store.Open(optServeStore)
			if err != nil {
				return err
			}
			defer st.Close()
			fetcher = fetch.Fallback{Primary: store.NewFetcher(st), Secondary: fetcher}
			slog.Info("Serving from local tile store first", "path", optServeStore)
		}

		eng := engine.New(cfg.Engine, fetcher, overlayd.FeedRenderer{}, overlayd.FeedNotifier{})
		defer eng.Stop()
		eng.Enable("")

		daemon := overlayd.NewDaemon(cfg, eng)
		serveErr := make(chan error, 1)
		go func() {
			serveErr <- daemon.Run()
		}()

		if optServeReplay {
			go replayViewports(eng)
		}

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
		select {
		case err := <-serveErr:
			return err
		case sig := <-interrupt:
			slog.Warn("Interrupted", "signal", sig)
			eng.Disable()
			return nil
		}
	},
}

// replayViewports feeds stdin viewport events to the engine, one JSON
// object per line. Unparseable lines are skipped with a warning.
func replayViewports(eng *engine.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Bytes()
		bbox := gjson.GetBytes(line, "bbox").Array()
		zoom := gjson.GetBytes(line, "zoom")
		if len(bbox) != 4 || !zoom.Exists() {
			slog.Warn("Skipping malformed viewport line", "line", string(line))
			continue
		}
		b := orb.Bound{
			Min: orb.Point{bbox[0].Float(), bbox[1].Float()},
			Max: orb.Point{bbox[2].Float(), bbox[3].Float()},
		}
		eng.OnViewportChanged(b, zoom.Float())
	}
	if err := scanner.Err(); err != nil {
		slog.Error("Viewport replay read failed", "error", err)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&optServeListen, "listen", "localhost:3311", "daemon listen address")
	serveCmd.Flags().StringVar(&optServeURL, "url", "", "tile URL template with {z}/{x}/{y} placeholders (default is the GSI landuse endpoint)")
	serveCmd.Flags().IntVar(&optServeWorkers, "workers", 8, "fetch pool size (max concurrent upstream requests)")
	serveCmd.Flags().IntVar(&optServeMaxTiles, "max-tiles", 256, "max tiles one viewport may require before degrading")
	serveCmd.Flags().Float64Var(&optServeMinZoom, "min-zoom", 8, "coarsest viewport zoom served at full detail")
	serveCmd.Flags().StringVar(&optServeStore, "store", "", "local tile store to serve from first (optional)")
	serveCmd.Flags().BoolVar(&optServeReplay, "replay", false, "read viewport events from stdin as JSON lines")
}
