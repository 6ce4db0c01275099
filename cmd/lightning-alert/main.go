// Command lightning-alert replays a file of lightning strikes against the
// asset registry and prints one line per alerted asset.
//
// Usage:
//
//	go run ./cmd/lightning-alert \
//	  -assets data/assets.json \
//	  -strikes data/mock/lightning.json
//
// Pass -strikes - to read strikes from stdin.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/lightning-alert/internal/adapter/file"
	"github.com/couchcryptid/lightning-alert/internal/alert"
	"github.com/couchcryptid/lightning-alert/internal/observability"
	"github.com/couchcryptid/lightning-alert/internal/pipeline"
	"github.com/couchcryptid/lightning-alert/internal/tilesystem"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "lightning-alert:", err)
		os.Exit(1)
	}
}

func run() error {
	assetsPath := flag.String("assets", "data/assets.json", "asset registry, one JSON object or array per line")
	strikesPath := flag.String("strikes", "-", "strike feed, one JSON record per line (- for stdin)")
	level := flag.Int("level", 12, "quadkey detail level of the asset registry")
	batchSize := flag.Int("batch-size", 100, "strike records per batch")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "text", "log format (text, json)")
	flag.Parse()

	if err := tilesystem.ValidateLevel(*level); err != nil {
		return fmt.Errorf("-level: %w", err)
	}
	if *batchSize <= 0 {
		return fmt.Errorf("-batch-size must be positive, got %d", *batchSize)
	}

	logger := observability.NewConsoleLogger(*logLevel, *logFormat)
	metrics := observability.NewMetrics()

	assets, err := loadAssets(*assetsPath, *level, logger, metrics)
	if err != nil {
		return err
	}

	strikes, name, err := openStrikes(*strikesPath)
	if err != nil {
		return err
	}
	defer strikes.Close()

	suppressor := alert.NewSuppressor(0)
	defer suppressor.Close()

	matcher, err := alert.NewMatcher(assets, suppressor)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(
		file.NewLineReader(strikes, name, logger),
		pipeline.NewTransformer(matcher, nil, logger, metrics),
		file.NewConsoleWriter(os.Stdout),
		logger, metrics, *batchSize,
	)
	return p.Run(ctx)
}

func loadAssets(path string, level int, logger *slog.Logger, metrics *observability.Metrics) (*alert.AssetIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open assets: %w", err)
	}
	defer f.Close()

	ix := alert.NewAssetIndex(level)
	if err := file.LoadAssets(f, ix, logger, metrics); err != nil {
		return nil, err
	}
	return ix, nil
}

func openStrikes(path string) (io.ReadCloser, string, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), "stdin", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open strikes: %w", err)
	}
	return f, path, nil
}
