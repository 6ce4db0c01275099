package file

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/lightning-alert/internal/alert"
	"github.com/couchcryptid/lightning-alert/internal/domain"
	"github.com/couchcryptid/lightning-alert/internal/observability"
)

// LoadAssets reads the asset registry into ix. Malformed lines and assets the
// index rejects are logged and skipped; only a read failure is returned.
func LoadAssets(r io.Reader, ix *alert.AssetIndex, logger *slog.Logger, metrics *observability.Metrics) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lineNo int
	for scanner.Scan() {
		lineNo++
		assets, err := domain.ParseAssetLine(scanner.Bytes())
		if err != nil {
			logger.Warn("skipping asset line", "line", lineNo, "error", err)
			metrics.AssetsSkipped.Inc()
			continue
		}
		for _, a := range assets {
			if err := ix.Add(a); err != nil {
				logger.Warn("skipping asset", "line", lineNo, "error", err)
				metrics.AssetsSkipped.Inc()
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read assets: %w", err)
	}

	metrics.AssetsLoaded.Set(float64(ix.Len()))
	metrics.AssetBuckets.Set(float64(len(ix.Buckets())))
	logger.Info("asset registry loaded",
		"assets", ix.Len(),
		"buckets", len(ix.Buckets()),
		"level", ix.Level(),
	)
	return nil
}
