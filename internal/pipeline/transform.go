package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/lightning-alert/internal/alert"
	"github.com/couchcryptid/lightning-alert/internal/domain"
	"github.com/couchcryptid/lightning-alert/internal/observability"
)

// AlertTransformer implements Transformer by parsing the strike, matching it
// against the asset registry, and optionally attaching the nearest place.
type AlertTransformer struct {
	matcher  *alert.Matcher
	geocoder domain.Geocoder
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewTransformer creates an AlertTransformer. Pass a nil geocoder to disable
// place enrichment.
func NewTransformer(matcher *alert.Matcher, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) *AlertTransformer {
	return &AlertTransformer{
		matcher:  matcher,
		geocoder: geocoder,
		logger:   logger,
		metrics:  metrics,
	}
}

func (t *AlertTransformer) Transform(ctx context.Context, raw domain.RawEvent) ([]domain.Alert, error) {
	strike, err := domain.ParseRawEvent(raw)
	if err != nil {
		return nil, err
	}

	result := t.matcher.Match(strike)
	t.metrics.StrikesProcessed.WithLabelValues(result.Outcome.String()).Inc()
	if result.Outcome != alert.OutcomeMatched {
		t.logger.Debug("strike raised no alert",
			"strike_id", strike.ID,
			"bucket", result.Bucket,
			"outcome", result.Outcome.String(),
		)
		return nil, nil
	}

	t.logger.Info("strike matched assets",
		"strike_id", strike.ID,
		"bucket", result.Bucket,
		"assets", len(result.Alerts),
	)
	return domain.EnrichWithPlace(ctx, strike, result.Alerts, t.geocoder, t.logger), nil
}
