package domain

import (
	"context"
	"log/slog"
)

// EnrichWithPlace resolves the strike location once and copies the place
// onto every alert raised by that strike. A nil geocoder or a failed lookup
// leaves the alerts unchanged (graceful degradation).
func EnrichWithPlace(ctx context.Context, strike Strike, alerts []Alert, geocoder Geocoder, logger *slog.Logger) []Alert {
	if geocoder == nil || len(alerts) == 0 {
		return alerts
	}

	result, err := geocoder.ReverseGeocode(ctx, strike.Geo.Lat, strike.Geo.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"strike_id", strike.ID,
			"lat", strike.Geo.Lat,
			"lon", strike.Geo.Lon,
			"error", err,
		)
		return alerts
	}
	if result.FormattedAddress == "" {
		return alerts
	}

	for i := range alerts {
		alerts[i].PlaceName = result.PlaceName
		alerts[i].FormattedAddress = result.FormattedAddress
	}
	return alerts
}
