package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMissingCoordinates is returned for a flash record without a latitude
	// or longitude.
	ErrMissingCoordinates = errors.New("missing coordinates")

	// ErrUnknownFlashType is returned for flash types the feed does not define.
	ErrUnknownFlashType = errors.New("unknown flash type")

	// ErrInvalidAsset is returned for asset records that cannot be indexed.
	ErrInvalidAsset = errors.New("invalid asset")

	// ErrSourceFailed wraps extractor errors the source cannot recover from.
	// The pipeline loads what it already read and stops.
	ErrSourceFailed = errors.New("source failed")
)

// ParseRawEvent deserializes a RawEvent's value into a Strike. Heartbeat
// records parse successfully and are left to the caller to drop.
func ParseRawEvent(raw RawEvent) (Strike, error) {
	var rec StrikeRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Strike{}, fmt.Errorf("parse raw event: %w", err)
	}

	flashType := FlashType(rec.FlashType)
	switch flashType {
	case FlashCloudToGround, FlashCloudToCloud, FlashHeartbeat:
	default:
		return Strike{}, fmt.Errorf("parse raw event: %w: %d", ErrUnknownFlashType, rec.FlashType)
	}

	strike := Strike{
		FlashType:       flashType,
		StrikeTime:      fromUnixMilli(rec.StrikeTime),
		ReceivedTime:    fromUnixMilli(rec.ReceivedTime),
		PeakAmps:        rec.PeakAmps,
		ICHeight:        rec.ICHeight,
		NumberOfSensors: rec.NumberOfSensors,
		Multiplicity:    rec.Multiplicity,
		RawPayload:      raw.Value,
	}

	if flashType != FlashHeartbeat {
		if rec.Latitude == nil || rec.Longitude == nil {
			return Strike{}, fmt.Errorf("parse raw event: %w", ErrMissingCoordinates)
		}
		strike.Geo = Geo{Lat: *rec.Latitude, Lon: *rec.Longitude}
	}

	strike.ID = generateID("strike", flashType.String(), rec.StrikeTime, strike.Geo.Lat, strike.Geo.Lon, rec.PeakAmps)
	return strike, nil
}

// ParseAssetLine decodes one line of the asset registry. A line holds either
// a JSON array of assets or a single asset object; blank lines yield nothing.
func ParseAssetLine(line []byte) ([]Asset, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, nil
	}

	var assets []Asset
	switch line[0] {
	case '[':
		if err := json.Unmarshal(line, &assets); err != nil {
			return nil, fmt.Errorf("parse asset line: %w", err)
		}
	case '{':
		var a Asset
		if err := json.Unmarshal(line, &a); err != nil {
			return nil, fmt.Errorf("parse asset line: %w", err)
		}
		assets = []Asset{a}
	default:
		return nil, fmt.Errorf("parse asset line: %w: expected JSON array or object", ErrInvalidAsset)
	}

	for i := range assets {
		assets[i].QuadKey = strings.TrimSpace(assets[i].QuadKey)
		if assets[i].QuadKey == "" {
			return nil, fmt.Errorf("parse asset line: %w: asset %q has no quadKey", ErrInvalidAsset, assets[i].Name)
		}
	}
	return assets, nil
}

// NewAlert builds the notification for a strike landing in an asset's bucket.
func NewAlert(strike Strike, asset Asset) Alert {
	return Alert{
		ID:         generateID("alert", strike.ID, asset.QuadKey, asset.Owner, asset.Name),
		AssetOwner: asset.Owner,
		AssetName:  asset.Name,
		QuadKey:    asset.QuadKey,
		StrikeID:   strike.ID,
		FlashType:  strike.FlashType.String(),
		StrikeTime: strike.StrikeTime,
		Geo:        strike.Geo,
		PeakAmps:   strike.PeakAmps,
		AlertedAt:  clock.Now(),
	}
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// generateID produces a deterministic ID from the given key fields so that
// replaying the same input yields the same IDs downstream.
func generateID(prefix string, fields ...any) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		switch v := f.(type) {
		case float64:
			parts[i] = fmt.Sprintf("%.6f", v)
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return prefix + "-" + hex.EncodeToString(hash[:8])
}
