// Package alert joins lightning strikes against the asset registry and
// decides which strikes raise alerts.
package alert

import (
	"github.com/couchcryptid/lightning-alert/internal/domain"
	"github.com/couchcryptid/lightning-alert/internal/tilesystem"
)

// Outcome describes what happened to a strike offered to the Matcher.
type Outcome int

const (
	// OutcomeNoAssets means no asset shares the strike's bucket.
	OutcomeNoAssets Outcome = iota
	// OutcomeMatched means the strike raised alerts.
	OutcomeMatched
	// OutcomeSuppressed means the bucket had already alerted.
	OutcomeSuppressed
	// OutcomeHeartbeat means the record was a sensor heartbeat.
	OutcomeHeartbeat
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeHeartbeat:
		return "heartbeat"
	default:
		return "no_assets"
	}
}

// Result is the Matcher's verdict for one strike.
type Result struct {
	Bucket  tilesystem.QuadKey
	Outcome Outcome
	Alerts  []domain.Alert
}

// Matcher joins strikes against the asset index.
type Matcher struct {
	indexer    tilesystem.Indexer
	assets     *AssetIndex
	suppressor *Suppressor
}

// NewMatcher returns a Matcher bucketing strikes at the asset index's level.
func NewMatcher(assets *AssetIndex, suppressor *Suppressor) (*Matcher, error) {
	indexer, err := tilesystem.NewIndexer(assets.Level())
	if err != nil {
		return nil, err
	}
	return &Matcher{indexer: indexer, assets: assets, suppressor: suppressor}, nil
}

// Match buckets the strike and returns one alert per asset in the bucket,
// unless the bucket has already alerted.
func (m *Matcher) Match(strike domain.Strike) Result {
	if strike.IsHeartbeat() {
		return Result{Outcome: OutcomeHeartbeat}
	}

	bucket := m.indexer.KeyFor(strike.Geo.Lat, strike.Geo.Lon)
	assets := m.assets.Lookup(bucket)
	if len(assets) == 0 {
		return Result{Bucket: bucket, Outcome: OutcomeNoAssets}
	}
	if !m.suppressor.Allow(bucket, strike.StrikeTime) {
		return Result{Bucket: bucket, Outcome: OutcomeSuppressed}
	}

	alerts := make([]domain.Alert, 0, len(assets))
	for _, a := range assets {
		alerts = append(alerts, domain.NewAlert(strike, a))
	}
	return Result{Bucket: bucket, Outcome: OutcomeMatched, Alerts: alerts}
}
