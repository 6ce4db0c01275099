package domain

import (
	"context"
	"time"
)

// FlashType classifies a lightning record as reported by the sensor network.
type FlashType int

const (
	FlashCloudToGround FlashType = 0
	FlashCloudToCloud  FlashType = 1
	FlashHeartbeat     FlashType = 9
)

func (f FlashType) String() string {
	switch f {
	case FlashCloudToGround:
		return "cloud_to_ground"
	case FlashCloudToCloud:
		return "cloud_to_cloud"
	case FlashHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// StrikeRecord is the flat JSON structure emitted by the lightning feed, one
// object per message or file line. Times are Unix milliseconds.
type StrikeRecord struct {
	FlashType       int      `json:"flashType"`
	StrikeTime      int64    `json:"strikeTime"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	PeakAmps        int      `json:"peakAmps"`
	Reserved        string   `json:"reserved"`
	ICHeight        int      `json:"icHeight"`
	ReceivedTime    int64    `json:"receivedTime"`
	NumberOfSensors int      `json:"numberOfSensors"`
	Multiplicity    int      `json:"multiplicity"`
}

// RawEvent represents an unprocessed message from the source topic or file.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Strike is a validated lightning record.
type Strike struct {
	ID              string    `json:"id"`
	FlashType       FlashType `json:"flash_type"`
	Geo             Geo       `json:"geo"`
	StrikeTime      time.Time `json:"strike_time"`
	ReceivedTime    time.Time `json:"received_time"`
	PeakAmps        int       `json:"peak_amps"`
	ICHeight        int       `json:"ic_height"`
	NumberOfSensors int       `json:"number_of_sensors"`
	Multiplicity    int       `json:"multiplicity"`

	RawPayload []byte `json:"-"`
}

// IsHeartbeat reports whether the record is a sensor keep-alive rather than
// an observed flash. A heartbeat may carry coordinates but is not a strike, so it
// never raises an alert.
func (s Strike) IsHeartbeat() bool { return s.FlashType == FlashHeartbeat }

// Asset is a monitored site. Assets are shipped already bucketed: QuadKey is
// the key of the tile containing the asset.
type Asset struct {
	Name    string `json:"assetName"`
	QuadKey string `json:"quadKey"`
	Owner   string `json:"assetOwner"`
}

// Alert reports that a strike landed in the same bucket as an asset.
type Alert struct {
	ID         string    `json:"id"`
	AssetOwner string    `json:"asset_owner"`
	AssetName  string    `json:"asset_name"`
	QuadKey    string    `json:"quad_key"`
	StrikeID   string    `json:"strike_id"`
	FlashType  string    `json:"flash_type"`
	StrikeTime time.Time `json:"strike_time"`
	Geo        Geo       `json:"geo"`
	PeakAmps   int       `json:"peak_amps"`

	// Geocoding enrichment fields.
	PlaceName        string `json:"place_name,omitempty"`
	FormattedAddress string `json:"formatted_address,omitempty"`

	AlertedAt time.Time `json:"alerted_at"`
}

// Message renders the operator-facing notification line.
func (a Alert) Message() string {
	return "lightning alert for " + a.AssetOwner + ":" + a.AssetName
}
