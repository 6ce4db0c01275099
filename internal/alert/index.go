package alert

import (
	"errors"
	"fmt"
	"sort"

	"github.com/couchcryptid/lightning-alert/internal/domain"
	"github.com/couchcryptid/lightning-alert/internal/tilesystem"
)

// ErrLevelMismatch is returned for an asset whose quadkey was computed at a
// different detail level than the index.
var ErrLevelMismatch = errors.New("asset quadkey level does not match index level")

// AssetIndex maps each bucket to every asset registered in it. It is built
// once at startup and read-only afterwards.
type AssetIndex struct {
	level   int
	buckets map[tilesystem.QuadKey][]domain.Asset
	count   int
}

// NewAssetIndex returns an empty index for quadkeys at the given level.
func NewAssetIndex(level int) *AssetIndex {
	return &AssetIndex{
		level:   level,
		buckets: make(map[tilesystem.QuadKey][]domain.Asset),
	}
}

// Add registers an asset under its pre-computed quadkey. Assets sharing a
// bucket are all kept.
func (ix *AssetIndex) Add(asset domain.Asset) error {
	_, _, level, err := tilesystem.QuadKeyToTileXY(asset.QuadKey)
	if err != nil {
		return fmt.Errorf("asset %s:%s: %w", asset.Owner, asset.Name, err)
	}
	if level != ix.level {
		return fmt.Errorf("asset %s:%s: %w: got %d, want %d", asset.Owner, asset.Name, ErrLevelMismatch, level, ix.level)
	}

	key := tilesystem.QuadKey(asset.QuadKey)
	ix.buckets[key] = append(ix.buckets[key], asset)
	ix.count++
	return nil
}

// Lookup returns the assets in a bucket.
func (ix *AssetIndex) Lookup(key tilesystem.QuadKey) []domain.Asset {
	return ix.buckets[key]
}

// Level returns the detail level of the indexed quadkeys.
func (ix *AssetIndex) Level() int { return ix.level }

// Len returns the number of indexed assets.
func (ix *AssetIndex) Len() int { return ix.count }

// Buckets returns the occupied buckets in lexical order.
func (ix *AssetIndex) Buckets() []tilesystem.QuadKey {
	keys := make([]tilesystem.QuadKey, 0, len(ix.buckets))
	for k := range ix.buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
