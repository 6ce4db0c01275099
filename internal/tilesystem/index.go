package tilesystem

// KeyFor returns the quadkey of the tile containing the coordinate at the
// given level.
func KeyFor(lat, lon float64, level int) QuadKey {
	pixelX, pixelY := LatLongToPixelXY(lat, lon, level)
	tileX, tileY := PixelXYToTileXY(pixelX, pixelY)
	return TileXYToQuadKey(tileX, tileY, level)
}

// Indexer buckets coordinates at a single, validated detail level.
type Indexer struct {
	level int
}

// NewIndexer returns an Indexer for level, or ErrLevelOutOfRange.
func NewIndexer(level int) (Indexer, error) {
	if err := ValidateLevel(level); err != nil {
		return Indexer{}, err
	}
	return Indexer{level: level}, nil
}

// Level returns the detail level keys are computed at.
func (ix Indexer) Level() int { return ix.level }

// KeyFor returns the bucket key for the coordinate.
func (ix Indexer) KeyFor(lat, lon float64) QuadKey {
	return KeyFor(lat, lon, ix.level)
}
