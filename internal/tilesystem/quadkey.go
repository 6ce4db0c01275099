package tilesystem

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

var (
	// ErrInvalidQuadKeyDigit is returned when a quadkey contains a character
	// other than '0' through '3'.
	ErrInvalidQuadKeyDigit = errors.New("invalid quadkey digit")

	// ErrLevelOutOfRange is returned when a detail level, or the length of a
	// quadkey, falls outside [MinLevel, MaxLevel].
	ErrLevelOutOfRange = errors.New("detail level out of range")
)

// QuadKey names a tile at a detail level equal to its length.
type QuadKey string

func (k QuadKey) String() string { return string(k) }

// Level returns the detail level implied by the key.
func (k QuadKey) Level() int { return len(k) }

// Valid reports whether the key decodes to a tile.
func (k QuadKey) Valid() error {
	_, _, _, err := QuadKeyToTileXY(string(k))
	return err
}

// Parent returns the key of the enclosing tile one level up. It reports false
// for level-1 keys, which have no parent.
func (k QuadKey) Parent() (QuadKey, bool) {
	if len(k) <= MinLevel {
		return "", false
	}
	return k[:len(k)-1], true
}

// Children returns the four tiles one level down, ordered by trailing digit.
// Keys already at MaxLevel have no children.
func (k QuadKey) Children() []QuadKey {
	if len(k) >= MaxLevel {
		return nil
	}
	return []QuadKey{k + "0", k + "1", k + "2", k + "3"}
}

// Contains reports whether other lies within the tile named by k, at any
// level at or below k's.
func (k QuadKey) Contains(other QuadKey) bool {
	return len(other) >= len(k) && other[:len(k)] == k
}

// ValidateLevel returns ErrLevelOutOfRange if level is not a supported detail level.
func ValidateLevel(level int) error {
	if level < MinLevel || level > MaxLevel {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrLevelOutOfRange, level, MinLevel, MaxLevel)
	}
	return nil
}

// TileXYToQuadKey encodes tile coordinates at the given level as a quadkey.
func TileXYToQuadKey(tileX, tileY, level int) QuadKey {
	mustLevel(level)

	key := make([]byte, level)
	for i := level; i > 0; i-- {
		digit := byte('0')
		mask := 1 << (i - 1)
		if tileX&mask != 0 {
			digit++
		}
		if tileY&mask != 0 {
			digit += 2
		}
		key[level-i] = digit
	}
	return QuadKey(key)
}

// QuadKeyToTileXY decodes a quadkey into tile coordinates. The detail level is
// the length of the key.
func QuadKeyToTileXY(key string) (tileX, tileY, level int, err error) {
	level = len(key)
	if err := ValidateLevel(level); err != nil {
		return 0, 0, 0, fmt.Errorf("quadkey %q: %w", key, err)
	}

	for i := level; i > 0; i-- {
		mask := 1 << (i - 1)
		switch key[level-i] {
		case '0':
		case '1':
			tileX |= mask
		case '2':
			tileY |= mask
		case '3':
			tileX |= mask
			tileY |= mask
		default:
			return 0, 0, 0, fmt.Errorf("quadkey %q: %w %q at position %d",
				key, ErrInvalidQuadKeyDigit, key[level-i], level-i)
		}
	}
	return tileX, tileY, level, nil
}

// Bound returns the geographic extent of the tile named by key, with points
// in [lon, lat] order.
func Bound(key QuadKey) (orb.Bound, error) {
	tileX, tileY, level, err := QuadKeyToTileXY(string(key))
	if err != nil {
		return orb.Bound{}, err
	}

	n := float64(uint64(1) << level)
	west := float64(tileX)/n*360 - 180
	east := float64(tileX+1)/n*360 - 180
	north := tileLatitude(float64(tileY), n)
	south := tileLatitude(float64(tileY+1), n)

	return orb.Bound{
		Min: orb.Point{west, south},
		Max: orb.Point{east, north},
	}, nil
}

func tileLatitude(tileY, n float64) float64 {
	return math.Atan(math.Sinh(math.Pi*(1-2*tileY/n))) * 180 / math.Pi
}
