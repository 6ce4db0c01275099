package tilesystem

import (
	"errors"
	"fmt"
	"math"
)

// ErrNonFiniteCoordinate is returned for a latitude or longitude that is NaN
// or infinite.
var ErrNonFiniteCoordinate = errors.New("non-finite coordinate")

const (
	// EarthRadius is the WGS-84 equatorial radius in meters.
	EarthRadius = 6378137.0

	MinLatitude  = -85.05112878
	MaxLatitude  = 85.05112878
	MinLongitude = -180.0
	MaxLongitude = 180.0

	// MinLevel and MaxLevel bound the supported detail levels. Level 23 is the
	// deepest level whose map size fits in 32 bits.
	MinLevel = 1
	MaxLevel = 23

	// metersPerInch converts screen DPI to a physical scale.
	metersPerInch = 0.0254
)

// clip bounds n to [minValue, maxValue]. NaN maps to minValue.
func clip(n, minValue, maxValue float64) float64 {
	if math.IsNaN(n) {
		return minValue
	}
	return math.Min(math.Max(n, minValue), maxValue)
}

// CheckCoordinate reports ErrNonFiniteCoordinate if lat or lon is NaN or
// infinite. Finite values outside the map are accepted and clamped by the
// projection.
func CheckCoordinate(lat, lon float64) error {
	for _, v := range [...]struct {
		name  string
		value float64
	}{{"lat", lat}, {"lon", lon}} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return fmt.Errorf("%w: %s is %v", ErrNonFiniteCoordinate, v.name, v.value)
		}
	}
	return nil
}

func mustLevel(level int) {
	if level < MinLevel || level > MaxLevel {
		panic(fmt.Sprintf("tilesystem: detail level %d out of range [%d, %d]", level, MinLevel, MaxLevel))
	}
}

// MapSize returns the width and height of the map in pixels at the given level.
func MapSize(level int) int {
	mustLevel(level)
	return TileSize << level
}

// GroundResolution returns the meters represented by one pixel at the given
// latitude and level.
func GroundResolution(lat float64, level int) float64 {
	lat = clip(lat, MinLatitude, MaxLatitude)
	return math.Cos(lat*math.Pi/180) * 2 * math.Pi * EarthRadius / float64(MapSize(level))
}

// MapScale returns the map scale denominator N of the ratio 1:N at the given
// latitude, level, and screen resolution.
func MapScale(lat float64, level, screenDPI int) float64 {
	return GroundResolution(lat, level) * float64(screenDPI) / metersPerInch
}

// LatLongToPixelXY projects a WGS-84 coordinate in degrees onto the pixel map
// at the given level. Coordinates outside the projectable range are clamped.
func LatLongToPixelXY(lat, lon float64, level int) (pixelX, pixelY int) {
	lat = clip(lat, MinLatitude, MaxLatitude)
	lon = clip(lon, MinLongitude, MaxLongitude)

	x := (lon + 180) / 360
	sinLat := math.Sin(lat * math.Pi / 180)
	y := 0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)

	mapSize := float64(MapSize(level))
	pixelX = int(clip(x*mapSize+0.5, 0, mapSize-1))
	pixelY = int(clip(y*mapSize+0.5, 0, mapSize-1))
	return pixelX, pixelY
}

// PixelXYToLatLong converts pixel coordinates at the given level back to a
// WGS-84 coordinate in degrees. Pixels outside the map are clamped first.
func PixelXYToLatLong(pixelX, pixelY, level int) (lat, lon float64) {
	mapSize := float64(MapSize(level))
	x := clip(float64(pixelX), 0, mapSize-1)/mapSize - 0.5
	y := 0.5 - clip(float64(pixelY), 0, mapSize-1)/mapSize

	lat = 90 - 360*math.Atan(math.Exp(-y*2*math.Pi))/math.Pi
	lon = 360 * x
	return lat, lon
}
