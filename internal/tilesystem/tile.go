package tilesystem

// TileSize is the edge length of a tile in pixels.
const TileSize = 256

// PixelXYToTileXY returns the tile containing the given pixel.
func PixelXYToTileXY(pixelX, pixelY int) (tileX, tileY int) {
	return pixelX / TileSize, pixelY / TileSize
}

// TileXYToPixelXY returns the upper-left pixel of the given tile.
func TileXYToPixelXY(tileX, tileY int) (pixelX, pixelY int) {
	return tileX * TileSize, tileY * TileSize
}
