// Package tilesystem implements the quadtree tiling scheme used to bucket
// lightning strikes and assets into comparable spatial keys.
//
// # Pipeline
//
// A coordinate travels through three stages:
//
//	(lat, lon) --projection--> pixel (x, y) --tile grid--> tile (x, y) --codec--> quadkey
//
// Projection is spherical Mercator on a square pixel map whose edge is
// 256 << level pixels. Latitudes are clamped to ±85.05112878 (the latitude at
// which the projected map becomes square) and longitudes to ±180. Clamping is
// silent: out-of-range coordinates land on the map edge instead of failing,
// which keeps keys bit-compatible with existing asset registries. Infinities
// clamp like any other out-of-range value and NaN is treated as the lower
// bound, so every input yields a pixel on the map. Boundaries that accept
// coordinates from users should reject non-finite values with
// [CheckCoordinate].
//
// Tiles are fixed 256x256 pixel squares. A tile at a given level is named by
// a quadkey: one base-4 digit per level, most significant first, where each
// digit interleaves one bit of the tile X coordinate (value 1) and one bit of
// the tile Y coordinate (value 2):
//
//	level 1:  0 | 1      level 2 of tile "1":  10 | 11
//	          --+--                            ---+---
//	          2 | 3                            12 | 13
//
// # Detail levels
//
// Valid levels are 1 through 23. The level is a precondition on the free
// functions in this package: passing an out-of-range level is a programming
// error and panics. Callers that take the level from configuration should go
// through [ValidateLevel] or [NewIndexer], which report [ErrLevelOutOfRange]
// instead.
//
// # Nesting
//
// A quadkey is a prefix of the quadkey of every tile it contains. The key for
// a point at level L is usually the first L digits of its key at a finer
// level, but not always: projection rounds to the nearest pixel at each level,
// so a point within half a pixel of a tile edge can fall on different sides
// of that edge at different levels. Derive coarser keys with [QuadKey.Parent]
// rather than by re-projecting.
//
// Every function in this package is pure and safe for concurrent use.
package tilesystem
