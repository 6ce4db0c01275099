// Package domain models lightning strike records, monitored assets, and the
// alerts raised when the two share a spatial bucket.
//
// # Strike records
//
// The lightning feed emits one JSON object per strike:
//
//	{"flashType":1,"strikeTime":1446760902510,"latitude":8.7020156,"longitude":-12.2736188,
//	 "peakAmps":3034,"reserved":"000","icHeight":11829,"receivedTime":1446760915181,
//	 "numberOfSensors":6,"multiplicity":1}
//
// Flash types:
//
//	0  cloud-to-ground
//	1  cloud-to-cloud
//	9  heartbeat (sensor keep-alive, no location; dropped before bucketing)
//
// Times are Unix milliseconds and are converted to UTC. Latitude and longitude
// are required for flashes but never range-checked here: the tiling engine
// clamps them to the projectable range.
//
// # Asset registry
//
// Assets arrive pre-bucketed. Each registry line is a JSON array of assets or
// a single asset object:
//
//	[{"assetName":"Dante Street","quadKey":"023112133002","assetOwner":"6720"}]
//
// The quadKey names the tile containing the asset at the service's detail
// level (12 by default).
//
// # IDs
//
// Strike and alert IDs are truncated SHA-256 hashes of their key fields, so
// replaying a feed reproduces the same IDs. See [generateID].
package domain
