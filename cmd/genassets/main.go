// Command genassets builds an asset registry from a CSV of asset locations,
// computing each asset's quadkey with the same tiling the alert service uses.
// It can also emit a synthetic strike feed scattered around the assets.
//
// Usage:
//
//	go run ./cmd/genassets \
//	  -csv data/assets.csv \
//	  -out data/assets.json \
//	  -strikes-out data/mock/synthetic_strikes.json
package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/lightning-alert/internal/domain"
	"github.com/couchcryptid/lightning-alert/internal/tilesystem"
)

var baseTime = time.Date(2015, time.November, 5, 22, 1, 42, 0, time.UTC)

// sourceAsset is one CSV row: an asset and where it stands.
type sourceAsset struct {
	domain.Asset
	Lat float64
	Lon float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "CSV with header owner,name,lat,lon")
	out := flag.String("out", "", "output path for the asset registry")
	level := flag.Int("level", 12, "quadkey detail level")
	asArray := flag.Bool("array", false, "write the registry as a single JSON array line")
	strikesOut := flag.String("strikes-out", "", "optional output path for a synthetic strike feed")
	perAsset := flag.Int("strikes-per-asset", 5, "synthetic strikes generated around each asset")
	seed := flag.Uint64("seed", 1, "random seed for the synthetic strike feed")
	flag.Parse()

	if *csvPath == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -out")
	}
	indexer, err := tilesystem.NewIndexer(*level)
	if err != nil {
		return fmt.Errorf("-level: %w", err)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	assets, err := readAssets(f, indexer)
	if err != nil {
		return fmt.Errorf("processing %s: %w", *csvPath, err)
	}
	log.Printf("read %d assets", len(assets))

	if err := writeFile(*out, func(w io.Writer) error { return writeRegistry(w, assets, *asArray) }); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	log.Printf("wrote registry: %s", *out)

	if *strikesOut != "" {
		rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
		strikes := syntheticStrikes(assets, *perAsset, rng)
		if err := writeFile(*strikesOut, func(w io.Writer) error { return writeLines(w, strikes) }); err != nil {
			return fmt.Errorf("writing strikes: %w", err)
		}
		log.Printf("wrote %d strikes: %s", len(strikes), *strikesOut)
		printStrikeStats(assets, strikes, indexer)
	}

	printBucketStats(assets)
	return nil
}

// readAssets parses the CSV and keys every asset at the indexer's level.
func readAssets(r io.Reader, indexer tilesystem.Indexer) ([]sourceAsset, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"owner", "name", "lat", "lon"} {
		if _, ok := colIdx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	assets := make([]sourceAsset, 0, len(rows)-1)
	for n, row := range rows[1:] {
		lat, err := strconv.ParseFloat(get(row, colIdx, "lat"), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: lat: %w", n+2, err)
		}
		lon, err := strconv.ParseFloat(get(row, colIdx, "lon"), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: lon: %w", n+2, err)
		}
		if err := tilesystem.CheckCoordinate(lat, lon); err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		assets = append(assets, sourceAsset{
			Asset: domain.Asset{
				Name:    get(row, colIdx, "name"),
				Owner:   get(row, colIdx, "owner"),
				QuadKey: indexer.KeyFor(lat, lon).String(),
			},
			Lat: lat,
			Lon: lon,
		})
	}
	return assets, nil
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func writeRegistry(w io.Writer, assets []sourceAsset, asArray bool) error {
	records := make([]domain.Asset, len(assets))
	for i := range assets {
		records[i] = assets[i].Asset
	}
	if asArray {
		return writeLines(w, []any{records})
	}
	return writeLines(w, records)
}

// writeLines encodes each element of items as one JSON line.
func writeLines[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	for i := range items {
		if err := enc.Encode(items[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// syntheticStrikes scatters strikes within about 0.05 degrees of each asset.
func syntheticStrikes(assets []sourceAsset, perAsset int, rng *rand.Rand) []domain.StrikeRecord {
	strikes := make([]domain.StrikeRecord, 0, len(assets)*perAsset)
	at := baseTime
	for _, a := range assets {
		for range perAsset {
			lat := a.Lat + (rng.Float64()-0.5)*0.1
			lon := a.Lon + (rng.Float64()-0.5)*0.1
			at = at.Add(time.Duration(rng.IntN(900)+100) * time.Millisecond)

			flash := domain.FlashCloudToGround
			peak := -(rng.IntN(30000) + 1000)
			icHeight := 0
			if rng.IntN(3) == 0 {
				flash = domain.FlashCloudToCloud
				peak = -peak
				icHeight = rng.IntN(15000) + 2000
			}
			strikes = append(strikes, domain.StrikeRecord{
				FlashType:       int(flash),
				StrikeTime:      at.UnixMilli(),
				Latitude:        &lat,
				Longitude:       &lon,
				PeakAmps:        peak,
				Reserved:        "000",
				ICHeight:        icHeight,
				ReceivedTime:    at.Add(12 * time.Second).UnixMilli(),
				NumberOfSensors: rng.IntN(12) + 3,
				Multiplicity:    rng.IntN(4) + 1,
			})
		}
	}
	return strikes
}

type bucketCount struct {
	key   string
	count int
}

func printBucketStats(assets []sourceAsset) {
	counts := map[string]int{}
	for i := range assets {
		counts[assets[i].QuadKey]++
	}
	buckets := make([]bucketCount, 0, len(counts))
	for k, c := range counts {
		buckets = append(buckets, bucketCount{k, c})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].count != buckets[j].count {
			return buckets[i].count > buckets[j].count
		}
		return buckets[i].key < buckets[j].key
	})

	fmt.Println("\n=== Registry stats ===")
	fmt.Printf("Assets: %d\n", len(assets))
	fmt.Printf("Buckets: %d\n", len(buckets))
	for _, b := range buckets[:min(10, len(buckets))] {
		fmt.Printf("  %s: %d\n", b.key, b.count)
	}
}

func printStrikeStats(assets []sourceAsset, strikes []domain.StrikeRecord, indexer tilesystem.Indexer) {
	occupied := map[tilesystem.QuadKey]bool{}
	for i := range assets {
		occupied[tilesystem.QuadKey(assets[i].QuadKey)] = true
	}
	struck := map[tilesystem.QuadKey]bool{}
	var hits int
	for i := range strikes {
		key := indexer.KeyFor(*strikes[i].Latitude, *strikes[i].Longitude)
		if occupied[key] {
			hits++
			struck[key] = true
		}
	}
	fmt.Println("\n=== Strike feed stats ===")
	fmt.Printf("Strikes: %d\n", len(strikes))
	fmt.Printf("Strikes in asset buckets: %d\n", hits)
	fmt.Printf("Buckets expected to alert: %d of %d\n", len(struck), len(occupied))
}
