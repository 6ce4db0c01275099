// Command validate checks the asset registry and strike fixtures against each
// other: registry integrity, parity with the CSV the registry was generated
// from, strike feed sanity, and the exact alerts the feed should raise.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -assets data/mock/assets.json \
//	  -strikes data/mock/lightning.json \
//	  -expect data/mock/expected_alerts.txt
//
//	go run ./cmd/validate -assets data/assets.json -csv data/assets.csv
package main

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/lightning-alert/internal/alert"
	"github.com/couchcryptid/lightning-alert/internal/domain"
	"github.com/couchcryptid/lightning-alert/internal/tilesystem"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	assetsPath := flag.String("assets", "", "asset registry to validate")
	csvPath := flag.String("csv", "", "optional CSV source of the registry (owner,name,lat,lon)")
	strikesPath := flag.String("strikes", "", "optional strike feed")
	expectPath := flag.String("expect", "", "optional file of expected alert lines for the strike feed")
	level := flag.Int("level", 12, "quadkey detail level of the registry")
	flag.Parse()

	if *assetsPath == "" || (*expectPath != "" && *strikesPath == "") {
		flag.Usage()
		os.Exit(1)
	}
	if err := tilesystem.ValidateLevel(*level); err != nil {
		fmt.Fprintln(os.Stderr, "-level:", err)
		os.Exit(1)
	}

	os.Exit(run(*assetsPath, *csvPath, *strikesPath, *expectPath, *level))
}

func run(assetsPath, csvPath, strikesPath, expectPath string, level int) int {
	var phases []*phase

	registry, err := readLines(assetsPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	ix, p := validateRegistry(registry, level)
	phases = append(phases, p)

	if csvPath != "" {
		phases = append(phases, validateSourceParity(csvPath, ix))
	}

	if strikesPath != "" {
		strikes, err := readLines(strikesPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		phases = append(phases, validateStrikeFeed(strikes))

		if expectPath != "" {
			expected, err := readLines(expectPath)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			phases = append(phases, validateExpectedAlerts(strikes, expected, ix))
		}
	}

	return report(phases)
}

func report(phases []*phase) int {
	failed := 0
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = "FAIL"
			failed++
		}
		fmt.Printf("[%s] %s\n", status, p.name)
		for _, n := range p.notes {
			fmt.Printf("       %s\n", n)
		}
		for _, e := range p.errors {
			fmt.Printf("     - %s\n", e)
		}
	}
	if failed > 0 {
		fmt.Printf("\n%d of %d phases failed\n", failed, len(phases))
		return 1
	}
	fmt.Printf("\nall %d phases passed\n", len(phases))
	return 0
}

func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, bytes.Clone(scanner.Bytes()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

// validateRegistry checks that every asset line parses and indexes, and that
// no asset is registered twice.
func validateRegistry(lines [][]byte, level int) (*alert.AssetIndex, *phase) {
	p := &phase{name: "asset registry integrity"}
	ix := alert.NewAssetIndex(level)
	seen := map[string]int{}

	for i, line := range lines {
		assets, err := domain.ParseAssetLine(line)
		if err != nil {
			p.errorf("line %d: %v", i+1, err)
			continue
		}
		for _, a := range assets {
			if err := ix.Add(a); err != nil {
				p.errorf("line %d: %v", i+1, err)
				continue
			}
			id := a.Owner + ":" + a.Name
			if prev, dup := seen[id]; dup {
				p.errorf("line %d: %s already registered on line %d", i+1, id, prev)
			}
			seen[id] = i + 1
		}
	}

	p.notef("%d assets in %d buckets at level %d", ix.Len(), len(ix.Buckets()), level)
	return ix, p
}

// validateSourceParity recomputes every CSV asset's quadkey and checks the
// registry holds it in that bucket.
func validateSourceParity(csvPath string, ix *alert.AssetIndex) *phase {
	p := &phase{name: "registry matches CSV source"}

	f, err := os.Open(csvPath)
	if err != nil {
		p.errorf("open: %v", err)
		return p
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		p.errorf("read csv: %v", err)
		return p
	}
	if len(rows) < 2 {
		p.errorf("no data rows")
		return p
	}

	col := map[string]int{}
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for n, row := range rows[1:] {
		owner := strings.TrimSpace(row[col["owner"]])
		name := strings.TrimSpace(row[col["name"]])
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(row[col["lat"]]), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(row[col["lon"]]), 64)
		if errLat != nil || errLon != nil {
			p.errorf("row %d: bad coordinates", n+2)
			continue
		}

		key := tilesystem.KeyFor(lat, lon, ix.Level())
		if !containsAsset(ix.Lookup(key), owner, name) {
			p.errorf("row %d: %s:%s not registered in bucket %s", n+2, owner, name, key)
		}
	}

	if want := len(rows) - 1; want != ix.Len() {
		p.errorf("CSV has %d assets, registry has %d", want, ix.Len())
	}
	return p
}

func containsAsset(assets []domain.Asset, owner, name string) bool {
	for _, a := range assets {
		if a.Owner == owner && a.Name == name {
			return true
		}
	}
	return false
}

// validateStrikeFeed reports record counts and flags implausible records.
// Malformed lines are expected in fixtures and only noted.
func validateStrikeFeed(lines [][]byte) *phase {
	p := &phase{name: "strike feed sanity"}
	counts := map[domain.FlashType]int{}
	var malformed, blank int

	for i, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			blank++
			continue
		}
		strike, err := domain.ParseRawEvent(domain.RawEvent{Value: line})
		if err != nil {
			malformed++
			continue
		}
		counts[strike.FlashType]++
		if strike.IsHeartbeat() {
			continue
		}

		if math.Abs(strike.Geo.Lat) > 90 || math.Abs(strike.Geo.Lon) > 180 {
			p.errorf("line %d: coordinates out of range (%g, %g)", i+1, strike.Geo.Lat, strike.Geo.Lon)
		}
		if !strike.ReceivedTime.IsZero() && strike.ReceivedTime.Before(strike.StrikeTime) {
			p.errorf("line %d: received before the strike happened", i+1)
		}
	}

	p.notef("cloud_to_ground=%d cloud_to_cloud=%d heartbeat=%d malformed=%d blank=%d",
		counts[domain.FlashCloudToGround], counts[domain.FlashCloudToCloud],
		counts[domain.FlashHeartbeat], malformed, blank)
	return p
}

// validateExpectedAlerts replays the feed through the matcher and compares
// the alert lines with the expected file, in order.
func validateExpectedAlerts(strikes, expected [][]byte, ix *alert.AssetIndex) *phase {
	p := &phase{name: "strike feed raises expected alerts"}

	suppressor := alert.NewSuppressor(0)
	defer suppressor.Close()
	matcher, err := alert.NewMatcher(ix, suppressor)
	if err != nil {
		p.errorf("create matcher: %v", err)
		return p
	}

	var got []string
	for _, line := range strikes {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		strike, err := domain.ParseRawEvent(domain.RawEvent{Value: line})
		if err != nil {
			continue
		}
		for _, a := range matcher.Match(strike).Alerts {
			got = append(got, a.Message())
		}
	}

	var want []string
	for _, line := range expected {
		if s := strings.TrimSpace(string(line)); s != "" {
			want = append(want, s)
		}
	}

	for i := 0; i < max(len(got), len(want)); i++ {
		switch {
		case i >= len(got):
			p.errorf("missing alert %d: %q", i+1, want[i])
		case i >= len(want):
			p.errorf("unexpected alert %d: %q", i+1, got[i])
		case got[i] != want[i]:
			p.errorf("alert %d: got %q, want %q", i+1, got[i], want[i])
		}
	}
	p.notef("%d alerts", len(got))
	return p
}
