package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/lightning-alert/internal/adapter/file"
	"github.com/couchcryptid/lightning-alert/internal/alert"
	"github.com/couchcryptid/lightning-alert/internal/domain"
	"github.com/couchcryptid/lightning-alert/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockPath(name string) string {
	return filepath.Join("..", "..", "data", "mock", name)
}

// TestPipeline_WithMockData runs the mock strike feed through the whole
// file-to-console path and checks the exact alert lines.
func TestPipeline_WithMockData(t *testing.T) {
	metrics := newTestMetrics()

	assets, err := os.Open(mockPath("assets.json"))
	require.NoError(t, err)
	defer assets.Close()

	ix := alert.NewAssetIndex(12)
	require.NoError(t, file.LoadAssets(assets, ix, discardLogger(), metrics))

	suppressor := alert.NewSuppressor(0)
	defer suppressor.Close()
	matcher, err := alert.NewMatcher(ix, suppressor)
	require.NoError(t, err)

	strikes, err := os.Open(mockPath("lightning.json"))
	require.NoError(t, err)
	defer strikes.Close()

	var out bytes.Buffer
	p := pipeline.New(
		file.NewLineReader(strikes, "lightning.json", discardLogger()),
		pipeline.NewTransformer(matcher, nil, discardLogger(), metrics),
		file.NewConsoleWriter(&out),
		discardLogger(), metrics, 3,
	)
	require.NoError(t, p.Run(context.Background()))

	want := []string{
		"lightning alert for Hilpert, Gleason and Lakin:6720 Dante Street",
		"lightning alert for Pacocha Group:4811 Mayer Crossing",
		"lightning alert for Kub-Torp:1342 Emard Camp",
		"lightning alert for Wolff LLC:5120 Lakin Bypass",
	}
	assert.Equal(t, want, strings.Split(strings.TrimSpace(out.String()), "\n"))

	assert.Equal(t, 10.0, collectorValue(t, metrics.MessagesConsumed))
	assert.Equal(t, 4.0, collectorValue(t, metrics.AlertsProduced))
	assert.Equal(t, 1.0, collectorValue(t, metrics.TransformErrors))
	assert.Equal(t, 1.0, collectorValue(t, metrics.AssetsSkipped))
	assert.Equal(t, 3, suppressor.Len(), "one entry per alerted bucket")
}

func TestPipeline_WithMockData_BatchSizeIndependent(t *testing.T) {
	run := func(batchSize int) string {
		metrics := newTestMetrics()
		assets, err := os.Open(mockPath("assets.json"))
		require.NoError(t, err)
		defer assets.Close()

		ix := alert.NewAssetIndex(12)
		require.NoError(t, file.LoadAssets(assets, ix, discardLogger(), metrics))
		suppressor := alert.NewSuppressor(0)
		defer suppressor.Close()
		matcher, err := alert.NewMatcher(ix, suppressor)
		require.NoError(t, err)

		strikes, err := os.Open(mockPath("lightning.json"))
		require.NoError(t, err)
		defer strikes.Close()

		var out bytes.Buffer
		p := pipeline.New(file.NewLineReader(strikes, "lightning.json", discardLogger()),
			pipeline.NewTransformer(matcher, nil, discardLogger(), metrics),
			file.NewConsoleWriter(&out), discardLogger(), metrics, batchSize)
		require.NoError(t, p.Run(context.Background()))
		return out.String()
	}

	assert.Equal(t, run(1), run(50))
}

const seattleStrike = `{"flashType":1,"strikeTime":1446760902510,"latitude":47.6,"longitude":-122.33}`

// runMockRegistry replays strikes against the mock registry and returns the
// console output and Run's error.
func runMockRegistry(t *testing.T, strikes io.Reader) (string, error) {
	t.Helper()
	metrics := newTestMetrics()
	assets, err := os.Open(mockPath("assets.json"))
	require.NoError(t, err)
	defer assets.Close()

	ix := alert.NewAssetIndex(12)
	require.NoError(t, file.LoadAssets(assets, ix, discardLogger(), metrics))
	suppressor := alert.NewSuppressor(0)
	defer suppressor.Close()
	matcher, err := alert.NewMatcher(ix, suppressor)
	require.NoError(t, err)

	var out bytes.Buffer
	p := pipeline.New(file.NewLineReader(strikes, "strikes", discardLogger()),
		pipeline.NewTransformer(matcher, nil, discardLogger(), metrics),
		file.NewConsoleWriter(&out), discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = p.Run(ctx)
	require.NoError(t, ctx.Err(), "run must finish on its own")
	return out.String(), err
}

func TestPipeline_OverlongLineSkipped(t *testing.T) {
	huge := `{"reserved":"` + strings.Repeat("x", 17*1024*1024) + `"}`
	input := seattleStrike + "\n" + huge + "\n" +
		`{"flashType":0,"strikeTime":1446760903100,"latitude":33.5524951,"longitude":-94.5822016}` + "\n"

	out, err := runMockRegistry(t, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"lightning alert for Hilpert, Gleason and Lakin:6720 Dante Street",
		"lightning alert for Pacocha Group:4811 Mayer Crossing",
		"lightning alert for Kub-Torp:1342 Emard Camp",
	}, strings.Split(strings.TrimSpace(out), "\n"))
}

type brokenDisk struct{}

func (brokenDisk) Read([]byte) (int, error) { return 0, errors.New("input/output error") }

func TestPipeline_SourceFailureStopsAfterLoadingReadRecords(t *testing.T) {
	strikes := io.MultiReader(strings.NewReader(seattleStrike+"\n"), brokenDisk{})

	out, err := runMockRegistry(t, strikes)
	require.ErrorIs(t, err, domain.ErrSourceFailed)
	assert.Contains(t, err.Error(), "input/output error")
	assert.Equal(t, []string{
		"lightning alert for Hilpert, Gleason and Lakin:6720 Dante Street",
		"lightning alert for Pacocha Group:4811 Mayer Crossing",
	}, strings.Split(strings.TrimSpace(out), "\n"))
}
