//go:build integration

package integration_test

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/couchcryptid/lightning-alert/internal/adapter/file"
	"github.com/couchcryptid/lightning-alert/internal/alert"
	"github.com/couchcryptid/lightning-alert/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker for the duration of the test and
// returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("lightning-alert-test"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func mockPath(name string) string {
	return filepath.Join("..", "..", "data", "mock", name)
}

// loadMockStrikes returns the non-blank lines of the mock strike feed.
func loadMockStrikes(t *testing.T) [][]byte {
	t.Helper()

	f, err := os.Open(mockPath("lightning.json"))
	require.NoError(t, err)
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := bytes.TrimSpace(scanner.Bytes()); len(line) > 0 {
			lines = append(lines, bytes.Clone(line))
		}
	}
	require.NoError(t, scanner.Err())
	return lines
}

// loadMockMatcher builds a matcher over the mock asset registry.
func loadMockMatcher(t *testing.T) *alert.Matcher {
	t.Helper()

	f, err := os.Open(mockPath("assets.json"))
	require.NoError(t, err)
	defer f.Close()

	ix := alert.NewAssetIndex(12)
	require.NoError(t, file.LoadAssets(f, ix, discardLogger(), observability.NewMetricsForTesting()))

	suppressor := alert.NewSuppressor(0)
	t.Cleanup(suppressor.Close)

	matcher, err := alert.NewMatcher(ix, suppressor)
	require.NoError(t, err)
	return matcher
}
