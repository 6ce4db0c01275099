package file

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/couchcryptid/lightning-alert/internal/domain"
)

// ConsoleWriter prints one "lightning alert for owner:name" line per alert.
// It implements pipeline.BatchLoader.
type ConsoleWriter struct {
	w io.Writer
}

func NewConsoleWriter(w io.Writer) *ConsoleWriter {
	return &ConsoleWriter{w: w}
}

func (c *ConsoleWriter) LoadBatch(_ context.Context, alerts []domain.Alert) error {
	bw := bufio.NewWriter(c.w)
	for i := range alerts {
		if _, err := fmt.Fprintln(bw, alerts[i].Message()); err != nil {
			return fmt.Errorf("write alert: %w", err)
		}
	}
	return bw.Flush()
}
