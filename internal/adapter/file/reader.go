// Package file adapts line-delimited JSON files to the pipeline: strike
// records in, the asset registry at startup, and human-readable alerts out.
package file

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/lightning-alert/internal/domain"
)

// maxLineSize bounds a single JSON record. Asset lines may hold a whole array.
const maxLineSize = 16 * 1024 * 1024

// LineReader reads one strike record per line from a stream.
// It implements pipeline.BatchExtractor and returns io.EOF once the stream is drained.
// Lines longer than maxLineSize are logged and skipped. A read error is
// reported once the lines before it have been handed out, wrapped in
// domain.ErrSourceFailed.
type LineReader struct {
	reader  *bufio.Reader
	name    string
	line    int64
	maxLine int
	logger  *slog.Logger
	err     error
}

// NewLineReader wraps r. The name is reported as the topic of each RawEvent.
func NewLineReader(r io.Reader, name string, logger *slog.Logger) *LineReader {
	return &LineReader{
		reader:  bufio.NewReaderSize(r, 64*1024),
		name:    name,
		maxLine: maxLineSize,
		logger:  logger,
	}
}

// ExtractBatch returns up to batchSize non-blank lines.
func (r *LineReader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	batch := make([]domain.RawEvent, 0, batchSize)
	for len(batch) < batchSize && r.err == nil {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		line, tooLong, err := r.readLine()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			r.err = io.EOF
			if len(line) == 0 && !tooLong {
				continue
			}
		default:
			r.err = fmt.Errorf("read %s line %d: %w: %w", r.name, r.line+1, domain.ErrSourceFailed, err)
			continue
		}
		r.line++

		if tooLong {
			r.logger.Warn("line too long, skipping record",
				"topic", r.name, "offset", r.line, "max_bytes", r.maxLine)
			continue
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		batch = append(batch, domain.RawEvent{
			Value:  line,
			Topic:  r.name,
			Offset: r.line,
		})
	}

	if len(batch) > 0 {
		return batch, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	return batch, nil
}

// readLine returns the next line including its terminator. A line whose
// length, terminator included, exceeds maxLine is consumed to its end and
// reported as tooLong.
func (r *LineReader) readLine() (line []byte, tooLong bool, err error) {
	for {
		chunk, err := r.reader.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			if len(line) > r.maxLine {
				line, tooLong = nil, true
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, tooLong, err
	}
}
