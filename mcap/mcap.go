package mcap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/foxglove/mcap/go/mcap"
	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/indexer"
)

/*
Package mcap indexes MCAP recordings. Messages are read in file order and
located by a PairLocation: the message log time plus the ordinal of the
message among those sharing that log time, so a reader can resume by seeking
to the log time and skipping Index messages.
*/

////////////////////////////////////////////////////////////////////////////////

const megabyte = 1024 * 1024

// NewWriter returns an MCAP writer with chunking and compression enabled.
func NewWriter(w io.Writer) (*mcap.Writer, error) {
	writer, err := mcap.NewWriter(w, &mcap.WriterOptions{
		IncludeCRC:  true,
		Chunked:     true,
		ChunkSize:   4 * megabyte,
		Compression: "zstd",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build writer: %w", err)
	}
	return writer, nil
}

// NewReader returns an MCAP reader.
func NewReader(r io.Reader) (*mcap.Reader, error) {
	reader, err := mcap.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to build reader: %w", err)
	}
	return reader, nil
}

// Index feeds every message of the recording in r to b. If topics is
// non-empty only messages on those topics are indexed.
func Index(ctx context.Context, r io.Reader, b *indexer.Builder, topics ...string) error {
	reader, err := NewReader(r)
	if err != nil {
		return err
	}
	it, err := reader.Messages(mcap.UsingIndex(false), mcap.InOrder(mcap.FileOrder))
	if err != nil {
		return fmt.Errorf("failed to read messages: %w", err)
	}
	wanted := make(map[string]bool, len(topics))
	for _, topic := range topics {
		wanted[topic] = true
	}
	var last uint64
	var ordinal int64
	for {
		_, channel, msg, err := it.Next(nil)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}
		if len(wanted) > 0 && !wanted[channel.Topic] {
			continue
		}
		if b.NbEvents() > 0 && msg.LogTime == last {
			ordinal++
		} else {
			ordinal = 0
		}
		last = msg.LogTime
		loc := checkpoint.PairLocation{Timestamp: int64(msg.LogTime), Index: ordinal}
		if err := b.Add(ctx, checkpoint.Nanos(int64(msg.LogTime)), loc); err != nil {
			return err
		}
	}
}
