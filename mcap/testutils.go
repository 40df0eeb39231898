package mcap

import (
	"io"
	"testing"

	"github.com/foxglove/mcap/go/mcap"
	"github.com/stretchr/testify/require"
)

// WriteFile writes an MCAP file with one message per timestamp, alternating
// between the topics given.
func WriteFile(t *testing.T, w io.Writer, timestamps []uint64, topics ...string) {
	t.Helper()
	if len(topics) == 0 {
		topics = []string{"/foo"}
	}
	writer, err := NewWriter(w)
	require.NoError(t, err)
	require.NoError(t, writer.WriteHeader(&mcap.Header{}))

	require.NoError(t, writer.WriteSchema(&mcap.Schema{
		ID:   1,
		Data: []byte{},
	}))
	for i, topic := range topics {
		require.NoError(t, writer.WriteChannel(&mcap.Channel{
			ID:       uint16(i),
			SchemaID: 1,
			Topic:    topic,
		}))
	}
	for i, ts := range timestamps {
		require.NoError(t, writer.WriteMessage(&mcap.Message{
			ChannelID: uint16(i % len(topics)),
			LogTime:   ts,
			Data:      []byte("hello"),
		}))
	}
	require.NoError(t, writer.Close())
}
