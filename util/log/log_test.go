package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/ckpt/util/log"
)

func TestLogTags(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	buf := &bytes.Buffer{}
	log.Configure(buf, slog.LevelInfo)

	ctx := log.AddTags(context.Background(), "file", "a.idx")
	ctx = log.AddTags(ctx, "collection", "btree")
	log.Warnw(ctx, "restore failed", "reason", "version")
	log.Debugf(ctx, "hidden %d", 1)

	out := buf.String()
	assert.Contains(t, out, "msg=\"restore failed\"")
	assert.Contains(t, out, "reason=version")
	assert.Contains(t, out, "file=a.idx")
	assert.Contains(t, out, "collection=btree")
	assert.NotContains(t, out, "hidden")
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, c := range cases {
		t.Run(c.input, func(t *testing.T) {
			level, err := log.ParseLevel(c.input)
			require.NoError(t, err)
			assert.Equal(t, c.expected, level)
		})
	}
	t.Run("invalid", func(t *testing.T) {
		_, err := log.ParseLevel("loud")
		require.Error(t, err)
	})
}

func TestAddTagsRequiresPairs(t *testing.T) {
	assert.Panics(t, func() {
		log.AddTags(context.Background(), "dangling")
	})
}
