package index

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/util/testutils"
)

func TestFileHeaderLayout(t *testing.T) {
	h := &FileHeader{
		Version:    Version,
		Size:       3,
		NbEvents:   300,
		TimeRange:  checkpoint.NewTimeRange(checkpoint.Nanos(1), checkpoint.Nanos(2)),
		SubVersion: SubVersionNone,
		Extra:      []byte{9, 9},
	}
	timeRange := make([]byte, maxTimeRangeSize)
	h.TimeRange.Serialize(timeRange)
	expected := testutils.Flatten(
		testutils.I32b(1),
		testutils.I32b(3),
		testutils.I64b(300),
		timeRange,
		testutils.I32b(-1),
		[]byte{9, 9},
	)
	data := h.ToBytes()
	assert.Equal(t, expected, data)
	assert.Equal(t, baseHeaderSize+2, h.Len())

	out := &FileHeader{}
	require.NoError(t, out.FromBytes(data, 2))
	assert.Equal(t, h, out)
}

func TestFileHeaderCheck(t *testing.T) {
	cases := []struct {
		assertion string
		version   int32
		sub       int32
		ok        bool
	}{
		{"matching", Version, btreeSubVersion, true},
		{"invalid version", InvalidVersion, btreeSubVersion, false},
		{"future version", Version + 1, btreeSubVersion, false},
		{"sub-version mismatch", Version, flatArraySubVersion, false},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			h := &FileHeader{Version: c.version, SubVersion: c.sub}
			err := h.check(btreeSubVersion)
			if c.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, VersionMismatchError{})
			}
		})
	}
}

func TestReadShortHeader(t *testing.T) {
	_, err := readHeader(bytes.NewReader(make([]byte, 100)), 0)
	require.ErrorIs(t, err, CorruptFileError{})
}
