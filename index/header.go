package index

import (
	"fmt"
	"io"
	"os"

	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/util"
)

/*
Every file-backed collection starts with the same header:

    Version:    4 bytes (int32)
    Size:       4 bytes (int32, number of checkpoints)
    NbEvents:   8 bytes (int64)
    TimeRange:  1024 bytes (two timestamps, zero padded)
    SubVersion: 4 bytes (int32, SubVersionNone if unused)
    Extra:      collection-specific bytes (the B-tree keeps its root here)

The version word is also the commit marker. It holds InvalidVersion from the
first modification until Dispose has written everything else, so a file whose
version reads as Version is complete.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	// Version is the current file format version.
	Version = int32(1)

	// InvalidVersion marks a file that is being written or was torn.
	InvalidVersion = int32(-1)

	// SubVersionNone is the sub-version of collections with no extension.
	SubVersionNone = int32(-1)

	maxTimeRangeSize = 1024
	baseHeaderSize   = 4 + 4 + 8 + maxTimeRangeSize + 4
)

// FileHeader is the header shared by file-backed collections.
type FileHeader struct {
	Version    int32                `json:"version"`
	Size       int32                `json:"size"`
	NbEvents   int64                `json:"nbEvents"`
	TimeRange  checkpoint.TimeRange `json:"timeRange"`
	SubVersion int32                `json:"subVersion"`
	Extra      []byte               `json:"-"`
}

// Len returns the serialized size of the header.
func (h *FileHeader) Len() int {
	return baseHeaderSize + len(h.Extra)
}

// Valid reports whether the header was committed by a clean dispose.
func (h *FileHeader) Valid() bool {
	return h.Version == Version
}

// ToBytes serializes the header.
func (h *FileHeader) ToBytes() []byte {
	buf := make([]byte, h.Len())
	offset := util.I32(buf, h.Version)
	offset += util.I32(buf[offset:], h.Size)
	offset += util.I64(buf[offset:], h.NbEvents)
	h.TimeRange.Serialize(buf[offset:])
	offset += maxTimeRangeSize
	offset += util.I32(buf[offset:], h.SubVersion)
	copy(buf[offset:], h.Extra)
	return buf
}

// FromBytes parses a header with extraLen extension bytes. It does not check
// versions.
func (h *FileHeader) FromBytes(data []byte, extraLen int) error {
	if len(data) < baseHeaderSize+extraLen {
		return CorruptFileError{Reason: fmt.Sprintf("header needs %d bytes, have %d", baseHeaderSize+extraLen, len(data))}
	}
	offset := util.ReadI32(data, &h.Version)
	offset += util.ReadI32(data[offset:], &h.Size)
	offset += util.ReadI64(data[offset:], &h.NbEvents)
	checkpoint.ReadTimeRange(data[offset:], &h.TimeRange)
	offset += maxTimeRangeSize
	offset += util.ReadI32(data[offset:], &h.SubVersion)
	h.Extra = make([]byte, extraLen)
	copy(h.Extra, data[offset:offset+extraLen])
	return nil
}

// check verifies the version, then the sub-version.
func (h *FileHeader) check(subVersion int32) error {
	if h.Version != Version {
		return VersionMismatchError{Field: "version", Found: h.Version, Expected: Version}
	}
	if h.SubVersion != subVersion {
		return VersionMismatchError{Field: "sub-version", Found: h.SubVersion, Expected: subVersion}
	}
	return nil
}

// readHeader reads a header from r.
func readHeader(r io.ReaderAt, extraLen int) (*FileHeader, error) {
	buf := make([]byte, baseHeaderSize+extraLen)
	n, err := r.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	h := &FileHeader{}
	if err := h.FromBytes(buf[:n], extraLen); err != nil {
		return nil, err
	}
	return h, nil
}

// ReadHeader reads the header of the checkpoint file at path without
// modifying it. The extension is read for known sub-versions.
func ReadHeader(path string) (*FileHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	h, err := readHeader(f, 0)
	if err != nil {
		return nil, err
	}
	if extraLen := extensionLen(h.SubVersion); extraLen > 0 {
		return readHeader(f, extraLen)
	}
	return h, nil
}

func extensionLen(subVersion int32) int {
	switch subVersion {
	case btreeSubVersion:
		return btreeExtensionLen
	default:
		return 0
	}
}
