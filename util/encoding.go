package util

/*
Encoding utilities for the fixed-layout index files. All integers are little
endian. Note that these utilities do not check lengths - callers size their
buffers from the file layout up front, and a short buffer is a programming
error that panics.
*/

import (
	"encoding/binary"
)

// ReadI32 reads an int32 from src and stores it in x, returning the read length.
func ReadI32(src []byte, x *int32) int {
	*x = int32(binary.LittleEndian.Uint32(src))
	return 4
}

// ReadI64 reads an int64 from src and stores it in x, returning the read length.
func ReadI64(src []byte, x *int64) int {
	*x = int64(binary.LittleEndian.Uint64(src))
	return 8
}


// I32 writes an int32 to dst and returns the written length.
func I32(dst []byte, src int32) int {
	binary.LittleEndian.PutUint32(dst, uint32(src))
	return 4
}

// I64 writes an int64 to dst and returns the written length.
func I64(dst []byte, src int64) int {
	binary.LittleEndian.PutUint64(dst, uint64(src))
	return 8
}
