package util

import (
	"fmt"
	"io"
)

// CountingWriter counts the bytes written through it.
type CountingWriter struct {
	w io.Writer
	n int64
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if err != nil {
		return n, fmt.Errorf("write failure: %w", err)
	}
	return n, nil
}

// Count returns the number of bytes written.
func (c *CountingWriter) Count() int64 {
	return c.n
}

func NewCountingWriter(w io.Writer) *CountingWriter {
	return &CountingWriter{w: w}
}
