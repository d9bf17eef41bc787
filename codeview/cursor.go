package codeview

import (
	"encoding/binary"
	"errors"
)

var errShortRead = errors.New("unexpected end of data")

// cursor reads little-endian values from a byte slice without copying.
type cursor struct {
	data []byte
	off  int
}

func (c *cursor) remaining() int {
	return len(c.data) - c.off
}

func (c *cursor) empty() bool {
	return c.off >= len(c.data)
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if n < 0 || n > c.remaining() {
		return nil, errShortRead
	}
	b := c.data[c.off : c.off+n : c.off+n]
	c.off += n
	return b, nil
}

func (c *cursor) u8() (uint8, error) {
	b, err := c.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) u16() (uint16, error) {
	b, err := c.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *cursor) u32() (uint32, error) {
	b, err := c.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// align skips padding up to the next multiple of n, padding at the very end
// of data may be missing.
func (c *cursor) align(n int) {
	if rem := c.off % n; rem != 0 {
		c.off = min(c.off+n-rem, len(c.data))
	}
}
