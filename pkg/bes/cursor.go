package bes

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// cursor is a bounds-checked sequential reader over an immutable byte span.
// base is the absolute file offset of buf[0] and only feeds error offsets.
type cursor struct {
	buf  []byte
	off  int
	base int
}

func newCursor(buf []byte, base int) *cursor {
	return &cursor{buf: buf, base: base}
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.off
}

func (c *cursor) pos() int {
	return c.base + c.off
}

func (c *cursor) readFixed(n int) ([]byte, error) {
	if n < 0 {
		return nil, newError(ErrMalformedChunk, c.pos(), "negative read length %d", n)
	}
	if n > c.remaining() {
		return nil, newError(ErrTruncatedInput, c.pos(), "need %d bytes, %d remain", n, c.remaining())
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// sub carves the next n bytes into an independent cursor and advances past them.
func (c *cursor) sub(n int) (*cursor, error) {
	start := c.pos()
	b, err := c.readFixed(n)
	if err != nil {
		return nil, err
	}
	return newCursor(b, start), nil
}

func (c *cursor) skip(n int) error {
	_, err := c.readFixed(n)
	return err
}

func (c *cursor) readU32() (uint32, error) {
	b, err := c.readFixed(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) readF32() (float32, error) {
	u, err := c.readU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

func (c *cursor) readVec3() (mgl32.Vec3, error) {
	var v mgl32.Vec3
	for i := range v {
		f, err := c.readF32()
		if err != nil {
			return mgl32.Vec3{}, err
		}
		v[i] = f
	}
	return v, nil
}

func (c *cursor) readVec2() (mgl32.Vec2, error) {
	var v mgl32.Vec2
	for i := range v {
		f, err := c.readF32()
		if err != nil {
			return mgl32.Vec2{}, err
		}
		v[i] = f
	}
	return v, nil
}

// readString decodes n bytes of ASCII text with trailing NUL padding removed.
func (c *cursor) readString(n int) (string, error) {
	start := c.pos()
	b, err := c.readFixed(n)
	if err != nil {
		return "", err
	}
	b = bytes.TrimRight(b, "\x00")
	for i, ch := range b {
		if ch >= 0x80 {
			return "", newError(ErrInvalidEncoding, start+i, "non-ASCII byte 0x%02X", ch)
		}
	}
	return string(b), nil
}

// readSizedString reads a u32 length followed by that many string bytes.
func (c *cursor) readSizedString() (string, error) {
	n, err := c.readU32()
	if err != nil {
		return "", err
	}
	if uint64(n) > uint64(c.remaining()) {
		return "", newError(ErrTruncatedInput, c.pos(), "string of %d bytes, %d remain", n, c.remaining())
	}
	return c.readString(int(n))
}
