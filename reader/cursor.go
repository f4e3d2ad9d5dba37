package reader

import (
	"encoding/binary"
	"fmt"

	"github.com/vertexdlt/wasmlink/leb128"
)

// cursor is a forward-only view over the input buffer that tracks an
// absolute byte offset for diagnostics and section-boundary checks.
//
// Adapted from the teacher's util.ByteReader (vertexvm/util/bytereader.go):
// same "slice + position" shape, but every read reports how far it moved
// so the section loop can enforce "cursor == sectionStart+sectionSize"
// after a handler returns (§4.2), and every read returns an offset-tagged
// error instead of io.EOF.
type cursor struct {
	buf []byte
	pos uint32
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) offset() uint32 { return c.pos }

func (c *cursor) remaining() int { return len(c.buf) - int(c.pos) }

func (c *cursor) atEnd() bool { return int(c.pos) >= len(c.buf) }

func (c *cursor) readByte() (byte, error) {
	if c.atEnd() {
		return 0, c.errf("unexpected end of input")
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) readBytes(n uint32) ([]byte, error) {
	if uint32(c.remaining()) < n {
		return nil, c.errf("unable to read %d bytes: only %d remain", n, c.remaining())
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) readU32LE() (uint32, error) {
	b, err := c.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) readU64LE() (uint64, error) {
	b, err := c.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *cursor) readU32LEB(what string) (uint32, error) {
	v, n, err := leb128.DecodeU32(c.buf[c.pos:])
	if err != nil || n == 0 {
		return 0, c.errf("unable to read u32 leb128: %s", what)
	}
	c.pos += uint32(n)
	return v, nil
}

func (c *cursor) readI32LEB(what string) (int32, error) {
	v, n, err := leb128.DecodeI32(c.buf[c.pos:])
	if err != nil || n == 0 {
		return 0, c.errf("unable to read i32 leb128: %s", what)
	}
	c.pos += uint32(n)
	return v, nil
}

func (c *cursor) readI64LEB(what string) (int64, error) {
	v, n, err := leb128.DecodeI64(c.buf[c.pos:])
	if err != nil || n == 0 {
		return 0, c.errf("unable to read i64 leb128: %s", what)
	}
	c.pos += uint32(n)
	return v, nil
}

func (c *cursor) readName() (string, error) {
	n, err := c.readU32LEB("string length")
	if err != nil {
		return "", err
	}
	b, err := c.readBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *cursor) errf(format string, args ...interface{}) *DecodeError {
	return &DecodeError{Offset: c.pos, Message: fmt.Sprintf(format, args...)}
}
