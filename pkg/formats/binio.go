package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// binReader reads little-endian values and keeps the first error.
type binReader struct {
	r   *bytes.Reader
	err error
}

func newBinReader(data []byte) *binReader {
	return &binReader{r: bytes.NewReader(data)}
}

func (b *binReader) read(v any) {
	if b.err != nil {
		return
	}
	b.err = binary.Read(b.r, binary.LittleEndian, v)
}

func (b *binReader) u8() uint8 {
	var v uint8
	b.read(&v)
	return v
}

func (b *binReader) u16() uint16 {
	var v uint16
	b.read(&v)
	return v
}

func (b *binReader) i32() int32 {
	var v int32
	b.read(&v)
	return v
}

func (b *binReader) u32() uint32 {
	var v uint32
	b.read(&v)
	return v
}

func (b *binReader) f32() float32 {
	var v float32
	b.read(&v)
	return v
}

func (b *binReader) vec2() (v [2]float32) { b.read(&v); return v }
func (b *binReader) vec3() (v [3]float32) { b.read(&v); return v }
func (b *binReader) vec4() (v [4]float32) { b.read(&v); return v }

func (b *binReader) bytes(n int) []byte {
	if b.err != nil {
		return nil
	}
	if n < 0 || n > b.r.Len() {
		b.err = io.ErrUnexpectedEOF
		return nil
	}
	buf := make([]byte, n)
	_, b.err = io.ReadFull(b.r, buf)
	return buf
}

func (b *binReader) skip(n int) {
	b.bytes(n)
}

// count reads an int32 element count and checks that at least minSize
// bytes per element remain.
func (b *binReader) count(minSize int) int {
	n := b.i32()
	if b.err != nil {
		return 0
	}
	if n < 0 || int64(n)*int64(minSize) > int64(b.r.Len()) {
		b.err = io.ErrUnexpectedEOF
		return 0
	}
	return int(n)
}

// truncated reports whether the sticky error is a short read.
func (b *binReader) truncated() bool {
	return errors.Is(b.err, io.EOF) || errors.Is(b.err, io.ErrUnexpectedEOF)
}

// binWriter writes little-endian values and keeps the first error.
type binWriter struct {
	w   io.Writer
	err error
}

func (b *binWriter) write(v any) {
	if b.err != nil {
		return
	}
	b.err = binary.Write(b.w, binary.LittleEndian, v)
}

func (b *binWriter) raw(p []byte) {
	if b.err != nil {
		return
	}
	_, b.err = b.w.Write(p)
}
