package stats

import (
	"bufio"
	"encoding/binary"
	"io"
)

// binWriter writes little-endian integers and keeps the first error.
type binWriter struct {
	w   *bufio.Writer
	buf [8]byte
	err error
}

func newBinWriter(w io.Writer) *binWriter {
	return &binWriter{w: bufio.NewWriter(w)}
}

func (b *binWriter) u8(v uint8) {
	if b.err != nil {
		return
	}

	b.err = b.w.WriteByte(v)
}

func (b *binWriter) u64(v uint64) {
	if b.err != nil {
		return
	}

	binary.LittleEndian.PutUint64(b.buf[:], v)
	_, b.err = b.w.Write(b.buf[:])
}

func (b *binWriter) flush() error {
	if b.err != nil {
		return b.err
	}

	return b.w.Flush()
}
