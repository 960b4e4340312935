package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/deepnoodle-ai/luachunk/bytecode"
	"github.com/deepnoodle-ai/luachunk/errz"
)

// Writer encodes primitives to an io.Writer. Values that do not fit the
// requested width are rejected, never truncated.
type Writer struct {
	w     io.Writer
	order binary.ByteOrder
	off   int64
	buf   [8]byte
}

// NewWriter returns a Writer using the given byte order.
func NewWriter(w io.Writer, order binary.ByteOrder) *Writer {
	return &Writer{w: w, order: order}
}

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int64 {
	return w.off
}

func (w *Writer) write(p []byte, field string) error {
	n, err := w.w.Write(p)
	start := w.off
	w.off += int64(n)
	if err != nil {
		return &errz.Error{Kind: errz.IO, Field: field, Offset: start, Err: err}
	}
	if n != len(p) {
		return &errz.Error{Kind: errz.IO, Field: field, Offset: start, Err: io.ErrShortWrite}
	}
	return nil
}

// PutByte writes a single byte.
func (w *Writer) PutByte(b byte, field string) error {
	w.buf[0] = b
	return w.write(w.buf[:1], field)
}

// PutBytes writes p verbatim.
func (w *Writer) PutBytes(p []byte, field string) error {
	if len(p) == 0 {
		return nil
	}
	return w.write(p, field)
}

// PutUint writes an unsigned integer of width wd.
func (w *Writer) PutUint(v uint64, wd bytecode.Width, field string) error {
	if !bytecode.FitsUnsigned(v, wd) {
		return errz.Mismatch(errz.ValueOverflow, field, w.off, fmt.Sprintf("%d-byte unsigned", wd), v)
	}
	p := w.buf[:wd]
	if wd == bytecode.Width4 {
		w.order.PutUint32(p, uint32(v))
	} else {
		w.order.PutUint64(p, v)
	}
	return w.write(p, field)
}

// PutInt writes a signed integer of width wd.
func (w *Writer) PutInt(v int64, wd bytecode.Width, field string) error {
	if !bytecode.FitsSigned(v, wd) {
		return errz.Mismatch(errz.ValueOverflow, field, w.off, fmt.Sprintf("%d-byte signed", wd), v)
	}
	p := w.buf[:wd]
	if wd == bytecode.Width4 {
		w.order.PutUint32(p, uint32(int32(v)))
	} else {
		w.order.PutUint64(p, uint64(v))
	}
	return w.write(p, field)
}

// PutFloat writes a float of width wd, narrowing to float32 for 4 bytes.
func (w *Writer) PutFloat(f float64, wd bytecode.Width, field string) error {
	p := w.buf[:wd]
	if wd == bytecode.Width4 {
		w.order.PutUint32(p, math.Float32bits(float32(f)))
	} else {
		w.order.PutUint64(p, math.Float64bits(f))
	}
	return w.write(p, field)
}

// PutInstruction writes an opaque instruction of width wd.
func (w *Writer) PutInstruction(ins bytecode.Instruction, wd bytecode.Width, field string) error {
	return w.PutUint(uint64(ins), wd, field)
}
