// Package wire reads and writes the fixed-width primitives of a binary
// chunk. Widths and byte order are per-chunk values supplied by the header,
// not compile-time constants.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/deepnoodle-ai/luachunk/bytecode"
	"github.com/deepnoodle-ai/luachunk/errz"
)

// readChunkSize bounds a single allocation while reading a declared length,
// so a corrupt size fails with end of input instead of exhausting memory.
const readChunkSize = 64 * 1024

// Reader decodes primitives from an io.Reader. It reads exactly the bytes
// it is asked for and never buffers ahead.
type Reader struct {
	r     io.Reader
	order binary.ByteOrder
	off   int64
	buf   [8]byte
}

// NewReader returns a big-endian Reader. Call SetOrder once the byte order
// is known.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, order: binary.BigEndian}
}

// SetOrder sets the byte order of subsequent multi-byte reads.
func (r *Reader) SetOrder(order binary.ByteOrder) {
	r.order = order
}

// Order returns the current byte order.
func (r *Reader) Order() binary.ByteOrder {
	return r.order
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.off
}

func (r *Reader) fill(p []byte, field string) error {
	start := r.off
	n, err := io.ReadFull(r.r, p)
	r.off += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return &errz.Error{
				Kind:     errz.UnexpectedEndOfInput,
				Field:    field,
				Offset:   start,
				Expected: len(p),
				Actual:   n,
				Err:      io.ErrUnexpectedEOF,
			}
		}
		return &errz.Error{Kind: errz.IO, Field: field, Offset: start, Err: err}
	}
	return nil
}

// Byte reads a single byte.
func (r *Reader) Byte(field string) (byte, error) {
	if err := r.fill(r.buf[:1], field); err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

// Raw reads n bytes into a fresh slice. It is meant for the small fixed
// fields of the header.
func (r *Reader) Raw(n int, field string) ([]byte, error) {
	p := make([]byte, n)
	if err := r.fill(p, field); err != nil {
		return nil, err
	}
	return p, nil
}

// Bytes reads a length-delimited payload of n bytes. The buffer grows as
// data arrives rather than being sized from the untrusted length.
func (r *Reader) Bytes(n uint64, field string) ([]byte, error) {
	if n > math.MaxInt {
		return nil, errz.Mismatch(errz.LengthOverflow, field, r.off, "length within int range", n)
	}
	remaining := int(n)
	first := remaining
	if first > readChunkSize {
		first = readChunkSize
	}
	out := make([]byte, 0, first)
	for remaining > 0 {
		step := remaining
		if step > readChunkSize {
			step = readChunkSize
		}
		start := len(out)
		out = append(out, make([]byte, step)...)
		if err := r.fill(out[start:], field); err != nil {
			return nil, err
		}
		remaining -= step
	}
	return out, nil
}

// Uint reads an unsigned integer of width w.
func (r *Reader) Uint(w bytecode.Width, field string) (uint64, error) {
	p := r.buf[:w]
	if err := r.fill(p, field); err != nil {
		return 0, err
	}
	return DecodeUint(p, r.order), nil
}

// Int reads a signed integer of width w, sign-extending 4-byte values.
func (r *Reader) Int(w bytecode.Width, field string) (int64, error) {
	p := r.buf[:w]
	if err := r.fill(p, field); err != nil {
		return 0, err
	}
	return DecodeInt(p, r.order), nil
}

// Float reads a float of width w, widening 4-byte values.
func (r *Reader) Float(w bytecode.Width, field string) (float64, error) {
	p := r.buf[:w]
	if err := r.fill(p, field); err != nil {
		return 0, err
	}
	return DecodeFloat(p, r.order), nil
}

// Instruction reads an opaque instruction of width w.
func (r *Reader) Instruction(w bytecode.Width, field string) (bytecode.Instruction, error) {
	v, err := r.Uint(w, field)
	return bytecode.Instruction(v), err
}

// DecodeUint interprets p (4 or 8 bytes) as an unsigned integer.
func DecodeUint(p []byte, order binary.ByteOrder) uint64 {
	if len(p) == 4 {
		return uint64(order.Uint32(p))
	}
	return order.Uint64(p)
}

// DecodeInt interprets p (4 or 8 bytes) as a signed integer.
func DecodeInt(p []byte, order binary.ByteOrder) int64 {
	if len(p) == 4 {
		return int64(int32(order.Uint32(p)))
	}
	return int64(order.Uint64(p))
}

// DecodeFloat interprets p (4 or 8 bytes) as an IEEE 754 float.
func DecodeFloat(p []byte, order binary.ByteOrder) float64 {
	if len(p) == 4 {
		return float64(math.Float32frombits(order.Uint32(p)))
	}
	return math.Float64frombits(order.Uint64(p))
}
