package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/deepnoodle-ai/luachunk/bytecode"
	"github.com/deepnoodle-ai/luachunk/errz"
	"github.com/stretchr/testify/require"
)

func TestReadIntegers(t *testing.T) {
	data := []byte{
		0x78, 0x56, 0x00, 0x00, // 0x5678, 4-byte little endian
		0xff, 0xff, 0xff, 0xff, // -1, 4-byte
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x56, 0x78, // 0x5678, 8-byte big endian
	}
	r := NewReader(bytes.NewReader(data))
	r.SetOrder(binary.LittleEndian)

	v, err := r.Int(bytecode.Width4, "a")
	require.NoError(t, err)
	require.Equal(t, int64(0x5678), v)

	v, err = r.Int(bytecode.Width4, "b")
	require.NoError(t, err)
	require.Equal(t, int64(-1), v)

	r.SetOrder(binary.BigEndian)
	u, err := r.Uint(bytecode.Width8, "c")
	require.NoError(t, err)
	require.Equal(t, uint64(0x5678), u)
	require.Equal(t, int64(len(data)), r.Offset())
}

func TestUnsignedNotSignExtended(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}))
	u, err := r.Uint(bytecode.Width4, "size")
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint32), u)
}

func TestReadFloat(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, binary.LittleEndian)
	require.NoError(t, w.PutFloat(370.5, bytecode.Width8, "n8"))
	require.NoError(t, w.PutFloat(370.5, bytecode.Width4, "n4"))
	require.NoError(t, w.PutFloat(0.1, bytecode.Width4, "lossy"))
	require.Equal(t, int64(16), w.Offset())

	r := NewReader(&buf)
	r.SetOrder(binary.LittleEndian)
	f, err := r.Float(bytecode.Width8, "n8")
	require.NoError(t, err)
	require.Equal(t, 370.5, f)
	f, err = r.Float(bytecode.Width4, "n4")
	require.NoError(t, err)
	require.Equal(t, 370.5, f)
	f, err = r.Float(bytecode.Width4, "lossy")
	require.NoError(t, err)
	require.Equal(t, float64(float32(0.1)), f)
}

func TestWriteOrders(t *testing.T) {
	tests := []struct {
		order binary.ByteOrder
		width bytecode.Width
		want  []byte
	}{
		{binary.BigEndian, bytecode.Width4, []byte{0x00, 0x00, 0x56, 0x78}},
		{binary.LittleEndian, bytecode.Width4, []byte{0x78, 0x56, 0x00, 0x00}},
		{binary.BigEndian, bytecode.Width8, []byte{0, 0, 0, 0, 0, 0, 0x56, 0x78}},
		{binary.LittleEndian, bytecode.Width8, []byte{0x78, 0x56, 0, 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		w := NewWriter(&buf, tt.order)
		require.NoError(t, w.PutInt(0x5678, tt.width, "sentinel"))
		require.Equal(t, tt.want, buf.Bytes())
	}
}

func TestWriteNegative(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, binary.BigEndian)
	require.NoError(t, w.PutInt(-2, bytecode.Width4, "line"))
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xfe}, buf.Bytes())
}

func TestWriteOverflow(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, binary.BigEndian)

	err := w.PutInt(math.MaxInt32+1, bytecode.Width4, "main.line_defined")
	require.True(t, errors.Is(err, errz.ErrValueOverflow))
	err = w.PutUint(math.MaxUint32+1, bytecode.Width4, "size")
	require.True(t, errors.Is(err, errz.ErrValueOverflow))
	err = w.PutInstruction(1<<32, bytecode.Width4, "code")
	require.True(t, errors.Is(err, errz.ErrValueOverflow))

	require.Zero(t, buf.Len())
	require.Zero(t, w.Offset())
}

func TestUnexpectedEOF(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2}))
	_, err := r.Byte("first")
	require.NoError(t, err)

	_, err = r.Int(bytecode.Width4, "main.line_defined")
	require.True(t, errors.Is(err, errz.ErrUnexpectedEndOfInput))
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	var ze *errz.Error
	require.True(t, errors.As(err, &ze))
	require.Equal(t, "main.line_defined", ze.Field)
	require.Equal(t, int64(1), ze.Offset)
	require.Equal(t, 4, ze.Expected)
	require.Equal(t, 1, ze.Actual)

	_, err = NewReader(bytes.NewReader(nil)).Byte("empty")
	require.True(t, errors.Is(err, errz.ErrUnexpectedEndOfInput))
}

func TestBytesLargeDeclaredLength(t *testing.T) {
	// The stream is far shorter than the declared length; the read must
	// fail rather than allocate the whole length up front.
	r := NewReader(bytes.NewReader(make([]byte, 10)))
	_, err := r.Bytes(1<<40, "main.source")
	require.True(t, errors.Is(err, errz.ErrUnexpectedEndOfInput))

	_, err = NewReader(bytes.NewReader(nil)).Bytes(math.MaxUint64, "main.source")
	require.True(t, errors.Is(err, errz.ErrLengthOverflow))
}

func TestBytesChunked(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 20000)
	r := NewReader(bytes.NewReader(data))
	got, err := r.Bytes(uint64(len(data)), "payload")
	require.NoError(t, err)
	require.Equal(t, data, got)
	require.Equal(t, int64(len(data)), r.Offset())

	got, err = NewReader(bytes.NewReader(nil)).Bytes(0, "empty")
	require.NoError(t, err)
	require.Empty(t, got)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	return len(p) / 2, nil
}

func TestIOErrors(t *testing.T) {
	_, err := NewReader(failingReader{}).Byte("header.version")
	require.Equal(t, errz.IO, errz.KindOf(err))
	require.Contains(t, err.Error(), "disk on fire")

	err = NewWriter(shortWriter{}, binary.BigEndian).PutBytes([]byte("\x1bLua"), "header.signature")
	require.Equal(t, errz.IO, errz.KindOf(err))
	require.True(t, errors.Is(err, io.ErrShortWrite))
}

func TestDecodeHelpers(t *testing.T) {
	p := []byte{0xff, 0xff, 0xff, 0xfe}
	require.Equal(t, int64(-2), DecodeInt(p, binary.BigEndian))
	require.Equal(t, uint64(0xfffffffe), DecodeUint(p, binary.BigEndian))
	require.Equal(t, int64(-16777217), DecodeInt(p, binary.LittleEndian))
}
