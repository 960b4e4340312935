package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/luachunk/bytecode"
	"github.com/deepnoodle-ai/luachunk/errz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// Offsets into a Lua 5.3 chunk with 8-byte lua_Integer and lua_Number.
const (
	off53IntWidth     = 12
	off53LuacInt      = 17
	off53LuacNum      = 25
	off53MainUpvalues = 33
	off53Main         = 34
)

// Offsets into a Lua 5.1 chunk.
const (
	off51Endianness = 6
	off51Integral   = 11
	off51Main       = 12
)

func encode(t *testing.T, h bytecode.Header, main *bytecode.Prototype) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf, h, Config{}).Chunk(main))
	return buf.Bytes()
}

func decode(data []byte) (*bytecode.Chunk, error) {
	return NewDecoder(bytes.NewReader(data), Config{}).Chunk()
}

func requireKind(t *testing.T, err error, kind errz.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, errz.KindOf(err), "got %v", err)
}

func TestDecodeLua51Header(t *testing.T) {
	data := []byte("\x1bLua\x51\x00\x01\x04\x08\x04\x08\x00")
	d := NewDecoder(bytes.NewReader(data), Config{})
	h, err := d.Header()
	require.NoError(t, err)
	require.Equal(t, bytecode.Header{
		Revision:         bytecode.Lua51,
		Endianness:       bytecode.LittleEndian,
		IntWidth:         bytecode.Width4,
		SizeWidth:        bytecode.Width8,
		InstructionWidth: bytecode.Width4,
		IntegerWidth:     bytecode.Width8,
		NumberWidth:      bytecode.Width8,
	}, h)
	require.Equal(t, int64(len(data)), d.Offset())
}

func TestDecodeLua53Header(t *testing.T) {
	var data bytes.Buffer
	data.WriteString("\x1bLua\x53\x00\x19\x93\r\n\x1a\n")
	data.Write([]byte{4, 8, 4, 8, 8})
	_ = binary.Write(&data, binary.LittleEndian, int64(0x5678))
	_ = binary.Write(&data, binary.LittleEndian, 370.5)

	d := NewDecoder(bytes.NewReader(data.Bytes()), Config{})
	h, err := d.Header()
	require.NoError(t, err)
	require.Equal(t, bytecode.DefaultHeader(bytecode.Lua53), h)
	require.Equal(t, int64(off53MainUpvalues), d.Offset())
}

func allHeaders() []bytecode.Header {
	var out []bytecode.Header
	widths := []bytecode.Width{bytecode.Width4, bytecode.Width8}
	for _, rev := range []bytecode.Revision{bytecode.Lua51, bytecode.Lua53} {
		for _, e := range []bytecode.Endianness{bytecode.BigEndian, bytecode.LittleEndian} {
			for _, iw := range widths {
				for _, nw := range widths {
					h := bytecode.DefaultHeader(rev)
					h.Endianness = e
					h.IntWidth = iw
					h.SizeWidth = iw
					h.InstructionWidth = nw
					h.NumberWidth = nw
					if rev == bytecode.Lua53 {
						h.IntegerWidth = iw
					}
					out = append(out, h)
				}
			}
		}
	}
	integral := bytecode.DefaultHeader(bytecode.Lua51)
	integral.IntegralNumbers = true
	return append(out, integral)
}

func TestHeaderIdempotent(t *testing.T) {
	for _, h := range allHeaders() {
		var buf bytes.Buffer
		require.NoError(t, NewEncoder(&buf, h, Config{}).Header())
		first := append([]byte(nil), buf.Bytes()...)

		got, err := NewDecoder(&buf, Config{}).Header()
		require.NoError(t, err)
		require.Equal(t, h, got)

		buf.Reset()
		require.NoError(t, NewEncoder(&buf, got, Config{}).Header())
		require.Equal(t, first, buf.Bytes())
	}
}

func TestHeaderByteOrderDetection(t *testing.T) {
	for _, e := range []bytecode.Endianness{bytecode.BigEndian, bytecode.LittleEndian} {
		h := bytecode.DefaultHeader(bytecode.Lua53)
		h.Endianness = e
		data := encode(t, h, &bytecode.Prototype{})
		want := make([]byte, 8)
		e.ByteOrder().PutUint64(want, 0x5678)
		require.Equal(t, want, data[off53LuacInt:off53LuacNum])

		c, err := decode(data)
		require.NoError(t, err)
		require.Equal(t, e, c.Header.Endianness)
	}
}

func TestHeaderErrors(t *testing.T) {
	lua53 := encode(t, bytecode.DefaultHeader(bytecode.Lua53), &bytecode.Prototype{})
	lua51 := encode(t, bytecode.DefaultHeader(bytecode.Lua51), &bytecode.Prototype{})

	patch := func(data []byte, off int, b ...byte) []byte {
		out := append([]byte(nil), data...)
		copy(out[off:], b)
		return out
	}
	wrongNum := make([]byte, 8)
	binary.LittleEndian.PutUint64(wrongNum, math.Float64bits(370.25))

	tests := []struct {
		name string
		data []byte
		kind errz.Kind
	}{
		{"empty", nil, errz.UnexpectedEndOfInput},
		{"signature", []byte("\x1bLub\x53"), errz.BadSignature},
		{"text source", []byte("print('hi')\n"), errz.BadSignature},
		{"luajit", []byte("\x1bLJ\x02\x00"), errz.UnsupportedFormat},
		{"version", patch(lua53, 4, 0x52), errz.UnsupportedVersion},
		{"format", patch(lua53, 5, 1), errz.UnsupportedFormat},
		{"luac data", patch(lua53, 9, '\n', '\r'), errz.BadSentinelData},
		{"width", patch(lua53, off53IntWidth, 3), errz.UnsupportedWidth},
		{"int sentinel", patch(lua53, off53LuacInt, 0x79), errz.BadEndiannessSentinel},
		{"number sentinel", patch(lua53, off53LuacNum, wrongNum...), errz.BadNumberSentinel},
		{"truncated header", lua53[:20], errz.UnexpectedEndOfInput},
		{"endianness byte", patch(lua51, off51Endianness, 2), errz.UnsupportedEndianness},
		{"integral flag", patch(lua51, off51Integral, 2), errz.UnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(tt.data)
			requireKind(t, err, tt.kind)
		})
	}
}

func TestLuaJITStopsAtPrefix(t *testing.T) {
	d := NewDecoder(bytes.NewReader([]byte("\x1bLJ\x02\x00")), Config{})
	_, err := d.Header()
	requireKind(t, err, errz.UnsupportedFormat)
	require.Equal(t, int64(3), d.Offset())
}

func TestNumberSentinelTolerance(t *testing.T) {
	h := bytecode.DefaultHeader(bytecode.Lua53)
	data := encode(t, h, &bytecode.Prototype{})
	binary.LittleEndian.PutUint64(data[off53LuacNum:], math.Float64bits(370.5+1e-9))
	_, err := decode(data)
	require.NoError(t, err)
}

func TestStringEncoding53(t *testing.T) {
	h := bytecode.DefaultHeader(bytecode.Lua53)
	tests := []struct {
		name   string
		source bytecode.String
		prefix []byte
	}{
		{"absent", bytecode.String{}, []byte{0x00}},
		{"empty", bytecode.NewString(""), []byte{0x01}},
		{"253 bytes", bytecode.NewString(strings.Repeat("a", 253)), []byte{0xFE}},
		{"254 bytes", bytecode.NewString(strings.Repeat("a", 254)), []byte{0xFF, 0xFF, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			main := &bytecode.Prototype{Source: tt.source}
			data := encode(t, h, main)
			require.Equal(t, tt.prefix, data[off53Main:off53Main+len(tt.prefix)])

			c, err := decode(data)
			require.NoError(t, err)
			require.Equal(t, main, c.Main)
		})
	}
}

func TestStringEncoding51(t *testing.T) {
	h := bytecode.DefaultHeader(bytecode.Lua51)

	data := encode(t, h, &bytecode.Prototype{})
	require.Equal(t, make([]byte, 8), data[off51Main:off51Main+8])

	data = encode(t, h, &bytecode.Prototype{Source: bytecode.NewString("")})
	require.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0, 0}, data[off51Main:off51Main+9])
	c, err := decode(data)
	require.NoError(t, err)
	require.False(t, c.Main.Source.IsAbsent())
	require.Equal(t, 0, c.Main.Source.Len())

	data = encode(t, h, &bytecode.Prototype{Source: bytecode.NewString("ab")})
	require.Equal(t, []byte{3, 0, 0, 0, 0, 0, 0, 0, 'a', 'b', 0}, data[off51Main:off51Main+11])
	data[off51Main+10] = 'x'
	c, err = decode(data)
	require.NoError(t, err)
	require.Equal(t, "ab", c.Main.Source.String())
	_, err = NewDecoder(bytes.NewReader(data), Config{StrictStrings: true}).Chunk()
	requireKind(t, err, errz.BadStringTerminator)
}

func TestLongStringZeroSize(t *testing.T) {
	data := encode(t, bytecode.DefaultHeader(bytecode.Lua53), &bytecode.Prototype{})
	data = append(data[:off53Main:off53Main], append([]byte{0xFF, 0, 0, 0, 0, 0, 0, 0, 0}, data[off53Main+1:]...)...)
	_, err := decode(data)
	requireKind(t, err, errz.LengthOverflow)
}

func TestConstantTags(t *testing.T) {
	main := &bytecode.Prototype{Constants: []bytecode.Constant{
		bytecode.Nil(),
		bytecode.Bool(false),
		bytecode.Bool(true),
		bytecode.Number(-0.5),
		bytecode.Integer(math.MinInt64),
		bytecode.Str(bytecode.NewString("short")),
		bytecode.Str(bytecode.NewString(strings.Repeat("L", 300))),
		bytecode.Str(bytecode.NewString(strings.Repeat("x", 50))).WithForm(bytecode.FormLong),
	}}
	data := encode(t, bytecode.DefaultHeader(bytecode.Lua53), main)
	c, err := decode(data)
	require.NoError(t, err)
	require.Equal(t, main.Constants, c.Main.Constants)
	require.True(t, c.Main.Constants[7].IsLong())

	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf, c.Header, Config{}).Chunk(c.Main))
	require.Equal(t, data, buf.Bytes())
}

func TestIntegralNumbers51(t *testing.T) {
	h := bytecode.DefaultHeader(bytecode.Lua51)
	h.IntegralNumbers = true
	h.NumberWidth = bytecode.Width4
	main := &bytecode.Prototype{Constants: []bytecode.Constant{bytecode.Integer(-3)}}
	data := encode(t, h, main)
	c, err := decode(data)
	require.NoError(t, err)
	require.True(t, c.Header.IntegralNumbers)
	require.Equal(t, main.Constants, c.Main.Constants)

	var buf bytes.Buffer
	err = NewEncoder(&buf, h, Config{}).Chunk(&bytecode.Prototype{Constants: []bytecode.Constant{bytecode.Number(1)}})
	requireKind(t, err, errz.Unrepresentable)
}

func TestUnknownConstantTag(t *testing.T) {
	tests := []struct {
		rev bytecode.Revision
		tag byte
	}{
		{bytecode.Lua51, 0x13},
		{bytecode.Lua51, 0x14},
		{bytecode.Lua51, 0x02},
		{bytecode.Lua53, 0x05},
		{bytecode.Lua53, 0x23},
	}
	for _, tt := range tests {
		h := bytecode.DefaultHeader(tt.rev)
		data := encode(t, h, &bytecode.Prototype{Constants: []bytecode.Constant{bytecode.Nil()}})
		tagOff := constantTagOffset(h)
		require.Equal(t, byte(0x00), data[tagOff])
		data[tagOff] = tt.tag
		_, err := decode(data)
		requireKind(t, err, errz.UnknownConstantTag)
	}
}

// constantTagOffset returns the offset of the first constant tag of an
// absent-source main function with no code.
func constantTagOffset(h bytecode.Header) int {
	if h.Revision == bytecode.Lua51 {
		// size_t source, 2 ints, 4 bytes, code count, constant count
		return off51Main + int(h.SizeWidth) + 2*int(h.IntWidth) + 4 + 2*int(h.IntWidth)
	}
	// source byte, 2 ints, 3 bytes, code count, constant count
	return off53Main + 1 + 2*int(h.IntWidth) + 3 + 2*int(h.IntWidth)
}

func TestNestingTooDeep(t *testing.T) {
	main := &bytecode.Prototype{}
	p := main
	for i := 0; i < 3; i++ {
		child := &bytecode.Prototype{}
		p.Protos = []*bytecode.Prototype{child}
		p = child
	}
	h := bytecode.DefaultHeader(bytecode.Lua53)
	data := encode(t, h, main)

	_, err := NewDecoder(bytes.NewReader(data), Config{MaxDepth: 3}).Chunk()
	require.NoError(t, err)
	_, err = NewDecoder(bytes.NewReader(data), Config{MaxDepth: 2}).Chunk()
	requireKind(t, err, errz.NestingTooDeep)

	var buf bytes.Buffer
	err = NewEncoder(&buf, h, Config{MaxDepth: 2}).Chunk(main)
	requireKind(t, err, errz.NestingTooDeep)
}

func TestUpvalueCountMismatch(t *testing.T) {
	main := &bytecode.Prototype{Upvalues: []bytecode.Upvalue{bytecode.OuterStack(0)}}
	data := encode(t, bytecode.DefaultHeader(bytecode.Lua53), main)
	require.Equal(t, byte(1), data[off53MainUpvalues])

	data[off53MainUpvalues] = 2
	_, err := decode(data)
	requireKind(t, err, errz.UpvalueCountMismatch)
}

func TestNegativeCount(t *testing.T) {
	h := bytecode.DefaultHeader(bytecode.Lua53)
	data := encode(t, h, &bytecode.Prototype{})
	codeCount := off53Main + 1 + 2*int(h.IntWidth) + 3
	binary.LittleEndian.PutUint32(data[codeCount:], math.MaxUint32)
	_, err := decode(data)
	requireKind(t, err, errz.LengthOverflow)
}

func TestTruncatedChunk(t *testing.T) {
	main := &bytecode.Prototype{
		Source:    bytecode.NewString("@t.lua"),
		Code:      []bytecode.Instruction{1, 2, 3},
		Constants: []bytecode.Constant{bytecode.Str(bytecode.NewString("x"))},
	}
	for _, rev := range []bytecode.Revision{bytecode.Lua51, bytecode.Lua53} {
		data := encode(t, bytecode.DefaultHeader(rev), main.Strip())
		for n := 0; n < len(data); n++ {
			_, err := decode(data[:n])
			requireKind(t, err, errz.UnexpectedEndOfInput)
		}
	}
}

func TestDecoderLogging(t *testing.T) {
	var logs bytes.Buffer
	cfg := Config{Logger: zerolog.New(&logs).Level(zerolog.TraceLevel)}
	main := &bytecode.Prototype{Protos: []*bytecode.Prototype{{}}}
	data := encode(t, bytecode.DefaultHeader(bytecode.Lua53), main)

	_, err := NewDecoder(bytes.NewReader(data), cfg).Chunk()
	require.NoError(t, err)
	out := logs.String()
	require.Contains(t, out, `"message":"decoded chunk header"`)
	require.Contains(t, out, `"path":"main/0"`)
	require.Contains(t, out, `"revision":"5.3"`)
}

func TestEncoderRejects(t *testing.T) {
	var buf bytes.Buffer
	err := NewEncoder(&buf, bytecode.DefaultHeader(bytecode.Lua53), Config{}).Chunk(nil)
	requireKind(t, err, errz.Unrepresentable)

	err = NewEncoder(&buf, bytecode.DefaultHeader(bytecode.Lua51), Config{}).
		Chunk(&bytecode.Prototype{Upvalues: []bytecode.Upvalue{bytecode.OuterStack(0)}})
	requireKind(t, err, errz.Unrepresentable)

	err = NewEncoder(&buf, bytecode.DefaultHeader(bytecode.Lua51), Config{}).
		Chunk(&bytecode.Prototype{Constants: []bytecode.Constant{bytecode.Integer(1)}})
	requireKind(t, err, errz.Unrepresentable)
	require.True(t, errors.Is(err, errz.ErrUnrepresentable))
}
