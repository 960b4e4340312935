package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/deepnoodle-ai/luachunk/bytecode"
	"github.com/deepnoodle-ai/luachunk/errz"
	"github.com/deepnoodle-ai/luachunk/internal/wire"
)

// Header decodes the chunk header and configures the decoder's byte order
// and widths for the rest of the stream.
func (d *Decoder) Header() (bytecode.Header, error) {
	var h bytecode.Header

	prefix, err := d.r.Raw(len(LuaJITPrefix), "header.signature")
	if err != nil {
		return h, err
	}
	if bytes.Equal(prefix, LuaJITPrefix) {
		return h, errz.Errorf(errz.UnsupportedFormat, "header.signature", 0, "LuaJIT bytecode is not supported")
	}
	last, err := d.r.Byte("header.signature")
	if err != nil {
		return h, err
	}
	if sig := append(prefix, last); !bytes.Equal(sig, Signature) {
		return h, errz.Mismatch(errz.BadSignature, "header.signature", 0, Signature, sig)
	}

	off := d.r.Offset()
	version, err := d.r.Byte("header.version")
	if err != nil {
		return h, err
	}
	h.Revision = bytecode.Revision(version)
	if !h.Revision.Valid() {
		return h, errz.Mismatch(errz.UnsupportedVersion, "header.version", off, "0x51 or 0x53", version)
	}

	off = d.r.Offset()
	format, err := d.r.Byte("header.format")
	if err != nil {
		return h, err
	}
	if format != 0 {
		return h, errz.Mismatch(errz.UnsupportedFormat, "header.format", off, byte(0), format)
	}

	switch h.Revision {
	case bytecode.Lua53:
		off = d.r.Offset()
		data, err := d.r.Raw(len(Lua53Data), "header.luac_data")
		if err != nil {
			return h, err
		}
		if !bytes.Equal(data, Lua53Data) {
			return h, errz.Mismatch(errz.BadSentinelData, "header.luac_data", off, Lua53Data, data)
		}
	case bytecode.Lua51:
		off = d.r.Offset()
		endian, err := d.r.Byte("header.endianness")
		if err != nil {
			return h, err
		}
		switch endian {
		case 0:
			h.Endianness = bytecode.BigEndian
		case 1:
			h.Endianness = bytecode.LittleEndian
		default:
			return h, errz.Mismatch(errz.UnsupportedEndianness, "header.endianness", off, "0 or 1", endian)
		}
	}

	if h.IntWidth, err = d.width("header.int_width"); err != nil {
		return h, err
	}
	if h.SizeWidth, err = d.width("header.size_width"); err != nil {
		return h, err
	}
	if h.InstructionWidth, err = d.width("header.instruction_width"); err != nil {
		return h, err
	}
	h.IntegerWidth = bytecode.Width8
	if h.Revision == bytecode.Lua53 {
		if h.IntegerWidth, err = d.width("header.integer_width"); err != nil {
			return h, err
		}
	}
	if h.NumberWidth, err = d.width("header.number_width"); err != nil {
		return h, err
	}

	switch h.Revision {
	case bytecode.Lua53:
		if h.Endianness, err = d.detectEndianness(h); err != nil {
			return h, err
		}
	case bytecode.Lua51:
		off = d.r.Offset()
		flag, err := d.r.Byte("header.integral_numbers")
		if err != nil {
			return h, err
		}
		if flag > 1 {
			return h, errz.Mismatch(errz.UnsupportedFormat, "header.integral_numbers", off, "0 or 1", flag)
		}
		h.IntegralNumbers = flag == 1
	}

	d.h = h
	d.r.SetOrder(h.Endianness.ByteOrder())
	d.log.Debug().
		Str("revision", h.Revision.String()).
		Str("endianness", h.Endianness.String()).
		Uint8("int_width", uint8(h.IntWidth)).
		Uint8("size_width", uint8(h.SizeWidth)).
		Uint8("instruction_width", uint8(h.InstructionWidth)).
		Uint8("integer_width", uint8(h.IntegerWidth)).
		Uint8("number_width", uint8(h.NumberWidth)).
		Msg("decoded chunk header")
	return h, nil
}

func (d *Decoder) width(field string) (bytecode.Width, error) {
	off := d.r.Offset()
	b, err := d.r.Byte(field)
	if err != nil {
		return 0, err
	}
	w := bytecode.Width(b)
	if !w.Valid() {
		return 0, errz.Mismatch(errz.UnsupportedWidth, field, off, "4 or 8", b)
	}
	return w, nil
}

// detectEndianness reads LUAC_INT and LUAC_NUM and infers the byte order
// the chunk was written with: big endian first, then little endian.
func (d *Decoder) detectEndianness(h bytecode.Header) (bytecode.Endianness, error) {
	intOff := d.r.Offset()
	rawInt, err := d.r.Raw(int(h.IntegerWidth), "header.luac_int")
	if err != nil {
		return 0, err
	}
	numOff := d.r.Offset()
	rawNum, err := d.r.Raw(int(h.NumberWidth), "header.luac_num")
	if err != nil {
		return 0, err
	}

	var order binary.ByteOrder
	endian := bytecode.BigEndian
	switch {
	case wire.DecodeInt(rawInt, binary.BigEndian) == SentinelInt:
		order = binary.BigEndian
	case wire.DecodeInt(rawInt, binary.LittleEndian) == SentinelInt:
		order = binary.LittleEndian
		endian = bytecode.LittleEndian
	default:
		return 0, errz.Mismatch(errz.BadEndiannessSentinel, "header.luac_int", intOff,
			fmt.Sprintf("0x%x", SentinelInt), rawInt)
	}
	d.log.Debug().Str("endianness", endian.String()).Msg("detected byte order from sentinel")

	num := wire.DecodeFloat(rawNum, order)
	if math.Abs(num-SentinelNumber) >= NumberTolerance {
		return 0, errz.Mismatch(errz.BadNumberSentinel, "header.luac_num", numOff, SentinelNumber, num)
	}
	return endian, nil
}

type widthField struct {
	w     bytecode.Width
	field string
}

// Header writes the encoder's header. Byte order is known, so the
// sentinels are written directly in that order.
func (e *Encoder) Header() error {
	h := e.h
	if err := e.w.PutBytes(Signature, "header.signature"); err != nil {
		return err
	}
	if err := e.w.PutByte(byte(h.Revision), "header.version"); err != nil {
		return err
	}
	if err := e.w.PutByte(0, "header.format"); err != nil {
		return err
	}
	switch h.Revision {
	case bytecode.Lua53:
		if err := e.w.PutBytes(Lua53Data, "header.luac_data"); err != nil {
			return err
		}
	case bytecode.Lua51:
		var endian byte
		if h.Endianness == bytecode.LittleEndian {
			endian = 1
		}
		if err := e.w.PutByte(endian, "header.endianness"); err != nil {
			return err
		}
	default:
		return errz.Mismatch(errz.UnsupportedVersion, "header.version", 4, "0x51 or 0x53", byte(h.Revision))
	}

	widths := []widthField{
		{h.IntWidth, "header.int_width"},
		{h.SizeWidth, "header.size_width"},
		{h.InstructionWidth, "header.instruction_width"},
	}
	if h.Revision == bytecode.Lua53 {
		widths = append(widths, widthField{h.IntegerWidth, "header.integer_width"})
	}
	widths = append(widths, widthField{h.NumberWidth, "header.number_width"})
	for _, w := range widths {
		if !w.w.Valid() {
			return errz.Mismatch(errz.UnsupportedWidth, w.field, e.w.Offset(), "4 or 8", byte(w.w))
		}
		if err := e.w.PutByte(byte(w.w), w.field); err != nil {
			return err
		}
	}

	if h.Revision == bytecode.Lua53 {
		if err := e.w.PutInt(SentinelInt, h.IntegerWidth, "header.luac_int"); err != nil {
			return err
		}
		return e.w.PutFloat(SentinelNumber, h.NumberWidth, "header.luac_num")
	}
	var integral byte
	if h.IntegralNumbers {
		integral = 1
	}
	return e.w.PutByte(integral, "header.integral_numbers")
}
