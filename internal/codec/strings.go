package codec

import (
	"github.com/deepnoodle-ai/luachunk/bytecode"
	"github.com/deepnoodle-ai/luachunk/errz"
)

// string reads a string in the layout of the chunk's revision.
//
// Lua 5.1: size_t size, 0 for absent, otherwise size bytes ending in NUL.
// The last byte is dropped; it must be NUL only in strict mode.
// Lua 5.3: one byte holding length+1 (0 for absent), or 0xFF followed by a
// size_t holding length+1.
func (d *Decoder) string(field string) (bytecode.String, error) {
	off := d.r.Offset()
	if d.h.Revision == bytecode.Lua51 {
		size, err := d.r.Uint(d.h.SizeWidth, field)
		if err != nil {
			return bytecode.String{}, err
		}
		if size == 0 {
			return bytecode.String{}, nil
		}
		data, err := d.r.Bytes(size, field)
		if err != nil {
			return bytecode.String{}, err
		}
		if last := data[len(data)-1]; last != 0 {
			if d.strict {
				return bytecode.String{}, errz.Mismatch(errz.BadStringTerminator, field, off, byte(0), last)
			}
			d.log.Debug().Str("field", field).Int64("offset", off).Uint8("terminator", last).
				Msg("dropped non-NUL string terminator")
		}
		return bytecode.NewBytes(data[:len(data)-1]), nil
	}

	b, err := d.r.Byte(field)
	if err != nil {
		return bytecode.String{}, err
	}
	if b == 0 {
		return bytecode.String{}, nil
	}
	size := uint64(b)
	if b == 0xFF {
		if size, err = d.r.Uint(d.h.SizeWidth, field); err != nil {
			return bytecode.String{}, err
		}
		if size == 0 {
			return bytecode.String{}, errz.Mismatch(errz.LengthOverflow, field, off, "long string size >= 1", size)
		}
	}
	data, err := d.r.Bytes(size-1, field)
	if err != nil {
		return bytecode.String{}, err
	}
	return bytecode.NewBytes(data), nil
}

func (e *Encoder) string(s bytecode.String, field string) error {
	if e.h.Revision == bytecode.Lua51 {
		if s.IsAbsent() {
			return e.w.PutUint(0, e.h.SizeWidth, field)
		}
		if err := e.w.PutUint(uint64(s.Len())+1, e.h.SizeWidth, field); err != nil {
			return err
		}
		if err := e.w.PutBytes(s.Bytes(), field); err != nil {
			return err
		}
		return e.w.PutByte(0, field)
	}

	if s.IsAbsent() {
		return e.w.PutByte(0, field)
	}
	n := s.Len()
	if bytecode.LongForm(n) {
		if err := e.w.PutByte(0xFF, field); err != nil {
			return err
		}
		if err := e.w.PutUint(uint64(n)+1, e.h.SizeWidth, field); err != nil {
			return err
		}
	} else if err := e.w.PutByte(byte(n+1), field); err != nil {
		return err
	}
	return e.w.PutBytes(s.Bytes(), field)
}
