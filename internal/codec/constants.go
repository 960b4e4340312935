package codec

import (
	"github.com/deepnoodle-ai/luachunk/bytecode"
	"github.com/deepnoodle-ai/luachunk/errz"
)

func (d *Decoder) constant(field string) (bytecode.Constant, error) {
	off := d.r.Offset()
	tag, err := d.r.Byte(field)
	if err != nil {
		return bytecode.Constant{}, err
	}
	lua53 := d.h.Revision == bytecode.Lua53
	switch {
	case tag == tagNil:
		return bytecode.Nil(), nil
	case tag == tagBoolean:
		b, err := d.r.Byte(field)
		if err != nil {
			return bytecode.Constant{}, err
		}
		return bytecode.Bool(b != 0), nil
	case tag == tagNumber && d.h.IntegralNumbers:
		i, err := d.r.Int(d.h.NumberWidth, field)
		if err != nil {
			return bytecode.Constant{}, err
		}
		return bytecode.Integer(i), nil
	case tag == tagNumber:
		n, err := d.r.Float(d.h.NumberWidth, field)
		if err != nil {
			return bytecode.Constant{}, err
		}
		return bytecode.Number(n), nil
	case tag == tagInteger && lua53:
		i, err := d.r.Int(d.h.IntegerWidth, field)
		if err != nil {
			return bytecode.Constant{}, err
		}
		return bytecode.Integer(i), nil
	case tag == tagShortString, tag == tagLongString && lua53:
		s, err := d.string(field)
		if err != nil {
			return bytecode.Constant{}, err
		}
		if !lua53 {
			// Lua 5.1 has a single string tag.
			return bytecode.Str(s), nil
		}
		form := bytecode.FormShort
		if tag == tagLongString {
			form = bytecode.FormLong
		}
		return bytecode.Str(s).WithForm(form), nil
	default:
		return bytecode.Constant{}, errz.Errorf(errz.UnknownConstantTag, field, off,
			"tag 0x%02x is not defined for Lua %s", tag, d.h.Revision)
	}
}

func (e *Encoder) constant(k bytecode.Constant, field string) error {
	switch k.Kind() {
	case bytecode.ConstNil:
		return e.w.PutByte(tagNil, field)
	case bytecode.ConstBoolean:
		if err := e.w.PutByte(tagBoolean, field); err != nil {
			return err
		}
		var b byte
		if k.AsBool() {
			b = 1
		}
		return e.w.PutByte(b, field)
	case bytecode.ConstNumber:
		if e.h.IntegralNumbers {
			return errz.Errorf(errz.Unrepresentable, field, e.w.Offset(), "float constant in a chunk with integral numbers")
		}
		if err := e.w.PutByte(tagNumber, field); err != nil {
			return err
		}
		return e.w.PutFloat(k.AsNumber(), e.h.NumberWidth, field)
	case bytecode.ConstInteger:
		switch {
		case e.h.Revision == bytecode.Lua53:
			if err := e.w.PutByte(tagInteger, field); err != nil {
				return err
			}
			return e.w.PutInt(k.AsInteger(), e.h.IntegerWidth, field)
		case e.h.IntegralNumbers:
			if err := e.w.PutByte(tagNumber, field); err != nil {
				return err
			}
			return e.w.PutInt(k.AsInteger(), e.h.NumberWidth, field)
		default:
			return errz.Errorf(errz.Unrepresentable, field, e.w.Offset(), "integer constant in a Lua 5.1 chunk with float numbers")
		}
	case bytecode.ConstString:
		tag := tagShortString
		if k.IsLong() {
			if e.h.Revision != bytecode.Lua53 {
				if k.Form() == bytecode.FormLong {
					return errz.Errorf(errz.Unrepresentable, field, e.w.Offset(), "long string tag in a Lua 5.1 chunk")
				}
			} else {
				tag = tagLongString
			}
		}
		if err := e.w.PutByte(tag, field); err != nil {
			return err
		}
		return e.string(k.AsString(), field)
	default:
		return errz.Errorf(errz.Unrepresentable, field, e.w.Offset(), "constant kind %d", k.Kind())
	}
}
