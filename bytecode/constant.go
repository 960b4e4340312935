package bytecode

import (
	"fmt"
	"strconv"
)

// ConstantKind identifies the variant held by a Constant.
type ConstantKind uint8

const (
	ConstNil ConstantKind = iota
	ConstBoolean
	ConstNumber
	ConstInteger
	ConstString
)

func (k ConstantKind) String() string {
	switch k {
	case ConstNil:
		return "nil"
	case ConstBoolean:
		return "boolean"
	case ConstNumber:
		return "number"
	case ConstInteger:
		return "integer"
	case ConstString:
		return "string"
	default:
		return "unknown"
	}
}

// StringForm selects the wire tag of a string constant. It is an encoding
// hint only: both forms hold the same value.
type StringForm uint8

const (
	// FormAuto picks the long tag iff LongForm reports true for the length.
	FormAuto StringForm = iota
	// FormShort forces the 0x04 tag.
	FormShort
	// FormLong forces the 0x14 tag (Lua 5.3 only).
	FormLong
)

// LongForm reports whether a string of n bytes is written with the long
// string encoding (0xFF escape and size_t length) by default.
func LongForm(n int) bool {
	return n+1 >= 0xFF
}

// Constant is an entry of a prototype's constant table.
type Constant struct {
	kind ConstantKind
	b    bool
	n    float64
	i    int64
	s    String
	form StringForm
}

// Nil returns the nil constant.
func Nil() Constant {
	return Constant{kind: ConstNil}
}

// Bool returns a boolean constant.
func Bool(b bool) Constant {
	return Constant{kind: ConstBoolean, b: b}
}

// Number returns a float constant.
func Number(n float64) Constant {
	return Constant{kind: ConstNumber, n: n}
}

// Integer returns an integer constant.
func Integer(i int64) Constant {
	return Constant{kind: ConstInteger, i: i}
}

// Str returns a string constant.
func Str(s String) Constant {
	return Constant{kind: ConstString, s: s}
}

// Kind returns the variant of the constant.
func (c Constant) Kind() ConstantKind {
	return c.kind
}

// AsBool returns the value of a boolean constant.
func (c Constant) AsBool() bool {
	return c.b
}

// AsNumber returns the value of a number constant.
func (c Constant) AsNumber() float64 {
	return c.n
}

// AsInteger returns the value of an integer constant.
func (c Constant) AsInteger() int64 {
	return c.i
}

// AsString returns the value of a string constant.
func (c Constant) AsString() String {
	return c.s
}

// Form returns the wire form hint of a string constant.
func (c Constant) Form() StringForm {
	return c.form
}

// WithForm returns a copy of a string constant carrying the given form
// hint. A hint equal to the default for the string's length is dropped so
// that equal values compare equal regardless of how they were built.
func (c Constant) WithForm(f StringForm) Constant {
	if c.kind != ConstString {
		return c
	}
	if f == FormShort && !LongForm(c.s.Len()) || f == FormLong && LongForm(c.s.Len()) {
		f = FormAuto
	}
	c.form = f
	return c
}

// IsLong reports whether a string constant is written with the long tag.
func (c Constant) IsLong() bool {
	switch c.form {
	case FormShort:
		return false
	case FormLong:
		return true
	default:
		return LongForm(c.s.Len())
	}
}

// String returns a Lua-like literal for the constant.
func (c Constant) String() string {
	switch c.kind {
	case ConstNil:
		return "nil"
	case ConstBoolean:
		return strconv.FormatBool(c.b)
	case ConstNumber:
		return strconv.FormatFloat(c.n, 'g', -1, 64)
	case ConstInteger:
		return strconv.FormatInt(c.i, 10)
	case ConstString:
		if c.s.IsAbsent() {
			return "<absent>"
		}
		return strconv.Quote(c.s.String())
	default:
		return fmt.Sprintf("<constant kind %d>", c.kind)
	}
}
