// Package errz defines the error taxonomy shared by the chunk decoder,
// encoder and validator.
package errz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Kind represents the category of a chunk error.
type Kind int

const (
	// KindUnknown is the zero Kind; it never appears on errors produced by
	// this module.
	KindUnknown Kind = iota
	// BadSignature indicates the stream does not start with "\x1bLua".
	BadSignature
	// UnsupportedFormat indicates a non-official format byte, a LuaJIT
	// container, or a malformed flag byte.
	UnsupportedFormat
	// UnsupportedVersion indicates a version byte other than 0x51 or 0x53.
	UnsupportedVersion
	// UnsupportedWidth indicates a size descriptor other than 4 or 8.
	UnsupportedWidth
	// UnsupportedEndianness indicates a Lua 5.1 endianness byte other than 0 or 1.
	UnsupportedEndianness
	// BadSentinelData indicates the Lua 5.3 LUAC_DATA bytes are corrupt.
	BadSentinelData
	// BadEndiannessSentinel indicates the sentinel integer matched neither byte order.
	BadEndiannessSentinel
	// BadNumberSentinel indicates the sentinel float did not match.
	BadNumberSentinel
	// UnknownConstantTag indicates an unrecognized constant type tag.
	UnknownConstantTag
	// UnexpectedEndOfInput indicates the stream ended inside a field.
	UnexpectedEndOfInput
	// LengthOverflow indicates a decoded length or count that does not fit
	// the host int type, or is negative.
	LengthOverflow
	// BadStringTerminator indicates a Lua 5.1 string without its NUL byte.
	BadStringTerminator
	// UpvalueCountMismatch indicates the main closure upvalue byte disagrees
	// with the main prototype.
	UpvalueCountMismatch
	// NestingTooDeep indicates prototypes nested beyond the configured limit.
	NestingTooDeep
	// ValueOverflow indicates a value that does not fit its declared width.
	ValueOverflow
	// Unrepresentable indicates a value the chunk's revision has no
	// encoding for.
	Unrepresentable
	// IO indicates a failure of the underlying reader or writer.
	IO
)

var kindNames = map[Kind]string{
	BadSignature:          "bad signature",
	UnsupportedFormat:     "unsupported format",
	UnsupportedVersion:    "unsupported version",
	UnsupportedWidth:      "unsupported width",
	UnsupportedEndianness: "unsupported endianness",
	BadSentinelData:       "bad sentinel data",
	BadEndiannessSentinel: "bad endianness sentinel",
	BadNumberSentinel:     "bad number sentinel",
	UnknownConstantTag:    "unknown constant tag",
	UnexpectedEndOfInput:  "unexpected end of input",
	LengthOverflow:        "length overflow",
	BadStringTerminator:   "bad string terminator",
	UpvalueCountMismatch:  "upvalue count mismatch",
	NestingTooDeep:        "nesting too deep",
	ValueOverflow:         "value overflow",
	Unrepresentable:       "unrepresentable value",
	IO:                    "i/o error",
}

// String returns the string representation of the error kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "error"
}

// Sentinels for use with errors.Is.
var (
	ErrBadSignature          = New(BadSignature)
	ErrUnsupportedFormat     = New(UnsupportedFormat)
	ErrUnsupportedVersion    = New(UnsupportedVersion)
	ErrUnsupportedWidth      = New(UnsupportedWidth)
	ErrUnsupportedEndianness = New(UnsupportedEndianness)
	ErrBadSentinelData       = New(BadSentinelData)
	ErrBadEndiannessSentinel = New(BadEndiannessSentinel)
	ErrBadNumberSentinel     = New(BadNumberSentinel)
	ErrUnknownConstantTag    = New(UnknownConstantTag)
	ErrUnexpectedEndOfInput  = New(UnexpectedEndOfInput)
	ErrLengthOverflow        = New(LengthOverflow)
	ErrBadStringTerminator   = New(BadStringTerminator)
	ErrUpvalueCountMismatch  = New(UpvalueCountMismatch)
	ErrNestingTooDeep        = New(NestingTooDeep)
	ErrValueOverflow         = New(ValueOverflow)
	ErrUnrepresentable       = New(Unrepresentable)
)

// Error describes a single wire-format violation.
type Error struct {
	Kind Kind
	// Field names the chunk field being processed, e.g. "header.int_width"
	// or "main/2.constants".
	Field string
	// Offset is the stream offset of the field, or -1 when unknown.
	Offset int64
	// Expected and Actual hold the compared values; either may be nil.
	Expected any
	Actual   any
	Err      error
}

// New returns a bare error of the given kind. Bare errors are what
// errors.Is matches against.
func New(kind Kind) *Error {
	return &Error{Kind: kind, Offset: -1}
}

// Errorf creates an error for a field at an offset with a formatted cause.
func Errorf(kind Kind, field string, offset int64, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Field:  field,
		Offset: offset,
		Err:    fmt.Errorf(format, args...),
	}
}

// Mismatch creates an error recording an expected and an actual value.
func Mismatch(kind Kind, field string, offset int64, expected, actual any) *Error {
	return &Error{
		Kind:     kind,
		Field:    field,
		Offset:   offset,
		Expected: expected,
		Actual:   actual,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Expected != nil || e.Actual != nil {
		fmt.Fprintf(&b, ": expected %s, got %s", formatValue(e.Expected), formatValue(e.Actual))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a bare error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Field != "" || t.Expected != nil || t.Actual != nil || t.Err != nil {
		return e == t
	}
	return e.Kind == t.Kind
}

// WithField returns a copy of the error with the field set if it was empty.
func (e *Error) WithField(field string) *Error {
	if e.Field != "" {
		return e
	}
	c := *e
	c.Field = field
	return &c
}

// KindOf returns the kind of the first *Error found in err's chain. For a
// multierror the first wrapped error decides.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var merr *multierror.Error
	if errors.As(err, &merr) && len(merr.Errors) > 0 {
		return KindOf(merr.Errors[0])
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "nothing"
	case []byte:
		return fmt.Sprintf("%q", v)
	case string:
		return v
	case byte:
		return fmt.Sprintf("0x%02x", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
