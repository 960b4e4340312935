package bytecode

import "bytes"

// String is a Lua byte string as stored in a chunk. The zero value is an
// absent string (a NULL in the reference implementation), which is
// distinct from a present string of length zero. No text encoding is
// assumed.
type String struct {
	data  []byte
	valid bool
}

// NewString returns a present string holding s.
func NewString(s string) String {
	if len(s) == 0 {
		return String{valid: true}
	}
	return String{data: []byte(s), valid: true}
}

// NewBytes returns a present string holding a copy of b.
func NewBytes(b []byte) String {
	if len(b) == 0 {
		return String{valid: true}
	}
	data := make([]byte, len(b))
	copy(data, b)
	return String{data: data, valid: true}
}

// IsAbsent returns true for the absent string.
func (s String) IsAbsent() bool {
	return !s.valid
}

// Len returns the number of bytes in the string.
func (s String) Len() int {
	return len(s.data)
}

// Bytes returns the string contents. The result must not be modified.
func (s String) Bytes() []byte {
	return s.data
}

// String returns the contents as a Go string.
func (s String) String() string {
	return string(s.data)
}

// Equal reports whether two strings have the same presence and contents.
func (s String) Equal(o String) bool {
	return s.valid == o.valid && bytes.Equal(s.data, o.data)
}
