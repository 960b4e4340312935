package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Revision identifies a binary chunk format generation by its version byte.
type Revision uint8

const (
	// Lua51 is the Lua 5.1 chunk format.
	Lua51 Revision = 0x51
	// Lua53 is the Lua 5.3 chunk format.
	Lua53 Revision = 0x53
)

// Valid returns true if the revision is one this module can encode.
func (r Revision) Valid() bool {
	return r == Lua51 || r == Lua53
}

// String returns the Lua version the revision belongs to.
func (r Revision) String() string {
	switch r {
	case Lua51:
		return "5.1"
	case Lua53:
		return "5.3"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(r))
	}
}

// Endianness is the byte order of every multi-byte field in a chunk.
type Endianness uint8

const (
	BigEndian Endianness = iota
	LittleEndian
)

// ByteOrder returns the encoding/binary order for the endianness.
func (e Endianness) ByteOrder() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Valid returns true for BigEndian and LittleEndian.
func (e Endianness) Valid() bool {
	return e == BigEndian || e == LittleEndian
}

func (e Endianness) String() string {
	switch e {
	case BigEndian:
		return "big"
	case LittleEndian:
		return "little"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

// Width is the size in bytes of a machine type recorded in the header.
type Width uint8

const (
	Width4 Width = 4
	Width8 Width = 8
)

// Valid returns true for 4 and 8.
func (w Width) Valid() bool {
	return w == Width4 || w == Width8
}

// Header describes the machine a chunk was produced for. The widths and
// byte order fix how every later primitive in the stream is read.
type Header struct {
	Revision   Revision
	Endianness Endianness

	IntWidth         Width // C int: line numbers, counts, pcs
	SizeWidth        Width // C size_t: long string sizes
	InstructionWidth Width
	IntegerWidth     Width // lua_Integer; always 8 for Lua 5.1
	NumberWidth      Width // lua_Number

	// IntegralNumbers is the Lua 5.1 flag for builds whose lua_Number is
	// an integer type. Always false for Lua 5.3.
	IntegralNumbers bool
}

// DefaultHeader returns the header a stock 64-bit little-endian luac of
// the given revision writes.
func DefaultHeader(rev Revision) Header {
	h := Header{
		Revision:         rev,
		Endianness:       LittleEndian,
		IntWidth:         Width4,
		SizeWidth:        Width8,
		InstructionWidth: Width4,
		IntegerWidth:     Width8,
		NumberWidth:      Width8,
	}
	return h
}

// Chunk is a complete binary chunk: a header and the main function.
type Chunk struct {
	Header Header
	Main   *Prototype
}
