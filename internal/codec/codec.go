// Package codec implements the binary chunk format on top of package wire:
// the header, strings, constants and the recursive prototype layout of
// Lua 5.1 and Lua 5.3 chunks.
package codec

import (
	"github.com/deepnoodle-ai/luachunk/bytecode"
	"github.com/rs/zerolog"
)

// Format constants shared by both revisions unless noted.
var (
	// Signature starts every Lua binary chunk.
	Signature = []byte("\x1bLua")
	// LuaJITPrefix starts LuaJIT bytecode dumps, which are a different
	// format entirely.
	LuaJITPrefix = []byte("\x1bLJ")
	// Lua53Data is LUAC_DATA, used by Lua 5.3 to detect transfer corruption.
	Lua53Data = []byte("\x19\x93\r\n\x1a\n")
)

const (
	// SentinelInt is LUAC_INT, the Lua 5.3 byte order probe.
	SentinelInt = 0x5678
	// SentinelNumber is LUAC_NUM, the Lua 5.3 float format probe.
	SentinelNumber = 370.5
	// NumberTolerance is the accepted deviation of the float sentinel.
	NumberTolerance = 1e-6

	// DefaultMaxDepth is the nesting limit used when Config.MaxDepth is unset.
	DefaultMaxDepth = bytecode.DefaultMaxDepth
)

// Constant tags.
const (
	tagNil         byte = 0x00
	tagBoolean     byte = 0x01
	tagNumber      byte = 0x03
	tagShortString byte = 0x04
	tagInteger     byte = 0x13
	tagLongString  byte = 0x14
)

// Config carries per-call settings of a Decoder or Encoder.
type Config struct {
	Logger   zerolog.Logger
	MaxDepth int
	// StrictStrings rejects Lua 5.1 strings whose last byte is not NUL.
	// Otherwise the last byte is dropped whatever it holds, as lundump.c
	// does.
	StrictStrings bool
}

func (c Config) maxDepth() int {
	if c.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return c.MaxDepth
}
