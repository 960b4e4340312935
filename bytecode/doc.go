// Package bytecode provides the in-memory representation of Lua binary
// chunks.
//
// This package defines plain data: a [Chunk] is a [Header] describing the
// machine layout plus the main [Prototype], which owns its nested
// prototypes. The decoder builds these values whole and the encoder
// consumes them whole; nothing in this package performs I/O.
//
// # Key Types
//
//   - [Chunk]: header plus main function
//   - [Header]: revision, byte order and the widths of C int, size_t,
//     Instruction, lua_Integer and lua_Number
//   - [Prototype]: one compiled function and its children
//   - [Constant]: a tagged constant table entry (nil, boolean, number,
//     integer, string)
//   - [String]: a byte string that distinguishes absent from empty
//
// # Revisions
//
// Two chunk formats are supported. Lua 5.1 ([Lua51]) stores an explicit
// endianness byte, an upvalue count per function and NUL-terminated
// strings. Lua 5.3 ([Lua53]) discovers byte order from sentinel values,
// stores an upvalue descriptor list and adds integer constants. Fields that
// only exist in one revision are documented as such; [Chunk.Validate]
// reports values that the chunk's revision cannot represent.
//
// # Equality
//
// Empty sequences are represented by nil slices, both by the decoder and
// by convention in callers, so that decoded and hand-built trees compare
// equal with reflect.DeepEqual.
//
// Example:
//
//	chunk := &bytecode.Chunk{
//	    Header: bytecode.DefaultHeader(bytecode.Lua53),
//	    Main: &bytecode.Prototype{
//	        Source:       bytecode.NewString("@hello.lua"),
//	        IsVararg:     1,
//	        MaxStackSize: 2,
//	        Code:         []bytecode.Instruction{0x00000026},
//	    },
//	}
//	if err := chunk.Validate(); err != nil {
//	    return err
//	}
package bytecode
