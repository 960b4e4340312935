// Package luachunk decodes and encodes Lua binary chunks, the files
// produced by luac and loaded by lua_load.
//
// Two format revisions are supported, Lua 5.1 and Lua 5.3, in either byte
// order and with 4 or 8 byte C int, size_t, Instruction, lua_Integer and
// lua_Number types. The machine layout is read from the chunk header, so a
// chunk written on one platform can be inspected and rewritten on any
// other. LuaJIT bytecode is recognized and rejected.
//
// Decoding produces a [bytecode.Chunk]; encoding a decoded chunk yields the
// original bytes:
//
//	chunk, err := luachunk.Decode(f)
//	if err != nil {
//	    return err
//	}
//	chunk.Header.Endianness = bytecode.BigEndian
//	return luachunk.Encode(out, chunk)
//
// Errors are *errz.Error values (or a *multierror.Error of them from
// validation) and can be matched with errors.Is against the errz.Err*
// sentinels or classified with errz.KindOf.
//
// The codec keeps no global state; concurrent calls on independent
// sources and chunks are safe.
package luachunk
