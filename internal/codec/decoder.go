package codec

import (
	"io"
	"math"

	"github.com/deepnoodle-ai/luachunk/bytecode"
	"github.com/deepnoodle-ai/luachunk/errz"
	"github.com/deepnoodle-ai/luachunk/internal/wire"
	"github.com/rs/zerolog"
)

// Decoder reads one chunk from a byte source.
type Decoder struct {
	r        *wire.Reader
	h        bytecode.Header
	log      zerolog.Logger
	maxDepth int
	strict   bool
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader, cfg Config) *Decoder {
	return &Decoder{
		r:        wire.NewReader(r),
		log:      cfg.Logger,
		maxDepth: cfg.maxDepth(),
		strict:   cfg.StrictStrings,
	}
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int64 {
	return d.r.Offset()
}

// Chunk decodes a complete chunk. It consumes exactly the bytes the chunk
// occupies.
func (d *Decoder) Chunk() (*bytecode.Chunk, error) {
	h, err := d.Header()
	if err != nil {
		return nil, err
	}
	var mainUpvalues byte
	var mainUpvaluesOffset int64
	if h.Revision == bytecode.Lua53 {
		mainUpvaluesOffset = d.r.Offset()
		if mainUpvalues, err = d.r.Byte("main.closure_upvalues"); err != nil {
			return nil, err
		}
	}
	main, err := d.prototype("main", 0)
	if err != nil {
		return nil, err
	}
	if h.Revision == bytecode.Lua53 && int(mainUpvalues) != len(main.Upvalues) {
		return nil, errz.Mismatch(errz.UpvalueCountMismatch, "main.closure_upvalues", mainUpvaluesOffset,
			len(main.Upvalues), int(mainUpvalues))
	}
	d.log.Debug().Int64("bytes", d.r.Offset()).Msg("decoded chunk")
	return &bytecode.Chunk{Header: h, Main: main}, nil
}

// count reads a sequence length.
func (d *Decoder) count(field string) (int, error) {
	off := d.r.Offset()
	n, err := d.r.Int(d.h.IntWidth, field)
	if err != nil {
		return 0, err
	}
	if n < 0 || uint64(n) > math.MaxInt {
		return 0, errz.Mismatch(errz.LengthOverflow, field, off, "non-negative count", n)
	}
	return int(n), nil
}

// capHint bounds the preallocation for a count read from the stream.
func capHint(n int) int {
	if n > 1024 {
		return 1024
	}
	return n
}
