package codec

import (
	"io"

	"github.com/deepnoodle-ai/luachunk/bytecode"
	"github.com/deepnoodle-ai/luachunk/errz"
	"github.com/deepnoodle-ai/luachunk/internal/wire"
	"github.com/rs/zerolog"
)

// Encoder writes one chunk to a byte sink using the layout of its header.
type Encoder struct {
	w        *wire.Writer
	h        bytecode.Header
	log      zerolog.Logger
	maxDepth int
}

// NewEncoder returns an Encoder writing chunks with header h to w.
func NewEncoder(w io.Writer, h bytecode.Header, cfg Config) *Encoder {
	return &Encoder{
		w:        wire.NewWriter(w, h.Endianness.ByteOrder()),
		h:        h,
		log:      cfg.Logger,
		maxDepth: cfg.maxDepth(),
	}
}

// Chunk encodes the header followed by main. The chunk's own header is
// ignored in favor of the one given to NewEncoder.
func (e *Encoder) Chunk(main *bytecode.Prototype) error {
	if main == nil {
		return errz.Errorf(errz.Unrepresentable, "main", e.w.Offset(), "chunk has no main function")
	}
	if err := e.Header(); err != nil {
		return err
	}
	if e.h.Revision == bytecode.Lua53 {
		if len(main.Upvalues) > 0xFF {
			return errz.Mismatch(errz.ValueOverflow, "main.closure_upvalues", e.w.Offset(), "at most 255", len(main.Upvalues))
		}
		if err := e.w.PutByte(byte(len(main.Upvalues)), "main.closure_upvalues"); err != nil {
			return err
		}
	}
	if err := e.prototype("main", 0, main); err != nil {
		return err
	}
	e.log.Debug().Int64("bytes", e.w.Offset()).Msg("encoded chunk")
	return nil
}

func (e *Encoder) count(n int, field string) error {
	return e.w.PutInt(int64(n), e.h.IntWidth, field)
}
