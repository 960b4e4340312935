package luachunk

import (
	"bytes"
	"io"

	"github.com/deepnoodle-ai/luachunk/bytecode"
	"github.com/deepnoodle-ai/luachunk/errz"
	"github.com/deepnoodle-ai/luachunk/internal/codec"
)

// Decode reads one binary chunk from r. It consumes exactly the bytes the
// chunk occupies, so r may continue with unrelated data.
func Decode(r io.Reader, opts ...Option) (*bytecode.Chunk, error) {
	o := collectOptions(opts...)
	return codec.NewDecoder(r, o.codecConfig()).Chunk()
}

// DecodeBytes decodes a chunk held in memory. Trailing bytes after the
// chunk are ignored.
func DecodeBytes(data []byte, opts ...Option) (*bytecode.Chunk, error) {
	return Decode(bytes.NewReader(data), opts...)
}

// DecodeHeader reads only the chunk header from r.
func DecodeHeader(r io.Reader, opts ...Option) (bytecode.Header, error) {
	o := collectOptions(opts...)
	return codec.NewDecoder(r, o.codecConfig()).Header()
}

// Encode validates c and writes its canonical encoding to w. The chunk is
// encoded in memory first, so w receives nothing when validation or
// encoding fails; an error from w itself may still leave a partial write.
func Encode(w io.Writer, c *bytecode.Chunk, opts ...Option) error {
	data, err := EncodeBytes(c, opts...)
	if err != nil {
		return err
	}
	n, err := w.Write(data)
	if err != nil {
		return &errz.Error{Kind: errz.IO, Field: "chunk", Offset: int64(n), Err: err}
	}
	if n != len(data) {
		return &errz.Error{Kind: errz.IO, Field: "chunk", Offset: int64(n), Err: io.ErrShortWrite}
	}
	return nil
}

// EncodeBytes validates c and returns its canonical encoding. Validation
// failures are returned as a *multierror.Error listing every problem.
func EncodeBytes(c *bytecode.Chunk, opts ...Option) ([]byte, error) {
	if c == nil {
		return nil, errz.Errorf(errz.Unrepresentable, "chunk", -1, "nil chunk")
	}
	o := collectOptions(opts...)
	if err := c.ValidateDepth(o.maxDepth); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := codec.NewEncoder(&buf, c.Header, o.codecConfig()).Chunk(c.Main); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
