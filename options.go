package luachunk

import (
	"github.com/deepnoodle-ai/luachunk/internal/codec"
	"github.com/rs/zerolog"
)

// Option configures a Decode or Encode call.
type Option func(*options)

type options struct {
	logger        zerolog.Logger
	maxDepth      int
	strictStrings bool
}

func collectOptions(opts ...Option) *options {
	o := &options{
		logger:   zerolog.Nop(),
		maxDepth: codec.DefaultMaxDepth,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) codecConfig() codec.Config {
	return codec.Config{Logger: o.logger, MaxDepth: o.maxDepth, StrictStrings: o.strictStrings}
}

// WithLogger sets the logger used to trace header detection (debug level)
// and prototype recursion (trace level). By default nothing is logged.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMaxDepth limits how deeply prototypes may nest. Decoding or encoding
// a deeper tree fails with errz.NestingTooDeep. Values <= 0 restore the
// default of 200.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		if depth <= 0 {
			depth = codec.DefaultMaxDepth
		}
		o.maxDepth = depth
	}
}

// WithStrictStrings makes Decode reject Lua 5.1 strings whose stored
// terminator is not NUL with errz.BadStringTerminator. By default the
// terminator byte is dropped without being checked, as the reference
// loader does.
func WithStrictStrings() Option {
	return func(o *options) {
		o.strictStrings = true
	}
}
