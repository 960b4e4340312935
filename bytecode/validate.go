package bytecode

import (
	"fmt"
	"math"

	"github.com/deepnoodle-ai/luachunk/errz"
	"github.com/hashicorp/go-multierror"
)

// DefaultMaxDepth matches LUAI_MAXCCALLS, the reference limit on nested
// functions.
const DefaultMaxDepth = 200

// Validate checks that the chunk can be encoded as declared by its header,
// with prototypes nested at most DefaultMaxDepth levels below main.
// All problems are reported together in a *multierror.Error whose
// elements are *errz.Error values. A nil result means Encode will not fail
// for reasons other than I/O.
func (c *Chunk) Validate() error {
	return c.ValidateDepth(DefaultMaxDepth)
}

// ValidateDepth is Validate with a custom nesting limit. Values <= 0 mean
// DefaultMaxDepth. Descent stops at the limit, so trees that contain a
// cycle are reported as errz.NestingTooDeep.
func (c *Chunk) ValidateDepth(maxDepth int) error {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	var result *multierror.Error
	h := c.Header
	for _, err := range h.validate() {
		result = multierror.Append(result, err)
	}
	if c.Main == nil {
		result = multierror.Append(result, errz.Errorf(errz.Unrepresentable, "main", -1, "chunk has no main function"))
		return result.ErrorOrNil()
	}
	// Range checks need valid widths.
	if result != nil && len(result.Errors) > 0 {
		return result.ErrorOrNil()
	}
	_ = c.Main.Walk(func(path string, depth int, p *Prototype) error {
		if depth > maxDepth {
			err := errz.Mismatch(errz.NestingTooDeep, path, -1, maxDepth, depth)
			result = multierror.Append(result, err)
			return err
		}
		for _, err := range h.validatePrototype(path, p) {
			result = multierror.Append(result, err)
		}
		return nil
	})
	// Lua 5.3 repeats the main upvalue count in a single byte after the header.
	if h.Revision == Lua53 && len(c.Main.Upvalues) > math.MaxUint8 {
		result = multierror.Append(result, errz.Mismatch(errz.ValueOverflow, "main.closure_upvalues", -1, "at most 255", len(c.Main.Upvalues)))
	}
	return result.ErrorOrNil()
}

func (h Header) validate() []error {
	var errs []error
	if !h.Revision.Valid() {
		errs = append(errs, errz.Mismatch(errz.UnsupportedVersion, "header.version", -1, "0x51 or 0x53", fmt.Sprintf("0x%02x", uint8(h.Revision))))
	}
	if !h.Endianness.Valid() {
		errs = append(errs, errz.Mismatch(errz.UnsupportedEndianness, "header.endianness", -1, "big or little", h.Endianness))
	}
	widths := []struct {
		name string
		w    Width
	}{
		{"header.int_width", h.IntWidth},
		{"header.size_width", h.SizeWidth},
		{"header.instruction_width", h.InstructionWidth},
		{"header.integer_width", h.IntegerWidth},
		{"header.number_width", h.NumberWidth},
	}
	for _, w := range widths {
		if !w.w.Valid() {
			errs = append(errs, errz.Mismatch(errz.UnsupportedWidth, w.name, -1, "4 or 8", uint8(w.w)))
		}
	}
	switch h.Revision {
	case Lua51:
		if h.IntegerWidth != Width8 {
			errs = append(errs, errz.Mismatch(errz.Unrepresentable, "header.integer_width", -1, uint8(Width8), uint8(h.IntegerWidth)))
		}
	case Lua53:
		if h.IntegralNumbers {
			errs = append(errs, errz.Errorf(errz.Unrepresentable, "header.integral_numbers", -1, "the flag only exists in Lua 5.1"))
		}
	}
	return errs
}

func (h Header) validatePrototype(path string, p *Prototype) []error {
	var errs []error
	add := func(err error) {
		errs = append(errs, err)
	}
	field := func(name string) string {
		return path + "." + name
	}
	checkInt := func(name string, v int64) {
		if !FitsSigned(v, h.IntWidth) {
			add(errz.Mismatch(errz.ValueOverflow, field(name), -1, fmt.Sprintf("%d-byte int", h.IntWidth), v))
		}
	}
	checkCount := func(name string, n int) {
		if !FitsSigned(int64(n), h.IntWidth) {
			add(errz.Mismatch(errz.LengthOverflow, field(name), -1, fmt.Sprintf("%d-byte count", h.IntWidth), n))
		}
	}
	checkString := func(name string, s String) {
		if s.IsAbsent() {
			return
		}
		// Both revisions store length+1 in a size_t.
		if !FitsUnsigned(uint64(s.Len())+1, h.SizeWidth) {
			add(errz.Mismatch(errz.LengthOverflow, field(name), -1, fmt.Sprintf("%d-byte size", h.SizeWidth), s.Len()))
		}
	}

	checkString("source", p.Source)
	checkInt("line_defined", p.LineDefined)
	checkInt("last_line_defined", p.LastLineDefined)

	checkCount("code", len(p.Code))
	for i, ins := range p.Code {
		if !FitsUnsigned(uint64(ins), h.InstructionWidth) {
			add(errz.Mismatch(errz.ValueOverflow, field(fmt.Sprintf("code[%d]", i)), -1,
				fmt.Sprintf("%d-byte instruction", h.InstructionWidth), fmt.Sprintf("0x%x", uint64(ins))))
		}
	}

	checkCount("constants", len(p.Constants))
	for i, k := range p.Constants {
		name := fmt.Sprintf("constants[%d]", i)
		switch k.Kind() {
		case ConstNumber:
			if h.Revision == Lua51 && h.IntegralNumbers {
				add(errz.Errorf(errz.Unrepresentable, field(name), -1, "float constant in a chunk with integral numbers"))
			}
		case ConstInteger:
			switch {
			case h.Revision == Lua51 && !h.IntegralNumbers:
				add(errz.Errorf(errz.Unrepresentable, field(name), -1, "integer constant in a Lua 5.1 chunk with float numbers"))
			case h.Revision == Lua51 && !FitsSigned(k.AsInteger(), h.NumberWidth):
				add(errz.Mismatch(errz.ValueOverflow, field(name), -1, fmt.Sprintf("%d-byte number", h.NumberWidth), k.AsInteger()))
			case h.Revision == Lua53 && !FitsSigned(k.AsInteger(), h.IntegerWidth):
				add(errz.Mismatch(errz.ValueOverflow, field(name), -1, fmt.Sprintf("%d-byte integer", h.IntegerWidth), k.AsInteger()))
			}
		case ConstString:
			if h.Revision == Lua51 && k.Form() == FormLong {
				add(errz.Errorf(errz.Unrepresentable, field(name), -1, "long string tag in a Lua 5.1 chunk"))
			}
			checkString(name, k.AsString())
		}
	}

	switch h.Revision {
	case Lua51:
		if len(p.Upvalues) > 0 {
			add(errz.Errorf(errz.Unrepresentable, field("upvalues"), -1, "Lua 5.1 stores only an upvalue count; set NumUpvalues"))
		}
	case Lua53:
		if p.NumUpvalues != 0 {
			add(errz.Errorf(errz.Unrepresentable, field("num_upvalues"), -1, "Lua 5.3 stores an upvalue list; set Upvalues"))
		}
		checkCount("upvalues", len(p.Upvalues))
	}

	checkCount("protos", len(p.Protos))
	for i, child := range p.Protos {
		if child == nil {
			add(errz.Errorf(errz.Unrepresentable, field(fmt.Sprintf("protos[%d]", i)), -1, "nil prototype"))
		}
	}

	checkCount("lineinfo", len(p.Debug.LineInfo))
	for i, line := range p.Debug.LineInfo {
		checkInt(fmt.Sprintf("lineinfo[%d]", i), line)
	}
	checkCount("locvars", len(p.Debug.LocVars))
	for i, lv := range p.Debug.LocVars {
		checkString(fmt.Sprintf("locvars[%d].name", i), lv.Name)
		checkInt(fmt.Sprintf("locvars[%d].start_pc", i), lv.StartPC)
		checkInt(fmt.Sprintf("locvars[%d].end_pc", i), lv.EndPC)
	}
	checkCount("upvalue_names", len(p.Debug.UpvalueNames))
	for i, name := range p.Debug.UpvalueNames {
		checkString(fmt.Sprintf("upvalue_names[%d]", i), name)
	}
	return errs
}

// FitsSigned reports whether v is representable as a signed integer of
// width w.
func FitsSigned(v int64, w Width) bool {
	if w == Width4 {
		return v >= math.MinInt32 && v <= math.MaxInt32
	}
	return true
}

// FitsUnsigned reports whether v is representable as an unsigned integer
// of width w.
func FitsUnsigned(v uint64, w Width) bool {
	if w == Width4 {
		return v <= math.MaxUint32
	}
	return true
}
