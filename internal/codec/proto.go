package codec

import (
	"strconv"

	"github.com/deepnoodle-ai/luachunk/bytecode"
	"github.com/deepnoodle-ai/luachunk/errz"
)

// prototype decodes one function and, recursively, its children.
//
// Lua 5.1: source, line_defined, last_line_defined, nups, numparams,
// is_vararg, maxstacksize, code, constants, protos, lineinfo, locvars,
// upvalue names.
//
// Lua 5.3: source, line_defined, last_line_defined, numparams, is_vararg,
// maxstacksize, code, constants, upvalues, protos, lineinfo, locvars,
// upvalue names.
func (d *Decoder) prototype(path string, depth int) (*bytecode.Prototype, error) {
	if depth > d.maxDepth {
		return nil, errz.Mismatch(errz.NestingTooDeep, path, d.r.Offset(), d.maxDepth, depth)
	}
	lua51 := d.h.Revision == bytecode.Lua51
	p := &bytecode.Prototype{}
	var err error

	if p.Source, err = d.string(path + ".source"); err != nil {
		return nil, err
	}
	if p.LineDefined, err = d.r.Int(d.h.IntWidth, path+".line_defined"); err != nil {
		return nil, err
	}
	if p.LastLineDefined, err = d.r.Int(d.h.IntWidth, path+".last_line_defined"); err != nil {
		return nil, err
	}
	if lua51 {
		if p.NumUpvalues, err = d.r.Byte(path + ".num_upvalues"); err != nil {
			return nil, err
		}
	}
	if p.NumParams, err = d.r.Byte(path + ".num_params"); err != nil {
		return nil, err
	}
	if p.IsVararg, err = d.r.Byte(path + ".is_vararg"); err != nil {
		return nil, err
	}
	if p.MaxStackSize, err = d.r.Byte(path + ".max_stack_size"); err != nil {
		return nil, err
	}

	field := path + ".code"
	n, err := d.count(field)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		p.Code = make([]bytecode.Instruction, 0, capHint(n))
		for i := 0; i < n; i++ {
			ins, err := d.r.Instruction(d.h.InstructionWidth, field)
			if err != nil {
				return nil, err
			}
			p.Code = append(p.Code, ins)
		}
	}

	field = path + ".constants"
	if n, err = d.count(field); err != nil {
		return nil, err
	}
	if n > 0 {
		p.Constants = make([]bytecode.Constant, 0, capHint(n))
		for i := 0; i < n; i++ {
			k, err := d.constant(field)
			if err != nil {
				return nil, err
			}
			p.Constants = append(p.Constants, k)
		}
	}

	if !lua51 {
		field = path + ".upvalues"
		if n, err = d.count(field); err != nil {
			return nil, err
		}
		if n > 0 {
			p.Upvalues = make([]bytecode.Upvalue, 0, capHint(n))
			for i := 0; i < n; i++ {
				inStack, err := d.r.Byte(field)
				if err != nil {
					return nil, err
				}
				idx, err := d.r.Byte(field)
				if err != nil {
					return nil, err
				}
				p.Upvalues = append(p.Upvalues, bytecode.Upvalue{InStack: inStack != 0, Index: idx})
			}
		}
	}

	if n, err = d.count(path + ".protos"); err != nil {
		return nil, err
	}
	if n > 0 {
		p.Protos = make([]*bytecode.Prototype, 0, capHint(n))
		for i := 0; i < n; i++ {
			child, err := d.prototype(path+"/"+strconv.Itoa(i), depth+1)
			if err != nil {
				return nil, err
			}
			p.Protos = append(p.Protos, child)
		}
	}

	if err := d.debug(path, &p.Debug); err != nil {
		return nil, err
	}

	d.log.Trace().
		Str("path", path).
		Int("code", len(p.Code)).
		Int("constants", len(p.Constants)).
		Int("protos", len(p.Protos)).
		Msg("decoded prototype")
	return p, nil
}

func (d *Decoder) debug(path string, dbg *bytecode.Debug) error {
	field := path + ".lineinfo"
	n, err := d.count(field)
	if err != nil {
		return err
	}
	if n > 0 {
		dbg.LineInfo = make([]int64, 0, capHint(n))
		for i := 0; i < n; i++ {
			line, err := d.r.Int(d.h.IntWidth, field)
			if err != nil {
				return err
			}
			dbg.LineInfo = append(dbg.LineInfo, line)
		}
	}

	field = path + ".locvars"
	if n, err = d.count(field); err != nil {
		return err
	}
	if n > 0 {
		dbg.LocVars = make([]bytecode.LocVar, 0, capHint(n))
		for i := 0; i < n; i++ {
			var lv bytecode.LocVar
			if lv.Name, err = d.string(field); err != nil {
				return err
			}
			if lv.StartPC, err = d.r.Int(d.h.IntWidth, field); err != nil {
				return err
			}
			if lv.EndPC, err = d.r.Int(d.h.IntWidth, field); err != nil {
				return err
			}
			dbg.LocVars = append(dbg.LocVars, lv)
		}
	}

	field = path + ".upvalue_names"
	if n, err = d.count(field); err != nil {
		return err
	}
	if n > 0 {
		dbg.UpvalueNames = make([]bytecode.String, 0, capHint(n))
		for i := 0; i < n; i++ {
			name, err := d.string(field)
			if err != nil {
				return err
			}
			dbg.UpvalueNames = append(dbg.UpvalueNames, name)
		}
	}
	return nil
}

// prototype encodes p in the same field order prototype decodes it.
func (e *Encoder) prototype(path string, depth int, p *bytecode.Prototype) error {
	if depth > e.maxDepth {
		return errz.Mismatch(errz.NestingTooDeep, path, e.w.Offset(), e.maxDepth, depth)
	}
	if p == nil {
		return errz.Errorf(errz.Unrepresentable, path, e.w.Offset(), "nil prototype")
	}
	lua51 := e.h.Revision == bytecode.Lua51

	if err := e.string(p.Source, path+".source"); err != nil {
		return err
	}
	if err := e.w.PutInt(p.LineDefined, e.h.IntWidth, path+".line_defined"); err != nil {
		return err
	}
	if err := e.w.PutInt(p.LastLineDefined, e.h.IntWidth, path+".last_line_defined"); err != nil {
		return err
	}
	if lua51 {
		if len(p.Upvalues) > 0 {
			return errz.Errorf(errz.Unrepresentable, path+".upvalues", e.w.Offset(), "Lua 5.1 stores only an upvalue count")
		}
		if err := e.w.PutByte(p.NumUpvalues, path+".num_upvalues"); err != nil {
			return err
		}
	}
	if err := e.w.PutByte(p.NumParams, path+".num_params"); err != nil {
		return err
	}
	if err := e.w.PutByte(p.IsVararg, path+".is_vararg"); err != nil {
		return err
	}
	if err := e.w.PutByte(p.MaxStackSize, path+".max_stack_size"); err != nil {
		return err
	}

	field := path + ".code"
	if err := e.count(len(p.Code), field); err != nil {
		return err
	}
	for _, ins := range p.Code {
		if err := e.w.PutInstruction(ins, e.h.InstructionWidth, field); err != nil {
			return err
		}
	}

	field = path + ".constants"
	if err := e.count(len(p.Constants), field); err != nil {
		return err
	}
	for _, k := range p.Constants {
		if err := e.constant(k, field); err != nil {
			return err
		}
	}

	if !lua51 {
		field = path + ".upvalues"
		if err := e.count(len(p.Upvalues), field); err != nil {
			return err
		}
		for _, uv := range p.Upvalues {
			var inStack byte
			if uv.InStack {
				inStack = 1
			}
			if err := e.w.PutByte(inStack, field); err != nil {
				return err
			}
			if err := e.w.PutByte(uv.Index, field); err != nil {
				return err
			}
		}
	}

	if err := e.count(len(p.Protos), path+".protos"); err != nil {
		return err
	}
	for i, child := range p.Protos {
		if err := e.prototype(path+"/"+strconv.Itoa(i), depth+1, child); err != nil {
			return err
		}
	}

	return e.debug(path, p.Debug)
}

func (e *Encoder) debug(path string, dbg bytecode.Debug) error {
	field := path + ".lineinfo"
	if err := e.count(len(dbg.LineInfo), field); err != nil {
		return err
	}
	for _, line := range dbg.LineInfo {
		if err := e.w.PutInt(line, e.h.IntWidth, field); err != nil {
			return err
		}
	}

	field = path + ".locvars"
	if err := e.count(len(dbg.LocVars), field); err != nil {
		return err
	}
	for _, lv := range dbg.LocVars {
		if err := e.string(lv.Name, field); err != nil {
			return err
		}
		if err := e.w.PutInt(lv.StartPC, e.h.IntWidth, field); err != nil {
			return err
		}
		if err := e.w.PutInt(lv.EndPC, e.h.IntWidth, field); err != nil {
			return err
		}
	}

	field = path + ".upvalue_names"
	if err := e.count(len(dbg.UpvalueNames), field); err != nil {
		return err
	}
	for _, name := range dbg.UpvalueNames {
		if err := e.string(name, field); err != nil {
			return err
		}
	}
	return nil
}
