package main

import (
	"math"
	"strconv"

	"github.com/deepnoodle-ai/luachunk/bytecode"
)

// The view types are the serialized form of a decoded chunk used by
// "dump -o json" and "dump -o cbor".

type chunkView struct {
	Header headerView     `json:"header" cbor:"header"`
	Main   *prototypeView `json:"main" cbor:"main"`
}

type headerView struct {
	Revision         string `json:"revision" cbor:"revision"`
	Endianness       string `json:"endianness" cbor:"endianness"`
	IntWidth         int    `json:"int_width" cbor:"int_width"`
	SizeWidth        int    `json:"size_width" cbor:"size_width"`
	InstructionWidth int    `json:"instruction_width" cbor:"instruction_width"`
	IntegerWidth     int    `json:"integer_width" cbor:"integer_width"`
	NumberWidth      int    `json:"number_width" cbor:"number_width"`
	IntegralNumbers  bool   `json:"integral_numbers,omitempty" cbor:"integral_numbers,omitempty"`
}

type prototypeView struct {
	Path            string           `json:"path" cbor:"path"`
	Source          *string          `json:"source" cbor:"source"`
	LineDefined     int64            `json:"line_defined" cbor:"line_defined"`
	LastLineDefined int64            `json:"last_line_defined" cbor:"last_line_defined"`
	NumUpvalues     uint8            `json:"num_upvalues,omitempty" cbor:"num_upvalues,omitempty"`
	NumParams       uint8            `json:"num_params" cbor:"num_params"`
	IsVararg        uint8            `json:"is_vararg" cbor:"is_vararg"`
	MaxStackSize    uint8            `json:"max_stack_size" cbor:"max_stack_size"`
	Code            []uint64         `json:"code" cbor:"code"`
	Constants       []constantView   `json:"constants" cbor:"constants"`
	Upvalues        []upvalueView    `json:"upvalues,omitempty" cbor:"upvalues,omitempty"`
	Protos          []*prototypeView `json:"protos,omitempty" cbor:"protos,omitempty"`
	LineInfo        []int64          `json:"lineinfo,omitempty" cbor:"lineinfo,omitempty"`
	LocVars         []locVarView     `json:"locvars,omitempty" cbor:"locvars,omitempty"`
	UpvalueNames    []*string        `json:"upvalue_names,omitempty" cbor:"upvalue_names,omitempty"`
}

type constantView struct {
	Kind  string `json:"kind" cbor:"kind"`
	Value any    `json:"value,omitempty" cbor:"value,omitempty"`
	Long  bool   `json:"long,omitempty" cbor:"long,omitempty"`
}

type upvalueView struct {
	InStack bool  `json:"instack" cbor:"instack"`
	Index   uint8 `json:"idx" cbor:"idx"`
}

type locVarView struct {
	Name    *string `json:"name" cbor:"name"`
	StartPC int64   `json:"startpc" cbor:"startpc"`
	EndPC   int64   `json:"endpc" cbor:"endpc"`
}

func newChunkView(c *bytecode.Chunk) *chunkView {
	h := c.Header
	return &chunkView{
		Header: headerView{
			Revision:         h.Revision.String(),
			Endianness:       h.Endianness.String(),
			IntWidth:         int(h.IntWidth),
			SizeWidth:        int(h.SizeWidth),
			InstructionWidth: int(h.InstructionWidth),
			IntegerWidth:     int(h.IntegerWidth),
			NumberWidth:      int(h.NumberWidth),
			IntegralNumbers:  h.IntegralNumbers,
		},
		Main: newPrototypeView("main", c.Main, h.Revision),
	}
}

func newPrototypeView(path string, p *bytecode.Prototype, rev bytecode.Revision) *prototypeView {
	v := &prototypeView{
		Path:            path,
		Source:          stringView(p.Source),
		LineDefined:     p.LineDefined,
		LastLineDefined: p.LastLineDefined,
		NumUpvalues:     p.NumUpvalues,
		NumParams:       p.NumParams,
		IsVararg:        p.IsVararg,
		MaxStackSize:    p.MaxStackSize,
		Code:            make([]uint64, len(p.Code)),
		Constants:       make([]constantView, len(p.Constants)),
		LineInfo:        p.Debug.LineInfo,
	}
	for i, ins := range p.Code {
		v.Code[i] = uint64(ins)
	}
	for i, k := range p.Constants {
		v.Constants[i] = newConstantView(k, rev)
	}
	for _, uv := range p.Upvalues {
		v.Upvalues = append(v.Upvalues, upvalueView{InStack: uv.InStack, Index: uv.Index})
	}
	for i, child := range p.Protos {
		v.Protos = append(v.Protos, newPrototypeView(childPath(path, i), child, rev))
	}
	for _, lv := range p.Debug.LocVars {
		v.LocVars = append(v.LocVars, locVarView{Name: stringView(lv.Name), StartPC: lv.StartPC, EndPC: lv.EndPC})
	}
	for _, name := range p.Debug.UpvalueNames {
		v.UpvalueNames = append(v.UpvalueNames, stringView(name))
	}
	return v
}

func newConstantView(k bytecode.Constant, rev bytecode.Revision) constantView {
	v := constantView{Kind: k.Kind().String()}
	switch k.Kind() {
	case bytecode.ConstBoolean:
		v.Value = k.AsBool()
	case bytecode.ConstNumber:
		n := k.AsNumber()
		if math.IsInf(n, 0) || math.IsNaN(n) {
			// JSON has no literal for these.
			v.Value = strconv.FormatFloat(n, 'g', -1, 64)
		} else {
			v.Value = n
		}
	case bytecode.ConstInteger:
		v.Value = k.AsInteger()
	case bytecode.ConstString:
		if s := stringView(k.AsString()); s != nil {
			v.Value = *s
		}
		v.Long = rev == bytecode.Lua53 && k.IsLong()
	}
	return v
}

// stringView maps the absent string to nil.
func stringView(s bytecode.String) *string {
	if s.IsAbsent() {
		return nil
	}
	str := s.String()
	return &str
}

func childPath(parent string, i int) string {
	return parent + "/" + strconv.Itoa(i)
}
