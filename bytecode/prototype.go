package bytecode

import "strconv"

// Instruction is an opaque code unit, widened to 64 bits.
type Instruction uint64

// Upvalue describes where a Lua 5.3 closure finds a captured variable when
// it is instantiated.
type Upvalue struct {
	// InStack is true when the variable is a register of the enclosing
	// function, false when it is one of the enclosing function's upvalues.
	InStack bool
	Index   uint8
}

// OuterStack returns an upvalue captured from the enclosing register idx.
func OuterStack(idx uint8) Upvalue {
	return Upvalue{InStack: true, Index: idx}
}

// OuterUpvalue returns an upvalue inherited from the enclosing upvalue idx.
func OuterUpvalue(idx uint8) Upvalue {
	return Upvalue{Index: idx}
}

// LocVar is the scope record of one local variable.
type LocVar struct {
	Name    String
	StartPC int64 // first instruction where the variable is active
	EndPC   int64 // first instruction where the variable is dead
}

// Debug is the optional debug information of a function. A stripped
// function has all three sequences empty.
type Debug struct {
	LineInfo     []int64 // source line per instruction
	LocVars      []LocVar
	UpvalueNames []String
}

// IsEmpty returns true if the function carries no debug information.
func (d Debug) IsEmpty() bool {
	return len(d.LineInfo) == 0 && len(d.LocVars) == 0 && len(d.UpvalueNames) == 0
}

// Prototype is a compiled function. Each prototype exclusively owns its
// nested prototypes; the tree has no sharing and no cycles.
type Prototype struct {
	// Source is the chunk name. luac 5.3 leaves it absent on nested
	// functions that share their parent's source.
	Source          String
	LineDefined     int64
	LastLineDefined int64

	// NumUpvalues is the Lua 5.1 upvalue count. Lua 5.3 uses Upvalues.
	NumUpvalues  uint8
	NumParams    uint8
	IsVararg     uint8 // Lua 5.1 stores a bit mask here
	MaxStackSize uint8

	Code      []Instruction
	Constants []Constant
	Upvalues  []Upvalue
	Protos    []*Prototype
	Debug     Debug
}

// UpvalueCount returns the number of upvalues regardless of revision.
func (p *Prototype) UpvalueCount() int {
	if len(p.Upvalues) > 0 {
		return len(p.Upvalues)
	}
	return int(p.NumUpvalues)
}

// UpvalueName returns the debug name of upvalue i, if recorded.
func (p *Prototype) UpvalueName(i int) (String, bool) {
	if i < 0 || i >= len(p.Debug.UpvalueNames) {
		return String{}, false
	}
	return p.Debug.UpvalueNames[i], true
}

// Strip returns a copy of the prototype tree without debug info. Code,
// constants and upvalues are shared with p.
func (p *Prototype) Strip() *Prototype {
	c := *p
	c.Debug = Debug{}
	if len(p.Protos) > 0 {
		c.Protos = make([]*Prototype, len(p.Protos))
		for i, child := range p.Protos {
			if child != nil {
				c.Protos[i] = child.Strip()
			}
		}
	}
	return &c
}

// WalkFunc is called for each prototype in a tree. path identifies the
// prototype ("main", "main/0", "main/0/3"), depth is 0 for the root.
type WalkFunc func(path string, depth int, p *Prototype) error

// Walk visits p and its descendants depth first, parents before children.
// Walking stops at the first error returned by fn.
func (p *Prototype) Walk(fn WalkFunc) error {
	return p.walk("main", 0, fn)
}

func (p *Prototype) walk(path string, depth int, fn WalkFunc) error {
	if err := fn(path, depth, p); err != nil {
		return err
	}
	for i, child := range p.Protos {
		if child == nil {
			continue
		}
		if err := child.walk(path+"/"+strconv.Itoa(i), depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}
