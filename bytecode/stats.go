package bytecode

// Stats contains totals over every function of a chunk.
// This is useful for auditing chunks before loading them.
type Stats struct {
	// FunctionCount is the number of prototypes, including main.
	FunctionCount int

	// MaxDepth is the deepest nesting level; 0 when main has no children.
	MaxDepth int

	// InstructionCount is the total number of instructions.
	InstructionCount int

	// ConstantCount is the total number of constants.
	ConstantCount int

	// StringBytes is the total length of string constants.
	StringBytes int

	// Stripped is true when no function carries debug info.
	Stripped bool
}

// Stats returns statistics about the chunk's function tree.
func (c *Chunk) Stats() Stats {
	s := Stats{Stripped: true}
	if c.Main == nil {
		return s
	}
	_ = c.Main.Walk(func(_ string, depth int, p *Prototype) error {
		s.FunctionCount++
		s.MaxDepth = max(s.MaxDepth, depth)
		s.InstructionCount += len(p.Code)
		s.ConstantCount += len(p.Constants)
		for _, k := range p.Constants {
			if k.Kind() == ConstString {
				s.StringBytes += k.AsString().Len()
			}
		}
		if !p.Debug.IsEmpty() {
			s.Stripped = false
		}
		return nil
	})
	return s
}
