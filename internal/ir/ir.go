// Package ir defines uC's three-address instruction set, basic blocks, and
// per-function CFG, plus the builder that lowers a decorated AST into it.
package ir

import "fmt"

// Program is the IR for a whole compilation unit.
type Program struct {
	Globals   []*Global
	Constants []string // interned literal pool, index i addressed as @.str.i
	Functions []*Function
}

// Global is a top-level (non-local) variable.
type Global struct {
	Name string
	Type string // base type name: int/float/char
	Dims []int  // empty for a scalar
	Init string // pretty-printed initializer, empty if none
}

// Function is one function's parameters plus its basic-block CFG.
type Function struct {
	Name       string
	ParamTypes []string
	ReturnType string
	Head       *BasicBlock // unlabeled sentinel linking the function into the CFG
	Entry      *BasicBlock
	Exit       *BasicBlock
	Blocks     []*BasicBlock // in emission order, Head first
	NumTemps   int
}

// BasicBlock is a straight-line instruction sequence, with at most one
// (BasicBlock) or exactly two (ConditionBlock) successors.
type BasicBlock struct {
	Label        string // empty only for the function head
	Instructions []*Instruction
	Cond         bool // true iff this is a ConditionBlock (terminator is cbranch)
	Predecessors []*BasicBlock
	Taken        *BasicBlock // sole successor for a BasicBlock; "taken" arm for a ConditionBlock
	FallThrough  *BasicBlock // "fall_through" arm, only set when Cond
	Next         *BasicBlock // next_block: emission-order thread, distinct from Taken/FallThrough
}

// Instruction is a flat (opcode, args...) tuple. Opcode mnemonics encode
// both the operation and the operand type, e.g. "add_int", "store_char_3".
type Instruction struct {
	Op     string
	Args   []string
	Active bool // cleared (not removed from the slice) by DCE, for audit trails
}

func NewInstruction(op string, args ...string) *Instruction {
	return &Instruction{Op: op, Args: args, Active: true}
}

func (i *Instruction) String() string {
	if len(i.Args) == 0 {
		return i.Op
	}
	out := i.Op
	for _, a := range i.Args {
		out += " " + a
	}
	return out
}

// Successors returns a block's outgoing edges, Taken first.
func (b *BasicBlock) Successors() []*BasicBlock {
	if b.Cond {
		return []*BasicBlock{b.Taken, b.FallThrough}
	}
	if b.Taken != nil {
		return []*BasicBlock{b.Taken}
	}
	return nil
}

func (b *BasicBlock) AddPredecessor(p *BasicBlock) {
	for _, existing := range b.Predecessors {
		if existing == p {
			return
		}
	}
	b.Predecessors = append(b.Predecessors, p)
}

func (b *BasicBlock) RemovePredecessor(p *BasicBlock) {
	out := b.Predecessors[:0]
	for _, existing := range b.Predecessors {
		if existing != p {
			out = append(out, existing)
		}
	}
	b.Predecessors = out
}

// SetTaken links b unconditionally to t, wiring both the successor edge and
// t's predecessor list.
func (b *BasicBlock) SetTaken(t *BasicBlock) {
	b.Taken = t
	t.AddPredecessor(b)
}

// SetBranch makes b a ConditionBlock branching to taken/fallThrough.
func (b *BasicBlock) SetBranch(taken, fallThrough *BasicBlock) {
	b.Cond = true
	b.Taken = taken
	b.FallThrough = fallThrough
	taken.AddPredecessor(b)
	fallThrough.AddPredecessor(b)
}

func (f *Function) String() string { return fmt.Sprintf("@%s", f.Name) }
