// Package dataflow computes reaching-definitions and liveness facts over an
// ir.Function's basic-block CFG. It classifies each instruction into a
// def/use shape first, then runs the two worklist fixed points over that
// classification, mirroring original_source/uc_block.py's
// instruction_analisys/reaching_definitions/liveness_analisys.
package dataflow

import (
	"strings"

	"uc/internal/ir"
)

// defFamilies, unaryUseFamilies and binaryUseFamilies are the instruction
// families from the opcode classification table: definition-producing
// (last operand is the def), unary-use (first operand is a use), and
// binary-use (first and second operands are uses). Opcodes not under any of
// these (jump, cbranch, define, call) are handled as special cases below.
var (
	defFamilies = map[string]bool{
		"load": true, "store": true, "literal": true, "elem": true, "get": true,
		"add": true, "sub": true, "mul": true, "div": true, "mod": true,
		"lt": true, "le": true, "gt": true, "ge": true, "eq": true, "ne": true,
		"and": true, "or": true, "not": true, "read": true, "alloc": true,
		"fptosi": true, "sitofp": true,
	}
	unaryUseFamilies = map[string]bool{
		"load": true, "store": true, "get": true, "return": true, "param": true,
		"print": true, "not": true, "fptosi": true, "sitofp": true,
	}
	binaryUseFamilies = map[string]bool{
		"elem": true, "add": true, "sub": true, "mul": true, "div": true, "mod": true,
		"lt": true, "le": true, "gt": true, "ge": true, "eq": true, "ne": true,
		"and": true, "or": true,
	}
)

// family returns an opcode's classification family: the part before the
// first underscore, except for opcodes that carry no type suffix at all.
func family(op string) string {
	switch op {
	case "not", "call", "jump", "cbranch", "define":
		return op
	}
	if i := strings.IndexByte(op, '_'); i >= 0 {
		return op[:i]
	}
	return op
}

func isVoidForm(op string) bool {
	return strings.HasSuffix(op, "_void")
}

func isIndirect(op string) bool {
	return strings.HasSuffix(op, "_*")
}

// Fact is one instruction's def/use classification plus the site identity
// (ID) that reaching-definitions tracks. IDs are assigned sequentially over
// a function's active instructions, in emission order.
type Fact struct {
	ID    int
	Block *ir.BasicBlock
	Inst  *ir.Instruction
	Def   string   // defined variable, "" if none
	Use   []string // used variables
}

// classify returns inst's def/use shape. store_<type>_* (an indirect store
// through a computed address) is special-cased against the generic family
// table: its destination is a temporary holding an address, not a named
// variable, so it contributes a use rather than a def — this is what lets
// later passes still see the store as a use of that address.
func classify(inst *ir.Instruction) (def string, use []string) {
	op := inst.Op
	args := inst.Args
	fam := family(op)

	if fam == "store" && isIndirect(op) && len(args) == 2 {
		return "", []string{args[0], args[1]}
	}

	if fam == "call" {
		if len(args) > 1 {
			def = args[len(args)-1]
		}
		return def, nil
	}

	if defFamilies[fam] && len(args) > 0 {
		def = args[len(args)-1]
	}

	if isVoidForm(op) {
		return def, nil
	}

	switch {
	case unaryUseFamilies[fam] && len(args) > 0:
		use = []string{args[0]}
	case binaryUseFamilies[fam] && len(args) > 1:
		use = []string{args[0], args[1]}
	case op == "cbranch" && len(args) > 0:
		use = []string{args[0]}
	}
	return def, use
}

// ClassifyFunction classifies every active instruction in fn, in block then
// emission order, assigning each a dense sequential ID.
func ClassifyFunction(fn *ir.Function) []*Fact {
	var facts []*Fact
	id := 0
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			if !inst.Active {
				continue
			}
			def, use := classify(inst)
			facts = append(facts, &Fact{ID: id, Block: blk, Inst: inst, Def: def, Use: use})
			id++
		}
	}
	return facts
}
