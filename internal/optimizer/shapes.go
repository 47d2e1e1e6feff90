package optimizer

import (
	"strings"

	"uc/internal/ir"
)

// family is an opcode's classification family, mirroring
// internal/dataflow's own (unexported) helper of the same name: the part
// before the first underscore, except for opcodes with no type suffix.
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

func isIndirectOp(op string) bool { return strings.HasSuffix(op, "_*") }

func isDirectLoad(op string) bool  { return family(op) == "load" && !isIndirectOp(op) }
func isDirectStore(op string) bool { return family(op) == "store" && !isIndirectOp(op) }
func isIndirectStore(op string) bool {
	return family(op) == "store" && isIndirectOp(op)
}

// usePositions returns the argument indices of inst that are variable uses,
// per the instruction-classification table (unary-use: first operand;
// binary-use: first and second; branch-use: condition operand; an indirect
// store additionally uses its destination).
func usePositions(inst *ir.Instruction) []int {
	op := inst.Op
	fam := family(op)

	if fam == "store" && isIndirectOp(op) && len(inst.Args) == 2 {
		return []int{0, 1}
	}
	if op == "cbranch" {
		return []int{0}
	}

	unary := map[string]bool{
		"load": true, "store": true, "get": true, "return": true, "param": true,
		"print": true, "not": true, "fptosi": true, "sitofp": true, "call": true,
	}
	binary := map[string]bool{
		"elem": true, "add": true, "sub": true, "mul": true, "div": true, "mod": true,
		"lt": true, "le": true, "gt": true, "ge": true, "eq": true, "ne": true,
		"and": true, "or": true,
	}
	switch {
	case binary[fam] && len(inst.Args) > 1:
		return []int{0, 1}
	case unary[fam] && len(inst.Args) > 0 && fam != "call":
		return []int{0}
	case fam == "call" && len(inst.Args) > 1:
		// a value-returning call's only operand is its callee label, not a
		// variable use; nothing to propagate through.
		return nil
	}
	return nil
}
