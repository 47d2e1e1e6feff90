package optimizer

import "uc/internal/ir"

// BranchFolding turns a ConditionBlock whose condition traces back to the
// canonical eq_<type> x,x,r (statically true) or ne_<type> x,x,r
// (statically false) idiom into a plain BasicBlock with a single
// successor, rewriting the trailing cbranch to a jump and unlinking the
// arm that can never run.
type BranchFolding struct{}

func (*BranchFolding) Name() string { return "branch-folding" }
func (*BranchFolding) Description() string {
	return "resolves cbranch on a constant-folded condition to an unconditional jump"
}

func (*BranchFolding) Apply(fn *ir.Function, _ []string) bool {
	changed := false
	for _, blk := range fn.Blocks {
		if !blk.Cond || len(blk.Instructions) == 0 {
			continue
		}
		last := blk.Instructions[len(blk.Instructions)-1]
		if !last.Active || last.Op != "cbranch" || len(last.Args) == 0 {
			continue
		}

		value, known := traceConstantCond(blk, last.Args[0])
		if !known {
			continue
		}

		taken, dropped := blk.Taken, blk.FallThrough
		if !value {
			taken, dropped = blk.FallThrough, blk.Taken
		}

		dropped.RemovePredecessor(blk)
		blk.Cond = false
		blk.FallThrough = nil
		blk.Taken = taken
		last.Op = "jump"
		last.Args = []string{"label " + taken.Label}
		changed = true
	}
	return changed
}

// traceConstantCond looks, within blk, for cond's defining eq_<type>/
// ne_<type> self-comparison instruction.
func traceConstantCond(blk *ir.BasicBlock, cond string) (value bool, known bool) {
	for _, inst := range blk.Instructions {
		if !inst.Active || len(inst.Args) != 3 || inst.Args[2] != cond {
			continue
		}
		if family(inst.Op) == "eq" && inst.Args[0] == inst.Args[1] {
			return true, true
		}
		if family(inst.Op) == "ne" && inst.Args[0] == inst.Args[1] {
			return false, true
		}
	}
	return false, false
}
