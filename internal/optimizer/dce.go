package optimizer

import (
	"uc/internal/dataflow"
	"uc/internal/ir"
)

// mayKillFamilies are the opcode families dead-code elimination is allowed
// to remove: every scalar definition-producing family except call and
// read, which spec.md carves out as always-observable side effects (and
// alloc, handled separately below since its liveness is function-wide).
var mayKillFamilies = map[string]bool{
	"load": true, "store": true, "literal": true, "elem": true, "get": true,
	"add": true, "sub": true, "mul": true, "div": true, "mod": true,
	"lt": true, "le": true, "gt": true, "ge": true, "eq": true, "ne": true,
	"and": true, "or": true, "not": true, "fptosi": true, "sitofp": true,
}

// DeadCodeElimination walks each block backward using liveness out-sets,
// marking an instruction inactive (not removed — internal/ir.Instruction.Active
// exists exactly for this) when its may-kill family defines a variable that
// is not live past it. alloc survives regardless, as long as its variable
// is live anywhere in the function, since an alloca's "definition" is the
// storage itself rather than a value flowing through the CFG.
type DeadCodeElimination struct{}

func (*DeadCodeElimination) Name() string { return "dead-code-elimination" }
func (*DeadCodeElimination) Description() string {
	return "removes instructions whose defined variable is never live-out"
}

func (*DeadCodeElimination) Apply(fn *ir.Function, globals []string) bool {
	live := dataflow.Liveness(fn, globals)

	liveAnywhere := map[string]bool{}
	for _, bl := range live {
		for v := range bl.In {
			liveAnywhere[v] = true
		}
		for v := range bl.Out {
			liveAnywhere[v] = true
		}
		for v := range bl.Use {
			liveAnywhere[v] = true
		}
	}

	changed := false
	for _, blk := range fn.Blocks {
		bl := live[blk]
		current := map[string]bool{}
		for v := range bl.Out {
			current[v] = true
		}

		for i := len(blk.Instructions) - 1; i >= 0; i-- {
			inst := blk.Instructions[i]
			if !inst.Active {
				continue
			}
			fam := family(inst.Op)
			def, use := classifyForDCE(inst)

			if def != "" && fam == "alloc" {
				if !liveAnywhere[def] {
					inst.Active = false
					changed = true
				}
				continue
			}

			if def != "" && mayKillFamilies[fam] && !current[def] {
				inst.Active = false
				changed = true
				continue
			}

			if def != "" {
				delete(current, def)
			}
			for _, v := range use {
				current[v] = true
			}
		}
	}
	return changed
}

func classifyForDCE(inst *ir.Instruction) (def string, use []string) {
	positions := usePositions(inst)
	for _, idx := range positions {
		if idx < len(inst.Args) {
			use = append(use, inst.Args[idx])
		}
	}
	fam := family(inst.Op)
	if fam == "store" && isIndirectOp(inst.Op) {
		return "", use
	}
	if fam == "call" {
		if len(inst.Args) > 1 {
			def = inst.Args[len(inst.Args)-1]
		}
		return def, use
	}
	defFamilies := map[string]bool{
		"load": true, "store": true, "literal": true, "elem": true, "get": true,
		"add": true, "sub": true, "mul": true, "div": true, "mod": true,
		"lt": true, "le": true, "gt": true, "ge": true, "eq": true, "ne": true,
		"and": true, "or": true, "not": true, "read": true, "alloc": true,
		"fptosi": true, "sitofp": true,
	}
	if defFamilies[fam] && len(inst.Args) > 0 {
		def = inst.Args[len(inst.Args)-1]
	}
	return def, use
}
