package dataflow

import "uc/internal/ir"

// BlockRD holds one block's reaching-definitions facts, identifying
// definitions by the Fact.ID of their defining site (not by variable name —
// two sites that define the same variable are distinct definitions).
type BlockRD struct {
	Gen, Kill map[int]bool
	In, Out   map[int]bool
}

// ReachingDefinitions runs the forward, may dataflow fixed point over fn:
// per instruction, gen = {this site} if it defines a variable, kill = every
// other site in the function defining that same variable; per block, fold
// instructions in order; then iterate in/out to a fixed point, seeded from
// predecessors' out sets.
func ReachingDefinitions(fn *ir.Function) map[*ir.BasicBlock]*BlockRD {
	facts := ClassifyFunction(fn)

	killSetFor := func(v string) map[int]bool {
		kill := map[int]bool{}
		if v == "" {
			return kill
		}
		for _, f := range facts {
			if f.Def == v {
				kill[f.ID] = true
			}
		}
		return kill
	}

	result := map[*ir.BasicBlock]*BlockRD{}
	for _, blk := range fn.Blocks {
		result[blk] = &BlockRD{Gen: map[int]bool{}, Kill: map[int]bool{}, In: map[int]bool{}, Out: map[int]bool{}}
	}

	for _, f := range facts {
		if f.Def == "" {
			continue
		}
		rd := result[f.Block]
		killN := killSetFor(f.Def)
		delete(killN, f.ID)

		newGen := map[int]bool{f.ID: true}
		for id := range rd.Gen {
			if !killN[id] {
				newGen[id] = true
			}
		}
		for id := range killN {
			rd.Kill[id] = true
		}
		rd.Gen = newGen
	}

	worklist := append([]*ir.BasicBlock{}, fn.Blocks...)
	inWorklist := map[*ir.BasicBlock]bool{}
	for _, b := range worklist {
		inWorklist[b] = true
	}

	for len(worklist) > 0 {
		blk := worklist[0]
		worklist = worklist[1:]
		inWorklist[blk] = false

		rd := result[blk]
		oldOut := rd.Out

		in := map[int]bool{}
		for _, pred := range blk.Predecessors {
			for id := range result[pred].Out {
				in[id] = true
			}
		}
		rd.In = in

		out := map[int]bool{}
		for id := range rd.Gen {
			out[id] = true
		}
		for id := range in {
			if !rd.Kill[id] {
				out[id] = true
			}
		}
		rd.Out = out

		if !setEqual(oldOut, out) {
			for _, succ := range blk.Successors() {
				if succ != nil && !inWorklist[succ] {
					worklist = append(worklist, succ)
					inWorklist[succ] = true
				}
			}
		}
	}

	return result
}

func setEqual(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
