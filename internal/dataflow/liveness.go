package dataflow

import "uc/internal/ir"

// BlockLiveness holds one block's liveness facts, as sets of variable names.
type BlockLiveness struct {
	Use, Def map[string]bool
	In, Out  map[string]bool
}

// Liveness runs the backward, may dataflow fixed point over fn: per block,
// fold instructions in reverse (use = use_i ∪ (use − def_i), def |= def_i);
// seed the function's final block with globals (so globals outlive the
// function); then iterate in/out to a fixed point over successors.
func Liveness(fn *ir.Function, globals []string) map[*ir.BasicBlock]*BlockLiveness {
	result := map[*ir.BasicBlock]*BlockLiveness{}
	for _, blk := range fn.Blocks {
		bl := &BlockLiveness{Use: map[string]bool{}, Def: map[string]bool{}, In: map[string]bool{}, Out: map[string]bool{}}
		for i := len(blk.Instructions) - 1; i >= 0; i-- {
			inst := blk.Instructions[i]
			if !inst.Active {
				continue
			}
			def, use := classify(inst)

			newUse := map[string]bool{}
			for v := range bl.Use {
				if v != def {
					newUse[v] = true
				}
			}
			for _, v := range use {
				newUse[v] = true
			}
			bl.Use = newUse

			if def != "" {
				bl.Def[def] = true
			}
		}
		result[blk] = bl
	}

	if len(fn.Blocks) > 0 {
		last := result[fn.Blocks[len(fn.Blocks)-1]]
		for _, g := range globals {
			last.Out[g] = true
		}
	}

	worklist := append([]*ir.BasicBlock{}, fn.Blocks...)
	inWorklist := map[*ir.BasicBlock]bool{}
	for _, b := range worklist {
		inWorklist[b] = true
	}

	for len(worklist) > 0 {
		blk := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		inWorklist[blk] = false

		bl := result[blk]

		for _, succ := range blk.Successors() {
			if succ == nil {
				continue
			}
			for v := range result[succ].In {
				bl.Out[v] = true
			}
		}

		oldIn := bl.In
		in := map[string]bool{}
		for v := range bl.Use {
			in[v] = true
		}
		for v := range bl.Out {
			if !bl.Def[v] {
				in[v] = true
			}
		}
		bl.In = in

		if !stringSetEqual(oldIn, in) {
			for _, pred := range blk.Predecessors {
				if pred != nil && !inWorklist[pred] {
					worklist = append([]*ir.BasicBlock{pred}, worklist...)
					inWorklist[pred] = true
				}
			}
		}
	}

	return result
}

func stringSetEqual(a, b map[string]bool) bool {
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
