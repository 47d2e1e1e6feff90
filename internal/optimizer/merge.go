package optimizer

import "uc/internal/ir"

// BlockMerging concatenates a BasicBlock b into its sole successor s when s
// has no predecessor other than b, since then the two always run back to
// back and the edge between them carries no information. The surviving
// block keeps b's identity (label, predecessor list); s's instructions are
// appended and its own successor edges take over from b's single one.
//
// Because a BasicBlock's label is a field (ir.BasicBlock.Label), not a
// pseudo-instruction living in Instructions, there is no separate
// "duplicate label line" to strip the way a textual IR would need to —
// s simply stops existing as a block, so its label goes with it.
type BlockMerging struct{}

func (*BlockMerging) Name() string { return "block-merging" }
func (*BlockMerging) Description() string {
	return "concatenates a block into its sole successor when that successor has no other predecessor"
}

func (*BlockMerging) Apply(fn *ir.Function, _ []string) bool {
	for _, b := range fn.Blocks {
		if b == fn.Head || b.Cond {
			continue
		}
		s := b.Taken
		if s == nil || s == b || s == fn.Head {
			continue
		}
		if len(s.Predecessors) != 1 || s.Predecessors[0] != b {
			continue
		}

		mergeBlocks(fn, b, s)
		return true
	}
	return false
}

func mergeBlocks(fn *ir.Function, b, s *ir.BasicBlock) {
	b.Instructions = append(b.Instructions, s.Instructions...)
	b.Cond = s.Cond
	b.Taken = s.Taken
	b.FallThrough = s.FallThrough

	for _, succ := range s.Successors() {
		if succ == nil {
			continue
		}
		succ.RemovePredecessor(s)
		succ.AddPredecessor(b)
	}

	if fn.Entry == s {
		fn.Entry = b
	}
	if fn.Exit == s {
		fn.Exit = b
	}

	kept := fn.Blocks[:0]
	for _, blk := range fn.Blocks {
		if blk != s {
			kept = append(kept, blk)
		}
	}
	fn.Blocks = kept

	for i, blk := range fn.Blocks {
		if i+1 < len(fn.Blocks) {
			blk.Next = fn.Blocks[i+1]
		} else {
			blk.Next = nil
		}
	}
}
