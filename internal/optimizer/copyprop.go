package optimizer

import (
	"strings"

	"uc/internal/ir"
)

// CopyPropagation rewrites uses of a variable to the source of its unique
// reaching store/load, and canonicalizes a read-then-store pair into a
// read-then-load pair. Per the decision recorded in SPEC_FULL.md §9, it never
// rewrites through a definition with side effects (call, read, alloc,
// elem) or through an indirect (pointer) store/load — those may alias
// storage this pass cannot see through.
//
// Scope decision: analysis is intra-block. Temporaries are single-assignment
// by construction (internal/ir.Builder never reuses a temp name), so any
// temp-to-temp alias found is safe to propagate for the rest of the
// function; named locations (the %name alloca slots) are only tracked
// within the block currently being scanned, which is a sound (if more
// conservative than whole-function reaching-definitions) instance of "walks
// forward; tracks a live in-set per instruction updated with gen/kill".
type CopyPropagation struct{}

func (*CopyPropagation) Name() string { return "copy-propagation" }
func (*CopyPropagation) Description() string {
	return "rewrites uses to a variable's unique reaching store/load source"
}

func (c *CopyPropagation) Apply(fn *ir.Function, _ []string) bool {
	changed := false
	alias := map[string]string{} // temp -> resolved source, valid function-wide

	resolve := func(v string) string {
		for {
			a, ok := alias[v]
			if !ok {
				return v
			}
			v = a
		}
	}

	for _, blk := range fn.Blocks {
		canonicalizeReadStore(blk)

		lastStore := map[string]string{} // location name -> current known value

		for _, inst := range blk.Instructions {
			if !inst.Active {
				continue
			}

			for _, idx := range usePositions(inst) {
				if idx >= len(inst.Args) {
					continue
				}
				if r := resolve(inst.Args[idx]); r != inst.Args[idx] {
					inst.Args[idx] = r
					changed = true
				}
			}

			switch {
			case isDirectLoad(inst.Op) && len(inst.Args) == 2:
				loc, t := inst.Args[0], inst.Args[1]
				if src, ok := lastStore[loc]; ok {
					alias[t] = resolve(src)
				}
			case isDirectStore(inst.Op) && len(inst.Args) == 2:
				src, loc := inst.Args[0], inst.Args[1]
				lastStore[loc] = resolve(src)
			case isIndirectStore(inst.Op):
				// a write through an unknown pointer may alias any
				// location; forget everything we thought we knew.
				lastStore = map[string]string{}
			case family(inst.Op) == "call" || family(inst.Op) == "read":
				// a read overwrites its operand and a call may write any
				// global; forget every location value known in this block.
				lastStore = map[string]string{}
			case family(inst.Op) == "alloc" || family(inst.Op) == "elem":
				// non-trivial source; the def this produces is never
				// treated as a copy, so nothing to do.
			}
		}
	}

	return changed
}

// canonicalizeReadStore rewrites an adjacent "read_T t" / "store_T t, v"
// pair into "read_T v" / "load_T v, t", so later reads of v are real reads
// and t becomes an ordinary reload, matching spec.md §4.4's canonical form.
func canonicalizeReadStore(blk *ir.BasicBlock) {
	for i := 0; i+1 < len(blk.Instructions); i++ {
		r := blk.Instructions[i]
		s := blk.Instructions[i+1]
		if !r.Active || !s.Active {
			continue
		}
		if family(r.Op) != "read" || len(r.Args) != 1 {
			continue
		}
		if !isDirectStore(s.Op) || len(s.Args) != 2 || s.Args[0] != r.Args[0] {
			continue
		}
		t, v := r.Args[0], s.Args[1]
		r.Args[0] = v
		s.Op = "load_" + readType(r.Op)
		s.Args[0], s.Args[1] = v, t
	}
}

func readType(op string) string {
	if i := strings.IndexByte(op, '_'); i >= 0 {
		return op[i+1:]
	}
	return op
}
