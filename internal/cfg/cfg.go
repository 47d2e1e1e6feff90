// Package cfg renders a function's control-flow graph as Graphviz DOT text,
// grounded on original_source/uc_code.py's CFG/visit_BasicBlock/
// visit_ConditionBlock (record-shaped nodes, labeled T/F ports on a
// conditional's two edges).
package cfg

import (
	"fmt"
	"strings"

	"uc/internal/ir"
)

// Render returns the DOT source for fn's control-flow graph: one record
// node per basic block (its label plus its active instructions), an
// ellipse node for the function's unlabeled head block, showing the
// function's name and linking it to the entry block, and T/F-ported edges
// out of every ConditionBlock.
func Render(fn *ir.Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", fn.Name)
	b.WriteString("  node [shape=record];\n")

	for _, blk := range fn.Blocks {
		if blk.Label == "" {
			fmt.Fprintf(&b, "  %q [shape=ellipse, label=%q];\n", headNodeName(fn), fn.Name)
			if blk.Taken != nil {
				fmt.Fprintf(&b, "  %q -> %q;\n", headNodeName(fn), blk.Taken.Label)
			}
			continue
		}

		fmt.Fprintf(&b, "  %q [label=%q];\n", blk.Label, recordLabel(blk))

		if blk.Cond {
			if blk.Taken != nil {
				fmt.Fprintf(&b, "  %q:f0 -> %q;\n", blk.Label, blk.Taken.Label)
			}
			if blk.FallThrough != nil {
				fmt.Fprintf(&b, "  %q:f1 -> %q;\n", blk.Label, blk.FallThrough.Label)
			}
		} else if blk.Taken != nil {
			fmt.Fprintf(&b, "  %q -> %q;\n", blk.Label, blk.Taken.Label)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func headNodeName(fn *ir.Function) string { return fn.Name + ".head" }

// recordLabel renders blk's instructions as a Graphviz record label: a
// left-justified line per active instruction (DOT's \l), with a trailing
// two-port T/F cell for a ConditionBlock.
func recordLabel(blk *ir.BasicBlock) string {
	var b strings.Builder
	fmt.Fprintf(&b, "{%s:\\l", blk.Label)
	for _, inst := range blk.Instructions {
		if !inst.Active {
			continue
		}
		b.WriteString("\\t")
		b.WriteString(escapeRecord(inst.String()))
		b.WriteString("\\l")
	}
	b.WriteString("}")
	if blk.Cond {
		return "{" + b.String() + "|{<f0>T|<f1>F}}"
	}
	return b.String()
}

func escapeRecord(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "{", "\\{", "}", "\\}", "|", "\\|")
	return replacer.Replace(s)
}
