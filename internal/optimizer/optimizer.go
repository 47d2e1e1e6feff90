// Package optimizer runs uC's IR optimization passes: copy propagation,
// constant folding, branch folding, dead-code elimination, unreachable
// block removal, and basic-block merging. uc_code.py's calls into these
// (copy_propagation, constant_folding, ...) are commented out with no body
// to ground against, so the algorithms here follow spec's description
// directly; the driver shape (named, described passes run in sequence over
// a Program) is grounded on the teacher's internal/ir/optimizations.go
// OptimizationPass/OptimizationPipeline idiom.
package optimizer

import "uc/internal/ir"

// Pass is one optimization transformation over a single function's CFG.
// globals carries the enclosing Program's global variable names — only
// DeadCodeElimination's liveness seed needs it, but a uniform signature
// keeps Pipeline.Run simple.
type Pass interface {
	Name() string
	Description() string
	Apply(fn *ir.Function, globals []string) bool
}

// Pipeline runs its passes, in order, over every function of a Program.
// Passes run to a per-function fixed point: each pass re-runs on a function
// until it reports no further change, and the whole sequence repeats on that
// function until a full sweep changes nothing, matching "the driver re-runs
// instruction classification (and reaching-definitions/liveness where
// needed) between passes" — here that rerun is implicit, since every pass
// reclassifies/re-analyzes from the current instruction set on each Apply.
type Pipeline struct {
	passes []Pass
}

// NewPipeline builds the default pass sequence in the order spec.md §4.4
// fixes: copy propagation, constant folding, branch folding, dead-code
// elimination, block removal, block merging.
func NewPipeline() *Pipeline {
	p := &Pipeline{}
	p.AddPass(&CopyPropagation{})
	p.AddPass(&ConstantFolding{})
	p.AddPass(&BranchFolding{})
	p.AddPass(&DeadCodeElimination{})
	p.AddPass(&BlockRemoval{})
	p.AddPass(&BlockMerging{})
	return p
}

func (p *Pipeline) AddPass(pass Pass) {
	p.passes = append(p.passes, pass)
}

// PassResult records one pass's effect on one function, for driver logging.
type PassResult struct {
	Pass     string
	Function string
	Changed  bool
}

// Run applies every pass, in order, to every function in prog, repeating
// each pass on a function until it stops reporting changes and repeating
// the whole sequence until a full sweep over the function changes nothing.
// It returns the per-pass, per-function log the CLI driver prints as
// progress.
func (p *Pipeline) Run(prog *ir.Program) []PassResult {
	globals := make([]string, 0, len(prog.Globals))
	for _, g := range prog.Globals {
		globals = append(globals, "@"+g.Name)
	}

	var results []PassResult
	for _, fn := range prog.Functions {
		for swept := true; swept; {
			swept = false
			for _, pass := range p.passes {
				for {
					changed := pass.Apply(fn, globals)
					results = append(results, PassResult{Pass: pass.Name(), Function: fn.Name, Changed: changed})
					if !changed {
						break
					}
					swept = true
				}
			}
		}
	}
	return results
}
