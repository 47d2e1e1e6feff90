package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uc/internal/ir"
	"uc/internal/parser"
	"uc/internal/semantic"
)

func buildProgram(t *testing.T, source string) *ir.Program {
	t.Helper()
	tree, err := parser.ParseSource("test.uc", source)
	require.NoError(t, err)

	prog := parser.ToAST(tree)

	analyzer := semantic.NewAnalyzer()
	diags := analyzer.Analyze(prog)
	require.Empty(t, diags)

	return ir.NewBuilder().Build(prog, analyzer.Constants().Strings())
}

func funcByName(prog *ir.Program, name string) *ir.Function {
	for _, fn := range prog.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

func activeOps(fn *ir.Function) []string {
	var ops []string
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			if inst.Active {
				ops = append(ops, inst.Op)
			}
		}
	}
	return ops
}

func TestConstantFoldingFoldsLiteralArithmetic(t *testing.T) {
	prog := buildProgram(t, `int fold() {
    int x;
    x = 2 + 3;
    return x;
}`)
	fn := funcByName(prog, "fold")
	require.NotNil(t, fn)

	for changed := true; changed; {
		changed = (&CopyPropagation{}).Apply(fn, nil)
	}
	for changed := true; changed; {
		changed = (&ConstantFolding{}).Apply(fn, nil)
	}

	var sawLiteral bool
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			if inst.Active && inst.Op == "literal_int" && len(inst.Args) == 2 && inst.Args[0] == "5" {
				sawLiteral = true
			}
			assert.NotEqual(t, "add_int", inst.Op, "constant add should have folded away")
		}
	}
	assert.True(t, sawLiteral, "expected a literal_int 5 after folding 2 + 3")
}

func TestBranchFoldingAndBlockRemovalEliminateDeadArm(t *testing.T) {
	prog := buildProgram(t, `int choose() {
    int r;
    if (1 == 1) {
        r = 10;
    } else {
        r = 20;
    }
    return r;
}`)
	fn := funcByName(prog, "choose")
	require.NotNil(t, fn)

	pipeline := NewPipeline()
	pipeline.Run(&ir.Program{Functions: []*ir.Function{fn}})

	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			if !inst.Active {
				continue
			}
			assert.NotContains(t, inst.Args, "20", "the untaken else-arm literal should be unreachable")
		}
	}
}

func TestDeadCodeEliminationRemovesUnusedStore(t *testing.T) {
	prog := buildProgram(t, `int deadlocal() {
    int unused;
    unused = 42;
    return 0;
}`)
	fn := funcByName(prog, "deadlocal")
	require.NotNil(t, fn)

	globals := []string{}
	for changed := true; changed; {
		changed = (&DeadCodeElimination{}).Apply(fn, globals)
	}

	for _, op := range activeOps(fn) {
		assert.NotEqual(t, "store_int", op, "store to a never-read local should be dead")
	}
}

func TestBlockMergingReducesBlockCount(t *testing.T) {
	prog := buildProgram(t, `int straight() {
    int a;
    a = 1;
    a = a + 1;
    return a;
}`)
	fn := funcByName(prog, "straight")
	require.NotNil(t, fn)

	before := len(fn.Blocks)
	for changed := true; changed; {
		changed = (&BlockMerging{}).Apply(fn, nil)
	}
	assert.Less(t, len(fn.Blocks), before, "straight-line blocks should merge into fewer blocks")

	for i, blk := range fn.Blocks {
		if i+1 < len(fn.Blocks) {
			assert.Same(t, fn.Blocks[i+1], blk.Next)
		} else {
			assert.Nil(t, blk.Next)
		}
	}
}

func TestPipelineRunIsIdempotentOnSecondPass(t *testing.T) {
	prog := buildProgram(t, `int loop(int n) {
    int i;
    int s;
    i = 0;
    s = 0;
    while (i < n) {
        s = s + i;
        i = i + 1;
    }
    return s;
}`)

	pipeline := NewPipeline()
	pipeline.Run(prog)
	first := map[string][]string{}
	for _, fn := range prog.Functions {
		first[fn.Name] = activeOps(fn)
	}

	results := pipeline.Run(prog)
	for _, r := range results {
		assert.False(t, r.Changed, "a second full pipeline run should reach a fixed point with no further change")
	}
	for _, fn := range prog.Functions {
		assert.Equal(t, first[fn.Name], activeOps(fn))
	}
}
