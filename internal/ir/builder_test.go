package ir

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uc/internal/parser"
	"uc/internal/semantic"
)

func buildProgram(t *testing.T, source string) *Program {
	t.Helper()
	tree, err := parser.ParseSource("test.uc", source)
	require.NoError(t, err)

	prog := parser.ToAST(tree)

	analyzer := semantic.NewAnalyzer()
	diags := analyzer.Analyze(prog)
	require.Empty(t, diags)

	return NewBuilder().Build(prog, analyzer.Constants().Strings())
}

func funcByName(prog *Program, name string) *Function {
	for _, fn := range prog.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// allInstructions walks fn's blocks in emission order and returns every
// instruction regardless of Active, since these tests exercise the raw
// lowering before any optimizer pass runs.
func allInstructions(fn *Function) []*Instruction {
	var out []*Instruction
	for _, blk := range fn.Blocks {
		out = append(out, blk.Instructions...)
	}
	return out
}

func opCounts(insts []*Instruction) map[string]int {
	counts := make(map[string]int)
	for _, inst := range insts {
		counts[inst.Op]++
	}
	return counts
}

func findInst(insts []*Instruction, op string) *Instruction {
	for _, inst := range insts {
		if inst.Op == op {
			return inst
		}
	}
	return nil
}

// S1: `int main() { int x; x = 2 + 3; return x; }` lowers to exactly one
// add_int over literal_int 2 and literal_int 3, with the result stored into
// x's alloca and reloaded for the return.
func TestBuildS1ConstantFoldingShape(t *testing.T) {
	prog := buildProgram(t, `int main() {
    int x;
    x = 2 + 3;
    return x;
}`)
	fn := funcByName(prog, "main")
	require.NotNil(t, fn)

	insts := allInstructions(fn)
	counts := opCounts(insts)
	assert.Equal(t, 1, counts["add_int"])

	var literalTwo, literalThree bool
	for _, inst := range insts {
		if inst.Op == "literal_int" && len(inst.Args) == 2 {
			switch inst.Args[0] {
			case "2":
				literalTwo = true
			case "3":
				literalThree = true
			}
		}
	}
	assert.True(t, literalTwo, "expected a literal_int 2")
	assert.True(t, literalThree, "expected a literal_int 3")

	assert.GreaterOrEqual(t, counts["store_int"], 1)
	assert.GreaterOrEqual(t, counts["load_int"], 1)
	assert.Equal(t, 1, counts["return_int"])
}

// S2: a call site emits its arguments as param_<type> immediately before
// call, and the call result feeds the caller's return.
func TestBuildS2FunctionCallAndParamPassing(t *testing.T) {
	prog := buildProgram(t, `int f(int a) { return a+1; }
int main(){ return f(4); }`)

	require.Len(t, prog.Functions, 2)
	f := funcByName(prog, "f")
	main := funcByName(prog, "main")
	require.NotNil(t, f)
	require.NotNil(t, main)

	insts := allInstructions(main)
	lit := findInst(insts, "literal_int")
	require.NotNil(t, lit)
	assert.Equal(t, "4", lit.Args[0])

	param := findInst(insts, "param_int")
	require.NotNil(t, param)
	assert.Equal(t, []string{lit.Args[1]}, param.Args)

	call := findInst(insts, "call")
	require.NotNil(t, call)
	assert.Equal(t, "@f", call.Args[0])
	require.Len(t, call.Args, 2, "a non-void call keeps its result temporary as the second arg")

	assert.Equal(t, 1, opCounts(insts)["return_int"])
}

// S4: assert lowers to a ConditionBlock whose false arm prints a pool entry
// whose text begins with "assertion_fail on".
func TestBuildS4AssertGuardedByConditionBlock(t *testing.T) {
	prog := buildProgram(t, `int main(){ assert 1==1; return 0; }`)
	fn := funcByName(prog, "main")
	require.NotNil(t, fn)

	var condBlock *BasicBlock
	for _, blk := range fn.Blocks {
		if blk.Cond {
			condBlock = blk
			break
		}
	}
	require.NotNil(t, condBlock, "assert must guard itself with a ConditionBlock")
	require.NotNil(t, condBlock.FallThrough)

	falseArm := condBlock.FallThrough
	printInst := findInst(falseArm.Instructions, "print_string")
	require.NotNil(t, printInst)

	idx := strings.TrimPrefix(printInst.Args[0], "@.str.")
	n, err := strconv.Atoi(idx)
	require.NoError(t, err)
	require.Less(t, n, len(prog.Constants))
	assert.True(t, strings.HasPrefix(prog.Constants[n], "assertion_fail on"))
}

// S5: a locally-declared array with an initializer list lowers to a sized
// alloc/store pair, and indexing it lowers to elem_<type> followed by a
// pointer-suffixed load.
func TestBuildS5ArrayDeclElemLoad(t *testing.T) {
	prog := buildProgram(t, `int main(){ int a[3] = {1,2,3}; return a[1]; }`)
	fn := funcByName(prog, "main")
	require.NotNil(t, fn)

	insts := allInstructions(fn)
	alloc := findInst(insts, "alloc_int_3")
	require.NotNil(t, alloc)

	store := findInst(insts, "store_int_3")
	require.NotNil(t, store)
	assert.Equal(t, alloc.Args[0], store.Args[1])

	idx := strings.TrimPrefix(store.Args[0], "@.str.")
	n, err := strconv.Atoi(idx)
	require.NoError(t, err)
	assert.Equal(t, "1,2,3", prog.Constants[n])

	elem := findInst(insts, "elem_int")
	require.NotNil(t, elem)
	assert.Equal(t, alloc.Args[0], elem.Args[0])
	assert.Equal(t, "1", literalArgFor(insts, elem.Args[1]))

	load := findInst(insts, "load_int_*")
	require.NotNil(t, load)
	assert.Equal(t, elem.Args[2], load.Args[0])
}

// literalArgFor resolves a temporary back to the literal value that defined
// it, for asserting on an index value lowered through literal_int.
func literalArgFor(insts []*Instruction, temp string) string {
	for _, inst := range insts {
		if inst.Op == "literal_int" && len(inst.Args) == 2 && inst.Args[1] == temp {
			return inst.Args[0]
		}
	}
	return ""
}

// Property 1: every basic block but the head has a label, and labels are
// unique within a function.
func TestPropertyLabelsUniquePerFunction(t *testing.T) {
	prog := buildProgram(t, `int main(){
    int i;
    for (i=0;i<3;i++) {
        if (i == 1) {
            print(i);
        } else {
            print(0);
        }
    }
    return 0;
}`)
	fn := funcByName(prog, "main")
	require.NotNil(t, fn)

	seen := make(map[string]bool)
	for i, blk := range fn.Blocks {
		if i == 0 {
			assert.Empty(t, blk.Label, "the function head is the only unlabeled block")
			continue
		}
		assert.NotEmpty(t, blk.Label)
		assert.False(t, seen[blk.Label], "duplicate label %q", blk.Label)
		seen[blk.Label] = true
	}
}

// Property 2: every ConditionBlock has exactly two successors, every other
// block has at most one, and the head has exactly one (its entry).
func TestPropertySuccessorCountInvariants(t *testing.T) {
	prog := buildProgram(t, `int main(){
    int i;
    for (i=0;i<3;i++) {
        if (i == 1) {
            print(i);
        }
    }
    return 0;
}`)
	fn := funcByName(prog, "main")
	require.NotNil(t, fn)

	assert.Len(t, fn.Head.Successors(), 1)
	assert.Equal(t, fn.Entry, fn.Head.Taken)

	for _, blk := range fn.Blocks {
		succ := blk.Successors()
		if blk.Cond {
			assert.Len(t, succ, 2, "ConditionBlock %s must have exactly two successors", blk.Label)
			assert.NotNil(t, blk.Taken)
			assert.NotNil(t, blk.FallThrough)
			continue
		}
		assert.LessOrEqual(t, len(succ), 1, "block %s has more than one successor without being a ConditionBlock", blk.Label)
	}
}

// Property 4: temporary numbering is dense and monotonic within a function:
// the Nth newTemp() call produces %N, with no gaps.
func TestPropertyTemporaryNumberingIsDenseAndMonotonic(t *testing.T) {
	prog := buildProgram(t, `int f(int a, int b) {
    int c;
    c = a + b;
    c = c * 2;
    return c;
}`)
	fn := funcByName(prog, "f")
	require.NotNil(t, fn)

	var seen []int
	for _, inst := range allInstructions(fn) {
		for _, arg := range inst.Args {
			if !strings.HasPrefix(arg, "%") || strings.Contains(arg, ".") {
				continue
			}
			n, err := strconv.Atoi(strings.TrimPrefix(arg, "%"))
			if err != nil {
				continue
			}
			seen = append(seen, n)
		}
	}
	require.NotEmpty(t, seen)

	max := seen[0]
	for _, n := range seen {
		if n > max {
			max = n
		}
	}
	assert.Equal(t, fn.NumTemps, max+1, "highest temp number plus one must equal NumTemps")

	present := make(map[int]bool, len(seen))
	for _, n := range seen {
		present[n] = true
	}
	for n := 0; n <= max; n++ {
		assert.True(t, present[n], "temp %%%d is a gap in numbering", n)
	}
}

// Property 8 (round-trip, loosened to what this package can check without a
// re-lexer): pretty-printing a function and reading back its opcode tokens
// yields the same opcode sequence, in order, as the in-memory active
// instructions.
func TestPropertyPrintRoundTripsOpcodeSequence(t *testing.T) {
	prog := buildProgram(t, `int main(){
    int x;
    x = 2 + 3;
    if (x > 0) {
        print(x);
    }
    return x;
}`)
	fn := funcByName(prog, "main")
	require.NotNil(t, fn)

	var wantOps []string
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			if inst.Active {
				wantOps = append(wantOps, inst.Op)
			}
		}
	}

	printed := Print(prog)
	var gotOps []string
	inFunc := false
	for _, line := range strings.Split(printed, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !inFunc && trimmed == "define @main" {
			inFunc = true
			continue
		}
		if !inFunc {
			continue
		}
		if strings.HasSuffix(trimmed, ":") {
			continue
		}
		gotOps = append(gotOps, strings.SplitN(trimmed, " ", 2)[0])
	}

	assert.Equal(t, wantOps, gotOps)
}
