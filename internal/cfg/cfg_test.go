package cfg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uc/internal/ir"
	"uc/internal/parser"
	"uc/internal/semantic"
)

func buildFunction(t *testing.T, source, name string) *ir.Function {
	t.Helper()
	tree, err := parser.ParseSource("test.uc", source)
	require.NoError(t, err)
	prog := parser.ToAST(tree)
	analyzer := semantic.NewAnalyzer()
	require.Empty(t, analyzer.Analyze(prog))
	irProg := ir.NewBuilder().Build(prog, analyzer.Constants().Strings())
	for _, fn := range irProg.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %q not found", name)
	return nil
}

func TestRenderProducesConditionBlockPorts(t *testing.T) {
	fn := buildFunction(t, `int choose(int a, int b) {
    if (a > b) {
        return a;
    }
    return b;
}`, "choose")

	dot := Render(fn)
	assert.True(t, strings.HasPrefix(dot, "digraph choose {\n"))
	assert.Contains(t, dot, ":f0 ->")
	assert.Contains(t, dot, ":f1 ->")
	assert.Contains(t, dot, "<f0>T")
	assert.Contains(t, dot, "<f1>F")
	assert.True(t, strings.HasSuffix(dot, "}\n"))
}

func TestRenderLinksHeadToEntry(t *testing.T) {
	fn := buildFunction(t, `int id(int a) {
    return a;
}`, "id")

	dot := Render(fn)
	assert.Contains(t, dot, "id.head")
	assert.Contains(t, dot, fn.Entry.Label)
}
