package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uc/internal/ast"
)

func TestParseSourceFunctionDefinition(t *testing.T) {
	tree, err := ParseSource("test.uc", `int add(int a, int b) {
    return a + b;
}`)
	require.NoError(t, err)
	require.Len(t, tree.Decls, 1)
	assert.NotNil(t, tree.Decls[0].Func)
	assert.Equal(t, "add", tree.Decls[0].Name)
}

func TestParseSourceGlobalWithInitializer(t *testing.T) {
	tree, err := ParseSource("test.uc", `int counter = 0;`)
	require.NoError(t, err)
	require.Len(t, tree.Decls, 1)
	require.NotNil(t, tree.Decls[0].Var)
	require.NotNil(t, tree.Decls[0].Var.Init)
	assert.Equal(t, "0", *tree.Decls[0].Var.Init)
}

func TestParseSourceSyntaxErrorReportsPosition(t *testing.T) {
	_, err := ParseSource("test.uc", `int broken( {`)
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, "test.uc", pe.Filename)
	assert.Greater(t, pe.Line, 0)
}

func TestParseSourceArrayDeclarationAndForwardDecl(t *testing.T) {
	tree, err := ParseSource("test.uc", `int table[10];
void helper(int n);`)
	require.NoError(t, err)
	require.Len(t, tree.Decls, 2)

	require.NotNil(t, tree.Decls[0].Array)
	require.Len(t, tree.Decls[0].Array.Dims, 1)
	require.NotNil(t, tree.Decls[0].Array.Dims[0].Size)
	assert.Equal(t, "10", *tree.Decls[0].Array.Dims[0].Size)

	require.NotNil(t, tree.Decls[1].Func)
	assert.True(t, tree.Decls[1].Func.Forward)
	assert.Nil(t, tree.Decls[1].Func.Body)
}

func TestToASTBuildsExpectedPrecedence(t *testing.T) {
	tree, err := ParseSource("test.uc", `int f() {
    int x;
    x = 1 + 2 * 3;
    return x;
}`)
	require.NoError(t, err)
	prog := ToAST(tree)
	require.Len(t, prog.Decls, 1)

	def, ok := prog.Decls[0].(*ast.FuncDef)
	require.True(t, ok)
	require.Len(t, def.Body.Items, 3)

	assignStmt, ok := def.Body.Items[1].(*ast.ExprStmt)
	require.True(t, ok)
	assign, ok := assignStmt.X.(*ast.Assignment)
	require.True(t, ok)
	assert.Equal(t, "=", assign.Op)

	add, ok := assign.Right.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "+", add.Op)

	mul, ok := add.Right.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "*", mul.Op, "2 * 3 must bind tighter than 1 + (...)")
}

func TestToASTConvertsIfWhileForControlFlow(t *testing.T) {
	tree, err := ParseSource("test.uc", `int f(int n) {
    int i;
    for (i = 0; i < n; i = i + 1) {
        if (i == 0) {
            print(i);
        } else {
            break;
        }
    }
    while (i > 0) {
        i = i - 1;
    }
    return i;
}`)
	require.NoError(t, err)
	prog := ToAST(tree)
	def := prog.Decls[0].(*ast.FuncDef)

	_, isFor := def.Body.Items[1].(*ast.For)
	assert.True(t, isFor)
	_, isWhile := def.Body.Items[2].(*ast.While)
	assert.True(t, isWhile)

	forStmt := def.Body.Items[1].(*ast.For)
	ifStmt, ok := forStmt.Body.(*ast.Compound).Items[0].(*ast.If)
	require.True(t, ok)
	assert.NotNil(t, ifStmt.Else)
}

func TestToASTConvertsArrayRefAndCall(t *testing.T) {
	tree, err := ParseSource("test.uc", `int f(int a[10]) {
    return a[g(1, 2)];
}
int g(int x, int y) {
    return x + y;
}`)
	require.NoError(t, err)
	prog := ToAST(tree)
	def := prog.Decls[0].(*ast.FuncDef)

	ret, ok := def.Body.Items[0].(*ast.Return)
	require.True(t, ok)
	ref, ok := ret.Value.(*ast.ArrayRef)
	require.True(t, ok)
	call, ok := ref.Index.(*ast.FuncCall)
	require.True(t, ok)
	assert.Equal(t, "g", call.Callee.Name)
	assert.Len(t, call.Args, 2)
}
