// Package semantic type-checks a uC AST, decorating every expression and
// declaration with a NodeInfo and collecting diagnostics along the way. It
// walks the tree in the same pre-order-in/post-order-out shape as the
// original analyzer: every node's children are visited (threading the
// current scope down) before the node itself is decorated.
package semantic

import (
	"fmt"

	"uc/internal/ast"
	"uc/internal/errors"
	"uc/internal/types"
)

// Analyzer performs a single pass over a Program, type-checking and
// decorating it. Diagnostics accumulate rather than abort the pass, so one
// run surfaces more than one error.
type Analyzer struct {
	global *SymbolTable
	pool   *ConstantPool
	diags  []errors.CompilerError

	curFunc *ast.FuncDef
	loops   int // nesting depth of while/for, for break validation
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		global: NewSymbolTable(nil),
		pool:   NewConstantPool(),
	}
}

func (a *Analyzer) Diagnostics() []errors.CompilerError { return a.diags }

func (a *Analyzer) Constants() *ConstantPool { return a.pool }

func (a *Analyzer) error(e errors.CompilerError) { a.diags = append(a.diags, e) }

// Analyze type-checks prog in place and returns the accumulated diagnostics.
func (a *Analyzer) Analyze(prog *ast.Program) []errors.CompilerError {
	for _, d := range prog.Decls {
		a.visitTopLevel(d)
	}
	return a.diags
}

func (a *Analyzer) visitTopLevel(node ast.Node) {
	switch n := node.(type) {
	case *ast.GlobalDecl:
		a.visitDecl(n.Decl, a.global, true)
	case *ast.FuncDecl:
		a.registerFuncDecl(n)
	case *ast.FuncDef:
		a.visitFuncDef(n)
	}
}

func (a *Analyzer) declaratorShape(declarator ast.Node) (array bool, dims []int) {
	cur := declarator
	for {
		if ad, ok := cur.(*ast.ArrayDecl); ok {
			array = true
			if ad.HasSize {
				dims = append(dims, ad.Size)
			} else {
				dims = append(dims, -1)
			}
			cur = ad.Elem
			continue
		}
		if pd, ok := cur.(*ast.PtrDecl); ok {
			cur = pd.Elem
			continue
		}
		break
	}
	return array, dims
}

func (a *Analyzer) registerFuncDecl(n *ast.FuncDecl) *Symbol {
	paramTypes := make([]*types.Descriptor, 0, len(n.Params.Params))
	paramArray := make([]bool, 0, len(n.Params.Params))
	paramDepth := make([]int, 0, len(n.Params.Params))
	for _, p := range n.Params.Params {
		paramTypes = append(paramTypes, types.ByName(p.Type.Name))
		array, dims := a.declaratorShape(p.Declarator)
		paramArray = append(paramArray, array)
		paramDepth = append(paramDepth, len(dims))
	}
	ret := types.ByName(n.Type.Name)

	if existing := a.global.LookupLocal(n.Name); existing != nil && existing.Kind == SymbolFunction {
		if !sameSignature(existing, paramTypes, paramArray, paramDepth) || !types.Equal(existing.ReturnType, ret) {
			a.error(errors.NewSemanticError(errors.ErrorSignatureMismatch,
				fmt.Sprintf("function '%s' does not match its earlier declaration", n.Name), toPos(n.Pos)).Build())
		}
		return existing
	}

	n.Info().Func = true
	n.Info().Type = ret
	n.Info().ParamTypes = paramTypes
	sym := a.global.DefineFunction(n.Name, n, toPos(n.Pos), paramTypes, ret)
	sym.ParamArray = paramArray
	sym.ParamDepth = paramDepth
	return sym
}

// sameSignature compares a freshly-parsed declaration's parameter shape
// against an already-registered function symbol, per parameter base type
// *and* declarator shape, so `void f(int x)` and `void f(int x[])` are
// seen as a signature mismatch rather than two identical declarations.
func sameSignature(existing *Symbol, paramTypes []*types.Descriptor, paramArray []bool, paramDepth []int) bool {
	if len(existing.ParamTypes) != len(paramTypes) {
		return false
	}
	for i := range paramTypes {
		if !types.Equal(existing.ParamTypes[i], paramTypes[i]) {
			return false
		}
		if existing.ParamArray[i] != paramArray[i] || existing.ParamDepth[i] != paramDepth[i] {
			return false
		}
	}
	return true
}

func (a *Analyzer) visitFuncDef(n *ast.FuncDef) {
	sym := a.registerFuncDecl(n.Decl)
	n.Info().Func = true
	n.Info().Type = sym.ReturnType
	n.Info().ParamTypes = sym.ParamTypes

	scope := NewSymbolTable(a.global)
	for _, p := range n.Decl.Params.Params {
		a.visitDecl(p, scope, false)
	}

	prevFunc, prevLoops := a.curFunc, a.loops
	a.curFunc, a.loops = n, 0
	a.visitCompound(n.Body, scope)
	a.curFunc, a.loops = prevFunc, prevLoops

	if sym.ReturnType != nil && sym.ReturnType.Kind != types.Void && !compoundReturns(n.Body) {
		a.error(errors.MissingReturn(n.Decl.Name, string(sym.ReturnType.Kind), toPos(n.Pos)))
	}
}

// compoundReturns reports whether every control path through body ends in a
// return statement, used for the missing-return-on-some-path diagnostic.
func compoundReturns(body *ast.Compound) bool {
	return stmtsReturn(body.Items)
}

func stmtsReturn(items []ast.Stmt) bool {
	for _, s := range items {
		if stmtReturns(s) {
			return true
		}
	}
	return false
}

func stmtReturns(s ast.Stmt) bool {
	switch n := s.(type) {
	case *ast.Return:
		return true
	case *ast.Compound:
		return stmtsReturn(n.Items)
	case *ast.If:
		if n.Else == nil {
			return false
		}
		return stmtReturns(n.Then) && stmtReturns(n.Else)
	}
	return false
}

func (a *Analyzer) visitDecl(d *ast.Decl, scope *SymbolTable, isGlobal bool) {
	baseType := types.ByName(d.Type.Name)
	array, dims := a.declaratorShape(d.Declarator)

	info := d.Info()
	info.Type = baseType
	info.Array = array
	info.Depth = len(dims)
	info.Dims = dims
	if array && len(dims) > 0 && dims[0] >= 0 {
		info.Length = dims[0]
		info.HasLength = true
	}

	if existing := scope.LookupLocal(d.Name.Name); existing != nil {
		a.error(errors.DuplicateDeclaration(d.Name.Name, toPos(d.Pos)))
	} else {
		scope.DefineVariable(d.Name.Name, d, toPos(d.Pos), baseType, array, len(dims))
	}

	if d.Init != nil {
		switch init := d.Init.(type) {
		case *ast.InitList:
			a.visitInitList(init, scope)
			if array && len(dims) > 0 && dims[0] >= 0 && init.Info().Length != dims[0] {
				a.error(errors.ArraySizeMismatch(d.Name.Name, dims[0], init.Info().Length, toPos(init.Pos)))
			}
		case ast.Expr:
			a.visitExpr(init, scope)
			if !array && !info.Equal(*init.Info()) {
				a.error(errors.TypeMismatch(string(baseType.Kind), exprTypeName(init), toPos(init.NodePos())))
			}
		}
	}
}

func (a *Analyzer) visitInitList(n *ast.InitList, scope *SymbolTable) {
	var elemType *types.Descriptor
	for _, item := range n.Items {
		switch it := item.(type) {
		case *ast.InitList:
			a.visitInitList(it, scope)
		case ast.Expr:
			a.visitExpr(it, scope)
			if elemType == nil {
				elemType = it.Info().Type
			} else if !types.Equal(elemType, it.Info().Type) {
				a.error(errors.TypeMismatch(string(elemType.Kind), exprTypeName(it), toPos(it.NodePos())))
			}
		}
	}
	n.Info().Array = true
	n.Info().HasLength = true
	n.Info().Length = len(n.Items)
	n.Info().Type = elemType
}

func (a *Analyzer) visitCompound(n *ast.Compound, parent *SymbolTable) {
	scope := NewSymbolTable(parent)
	for _, item := range n.Items {
		a.visitStmt(item, scope)
	}
}

func (a *Analyzer) visitStmt(s ast.Stmt, scope *SymbolTable) {
	switch n := s.(type) {
	case *ast.Decl:
		a.visitDecl(n, scope, false)
	case *ast.DeclList:
		for _, d := range n.Decls {
			a.visitDecl(d, scope, false)
		}
	case *ast.Compound:
		a.visitCompound(n, scope)
	case *ast.If:
		a.visitExpr(n.Cond, scope)
		if n.Cond.Info().Type != nil && n.Cond.Info().Type.Kind != types.Bool {
			a.error(errors.ConditionNotBool(exprTypeName(n.Cond), toPos(n.Cond.NodePos())))
		}
		a.visitStmt(n.Then, scope)
		if n.Else != nil {
			a.visitStmt(n.Else, scope)
		}
	case *ast.While:
		a.visitExpr(n.Cond, scope)
		if n.Cond.Info().Type != nil && n.Cond.Info().Type.Kind != types.Bool {
			a.error(errors.ConditionNotBool(exprTypeName(n.Cond), toPos(n.Cond.NodePos())))
		}
		a.loops++
		a.visitStmt(n.Body, scope)
		a.loops--
	case *ast.For:
		loopScope := NewSymbolTable(scope)
		if decl, ok := n.Init.(*ast.Decl); ok {
			a.visitDecl(decl, loopScope, false)
		} else if expr, ok := n.Init.(ast.Expr); ok {
			a.visitExpr(expr, loopScope)
		}
		if n.Cond != nil {
			a.visitExpr(n.Cond, loopScope)
			if n.Cond.Info().Type != nil && n.Cond.Info().Type.Kind != types.Bool {
				a.error(errors.ConditionNotBool(exprTypeName(n.Cond), toPos(n.Cond.NodePos())))
			}
		}
		if n.Post != nil {
			a.visitExpr(n.Post, loopScope)
		}
		a.loops++
		a.visitStmt(n.Body, loopScope)
		a.loops--
	case *ast.Return:
		var retType *types.Descriptor
		if n.Value != nil {
			a.visitExpr(n.Value, scope)
			retType = n.Value.Info().Type
		} else {
			retType = types.VoidType
		}
		n.Func = a.curFunc
		if a.curFunc != nil {
			want := a.curFunc.Info().Type
			if want != nil && !types.Equal(want, retType) {
				a.error(errors.TypeMismatch(string(want.Kind), descName(retType), toPos(n.Pos)))
			}
		}
	case *ast.Break:
		if a.loops == 0 {
			a.error(errors.InvalidAssignment("break used outside of a loop", toPos(n.Pos)))
		}
	case *ast.Assert:
		a.visitExpr(n.Cond, scope)
		if n.Cond.Info().Type != nil && n.Cond.Info().Type.Kind != types.Bool {
			a.error(errors.ConditionNotBool(exprTypeName(n.Cond), toPos(n.Cond.NodePos())))
		}
		n.MessageIndex = a.pool.InternString(fmt.Sprintf("assertion_fail on %s", toPos(n.Pos)))
	case *ast.Print:
		for _, e := range n.Args {
			a.visitExpr(e, scope)
		}
	case *ast.Read:
		for _, e := range n.Args {
			a.visitExpr(e, scope)
			if id, ok := e.(*ast.ID); ok {
				scope.MarkUsed(id.Name)
			}
		}
	case *ast.EmptyStatement:
		// nothing to decorate
	case *ast.ExprStmt:
		a.visitExpr(n.X, scope)
	}
}

func (a *Analyzer) visitExpr(e ast.Expr, scope *SymbolTable) {
	switch n := e.(type) {
	case *ast.ID:
		a.visitID(n, scope)
	case *ast.Constant:
		a.visitConstant(n)
	case *ast.BinaryOp:
		a.visitBinaryOp(n, scope)
	case *ast.UnaryOp:
		a.visitUnaryOp(n, scope)
	case *ast.Assignment:
		a.visitAssignment(n, scope)
	case *ast.Cast:
		a.visitExpr(n.Operand, scope)
		n.Info().Type = types.ByName(n.Type.Name)
	case *ast.ArrayRef:
		a.visitArrayRef(n, scope)
	case *ast.FuncCall:
		a.visitFuncCall(n, scope)
	case *ast.ExprList:
		for _, item := range n.Items {
			a.visitExpr(item, scope)
		}
	}
}

func (a *Analyzer) visitID(n *ast.ID, scope *SymbolTable) {
	sym := scope.Lookup(n.Name)
	if sym == nil {
		sym = a.global.Lookup(n.Name)
	}
	if sym == nil {
		a.error(errors.UndefinedVariable(n.Name, toPos(n.Pos), nil))
		scope.DefineVariable(n.Name, n, toPos(n.Pos), types.AnyType, false, 0)
		n.Info().Type = types.AnyType
		return
	}
	sym.Used = true
	n.Info().Type = sym.Type
	n.Info().Array = sym.Array
	n.Info().Depth = sym.Depth
	n.Info().Func = sym.Kind == SymbolFunction
	n.Info().ParamTypes = sym.ParamTypes
	if decl, ok := sym.Node.(*ast.Decl); ok {
		n.Info().Dims = decl.Info().Dims
	}
}

func (a *Analyzer) visitConstant(n *ast.Constant) {
	switch n.Kind {
	case "int":
		n.Info().Type = types.IntType
	case "float":
		n.Info().Type = types.FloatType
	case "char":
		n.Info().Type = types.CharType
	case "string":
		n.Info().Type = types.StringType
		n.Info().Index = a.pool.InternString(n.Value)
		n.Info().HasIndex = true
	}
}

func (a *Analyzer) visitBinaryOp(n *ast.BinaryOp, scope *SymbolTable) {
	a.visitExpr(n.Left, scope)
	a.visitExpr(n.Right, scope)

	lt, rt := n.Left.Info().Type, n.Right.Info().Type
	if !n.Left.Info().Equal(*n.Right.Info()) {
		a.error(errors.InvalidOperation(n.Op, descName(lt), descName(rt), toPos(n.Pos)))
		n.Info().Type = types.AnyType
		return
	}

	isRel := isRelOp(n.Op)
	if isRel {
		if !lt.HasRel(n.Op) {
			a.error(errors.InvalidOperation(n.Op, descName(lt), descName(rt), toPos(n.Pos)))
		}
		n.Info().Type = types.BoolType
		return
	}
	if !lt.HasBinary(n.Op) {
		a.error(errors.InvalidOperation(n.Op, descName(lt), descName(rt), toPos(n.Pos)))
	}
	n.Info().Type = lt
}

func isRelOp(op string) bool {
	switch op {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		return true
	}
	return false
}

func (a *Analyzer) visitUnaryOp(n *ast.UnaryOp, scope *SymbolTable) {
	a.visitExpr(n.Operand, scope)
	t := n.Operand.Info().Type
	if t != nil && !t.HasUnary(baseUnary(n.Op)) {
		a.error(errors.InvalidOperation(n.Op, descName(t), "", toPos(n.Pos)))
	}
	n.Info().Array = n.Operand.Info().Array
	switch n.Op {
	case "&":
		n.Info().Type = types.PtrType
	case "*":
		n.Info().Type = t
	default:
		n.Info().Type = t
	}
}

// baseUnary strips the postfix "p" marker (p++/p--) used by the AST's
// unary-operator enum so both prefix and postfix forms check against the
// same operator-permission entry.
func baseUnary(op string) string {
	if len(op) > 1 && op[0] == 'p' {
		return op[1:]
	}
	return op
}

func (a *Analyzer) visitAssignment(n *ast.Assignment, scope *SymbolTable) {
	a.visitExpr(n.Left, scope)
	a.visitExpr(n.Right, scope)

	if _, ok := n.Left.(*ast.ID); !ok {
		if _, ok := n.Left.(*ast.ArrayRef); !ok {
			a.error(errors.InvalidAssignment("assignment target must be a variable or array element", toPos(n.Pos)))
		}
	}
	if id, ok := n.Left.(*ast.ID); ok {
		scope.MarkUsed(id.Name)
	}

	lt := n.Left.Info().Type
	if lt != nil && !lt.HasAssign(n.Op) {
		a.error(errors.InvalidOperation(n.Op, descName(lt), descName(n.Right.Info().Type), toPos(n.Pos)))
	}
	if !n.Left.Info().Equal(*n.Right.Info()) {
		a.error(errors.TypeMismatch(descName(lt), descName(n.Right.Info().Type), toPos(n.Right.NodePos())))
	}
	n.Info().Type = lt
}

func (a *Analyzer) visitArrayRef(n *ast.ArrayRef, scope *SymbolTable) {
	a.visitExpr(n.Array, scope)
	a.visitExpr(n.Index, scope)

	if n.Index.Info().Type != nil && n.Index.Info().Type.Kind != types.Int {
		a.error(errors.ArrayIndexNotInt(descName(n.Index.Info().Type), toPos(n.Index.NodePos())))
	}

	base := n.Array.Info()
	unknownStride := len(base.Dims) < base.Depth
	if _, root := n.Array.(*ast.ID); root {
		for k := 1; k < len(base.Dims); k++ {
			if base.Dims[k] < 0 {
				unknownStride = true
			}
		}
	}
	if base.Depth > 1 && unknownStride {
		a.error(errors.UnknownArrayStride(arrayRootName(n.Array), toPos(n.Pos)))
	}

	n.Info().Type = base.Type
	n.Info().Array = base.Depth > 1
	n.Info().Depth = base.Depth - 1
	if len(base.Dims) > 1 {
		n.Info().Dims = base.Dims[1:]
	}
}

func arrayRootName(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.ID:
		return n.Name
	case *ast.ArrayRef:
		return arrayRootName(n.Array)
	}
	return "<expr>"
}

func (a *Analyzer) visitFuncCall(n *ast.FuncCall, scope *SymbolTable) {
	sym := a.global.Lookup(n.Callee.Name)
	for _, arg := range n.Args {
		a.visitExpr(arg, scope)
	}

	if sym == nil || sym.Kind != SymbolFunction {
		a.error(errors.UndefinedFunction(n.Callee.Name, toPos(n.Pos), nil))
		n.Info().Type = types.AnyType
		return
	}

	if len(n.Args) != len(sym.ParamTypes) {
		a.error(errors.InvalidArguments(n.Callee.Name, len(sym.ParamTypes), len(n.Args), toPos(n.Pos)))
	} else {
		for i, arg := range n.Args {
			want := ast.NodeInfo{Type: sym.ParamTypes[i], Array: sym.ParamArray[i], Depth: sym.ParamDepth[i]}
			if !arg.Info().Equal(want) {
				a.error(errors.TypeMismatch(descName(sym.ParamTypes[i]), descName(arg.Info().Type), toPos(arg.NodePos())))
			}
		}
	}

	n.Callee.Info().Func = true
	n.Info().Type = sym.ReturnType
}

func descName(d *types.Descriptor) string {
	if d == nil {
		return "unknown"
	}
	return string(d.Kind)
}

func exprTypeName(e ast.Expr) string { return descName(e.Info().Type) }

func toPos(p ast.Position) ast.Position { return p }
