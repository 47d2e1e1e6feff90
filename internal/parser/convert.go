package parser

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"uc/grammar"
	"uc/internal/ast"
)

// ToAST converts a participle parse tree into the semantic AST. Every node
// produced while converting one grammar.Expression shares that expression's
// source position; the grammar's precedence-climbing helper types (AddExpr,
// MulExpr, ...) don't carry their own positions.
func ToAST(prog *grammar.Program) *ast.Program {
	out := &ast.Program{Base: posRange(prog.Pos, prog.EndPos)}
	for _, d := range prog.Decls {
		out.Decls = append(out.Decls, convertTopLevel(d))
	}
	return out
}

func astPos(p lexer.Position) ast.Position { return ast.Position{Line: p.Line, Column: p.Column} }

func posRange(start, end lexer.Position) ast.Base {
	return ast.Base{Pos: astPos(start), EndPos: astPos(end)}
}

func convertTopLevel(d *grammar.TopLevel) ast.Node {
	base := posRange(d.Pos, d.EndPos)
	name := &ast.ID{Name: d.Name}
	name.Pos, name.EndPos = base.Pos, base.EndPos

	if d.Func != nil {
		params := &ast.ParamList{}
		for _, p := range d.Func.Params.Params {
			params.Params = append(params.Params, convertParam(p, base))
		}
		decl := &ast.FuncDecl{Base: base, Name: d.Name, Params: params, Type: &ast.Type{Base: base, Name: d.Type}}
		if d.Func.Body == nil {
			return decl
		}
		return &ast.FuncDef{Base: base, Decl: decl, Body: convertCompound(d.Func.Body)}
	}

	declarator := buildDeclarator(name, d.Array, false)
	decl := &ast.Decl{Base: base, Name: name, Type: &ast.Type{Base: base, Name: d.Type}, Declarator: declarator}
	if d.Var != nil && d.Var.Init != nil {
		decl.Init = &ast.Constant{Kind: "int", Value: *d.Var.Init}
	}
	return &ast.GlobalDecl{Base: base, Decl: decl}
}

func convertParam(p *grammar.Param, base ast.Base) *ast.Decl {
	name := &ast.ID{Name: p.Name}
	name.Pos, name.EndPos = base.Pos, base.EndPos
	return &ast.Decl{
		Base:       base,
		Name:       name,
		Type:       &ast.Type{Base: base, Name: p.Type},
		Declarator: buildDeclarator(name, p.Array, false),
	}
}

// buildDeclarator wraps name in ArrayDecl/PtrDecl layers outer-to-inner,
// matching the bracket order written in source (a[3][4] -> ArrayDecl(3,
// ArrayDecl(4, VarDecl))).
func buildDeclarator(name *ast.ID, array *grammar.ArraySuffix, star bool) ast.Node {
	var node ast.Node = &ast.VarDecl{Name: name}
	if star {
		node = &ast.PtrDecl{Elem: node}
	}
	if array == nil {
		return node
	}
	for i := len(array.Dims) - 1; i >= 0; i-- {
		dim := array.Dims[i]
		size := 0
		has := dim.Size != nil
		if has {
			size, _ = strconv.Atoi(*dim.Size)
		}
		node = &ast.ArrayDecl{Elem: node, HasSize: has, Size: size}
	}
	return node
}

func convertCompound(c *grammar.CompoundStmt) *ast.Compound {
	base := posRange(c.Pos, c.EndPos)
	out := &ast.Compound{Base: base}
	for _, s := range c.Items {
		out.Items = append(out.Items, convertStmt(s))
	}
	return out
}

func convertStmt(s *grammar.Statement) ast.Stmt {
	base := posRange(s.Pos, s.EndPos)
	switch {
	case s.Compound != nil:
		return convertCompound(s.Compound)
	case s.If != nil:
		out := &ast.If{Base: base, Cond: convertExpr(s.If.Cond), Then: convertStmt(s.If.Then)}
		if s.If.Else != nil {
			out.Else = convertStmt(s.If.Else)
		}
		return out
	case s.While != nil:
		return &ast.While{Base: base, Cond: convertExpr(s.While.Cond), Body: convertStmt(s.While.Body)}
	case s.For != nil:
		f := &ast.For{Base: base, Body: convertStmt(s.For.Body)}
		if s.For.InitDecl != nil {
			f.Init = convertDeclStmt(s.For.InitDecl)
		} else if s.For.InitExpr != nil {
			f.Init = convertExpr(s.For.InitExpr)
		}
		if s.For.Cond != nil {
			f.Cond = convertExpr(s.For.Cond)
		}
		if s.For.Post != nil {
			f.Post = convertExpr(s.For.Post)
		}
		return f
	case s.Return != nil:
		out := &ast.Return{Base: base}
		if s.Return.Value != nil {
			out.Value = convertExpr(s.Return.Value)
		}
		return out
	case s.Break != nil:
		return &ast.Break{Base: base}
	case s.Assert != nil:
		return &ast.Assert{Base: base, Cond: convertExpr(s.Assert.Cond)}
	case s.Print != nil:
		out := &ast.Print{Base: base}
		for _, a := range s.Print.Args {
			out.Args = append(out.Args, convertExpr(a))
		}
		return out
	case s.Read != nil:
		out := &ast.Read{Base: base}
		for _, a := range s.Read.Args {
			out.Args = append(out.Args, convertExpr(a))
		}
		return out
	case s.Decl != nil:
		return convertDeclStmt(s.Decl)
	case s.Empty:
		return &ast.EmptyStatement{Base: base}
	case s.Expr != nil:
		return &ast.ExprStmt{Base: base, X: convertExpr(s.Expr.X)}
	}
	return &ast.EmptyStatement{Base: base}
}

// convertDeclStmt returns a *ast.Decl when the statement declares a single
// variable, or *ast.DeclList when it declares more than one in a row
// ("int a, b;").
func convertDeclStmt(d *grammar.DeclStmt) ast.Stmt {
	base := posRange(d.Pos, d.EndPos)
	decls := []*ast.Decl{convertInitDeclarator(d.Type, d.First, base)}
	for _, rest := range d.Rest {
		decls = append(decls, convertInitDeclarator(d.Type, rest, base))
	}
	if len(decls) == 1 {
		return decls[0]
	}
	return &ast.DeclList{Base: base, Decls: decls}
}

func convertInitDeclarator(typeName string, d *grammar.InitDeclarator, base ast.Base) *ast.Decl {
	name := &ast.ID{Name: d.Name}
	name.Pos, name.EndPos = base.Pos, base.EndPos
	decl := &ast.Decl{
		Base:       base,
		Name:       name,
		Type:       &ast.Type{Base: base, Name: typeName},
		Declarator: buildDeclarator(name, d.Array, d.Star),
	}
	if d.Init != nil {
		decl.Init = convertInitializer(d.Init, base)
	}
	return decl
}

func convertInitializer(init *grammar.Initializer, base ast.Base) ast.Node {
	if init.List != nil {
		out := &ast.InitList{Base: base}
		for _, item := range init.List.Items {
			out.Items = append(out.Items, convertInitializer(item, base))
		}
		return out
	}
	return convertExpr(init.Expr)
}

// ---- Expressions ----

// setPos stamps an Expr node's promoted Pos/EndPos fields. exprBase, the
// struct every expression node embeds, is unexported, so these can't be set
// through a composite literal from outside package ast.
func setPos(e ast.Expr, base ast.Base) ast.Expr {
	switch n := e.(type) {
	case *ast.ID:
		n.Pos, n.EndPos = base.Pos, base.EndPos
	case *ast.Constant:
		n.Pos, n.EndPos = base.Pos, base.EndPos
	case *ast.BinaryOp:
		n.Pos, n.EndPos = base.Pos, base.EndPos
	case *ast.UnaryOp:
		n.Pos, n.EndPos = base.Pos, base.EndPos
	case *ast.Assignment:
		n.Pos, n.EndPos = base.Pos, base.EndPos
	case *ast.Cast:
		n.Pos, n.EndPos = base.Pos, base.EndPos
	case *ast.ArrayRef:
		n.Pos, n.EndPos = base.Pos, base.EndPos
	case *ast.FuncCall:
		n.Pos, n.EndPos = base.Pos, base.EndPos
	case *ast.ExprList:
		n.Pos, n.EndPos = base.Pos, base.EndPos
	}
	return e
}

func convertExpr(e *grammar.Expression) ast.Expr {
	base := posRange(e.Pos, e.EndPos)
	left := convertLogical(e.Left, base)
	if e.Op == nil {
		return left
	}
	return setPos(&ast.Assignment{Op: *e.Op, Left: left, Right: convertExpr(e.Right)}, base)
}

func convertLogical(n *grammar.LogicalExpr, base ast.Base) ast.Expr {
	left := convertRel(n.Left, base)
	for _, op := range n.Ops {
		left = binOp(base, op.Op, left, convertRel(op.Right, base))
	}
	return left
}

func convertRel(n *grammar.RelExpr, base ast.Base) ast.Expr {
	left := convertAdd(n.Left, base)
	for _, op := range n.Ops {
		left = binOp(base, op.Op, left, convertAdd(op.Right, base))
	}
	return left
}

func convertAdd(n *grammar.AddExpr, base ast.Base) ast.Expr {
	left := convertMul(n.Left, base)
	for _, op := range n.Ops {
		left = binOp(base, op.Op, left, convertMul(op.Right, base))
	}
	return left
}

func convertMul(n *grammar.MulExpr, base ast.Base) ast.Expr {
	left := convertCast(n.Left, base)
	for _, op := range n.Ops {
		left = binOp(base, op.Op, left, convertCast(op.Right, base))
	}
	return left
}

func binOp(base ast.Base, op string, left, right ast.Expr) ast.Expr {
	return setPos(&ast.BinaryOp{Op: op, Left: left, Right: right}, base)
}

func convertCast(n *grammar.CastExpr, base ast.Base) ast.Expr {
	if n.Paren != nil {
		return setPos(&ast.Cast{Type: &ast.Type{Base: base, Name: n.Paren.Type}, Operand: convertCast(n.Paren.X, base)}, base)
	}
	return convertUnary(n.Un, base)
}

func convertUnary(n *grammar.UnaryExpr, base ast.Base) ast.Expr {
	operand := convertPostfix(n.Operand, base)
	if n.Op == nil {
		return operand
	}
	return setPos(&ast.UnaryOp{Op: *n.Op, Operand: operand}, base)
}

func convertPostfix(n *grammar.PostfixExpr, base ast.Base) ast.Expr {
	out := convertPrimary(n.Primary, base)
	for _, s := range n.Suffix {
		switch {
		case s.Index != nil:
			out = setPos(&ast.ArrayRef{Array: out, Index: convertExpr(s.Index)}, base)
		case s.Call != nil:
			if id, ok := out.(*ast.ID); ok {
				call := &ast.FuncCall{Callee: id}
				for _, a := range s.Call.Args {
					call.Args = append(call.Args, convertExpr(a))
				}
				out = setPos(call, base)
			}
		case s.IncDec != nil:
			out = setPos(&ast.UnaryOp{Op: "p" + *s.IncDec, Operand: out}, base)
		}
	}
	return out
}

func convertPrimary(n *grammar.PrimaryExpr, base ast.Base) ast.Expr {
	switch {
	case n.Float != nil:
		return setPos(&ast.Constant{Kind: "float", Value: *n.Float}, base)
	case n.Int != nil:
		return setPos(&ast.Constant{Kind: "int", Value: *n.Int}, base)
	case n.Char != nil:
		return setPos(&ast.Constant{Kind: "char", Value: unquote(*n.Char)}, base)
	case n.Str != nil:
		return setPos(&ast.Constant{Kind: "string", Value: unquote(*n.Str)}, base)
	case n.Ident != nil:
		return setPos(&ast.ID{Name: *n.Ident}, base)
	case n.Paren != nil:
		return convertExpr(n.Paren)
	}
	return setPos(&ast.ID{Name: ""}, base)
}

func unquote(lit string) string {
	return strings.Trim(lit, `'"`)
}
