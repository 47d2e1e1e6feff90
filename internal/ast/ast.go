// Package ast defines the closed set of uC AST node shapes accepted by the
// semantic analyzer. The parser collaborator is the only producer of these
// types; every other pass only consumes them.
package ast

import (
	"fmt"

	"uc/internal/types"
)

type Position struct {
	Line   int
	Column int
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// Base carries source coordinates shared by every node.
type Base struct {
	Pos    Position
	EndPos Position
}

func (b Base) NodePos() Position    { return b.Pos }
func (b Base) NodeEndPos() Position { return b.EndPos }

// Node is implemented by every AST node.
type Node interface {
	NodePos() Position
	NodeEndPos() Position
}

// NodeInfo is the semantic decoration attached to a node by the analyzer.
// It generalizes the original analyzer's single overloaded "params" slot
// into two typed fields (ParamTypes for function signatures, ArrayValues
// for unboxed initializer literals) since Go has no dynamic dict value.
type NodeInfo struct {
	Type   *types.Descriptor
	Array  bool
	Depth  int
	Length int // statically known outer size, valid when HasLength
	HasLength bool
	Dims   []int // statically known size of each array dimension, outer to inner

	ParamTypes  []*types.Descriptor // ordered parameter types, for function-typed identifiers
	ArrayValues []any               // unboxed flattened literal values, for constant array initializers

	Func bool // this identifier names a function

	Location string // IR temporary/global name, filled in during lowering
	Index    int    // constant pool index, valid when HasIndex
	HasIndex bool
}

// Equal implements the decoration-equality rule: two NodeInfos agree iff
// Func, Array, Depth and Type all agree, with the char<->string exemption.
func (n NodeInfo) Equal(o NodeInfo) bool {
	if n.Func != o.Func || n.Array != o.Array || n.Depth != o.Depth {
		return false
	}
	if types.Equal(n.Type, o.Type) {
		return true
	}
	return n.Type != nil && o.Type != nil && types.CharStringCompatible(n.Type, o.Type)
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	isExpr()
	Info() *NodeInfo
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	isStmt()
}

// exprBase gives every expression node its NodeInfo storage.
type exprBase struct {
	Base
	info NodeInfo
}

func (e *exprBase) Info() *NodeInfo { return &e.info }
func (*exprBase) isExpr()           {}

// ---- Program & top-level declarations ----

type Program struct {
	Base
	Decls []Node // GlobalDecl | FuncDecl | FuncDef, in source order
}

type GlobalDecl struct {
	Base
	Decl *Decl
}

func (*GlobalDecl) isStmt() {}

type FuncDecl struct {
	Base
	Name   string
	Params *ParamList
	Type   *Type
	info   NodeInfo
}

func (f *FuncDecl) Info() *NodeInfo { return &f.info }

type FuncDef struct {
	Base
	Decl *FuncDecl
	Body *Compound
	info NodeInfo

	// RetTarget/ExitLabel are filled in during lowering: RetTarget is the
	// temporary holding the function's result slot, ExitLabel the label of
	// the converged exit block.
	RetTarget string
	ExitLabel string
}

func (f *FuncDef) Info() *NodeInfo { return &f.info }

// ---- Declarators ----

type Type struct {
	Base
	Name string // void | char | int | float
}

type VarDecl struct {
	Base
	Name *ID
}

type ArrayDecl struct {
	Base
	Elem    Node // VarDecl | ArrayDecl | PtrDecl
	HasSize bool
	Size    int
}

type PtrDecl struct {
	Base
	Elem Node
}

// Decl binds a name (possibly array/pointer-shaped) of a given Type to an
// optional initializer.
type Decl struct {
	Base
	Name    *ID
	Type    *Type
	Declarator Node // VarDecl | ArrayDecl | PtrDecl
	Init    Node    // Expr | *InitList, or nil
	info    NodeInfo

	// GenLocation is filled in during lowering: the alloca/global this
	// declaration's storage was given.
	GenLocation string
}

func (d *Decl) Info() *NodeInfo { return &d.info }
func (*Decl) isStmt()           {}

type ParamList struct {
	Base
	Params []*Decl
}

type DeclList struct {
	Base
	Decls []*Decl
}

func (*DeclList) isStmt() {}

type InitList struct {
	Base
	Items []Node // Expr | *InitList
	info  NodeInfo
}

func (i *InitList) Info() *NodeInfo { return &i.info }
func (*InitList) isExpr()           {}

// ---- Expressions ----

type ID struct {
	exprBase
	Name string
}

type Constant struct {
	exprBase
	Kind  string // int | float | char | string
	Value string
}

type BinaryOp struct {
	exprBase
	Op    string
	Left  Expr
	Right Expr
}

type UnaryOp struct {
	exprBase
	Op      string // one of + - ! ++ -- p++ p-- * &, postfix forms prefixed with "p"
	Operand Expr
}

type Assignment struct {
	exprBase
	Op    string // = += -= *= /= %=
	Left  Expr   // ID | ArrayRef
	Right Expr
}

type Cast struct {
	exprBase
	Type    *Type
	Operand Expr
}

type ArrayRef struct {
	exprBase
	Array Expr // ID | ArrayRef (for a[i][j])
	Index Expr
}

type FuncCall struct {
	exprBase
	Callee *ID
	Args   []Expr
}

type ExprList struct {
	exprBase
	Items []Expr
}

// ---- Statements ----

type Compound struct {
	Base
	Items []Stmt
}

func (*Compound) isStmt() {}

type If struct {
	Base
	Cond Expr
	Then Stmt
	Else Stmt // nil if no else
}

func (*If) isStmt() {}

type While struct {
	Base
	Cond Expr
	Body Stmt
}

func (*While) isStmt() {}

type For struct {
	Base
	Init Node // Decl | Expr | nil
	Cond Expr // nil means "always true"
	Post Expr // nil if absent
	Body Stmt
}

func (*For) isStmt() {}

type Return struct {
	Base
	Value Expr // nil for a bare return in a void function
	Func  *FuncDef
}

func (*Return) isStmt() {}

type Break struct {
	Base
}

func (*Break) isStmt() {}

type Assert struct {
	Base
	Cond    Expr
	// MessageIndex is the constant-pool index of the interned
	// "assertion_fail on L:C" diagnostic string, set during decoration.
	MessageIndex int
}

func (*Assert) isStmt() {}

type Print struct {
	Base
	Args []Expr
}

func (*Print) isStmt() {}

type Read struct {
	Base
	Args []Expr
}

func (*Read) isStmt() {}

type EmptyStatement struct {
	Base
}

func (*EmptyStatement) isStmt() {}

// ExprStmt wraps a bare expression (a call, an assignment, an increment)
// used as a statement.
type ExprStmt struct {
	Base
	X Expr
}

func (*ExprStmt) isStmt() {}
