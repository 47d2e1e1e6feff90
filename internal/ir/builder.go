package ir

import (
	"fmt"
	"strconv"

	"uc/internal/ast"
	"uc/internal/types"
)

// Builder lowers a decorated AST into IR. Locals are three-address: every
// declared variable gets an alloca, reads go through load_<type>, writes
// through store_<type>. This replaces the SSA/phi construction a register
// allocator would otherwise need; nothing here tracks variable versions.
type Builder struct {
	prog *Program

	labelSuffix map[string]int

	fn        *Function
	cur       *BasicBlock
	tempNum   int
	varLoc    map[string]string // variable name -> its alloca location
	globalLoc map[string]string // global variable name -> its @-prefixed location, seeded into every function's varLoc
	loopExit  []*BasicBlock     // top is break's target
}

func NewBuilder() *Builder {
	return &Builder{labelSuffix: make(map[string]int), globalLoc: make(map[string]string)}
}

// Build lowers prog into IR, using the string pool the analyzer interned.
func (b *Builder) Build(prog *ast.Program, constants []string) *Program {
	b.prog = &Program{Constants: constants}

	for _, d := range prog.Decls {
		switch n := d.(type) {
		case *ast.GlobalDecl:
			b.buildGlobal(n.Decl)
		case *ast.FuncDef:
			b.buildFunction(n)
		}
	}
	return b.prog
}

func (b *Builder) buildGlobal(d *ast.Decl) {
	info := d.Info()
	g := &Global{Name: d.Name.Name, Type: string(info.Type.Kind), Dims: info.Dims}
	if d.Init != nil {
		if c, ok := d.Init.(*ast.Constant); ok {
			g.Init = c.Value
		}
	}
	b.prog.Globals = append(b.prog.Globals, g)
	b.globalLoc[d.Name.Name] = "@" + d.Name.Name
}

func (b *Builder) newLabel(base string) string {
	n := b.labelSuffix[base]
	b.labelSuffix[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s.%d", base, n)
}

func (b *Builder) newTemp() string {
	t := fmt.Sprintf("%%%d", b.tempNum)
	b.tempNum++
	b.fn.NumTemps++
	return t
}

// newBlock allocates a block, threads it onto the function's emission-order
// Next chain, and appends it to fn.Blocks.
func (b *Builder) newBlock(label string) *BasicBlock {
	blk := &BasicBlock{Label: label}
	if len(b.fn.Blocks) > 0 {
		b.fn.Blocks[len(b.fn.Blocks)-1].Next = blk
	}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	return blk
}

func (b *Builder) emit(op string, args ...string) {
	b.cur.Instructions = append(b.cur.Instructions, NewInstruction(op, args...))
}

func (b *Builder) buildFunction(def *ast.FuncDef) {
	name := def.Decl.Name
	retType := def.Decl.Info().Type

	paramTypes := make([]string, 0, len(def.Decl.Params.Params))
	for _, p := range def.Decl.Params.Params {
		paramTypes = append(paramTypes, string(p.Info().Type.Kind))
	}

	fn := &Function{Name: name, ParamTypes: paramTypes, ReturnType: string(retType.Kind)}
	b.fn = fn
	b.tempNum = 0
	b.varLoc = make(map[string]string, len(b.globalLoc))
	for name, loc := range b.globalLoc {
		b.varLoc[name] = loc
	}
	b.loopExit = nil

	head := b.newBlock("")
	entry := b.newBlock(b.newLabel("entry"))
	fn.Entry = entry
	head.SetTaken(entry)
	b.cur = entry

	b.emit("define", "@"+name)

	for _, p := range def.Decl.Params.Params {
		b.declareLocal(p, true)
	}

	var retSlot string
	if retType.Kind != types.Void {
		retSlot = "%" + name + ".ret"
		b.emit("alloc_"+string(retType.Kind), retSlot)
	}

	exitLabel := b.newLabel(name + ".exit")
	def.RetTarget = retSlot
	def.ExitLabel = exitLabel

	// Create the exit block now, off to the side of fn.Blocks, so Return
	// and Assert lowering inside the body can SetTaken it. It is spliced
	// into the emission-order chain and given its instructions only once
	// the body is fully lowered.
	exit := &BasicBlock{Label: exitLabel}
	fn.Exit = exit

	b.lowerCompound(def.Body)

	if !blockJumpsAway(b.cur) {
		b.cur.SetTaken(exit)
	}
	if len(fn.Blocks) > 0 {
		fn.Blocks[len(fn.Blocks)-1].Next = exit
	}
	fn.Blocks = append(fn.Blocks, exit)

	fn.Head = head
	b.cur = exit
	if retType.Kind != types.Void {
		r := b.newTemp()
		b.emit("load_"+string(retType.Kind), retSlot, r)
		b.emit("return_"+string(retType.Kind), r)
	} else {
		b.emit("return_void")
	}

	b.prog.Functions = append(b.prog.Functions, fn)
}

func blockJumpsAway(blk *BasicBlock) bool {
	if len(blk.Instructions) == 0 {
		return false
	}
	last := blk.Instructions[len(blk.Instructions)-1]
	return last.Op == "jump" || last.Op == "cbranch"
}

// declareLocal allocates storage for d and, for a parameter, stores the
// incoming argument temporary into it.
func (b *Builder) declareLocal(d *ast.Decl, isParam bool) {
	info := d.Info()
	loc := "%" + d.Name.Name
	b.varLoc[d.Name.Name] = loc

	allocOp := "alloc_" + string(info.Type.Kind)
	if info.Array && info.HasLength {
		allocOp = fmt.Sprintf("%s_%d", allocOp, info.Length)
	}
	b.emit(allocOp, loc)

	if isParam {
		pt := b.newTemp()
		b.emit("param_"+string(info.Type.Kind), pt)
		b.emit("store_"+string(info.Type.Kind), pt, loc)
		return
	}

	if d.Init == nil {
		return
	}
	switch init := d.Init.(type) {
	case *ast.InitList:
		b.lowerInitList(init, loc, info)
	case ast.Expr:
		v := b.lowerExpr(init)
		b.emit("store_"+string(info.Type.Kind), v, loc)
	}
}

func (b *Builder) lowerInitList(n *ast.InitList, loc string, info *ast.NodeInfo) {
	values := make([]string, 0, len(n.Items))
	for _, item := range n.Items {
		if c, ok := item.(*ast.Constant); ok {
			values = append(values, c.Value)
		}
	}
	idx := b.internArrayLiteral(values)
	op := fmt.Sprintf("store_%s_%d", info.Type.Kind, info.Length)
	b.emit(op, fmt.Sprintf("@.str.%d", idx), loc)
}

// internArrayLiteral appends a flattened array literal to the constant pool
// unconditionally: unlike strings, array literals are not deduplicated.
func (b *Builder) internArrayLiteral(values []string) int {
	idx := len(b.prog.Constants)
	flat := ""
	for i, v := range values {
		if i > 0 {
			flat += ","
		}
		flat += v
	}
	b.prog.Constants = append(b.prog.Constants, flat)
	return idx
}

func (b *Builder) lowerCompound(n *ast.Compound) {
	for _, s := range n.Items {
		b.lowerStmt(s)
	}
}

func (b *Builder) lowerStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Decl:
		b.declareLocal(n, false)
	case *ast.DeclList:
		for _, d := range n.Decls {
			b.declareLocal(d, false)
		}
	case *ast.Compound:
		b.lowerCompound(n)
	case *ast.ExprStmt:
		b.lowerExpr(n.X)
	case *ast.If:
		b.lowerIf(n)
	case *ast.While:
		b.lowerWhile(n)
	case *ast.For:
		b.lowerFor(n)
	case *ast.Return:
		b.lowerReturn(n)
	case *ast.Break:
		if len(b.loopExit) > 0 {
			target := b.loopExit[len(b.loopExit)-1]
			b.emit("jump", "label "+target.Label)
			b.cur.SetTaken(target)
		}
	case *ast.Assert:
		b.lowerAssert(n)
	case *ast.Print:
		for _, arg := range n.Args {
			v := b.lowerExpr(arg)
			b.emit("print_"+string(arg.Info().Type.Kind), v)
		}
	case *ast.Read:
		for _, arg := range n.Args {
			id, ok := arg.(*ast.ID)
			if !ok {
				continue
			}
			t := b.newTemp()
			b.emit("read_"+string(id.Info().Type.Kind), t)
			b.emit("store_"+string(id.Info().Type.Kind), t, b.varLoc[id.Name])
		}
	case *ast.EmptyStatement:
	}
}

func (b *Builder) lowerIf(n *ast.If) {
	cond := b.lowerExpr(n.Cond)

	thenBlk := b.newBlock(b.newLabel("if.then"))
	var elseBlk *BasicBlock
	endBlk := b.newBlock(b.newLabel("if.end"))

	if n.Else != nil {
		elseBlk = b.newBlock(b.newLabel("if.else"))
		b.cur.SetBranch(thenBlk, elseBlk)
		b.emit("cbranch", cond, "label "+thenBlk.Label, "label "+elseBlk.Label)
	} else {
		b.cur.SetBranch(thenBlk, endBlk)
		b.emit("cbranch", cond, "label "+thenBlk.Label, "label "+endBlk.Label)
	}

	b.cur = thenBlk
	b.lowerStmt(n.Then)
	if !blockJumpsAway(b.cur) {
		b.emit("jump", "label "+endBlk.Label)
		b.cur.SetTaken(endBlk)
	}

	if n.Else != nil {
		b.cur = elseBlk
		b.lowerStmt(n.Else)
		if !blockJumpsAway(b.cur) {
			b.emit("jump", "label "+endBlk.Label)
			b.cur.SetTaken(endBlk)
		}
	}

	b.cur = endBlk
}

func (b *Builder) lowerWhile(n *ast.While) {
	condBlk := b.newBlock(b.newLabel("while.cond"))
	b.emit("jump", "label "+condBlk.Label)
	b.cur.SetTaken(condBlk)

	bodyBlk := b.newBlock(b.newLabel("while.body"))
	endBlk := b.newBlock(b.newLabel("while.end"))

	b.cur = condBlk
	cond := b.lowerExpr(n.Cond)
	condBlk.SetBranch(bodyBlk, endBlk)
	b.emit("cbranch", cond, "label "+bodyBlk.Label, "label "+endBlk.Label)

	b.loopExit = append(b.loopExit, endBlk)
	b.cur = bodyBlk
	b.lowerStmt(n.Body)
	if !blockJumpsAway(b.cur) {
		b.emit("jump", "label "+condBlk.Label)
		b.cur.SetTaken(condBlk)
	}
	b.loopExit = b.loopExit[:len(b.loopExit)-1]

	b.cur = endBlk
}

func (b *Builder) lowerFor(n *ast.For) {
	switch init := n.Init.(type) {
	case *ast.Decl:
		b.declareLocal(init, false)
	case ast.Expr:
		b.lowerExpr(init)
	}

	condBlk := b.newBlock(b.newLabel("for.cond"))
	b.emit("jump", "label "+condBlk.Label)
	b.cur.SetTaken(condBlk)

	bodyBlk := b.newBlock(b.newLabel("for.body"))
	incBlk := b.newBlock(b.newLabel("for.inc"))
	endBlk := b.newBlock(b.newLabel("for.end"))

	b.cur = condBlk
	if n.Cond != nil {
		cond := b.lowerExpr(n.Cond)
		condBlk.SetBranch(bodyBlk, endBlk)
		b.emit("cbranch", cond, "label "+bodyBlk.Label, "label "+endBlk.Label)
	} else {
		condBlk.SetTaken(bodyBlk)
		b.emit("jump", "label "+bodyBlk.Label)
	}

	b.loopExit = append(b.loopExit, endBlk)
	b.cur = bodyBlk
	b.lowerStmt(n.Body)
	if !blockJumpsAway(b.cur) {
		b.emit("jump", "label "+incBlk.Label)
		b.cur.SetTaken(incBlk)
	}
	b.loopExit = b.loopExit[:len(b.loopExit)-1]

	b.cur = incBlk
	if n.Post != nil {
		b.lowerExpr(n.Post)
	}
	b.emit("jump", "label "+condBlk.Label)
	b.cur.SetTaken(condBlk)

	b.cur = endBlk
}

func (b *Builder) lowerReturn(n *ast.Return) {
	if n.Value != nil {
		v := b.lowerExpr(n.Value)
		b.emit("store_"+string(n.Value.Info().Type.Kind), v, n.Func.RetTarget)
	}
	b.emit("jump", "label "+n.Func.ExitLabel)
	b.cur.SetTaken(b.fn.Exit)
}

func (b *Builder) lowerAssert(n *ast.Assert) {
	cond := b.lowerExpr(n.Cond)

	trueBlk := b.newBlock(b.newLabel("assert.true"))
	falseBlk := b.newBlock(b.newLabel("assert.false"))

	b.cur.SetBranch(trueBlk, falseBlk)
	b.emit("cbranch", cond, "label "+trueBlk.Label, "label "+falseBlk.Label)

	b.cur = falseBlk
	msg := fmt.Sprintf("@.str.%d", n.MessageIndex)
	b.emit("print_string", msg)
	b.emit("jump", "label "+b.fn.Exit.Label)
	b.cur.SetTaken(b.fn.Exit)

	b.cur = trueBlk
}

// ---- Expressions ----

// lowerExpr returns the IR value (temporary, literal reference, or storage
// location) an expression evaluates to.
func (b *Builder) lowerExpr(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.ID:
		t := b.newTemp()
		b.emit("load_"+string(n.Info().Type.Kind), b.varLoc[n.Name], t)
		return t
	case *ast.Constant:
		return b.lowerConstant(n)
	case *ast.BinaryOp:
		return b.lowerBinaryOp(n)
	case *ast.UnaryOp:
		return b.lowerUnaryOp(n)
	case *ast.Assignment:
		return b.lowerAssignment(n)
	case *ast.Cast:
		return b.lowerCast(n)
	case *ast.ArrayRef:
		addr := b.lowerArrayAddr(n)
		t := b.newTemp()
		b.emit("load_"+string(n.Info().Type.Kind)+"_*", addr, t)
		return t
	case *ast.FuncCall:
		return b.lowerFuncCall(n)
	case *ast.ExprList:
		var last string
		for _, item := range n.Items {
			last = b.lowerExpr(item)
		}
		return last
	}
	return ""
}

func (b *Builder) lowerConstant(n *ast.Constant) string {
	kind := n.Info().Type.Kind
	if kind == types.String {
		return fmt.Sprintf("@.str.%d", n.Info().Index)
	}
	t := b.newTemp()
	b.emit("literal_"+string(kind), n.Value, t)
	return t
}

func (b *Builder) lowerBinaryOp(n *ast.BinaryOp) string {
	l := b.lowerExpr(n.Left)
	r := b.lowerExpr(n.Right)

	kind := n.Left.Info().Type.Kind
	op := arithOrCmpOp(n.Op)
	t := b.newTemp()
	b.emit(op+"_"+string(kind), l, r, t)
	return t
}

func arithOrCmpOp(op string) string {
	switch op {
	case "+":
		return "add"
	case "-":
		return "sub"
	case "*":
		return "mul"
	case "/":
		return "div"
	case "%":
		return "mod"
	case "==":
		return "eq"
	case "!=":
		return "ne"
	case "<":
		return "lt"
	case "<=":
		return "le"
	case ">":
		return "gt"
	case ">=":
		return "ge"
	case "&&":
		return "and"
	case "||":
		return "or"
	}
	return op
}

func (b *Builder) lowerUnaryOp(n *ast.UnaryOp) string {
	switch n.Op {
	case "&":
		if id, ok := n.Operand.(*ast.ID); ok {
			t := b.newTemp()
			b.emit("get_"+string(id.Info().Type.Kind)+"_*", b.varLoc[id.Name], t)
			return t
		}
		return b.lowerExpr(n.Operand)
	case "*":
		addr := b.lowerExpr(n.Operand)
		t := b.newTemp()
		b.emit("load_"+string(n.Info().Type.Kind)+"_*", addr, t)
		return t
	case "!":
		v := b.lowerExpr(n.Operand)
		t := b.newTemp()
		b.emit("not", v, t)
		return t
	case "-":
		v := b.lowerExpr(n.Operand)
		kind := n.Operand.Info().Type.Kind
		zero := b.newTemp()
		b.emit("literal_"+string(kind), "0", zero)
		t := b.newTemp()
		b.emit("sub_"+string(kind), zero, v, t)
		return t
	case "+":
		return b.lowerExpr(n.Operand)
	case "++", "--", "p++", "p--":
		return b.lowerIncDec(n)
	}
	return b.lowerExpr(n.Operand)
}

func (b *Builder) lowerIncDec(n *ast.UnaryOp) string {
	id, ok := n.Operand.(*ast.ID)
	if !ok {
		return b.lowerExpr(n.Operand)
	}
	kind := id.Info().Type.Kind
	loc := b.varLoc[id.Name]

	old := b.newTemp()
	b.emit("load_"+string(kind), loc, old)

	one := b.newTemp()
	b.emit("literal_"+string(kind), "1", one)

	op := "add"
	if n.Op == "--" || n.Op == "p--" {
		op = "sub"
	}
	updated := b.newTemp()
	b.emit(op+"_"+string(kind), old, one, updated)
	b.emit("store_"+string(kind), updated, loc)

	if n.Op == "p++" || n.Op == "p--" {
		return old
	}
	return updated
}

func (b *Builder) lowerAssignment(n *ast.Assignment) string {
	var v string
	if n.Op == "=" {
		v = b.lowerExpr(n.Right)
	} else {
		kind := n.Left.Info().Type.Kind
		cur := b.lowerExpr(n.Left)
		rhs := b.lowerExpr(n.Right)
		t := b.newTemp()
		b.emit(arithOrCmpOp(compoundBaseOp(n.Op))+"_"+string(kind), cur, rhs, t)
		v = t
	}

	switch target := n.Left.(type) {
	case *ast.ID:
		b.emit("store_"+string(target.Info().Type.Kind), v, b.varLoc[target.Name])
	case *ast.ArrayRef:
		addr := b.lowerArrayAddr(target)
		b.emit("store_"+string(target.Info().Type.Kind)+"_*", v, addr)
	}
	return v
}

// compoundBaseOp maps a compound-assignment operator to its arithmetic base.
func compoundBaseOp(op string) string {
	switch op {
	case "+=":
		return "+"
	case "-=":
		return "-"
	case "*=":
		return "*"
	case "/=":
		return "/"
	case "%=":
		return "%"
	}
	return op
}

func (b *Builder) lowerCast(n *ast.Cast) string {
	v := b.lowerExpr(n.Operand)
	from := n.Operand.Info().Type.Kind
	to := n.Info().Type.Kind
	switch {
	case from == types.Int && to == types.Float:
		t := b.newTemp()
		b.emit("sitofp", v, t)
		return t
	case from == types.Float && to == types.Int:
		t := b.newTemp()
		b.emit("fptosi", v, t)
		return t
	}
	return v
}

// lowerArrayAddr computes the flattened element address for a chain of
// ArrayRefs (a[i], or a[i][j] for a statically-dimensioned 2D array),
// multiplying outer indices by the inner dimensions' sizes before the final
// elem_<type>.
func (b *Builder) lowerArrayAddr(n *ast.ArrayRef) string {
	var indices []ast.Expr
	var cur ast.Expr = n
	for {
		ref, ok := cur.(*ast.ArrayRef)
		if !ok {
			break
		}
		indices = append([]ast.Expr{ref.Index}, indices...)
		cur = ref.Array
	}
	rootID, _ := cur.(*ast.ID)
	base := b.varLoc[rootID.Name]
	dims := rootID.Info().Dims

	flat := b.lowerExpr(indices[0])
	for k := 1; k < len(indices); k++ {
		stride := b.newTemp()
		b.emit("literal_int", strconv.Itoa(dims[k]), stride)
		mul := b.newTemp()
		b.emit("mul_int", flat, stride, mul)
		idx := b.lowerExpr(indices[k])
		sum := b.newTemp()
		b.emit("add_int", mul, idx, sum)
		flat = sum
	}

	t := b.newTemp()
	b.emit("elem_"+string(n.Info().Type.Kind), base, flat, t)
	return t
}

func (b *Builder) lowerFuncCall(n *ast.FuncCall) string {
	for _, arg := range n.Args {
		v := b.lowerExpr(arg)
		b.emit("param_"+string(arg.Info().Type.Kind), v)
	}
	if n.Info().Type.Kind == types.Void {
		b.emit("call", "@"+n.Callee.Name)
		return ""
	}
	t := b.newTemp()
	b.emit("call", "@"+n.Callee.Name, t)
	return t
}
