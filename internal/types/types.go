// Package types defines uC's fixed set of type descriptors and the
// operators each permits.
package types

// Kind names a uC type by its nominal name.
type Kind string

const (
	Int    Kind = "int"
	Float  Kind = "float"
	Char   Kind = "char"
	Bool   Kind = "bool"
	String Kind = "string"
	Array  Kind = "array"
	Ptr    Kind = "ptr"
	Void   Kind = "void"
	Any    Kind = "any"
)

// Descriptor is a singleton carrying the four operator-permission sets for
// one uC type. Every Descriptor value is one of the package-level singletons
// below; Equal compares Descriptors by Kind.
type Descriptor struct {
	Kind    Kind
	Unary   map[string]bool
	Binary  map[string]bool
	Rel     map[string]bool
	Assign  map[string]bool
}

func set(ops ...string) map[string]bool {
	m := make(map[string]bool, len(ops))
	for _, op := range ops {
		m[op] = true
	}
	return m
}

var (
	IntType = &Descriptor{
		Kind:   Int,
		Unary:  set("-", "+", "--", "++", "p--", "p++", "*", "&"),
		Binary: set("+", "-", "*", "/", "%"),
		Rel:    set("==", "!=", "<", ">", "<=", ">="),
		Assign: set("=", "+=", "-=", "*=", "/=", "%="),
	}
	FloatType = &Descriptor{
		Kind:   Float,
		Unary:  set("-", "+", "*", "&"),
		Binary: set("+", "-", "*", "/", "%"),
		Rel:    set("==", "!=", "<", ">", "<=", ">="),
		Assign: set("=", "+=", "-=", "*=", "/=", "%="),
	}
	CharType = &Descriptor{
		Kind:  Char,
		Unary: set("*", "&"),
		Rel:   set("==", "!=", "&&", "||"),
	}
	BoolType = &Descriptor{
		Kind:  Bool,
		Unary: set("!", "*", "&"),
		Rel:   set("==", "!=", "&&", "||"),
	}
	StringType = &Descriptor{
		Kind:   String,
		Binary: set("+"),
		Rel:    set("==", "!="),
	}
	ArrayType = &Descriptor{
		Kind:  Array,
		Unary: set("*", "&"),
		Rel:   set("==", "!="),
	}
	PtrType = &Descriptor{
		Kind:  Ptr,
		Unary: set("*", "&"),
		Rel:   set("==", "!="),
	}
	VoidType = &Descriptor{
		Kind:  Void,
		Unary: set("*", "&"),
	}
	AnyType = &Descriptor{Kind: Any}
)

func allOps() map[string]bool {
	return set(
		"-", "+", "--", "++", "p--", "p++", "*", "&", "!",
		"+=", "-=", "*=", "/=", "%=", "=",
		"==", "!=", "<", ">", "<=", ">=", "&&", "||",
	)
}

func init() {
	// any is an error-recovery placeholder: every operator is permitted on
	// it so a prior diagnostic does not cascade into spurious follow-ups.
	any := allOps()
	AnyType.Unary = any
	AnyType.Binary = any
	AnyType.Rel = any
	AnyType.Assign = any
}

// ByName returns the singleton Descriptor named by a uC declarator keyword
// (void, char, int, float). bool/string/array/ptr/any never appear as
// declarator keywords in uC source; they only arise as NodeInfo-decorated
// result types.
func ByName(name string) *Descriptor {
	switch name {
	case "void":
		return VoidType
	case "char":
		return CharType
	case "int":
		return IntType
	case "float":
		return FloatType
	}
	return nil
}

// Equal implements nominal type equality, with `any` comparing equal to
// every type so that a single diagnostic does not cascade.
func Equal(a, b *Descriptor) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind == Any || b.Kind == Any {
		return true
	}
	return a.Kind == b.Kind
}

// CharStringCompatible reports whether a and b are the char/string pair that
// is interchangeable in parameter-match contexts. ast.NodeInfo.Equal consults
// it only after Func, Array and Depth already agree, so a plain string
// constant (depth 0) does not match a char[] parameter (depth 1).
func CharStringCompatible(a, b *Descriptor) bool {
	return (a.Kind == Char && b.Kind == String) || (a.Kind == String && b.Kind == Char)
}

// HasUnary reports whether op is a permitted unary operator for d.
func (d *Descriptor) HasUnary(op string) bool { return d.Unary[op] }

// HasBinary reports whether op is a permitted binary (non-relational)
// operator for d.
func (d *Descriptor) HasBinary(op string) bool { return d.Binary[op] }

// HasRel reports whether op is a permitted relational operator for d.
func (d *Descriptor) HasRel(op string) bool { return d.Rel[op] }

// HasAssign reports whether op is a permitted assignment operator for d.
func (d *Descriptor) HasAssign(op string) bool { return d.Assign[op] }
