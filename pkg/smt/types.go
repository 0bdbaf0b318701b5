package smt

import (
	"fmt"
	"strings"
)

// TypeKind identifies the shape of a Type.
type TypeKind int

const (
	TypeBool TypeKind = iota
	TypeInt
	TypeBag     // bag (multiset) over an element type
	TypeFun     // function type with argument types and a range type
	TypeGrammar // syntax restriction attached to a function to synthesize
)

// Type is an interned type node. Types constructed through the same
// NodeManager are canonical: two structurally identical Bool, Int, Bag or Fun
// types are the same pointer, so pointer comparison is type equality.
//
// Grammar types are the one exception: each declared grammar is its own
// identity, carrying the operators the grammar may use and the formal
// variables it may mention. Only the synthesis solver inspects them.
type Type struct {
	kind TypeKind
	elem *Type   // element type for TypeBag
	args []*Type // argument types for TypeFun
	ret  *Type   // range type for TypeFun and TypeGrammar

	// Grammar payload: operator terms allowed by the syntax restriction and
	// the grammar's formal variables. Free symbols of the operators that are
	// not formals are dependencies on other functions to synthesize.
	ops     []*Node
	formals []*Node
}

// Kind returns the type's kind tag.
func (t *Type) Kind() TypeKind { return t.kind }

// IsBool reports whether the type is the Boolean type.
func (t *Type) IsBool() bool { return t.kind == TypeBool }

// IsInt reports whether the type is the integer type.
func (t *Type) IsInt() bool { return t.kind == TypeInt }

// IsBag reports whether the type is a bag type.
func (t *Type) IsBag() bool { return t.kind == TypeBag }

// IsFun reports whether the type is a function type.
func (t *Type) IsFun() bool { return t.kind == TypeFun }

// IsGrammar reports whether the type is a syntax-restriction type.
func (t *Type) IsGrammar() bool { return t.kind == TypeGrammar }

// ElementType returns the element type of a bag type, or nil otherwise.
func (t *Type) ElementType() *Type {
	if t.kind != TypeBag {
		return nil
	}
	return t.elem
}

// ArgTypes returns the argument types of a function type. The returned slice
// must not be modified.
func (t *Type) ArgTypes() []*Type {
	if t.kind != TypeFun {
		return nil
	}
	return t.args
}

// RangeType returns the range of a function or grammar type, or the type
// itself for first-order types.
func (t *Type) RangeType() *Type {
	if t.kind == TypeFun || t.kind == TypeGrammar {
		return t.ret
	}
	return t
}

// GrammarOps returns the operator terms of a grammar type.
func (t *Type) GrammarOps() []*Node { return t.ops }

// GrammarFormals returns the formal variables of a grammar type.
func (t *Type) GrammarFormals() []*Node { return t.formals }

// String returns an SMT-LIB flavored rendering of the type.
func (t *Type) String() string {
	switch t.kind {
	case TypeBool:
		return "Bool"
	case TypeInt:
		return "Int"
	case TypeBag:
		return fmt.Sprintf("(Bag %s)", t.elem)
	case TypeFun:
		parts := make([]string, len(t.args))
		for i, a := range t.args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("(-> %s %s)", strings.Join(parts, " "), t.ret)
	case TypeGrammar:
		return fmt.Sprintf("(Grammar %s)", t.ret)
	}
	return "?"
}

// typeKey builds the interning key for a structural type. Grammar types are
// never interned.
func typeKey(kind TypeKind, elem *Type, args []*Type, ret *Type) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", kind)
	if elem != nil {
		fmt.Fprintf(&b, " e%p", elem)
	}
	for _, a := range args {
		fmt.Fprintf(&b, " a%p", a)
	}
	if ret != nil {
		fmt.Fprintf(&b, " r%p", ret)
	}
	return b.String()
}
