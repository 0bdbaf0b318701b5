package smt

import (
	"fmt"
	"math/big"
	"strings"
	"sync"
)

// Node is an immutable, interned term. Nodes are constructed exclusively
// through a NodeManager; two structurally identical terms built by the same
// manager are the same pointer, so pointer comparison is term equality.
//
// Variables, bound variables and skolems are the exception: every call that
// creates one mints a fresh identity, as each declaration denotes a distinct
// symbol regardless of its printed name.
type Node struct {
	id       int64
	kind     Kind
	children []*Node
	typ      *Type
	name     string   // symbol name for variables and skolems
	ival     *big.Int // payload for KindConstInt
	bval     bool     // payload for KindConstBool
}

// ID returns the node's creation index, unique per NodeManager.
func (n *Node) ID() int64 { return n.id }

// Kind returns the node's operator kind.
func (n *Node) Kind() Kind { return n.kind }

// Type returns the node's type.
func (n *Node) Type() *Type { return n.typ }

// NumChildren returns the number of children.
func (n *Node) NumChildren() int { return len(n.children) }

// Child returns the i-th child.
func (n *Node) Child(i int) *Node { return n.children[i] }

// Children returns the node's children. The slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// Name returns the symbol name of a variable or skolem, and "" otherwise.
func (n *Node) Name() string { return n.name }

// BoolValue returns the payload of a KindConstBool node.
func (n *Node) BoolValue() bool { return n.bval }

// IntValue returns the payload of a KindConstInt node.
func (n *Node) IntValue() *big.Int { return n.ival }

// IsConst reports whether the node is an atomic constant.
func (n *Node) IsConst() bool {
	switch n.kind {
	case KindConstBool, KindConstInt, KindBagEmpty:
		return true
	}
	return false
}

// String renders the term as an s-expression.
func (n *Node) String() string {
	switch n.kind {
	case KindConstBool:
		if n.bval {
			return "true"
		}
		return "false"
	case KindConstInt:
		return n.ival.String()
	case KindVar, KindBoundVar, KindSkolem:
		return n.name
	case KindBagEmpty:
		return fmt.Sprintf("(as bag.empty %s)", n.typ)
	}
	parts := make([]string, 0, len(n.children)+1)
	parts = append(parts, n.kind.String())
	for _, c := range n.children {
		parts = append(parts, c.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// NodeManager owns the interning tables for terms and types. It is safe for
// use from a single goroutine per solver instance; a mutex guards the tables
// only so that independent solver instances may share one manager.
type NodeManager struct {
	mu      sync.Mutex
	nextID  int64
	nodes   map[string]*Node
	types   map[string]*Type
	boolTyp *Type
	intTyp  *Type
	truen   *Node
	falsen  *Node
}

// NewNodeManager creates an empty node manager with the Bool and Int types
// and the Boolean constants pre-interned.
func NewNodeManager() *NodeManager {
	nm := &NodeManager{
		nodes: make(map[string]*Node),
		types: make(map[string]*Type),
	}
	nm.boolTyp = &Type{kind: TypeBool}
	nm.intTyp = &Type{kind: TypeInt}
	nm.truen = &Node{id: nm.nextID, kind: KindConstBool, bval: true, typ: nm.boolTyp}
	nm.nextID++
	nm.falsen = &Node{id: nm.nextID, kind: KindConstBool, bval: false, typ: nm.boolTyp}
	nm.nextID++
	return nm
}

// BoolType returns the canonical Boolean type.
func (nm *NodeManager) BoolType() *Type { return nm.boolTyp }

// IntType returns the canonical integer type.
func (nm *NodeManager) IntType() *Type { return nm.intTyp }

// BagType returns the canonical bag type over elem.
func (nm *NodeManager) BagType(elem *Type) *Type {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	key := typeKey(TypeBag, elem, nil, nil)
	if t, ok := nm.types[key]; ok {
		return t
	}
	t := &Type{kind: TypeBag, elem: elem}
	nm.types[key] = t
	return t
}

// FunType returns the canonical function type from args to ret.
func (nm *NodeManager) FunType(args []*Type, ret *Type) *Type {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	key := typeKey(TypeFun, nil, args, ret)
	if t, ok := nm.types[key]; ok {
		return t
	}
	t := &Type{kind: TypeFun, args: append([]*Type(nil), args...), ret: ret}
	nm.types[key] = t
	return t
}

// GrammarType creates a syntax-restriction type for a function to synthesize
// with the given range, allowed operators and formal variables. Grammar types
// are not interned; each declaration is its own identity.
func (nm *NodeManager) GrammarType(ret *Type, ops []*Node, formals []*Node) *Type {
	return &Type{
		kind:    TypeGrammar,
		ret:     ret,
		ops:     append([]*Node(nil), ops...),
		formals: append([]*Node(nil), formals...),
	}
}

// True returns the Boolean constant true.
func (nm *NodeManager) True() *Node { return nm.truen }

// False returns the Boolean constant false.
func (nm *NodeManager) False() *Node { return nm.falsen }

// MkConstBool returns the Boolean constant with the given value.
func (nm *NodeManager) MkConstBool(v bool) *Node {
	if v {
		return nm.truen
	}
	return nm.falsen
}

// MkConstInt returns the interned integer constant for v.
func (nm *NodeManager) MkConstInt(v *big.Int) *Node {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	key := "i " + v.String()
	if n, ok := nm.nodes[key]; ok {
		return n
	}
	n := &Node{
		id:   nm.nextID,
		kind: KindConstInt,
		ival: new(big.Int).Set(v),
		typ:  nm.intTyp,
	}
	nm.nextID++
	nm.nodes[key] = n
	return n
}

// MkInt returns the interned integer constant for the machine integer v.
func (nm *NodeManager) MkInt(v int64) *Node {
	return nm.MkConstInt(big.NewInt(v))
}

// MkVar mints a fresh free variable with the given name and type.
func (nm *NodeManager) MkVar(name string, typ *Type) *Node {
	return nm.mkSymbol(KindVar, name, typ)
}

// MkBoundVar mints a fresh bound variable with the given name and type.
func (nm *NodeManager) MkBoundVar(name string, typ *Type) *Node {
	return nm.mkSymbol(KindBoundVar, name, typ)
}

// mkSkolem mints a fresh skolem symbol. Callers go through SkolemManager.
func (nm *NodeManager) mkSkolem(name string, typ *Type) *Node {
	return nm.mkSymbol(KindSkolem, name, typ)
}

func (nm *NodeManager) mkSymbol(kind Kind, name string, typ *Type) *Node {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	n := &Node{id: nm.nextID, kind: kind, name: name, typ: typ}
	nm.nextID++
	return n
}

// MkEmptyBag returns the interned empty bag of the given bag type.
func (nm *NodeManager) MkEmptyBag(bagType *Type) *Node {
	if !bagType.IsBag() {
		panic(fmt.Sprintf("smt: MkEmptyBag of non-bag type %s", bagType))
	}
	nm.mu.Lock()
	defer nm.mu.Unlock()
	key := fmt.Sprintf("eb %p", bagType)
	if n, ok := nm.nodes[key]; ok {
		return n
	}
	n := &Node{id: nm.nextID, kind: KindBagEmpty, typ: bagType}
	nm.nextID++
	nm.nodes[key] = n
	return n
}

// MkNode builds the interned node with the given kind and children. The kind
// determines the node's type; constructing an ill-typed node is an internal
// API misuse and panics.
func (nm *NodeManager) MkNode(kind Kind, children ...*Node) *Node {
	typ := nm.computeType(kind, children)
	nm.mu.Lock()
	defer nm.mu.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "n%d", kind)
	for _, c := range children {
		fmt.Fprintf(&b, " %d", c.id)
	}
	key := b.String()
	if n, ok := nm.nodes[key]; ok {
		return n
	}
	n := &Node{
		id:       nm.nextID,
		kind:     kind,
		children: append([]*Node(nil), children...),
		typ:      typ,
	}
	nm.nextID++
	nm.nodes[key] = n
	return n
}

// MkAnd conjoins the given nodes, collapsing the empty and singleton cases.
func (nm *NodeManager) MkAnd(nodes []*Node) *Node {
	switch len(nodes) {
	case 0:
		return nm.truen
	case 1:
		return nodes[0]
	}
	return nm.MkNode(KindAnd, nodes...)
}

// MkOr disjoins the given nodes, collapsing the empty and singleton cases.
func (nm *NodeManager) MkOr(nodes []*Node) *Node {
	switch len(nodes) {
	case 0:
		return nm.falsen
	case 1:
		return nodes[0]
	}
	return nm.MkNode(KindOr, nodes...)
}

// MkEqual builds the equality a = b, or true when a and b are identical.
func (nm *NodeManager) MkEqual(a, b *Node) *Node {
	if a == b {
		return nm.truen
	}
	return nm.MkNode(KindEqual, a, b)
}

// MkGroundValue returns a canonical value of the given type: 0 for Int,
// false for Bool, the empty bag for bags, and for function types a lambda
// returning the ground value of the range.
func (nm *NodeManager) MkGroundValue(typ *Type) *Node {
	switch typ.Kind() {
	case TypeBool:
		return nm.falsen
	case TypeInt:
		return nm.MkInt(0)
	case TypeBag:
		return nm.MkEmptyBag(typ)
	case TypeFun:
		formals := make([]*Node, len(typ.ArgTypes()))
		for i, at := range typ.ArgTypes() {
			formals[i] = nm.MkBoundVar(fmt.Sprintf("_gv%d", i), at)
		}
		bvl := nm.MkNode(KindBoundVarList, formals...)
		return nm.MkNode(KindLambda, bvl, nm.MkGroundValue(typ.RangeType()))
	case TypeGrammar:
		return nm.MkGroundValue(typ.RangeType())
	}
	panic(fmt.Sprintf("smt: no ground value for type %s", typ))
}

func (nm *NodeManager) computeType(kind Kind, children []*Node) *Type {
	fail := func(format string, args ...interface{}) *Type {
		panic("smt: ill-typed node: " + fmt.Sprintf(format, args...))
	}
	arity := func(n int) {
		if len(children) != n {
			fail("%s expects %d children, got %d", kind, n, len(children))
		}
	}
	switch kind {
	case KindNot:
		arity(1)
		return nm.boolTyp
	case KindAnd, KindOr:
		if len(children) < 2 {
			fail("%s expects at least 2 children", kind)
		}
		return nm.boolTyp
	case KindImplies:
		arity(2)
		return nm.boolTyp
	case KindEqual:
		arity(2)
		if children[0].typ != children[1].typ {
			fail("= over %s and %s", children[0].typ, children[1].typ)
		}
		return nm.boolTyp
	case KindExists, KindForall:
		arity(2)
		return nm.boolTyp
	case KindLambda:
		arity(2)
		formals := children[0]
		args := make([]*Type, formals.NumChildren())
		for i := 0; i < formals.NumChildren(); i++ {
			args[i] = formals.Child(i).Type()
		}
		return nm.FunType(args, children[1].typ)
	case KindBoundVarList:
		return nil
	case KindApplyUF:
		if len(children) < 1 {
			fail("apply expects an operator")
		}
		ft := children[0].typ
		if ft == nil || !ft.IsFun() {
			fail("apply of non-function %s", children[0])
		}
		if len(children)-1 != len(ft.ArgTypes()) {
			fail("apply of %s with %d arguments", children[0], len(children)-1)
		}
		return ft.RangeType()
	case KindAdd, KindMult:
		if len(children) < 2 {
			fail("%s expects at least 2 children", kind)
		}
		return nm.intTyp
	case KindGeq, KindLeq:
		arity(2)
		return nm.boolTyp
	case KindIte:
		arity(3)
		if children[1].typ != children[2].typ {
			fail("ite branches %s and %s", children[1].typ, children[2].typ)
		}
		return children[1].typ
	case KindBagMake:
		arity(2)
		if !children[1].typ.IsInt() {
			fail("bag multiplicity of type %s", children[1].typ)
		}
		return nm.BagType(children[0].typ)
	case KindBagCount:
		arity(2)
		if !children[1].typ.IsBag() {
			fail("bag.count over %s", children[1].typ)
		}
		return nm.intTyp
	case KindBagCard:
		arity(1)
		return nm.intTyp
	case KindBagUnionDisjoint, KindBagUnionMax, KindBagInterMin,
		KindBagDifferenceSubtract, KindBagDifferenceRemove:
		arity(2)
		if children[0].typ != children[1].typ || !children[0].typ.IsBag() {
			fail("%s over %s and %s", kind, children[0].typ, children[1].typ)
		}
		return children[0].typ
	case KindBagSetof, KindBagPartition, KindTableGroup:
		if len(children) < 1 || !children[len(children)-1].typ.IsBag() {
			fail("%s over non-bag", kind)
		}
		return children[len(children)-1].typ
	case KindBagChoose:
		arity(1)
		if !children[0].typ.IsBag() {
			fail("bag.choose over %s", children[0].typ)
		}
		return children[0].typ.ElementType()
	case KindBagMap:
		arity(2)
		ft := children[0].typ
		if !ft.IsFun() || len(ft.ArgTypes()) != 1 || !children[1].typ.IsBag() {
			fail("bag.map of %s over %s", ft, children[1].typ)
		}
		return nm.BagType(ft.RangeType())
	}
	return fail("cannot type kind %s", kind)
}
