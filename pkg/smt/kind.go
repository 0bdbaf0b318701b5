package smt

import "fmt"

// Kind identifies the operator of a term node. Every node carries exactly one
// kind; the kind determines the meaning of the node's children and, together
// with the children's types, the node's own type.
//
// The set of kinds here covers the Boolean core, linear integer arithmetic
// constants and comparisons, uninterpreted functions, binders, and the bags
// (multiset) theory that serves as the worked theory solver in this module.
type Kind int

const (
	// KindNull is the zero Kind. It never appears on a constructed node.
	KindNull Kind = iota

	// Leaves.
	KindConstBool // Boolean constant; payload in Node.bval
	KindConstInt  // integer constant; payload in Node.ival
	KindVar       // free variable or uninterpreted constant
	KindBoundVar  // variable bound by a quantifier or lambda
	KindSkolem    // fresh symbol introduced by the skolem manager

	// Boolean connectives.
	KindNot
	KindAnd
	KindOr
	KindImplies
	KindEqual

	// Binders. The first child of a binder is a KindBoundVarList.
	KindExists
	KindForall
	KindLambda
	KindBoundVarList

	// Uninterpreted function application: child 0 is the function, the
	// remaining children are the arguments.
	KindApplyUF

	// Integer arithmetic.
	KindAdd
	KindMult
	KindGeq
	KindLeq
	KindIte

	// Bags (multisets).
	KindBagEmpty              // the empty bag of a given type; no children
	KindBagMake               // (bag x c): the bag holding c copies of x
	KindBagCount              // (bag.count x B): multiplicity of x in B
	KindBagCard               // (bag.card B)
	KindBagUnionDisjoint      // (bag.union_disjoint A B)
	KindBagUnionMax           // (bag.union_max A B)
	KindBagInterMin           // (bag.inter_min A B)
	KindBagDifferenceSubtract // (bag.difference_subtract A B)
	KindBagDifferenceRemove   // (bag.difference_remove A B)
	KindBagSetof              // (bag.setof B)
	KindBagMap                // (bag.map f B)
	KindBagChoose             // (bag.choose B)
	KindBagPartition          // (bag.partition r B)
	KindTableGroup            // (table.group B)
)

var kindNames = map[Kind]string{
	KindNull:                  "null",
	KindConstBool:             "const-bool",
	KindConstInt:              "const-int",
	KindVar:                   "var",
	KindBoundVar:              "bound-var",
	KindSkolem:                "skolem",
	KindNot:                   "not",
	KindAnd:                   "and",
	KindOr:                    "or",
	KindImplies:               "=>",
	KindEqual:                 "=",
	KindExists:                "exists",
	KindForall:                "forall",
	KindLambda:                "lambda",
	KindBoundVarList:          "bound-var-list",
	KindApplyUF:               "apply",
	KindAdd:                   "+",
	KindMult:                  "*",
	KindGeq:                   ">=",
	KindLeq:                   "<=",
	KindIte:                   "ite",
	KindBagEmpty:              "bag.empty",
	KindBagMake:               "bag",
	KindBagCount:              "bag.count",
	KindBagCard:               "bag.card",
	KindBagUnionDisjoint:      "bag.union_disjoint",
	KindBagUnionMax:           "bag.union_max",
	KindBagInterMin:           "bag.inter_min",
	KindBagDifferenceSubtract: "bag.difference_subtract",
	KindBagDifferenceRemove:   "bag.difference_remove",
	KindBagSetof:              "bag.setof",
	KindBagMap:                "bag.map",
	KindBagChoose:             "bag.choose",
	KindBagPartition:          "bag.partition",
	KindTableGroup:            "table.group",
}

// String returns the printed operator name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsBagKind reports whether the kind belongs to the bags theory.
func (k Kind) IsBagKind() bool {
	return k >= KindBagEmpty && k <= KindTableGroup
}

// isBagBinaryOp reports whether the kind is a binary bag operator whose
// multiplicity semantics are derived pointwise from its operands.
func (k Kind) isBagBinaryOp() bool {
	switch k {
	case KindBagUnionDisjoint, KindBagUnionMax, KindBagInterMin,
		KindBagDifferenceSubtract, KindBagDifferenceRemove:
		return true
	}
	return false
}
