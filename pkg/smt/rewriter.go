package smt

import "math/big"

// Rewriter is the term normalizer consumed by the engine. Rewrite is a pure
// function of its input and is idempotent: rewrite(rewrite(t)) == rewrite(t).
//
// The rule set here is intentionally small: Boolean simplification, integer
// constant folding, beta reduction, binder elimination over constant bodies,
// and the bag multiplicity rules needed to evaluate bag terms against
// constructed models. The engine treats the rewriter as a black box; richer
// rule sets plug in by replacing this type behind the same method.
type Rewriter struct {
	nm    *NodeManager
	cache map[*Node]*Node
}

// NewRewriter creates a rewriter over the given node manager.
func NewRewriter(nm *NodeManager) *Rewriter {
	return &Rewriter{nm: nm, cache: make(map[*Node]*Node)}
}

// Rewrite returns the normal form of n.
func (r *Rewriter) Rewrite(n *Node) *Node {
	if res, ok := r.cache[n]; ok {
		return res
	}
	res := r.rewriteTopDown(n)
	r.cache[n] = res
	r.cache[res] = res
	return res
}

func (r *Rewriter) rewriteTopDown(n *Node) *Node {
	if n.NumChildren() == 0 {
		return n
	}
	// rewrite children first
	changed := false
	children := make([]*Node, n.NumChildren())
	for i, c := range n.Children() {
		// bound variable lists are not terms; leave them alone
		if c.Kind() == KindBoundVarList {
			children[i] = c
			continue
		}
		children[i] = r.Rewrite(c)
		if children[i] != c {
			changed = true
		}
	}
	cur := n
	if changed {
		cur = r.nm.MkNode(n.Kind(), children...)
	}
	// apply top-level steps to fixpoint
	for {
		next := r.postRewrite(cur)
		if next == cur {
			return cur
		}
		// the step may expose new redexes below the root
		next = r.Rewrite(next)
		if next == cur {
			return cur
		}
		cur = next
	}
}

// postRewrite applies one top-level rewrite step, assuming children are
// already in normal form. Returns its argument when no rule applies.
func (r *Rewriter) postRewrite(n *Node) *Node {
	nm := r.nm
	switch n.Kind() {
	case KindNot:
		c := n.Child(0)
		if c.Kind() == KindConstBool {
			return nm.MkConstBool(!c.BoolValue())
		}
		if c.Kind() == KindNot {
			return c.Child(0)
		}
	case KindAnd:
		kept := make([]*Node, 0, n.NumChildren())
		for _, c := range n.Children() {
			if c.Kind() == KindConstBool {
				if !c.BoolValue() {
					return nm.False()
				}
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) != n.NumChildren() {
			return nm.MkAnd(kept)
		}
	case KindOr:
		kept := make([]*Node, 0, n.NumChildren())
		for _, c := range n.Children() {
			if c.Kind() == KindConstBool {
				if c.BoolValue() {
					return nm.True()
				}
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) != n.NumChildren() {
			return nm.MkOr(kept)
		}
	case KindImplies:
		a, b := n.Child(0), n.Child(1)
		if a.Kind() == KindConstBool {
			if a.BoolValue() {
				return b
			}
			return nm.True()
		}
		if b.Kind() == KindConstBool && b.BoolValue() {
			return nm.True()
		}
	case KindEqual:
		a, b := n.Child(0), n.Child(1)
		if a == b {
			return nm.True()
		}
		if isValueNode(a) && isValueNode(b) {
			return nm.False()
		}
	case KindIte:
		c, t, e := n.Child(0), n.Child(1), n.Child(2)
		if c.Kind() == KindConstBool {
			if c.BoolValue() {
				return t
			}
			return e
		}
		if t == e {
			return t
		}
	case KindGeq:
		a, b := n.Child(0), n.Child(1)
		if a.Kind() == KindConstInt && b.Kind() == KindConstInt {
			return nm.MkConstBool(a.IntValue().Cmp(b.IntValue()) >= 0)
		}
		if a == b {
			return nm.True()
		}
	case KindLeq:
		a, b := n.Child(0), n.Child(1)
		if a.Kind() == KindConstInt && b.Kind() == KindConstInt {
			return nm.MkConstBool(a.IntValue().Cmp(b.IntValue()) <= 0)
		}
		if a == b {
			return nm.True()
		}
	case KindAdd:
		return r.foldArith(n, new(big.Int), func(acc, v *big.Int) { acc.Add(acc, v) })
	case KindMult:
		return r.foldArith(n, big.NewInt(1), func(acc, v *big.Int) { acc.Mul(acc, v) })
	case KindExists, KindForall:
		body := n.Child(1)
		if body.Kind() == KindConstBool {
			return body
		}
	case KindApplyUF:
		op := n.Child(0)
		if op.Kind() == KindLambda {
			formals := op.Child(0)
			subs := make(map[*Node]*Node, formals.NumChildren())
			for i, f := range formals.Children() {
				subs[f] = n.Child(i + 1)
			}
			return Substitute(nm, op.Child(1), subs)
		}
	case KindBagMake:
		c := n.Child(1)
		if c.Kind() == KindConstInt && c.IntValue().Sign() <= 0 {
			return nm.MkEmptyBag(n.Type())
		}
	case KindBagCount:
		return r.rewriteBagCount(n)
	case KindBagUnionDisjoint:
		a, b := n.Child(0), n.Child(1)
		if a.Kind() == KindBagEmpty {
			return b
		}
		if b.Kind() == KindBagEmpty {
			return a
		}
	case KindBagCard:
		b := n.Child(0)
		switch b.Kind() {
		case KindBagEmpty:
			return nm.MkInt(0)
		case KindBagMake:
			if b.Child(1).Kind() == KindConstInt {
				return b.Child(1)
			}
		}
	}
	return n
}

func (r *Rewriter) foldArith(n *Node, unit *big.Int, apply func(acc, v *big.Int)) *Node {
	nm := r.nm
	acc := new(big.Int).Set(unit)
	kept := make([]*Node, 0, n.NumChildren())
	nconst := 0
	for _, c := range n.Children() {
		if c.Kind() == KindConstInt {
			apply(acc, c.IntValue())
			nconst++
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return nm.MkConstInt(acc)
	}
	if nconst <= 1 {
		// at most one constant child: already in normal form
		return n
	}
	if acc.Cmp(unit) != 0 {
		kept = append(kept, nm.MkConstInt(acc))
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return nm.MkNode(n.Kind(), kept...)
}

func (r *Rewriter) rewriteBagCount(n *Node) *Node {
	nm := r.nm
	x, bag := n.Child(0), n.Child(1)
	switch bag.Kind() {
	case KindBagEmpty:
		return nm.MkInt(0)
	case KindBagMake:
		y, c := bag.Child(0), bag.Child(1)
		if x == y {
			if c.Kind() == KindConstInt {
				if c.IntValue().Sign() >= 1 {
					return c
				}
				return nm.MkInt(0)
			}
			one := nm.MkInt(1)
			return nm.MkNode(KindIte, nm.MkNode(KindGeq, c, one), c, nm.MkInt(0))
		}
		if isValueNode(x) && isValueNode(y) {
			// distinct values: x does not occur in (bag y c)
			return nm.MkInt(0)
		}
	case KindBagUnionDisjoint:
		ca := nm.MkNode(KindBagCount, x, bag.Child(0))
		cb := nm.MkNode(KindBagCount, x, bag.Child(1))
		return nm.MkNode(KindAdd, ca, cb)
	case KindBagUnionMax:
		ca := nm.MkNode(KindBagCount, x, bag.Child(0))
		cb := nm.MkNode(KindBagCount, x, bag.Child(1))
		return nm.MkNode(KindIte, nm.MkNode(KindGeq, ca, cb), ca, cb)
	case KindBagInterMin:
		ca := nm.MkNode(KindBagCount, x, bag.Child(0))
		cb := nm.MkNode(KindBagCount, x, bag.Child(1))
		return nm.MkNode(KindIte, nm.MkNode(KindLeq, ca, cb), ca, cb)
	}
	return n
}

// isValueNode reports whether n is a concrete value: a constant, or a bag
// built from values with constant positive multiplicities.
func isValueNode(n *Node) bool {
	switch n.Kind() {
	case KindConstBool, KindConstInt, KindBagEmpty:
		return true
	case KindBagMake:
		c := n.Child(1)
		return isValueNode(n.Child(0)) && c.Kind() == KindConstInt &&
			c.IntValue().Sign() >= 1
	case KindBagUnionDisjoint:
		return isValueNode(n.Child(0)) && isValueNode(n.Child(1))
	}
	return false
}
