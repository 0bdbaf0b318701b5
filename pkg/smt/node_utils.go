package smt

// This file holds the structural term traversals shared by the engine:
// substitution, free-variable collection and binder-aware occurrence checks.

// Substitute replaces every occurrence of a key of subs in n by its mapped
// node, rebuilding interned nodes bottom-up. Bound variable lists are left
// untouched; substitution does not capture-avoid, which is safe here because
// all bound variables are minted fresh per binder.
func Substitute(nm *NodeManager, n *Node, subs map[*Node]*Node) *Node {
	if len(subs) == 0 {
		return n
	}
	cache := make(map[*Node]*Node)
	return substituteRec(nm, n, subs, cache)
}

func substituteRec(nm *NodeManager, n *Node, subs, cache map[*Node]*Node) *Node {
	if r, ok := subs[n]; ok {
		return r
	}
	if r, ok := cache[n]; ok {
		return r
	}
	if n.NumChildren() == 0 {
		return n
	}
	changed := false
	children := make([]*Node, n.NumChildren())
	for i, c := range n.Children() {
		children[i] = substituteRec(nm, c, subs, cache)
		if children[i] != c {
			changed = true
		}
	}
	result := n
	if changed {
		result = nm.MkNode(n.Kind(), children...)
	}
	cache[n] = result
	return result
}

// FreeSymbols collects the free variables and skolems occurring in n. Bound
// variables are excluded; symbols under a binder are still free since binders
// only capture KindBoundVar nodes from their own bound-variable list.
func FreeSymbols(n *Node, into map[*Node]bool) {
	seen := make(map[*Node]bool)
	freeSymbolsRec(n, into, seen)
}

func freeSymbolsRec(n *Node, into, seen map[*Node]bool) {
	if seen[n] {
		return
	}
	seen[n] = true
	switch n.Kind() {
	case KindVar, KindSkolem:
		into[n] = true
		return
	}
	for _, c := range n.Children() {
		freeSymbolsRec(c, into, seen)
	}
}

// HasFreeBoundVar reports whether n contains a bound variable that is not
// captured by an enclosing binder within n.
func HasFreeBoundVar(n *Node) bool {
	return hasFreeBoundVarRec(n, make(map[*Node]bool))
}

func hasFreeBoundVarRec(n *Node, bound map[*Node]bool) bool {
	switch n.Kind() {
	case KindBoundVar:
		return !bound[n]
	case KindExists, KindForall, KindLambda:
		bvl := n.Child(0)
		added := make([]*Node, 0, bvl.NumChildren())
		for _, v := range bvl.Children() {
			if !bound[v] {
				bound[v] = true
				added = append(added, v)
			}
		}
		r := hasFreeBoundVarRec(n.Child(1), bound)
		for _, v := range added {
			delete(bound, v)
		}
		return r
	}
	for _, c := range n.Children() {
		if hasFreeBoundVarRec(c, bound) {
			return true
		}
	}
	return false
}

// containsSubterm reports whether sub occurs anywhere inside n.
func containsSubterm(n, sub *Node) bool {
	if n == sub {
		return true
	}
	for _, c := range n.Children() {
		if containsSubterm(c, sub) {
			return true
		}
	}
	return false
}
