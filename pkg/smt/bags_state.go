package smt

// elementCount is one registered (element, multiplicity variable) pair of a
// bag equivalence class. The count node is the integer skolem standing for
// (bag.count element bag).
type elementCount struct {
	elem  *Node
	count *Node
}

// bagsSolverState is the per-round view the bags theory keeps of the current
// assignment: which equivalence classes denote bags, which multiplicity and
// cardinality terms exist for them, and which grouping terms were seen. The
// indices are rebuilt from the equality engine at the start of every check
// round; only the skolems behind them are stable across rounds.
type bagsSolverState struct {
	env *Env
	ts  *TheoryState

	bags      []*Node
	bagSeen   map[*Node]bool
	elements  map[*Node][]elementCount
	cardTerms map[*Node]*Node
	groups    []*Node
}

func newBagsSolverState(env *Env, ts *TheoryState) *bagsSolverState {
	s := &bagsSolverState{env: env, ts: ts}
	s.reset()
	return s
}

// reset clears the per-round indices.
func (s *bagsSolverState) reset() {
	s.bags = nil
	s.bagSeen = make(map[*Node]bool)
	s.elements = make(map[*Node][]elementCount)
	s.cardTerms = make(map[*Node]*Node)
	s.groups = nil
}

// registerBag records the representative of a bag-typed term.
func (s *bagsSolverState) registerBag(b *Node) *Node {
	rep := s.ts.Representative(b)
	if !s.bagSeen[rep] {
		s.bagSeen[rep] = true
		s.bags = append(s.bags, rep)
	}
	return rep
}

// Bags returns the bag representatives seen this round, in first-seen order.
func (s *bagsSolverState) Bags() []*Node { return s.bags }

// registerCountTerm indexes a (bag.count e B) term under B's representative
// and returns the multiplicity skolem standing for it. First registration of
// a count term emits its defining lemma and lower bound through im.
func (s *bagsSolverState) registerCountTerm(n *Node, im *InferenceManager) *Node {
	nm := s.env.NodeManager()
	sm := s.env.SkolemManager()
	elem := s.env.Rewrite(n.Child(0))
	rep := s.registerBag(n.Child(1))

	sk := sm.MkSkolemFunction(SkolemBagsCount, nm.IntType(), n)
	im.Lemma(nm.MkEqual(sk, n), InferBagsCountBounds)
	im.Lemma(nm.MkNode(KindGeq, sk, nm.MkInt(0)), InferBagsCountBounds)

	for _, ec := range s.elements[rep] {
		if ec.elem == elem || s.ts.AreEqual(ec.elem, elem) {
			return ec.count
		}
	}
	s.elements[rep] = append(s.elements[rep], elementCount{elem: elem, count: sk})
	return sk
}

// ElementCountPairs returns the (element, multiplicity skolem) pairs known
// for the bag's equivalence class.
func (s *bagsSolverState) ElementCountPairs(b *Node) []elementCount {
	return s.elements[s.ts.Representative(b)]
}

// registerCardTerm returns the cardinality skolem for a (bag.card B) term,
// emitting its defining lemma and lower bound on first registration.
func (s *bagsSolverState) registerCardTerm(n *Node, im *InferenceManager) *Node {
	nm := s.env.NodeManager()
	sm := s.env.SkolemManager()
	rep := s.registerBag(n.Child(0))

	sk := sm.MkSkolemFunction(SkolemBagsCard, nm.IntType(), n)
	im.Lemma(nm.MkEqual(sk, n), InferBagsCardReduction)
	im.Lemma(nm.MkNode(KindGeq, sk, nm.MkInt(0)), InferBagsCardReduction)
	s.cardTerms[rep] = sk
	return sk
}

// registerGroupTerm records a table.group application for the quantified
// operations check.
func (s *bagsSolverState) registerGroupTerm(n *Node) {
	s.registerBag(n.Child(0))
	s.groups = append(s.groups, n)
}

// collectDisequalBagTerms returns the bag equalities currently asserted
// false, each a KindEqual node over bag-typed terms.
func (s *bagsSolverState) collectDisequalBagTerms() []*Node {
	var out []*Node
	for _, d := range s.ts.Disequalities() {
		if d.Kind() == KindEqual && d.Child(0).Type().IsBag() {
			out = append(out, d)
		}
	}
	return out
}
