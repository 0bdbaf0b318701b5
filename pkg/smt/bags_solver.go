package smt

// bagSolver holds the inference routines the bags strategy dispatches to.
// Every routine reads the per-round indices and enqueues facts and lemmas on
// the inference manager; none of them mutates the equality engine directly.
type bagSolver struct {
	env    *Env
	ts     *TheoryState
	bstate *bagsSolverState
	im     *InferenceManager
}

func newBagSolver(env *Env, ts *TheoryState, bstate *bagsSolverState, im *InferenceManager) *bagSolver {
	return &bagSolver{env: env, ts: ts, bstate: bstate, im: im}
}

// checkBagMake decides emptiness of every (bag x c) term: either the count
// is positive or the bag is the empty bag.
func (s *bagSolver) checkBagMake() {
	nm := s.env.NodeManager()
	for _, rep := range s.bstate.Bags() {
		for _, t := range s.ts.EqualityEngine().ClassMembers(rep) {
			if t.Kind() != KindBagMake {
				continue
			}
			c := t.Child(1)
			if c.Kind() == KindConstInt {
				continue
			}
			empty := nm.MkEmptyBag(t.Type())
			split := nm.MkOr([]*Node{
				nm.MkEqual(t, empty),
				nm.MkNode(KindGeq, c, nm.MkInt(1)),
			})
			s.im.AddPendingLemma(split, InferBagsMakeSplit)
		}
	}
}

// checkBasicOperations derives multiplicity constraints for the
// non-quantified operators: every registered count term is related to the
// operator applications in its bag's class, and every asserted bag
// disequality gets a distinguishing element.
func (s *bagSolver) checkBasicOperations() {
	nm := s.env.NodeManager()
	ee := s.ts.EqualityEngine()

	for _, rep := range s.bstate.Bags() {
		for _, ec := range s.bstate.ElementCountPairs(rep) {
			for _, t := range ee.ClassMembers(rep) {
				switch t.Kind() {
				case KindBagEmpty, KindBagMake,
					KindBagUnionDisjoint, KindBagUnionMax, KindBagInterMin,
					KindBagDifferenceSubtract, KindBagDifferenceRemove:
					unfolded := s.env.Rewrite(nm.MkNode(KindBagCount, ec.elem, t))
					if unfolded != ec.count {
						s.im.AddPendingLemma(nm.MkEqual(ec.count, unfolded), InferBagsBasicOp)
					}
				}
			}
		}
	}

	// a disequality between bags holds iff some element has differing
	// multiplicity; introduce a witness for each asserted disequality
	for _, d := range s.bstate.collectDisequalBagTerms() {
		a, b := d.Child(0), d.Child(1)
		if s.ts.AreEqual(a, b) {
			// contradicts the asserted disequality
			conflict := nm.MkAnd([]*Node{
				nm.MkNode(KindNot, d),
				ee.Explain(a, b, nm),
			})
			s.im.Conflict(conflict, InferEqualityConflict)
			return
		}
		w := s.env.SkolemManager().MkSkolemFunction(
			SkolemBagsChoose, a.Type().ElementType(), d)
		lemma := nm.MkNode(KindImplies,
			nm.MkNode(KindNot, d),
			nm.MkNode(KindNot, nm.MkEqual(
				nm.MkNode(KindBagCount, w, a),
				nm.MkNode(KindBagCount, w, b))))
		s.im.AddPendingLemma(lemma, InferBagsBasicOp)
	}
}

// checkQuantifiedOperations handles the operators whose semantics range over
// all elements. Only the element-driven consequences visible through the
// registered count terms are derived; completeness over unseen elements
// comes from the witnesses the basic check introduces.
func (s *bagSolver) checkQuantifiedOperations() {
	nm := s.env.NodeManager()
	ee := s.ts.EqualityEngine()

	for _, rep := range s.bstate.Bags() {
		for _, t := range ee.ClassMembers(rep) {
			switch t.Kind() {
			case KindBagSetof:
				// count(e, setof(B)) = ite(count(e, B) >= 1, 1, 0)
				base := t.Child(0)
				for _, ec := range s.bstate.ElementCountPairs(base) {
					lhs := nm.MkNode(KindBagCount, ec.elem, t)
					rhs := nm.MkNode(KindIte,
						nm.MkNode(KindGeq, nm.MkNode(KindBagCount, ec.elem, base), nm.MkInt(1)),
						nm.MkInt(1), nm.MkInt(0))
					s.im.AddPendingLemma(nm.MkEqual(lhs, rhs), InferBagsQuantifiedOp)
				}
			case KindBagMap:
				// count(f(e), map(f, B)) >= count(e, B)
				f, base := t.Child(0), t.Child(1)
				for _, ec := range s.bstate.ElementCountPairs(base) {
					img := nm.MkNode(KindApplyUF, f, ec.elem)
					lemma := nm.MkNode(KindGeq,
						nm.MkNode(KindBagCount, img, t),
						nm.MkNode(KindBagCount, ec.elem, base))
					s.im.AddPendingLemma(lemma, InferBagsQuantifiedOp)
				}
			}
		}
	}

	// grouping an empty table yields the empty result
	for _, g := range s.bstate.groups {
		base := g.Child(0)
		lemma := nm.MkNode(KindImplies,
			nm.MkEqual(base, nm.MkEmptyBag(base.Type())),
			nm.MkEqual(g, nm.MkEmptyBag(g.Type())))
		s.im.AddPendingLemma(lemma, InferBagsQuantifiedOp)
	}
}
