package smt

import "go.uber.org/zap"

// TheoryBags is the decision procedure for multisets. Each full check cycles
// through Initialize, which rebuilds the per-round term indices from the
// equivalence classes, and Strategize, which executes the fixed inference
// strategy for the effort level. The cycle repeats while facts keep arriving
// and no lemma reached the SAT engine, and stops on conflict, on an accepted
// lemma, or on a round that produced nothing new.
type TheoryBags struct {
	env   *Env
	log   *zap.Logger
	state *TheoryState
	im    *InferenceManager

	bstate   *bagsSolverState
	solver   *bagSolver
	strategy *Strategy

	// per-round index: operator kind -> applications seen in live classes
	opMap map[Kind][]*Node

	// functions used as bag.map operators, checked for arity on sight
	mapFuncs map[*Node]bool
}

// NewTheoryBags creates the bags theory over the given environment and
// output channel.
func NewTheoryBags(env *Env, out OutputChannel) *TheoryBags {
	b := &TheoryBags{
		env:      env,
		log:      env.Logger("theory-bags"),
		strategy: NewStrategy(),
		mapFuncs: make(map[*Node]bool),
	}
	b.state = NewTheoryState(env)
	b.im = NewInferenceManager(env, b.state, out, "bags")
	b.bstate = newBagsSolverState(env, b.state)
	b.solver = newBagSolver(env, b.state, b.bstate, b.im)
	return b
}

func (b *TheoryBags) ID() TheoryID { return TheoryIDBags }

func (b *TheoryBags) NeedsEqualityEngine(esi *EeSetupInfo) bool {
	esi.Notify = &bagsNotify{b: b}
	esi.Name = "theory::bags::ee"
	return true
}

func (b *TheoryBags) SetEqualityEngine(ee *EqualityEngine) {
	b.state.SetEqualityEngine(ee)
}

func (b *TheoryBags) FinishInit() error {
	if b.state.EqualityEngine() == nil {
		return NewInternalError("bags theory initialized without an equality engine")
	}
	return nil
}

// Presolve builds the inference strategy once. The strategy runs only at
// full effort; standard effort leaves the work to cheaper theories.
func (b *TheoryBags) Presolve() {
	if b.strategy.IsInit() {
		return
	}
	b.strategy.beginEffort(EffortFull)
	b.strategy.addStep(StepCheckInit, 0)
	b.strategy.addStep(StepBreak, 0)
	b.strategy.addStep(StepCheckBagMake, 0)
	b.strategy.addStep(StepBreak, 0)
	b.strategy.addStep(StepCheckBasicOperations, 0)
	b.strategy.addStep(StepBreak, 0)
	b.strategy.addStep(StepCheckQuantifiedOperations, 0)
	b.strategy.addStep(StepBreak, 0)
	b.strategy.endEffort(EffortFull)
	b.strategy.markInit()
}

// PreRegisterTerm gates unsupported operators and introduces the term to the
// equality engine. Equalities over bags are registered as trigger
// predicates so merges and disequalities reach the theory.
func (b *TheoryBags) PreRegisterTerm(n *Node) error {
	k := n.Kind()
	if k.IsBagKind() && !b.env.Options().EnableBags {
		return NewLogicError("bag operator %v requires bags support, which is not enabled", k)
	}
	switch k {
	case KindBagPartition:
		return NewLogicError("bag.partition is not supported")
	case KindBagMap:
		f := n.Child(0)
		if !f.Type().IsFun() || len(f.Type().ArgTypes()) != 1 {
			return NewLogicError("bag.map requires a unary function")
		}
		b.mapFuncs[f] = true
	}
	ee := b.state.EqualityEngine()
	ee.AddTerm(n)
	switch k {
	case KindEqual:
		if n.Child(0).Type().IsBag() {
			ee.AddTriggerTerm(n.Child(0), TheoryIDBags)
			ee.AddTriggerTerm(n.Child(1), TheoryIDBags)
		}
	case KindBagCount, KindBagCard, KindBagMake:
		ee.AddTriggerTerm(n, TheoryIDBags)
	}
	return nil
}

// PpRewrite eliminates bag.choose during preprocessing: the term is replaced
// by a fresh skolem constrained to be a member of the bag when the bag is
// nonempty and a fixed default otherwise.
func (b *TheoryBags) PpRewrite(n *Node, lemmas *[]SkolemLemma) (*Node, error) {
	if n.Kind() != KindBagChoose {
		return n, nil
	}
	nm := b.env.NodeManager()
	sm := b.env.SkolemManager()
	bag := n.Child(0)
	elemType := bag.Type().ElementType()
	sk := sm.MkSkolemFunction(SkolemBagsChoose, elemType, n)

	empty := nm.MkEmptyBag(bag.Type())
	isEmpty := nm.MkEqual(bag, empty)
	whenEmpty := nm.MkNode(KindImplies, isEmpty, nm.MkEqual(sk, nm.MkGroundValue(elemType)))
	whenNonEmpty := nm.MkNode(KindImplies,
		nm.MkNode(KindNot, isEmpty),
		nm.MkNode(KindGeq, nm.MkNode(KindBagCount, sk, bag), nm.MkInt(1)))
	lemma := nm.MkAnd([]*Node{whenEmpty, whenNonEmpty})
	*lemmas = append(*lemmas, SkolemLemma{Lemma: lemma, Skolem: sk})
	return sk, nil
}

// AssertFact asserts a bag atom into the equality engine. Negated bag
// equalities are additionally recorded for the disequality check.
func (b *TheoryBags) AssertFact(atom *Node, polarity bool, fact *Node) {
	ee := b.state.EqualityEngine()
	ee.AddTerm(atom)
	ee.AssertPredicate(atom, polarity, fact, b.env.NodeManager())
	if !polarity && atom.Kind() == KindEqual && atom.Child(0).Type().IsBag() {
		b.state.AddDisequality(atom.Child(0), atom.Child(1))
	}
}

// PostCheck runs the check loop at the given effort. Rounds repeat while
// flushing the pending queues asserted at least one new fact without raising
// a conflict or pushing a lemma to the SAT engine. Lemmas already in the
// dedup cache are dropped by the flush and so cannot keep the loop alive.
func (b *TheoryBags) PostCheck(e Effort) error {
	if !b.strategy.HasEffort(e) {
		return nil
	}
	for {
		b.im.Reset()
		b.initialize()
		if b.state.IsInConflict() {
			break
		}
		b.runStrategy(e)
		b.im.DoPending()
		if b.state.IsInConflict() || b.im.HasSentLemma() || !b.im.HasSentFact() {
			break
		}
	}
	b.log.Debug("check done", zap.Stringer("effort", e),
		zap.Bool("conflict", b.state.IsInConflict()))
	return nil
}

// initialize rebuilds the per-round indices: walk every live equivalence
// class once, classify each member by kind, and re-register the derived
// count, cardinality and grouping terms.
func (b *TheoryBags) initialize() {
	b.bstate.reset()
	b.opMap = make(map[Kind][]*Node)
	ee := b.state.EqualityEngine()
	for _, rep := range ee.Classes() {
		for _, t := range ee.ClassMembers(rep) {
			k := t.Kind()
			if k.IsBagKind() {
				b.opMap[k] = append(b.opMap[k], t)
			}
			switch {
			case k == KindBagCount:
				b.bstate.registerCountTerm(t, b.im)
			case k == KindBagCard:
				b.bstate.registerCardTerm(t, b.im)
			case k == KindTableGroup:
				b.bstate.registerGroupTerm(t)
			case t.Type().IsBag():
				b.bstate.registerBag(t)
			}
		}
	}
}

// runStrategy executes the strategy steps for the effort level, stopping at
// a break once work is pending.
func (b *TheoryBags) runStrategy(e Effort) {
	for _, st := range b.strategy.StepsFor(e) {
		switch st.step {
		case StepBreak:
			if b.state.IsInConflict() || b.im.HasPending() || b.im.HasSentLemma() {
				return
			}
		case StepCheckInit:
			// marker, indices were rebuilt by initialize
		case StepCheckBagMake:
			b.solver.checkBagMake()
		case StepCheckBasicOperations:
			b.solver.checkBasicOperations()
		case StepCheckQuantifiedOperations:
			b.solver.checkQuantifiedOperations()
		}
	}
}

func (b *TheoryBags) NeedsCheckLastEffort() bool { return false }

// ComputeCareGraph emits case-split lemmas for pairs of bag applications the
// theory must distinguish. Two applications of the same kind over the same
// element type form a care pair; when a care argument pair is not yet known
// equal the split (x = y) or not (x = y) forces the SAT engine to decide it.
func (b *TheoryBags) ComputeCareGraph() {
	for _, k := range []Kind{KindBagCount, KindBagMake} {
		terms := b.opMap[k]
		for i := 0; i < len(terms); i++ {
			for j := i + 1; j < len(terms); j++ {
				b.addCarePairArgs(terms[i], terms[j])
			}
		}
	}
}

func (b *TheoryBags) addCarePairArgs(a, c *Node) {
	if a.Type() != c.Type() || b.state.AreEqual(a, c) {
		return
	}
	if bagTypeOfApp(a) != bagTypeOfApp(c) {
		return
	}
	for i := 0; i < a.NumChildren(); i++ {
		x, y := a.Child(i), c.Child(i)
		if x == y || !b.isCareArg(a, i) || !b.isCareArg(c, i) {
			continue
		}
		if b.state.AreEqual(x, y) {
			continue
		}
		b.processCarePairArgs(x, y)
	}
}

// isCareArg reports whether argument i of n must be actively related to its
// counterpart in another application. Trigger terms always qualify; for
// count and make applications every argument does.
func (b *TheoryBags) isCareArg(n *Node, i int) bool {
	if b.state.EqualityEngine().IsTriggerTerm(n.Child(i), TheoryIDBags) {
		return true
	}
	return n.Kind() == KindBagCount || n.Kind() == KindBagMake
}

func (b *TheoryBags) processCarePairArgs(x, y *Node) {
	nm := b.env.NodeManager()
	eq := nm.MkNode(KindEqual, x, y)
	split := nm.MkOr([]*Node{eq, nm.MkNode(KindNot, eq)})
	b.im.Lemma(split, InferBagsCgSplit)
}

// bagTypeOfApp returns the bag type an application ranges over, used to
// group applications into care classes.
func bagTypeOfApp(n *Node) *Type {
	switch n.Kind() {
	case KindBagCount:
		return n.Child(1).Type()
	case KindBagCard:
		return n.Child(0).Type()
	}
	return n.Type()
}

// CollectModelValues contributes a concrete constant bag for the class of
// every bag-typed relevant term, built from the registered element and
// multiplicity information.
func (b *TheoryBags) CollectModelValues(m *TheoryModel, termSet []*Node) bool {
	vals := b.assignElementValues(m)
	seen := make(map[*Node]bool)
	for _, t := range termSet {
		if !t.Type().IsBag() {
			continue
		}
		rep := b.state.Representative(t)
		if seen[rep] {
			continue
		}
		seen[rep] = true
		val := b.constructBagValue(m, rep, vals)
		if val == nil {
			continue
		}
		m.AssertSkeleton(rep)
		if !m.AssertEquality(rep, val, true) {
			return false
		}
		m.SetValue(rep, val)
	}
	return true
}

// assignElementValues picks concrete integers for the element and
// multiplicity terms no constant is known for. Terms in distinct classes
// receive distinct values, so asserted disequalities between counts or
// elements remain satisfied in the model. The values start at 1; a
// multiplicity invented here always denotes a nonempty occurrence.
func (b *TheoryBags) assignElementValues(m *TheoryModel) map[*Node]*Node {
	nm := b.env.NodeManager()
	ee := b.state.EqualityEngine()

	used := make(map[string]bool)
	for _, rep := range ee.Classes() {
		if c := ee.ClassConstant(rep); c != nil && c.Kind() == KindConstInt {
			used[c.IntValue().String()] = true
		}
	}

	vals := make(map[*Node]*Node)
	next := int64(1)
	pick := func(t *Node) {
		if !t.Type().IsInt() || ee.ClassConstant(t) != nil {
			return
		}
		rep := b.state.Representative(t)
		if vals[rep] != nil {
			return
		}
		var v *Node
		for {
			v = nm.MkInt(next)
			next++
			if !used[v.IntValue().String()] {
				break
			}
		}
		used[v.IntValue().String()] = true
		vals[rep] = v
		m.AssertSkeleton(t)
		m.SetValue(t, v)
	}
	for _, brep := range b.bstate.Bags() {
		for _, ec := range b.bstate.ElementCountPairs(brep) {
			pick(ec.elem)
			pick(ec.count)
		}
	}
	return vals
}

// constructBagValue builds the constant bag denoted by the class of rep, or
// nil when nothing is known about its contents. Elements are ordered by node
// identity so equal contents always yield the identical constant.
func (b *TheoryBags) constructBagValue(m *TheoryModel, rep *Node, vals map[*Node]*Node) *Node {
	nm := b.env.NodeManager()
	ee := b.state.EqualityEngine()

	type pair struct{ elem, count *Node }
	var pairs []pair
	for _, ec := range b.bstate.ElementCountPairs(rep) {
		ev := ec.elem
		if c := ee.ClassConstant(ec.elem); c != nil {
			ev = c
		} else if v := vals[b.state.Representative(ec.elem)]; v != nil {
			ev = v
		}
		cv := ee.ClassConstant(ec.count)
		if cv == nil {
			cv = vals[b.state.Representative(ec.count)]
		}
		if cv == nil || cv.Kind() != KindConstInt || cv.IntValue().Sign() <= 0 {
			continue
		}
		pairs = append(pairs, pair{elem: ev, count: cv})
	}

	if len(pairs) == 0 {
		// fall back to a constructor application in the class itself
		for _, t := range ee.ClassMembers(rep) {
			switch t.Kind() {
			case KindBagEmpty:
				return t
			case KindBagMake:
				elem := t.Child(0)
				if c := ee.ClassConstant(elem); c != nil {
					elem = c
				}
				return b.env.Rewrite(nm.MkNode(KindBagMake, elem, t.Child(1)))
			}
		}
		return nil
	}

	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j].elem.ID() < pairs[j-1].elem.ID(); j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}
	val := nm.MkEmptyBag(rep.Type())
	for i := len(pairs) - 1; i >= 0; i-- {
		mk := nm.MkNode(KindBagMake, pairs[i].elem, pairs[i].count)
		val = b.env.Rewrite(nm.MkNode(KindBagUnionDisjoint, mk, val))
	}
	return val
}

func (b *TheoryBags) PostProcessModel(m *TheoryModel) {
	nm := b.env.NodeManager()
	for _, t := range m.EqualityEngine().Terms() {
		if t.Type().IsBag() && !m.HasValue(t) {
			m.SetValue(t, nm.MkEmptyBag(t.Type()))
		}
	}
}

func (b *TheoryBags) Explain(lit *Node) *Node {
	return b.im.ExplainLit(lit)
}

// bagsNotify routes equality-engine events into the bags theory.
type bagsNotify struct {
	b *TheoryBags
}

func (n *bagsNotify) EqNotifyNewClass(t *Node) {}

func (n *bagsNotify) EqNotifyMerge(t1, t2 *Node) {}

func (n *bagsNotify) EqNotifyDisequal(t1, t2, reason *Node) {
	if t1.Type().IsBag() {
		n.b.state.AddDisequality(t1, t2)
	}
}

func (n *bagsNotify) EqNotifyConstantMerge(t1, t2 *Node) {
	nm := n.b.env.NodeManager()
	conflict := n.b.state.EqualityEngine().Explain(t1, t2, nm)
	if conflict == nil {
		conflict = nm.MkEqual(t1, t2)
	}
	n.b.im.Conflict(conflict, InferEqualityConflict)
}
