package smt

import (
	"go.uber.org/zap"
)

// Status is the outcome of a satisfiability check.
type Status int

const (
	StatusUnknown Status = iota
	StatusSat
	StatusUnsat
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSat:
		return "sat"
	case StatusUnsat:
		return "unsat"
	}
	return "unknown"
}

// Result is the answer of a check, with a reason when inconclusive.
type Result struct {
	Status Status
	Reason string
}

// TheoryEngine dispatches over the active theories in a fixed order. It owns
// the equality-engine manager and routes terms and facts to the theory
// responsible for them; facts no theory claims go straight to the central
// equality engine.
type TheoryEngine struct {
	env *Env
	log *zap.Logger
	eem *EqEngineManager

	theories []Theory
	bags     *TheoryBags
}

// NewTheoryEngine constructs the active theories over the environment and
// wires their equality engines.
func NewTheoryEngine(env *Env, out OutputChannel) *TheoryEngine {
	te := &TheoryEngine{
		env: env,
		log: env.Logger("theory-engine"),
		eem: NewEqEngineManager(env),
	}
	te.bags = NewTheoryBags(env, out)
	te.theories = []Theory{te.bags}
	te.eem.InitializeTheories(te.theories)
	return te
}

// FinishInit completes initialization of every theory.
func (te *TheoryEngine) FinishInit() error {
	for _, t := range te.theories {
		if err := t.FinishInit(); err != nil {
			return err
		}
	}
	return nil
}

// Presolve runs every theory's presolve hook.
func (te *TheoryEngine) Presolve() {
	for _, t := range te.theories {
		t.Presolve()
	}
}

// Theories returns the active theories in dispatch order.
func (te *TheoryEngine) Theories() []Theory { return te.theories }

// EeManager returns the equality-engine manager.
func (te *TheoryEngine) EeManager() *EqEngineManager { return te.eem }

// theoryFor returns the theory responsible for a term, or nil when the term
// belongs to the shared engines alone.
func (te *TheoryEngine) theoryFor(n *Node) Theory {
	if TheoryOf(n) == TheoryIDBags {
		return te.bags
	}
	if n.Kind() == KindEqual && n.Child(0).Type().IsBag() {
		return te.bags
	}
	return nil
}

// PreRegisterTerm introduces a term to its theory, or to the central engine
// when no theory claims it.
func (te *TheoryEngine) PreRegisterTerm(n *Node) error {
	if t := te.theoryFor(n); t != nil {
		return t.PreRegisterTerm(n)
	}
	te.eem.CentralEqualityEngine().AddTerm(n)
	return nil
}

// AssertFact routes an assigned atom to its theory; unclaimed atoms are
// asserted into the central engine directly.
func (te *TheoryEngine) AssertFact(atom *Node, polarity bool, fact *Node) {
	if t := te.theoryFor(atom); t != nil {
		t.AssertFact(atom, polarity, fact)
		return
	}
	ee := te.eem.CentralEqualityEngine()
	ee.AddTerm(atom)
	ee.AssertPredicate(atom, polarity, fact, te.env.NodeManager())
}

// Check runs every theory's check at the given effort.
func (te *TheoryEngine) Check(e Effort) error {
	for _, t := range te.theories {
		if err := t.PostCheck(e); err != nil {
			return err
		}
	}
	return nil
}

// CombineTheories computes every theory's care graph, the cross-theory
// splitting step run when all checks were quiet.
func (te *TheoryEngine) CombineTheories() {
	for _, t := range te.theories {
		t.ComputeCareGraph()
	}
}

// definedFun is a user-level function definition, kept in declaration order
// so subsolvers can replay them.
type definedFun struct {
	fn     *Node
	lambda *Node
}

// SolverEngine is the outer search loop: it alternates the SAT engine over
// the propositional abstraction with theory checks over each satisfying
// assignment, learning a clause from every theory conflict, until the
// assignment survives all checks or the abstraction is exhausted.
type SolverEngine struct {
	env *Env
	log *zap.Logger

	prop *PropEngine
	te   *TheoryEngine
	mm   *ModelManager

	assertions  *CDList[*Node]
	definitions *CDList[definedFun]
	defMap      map[*Node]*Node

	learned []*Node

	// per-round
	conflict  *Node
	lemmaSent bool
}

// NewSolverEngine creates a solver over a fresh environment.
func NewSolverEngine(nm *NodeManager, opts *Options) (*SolverEngine, error) {
	return newSolverEngine(NewEnv(nm, opts))
}

func newSolverEngine(env *Env) (*SolverEngine, error) {
	se := &SolverEngine{
		env:    env,
		log:    env.Logger("solver"),
		defMap: make(map[*Node]*Node),
	}
	se.prop = NewPropEngine(env)
	se.te = NewTheoryEngine(env, se)
	if err := se.te.FinishInit(); err != nil {
		return nil, err
	}
	se.mm = NewModelManager(env, se.te.EeManager())
	se.mm.FinishInit(se.te.Theories(), se.prop)
	se.te.EeManager().SetConstantMergeHandler(se.onConstantMerge)
	se.assertions = NewCDList[*Node](env.UserContext())
	se.definitions = NewCDList[definedFun](env.UserContext())
	return se, nil
}

// Env returns the solver's environment.
func (se *SolverEngine) Env() *Env { return se.env }

// SendLemma implements OutputChannel: the lemma goes to the SAT engine and
// is remembered for replay after user-level pops.
func (se *SolverEngine) SendLemma(n *Node, id InferenceID) bool {
	se.prop.AddLemma(n)
	se.learned = append(se.learned, n)
	se.lemmaSent = true
	return true
}

// SendConflict implements OutputChannel.
func (se *SolverEngine) SendConflict(n *Node, id InferenceID) {
	if se.conflict == nil {
		se.conflict = n
	}
}

func (se *SolverEngine) onConstantMerge(t1, t2 *Node) {
	if se.conflict == nil {
		se.conflict = se.env.NodeManager().MkEqual(t1, t2)
	}
}

// DefineFunction records f as standing for the lambda over the given
// formals. Later assertions mentioning f are expanded before solving.
func (se *SolverEngine) DefineFunction(f *Node, formals []*Node, body *Node) error {
	nm := se.env.NodeManager()
	if !f.Type().IsFun() && len(formals) > 0 {
		return NewLogicError("defined symbol %s is not of function type", f.Name())
	}
	var lam *Node
	if len(formals) == 0 {
		lam = body
	} else {
		bvl := nm.MkNode(KindBoundVarList, formals...)
		lam = nm.MkNode(KindLambda, bvl, body)
	}
	se.definitions.Append(definedFun{fn: f, lambda: lam})
	se.defMap[f] = lam
	return nil
}

// Definitions returns the function definitions in declaration order.
func (se *SolverEngine) Definitions() []definedFun {
	return se.definitions.Slice()
}

// applyDefinitions expands defined functions in n. Beta reduction of the
// resulting lambda applications happens in the rewriter.
func (se *SolverEngine) applyDefinitions(n *Node) *Node {
	if len(se.defMap) == 0 {
		return n
	}
	return Substitute(se.env.NodeManager(), n, se.defMap)
}

// AssertFormula preprocesses and asserts a formula: definitions are
// expanded, the result is rewritten, theory preprocessing eliminates
// operators like bag.choose, and every subterm is pre-registered with its
// theory before the formula reaches the SAT engine.
func (se *SolverEngine) AssertFormula(n *Node) error {
	r := se.env.Rewrite(se.applyDefinitions(n))
	p, lemmas, err := se.preprocess(r)
	if err != nil {
		return err
	}
	for _, l := range lemmas {
		if err := se.addAssertion(se.env.Rewrite(l)); err != nil {
			return err
		}
	}
	return se.addAssertion(p)
}

func (se *SolverEngine) addAssertion(n *Node) error {
	if err := se.preRegister(n, make(map[*Node]bool)); err != nil {
		return err
	}
	se.assertions.Append(n)
	se.prop.AssertFormula(n)
	se.mm.ResetModel()
	return nil
}

// preprocess applies theory ppRewrite hooks bottom-up, collecting the
// skolem lemmas they emit.
func (se *SolverEngine) preprocess(n *Node) (*Node, []*Node, error) {
	var lemmas []SkolemLemma
	cache := make(map[*Node]*Node)
	out, err := se.ppRewriteRec(n, cache, &lemmas)
	if err != nil {
		return nil, nil, err
	}
	ls := make([]*Node, len(lemmas))
	for i, sl := range lemmas {
		ls[i] = sl.Lemma
	}
	return out, ls, nil
}

func (se *SolverEngine) ppRewriteRec(n *Node, cache map[*Node]*Node, lemmas *[]SkolemLemma) (*Node, error) {
	if r, ok := cache[n]; ok {
		return r, nil
	}
	nm := se.env.NodeManager()
	out := n
	if n.NumChildren() > 0 && n.Kind() != KindLambda && n.Kind() != KindForall && n.Kind() != KindExists {
		children := make([]*Node, n.NumChildren())
		changed := false
		for i := 0; i < n.NumChildren(); i++ {
			c, err := se.ppRewriteRec(n.Child(i), cache, lemmas)
			if err != nil {
				return nil, err
			}
			children[i] = c
			changed = changed || c != n.Child(i)
		}
		if changed {
			out = nm.MkNode(n.Kind(), children...)
		}
	}
	if t := se.te.theoryFor(out); t != nil {
		r, err := t.PpRewrite(out, lemmas)
		if err != nil {
			return nil, err
		}
		out = r
	}
	cache[n] = out
	return out, nil
}

// preRegister walks the subterms of an assertion and introduces each to its
// theory. Binder bodies are opaque at this level; quantified reasoning
// never goes through the equality engines.
func (se *SolverEngine) preRegister(n *Node, seen map[*Node]bool) error {
	if seen[n] {
		return nil
	}
	seen[n] = true
	switch n.Kind() {
	case KindForall, KindExists, KindLambda:
		return nil
	}
	for i := 0; i < n.NumChildren(); i++ {
		if err := se.preRegister(n.Child(i), seen); err != nil {
			return err
		}
	}
	switch n.Kind() {
	case KindAnd, KindOr, KindNot, KindImplies, KindConstBool:
		return nil
	}
	return se.te.PreRegisterTerm(n)
}

// CheckSat decides the asserted formulas. Each round takes a satisfying
// assignment of the propositional abstraction, asserts it to the theories
// and runs their checks at increasing effort; a conflict learns a clause
// and a lemma refines the abstraction, and either restarts the round. An
// assignment every theory is quiet on is satisfying, and the model is built
// from it when model production is on.
func (se *SolverEngine) CheckSat() (Result, error) {
	rm := se.env.ResourceManager()
	rm.Reset()
	se.mm.ResetModel()
	se.te.Presolve()

	maxRounds := se.env.Options().MaxCheckRounds
	for round := 0; maxRounds == 0 || round < maxRounds; round++ {
		switch se.prop.Solve() {
		case -1:
			return Result{Status: StatusUnsat}, nil
		case 0:
			return Result{Status: StatusUnknown, Reason: "resource limit"}, nil
		}

		se.conflict = nil
		se.lemmaSent = false
		ctx := se.env.Context()
		ctx.Push()

		asserted := se.assertAssignment()
		if se.conflict == nil && !se.lemmaSent {
			if err := se.te.Check(EffortStandard); err != nil {
				ctx.Pop()
				return Result{}, err
			}
		}
		if se.conflict == nil && !se.lemmaSent {
			if err := se.te.Check(EffortFull); err != nil {
				ctx.Pop()
				return Result{}, err
			}
		}
		if se.conflict == nil && !se.lemmaSent {
			se.te.CombineTheories()
		}

		if se.conflict != nil {
			se.log.Debug("theory conflict", zap.Int("round", round),
				zap.Stringer("conflict", se.conflict))
			ctx.Pop()
			if len(asserted) == 0 {
				return Result{Status: StatusUnsat}, nil
			}
			se.learnConflictClause(asserted)
			continue
		}
		if se.lemmaSent {
			ctx.Pop()
			continue
		}

		if se.env.Options().ProduceModels {
			if se.mm.BuildModel() {
				se.mm.PostProcessModel()
			}
		}
		ctx.Pop()
		return Result{Status: StatusSat}, nil
	}
	return Result{Status: StatusUnknown, Reason: "check round limit reached"}, nil
}

// assertAssignment pushes the SAT engine's assignment into the theories and
// returns the asserted literals.
func (se *SolverEngine) assertAssignment() []*Node {
	nm := se.env.NodeManager()
	var lits []*Node
	for _, aa := range se.prop.AssignedAtoms() {
		if se.conflict != nil {
			break
		}
		lit := aa.Atom
		if !aa.Value {
			lit = nm.MkNode(KindNot, aa.Atom)
		}
		lits = append(lits, lit)
		se.te.AssertFact(aa.Atom, aa.Value, lit)
	}
	return lits
}

// learnConflictClause blocks the conflicting assignment: the negation of
// the asserted literals is a theory-valid clause.
func (se *SolverEngine) learnConflictClause(asserted []*Node) {
	nm := se.env.NodeManager()
	negs := make([]*Node, len(asserted))
	for i, l := range asserted {
		negs[i] = nm.MkNode(KindNot, l)
	}
	clause := se.env.Rewrite(nm.MkOr(negs))
	se.prop.AddLemma(clause)
	se.learned = append(se.learned, clause)
}

// Push opens a user-level scope.
func (se *SolverEngine) Push() {
	se.env.UserContext().Push()
}

// Pop closes the current user-level scope. The SAT engine cannot retract
// clauses, so it is rebuilt from the surviving assertions plus the learned
// lemmas, which are theory-valid and safe to keep.
func (se *SolverEngine) Pop() {
	se.env.UserContext().Pop()
	se.defMap = make(map[*Node]*Node)
	for _, d := range se.definitions.Slice() {
		se.defMap[d.fn] = d.lambda
	}
	se.prop = NewPropEngine(se.env)
	for _, a := range se.assertions.Slice() {
		se.prop.AssertFormula(a)
	}
	for _, l := range se.learned {
		se.prop.AddLemma(l)
	}
	se.mm.prop = se.prop
	se.mm.ResetModel()
}

// Assertions returns the live assertions in assertion order.
func (se *SolverEngine) Assertions() []*Node {
	return se.assertions.Slice()
}

// GetModel returns the model of the last satisfiable check, or nil.
func (se *SolverEngine) GetModel() *TheoryModel {
	return se.mm.GetModel()
}

// GetValue evaluates t in the model of the last satisfiable check.
func (se *SolverEngine) GetValue(t *Node) (*Node, error) {
	m := se.mm.GetModel()
	if m == nil {
		return nil, NewInternalError("no model available")
	}
	return m.GetValue(t), nil
}

// Subsolver constructs an independent nested solver sharing only the node
// manager, an options copy and the resource manager. Function definitions
// are replayed; assertions are not.
func (se *SolverEngine) Subsolver() (*SolverEngine, error) {
	sub, err := newSolverEngine(se.env.forSubsolver())
	if err != nil {
		return nil, err
	}
	for _, d := range se.definitions.Slice() {
		sub.definitions.Append(d)
		sub.defMap[d.fn] = d.lambda
	}
	return sub, nil
}
