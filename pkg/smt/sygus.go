package smt

import (
	"fmt"

	"go.uber.org/zap"
)

// SynthResultKind classifies the outcome of a synthesis check.
type SynthResultKind int

const (
	SynthUnknown SynthResultKind = iota
	SynthSolution
	SynthNoSolution
)

// String returns the outcome's name.
func (k SynthResultKind) String() string {
	switch k {
	case SynthSolution:
		return "solution"
	case SynthNoSolution:
		return "no-solution"
	}
	return "unknown"
}

// SynthResult is the answer of CheckSynth, with a reason when inconclusive.
type SynthResult struct {
	Kind   SynthResultKind
	Reason string
}

// SynthFun describes a declared synthesis target: its symbol, its explicit
// argument list when one was given, and its grammar when syntax-restricted.
type SynthFun struct {
	Symbol  *Node
	Args    []*Node
	Grammar *Type
}

// SygusSolver accumulates a synthesis problem over a solver engine and
// decides it on demand. Declared entities live in backtracking-scoped lists
// on the user context; the conjecture is cached and marked stale by every
// declaration or assertion, and rebuilt only when stale.
type SygusSolver struct {
	env *Env
	slv *SolverEngine
	log *zap.Logger

	vars        *CDList[*Node]
	funs        *CDList[*Node]
	constraints *CDList[*Node]
	assumptions *CDList[*Node]

	stale     *CDVal[bool]
	conj      *CDVal[*Node]
	subsolver *CDVal[*SolverEngine]

	// subsolver the last CheckSynth ran on, compared against the live one
	// to detect backtracking past its creation
	checkedSub *SolverEngine

	fnArgs    map[*Node][]*Node
	fnGrammar map[*Node]*Type

	synth *SynthEngine

	trivial   []*Node
	solutions map[*Node]*Node
}

// NewSygusSolver creates a synthesis solver over the given engine.
func NewSygusSolver(slv *SolverEngine) *SygusSolver {
	env := slv.Env()
	uctx := env.UserContext()
	return &SygusSolver{
		env:         env,
		slv:         slv,
		log:         env.Logger("sygus"),
		vars:        NewCDList[*Node](uctx),
		funs:        NewCDList[*Node](uctx),
		constraints: NewCDList[*Node](uctx),
		assumptions: NewCDList[*Node](uctx),
		stale:       NewCDVal(uctx, true),
		conj:        NewCDVal[*Node](uctx, nil),
		subsolver:   NewCDVal[*SolverEngine](uctx, nil),
		fnArgs:      make(map[*Node][]*Node),
		fnGrammar:   make(map[*Node]*Type),
		synth:       NewSynthEngine(env),
	}
}

// DeclareSygusVar declares a universal variable of the synthesis problem.
func (s *SygusSolver) DeclareSygusVar(v *Node) error {
	if v.Kind() != KindVar {
		return NewInternalError("sygus variable %s is not a variable", v)
	}
	s.vars.Append(v)
	s.stale.Set(true)
	return nil
}

// DeclareSynthFun declares a function to synthesize, with an optional
// explicit argument list and an optional grammar restricting its syntax. A
// grammar production mentioning a symbol that is neither a grammar formal
// nor a declared entity is a logic error.
func (s *SygusSolver) DeclareSynthFun(f *Node, args []*Node, grammar *Type) error {
	if grammar != nil {
		formals := make(map[*Node]bool)
		for _, bv := range grammar.GrammarFormals() {
			formals[bv] = true
		}
		for _, op := range grammar.GrammarOps() {
			free := make(map[*Node]bool)
			FreeSymbols(op, free)
			for sym := range free {
				if !formals[sym] && sym != f {
					return NewLogicError(
						"grammar for %s mentions free symbol %s", f.Name(), sym.Name())
				}
			}
		}
		s.fnGrammar[f] = grammar
	}
	if args != nil {
		s.fnArgs[f] = append([]*Node(nil), args...)
	}
	s.funs.Append(f)
	s.stale.Set(true)
	return nil
}

// AssertSygusConstraint adds a constraint, or an assumption when
// isAssumption is set. Conjunctions are split into separately tracked
// constraints, and a top-level universal quantifier is unwrapped by hoisting
// its bound variables into the declared-variable set.
func (s *SygusSolver) AssertSygusConstraint(n *Node, isAssumption bool) error {
	switch n.Kind() {
	case KindAnd:
		for i := 0; i < n.NumChildren(); i++ {
			if err := s.AssertSygusConstraint(n.Child(i), isAssumption); err != nil {
				return err
			}
		}
		return nil
	case KindForall:
		nm := s.env.NodeManager()
		bvl, body := n.Child(0), n.Child(1)
		subs := make(map[*Node]*Node, bvl.NumChildren())
		for i := 0; i < bvl.NumChildren(); i++ {
			bv := bvl.Child(i)
			v := nm.MkVar(bv.Name(), bv.Type())
			subs[bv] = v
			if err := s.DeclareSygusVar(v); err != nil {
				return err
			}
		}
		return s.AssertSygusConstraint(Substitute(nm, body, subs), isAssumption)
	}
	if isAssumption {
		s.assumptions.Append(n)
	} else {
		s.constraints.Append(n)
	}
	s.stale.Set(true)
	return nil
}

// AssertSygusInvConstraint encodes an invariant-synthesis problem over the
// given precondition, transition relation and postcondition: fresh regular
// and primed variable copies are declared per argument type, and the three
// implications pre implies inv, inv and trans imply primed inv, and inv
// implies post are conjoined into one constraint.
func (s *SygusSolver) AssertSygusInvConstraint(inv, pre, trans, post *Node) error {
	nm := s.env.NodeManager()
	if !inv.Type().IsFun() {
		return NewLogicError("invariant %s is not of function type", inv.Name())
	}
	argTypes := inv.Type().ArgTypes()

	vars := make([]*Node, len(argTypes))
	primed := make([]*Node, len(argTypes))
	for i, at := range argTypes {
		vars[i] = nm.MkVar(fmt.Sprintf("x%d", i), at)
		primed[i] = nm.MkVar(fmt.Sprintf("x%d'", i), at)
		if err := s.DeclareSygusVar(vars[i]); err != nil {
			return err
		}
		if err := s.DeclareSygusVar(primed[i]); err != nil {
			return err
		}
	}

	apply := func(f *Node, args []*Node) *Node {
		children := append([]*Node{f}, args...)
		return nm.MkNode(KindApplyUF, children...)
	}
	invApp := apply(inv, vars)
	invPrime := apply(inv, primed)
	preApp := apply(pre, vars)
	transApp := apply(trans, append(append([]*Node(nil), vars...), primed...))
	postApp := apply(post, vars)

	constraint := nm.MkAnd([]*Node{
		nm.MkNode(KindImplies, preApp, invApp),
		nm.MkNode(KindImplies, nm.MkAnd([]*Node{invApp, transApp}), invPrime),
		nm.MkNode(KindImplies, invApp, postApp),
	})
	// tracked as one constraint, not miniscoped
	s.constraints.Append(constraint)
	s.stale.Set(true)
	return nil
}

// GetSynthFunctions returns the declared synthesis targets in declaration
// order.
func (s *SygusSolver) GetSynthFunctions() []SynthFun {
	fs := s.funs.Slice()
	out := make([]SynthFun, len(fs))
	for i, f := range fs {
		out[i] = SynthFun{Symbol: f, Args: s.fnArgs[f], Grammar: s.fnGrammar[f]}
	}
	return out
}

// Conjecture returns the cached conjecture term, or nil when stale.
func (s *SygusSolver) Conjecture() *Node {
	if s.stale.Get() {
		return nil
	}
	return s.conj.Get()
}

// CheckSynth decides the synthesis problem. With isNext set, an unchanged
// problem reuses the cached conjecture and subsolver to search for a
// further solution; otherwise the conjecture is rebuilt from scratch.
func (s *SygusSolver) CheckSynth(isNext bool) (SynthResult, error) {
	opts := s.env.Options()
	if !isNext {
		s.stale.Set(true)
	}
	if s.subsolver.Get() != s.checkedSub {
		// backtracked past the subsolver the last check ran on
		s.stale.Set(true)
	}

	if s.stale.Get() {
		if err := s.buildConjecture(); err != nil {
			return SynthResult{}, err
		}
		// a cached subsolver still holds the previous conjecture; drop it
		// so the incremental path re-initializes with the rebuilt one
		s.subsolver.Set(nil)
	}

	var raw Result
	var err error
	if opts.Incremental {
		sub := s.subsolver.Get()
		if sub == nil {
			sub, err = s.initializeSygusSubsolver()
			if err != nil {
				return SynthResult{}, err
			}
			s.subsolver.Set(sub)
		}
		raw, err = sub.CheckSat()
	} else {
		raw, err = s.checkQueryOnce(s.conj.Get())
	}
	if err != nil {
		return SynthResult{}, err
	}
	s.checkedSub = s.subsolver.Get()

	// the raw result is not definitive: always attempt solution extraction
	sol := make(map[*Node]*Node)
	if s.getSolutionsInternal(sol) {
		s.solutions = sol
		if opts.CheckSynthSol {
			if err := s.checkSynthSolution(sol); err != nil {
				return SynthResult{}, err
			}
		}
		return SynthResult{Kind: SynthSolution}, nil
	}
	if raw.Status == StatusUnsat {
		return SynthResult{Kind: SynthNoSolution}, nil
	}
	reason := raw.Reason
	if reason == "" {
		reason = "no solution found for candidate conjecture"
	}
	return SynthResult{Kind: SynthUnknown, Reason: reason}, nil
}

// buildConjecture constructs the synthesis conjecture: the constraints are
// conjoined, guarded by the assumptions when both are present, negated and
// existentially closed over the declared variables; triviality inference
// then strips out functions the simplified body never mentions, and the
// rest are universally closed.
func (s *SygusSolver) buildConjecture() error {
	nm := s.env.NodeManager()
	constraints := s.constraints.Slice()
	assumptions := s.assumptions.Slice()

	body := nm.True()
	if len(constraints) > 0 {
		body = nm.MkAnd(constraints)
	}
	if len(constraints) > 0 && len(assumptions) > 0 {
		body = nm.MkNode(KindImplies, nm.MkAnd(assumptions), body)
	}
	neg := s.env.Rewrite(nm.MkNode(KindNot, body))

	q := neg
	vars := s.vars.Slice()
	if len(vars) > 0 {
		bvs := make([]*Node, len(vars))
		subs := make(map[*Node]*Node, len(vars))
		for i, v := range vars {
			bvs[i] = nm.MkBoundVar(v.Name(), v.Type())
			subs[v] = bvs[i]
		}
		q = nm.MkNode(KindExists, nm.MkNode(KindBoundVarList, bvs...),
			Substitute(nm, neg, subs))
	}

	occurring := s.inferTrivialFunctions(neg)

	conj := q
	if len(occurring) > 0 {
		fbvs := make([]*Node, len(occurring))
		fsubs := make(map[*Node]*Node, len(occurring))
		for i, f := range occurring {
			fbvs[i] = nm.MkBoundVar(f.Name(), f.Type())
			fsubs[f] = fbvs[i]
		}
		conj = nm.MkNode(KindForall, nm.MkNode(KindBoundVarList, fbvs...),
			Substitute(nm, q, fsubs))
	}

	s.conj.Set(conj)
	s.stale.Set(false)
	s.synth.RegisterConjecture(conj, occurring, constraints, vars)
	s.log.Debug("conjecture built", zap.Stringer("conjecture", conj),
		zap.Int("trivial", len(s.trivial)))
	return nil
}

// inferTrivialFunctions partitions the declared functions into occurring and
// trivial relative to the simplified body, and returns the occurring ones.
// A second expansion pass catches functions reachable only through another
// function's grammar dependencies. The pass count is capped at two; deeper
// grammar dependency chains may leave a function misclassified as trivial.
func (s *SygusSolver) inferTrivialFunctions(body *Node) []*Node {
	funs := s.funs.Slice()
	s.trivial = nil
	if s.env.Options().Incremental || s.env.Options().SygusStream {
		// all functions stay in the conjecture in incremental and
		// streaming modes
		return funs
	}

	expanded := s.env.Rewrite(s.slv.applyDefinitions(body))
	free := make(map[*Node]bool)
	FreeSymbols(expanded, free)

	occurs := make(map[*Node]bool)
	for pass := 0; pass < 2; pass++ {
		grew := false
		for _, f := range funs {
			if occurs[f] || !free[f] {
				continue
			}
			occurs[f] = true
			grew = true
			if g := s.fnGrammar[f]; g != nil {
				for _, op := range g.GrammarOps() {
					FreeSymbols(op, free)
				}
			}
		}
		if !grew {
			break
		}
	}

	var occurring []*Node
	for _, f := range funs {
		if occurs[f] {
			occurring = append(occurring, f)
		} else {
			s.trivial = append(s.trivial, f)
		}
	}
	return occurring
}

// initializeSygusSubsolver builds the nested solver for incremental
// synthesis: function definitions are carried forward from the outer engine
// and the conjecture is asserted once.
func (s *SygusSolver) initializeSygusSubsolver() (*SolverEngine, error) {
	sub, err := s.slv.Subsolver()
	if err != nil {
		return nil, err
	}
	conj := s.conj.Get()
	for _, a := range s.slv.Assertions() {
		if a == conj {
			// never re-assert the conjecture itself
			continue
		}
		if err := sub.AssertFormula(a); err != nil {
			return nil, err
		}
	}
	if err := sub.AssertFormula(conj); err != nil {
		return nil, err
	}
	return sub, nil
}

// checkQueryOnce runs a single-call satisfiability query on a throwaway
// engine, leaving the outer engine's state untouched.
func (s *SygusSolver) checkQueryOnce(query *Node) (Result, error) {
	sub, err := s.slv.Subsolver()
	if err != nil {
		return Result{}, err
	}
	if err := sub.AssertFormula(query); err != nil {
		return Result{}, err
	}
	return sub.CheckSat()
}

// GetSynthSolutions fills sol with a witness per declared function and
// reports whether a full solution is available. Trivial functions receive a
// canonical placeholder of their declared type.
func (s *SygusSolver) GetSynthSolutions(sol map[*Node]*Node) bool {
	if s.solutions == nil {
		found := make(map[*Node]*Node)
		if !s.getSolutionsInternal(found) {
			return false
		}
		s.solutions = found
	}
	for f, w := range s.solutions {
		sol[f] = w
	}
	return true
}

func (s *SygusSolver) getSolutionsInternal(sol map[*Node]*Node) bool {
	nm := s.env.NodeManager()
	if !s.synth.HasConjecture() {
		return false
	}
	if len(s.trivial) == len(s.funs.Slice()) {
		// every function is unconstrained
		for _, f := range s.trivial {
			sol[f] = nm.MkGroundValue(f.Type())
		}
		return len(s.trivial) > 0
	}
	if !s.synth.GetSynthSolutions(sol) {
		return false
	}
	for _, f := range s.trivial {
		sol[f] = nm.MkGroundValue(f.Type())
	}
	return true
}

// checkSynthSolution verifies a found solution on a fresh subsolver:
// substituting the witnesses into the constraint body and asserting its
// negation must be unsatisfiable. A satisfiable check is a hard failure
// unless verification is configured as untrusted; an unknown check is only
// ever a warning. An empty solution map, or a witness mentioning a declared
// variable, is an invariant violation.
func (s *SygusSolver) checkSynthSolution(sol map[*Node]*Node) error {
	nm := s.env.NodeManager()
	if len(sol) == 0 {
		return NewInternalError("empty synthesis solution map")
	}

	// witnesses must be closed terms: one mentioning a declared variable
	// would make the substituted body trivially valid
	declared := make(map[*Node]bool)
	for _, v := range s.vars.Slice() {
		declared[v] = true
	}
	for f, w := range sol {
		wfree := make(map[*Node]bool)
		FreeSymbols(w, wfree)
		for sym := range wfree {
			if declared[sym] {
				return NewInternalError(
					"synthesis solution for %s mentions declared variable %s",
					f.Name(), sym.Name())
			}
		}
	}

	body := nm.True()
	if cs := s.constraints.Slice(); len(cs) > 0 {
		body = nm.MkAnd(cs)
	}
	if as := s.assumptions.Slice(); len(as) > 0 {
		body = nm.MkNode(KindImplies, nm.MkAnd(as), body)
	}
	subst := s.env.Rewrite(Substitute(nm, body, sol))
	query := nm.MkNode(KindNot, subst)

	// residual function symbols can survive higher-order encodings: pin
	// them with solution equalities over opaque placeholders
	free := make(map[*Node]bool)
	FreeSymbols(subst, free)
	var eqs []*Node
	opaque := make(map[*Node]*Node)
	for f, w := range sol {
		if free[f] {
			ph := s.env.SkolemManager().MkSkolemFunction(SkolemOpaqueFun, f.Type(), f)
			opaque[f] = ph
			eqs = append(eqs, nm.MkEqual(ph, w))
		}
	}
	if len(opaque) > 0 {
		query = nm.MkAnd(append(eqs, Substitute(nm, query, opaque)))
	}

	sub, err := s.slv.Subsolver()
	if err != nil {
		return err
	}
	if err := sub.AssertFormula(query); err != nil {
		return err
	}
	res, err := sub.CheckSat()
	if err != nil {
		return err
	}
	switch res.Status {
	case StatusUnsat:
		return nil
	case StatusSat:
		if !s.env.Options().CheckSynthSolTrusted {
			s.log.Warn("synthesis solution failed verification, check is untrusted")
			return nil
		}
		return NewInternalError("synthesis solution failed verification")
	}
	s.log.Warn("synthesis solution verification inconclusive",
		zap.String("reason", res.Reason))
	return nil
}
