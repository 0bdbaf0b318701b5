package smt

// TheoryID identifies a theory participating in combined checking. Dispatch
// over theories always iterates in increasing TheoryID order, which makes
// every fan-out in the engine deterministic.
type TheoryID int

const (
	TheoryIDBuiltin TheoryID = iota
	TheoryIDBool
	TheoryIDArith
	TheoryIDUF
	TheoryIDBags
	TheoryIDQuantifiers

	theoryIDLast
)

var theoryNames = map[TheoryID]string{
	TheoryIDBuiltin:     "builtin",
	TheoryIDBool:        "bool",
	TheoryIDArith:       "arith",
	TheoryIDUF:          "uf",
	TheoryIDBags:        "bags",
	TheoryIDQuantifiers: "quantifiers",
}

// String returns the theory's short name.
func (id TheoryID) String() string {
	if s, ok := theoryNames[id]; ok {
		return s
	}
	return "unknown"
}

// TheoryOfKind returns the theory owning terms of the given kind.
func TheoryOfKind(k Kind) TheoryID {
	switch {
	case k.IsBagKind():
		return TheoryIDBags
	case k == KindAdd || k == KindMult || k == KindGeq || k == KindLeq || k == KindConstInt:
		return TheoryIDArith
	case k == KindApplyUF:
		return TheoryIDUF
	case k == KindExists || k == KindForall:
		return TheoryIDQuantifiers
	case k == KindVar || k == KindSkolem:
		return TheoryIDBuiltin
	}
	return TheoryIDBool
}

// TheoryOf returns the theory responsible for the term n. Equalities belong
// to the theory of their operands.
func TheoryOf(n *Node) TheoryID {
	if n.Kind() == KindEqual {
		return theoryOfType(n.Child(0).Type())
	}
	if n.Kind() == KindVar || n.Kind() == KindSkolem {
		return theoryOfType(n.Type())
	}
	return TheoryOfKind(n.Kind())
}

func theoryOfType(t *Type) TheoryID {
	switch t.Kind() {
	case TypeBag:
		return TheoryIDBags
	case TypeInt:
		return TheoryIDArith
	case TypeFun:
		return TheoryIDUF
	}
	return TheoryIDBool
}

// Effort is the priority tier of a check round. Standard-effort checks run
// eagerly on partial assignments; full-effort checks run on complete
// propositional assignments and must be conclusive for the theory's
// satisfiability.
type Effort int

const (
	EffortStandard Effort = iota
	EffortFull
	EffortLastCall
)

// String returns the effort's name.
func (e Effort) String() string {
	switch e {
	case EffortStandard:
		return "standard"
	case EffortFull:
		return "full"
	case EffortLastCall:
		return "last-call"
	}
	return "unknown"
}

// EeSetupInfo is filled in by a theory that wants an equality engine: the
// notification object to wire and a diagnostic name for the engine.
type EeSetupInfo struct {
	Notify EqNotify
	Name   string
}

// SkolemLemma pairs a lemma with the skolem it defines, produced by
// preprocessing rewrites that eliminate an operator with a fresh symbol.
type SkolemLemma struct {
	Lemma  *Node
	Skolem *Node
}

// Theory is the per-theory solver interface invoked by the theory engine in
// a fixed dispatch order. Conflicts are reported through the theory's
// inference manager, never as errors; an error return always means an
// internal failure or a logic (configuration) error.
type Theory interface {
	// ID returns the theory's identity tag.
	ID() TheoryID

	// NeedsEqualityEngine reports whether the theory wants an equality
	// engine and fills in its setup info.
	NeedsEqualityEngine(esi *EeSetupInfo) bool

	// SetEqualityEngine hands the theory the engine chosen for it, central
	// or private, before FinishInit.
	SetEqualityEngine(ee *EqualityEngine)

	// FinishInit completes initialization once the equality engine is wired.
	FinishInit() error

	// Presolve is called once per user check before the search starts; the
	// theory builds its inference strategy here.
	Presolve()

	// PreRegisterTerm introduces a term to the theory before it appears in
	// any assertion. The theory rejects disallowed operators here.
	PreRegisterTerm(n *Node) error

	// PpRewrite gives the theory a chance to eliminate an operator during
	// preprocessing, possibly emitting skolem lemmas.
	PpRewrite(n *Node, lemmas *[]SkolemLemma) (*Node, error)

	// AssertFact asserts a theory atom with the given polarity into the
	// theory's state.
	AssertFact(atom *Node, polarity bool, fact *Node)

	// PostCheck runs the theory's check at the given effort on the current
	// assignment.
	PostCheck(e Effort) error

	// NeedsCheckLastEffort reports whether the theory wants a last-call
	// check round.
	NeedsCheckLastEffort() bool

	// ComputeCareGraph emits case-split lemmas for term pairs the theory
	// must distinguish to keep model construction sound.
	ComputeCareGraph()

	// CollectModelValues contributes concrete values for the theory's terms
	// in termSet to the model.
	CollectModelValues(m *TheoryModel, termSet []*Node) bool

	// PostProcessModel lets the theory adjust the model after a successful
	// build.
	PostProcessModel(m *TheoryModel)

	// Explain returns the reason a literal propagated by this theory holds.
	Explain(lit *Node) *Node
}
