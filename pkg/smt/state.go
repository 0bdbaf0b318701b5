package smt

// TheoryState is a theory's view of the current partial assignment: the
// equality engine holding its equivalence classes, the disequalities asserted
// to it, and the conflict latch. Theory solvers read the assignment through
// their state and never touch the equality engine of another theory.
type TheoryState struct {
	env      *Env
	ee       *EqualityEngine
	conflict *CDVal[*Node]
	diseqs   *CDList[*Node]
}

// NewTheoryState creates a state bound to the environment's SAT context. The
// equality engine is wired later, during theory initialization.
func NewTheoryState(env *Env) *TheoryState {
	return &TheoryState{
		env:      env,
		conflict: NewCDVal[*Node](env.Context(), nil),
		diseqs:   NewCDList[*Node](env.Context()),
	}
}

// SetEqualityEngine binds the engine chosen for this theory.
func (s *TheoryState) SetEqualityEngine(ee *EqualityEngine) { s.ee = ee }

// EqualityEngine returns the engine this state reads.
func (s *TheoryState) EqualityEngine() *EqualityEngine { return s.ee }

// Env returns the shared environment.
func (s *TheoryState) Env() *Env { return s.env }

// HasTerm reports whether t is known to the equality engine.
func (s *TheoryState) HasTerm(t *Node) bool { return s.ee.HasTerm(t) }

// AreEqual reports whether a and b are currently known equal.
func (s *TheoryState) AreEqual(a, b *Node) bool { return s.ee.AreEqual(a, b) }

// AreDisequal reports whether a and b are currently known distinct.
func (s *TheoryState) AreDisequal(a, b *Node) bool { return s.ee.AreDisequal(a, b) }

// Representative returns the representative of t's class, or t itself when
// the term is not in the engine.
func (s *TheoryState) Representative(t *Node) *Node {
	if !s.ee.HasTerm(t) {
		return t
	}
	return s.ee.Representative(t)
}

// AddDisequality records an asserted disequality for later per-round
// classification.
func (s *TheoryState) AddDisequality(a, b *Node) {
	s.diseqs.Append(s.env.NodeManager().MkNode(KindEqual, a, b))
}

// Disequalities returns the disequalities asserted so far, as equality terms.
func (s *TheoryState) Disequalities() []*Node { return s.diseqs.Slice() }

// NotifyInConflict latches the conflict node for the current decision level.
func (s *TheoryState) NotifyInConflict(conflict *Node) {
	if s.conflict.Get() != nil {
		// already in conflict
		return
	}
	s.conflict.Set(conflict)
}

// IsInConflict reports whether a conflict is latched.
func (s *TheoryState) IsInConflict() bool { return s.conflict.Get() != nil }

// Conflict returns the latched conflict node, or nil.
func (s *TheoryState) Conflict() *Node { return s.conflict.Get() }
