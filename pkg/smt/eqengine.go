package smt

import "fmt"

// EqNotify receives events from an equality engine. A handler must not throw
// or panic to signal inconsistency; it records a conflict in its own state
// and the conflict propagates through the standard conflict channel.
type EqNotify interface {
	// EqNotifyNewClass is called when a term is added as a singleton class.
	EqNotifyNewClass(t *Node)
	// EqNotifyMerge is called after the class of t2 is merged into the class
	// of t1.
	EqNotifyMerge(t1, t2 *Node)
	// EqNotifyDisequal is called when t1 and t2 are asserted disequal.
	EqNotifyDisequal(t1, t2, reason *Node)
	// EqNotifyConstantMerge is called when a merge would identify two
	// distinct constants. This is an immediate inconsistency.
	EqNotifyConstantMerge(t1, t2 *Node)
}

type eeTrailKind int

const (
	eeTrailAddTerm eeTrailKind = iota
	eeTrailMerge
	eeTrailDiseq
	eeTrailTrigger
)

type eeTrailEntry struct {
	kind eeTrailKind

	term *Node // eeTrailAddTerm, eeTrailTrigger

	// eeTrailMerge
	winner       *Node
	loser        *Node
	winnerOldLen int
	loserMembers []*Node
	oldConst     *Node // previous constant of the winner class

	// eeTrailTrigger
	tid TheoryID
}

// EqualityEngine maintains the congruence-free equivalence classes of a set
// of terms under asserted equalities and disequalities. Classes only merge
// within one decision level; popping the owning context reverts every merge,
// added term and disequality made in the popped level.
//
// The representative of a class prefers a constant member when one exists,
// and otherwise the earliest-added member, so representative choice is stable
// until the next merge touching the class.
type EqualityEngine struct {
	ctx    *Context
	name   string
	notify EqNotify

	rep      map[*Node]*Node   // term -> current representative
	classes  map[*Node][]*Node // representative -> members
	constant map[*Node]*Node   // representative -> constant member, if any
	order    map[*Node]int     // term -> insertion index
	terms    []*Node           // insertion order

	diseqs []eeDiseq // asserted disequalities
	eqs    []eeEq    // asserted equalities, for explanations

	triggers map[*Node]map[TheoryID]bool

	trail []eeTrailEntry
	saves []eeSave
}

type eeDiseq struct{ a, b, reason *Node }

type eeEq struct{ a, b, reason *Node }

type eeSave struct {
	level    int
	trailLen int
	termsLen int
	diseqLen int
	eqLen    int
}

// NewEqualityEngine creates an engine scoped to ctx. The notify handler may
// be nil.
func NewEqualityEngine(ctx *Context, name string, notify EqNotify) *EqualityEngine {
	ee := &EqualityEngine{
		ctx:      ctx,
		name:     name,
		notify:   notify,
		rep:      make(map[*Node]*Node),
		classes:  make(map[*Node][]*Node),
		constant: make(map[*Node]*Node),
		order:    make(map[*Node]int),
		triggers: make(map[*Node]map[TheoryID]bool),
	}
	ctx.register(ee)
	return ee
}

// Name returns the engine's diagnostic name.
func (ee *EqualityEngine) Name() string { return ee.name }

func (ee *EqualityEngine) checkpoint() {
	if n := len(ee.saves); n == 0 || ee.saves[n-1].level < ee.ctx.level {
		ee.saves = append(ee.saves, eeSave{
			level:    ee.ctx.level,
			trailLen: len(ee.trail),
			termsLen: len(ee.terms),
			diseqLen: len(ee.diseqs),
			eqLen:    len(ee.eqs),
		})
	}
}

// HasTerm reports whether t has been added to the engine.
func (ee *EqualityEngine) HasTerm(t *Node) bool {
	_, ok := ee.rep[t]
	return ok
}

// AddTerm adds t and its subterms to the engine, each as its own singleton
// class. Binder bodies are treated as opaque: the engine does not descend
// below a quantifier or lambda.
func (ee *EqualityEngine) AddTerm(t *Node) {
	if ee.HasTerm(t) {
		return
	}
	switch t.Kind() {
	case KindExists, KindForall, KindLambda, KindBoundVarList:
		// opaque below binders
	default:
		for _, c := range t.Children() {
			ee.AddTerm(c)
		}
	}
	ee.checkpoint()
	ee.rep[t] = t
	ee.classes[t] = []*Node{t}
	ee.order[t] = len(ee.terms)
	ee.terms = append(ee.terms, t)
	if isValueNode(t) {
		ee.constant[t] = t
	}
	ee.trail = append(ee.trail, eeTrailEntry{kind: eeTrailAddTerm, term: t})
	if ee.notify != nil {
		ee.notify.EqNotifyNewClass(t)
	}
}

// AddTriggerTerm marks t as a trigger term for the given theory, making it a
// care argument for the theory's care-graph computation.
func (ee *EqualityEngine) AddTriggerTerm(t *Node, id TheoryID) {
	ee.AddTerm(t)
	m, ok := ee.triggers[t]
	if !ok {
		m = make(map[TheoryID]bool)
		ee.triggers[t] = m
	}
	if m[id] {
		return
	}
	ee.checkpoint()
	m[id] = true
	ee.trail = append(ee.trail, eeTrailEntry{kind: eeTrailTrigger, term: t, tid: id})
}

// IsTriggerTerm reports whether t is a trigger term for the given theory.
func (ee *EqualityEngine) IsTriggerTerm(t *Node, id TheoryID) bool {
	m, ok := ee.triggers[t]
	return ok && m[id]
}

// Representative returns the current representative of t's class. The term
// must have been added.
func (ee *EqualityEngine) Representative(t *Node) *Node {
	r, ok := ee.rep[t]
	if !ok {
		panic(fmt.Sprintf("smt: %s: Representative of unknown term %s", ee.name, t))
	}
	return r
}

// AreEqual reports whether a and b are currently in the same class.
func (ee *EqualityEngine) AreEqual(a, b *Node) bool {
	if a == b {
		return true
	}
	ra, oka := ee.rep[a]
	rb, okb := ee.rep[b]
	return oka && okb && ra == rb
}

// AreDisequal reports whether a and b are currently known distinct: their
// classes hold distinct constants, or a disequality between the classes has
// been asserted.
func (ee *EqualityEngine) AreDisequal(a, b *Node) bool {
	ra, oka := ee.rep[a]
	rb, okb := ee.rep[b]
	if !oka || !okb || ra == rb {
		return false
	}
	ca, cb := ee.constant[ra], ee.constant[rb]
	if ca != nil && cb != nil && ca != cb {
		return true
	}
	for _, d := range ee.diseqs {
		da, db := ee.rep[d.a], ee.rep[d.b]
		if (da == ra && db == rb) || (da == rb && db == ra) {
			return true
		}
	}
	return false
}

// AssertEquality asserts a = b (polarity true) or a != b (polarity false)
// with the given reason term, adding the terms as needed.
func (ee *EqualityEngine) AssertEquality(a, b *Node, polarity bool, reason *Node) {
	ee.AddTerm(a)
	ee.AddTerm(b)
	if polarity {
		ee.merge(a, b, reason)
		return
	}
	ee.checkpoint()
	ee.diseqs = append(ee.diseqs, eeDiseq{a: a, b: b, reason: reason})
	ee.trail = append(ee.trail, eeTrailEntry{kind: eeTrailDiseq})
	if ee.notify != nil {
		ee.notify.EqNotifyDisequal(a, b, reason)
	}
}

// AssertPredicate asserts the Boolean term p with the given polarity, merging
// it with the corresponding Boolean constant.
func (ee *EqualityEngine) AssertPredicate(p *Node, polarity bool, reason *Node, nm *NodeManager) {
	if p.Kind() == KindEqual {
		ee.AssertEquality(p.Child(0), p.Child(1), polarity, reason)
		return
	}
	ee.AddTerm(p)
	val := nm.MkConstBool(polarity)
	ee.AddTerm(val)
	ee.merge(p, val, reason)
}

func (ee *EqualityEngine) merge(a, b *Node, reason *Node) {
	ra, rb := ee.rep[a], ee.rep[b]
	if ra == rb {
		return
	}
	// prefer a constant representative; otherwise the earliest-added one
	winner, loser := ra, rb
	switch {
	case ee.constant[rb] != nil && ee.constant[ra] == nil:
		winner, loser = rb, ra
	case ee.constant[ra] != nil && ee.constant[rb] == nil:
		// keep ra
	case ee.order[rb] < ee.order[ra]:
		winner, loser = rb, ra
	}
	cw, cl := ee.constant[winner], ee.constant[loser]
	ee.checkpoint()
	entry := eeTrailEntry{
		kind:         eeTrailMerge,
		winner:       winner,
		loser:        loser,
		winnerOldLen: len(ee.classes[winner]),
		loserMembers: ee.classes[loser],
		oldConst:     cw,
	}
	for _, m := range ee.classes[loser] {
		ee.rep[m] = winner
	}
	ee.classes[winner] = append(ee.classes[winner], ee.classes[loser]...)
	delete(ee.classes, loser)
	if cw == nil && cl != nil {
		ee.constant[winner] = cl
	}
	ee.trail = append(ee.trail, entry)
	ee.eqs = append(ee.eqs, eeEq{a: a, b: b, reason: reason})
	if ee.notify != nil {
		ee.notify.EqNotifyMerge(winner, loser)
		if cw != nil && cl != nil && cw != cl {
			ee.notify.EqNotifyConstantMerge(cw, cl)
		}
	}
}

// Classes returns the current class representatives in deterministic
// insertion order.
func (ee *EqualityEngine) Classes() []*Node {
	var reps []*Node
	for _, t := range ee.terms {
		if ee.rep[t] == t {
			reps = append(reps, t)
		}
	}
	return reps
}

// ClassMembers returns the members of the class represented by rep, in
// insertion order of their merges.
func (ee *EqualityEngine) ClassMembers(rep *Node) []*Node {
	return ee.classes[rep]
}

// Terms returns every term known to the engine, in insertion order.
func (ee *EqualityEngine) Terms() []*Node {
	return ee.terms
}

// ClassConstant returns the constant member of t's class, or nil.
func (ee *EqualityEngine) ClassConstant(t *Node) *Node {
	r, ok := ee.rep[t]
	if !ok {
		return nil
	}
	return ee.constant[r]
}

// Explain returns the conjunction of asserted reasons implying a = b, found
// by searching the graph of asserted equalities. Returns nil when a and b are
// not known equal.
func (ee *EqualityEngine) Explain(a, b *Node, nm *NodeManager) *Node {
	if a == b {
		return nm.True()
	}
	if !ee.AreEqual(a, b) {
		return nil
	}
	// breadth-first search over asserted equality edges
	type edge struct {
		to     *Node
		reason *Node
	}
	adj := make(map[*Node][]edge)
	for _, e := range ee.eqs {
		adj[e.a] = append(adj[e.a], edge{to: e.b, reason: e.reason})
		adj[e.b] = append(adj[e.b], edge{to: e.a, reason: e.reason})
	}
	prev := make(map[*Node]edge)
	visited := map[*Node]bool{a: true}
	queue := []*Node{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == b {
			break
		}
		for _, e := range adj[cur] {
			if visited[e.to] {
				continue
			}
			visited[e.to] = true
			prev[e.to] = edge{to: cur, reason: e.reason}
			queue = append(queue, e.to)
		}
	}
	if !visited[b] {
		return nil
	}
	var reasons []*Node
	for cur := b; cur != a; cur = prev[cur].to {
		if r := prev[cur].reason; r != nil {
			reasons = append(reasons, r)
		}
	}
	return nm.MkAnd(reasons)
}

func (ee *EqualityEngine) restore(level int) {
	for n := len(ee.saves); n > 0 && ee.saves[n-1].level >= level; n = len(ee.saves) {
		s := ee.saves[n-1]
		for i := len(ee.trail) - 1; i >= s.trailLen; i-- {
			ee.undo(ee.trail[i])
		}
		ee.trail = ee.trail[:s.trailLen]
		ee.terms = ee.terms[:s.termsLen]
		ee.diseqs = ee.diseqs[:s.diseqLen]
		ee.eqs = ee.eqs[:s.eqLen]
		ee.saves = ee.saves[:n-1]
	}
}

func (ee *EqualityEngine) undo(e eeTrailEntry) {
	switch e.kind {
	case eeTrailAddTerm:
		delete(ee.rep, e.term)
		delete(ee.classes, e.term)
		delete(ee.order, e.term)
		delete(ee.constant, e.term)
	case eeTrailMerge:
		ee.classes[e.winner] = ee.classes[e.winner][:e.winnerOldLen]
		ee.classes[e.loser] = e.loserMembers
		for _, m := range e.loserMembers {
			ee.rep[m] = e.loser
		}
		if e.oldConst != nil {
			ee.constant[e.winner] = e.oldConst
		} else {
			delete(ee.constant, e.winner)
		}
	case eeTrailDiseq:
		// length restored by the caller
	case eeTrailTrigger:
		delete(ee.triggers[e.term], e.tid)
	}
}
