package smt

import (
	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
	"go.uber.org/zap"
)

// PropEngine is the propositional core of the solver. Input formulas are
// clausified with a Tseitin transformation over a dictionary that maps
// theory atoms to SAT literals, and the underlying SAT engine decides the
// propositional abstraction. Theory atoms are everything the Boolean
// connectives cannot see into: equalities over non-Boolean terms,
// arithmetic predicates, applications and Boolean variables.
//
// Clauses are only ever added, never retracted. Refinement works by
// learning: a theory conflict over an assignment becomes a clause that
// excludes that assignment in every later round.
type PropEngine struct {
	env *Env
	log *zap.Logger
	g   *gini.Gini

	nvars   int
	trueLit z.Lit

	atomLit  map[*Node]z.Lit
	litCache map[*Node]z.Lit
	atoms    []*Node

	lastRes int
}

// NewPropEngine creates a propositional engine over a fresh SAT instance.
func NewPropEngine(env *Env) *PropEngine {
	pe := &PropEngine{
		env:      env,
		log:      env.Logger("prop"),
		g:        gini.New(),
		atomLit:  make(map[*Node]z.Lit),
		litCache: make(map[*Node]z.Lit),
	}
	// reserved literal forced true, used for constant folding leftovers
	pe.trueLit = pe.freshLit()
	pe.g.Add(pe.trueLit)
	pe.g.Add(z.LitNull)
	return pe
}

func (pe *PropEngine) freshLit() z.Lit {
	pe.nvars++
	return z.Var(pe.nvars).Pos()
}

// isPropAtom reports whether n is opaque to the Boolean layer.
func isPropAtom(n *Node) bool {
	switch n.Kind() {
	case KindNot, KindAnd, KindOr, KindImplies, KindConstBool:
		return false
	case KindEqual, KindIte:
		// Boolean equality and Boolean ite stay in the propositional layer
		return !n.Child(0).Type().IsBool()
	}
	return true
}

// litForAtom returns the dictionary literal for a theory atom, allocating
// one on first sight and recording the atom in registration order.
func (pe *PropEngine) litForAtom(n *Node) z.Lit {
	if l, ok := pe.atomLit[n]; ok {
		return l
	}
	l := pe.freshLit()
	pe.atomLit[n] = l
	pe.atoms = append(pe.atoms, n)
	return l
}

// encode clausifies n and returns a literal equisatisfiable with it.
func (pe *PropEngine) encode(n *Node) z.Lit {
	if l, ok := pe.litCache[n]; ok {
		return l
	}
	var l z.Lit
	switch n.Kind() {
	case KindConstBool:
		if n.BoolValue() {
			l = pe.trueLit
		} else {
			l = pe.trueLit.Not()
		}
	case KindNot:
		l = pe.encode(n.Child(0)).Not()
	case KindAnd:
		l = pe.freshLit()
		cls := []z.Lit{l}
		for i := 0; i < n.NumChildren(); i++ {
			lc := pe.encode(n.Child(i))
			pe.addClause(l.Not(), lc)
			cls = append(cls, lc.Not())
		}
		pe.addClause(cls...)
	case KindOr:
		l = pe.freshLit()
		cls := []z.Lit{l.Not()}
		for i := 0; i < n.NumChildren(); i++ {
			lc := pe.encode(n.Child(i))
			pe.addClause(l, lc.Not())
			cls = append(cls, lc)
		}
		pe.addClause(cls...)
	case KindImplies:
		la := pe.encode(n.Child(0))
		lb := pe.encode(n.Child(1))
		l = pe.freshLit()
		pe.addClause(l.Not(), la.Not(), lb)
		pe.addClause(l, la)
		pe.addClause(l, lb.Not())
	case KindEqual:
		if !n.Child(0).Type().IsBool() {
			l = pe.litForAtom(n)
			break
		}
		la := pe.encode(n.Child(0))
		lb := pe.encode(n.Child(1))
		l = pe.freshLit()
		pe.addClause(l.Not(), la.Not(), lb)
		pe.addClause(l.Not(), la, lb.Not())
		pe.addClause(l, la, lb)
		pe.addClause(l, la.Not(), lb.Not())
	case KindIte:
		if !n.Child(0).Type().IsBool() || !n.Type().IsBool() {
			l = pe.litForAtom(n)
			break
		}
		lc := pe.encode(n.Child(0))
		la := pe.encode(n.Child(1))
		lb := pe.encode(n.Child(2))
		l = pe.freshLit()
		pe.addClause(l.Not(), lc.Not(), la)
		pe.addClause(l.Not(), lc, lb)
		pe.addClause(l, lc.Not(), la.Not())
		pe.addClause(l, lc, lb.Not())
	default:
		l = pe.litForAtom(n)
	}
	pe.litCache[n] = l
	return l
}

func (pe *PropEngine) addClause(lits ...z.Lit) {
	for _, l := range lits {
		pe.g.Add(l)
	}
	pe.g.Add(z.LitNull)
}

// AssertFormula clausifies n and asserts it as a unit.
func (pe *PropEngine) AssertFormula(n *Node) {
	pe.addClause(pe.encode(n))
}

// AddLemma asserts a learned clause-level formula. Lemmas are permanent;
// the SAT engine never forgets them across rounds.
func (pe *PropEngine) AddLemma(n *Node) {
	pe.log.Debug("add lemma", zap.Stringer("node", n))
	pe.addClause(pe.encode(n))
}

// Solve runs the SAT engine. The result is 1 for satisfiable, -1 for
// unsatisfiable and 0 when the resource budget ran out before a verdict.
func (pe *PropEngine) Solve() int {
	rm := pe.env.ResourceManager()
	rm.Spend(1)
	if rm.Out() {
		pe.lastRes = 0
		return 0
	}
	pe.lastRes = pe.g.Solve()
	return pe.lastRes
}

// HasValue reports whether the atom has a dictionary literal, meaning the
// last satisfying assignment determines it.
func (pe *PropEngine) HasValue(atom *Node) bool {
	_, ok := pe.atomLit[atom]
	return ok && pe.lastRes == 1
}

// Value returns the truth value the last satisfying assignment gives the
// atom. Only meaningful after Solve returned 1 and HasValue holds.
func (pe *PropEngine) Value(atom *Node) bool {
	return pe.g.Value(pe.atomLit[atom])
}

// AssignedAtoms returns every dictionary atom in registration order paired
// with its value under the last satisfying assignment. It is empty unless
// the last Solve was satisfiable.
func (pe *PropEngine) AssignedAtoms() []AssignedAtom {
	if pe.lastRes != 1 {
		return nil
	}
	out := make([]AssignedAtom, 0, len(pe.atoms))
	for _, a := range pe.atoms {
		out = append(out, AssignedAtom{Atom: a, Value: pe.g.Value(pe.atomLit[a])})
	}
	return out
}

// AssignedAtom is one theory atom and its propositional assignment.
type AssignedAtom struct {
	Atom  *Node
	Value bool
}

// BooleanVariables returns the Boolean variables registered as atoms, in
// registration order. Model construction uses these to give every Boolean
// variable a value even when nothing constrained it.
func (pe *PropEngine) BooleanVariables() []*Node {
	var out []*Node
	for _, a := range pe.atoms {
		if a.Kind() == KindVar && a.Type().IsBool() {
			out = append(out, a)
		}
	}
	return out
}
