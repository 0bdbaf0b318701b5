package smt

import (
	"fmt"

	"go.uber.org/zap"
)

// SynthEngine searches for witness terms for the functions of a registered
// synthesis conjecture. The search is definitional: a constraint of the
// shape f(args) = rhs, with every free symbol of rhs among the argument
// variables, pins f down to the lambda built from rhs; the candidate is
// kept only when substituting it makes every remaining constraint rewrite
// to a tautology.
type SynthEngine struct {
	env *Env
	log *zap.Logger

	conj        *Node
	funs        []*Node
	constraints []*Node
	vars        []*Node
}

// NewSynthEngine creates an engine with no registered conjecture.
func NewSynthEngine(env *Env) *SynthEngine {
	return &SynthEngine{env: env, log: env.Logger("synth")}
}

// RegisterConjecture installs the conjecture the next solution extraction
// works on, with the functions to synthesize, the constraint bodies and the
// declared variables they range over.
func (s *SynthEngine) RegisterConjecture(conj *Node, funs, constraints, vars []*Node) {
	s.conj = conj
	s.funs = append([]*Node(nil), funs...)
	s.constraints = append([]*Node(nil), constraints...)
	s.vars = append([]*Node(nil), vars...)
}

// HasConjecture reports whether a conjecture is registered.
func (s *SynthEngine) HasConjecture() bool { return s.conj != nil }

// GetSynthSolutions fills sol with a witness term per registered function
// and reports whether a full, verified solution was found.
func (s *SynthEngine) GetSynthSolutions(sol map[*Node]*Node) bool {
	if len(s.funs) == 0 {
		return false
	}
	candidates := make(map[*Node]*Node)
	for _, f := range s.funs {
		w := s.extractWitness(f)
		if w == nil {
			s.log.Debug("no witness", zap.String("fun", f.Name()))
			return false
		}
		candidates[f] = w
	}
	if !s.verify(candidates) {
		return false
	}
	for f, w := range candidates {
		sol[f] = w
	}
	return true
}

// extractWitness looks for a defining constraint for f and turns it into a
// lambda, or returns nil when no constraint defines f.
func (s *SynthEngine) extractWitness(f *Node) *Node {
	for _, c := range s.constraints {
		if c.Kind() != KindEqual {
			continue
		}
		for _, flip := range []bool{false, true} {
			lhs, rhs := c.Child(0), c.Child(1)
			if flip {
				lhs, rhs = rhs, lhs
			}
			if w := s.witnessFromDefinition(f, lhs, rhs); w != nil {
				return w
			}
		}
	}
	// a nullary target defined by f = rhs is covered above; a function
	// target mentioned nowhere has no defining constraint here
	return nil
}

// witnessFromDefinition builds the lambda for f from a candidate defining
// equation lhs = rhs, or returns nil when the equation does not define f.
func (s *SynthEngine) witnessFromDefinition(f, lhs, rhs *Node) *Node {
	nm := s.env.NodeManager()
	if !f.Type().IsFun() {
		if lhs != f || containsSubterm(rhs, f) {
			return nil
		}
		free := make(map[*Node]bool)
		FreeSymbols(rhs, free)
		for sym := range free {
			if sym.Kind() == KindVar {
				return nil
			}
		}
		return rhs
	}
	if lhs.Kind() != KindApplyUF || lhs.Child(0) != f {
		return nil
	}
	args := lhs.Children()[1:]
	seen := make(map[*Node]bool)
	for _, a := range args {
		if a.Kind() != KindVar && a.Kind() != KindBoundVar {
			return nil
		}
		if seen[a] {
			return nil
		}
		seen[a] = true
	}
	if containsSubterm(rhs, f) {
		return nil
	}
	free := make(map[*Node]bool)
	FreeSymbols(rhs, free)
	for sym := range free {
		if sym.Kind() == KindVar && !seen[sym] {
			return nil
		}
	}

	formals := make([]*Node, len(args))
	subs := make(map[*Node]*Node, len(args))
	for i, a := range args {
		formals[i] = nm.MkBoundVar(fmt.Sprintf("_w%d", i), a.Type())
		subs[a] = formals[i]
	}
	bvl := nm.MkNode(KindBoundVarList, formals...)
	return nm.MkNode(KindLambda, bvl, Substitute(nm, rhs, subs))
}

// verify checks that substituting the candidates turns every constraint
// into a tautology under rewriting.
func (s *SynthEngine) verify(candidates map[*Node]*Node) bool {
	nm := s.env.NodeManager()
	for _, c := range s.constraints {
		r := s.env.Rewrite(Substitute(nm, c, candidates))
		if r.Kind() != KindConstBool || !r.BoolValue() {
			s.log.Debug("candidate fails constraint", zap.Stringer("constraint", c),
				zap.Stringer("residual", r))
			return false
		}
	}
	return true
}
