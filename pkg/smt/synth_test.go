package smt

import "testing"

func newTestSynth() (*NodeManager, *Env, *SynthEngine) {
	nm := NewNodeManager()
	env := NewEnv(nm, DefaultOptions())
	return nm, env, NewSynthEngine(env)
}

// TestSynthWitnessExtraction tests turning defining equations into lambdas.
func TestSynthWitnessExtraction(t *testing.T) {
	t.Run("flipped orientation", func(t *testing.T) {
		nm, _, sy := newTestSynth()
		f := nm.MkVar("f", nm.FunType([]*Type{nm.IntType()}, nm.IntType()))
		x := nm.MkVar("x", nm.IntType())
		// rhs = f(x), definition read right to left
		c := nm.MkEqual(nm.MkNode(KindAdd, x, nm.MkInt(1)), nm.MkNode(KindApplyUF, f, x))
		sy.RegisterConjecture(c, []*Node{f}, []*Node{c}, []*Node{x})

		sol := make(map[*Node]*Node)
		if !sy.GetSynthSolutions(sol) {
			t.Fatal("expected a solution")
		}
		if sol[f].Kind() != KindLambda {
			t.Errorf("witness is %v, want a lambda", sol[f])
		}
	})

	t.Run("recursive definition rejected", func(t *testing.T) {
		nm, _, sy := newTestSynth()
		f := nm.MkVar("f", nm.FunType([]*Type{nm.IntType()}, nm.IntType()))
		x := nm.MkVar("x", nm.IntType())
		app := nm.MkNode(KindApplyUF, f, x)
		// f(x) = f(x) + 1 has no witness
		c := nm.MkEqual(app, nm.MkNode(KindAdd, app, nm.MkInt(1)))
		sy.RegisterConjecture(c, []*Node{f}, []*Node{c}, []*Node{x})

		sol := make(map[*Node]*Node)
		if sy.GetSynthSolutions(sol) {
			t.Errorf("recursive definition yielded %v", sol[f])
		}
	})

	t.Run("free symbol outside arguments rejected", func(t *testing.T) {
		nm, _, sy := newTestSynth()
		f := nm.MkVar("f", nm.FunType([]*Type{nm.IntType()}, nm.IntType()))
		x := nm.MkVar("x", nm.IntType())
		y := nm.MkVar("y", nm.IntType())
		// rhs mentions y, which is not an argument of the application
		c := nm.MkEqual(nm.MkNode(KindApplyUF, f, x), y)
		sy.RegisterConjecture(c, []*Node{f}, []*Node{c}, []*Node{x, y})

		sol := make(map[*Node]*Node)
		if sy.GetSynthSolutions(sol) {
			t.Errorf("underdetermined definition yielded %v", sol[f])
		}
	})

	t.Run("nullary target with free variable rejected", func(t *testing.T) {
		nm, _, sy := newTestSynth()
		f := nm.MkVar("f", nm.IntType())
		x := nm.MkVar("x", nm.IntType())
		// f = x pins f to a universal variable; substituting it back turns
		// the constraint into x = x, so the witness must be refused
		c := nm.MkEqual(f, x)
		sy.RegisterConjecture(c, []*Node{f}, []*Node{c}, []*Node{x})

		sol := make(map[*Node]*Node)
		if sy.GetSynthSolutions(sol) {
			t.Errorf("open definition yielded %v", sol[f])
		}
	})

	t.Run("nullary target", func(t *testing.T) {
		nm, _, sy := newTestSynth()
		g := nm.MkVar("g", nm.IntType())
		c := nm.MkEqual(g, nm.MkInt(7))
		sy.RegisterConjecture(c, []*Node{g}, []*Node{c}, nil)

		sol := make(map[*Node]*Node)
		if !sy.GetSynthSolutions(sol) {
			t.Fatal("expected a solution")
		}
		if sol[g] != nm.MkInt(7) {
			t.Errorf("witness is %v, want 7", sol[g])
		}
	})
}

// TestSynthVerificationRejects tests that a candidate contradicting another
// constraint is dropped.
func TestSynthVerificationRejects(t *testing.T) {
	nm, _, sy := newTestSynth()
	f := nm.MkVar("f", nm.FunType([]*Type{nm.IntType()}, nm.IntType()))
	x := nm.MkVar("x", nm.IntType())
	app := nm.MkNode(KindApplyUF, f, x)
	def := nm.MkEqual(app, nm.MkNode(KindAdd, x, nm.MkInt(1)))
	// f(0) = 5 contradicts f = successor
	clash := nm.MkEqual(nm.MkNode(KindApplyUF, f, nm.MkInt(0)), nm.MkInt(5))
	sy.RegisterConjecture(def, []*Node{f}, []*Node{def, clash}, []*Node{x})

	sol := make(map[*Node]*Node)
	if sy.GetSynthSolutions(sol) {
		t.Errorf("contradictory constraints yielded %v", sol[f])
	}
}
