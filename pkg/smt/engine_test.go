package smt

import "testing"

func newTestSolver(t *testing.T) (*NodeManager, *SolverEngine) {
	t.Helper()
	nm := NewNodeManager()
	se, err := NewSolverEngine(nm, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return nm, se
}

// TestSolverBasic tests trivially decidable inputs.
func TestSolverBasic(t *testing.T) {
	t.Run("boolean variable", func(t *testing.T) {
		nm, se := newTestSolver(t)
		p := nm.MkVar("p", nm.BoolType())
		if err := se.AssertFormula(p); err != nil {
			t.Fatal(err)
		}
		res, err := se.CheckSat()
		if err != nil {
			t.Fatal(err)
		}
		if res.Status != StatusSat {
			t.Fatalf("expected sat, got %v", res.Status)
		}
		v, err := se.GetValue(p)
		if err != nil {
			t.Fatal(err)
		}
		if v != nm.True() {
			t.Errorf("p evaluates to %v, want true", v)
		}
	})

	t.Run("false by rewriting", func(t *testing.T) {
		nm, se := newTestSolver(t)
		if err := se.AssertFormula(nm.MkEqual(nm.MkInt(1), nm.MkInt(2))); err != nil {
			t.Fatal(err)
		}
		res, err := se.CheckSat()
		if err != nil {
			t.Fatal(err)
		}
		if res.Status != StatusUnsat {
			t.Errorf("expected unsat, got %v", res.Status)
		}
	})

	t.Run("conflicting constants", func(t *testing.T) {
		nm, se := newTestSolver(t)
		x := nm.MkVar("x", nm.IntType())
		se.AssertFormula(nm.MkEqual(x, nm.MkInt(1)))
		se.AssertFormula(nm.MkEqual(x, nm.MkInt(2)))
		res, err := se.CheckSat()
		if err != nil {
			t.Fatal(err)
		}
		if res.Status != StatusUnsat {
			t.Errorf("expected unsat, got %v", res.Status)
		}
	})

	t.Run("no model before check", func(t *testing.T) {
		nm, se := newTestSolver(t)
		if _, err := se.GetValue(nm.MkInt(1)); !IsInternalError(err) {
			t.Errorf("expected internal error, got %v", err)
		}
	})
}

// TestSolverPushPop tests user-level scoping of assertions.
func TestSolverPushPop(t *testing.T) {
	nm, se := newTestSolver(t)
	p := nm.MkVar("p", nm.BoolType())
	if err := se.AssertFormula(p); err != nil {
		t.Fatal(err)
	}

	se.Push()
	if err := se.AssertFormula(nm.MkNode(KindNot, p)); err != nil {
		t.Fatal(err)
	}
	res, err := se.CheckSat()
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusUnsat {
		t.Fatalf("expected unsat inside the scope, got %v", res.Status)
	}

	se.Pop()
	if got := len(se.Assertions()); got != 1 {
		t.Fatalf("expected 1 surviving assertion, got %d", got)
	}
	res, err = se.CheckSat()
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusSat {
		t.Errorf("expected sat after pop, got %v", res.Status)
	}
}

// TestSolverDefineFunction tests definition expansion in assertions.
func TestSolverDefineFunction(t *testing.T) {
	nm, se := newTestSolver(t)
	f := nm.MkVar("f", nm.FunType([]*Type{nm.IntType()}, nm.IntType()))
	w := nm.MkBoundVar("w", nm.IntType())
	// f(w) := w + 1
	if err := se.DefineFunction(f, []*Node{w}, nm.MkNode(KindAdd, w, nm.MkInt(1))); err != nil {
		t.Fatal(err)
	}

	app := nm.MkNode(KindApplyUF, f, nm.MkInt(2))
	if err := se.AssertFormula(nm.MkEqual(app, nm.MkInt(3))); err != nil {
		t.Fatal(err)
	}
	res, err := se.CheckSat()
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusSat {
		t.Fatalf("expected sat, got %v", res.Status)
	}

	se.Push()
	if err := se.AssertFormula(nm.MkEqual(app, nm.MkInt(4))); err != nil {
		t.Fatal(err)
	}
	res, err = se.CheckSat()
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusUnsat {
		t.Errorf("f(2) cannot be both 3 and 4, got %v", res.Status)
	}
	se.Pop()
}

// TestSolverSubsolver tests isolation between a solver and its subsolvers.
func TestSolverSubsolver(t *testing.T) {
	nm, se := newTestSolver(t)
	p := nm.MkVar("p", nm.BoolType())
	f := nm.MkVar("c", nm.IntType())
	if err := se.DefineFunction(f, nil, nm.MkInt(5)); err != nil {
		t.Fatal(err)
	}
	if err := se.AssertFormula(p); err != nil {
		t.Fatal(err)
	}

	sub, err := se.Subsolver()
	if err != nil {
		t.Fatal(err)
	}
	if got := len(sub.Assertions()); got != 0 {
		t.Errorf("subsolver should start without assertions, got %d", got)
	}
	if got := len(sub.Definitions()); got != 1 {
		t.Errorf("subsolver should inherit definitions, got %d", got)
	}

	// the definition expands in the subsolver
	if err := sub.AssertFormula(nm.MkEqual(f, nm.MkInt(6))); err != nil {
		t.Fatal(err)
	}
	res, err := sub.CheckSat()
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusUnsat {
		t.Errorf("c = 6 contradicts c := 5, got %v", res.Status)
	}

	// the parent is untouched
	if got := len(se.Assertions()); got != 1 {
		t.Errorf("parent should still have 1 assertion, got %d", got)
	}
	res, err = se.CheckSat()
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusSat {
		t.Errorf("parent should stay sat, got %v", res.Status)
	}
}

// TestSolverTheoryLearning tests that a theory conflict turns into a learned
// clause rather than an immediate answer when other assignments remain.
func TestSolverTheoryLearning(t *testing.T) {
	nm, se := newTestSolver(t)
	p := nm.MkVar("p", nm.BoolType())
	x := nm.MkVar("x", nm.IntType())
	one := nm.MkEqual(x, nm.MkInt(1))
	two := nm.MkEqual(x, nm.MkInt(2))
	// p selects which constant x equals; only one branch is consistent with
	// the extra disequality below
	se.AssertFormula(nm.MkNode(KindIte, p, one, two))
	se.AssertFormula(nm.MkNode(KindNot, two))

	res, err := se.CheckSat()
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusSat {
		t.Fatalf("expected sat, got %v (%s)", res.Status, res.Reason)
	}
	pv, err := se.GetValue(p)
	if err != nil {
		t.Fatal(err)
	}
	if pv != nm.True() {
		t.Errorf("p must be true to avoid x = 2, got %v", pv)
	}
}
