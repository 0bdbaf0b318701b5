package smt

import "testing"

func newTestModelManager(opts *Options) (*NodeManager, *Env, *PropEngine, *ModelManager) {
	nm := NewNodeManager()
	if opts == nil {
		opts = DefaultOptions()
	}
	env := NewEnv(nm, opts)
	eem := NewEqEngineManager(env)
	prop := NewPropEngine(env)
	mm := NewModelManager(env, eem)
	mm.FinishInit(nil, prop)
	return nm, env, prop, mm
}

// TestModelDefaultedBoolean tests that an unconstrained Boolean variable is
// defaulted to false and that the default is distinguishable from an
// engine-assigned false.
func TestModelDefaultedBoolean(t *testing.T) {
	t.Run("unvalued variable defaults", func(t *testing.T) {
		nm, _, prop, mm := newTestModelManager(nil)
		p := nm.MkVar("p", nm.BoolType())
		prop.AssertFormula(nm.MkOr([]*Node{p, nm.MkNode(KindNot, p)}))

		// no solve ran, so the engine has no value for p
		if !mm.BuildModel() {
			t.Fatal("build should succeed")
		}
		m := mm.GetModel()
		if m == nil {
			t.Fatal("model should be available")
		}
		if got := m.GetValue(p); got != nm.False() {
			t.Errorf("defaulted value is %v, want false", got)
		}
		if !m.IsDefaultedBoolean(p) {
			t.Error("p should be annotated as defaulted")
		}
	})

	t.Run("assigned variable is not defaulted", func(t *testing.T) {
		nm, _, prop, mm := newTestModelManager(nil)
		p := nm.MkVar("p", nm.BoolType())
		prop.AssertFormula(p)
		if prop.Solve() != 1 {
			t.Fatal("p should be satisfiable")
		}
		if !mm.BuildModel() {
			t.Fatal("build should succeed")
		}
		m := mm.GetModel()
		if got := m.GetValue(p); got != nm.True() {
			t.Errorf("value is %v, want true", got)
		}
		if m.IsDefaultedBoolean(p) {
			t.Error("p was assigned, not defaulted")
		}
	})
}

// TestModelDistinctIntegers tests that distinct unconstrained classes of
// integer type receive distinct values.
func TestModelDistinctIntegers(t *testing.T) {
	nm, _, _, mm := newTestModelManager(nil)
	x := nm.MkVar("x", nm.IntType())
	y := nm.MkVar("y", nm.IntType())
	central := mm.eem.CentralEqualityEngine()
	central.AddTerm(x)
	central.AddTerm(y)

	if !mm.BuildModel() {
		t.Fatal("build should succeed")
	}
	m := mm.GetModel()
	xv, yv := m.GetValue(x), m.GetValue(y)
	if xv.Kind() != KindConstInt || yv.Kind() != KindConstInt {
		t.Fatalf("expected integer constants, got %v and %v", xv, yv)
	}
	if xv == yv {
		t.Errorf("distinct classes share the value %v", xv)
	}
}

// TestModelMergedClassesShareValue tests that equated terms evaluate to the
// same constant.
func TestModelMergedClassesShareValue(t *testing.T) {
	nm, _, _, mm := newTestModelManager(nil)
	x := nm.MkVar("x", nm.IntType())
	y := nm.MkVar("y", nm.IntType())
	central := mm.eem.CentralEqualityEngine()
	central.AddTerm(x)
	central.AddTerm(y)
	central.AssertPredicate(nm.MkEqual(x, y), true, nm.True(), nm)

	if !mm.BuildModel() {
		t.Fatal("build should succeed")
	}
	m := mm.GetModel()
	if m.GetValue(x) != m.GetValue(y) {
		t.Errorf("merged terms evaluate to %v and %v", m.GetValue(x), m.GetValue(y))
	}
}

// TestModelLifecycle tests the build state machine.
func TestModelLifecycle(t *testing.T) {
	nm, _, _, mm := newTestModelManager(nil)
	x := nm.MkVar("x", nm.IntType())
	mm.eem.CentralEqualityEngine().AddTerm(x)

	if mm.IsModelBuilt() {
		t.Error("no model before the first build")
	}
	if mm.GetModel() != nil {
		t.Error("GetModel should be nil before the first build")
	}
	if !mm.BuildModel() {
		t.Fatal("build should succeed")
	}
	if !mm.IsModelBuilt() {
		t.Error("model should be marked built")
	}

	// a second build within the round is a no-op
	if !mm.BuildModel() {
		t.Error("rebuild within the round should reuse the cached result")
	}

	mm.ResetModel()
	if mm.IsModelBuilt() || mm.GetModel() != nil {
		t.Error("reset should invalidate the model")
	}
}

// TestModelFunctionValues tests that the quantified builder assigns total
// values to function symbols during post-processing.
func TestModelFunctionValues(t *testing.T) {
	opts := DefaultOptions()
	opts.Quantified = true
	nm, _, _, mm := newTestModelManager(opts)

	f := nm.MkVar("f", nm.FunType([]*Type{nm.IntType()}, nm.IntType()))
	mm.eem.CentralEqualityEngine().AddTerm(f)

	if !mm.BuildModel() {
		t.Fatal("build should succeed")
	}
	mm.PostProcessModel()
	m := mm.GetModel()
	fv := m.GetValue(f)
	if fv.Kind() != KindLambda {
		t.Errorf("function value is %v, want a lambda", fv)
	}
}
