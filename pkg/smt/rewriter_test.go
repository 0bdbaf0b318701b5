package smt

import "testing"

func newTestRewriter() (*NodeManager, *Rewriter) {
	nm := NewNodeManager()
	return nm, NewRewriter(nm)
}

// TestRewriteIdempotence tests that rewriting is idempotent over a mix of
// term shapes.
func TestRewriteIdempotence(t *testing.T) {
	nm, rw := newTestRewriter()
	x := nm.MkVar("x", nm.IntType())
	b := nm.MkVar("b", nm.BagType(nm.IntType()))

	terms := []*Node{
		nm.MkNode(KindNot, nm.MkNode(KindNot, nm.MkVar("p", nm.BoolType()))),
		nm.MkNode(KindAdd, x, nm.MkInt(1), nm.MkInt(2)),
		nm.MkNode(KindBagCount, x, nm.MkNode(KindBagMake, x, nm.MkInt(3))),
		nm.MkNode(KindBagCount, nm.MkInt(5), b),
		nm.MkNode(KindIte, nm.True(), x, nm.MkInt(0)),
	}
	for _, n := range terms {
		once := rw.Rewrite(n)
		twice := rw.Rewrite(once)
		if once != twice {
			t.Errorf("rewrite not idempotent on %v: %v vs %v", n, once, twice)
		}
	}
}

// TestRewriteBoolean tests Boolean folding.
func TestRewriteBoolean(t *testing.T) {
	nm, rw := newTestRewriter()
	p := nm.MkVar("p", nm.BoolType())

	if got := rw.Rewrite(nm.MkNode(KindNot, nm.True())); got != nm.False() {
		t.Errorf("not true => %v", got)
	}
	if got := rw.Rewrite(nm.MkAnd([]*Node{p, nm.False()})); got != nm.False() {
		t.Errorf("and with false => %v", got)
	}
	if got := rw.Rewrite(nm.MkOr([]*Node{p, nm.True()})); got != nm.True() {
		t.Errorf("or with true => %v", got)
	}
	if got := rw.Rewrite(nm.MkNode(KindImplies, nm.False(), p)); got != nm.True() {
		t.Errorf("false implies p => %v", got)
	}
	if got := rw.Rewrite(nm.MkNode(KindNot, nm.MkNode(KindNot, p))); got != p {
		t.Errorf("double negation => %v", got)
	}
}

// TestRewriteEquality tests equality folding over values.
func TestRewriteEquality(t *testing.T) {
	nm, rw := newTestRewriter()
	x := nm.MkVar("x", nm.IntType())

	if got := rw.Rewrite(nm.MkNode(KindEqual, x, x)); got != nm.True() {
		t.Errorf("x = x => %v", got)
	}
	if got := rw.Rewrite(nm.MkNode(KindEqual, nm.MkInt(1), nm.MkInt(2))); got != nm.False() {
		t.Errorf("1 = 2 => %v", got)
	}
	eq := rw.Rewrite(nm.MkNode(KindEqual, x, nm.MkInt(1)))
	if eq.Kind() != KindEqual {
		t.Errorf("x = 1 should stay an equality, got %v", eq)
	}
}

// TestRewriteArith tests integer constant folding.
func TestRewriteArith(t *testing.T) {
	nm, rw := newTestRewriter()
	if got := rw.Rewrite(nm.MkNode(KindAdd, nm.MkInt(2), nm.MkInt(3))); got != nm.MkInt(5) {
		t.Errorf("2 + 3 => %v", got)
	}
	if got := rw.Rewrite(nm.MkNode(KindGeq, nm.MkInt(3), nm.MkInt(2))); got != nm.True() {
		t.Errorf("3 >= 2 => %v", got)
	}
	if got := rw.Rewrite(nm.MkNode(KindLeq, nm.MkInt(3), nm.MkInt(2))); got != nm.False() {
		t.Errorf("3 <= 2 => %v", got)
	}
}

// TestRewriteBagCount tests multiplicity evaluation.
func TestRewriteBagCount(t *testing.T) {
	nm, rw := newTestRewriter()
	intBag := nm.BagType(nm.IntType())
	seven := nm.MkInt(7)

	t.Run("count in empty bag", func(t *testing.T) {
		got := rw.Rewrite(nm.MkNode(KindBagCount, seven, nm.MkEmptyBag(intBag)))
		if got != nm.MkInt(0) {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("count of the made element", func(t *testing.T) {
		bag := nm.MkNode(KindBagMake, seven, nm.MkInt(2))
		got := rw.Rewrite(nm.MkNode(KindBagCount, seven, bag))
		if got != nm.MkInt(2) {
			t.Errorf("expected 2, got %v", got)
		}
	})

	t.Run("count of a different value", func(t *testing.T) {
		bag := nm.MkNode(KindBagMake, seven, nm.MkInt(2))
		got := rw.Rewrite(nm.MkNode(KindBagCount, nm.MkInt(8), bag))
		if got != nm.MkInt(0) {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("count distributes over disjoint union", func(t *testing.T) {
		a := nm.MkNode(KindBagMake, seven, nm.MkInt(2))
		b := nm.MkNode(KindBagMake, seven, nm.MkInt(3))
		got := rw.Rewrite(nm.MkNode(KindBagCount, seven, nm.MkNode(KindBagUnionDisjoint, a, b)))
		if got != nm.MkInt(5) {
			t.Errorf("expected 5, got %v", got)
		}
	})

	t.Run("nonpositive multiplicity is the empty bag", func(t *testing.T) {
		got := rw.Rewrite(nm.MkNode(KindBagMake, seven, nm.MkInt(0)))
		if got.Kind() != KindBagEmpty {
			t.Errorf("expected empty bag, got %v", got)
		}
	})
}

// TestRewriteBetaReduction tests application of a lambda.
func TestRewriteBetaReduction(t *testing.T) {
	nm, rw := newTestRewriter()
	w := nm.MkBoundVar("w", nm.IntType())
	bvl := nm.MkNode(KindBoundVarList, w)
	incr := nm.MkNode(KindLambda, bvl, nm.MkNode(KindAdd, w, nm.MkInt(1)))

	got := rw.Rewrite(nm.MkNode(KindApplyUF, incr, nm.MkInt(4)))
	if got != nm.MkInt(5) {
		t.Errorf("(lambda w. w+1) 4 => %v", got)
	}

	x := nm.MkVar("x", nm.IntType())
	got = rw.Rewrite(nm.MkNode(KindApplyUF, incr, x))
	if got.Kind() != KindAdd {
		t.Errorf("(lambda w. w+1) x => %v", got)
	}
}
