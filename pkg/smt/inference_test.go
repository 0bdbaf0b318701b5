package smt

import "testing"

func newTestIM() (*NodeManager, *InferenceManager, *lemmaRecorder) {
	nm := NewNodeManager()
	env := NewEnv(nm, DefaultOptions())
	ts := NewTheoryState(env)
	ts.SetEqualityEngine(NewEqualityEngine(env.Context(), "test-ee", nil))
	out := &lemmaRecorder{}
	return nm, NewInferenceManager(env, ts, out, "test"), out
}

// TestInferenceLemma tests the immediate lemma path with its rewriting and
// deduplication.
func TestInferenceLemma(t *testing.T) {
	t.Run("sends and records", func(t *testing.T) {
		nm, im, out := newTestIM()
		p := nm.MkVar("p", nm.BoolType())
		if !im.Lemma(p, InferBagsBasicOp) {
			t.Fatal("lemma should be sent")
		}
		if len(out.lemmas) != 1 || out.lemmas[0] != p {
			t.Errorf("expected [p], got %v", out.lemmas)
		}
		if !im.HasSentLemma() {
			t.Error("sentLemma flag should be set")
		}
	})

	t.Run("trivial lemma dropped", func(t *testing.T) {
		nm, im, out := newTestIM()
		x := nm.MkVar("x", nm.IntType())
		if im.Lemma(nm.MkEqual(x, x), InferBagsBasicOp) {
			t.Error("x = x rewrites to true and should be dropped")
		}
		if len(out.lemmas) != 0 || im.HasSentLemma() {
			t.Error("nothing should have been sent")
		}
	})

	t.Run("duplicate lemma dropped", func(t *testing.T) {
		nm, im, out := newTestIM()
		p := nm.MkVar("p", nm.BoolType())
		im.Lemma(p, InferBagsBasicOp)
		if im.Lemma(p, InferBagsBasicOp) {
			t.Error("second send of the same lemma should be dropped")
		}
		if len(out.lemmas) != 1 {
			t.Errorf("expected 1 lemma, got %d", len(out.lemmas))
		}
	})
}

// TestInferencePending tests the pending queues and DoPending flush.
func TestInferencePending(t *testing.T) {
	t.Run("pending lemmas flushed", func(t *testing.T) {
		nm, im, out := newTestIM()
		p := nm.MkVar("p", nm.BoolType())
		q := nm.MkVar("q", nm.BoolType())
		im.AddPendingLemma(p, InferBagsBasicOp)
		im.AddPendingLemma(q, InferBagsBasicOp)
		if !im.HasPendingLemma() || !im.HasPending() {
			t.Fatal("lemmas should be queued")
		}
		im.DoPending()
		if im.HasPending() {
			t.Error("queue should be empty after DoPending")
		}
		if len(out.lemmas) != 2 {
			t.Errorf("expected 2 lemmas, got %d", len(out.lemmas))
		}
	})

	t.Run("pending facts asserted", func(t *testing.T) {
		nm, im, _ := newTestIM()
		ee := im.state.EqualityEngine()
		x := nm.MkVar("x", nm.IntType())
		y := nm.MkVar("y", nm.IntType())
		ee.AddTerm(x)
		ee.AddTerm(y)
		eq := nm.MkEqual(x, y)
		im.AddPendingFact(eq, true, nm.True(), InferBagsBasicOp)
		if !im.HasPendingFact() {
			t.Fatal("fact should be queued")
		}
		im.DoPending()
		if !im.HasSentFact() {
			t.Error("sentFact flag should be set")
		}
		if !ee.AreEqual(x, y) {
			t.Error("fact should have merged x and y")
		}
	})

	t.Run("duplicate pending lemmas are not progress", func(t *testing.T) {
		nm, im, out := newTestIM()
		p := nm.MkVar("p", nm.BoolType())
		im.AddPendingLemma(p, InferBagsBasicOp)
		im.DoPending()
		im.Reset()
		im.AddPendingLemma(p, InferBagsBasicOp)
		im.DoPending()
		if im.HasSentLemma() || im.HasSentFact() {
			t.Error("re-deriving a cached lemma should not count as progress")
		}
		if len(out.lemmas) != 1 {
			t.Errorf("expected 1 lemma total, got %d", len(out.lemmas))
		}
	})

	t.Run("entailed facts are not progress", func(t *testing.T) {
		nm, im, _ := newTestIM()
		ee := im.state.EqualityEngine()
		x := nm.MkVar("x", nm.IntType())
		y := nm.MkVar("y", nm.IntType())
		eq := nm.MkEqual(x, y)
		ee.AssertPredicate(eq, true, nm.True(), nm)
		im.AddPendingFact(eq, true, nm.True(), InferBagsBasicOp)
		im.DoPending()
		if im.HasSentFact() {
			t.Error("an already entailed fact should not count as progress")
		}
	})

	t.Run("reset clears flags", func(t *testing.T) {
		nm, im, _ := newTestIM()
		im.Lemma(nm.MkVar("p", nm.BoolType()), InferBagsBasicOp)
		im.Reset()
		if im.HasSentLemma() || im.HasSentFact() || im.HasPending() {
			t.Error("reset should clear per-round state")
		}
	})
}

// TestInferenceConflict tests the conflict latch.
func TestInferenceConflict(t *testing.T) {
	nm, im, out := newTestIM()
	p := nm.MkVar("p", nm.BoolType())
	q := nm.MkVar("q", nm.BoolType())
	im.Conflict(p, InferEqualityConflict)
	if !im.state.IsInConflict() {
		t.Fatal("conflict should be latched")
	}
	im.Conflict(q, InferEqualityConflict)
	if len(out.conflicts) != 1 || out.conflicts[0] != p {
		t.Errorf("only the first conflict should be reported, got %v", out.conflicts)
	}
}
