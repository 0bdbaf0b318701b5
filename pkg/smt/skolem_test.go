package smt

import "testing"

// TestSkolemCaching tests the per-purpose, per-key skolem cache.
func TestSkolemCaching(t *testing.T) {
	nm := NewNodeManager()
	sm := NewSkolemManager(nm)
	x := nm.MkVar("x", nm.IntType())
	y := nm.MkVar("y", nm.IntType())

	s1 := sm.MkSkolemFunction(SkolemBagsCount, nm.IntType(), x)
	s2 := sm.MkSkolemFunction(SkolemBagsCount, nm.IntType(), x)
	if s1 != s2 {
		t.Error("same purpose and key should yield the same skolem")
	}

	s3 := sm.MkSkolemFunction(SkolemBagsCount, nm.IntType(), y)
	if s3 == s1 {
		t.Error("distinct keys should yield distinct skolems")
	}

	s4 := sm.MkSkolemFunction(SkolemBagsCard, nm.IntType(), x)
	if s4 == s1 {
		t.Error("distinct purposes should yield distinct skolems")
	}

	if p := sm.MkPurifySkolem(x); p.Type() != x.Type() {
		t.Errorf("purification skolem has type %v, want %v", p.Type(), x.Type())
	}
}

// TestResourceManager tests budget accounting and the enable toggle.
func TestResourceManager(t *testing.T) {
	t.Run("unlimited", func(t *testing.T) {
		rm := NewResourceManager(0)
		if !rm.Spend(1 << 20) {
			t.Error("unlimited budget should never run out")
		}
		if rm.Out() {
			t.Error("unlimited budget should never be out")
		}
	})

	t.Run("exhaustion", func(t *testing.T) {
		rm := NewResourceManager(10)
		if !rm.Spend(10) {
			t.Error("spending the whole budget is still within it")
		}
		if rm.Spend(1) {
			t.Error("budget should be exhausted")
		}
		if !rm.Out() {
			t.Error("Out should report exhaustion")
		}
		rm.Reset()
		if rm.Out() {
			t.Error("reset should restore the budget")
		}
	})

	t.Run("disabled accounting", func(t *testing.T) {
		rm := NewResourceManager(1)
		rm.SetEnabled(false)
		if !rm.Spend(100) || rm.Out() {
			t.Error("disabled accounting always succeeds")
		}
		if rm.Enabled() {
			t.Error("manager should report disabled")
		}
	})
}
