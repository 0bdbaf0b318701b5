package smt

import "testing"

// TestNodeManagerBooleans tests the pre-interned Boolean constants.
func TestNodeManagerBooleans(t *testing.T) {
	nm := NewNodeManager()
	if nm.True() == nm.False() {
		t.Fatal("true and false must be distinct nodes")
	}
	if nm.True().ID() == nm.False().ID() {
		t.Error("true and false must have distinct ids")
	}
	if nm.MkConstBool(true) != nm.True() || nm.MkConstBool(false) != nm.False() {
		t.Error("MkConstBool should return the interned constants")
	}
	if !nm.True().BoolValue() || nm.False().BoolValue() {
		t.Error("constant values are swapped")
	}
	if nm.True().Type() != nm.BoolType() {
		t.Error("Boolean constants must carry the Bool type")
	}
}

// TestKindBagPredicate tests the theory membership predicate on kinds.
func TestKindBagPredicate(t *testing.T) {
	if !KindBagMake.IsBagKind() || !KindBagCount.IsBagKind() {
		t.Error("bag operators should be bag kinds")
	}
	if KindEqual.IsBagKind() || KindVar.IsBagKind() {
		t.Error("core kinds are not bag kinds")
	}
}
