package smt

import "testing"

// TestUsesCentralEqualityEngine tests the engine-choice predicate.
func TestUsesCentralEqualityEngine(t *testing.T) {
	opts := DefaultOptions()
	if !UsesCentralEqualityEngine(opts, TheoryIDBags) {
		t.Error("bags should use the central engine by default")
	}
	if UsesCentralEqualityEngine(opts, TheoryIDBool) {
		t.Error("the Boolean theory never uses an equality engine")
	}
	if UsesCentralEqualityEngine(opts, TheoryIDBuiltin) {
		t.Error("the builtin theory never uses an equality engine")
	}

	opts.CentralEqualityEngine = false
	if UsesCentralEqualityEngine(opts, TheoryIDBags) {
		t.Error("central engine disabled, bags should go private")
	}
}

// TestCentralNotifyDispatchOrder tests that central notifications reach
// subscribers in registration order, then the master notifier.
func TestCentralNotifyDispatchOrder(t *testing.T) {
	nm := NewNodeManager()
	env := NewEnv(nm, DefaultOptions())
	eem := NewEqEngineManager(env)

	var order []string
	sub := func(name string) EqNotify {
		return &orderNotify{name: name, order: &order}
	}
	eem.centralNotify.subscribe(sub("first"))
	eem.centralNotify.subscribe(sub("second"))
	eem.SetMasterNotify(sub("master"))

	x := nm.MkVar("x", nm.IntType())
	eem.CentralEqualityEngine().AddTerm(x)

	want := []string{"first", "second", "master"}
	if len(order) != len(want) {
		t.Fatalf("expected %d notifications, got %v", len(want), order)
	}
	for i, w := range want {
		if order[i] != w {
			t.Errorf("notification %d: expected %s, got %s", i, w, order[i])
		}
	}
}

// TestInitializeTheoriesCentral tests that a theory receives the central
// engine under default options.
func TestInitializeTheoriesCentral(t *testing.T) {
	nm := NewNodeManager()
	env := NewEnv(nm, DefaultOptions())
	eem := NewEqEngineManager(env)

	out := &lemmaRecorder{}
	bags := NewTheoryBags(env, out)
	eem.InitializeTheories([]Theory{bags})

	if got := eem.EeTheoryInfo(TheoryIDBags); got != eem.CentralEqualityEngine() {
		t.Error("bags should have been wired to the central engine")
	}
	if bags.state.EqualityEngine() != eem.CentralEqualityEngine() {
		t.Error("theory state should read the central engine")
	}
}

// TestInitializeTheoriesPrivate tests private engine allocation.
func TestInitializeTheoriesPrivate(t *testing.T) {
	nm := NewNodeManager()
	opts := DefaultOptions()
	opts.CentralEqualityEngine = false
	env := NewEnv(nm, opts)
	eem := NewEqEngineManager(env)

	out := &lemmaRecorder{}
	bags := NewTheoryBags(env, out)
	eem.InitializeTheories([]Theory{bags})

	got := eem.EeTheoryInfo(TheoryIDBags)
	if got == nil || got == eem.CentralEqualityEngine() {
		t.Error("bags should own a private engine")
	}
}

// orderNotify records the order notifications arrive in.
type orderNotify struct {
	name  string
	order *[]string
}

func (o *orderNotify) EqNotifyNewClass(t *Node)              { *o.order = append(*o.order, o.name) }
func (o *orderNotify) EqNotifyMerge(t1, t2 *Node)            { *o.order = append(*o.order, o.name) }
func (o *orderNotify) EqNotifyDisequal(t1, t2, reason *Node) {}
func (o *orderNotify) EqNotifyConstantMerge(t1, t2 *Node)    {}
