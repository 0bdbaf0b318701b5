package smt

import "go.uber.org/zap"

// InferenceID labels the origin of a fact, lemma or conflict for diagnostics
// and statistics.
type InferenceID int

const (
	InferUnknown InferenceID = iota
	InferBagsMakeSplit
	InferBagsEmpty
	InferBagsCountBounds
	InferBagsBasicOp
	InferBagsQuantifiedOp
	InferBagsCardReduction
	InferBagsChooseExpand
	InferBagsCgSplit
	InferArithConstantConflict
	InferEqualityConflict
)

var inferenceNames = map[InferenceID]string{
	InferUnknown:               "unknown",
	InferBagsMakeSplit:         "bags-make-split",
	InferBagsEmpty:             "bags-empty",
	InferBagsCountBounds:       "bags-count-bounds",
	InferBagsBasicOp:           "bags-basic-op",
	InferBagsQuantifiedOp:      "bags-quantified-op",
	InferBagsCardReduction:     "bags-card-reduction",
	InferBagsChooseExpand:      "bags-choose-expand",
	InferBagsCgSplit:           "bags-cg-split",
	InferArithConstantConflict: "arith-constant-conflict",
	InferEqualityConflict:      "equality-conflict",
}

// String returns the inference's diagnostic name.
func (id InferenceID) String() string {
	if s, ok := inferenceNames[id]; ok {
		return s
	}
	return "unknown"
}

// OutputChannel is the theory's link to the shared engines: lemmas go to the
// SAT engine, conflicts to the search loop.
type OutputChannel interface {
	// SendLemma hands a lemma to the SAT engine. It reports whether the
	// lemma was accepted (a duplicate or trivial lemma is not).
	SendLemma(n *Node, id InferenceID) bool
	// SendConflict reports a theory conflict with its explanation.
	SendConflict(n *Node, id InferenceID)
}

type pendingFact struct {
	atom     *Node
	polarity bool
	reason   *Node
	id       InferenceID
}

type pendingLemma struct {
	node *Node
	id   InferenceID
}

// InferenceManager buffers the facts, lemmas and conflicts produced by one
// theory solver and flushes them to the shared engines at controlled points.
// Pending queues never survive a DoPending call; the lemma cache survives the
// whole search and deduplicates re-derived lemmas.
type InferenceManager struct {
	env   *Env
	state *TheoryState
	out   OutputChannel
	log   *zap.Logger

	facts  []pendingFact
	lemmas []pendingLemma

	cache     map[*Node]bool
	sentLemma bool
	sentFact  bool
}

// NewInferenceManager creates a manager for the given theory state and
// output channel.
func NewInferenceManager(env *Env, state *TheoryState, out OutputChannel, name string) *InferenceManager {
	return &InferenceManager{
		env:   env,
		state: state,
		out:   out,
		log:   env.Logger(name + "-im"),
		cache: make(map[*Node]bool),
	}
}

// Reset clears the per-round sent flags. Pending queues must already be
// empty; a non-empty queue here is a theory bug.
func (im *InferenceManager) Reset() {
	im.sentLemma = false
	im.sentFact = false
	im.facts = im.facts[:0]
	im.lemmas = im.lemmas[:0]
}

// AddPendingFact queues a derived fact: the atom holds with the given
// polarity because reason holds.
func (im *InferenceManager) AddPendingFact(atom *Node, polarity bool, reason *Node, id InferenceID) {
	im.facts = append(im.facts, pendingFact{atom: atom, polarity: polarity, reason: reason, id: id})
}

// AddPendingLemma queues a lemma for the SAT engine.
func (im *InferenceManager) AddPendingLemma(n *Node, id InferenceID) {
	im.lemmas = append(im.lemmas, pendingLemma{node: n, id: id})
}

// Lemma rewrites and sends a lemma immediately, bypassing the pending queue.
// Trivial (rewritten to true) and duplicate lemmas are dropped. Reports
// whether the lemma was sent.
func (im *InferenceManager) Lemma(n *Node, id InferenceID) bool {
	r := im.env.Rewrite(n)
	if r.Kind() == KindConstBool && r.BoolValue() {
		return false
	}
	if im.cache[r] {
		return false
	}
	im.cache[r] = true
	if im.out.SendLemma(r, id) {
		im.sentLemma = true
		im.log.Debug("lemma", zap.Stringer("id", id), zap.Stringer("node", r))
		return true
	}
	return false
}

// Conflict latches a conflict in the theory state and reports it to the
// search loop.
func (im *InferenceManager) Conflict(n *Node, id InferenceID) {
	if im.state.IsInConflict() {
		return
	}
	im.state.NotifyInConflict(n)
	im.log.Debug("conflict", zap.Stringer("id", id), zap.Stringer("node", n))
	im.out.SendConflict(n, id)
}

// HasPendingFact reports whether facts are queued.
func (im *InferenceManager) HasPendingFact() bool { return len(im.facts) > 0 }

// HasPendingLemma reports whether lemmas are queued.
func (im *InferenceManager) HasPendingLemma() bool { return len(im.lemmas) > 0 }

// HasPending reports whether any fact or lemma is queued.
func (im *InferenceManager) HasPending() bool {
	return im.HasPendingFact() || im.HasPendingLemma()
}

// HasSentLemma reports whether a lemma was accepted by the SAT engine since
// the last Reset.
func (im *InferenceManager) HasSentLemma() bool { return im.sentLemma }

// HasSentFact reports whether a fact was asserted since the last Reset.
func (im *InferenceManager) HasSentFact() bool { return im.sentFact }

// DoPendingFacts asserts every queued fact into the theory's equality
// engine, stopping early on conflict. Facts the engine already entails are
// skipped and do not count as progress, so a round that only re-derives
// known facts does not keep the check loop alive.
func (im *InferenceManager) DoPendingFacts() {
	nm := im.env.NodeManager()
	for _, f := range im.facts {
		if im.state.IsInConflict() {
			break
		}
		if im.factEntailed(f.atom, f.polarity) {
			continue
		}
		im.state.EqualityEngine().AssertPredicate(f.atom, f.polarity, f.reason, nm)
		im.sentFact = true
	}
	im.facts = im.facts[:0]
}

// factEntailed reports whether the equality engine already holds the atom at
// the given polarity.
func (im *InferenceManager) factEntailed(atom *Node, polarity bool) bool {
	ee := im.state.EqualityEngine()
	if atom.Kind() == KindEqual {
		if polarity {
			return ee.AreEqual(atom.Child(0), atom.Child(1))
		}
		return ee.AreDisequal(atom.Child(0), atom.Child(1))
	}
	return ee.AreEqual(atom, im.env.NodeManager().MkConstBool(polarity))
}

// DoPendingLemmas flushes every queued lemma to the SAT engine, with the
// same rewriting and deduplication as Lemma.
func (im *InferenceManager) DoPendingLemmas() {
	for _, l := range im.lemmas {
		r := im.env.Rewrite(l.node)
		if r.Kind() == KindConstBool && r.BoolValue() {
			continue
		}
		if im.cache[r] {
			continue
		}
		im.cache[r] = true
		if im.out.SendLemma(r, l.id) {
			im.sentLemma = true
		}
	}
	im.lemmas = im.lemmas[:0]
}

// DoPending flushes facts and then lemmas. Lemmas are sent regardless of
// whether facts were, since some lemmas cannot be dropped.
func (im *InferenceManager) DoPending() {
	im.DoPendingFacts()
	im.DoPendingLemmas()
}

// ExplainLit returns the explanation of a literal previously asserted as a
// fact through this manager.
func (im *InferenceManager) ExplainLit(lit *Node) *Node {
	nm := im.env.NodeManager()
	atom, polarity := lit, true
	if atom.Kind() == KindNot {
		atom, polarity = atom.Child(0), false
	}
	if atom.Kind() == KindEqual && polarity {
		if exp := im.state.EqualityEngine().Explain(atom.Child(0), atom.Child(1), nm); exp != nil {
			return exp
		}
	}
	return nm.True()
}
