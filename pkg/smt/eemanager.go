package smt

import "go.uber.org/zap"

// UsesCentralEqualityEngine reports whether the theory with the given id
// routes its equality reasoning through the shared central engine under the
// given options. This is a pure function of configuration and theory
// identity; no hidden state participates in the decision.
func UsesCentralEqualityEngine(opts *Options, id TheoryID) bool {
	if !opts.CentralEqualityEngine {
		return false
	}
	switch id {
	case TheoryIDBool, TheoryIDBuiltin:
		// neither maintains equality information
		return false
	}
	return true
}

// eeTheoryInfo is the management information for one theory's equality
// engine: the engine it uses and, when private, the engine allocated for it.
type eeTheoryInfo struct {
	usedEe  *EqualityEngine
	allocEe *EqualityEngine
}

// EqEngineManager allocates and wires equality engines for the active
// theories. A theory either owns a private engine or is registered as a
// consumer of the shared central engine; central notifications are
// demultiplexed to every interested theory in registration order, plus the
// model builder's master notifier.
type EqEngineManager struct {
	env   *Env
	log   *zap.Logger
	einfo map[TheoryID]*eeTheoryInfo

	central       *EqualityEngine
	centralNotify *centralNotifyClass
}

// NewEqEngineManager creates a manager with an empty central engine scoped
// to the environment's SAT context.
func NewEqEngineManager(env *Env) *EqEngineManager {
	eem := &EqEngineManager{
		env:   env,
		log:   env.Logger("ee-manager"),
		einfo: make(map[TheoryID]*eeTheoryInfo),
	}
	eem.centralNotify = &centralNotifyClass{eem: eem}
	eem.central = NewEqualityEngine(env.Context(), "central-ee", eem.centralNotify)
	return eem
}

// CentralEqualityEngine returns the shared central engine.
func (eem *EqEngineManager) CentralEqualityEngine() *EqualityEngine {
	return eem.central
}

// AllocateEqualityEngine creates a fresh engine scoped to ctx and wired to
// the setup info's notification object.
func (eem *EqEngineManager) AllocateEqualityEngine(esi *EeSetupInfo, ctx *Context) *EqualityEngine {
	return NewEqualityEngine(ctx, esi.Name, esi.Notify)
}

// InitializeTheories builds or wires an equality engine for every given
// theory, called once after theory construction and before their
// finishInit. Theories using the central engine are subscribed to its
// notifications in iteration order, which makes dispatch deterministic.
func (eem *EqEngineManager) InitializeTheories(theories []Theory) {
	opts := eem.env.Options()
	for _, t := range theories {
		var esi EeSetupInfo
		if !t.NeedsEqualityEngine(&esi) {
			eem.einfo[t.ID()] = &eeTheoryInfo{}
			continue
		}
		info := &eeTheoryInfo{}
		if UsesCentralEqualityEngine(opts, t.ID()) {
			info.usedEe = eem.central
			if esi.Notify != nil {
				eem.centralNotify.subscribe(esi.Notify)
			}
			eem.log.Debug("theory uses central equality engine",
				zap.Stringer("theory", t.ID()))
		} else {
			info.allocEe = eem.AllocateEqualityEngine(&esi, eem.env.Context())
			info.usedEe = info.allocEe
			eem.log.Debug("allocated private equality engine",
				zap.Stringer("theory", t.ID()), zap.String("name", esi.Name))
		}
		eem.einfo[t.ID()] = info
		t.SetEqualityEngine(info.usedEe)
	}
}

// EeTheoryInfo returns the engine information for the given theory, or nil.
func (eem *EqEngineManager) EeTheoryInfo(id TheoryID) *EqualityEngine {
	info, ok := eem.einfo[id]
	if !ok {
		return nil
	}
	return info.usedEe
}

// SetMasterNotify registers the model builder's master notifier, which
// receives every central-engine event after the theory subscribers.
func (eem *EqEngineManager) SetMasterNotify(n EqNotify) {
	eem.centralNotify.master = n
}

// SetConstantMergeHandler routes constant-merge events, used to detect
// arithmetic and datatype conflicts as early as possible.
func (eem *EqEngineManager) SetConstantMergeHandler(h func(t1, t2 *Node)) {
	eem.centralNotify.onConstantMerge = h
}

// centralNotifyClass demultiplexes central-engine notifications to the
// subscribed theories. Dispatch never fails; a subscriber that detects a
// conflict records it in its own theory state.
type centralNotifyClass struct {
	eem             *EqEngineManager
	newClassNotify  []EqNotify
	mergeNotify     []EqNotify
	disequalNotify  []EqNotify
	master          EqNotify
	onConstantMerge func(t1, t2 *Node)
}

func (c *centralNotifyClass) subscribe(n EqNotify) {
	c.newClassNotify = append(c.newClassNotify, n)
	c.mergeNotify = append(c.mergeNotify, n)
	c.disequalNotify = append(c.disequalNotify, n)
}

func (c *centralNotifyClass) EqNotifyNewClass(t *Node) {
	for _, n := range c.newClassNotify {
		n.EqNotifyNewClass(t)
	}
	if c.master != nil {
		c.master.EqNotifyNewClass(t)
	}
}

func (c *centralNotifyClass) EqNotifyMerge(t1, t2 *Node) {
	for _, n := range c.mergeNotify {
		n.EqNotifyMerge(t1, t2)
	}
	if c.master != nil {
		c.master.EqNotifyMerge(t1, t2)
	}
}

func (c *centralNotifyClass) EqNotifyDisequal(t1, t2, reason *Node) {
	for _, n := range c.disequalNotify {
		n.EqNotifyDisequal(t1, t2, reason)
	}
	if c.master != nil {
		c.master.EqNotifyDisequal(t1, t2, reason)
	}
}

func (c *centralNotifyClass) EqNotifyConstantMerge(t1, t2 *Node) {
	if c.onConstantMerge != nil {
		c.onConstantMerge(t1, t2)
	}
}
