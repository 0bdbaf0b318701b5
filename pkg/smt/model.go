package smt

import (
	"math/big"

	"go.uber.org/zap"
)

// TheoryModel is the concrete model under construction. It owns a private
// equality engine scoped to the model context, so asserted model facts can
// be discarded wholesale between rebuilds, plus a value map from
// representatives to constant terms and an annotation set recording which
// Boolean variables were defaulted rather than assigned.
type TheoryModel struct {
	env *Env
	ee  *EqualityEngine

	values    map[*Node]*Node
	defaulted map[*Node]bool

	inConflict bool
}

// modelNotify latches a conflict when two distinct constants meet in the
// model's equality engine.
type modelNotify struct {
	m *TheoryModel
}

func (mn *modelNotify) EqNotifyNewClass(t *Node)              {}
func (mn *modelNotify) EqNotifyMerge(t1, t2 *Node)            {}
func (mn *modelNotify) EqNotifyDisequal(t1, t2, reason *Node) {}
func (mn *modelNotify) EqNotifyConstantMerge(t1, t2 *Node) {
	mn.m.inConflict = true
}

// NewTheoryModel creates a model whose equality engine lives on modelCtx.
func NewTheoryModel(env *Env, modelCtx *Context) *TheoryModel {
	m := &TheoryModel{
		env:       env,
		values:    make(map[*Node]*Node),
		defaulted: make(map[*Node]bool),
	}
	m.ee = NewEqualityEngine(modelCtx, "model-ee", &modelNotify{m: m})
	return m
}

// reset clears the non-contextual parts of the model. The equality engine
// content is discarded by the model context pop that precedes every call.
func (m *TheoryModel) reset() {
	m.values = make(map[*Node]*Node)
	m.defaulted = make(map[*Node]bool)
	m.inConflict = false
}

// EqualityEngine returns the model's private engine.
func (m *TheoryModel) EqualityEngine() *EqualityEngine { return m.ee }

// AssertSkeleton introduces a term and its subterms into the model without
// asserting anything about them.
func (m *TheoryModel) AssertSkeleton(t *Node) {
	m.ee.AddTerm(t)
}

// AssertEquality asserts a=b (or its negation) into the model. The return
// value is false when the assertion made the model inconsistent.
func (m *TheoryModel) AssertEquality(a, b *Node, polarity bool) bool {
	m.ee.AddTerm(a)
	m.ee.AddTerm(b)
	m.ee.AssertEquality(a, b, polarity, nil)
	return !m.inConflict
}

// AssertPredicate asserts a Boolean atom with the given polarity.
func (m *TheoryModel) AssertPredicate(p *Node, polarity bool) bool {
	m.ee.AddTerm(p)
	m.ee.AssertPredicate(p, polarity, nil, m.env.NodeManager())
	return !m.inConflict
}

// SetValue records the concrete value for a term's representative.
func (m *TheoryModel) SetValue(t, value *Node) {
	rep := t
	if m.ee.HasTerm(t) {
		rep = m.ee.Representative(t)
	}
	m.values[rep] = value
}

// HasValue reports whether the term's representative has an assigned value.
func (m *TheoryModel) HasValue(t *Node) bool {
	rep := t
	if m.ee.HasTerm(t) {
		rep = m.ee.Representative(t)
	}
	_, ok := m.values[rep]
	return ok
}

// GetValue evaluates t in the model: leaves are replaced by their assigned
// values and the result is rewritten to a normal form. Terms the model
// knows nothing about evaluate to themselves.
func (m *TheoryModel) GetValue(t *Node) *Node {
	nm := m.env.NodeManager()
	subs := make(map[*Node]*Node, len(m.values))
	for rep, v := range m.values {
		for _, member := range m.classOf(rep) {
			subs[member] = v
		}
	}
	return m.env.Rewrite(Substitute(nm, t, subs))
}

func (m *TheoryModel) classOf(rep *Node) []*Node {
	if !m.ee.HasTerm(rep) {
		return []*Node{rep}
	}
	return m.ee.ClassMembers(m.ee.Representative(rep))
}

// MarkDefaultedBoolean annotates v as a Boolean variable whose value was
// defaulted because the assignment left it unconstrained.
func (m *TheoryModel) MarkDefaultedBoolean(v *Node) {
	m.defaulted[v] = true
}

// IsDefaultedBoolean reports whether v's Boolean value was defaulted rather
// than assigned.
func (m *TheoryModel) IsDefaultedBoolean(v *Node) bool {
	return m.defaulted[v]
}

// IsConsistent reports whether no asserted model fact contradicted another.
func (m *TheoryModel) IsConsistent() bool { return !m.inConflict }

// ModelBuilder assigns concrete values to every representative of a
// prepared model.
type ModelBuilder interface {
	BuildModel(m *TheoryModel) bool
	PostProcessModel(m *TheoryModel)
}

// defaultModelBuilder assigns each equivalence class its known constant
// when one exists, and otherwise invents a value of the class type that no
// other class of that type uses, keeping distinct classes distinct.
type defaultModelBuilder struct {
	env *Env
	log *zap.Logger
}

func newDefaultModelBuilder(env *Env) *defaultModelBuilder {
	return &defaultModelBuilder{env: env, log: env.Logger("model-builder")}
}

func (b *defaultModelBuilder) BuildModel(m *TheoryModel) bool {
	nm := b.env.NodeManager()
	ee := m.EqualityEngine()

	usedInts := make(map[string]bool)
	for _, rep := range ee.Classes() {
		if c := ee.ClassConstant(rep); c != nil && c.Kind() == KindConstInt {
			usedInts[c.IntValue().String()] = true
		}
	}

	next := big.NewInt(0)
	for _, rep := range ee.Classes() {
		if m.HasValue(rep) {
			continue
		}
		if c := ee.ClassConstant(rep); c != nil {
			m.SetValue(rep, c)
			continue
		}
		typ := rep.Type()
		switch {
		case typ.IsInt():
			for usedInts[next.String()] {
				next = new(big.Int).Add(next, big.NewInt(1))
			}
			usedInts[next.String()] = true
			m.SetValue(rep, nm.MkConstInt(next))
			next = new(big.Int).Add(next, big.NewInt(1))
		case typ.IsBool():
			m.SetValue(rep, nm.False())
		default:
			m.SetValue(rep, nm.MkGroundValue(typ))
		}
	}
	return m.IsConsistent()
}

func (b *defaultModelBuilder) PostProcessModel(m *TheoryModel) {}

// quantModelBuilder extends the default builder for logics with quantifiers
// or synthesis: function symbols without values receive total lambda values
// when function-value assignment is enabled.
type quantModelBuilder struct {
	defaultModelBuilder
}

func newQuantModelBuilder(env *Env) *quantModelBuilder {
	return &quantModelBuilder{defaultModelBuilder{env: env, log: env.Logger("model-builder")}}
}

func (b *quantModelBuilder) PostProcessModel(m *TheoryModel) {
	if !b.env.Options().AssignFunctionValues {
		return
	}
	nm := b.env.NodeManager()
	for _, t := range m.EqualityEngine().Terms() {
		if t.Type().IsFun() && !m.HasValue(t) {
			m.SetValue(t, nm.MkGroundValue(t.Type()))
		}
	}
}

// ModelState is the model manager's lifecycle stage within one full check.
type ModelState int

const (
	ModelUninitialized ModelState = iota
	ModelPrepared
	ModelBuilt
	ModelPostProcessed
)

// ModelManager orchestrates building a concrete model from the current
// satisfying assignment. It drives the stages Uninitialized, Prepared,
// Built, PostProcessed within one full check and resets to Uninitialized
// whenever new assertions invalidate the model.
type ModelManager struct {
	env *Env
	log *zap.Logger
	eem *EqEngineManager

	theories []Theory
	prop     *PropEngine
	builder  ModelBuilder

	modelCtx *Context
	model    *TheoryModel

	state        ModelState
	buildSuccess bool

	relevant []*Node
}

// masterModelNotify is the model side of the central engine's notification
// fan-out. It records every term that forms a new class, giving model
// preparation the relevant-term set in first-seen order.
type masterModelNotify struct {
	mm *ModelManager
}

func (n *masterModelNotify) EqNotifyNewClass(t *Node) {
	n.mm.relevant = append(n.mm.relevant, t)
}

func (n *masterModelNotify) EqNotifyMerge(t1, t2 *Node)            {}
func (n *masterModelNotify) EqNotifyDisequal(t1, t2, reason *Node) {}
func (n *masterModelNotify) EqNotifyConstantMerge(t1, t2 *Node)    {}

// NewModelManager creates a manager over the given engines.
func NewModelManager(env *Env, eem *EqEngineManager) *ModelManager {
	return &ModelManager{
		env:   env,
		log:   env.Logger("model-manager"),
		eem:   eem,
		state: ModelUninitialized,
	}
}

// FinishInit chooses the builder strategy and binds the model. The model
// context is pushed once here; every rebuild resets it with a pop and push
// so the model's equality engine starts each rebuild empty without
// touching the outer solver state.
func (mm *ModelManager) FinishInit(theories []Theory, prop *PropEngine) {
	mm.theories = theories
	mm.prop = prop
	if mm.env.Options().Quantified {
		mm.builder = newQuantModelBuilder(mm.env)
	} else {
		mm.builder = newDefaultModelBuilder(mm.env)
	}
	mm.modelCtx = NewContext()
	mm.model = NewTheoryModel(mm.env, mm.modelCtx)
	mm.modelCtx.Push()
	mm.eem.SetMasterNotify(&masterModelNotify{mm: mm})
}

// ResetModel invalidates the current model at the start of a full check.
func (mm *ModelManager) ResetModel() {
	mm.state = ModelUninitialized
	mm.buildSuccess = false
}

// IsModelBuilt reports whether the model was built this round.
func (mm *ModelManager) IsModelBuilt() bool {
	return mm.state >= ModelBuilt
}

// GetModel returns the model built this round, or nil if BuildModel has not
// succeeded.
func (mm *ModelManager) GetModel() *TheoryModel {
	if !mm.IsModelBuilt() || !mm.buildSuccess {
		return nil
	}
	return mm.model
}

// BuildModel constructs the model for the current assignment. It is
// idempotent within a round: once built, the cached success flag is
// returned. Resource accounting is disabled for the duration so a started
// build always runs to completion.
func (mm *ModelManager) BuildModel() bool {
	if mm.IsModelBuilt() {
		return mm.buildSuccess
	}
	rm := mm.env.ResourceManager()
	wasEnabled := rm.Enabled()
	rm.SetEnabled(false)
	defer rm.SetEnabled(wasEnabled)

	if !mm.prepareModel() {
		mm.log.Debug("model preparation failed")
		mm.state = ModelBuilt
		mm.buildSuccess = false
		return false
	}
	mm.state = ModelPrepared
	mm.buildSuccess = mm.finishBuildModel()
	mm.state = ModelBuilt
	return mm.buildSuccess
}

// prepareModel resets the model context and collects per-theory model
// information. The Boolean and builtin theories contribute nothing and are
// skipped.
func (mm *ModelManager) prepareModel() bool {
	mm.modelCtx.Pop()
	mm.modelCtx.Push()
	mm.model.reset()

	mm.collectModelBooleanVariables()

	// value each assigned atom so evaluating it reproduces the assignment
	nm := mm.env.NodeManager()
	for _, aa := range mm.prop.AssignedAtoms() {
		mm.model.AssertSkeleton(aa.Atom)
		mm.model.SetValue(aa.Atom, nm.MkConstBool(aa.Value))
	}

	// mirror the central engine's equivalence information
	central := mm.eem.CentralEqualityEngine()
	for _, rep := range central.Classes() {
		members := central.ClassMembers(rep)
		for _, t := range members {
			mm.model.AssertSkeleton(t)
			if t != rep {
				if !mm.model.AssertEquality(t, rep, true) {
					return false
				}
			}
		}
	}

	// relevant terms in first-seen order, dropping any popped away since
	termSet := make([]*Node, 0, len(mm.relevant))
	for _, t := range mm.relevant {
		if central.HasTerm(t) {
			termSet = append(termSet, t)
		}
	}

	for _, t := range mm.theories {
		switch t.ID() {
		case TheoryIDBool, TheoryIDBuiltin:
			continue
		}
		if !t.CollectModelValues(mm.model, termSet) {
			mm.log.Debug("theory failed to contribute model values",
				zap.Stringer("theory", t.ID()))
			return false
		}
	}
	return mm.model.IsConsistent()
}

// collectModelBooleanVariables queries the SAT engine for every Boolean
// variable it knows. A variable the engine has no value for defaults to
// false and is annotated as defaulted, so consumers can tell the default
// apart from an engine-assigned false.
func (mm *ModelManager) collectModelBooleanVariables() {
	nm := mm.env.NodeManager()
	for _, v := range mm.prop.BooleanVariables() {
		mm.model.AssertSkeleton(v)
		if mm.prop.HasValue(v) {
			mm.model.SetValue(v, nm.MkConstBool(mm.prop.Value(v)))
		} else {
			mm.model.SetValue(v, nm.False())
			mm.model.MarkDefaultedBoolean(v)
		}
	}
}

func (mm *ModelManager) finishBuildModel() bool {
	return mm.builder.BuildModel(mm.model)
}

// PostProcessModel runs after a successful build, once per full check,
// letting every theory and the builder augment values for leftover
// structure.
func (mm *ModelManager) PostProcessModel() {
	if !mm.IsModelBuilt() || !mm.buildSuccess {
		return
	}
	if mm.state >= ModelPostProcessed {
		return
	}
	for _, t := range mm.theories {
		switch t.ID() {
		case TheoryIDBool, TheoryIDBuiltin:
			continue
		}
		t.PostProcessModel(mm.model)
	}
	mm.builder.PostProcessModel(mm.model)
	mm.state = ModelPostProcessed
}
