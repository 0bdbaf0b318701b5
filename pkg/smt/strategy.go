package smt

import "fmt"

// InferStep names one step of a theory's inference strategy. The strategy is
// a flat ordered list of steps partitioned by effort level; a theory executes
// the steps for the current effort in order, aborting early at a Break when
// work is already pending.
type InferStep int

const (
	// StepBreak aborts the round if a conflict or any pending fact or lemma
	// exists.
	StepBreak InferStep = iota
	// StepCheckInit is a no-op marker opening a strategy.
	StepCheckInit
	// StepCheckBagMake decides emptiness of bag.make terms.
	StepCheckBagMake
	// StepCheckBasicOperations derives multiplicity constraints for the
	// non-quantified bag operators.
	StepCheckBasicOperations
	// StepCheckQuantifiedOperations handles operators whose semantics
	// quantify over elements (map, setof over unknown elements).
	StepCheckQuantifiedOperations
)

// String returns the step's name.
func (s InferStep) String() string {
	switch s {
	case StepBreak:
		return "break"
	case StepCheckInit:
		return "check-init"
	case StepCheckBagMake:
		return "check-bag-make"
	case StepCheckBasicOperations:
		return "check-basic-operations"
	case StepCheckQuantifiedOperations:
		return "check-quantified-operations"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

type strategyStep struct {
	step   InferStep
	effort int
}

// Strategy is a fixed ordered sequence of inference steps partitioned by
// effort level. It is built once during presolve and immutable afterwards.
type Strategy struct {
	init   bool
	steps  []strategyStep
	ranges map[Effort][2]int
}

// NewStrategy creates an empty, uninitialized strategy.
func NewStrategy() *Strategy {
	return &Strategy{ranges: make(map[Effort][2]int)}
}

// IsInit reports whether the strategy has been initialized.
func (s *Strategy) IsInit() bool { return s.init }

// HasEffort reports whether any steps are registered for the given effort.
func (s *Strategy) HasEffort(e Effort) bool {
	_, ok := s.ranges[e]
	return ok
}

// StepsFor returns the step sequence for the given effort.
func (s *Strategy) StepsFor(e Effort) []strategyStep {
	r, ok := s.ranges[e]
	if !ok {
		return nil
	}
	return s.steps[r[0]:r[1]]
}

// beginEffort opens the step range for an effort level.
func (s *Strategy) beginEffort(e Effort) {
	s.ranges[e] = [2]int{len(s.steps), len(s.steps)}
}

// endEffort closes the step range for an effort level.
func (s *Strategy) endEffort(e Effort) {
	r := s.ranges[e]
	r[1] = len(s.steps)
	s.ranges[e] = r
}

// addStep appends a step with an optional intra-step effort parameter.
func (s *Strategy) addStep(step InferStep, effort int) {
	s.steps = append(s.steps, strategyStep{step: step, effort: effort})
}

// markInit freezes the strategy.
func (s *Strategy) markInit() { s.init = true }
