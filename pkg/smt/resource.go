package smt

// ResourceManager is the cooperative cancellation point of a solver
// instance. Long-running loops call Spend periodically and stop cleanly when
// the budget is exhausted. There is no preemption: an operation either runs
// to completion or observes exhaustion at its next Spend call.
//
// Model construction disables accounting for its duration so that a model,
// once started, always finishes or fails cleanly rather than being cut off
// half-built.
type ResourceManager struct {
	enabled bool
	limit   uint64
	spent   uint64
}

// NewResourceManager creates a manager with the given budget; zero means
// unlimited.
func NewResourceManager(limit uint64) *ResourceManager {
	return &ResourceManager{enabled: true, limit: limit}
}

// SetEnabled toggles accounting. While disabled, Spend always succeeds and
// Out always reports false.
func (rm *ResourceManager) SetEnabled(on bool) { rm.enabled = on }

// Enabled reports whether accounting is active.
func (rm *ResourceManager) Enabled() bool { return rm.enabled }

// Spend consumes n units and reports whether the budget still holds.
func (rm *ResourceManager) Spend(n uint64) bool {
	if !rm.enabled {
		return true
	}
	rm.spent += n
	return rm.limit == 0 || rm.spent <= rm.limit
}

// Out reports whether the budget is exhausted.
func (rm *ResourceManager) Out() bool {
	if !rm.enabled || rm.limit == 0 {
		return false
	}
	return rm.spent > rm.limit
}

// Reset clears the spent counter, e.g. at the start of a new query.
func (rm *ResourceManager) Reset() { rm.spent = 0 }
