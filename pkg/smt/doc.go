// Package smt provides a satisfiability-modulo-theories decision procedure
// engine in Go. Formulas over combined background theories are decided by
// alternating a SAT engine over the propositional abstraction with
// theory-specific checks over each candidate assignment.
//
// The engine is organized around a small set of cooperating components:
//   - EqualityEngine: backtracking-scoped equivalence classes of terms,
//     shared between theories through a central instance or owned privately
//   - Theory solvers: per-theory state machines (the bags theory is the
//     built-in exemplar) running fixed inference strategies at increasing
//     effort levels
//   - InferenceManager: per-theory queues of pending facts and lemmas,
//     deduplicated and flushed at controlled points
//   - ModelManager: turns a surviving assignment into a concrete model,
//     with per-theory value collection and post-processing
//   - SygusSolver: builds and decides syntax-guided synthesis conjectures
//     over nested solver instances, with optional solution verification
//
// All speculative state lives in context-dependent structures; popping a
// context level is the only way work is ever undone. A solver instance is
// single-threaded; nested subsolvers are fully independent and share only
// the node manager, a copy of the options and the resource manager.
package smt
