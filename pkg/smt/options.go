package smt

import "go.uber.org/zap"

// Options configures a solver instance. The zero value is not usable; start
// from DefaultOptions and adjust.
//
// Options are read-only once a solver is constructed. Subsolvers receive a
// copy of their parent's options, so per-query adjustments never leak back.
type Options struct {
	// EnableBags gates the bags theory. Pre-registering a bag term with the
	// theory disabled is a logic error.
	EnableBags bool

	// Incremental enables incremental solving. It also selects the nested
	// subsolver execution path for synthesis queries.
	Incremental bool

	// SygusStream requests enumeration of multiple synthesis solutions. Like
	// Incremental, it disables triviality inference over the conjecture.
	SygusStream bool

	// CheckSynthSol verifies every found synthesis solution with a fresh
	// subsolver before reporting it.
	CheckSynthSol bool

	// CheckSynthSolTrusted marks solution verification as trustworthy. When
	// false, a failed verification is downgraded from a hard failure to a
	// warning.
	CheckSynthSolTrusted bool

	// ProduceModels enables model construction and post-processing after a
	// satisfiable check.
	ProduceModels bool

	// AssignFunctionValues asks the model builder to assign concrete values
	// to uninterpreted functions.
	AssignFunctionValues bool

	// CentralEqualityEngine routes all theory equality reasoning through one
	// shared engine instead of per-theory private engines.
	CentralEqualityEngine bool

	// Quantified marks the logic as quantified, selecting the
	// quantifier-aware model builder.
	Quantified bool

	// ResourceLimit bounds the cooperative resource accounting; zero means
	// unlimited.
	ResourceLimit uint64

	// MaxCheckRounds bounds the outer theory-check/SAT loop. It exists to
	// keep a buggy theory from looping a check forever.
	MaxCheckRounds int

	// Logger receives structured trace output. Defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultOptions returns the default configuration: bags enabled, models
// produced, verification trusted, non-incremental.
func DefaultOptions() *Options {
	return &Options{
		EnableBags:            true,
		Incremental:           false,
		SygusStream:           false,
		CheckSynthSol:         false,
		CheckSynthSolTrusted:  true,
		ProduceModels:         true,
		AssignFunctionValues:  true,
		CentralEqualityEngine: true,
		Quantified:            false,
		ResourceLimit:         0,
		MaxCheckRounds:        10000,
		Logger:                nil,
	}
}

// clone returns a copy of the options for a subsolver.
func (o *Options) clone() *Options {
	c := *o
	return &c
}
