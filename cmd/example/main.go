// Package main demonstrates basic solver usage patterns.
//
// This example shows how to assert formulas over the bags theory, check
// satisfiability, inspect the produced model, and run a small synthesis
// query.
package main

import (
	"fmt"
	"log"

	"github.com/gitrdm/gosmt/pkg/smt"
)

func main() {
	fmt.Println("=== GoSMT Examples ===")
	fmt.Println()

	bagModel()
	bagConflict()
	synthesis()
}

// bagModel checks a satisfiable bag constraint and evaluates a term in the
// resulting model.
func bagModel() {
	fmt.Println("1. Bag Model Construction:")

	nm := smt.NewNodeManager()
	slv, err := smt.NewSolverEngine(nm, smt.DefaultOptions())
	if err != nil {
		log.Fatal(err)
	}

	intBag := nm.BagType(nm.IntType())
	x := nm.MkVar("x", intBag)
	e := nm.MkInt(7)

	// x = (bag 7 2)
	if err := slv.AssertFormula(nm.MkEqual(x, nm.MkNode(smt.KindBagMake, e, nm.MkInt(2)))); err != nil {
		log.Fatal(err)
	}
	res, err := slv.CheckSat()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("   x = (bag 7 2) => %v\n", res.Status)

	count, err := slv.GetValue(nm.MkNode(smt.KindBagCount, e, x))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("   (bag.count 7 x) => %v\n", count)
	fmt.Println()
}

// bagConflict checks an unsatisfiable combination of bag equalities.
func bagConflict() {
	fmt.Println("2. Theory Conflict:")

	nm := smt.NewNodeManager()
	slv, err := smt.NewSolverEngine(nm, smt.DefaultOptions())
	if err != nil {
		log.Fatal(err)
	}

	intBag := nm.BagType(nm.IntType())
	x := nm.MkVar("x", intBag)
	one := nm.MkNode(smt.KindBagMake, nm.MkInt(1), nm.MkInt(1))
	two := nm.MkNode(smt.KindBagMake, nm.MkInt(2), nm.MkInt(1))

	// x = (bag 1 1) and x = (bag 2 1)
	if err := slv.AssertFormula(nm.MkEqual(x, one)); err != nil {
		log.Fatal(err)
	}
	if err := slv.AssertFormula(nm.MkEqual(x, two)); err != nil {
		log.Fatal(err)
	}
	res, err := slv.CheckSat()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("   x = (bag 1 1), x = (bag 2 1) => %v\n", res.Status)
	fmt.Println()
}

// synthesis declares a function to synthesize and extracts a witness.
func synthesis() {
	fmt.Println("3. Synthesis:")

	nm := smt.NewNodeManager()
	slv, err := smt.NewSolverEngine(nm, smt.DefaultOptions())
	if err != nil {
		log.Fatal(err)
	}
	sy := smt.NewSygusSolver(slv)

	f := nm.MkVar("f", nm.FunType([]*smt.Type{nm.IntType()}, nm.IntType()))
	x := nm.MkVar("x", nm.IntType())
	if err := sy.DeclareSynthFun(f, nil, nil); err != nil {
		log.Fatal(err)
	}
	if err := sy.DeclareSygusVar(x); err != nil {
		log.Fatal(err)
	}

	// f(x) = x + 1
	constraint := nm.MkEqual(
		nm.MkNode(smt.KindApplyUF, f, x),
		nm.MkNode(smt.KindAdd, x, nm.MkInt(1)))
	if err := sy.AssertSygusConstraint(constraint, false); err != nil {
		log.Fatal(err)
	}

	res, err := sy.CheckSynth(false)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("   f(x) = x + 1 => %v\n", res.Kind)

	sol := make(map[*smt.Node]*smt.Node)
	if sy.GetSynthSolutions(sol) {
		fmt.Printf("   f => %v\n", sol[f])
	}
	fmt.Println()
}
