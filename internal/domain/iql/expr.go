// Package iql implements the clause query language: boolean compositions of
// clause-type predicates evaluated against per-chunk classifier scores.
//
// The evaluator is pure. Leaf predicates are resolved to scores in [0,1] by
// the caller (one classifier call per leaf per chunk); boolean operators fold
// scores with fuzzy semantics: AND=min, OR=max, NOT=1-score.
package iql

import (
	"sort"
	"strings"
)

// Expr is a node in a clause query expression tree.
type Expr interface {
	// Eval folds the expression over leaf predicate scores. Missing
	// predicates score zero.
	Eval(scores map[string]float64) float64
	// String renders the canonical textual form.
	String() string

	appendLeaves(set map[string]bool)
}

// Pred is a leaf predicate naming a clause type (or an auxiliary predicate
// such as "mutual").
type Pred string

// Eval returns the predicate's classifier score.
func (p Pred) Eval(scores map[string]float64) float64 { return scores[string(p)] }

func (p Pred) String() string { return string(p) }

func (p Pred) appendLeaves(set map[string]bool) { set[string(p)] = true }

// And requires both operands: score is the minimum.
type And struct {
	L, R Expr
}

// Eval implements Expr.
func (a And) Eval(scores map[string]float64) float64 {
	return min(a.L.Eval(scores), a.R.Eval(scores))
}

func (a And) String() string { return "(" + a.L.String() + " AND " + a.R.String() + ")" }

func (a And) appendLeaves(set map[string]bool) {
	a.L.appendLeaves(set)
	a.R.appendLeaves(set)
}

// Or accepts either operand: score is the maximum.
type Or struct {
	L, R Expr
}

// Eval implements Expr.
func (o Or) Eval(scores map[string]float64) float64 {
	return max(o.L.Eval(scores), o.R.Eval(scores))
}

func (o Or) String() string { return "(" + o.L.String() + " OR " + o.R.String() + ")" }

func (o Or) appendLeaves(set map[string]bool) {
	o.L.appendLeaves(set)
	o.R.appendLeaves(set)
}

// Not inverts its operand: score is 1 minus the operand score.
type Not struct {
	X Expr
}

// Eval implements Expr.
func (n Not) Eval(scores map[string]float64) float64 { return 1 - n.X.Eval(scores) }

func (n Not) String() string { return "NOT " + n.X.String() }

func (n Not) appendLeaves(set map[string]bool) { n.X.appendLeaves(set) }

// Leaves returns the distinct leaf predicate names of an expression, sorted.
// These are the predicates the scanner must score before evaluation.
func Leaves(e Expr) []string {
	set := make(map[string]bool)
	e.appendLeaves(set)
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Normalize lowercases a predicate name and collapses spaces to underscores,
// so "Limitation of Liability" and "limitation_of_liability" are the same leaf.
func Normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
