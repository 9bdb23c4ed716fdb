// Package condition implements FilterQL's filter/condition algebra
// (spec.md §4.3, component C3/C6): the and/or/not tree, the deferred
// "structure, then bind" two-phase protocol, and the glue between a
// bound Condition DAG, the coerce package, and the custom operator
// registry.
package condition

import "github.com/filterql/filterql/internal/types"

// Atom builds a fresh, immutable atom condition referencing argKey. No
// value is read here — Phase 1 of the two-phase protocol (spec.md
// §4.3).
func Atom(argKey string, ref types.PropertyReference, opCode string) types.Condition {
	op := types.Op(opCode)
	if _, ok := types.Spec(op); !ok {
		op = types.CUSTOM
	}
	return types.Atom{ArgKey: argKey, Ref: ref, Op: op, OpCode: opCode}
}

// And returns a fresh conjunction node. Neither operand is evaluated
// eagerly; both are validated during binding (composition laws, spec.md
// §4.3).
func And(l, r types.Condition) types.Condition {
	return types.And{Left: l, Right: r}
}

// Or returns a fresh disjunction node.
func Or(l, r types.Condition) types.Condition {
	return types.Or{Left: l, Right: r}
}

// Not returns a fresh negation node.
func Not(x types.Condition) types.Condition {
	return types.Not{Operand: x}
}
