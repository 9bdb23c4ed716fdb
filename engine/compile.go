package engine

import (
	"strings"

	"github.com/filterql/filterql/errorsx"
	"github.com/filterql/filterql/internal/types"
	"github.com/filterql/filterql/querybuilder"
	"github.com/filterql/filterql/registry"
)

// compilePredicate translates a bound Predicate DAG into a
// querybuilder.Predicate over root, recursing through the boolean
// combinators and delegating leaves to compileAtom (spec.md §4.3 Phase 3,
// "bind, then render").
func compilePredicate(pred types.Predicate, cb querybuilder.CriteriaBuilder, root querybuilder.Path, reg *registry.Registry) (querybuilder.Predicate, error) {
	switch p := pred.(type) {
	case types.BoundAtom:
		return compileAtom(p, cb, root, reg)

	case types.BoundTautology:
		return cb.Conjunction(), nil

	case types.BoundAnd:
		left, err := compilePredicate(p.Left, cb, root, reg)
		if err != nil {
			return nil, err
		}
		right, err := compilePredicate(p.Right, cb, root, reg)
		if err != nil {
			return nil, err
		}
		return cb.And(left, right), nil

	case types.BoundOr:
		left, err := compilePredicate(p.Left, cb, root, reg)
		if err != nil {
			return nil, err
		}
		right, err := compilePredicate(p.Right, cb, root, reg)
		if err != nil {
			return nil, err
		}
		return cb.Or(left, right), nil

	case types.BoundNot:
		operand, err := compilePredicate(p.Operand, cb, root, reg)
		if err != nil {
			return nil, err
		}
		return cb.Not(operand), nil

	default:
		return nil, errorsx.NewFilterDefinitionError("unrecognized bound predicate node %T", pred)
	}
}

// compileAtom renders a single bound comparison. Custom operators are
// deferred to their registered registry.OperatorProvider, whose resolver
// returns the backend's own opaque predicate value directly (spec.md
// §4.4) — the engine never interprets it, only passes it through.
func compileAtom(a types.BoundAtom, cb querybuilder.CriteriaBuilder, root querybuilder.Path, reg *registry.Registry) (querybuilder.Predicate, error) {
	p := fieldPath(root, a.Ref.Name)

	if a.Op == types.CUSTOM {
		if reg == nil {
			return nil, errorsx.NewFilterDefinitionError("custom operator %q used but no registry configured", a.OpCode)
		}
		provider, ok := reg.GetProvider(a.OpCode)
		if !ok {
			return nil, errorsx.NewFilterDefinitionError("no provider registered for custom operator %q", a.OpCode)
		}
		resolver, err := provider.ToResolver(types.FilterDefinition{Ref: a.Ref, Op: types.CUSTOM, OpCode: a.OpCode, Value: a.Value})
		if err != nil {
			return nil, err
		}
		rendered, err := resolver(types.FilterDefinition{Ref: a.Ref, Op: types.CUSTOM, OpCode: a.OpCode, Value: a.Value})
		if err != nil {
			return nil, err
		}
		return rendered, nil
	}

	switch a.Op {
	case types.EQ:
		return cb.Equal(p, a.Value), nil
	case types.NE:
		return cb.NotEqual(p, a.Value), nil
	case types.GT:
		return cb.GreaterThan(p, a.Value), nil
	case types.GTE:
		return cb.GreaterThanOrEqual(p, a.Value), nil
	case types.LT:
		return cb.LessThan(p, a.Value), nil
	case types.LTE:
		return cb.LessThanOrEqual(p, a.Value), nil
	case types.MATCHES:
		return cb.Like(p, toPattern(a.Value)), nil
	case types.NotMatches:
		return cb.NotLike(p, toPattern(a.Value)), nil
	case types.IN:
		return cb.In(p, toSlice(a.Value)), nil
	case types.NotIn:
		return cb.NotIn(p, toSlice(a.Value)), nil
	case types.RANGE:
		bounds := toSlice(a.Value)
		if len(bounds) != 2 {
			return nil, errorsx.NewFilterDefinitionError("RANGE requires exactly 2 values, got %d", len(bounds))
		}
		return cb.Between(p, bounds[0], bounds[1]), nil
	case types.NotRange:
		bounds := toSlice(a.Value)
		if len(bounds) != 2 {
			return nil, errorsx.NewFilterDefinitionError("NOT_RANGE requires exactly 2 values, got %d", len(bounds))
		}
		return cb.Not(cb.Between(p, bounds[0], bounds[1])), nil
	case types.IsNull:
		return cb.IsNull(p), nil
	case types.NotNull:
		return cb.IsNotNull(p), nil
	default:
		return nil, errorsx.NewFilterDefinitionError("unsupported operator %q", a.Op)
	}
}

// fieldPath walks root one dotted segment at a time, matching how
// querybuilder.Path.Get is specified to navigate a single attribute hop
// per call.
func fieldPath(root querybuilder.Path, dotted string) querybuilder.Path {
	p := root
	for _, seg := range strings.Split(dotted, ".") {
		p = p.Get(seg)
	}
	return p
}

// toSlice normalizes a coerced IN/RANGE value into []any; a scalar
// (which coerce.Validate accepts for IN) becomes a one-element slice.
func toSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return []any{v}
}

// toPattern normalizes a MATCHES/NOT_MATCHES value to its glob/like
// pattern string.
func toPattern(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
