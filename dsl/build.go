package dsl

import (
	"sort"

	"github.com/filterql/filterql/errorsx"
	"github.com/filterql/filterql/internal/types"
)

// ResolveRef looks up the PropertyReference and effective operator code
// for one argKey, given the FilterDefinition supplied in the request.
// The root package supplies it (resolveFromDefinition) so dsl stays
// independent of the registry; operator support is checked later, when
// condition.Binder binds the atom, not by this function.
type ResolveRef func(argKey string, def types.FilterDefinition) (types.PropertyReference, string, error)

// Build walks tree's postfix sequence into a lazy types.Condition tree.
// This is phase 1 of the two-phase protocol (spec.md §4.2): it reads
// only the argKey, property reference, and operator code, never the
// bound value, so the same Condition shape is reused across requests
// sharing a cache entry while arguments differ per call.
func Build(tree *types.FilterTree, filters map[string]types.FilterDefinition, resolve ResolveRef) (types.Condition, error) {
	var stack []types.Condition

	for _, tok := range tree.Postfix {
		switch tok.Kind {
		case types.TokenIdent:
			def, ok := filters[tok.Ident]
			if !ok {
				return nil, errorsx.NewFilterDefinitionError("DSL references undefined argument key %q", tok.Ident)
			}
			ref, opCode, err := resolve(tok.Ident, def)
			if err != nil {
				return nil, err
			}
			stack = append(stack, types.Atom{ArgKey: tok.Ident, Ref: ref, Op: def.Op, OpCode: opCode})

		case types.TokenNot:
			if len(stack) < 1 {
				return nil, errorsx.NewDSLSyntaxError("build", "NOT operator missing operand")
			}
			operand := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			stack = append(stack, types.Not{Operand: operand})

		case types.TokenAnd:
			right, left, err := popTwo(&stack)
			if err != nil {
				return nil, err
			}
			stack = append(stack, types.And{Left: left, Right: right})

		case types.TokenOr:
			right, left, err := popTwo(&stack)
			if err != nil {
				return nil, err
			}
			stack = append(stack, types.Or{Left: left, Right: right})

		case types.TokenShorthandAnd, types.TokenShorthandOr, types.TokenShorthandNot:
			cond, err := buildShorthand(tok.Kind, filters, resolve)
			if err != nil {
				return nil, err
			}
			stack = append(stack, cond)
		}
	}

	if len(stack) != 1 {
		return nil, errorsx.NewDSLSyntaxError("build", "malformed expression: %d operand(s) left over", len(stack))
	}
	return stack[0], nil
}

// buildShorthand expands a whole-expression shorthand combinator
// (spec.md §4.2) into the AND/OR of every filter key, or the NOT of
// their AND. Keys are folded in sorted order so the resulting Condition
// shape (and therefore its compiled predicate) is deterministic across
// runs, mirroring the sorted-key iteration the engine's own builders use
// elsewhere for the same reason.
func buildShorthand(kind types.TokenKind, filters map[string]types.FilterDefinition, resolve ResolveRef) (types.Condition, error) {
	if len(filters) == 0 {
		return nil, errorsx.NewFilterDefinitionError("shorthand combinator has no filters to combine")
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var combined types.Condition
	for _, k := range keys {
		def := filters[k]
		ref, opCode, err := resolve(k, def)
		if err != nil {
			return nil, err
		}
		atom := types.Atom{ArgKey: k, Ref: ref, Op: def.Op, OpCode: opCode}
		if combined == nil {
			combined = atom
			continue
		}
		if kind == types.TokenShorthandOr {
			combined = types.Or{Left: combined, Right: atom}
		} else {
			combined = types.And{Left: combined, Right: atom}
		}
	}
	if kind == types.TokenShorthandNot {
		combined = types.Not{Operand: combined}
	}
	return combined, nil
}

func popTwo(stack *[]types.Condition) (right, left types.Condition, err error) {
	s := *stack
	if len(s) < 2 {
		return nil, nil, errorsx.NewDSLSyntaxError("build", "binary operator missing operand")
	}
	right = s[len(s)-1]
	left = s[len(s)-2]
	*stack = s[:len(s)-2]
	return right, left, nil
}
