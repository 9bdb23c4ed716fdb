package condition

import (
	"github.com/filterql/filterql/coerce"
	"github.com/filterql/filterql/errorsx"
	"github.com/filterql/filterql/internal/types"
	"github.com/filterql/filterql/registry"
)

// QueryExecutionParams carries the caller-supplied argument values a
// Condition DAG is bound against (spec.md §4.3, Phase 2).
type QueryExecutionParams struct {
	Arguments map[string]any
}

// Binder performs Phase 2 binding: traversing a Condition DAG, resolving
// each atom's argKey against QueryExecutionParams, validating and
// coercing its value, and producing a bound Predicate tree.
type Binder struct {
	Config   types.FilterConfig
	Registry *registry.Registry
}

// NewBinder builds a Binder over the given config and operator registry.
func NewBinder(cfg types.FilterConfig, reg *registry.Registry) *Binder {
	return &Binder{Config: cfg, Registry: reg}
}

// Bind walks cond into a fully-bound Predicate. Composition does not
// short-circuit: both operands of And/Or are always bound, even if one
// side errors. Only one error is returned: the left operand's if it
// failed, otherwise the right operand's.
func (b *Binder) Bind(cond types.Condition, params QueryExecutionParams) (types.Predicate, error) {
	switch c := cond.(type) {
	case types.Atom:
		return b.bindAtom(c, params)

	case types.And:
		left, leftErr := b.Bind(c.Left, params)
		right, rightErr := b.Bind(c.Right, params)
		if leftErr != nil {
			return nil, leftErr
		}
		if rightErr != nil {
			return nil, rightErr
		}
		return types.BoundAnd{Left: left, Right: right}, nil

	case types.Or:
		left, leftErr := b.Bind(c.Left, params)
		right, rightErr := b.Bind(c.Right, params)
		if leftErr != nil {
			return nil, leftErr
		}
		if rightErr != nil {
			return nil, rightErr
		}
		return types.BoundOr{Left: left, Right: right}, nil

	case types.Not:
		operand, err := b.Bind(c.Operand, params)
		if err != nil {
			return nil, err
		}
		return types.BoundNot{Operand: operand}, nil

	default:
		return nil, errorsx.NewFilterDefinitionError("unrecognized condition node %T", cond)
	}
}

func (b *Binder) bindAtom(a types.Atom, params QueryExecutionParams) (types.Predicate, error) {
	isNullCheck := types.IsNullCheck(a.Op)

	raw, hasArg := params.Arguments[a.ArgKey]
	if !hasArg && !isNullCheck {
		return nil, errorsx.NewFilterDefinitionError("required argument key %q not found", a.ArgKey)
	}

	if hasArg && raw == nil && !isNullCheck {
		return b.bindNullValue(a)
	}

	opCode := a.OpCode
	if opCode == "" {
		opCode = string(a.Op)
	}

	provider, hasProvider := (OperatorProvider)(nil), false
	if b.Registry != nil {
		provider, hasProvider = b.Registry.GetProvider(opCode)
	}

	builtinSupported := a.Ref.SupportsOperator(a.Op)
	if !builtinSupported && !hasProvider {
		return nil, errorsx.NewFilterDefinitionError("operator %q is not supported for property %q", opCode, a.Ref.Name)
	}

	if isNullCheck {
		return types.BoundAtom{ArgKey: a.ArgKey, Ref: a.Ref, Op: a.Op, OpCode: opCode}, nil
	}

	if !builtinSupported {
		// Custom operator path: deferred to the registered provider.
		// Coercion/validation of the value shape is the provider's
		// responsibility (spec.md §4.4); the core only confirms the
		// provider accepts this definition.
		def := types.FilterDefinition{Ref: a.Ref, Op: types.CUSTOM, OpCode: opCode, Value: raw}
		if _, err := provider.ToResolver(def); err != nil {
			return nil, err
		}
		return types.BoundAtom{ArgKey: a.ArgKey, Ref: a.Ref, Op: types.CUSTOM, OpCode: opCode, Value: raw}, nil
	}

	coerced, err := coerce.Value(raw, a.Ref.Type, b.Config, a.Ref.EnumValues)
	if err != nil {
		return nil, err
	}
	if err := coerce.Validate(a.Op, coerced, a.Ref.Type); err != nil {
		return nil, err
	}

	return types.BoundAtom{ArgKey: a.ArgKey, Ref: a.Ref, Op: a.Op, OpCode: opCode, Value: coerced}, nil
}

// bindNullValue applies FilterConfig.NullValuePolicy (spec.md §4.1) to an
// atom whose bound value is explicitly nil.
func (b *Binder) bindNullValue(a types.Atom) (types.Predicate, error) {
	switch b.Config.NullValuePolicy {
	case types.NullPolicyIgnoreFilter:
		return types.BoundTautology{}, nil

	case types.NullPolicyCoerceToIsNull:
		switch a.Op {
		case types.EQ:
			return types.BoundAtom{ArgKey: a.ArgKey, Ref: a.Ref, Op: types.IsNull, OpCode: string(types.IsNull)}, nil
		case types.NE:
			return types.BoundAtom{ArgKey: a.ArgKey, Ref: a.Ref, Op: types.NotNull, OpCode: string(types.NotNull)}, nil
		default:
			return nil, errorsx.NewFilterDefinitionError("null value for argument key %q is only valid with EQ or NE under nullValuePolicy=COERCE_TO_IS_NULL, got operator %q", a.ArgKey, a.Op)
		}

	default: // NullPolicyStrictException
		return nil, errorsx.NewFilterDefinitionError("argument key %q is null; operator %q requires a value (nullValuePolicy=STRICT_EXCEPTION)", a.ArgKey, a.Op)
	}
}

// OperatorProvider is a local alias for registry.OperatorProvider; it is
// satisfied by any registry.OperatorProvider value.
type OperatorProvider = registry.OperatorProvider
