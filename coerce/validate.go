package coerce

import (
	"reflect"

	"github.com/filterql/filterql/errorsx"
	"github.com/filterql/filterql/internal/types"
)

// Validate checks operator/value/type compatibility per spec.md §4.1's
// table, AFTER coercion has already run. It returns a
// *errorsx.FilterValidationError on any violation.
func Validate(op types.Op, value any, expected types.PropertyType) error {
	switch op {
	case types.IsNull, types.NotNull:
		return nil // any value accepted, ignored

	case types.RANGE, types.NotRange:
		items, ok := value.([]any)
		if !ok || len(items) != 2 {
			return errorsx.NewFilterValidationError("%s requires exactly two elements", op)
		}
		return assignableAll(items, expected)

	case types.IN, types.NotIn:
		items, ok := value.([]any)
		if !ok {
			items = []any{value}
		}
		if len(items) == 0 {
			return errorsx.NewFilterValidationError("%s requires at least one value", op)
		}
		return assignableAll(items, expected)

	case types.EQ, types.NE, types.GT, types.GTE, types.LT, types.LTE, types.MATCHES, types.NotMatches:
		items, ok := value.([]any)
		if ok {
			if len(items) == 0 {
				return errorsx.NewFilterValidationError("%s does not accept an empty collection", op)
			}
			return assignableAll(items, expected)
		}
		return assignable(value, expected)

	case types.CUSTOM:
		// Deferred to the registry provider; the core does not validate.
		return nil

	default:
		return errorsx.NewFilterValidationError("unrecognized operator %q", op)
	}
}

func assignableAll(items []any, expected types.PropertyType) error {
	for _, it := range items {
		if err := assignable(it, expected); err != nil {
			return err
		}
	}
	return nil
}

// assignable permits primitive<->wrapper equivalence and the coerced
// Go types produced by coerce.Value for each PropertyType.
func assignable(value any, expected types.PropertyType) error {
	if value == nil {
		return errorsx.NewFilterValidationError("value is nil, expected %s", expected)
	}

	ok := false
	switch expected {
	case types.TypeString, types.TypeEnum:
		_, ok = value.(string)
	case types.TypeInt, types.TypeLong:
		_, ok = value.(int64)
	case types.TypeFloat, types.TypeDouble:
		_, ok = value.(float64)
	case types.TypeBool:
		_, ok = value.(bool)
	case types.TypeDate, types.TypeDateTime:
		ok = reflect.TypeOf(value).String() == "time.Time"
	case types.TypeUUID:
		ok = reflect.TypeOf(value).String() == "uuid.UUID"
	default:
		ok = true
	}
	if !ok {
		return errorsx.NewFilterValidationError("value %v (%T) is not assignable to %s", value, value, expected)
	}
	return nil
}
