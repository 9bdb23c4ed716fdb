package engine

import (
	"fmt"
	"strings"

	"github.com/filterql/filterql/internal/types"
)

// evaluateComputed fills every computed-field output slot of rb once its
// dependency values are available: either already selected on the same
// row (a plain entity-path dependency), or aggregated from an already-
// fetched child collection (spec.md §4.7 step 5, "after the relevant
// collection has been assembled").
func evaluateComputed(rb *types.RowBuffer, fields []types.ComputedField, resolver InstanceResolver) error {
	for _, cf := range fields {
		values, err := gatherDependencyValues(rb, cf)
		if err != nil {
			return err
		}

		if resolver == nil {
			return fmt.Errorf("engine: computed field %q requires an InstanceResolver", cf.DTOField)
		}
		provider, err := resolver.Resolve(cf.ProviderName)
		if err != nil {
			return err
		}
		result, err := provider.Compute(cf.MethodName, values)
		if err != nil {
			return err
		}
		rb.Set(cf.DTOField, result)
	}
	return nil
}

// gatherDependencyValues resolves each of cf's Dependencies to a scalar
// value, applying any declared reducer (spec.md §4.6 "Reducer"). A
// dependency naming a declared child collection alias is reduced across
// every already-fetched child row; any other dependency is read directly
// off rb.
func gatherDependencyValues(rb *types.RowBuffer, cf types.ComputedField) ([]any, error) {
	reducerByIndex := make(map[int]types.ReducerKind, len(cf.Reducers))
	for _, r := range cf.Reducers {
		reducerByIndex[r.DependencyIndex] = r.Reducer
	}

	values := make([]any, len(cf.Dependencies))
	for i, dep := range cf.Dependencies {
		collAlias, field, isCollectionDep := splitCollectionDep(rb, dep)
		if isCollectionDep {
			reducer, ok := reducerByIndex[i]
			if !ok {
				return nil, fmt.Errorf("engine: dependency %q on collection %q requires a reducer", dep, collAlias)
			}
			values[i] = reduce(reducer, collectChildValues(rb, collAlias, field))
			continue
		}
		values[i] = rootFieldValue(rb, dep)
	}
	return values, nil
}

// splitCollectionDep reports whether dep names a field within a child
// collection this row already carries (e.g. "orders.amount" when rb has
// a "orders" collection), as opposed to a plain nested root field (e.g.
// "address.city"). rb.Collections is the reliable discriminator: every
// declared collection alias is present there, even when empty, while
// plain nested fields never are.
func splitCollectionDep(rb *types.RowBuffer, dep string) (collAlias, field string, ok bool) {
	idx := strings.Index(dep, ".")
	if idx < 0 {
		return "", "", false
	}
	alias := dep[:idx]
	if _, present := rb.Collections[alias]; !present {
		return "", "", false
	}
	return alias, dep[idx+1:], true
}

// rootFieldValue reads a computed field's plain (non-collection)
// dependency directly off rb's slots. Dependency slots are added by
// entity field, not DTO alias (they are frequently never otherwise
// projected), so the lookup goes through Schema.ByEntityField rather
// than RowBuffer.Get.
func rootFieldValue(rb *types.RowBuffer, dep string) any {
	if idx, ok := rb.Schema.ByEntityField(dep); ok {
		return rb.Values[idx]
	}
	v, _ := rb.Get(dep)
	return v
}

// collectChildValues reads one field off every child row under alias.
func collectChildValues(rb *types.RowBuffer, alias, field string) []any {
	children := rb.Collections[alias]
	out := make([]any, 0, len(children))
	for _, c := range children {
		if v, ok := c.Get(field); ok {
			out = append(out, v)
		}
	}
	return out
}

// reduce applies a single reducer over a set of collected values.
func reduce(kind types.ReducerKind, values []any) any {
	switch kind {
	case types.ReducerCount:
		return int64(len(values))
	case types.ReducerCountDistinct:
		seen := make(map[any]struct{}, len(values))
		for _, v := range values {
			seen[v] = struct{}{}
		}
		return int64(len(seen))
	case types.ReducerSum:
		var sum float64
		for _, v := range values {
			sum += toFloat(v)
		}
		return sum
	case types.ReducerAvg:
		if len(values) == 0 {
			return float64(0)
		}
		var sum float64
		for _, v := range values {
			sum += toFloat(v)
		}
		return sum / float64(len(values))
	case types.ReducerMin:
		if len(values) == 0 {
			return nil
		}
		min := toFloat(values[0])
		for _, v := range values[1:] {
			if f := toFloat(v); f < min {
				min = f
			}
		}
		return min
	case types.ReducerMax:
		if len(values) == 0 {
			return nil
		}
		max := toFloat(values[0])
		for _, v := range values[1:] {
			if f := toFloat(v); f > max {
				max = f
			}
		}
		return max
	default:
		return nil
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}
