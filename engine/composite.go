package engine

import (
	"github.com/filterql/filterql/internal/types"
	"github.com/filterql/filterql/querybuilder"
)

// maxInValues is the largest IN list a single predicate carries before
// the engine splits it into batched OR-of-IN clauses (spec.md §4.8).
const maxInValues = 500

// maxIDBatch bounds how many parent ids a single child sub-query fetches
// for at once (spec.md §4.7 step 4).
const maxIDBatch = 1000

// BuildIDPredicate builds the WHERE clause selecting exactly the rows
// identified by ids, honoring spec.md §4.8's batching rules:
//   - no ids: an always-false predicate (Disjunction, the empty OR)
//   - one id field, <= maxInValues ids: a single IN
//   - one id field, > maxInValues ids: an OR of batched IN clauses
//   - N id fields: an OR of per-key AND-of-Equal clauses
func BuildIDPredicate(cb querybuilder.CriteriaBuilder, root querybuilder.Path, idFields []string, ids []types.CompositeKey) querybuilder.Predicate {
	if len(ids) == 0 {
		return cb.Disjunction()
	}

	if len(idFields) == 1 {
		values := make([]any, len(ids))
		for i, id := range ids {
			values[i] = id.Values[0]
		}
		return batchedIn(cb, root.Get(idFields[0]), values)
	}

	clauses := make([]querybuilder.Predicate, len(ids))
	for i, id := range ids {
		var parts []querybuilder.Predicate
		for j, field := range idFields {
			parts = append(parts, cb.Equal(root.Get(field), id.Values[j]))
		}
		clauses[i] = cb.And(parts...)
	}
	return cb.Or(clauses...)
}

// batchedIn splits values into chunks of at most maxInValues and ORs
// together one IN clause per chunk (spec.md §4.8, "more than 500 ids").
func batchedIn(cb querybuilder.CriteriaBuilder, p querybuilder.Path, values []any) querybuilder.Predicate {
	if len(values) <= maxInValues {
		return cb.In(p, values)
	}
	var clauses []querybuilder.Predicate
	for start := 0; start < len(values); start += maxInValues {
		end := start + maxInValues
		if end > len(values) {
			end = len(values)
		}
		clauses = append(clauses, cb.In(p, values[start:end]))
	}
	return cb.Or(clauses...)
}
