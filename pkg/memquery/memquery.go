// Package memquery is an in-memory implementation of the querybuilder
// abstraction (spec.md §6.2), used to drive the engine and root-package
// tests and the benchmarks without a live database. It plays the
// role the teacher's zero-dependency renderers (pkg/couchdb, pkg/dynamodb,
// pkg/firestore) played for the teacher's test suite, adapted from a
// render-to-JSON shape into an execute-in-memory shape since FilterQL's
// query builder contract runs queries rather than renders them.
package memquery

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/filterql/filterql/querybuilder"
)

// Store holds named collections of documents, each document a plain
// nested map[string]any.
type Store struct {
	collections map[string][]map[string]any
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{collections: make(map[string][]map[string]any)}
}

// Seed appends documents to a named collection.
func (s *Store) Seed(entity string, docs ...map[string]any) {
	s.collections[entity] = append(s.collections[entity], docs...)
}

// Builder implements querybuilder.Builder over a Store.
type Builder struct {
	store *Store
}

// NewBuilder wraps store in a querybuilder.Builder.
func NewBuilder(store *Store) *Builder {
	return &Builder{store: store}
}

// CreateTupleQuery implements querybuilder.Builder.
func (b *Builder) CreateTupleQuery(rootEntity string) querybuilder.Query {
	return &query{store: b.store, rootEntity: rootEntity, root: &path{}}
}

// CriteriaBuilder implements querybuilder.Builder.
func (b *Builder) CriteriaBuilder() querybuilder.CriteriaBuilder {
	return criteriaBuilder{}
}

// path is a dotted attribute reference rooted at a query's entity.
type path struct {
	segments []string
}

func (p *path) Get(field string) querybuilder.Path {
	next := make([]string, len(p.segments)+1)
	copy(next, p.segments)
	next[len(p.segments)] = field
	return &path{segments: next}
}

func (p *path) Name() string {
	return strings.Join(p.segments, ".")
}

func segmentsOf(p querybuilder.Path) []string {
	return p.(*path).segments
}

// query accumulates a tuple query's shape for one root entity.
type query struct {
	store      *Store
	root       *path
	rootEntity string
	selects    map[string]querybuilder.Expression
	where      querybuilder.Predicate
	order      []querybuilder.OrderSpec
}

func (q *query) Root() querybuilder.Path { return q.root }

func (q *query) MultiSelect(selections map[string]querybuilder.Expression) querybuilder.Query {
	q.selects = selections
	return q
}

func (q *query) Where(p querybuilder.Predicate) querybuilder.Query {
	q.where = p
	return q
}

func (q *query) OrderBy(specs ...querybuilder.OrderSpec) querybuilder.Query {
	q.order = specs
	return q
}

// Execute runs the accumulated query against the Store. When every
// MultiSelect expression is a plain field/literal, it returns one tuple
// per matched document (after ordering and offset/limit slicing). When
// any expression is an aggregate (Sum/Avg/Min/Max/Count/CountDistinct),
// it collapses the full matched set into a single aggregate tuple — the
// engine's own computed-field evaluator (spec.md §4.7 step 5) does its
// aggregation over already-fetched rows, so this path exists only to
// exercise the CriteriaBuilder aggregate methods directly in tests.
func (q *query) Execute(ctx context.Context, offset, limit int) (querybuilder.TupleIterator, error) {
	docs := q.store.collections[q.rootEntity]
	matched := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if q.where == nil || evalPredicate(q.where, d) {
			matched = append(matched, d)
		}
	}
	sortDocs(matched, q.order)

	if hasAggregate(q.selects) {
		return &iterator{tuples: []*tuple{aggregateTuple(q.selects, matched)}}, nil
	}

	if offset < 0 {
		offset = 0
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	tuples := make([]*tuple, 0, end-offset)
	for _, d := range matched[offset:end] {
		tuples = append(tuples, projectTuple(q.selects, d))
	}
	return &iterator{tuples: tuples}, nil
}

func hasAggregate(selects map[string]querybuilder.Expression) bool {
	for _, e := range selects {
		if _, ok := e.(aggregateExpr); ok {
			return true
		}
	}
	return false
}

func sortDocs(docs []map[string]any, specs []querybuilder.OrderSpec) {
	if len(specs) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, spec := range specs {
			segs := strings.Split(spec.Path, ".")
			av, _ := getNested(docs[i], segs)
			bv, _ := getNested(docs[j], segs)

			if av == nil || bv == nil {
				if av == nil && bv == nil {
					continue
				}
				switch spec.Nulls {
				case querybuilder.NullsFirst:
					return av == nil
				case querybuilder.NullsLast:
					return bv == nil
				default:
					continue
				}
			}

			c, ok := compare(av, bv)
			if !ok || c == 0 {
				continue
			}
			if spec.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func projectTuple(selects map[string]querybuilder.Expression, doc map[string]any) *tuple {
	values := make(map[string]any, len(selects))
	for alias, expr := range selects {
		values[alias] = evalExpression(expr, doc)
	}
	return &tuple{values: values}
}

func aggregateTuple(selects map[string]querybuilder.Expression, docs []map[string]any) *tuple {
	values := make(map[string]any, len(selects))
	for alias, expr := range selects {
		agg, ok := expr.(aggregateExpr)
		if !ok {
			if len(docs) > 0 {
				values[alias] = evalExpression(expr, docs[0])
			}
			continue
		}
		values[alias] = agg.evaluate(docs)
	}
	return &tuple{values: values}
}

// tuple is one result row: a set of named, aliased values.
type tuple struct {
	values map[string]any
}

func (t *tuple) Get(alias string) (any, bool) {
	v, ok := t.values[alias]
	return v, ok
}

func (t *tuple) Aliases() []string {
	out := make([]string, 0, len(t.values))
	for alias := range t.values {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// iterator yields tuples one at a time.
type iterator struct {
	tuples []*tuple
	pos    int
}

func (it *iterator) Next(ctx context.Context) (querybuilder.Tuple, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if it.pos >= len(it.tuples) {
		return nil, io.EOF
	}
	t := it.tuples[it.pos]
	it.pos++
	return t, nil
}

func (it *iterator) Close() error { return nil }

// --- Predicates and expressions ---

type predicateFn func(doc map[string]any) bool

type exprFn func(doc map[string]any) any

type aggregateExpr struct {
	kind  string
	inner querybuilder.Expression
}

func (a aggregateExpr) evaluate(docs []map[string]any) any {
	values := make([]any, 0, len(docs))
	for _, d := range docs {
		values = append(values, evalExpression(a.inner, d))
	}
	switch a.kind {
	case "SUM":
		var sum float64
		for _, v := range values {
			sum += toFloat(v)
		}
		return sum
	case "AVG":
		if len(values) == 0 {
			return 0.0
		}
		var sum float64
		for _, v := range values {
			sum += toFloat(v)
		}
		return sum / float64(len(values))
	case "MIN":
		var min any
		for _, v := range values {
			if min == nil {
				min = v
				continue
			}
			if c, ok := compare(v, min); ok && c < 0 {
				min = v
			}
		}
		return min
	case "MAX":
		var max any
		for _, v := range values {
			if max == nil {
				max = v
				continue
			}
			if c, ok := compare(v, max); ok && c > 0 {
				max = v
			}
		}
		return max
	case "COUNT":
		return int64(len(values))
	case "COUNT_DISTINCT":
		seen := make(map[any]struct{}, len(values))
		for _, v := range values {
			seen[fmt.Sprint(v)] = struct{}{}
		}
		return int64(len(seen))
	default:
		return nil
	}
}

func evalExpression(e querybuilder.Expression, doc map[string]any) any {
	switch v := e.(type) {
	case exprFn:
		return v(doc)
	case aggregateExpr:
		return v.evaluate([]map[string]any{doc})
	default:
		return nil
	}
}

func evalPredicate(p querybuilder.Predicate, doc map[string]any) bool {
	if fn, ok := p.(predicateFn); ok {
		return fn(doc)
	}
	return false
}

func getNested(doc map[string]any, segs []string) (any, bool) {
	var cur any = doc
	for _, s := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[s]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

type criteriaBuilder struct{}

func (criteriaBuilder) Field(p querybuilder.Path) querybuilder.Expression {
	segs := segmentsOf(p)
	return exprFn(func(doc map[string]any) any {
		v, _ := getNested(doc, segs)
		return v
	})
}

func (criteriaBuilder) Literal(value any) querybuilder.Expression {
	return exprFn(func(map[string]any) any { return value })
}

func (criteriaBuilder) Function(name string, args ...querybuilder.Expression) querybuilder.Expression {
	return exprFn(func(doc map[string]any) any {
		vals := make([]any, len(args))
		for i, a := range args {
			vals[i] = evalExpression(a, doc)
		}
		switch strings.ToUpper(name) {
		case "CONCAT":
			var b strings.Builder
			for _, v := range vals {
				b.WriteString(fmt.Sprint(v))
			}
			return b.String()
		default:
			if len(vals) > 0 {
				return vals[0]
			}
			return nil
		}
	})
}

func (criteriaBuilder) Sum(e querybuilder.Expression) querybuilder.Expression {
	return aggregateExpr{kind: "SUM", inner: e}
}
func (criteriaBuilder) Avg(e querybuilder.Expression) querybuilder.Expression {
	return aggregateExpr{kind: "AVG", inner: e}
}
func (criteriaBuilder) Min(e querybuilder.Expression) querybuilder.Expression {
	return aggregateExpr{kind: "MIN", inner: e}
}
func (criteriaBuilder) Max(e querybuilder.Expression) querybuilder.Expression {
	return aggregateExpr{kind: "MAX", inner: e}
}
func (criteriaBuilder) Count(e querybuilder.Expression) querybuilder.Expression {
	return aggregateExpr{kind: "COUNT", inner: e}
}
func (criteriaBuilder) CountDistinct(e querybuilder.Expression) querybuilder.Expression {
	return aggregateExpr{kind: "COUNT_DISTINCT", inner: e}
}

func (criteriaBuilder) Equal(p querybuilder.Path, value any) querybuilder.Predicate {
	segs := segmentsOf(p)
	return predicateFn(func(doc map[string]any) bool {
		v, ok := getNested(doc, segs)
		if !ok {
			return false
		}
		c, ok := compare(v, value)
		return ok && c == 0
	})
}

func (criteriaBuilder) NotEqual(p querybuilder.Path, value any) querybuilder.Predicate {
	eq := criteriaBuilder{}.Equal(p, value)
	return predicateFn(func(doc map[string]any) bool { return !evalPredicate(eq, doc) })
}

func (criteriaBuilder) cmpPredicate(p querybuilder.Path, value any, ok func(int) bool) querybuilder.Predicate {
	segs := segmentsOf(p)
	return predicateFn(func(doc map[string]any) bool {
		v, found := getNested(doc, segs)
		if !found {
			return false
		}
		c, cok := compare(v, value)
		return cok && ok(c)
	})
}

func (c criteriaBuilder) GreaterThan(p querybuilder.Path, value any) querybuilder.Predicate {
	return c.cmpPredicate(p, value, func(c int) bool { return c > 0 })
}
func (c criteriaBuilder) GreaterThanOrEqual(p querybuilder.Path, value any) querybuilder.Predicate {
	return c.cmpPredicate(p, value, func(c int) bool { return c >= 0 })
}
func (c criteriaBuilder) LessThan(p querybuilder.Path, value any) querybuilder.Predicate {
	return c.cmpPredicate(p, value, func(c int) bool { return c < 0 })
}
func (c criteriaBuilder) LessThanOrEqual(p querybuilder.Path, value any) querybuilder.Predicate {
	return c.cmpPredicate(p, value, func(c int) bool { return c <= 0 })
}

func (criteriaBuilder) Like(p querybuilder.Path, pattern string) querybuilder.Predicate {
	re := globToRegexp(pattern)
	segs := segmentsOf(p)
	return predicateFn(func(doc map[string]any) bool {
		v, ok := getNested(doc, segs)
		if !ok {
			return false
		}
		s, ok := v.(string)
		return ok && re.MatchString(s)
	})
}

func (c criteriaBuilder) NotLike(p querybuilder.Path, pattern string) querybuilder.Predicate {
	like := c.Like(p, pattern)
	return predicateFn(func(doc map[string]any) bool { return !evalPredicate(like, doc) })
}

func (criteriaBuilder) Between(p querybuilder.Path, lower, upper any) querybuilder.Predicate {
	segs := segmentsOf(p)
	return predicateFn(func(doc map[string]any) bool {
		v, ok := getNested(doc, segs)
		if !ok {
			return false
		}
		lo, lok := compare(v, lower)
		hi, hok := compare(v, upper)
		return lok && hok && lo >= 0 && hi <= 0
	})
}

func (criteriaBuilder) In(p querybuilder.Path, values []any) querybuilder.Predicate {
	segs := segmentsOf(p)
	return predicateFn(func(doc map[string]any) bool {
		v, ok := getNested(doc, segs)
		if !ok {
			return false
		}
		for _, want := range values {
			if c, ok := compare(v, want); ok && c == 0 {
				return true
			}
		}
		return false
	})
}

func (c criteriaBuilder) NotIn(p querybuilder.Path, values []any) querybuilder.Predicate {
	in := c.In(p, values)
	return predicateFn(func(doc map[string]any) bool { return !evalPredicate(in, doc) })
}

func (criteriaBuilder) IsNull(p querybuilder.Path) querybuilder.Predicate {
	segs := segmentsOf(p)
	return predicateFn(func(doc map[string]any) bool {
		v, ok := getNested(doc, segs)
		return !ok || v == nil
	})
}

func (c criteriaBuilder) IsNotNull(p querybuilder.Path) querybuilder.Predicate {
	isNull := c.IsNull(p)
	return predicateFn(func(doc map[string]any) bool { return !evalPredicate(isNull, doc) })
}

func (criteriaBuilder) And(preds ...querybuilder.Predicate) querybuilder.Predicate {
	return predicateFn(func(doc map[string]any) bool {
		for _, p := range preds {
			if !evalPredicate(p, doc) {
				return false
			}
		}
		return true
	})
}

func (criteriaBuilder) Or(preds ...querybuilder.Predicate) querybuilder.Predicate {
	return predicateFn(func(doc map[string]any) bool {
		for _, p := range preds {
			if evalPredicate(p, doc) {
				return true
			}
		}
		return false
	})
}

func (criteriaBuilder) Not(p querybuilder.Predicate) querybuilder.Predicate {
	return predicateFn(func(doc map[string]any) bool { return !evalPredicate(p, doc) })
}

func (criteriaBuilder) Conjunction() querybuilder.Predicate {
	return predicateFn(func(map[string]any) bool { return true })
}

func (criteriaBuilder) Disjunction() querybuilder.Predicate {
	return predicateFn(func(map[string]any) bool { return false })
}

func globToRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile("(?is)" + b.String())
	if err != nil {
		return regexp.MustCompile("$^")
	}
	return re
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

// compare orders two values of the same comparable kind. The second
// return value is false when the values are not mutually comparable.
func compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0, true
		}
		return 0, false
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if av {
			return 1, true
		}
		return -1, true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		switch {
		case av.Before(bv):
			return -1, true
		case av.After(bv):
			return 1, true
		default:
			return 0, true
		}
	default:
		af, aok := numericValue(a)
		bf, bok := numericValue(b)
		if !aok || !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
