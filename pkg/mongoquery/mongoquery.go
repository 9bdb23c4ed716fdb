// Package mongoquery is a MongoDB-backed implementation of the
// querybuilder abstraction (spec.md §6.2), executed against a real
// database via go.mongodb.org/mongo-driver/v2. It is grounded on the
// teacher's pkg/mongodb.Renderer — the same operator-to-Mongo-operator
// table ($eq/$ne/$gt/$gte/$lt/$lte/$regex/$in/$nin) the teacher renders
// to a JSON string here compiles to an executed aggregation pipeline,
// since FilterQL's query builder contract runs queries rather than
// rendering them for a caller to run later.
package mongoquery

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/filterql/filterql/querybuilder"
)

// Builder implements querybuilder.Builder against a mongo.Database. Each
// root entity maps to a same-named collection, mirroring the teacher's
// Renderer.Render treating ast.Target.Name as the collection name.
type Builder struct {
	db *mongo.Database
}

// NewBuilder wraps db in a querybuilder.Builder.
func NewBuilder(db *mongo.Database) *Builder {
	return &Builder{db: db}
}

// CreateTupleQuery implements querybuilder.Builder.
func (b *Builder) CreateTupleQuery(rootEntity string) querybuilder.Query {
	return &query{coll: b.db.Collection(rootEntity), root: &path{}}
}

// CriteriaBuilder implements querybuilder.Builder.
func (b *Builder) CriteriaBuilder() querybuilder.CriteriaBuilder {
	return criteriaBuilder{}
}

type path struct {
	segments []string
}

func (p *path) Get(field string) querybuilder.Path {
	next := make([]string, len(p.segments)+1)
	copy(next, p.segments)
	next[len(p.segments)] = field
	return &path{segments: next}
}

func (p *path) Name() string { return strings.Join(p.segments, ".") }

func fieldName(p querybuilder.Path) string { return p.(*path).Name() }

type query struct {
	coll    *mongo.Collection
	root    *path
	selects map[string]querybuilder.Expression
	where   querybuilder.Predicate
	order   []querybuilder.OrderSpec
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

// Execute compiles the accumulated query into a single aggregation
// pipeline and runs it. Plain projections use $match/$sort/$skip/$limit/
// $project; when any selected expression is an aggregate accumulator,
// the whole select list collapses into a single $group stage the same
// way memquery.aggregateTuple does for its in-memory counterpart.
func (q *query) Execute(ctx context.Context, offset, limit int) (querybuilder.TupleIterator, error) {
	pipeline := mongo.Pipeline{}

	if q.where != nil {
		match, ok := q.where.(bson.M)
		if !ok {
			return nil, fmt.Errorf("mongoquery: predicate is not a bson.M (got %T)", q.where)
		}
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}

	if hasAggregate(q.selects) {
		group := bson.D{{Key: "_id", Value: nil}}
		for alias, expr := range q.selects {
			if agg, ok := expr.(aggregateExpr); ok {
				group = append(group, bson.E{Key: alias, Value: agg.accumulator()})
			} else {
				group = append(group, bson.E{Key: alias, Value: bson.M{"$first": renderExpr(expr)}})
			}
		}
		pipeline = append(pipeline, bson.D{{Key: "$group", Value: group}})
	} else {
		if len(q.order) > 0 {
			pipeline = append(pipeline, sortStages(q.order)...)
		}
		if offset > 0 {
			pipeline = append(pipeline, bson.D{{Key: "$skip", Value: offset}})
		}
		if limit > 0 {
			pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
		}
		project := bson.D{{Key: "_id", Value: 0}}
		for alias, expr := range q.selects {
			project = append(project, bson.E{Key: alias, Value: renderExpr(expr)})
		}
		pipeline = append(pipeline, bson.D{{Key: "$project", Value: project}})
	}

	cursor, err := q.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongoquery: aggregate: %w", err)
	}
	return &iterator{cursor: cursor}, nil
}

// sortStages compiles OrderSpecs into pipeline stages. A spec with
// explicit null placement gets a synthetic rank field (0/1, null-aware
// via $ifNull) added ahead of the $sort so nulls land first/last
// regardless of the field's own ascending/descending direction; Mongo's
// native null-before-non-null ordering applies when Nulls is
// querybuilder.NullsNative.
func sortStages(specs []querybuilder.OrderSpec) []bson.D {
	addFields := bson.D{}
	sortDoc := bson.D{}

	for i, s := range specs {
		if s.Nulls != querybuilder.NullsNative {
			rankKey := fmt.Sprintf("__nullrank_%d", i)
			nullRank, nonNullRank := 0, 1
			if s.Nulls == querybuilder.NullsLast {
				nullRank, nonNullRank = 1, 0
			}
			addFields = append(addFields, bson.E{Key: rankKey, Value: bson.M{
				"$cond": bson.A{
					bson.M{"$eq": bson.A{bson.M{"$ifNull": bson.A{"$" + s.Path, nil}}, nil}},
					nullRank, nonNullRank,
				},
			}})
			sortDoc = append(sortDoc, bson.E{Key: rankKey, Value: 1})
		}
		dir := -1
		if s.Ascending {
			dir = 1
		}
		sortDoc = append(sortDoc, bson.E{Key: s.Path, Value: dir})
	}

	stages := make([]bson.D, 0, 2)
	if len(addFields) > 0 {
		stages = append(stages, bson.D{{Key: "$addFields", Value: addFields}})
	}
	stages = append(stages, bson.D{{Key: "$sort", Value: sortDoc}})
	return stages
}

func hasAggregate(selects map[string]querybuilder.Expression) bool {
	for _, e := range selects {
		if _, ok := e.(aggregateExpr); ok {
			return true
		}
	}
	return false
}

type tuple struct {
	doc bson.M
}

func (t *tuple) Get(alias string) (any, bool) {
	v, ok := t.doc[alias]
	return v, ok
}

func (t *tuple) Aliases() []string {
	out := make([]string, 0, len(t.doc))
	for k := range t.doc {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type iterator struct {
	cursor *mongo.Cursor
}

func (it *iterator) Next(ctx context.Context) (querybuilder.Tuple, error) {
	if !it.cursor.Next(ctx) {
		if err := it.cursor.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	var doc bson.M
	if err := it.cursor.Decode(&doc); err != nil {
		return nil, fmt.Errorf("mongoquery: decode: %w", err)
	}
	return &tuple{doc: doc}, nil
}

func (it *iterator) Close() error {
	return it.cursor.Close(context.Background())
}

// --- Expressions ---

type fieldExpr string

type litExpr struct{ value any }

type funcExpr struct {
	name string
	args []querybuilder.Expression
}

type aggregateExpr struct {
	op    string
	inner querybuilder.Expression
}

func (a aggregateExpr) accumulator() bson.M {
	switch a.op {
	case "COUNT":
		return bson.M{"$sum": 1}
	case "COUNT_DISTINCT":
		return bson.M{"$addToSet": renderExpr(a.inner)}
	default:
		return bson.M{mongoAccumulator(a.op): renderExpr(a.inner)}
	}
}

func mongoAccumulator(op string) string {
	switch op {
	case "SUM":
		return "$sum"
	case "AVG":
		return "$avg"
	case "MIN":
		return "$min"
	case "MAX":
		return "$max"
	default:
		return "$sum"
	}
}

func renderExpr(e querybuilder.Expression) any {
	switch v := e.(type) {
	case fieldExpr:
		return "$" + string(v)
	case litExpr:
		return v.value
	case funcExpr:
		args := make(bson.A, len(v.args))
		for i, a := range v.args {
			args[i] = renderExpr(a)
		}
		return bson.M{v.name: args}
	case aggregateExpr:
		return renderExpr(v.inner)
	default:
		return nil
	}
}

// --- CriteriaBuilder ---

type criteriaBuilder struct{}

func (criteriaBuilder) Field(p querybuilder.Path) querybuilder.Expression {
	return fieldExpr(fieldName(p))
}

func (criteriaBuilder) Literal(value any) querybuilder.Expression {
	return litExpr{value: value}
}

func (criteriaBuilder) Function(name string, args ...querybuilder.Expression) querybuilder.Expression {
	return funcExpr{name: "$" + strings.ToLower(name), args: args}
}

func (criteriaBuilder) Sum(e querybuilder.Expression) querybuilder.Expression {
	return aggregateExpr{op: "SUM", inner: e}
}
func (criteriaBuilder) Avg(e querybuilder.Expression) querybuilder.Expression {
	return aggregateExpr{op: "AVG", inner: e}
}
func (criteriaBuilder) Min(e querybuilder.Expression) querybuilder.Expression {
	return aggregateExpr{op: "MIN", inner: e}
}
func (criteriaBuilder) Max(e querybuilder.Expression) querybuilder.Expression {
	return aggregateExpr{op: "MAX", inner: e}
}
func (criteriaBuilder) Count(e querybuilder.Expression) querybuilder.Expression {
	return aggregateExpr{op: "COUNT", inner: e}
}
func (criteriaBuilder) CountDistinct(e querybuilder.Expression) querybuilder.Expression {
	return aggregateExpr{op: "COUNT_DISTINCT", inner: e}
}

func (criteriaBuilder) Equal(p querybuilder.Path, value any) querybuilder.Predicate {
	return bson.M{fieldName(p): bson.M{"$eq": value}}
}

func (criteriaBuilder) NotEqual(p querybuilder.Path, value any) querybuilder.Predicate {
	return bson.M{fieldName(p): bson.M{"$ne": value}}
}

func (criteriaBuilder) GreaterThan(p querybuilder.Path, value any) querybuilder.Predicate {
	return bson.M{fieldName(p): bson.M{"$gt": value}}
}

func (criteriaBuilder) GreaterThanOrEqual(p querybuilder.Path, value any) querybuilder.Predicate {
	return bson.M{fieldName(p): bson.M{"$gte": value}}
}

func (criteriaBuilder) LessThan(p querybuilder.Path, value any) querybuilder.Predicate {
	return bson.M{fieldName(p): bson.M{"$lt": value}}
}

func (criteriaBuilder) LessThanOrEqual(p querybuilder.Path, value any) querybuilder.Predicate {
	return bson.M{fieldName(p): bson.M{"$lte": value}}
}

func (criteriaBuilder) Like(p querybuilder.Path, pattern string) querybuilder.Predicate {
	return bson.M{fieldName(p): bson.M{"$regex": globToRegex(pattern), "$options": "i"}}
}

func (criteriaBuilder) NotLike(p querybuilder.Path, pattern string) querybuilder.Predicate {
	return bson.M{fieldName(p): bson.M{"$not": bson.M{"$regex": globToRegex(pattern), "$options": "i"}}}
}

func (criteriaBuilder) Between(p querybuilder.Path, lower, upper any) querybuilder.Predicate {
	return bson.M{fieldName(p): bson.M{"$gte": lower, "$lte": upper}}
}

func (criteriaBuilder) In(p querybuilder.Path, values []any) querybuilder.Predicate {
	return bson.M{fieldName(p): bson.M{"$in": values}}
}

func (criteriaBuilder) NotIn(p querybuilder.Path, values []any) querybuilder.Predicate {
	return bson.M{fieldName(p): bson.M{"$nin": values}}
}

func (criteriaBuilder) IsNull(p querybuilder.Path) querybuilder.Predicate {
	return bson.M{fieldName(p): bson.M{"$eq": nil}}
}

func (criteriaBuilder) IsNotNull(p querybuilder.Path) querybuilder.Predicate {
	return bson.M{fieldName(p): bson.M{"$ne": nil}}
}

func (criteriaBuilder) And(preds ...querybuilder.Predicate) querybuilder.Predicate {
	arr := bson.A{}
	for _, p := range preds {
		arr = append(arr, p.(bson.M))
	}
	return bson.M{"$and": arr}
}

func (criteriaBuilder) Or(preds ...querybuilder.Predicate) querybuilder.Predicate {
	arr := bson.A{}
	for _, p := range preds {
		arr = append(arr, p.(bson.M))
	}
	return bson.M{"$or": arr}
}

func (criteriaBuilder) Not(p querybuilder.Predicate) querybuilder.Predicate {
	return bson.M{"$nor": bson.A{p.(bson.M)}}
}

func (criteriaBuilder) Conjunction() querybuilder.Predicate { return bson.M{} }

func (criteriaBuilder) Disjunction() querybuilder.Predicate {
	return bson.M{"$nor": bson.A{bson.M{}}}
}

func globToRegex(pattern string) string {
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
	return b.String()
}
