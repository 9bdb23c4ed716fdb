// Package querybuilder defines FilterQL's abstract criteria-style query
// builder (spec.md §6.2): the only coupling point between the core
// engine and a storage backend. Concrete adapters live under pkg/
// (pkg/memquery for tests, pkg/mongoquery for a real backend).
package querybuilder

import "context"

// Path is a navigable attribute reference rooted at a query's entity.
type Path interface {
	// Get navigates to a nested or related attribute.
	Get(field string) Path
	// Name returns the attribute path this Path resolves to, dotted.
	Name() string
}

// Predicate is an opaque boolean expression produced by a
// CriteriaBuilder and consumed by Query.Where.
type Predicate any

// Expression is an opaque scalar or aggregate expression produced by a
// CriteriaBuilder (field reference, literal, or accumulator) and
// consumed by Query.MultiSelect.
type Expression any

// NullsOrder controls where a field's null values land in a sort order,
// independent of ascending/descending direction.
type NullsOrder int

// Null placement options for OrderSpec.Nulls.
const (
	NullsNative NullsOrder = iota // backend's native placement
	NullsFirst
	NullsLast
)

// OrderSpec pairs a field path with a sort direction for Query.OrderBy.
type OrderSpec struct {
	Path      string
	Ascending bool
	Nulls     NullsOrder
}

// Tuple is one result row: a set of named, aliased values.
type Tuple interface {
	Get(alias string) (any, bool)
	Aliases() []string
}

// Query accumulates a tuple query's shape before Execute compiles and
// runs it against the backend.
type Query interface {
	// Root is the query's root bound variable.
	Root() Path
	// MultiSelect declares the aliased output expressions.
	MultiSelect(selections map[string]Expression) Query
	// Where attaches the filter predicate.
	Where(Predicate) Query
	// OrderBy attaches the sort order, applied in list order.
	OrderBy(specs ...OrderSpec) Query
	// Execute runs the query with the given offset/limit and returns an
	// iterator over result tuples. limit <= 0 means unbounded.
	Execute(ctx context.Context, offset, limit int) (TupleIterator, error)
}

// TupleIterator yields Tuples one at a time. Implementations may stream
// from the backend; callers must call Close when done.
type TupleIterator interface {
	Next(ctx context.Context) (Tuple, error) // returns (nil, io.EOF) when exhausted
	Close() error
}

// CriteriaBuilder builds Predicates and Expressions over a Query's
// paths, mirroring the JPA CriteriaBuilder shape spec.md §6.2 specifies.
type CriteriaBuilder interface {
	Equal(p Path, value any) Predicate
	NotEqual(p Path, value any) Predicate
	GreaterThan(p Path, value any) Predicate
	GreaterThanOrEqual(p Path, value any) Predicate
	LessThan(p Path, value any) Predicate
	LessThanOrEqual(p Path, value any) Predicate
	Like(p Path, pattern string) Predicate
	NotLike(p Path, pattern string) Predicate
	Between(p Path, lower, upper any) Predicate
	In(p Path, values []any) Predicate
	NotIn(p Path, values []any) Predicate
	IsNull(p Path) Predicate
	IsNotNull(p Path) Predicate

	And(preds ...Predicate) Predicate
	Or(preds ...Predicate) Predicate
	Not(p Predicate) Predicate
	Conjunction() Predicate
	Disjunction() Predicate

	Function(name string, args ...Expression) Expression
	Field(p Path) Expression
	Literal(value any) Expression

	Sum(e Expression) Expression
	Avg(e Expression) Expression
	Min(e Expression) Expression
	Max(e Expression) Expression
	Count(e Expression) Expression
	CountDistinct(e Expression) Expression
}

// Builder is the entry point an engine uses to start a tuple query
// against a given root entity, mirroring createTupleQuery(rootEntityClass)
// from spec.md §6.2.
type Builder interface {
	CreateTupleQuery(rootEntity string) Query
	CriteriaBuilder() CriteriaBuilder
}
