package types

// Predicate is the Phase 2 output of binding a Condition DAG against a
// concrete argument map (spec.md §4.3): every atom now carries its
// coerced, validated value, ready for a querybuilder adapter to render
// into the backend's native predicate form.
type Predicate interface {
	isPredicate()
}

// BoundAtom is a single bound comparison: ref op value.
type BoundAtom struct {
	ArgKey string
	Ref    PropertyReference
	Op     Op
	OpCode string
	Value  any
}

func (BoundAtom) isPredicate() {}

// BoundAnd is the conjunction of two bound predicates.
type BoundAnd struct {
	Left, Right Predicate
}

func (BoundAnd) isPredicate() {}

// BoundOr is the disjunction of two bound predicates.
type BoundOr struct {
	Left, Right Predicate
}

func (BoundOr) isPredicate() {}

// BoundNot is the negation of a bound predicate.
type BoundNot struct {
	Operand Predicate
}

func (BoundNot) isPredicate() {}

// BoundTautology is an always-true predicate: the bound form of a filter
// dropped by NullPolicyIgnoreFilter (spec.md §4.1, "silently drop (filter
// becomes tautology upstream)").
type BoundTautology struct{}

func (BoundTautology) isPredicate() {}
