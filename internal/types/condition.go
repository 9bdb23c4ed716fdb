package types

// Condition is the abstract value built by the DSL front-end: an atom
// referencing a deferred argument key, or a Boolean combination of other
// conditions. Conditions are immutable once built and freely shareable —
// they form a DAG after simplification, never a tree with duplicated
// subtrees re-allocated (spec.md §3, "Invariants").
//
// An atom carries no value, only the argKey that Phase 2 binding resolves
// against the caller's argument map. This is the "structure, then bind"
// protocol described in spec.md §4.3.
type Condition interface {
	isCondition()
}

// Atom references a single filter by argKey, plus the property and
// operator it was declared against. NO value is read at this stage.
type Atom struct {
	ArgKey string
	Ref    PropertyReference
	Op     Op
	OpCode string // raw code backing Op == CUSTOM
}

func (Atom) isCondition() {}

// And is the conjunction of two conditions.
type And struct {
	Left, Right Condition
}

func (And) isCondition() {}

// Or is the disjunction of two conditions.
type Or struct {
	Left, Right Condition
}

func (Or) isCondition() {}

// Not is the negation of a condition.
type Not struct {
	Operand Condition
}

func (Not) isCondition() {}
