// Package types holds the shared data model for FilterQL: operators,
// property references, filter definitions, the condition tree, the
// projection grammar's AST, and the execution-plan/row types the engine
// produces and consumes.
package types

// Op is the finite enumeration of filter operators, plus a CUSTOM escape
// hatch for operators registered at runtime (see the registry package).
type Op string

// Recognized operator codes.
const (
	EQ         Op = "EQ"
	NE         Op = "NE"
	GT         Op = "GT"
	GTE        Op = "GTE"
	LT         Op = "LT"
	LTE        Op = "LTE"
	MATCHES    Op = "MATCHES"
	NotMatches Op = "NOT_MATCHES"
	IN         Op = "IN"
	NotIn      Op = "NOT_IN"
	RANGE      Op = "RANGE"
	NotRange   Op = "NOT_RANGE"
	IsNull     Op = "IS_NULL"
	NotNull    Op = "NOT_NULL"
	CUSTOM     Op = "CUSTOM"
)

// OpSpec describes the arity and symbol rules for one operator variant.
type OpSpec struct {
	Code                 Op
	Symbol               string
	RequiresValue        bool
	SupportsMultiValues  bool
}

// specs is the canonical table of built-in operator shapes (spec.md §3).
var specs = map[Op]OpSpec{
	EQ:         {Code: EQ, Symbol: "==", RequiresValue: true},
	NE:         {Code: NE, Symbol: "!=", RequiresValue: true},
	GT:         {Code: GT, Symbol: ">", RequiresValue: true},
	GTE:        {Code: GTE, Symbol: ">=", RequiresValue: true},
	LT:         {Code: LT, Symbol: "<", RequiresValue: true},
	LTE:        {Code: LTE, Symbol: "<=", RequiresValue: true},
	MATCHES:    {Code: MATCHES, RequiresValue: true},
	NotMatches: {Code: NotMatches, RequiresValue: true},
	IN:         {Code: IN, RequiresValue: true, SupportsMultiValues: true},
	NotIn:      {Code: NotIn, RequiresValue: true, SupportsMultiValues: true},
	RANGE:      {Code: RANGE, RequiresValue: true, SupportsMultiValues: true},
	NotRange:   {Code: NotRange, RequiresValue: true, SupportsMultiValues: true},
	IsNull:     {Code: IsNull, RequiresValue: false},
	NotNull:    {Code: NotNull, RequiresValue: false},
	CUSTOM:     {Code: CUSTOM, RequiresValue: true, SupportsMultiValues: true},
}

// Spec returns the arity/shape rules for a built-in operator code. The
// second return value is false for unrecognized or custom codes — callers
// fall back to the operator registry in that case.
func Spec(op Op) (OpSpec, bool) {
	s, ok := specs[op]
	return s, ok
}

// IsNullCheck reports whether op is one of the null-check operators that
// require no value (IS_NULL, NOT_NULL).
func IsNullCheck(op Op) bool {
	return op == IsNull || op == NotNull
}

// PropertyType is the semantic class of values a PropertyReference carries.
type PropertyType string

// Recognized property types (spec.md §4.1 coercion targets).
const (
	TypeString   PropertyType = "STRING"
	TypeInt      PropertyType = "INT"
	TypeLong     PropertyType = "LONG"
	TypeFloat    PropertyType = "FLOAT"
	TypeDouble   PropertyType = "DOUBLE"
	TypeBool     PropertyType = "BOOL"
	TypeDate     PropertyType = "DATE"
	TypeDateTime PropertyType = "DATETIME"
	TypeEnum     PropertyType = "ENUM"
	TypeUUID     PropertyType = "UUID"
	TypeArray    PropertyType = "ARRAY"
)
