package types

// EntityType is an opaque tag identifying the aggregate that owns a
// PropertyReference (spec.md §3). The schema registry assigns these; the
// core never inspects their internal shape.
type EntityType string

// PropertyReference is a symbolic filterable property. Instances are
// produced by the schema registry at startup and are immutable thereafter.
type PropertyReference struct {
	Name               string
	Type               PropertyType
	SupportedOperators map[Op]struct{}
	EntityType         EntityType

	// EnumValues, when Type == TypeEnum, lists the valid enum names.
	EnumValues []string
}

// SupportsOperator reports whether op is declared for this property.
func (p PropertyReference) SupportsOperator(op Op) bool {
	_, ok := p.SupportedOperators[op]
	return ok
}

// NewPropertyReference builds a PropertyReference with a convenient
// variadic operator list.
func NewPropertyReference(name string, typ PropertyType, entity EntityType, ops ...Op) PropertyReference {
	set := make(map[Op]struct{}, len(ops))
	for _, o := range ops {
		set[o] = struct{}{}
	}
	return PropertyReference{Name: name, Type: typ, EntityType: entity, SupportedOperators: set}
}
