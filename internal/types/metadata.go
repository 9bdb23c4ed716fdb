package types

// ReducerKind names an aggregate function applied to a computed field's
// dependency (spec.md §4.6, GLOSSARY "Reducer"). The engine applies it in
// memory over the already-fetched child rows (engine/computed.go); it is
// not pushed into the root query.
type ReducerKind string

// Recognized reducers.
const (
	ReducerSum           ReducerKind = "SUM"
	ReducerAvg           ReducerKind = "AVG"
	ReducerCount         ReducerKind = "COUNT"
	ReducerCountDistinct ReducerKind = "COUNT_DISTINCT"
	ReducerMin           ReducerKind = "MIN"
	ReducerMax           ReducerKind = "MAX"
)

// DirectMapping describes one scalar/collection/nested field a DTO
// exposes directly from the entity graph (spec.md §6.1).
type DirectMapping struct {
	DTOField      string
	EntityField   string
	DTOFieldType  PropertyType
	IsCollection  bool
	IsNested      bool
	ElementEntity EntityType // populated when IsCollection
}

// DependencyReducer attaches a reducer to one of a computed field's
// dependencies, by index into ComputedField.Dependencies.
type DependencyReducer struct {
	DependencyIndex int
	Reducer         ReducerKind
}

// ComputedField describes a DTO-visible value produced from one or more
// entity/aggregate inputs, evaluated after the fetch engine assembles a
// row (spec.md §4.6, §4.7, GLOSSARY "Computed field").
type ComputedField struct {
	DTOField     string
	Dependencies []string // entity-paths
	Reducers     []DependencyReducer
	ProviderName string // resolved via the InstanceResolver (§6.3)
	MethodName   string
}

// ProjectionMetadata is the read-only description of one root DTO class:
// its direct field mappings, its computed fields, and the entity's id
// fields (spec.md §6.1).
type ProjectionMetadata struct {
	EntityType     EntityType
	DirectMappings []DirectMapping
	Computed       []ComputedField
	IDFields       []string
}

// MetadataRegistry is the external collaborator the projection planner
// consults to resolve DTO paths to entity paths and to list the fields a
// root/child projects by default (spec.md §6.1). Implementations are
// supplied by hosts; the core only constrains this shape.
type MetadataRegistry interface {
	// GetMetadataFor returns the metadata for an entity type, or false if
	// unknown.
	GetMetadataFor(entity EntityType) (ProjectionMetadata, bool)

	// ToEntityPath resolves a dotted DTO path to its canonical entity
	// path for the given root entity type. ignoreCase controls whether
	// segment matching is case-insensitive.
	ToEntityPath(dtoPath string, root EntityType, ignoreCase bool) (string, error)
}
