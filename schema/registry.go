// Package schema adapts a github.com/zoobzio/ddml schema into FilterQL's
// two read-only external contracts: a PropertyReference source for the
// condition binder, and a types.MetadataRegistry for the projection
// planner (spec.md §6.1). It is grounded on the teacher's instance.go,
// which performed the same DDML-walking and identifier-validation work
// for a different purpose (query-builder field references).
package schema

import (
	"fmt"
	"strings"

	"github.com/zoobzio/ddml"

	"github.com/filterql/filterql/internal/types"
)

// Registry indexes a ddml.Schema's collections and fields for O(1)
// PropertyReference and ProjectionMetadata lookups. Each ddml collection
// becomes one types.EntityType; nested arrays-of-objects become
// synthetic entity types named "<collection>.<path>" so the projection
// planner can recurse into them like any other collection.
type Registry struct {
	ddmlSchema  *ddml.Schema
	collections map[string]*ddml.Collection
	fields      map[string]map[string]*ddml.Field
	metadata    map[types.EntityType]types.ProjectionMetadata
	computed    map[types.EntityType][]types.ComputedField
}

// NewFromDDML builds a Registry over schema, indexing every collection's
// fields (including nested objects and array-of-object elements)
// recursively, the same traversal the teacher's DOCQL.indexFields does.
func NewFromDDML(ddmlSchema *ddml.Schema) (*Registry, error) {
	if ddmlSchema == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}

	r := &Registry{
		ddmlSchema:  ddmlSchema,
		collections: make(map[string]*ddml.Collection),
		fields:      make(map[string]map[string]*ddml.Field),
		metadata:    make(map[types.EntityType]types.ProjectionMetadata),
		computed:    make(map[types.EntityType][]types.ComputedField),
	}

	for name, coll := range ddmlSchema.Collections {
		r.collections[name] = coll
		r.fields[name] = make(map[string]*ddml.Field)
		r.indexFields(types.EntityType(name), "", coll.Fields)
	}
	for name := range ddmlSchema.Collections {
		r.buildMetadata(types.EntityType(name))
	}
	return r, nil
}

func (r *Registry) indexFields(entity types.EntityType, prefix string, fields []*ddml.Field) {
	collName := string(entity)
	for _, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		r.fields[collName][path] = f

		if f.Type == ddml.TypeObject && len(f.Fields) > 0 {
			r.indexFields(entity, path, f.Fields)
		}
		if f.Type == ddml.TypeArray && f.ArrayOf != nil && f.ArrayOf.Type == ddml.TypeObject {
			childEntity := types.EntityType(collName + "." + path)
			r.fields[string(childEntity)] = make(map[string]*ddml.Field)
			r.indexFields(childEntity, "", f.ArrayOf.Fields)
		}
	}
}

// buildMetadata derives a ProjectionMetadata for entity from its indexed
// ddml fields. Top-level (non-dotted) fields become DirectMappings;
// arrays-of-objects become collection mappings pointing at the
// synthetic child entity type registered by indexFields.
func (r *Registry) buildMetadata(entity types.EntityType) {
	collName := string(entity)
	coll, ok := r.collections[collName]
	var topFields []*ddml.Field
	if ok {
		topFields = coll.Fields
	} else {
		// Synthetic child entity (array-of-object element): its "top"
		// fields are whatever was indexed under "" for that entity.
		for path, f := range r.fields[collName] {
			if !strings.Contains(path, ".") {
				topFields = append(topFields, f)
			}
		}
	}

	var mappings []types.DirectMapping
	idFields := idFieldsFor(topFields)
	for _, f := range topFields {
		mappings = append(mappings, mappingFor(collName, "", f)...)
	}

	r.metadata[entity] = types.ProjectionMetadata{
		EntityType:     entity,
		DirectMappings: mappings,
		Computed:       r.computed[entity],
		IDFields:       idFields,
	}

	// Recurse into any synthetic child entities this entity's array
	// fields introduced, so their metadata is available too.
	for _, f := range topFields {
		if f.Type == ddml.TypeArray && f.ArrayOf != nil && f.ArrayOf.Type == ddml.TypeObject {
			r.buildMetadata(types.EntityType(collName + "." + f.Name))
		}
	}
}

func mappingFor(collName, prefix string, f *ddml.Field) []types.DirectMapping {
	dtoField := f.Name
	if prefix != "" {
		dtoField = prefix + "." + f.Name
	}

	switch {
	case f.Type == ddml.TypeArray && f.ArrayOf != nil && f.ArrayOf.Type == ddml.TypeObject:
		return []types.DirectMapping{{
			DTOField:      dtoField,
			EntityField:   dtoField,
			DTOFieldType:  types.TypeArray,
			IsCollection:  true,
			ElementEntity: types.EntityType(collName + "." + f.Name),
		}}
	case f.Type == ddml.TypeObject && len(f.Fields) > 0:
		var out []types.DirectMapping
		for _, nested := range f.Fields {
			for _, m := range mappingFor(collName, dtoField, nested) {
				m.IsNested = true
				out = append(out, m)
			}
		}
		return out
	default:
		return []types.DirectMapping{{
			DTOField:     dtoField,
			EntityField:  dtoField,
			DTOFieldType: propertyType(f.Type),
		}}
	}
}

func idFieldsFor(fields []*ddml.Field) []string {
	for _, f := range fields {
		if f.Name == "_id" || f.Type == ddml.TypeObjectID {
			return []string{f.Name}
		}
	}
	for _, f := range fields {
		if f.Name == "id" {
			return []string{f.Name}
		}
	}
	return nil
}

// RegisterComputed attaches host-supplied computed-field declarations to
// an entity's metadata. DDML schemas describe raw data shape only;
// computed fields are a projection-layer concern supplied by the host
// (spec.md §6.1), so they are layered on after construction.
func (r *Registry) RegisterComputed(entity types.EntityType, fields ...types.ComputedField) {
	r.computed[entity] = append(r.computed[entity], fields...)
	meta := r.metadata[entity]
	meta.Computed = r.computed[entity]
	r.metadata[entity] = meta
}

// GetMetadataFor implements types.MetadataRegistry.
func (r *Registry) GetMetadataFor(entity types.EntityType) (types.ProjectionMetadata, bool) {
	m, ok := r.metadata[entity]
	return m, ok
}

// ToEntityPath implements types.MetadataRegistry. Since this registry's
// DTO fields and entity fields are identical dotted paths by
// construction, resolution is validation rather than translation.
func (r *Registry) ToEntityPath(dtoPath string, root types.EntityType, ignoreCase bool) (string, error) {
	fields, ok := r.fields[string(root)]
	if !ok {
		return "", fmt.Errorf("entity %q not found in schema", root)
	}
	if _, ok := fields[dtoPath]; ok {
		return dtoPath, nil
	}
	if ignoreCase {
		lower := strings.ToLower(dtoPath)
		for path := range fields {
			if strings.ToLower(path) == lower {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("field %q not found on entity %q", dtoPath, root)
}

// PropertyRef builds a PropertyReference for a field path on entity,
// deriving its supported operators from the DDML field type.
func (r *Registry) PropertyRef(entity types.EntityType, path string) (types.PropertyReference, error) {
	fields, ok := r.fields[string(entity)]
	if !ok {
		return types.PropertyReference{}, fmt.Errorf("entity %q not found in schema", entity)
	}
	f, ok := fields[path]
	if !ok {
		return types.PropertyReference{}, fmt.Errorf("field %q not found on entity %q", path, entity)
	}
	pt := propertyType(f.Type)
	return types.NewPropertyReference(path, pt, entity, operatorsFor(pt)...), nil
}

func propertyType(t ddml.FieldType) types.PropertyType {
	switch t {
	case ddml.TypeString:
		return types.TypeString
	case ddml.TypeInt:
		return types.TypeInt
	case ddml.TypeFloat:
		return types.TypeFloat
	case ddml.TypeBool:
		return types.TypeBool
	case ddml.TypeDate:
		return types.TypeDateTime
	case ddml.TypeObjectID:
		return types.TypeUUID
	case ddml.TypeArray:
		return types.TypeArray
	default:
		return types.TypeString
	}
}

func operatorsFor(pt types.PropertyType) []types.Op {
	switch pt {
	case types.TypeString, types.TypeUUID, types.TypeEnum:
		return []types.Op{types.EQ, types.NE, types.MATCHES, types.NotMatches, types.IN, types.NotIn, types.IsNull, types.NotNull}
	case types.TypeInt, types.TypeLong, types.TypeFloat, types.TypeDouble, types.TypeDate, types.TypeDateTime:
		return []types.Op{types.EQ, types.NE, types.GT, types.GTE, types.LT, types.LTE, types.RANGE, types.NotRange, types.IN, types.NotIn, types.IsNull, types.NotNull}
	case types.TypeBool:
		return []types.Op{types.EQ, types.NE, types.IsNull, types.NotNull}
	case types.TypeArray:
		return []types.Op{types.IN, types.NotIn, types.IsNull, types.NotNull}
	default:
		return []types.Op{types.EQ, types.NE, types.IsNull, types.NotNull}
	}
}
