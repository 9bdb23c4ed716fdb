package projection

import (
	"unicode"

	"github.com/filterql/filterql/errorsx"
	"github.com/filterql/filterql/internal/types"
)

// BuildPlan builds the level-ordered ExecutionPlan for rootEntity given
// the parsed projection fields (spec.md §4.6, component C9). An empty
// fields slice requests the default projection: every scalar,
// non-nested, non-collection direct mapping, plus every declared
// computed field.
func BuildPlan(metadata types.MetadataRegistry, rootEntity types.EntityType, fields []types.ProjectionField, ignoreCase bool) (*types.ExecutionPlan, error) {
	rootMeta, ok := metadata.GetMetadataFor(rootEntity)
	if !ok {
		return nil, errorsx.NewProjectionDefinitionError("no projection metadata registered for entity %q", rootEntity)
	}

	b := &planBuilder{metadata: metadata, ignoreCase: ignoreCase, collectionOpts: map[string]types.CollectionOptions{}}

	schema := types.NewFieldSchema()
	var levels []CollectionLevelBuilder

	if len(fields) == 0 {
		b.applyDefaults(schema, rootMeta, &levels, 0)
	} else {
		grouped := groupByTopSegment(fields)
		requestedComputed, err := b.applyRequested(schema, rootMeta, rootEntity, grouped, &levels, 0)
		if err != nil {
			return nil, err
		}
		if err := b.applyComputed(schema, rootMeta, requestedComputed); err != nil {
			return nil, err
		}
	}

	return &types.ExecutionPlan{
		RootEntity:   rootEntity,
		RootIDFields: rootMeta.IDFields,
		RootSchema:   schema,
		RootComputed: rootMeta.Computed,
		Levels:       flattenLevels(levels),
	}, nil
}

type planBuilder struct {
	metadata       types.MetadataRegistry
	ignoreCase     bool
	collectionOpts map[string]types.CollectionOptions
}

// CollectionLevelBuilder accumulates CollectionNodes for one BFS depth
// while the plan is under construction.
type CollectionLevelBuilder struct {
	Depth int
	Nodes []*types.CollectionNode
}

func flattenLevels(levels []CollectionLevelBuilder) []types.CollectionLevel {
	maxDepth := -1
	for _, l := range levels {
		if l.Depth > maxDepth {
			maxDepth = l.Depth
		}
	}
	out := make([]types.CollectionLevel, maxDepth+1)
	for _, l := range levels {
		out[l.Depth].Nodes = append(out[l.Depth].Nodes, l.Nodes...)
	}
	return out
}

func addLevelNode(levels *[]CollectionLevelBuilder, depth int, node *types.CollectionNode) {
	for i := range *levels {
		if (*levels)[i].Depth == depth {
			(*levels)[i].Nodes = append((*levels)[i].Nodes, node)
			return
		}
	}
	*levels = append(*levels, CollectionLevelBuilder{Depth: depth, Nodes: []*types.CollectionNode{node}})
}

// applyDefaults selects every scalar, non-nested, non-collection direct
// mapping plus every computed field, with no nested collections expanded
// (spec.md §4.5, "omitted projection").
func (b *planBuilder) applyDefaults(schema *types.FieldSchema, meta types.ProjectionMetadata, levels *[]CollectionLevelBuilder, depth int) {
	for _, dm := range meta.DirectMappings {
		if dm.IsCollection || dm.IsNested {
			continue
		}
		schema.AddSlot(dm.EntityField, dm.DTOField, types.SlotSQL)
	}
	for _, cf := range meta.Computed {
		b.addComputedSlots(schema, cf)
	}
}

// groupByTopSegment partitions requested fields by the first path
// segment, so siblings under the same nested/collection prefix are
// processed together (conflict detection requires this).
func groupByTopSegment(fields []types.ProjectionField) map[string][]types.ProjectionField {
	out := make(map[string][]types.ProjectionField)
	for _, f := range fields {
		if len(f.Path) == 0 {
			out[""] = append(out[""], f)
			continue
		}
		top := f.Path[0].Name
		out[top] = append(out[top], f)
	}
	return out
}

// applyRequested resolves grouped projection fields against meta, adding
// direct-mapping slots (and recursing into nested/collection paths), and
// returns the set of computed-field DTO names that were named directly in
// the request (spec.md §4.6 step 4, "for each computed field in the
// requested projection") so the caller can restrict applyComputed to
// exactly those fields instead of adding every declared one.
func (b *planBuilder) applyRequested(schema *types.FieldSchema, meta types.ProjectionMetadata, entity types.EntityType, grouped map[string][]types.ProjectionField, levels *[]CollectionLevelBuilder, depth int) (map[string]bool, error) {
	requestedComputed := map[string]bool{}

	// Fields with no path (bare leaf list) select directly off this level.
	for _, f := range grouped[""] {
		for _, leaf := range f.Fields {
			if dm, ok := findMapping(meta, leaf); ok {
				schema.AddSlot(dm.EntityField, dm.DTOField, types.SlotSQL)
				continue
			}
			if cf, ok := findComputed(meta, leaf); ok {
				requestedComputed[cf.DTOField] = true
				continue
			}
			return nil, errorsx.NewProjectionDefinitionError("unresolvable projection field %q on entity %q", leaf, entity)
		}
	}

	for top, group := range grouped {
		if top == "" {
			continue
		}
		dm, ok := findMapping(meta, top)
		if !ok {
			return nil, errorsx.NewProjectionDefinitionError("unresolvable projection path segment %q on entity %q", top, entity)
		}

		if !dm.IsCollection {
			// Nested non-collection object: recurse into the same level,
			// stripping the leading segment.
			childMeta, ok := b.metadata.GetMetadataFor(dm.ElementEntity)
			if !ok {
				// No nested metadata registered: treat remaining fields as
				// already-flattened entity paths under this prefix.
				for _, f := range group {
					for _, leaf := range f.Fields {
						alias := dm.DTOField + "." + leaf
						schema.AddSlot(dm.EntityField+"."+leaf, alias, types.SlotSQL)
					}
				}
				continue
			}
			stripped := stripTopSegment(group)
			childComputed, err := b.applyRequested(schema, childMeta, dm.ElementEntity, groupByTopSegment(stripped), levels, depth)
			if err != nil {
				return nil, err
			}
			if err := b.applyComputed(schema, childMeta, childComputed); err != nil {
				return nil, err
			}
			continue
		}

		// Collection: every reference to this path must carry identical
		// options (spec.md §4.5 constraints).
		opts := types.DefaultCollectionOptions()
		for _, f := range group {
			if f.Path[0].Options != nil {
				opts = *f.Path[0].Options
				break
			}
		}
		for _, f := range group {
			if f.Path[0].Options != nil && !f.Path[0].Options.Equal(opts) {
				return nil, errorsx.NewProjectionDefinitionError("conflicting collection options for path %q", top)
			}
		}

		childMeta, ok := b.metadata.GetMetadataFor(dm.ElementEntity)
		if !ok {
			return nil, errorsx.NewProjectionDefinitionError("no projection metadata registered for collection element entity %q", dm.ElementEntity)
		}

		childSchema := types.NewFieldSchema()
		stripped := stripTopSegment(group)
		childComputed, err := b.applyRequested(childSchema, childMeta, dm.ElementEntity, groupByTopSegment(stripped), levels, depth+1)
		if err != nil {
			return nil, err
		}
		if err := b.applyComputed(childSchema, childMeta, childComputed); err != nil {
			return nil, err
		}

		node := &types.CollectionNode{
			CollectionPath:       top,
			ElementType:          dm.ElementEntity,
			ParentReferenceField: parentReferenceField(entity),
			IDFields:             childMeta.IDFields,
			Options:              opts,
			Schema:               childSchema,
			Computed:             childMeta.Computed,
		}
		for _, slot := range childSchema.Slots {
			if slot.Status == types.SlotSQL {
				node.FieldsToSelect = append(node.FieldsToSelect, types.DirectMapping{
					EntityField: slot.EntityField, DTOField: slot.DTOAlias,
				})
			}
		}
		for _, s := range opts.Sort {
			node.SortFields = append(node.SortFields, types.SortBy{Field: s.Field, Ascending: s.Ascending})
		}

		schema.AddSlot("", top, types.SlotSQLIgnoreCollection)
		addLevelNode(levels, depth, node)
	}
	return requestedComputed, nil
}

func (b *planBuilder) applyComputed(schema *types.FieldSchema, meta types.ProjectionMetadata, only map[string]bool) error {
	for _, cf := range meta.Computed {
		if only != nil && !only[cf.DTOField] {
			continue
		}
		b.addComputedSlots(schema, cf)
	}
	return nil
}

// addComputedSlots adds SQL_ONLY dependency slots and one SQL_IGNORE
// visible output slot for a computed field (spec.md §4.6 step 4).
func (b *planBuilder) addComputedSlots(schema *types.FieldSchema, cf types.ComputedField) {
	for _, dep := range cf.Dependencies {
		if _, exists := schema.ByEntityField(dep); !exists {
			schema.AddSlot(dep, "", types.SlotSQLOnly)
		}
	}
	schema.AddSlot("", cf.DTOField, types.SlotSQLIgnore)
}

func findMapping(meta types.ProjectionMetadata, dtoField string) (types.DirectMapping, bool) {
	for _, dm := range meta.DirectMappings {
		if dm.DTOField == dtoField {
			return dm, true
		}
	}
	return types.DirectMapping{}, false
}

func findComputed(meta types.ProjectionMetadata, dtoField string) (types.ComputedField, bool) {
	for _, cf := range meta.Computed {
		if cf.DTOField == dtoField {
			return cf, true
		}
	}
	return types.ComputedField{}, false
}

func stripTopSegment(fields []types.ProjectionField) []types.ProjectionField {
	out := make([]types.ProjectionField, len(fields))
	for i, f := range fields {
		out[i] = types.ProjectionField{Path: f.Path[1:], Fields: f.Fields}
	}
	return out
}

// parentReferenceField derives the naming-convention fallback (spec.md
// §4.6 step 3c): the camel-cased parent entity name plus "Id". The
// metadata contract here does not expose an explicit mappedBy
// declaration or reverse-scan, so naming convention is the only
// resolution strategy implemented.
func parentReferenceField(parent types.EntityType) string {
	name := string(parent)
	if name == "" {
		return "parentId"
	}
	r := []rune(name)
	r[0] = unicode.ToLower(r[0])
	return string(r) + "Id"
}
