package types

// RowBuffer is a flat indexed record returned by a sub-query. It stores
// one value per schema slot, including internal (selected-but-not-emitted)
// slots, plus child collection slices keyed by DTO alias. RowBuffers are
// mutated only during a single execution; thereafter they are read-only
// (spec.md §3, "Lifecycles").
type RowBuffer struct {
	Schema *FieldSchema
	Values []any

	// ID is this row's identity: a scalar for single-id entities, or a
	// CompositeKey for multi-field ids (spec.md §4.8).
	ID any

	// Collections holds child rows keyed by the child's DTO alias (e.g.
	// "books" for "authors.books"). Every declared collection slot is
	// initialized to an empty slice before the fetch engine runs.
	Collections map[string][]*RowBuffer
}

// NewRowBuffer allocates a RowBuffer for schema with every collection
// slot initialized to an empty slice.
func NewRowBuffer(schema *FieldSchema, id any, collectionAliases []string) *RowBuffer {
	rb := &RowBuffer{
		Schema:      schema,
		Values:      make([]any, len(schema.Slots)),
		ID:          id,
		Collections: make(map[string][]*RowBuffer, len(collectionAliases)),
	}
	for _, alias := range collectionAliases {
		rb.Collections[alias] = []*RowBuffer{}
	}
	return rb
}

// Get returns the value stored for a DTO alias.
func (rb *RowBuffer) Get(alias string) (any, bool) {
	idx, ok := rb.Schema.ByDTOAlias(alias)
	if !ok {
		return nil, false
	}
	return rb.Values[idx], true
}

// Set stores a value for a DTO alias.
func (rb *RowBuffer) Set(alias string, value any) {
	idx, ok := rb.Schema.ByDTOAlias(alias)
	if !ok {
		return
	}
	rb.Values[idx] = value
}

// Emit renders the visible (non-internal) slots of rb into a nested
// map, splitting dotted aliases into nested objects (spec.md §6.4).
func (rb *RowBuffer) Emit() map[string]any {
	out := make(map[string]any)
	for i, slot := range rb.Schema.Slots {
		if slot.Status == SlotSQLOnly || slot.Status == SlotSQLIgnoreCollection {
			continue
		}
		if slot.DTOAlias == "" {
			continue
		}
		parts := rb.Schema.SplitAlias(slot.DTOAlias)
		setNested(out, parts, rb.Values[i])
	}
	for alias, children := range rb.Collections {
		rendered := make([]map[string]any, len(children))
		for i, c := range children {
			rendered[i] = c.Emit()
		}
		setNested(out, rb.Schema.SplitAlias(alias), rendered)
	}
	return out
}

func setNested(m map[string]any, parts []string, value any) {
	cur := m
	for i, p := range parts {
		if i == len(parts)-1 {
			cur[p] = value
			return
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
}
