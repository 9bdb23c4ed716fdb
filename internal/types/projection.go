package types

// SortSpec is a single sort key inside collection options (grammar §4.5).
type SortSpec struct {
	Field     string
	Ascending bool
}

// CollectionOptions are the bracketed per-collection pagination options
// parsed from `[size=..,page=..,sort=..]` (spec.md §3).
type CollectionOptions struct {
	Size int
	Page int
	Sort []SortSpec
}

// DefaultCollectionOptions mirrors CollectionOptions{size:10,page:0}.
func DefaultCollectionOptions() CollectionOptions {
	return CollectionOptions{Size: 10, Page: 0}
}

// Equal reports whether two CollectionOptions are structurally identical
// — used to detect the "same path, conflicting options" error at
// plan-building time (spec.md §4.5 constraints).
func (c CollectionOptions) Equal(o CollectionOptions) bool {
	if c.Size != o.Size || c.Page != o.Page || len(c.Sort) != len(o.Sort) {
		return false
	}
	for i := range c.Sort {
		if c.Sort[i] != o.Sort[i] {
			return false
		}
	}
	return true
}

// PathSegment is one dotted segment of a projection field-path, with the
// collection options (if any) bracketed immediately after it — grammar
// §4.5 permits options at any segment, not just the last.
type PathSegment struct {
	Name    string
	Options *CollectionOptions
}

// ProjectionField is one parsed projection request: the full dotted
// path (each segment carrying its own optional collection options) plus
// the leaf field names requested under it (spec.md §3, §4.5).
type ProjectionField struct {
	Path   []PathSegment
	Fields []string
}

// Prefix renders the path segments back to dotted notation, ignoring
// options — used for grouping/conflict-detection by path identity.
func (p ProjectionField) Prefix() string {
	names := make([]string, len(p.Path))
	for i, seg := range p.Path {
		names[i] = seg.Name
	}
	return joinDots(names)
}

func joinDots(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}
