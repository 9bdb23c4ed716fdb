// Package projection implements FilterQL's projection grammar parser
// and execution plan builder (spec.md §4.5/§4.6, components C8/C9): the
// compact dotted-path grammar with bracketed per-collection pagination,
// and the BFS-ordered execution plan the multi-query engine consumes.
package projection

import (
	"strconv"
	"strings"

	"github.com/filterql/filterql/errorsx"
	"github.com/filterql/filterql/internal/types"
)

// Parse parses a raw projection string list (FilterRequest.Projection,
// spec.md §6.4) into flattened ProjectionFields. Compact sibling
// expansion ("a.b,c,d" → {a.b, a.c, a.d}) is applied to the last
// segment's field-list.
func Parse(raw []string) ([]types.ProjectionField, error) {
	out := make([]types.ProjectionField, 0, len(raw))
	for _, r := range raw {
		field, err := parseOne(r)
		if err != nil {
			return nil, err
		}
		out = append(out, field)
	}
	return out, nil
}

func parseOne(raw string) (types.ProjectionField, error) {
	p := &fieldParser{input: raw}
	var segments []types.PathSegment

	for {
		name, err := p.readIdent()
		if err != nil {
			return types.ProjectionField{}, err
		}
		opts, err := p.tryReadOptions()
		if err != nil {
			return types.ProjectionField{}, err
		}
		segments = append(segments, types.PathSegment{Name: name, Options: opts})

		if !p.consume('.') {
			break
		}
	}

	// The final comma-separated run after the last dot is the field-list;
	// the parser above greedily consumed one identifier as part of the
	// path, so re-derive: everything after the LAST dot that is itself a
	// comma-separated identifier list (with no further dots) is the
	// field-list, and the segment chain up to that point is the prefix.
	fields, path, err := splitFieldList(segments, p)
	if err != nil {
		return types.ProjectionField{}, err
	}

	return types.ProjectionField{Path: path, Fields: fields}, nil
}

// splitFieldList reinterprets the trailing portion of a parsed raw
// string. Because "a.b,c,d" parses one identifier at a time, the last
// segment read (before any dangling commas) is actually the first of
// the sibling field-list; remaining comma-separated identifiers were
// captured into p.siblings by readIdent.
func splitFieldList(segments []types.PathSegment, p *fieldParser) ([]string, []types.PathSegment, error) {
	if len(segments) == 0 {
		return nil, nil, errorsx.NewProjectionDefinitionError("empty projection field")
	}
	last := segments[len(segments)-1]
	fields := append([]string{last.Name}, p.siblings...)
	return fields, segments[:len(segments)-1], nil
}

type fieldParser struct {
	input    string
	pos      int
	siblings []string
}

func (p *fieldParser) readIdent() (string, error) {
	start := p.pos
	for p.pos < len(p.input) && isIdentRune(rune(p.input[p.pos])) {
		p.pos++
	}
	if p.pos == start {
		return "", errorsx.NewProjectionDefinitionError("expected identifier at position %d in %q", start, p.input)
	}
	ident := p.input[start:p.pos]

	// Trailing comma-separated siblings belong to the final field-list;
	// collect them here so the caller can fold them in once the whole
	// path has been walked.
	for p.pos < len(p.input) && p.input[p.pos] == ',' {
		p.pos++
		s2 := p.pos
		for p.pos < len(p.input) && isIdentRune(rune(p.input[p.pos])) {
			p.pos++
		}
		if p.pos == s2 {
			return "", errorsx.NewProjectionDefinitionError("expected identifier after ',' in %q", p.input)
		}
		p.siblings = append(p.siblings, p.input[s2:p.pos])
	}
	return ident, nil
}

func isIdentRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

func (p *fieldParser) consume(c byte) bool {
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *fieldParser) tryReadOptions() (*types.CollectionOptions, error) {
	if p.pos >= len(p.input) || p.input[p.pos] != '[' {
		return nil, nil
	}
	p.pos++
	opts := types.DefaultCollectionOptions()
	seenSize, seenPage := false, false

	for {
		key, err := p.readKey()
		if err != nil {
			return nil, err
		}
		if !p.consume('=') {
			return nil, errorsx.NewProjectionDefinitionError("expected '=' after option key %q in %q", key, p.input)
		}
		switch key {
		case "size":
			n, err := p.readInt()
			if err != nil {
				return nil, err
			}
			if n < 1 || n > types.MaxSize {
				return nil, errorsx.NewProjectionDefinitionError("size %d out of range [1,%d]", n, types.MaxSize)
			}
			opts.Size = n
			seenSize = true
		case "page":
			n, err := p.readInt()
			if err != nil {
				return nil, err
			}
			if n < 0 {
				return nil, errorsx.NewProjectionDefinitionError("page must be >= 0, got %d", n)
			}
			opts.Page = n
			seenPage = true
		case "sort":
			specs, err := p.readSortSpecs()
			if err != nil {
				return nil, err
			}
			opts.Sort = specs
		default:
			return nil, errorsx.NewProjectionDefinitionError("unrecognized collection option %q", key)
		}

		if p.consume(',') {
			continue
		}
		break
	}
	if !p.consume(']') {
		return nil, errorsx.NewProjectionDefinitionError("missing closing ']' in %q", p.input)
	}
	_ = seenSize
	_ = seenPage
	return &opts, nil
}

func (p *fieldParser) readKey() (string, error) {
	start := p.pos
	for p.pos < len(p.input) && isIdentRune(rune(p.input[p.pos])) {
		p.pos++
	}
	if p.pos == start {
		return "", errorsx.NewProjectionDefinitionError("expected option key at position %d in %q", start, p.input)
	}
	return p.input[start:p.pos], nil
}

func (p *fieldParser) readInt() (int, error) {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, errorsx.NewProjectionDefinitionError("expected integer at position %d in %q", start, p.input)
	}
	return strconv.Atoi(p.input[start:p.pos])
}

func (p *fieldParser) readSortSpecs() ([]types.SortSpec, error) {
	var specs []types.SortSpec
	for {
		field, err := p.readKey()
		if err != nil {
			return nil, err
		}
		if !p.consume(':') {
			return nil, errorsx.NewProjectionDefinitionError("expected ':' in sort spec for field %q", field)
		}
		dirStart := p.pos
		for p.pos < len(p.input) && isIdentRune(rune(p.input[p.pos])) {
			p.pos++
		}
		dir := strings.ToLower(p.input[dirStart:p.pos])
		var asc bool
		switch dir {
		case "asc":
			asc = true
		case "desc":
			asc = false
		default:
			return nil, errorsx.NewProjectionDefinitionError("sort direction must be 'asc' or 'desc', got %q", dir)
		}
		specs = append(specs, types.SortSpec{Field: field, Ascending: asc})
		if p.pos < len(p.input) && p.input[p.pos] == ',' {
			// Could be another sort-spec OR the option separator — peek
			// ahead for a ':' before the next ']'/','/end to disambiguate.
			if isAnotherSortSpec(p.input[p.pos+1:]) {
				p.pos++
				continue
			}
		}
		break
	}
	return specs, nil
}

// isAnotherSortSpec reports whether the text immediately following a
// comma looks like "ident:asc|desc" rather than the next bracketed
// option (e.g. "page=1").
func isAnotherSortSpec(rest string) bool {
	colon := strings.IndexByte(rest, ':')
	eq := strings.IndexByte(rest, '=')
	if colon < 0 {
		return false
	}
	if eq >= 0 && eq < colon {
		return false
	}
	return true
}
