package dsl

import (
	"testing"

	"github.com/filterql/filterql/errorsx"
	"github.com/filterql/filterql/internal/types"
)

func stubResolve(ref types.PropertyReference) ResolveRef {
	return func(argKey string, def types.FilterDefinition) (types.PropertyReference, string, error) {
		return ref, def.EffectiveOpCode(), nil
	}
}

func TestBuild_SingleAtom(t *testing.T) {
	tree := mustParse(t, "status")
	ref := types.NewPropertyReference("status", types.TypeString, "user", types.EQ)
	filters := map[string]types.FilterDefinition{
		"status": {Ref: ref, Op: types.EQ},
	}
	cond, err := Build(tree, filters, stubResolve(ref))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	atom, ok := cond.(types.Atom)
	if !ok {
		t.Fatalf("expected Atom, got %T", cond)
	}
	if atom.ArgKey != "status" {
		t.Fatalf("unexpected argKey: %s", atom.ArgKey)
	}
}

func TestBuild_AndOrNot(t *testing.T) {
	tree := mustParse(t, "a & (b | !c)")
	ref := types.NewPropertyReference("x", types.TypeString, "user", types.EQ)
	filters := map[string]types.FilterDefinition{
		"a": {Op: types.EQ}, "b": {Op: types.EQ}, "c": {Op: types.EQ},
	}
	cond, err := Build(tree, filters, stubResolve(ref))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	and, ok := cond.(types.And)
	if !ok {
		t.Fatalf("expected top-level And, got %T", cond)
	}
	if _, ok := and.Left.(types.Atom); !ok {
		t.Fatalf("expected left to be Atom, got %T", and.Left)
	}
	or, ok := and.Right.(types.Or)
	if !ok {
		t.Fatalf("expected right to be Or, got %T", and.Right)
	}
	if _, ok := or.Right.(types.Not); !ok {
		t.Fatalf("expected Or.Right to be Not, got %T", or.Right)
	}
}

func TestBuild_UndefinedArgKey(t *testing.T) {
	tree := mustParse(t, "missing")
	ref := types.NewPropertyReference("x", types.TypeString, "user", types.EQ)
	_, err := Build(tree, map[string]types.FilterDefinition{}, stubResolve(ref))
	if err == nil {
		t.Fatal("expected error for undefined argKey")
	}
	var fde *errorsx.FilterDefinitionError
	if !asFilterDefinitionError(err, &fde) {
		t.Fatalf("expected FilterDefinitionError, got %T: %v", err, err)
	}
}

func TestBuild_ShorthandAndCombinesAllFilters(t *testing.T) {
	tree := mustParse(t, "AND")
	ref := types.NewPropertyReference("x", types.TypeString, "user", types.EQ)
	filters := map[string]types.FilterDefinition{
		"b": {Op: types.EQ}, "a": {Op: types.EQ}, "c": {Op: types.EQ},
	}
	cond, err := Build(tree, filters, stubResolve(ref))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Sorted fold order: ((a & b) & c).
	outer, ok := cond.(types.And)
	if !ok {
		t.Fatalf("expected top-level And, got %T", cond)
	}
	if outer.Right.(types.Atom).ArgKey != "c" {
		t.Fatalf("expected rightmost fold to be %q, got %q", "c", outer.Right.(types.Atom).ArgKey)
	}
	inner, ok := outer.Left.(types.And)
	if !ok {
		t.Fatalf("expected nested And, got %T", outer.Left)
	}
	if inner.Left.(types.Atom).ArgKey != "a" || inner.Right.(types.Atom).ArgKey != "b" {
		t.Fatalf("expected sorted fold order a, b; got %q, %q", inner.Left.(types.Atom).ArgKey, inner.Right.(types.Atom).ArgKey)
	}
}

func TestBuild_ShorthandOrCombinesAllFilters(t *testing.T) {
	tree := mustParse(t, "OR")
	ref := types.NewPropertyReference("x", types.TypeString, "user", types.EQ)
	filters := map[string]types.FilterDefinition{
		"a": {Op: types.EQ}, "b": {Op: types.EQ},
	}
	cond, err := Build(tree, filters, stubResolve(ref))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cond.(types.Or); !ok {
		t.Fatalf("expected Or, got %T", cond)
	}
}

func TestBuild_ShorthandNotNegatesAndOfAll(t *testing.T) {
	tree := mustParse(t, "NOT")
	ref := types.NewPropertyReference("x", types.TypeString, "user", types.EQ)
	filters := map[string]types.FilterDefinition{
		"a": {Op: types.EQ}, "b": {Op: types.EQ},
	}
	cond, err := Build(tree, filters, stubResolve(ref))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	not, ok := cond.(types.Not)
	if !ok {
		t.Fatalf("expected Not, got %T", cond)
	}
	if _, ok := not.Operand.(types.And); !ok {
		t.Fatalf("expected negated And, got %T", not.Operand)
	}
}

func TestBuild_ShorthandNoFiltersErrors(t *testing.T) {
	tree := mustParse(t, "AND")
	ref := types.NewPropertyReference("x", types.TypeString, "user", types.EQ)
	_, err := Build(tree, map[string]types.FilterDefinition{}, stubResolve(ref))
	if err == nil {
		t.Fatal("expected error when shorthand has no filters to combine")
	}
}

func asFilterDefinitionError(err error, target **errorsx.FilterDefinitionError) bool {
	fde, ok := err.(*errorsx.FilterDefinitionError)
	if ok {
		*target = fde
	}
	return ok
}
