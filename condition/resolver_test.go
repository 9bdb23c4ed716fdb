package condition

import (
	"testing"

	"github.com/filterql/filterql/errorsx"
	"github.com/filterql/filterql/internal/types"
	"github.com/filterql/filterql/registry"
)

func TestBind_SimpleAtom(t *testing.T) {
	ref := types.NewPropertyReference("age", types.TypeInt, "user", types.GT)
	cond := Atom("a", ref, "GT")

	b := NewBinder(types.DefaultFilterConfig(), registry.New())
	pred, err := b.Bind(cond, QueryExecutionParams{Arguments: map[string]any{"a": "21"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	atom, ok := pred.(types.BoundAtom)
	if !ok {
		t.Fatalf("expected BoundAtom, got %T", pred)
	}
	if atom.Value.(int64) != 21 {
		t.Fatalf("expected coerced 21, got %v", atom.Value)
	}
}

func TestBind_MissingArgKey(t *testing.T) {
	ref := types.NewPropertyReference("age", types.TypeInt, "user", types.GT)
	cond := Atom("a", ref, "GT")

	b := NewBinder(types.DefaultFilterConfig(), registry.New())
	_, err := b.Bind(cond, QueryExecutionParams{Arguments: map[string]any{}})
	if err == nil {
		t.Fatal("expected error for missing argKey")
	}
	if _, ok := err.(*errorsx.FilterDefinitionError); !ok {
		t.Fatalf("expected FilterDefinitionError, got %T", err)
	}
}

func TestBind_NullCheckIgnoresMissingArg(t *testing.T) {
	ref := types.NewPropertyReference("age", types.TypeInt, "user", types.IsNull)
	cond := Atom("a", ref, "IS_NULL")

	b := NewBinder(types.DefaultFilterConfig(), registry.New())
	pred, err := b.Bind(cond, QueryExecutionParams{Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := pred.(types.BoundAtom); !ok {
		t.Fatalf("expected BoundAtom, got %T", pred)
	}
}

func TestBind_UnsupportedOperatorRejected(t *testing.T) {
	ref := types.NewPropertyReference("age", types.TypeInt, "user", types.EQ)
	cond := Atom("a", ref, "GT") // GT not declared supported

	b := NewBinder(types.DefaultFilterConfig(), registry.New())
	_, err := b.Bind(cond, QueryExecutionParams{Arguments: map[string]any{"a": 5}})
	if err == nil {
		t.Fatal("expected error for unsupported operator")
	}
}

func TestBind_AndBothSidesValidatedBeforeErrorReturned(t *testing.T) {
	ref := types.NewPropertyReference("age", types.TypeInt, "user", types.GT)
	left := Atom("missing-left", ref, "GT")
	right := Atom("missing-right", ref, "GT")
	and := And(left, right)

	b := NewBinder(types.DefaultFilterConfig(), registry.New())
	_, err := b.Bind(and, QueryExecutionParams{Arguments: map[string]any{}})
	if err == nil {
		t.Fatal("expected error when both sides are missing their argKey")
	}
}

func TestBind_NotWrapsOperand(t *testing.T) {
	ref := types.NewPropertyReference("age", types.TypeInt, "user", types.GT)
	cond := Not(Atom("a", ref, "GT"))

	b := NewBinder(types.DefaultFilterConfig(), registry.New())
	pred, err := b.Bind(cond, QueryExecutionParams{Arguments: map[string]any{"a": 10}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := pred.(types.BoundNot); !ok {
		t.Fatalf("expected BoundNot, got %T", pred)
	}
}

type geoProvider struct{}

func (geoProvider) SupportedOperators() []string { return []string{"NEAR"} }
func (geoProvider) ToResolver(def types.FilterDefinition) (registry.PredicateResolver, error) {
	return func(types.FilterDefinition) (any, error) { return nil, nil }, nil
}

func TestBind_CustomOperatorViaRegistry(t *testing.T) {
	reg := registry.New()
	if err := reg.Register(geoProvider{}); err != nil {
		t.Fatalf("unexpected error registering provider: %v", err)
	}
	ref := types.NewPropertyReference("location", types.TypeString, "store")
	cond := Atom("a", ref, "NEAR")

	b := NewBinder(types.DefaultFilterConfig(), reg)
	pred, err := b.Bind(cond, QueryExecutionParams{Arguments: map[string]any{"a": "40,-70,5km"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	atom, ok := pred.(types.BoundAtom)
	if !ok || atom.Op != types.CUSTOM {
		t.Fatalf("expected CUSTOM BoundAtom, got %#v", pred)
	}
}

func TestBind_UnknownOperatorNoProvider(t *testing.T) {
	ref := types.NewPropertyReference("location", types.TypeString, "store")
	cond := Atom("a", ref, "NEAR")

	b := NewBinder(types.DefaultFilterConfig(), registry.New())
	_, err := b.Bind(cond, QueryExecutionParams{Arguments: map[string]any{"a": "x"}})
	if err == nil {
		t.Fatal("expected error for unregistered custom operator")
	}
}

func TestBind_NullValue_StrictExceptionByDefault(t *testing.T) {
	ref := types.NewPropertyReference("name", types.TypeString, "user", types.EQ)
	cond := Atom("a", ref, "EQ")

	b := NewBinder(types.DefaultFilterConfig(), registry.New())
	_, err := b.Bind(cond, QueryExecutionParams{Arguments: map[string]any{"a": nil}})
	if err == nil {
		t.Fatal("expected error for explicit nil value under STRICT_EXCEPTION")
	}
}

func TestBind_NullValue_CoerceToIsNull(t *testing.T) {
	ref := types.NewPropertyReference("name", types.TypeString, "user", types.EQ, types.NE)
	cfg := types.DefaultFilterConfig()
	cfg.NullValuePolicy = types.NullPolicyCoerceToIsNull

	eq := Atom("a", ref, "EQ")
	b := NewBinder(cfg, registry.New())
	pred, err := b.Bind(eq, QueryExecutionParams{Arguments: map[string]any{"a": nil}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	atom, ok := pred.(types.BoundAtom)
	if !ok || atom.Op != types.IsNull {
		t.Fatalf("expected IS_NULL BoundAtom, got %#v", pred)
	}

	ne := Atom("a", ref, "NE")
	pred, err = b.Bind(ne, QueryExecutionParams{Arguments: map[string]any{"a": nil}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	atom, ok = pred.(types.BoundAtom)
	if !ok || atom.Op != types.NotNull {
		t.Fatalf("expected NOT_NULL BoundAtom, got %#v", pred)
	}
}

func TestBind_NullValue_CoerceToIsNull_RejectsOtherOps(t *testing.T) {
	ref := types.NewPropertyReference("age", types.TypeInt, "user", types.GT)
	cfg := types.DefaultFilterConfig()
	cfg.NullValuePolicy = types.NullPolicyCoerceToIsNull
	cond := Atom("a", ref, "GT")

	b := NewBinder(cfg, registry.New())
	_, err := b.Bind(cond, QueryExecutionParams{Arguments: map[string]any{"a": nil}})
	if err == nil {
		t.Fatal("expected error for null value with GT under COERCE_TO_IS_NULL")
	}
}

func TestBind_NullValue_IgnoreFilter(t *testing.T) {
	ref := types.NewPropertyReference("name", types.TypeString, "user", types.EQ)
	cfg := types.DefaultFilterConfig()
	cfg.NullValuePolicy = types.NullPolicyIgnoreFilter
	cond := Atom("a", ref, "EQ")

	b := NewBinder(cfg, registry.New())
	pred, err := b.Bind(cond, QueryExecutionParams{Arguments: map[string]any{"a": nil}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := pred.(types.BoundTautology); !ok {
		t.Fatalf("expected BoundTautology, got %T", pred)
	}
}

func TestBind_IgnoreCase_LowersStringValue(t *testing.T) {
	ref := types.NewPropertyReference("name", types.TypeString, "user", types.EQ)
	cond := Atom("a", ref, "EQ")
	cfg := types.DefaultFilterConfig()
	cfg.IgnoreCase = true

	b := NewBinder(cfg, registry.New())
	pred, err := b.Bind(cond, QueryExecutionParams{Arguments: map[string]any{"a": "ALICE"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	atom, ok := pred.(types.BoundAtom)
	if !ok || atom.Value != "alice" {
		t.Fatalf("expected lowered value %q, got %#v", "alice", pred)
	}
}
