package coerce

import (
	"testing"

	"github.com/filterql/filterql/internal/types"
)

func TestValidate_NullChecksIgnoreValue(t *testing.T) {
	if err := Validate(types.IsNull, "anything", types.TypeString); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(types.NotNull, nil, types.TypeString); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RangeRequiresTwoElements(t *testing.T) {
	if err := Validate(types.RANGE, []any{int64(1), int64(2)}, types.TypeInt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(types.RANGE, []any{int64(1)}, types.TypeInt); err == nil {
		t.Fatal("expected error for single-element range")
	}
	if err := Validate(types.RANGE, []any{int64(1), int64(2), int64(3)}, types.TypeInt); err == nil {
		t.Fatal("expected error for three-element range")
	}
}

func TestValidate_InAcceptsScalarOrCollection(t *testing.T) {
	if err := Validate(types.IN, "solo", types.TypeString); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(types.IN, []any{"a", "b"}, types.TypeString); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(types.IN, []any{}, types.TypeString); err == nil {
		t.Fatal("expected error for empty IN collection")
	}
}

func TestValidate_EqualityRejectsEmptyCollection(t *testing.T) {
	if err := Validate(types.EQ, []any{}, types.TypeString); err == nil {
		t.Fatal("expected error for empty EQ collection")
	}
}

func TestValidate_EqualityRejectsTypeMismatch(t *testing.T) {
	if err := Validate(types.EQ, "not-an-int", types.TypeInt); err == nil {
		t.Fatal("expected error for string value against INT property")
	}
}

func TestValidate_EqualityAcceptsHomogeneousCollection(t *testing.T) {
	if err := Validate(types.EQ, []any{int64(1), int64(2)}, types.TypeInt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_CustomDeferredToRegistry(t *testing.T) {
	if err := Validate(types.CUSTOM, "whatever", types.TypeString); err != nil {
		t.Fatalf("CUSTOM validation should defer: %v", err)
	}
}

func TestValidate_NilValueRejectedForNonNullOps(t *testing.T) {
	if err := Validate(types.EQ, nil, types.TypeString); err == nil {
		t.Fatal("expected error for nil value against EQ")
	}
}
