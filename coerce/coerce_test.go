package coerce

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/filterql/filterql/internal/types"
)

func TestValue_ScalarInt(t *testing.T) {
	v, err := Value("42", types.TypeInt, types.DefaultFilterConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(int64) != 42 {
		t.Fatalf("want 42, got %v", v)
	}
}

func TestValue_IntFromFloatExact(t *testing.T) {
	v, err := Value(float64(7), types.TypeInt, types.DefaultFilterConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(int64) != 7 {
		t.Fatalf("want 7, got %v", v)
	}
}

func TestValue_IntFromFloatInexact(t *testing.T) {
	_, err := Value(7.5, types.TypeInt, types.DefaultFilterConfig(), nil)
	if err == nil {
		t.Fatal("expected error for non-exact float->int coercion")
	}
}

func TestValue_CommaSeparatedCollection(t *testing.T) {
	v, err := Value("a, b, c", types.TypeString, types.DefaultFilterConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, ok := v.([]any)
	if !ok || len(items) != 3 {
		t.Fatalf("want 3-element collection, got %#v", v)
	}
	if items[0] != "a" || items[1] != "b" || items[2] != "c" {
		t.Fatalf("unexpected elements: %#v", items)
	}
}

func TestValue_Bool(t *testing.T) {
	for _, in := range []any{"true", "yes", "1", true} {
		v, err := Value(in, types.TypeBool, types.DefaultFilterConfig(), nil)
		if err != nil {
			t.Fatalf("unexpected error for %v: %v", in, err)
		}
		if v.(bool) != true {
			t.Fatalf("want true for %v, got %v", in, v)
		}
	}
	for _, in := range []any{"false", "no", "0", false} {
		v, err := Value(in, types.TypeBool, types.DefaultFilterConfig(), nil)
		if err != nil {
			t.Fatalf("unexpected error for %v: %v", in, err)
		}
		if v.(bool) != false {
			t.Fatalf("want false for %v, got %v", in, v)
		}
	}
}

func TestValue_BoolInvalid(t *testing.T) {
	if _, err := Value("maybe", types.TypeBool, types.DefaultFilterConfig(), nil); err == nil {
		t.Fatal("expected error for unparseable boolean")
	}
}

func TestValue_DateRFC3339(t *testing.T) {
	v, err := Value("2026-07-30T12:00:00Z", types.TypeDateTime, types.DefaultFilterConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tm, ok := v.(time.Time)
	if !ok {
		t.Fatalf("want time.Time, got %T", v)
	}
	if tm.Year() != 2026 {
		t.Fatalf("unexpected year: %d", tm.Year())
	}
}

func TestValue_DateMillis(t *testing.T) {
	v, err := Value(int64(0), types.TypeDateTime, types.DefaultFilterConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := v.(time.Time); !ok {
		t.Fatalf("want time.Time, got %T", v)
	}
}

func TestValue_EnumCaseInsensitive(t *testing.T) {
	cfg := types.DefaultFilterConfig()
	cfg.EnumMatching = types.EnumCaseInsensitive
	v, err := Value("active", types.TypeEnum, cfg, []string{"ACTIVE", "INACTIVE"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(string) != "ACTIVE" {
		t.Fatalf("want canonical ACTIVE, got %v", v)
	}
}

func TestValue_EnumExactRejectsCaseMismatch(t *testing.T) {
	cfg := types.DefaultFilterConfig()
	_, err := Value("active", types.TypeEnum, cfg, []string{"ACTIVE"})
	if err == nil {
		t.Fatal("expected error under exact enum matching")
	}
}

func TestValue_UUID(t *testing.T) {
	id := uuid.New()
	v, err := Value(id.String(), types.TypeUUID, types.DefaultFilterConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(uuid.UUID) != id {
		t.Fatalf("want %v, got %v", id, v)
	}
}

func TestValue_StringNormalizationTrim(t *testing.T) {
	cfg := types.DefaultFilterConfig()
	cfg.StringNormalization = types.StringTrim
	v, err := Value("  hi  ", types.TypeString, cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(string) != "hi" {
		t.Fatalf("want trimmed string, got %q", v)
	}
}

func TestCollection_IntSlice(t *testing.T) {
	v, err := Collection([]int{1, 2, 3}, types.TypeInt, types.DefaultFilterConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items := v.([]any)
	if len(items) != 3 || items[2].(int64) != 3 {
		t.Fatalf("unexpected collection: %#v", items)
	}
}
