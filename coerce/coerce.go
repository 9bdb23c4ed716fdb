// Package coerce implements FilterQL's value-to-target-type conversion
// (spec.md §4.1, component C2): numeric, temporal, enum, boolean, UUID,
// and collection coercion applied before operator/value validation.
package coerce

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/filterql/filterql/errorsx"
	"github.com/filterql/filterql/internal/types"
)

// Value converts a raw input value to the shape expected for
// PropertyType t. Scalars are converted in place; collections (slices,
// comma-separated strings) have every element converted independently.
func Value(raw any, t types.PropertyType, cfg types.FilterConfig, enumValues []string) (any, error) {
	if t == types.TypeArray {
		return Collection(raw, "", cfg, nil)
	}

	if items, ok := asCollection(raw); ok {
		out := make([]any, len(items))
		for i, it := range items {
			v, err := scalar(it, t, cfg, enumValues)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	return scalar(raw, t, cfg, enumValues)
}

// Collection coerces raw into a []any of elementType-coerced values.
// elementType == "" leaves elements untouched (used for opaque arrays).
func Collection(raw any, elementType types.PropertyType, cfg types.FilterConfig, enumValues []string) (any, error) {
	items, ok := asCollection(raw)
	if !ok {
		items = []any{raw}
	}
	if elementType == "" {
		return items, nil
	}
	out := make([]any, len(items))
	for i, it := range items {
		v, err := scalar(it, elementType, cfg, enumValues)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// asCollection recognizes comma-separated strings and []any, []string
// and []int slices as collection inputs (spec.md §4.1); other slice and
// array types are not recognized.
func asCollection(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case string:
		if strings.Contains(v, ",") {
			parts := strings.Split(v, ",")
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = strings.TrimSpace(p)
			}
			return out, true
		}
	}
	return nil, false
}

func scalar(raw any, t types.PropertyType, cfg types.FilterConfig, enumValues []string) (any, error) {
	if s, ok := raw.(string); ok {
		raw = normalizeString(s, cfg.StringNormalization)
	}

	switch t {
	case types.TypeString:
		s := toString(raw)
		if cfg.IgnoreCase {
			s = strings.ToLower(s)
		}
		return s, nil
	case types.TypeInt, types.TypeLong:
		return toInt(raw)
	case types.TypeFloat, types.TypeDouble:
		return toFloat(raw)
	case types.TypeBool:
		return toBool(raw)
	case types.TypeDate, types.TypeDateTime:
		return toTime(raw)
	case types.TypeEnum:
		return toEnum(raw, enumValues, cfg.EnumMatching)
	case types.TypeUUID:
		return toUUID(raw)
	default:
		return raw, nil
	}
}

func normalizeString(s string, n types.StringNormalization) string {
	switch n {
	case types.StringTrim:
		return strings.TrimSpace(s)
	case types.StringLower:
		return strings.ToLower(s)
	case types.StringUpper:
		return strings.ToUpper(s)
	default:
		return s
	}
}

func toString(raw any) string {
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}

func toInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		if v != float64(int64(v)) {
			return 0, errorsx.NewFilterValidationError("value %v is not exactly representable as an integer", v)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, errorsx.NewFilterValidationError("cannot parse %q as integer", v)
		}
		return n, nil
	default:
		return 0, errorsx.NewFilterValidationError("cannot coerce %T to integer", raw)
	}
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, errorsx.NewFilterValidationError("cannot parse %q as float", v)
		}
		return f, nil
	default:
		return 0, errorsx.NewFilterValidationError("cannot coerce %T to float", raw)
	}
}

var truthyWords = map[string]bool{
	"true": true, "1": true, "yes": true, "oui": true, "y": true,
}

var falsyWords = map[string]bool{
	"false": true, "0": true, "no": true, "non": true, "n": true,
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		lower := strings.ToLower(strings.TrimSpace(v))
		if truthyWords[lower] {
			return true, nil
		}
		if falsyWords[lower] {
			return false, nil
		}
		return false, errorsx.NewFilterValidationError("cannot parse %q as boolean", v)
	default:
		return false, errorsx.NewFilterValidationError("cannot coerce %T to boolean", raw)
	}
}

func toTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case int64:
		return time.UnixMilli(v).In(time.Local), nil
	case int:
		return time.UnixMilli(int64(v)).In(time.Local), nil
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, nil
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t, nil
		}
		return time.Time{}, errorsx.NewFilterValidationError("cannot parse %q as an ISO-8601 timestamp", v)
	default:
		return time.Time{}, errorsx.NewFilterValidationError("cannot coerce %T to a timestamp", raw)
	}
}

func toEnum(raw any, enumValues []string, matching types.EnumMatching) (string, error) {
	s := toString(raw)
	for _, v := range enumValues {
		if v == s {
			return v, nil
		}
	}
	if matching == types.EnumCaseInsensitive {
		for _, v := range enumValues {
			if strings.EqualFold(v, s) {
				return v, nil
			}
		}
	}
	return "", errorsx.NewFilterValidationError("%q is not a valid value for this enum", s)
}

func toUUID(raw any) (uuid.UUID, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		u, err := uuid.Parse(v)
		if err != nil {
			return uuid.UUID{}, errorsx.NewFilterValidationError("cannot parse %q as a UUID", v)
		}
		return u, nil
	default:
		return uuid.UUID{}, errorsx.NewFilterValidationError("cannot coerce %T to a UUID", raw)
	}
}
