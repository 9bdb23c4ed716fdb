package types

// NullHandling controls where NULL values land in a sort order.
type NullHandling int

const (
	NullsNative NullHandling = iota
	NullsFirst
	NullsLast
)

// EnumMatching controls how string values are matched against enum names.
type EnumMatching int

const (
	EnumExact EnumMatching = iota
	EnumCaseInsensitive
)

// StringNormalization is applied to string values before coercion/validation.
type StringNormalization int

const (
	StringNone StringNormalization = iota
	StringTrim
	StringLower
	StringUpper
)

// NullValuePolicy governs what happens when a bound filter value is nil
// (spec.md §4.1).
type NullValuePolicy int

const (
	NullPolicyStrictException NullValuePolicy = iota
	NullPolicyCoerceToIsNull
	NullPolicyIgnoreFilter
)

// FilterConfig is the process-wide set of coercion/validation knobs
// (spec.md §4.1).
type FilterConfig struct {
	IgnoreCase          bool
	NullHandling        NullHandling
	EnumMatching        EnumMatching
	StringNormalization StringNormalization
	NullValuePolicy     NullValuePolicy
}

// DefaultFilterConfig matches the spec's implied defaults: exact enum
// matching, no string normalization, strict null handling.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		NullHandling:        NullsNative,
		EnumMatching:        EnumExact,
		StringNormalization: StringNone,
		NullValuePolicy:     NullPolicyStrictException,
	}
}
