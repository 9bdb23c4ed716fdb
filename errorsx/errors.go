// Package errorsx defines FilterQL's error taxonomy (spec.md §7). Each
// member is a concrete type carrying a plain formatted message (no
// wrapped cause), so callers can errors.As against the type while
// printing reads like ordinary Go errors.
package errorsx

import "fmt"

// DSLSyntaxError is raised by the DSL parser on malformed combinator
// expressions: unexpected characters or tokens, mismatched parentheses,
// missing operands, empty input, and expressions over the configured
// length limit.
type DSLSyntaxError struct {
	Rule    string
	Message string
}

func (e *DSLSyntaxError) Error() string {
	return fmt.Sprintf("DSL syntax error (%s): %s", e.Rule, e.Message)
}

// NewDSLSyntaxError builds a DSLSyntaxError for the named grammar rule.
func NewDSLSyntaxError(rule, format string, args ...any) *DSLSyntaxError {
	return &DSLSyntaxError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// FilterValidationError is raised by the value validator when an
// operator/value/type combination violates spec.md §4.1's rules.
type FilterValidationError struct {
	Message string
}

func (e *FilterValidationError) Error() string {
	return "filter validation error: " + e.Message
}

// NewFilterValidationError builds a FilterValidationError.
func NewFilterValidationError(format string, args ...any) *FilterValidationError {
	return &FilterValidationError{Message: fmt.Sprintf(format, args...)}
}

// FilterDefinitionError is raised by the condition builder, the argument
// binder, and the operator registry: unknown atoms, missing argument
// keys, and unregistered custom operators.
type FilterDefinitionError struct {
	Message string
}

func (e *FilterDefinitionError) Error() string {
	return "filter definition error: " + e.Message
}

// NewFilterDefinitionError builds a FilterDefinitionError.
func NewFilterDefinitionError(format string, args ...any) *FilterDefinitionError {
	return &FilterDefinitionError{Message: fmt.Sprintf(format, args...)}
}

// ProjectionDefinitionError is raised by the projection parser and the
// execution plan builder: unresolvable DTO paths, conflicting collection
// options, malformed grammar.
type ProjectionDefinitionError struct {
	Message string
}

func (e *ProjectionDefinitionError) Error() string {
	return "projection definition error: " + e.Message
}

// NewProjectionDefinitionError builds a ProjectionDefinitionError.
func NewProjectionDefinitionError(format string, args ...any) *ProjectionDefinitionError {
	return &ProjectionDefinitionError{Message: fmt.Sprintf(format, args...)}
}

// CancelledError is raised by the fetch engine when it abandons between
// sub-queries after the caller's context is cancelled.
type CancelledError struct {
	Message string
}

func (e *CancelledError) Error() string {
	return "cancelled: " + e.Message
}

// NewCancelledError builds a CancelledError.
func NewCancelledError(format string, args ...any) *CancelledError {
	return &CancelledError{Message: fmt.Sprintf(format, args...)}
}
