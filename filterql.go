// Package filterql provides a type-safe, two-phase filter pipeline over
// document-shaped schemas.
//
// FilterQL parses a small boolean combinator DSL over named filter
// arguments, binds it against caller-supplied values, plans a
// projection into a level-ordered execution plan, and fetches it
// through a pluggable querybuilder.Builder backend — similar to how the
// teacher module paired a builder API with provider-specific renderers.
// It provides:
//
//   - A cached DSL for combining named filters with AND/OR/NOT
//   - Schema-driven projection planning, including nested collections
//     and computed fields
//   - A storage-agnostic multi-query fetch engine with composite-key
//     batching and cancellation support
//   - A process-wide custom operator registry for operators the core
//     grammar doesn't know about
//
// Usage with a DDML-backed schema:
//
//	reg, err := schema.NewFromDDML(ddmlSchema)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p := filterql.New(reg, memquery.NewBuilder(store))
//	rows, err := p.Execute(ctx, "users", filterql.FilterRequest{
//	    Filters:     map[string]filterql.FilterDefinition{"status": {Ref: ref, Op: filterql.EQ, Value: "active"}},
//	    CombineWith: "status",
//	})
package filterql

import (
	"context"

	"github.com/filterql/filterql/condition"
	"github.com/filterql/filterql/dsl"
	"github.com/filterql/filterql/engine"
	"github.com/filterql/filterql/errorsx"
	"github.com/filterql/filterql/internal/types"
	"github.com/filterql/filterql/projection"
	"github.com/filterql/filterql/querybuilder"
	"github.com/filterql/filterql/registry"
)

// Re-export the request/response vocabulary so callers need only import
// this package for the common path.
type (
	FilterDefinition = types.FilterDefinition
	FilterRequest    = types.FilterRequest
	Pagination       = types.Pagination
	FilterConfig     = types.FilterConfig
	EntityType       = types.EntityType
	PropertyReference = types.PropertyReference
	MetadataRegistry  = types.MetadataRegistry
)

// Re-export the built-in operator codes.
const (
	EQ         = types.EQ
	NE         = types.NE
	GT         = types.GT
	GTE        = types.GTE
	LT         = types.LT
	LTE        = types.LTE
	MATCHES    = types.MATCHES
	NotMatches = types.NotMatches
	IN         = types.IN
	NotIn      = types.NotIn
	RANGE      = types.RANGE
	NotRange   = types.NotRange
	IsNull     = types.IsNull
	NotNull    = types.NotNull
	CUSTOM     = types.CUSTOM
)

// Pipeline wires together every stage of FilterQL's pipeline: DSL parse
// and cache, argument binding, projection planning, and the fetch
// engine, over one querybuilder.Builder backend.
type Pipeline struct {
	Metadata  types.MetadataRegistry
	Builder   querybuilder.Builder
	Operators *registry.Registry       // optional: required only for CUSTOM operators
	Resolver  engine.InstanceResolver  // optional: required only for computed fields
	Config    types.FilterConfig
	Cache     *dsl.Cache
	IgnoreCase bool
}

// New builds a Pipeline with the default filter config and a DSL cache
// of dsl.DefaultCacheSize (1000) entries. Use the struct fields
// directly to customize the operator registry, computed-field resolver,
// or config before the first Execute call.
func New(metadata types.MetadataRegistry, builder querybuilder.Builder) *Pipeline {
	return &Pipeline{
		Metadata: metadata,
		Builder:  builder,
		Config:   types.DefaultFilterConfig(),
		Cache:    dsl.NewCache(dsl.DefaultCacheSize),
	}
}

// Execute runs the full pipeline for one request against rootEntity:
// parse (cached) → build the condition DAG → bind it against the
// request's filter values → plan the projection → fetch and assemble
// rows (spec.md §4.2-§4.7).
func (p *Pipeline) Execute(ctx context.Context, rootEntity types.EntityType, req types.FilterRequest) ([]map[string]any, error) {
	combinator := req.CombineWith
	if combinator == "" {
		combinator, _ = soleFilterKey(req.Filters)
	}
	if combinator == "" {
		return nil, errorsx.NewDSLSyntaxError("execute", "no combinator expression and no single filter to default to")
	}

	tree, err := dsl.ParseCached(p.Cache, combinator)
	if err != nil {
		return nil, err
	}

	cond, err := dsl.Build(tree, req.Filters, resolveFromDefinition)
	if err != nil {
		return nil, err
	}

	binder := condition.NewBinder(p.Config, p.Operators)
	args := make(map[string]any, len(req.Filters))
	for k, def := range req.Filters {
		args[k] = def.Value
	}
	predicate, err := binder.Bind(cond, condition.QueryExecutionParams{Arguments: args})
	if err != nil {
		return nil, err
	}

	fields, err := projection.Parse(req.Projection)
	if err != nil {
		return nil, err
	}
	plan, err := projection.BuildPlan(p.Metadata, rootEntity, fields, p.IgnoreCase)
	if err != nil {
		return nil, err
	}

	pagination := types.Pagination{}
	if req.Pagination != nil {
		pagination = *req.Pagination
	}

	eng := engine.New(p.Builder, p.Resolver, p.Operators)
	eng.NullHandling = p.Config.NullHandling
	return eng.Fetch(ctx, plan, predicate, pagination)
}

// resolveFromDefinition implements dsl.ResolveRef by trusting the
// PropertyReference and operator already attached to the caller-supplied
// FilterDefinition (spec.md §4.3: the caller, not the DSL layer, is the
// source of truth for what a named filter means).
func resolveFromDefinition(_ string, def types.FilterDefinition) (types.PropertyReference, string, error) {
	return def.Ref, def.EffectiveOpCode(), nil
}

// soleFilterKey returns the only key of a single-entry filter map, so a
// request with exactly one named filter and no explicit combinator
// expression needs no boilerplate "f1" string.
func soleFilterKey(filters map[string]types.FilterDefinition) (string, bool) {
	if len(filters) != 1 {
		return "", false
	}
	for k := range filters {
		return k, true
	}
	return "", false
}
