// Package registry implements FilterQL's custom operator registry
// (spec.md §4.4, component C7). The package keeps no global instance:
// each Registry built by New is independent of every other.
package registry

import (
	"strings"
	"sync"

	"github.com/filterql/filterql/errorsx"
	"github.com/filterql/filterql/internal/types"
)

// PredicateResolver is the closure form a bound Condition compiles down
// to: a predicate the query builder can attach to a WHERE clause. The
// core treats it as opaque; only querybuilder adapters interpret it.
type PredicateResolver func(params types.FilterDefinition) (any, error)

// OperatorProvider supplies custom operator codes and their resolver.
// Providers register with a Registry; each claimed code must be unique
// within that Registry.
type OperatorProvider interface {
	SupportedOperators() []string
	ToResolver(def types.FilterDefinition) (PredicateResolver, error)
}

// Registry is a thread-safe, case-insensitive map from operator code to
// the OperatorProvider that implements it.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]OperatorProvider
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{providers: make(map[string]OperatorProvider)}
}

// Register claims every code in provider.SupportedOperators() atomically:
// if any code is already claimed, the whole registration is rejected and
// no codes are added.
func (r *Registry) Register(provider OperatorProvider) error {
	codes := normalizeAll(provider.SupportedOperators())
	if len(codes) == 0 {
		return errorsx.NewFilterDefinitionError("operator provider declares no supported operators")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range codes {
		if _, taken := r.providers[c]; taken {
			return errorsx.NewFilterDefinitionError("operator code %q is already registered", c)
		}
	}
	for _, c := range codes {
		r.providers[c] = provider
	}
	return nil
}

// Unregister removes every code provider claims, regardless of current
// ownership.
func (r *Registry) Unregister(provider OperatorProvider) {
	r.UnregisterCodes(provider.SupportedOperators())
}

// UnregisterCodes removes the named operator codes, if present.
func (r *Registry) UnregisterCodes(codes []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range normalizeAll(codes) {
		delete(r.providers, c)
	}
}

// UnregisterAll clears the registry.
func (r *Registry) UnregisterAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = make(map[string]OperatorProvider)
}

// GetProvider looks up the provider for code, case-insensitively.
// Returns (nil, false) for a blank code or no match.
func (r *Registry) GetProvider(code string) (OperatorProvider, bool) {
	code = normalize(code)
	if code == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[code]
	return p, ok
}

// AllRegisteredOperators returns an immutable snapshot of every
// currently-claimed, upper-cased operator code.
func (r *Registry) AllRegisteredOperators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for c := range r.providers {
		out = append(out, c)
	}
	return out
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func normalizeAll(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if n := normalize(c); n != "" {
			out = append(out, n)
		}
	}
	return out
}
