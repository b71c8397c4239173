package search

import (
	"slices"

	"github.com/orian/sqltelligence/models"
)

// Registry holds the parsing rules, unique by name and ordered by
// descending priority. Rules registered with equal priority keep their
// registration order.
//
// A Registry is not safe for concurrent mutation. The default registry is
// populated once at package init and only read afterwards.
type Registry struct {
	rules []Rule
}

// NewRegistry returns a registry containing rules.
func NewRegistry(rules ...Rule) *Registry {
	r := &Registry{}
	r.RegisterAll(rules)
	return r
}

// Register adds rule unless a rule with the same name is already present.
func (r *Registry) Register(rule Rule) {
	if rule == nil {
		return
	}
	for _, existing := range r.rules {
		if existing.Name() == rule.Name() {
			return
		}
	}
	r.rules = append(r.rules, rule)
	slices.SortStableFunc(r.rules, func(a, b Rule) int {
		return b.Priority() - a.Priority()
	})
}

// RegisterAll registers each rule in turn.
func (r *Registry) RegisterAll(rules []Rule) {
	for _, rule := range rules {
		r.Register(rule)
	}
}

// Rules returns a copy of the registered rules in priority order.
func (r *Registry) Rules() []Rule {
	return slices.Clone(r.rules)
}

// MatchingRules returns the rules whose Matches reports true for q, in
// priority order.
func (r *Registry) MatchingRules(q *models.SearchQuery) []Rule {
	var matched []Rule
	for _, rule := range r.rules {
		if rule.Matches(q) {
			matched = append(matched, rule)
		}
	}
	return matched
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	return len(r.rules)
}

// Clear removes every rule. Intended for tests.
func (r *Registry) Clear() {
	r.rules = nil
}

// BuiltinRules returns a fresh instance of each built-in rule.
func BuiltinRules() []Rule {
	return []Rule{
		NewLimitRule(),
		NewTimeRangeRule(),
		NewPerformanceMetricRule(),
		NewThresholdRule(),
		NewSchemaRule(),
		NewSQLTypeRule(),
	}
}

var defaultRegistry = NewRegistry(BuiltinRules()...)

// DefaultRegistry returns the process-wide registry holding the built-in
// rules.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// ResetDefaultRegistry repopulates the default registry with the built-in
// rules. It must not be called while parses are in flight.
func ResetDefaultRegistry() {
	defaultRegistry.Clear()
	defaultRegistry.RegisterAll(BuiltinRules())
}
