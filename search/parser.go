package search

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/orian/sqltelligence/models"
)

var errEmptyPatch = errors.New("rule matched but produced no filters")

// Parser turns a SearchQuery into a ParsedIntent using the rules of a
// registry. It holds no per-call state and is safe for concurrent use as
// long as the registry is not mutated.
type Parser struct {
	registry *Registry
}

// NewParser returns a parser over registry, or over the default registry
// when registry is nil.
func NewParser(registry *Registry) *Parser {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Parser{registry: registry}
}

// CanHandle reports whether at least one rule matches q.
func (p *Parser) CanHandle(q *models.SearchQuery) bool {
	return len(p.registry.MatchingRules(q)) > 0
}

// Parse applies every matching rule in priority order and merges the
// results. A field set by a higher-priority rule is never overwritten by
// a lower-priority one. Rules that fail are skipped; when none is left
// the default fallback intent is returned.
func (p *Parser) Parse(q *models.SearchQuery) *models.ParsedIntent {
	rules := p.registry.MatchingRules(q)
	if len(rules) == 0 {
		return models.NewDefaultIntent(q.RawInput())
	}

	var (
		filters   models.SearchFilters
		fragments []string
		seen      = make(map[string]bool)
		matched   = []models.MatchedRule{}
		minScore  = 1.0
	)

	for _, rule := range rules {
		patch, err := applyRule(rule, q)
		if err != nil {
			log.Printf("Skipping rule for query %q: %v", q.NormalizedInput(), err)
			continue
		}

		taken := filters.MergeMissing(patch.Filters)
		score := clampScore(patch.Confidence)
		if score < minScore {
			minScore = score
		}

		keywords := make([]string, len(patch.MatchedKeywords))
		copy(keywords, patch.MatchedKeywords)
		matched = append(matched, models.MatchedRule{
			RuleName:        rule.Name(),
			MatchedKeywords: keywords,
			Confidence:      score,
		})

		if len(taken) > 0 && patch.Interpretation != "" && !seen[patch.Interpretation] {
			seen[patch.Interpretation] = true
			fragments = append(fragments, patch.Interpretation)
		}
	}

	filters.Sanitize()
	if len(matched) == 0 || filters.IsEmpty() {
		return models.NewDefaultIntent(q.RawInput())
	}

	return &models.ParsedIntent{
		Filters:        filters,
		Interpretation: strings.Join(fragments, ", "),
		Suggestions:    []string{},
		Confidence:     aggregateConfidence(len(matched), minScore),
		MatchedRules:   matched,
	}
}

// applyRule runs rule.Apply and turns returned errors, panics and empty
// patches into a RuleApplicationError.
func applyRule(rule Rule, q *models.SearchQuery) (patch *RulePatch, err error) {
	defer func() {
		if r := recover(); r != nil {
			patch = nil
			err = &models.RuleApplicationError{Rule: rule.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	patch, err = rule.Apply(q)
	if err != nil {
		return nil, &models.RuleApplicationError{Rule: rule.Name(), Err: err}
	}
	if patch == nil || patch.Filters.IsEmpty() {
		return nil, &models.RuleApplicationError{Rule: rule.Name(), Err: errEmptyPatch}
	}
	return patch, nil
}

// aggregateConfidence caps the result at medium for a single rule and at
// the weakest rule's level otherwise. A parse that produced filters is
// never reported as low.
func aggregateConfidence(ruleCount int, minScore float64) models.Confidence {
	band := models.ConfidenceHigh
	if ruleCount < 2 {
		band = models.ConfidenceMedium
	}
	c := models.MinConfidence(band, models.ConfidenceFromScore(minScore))
	if c == models.ConfidenceLow {
		return models.ConfidenceMedium
	}
	return c
}

func clampScore(score float64) float64 {
	if score < 0 || math.IsNaN(score) {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
