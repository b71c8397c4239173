// Package search implements the rule-based smart search parser: free-form
// Korean or English text in, bounded SQL statistics filters out.
package search

import (
	"errors"
	"strconv"
	"strings"

	"github.com/orian/sqltelligence/models"
)

// Rule is one named, prioritized piece of extraction logic.
//
// Matches must be a pure predicate. Apply is only called when Matches is
// true and must then return a patch with at least one filter set.
type Rule interface {
	Name() string
	Priority() int
	Matches(q *models.SearchQuery) bool
	Apply(q *models.SearchQuery) (*RulePatch, error)
}

// RulePatch is what a single rule contributes to an intent.
type RulePatch struct {
	Filters         models.SearchFilters
	Interpretation  string
	MatchedKeywords []string
	Confidence      float64
}

// Rule confidence scores.
const (
	confidenceExplicit = 0.95
	confidenceKeyword  = 0.85
	confidenceInferred = 0.6
)

var errNoMatch = errors.New("rule does not match query")

// extractor is the shape every built-in rule implements. Matches and
// Apply are both derived from it, so a rule can never match without
// producing a patch.
type extractor func(q *models.SearchQuery) (*RulePatch, bool)

type baseRule struct {
	name     string
	priority int
	extract  extractor
}

func (r *baseRule) Name() string  { return r.name }
func (r *baseRule) Priority() int { return r.priority }

func (r *baseRule) Matches(q *models.SearchQuery) bool {
	_, ok := r.extract(q)
	return ok
}

func (r *baseRule) Apply(q *models.SearchQuery) (*RulePatch, error) {
	patch, ok := r.extract(q)
	if !ok {
		return nil, errNoMatch
	}
	return patch, nil
}

// koreanNumbers covers the native Korean counting words one through ten
// and twenty, in both standalone and attributive forms.
var koreanNumbers = map[string]int{
	"하나": 1, "한": 1,
	"둘": 2, "두": 2,
	"셋": 3, "세": 3,
	"넷": 4, "네": 4,
	"다섯": 5,
	"여섯": 6,
	"일곱": 7,
	"여덟": 8,
	"아홉": 9,
	"열":  10,
	"스물": 20, "스무": 20,
}

// koreanNumberPattern is the regexp alternation of koreanNumbers, longest
// words first.
const koreanNumberPattern = `하나|다섯|여섯|일곱|여덟|아홉|스물|스무|한|둘|두|셋|세|넷|네|열`

// parseCount turns digits or a Korean number word into an int.
func parseCount(s string) (int, bool) {
	if n, ok := koreanNumbers[s]; ok {
		return n, true
	}
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}
