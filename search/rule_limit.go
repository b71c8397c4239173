package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/orian/sqltelligence/models"
)

// LimitRuleName is the registry name of the result count rule.
const LimitRuleName = "LimitRule"

var (
	limitCountRe       = regexp.MustCompile(`(\d+)\s*(?:개|건|줄|rows?)`)
	limitTopDigitsRe   = regexp.MustCompile(`(?:상위|톱|top)\s*(\d+)`)
	limitTopWordRe     = regexp.MustCompile(`(?:상위|톱|top)\s*(` + koreanNumberPattern + `)(?:\s|개|건|$)`)
	limitWordCountRe   = regexp.MustCompile(`(?:^|\s)(` + koreanNumberPattern + `)\s*(?:개|건)`)
	limitSuperlativeRe = regexp.MustCompile(`(?:가장|제일)\s*(?:느린|빠른|많은|많이|오래|큰|무거운|높은)`)

	// A count followed by a comparison ("100건 이상") is a threshold, and
	// "3개월" is a duration.
	limitNotCountRe = regexp.MustCompile(`^(?:월|\s*(?:이상|이하|초과|미만|넘))`)
)

// NewLimitRule returns the rule that extracts how many rows to show.
//
// Explicit counts ("5개", "상위 10", "다섯 개") win over the bare
// superlative ("가장 느린"), which implies a single row with lower
// confidence. A count outside [1, 1000] makes the rule not match at all.
func NewLimitRule() Rule {
	return &baseRule{name: LimitRuleName, priority: 90, extract: extractLimit}
}

func extractLimit(q *models.SearchQuery) (*RulePatch, bool) {
	text := q.NormalizedInput()

	explicit := []struct {
		re     *regexp.Regexp
		format string
	}{
		{limitCountRe, "결과 %d개"},
		{limitTopDigitsRe, "상위 %d개"},
		{limitTopWordRe, "상위 %d개"},
		{limitWordCountRe, "결과 %d개"},
	}
	for _, e := range explicit {
		for _, loc := range e.re.FindAllStringSubmatchIndex(text, -1) {
			if limitNotCountRe.MatchString(text[loc[1]:]) {
				continue
			}
			n, ok := parseCount(text[loc[2]:loc[3]])
			if !ok || !models.ValidLimit(n) {
				return nil, false
			}
			return &RulePatch{
				Filters:         models.SearchFilters{Limit: models.Int(n)},
				Interpretation:  fmt.Sprintf(e.format, n),
				MatchedKeywords: []string{strings.TrimSpace(text[loc[0]:loc[1]])},
				Confidence:      confidenceExplicit,
			}, true
		}
	}

	if m := limitSuperlativeRe.FindString(text); m != "" {
		return &RulePatch{
			Filters:         models.SearchFilters{Limit: models.Int(1)},
			Interpretation:  "상위 1개",
			MatchedKeywords: []string{m},
			Confidence:      confidenceInferred,
		}, true
	}

	return nil, false
}
