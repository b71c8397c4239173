package search

import (
	"regexp"

	"github.com/orian/sqltelligence/models"
)

// PerformanceMetricRuleName is the registry name of the sort metric rule.
const PerformanceMetricRuleName = "PerformanceMetricRule"

// metricVocabulary is checked top to bottom; the specific metrics come
// before the generic "slow" words so "CPU 많이 쓰는 느린 쿼리" sorts by
// CPU time.
var metricVocabulary = []struct {
	re     *regexp.Regexp
	field  models.SortField
	order  models.SortOrder
	label  string
	weight float64
}{
	{
		re:     regexp.MustCompile(`cpu\s*(?:를|을|가|이)?\s*(?:가장\s*)?(?:많이|많은|높은|사용|쓰는|먹는|집약)`),
		field:  models.SortByCPUTime,
		order:  models.SortDesc,
		label:  "CPU 시간 많은 순",
		weight: confidenceExplicit,
	},
	{
		re:     regexp.MustCompile(`(?:버퍼|buffer(?:\s*gets?)?|논리\s*읽기|logical\s*reads?)\s*(?:를|을|가|이)?\s*(?:가장\s*)?(?:많이|많은|높은|사용|쓰는|읽는)`),
		field:  models.SortByBufferGets,
		order:  models.SortDesc,
		label:  "버퍼 읽기 많은 순",
		weight: confidenceExplicit,
	},
	{
		re:     regexp.MustCompile(`실행\s*(?:이|횟수가|횟수|수가)?\s*(?:가장\s*)?(?:많은|많이|잦은|빈번한)|자주\s*실행|most\s*executed|frequent`),
		field:  models.SortByExecutions,
		order:  models.SortDesc,
		label:  "실행 횟수 많은 순",
		weight: confidenceExplicit,
	},
	{
		re:     regexp.MustCompile(`느린|느려|오래\s*걸리|오래\s*걸린|slow`),
		field:  models.SortByElapsedTime,
		order:  models.SortDesc,
		label:  "실행시간 긴 순",
		weight: confidenceKeyword,
	},
	{
		re:     regexp.MustCompile(`빠른|fastest|fast`),
		field:  models.SortByElapsedTime,
		order:  models.SortAsc,
		label:  "실행시간 짧은 순",
		weight: confidenceKeyword,
	},
}

// NewPerformanceMetricRule returns the rule that picks the sort metric and
// direction from performance vocabulary. Both are always set together.
func NewPerformanceMetricRule() Rule {
	return &baseRule{name: PerformanceMetricRuleName, priority: 70, extract: extractMetric}
}

func extractMetric(q *models.SearchQuery) (*RulePatch, bool) {
	text := q.NormalizedInput()
	for _, v := range metricVocabulary {
		m := v.re.FindString(text)
		if m == "" {
			continue
		}
		return &RulePatch{
			Filters:         models.SearchFilters{SortBy: v.field, SortOrder: v.order},
			Interpretation:  v.label,
			MatchedKeywords: []string{m},
			Confidence:      v.weight,
		}, true
	}
	return nil, false
}
