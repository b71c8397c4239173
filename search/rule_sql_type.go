package search

import (
	"regexp"
	"strings"

	"github.com/orian/sqltelligence/models"
)

// SQLTypeRuleName is the registry name of the statement verb rule.
const SQLTypeRuleName = "SQLTypeRule"

var (
	sqlVerbRe        = regexp.MustCompile(`\b(select|insert|update|delete|merge)\b`)
	sqlKoreanVerbRe  = regexp.MustCompile(`(조회|삽입|입력|수정|갱신|삭제|병합)\s*(?:쿼리|문|sql)`)
	sqlKoreanVerbMap = map[string]string{
		"조회": "SELECT",
		"삽입": "INSERT",
		"입력": "INSERT",
		"수정": "UPDATE",
		"갱신": "UPDATE",
		"삭제": "DELETE",
		"병합": "MERGE",
	}
)

// NewSQLTypeRule returns the rule that narrows the SQL text to one
// statement verb.
func NewSQLTypeRule() Rule {
	return &baseRule{name: SQLTypeRuleName, priority: 50, extract: extractSQLType}
}

func extractSQLType(q *models.SearchQuery) (*RulePatch, bool) {
	text := q.NormalizedInput()

	var verb, keyword string
	if m := sqlVerbRe.FindStringSubmatch(text); m != nil {
		verb, keyword = strings.ToUpper(m[1]), m[0]
	} else if m := sqlKoreanVerbRe.FindStringSubmatch(text); m != nil {
		verb, keyword = sqlKoreanVerbMap[m[1]], m[0]
	}
	if verb == "" {
		return nil, false
	}

	return &RulePatch{
		Filters:         models.SearchFilters{SQLPattern: verb},
		Interpretation:  verb + " 문",
		MatchedKeywords: []string{keyword},
		Confidence:      confidenceKeyword,
	}, true
}
