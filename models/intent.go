package models

import "fmt"

// Confidence is a coarse estimate of how much the derived filters should
// be trusted.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Rank orders confidence levels: low < medium < high.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// MinConfidence returns the lower of a and b.
func MinConfidence(a, b Confidence) Confidence {
	if a.Rank() <= b.Rank() {
		return a
	}
	return b
}

// ConfidenceFromScore maps a 0..1 score onto the three levels.
func ConfidenceFromScore(score float64) Confidence {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// MatchedRule records that a rule fired and what it matched.
type MatchedRule struct {
	RuleName        string   `json:"ruleName"`
	MatchedKeywords []string `json:"matchedKeywords"`
	Confidence      float64  `json:"confidence"`
}

// ParsedIntent is the outcome of parsing a smart search query.
//
// MatchedRules is empty exactly when Confidence is low and Filters is
// empty. Suggestions are only filled in for the low-confidence fallback.
type ParsedIntent struct {
	Filters        SearchFilters `json:"filters"`
	Interpretation string        `json:"interpretation"`
	Suggestions    []string      `json:"suggestions"`
	Confidence     Confidence    `json:"confidence"`
	MatchedRules   []MatchedRule `json:"matchedRules"`
}

// DefaultSuggestions are example queries offered when nothing was
// understood.
var DefaultSuggestions = []string{
	"최근 1시간 느린 쿼리 5개",
	"CPU 많이 쓰는 쿼리 상위 10개",
	"SYS 스키마에서 실행시간 100ms 이상인 쿼리",
}

// NewDefaultIntent returns the low-confidence fallback intent for raw.
func NewDefaultIntent(raw string) *ParsedIntent {
	interpretation := "검색어를 입력해 주세요"
	if normalized := NormalizeInput(raw); normalized != "" {
		interpretation = fmt.Sprintf("'%s'에서 검색 조건을 찾지 못했습니다", normalized)
	}

	suggestions := make([]string, len(DefaultSuggestions))
	copy(suggestions, DefaultSuggestions)

	return &ParsedIntent{
		Filters:        SearchFilters{},
		Interpretation: interpretation,
		Suggestions:    suggestions,
		Confidence:     ConfidenceLow,
		MatchedRules:   []MatchedRule{},
	}
}

// IsFallback reports whether the intent carries no understood filters.
func (p *ParsedIntent) IsFallback() bool {
	return len(p.MatchedRules) == 0
}
