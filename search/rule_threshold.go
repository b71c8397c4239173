package search

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/orian/sqltelligence/models"
)

// ThresholdRuleName is the registry name of the numeric comparison rule.
const ThresholdRuleName = "ThresholdRule"

const (
	thresholdMetric = `(실행\s*시간|응답\s*시간|소요\s*시간|수행\s*시간|elapsed(?:\s*time)?|버퍼\s*(?:읽기|게츠)?|buffer\s*gets?|buffer|논리\s*읽기|logical\s*reads?|실행\s*횟수|실행\s*수|executions?)`
	thresholdNumber = `(\d[\d,]*(?:\.\d+)?)`
	thresholdUnit   = `(ms\b|밀리초|초|sec\b|s\b|회|번|건|개)?`
)

var (
	// "실행시간 100ms 이상", "10000 이하"
	thresholdPostfixRe = regexp.MustCompile(`(?:` + thresholdMetric + `\s*(?:이|가|은|는|:|=)?\s*)?` +
		thresholdNumber + `\s*` + thresholdUnit + `\s*(이상|이하|초과|미만|넘는|넘게|넘은)`)

	// "elapsed > 100ms", "buffer gets over 5000"
	thresholdPrefixRe = regexp.MustCompile(`(?:` + thresholdMetric + `\s*)?` +
		`(>=|<=|>|<|over|above|more than|under|below|less than)\s*` + thresholdNumber + `\s*` + thresholdUnit)
)

type thresholdMetricKind int

const (
	metricUnknown thresholdMetricKind = iota
	metricElapsed
	metricBufferGets
	metricExecutions
)

// comparison is one "metric op value" triple found in the text.
type comparison struct {
	span   string
	metric string
	value  string
	unit   string
	op     string
}

// NewThresholdRule returns the rule that turns numeric comparisons into
// min/max filter bounds. A comparison whose metric cannot be resolved,
// either from a metric word or from its unit, is discarded.
func NewThresholdRule() Rule {
	return &baseRule{name: ThresholdRuleName, priority: 65, extract: extractThresholds}
}

func extractThresholds(q *models.SearchQuery) (*RulePatch, bool) {
	text := q.NormalizedInput()

	var comparisons []comparison
	for _, m := range thresholdPostfixRe.FindAllStringSubmatch(text, -1) {
		comparisons = append(comparisons, comparison{span: m[0], metric: m[1], value: m[2], unit: m[3], op: m[4]})
	}
	for _, m := range thresholdPrefixRe.FindAllStringSubmatch(text, -1) {
		comparisons = append(comparisons, comparison{span: m[0], metric: m[1], op: m[2], value: m[3], unit: m[4]})
	}

	patch := &RulePatch{Confidence: confidenceExplicit}
	var labels []string
	for _, c := range comparisons {
		label, ok := applyComparison(&patch.Filters, c)
		if !ok {
			continue
		}
		labels = append(labels, label)
		patch.MatchedKeywords = append(patch.MatchedKeywords, strings.TrimSpace(c.span))
	}

	if patch.Filters.IsEmpty() {
		return nil, false
	}
	patch.Interpretation = strings.Join(labels, ", ")
	return patch, true
}

// applyComparison sets the bound described by c unless it is unresolvable,
// already set, or would put a minimum above its maximum.
func applyComparison(f *models.SearchFilters, c comparison) (string, bool) {
	value, err := strconv.ParseFloat(strings.ReplaceAll(c.value, ",", ""), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return "", false
	}

	lower := isLowerBound(c.op)
	opLabel := "이하"
	if lower {
		opLabel = "이상"
	}

	switch resolveMetric(c.metric, c.unit) {
	case metricElapsed:
		ms, ok := toMillis(value, c.unit)
		if !ok {
			return "", false
		}
		if lower {
			if f.MinElapsedTime != nil || (f.MaxElapsedTime != nil && ms > *f.MaxElapsedTime) {
				return "", false
			}
			f.MinElapsedTime = models.Float64(ms)
		} else {
			if f.MaxElapsedTime != nil || (f.MinElapsedTime != nil && ms < *f.MinElapsedTime) {
				return "", false
			}
			f.MaxElapsedTime = models.Float64(ms)
		}
		return fmt.Sprintf("실행시간 %sms %s", formatNumber(ms), opLabel), true

	case metricBufferGets:
		if c.unit != "" && !isCountUnit(c.unit) {
			return "", false
		}
		n := int64(math.Round(value))
		if lower {
			if f.MinBufferGets != nil || (f.MaxBufferGets != nil && n > *f.MaxBufferGets) {
				return "", false
			}
			f.MinBufferGets = models.Int64(n)
		} else {
			if f.MaxBufferGets != nil || (f.MinBufferGets != nil && n < *f.MinBufferGets) {
				return "", false
			}
			f.MaxBufferGets = models.Int64(n)
		}
		return fmt.Sprintf("버퍼 읽기 %d %s", n, opLabel), true

	case metricExecutions:
		if c.unit != "" && c.unit != "회" && c.unit != "번" && !isCountUnit(c.unit) {
			return "", false
		}
		// Only a lower bound exists for executions.
		if !lower || f.MinExecutions != nil {
			return "", false
		}
		n := int64(math.Round(value))
		f.MinExecutions = models.Int64(n)
		return fmt.Sprintf("실행 횟수 %d회 이상", n), true
	}

	return "", false
}

func resolveMetric(metric, unit string) thresholdMetricKind {
	m := strings.Join(strings.Fields(metric), "")
	switch {
	case m == "":
	case strings.Contains(m, "시간") || strings.HasPrefix(m, "elapsed"):
		return metricElapsed
	case strings.HasPrefix(m, "버퍼") || strings.HasPrefix(m, "buffer") ||
		strings.HasPrefix(m, "논리") || strings.HasPrefix(m, "logical"):
		return metricBufferGets
	case strings.HasPrefix(m, "실행") || strings.HasPrefix(m, "execution"):
		return metricExecutions
	}

	switch unit {
	case "ms", "밀리초", "초", "sec", "s":
		return metricElapsed
	case "회", "번":
		return metricExecutions
	}
	return metricUnknown
}

// isCountUnit reports whether unit is a bare counter ("건", "개"). It
// names no metric on its own, so "10개 이상" without a metric word is
// discarded.
func isCountUnit(unit string) bool {
	return unit == "건" || unit == "개"
}

func toMillis(value float64, unit string) (float64, bool) {
	switch unit {
	case "", "ms", "밀리초":
		return value, true
	case "초", "sec", "s":
		return value * 1000, true
	}
	return 0, false
}

func isLowerBound(op string) bool {
	switch op {
	case "이상", "초과", "넘는", "넘게", "넘은", ">", ">=", "over", "above", "more than":
		return true
	}
	return false
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
