package search

import (
	"regexp"
	"time"

	"github.com/orian/sqltelligence/models"
)

// TimeRangeRuleName is the registry name of the look-back window rule.
const TimeRangeRuleName = "TimeRangeRule"

var (
	relativeKoreanRe  = regexp.MustCompile(`(?:최근|지난)\s*(\d+|` + koreanNumberPattern + `)\s*(분|시간|일|주)`)
	relativeEnglishRe = regexp.MustCompile(`(?:last|past)\s*(\d+)\s*(minutes?|mins?|hours?|hrs?|h|days?|d|weeks?|w)\b`)
)

// calendarWindows maps calendar words onto fixed windows, checked in order.
var calendarWindows = []struct {
	re     *regexp.Regexp
	window models.TimeRange
	label  string
}{
	{regexp.MustCompile(`오늘|today`), models.TimeRangeToday, "오늘"},
	{regexp.MustCompile(`어제|yesterday`), models.TimeRangeYesterday, "어제"},
	{regexp.MustCompile(`이번\s*주|금주|this week`), models.TimeRangeThisWeek, "이번 주"},
	{regexp.MustCompile(`이번\s*달|이달|this month`), models.TimeRangeThisMonth, "이번 달"},
}

// slidingWindows are the relative windows, shortest first.
var slidingWindows = []struct {
	span   time.Duration
	window models.TimeRange
	label  string
}{
	{5 * time.Minute, models.TimeRange5m, "최근 5분"},
	{15 * time.Minute, models.TimeRange15m, "최근 15분"},
	{30 * time.Minute, models.TimeRange30m, "최근 30분"},
	{time.Hour, models.TimeRange1h, "최근 1시간"},
	{3 * time.Hour, models.TimeRange3h, "최근 3시간"},
	{6 * time.Hour, models.TimeRange6h, "최근 6시간"},
	{12 * time.Hour, models.TimeRange12h, "최근 12시간"},
	{24 * time.Hour, models.TimeRange24h, "최근 24시간"},
	{7 * 24 * time.Hour, models.TimeRange7d, "최근 7일"},
	{30 * 24 * time.Hour, models.TimeRange30d, "최근 30일"},
}

var timeUnits = map[string]time.Duration{
	"분": time.Minute, "minute": time.Minute, "minutes": time.Minute, "min": time.Minute, "mins": time.Minute,
	"시간": time.Hour, "hour": time.Hour, "hours": time.Hour, "hr": time.Hour, "hrs": time.Hour, "h": time.Hour,
	"일": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour, "d": 24 * time.Hour,
	"주": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour, "w": 7 * 24 * time.Hour,
}

// NewTimeRangeRule returns the rule that maps relative and calendar time
// expressions onto a symbolic window.
func NewTimeRangeRule() Rule {
	return &baseRule{name: TimeRangeRuleName, priority: 80, extract: extractTimeRange}
}

func extractTimeRange(q *models.SearchQuery) (*RulePatch, bool) {
	text := q.NormalizedInput()

	for _, re := range []*regexp.Regexp{relativeKoreanRe, relativeEnglishRe} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, ok := parseCount(m[1])
		if !ok || n <= 0 {
			continue
		}
		window, label, ok := coveringWindow(time.Duration(n) * timeUnits[m[2]])
		if !ok {
			continue
		}
		return &RulePatch{
			Filters:         models.SearchFilters{TimeRange: window},
			Interpretation:  label,
			MatchedKeywords: []string{m[0]},
			Confidence:      confidenceExplicit,
		}, true
	}

	for _, c := range calendarWindows {
		if m := c.re.FindString(text); m != "" {
			return &RulePatch{
				Filters:         models.SearchFilters{TimeRange: c.window},
				Interpretation:  c.label,
				MatchedKeywords: []string{m},
				Confidence:      confidenceExplicit,
			}, true
		}
	}

	return nil, false
}

// coveringWindow returns the shortest sliding window at least as long as
// span.
func coveringWindow(span time.Duration) (models.TimeRange, string, bool) {
	if span <= 0 {
		return "", "", false
	}
	for _, w := range slidingWindows {
		if span <= w.span {
			return w.window, w.label, true
		}
	}
	return "", "", false
}
