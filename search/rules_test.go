package search

import (
	"testing"

	"github.com/orian/sqltelligence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustQuery(t *testing.T, raw string) *models.SearchQuery {
	t.Helper()
	q, err := models.NewSearchQuery(raw)
	require.NoError(t, err)
	return q
}

func TestLimitRule(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantMatch   bool
		wantLimit   int
		wantKeyword string
		wantScore   float64
	}{
		{name: "explicit count", input: "5개", wantMatch: true, wantLimit: 5, wantKeyword: "5개", wantScore: confidenceExplicit},
		{name: "count with only", input: "느린 쿼리 10개만", wantMatch: true, wantLimit: 10, wantKeyword: "10개", wantScore: confidenceExplicit},
		{name: "top digits korean", input: "상위 20", wantMatch: true, wantLimit: 20, wantKeyword: "상위 20", wantScore: confidenceExplicit},
		{name: "top digits english", input: "TOP 3 sql", wantMatch: true, wantLimit: 3, wantKeyword: "top 3", wantScore: confidenceExplicit},
		{name: "number word", input: "다섯 개 보여줘", wantMatch: true, wantLimit: 5, wantKeyword: "다섯 개", wantScore: confidenceExplicit},
		{name: "twenty word", input: "쿼리 스무 개", wantMatch: true, wantLimit: 20, wantKeyword: "스무 개", wantScore: confidenceExplicit},
		{name: "top number word", input: "상위 열 개", wantMatch: true, wantLimit: 10, wantKeyword: "상위 열", wantScore: confidenceExplicit},
		{name: "bare superlative", input: "가장 느린 쿼리", wantMatch: true, wantLimit: 1, wantKeyword: "가장 느린", wantScore: confidenceInferred},
		{name: "explicit count beats superlative", input: "가장 느린 쿼리 3개", wantMatch: true, wantLimit: 3, wantKeyword: "3개", wantScore: confidenceExplicit},
		{name: "upper bound", input: "1000개", wantMatch: true, wantLimit: 1000, wantKeyword: "1000개", wantScore: confidenceExplicit},
		{name: "too many", input: "쿼리 5000개", wantMatch: false},
		{name: "zero", input: "쿼리 0개", wantMatch: false},
		{name: "no count", input: "느린 쿼리", wantMatch: false},
		{name: "milliseconds are not a count", input: "실행시간 100ms 이상", wantMatch: false},
		{name: "count before a comparison", input: "실행 횟수 100건 이상인 쿼리", wantMatch: false},
		{name: "out of range count before a comparison", input: "버퍼 10000건 이상인 쿼리", wantMatch: false},
		{name: "months are not a count", input: "최근 3개월 느린 쿼리", wantMatch: false},
		{name: "months with a space", input: "지난 6 개월", wantMatch: false},
		{name: "count after a threshold", input: "실행 횟수 100건 이상 쿼리 5개", wantMatch: true, wantLimit: 5, wantKeyword: "5개", wantScore: confidenceExplicit},
	}

	rule := NewLimitRule()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := mustQuery(t, tt.input)
			assert.Equal(t, tt.wantMatch, rule.Matches(q))

			patch, err := rule.Apply(q)
			if !tt.wantMatch {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, patch.Filters.Limit)
			assert.Equal(t, tt.wantLimit, *patch.Filters.Limit)
			assert.Equal(t, []string{models.FieldLimit}, patch.Filters.Fields())
			assert.Equal(t, []string{tt.wantKeyword}, patch.MatchedKeywords)
			assert.Equal(t, tt.wantScore, patch.Confidence)
		})
	}
}

func TestTimeRangeRule(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantWindow models.TimeRange
		wantLabel  string
	}{
		{name: "last hour", input: "최근 1시간", wantWindow: models.TimeRange1h, wantLabel: "최근 1시간"},
		{name: "rounded up to covering window", input: "최근 2시간 느린 쿼리", wantWindow: models.TimeRange3h, wantLabel: "최근 3시간"},
		{name: "minutes", input: "지난 30분", wantWindow: models.TimeRange30m, wantLabel: "최근 30분"},
		{name: "korean number word", input: "최근 세 시간", wantWindow: models.TimeRange3h, wantLabel: "최근 3시간"},
		{name: "days", input: "최근 7일", wantWindow: models.TimeRange7d, wantLabel: "최근 7일"},
		{name: "english", input: "slow sql in the last 2 days", wantWindow: models.TimeRange7d, wantLabel: "최근 7일"},
		{name: "today", input: "오늘 느린 쿼리", wantWindow: models.TimeRangeToday, wantLabel: "오늘"},
		{name: "yesterday", input: "어제 실행된 쿼리", wantWindow: models.TimeRangeYesterday, wantLabel: "어제"},
		{name: "this week", input: "이번 주 쿼리", wantWindow: models.TimeRangeThisWeek, wantLabel: "이번 주"},
		{name: "this month", input: "이번달 통계", wantWindow: models.TimeRangeThisMonth, wantLabel: "이번 달"},
		{name: "beyond largest window", input: "최근 90일", wantWindow: ""},
		{name: "elapsed time is not a window", input: "실행시간 100ms 이상", wantWindow: ""},
	}

	rule := NewTimeRangeRule()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := mustQuery(t, tt.input)
			if tt.wantWindow == "" {
				assert.False(t, rule.Matches(q))
				return
			}
			require.True(t, rule.Matches(q))
			patch, err := rule.Apply(q)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWindow, patch.Filters.TimeRange)
			assert.Equal(t, tt.wantLabel, patch.Interpretation)
			assert.NotEmpty(t, patch.MatchedKeywords)
		})
	}
}

func TestPerformanceMetricRule(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantField models.SortField
		wantOrder models.SortOrder
	}{
		{name: "slow", input: "느린 쿼리", wantField: models.SortByElapsedTime, wantOrder: models.SortDesc},
		{name: "long running", input: "오래 걸리는 쿼리", wantField: models.SortByElapsedTime, wantOrder: models.SortDesc},
		{name: "english slow", input: "slowest statements", wantField: models.SortByElapsedTime, wantOrder: models.SortDesc},
		{name: "fast", input: "가장 빠른 쿼리", wantField: models.SortByElapsedTime, wantOrder: models.SortAsc},
		{name: "cpu", input: "CPU 많이 쓰는 쿼리", wantField: models.SortByCPUTime, wantOrder: models.SortDesc},
		{name: "cpu wins over slow", input: "cpu 많이 쓰는 느린 쿼리", wantField: models.SortByCPUTime, wantOrder: models.SortDesc},
		{name: "buffer", input: "버퍼 많이 쓰는 쿼리", wantField: models.SortByBufferGets, wantOrder: models.SortDesc},
		{name: "executions", input: "실행이 많은 쿼리", wantField: models.SortByExecutions, wantOrder: models.SortDesc},
		{name: "frequently executed", input: "자주 실행되는 쿼리", wantField: models.SortByExecutions, wantOrder: models.SortDesc},
		{name: "elapsed threshold is not a sort", input: "실행시간 100ms 이상", wantField: ""},
		{name: "no metric", input: "sys 스키마", wantField: ""},
	}

	rule := NewPerformanceMetricRule()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := mustQuery(t, tt.input)
			if tt.wantField == "" {
				assert.False(t, rule.Matches(q))
				return
			}
			patch, err := rule.Apply(q)
			require.NoError(t, err)
			assert.Equal(t, tt.wantField, patch.Filters.SortBy)
			assert.Equal(t, tt.wantOrder, patch.Filters.SortOrder)
		})
	}
}

func TestSQLTypeRule(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantPattern string
	}{
		{name: "select", input: "SELECT 쿼리", wantPattern: "SELECT"},
		{name: "update statement", input: "느린 update 문", wantPattern: "UPDATE"},
		{name: "korean delete", input: "삭제 쿼리", wantPattern: "DELETE"},
		{name: "korean insert", input: "삽입문 중 느린 것", wantPattern: "INSERT"},
		{name: "word containing verb", input: "selection", wantPattern: ""},
		{name: "nothing", input: "느린 쿼리", wantPattern: ""},
	}

	rule := NewSQLTypeRule()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := mustQuery(t, tt.input)
			if tt.wantPattern == "" {
				assert.False(t, rule.Matches(q))
				return
			}
			patch, err := rule.Apply(q)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPattern, patch.Filters.SQLPattern)
		})
	}
}

func TestSchemaRule(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantSchema string
	}{
		{name: "name before keyword", input: "SYS 스키마에서 실행시간 100ms 이상인 쿼리", wantSchema: "SYS"},
		{name: "keyword before name", input: "스키마 hr의 느린 쿼리", wantSchema: "HR"},
		{name: "english schema", input: "schema: app_user", wantSchema: "APP_USER"},
		{name: "owner", input: "queries owned by owner scott", wantSchema: "SCOTT"},
		{name: "name before english keyword", input: "slow sql in sales schema", wantSchema: "SALES"},
		{name: "quoted keeps case", input: `"MyApp" 쿼리`, wantSchema: "MyApp"},
		{name: "stop word only", input: "in the schema", wantSchema: ""},
		{name: "no schema", input: "느린 쿼리 5개", wantSchema: ""},
	}

	rule := NewSchemaRule()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := mustQuery(t, tt.input)
			if tt.wantSchema == "" {
				assert.False(t, rule.Matches(q))
				return
			}
			patch, err := rule.Apply(q)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSchema, patch.Filters.Schema)
		})
	}
}

func TestThresholdRule(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantMatch bool
		want      models.SearchFilters
	}{
		{
			name:      "elapsed minimum in ms",
			input:     "실행시간 100ms 이상",
			wantMatch: true,
			want:      models.SearchFilters{MinElapsedTime: models.Float64(100)},
		},
		{
			name:      "elapsed in seconds",
			input:     "실행시간이 1.5초 이상",
			wantMatch: true,
			want:      models.SearchFilters{MinElapsedTime: models.Float64(1500)},
		},
		{
			name:      "buffer gets maximum with separators",
			input:     "버퍼 10,000 이하",
			wantMatch: true,
			want:      models.SearchFilters{MaxBufferGets: models.Int64(10000)},
		},
		{
			name:      "executions from unit",
			input:     "1000회 이상 실행된 쿼리",
			wantMatch: true,
			want:      models.SearchFilters{MinExecutions: models.Int64(1000)},
		},
		{
			name:      "range on elapsed",
			input:     "실행시간 100ms 이상 500ms 이하",
			wantMatch: true,
			want:      models.SearchFilters{MinElapsedTime: models.Float64(100), MaxElapsedTime: models.Float64(500)},
		},
		{
			name:      "conflicting maximum is dropped",
			input:     "실행시간 500ms 이상 100ms 이하",
			wantMatch: true,
			want:      models.SearchFilters{MinElapsedTime: models.Float64(500)},
		},
		{
			name:      "english prefix operator",
			input:     "elapsed > 2s",
			wantMatch: true,
			want:      models.SearchFilters{MinElapsedTime: models.Float64(2000)},
		},
		{
			name:      "exceeding",
			input:     "응답시간 3초 초과",
			wantMatch: true,
			want:      models.SearchFilters{MinElapsedTime: models.Float64(3000)},
		},
		{
			name:      "executions counted in 건",
			input:     "실행 횟수 100건 이상인 쿼리",
			wantMatch: true,
			want:      models.SearchFilters{MinExecutions: models.Int64(100)},
		},
		{
			name:      "buffer gets counted in 건",
			input:     "버퍼 10000건 이상인 쿼리",
			wantMatch: true,
			want:      models.SearchFilters{MinBufferGets: models.Int64(10000)},
		},
		{
			name:      "bare count unit is discarded",
			input:     "10개 이상",
			wantMatch: false,
		},
		{
			name:      "unresolved metric is discarded",
			input:     "10000 이하",
			wantMatch: false,
		},
		{
			name:      "executions have no upper bound",
			input:     "실행 횟수 10 이하",
			wantMatch: false,
		},
		{
			name:      "buffer gets with a time unit",
			input:     "버퍼 100ms 이상",
			wantMatch: false,
		},
	}

	rule := NewThresholdRule()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := mustQuery(t, tt.input)
			assert.Equal(t, tt.wantMatch, rule.Matches(q))
			if !tt.wantMatch {
				return
			}
			patch, err := rule.Apply(q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, patch.Filters)
			assert.NotEmpty(t, patch.Interpretation)
			assert.NotEmpty(t, patch.MatchedKeywords)
		})
	}
}

// Every built-in rule that matches must produce a non-empty patch, and no
// rule may ever produce an out-of-range limit.
func TestBuiltinRulesNeverMatchSilently(t *testing.T) {
	corpus := []string{
		"최근 1시간 느린 쿼리 5개",
		"가장 느린 쿼리",
		"가장 느린 쿼리 3개",
		"SYS 스키마에서 실행시간 100ms 이상인 쿼리",
		"asdkjfh",
		"CPU 많이 쓰는 쿼리 상위 10개",
		"버퍼 10000 이상 select",
		"오늘 실행이 많은 update 문 20개",
		"쿼리 99999개",
		"top 0",
		"최근 1000일",
		"10000 이하",
		`"App" schema delete`,
		"last 15 minutes slow queries top 7",
		"실행시간 5초 이상 1초 이하",
		"실행 횟수 100건 이상인 쿼리",
		"버퍼 10000건 이상인 쿼리",
		"최근 3개월 느린 쿼리",
	}

	for _, rule := range BuiltinRules() {
		for _, input := range corpus {
			q := mustQuery(t, input)
			if !rule.Matches(q) {
				continue
			}
			patch, err := rule.Apply(q)
			require.NoError(t, err, "%s on %q", rule.Name(), input)
			assert.False(t, patch.Filters.IsEmpty(), "%s on %q", rule.Name(), input)
			if patch.Filters.Limit != nil {
				assert.True(t, models.ValidLimit(*patch.Filters.Limit), "%s on %q", rule.Name(), input)
			}
		}
	}
}
