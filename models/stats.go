package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SQLStat is one statement snapshot from the statistics table in ClickHouse.
type SQLStat struct {
	SQLID         string    `json:"sqlId"`
	SQLText       string    `json:"sqlText"`
	Schema        string    `json:"schema"`
	ElapsedTimeMs float64   `json:"elapsedTimeMs"`
	CPUTimeMs     float64   `json:"cpuTimeMs"`
	BufferGets    int64     `json:"bufferGets"`
	Executions    int64     `json:"executions"`
	CapturedAt    time.Time `json:"capturedAt"`
}

// StatsColumns lists the selected columns in SQLStat field order.
var StatsColumns = []string{
	"sql_id",
	"sql_text",
	"parsing_schema",
	"elapsed_time_ms",
	"cpu_time_ms",
	"buffer_gets",
	"executions",
	"captured_at",
}

// StatsTableDDL creates the table the statistics queries read from.
// The single %s is the table name.
const StatsTableDDL = `CREATE TABLE IF NOT EXISTS %s (
	sql_id String,
	sql_text String,
	parsing_schema LowCardinality(String),
	elapsed_time_ms Float64,
	cpu_time_ms Float64,
	buffer_gets Int64,
	executions Int64,
	captured_at DateTime
) ENGINE = MergeTree
ORDER BY (parsing_schema, captured_at)`

// DefaultStatsLimit is used when the filters carry no limit.
const DefaultStatsLimit = 100

// StatsQueryOptions controls everything about a statistics query that
// does not come from the user's filters.
type StatsQueryOptions struct {
	// Table is the (optionally database-qualified) statistics table.
	Table string

	// LogComment is attached as the log_comment setting for tracking.
	LogComment string

	// MaxExecutionTimeMs bounds the query on the server. 0 means no bound.
	MaxExecutionTimeMs int
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

var sortColumns = map[SortField]string{
	SortByElapsedTime: "elapsed_time_ms",
	SortByCPUTime:     "cpu_time_ms",
	SortByBufferGets:  "buffer_gets",
	SortByExecutions:  "executions",
}

// TimeRangeCondition returns the ClickHouse predicate on captured_at for r,
// or "" when r is not set or unknown.
func TimeRangeCondition(r TimeRange) string {
	switch r {
	case TimeRange5m:
		return "captured_at >= now() - INTERVAL 5 MINUTE"
	case TimeRange15m:
		return "captured_at >= now() - INTERVAL 15 MINUTE"
	case TimeRange30m:
		return "captured_at >= now() - INTERVAL 30 MINUTE"
	case TimeRange1h:
		return "captured_at >= now() - INTERVAL 1 HOUR"
	case TimeRange3h:
		return "captured_at >= now() - INTERVAL 3 HOUR"
	case TimeRange6h:
		return "captured_at >= now() - INTERVAL 6 HOUR"
	case TimeRange12h:
		return "captured_at >= now() - INTERVAL 12 HOUR"
	case TimeRange24h:
		return "captured_at >= now() - INTERVAL 24 HOUR"
	case TimeRange7d:
		return "captured_at >= now() - INTERVAL 7 DAY"
	case TimeRange30d:
		return "captured_at >= now() - INTERVAL 30 DAY"
	case TimeRangeToday:
		return "captured_at >= today()"
	case TimeRangeYesterday:
		return "captured_at >= yesterday() AND captured_at < today()"
	case TimeRangeThisWeek:
		return "captured_at >= toMonday(today())"
	case TimeRangeThisMonth:
		return "captured_at >= toStartOfMonth(today())"
	}
	return ""
}

// BuildStatsQuery constructs the statistics SELECT for the given filters.
//
// User supplied values are never inlined: they are returned as positional
// arguments for the driver to bind. Sorting defaults to elapsed time
// descending and the limit to DefaultStatsLimit.
func BuildStatsQuery(f SearchFilters, opts StatsQueryOptions) (string, []any, error) {
	if !tableNameRe.MatchString(opts.Table) {
		return "", nil, fmt.Errorf("invalid statistics table name %q", opts.Table)
	}

	f.Sanitize()

	var conditions []string
	var args []any

	if cond := TimeRangeCondition(f.TimeRange); cond != "" {
		conditions = append(conditions, cond)
	}
	if f.SQLPattern != "" {
		conditions = append(conditions, "positionCaseInsensitive(sql_text, ?) > 0")
		args = append(args, f.SQLPattern)
	}
	if f.Schema != "" {
		conditions = append(conditions, "parsing_schema = ?")
		args = append(args, f.Schema)
	}
	if f.MinElapsedTime != nil {
		conditions = append(conditions, "elapsed_time_ms >= ?")
		args = append(args, *f.MinElapsedTime)
	}
	if f.MaxElapsedTime != nil {
		conditions = append(conditions, "elapsed_time_ms <= ?")
		args = append(args, *f.MaxElapsedTime)
	}
	if f.MinBufferGets != nil {
		conditions = append(conditions, "buffer_gets >= ?")
		args = append(args, *f.MinBufferGets)
	}
	if f.MaxBufferGets != nil {
		conditions = append(conditions, "buffer_gets <= ?")
		args = append(args, *f.MaxBufferGets)
	}
	if f.MinExecutions != nil {
		conditions = append(conditions, "executions >= ?")
		args = append(args, *f.MinExecutions)
	}

	parts := []string{
		fmt.Sprintf("SELECT %s FROM %s", strings.Join(StatsColumns, ", "), opts.Table),
	}
	if len(conditions) > 0 {
		parts = append(parts, "WHERE", strings.Join(conditions, " AND "))
	}

	column := sortColumns[SortByElapsedTime]
	direction := "DESC"
	if f.SortBy != "" {
		column = sortColumns[f.SortBy]
		direction = strings.ToUpper(string(f.SortOrder))
	}
	parts = append(parts, fmt.Sprintf("ORDER BY %s %s", column, direction))

	limit := DefaultStatsLimit
	if f.Limit != nil {
		limit = *f.Limit
	}
	parts = append(parts, fmt.Sprintf("LIMIT %d", limit))

	var settingsClause []string
	if opts.LogComment != "" {
		settingsClause = append(settingsClause, fmt.Sprintf("log_comment='%s'", strings.ReplaceAll(opts.LogComment, "'", "\\'")))
	}
	if opts.MaxExecutionTimeMs > 0 {
		seconds := strconv.FormatFloat(float64(opts.MaxExecutionTimeMs)/1000, 'f', -1, 64)
		settingsClause = append(settingsClause, "max_execution_time="+seconds)
	}
	if len(settingsClause) > 0 {
		parts = append(parts, "SETTINGS", strings.Join(settingsClause, ", "))
	}

	return strings.Join(parts, " "), args, nil
}
