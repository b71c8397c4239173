package models

import "math"

// TimeRange is a symbolic look-back window understood by the statistics
// query layer.
type TimeRange string

const (
	TimeRange5m        TimeRange = "5m"
	TimeRange15m       TimeRange = "15m"
	TimeRange30m       TimeRange = "30m"
	TimeRange1h        TimeRange = "1h"
	TimeRange3h        TimeRange = "3h"
	TimeRange6h        TimeRange = "6h"
	TimeRange12h       TimeRange = "12h"
	TimeRange24h       TimeRange = "24h"
	TimeRange7d        TimeRange = "7d"
	TimeRange30d       TimeRange = "30d"
	TimeRangeToday     TimeRange = "today"
	TimeRangeYesterday TimeRange = "yesterday"
	TimeRangeThisWeek  TimeRange = "this_week"
	TimeRangeThisMonth TimeRange = "this_month"
)

// IsValid reports whether r is one of the known windows.
func (r TimeRange) IsValid() bool {
	switch r {
	case TimeRange5m, TimeRange15m, TimeRange30m, TimeRange1h, TimeRange3h,
		TimeRange6h, TimeRange12h, TimeRange24h, TimeRange7d, TimeRange30d,
		TimeRangeToday, TimeRangeYesterday, TimeRangeThisWeek, TimeRangeThisMonth:
		return true
	}
	return false
}

// SortField is the metric SQL statistics are ordered by.
type SortField string

const (
	SortByElapsedTime SortField = "elapsed_time"
	SortByCPUTime     SortField = "cpu_time"
	SortByBufferGets  SortField = "buffer_gets"
	SortByExecutions  SortField = "executions"
)

// IsValid reports whether f belongs to the metric vocabulary.
func (f SortField) IsValid() bool {
	switch f {
	case SortByElapsedTime, SortByCPUTime, SortByBufferGets, SortByExecutions:
		return true
	}
	return false
}

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// IsValid reports whether o is asc or desc.
func (o SortOrder) IsValid() bool {
	return o == SortAsc || o == SortDesc
}

// Limit bounds.
const (
	MinLimit = 1
	MaxLimit = 1000
)

// SearchFilters is the structured filter set derived from a smart search.
// Every field is optional: empty strings and nil pointers mean "not set".
type SearchFilters struct {
	// SQLPattern is a keyword matched against the SQL text.
	SQLPattern string `json:"sqlPattern,omitempty"`

	TimeRange TimeRange `json:"timeRange,omitempty"`
	SortBy    SortField `json:"sortBy,omitempty"`
	SortOrder SortOrder `json:"sortOrder,omitempty"`

	// Limit is kept within [MinLimit, MaxLimit].
	Limit *int `json:"limit,omitempty"`

	// Elapsed time bounds in milliseconds.
	MinElapsedTime *float64 `json:"minElapsedTime,omitempty"`
	MaxElapsedTime *float64 `json:"maxElapsedTime,omitempty"`

	MinBufferGets *int64 `json:"minBufferGets,omitempty"`
	MaxBufferGets *int64 `json:"maxBufferGets,omitempty"`
	MinExecutions *int64 `json:"minExecutions,omitempty"`

	// Schema is the parsing schema / owner of the statement.
	Schema string `json:"schema,omitempty"`
}

// Filter field names, in URL parameter order.
const (
	FieldSQLPattern     = "sqlPattern"
	FieldTimeRange      = "timeRange"
	FieldSortBy         = "sortBy"
	FieldSortOrder      = "sortOrder"
	FieldLimit          = "limit"
	FieldMinElapsedTime = "minElapsedTime"
	FieldMaxElapsedTime = "maxElapsedTime"
	FieldMinBufferGets  = "minBufferGets"
	FieldMaxBufferGets  = "maxBufferGets"
	FieldMinExecutions  = "minExecutions"
	FieldSchema         = "schema"
)

// Fields returns the names of the fields that are set, in a fixed order.
func (f SearchFilters) Fields() []string {
	var fields []string
	if f.SQLPattern != "" {
		fields = append(fields, FieldSQLPattern)
	}
	if f.TimeRange != "" {
		fields = append(fields, FieldTimeRange)
	}
	if f.SortBy != "" {
		fields = append(fields, FieldSortBy)
	}
	if f.SortOrder != "" {
		fields = append(fields, FieldSortOrder)
	}
	if f.Limit != nil {
		fields = append(fields, FieldLimit)
	}
	if f.MinElapsedTime != nil {
		fields = append(fields, FieldMinElapsedTime)
	}
	if f.MaxElapsedTime != nil {
		fields = append(fields, FieldMaxElapsedTime)
	}
	if f.MinBufferGets != nil {
		fields = append(fields, FieldMinBufferGets)
	}
	if f.MaxBufferGets != nil {
		fields = append(fields, FieldMaxBufferGets)
	}
	if f.MinExecutions != nil {
		fields = append(fields, FieldMinExecutions)
	}
	if f.Schema != "" {
		fields = append(fields, FieldSchema)
	}
	return fields
}

// IsEmpty reports whether no field is set.
func (f SearchFilters) IsEmpty() bool {
	return len(f.Fields()) == 0
}

// MergeMissing copies into f every field of patch that f has not set yet
// and returns the names of the fields it took. Fields already set in f
// are left untouched, so the first writer wins.
//
// Sort field and order travel together: they are taken only when f has
// neither of them.
func (f *SearchFilters) MergeMissing(patch SearchFilters) []string {
	var taken []string
	if f.SQLPattern == "" && patch.SQLPattern != "" {
		f.SQLPattern = patch.SQLPattern
		taken = append(taken, FieldSQLPattern)
	}
	if f.TimeRange == "" && patch.TimeRange != "" {
		f.TimeRange = patch.TimeRange
		taken = append(taken, FieldTimeRange)
	}
	if f.SortBy == "" && f.SortOrder == "" && patch.SortBy != "" && patch.SortOrder != "" {
		f.SortBy = patch.SortBy
		f.SortOrder = patch.SortOrder
		taken = append(taken, FieldSortBy, FieldSortOrder)
	}
	if f.Limit == nil && patch.Limit != nil {
		f.Limit = patch.Limit
		taken = append(taken, FieldLimit)
	}
	if f.MinElapsedTime == nil && patch.MinElapsedTime != nil {
		f.MinElapsedTime = patch.MinElapsedTime
		taken = append(taken, FieldMinElapsedTime)
	}
	if f.MaxElapsedTime == nil && patch.MaxElapsedTime != nil {
		f.MaxElapsedTime = patch.MaxElapsedTime
		taken = append(taken, FieldMaxElapsedTime)
	}
	if f.MinBufferGets == nil && patch.MinBufferGets != nil {
		f.MinBufferGets = patch.MinBufferGets
		taken = append(taken, FieldMinBufferGets)
	}
	if f.MaxBufferGets == nil && patch.MaxBufferGets != nil {
		f.MaxBufferGets = patch.MaxBufferGets
		taken = append(taken, FieldMaxBufferGets)
	}
	if f.MinExecutions == nil && patch.MinExecutions != nil {
		f.MinExecutions = patch.MinExecutions
		taken = append(taken, FieldMinExecutions)
	}
	if f.Schema == "" && patch.Schema != "" {
		f.Schema = patch.Schema
		taken = append(taken, FieldSchema)
	}
	return taken
}

// Sanitize enforces the filter invariants in place: unknown enum values,
// negative or non-finite numbers are removed, the limit is clamped, and
// when a minimum exceeds its maximum the maximum is dropped.
func (f *SearchFilters) Sanitize() {
	if f.TimeRange != "" && !f.TimeRange.IsValid() {
		f.TimeRange = ""
	}
	if !f.SortBy.IsValid() || !f.SortOrder.IsValid() {
		f.SortBy = ""
		f.SortOrder = ""
	}
	if f.Limit != nil {
		f.Limit = Int(ClampLimit(*f.Limit))
	}

	f.MinElapsedTime = validFloat(f.MinElapsedTime)
	f.MaxElapsedTime = validFloat(f.MaxElapsedTime)
	f.MinBufferGets = validInt(f.MinBufferGets)
	f.MaxBufferGets = validInt(f.MaxBufferGets)
	f.MinExecutions = validInt(f.MinExecutions)

	if f.MinElapsedTime != nil && f.MaxElapsedTime != nil && *f.MinElapsedTime > *f.MaxElapsedTime {
		f.MaxElapsedTime = nil
	}
	if f.MinBufferGets != nil && f.MaxBufferGets != nil && *f.MinBufferGets > *f.MaxBufferGets {
		f.MaxBufferGets = nil
	}
}

// ClampLimit forces n into [MinLimit, MaxLimit].
func ClampLimit(n int) int {
	if n < MinLimit {
		return MinLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// ValidLimit reports whether n is inside [MinLimit, MaxLimit].
func ValidLimit(n int) bool {
	return n >= MinLimit && n <= MaxLimit
}

func validFloat(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return nil
	}
	return v
}

func validInt(v *int64) *int64 {
	if v == nil || *v < 0 {
		return nil
	}
	return v
}

// Int returns a pointer to n.
func Int(n int) *int { return &n }

// Int64 returns a pointer to n.
func Int64(n int64) *int64 { return &n }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }
