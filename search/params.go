package search

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/orian/sqltelligence/models"
)

// URL parameter keys understood by the statistics endpoint.
const (
	ParamPattern        = "pattern"
	ParamTimeRange      = "time_range"
	ParamOrderBy        = "order_by"
	ParamOrder          = "order"
	ParamLimit          = "limit"
	ParamMinElapsedTime = "min_elapsed_time"
	ParamMaxElapsedTime = "max_elapsed_time"
	ParamMinBufferGets  = "min_buffer_gets"
	ParamMaxBufferGets  = "max_buffer_gets"
	ParamMinExecutions  = "min_executions"
	ParamSchema         = "schema"

	// ParamAISearch marks parameters that came from the smart search
	// rather than from manually set filters.
	ParamAISearch = "ai_search"
)

// URLParam is one ordered query string pair.
type URLParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// FiltersToURLParams maps every set field of f onto its query parameter,
// in a fixed order, followed by ai_search=true.
func FiltersToURLParams(f models.SearchFilters) []URLParam {
	var params []URLParam
	add := func(key, value string) {
		params = append(params, URLParam{Key: key, Value: value})
	}

	if f.SQLPattern != "" {
		add(ParamPattern, f.SQLPattern)
	}
	if f.TimeRange != "" {
		add(ParamTimeRange, string(f.TimeRange))
	}
	if f.SortBy != "" {
		add(ParamOrderBy, string(f.SortBy))
	}
	if f.SortOrder != "" {
		add(ParamOrder, string(f.SortOrder))
	}
	if f.Limit != nil {
		add(ParamLimit, strconv.Itoa(*f.Limit))
	}
	if f.MinElapsedTime != nil {
		add(ParamMinElapsedTime, formatNumber(*f.MinElapsedTime))
	}
	if f.MaxElapsedTime != nil {
		add(ParamMaxElapsedTime, formatNumber(*f.MaxElapsedTime))
	}
	if f.MinBufferGets != nil {
		add(ParamMinBufferGets, strconv.FormatInt(*f.MinBufferGets, 10))
	}
	if f.MaxBufferGets != nil {
		add(ParamMaxBufferGets, strconv.FormatInt(*f.MaxBufferGets, 10))
	}
	if f.MinExecutions != nil {
		add(ParamMinExecutions, strconv.FormatInt(*f.MinExecutions, 10))
	}
	if f.Schema != "" {
		add(ParamSchema, f.Schema)
	}

	add(ParamAISearch, "true")
	return params
}

// EncodeURLParams renders params as a query string, keeping their order.
func EncodeURLParams(params []URLParam) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(parts, "&")
}

// URLParamsToFilters is the inverse of FiltersToURLParams. Unknown keys
// and malformed values are ignored, and the result is sanitized.
func URLParamsToFilters(values url.Values) models.SearchFilters {
	var f models.SearchFilters

	f.SQLPattern = strings.TrimSpace(values.Get(ParamPattern))
	f.TimeRange = models.TimeRange(values.Get(ParamTimeRange))
	f.SortBy = models.SortField(values.Get(ParamOrderBy))
	f.SortOrder = models.SortOrder(strings.ToLower(values.Get(ParamOrder)))
	f.Schema = strings.TrimSpace(values.Get(ParamSchema))

	// An order_by without an order defaults to descending.
	if f.SortBy != "" && f.SortOrder == "" {
		f.SortOrder = models.SortDesc
	}

	if v := values.Get(ParamLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Limit = models.Int(n)
		}
	}
	f.MinElapsedTime = parseFloatParam(values.Get(ParamMinElapsedTime))
	f.MaxElapsedTime = parseFloatParam(values.Get(ParamMaxElapsedTime))
	f.MinBufferGets = parseIntParam(values.Get(ParamMinBufferGets))
	f.MaxBufferGets = parseIntParam(values.Get(ParamMaxBufferGets))
	f.MinExecutions = parseIntParam(values.Get(ParamMinExecutions))

	f.Sanitize()
	return f
}

func parseFloatParam(v string) *float64 {
	if v == "" {
		return nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return models.Float64(n)
}

func parseIntParam(v string) *int64 {
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return models.Int64(n)
}
