package models

import "strings"

// SearchQuery is the free-form text typed into the smart search box.
//
// The raw input is kept verbatim for display. Matching always happens on
// the normalized form: trimmed, whitespace collapsed to single spaces and
// lower-cased.
type SearchQuery struct {
	raw        string
	normalized string
}

// NewSearchQuery normalizes raw and returns a ValidationError with kind
// EmptyQuery when nothing is left.
func NewSearchQuery(raw string) (*SearchQuery, error) {
	normalized := NormalizeInput(raw)
	if normalized == "" {
		return nil, &ValidationError{Kind: EmptyQuery, Message: "search query is empty"}
	}
	return &SearchQuery{raw: raw, normalized: normalized}, nil
}

// RawInput returns the input exactly as the user typed it.
func (q *SearchQuery) RawInput() string { return q.raw }

// NormalizedInput returns the matching form of the input.
func (q *SearchQuery) NormalizedInput() string { return q.normalized }

// CollapsedInput returns the raw input with whitespace collapsed but case
// preserved. Rules that echo identifiers back use it.
func (q *SearchQuery) CollapsedInput() string {
	return strings.Join(strings.Fields(q.raw), " ")
}

// NormalizeInput applies the search normalization to s.
func NormalizeInput(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
