// Package models defines the core data types for sqltelligence, a
// natural language search front end for SQL performance statistics.
package models

import (
	"fmt"
	"strings"
	"time"
)

// SavedSearch is one smart search recorded in the history.
// Identical queries share a record: QueryHash is used to find the last one.
type SavedSearch struct {
	// ID is the unique identifier for this search (UUID).
	ID string `json:"id"`

	// Query is the text as the user typed it.
	Query string `json:"query"`

	// QueryHash is the SHA-256 of the normalized query text.
	QueryHash string `json:"queryHash"`

	// Intent is what the parser understood.
	Intent ParsedIntent `json:"intent"`

	// URLParams is the encoded statistics page query string for Intent.
	URLParams string `json:"urlParams"`

	// Timestamp is when this search was first recorded.
	Timestamp time.Time `json:"timestamp"`

	// Tags contains all tags on this search. Only filled in by list calls.
	Tags []*SearchTag `json:"tags,omitempty"`
}

// StarredTag is the system tag toggled by starring a search.
const StarredTag = "system:starred"

// SearchTag represents a tag on a saved search.
//
// Examples:
//   - Simple tag: {TagKey: "weekly-report", TagValue: ""}
//   - Key-value tag: {TagKey: "team", TagValue: "dba"}
//   - System tag: {TagKey: "system:starred", TagValue: ""}
type SearchTag struct {
	ID        string    `json:"id"`
	SearchID  string    `json:"searchId"`
	TagKey    string    `json:"tagKey"`
	TagValue  string    `json:"tagValue,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ParseTag parses a tag string into key and value components.
//
//   - "weekly-report" -> key="weekly-report", value=""
//   - "team=dba" -> key="team", value="dba"
func ParseTag(tag string) (key string, value string) {
	parts := strings.SplitN(tag, "=", 2)
	key = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		value = strings.TrimSpace(parts[1])
	}
	return key, value
}

// FormatTag returns "key" for simple tags or "key=value".
func (t *SearchTag) FormatTag() string {
	if t.TagValue == "" {
		return t.TagKey
	}
	return fmt.Sprintf("%s=%s", t.TagKey, t.TagValue)
}

// IsSystemTag checks if a tag is reserved for internal use.
func (t *SearchTag) IsSystemTag() bool {
	return strings.HasPrefix(t.TagKey, "system:")
}

// IsStarred reports whether the search carries the starred tag.
func (s *SavedSearch) IsStarred() bool {
	for _, tag := range s.Tags {
		if tag.TagKey == StarredTag {
			return true
		}
	}
	return false
}
