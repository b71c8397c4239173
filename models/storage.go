package models

import "errors"

// ErrNotFound is returned when a search or tag does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines the persistence layer for the search history.
//
// The primary implementation is DuckDBStorage which keeps searches and
// their tags in a local DuckDB file.
//
// The interface is organized into two categories:
//   - Search history: SaveSearch, GetSearch, FindLatestByHash, ListSearches
//   - Tag management: AddTag, RemoveTag, GetSearchTags, GetSearchesByTag, ToggleStarred
//
// Implementations should be safe for concurrent use.
type Storage interface {
	// SaveSearch persists a new search. The search's ID must be set.
	SaveSearch(search *SavedSearch) error

	// GetSearch retrieves a search by its ID, without tags.
	GetSearch(id string) (*SavedSearch, bool)

	// FindLatestByHash returns the newest search with the given query hash.
	FindLatestByHash(queryHash string) (*SavedSearch, bool)

	// ListSearches returns up to limit searches, newest first, with their tags.
	ListSearches(limit int) ([]*SavedSearch, error)

	// Close releases any resources held by the storage.
	Close() error

	// AddTag adds a tag ("name" or "key=value") to a search.
	//
	// Returns an error if the tag is empty, the search doesn't exist or
	// the tag already exists on this search.
	AddTag(searchID, tag string) (*SearchTag, error)

	// RemoveTag removes a tag by its ID. Returns ErrNotFound if it doesn't exist.
	RemoveTag(tagID string) error

	// GetSearchTags returns all tags for a search, oldest first.
	GetSearchTags(searchID string) ([]*SearchTag, error)

	// GetSearchesByTag returns searches matching a tag filter, newest first.
	//
	//   - "key": any search with this tag key
	//   - "key=value": searches with the exact pair
	GetSearchesByTag(tag string) ([]*SavedSearch, error)

	// ToggleStarred toggles the starred system tag and returns the new state.
	ToggleStarred(searchID string) (bool, error)
}
