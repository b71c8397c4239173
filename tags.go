package main

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/orian/sqltelligence/models"
)

// Tag management methods for DuckDBStorage

// AddTag adds a tag to a saved search
func (s *DuckDBStorage) AddTag(searchID, tag string) (*models.SearchTag, error) {
	key, value := models.ParseTag(tag)
	if key == "" {
		return nil, fmt.Errorf("tag key is required")
	}

	if _, exists := s.GetSearch(searchID); !exists {
		return nil, fmt.Errorf("search %s: %w", searchID, models.ErrNotFound)
	}

	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM search_tags
		WHERE search_id = ? AND tag_key = ? AND COALESCE(tag_value, '') = ?
	`, searchID, key, value).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing tag: %w", err)
	}

	if count > 0 {
		return nil, fmt.Errorf("tag already exists on this search")
	}

	tagObj := &models.SearchTag{
		ID:        generateID(),
		SearchID:  searchID,
		TagKey:    key,
		TagValue:  value,
		CreatedAt: time.Now(),
	}

	_, err = s.db.Exec(`
		INSERT INTO search_tags (id, search_id, tag_key, tag_value, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, tagObj.ID, tagObj.SearchID, tagObj.TagKey, nullString(tagObj.TagValue), tagObj.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert tag: %w", err)
	}

	return tagObj, nil
}

// RemoveTag removes a tag from a search
func (s *DuckDBStorage) RemoveTag(tagID string) error {
	result, err := s.db.Exec("DELETE FROM search_tags WHERE id = ?", tagID)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("tag %s: %w", tagID, models.ErrNotFound)
	}

	return nil
}

// GetSearchTags gets all tags for a search
func (s *DuckDBStorage) GetSearchTags(searchID string) ([]*models.SearchTag, error) {
	rows, err := s.db.Query(`
		SELECT id, search_id, tag_key, COALESCE(tag_value, ''), created_at
		FROM search_tags
		WHERE search_id = ?
		ORDER BY created_at ASC
	`, searchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	return scanTags(rows)
}

func scanTags(rows *sql.Rows) ([]*models.SearchTag, error) {
	tags := []*models.SearchTag{}
	for rows.Next() {
		var tag models.SearchTag
		if err := rows.Scan(&tag.ID, &tag.SearchID, &tag.TagKey, &tag.TagValue, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, &tag)
	}
	return tags, rows.Err()
}

// GetSearchesByTag finds searches that have a specific tag. A bare key
// matches the key with any value.
func (s *DuckDBStorage) GetSearchesByTag(tag string) ([]*models.SavedSearch, error) {
	key, value := models.ParseTag(tag)
	if key == "" {
		return nil, fmt.Errorf("tag key is required")
	}

	query := `
		SELECT ` + searchColumns + `
		FROM searches
		WHERE id IN (
			SELECT search_id FROM search_tags
			WHERE tag_key = ? AND (CAST(? AS VARCHAR) = '' OR COALESCE(tag_value, '') = ?)
		)
		ORDER BY timestamp DESC
	`

	rows, err := s.db.Query(query, key, value, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query searches by tag: %w", err)
	}
	defer rows.Close()

	searches, err := scanSearches(rows)
	if err != nil {
		return nil, err
	}

	if err := s.attachTags(searches); err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	return searches, nil
}

// ToggleStarred toggles the system:starred tag on a search
func (s *DuckDBStorage) ToggleStarred(searchID string) (bool, error) {
	var tagID string
	err := s.db.QueryRow(`
		SELECT id FROM search_tags
		WHERE search_id = ? AND tag_key = ?
	`, searchID, models.StarredTag).Scan(&tagID)

	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.AddTag(searchID, models.StarredTag); err != nil {
			return false, fmt.Errorf("failed to star search: %w", err)
		}
		return true, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to check star status: %w", err)
	}

	if err := s.RemoveTag(tagID); err != nil {
		return false, fmt.Errorf("failed to unstar search: %w", err)
	}
	return false, nil
}
