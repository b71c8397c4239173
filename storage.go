package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"
	"github.com/orian/sqltelligence/models"
)

// DefaultHistoryLimit caps ListSearches when no limit is given.
const DefaultHistoryLimit = 50

type DuckDBStorage struct {
	db *sql.DB
}

var _ models.Storage = (*DuckDBStorage)(nil)

func NewDuckDBStorage(dbPath string) (*DuckDBStorage, error) {
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	storage := &DuckDBStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

func (s *DuckDBStorage) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS searches (
			id VARCHAR PRIMARY KEY,
			query TEXT NOT NULL,
			query_hash VARCHAR NOT NULL,
			intent TEXT,
			url_params TEXT,
			timestamp TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS search_tags (
			id VARCHAR PRIMARY KEY,
			search_id VARCHAR NOT NULL,
			tag_key VARCHAR NOT NULL,
			tag_value VARCHAR,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (search_id) REFERENCES searches(id)
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

const searchColumns = "id, query, query_hash, COALESCE(intent, '{}'), COALESCE(url_params, ''), timestamp"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSearch(row rowScanner) (*models.SavedSearch, error) {
	var s models.SavedSearch
	var intentJSON string
	if err := row.Scan(&s.ID, &s.Query, &s.QueryHash, &intentJSON, &s.URLParams, &s.Timestamp); err != nil {
		return nil, err
	}

	if intentJSON != "" && intentJSON != "{}" {
		if err := json.Unmarshal([]byte(intentJSON), &s.Intent); err != nil {
			log.Printf("Warning: failed to unmarshal intent for search %s: %v", s.ID, err)
		}
	}

	return &s, nil
}

func (s *DuckDBStorage) SaveSearch(search *models.SavedSearch) error {
	if search.ID == "" {
		return fmt.Errorf("search id is required")
	}

	intentJSON, err := json.Marshal(search.Intent)
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO searches (id, query, query_hash, intent, url_params, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		search.ID, search.Query, search.QueryHash, string(intentJSON), search.URLParams, search.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert search: %w", err)
	}

	return nil
}

func (s *DuckDBStorage) GetSearch(id string) (*models.SavedSearch, bool) {
	row := s.db.QueryRow("SELECT "+searchColumns+" FROM searches WHERE id = ?", id)
	search, err := scanSearch(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("Failed to load search %s: %v", id, err)
		}
		return nil, false
	}
	return search, true
}

func (s *DuckDBStorage) FindLatestByHash(queryHash string) (*models.SavedSearch, bool) {
	row := s.db.QueryRow(
		"SELECT "+searchColumns+" FROM searches WHERE query_hash = ? ORDER BY timestamp DESC LIMIT 1",
		queryHash,
	)
	search, err := scanSearch(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("Failed to look up search by hash %s: %v", queryHash, err)
		}
		return nil, false
	}
	return search, true
}

func (s *DuckDBStorage) ListSearches(limit int) ([]*models.SavedSearch, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.Query(
		"SELECT "+searchColumns+" FROM searches ORDER BY timestamp DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
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

func scanSearches(rows *sql.Rows) ([]*models.SavedSearch, error) {
	searches := []*models.SavedSearch{}
	for rows.Next() {
		search, err := scanSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		search.Tags = []*models.SearchTag{}
		searches = append(searches, search)
	}
	return searches, rows.Err()
}

// attachTags loads the tags for all searches in one query.
func (s *DuckDBStorage) attachTags(searches []*models.SavedSearch) error {
	if len(searches) == 0 {
		return nil
	}

	ids := make([]string, len(searches))
	for i, search := range searches {
		ids[i] = search.ID
	}

	tags, err := s.getTagsForSearches(ids)
	if err != nil {
		return err
	}

	tagsBySearch := make(map[string][]*models.SearchTag)
	for _, tag := range tags {
		tagsBySearch[tag.SearchID] = append(tagsBySearch[tag.SearchID], tag)
	}
	for _, search := range searches {
		if tags, ok := tagsBySearch[search.ID]; ok {
			search.Tags = tags
		}
	}
	return nil
}

func (s *DuckDBStorage) getTagsForSearches(searchIDs []string) ([]*models.SearchTag, error) {
	placeholders := make([]string, len(searchIDs))
	args := make([]any, len(searchIDs))
	for i, id := range searchIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, search_id, tag_key, COALESCE(tag_value, ''), created_at
		FROM search_tags
		WHERE search_id IN (%s)
		ORDER BY created_at ASC
	`, strings.Join(placeholders, ", "))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTags(rows)
}

func (s *DuckDBStorage) Close() error {
	return s.db.Close()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func generateID() string {
	return uuid.New().String()
}
