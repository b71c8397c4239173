package main

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/orian/sqltelligence/models"
	"github.com/orian/sqltelligence/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStorage is an in-memory models.Storage for tests.
type memStorage struct {
	mu       sync.Mutex
	searches map[string]*models.SavedSearch
	tags     map[string]*models.SearchTag
	saveErr  error
	saves    int
	nextTag  int
}

func newMemStorage() *memStorage {
	return &memStorage{
		searches: make(map[string]*models.SavedSearch),
		tags:     make(map[string]*models.SearchTag),
	}
}

func (m *memStorage) SaveSearch(s *models.SavedSearch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	copied := *s
	m.searches[s.ID] = &copied
	m.saves++
	return nil
}

func (m *memStorage) GetSearch(id string) (*models.SavedSearch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.searches[id]
	if !ok {
		return nil, false
	}
	copied := *s
	return &copied, true
}

func (m *memStorage) FindLatestByHash(queryHash string) (*models.SavedSearch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.SavedSearch
	for _, s := range m.searches {
		if s.QueryHash == queryHash && (latest == nil || s.Timestamp.After(latest.Timestamp)) {
			latest = s
		}
	}
	if latest == nil {
		return nil, false
	}
	copied := *latest
	return &copied, true
}

func (m *memStorage) sorted(keep func(*models.SavedSearch) bool) []*models.SavedSearch {
	result := []*models.SavedSearch{}
	for _, s := range m.searches {
		if keep(s) {
			copied := *s
			copied.Tags = m.tagsFor(s.ID)
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.After(result[j].Timestamp) })
	return result
}

func (m *memStorage) ListSearches(limit int) ([]*models.SavedSearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := m.sorted(func(*models.SavedSearch) bool { return true })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *memStorage) Close() error { return nil }

func (m *memStorage) AddTag(searchID, tag string) (*models.SearchTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, value := models.ParseTag(tag)
	if key == "" {
		return nil, errors.New("tag key is required")
	}
	if _, ok := m.searches[searchID]; !ok {
		return nil, fmt.Errorf("search %s: %w", searchID, models.ErrNotFound)
	}
	for _, t := range m.tags {
		if t.SearchID == searchID && t.TagKey == key && t.TagValue == value {
			return nil, errors.New("tag already exists on this search")
		}
	}
	m.nextTag++
	t := &models.SearchTag{
		ID:        fmt.Sprintf("tag-%d", m.nextTag),
		SearchID:  searchID,
		TagKey:    key,
		TagValue:  value,
		CreatedAt: time.Now(),
	}
	m.tags[t.ID] = t
	return t, nil
}

func (m *memStorage) RemoveTag(tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tags[tagID]; !ok {
		return fmt.Errorf("tag %s: %w", tagID, models.ErrNotFound)
	}
	delete(m.tags, tagID)
	return nil
}

func (m *memStorage) tagsFor(searchID string) []*models.SearchTag {
	tags := []*models.SearchTag{}
	for _, t := range m.tags {
		if t.SearchID == searchID {
			tags = append(tags, t)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags
}

func (m *memStorage) GetSearchTags(searchID string) ([]*models.SearchTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tagsFor(searchID), nil
}

func (m *memStorage) GetSearchesByTag(tag string) ([]*models.SavedSearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, value := models.ParseTag(tag)
	return m.sorted(func(s *models.SavedSearch) bool {
		for _, t := range m.tagsFor(s.ID) {
			if t.TagKey == key && (value == "" || t.TagValue == value) {
				return true
			}
		}
		return false
	}), nil
}

func (m *memStorage) ToggleStarred(searchID string) (bool, error) {
	m.mu.Lock()
	for id, t := range m.tags {
		if t.SearchID == searchID && t.TagKey == models.StarredTag {
			delete(m.tags, id)
			m.mu.Unlock()
			return false, nil
		}
	}
	m.mu.Unlock()

	if _, err := m.AddTag(searchID, models.StarredTag); err != nil {
		return false, err
	}
	return true, nil
}

var _ models.Storage = (*memStorage)(nil)

func TestSearchServiceRecordsSearch(t *testing.T) {
	storage := newMemStorage()
	svc := NewSearchService(storage, nil)

	result := svc.Search("최근 1시간 느린 쿼리 5개")

	assert.NotEmpty(t, result.SearchID)
	assert.False(t, result.ResultsReused)
	assert.Equal(t, models.ConfidenceHigh, result.Confidence)
	assert.Equal(t, "time_range=1h&order_by=elapsed_time&order=desc&limit=5&ai_search=true", result.URLParams)

	saved, ok := storage.GetSearch(result.SearchID)
	require.True(t, ok)
	assert.Equal(t, "최근 1시간 느린 쿼리 5개", saved.Query)
	assert.Equal(t, hashQuery("최근 1시간 느린 쿼리 5개"), saved.QueryHash)
	assert.Equal(t, result.Filters, saved.Intent.Filters)
	assert.Equal(t, result.URLParams, saved.URLParams)
}

func TestSearchServiceReusesIdenticalQuery(t *testing.T) {
	storage := newMemStorage()
	svc := NewSearchService(storage, nil)

	first := svc.Search("가장 느린 쿼리")
	second := svc.Search("  가장   느린 쿼리 ")

	assert.True(t, second.ResultsReused)
	assert.Equal(t, first.SearchID, second.SearchID)
	assert.Equal(t, first.Filters, second.Filters)
	assert.Equal(t, first.Interpretation, second.Interpretation)
	assert.Equal(t, "  가장   느린 쿼리 ", second.OriginalQuery)
	assert.Equal(t, 1, storage.saves)
}

func TestSearchServiceDoesNotReuseFallback(t *testing.T) {
	storage := newMemStorage()
	svc := NewSearchService(storage, nil)

	first := svc.Search("asdkjfh")
	second := svc.Search("asdkjfh")

	assert.False(t, second.ResultsReused)
	assert.NotEqual(t, first.SearchID, second.SearchID)
	assert.Equal(t, 2, storage.saves)
}

func TestSearchServiceSkipsEmptyQuery(t *testing.T) {
	storage := newMemStorage()
	svc := NewSearchService(storage, nil)

	result := svc.Search("   ")

	assert.Empty(t, result.SearchID)
	assert.Equal(t, models.ConfidenceLow, result.Confidence)
	assert.NotEmpty(t, result.Suggestions)
	assert.Equal(t, "ai_search=true", result.URLParams)
	assert.Equal(t, 0, storage.saves)
}

func TestSearchServiceWithoutHistory(t *testing.T) {
	svc := NewSearchService(nil, nil)

	result := svc.Search("느린 쿼리")

	assert.Empty(t, result.SearchID)
	assert.False(t, result.ResultsReused)
	assert.Equal(t, models.SortByElapsedTime, result.Filters.SortBy)
}

func TestSearchServiceSaveFailureStillAnswers(t *testing.T) {
	storage := newMemStorage()
	storage.saveErr = errors.New("disk full")
	svc := NewSearchService(storage, nil)

	result := svc.Search("느린 쿼리")

	assert.Empty(t, result.SearchID)
	assert.Equal(t, models.ConfidenceMedium, result.Confidence)
}

func TestCheckCachedSearch(t *testing.T) {
	understood := &models.SavedSearch{
		ID:        "understood",
		QueryHash: "h1",
		Intent: models.ParsedIntent{
			Confidence:   models.ConfidenceMedium,
			MatchedRules: []models.MatchedRule{{RuleName: search.PerformanceMetricRuleName}},
		},
		Timestamp: time.Now(),
	}
	fallback := &models.SavedSearch{
		ID:        "fallback",
		QueryHash: "h2",
		Intent:    *models.NewDefaultIntent("asdkjfh"),
		Timestamp: time.Now(),
	}

	storage := newMemStorage()
	require.NoError(t, storage.SaveSearch(understood))
	require.NoError(t, storage.SaveSearch(fallback))

	tests := []struct {
		name      string
		storage   models.Storage
		queryHash string
		wantID    string
		wantOK    bool
	}{
		{name: "history disabled", storage: nil, queryHash: "h1"},
		{name: "unknown hash", storage: storage, queryHash: "missing"},
		{name: "fallback is parsed again", storage: storage, queryHash: "h2"},
		{name: "understood search is reused", storage: storage, queryHash: "h1", wantID: "understood", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := checkCachedSearch(tt.storage, tt.queryHash)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, got.ID)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestBuildSmartSearchResult(t *testing.T) {
	resp := search.SmartSearchResponse{
		OriginalQuery: "q",
		Filters:       models.SearchFilters{Schema: "SYS"},
	}
	saved := &models.SavedSearch{ID: "search-id"}

	tests := []struct {
		name          string
		saved         *models.SavedSearch
		resultsReused bool
		wantID        string
	}{
		{name: "not recorded", saved: nil},
		{name: "recorded", saved: saved, wantID: "search-id"},
		{name: "reused", saved: saved, resultsReused: true, wantID: "search-id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSmartSearchResult(resp, tt.saved, tt.resultsReused)

			assert.Equal(t, tt.wantID, got.SearchID)
			assert.Equal(t, tt.resultsReused, got.ResultsReused)
			assert.Equal(t, resp, got.SmartSearchResponse)
			assert.Equal(t, "schema=SYS&ai_search=true", got.URLParams)
		})
	}
}

func TestCreateSavedSearch(t *testing.T) {
	resp := search.NewSmartSearch(nil).Execute(search.SmartSearchRequest{Query: "SYS 스키마"})

	saved := createSavedSearch("SYS 스키마", "hash123", resp)

	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "SYS 스키마", saved.Query)
	assert.Equal(t, "hash123", saved.QueryHash)
	assert.Equal(t, resp.Filters, saved.Intent.Filters)
	assert.Equal(t, resp.MatchedRules, saved.Intent.MatchedRules)
	assert.Equal(t, "schema=SYS&ai_search=true", saved.URLParams)
	assert.False(t, saved.Timestamp.IsZero())
}

func TestBuildLogComment(t *testing.T) {
	assert.JSONEq(t, `{"query_hash":"abc","product":"sqltelligence"}`, buildLogComment("abc"))
	assert.Len(t, hashQuery("SELECT 1"), 64)
}
