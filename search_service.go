package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/orian/sqltelligence/models"
	"github.com/orian/sqltelligence/search"
)

// productName tags ClickHouse sessions and query log comments.
const productName = "sqltelligence"

// SmartSearchResult is the smart search response plus its place in the
// search history.
type SmartSearchResult struct {
	search.SmartSearchResponse

	// SearchID is empty when history is disabled or recording failed.
	SearchID      string `json:"searchId,omitempty"`
	URLParams     string `json:"urlParams"`
	ResultsReused bool   `json:"resultsReused"`
}

// SearchService runs smart searches and records them in the history.
type SearchService struct {
	storage     models.Storage
	smartSearch *search.SmartSearch
}

// NewSearchService creates a SearchService. A nil storage disables the history.
func NewSearchService(storage models.Storage, smartSearch *search.SmartSearch) *SearchService {
	if smartSearch == nil {
		smartSearch = search.NewSmartSearch(nil)
	}
	return &SearchService{
		storage:     storage,
		smartSearch: smartSearch,
	}
}

// Search interprets query. An identical earlier query with a usable
// result is returned as-is instead of being recorded again.
func (s *SearchService) Search(query string) SmartSearchResult {
	normalized := models.NormalizeInput(query)
	queryHash := hashQuery(normalized)

	if cached, ok := checkCachedSearch(s.storage, queryHash); ok {
		return buildSmartSearchResult(responseFromSaved(query, cached), cached, true)
	}

	resp := s.smartSearch.Execute(search.SmartSearchRequest{Query: query})
	if s.storage == nil || normalized == "" {
		return buildSmartSearchResult(resp, nil, false)
	}

	saved := createSavedSearch(query, queryHash, resp)
	if err := s.storage.SaveSearch(saved); err != nil {
		log.Printf("Warning: failed to record search: %v", err)
		return buildSmartSearchResult(resp, nil, false)
	}
	log.Printf("Recorded search %s (confidence=%s, rules=%d)", saved.ID, resp.Confidence, len(resp.MatchedRules))

	return buildSmartSearchResult(resp, saved, false)
}

// checkCachedSearch returns the last search with queryHash if it can be reused.
// Returns it and true if:
// - history is enabled
// - a search with the same normalized text exists
// - that search was understood (not the fallback)
func checkCachedSearch(storage models.Storage, queryHash string) (*models.SavedSearch, bool) {
	if storage == nil {
		return nil, false
	}

	saved, exists := storage.FindLatestByHash(queryHash)
	if !exists {
		return nil, false
	}

	if saved.Intent.IsFallback() {
		log.Printf("Query unchanged but last search was not understood, parsing again")
		return nil, false
	}

	log.Printf("Query unchanged, returning existing search %s (no new search recorded)", saved.ID)
	return saved, true
}

// responseFromSaved rebuilds the use case response from a recorded search.
func responseFromSaved(query string, saved *models.SavedSearch) search.SmartSearchResponse {
	intent := saved.Intent
	return search.SmartSearchResponse{
		OriginalQuery:  query,
		Interpretation: intent.Interpretation,
		Filters:        intent.Filters,
		Suggestions:    intent.Suggestions,
		Confidence:     intent.Confidence,
		MatchedRules:   intent.MatchedRules,
	}
}

// buildSmartSearchResult attaches history information to resp.
func buildSmartSearchResult(resp search.SmartSearchResponse, saved *models.SavedSearch, resultsReused bool) SmartSearchResult {
	result := SmartSearchResult{
		SmartSearchResponse: resp,
		URLParams:           search.EncodeURLParams(search.FiltersToURLParams(resp.Filters)),
		ResultsReused:       resultsReused,
	}
	if saved != nil {
		result.SearchID = saved.ID
	}
	return result
}

// createSavedSearch creates a new history record from a use case response.
func createSavedSearch(query, queryHash string, resp search.SmartSearchResponse) *models.SavedSearch {
	return &models.SavedSearch{
		ID:        uuid.New().String(),
		Query:     query,
		QueryHash: queryHash,
		Intent: models.ParsedIntent{
			Filters:        resp.Filters,
			Interpretation: resp.Interpretation,
			Suggestions:    resp.Suggestions,
			Confidence:     resp.Confidence,
			MatchedRules:   resp.MatchedRules,
		},
		URLParams: search.EncodeURLParams(search.FiltersToURLParams(resp.Filters)),
		Timestamp: time.Now(),
	}
}

func hashQuery(query string) string {
	hash := sha256.Sum256([]byte(query))
	return hex.EncodeToString(hash[:])
}

func buildLogComment(queryHash string) string {
	comment := map[string]string{
		"query_hash": queryHash,
		"product":    productName,
	}
	commentJSON, _ := json.Marshal(comment)
	return string(commentJSON)
}
