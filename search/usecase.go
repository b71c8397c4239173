package search

import (
	"errors"
	"log"
	"time"

	"github.com/orian/sqltelligence/models"
)

// SmartSearchRequest is the input of the smart search use case.
type SmartSearchRequest struct {
	Query string `json:"query"`
}

// SmartSearchResponse is what the smart search hands back to callers.
// Filters is passed unmodified to the statistics query layer.
type SmartSearchResponse struct {
	OriginalQuery    string               `json:"originalQuery"`
	Interpretation   string               `json:"interpretation"`
	Filters          models.SearchFilters `json:"filters"`
	Suggestions      []string             `json:"suggestions"`
	Confidence       models.Confidence    `json:"confidence"`
	MatchedRules     []models.MatchedRule `json:"matchedRules"`
	ProcessingTimeMs float64              `json:"processingTimeMs"`
}

// SmartSearch is the boundary of the smart search parser. Execute always
// returns a usable response: empty input and unparseable text degrade to
// the low-confidence fallback with example suggestions.
type SmartSearch struct {
	parser *Parser
}

// NewSmartSearch returns the use case over parser, or over a parser on
// the default registry when parser is nil.
func NewSmartSearch(parser *Parser) *SmartSearch {
	if parser == nil {
		parser = NewParser(nil)
	}
	return &SmartSearch{parser: parser}
}

// Execute parses req.Query and reports how long it took.
func (s *SmartSearch) Execute(req SmartSearchRequest) SmartSearchResponse {
	start := time.Now()
	intent := s.Interpret(req.Query)
	elapsed := time.Since(start)

	return SmartSearchResponse{
		OriginalQuery:    req.Query,
		Interpretation:   intent.Interpretation,
		Filters:          intent.Filters,
		Suggestions:      intent.Suggestions,
		Confidence:       intent.Confidence,
		MatchedRules:     intent.MatchedRules,
		ProcessingTimeMs: float64(elapsed.Microseconds()) / 1000,
	}
}

// Interpret returns the parsed intent for raw, falling back to the
// default intent on empty input, on no matching rule, and on any panic
// escaping the parser.
func (s *SmartSearch) Interpret(raw string) (intent *models.ParsedIntent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Smart search parse panicked for %q: %v", raw, r)
			intent = models.NewDefaultIntent(raw)
		}
	}()

	q, err := models.NewSearchQuery(raw)
	if err != nil {
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			log.Printf("Unexpected error building search query: %v", err)
		}
		return models.NewDefaultIntent(raw)
	}

	if !s.parser.CanHandle(q) {
		return models.NewDefaultIntent(raw)
	}
	return s.parser.Parse(q)
}
