package search

import (
	"regexp"
	"strings"

	"github.com/orian/sqltelligence/models"
)

// SchemaRuleName is the registry name of the schema / owner rule.
const SchemaRuleName = "SchemaRule"

const identifier = `([a-z_][a-z0-9_$#]*)`

var (
	schemaQuotedRe = regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_$#]*)"`)

	// Checked in order against the normalized input.
	schemaPatterns = []*regexp.Regexp{
		regexp.MustCompile(identifier + `\s*스키마`),
		regexp.MustCompile(`스키마\s*(?:가|는|[:=])?\s*` + identifier),
		regexp.MustCompile(`\b(?:schema|owner)\s*[:=]?\s*` + identifier),
		regexp.MustCompile(identifier + `\s+(?:schema|owner)\b`),
	}

	// Words that read like identifiers next to "schema" but are not.
	schemaStopWords = map[string]bool{
		"the": true, "in": true, "from": true, "of": true, "a": true, "an": true,
		"schema": true, "owner": true, "this": true, "that": true, "is": true,
	}
)

// NewSchemaRule returns the rule that picks up an explicit schema name.
// Unquoted names are upper-cased the way Oracle folds them; quoted names
// keep the case they were typed in.
func NewSchemaRule() Rule {
	return &baseRule{name: SchemaRuleName, priority: 60, extract: extractSchema}
}

func extractSchema(q *models.SearchQuery) (*RulePatch, bool) {
	if m := schemaQuotedRe.FindStringSubmatch(q.CollapsedInput()); m != nil {
		return schemaPatch(m[1], m[0]), true
	}

	text := q.NormalizedInput()
	for _, re := range schemaPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if schemaStopWords[m[1]] {
				continue
			}
			return schemaPatch(strings.ToUpper(m[1]), m[0]), true
		}
	}
	return nil, false
}

func schemaPatch(schema, keyword string) *RulePatch {
	return &RulePatch{
		Filters:         models.SearchFilters{Schema: schema},
		Interpretation:  schema + " 스키마",
		MatchedKeywords: []string{strings.TrimSpace(keyword)},
		Confidence:      confidenceExplicit,
	}
}
