package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/orian/sqltelligence/search"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <text...>",
	Short: "Interpret a smart search and print the derived filters",
	Long: `Run the rule based parser on the given text without touching
ClickHouse or the search history.

Examples:
  sqltelligence parse 최근 1시간 느린 쿼리 5개
  sqltelligence parse --params "SYS 스키마에서 실행시간 100ms 이상인 쿼리"
  sqltelligence parse --json 가장 느린 쿼리`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

var (
	parseShowParams bool
	parseJSON       bool
)

func init() {
	parseCmd.Flags().BoolVar(&parseShowParams, "params", false, "also print the statistics page URL parameters")
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "print the full response as JSON")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	resp := search.NewSmartSearch(nil).Execute(search.SmartSearchRequest{Query: strings.Join(args, " ")})
	return printParse(cmd.OutOrStdout(), resp, parseShowParams, parseJSON)
}

func printParse(w io.Writer, resp search.SmartSearchResponse, showParams, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(resp)
	}

	filtersJSON, err := json.Marshal(resp.Filters)
	if err != nil {
		return fmt.Errorf("failed to marshal filters: %w", err)
	}

	fmt.Fprintf(w, "Query:          %s\n", resp.OriginalQuery)
	fmt.Fprintf(w, "Interpretation: %s\n", resp.Interpretation)
	fmt.Fprintf(w, "Confidence:     %s\n", resp.Confidence)
	fmt.Fprintf(w, "Filters:        %s\n", filtersJSON)

	for _, rule := range resp.MatchedRules {
		fmt.Fprintf(w, "  %-22s %.2f  %s\n", rule.RuleName, rule.Confidence, strings.Join(rule.MatchedKeywords, ", "))
	}

	if len(resp.Suggestions) > 0 {
		fmt.Fprintln(w, "Try:")
		for _, s := range resp.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}

	if showParams {
		fmt.Fprintf(w, "Params:         %s\n", search.EncodeURLParams(search.FiltersToURLParams(resp.Filters)))
	}

	return nil
}
