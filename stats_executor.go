package main

import (
	"context"
	"fmt"
	"log"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/orian/sqltelligence/models"
)

// StatsExecutor runs SQL statistics queries against ClickHouse.
type StatsExecutor struct {
	conn               driver.Conn
	table              string
	maxExecutionTimeMs int
}

// NewStatsExecutor creates a StatsExecutor reading from table.
func NewStatsExecutor(conn driver.Conn, table string, maxExecutionTimeMs int) *StatsExecutor {
	return &StatsExecutor{
		conn:               conn,
		table:              table,
		maxExecutionTimeMs: maxExecutionTimeMs,
	}
}

// StatsResult is the outcome of one statistics lookup.
type StatsResult struct {
	// Query is the SQL that was sent, without bound values.
	Query string `json:"query"`

	Rows []models.SQLStat `json:"rows"`

	// Error contains the error message if execution failed.
	Error string `json:"error,omitempty"`
}

// Options returns the query options for a request tagged with logComment.
func (e *StatsExecutor) Options(logComment string) models.StatsQueryOptions {
	return models.StatsQueryOptions{
		Table:              e.table,
		LogComment:         logComment,
		MaxExecutionTimeMs: e.maxExecutionTimeMs,
	}
}

// Execute fetches the statements matching filters. Query failures are
// reported in the result; only an unusable configuration is returned as error.
func (e *StatsExecutor) Execute(ctx context.Context, filters models.SearchFilters, logComment string) (*StatsResult, error) {
	query, args, err := models.BuildStatsQuery(filters, e.Options(logComment))
	if err != nil {
		return nil, err
	}
	log.Printf("Running statistics query: %s", query)

	result := &StatsResult{Query: query, Rows: []models.SQLStat{}}

	rows, err := e.conn.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Error executing statistics query: %v", err)
		result.Error = fmt.Sprintf("Query error: %v", err)
		return result, nil
	}
	defer rows.Close()

	stats, err := scanStatRows(rows)
	if err != nil {
		result.Error = fmt.Sprintf("Scan error: %v", err)
		return result, nil
	}

	result.Rows = stats
	return result, nil
}

// EnsureTable creates the statistics table if it does not exist.
func (e *StatsExecutor) EnsureTable(ctx context.Context) error {
	if _, _, err := models.BuildStatsQuery(models.SearchFilters{}, e.Options("")); err != nil {
		return err
	}
	if err := e.conn.Exec(ctx, fmt.Sprintf(models.StatsTableDDL, e.table)); err != nil {
		return fmt.Errorf("failed to create statistics table %s: %w", e.table, err)
	}
	return nil
}

// scanStatRows scans rows selected with models.StatsColumns.
func scanStatRows(rows driver.Rows) ([]models.SQLStat, error) {
	result := []models.SQLStat{}

	for rows.Next() {
		var row models.SQLStat
		if err := rows.Scan(
			&row.SQLID, &row.SQLText, &row.Schema,
			&row.ElapsedTimeMs, &row.CPUTimeMs,
			&row.BufferGets, &row.Executions, &row.CapturedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}

	return result, rows.Err()
}
