package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/orian/sqltelligence/models"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sqltelligence",
	Short: "Natural language search over SQL performance statistics",
	Long: `sqltelligence turns free text such as "최근 1시간 느린 쿼리 5개" into
structured filters for SQL statistics stored in ClickHouse.

Commands:
  serve   start the HTTP API and dashboard
  parse   interpret a search offline and print the filters`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP API. Configuration is read from an optional YAML file
(--config) and then from the environment, which takes precedence
(CLICKHOUSE_HOST, CLICKHOUSE_USER, CLICKHOUSE_PASSWORD, CLICKHOUSE_DATABASE,
CLICKHOUSE_SECURE, DUCKDB_PATH, PORT, STATIC_DIR, STATS_TABLE,
SEARCH_HISTORY, STATS_MAX_EXECUTION_TIME_MS, STATS_RATE_LIMIT, STATS_RATE_BURST).`,
	RunE: runServe,
}

var (
	serveConfigPath       string
	servePort             int
	serveCreateStatsTable bool
)

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to a YAML config file")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveCreateStatsTable, "create-stats-table", false, "create the statistics table in ClickHouse if missing")

	rootCmd.AddCommand(serveCmd)
}

// maskPassword keeps the first and last character of passwords longer than two.
func maskPassword(password string) string {
	switch n := len(password); {
	case n == 0:
		return "<empty>"
	case n <= 2:
		return password
	default:
		return password[:1] + strings.Repeat("*", n-2) + password[n-1:]
	}
}

// clickHouseOptions maps the configuration onto driver options.
func clickHouseOptions(cfg *Config) *clickhouse.Options {
	options := &clickhouse.Options{
		Addr: []string{cfg.ClickHouseHost},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{
				{Name: productName, Version: "1.0"},
			},
		},
		Settings: clickhouse.Settings{
			"send_logs_level": "none",
		},
	}
	if cfg.UseSecure() {
		options.TLS = &tls.Config{InsecureSkipVerify: true}
	}
	return options
}

func connectClickHouse(ctx context.Context, cfg *Config) (driver.Conn, error) {
	options := clickHouseOptions(cfg)
	log.Printf("ClickHouse %s/%s as %s (password %s, tls %v), statistics table %s",
		cfg.ClickHouseHost, cfg.ClickHouseDatabase, cfg.ClickHouseUser,
		maskPassword(cfg.ClickHousePassword), options.TLS != nil, cfg.StatsTable)

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Not fatal: parsing and the history work without ClickHouse.
	if err := conn.Ping(ctx); err != nil {
		log.Printf("Warning: ClickHouse ping failed: %v", err)
	}

	return conn, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(serveConfigPath)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	conn, err := connectClickHouse(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if serveCreateStatsTable {
		executor := NewStatsExecutor(conn, cfg.StatsTable, cfg.MaxExecutionTimeMs())
		if err := executor.EnsureTable(cmd.Context()); err != nil {
			return err
		}
		log.Printf("Statistics table %s is ready", cfg.StatsTable)
	}

	var storage models.Storage
	if cfg.SearchHistory {
		duck, err := NewDuckDBStorage(cfg.DuckDBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer duck.Close()
		storage = duck
		log.Printf("DuckDB storage initialized at: %s", cfg.DuckDBPath)
	} else {
		log.Println("Search history disabled")
	}

	server := NewServer(storage, conn, cfg)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on http://localhost:%d", cfg.Port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
