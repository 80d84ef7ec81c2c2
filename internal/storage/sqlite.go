package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/apisift/apisift-go/internal/model"
)

// Storage handles database operations
type Storage struct {
	db *sql.DB
}

// Run represents one extraction run over a log file
type Run struct {
	ID              string
	Timestamp       time.Time
	Source          string // log file path or "stdin"
	DetectedFormat  string // "json", "http", "text", or "llm"
	CallCount       int
	LLMUsed         bool
	LLMProvider     string
	InputTokens     int
	OutputTokens    int
	CostUSD         float64
	DurationSeconds float64
}

// Database configuration constants
const (
	// busyTimeoutMs is how long SQLite waits when database is locked (5 seconds)
	busyTimeoutMs = 5000
	// maxOpenConns limits concurrent connections (SQLite works best with 1)
	maxOpenConns = 1
	// maxIdleConns is the number of idle connections to keep
	maxIdleConns = 1
	// connMaxLifetime is how long a connection can be reused
	connMaxLifetime = 30 * time.Minute
)

// New creates a new storage instance
func New(dbPath string) (*Storage, error) {
	// Create directory if it doesn't exist (0700 for security - owner only)
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// The _busy_timeout pragma prevents "database is locked" errors by waiting
	dsn := fmt.Sprintf("%s?_busy_timeout=%d", dbPath, busyTimeoutMs)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection to avoid lock contention
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// Schema version constants
const (
	// currentSchemaVersion is the latest schema version
	// Increment this when adding new migrations
	currentSchemaVersion = 2
)

// initSchema creates the database schema if it doesn't exist
func (s *Storage) initSchema() error {
	// Create schema_version table first (tracks migration state)
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	version := s.getSchemaVersion()

	if err := s.migrateSchema(version); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	return nil
}

// getSchemaVersion returns the current schema version (0 if not set)
func (s *Storage) getSchemaVersion() int {
	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if err != nil {
		return 0 // No version set, needs full migration
	}
	return version
}

// setSchemaVersion updates the schema version
func (s *Storage) setSchemaVersion(version int) error {
	// Delete existing and insert new (simpler than upsert for single row)
	if _, err := s.db.Exec(`DELETE FROM schema_version`); err != nil {
		return err
	}
	if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, version); err != nil {
		return err
	}
	return nil
}

// migrateSchema runs migrations from currentVersion to latest
func (s *Storage) migrateSchema(currentVersion int) error {
	if currentVersion >= currentSchemaVersion {
		return nil // Already up to date
	}

	log.Printf("storage: migrating schema from version %d to %d", currentVersion, currentSchemaVersion)

	// Migration 0 -> 1: Create base runs and calls tables
	if currentVersion < 1 {
		if err := s.migrateV1(); err != nil {
			return fmt.Errorf("migration v1 failed: %w", err)
		}
	}

	// Migration 1 -> 2: Add LLM usage columns to runs
	if currentVersion < 2 {
		if err := s.migrateV2(); err != nil {
			return fmt.Errorf("migration v2 failed: %w", err)
		}
	}

	if err := s.setSchemaVersion(currentSchemaVersion); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	log.Printf("storage: schema migration completed successfully (now at version %d)", currentSchemaVersion)
	return nil
}

// migrateV1 creates the base runs and calls tables
func (s *Storage) migrateV1() error {
	log.Printf("storage: running migration v1 - create base tables")

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		source TEXT NOT NULL,
		detected_format TEXT NOT NULL,
		call_count INTEGER DEFAULT 0,
		duration_seconds REAL DEFAULT 0.0
	);

	CREATE TABLE IF NOT EXISTS calls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		base_url TEXT,
		query_params TEXT,
		headers TEXT,
		body TEXT,
		status_code INTEGER DEFAULT 0,
		timestamp TEXT,
		source TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_calls_run_id ON calls(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds LLM usage columns to the runs table
func (s *Storage) migrateV2() error {
	log.Printf("storage: running migration v2 - add LLM usage columns")

	// Check if columns already exist (for databases migrated before version tracking)
	var hasLLMUsed bool
	rows, err := s.db.Query("PRAGMA table_info(runs)")
	if err != nil {
		return fmt.Errorf("failed to get table info: %w", err)
	}
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan column info: %w", err)
		}
		if name == "llm_used" {
			hasLLMUsed = true
			break
		}
	}
	_ = rows.Close()

	if !hasLLMUsed {
		alters := []string{
			`ALTER TABLE runs ADD COLUMN llm_used INTEGER NOT NULL DEFAULT 0`,
			`ALTER TABLE runs ADD COLUMN llm_provider TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE runs ADD COLUMN input_tokens INTEGER DEFAULT 0`,
			`ALTER TABLE runs ADD COLUMN output_tokens INTEGER DEFAULT 0`,
			`ALTER TABLE runs ADD COLUMN cost_usd REAL DEFAULT 0.0`,
		}
		for _, stmt := range alters {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("failed to add LLM column: %w", err)
			}
		}
	}

	return nil
}

// SaveRun saves an extraction run and its calls in one transaction.
// A missing run ID is filled in with a fresh UUID.
func (s *Storage) SaveRun(run *Run, calls []model.ApiCall) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now()
	}
	run.CallCount = len(calls)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO runs (
			id, timestamp, source, detected_format, call_count, duration_seconds,
			llm_used, llm_provider, input_tokens, output_tokens, cost_usd
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Timestamp.Format(time.RFC3339),
		run.Source,
		run.DetectedFormat,
		run.CallCount,
		run.DurationSeconds,
		run.LLMUsed,
		run.LLMProvider,
		run.InputTokens,
		run.OutputTokens,
		run.CostUSD,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, call := range calls {
		queryJSON, err := json.Marshal(call.QueryParams)
		if err != nil {
			return fmt.Errorf("failed to marshal query params: %w", err)
		}
		headersJSON, err := json.Marshal(call.Headers)
		if err != nil {
			return fmt.Errorf("failed to marshal headers: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO calls (
				run_id, method, path, base_url, query_params, headers,
				body, status_code, timestamp, source
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			string(call.Method),
			call.Path,
			call.BaseURL,
			string(queryJSON),
			string(headersJSON),
			model.BodyString(call.Body),
			call.StatusCode,
			call.Timestamp,
			call.Source,
		)
		if err != nil {
			return fmt.Errorf("failed to insert call: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRecentRuns retrieves runs from the last N days, newest first
func (s *Storage) GetRecentRuns(days int) ([]*Run, error) {
	cutoffDate := time.Now().AddDate(0, 0, -days).Format(time.RFC3339)

	rows, err := s.db.Query(`
		SELECT id, timestamp, source, detected_format, call_count, duration_seconds,
		       llm_used, llm_provider, input_tokens, output_tokens, cost_usd
		FROM runs
		WHERE timestamp >= ?
		ORDER BY timestamp DESC
	`, cutoffDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			log.Printf("storage: failed to close database rows: %v", err)
		}
	}(rows)

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRunCalls retrieves the calls recorded for a run
func (s *Storage) GetRunCalls(runID string) ([]model.ApiCall, error) {
	rows, err := s.db.Query(`
		SELECT method, path, base_url, query_params, headers,
		       body, status_code, timestamp, source
		FROM calls
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query calls: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			log.Printf("storage: failed to close database rows: %v", err)
		}
	}(rows)

	var calls []model.ApiCall
	for rows.Next() {
		var (
			method, path, baseURL  string
			queryJSON, headersJSON string
			body, timestamp, src   string
			statusCode             int
		)
		if err := rows.Scan(&method, &path, &baseURL, &queryJSON, &headersJSON,
			&body, &statusCode, &timestamp, &src); err != nil {
			return nil, fmt.Errorf("failed to scan call row: %w", err)
		}

		call := model.ApiCall{
			Method:     model.Method(method),
			Path:       path,
			BaseURL:    baseURL,
			StatusCode: statusCode,
			Timestamp:  timestamp,
			Source:     src,
		}
		if body != "" {
			call.Body = body
		}
		if err := json.Unmarshal([]byte(queryJSON), &call.QueryParams); err != nil {
			return nil, fmt.Errorf("failed to unmarshal query params: %w", err)
		}
		if err := json.Unmarshal([]byte(headersJSON), &call.Headers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal headers: %w", err)
		}

		calls = append(calls, call)
	}

	return calls, rows.Err()
}

// CleanupOldRuns deletes runs (and their calls) older than N days
func (s *Storage) CleanupOldRuns(days int) (int64, error) {
	cutoffDate := time.Now().AddDate(0, 0, -days).Format(time.RFC3339)

	if _, err := s.db.Exec(`
		DELETE FROM calls WHERE run_id IN (SELECT id FROM runs WHERE timestamp < ?)
	`, cutoffDate); err != nil {
		return 0, fmt.Errorf("failed to cleanup old calls: %w", err)
	}

	result, err := s.db.Exec(`DELETE FROM runs WHERE timestamp < ?`, cutoffDate)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old runs: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected, nil
}

// GetStatistics returns database statistics
func (s *Storage) GetStatistics() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalRuns, totalCalls int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&totalRuns); err != nil {
		return nil, err
	}
	stats["total_runs"] = totalRuns

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM calls`).Scan(&totalCalls); err != nil {
		return nil, err
	}
	stats["total_calls"] = totalCalls

	// Format distribution
	rows, err := s.db.Query(`SELECT detected_format, COUNT(*) FROM runs GROUP BY detected_format`)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			log.Printf("storage: failed to close database rows: %v", err)
		}
	}(rows)

	formatDist := make(map[string]int)
	for rows.Next() {
		var format string
		var count int
		if err := rows.Scan(&format, &count); err != nil {
			return nil, err
		}
		formatDist[format] = count
	}
	stats["format_distribution"] = formatDist

	var totalCost float64
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(cost_usd), 0) FROM runs`).Scan(&totalCost); err != nil {
		return nil, err
	}
	stats["total_cost_usd"] = totalCost

	return stats, nil
}

// scanRun scans a database row into a Run struct
func scanRun(rows *sql.Rows) (*Run, error) {
	var (
		id, timestamp, source, detectedFormat string
		callCount                             int
		durationSeconds                       float64
		llmUsed                               bool
		llmProvider                           string
		inputTokens, outputTokens             int
		costUSD                               float64
	)

	err := rows.Scan(
		&id, &timestamp, &source, &detectedFormat, &callCount, &durationSeconds,
		&llmUsed, &llmProvider, &inputTokens, &outputTokens, &costUSD,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}

	return &Run{
		ID:              id,
		Timestamp:       ts,
		Source:          source,
		DetectedFormat:  detectedFormat,
		CallCount:       callCount,
		DurationSeconds: durationSeconds,
		LLMUsed:         llmUsed,
		LLMProvider:     llmProvider,
		InputTokens:     inputTokens,
		OutputTokens:    outputTokens,
		CostUSD:         costUSD,
	}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
