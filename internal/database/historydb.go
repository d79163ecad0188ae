package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/attrguard/internal/model"
)

// DBFileName is the database file created inside the database directory.
const DBFileName = "attrguard.db"

// timestampLayout is fixed-width so that timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// HistoryDB provides SQLite-based storage for batch reports.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in the specified directory.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file, mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batch_reports (
		id TEXT PRIMARY KEY,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		provider_kind TEXT NOT NULL,
		total_scanned INTEGER NOT NULL,
		total_threats INTEGER NOT NULL,
		report_path TEXT,
		risk_summary TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_batch_reports_timestamp ON batch_reports(timestamp);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// ErrMissingID is returned when a report without an ID is saved.
var ErrMissingID = errors.New("batch report has no ID")

// SaveBatchReport stores a finished report. Saving the same ID twice
// replaces the earlier row.
func (hdb *HistoryDB) SaveBatchReport(ctx context.Context, report *model.BatchReport) error {
	if report == nil || report.ID == "" {
		return ErrMissingID
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	riskJSON, _ := json.Marshal(report.RiskSummary()) //nolint:errcheck,errchkjson // map[string]int never fails to marshal

	timestamp := report.FinishedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	query := `
	INSERT OR REPLACE INTO batch_reports
		(id, timestamp, provider_kind, total_scanned, total_threats, report_path, risk_summary, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = hdb.db.ExecContext(ctx, query,
		report.ID,
		timestamp.UTC().Format(timestampLayout),
		string(report.ProviderKind),
		report.TotalScanned,
		report.TotalThreats,
		report.ReportPath,
		string(riskJSON),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save batch report: %w", err)
	}

	return nil
}

// GetBatchReport retrieves a report by ID. It returns nil, nil when no
// report with that ID exists.
func (hdb *HistoryDB) GetBatchReport(ctx context.Context, id string) (*model.BatchReport, error) {
	query := `SELECT report_json FROM batch_reports WHERE id = ?`

	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch report: %w", err)
	}

	var report model.BatchReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// BatchMetadata contains summary information about a stored batch.
// This is used for listing history without loading full reports.
type BatchMetadata struct {
	ID           string             `json:"id"`
	Timestamp    time.Time          `json:"timestamp"`
	ProviderKind model.ProviderKind `json:"scanner_type"`
	TotalScanned int                `json:"total_scanned"`
	TotalThreats int                `json:"total_threats"`
	ReportPath   string             `json:"csv_file"`
	RiskSummary  map[string]int     `json:"risk_summary"`
}

// ListBatches returns metadata of stored batches, newest first.
// A limit of zero or less returns every batch.
func (hdb *HistoryDB) ListBatches(ctx context.Context, limit int) ([]BatchMetadata, error) {
	query := `
	SELECT id, timestamp, provider_kind, total_scanned, total_threats, report_path, risk_summary
	FROM batch_reports
	ORDER BY timestamp DESC, id
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	results := make([]BatchMetadata, 0)
	for rows.Next() {
		var (
			meta       BatchMetadata
			timestamp  string
			kind       string
			reportPath sql.NullString
			riskJSON   sql.NullString
		)
		if err := rows.Scan(&meta.ID, &timestamp, &kind, &meta.TotalScanned, &meta.TotalThreats, &reportPath, &riskJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		meta.ProviderKind = model.ProviderKind(kind)
		meta.ReportPath = reportPath.String

		meta.RiskSummary = make(map[string]int)
		if riskJSON.Valid && riskJSON.String != "" {
			if err := json.Unmarshal([]byte(riskJSON.String), &meta.RiskSummary); err != nil {
				meta.RiskSummary = make(map[string]int)
			}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// DeleteBatch removes a stored batch. Deleting an unknown ID is not an error.
func (hdb *HistoryDB) DeleteBatch(ctx context.Context, id string) error {
	if _, err := hdb.db.ExecContext(ctx, `DELETE FROM batch_reports WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete batch report: %w", err)
	}
	return nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,           // Format written by SaveBatchReport
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
