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

	"github.com/nao1215/hitscan/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "hitscan.db"

// ErrRunNotFound is returned when a run id has no stored run.
var ErrRunNotFound = errors.New("run not found")

// CrawlDB provides SQLite-based storage for crawl runs and their hits.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run; report_json keeps the full report
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		start_urls TEXT NOT NULL,
		status TEXT NOT NULL,
		cards INTEGER NOT NULL DEFAULT 0,
		empty_cards INTEGER NOT NULL DEFAULT 0,
		detail_rows INTEGER NOT NULL DEFAULT 0,
		summary_rows INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Hits are the detail rows of a run
	CREATE TABLE IF NOT EXISTS hits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		identifier TEXT NOT NULL,
		game_count INTEGER NOT NULL,
		kind TEXT NOT NULL,
		source_url TEXT,
		scraped_at TEXT,
		UNIQUE(run_id, identifier, game_count, kind)
	);

	CREATE INDEX IF NOT EXISTS idx_hits_run ON hits(run_id);
	CREATE INDEX IF NOT EXISTS idx_hits_identifier ON hits(identifier);
	`
	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a finished report and its detail rows in one
// transaction and sets report.ID.
func (cdb *CrawlDB) SaveRun(ctx context.Context, report *model.CrawlReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	startURLs, err := json.Marshal(report.StartURLs)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize start URLs: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (started_at, finished_at, start_urls, status, cards, empty_cards, detail_rows, summary_rows, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		string(startURLs),
		report.Status.String(),
		len(report.Cards),
		report.EmptyCards(),
		len(report.Details),
		len(report.Summary),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO hits (run_id, identifier, game_count, kind, source_url, scraped_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, identifier, game_count, kind) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare hit insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range report.Details {
		if _, err := stmt.ExecContext(ctx,
			runID,
			row.Identifier.String(),
			row.GameCount,
			row.Kind.String(),
			row.SourceURL,
			formatTimestamp(row.ScrapedAt),
		); err != nil {
			return 0, fmt.Errorf("failed to insert hit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	report.ID = runID
	return runID, nil
}

// RunMetadata summarises a stored run without loading its report.
type RunMetadata struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  time.Time
	StartURLs   []string
	Status      model.Status
	Cards       int
	EmptyCards  int
	DetailRows  int
	SummaryRows int
}

// ListRuns returns the most recent runs first. A limit below 1 returns
// every run.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]RunMetadata, error) {
	query := `
	SELECT id, started_at, finished_at, start_urls, status, cards, empty_cards, detail_rows, summary_rows
	FROM runs
	ORDER BY id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var (
			meta                RunMetadata
			started, status     string
			finished, startURLs sql.NullString
		)
		if err := rows.Scan(&meta.ID, &started, &finished, &startURLs, &status,
			&meta.Cards, &meta.EmptyCards, &meta.DetailRows, &meta.SummaryRows); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		meta.StartedAt = parseTimestamp(started)
		meta.FinishedAt = parseTimestamp(finished.String)
		meta.Status = model.ParseStatus(status)
		if startURLs.Valid && startURLs.String != "" {
			if err := json.Unmarshal([]byte(startURLs.String), &meta.StartURLs); err != nil {
				meta.StartURLs = nil
			}
		}
		results = append(results, meta)
	}
	return results, rows.Err()
}

// GetRun loads the full report of a run.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*model.CrawlReport, error) {
	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	report.ID = id
	report.SetStatus(model.ParseStatus(report.StatusText))
	return &report, nil
}

// LatestRunID returns the id of the most recent run.
func (cdb *CrawlDB) LatestRunID(ctx context.Context) (int64, error) {
	var id int64
	err := cdb.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRunNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get latest run: %w", err)
	}
	return id, nil
}

// RunHits returns the stored detail rows of a run in insertion order.
func (cdb *CrawlDB) RunHits(ctx context.Context, runID int64) ([]model.DetailRow, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT identifier, game_count, kind, source_url, scraped_at
	FROM hits
	WHERE run_id = ?
	ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query hits: %w", err)
	}
	defer rows.Close()

	results := make([]model.DetailRow, 0)
	for rows.Next() {
		var (
			row                  model.DetailRow
			identifier, kind     string
			sourceURL, scrapedAt sql.NullString
		)
		if err := rows.Scan(&identifier, &row.GameCount, &kind, &sourceURL, &scrapedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		row.Identifier = model.Identifier(identifier)
		row.Kind = model.Kind(kind)
		row.SourceURL = sourceURL.String
		row.ScrapedAt = parseTimestamp(scrapedAt.String)
		results = append(results, row)
	}
	return results, rows.Err()
}

// MachineHit is one stored hit of a machine, tagged with its run.
type MachineHit struct {
	RunID     int64
	GameCount int
	Kind      model.Kind
	ScrapedAt time.Time
}

// MachineHistory returns every stored hit of a machine across runs,
// newest run first.
func (cdb *CrawlDB) MachineHistory(ctx context.Context, id model.Identifier) ([]MachineHit, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT run_id, game_count, kind, scraped_at
	FROM hits
	WHERE identifier = ?
	ORDER BY run_id DESC, id`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query machine history: %w", err)
	}
	defer rows.Close()

	var results []MachineHit
	for rows.Next() {
		var (
			hit       MachineHit
			kind      string
			scrapedAt sql.NullString
		)
		if err := rows.Scan(&hit.RunID, &hit.GameCount, &kind, &scrapedAt); err != nil {
			return nil, fmt.Errorf("failed to scan machine hit: %w", err)
		}
		hit.Kind = model.Kind(kind)
		hit.ScrapedAt = parseTimestamp(scrapedAt.String)
		results = append(results, hit)
	}
	return results, rows.Err()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses a stored timestamp, returning the zero time when
// no format matches.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
