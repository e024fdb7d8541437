package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"dealdesk/models"
)

// SQLiteStore holds operational data: valuation run history, run logs,
// and the operator command queue. Domain data lives in Postgres.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS valuation_runs (
		id INTEGER PRIMARY KEY,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		listings_processed INTEGER DEFAULT 0,
		bands_written INTEGER DEFAULT 0,
		cache_hits INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0,
		error_message TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS run_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON run_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON valuation_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Valuation runs
// =============================================================================

func (s *SQLiteStore) CreateRun(startedAt time.Time) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO valuation_runs (started_at, status)
		VALUES (?, ?)`, startedAt, models.RunStatusRunning)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) FinishRun(run *models.ValuationRun) error {
	_, err := s.db.Exec(`
		UPDATE valuation_runs
		SET finished_at = ?, status = ?, listings_processed = ?, bands_written = ?,
			cache_hits = ?, errors_count = ?, error_message = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.ListingsProcessed, run.BandsWritten,
		run.CacheHits, run.ErrorsCount, run.ErrorMessage, run.ID)
	return err
}

func (s *SQLiteStore) GetRecentRuns(limit int) ([]models.ValuationRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, status, listings_processed, bands_written,
			cache_hits, errors_count, error_message
		FROM valuation_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ValuationRun
	for rows.Next() {
		var r models.ValuationRun
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Status, &r.ListingsProcessed,
			&r.BandsWritten, &r.CacheHits, &r.ErrorsCount, &r.ErrorMessage); err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// Run logs
// =============================================================================

func (s *SQLiteStore) AddLog(runID *int64, level models.LogLevel, message string) error {
	_, err := s.db.Exec(`
		INSERT INTO run_logs (run_id, timestamp, level, message)
		VALUES (?, ?, ?, ?)`, runID, time.Now(), level, message)
	return err
}

// =============================================================================
// Commands
// =============================================================================

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params json.RawMessage) error {
	_, err := s.db.Exec(`
		INSERT INTO commands (command, params) VALUES (?, ?)`, cmd, params)
	return err
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, COALESCE(params, '{}'), created_at
		FROM commands
		WHERE processed_at IS NULL
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var c models.Command
		var params []byte
		if err := rows.Scan(&c.ID, &c.Command, &params, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Params = params
		cmds = append(cmds, c)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}
